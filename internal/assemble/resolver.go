package assemble

import (
	"sort"

	"github.com/nhh-linglab/linkage-cli/internal/extract"
	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// Input carries everything the resolver needs. Conversations is keyed by
// conversation id and supplies metrics for matched rows; it may hold both
// primary and recovered records.
type Input struct {
	Table         *model.SurveyTable
	Matches       []model.MatchResult
	Conversations map[string]*model.ConversationRecord
}

// Assemble groups survey rows by participant, labels each with its linkage
// status, and returns one UnifiedRecord per input row in input order. No row
// is ever dropped or merged: output length always equals input length.
func Assemble(in Input) []model.UnifiedRecord {
	rows := in.Table.Rows
	sessions := AssignSessions(rows)

	matchBySurvey := make(map[string]model.MatchResult, len(in.Matches))
	for _, m := range in.Matches {
		matchBySurvey[m.SurveyID] = m
	}

	records := make([]model.UnifiedRecord, len(rows))
	groups := make(map[string][]int)

	for i, row := range rows {
		rec := model.UnifiedRecord{
			Survey:  row,
			Session: sessions[i],
			UserID:  participantID(row),
		}
		if m, ok := matchBySurvey[row.ResponseID]; ok {
			applyMatch(&rec, m, in.Conversations)
		}
		records[i] = rec

		key := groupKey(row)
		groups[key] = append(groups[key], i)
	}

	for _, idxs := range groups {
		labelGroup(records, idxs, in.Conversations)
	}

	return records
}

// groupKey decides which rows belong to the same participant. Only declared
// identifiers group rows: identifiers derived from start times are unique per
// submission by construction, and two strangers starting within the same
// minute must not become each other's duplicates.
func groupKey(row model.SurveyResponse) string {
	if cand, ok := extract.DefaultExtractor.FromDeclared(row.DeclaredID); ok {
		return "id:" + extract.EquivalenceKey(cand.Normalized())
	}
	if k := extract.EquivalenceKey(row.DeclaredID); k != "" {
		return "id:" + k
	}
	return "resp:" + row.ResponseID
}

// participantID picks the canonical identifier for a survey row: the declared
// identifier when it normalizes to a valid candidate, the raw declared value
// when present but non-conforming, else an identifier derived from the row's
// own start time.
func participantID(row model.SurveyResponse) string {
	if cand, ok := extract.DefaultExtractor.FromDeclared(row.DeclaredID); ok {
		return cand.Normalized()
	}
	if row.DeclaredID != "" {
		return row.DeclaredID
	}
	return extract.Derive(row.StartTime).Normalized()
}

func applyMatch(rec *model.UnifiedRecord, m model.MatchResult, convs map[string]*model.ConversationRecord) {
	rec.ConversationID = m.ConversationID
	rec.Method = m.Method
	rec.Confidence = m.Confidence
	rec.TimestampDiffMinutes = m.TimeDeltaSeconds / 60.0
	if m.UserID != "" {
		rec.UserID = m.UserID
	}
	if conv, ok := convs[m.ConversationID]; ok {
		rec.Metrics = ComputeMetrics(conv)
	}
}

// labelGroup assigns data status within one equivalence group. Exactly one
// row per group is canonical; everything else in a multi-row group is a
// Duplicate. Unmatched duplicates borrow the canonical row's match data by
// reference so every duplicate row still shows where its participant's
// conversation is; the label keeps them out of per-participant analysis.
func labelGroup(records []model.UnifiedRecord, idxs []int, convs map[string]*model.ConversationRecord) {
	canonical := pickCanonical(records, idxs)

	for _, i := range idxs {
		rec := &records[i]
		switch {
		case i == canonical && rec.HasMatch():
			if rec.Method == model.MatchRecoveredData {
				rec.Status = model.StatusRecovered
			} else {
				rec.Status = model.StatusComplete
			}
		case i == canonical:
			rec.Status = model.StatusMissingConversation
		default:
			rec.Status = model.StatusDuplicate
			if !rec.HasMatch() && records[canonical].HasMatch() {
				borrowMatch(rec, &records[canonical])
			}
		}
	}
}

// pickCanonical chooses the group's canonical row: prefer rows with a match,
// then higher method priority, higher confidence, earlier start time, and
// finally smaller response id.
func pickCanonical(records []model.UnifiedRecord, idxs []int) int {
	sorted := append([]int(nil), idxs...)
	sort.Slice(sorted, func(a, b int) bool {
		ra, rb := &records[sorted[a]], &records[sorted[b]]
		if ra.HasMatch() != rb.HasMatch() {
			return ra.HasMatch()
		}
		if pa, pb := ra.Method.Priority(), rb.Method.Priority(); pa != pb {
			return pa > pb
		}
		if ra.Confidence != rb.Confidence {
			return ra.Confidence > rb.Confidence
		}
		if !ra.Survey.StartTime.Equal(rb.Survey.StartTime) {
			return ra.Survey.StartTime.Before(rb.Survey.StartTime)
		}
		return ra.Survey.ResponseID < rb.Survey.ResponseID
	})
	return sorted[0]
}

func borrowMatch(rec, canonical *model.UnifiedRecord) {
	rec.ConversationID = canonical.ConversationID
	rec.Method = canonical.Method
	rec.Confidence = canonical.Confidence
	rec.TimestampDiffMinutes = canonical.TimestampDiffMinutes
	rec.Metrics = canonical.Metrics
}
