// Package pipeline orchestrates a full linkage run: identifier extraction,
// explicit matching, two temporal passes, arbitration, and assembly.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhh-linglab/linkage-cli/internal/assemble"
	"github.com/nhh-linglab/linkage-cli/internal/extract"
	"github.com/nhh-linglab/linkage-cli/internal/ingest"
	"github.com/nhh-linglab/linkage-cli/internal/match"
	"github.com/nhh-linglab/linkage-cli/internal/model"
	"github.com/nhh-linglab/linkage-cli/internal/store"
)

// Options bound the temporal passes. Zero values fall back to 24 hours.
type Options struct {
	Window          time.Duration
	RecoveredWindow time.Duration
}

func (o *Options) defaults() {
	if o.Window <= 0 {
		o.Window = 24 * time.Hour
	}
	if o.RecoveredWindow <= 0 {
		o.RecoveredWindow = 24 * time.Hour
	}
}

// Inputs are the immutable snapshots one run works from. Skips carries the
// per-row ingestion anomalies for the audit trail.
type Inputs struct {
	Surveys   *model.SurveyTable
	Primary   []model.ConversationRecord
	Recovered []model.ConversationRecord
	Skips     []model.AuditEvent
}

// Result is everything a run produces.
type Result struct {
	RunID     string
	Records   []model.UnifiedRecord
	Matches   []model.MatchResult
	Unmatched []model.ConversationRecord
	Stats     assemble.Stats
}

// Pipeline is a single-threaded batch transformation; every stage treats its
// inputs as immutable snapshots, so repeated runs over unchanged input are
// deterministic and idempotent.
type Pipeline struct {
	opts      Options
	extractor *extract.Extractor
	store     store.Store // nil disables audit persistence
}

// New builds a Pipeline. st may be nil to skip the audit store.
func New(opts Options, extractor *extract.Extractor, st store.Store) *Pipeline {
	opts.defaults()
	if extractor == nil {
		extractor = extract.DefaultExtractor
	}
	return &Pipeline{opts: opts, extractor: extractor, store: st}
}

// Run executes the full linkage over the given inputs.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	log := zap.L()
	log.Info("linkage: starting run",
		zap.Int("surveys", len(in.Surveys.Rows)),
		zap.Int("conversations", len(in.Primary)),
		zap.Int("recovered", len(in.Recovered)))

	result := &Result{}
	audit := append([]model.AuditEvent(nil), in.Skips...)

	var run *model.LinkRun
	if p.store != nil {
		var err error
		run, err = p.store.CreateRun(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
	}

	matches, unmatched, err := p.link(in)
	if err != nil {
		if run != nil {
			_ = p.store.FinishRun(ctx, run.ID, model.RunStatusFailed, nil)
		}
		return nil, err
	}
	result.Matches = matches
	result.Unmatched = unmatched

	convIndex := make(map[string]*model.ConversationRecord, len(in.Primary)+len(in.Recovered))
	for i := range in.Primary {
		convIndex[in.Primary[i].ID] = &in.Primary[i]
	}
	for i := range in.Recovered {
		if _, exists := convIndex[in.Recovered[i].ID]; !exists {
			convIndex[in.Recovered[i].ID] = &in.Recovered[i]
		}
	}

	result.Records = assemble.Assemble(assemble.Input{
		Table:         in.Surveys,
		Matches:       matches,
		Conversations: convIndex,
	})
	result.Stats = assemble.Summarize(result.Records)

	log.Info("linkage: run complete",
		zap.Int("matched", result.Stats.Matched),
		zap.Int("rows", result.Stats.Rows),
		zap.Float64("match_rate", result.Stats.MatchRate()),
		zap.Int("unmatched_conversations", len(unmatched)))

	if run != nil {
		if err := p.store.RecordEvents(ctx, run.ID, audit); err != nil {
			log.Warn("linkage: audit events not recorded", zap.Error(err))
		}
		summary := p.summary(result, len(in.Skips), in)
		if err := p.store.FinishRun(ctx, run.ID, model.RunStatusComplete, summary); err != nil {
			log.Warn("linkage: run summary not recorded", zap.Error(err))
		}
	}

	return result, nil
}

// link produces the conflict-free match set plus the residual conversations.
func (p *Pipeline) link(in Inputs) ([]model.MatchResult, []model.ConversationRecord, error) {
	log := zap.L()

	explicit := p.explicitCandidates(in.Surveys.Rows, in.Primary)
	log.Debug("linkage: explicit candidates", zap.Int("count", len(explicit)))

	// Arbitrate the explicit stream alone to learn which keys it consumes;
	// lower-priority passes must not reconsider them.
	explicitResults, err := match.Arbitrate(explicit, p.opts.Window)
	if err != nil {
		return nil, nil, err
	}
	claimedSurveys := match.NewClaimSet()
	claimedConvs := match.NewClaimSet()
	for _, m := range explicitResults {
		claimedSurveys = claimedSurveys.With(m.SurveyID)
		claimedConvs = claimedConvs.With(m.ConversationID)
	}

	surveyEvents := make([]match.Event, 0, len(in.Surveys.Rows))
	for _, r := range in.Surveys.Rows {
		surveyEvents = append(surveyEvents, match.Event{Key: r.ResponseID, Time: r.StartTime})
	}

	pass1 := match.MatchByTime(surveyEvents, conversationEvents(in.Primary), p.opts.Window, claimedSurveys, claimedConvs)
	log.Debug("linkage: temporal pass over primary set", zap.Int("pairs", len(pass1.Pairs)))

	pass2 := match.MatchByTime(surveyEvents, conversationEvents(in.Recovered), p.opts.RecoveredWindow, pass1.ClaimedSurveys, pass1.ClaimedConvs)
	log.Debug("linkage: temporal pass over recovered set", zap.Int("pairs", len(pass2.Pairs)))

	candidates := explicit
	candidates = append(candidates, temporalCandidates(pass1.Pairs, model.MatchTimestamp, in.Surveys)...)
	candidates = append(candidates, temporalCandidates(pass2.Pairs, model.MatchRecoveredData, in.Surveys)...)

	matches, err := match.Arbitrate(candidates, p.opts.Window)
	if err != nil {
		return nil, nil, err
	}

	matchedConvs := make(map[string]bool, len(matches))
	for _, m := range matches {
		matchedConvs[m.ConversationID] = true
	}
	var unmatched []model.ConversationRecord
	for _, set := range [][]model.ConversationRecord{in.Primary, in.Recovered} {
		for _, c := range set {
			if !matchedConvs[c.ID] {
				unmatched = append(unmatched, c)
			}
		}
	}

	return matches, unmatched, nil
}

// explicitCandidates joins conversations bearing a validated identifier to
// the survey whose declared or derived identifier names the same participant.
// Two identifiers agree when their date-time bases are equal and their
// sequence numbers are equal or absent on either side.
func (p *Pipeline) explicitCandidates(rows []model.SurveyResponse, convs []model.ConversationRecord) []match.Candidate {
	type entry struct {
		row int
		seq int // 0 when the identifier carries none
	}
	byBase := make(map[string][]entry)
	for i, r := range rows {
		if cand, ok := p.extractor.FromDeclared(r.DeclaredID); ok {
			byBase[extract.EquivalenceKey(cand.Base())] = append(byBase[extract.EquivalenceKey(cand.Base())], entry{row: i, seq: cand.Seq})
		}
		derived := extract.Derive(r.StartTime)
		byBase[extract.EquivalenceKey(derived.Base())] = append(byBase[extract.EquivalenceKey(derived.Base())], entry{row: i})
	}

	var candidates []match.Candidate
	for ci := range convs {
		conv := &convs[ci]
		cand, ok := p.extractor.FromText(conv.FirstUserMessage())
		if !ok {
			continue
		}

		seen := make(map[int]bool)
		for _, e := range byBase[extract.EquivalenceKey(cand.Base())] {
			if cand.Seq != e.seq && cand.Seq != 0 && e.seq != 0 {
				continue
			}
			if seen[e.row] {
				continue
			}
			seen[e.row] = true
			candidates = append(candidates, match.Candidate{
				Method:         model.MatchExplicitID,
				SurveyID:       rows[e.row].ResponseID,
				ConversationID: conv.ID,
				Delta:          absDelta(rows[e.row].StartTime, conv.CreateTime),
				UserID:         cand.Normalized(),
			})
		}
	}
	return candidates
}

// conversationEvents filters a set down to what temporal matching may use:
// test "login" sessions carry no linkage signal and are excluded.
func conversationEvents(convs []model.ConversationRecord) []match.Event {
	events := make([]match.Event, 0, len(convs))
	for i := range convs {
		if convs[i].IsTestLogin() {
			continue
		}
		events = append(events, match.Event{Key: convs[i].ID, Time: convs[i].CreateTime})
	}
	return events
}

func temporalCandidates(pairs []match.Pair, method model.MatchMethod, surveys *model.SurveyTable) []match.Candidate {
	startByID := make(map[string]time.Time, len(surveys.Rows))
	for _, r := range surveys.Rows {
		startByID[r.ResponseID] = r.StartTime
	}

	candidates := make([]match.Candidate, 0, len(pairs))
	for _, pair := range pairs {
		c := match.Candidate{
			Method:         method,
			SurveyID:       pair.SurveyID,
			ConversationID: pair.ConversationID,
			Delta:          pair.Delta,
		}
		if start, ok := startByID[pair.SurveyID]; ok {
			c.UserID = extract.Derive(start).Normalized()
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func (p *Pipeline) summary(result *Result, skipped int, in Inputs) *model.RunSummary {
	byMethod := make(map[string]int, len(result.Stats.ByMethod))
	for m, n := range result.Stats.ByMethod {
		byMethod[string(m)] = n
	}
	return &model.RunSummary{
		SurveyRows:             len(in.Surveys.Rows),
		Conversations:          len(in.Primary),
		RecoveredConversations: len(in.Recovered),
		Matched:                result.Stats.Matched,
		ByMethod:               byMethod,
		SkippedRows:            skipped,
	}
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

// AuditFromSkips converts ingestion skip records to audit events for one
// stage, keeping line numbers in the key when no record key exists.
func AuditFromSkips(stage string, skips []ingest.Skip) []model.AuditEvent {
	events := make([]model.AuditEvent, 0, len(skips))
	for _, s := range skips {
		key := s.Key
		if key == "" {
			key = "line " + strconv.Itoa(s.Line)
		}
		events = append(events, model.AuditEvent{Stage: stage, Key: key, Reason: s.Reason})
	}
	return events
}
