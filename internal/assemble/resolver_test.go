package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

func resp(id string, start time.Time, declared string) model.SurveyResponse {
	return model.SurveyResponse{
		ResponseID: id,
		StartTime:  start,
		DeclaredID: declared,
		Values:     []string{id},
	}
}

func table(rows ...model.SurveyResponse) *model.SurveyTable {
	return &model.SurveyTable{Columns: []string{"ResponseId"}, Rows: rows}
}

var day = time.Date(2024, 12, 5, 16, 45, 0, 0, time.UTC)

func TestAssemble_DuplicateGroupOneCanonical(t *testing.T) {
	// Same participant submitted twice; only the first carries a match.
	tbl := table(
		resp("R6a", day, "05122024_1645"),
		resp("R6b", day.Add(30*time.Minute), "05122024_1645"),
	)
	matches := []model.MatchResult{
		{SurveyID: "R6a", ConversationID: "C1", Method: model.MatchExplicitID, Confidence: 1.0},
	}

	records := Assemble(Input{Table: tbl, Matches: matches})
	require.Len(t, records, 2)

	assert.Equal(t, model.StatusComplete, records[0].Status)
	assert.Equal(t, model.StatusDuplicate, records[1].Status)

	// The duplicate carries the match data by reference.
	assert.Equal(t, "C1", records[1].ConversationID)
	assert.Equal(t, model.MatchExplicitID, records[1].Method)
}

func TestAssemble_RecoveredOverridesComplete(t *testing.T) {
	tbl := table(resp("R1", day, ""))
	matches := []model.MatchResult{
		{SurveyID: "R1", ConversationID: "C1", Method: model.MatchRecoveredData, Confidence: 0.9},
	}

	records := Assemble(Input{Table: tbl, Matches: matches})
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusRecovered, records[0].Status)
}

func TestAssemble_MissingConversation(t *testing.T) {
	tbl := table(resp("R1", day, ""))

	records := Assemble(Input{Table: tbl, Matches: nil})
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusMissingConversation, records[0].Status)
	assert.False(t, records[0].HasMatch())
}

func TestAssemble_UnmatchedDuplicateGroup(t *testing.T) {
	tbl := table(
		resp("R2", day.Add(time.Hour), "participant 7 05122024_1645"),
		resp("R1", day, "05122024_1645 7"),
	)

	records := Assemble(Input{Table: tbl, Matches: nil})
	require.Len(t, records, 2)

	// The earlier submission is canonical; no match anywhere in the group.
	assert.Equal(t, model.StatusDuplicate, records[0].Status)
	assert.Equal(t, model.StatusMissingConversation, records[1].Status)
}

func TestAssemble_CanonicalPrefersHigherPriorityMethod(t *testing.T) {
	tbl := table(
		resp("R1", day, "05122024_1645"),
		resp("R2", day.Add(time.Minute), "05122024_1645"),
	)
	matches := []model.MatchResult{
		{SurveyID: "R1", ConversationID: "C1", Method: model.MatchTimestamp, Confidence: 0.9},
		{SurveyID: "R2", ConversationID: "C2", Method: model.MatchExplicitID, Confidence: 1.0},
	}

	records := Assemble(Input{Table: tbl, Matches: matches})
	require.Len(t, records, 2)

	// R2's explicit match makes it canonical despite the later start.
	assert.Equal(t, model.StatusDuplicate, records[0].Status)
	assert.Equal(t, model.StatusComplete, records[1].Status)
	// The non-canonical matched row keeps its own match data.
	assert.Equal(t, "C1", records[0].ConversationID)
	assert.Equal(t, model.MatchTimestamp, records[0].Method)
}

func TestAssemble_RowCountAndOrderPreserved(t *testing.T) {
	tbl := table(
		resp("R3", day.Add(2*time.Hour), ""),
		resp("R1", day, ""),
		resp("R2", day.Add(time.Hour), ""),
	)

	records := Assemble(Input{Table: tbl, Matches: nil})
	require.Len(t, records, 3)
	assert.Equal(t, "R3", records[0].Survey.ResponseID)
	assert.Equal(t, "R1", records[1].Survey.ResponseID)
	assert.Equal(t, "R2", records[2].Survey.ResponseID)
}

func TestAssemble_DerivedIdentifiersDoNotCollide(t *testing.T) {
	// No declared identifiers: keys derive from each row's own start time, so
	// distinct start times never group together.
	tbl := table(
		resp("R1", day, ""),
		resp("R2", day.Add(time.Minute), ""),
	)

	records := Assemble(Input{Table: tbl, Matches: nil})
	assert.Equal(t, model.StatusMissingConversation, records[0].Status)
	assert.Equal(t, model.StatusMissingConversation, records[1].Status)
	assert.Equal(t, "05122024_1645", records[0].UserID)
	assert.Equal(t, "05122024_1646", records[1].UserID)
}

func TestAssemble_MatchAttachesMetrics(t *testing.T) {
	tbl := table(resp("R1", day, ""))
	matches := []model.MatchResult{
		{SurveyID: "R1", ConversationID: "C1", Method: model.MatchTimestamp, Confidence: 0.9, TimeDeltaSeconds: 3600},
	}
	convs := map[string]*model.ConversationRecord{
		"C1": {
			ID: "C1",
			Messages: []model.Message{
				{Role: model.RoleUser, Content: "hello", Timestamp: day},
				{Role: model.RoleAssistant, Content: "hi there!", Timestamp: day.Add(2 * time.Minute)},
			},
		},
	}

	records := Assemble(Input{Table: tbl, Matches: matches, Conversations: convs})
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 60.0, rec.TimestampDiffMinutes)
	require.NotNil(t, rec.Metrics)
	assert.Equal(t, 2, rec.Metrics.MessageCount)
	assert.Equal(t, 1, rec.Metrics.UserMessageCount)
	assert.Equal(t, 2.0, rec.Metrics.DurationMinutes)
}

func TestAssignSessions(t *testing.T) {
	rows := []model.SurveyResponse{
		resp("R1", time.Date(2024, 12, 6, 10, 0, 0, 0, time.UTC), ""),
		resp("R2", time.Date(2024, 12, 5, 9, 0, 0, 0, time.UTC), ""),
		resp("R3", time.Date(2024, 12, 6, 15, 0, 0, 0, time.UTC), ""),
	}

	labels := AssignSessions(rows)
	// Dates order ascending regardless of row order.
	assert.Equal(t, []string{"Session 2", "Session 1", "Session 2"}, labels)
}

func TestComputeMetrics(t *testing.T) {
	conv := &model.ConversationRecord{
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "abcd", Timestamp: day},
			{Role: model.RoleUser, Content: "ab", Timestamp: day.Add(time.Minute)},
			{Role: model.RoleAssistant, Content: "123456", Timestamp: day.Add(3 * time.Minute)},
			{Role: model.RoleSystem, Content: "ignored for averages", Timestamp: day},
		},
	}

	m := ComputeMetrics(conv)
	assert.Equal(t, 4, m.MessageCount)
	assert.Equal(t, 2, m.UserMessageCount)
	assert.Equal(t, 1, m.AssistantMessageCount)
	assert.Equal(t, 3.0, m.AvgUserMessageLength)
	assert.Equal(t, 6.0, m.AvgAssistantMsgLength)
	assert.Equal(t, 3.0, m.DurationMinutes)
}

func TestComputeMetrics_SingleMessage(t *testing.T) {
	conv := &model.ConversationRecord{
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi", Timestamp: day}},
	}

	m := ComputeMetrics(conv)
	assert.Equal(t, 0.0, m.DurationMinutes)
	assert.Equal(t, 0.0, m.AvgAssistantMsgLength)
}
