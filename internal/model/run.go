package model

import "time"

// RunStatus tracks a linkage run's lifecycle in the audit store.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is the per-run outcome persisted for audit.
type RunSummary struct {
	SurveyRows             int            `json:"survey_rows"`
	Conversations          int            `json:"conversations"`
	RecoveredConversations int            `json:"recovered_conversations"`
	Matched                int            `json:"matched"`
	ByMethod               map[string]int `json:"by_method,omitempty"`
	SkippedRows            int            `json:"skipped_rows"`
	OutputPath             string         `json:"output_path,omitempty"`
}

// LinkRun is one pipeline invocation recorded in the audit store.
type LinkRun struct {
	ID         string
	Status     RunStatus
	Summary    *RunSummary
	CreatedAt  time.Time
	FinishedAt time.Time
}

// AuditEvent records one non-fatal anomaly during a run: a skipped ingest
// row, a failed legacy decode, a discarded identifier.
type AuditEvent struct {
	ID        string
	RunID     string
	Stage     string
	Key       string
	Reason    string
	CreatedAt time.Time
}
