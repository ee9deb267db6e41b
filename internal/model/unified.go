package model

// DataStatus labels each output row's linkage outcome.
type DataStatus string

const (
	// StatusComplete marks the canonical row of a participant with a match.
	StatusComplete DataStatus = "Complete"
	// StatusRecovered marks a row matched via the legacy-recovered set;
	// overrides Complete so recovered links stay auditable.
	StatusRecovered DataStatus = "Recovered"
	// StatusDuplicate marks a non-canonical row in a multi-submission group.
	StatusDuplicate DataStatus = "Duplicate"
	// StatusMissingConversation marks a row with no conversation link.
	StatusMissingConversation DataStatus = "MissingConversation"
)

// ConversationMetrics aggregates a matched conversation for analysis columns.
type ConversationMetrics struct {
	MessageCount          int
	UserMessageCount      int
	AssistantMessageCount int
	AvgUserMessageLength  float64
	AvgAssistantMsgLength float64
	DurationMinutes       float64
}

// UnifiedRecord is one output row per survey response (never collapsed).
// It carries the original survey row untouched plus linkage annotations.
// This is the only artifact downstream consumers read.
type UnifiedRecord struct {
	Survey  SurveyResponse
	Session string

	// Linkage annotations; nil/zero when unmatched.
	ConversationID       string
	Metrics              *ConversationMetrics
	UserID               string
	Method               MatchMethod // empty when unmatched
	Confidence           float64
	TimestampDiffMinutes float64
	Status               DataStatus
}

// HasMatch reports whether this row carries a conversation link, directly or
// by reference through its duplicate group.
func (r *UnifiedRecord) HasMatch() bool {
	return r.ConversationID != ""
}
