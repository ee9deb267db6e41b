package model

// MatchMethod identifies which strategy established a survey-conversation link.
type MatchMethod string

const (
	// MatchExplicitID means the conversation text itself named a validated
	// identifier matching the survey.
	MatchExplicitID MatchMethod = "ExplicitID"
	// MatchTimestamp means the link was established purely from proximity
	// between survey start and conversation creation.
	MatchTimestamp MatchMethod = "Timestamp"
	// MatchRecoveredData means a temporal match against a conversation
	// rebuilt by the legacy decoder.
	MatchRecoveredData MatchMethod = "RecoveredData"
)

// Priority orders methods for arbitration; higher wins.
func (m MatchMethod) Priority() int {
	switch m {
	case MatchExplicitID:
		return 3
	case MatchRecoveredData:
		return 2
	case MatchTimestamp:
		return 1
	default:
		return 0
	}
}

// MatchResult links one survey response to one conversation. For a fixed
// output table each SurveyID and each ConversationID appears in at most one
// MatchResult. Immutable after arbitration.
type MatchResult struct {
	SurveyID       string
	ConversationID string
	Method         MatchMethod
	// Confidence is in [0,1]: 1.0 for explicit-ID matches, decreasing with
	// time delta for temporal matches.
	Confidence float64
	// TimeDeltaSeconds is |survey start − conversation create|. Zero for
	// explicit-ID matches where proximity played no role.
	TimeDeltaSeconds float64
	// UserID is the canonical participant identifier attached to this match:
	// extracted from the conversation for explicit matches, derived from the
	// survey start time otherwise.
	UserID string
}
