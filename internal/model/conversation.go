package model

import (
	"strings"
	"time"
)

// ConversationSource tags which export a conversation came from.
type ConversationSource string

const (
	// SourcePrimary marks conversations from the primary export.
	SourcePrimary ConversationSource = "primary"
	// SourceRecovered marks conversations rebuilt from the legacy archival
	// export by the literal-dialect decoder.
	SourceRecovered ConversationSource = "recovered"
)

// Role identifies the author of a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one exchange turn within a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// ConversationRecord is one chat session. Never mutated after ingestion;
// a conversation belongs to zero or one survey response after arbitration.
type ConversationRecord struct {
	ID         string
	CreateTime time.Time
	Source     ConversationSource
	Messages   []Message
}

// FirstUserMessage returns the content of the earliest user-authored turn,
// or empty string if the conversation has none.
func (c *ConversationRecord) FirstUserMessage() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// IsTestLogin reports whether the conversation is a throwaway session whose
// first user turn is just "login". These occur in the export from participants
// testing access and never correspond to a survey submission.
func (c *ConversationRecord) IsTestLogin() bool {
	return strings.EqualFold(strings.TrimSpace(c.FirstUserMessage()), "login")
}
