package assemble

import "github.com/nhh-linglab/linkage-cli/internal/model"

// ComputeMetrics aggregates a conversation's turns into the analysis columns
// attached to matched rows. Duration is max minus min message time in
// minutes; zero when the conversation has fewer than two timestamped turns.
func ComputeMetrics(conv *model.ConversationRecord) *model.ConversationMetrics {
	m := &model.ConversationMetrics{MessageCount: len(conv.Messages)}

	var userChars, assistantChars int
	for _, msg := range conv.Messages {
		switch msg.Role {
		case model.RoleUser:
			m.UserMessageCount++
			userChars += len([]rune(msg.Content))
		case model.RoleAssistant:
			m.AssistantMessageCount++
			assistantChars += len([]rune(msg.Content))
		}
	}
	if m.UserMessageCount > 0 {
		m.AvgUserMessageLength = float64(userChars) / float64(m.UserMessageCount)
	}
	if m.AssistantMessageCount > 0 {
		m.AvgAssistantMsgLength = float64(assistantChars) / float64(m.AssistantMessageCount)
	}

	var first, last int64
	for _, msg := range conv.Messages {
		if msg.Timestamp.IsZero() {
			continue
		}
		t := msg.Timestamp.Unix()
		if first == 0 || t < first {
			first = t
		}
		if t > last {
			last = t
		}
	}
	if first != 0 && last > first {
		m.DurationMinutes = float64(last-first) / 60.0
	}

	return m
}
