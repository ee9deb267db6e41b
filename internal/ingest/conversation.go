package ingest

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// ConversationOptions configures the primary conversation export reader.
// The export is flat: one row per message, grouped here by conversation id.
type ConversationOptions struct {
	Encoding          string
	ConversationIDCol string // default "conversation_id"
	MessageIDCol      string // default "message_id"; optional column
	CreateTimeCol     string // default "create_time"
	RoleCol           string // default "author_role"
	ContentCol        string // default "message_content"
}

func (o *ConversationOptions) defaults() {
	if o.ConversationIDCol == "" {
		o.ConversationIDCol = "conversation_id"
	}
	if o.MessageIDCol == "" {
		o.MessageIDCol = "message_id"
	}
	if o.CreateTimeCol == "" {
		o.CreateTimeCol = "create_time"
	}
	if o.RoleCol == "" {
		o.RoleCol = "author_role"
	}
	if o.ContentCol == "" {
		o.ContentCol = "message_content"
	}
}

// ReadConversationsCSV reads the primary conversation export. Rows that cannot
// be attributed to a conversation or carry an unparseable timestamp are
// skipped with a recorded reason. Conversations come back sorted by id;
// messages within a conversation by timestamp, then message id.
func ReadConversationsCSV(path string, opts ConversationOptions) ([]model.ConversationRecord, []Skip, error) {
	opts.defaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "conversations: open file")
	}
	defer f.Close()

	r, err := decodeReader(f, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, eris.New("conversations: empty file")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "conversations: read header")
	}

	idx := make(map[string]int, len(header))
	for i, c := range header {
		idx[strings.TrimSpace(c)] = i
	}

	convCol, ok := idx[opts.ConversationIDCol]
	if !ok {
		return nil, nil, eris.Errorf("conversations: missing column %q", opts.ConversationIDCol)
	}
	timeCol, ok := idx[opts.CreateTimeCol]
	if !ok {
		return nil, nil, eris.Errorf("conversations: missing column %q", opts.CreateTimeCol)
	}
	roleCol, ok := idx[opts.RoleCol]
	if !ok {
		return nil, nil, eris.Errorf("conversations: missing column %q", opts.RoleCol)
	}
	contentCol, ok := idx[opts.ContentCol]
	if !ok {
		return nil, nil, eris.Errorf("conversations: missing column %q", opts.ContentCol)
	}
	msgIDCol, hasMsgID := idx[opts.MessageIDCol]

	byConv := make(map[string][]model.Message)
	var skips []Skip
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "conversations: read row")
		}
		line++

		cell := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		convID := cell(convCol)
		if convID == "" {
			skips = append(skips, Skip{Line: line, Reason: "empty conversation id"})
			continue
		}

		ts, err := parseUnix(cell(timeCol))
		if err != nil {
			skips = append(skips, Skip{Line: line, Key: convID, Reason: "unparseable create time"})
			continue
		}

		content := unwrapContent(cell(contentCol))
		role := model.Role(strings.ToLower(cell(roleCol)))
		if content == "" || (role != model.RoleUser && role != model.RoleAssistant && role != model.RoleSystem) {
			// Tool and placeholder turns carry no linkage evidence.
			continue
		}

		msg := model.Message{Role: role, Content: content, Timestamp: ts}
		if hasMsgID {
			msg.ID = cell(msgIDCol)
		}
		byConv[convID] = append(byConv[convID], msg)
	}

	records := make([]model.ConversationRecord, 0, len(byConv))
	for id, msgs := range byConv {
		sort.SliceStable(msgs, func(i, j int) bool {
			if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
				return msgs[i].Timestamp.Before(msgs[j].Timestamp)
			}
			return msgs[i].ID < msgs[j].ID
		})
		records = append(records, model.ConversationRecord{
			ID:         id,
			CreateTime: msgs[0].Timestamp,
			Source:     model.SourcePrimary,
			Messages:   msgs,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if len(skips) > 0 {
		zap.L().Warn("conversation rows skipped",
			zap.Int("skipped", len(skips)),
			zap.Int("conversations", len(records)))
	}

	return records, skips, nil
}

// parseUnix converts a unix timestamp string, integer or fractional seconds,
// to a UTC time.
func parseUnix(s string) (time.Time, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse unix time %q", s)
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// unwrapContent strips the single-element list wrapper some export rows carry
// around message text, e.g. "['My ID is 05122024_1600_2']".
func unwrapContent(s string) string {
	for _, q := range []string{"'", `"`} {
		prefix, suffix := "["+q, q+"]"
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix) && len(s) >= len(prefix)+len(suffix) {
			return strings.TrimSpace(s[len(prefix) : len(s)-len(suffix)])
		}
	}
	return strings.TrimSpace(s)
}
