package assemble

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/nhh-linglab/linkage-cli/internal/extract"
	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// linkageColumns are appended after the original survey columns, in this
// fixed order. Viewers bind to these names; never reorder.
var linkageColumns = []string{
	"Session",
	"conversation_id",
	"MessageCount",
	"UserMessageCount",
	"AssistantMessageCount",
	"AvgUserMessageLength",
	"AvgAssistantMessageLength",
	"ConversationDurationMinutes",
	"UserID",
	"MatchMethod",
	"match_confidence",
	"timestamp_diff_minutes",
	"data_status",
}

// WriteUnifiedCSV writes the final linkage table: all original survey columns
// in input order, then the linkage columns. One row per input survey row, in
// input order. Nullable fields are written empty, never "0".
func WriteUnifiedCSV(w io.Writer, columns []string, records []model.UnifiedRecord) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+len(linkageColumns))
	header = append(header, columns...)
	header = append(header, linkageColumns...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))

		// Original cells, padded if the source row was short.
		for i := range columns {
			if i < len(rec.Survey.Values) {
				row = append(row, rec.Survey.Values[i])
			} else {
				row = append(row, "")
			}
		}

		row = append(row, rec.Session, rec.ConversationID)
		if rec.Metrics != nil {
			m := rec.Metrics
			row = append(row,
				strconv.Itoa(m.MessageCount),
				strconv.Itoa(m.UserMessageCount),
				strconv.Itoa(m.AssistantMessageCount),
				formatFloat(m.AvgUserMessageLength),
				formatFloat(m.AvgAssistantMsgLength),
				formatFloat(m.DurationMinutes),
			)
		} else {
			row = append(row, "", "", "", "", "", "")
		}

		row = append(row, rec.UserID, string(rec.Method))
		if rec.HasMatch() {
			row = append(row,
				formatFloat(rec.Confidence),
				formatFloat(rec.TimestampDiffMinutes),
			)
		} else {
			row = append(row, "", "")
		}
		row = append(row, string(rec.Status))

		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteUnifiedCSVFile is WriteUnifiedCSV to a path.
func WriteUnifiedCSVFile(path string, columns []string, records []model.UnifiedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := WriteUnifiedCSV(f, columns, records); err != nil {
		f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}

// WriteUnmatchedReport lists conversations that ended a run without a survey
// link: create time, first user turn, and any identifier candidate found in
// it. Conversations come in sorted by id from ingestion; order is preserved.
func WriteUnmatchedReport(w io.Writer, convs []model.ConversationRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"conversation_id", "source", "create_time", "first_user_message", "candidate_id"}); err != nil {
		return eris.Wrap(err, "report: write header")
	}

	for i := range convs {
		conv := &convs[i]
		first := conv.FirstUserMessage()
		candidate := ""
		if c, ok := extract.DefaultExtractor.FromText(first); ok {
			candidate = c.Normalized()
		}
		row := []string{
			conv.ID,
			string(conv.Source),
			conv.CreateTime.UTC().Format("2006-01-02 15:04:05"),
			truncate(first, 200),
			candidate,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush")
}

// WriteRecoveredMessagesCSV exports decoder output standalone: one row per
// message across the recovered set.
func WriteRecoveredMessagesCSV(w io.Writer, convs []model.ConversationRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"conversation_id", "message_id", "create_time", "author_role", "message_content"}); err != nil {
		return eris.Wrap(err, "recover: write header")
	}

	for i := range convs {
		conv := &convs[i]
		for _, msg := range conv.Messages {
			ts := ""
			if !msg.Timestamp.IsZero() {
				ts = strconv.FormatInt(msg.Timestamp.Unix(), 10)
			}
			row := []string{conv.ID, msg.ID, ts, string(msg.Role), msg.Content}
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "recover: write row")
			}
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "recover: flush")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
