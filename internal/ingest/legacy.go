package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nhh-linglab/linkage-cli/internal/legacy"
	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// LegacyOptions configures the archival export reader. Each row stores the
// whole message tree as one literal-dialect string in the mapping column.
type LegacyOptions struct {
	Encoding          string
	ConversationIDCol string // default "conversation_id"
	CreateTimeCol     string // default "create_time"
	MappingCol        string // default "mapping"
}

func (o *LegacyOptions) defaults() {
	if o.ConversationIDCol == "" {
		o.ConversationIDCol = "conversation_id"
	}
	if o.CreateTimeCol == "" {
		o.CreateTimeCol = "create_time"
	}
	if o.MappingCol == "" {
		o.MappingCol = "mapping"
	}
}

// ReadLegacyCSV reads the legacy archival export and decodes each mapping
// into an ordered message sequence. A conversation whose mapping cannot be
// parsed at all is dropped and recorded; it never aborts the run.
func ReadLegacyCSV(path string, opts LegacyOptions) ([]model.ConversationRecord, []Skip, error) {
	opts.defaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "legacy: open file")
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
		return nil, nil, eris.New("legacy: empty file")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "legacy: read header")
	}

	idx := make(map[string]int, len(header))
	for i, c := range header {
		idx[strings.TrimSpace(c)] = i
	}

	convCol, ok := idx[opts.ConversationIDCol]
	if !ok {
		return nil, nil, eris.Errorf("legacy: missing column %q", opts.ConversationIDCol)
	}
	mappingCol, ok := idx[opts.MappingCol]
	if !ok {
		return nil, nil, eris.Errorf("legacy: missing column %q", opts.MappingCol)
	}
	timeCol, hasTime := idx[opts.CreateTimeCol]

	var records []model.ConversationRecord
	var skips []Skip
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "legacy: read row")
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

		raw := cell(mappingCol)
		if raw == "" || raw == "{}" {
			skips = append(skips, Skip{Line: line, Key: convID, Reason: "empty mapping"})
			continue
		}

		msgs, err := legacy.DecodeMapping(raw)
		if err != nil {
			zap.L().Debug("legacy mapping decode failed",
				zap.String("conversation_id", convID),
				zap.Error(err))
			skips = append(skips, Skip{Line: line, Key: convID, Reason: "mapping decode failed"})
			continue
		}
		if len(msgs) == 0 {
			skips = append(skips, Skip{Line: line, Key: convID, Reason: "mapping has no messages"})
			continue
		}

		rec := model.ConversationRecord{
			ID:       convID,
			Source:   model.SourceRecovered,
			Messages: msgs,
		}
		if hasTime {
			if ts, err := parseUnix(cell(timeCol)); err == nil {
				rec.CreateTime = ts
			}
		}
		if rec.CreateTime.IsZero() {
			rec.CreateTime = msgs[0].Timestamp
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if len(skips) > 0 {
		zap.L().Warn("legacy conversations dropped",
			zap.Int("dropped", len(skips)),
			zap.Int("recovered", len(records)))
	}

	return records, skips, nil
}
