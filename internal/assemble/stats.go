package assemble

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// Stats summarizes a unified table for run logs and the stats command.
type Stats struct {
	Rows     int
	Matched  int
	ByMethod map[model.MatchMethod]int
	ByStatus map[model.DataStatus]int

	// Over matched rows with a nonzero time delta.
	MeanDiffMinutes float64
	MaxDiffMinutes  float64
}

// MatchRate is Matched/Rows, 0 for an empty table.
func (s Stats) MatchRate() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Rows)
}

// Summarize computes Stats over assembled records.
func Summarize(records []model.UnifiedRecord) Stats {
	s := Stats{
		ByMethod: make(map[model.MatchMethod]int),
		ByStatus: make(map[model.DataStatus]int),
	}

	var diffSum float64
	var diffN int
	for i := range records {
		rec := &records[i]
		s.Rows++
		s.ByStatus[rec.Status]++
		if !rec.HasMatch() {
			continue
		}
		s.Matched++
		s.ByMethod[rec.Method]++
		if rec.TimestampDiffMinutes > 0 {
			diffSum += rec.TimestampDiffMinutes
			diffN++
			if rec.TimestampDiffMinutes > s.MaxDiffMinutes {
				s.MaxDiffMinutes = rec.TimestampDiffMinutes
			}
		}
	}
	if diffN > 0 {
		s.MeanDiffMinutes = diffSum / float64(diffN)
	}
	return s
}

// SummarizeCSV computes Stats from a previously written unified table.
func SummarizeCSV(path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, eris.Wrap(err, "stats: open file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return Stats{}, eris.Wrap(err, "stats: read header")
	}
	idx := make(map[string]int, len(header))
	for i, c := range header {
		idx[strings.TrimSpace(c)] = i
	}

	convCol, ok := idx["conversation_id"]
	if !ok {
		return Stats{}, eris.New("stats: not a unified table (no conversation_id column)")
	}
	methodCol, hasMethod := idx["MatchMethod"]
	statusCol, hasStatus := idx["data_status"]
	diffCol, hasDiff := idx["timestamp_diff_minutes"]

	s := Stats{
		ByMethod: make(map[model.MatchMethod]int),
		ByStatus: make(map[model.DataStatus]int),
	}
	var diffSum float64
	var diffN int

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, eris.Wrap(err, "stats: read row")
		}
		cell := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		s.Rows++
		if hasStatus {
			s.ByStatus[model.DataStatus(cell(statusCol))]++
		}
		if cell(convCol) == "" {
			continue
		}
		s.Matched++
		if hasMethod {
			s.ByMethod[model.MatchMethod(cell(methodCol))]++
		}
		if hasDiff {
			if v, err := strconv.ParseFloat(cell(diffCol), 64); err == nil && v > 0 {
				diffSum += v
				diffN++
				if v > s.MaxDiffMinutes {
					s.MaxDiffMinutes = v
				}
			}
		}
	}
	if diffN > 0 {
		s.MeanDiffMinutes = diffSum / float64(diffN)
	}
	return s, nil
}
