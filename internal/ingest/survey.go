package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// Skip records a single input row that was dropped during ingestion and why.
// Skipped rows never abort a run; they are surfaced in the audit log.
type Skip struct {
	Line   int
	Key    string
	Reason string
}

// SurveyOptions configures the survey table readers. Column names default to
// the export tool's header names.
type SurveyOptions struct {
	Encoding      string // "utf-8" (default) or "windows-1252"
	ResponseIDCol string // default "ResponseId"
	StartTimeCol  string // default "StartDate"
	DeclaredIDCol string // default "UserID"; optional column, may be absent
}

func (o *SurveyOptions) defaults() {
	if o.ResponseIDCol == "" {
		o.ResponseIDCol = "ResponseId"
	}
	if o.StartTimeCol == "" {
		o.StartTimeCol = "StartDate"
	}
	if o.DeclaredIDCol == "" {
		o.DeclaredIDCol = "UserID"
	}
}

// startTimeLayouts are tried in order. The export writes US-style dates
// without zero padding; merged intermediates use ISO.
var startTimeLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

func parseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized timestamp %q", s)
}

// ReadSurveyCSV reads the survey export from a CSV file. Malformed rows are
// skipped with a recorded reason, never fatal.
func ReadSurveyCSV(path string, opts SurveyOptions) (*model.SurveyTable, []Skip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "survey: open file")
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
		return nil, nil, eris.New("survey: empty file")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "survey: read header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "survey: read row")
		}
		rows = append(rows, record)
	}

	return parseSurveyRows(header, rows, opts)
}

// ReadSurveyXLSX reads the survey export from the first sheet of an .xlsx
// workbook. Row semantics match ReadSurveyCSV.
func ReadSurveyXLSX(path string, opts SurveyOptions) (*model.SurveyTable, []Skip, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "survey: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("survey: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.New("survey: empty sheet")
	}

	header := cellsToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, cellsToStrings(row))
	}

	return parseSurveyRows(header, rows, opts)
}

func cellsToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func parseSurveyRows(header []string, rows [][]string, opts SurveyOptions) (*model.SurveyTable, []Skip, error) {
	opts.defaults()

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	idx := make(map[string]int, len(header))
	for i, c := range header {
		idx[c] = i
	}

	respCol, ok := idx[opts.ResponseIDCol]
	if !ok {
		return nil, nil, eris.Errorf("survey: missing column %q", opts.ResponseIDCol)
	}
	startCol, ok := idx[opts.StartTimeCol]
	if !ok {
		return nil, nil, eris.Errorf("survey: missing column %q", opts.StartTimeCol)
	}
	declaredCol, hasDeclared := idx[opts.DeclaredIDCol]

	table := &model.SurveyTable{Columns: header}
	var skips []Skip
	seen := make(map[string]bool)

	for i, record := range rows {
		line := i + 2 // 1-based, after the header

		// Pad short rows so Values stays parallel to Columns.
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}

		responseID := strings.TrimSpace(record[respCol])
		if responseID == "" {
			skips = append(skips, Skip{Line: line, Reason: "empty response id"})
			continue
		}
		if seen[responseID] {
			skips = append(skips, Skip{Line: line, Key: responseID, Reason: "duplicate response id"})
			continue
		}

		start, err := parseStartTime(record[startCol])
		if err != nil {
			skips = append(skips, Skip{Line: line, Key: responseID, Reason: "unparseable start time"})
			continue
		}

		resp := model.SurveyResponse{
			ResponseID: responseID,
			StartTime:  start,
			Values:     record,
		}
		if hasDeclared {
			resp.DeclaredID = strings.TrimSpace(record[declaredCol])
		}

		seen[responseID] = true
		table.Rows = append(table.Rows, resp)
	}

	if len(skips) > 0 {
		zap.L().Warn("survey rows skipped",
			zap.Int("skipped", len(skips)),
			zap.Int("kept", len(table.Rows)))
	}

	return table, skips, nil
}
