package model

import "time"

// SurveyTable holds the full survey export: the original column header plus
// one SurveyResponse per row, in input order. The pipeline never edits survey
// content, only annotates it; Columns and Values pass through to the output
// untouched.
type SurveyTable struct {
	Columns []string
	Rows    []SurveyResponse
}

// SurveyResponse is one survey submission. ResponseID is unique per
// submission, not per participant; the same person may submit more than once.
type SurveyResponse struct {
	ResponseID string
	StartTime  time.Time
	// DeclaredID is the self-reported participant identifier column value,
	// raw as exported. May be empty or malformed.
	DeclaredID string
	// Values are the original row cells, parallel to SurveyTable.Columns.
	Values []string
}

// ColumnIndex returns a column name → index map for the table header.
func (t *SurveyTable) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}
	return idx
}
