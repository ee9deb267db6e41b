// Package assemble turns the survey table and the arbitrated match set into
// the final unified dataset: duplicate resolution, status labels, metrics,
// and the CSV artifacts downstream viewers read.
package assemble

import (
	"fmt"
	"sort"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// AssignSessions maps each survey row to a data-collection session label.
// Distinct start dates, in ascending order, become "Session 1..N". Returns
// labels parallel to rows.
func AssignSessions(rows []model.SurveyResponse) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, r := range rows {
		d := r.StartTime.Format("2006-01-02")
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	session := make(map[string]string, len(dates))
	for i, d := range dates {
		session[d] = fmt.Sprintf("Session %d", i+1)
	}

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = session[r.StartTime.Format("2006-01-02")]
	}
	return labels
}
