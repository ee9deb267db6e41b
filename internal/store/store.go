// Package store persists linkage runs and their audit trail.
package store

import (
	"context"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

// Store is the run/audit log. The pipeline writes one LinkRun per invocation
// plus an AuditEvent for every non-fatal anomaly, so reviewers can trace why
// any row was skipped or any conversation dropped.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context) (*model.LinkRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.LinkRun, error)
	ListRuns(ctx context.Context, limit int) ([]model.LinkRun, error)
	RecordEvents(ctx context.Context, runID string, events []model.AuditEvent) error
	ListEvents(ctx context.Context, runID string) ([]model.AuditEvent, error)
	Close() error
}
