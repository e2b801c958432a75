// Package store persists completed analyses. Two drivers share the
// interface: SQLite for single-binary deployments and Postgres for shared
// ones.
package store

import (
	"context"

	"github.com/sells-group/solar-scout/internal/model"
)

// ListFilter narrows ListAnalyses.
type ListFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store is the persistence interface for completed analyses. The engine
// never writes here itself; callers decide what to keep.
type Store interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter ListFilter) ([]model.Analysis, error)

	Migrate(ctx context.Context) error
	Close() error
}
