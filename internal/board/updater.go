package board

import (
	"context"

	"operaflow/internal/model"
)

// Updater persists board edits. The SQLite store and the HTTP client both
// implement it.
type Updater interface {
	UpdateDates(ctx context.Context, u model.DateUpdate) (model.Task, error)
	UpdateProgress(ctx context.Context, u model.ProgressUpdate) (model.Task, error)
	BatchUpdateDates(ctx context.Context, items []model.DateUpdate) ([]model.ItemResult, error)
}
