// Package store persists summary records and reads them back by date.
package store

import (
	"context"

	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

// Store is append-only: there is no update or delete path.
type Store interface {
	// InsertSummaries writes all records or none and returns how many were written.
	InsertSummaries(ctx context.Context, records []models.SummaryRecord) (int, error)
	// FindByDate returns the articles whose date field equals date exactly as a string.
	FindByDate(ctx context.Context, date string) ([]models.StoredArticle, error)
	Close() error
}
