package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/store"
	"github.com/go-playground/validator/v10"
)

// SummaryStoreFunction validates and persists summaries.
type SummaryStoreFunction struct {
	store    store.Store
	validate *validator.Validate
}

func NewSummaryStore(s store.Store) *SummaryStoreFunction {
	return &SummaryStoreFunction{store: s, validate: validator.New()}
}

// Process inserts all records in one call; nothing is written if any record is invalid.
func (f *SummaryStoreFunction) Process(ctx context.Context, records []models.SummaryRecord) (*models.StoreSummariesResponse, error) {
	for i := range records {
		if err := f.validate.Struct(records[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRequest, i, err)
		}
	}

	inserted, err := f.store.InsertSummaries(ctx, records)
	if err != nil {
		slog.Error("Failed to store summaries", "count", len(records), "error", err)
		return nil, err
	}
	slog.Info("Stored summaries.", "inserted", inserted)
	return &models.StoreSummariesResponse{
		Message:  fmt.Sprintf("Inserted %d articles", inserted),
		Inserted: inserted,
	}, nil
}

// Articles returns what is stored for date, compared as an exact string.
func (f *SummaryStoreFunction) Articles(ctx context.Context, date string) ([]models.StoredArticle, error) {
	return f.store.FindByDate(ctx, date)
}
