package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"google.golang.org/api/iterator"
)

// FirestoreStore keeps one document per summary in a single collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) InsertSummaries(ctx context.Context, records []models.SummaryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	coll := s.client.Collection(s.collection)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i := range records {
			if err := tx.Create(coll.NewDoc(), records[i]); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert summaries: %w", err)
	}
	return len(records), nil
}

func (s *FirestoreStore) FindByDate(ctx context.Context, date string) ([]models.StoredArticle, error) {
	it := s.client.Collection(s.collection).Where("date", "==", date).Documents(ctx)
	defer it.Stop()

	var articles []models.StoredArticle
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query summaries for %s: %w", date, err)
		}
		var record models.SummaryRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("failed to decode summary %s: %w", snap.Ref.ID, err)
		}
		articles = append(articles, models.StoredArticle{ID: snap.Ref.ID, SummaryRecord: record})
	}
	return articles, nil
}

// Close is a no-op; the Firestore client is owned by the caller.
func (s *FirestoreStore) Close() error {
	return nil
}
