package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

func sampleRecord(date, title string) models.SummaryRecord {
	return models.SummaryRecord{
		Date:       date,
		CaseNumber: "CRL.A. 12/2024",
		Title:      title,
		Parties:    "State vs. Rao",
		Background: "Appeal against conviction.",
		Chronology: []string{"2019: FIR registered", "2022: conviction"},
		KeyPoints:  []string{"Benefit of doubt"},
		Conclusion: []string{"Appeal allowed"},
		JudgmentBy: []string{"Justice A", "Justice B"},
	}
}

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteInsertAndFind(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	n, err := s.InsertSummaries(ctx, []models.SummaryRecord{
		sampleRecord("2024-07-16", "First"),
		sampleRecord("2024-07-16", "Second"),
		sampleRecord("2024-07-15", "Other day"),
	})
	if err != nil {
		t.Fatalf("InsertSummaries: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 inserted, got %d", n)
	}

	articles, err := s.FindByDate(ctx, "2024-07-16")
	if err != nil {
		t.Fatalf("FindByDate: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].Title != "First" || articles[1].Title != "Second" {
		t.Errorf("Expected insertion order, got %s, %s", articles[0].Title, articles[1].Title)
	}
	if articles[0].ID == "" || articles[0].ID == articles[1].ID {
		t.Errorf("Expected distinct ids, got %q and %q", articles[0].ID, articles[1].ID)
	}
	if len(articles[0].JudgmentBy) != 2 || articles[0].JudgmentBy[1] != "Justice B" {
		t.Errorf("Expected judges round trip, got %v", articles[0].JudgmentBy)
	}
	if len(articles[0].Chronology) != 2 {
		t.Errorf("Expected chronology round trip, got %v", articles[0].Chronology)
	}
}

func TestSQLiteFindByDateIsStringEquality(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertSummaries(ctx, []models.SummaryRecord{
		sampleRecord("2024-07-16", "Canonical"),
		sampleRecord("16-07-2024", "Other format"),
		sampleRecord("2024-7-16", "Unpadded"),
	}); err != nil {
		t.Fatal(err)
	}

	articles, err := s.FindByDate(ctx, "2024-07-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 || articles[0].Title != "Canonical" {
		t.Errorf("Expected only the canonical record, got %+v", articles)
	}
}

func TestSQLiteEmptyInsertAndMiss(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	n, err := s.InsertSummaries(ctx, nil)
	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil), got (%d, %v)", n, err)
	}

	articles, err := s.FindByDate(ctx, "2024-07-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(articles))
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	if _, err := s.InsertSummaries(context.Background(), []models.SummaryRecord{sampleRecord("2024-07-16", "Persisted")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	articles, err := reopened.FindByDate(context.Background(), "2024-07-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Errorf("Expected 1 article after reopen, got %d", len(articles))
	}
}
