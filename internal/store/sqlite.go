package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var articleColumns = []string{
	"id", "date", "case_number", "title", "parties", "background",
	"chronology", "key_points", "conclusion", "judgment_by",
}

// SQLiteStore is the single-file store used for local runs and the CLI.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertSummaries(ctx context.Context, records []models.SummaryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	insert := sq.Insert("articles").Columns(append(articleColumns, "created_at")...)
	createdAt := s.now().UnixNano()
	for i, r := range records {
		lists, err := encodeLists(r)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		// created_at is offset per row so reads keep insertion order.
		insert = insert.Values(uuid.NewString(), r.Date, r.CaseNumber, r.Title, r.Parties, r.Background,
			lists[0], lists[1], lists[2], lists[3], createdAt+int64(i))
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert summaries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit summaries: %w", err)
	}
	return len(records), nil
}

func (s *SQLiteStore) FindByDate(ctx context.Context, date string) ([]models.StoredArticle, error) {
	query, args, err := sq.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"date": date}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries for %s: %w", date, err)
	}
	defer rows.Close()

	var articles []models.StoredArticle
	for rows.Next() {
		var a models.StoredArticle
		var chronology, keyPoints, conclusion, judgmentBy string
		if err := rows.Scan(&a.ID, &a.Date, &a.CaseNumber, &a.Title, &a.Parties, &a.Background,
			&chronology, &keyPoints, &conclusion, &judgmentBy); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		for _, f := range []struct {
			raw  string
			dest *[]string
		}{
			{chronology, &a.Chronology},
			{keyPoints, &a.KeyPoints},
			{conclusion, &a.Conclusion},
			{judgmentBy, &a.JudgmentBy},
		} {
			if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
				return nil, fmt.Errorf("failed to decode summary %s: %w", a.ID, err)
			}
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}
	return articles, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeLists(r models.SummaryRecord) ([4]string, error) {
	var out [4]string
	for i, list := range [][]string{r.Chronology, r.KeyPoints, r.Conclusion, r.JudgmentBy} {
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}
