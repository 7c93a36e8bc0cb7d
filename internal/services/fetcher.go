package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/scraper"
)

// DocumentSource downloads the judgments uploaded on day into dir.
type DocumentSource interface {
	Fetch(ctx context.Context, day time.Time, dir string) (*scraper.Result, error)
}

// TextExtractor returns the plain text of a local PDF.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// JudgmentFetcherFunction fetches the judgments for a date and returns their text.
type JudgmentFetcherFunction struct {
	source    DocumentSource
	extractor TextExtractor
	archiver  Archiver
}

// NewJudgmentFetcher wires the fetch stage. archiver may be nil.
func NewJudgmentFetcher(source DocumentSource, extractor TextExtractor, archiver Archiver) *JudgmentFetcherFunction {
	return &JudgmentFetcherFunction{source: source, extractor: extractor, archiver: archiver}
}

// Process downloads every judgment for req.Date into a temp dir that is removed on return,
// and extracts the text of each.
func (f *JudgmentFetcherFunction) Process(ctx context.Context, req *models.FetchJudgmentsRequest) (*models.FetchJudgmentsResponse, error) {
	day, err := dates.Parse(req.Date)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("date", req.Date)
	logCtx.Info("Starting judgment fetch.")

	tempDir, err := os.MkdirTemp("", "judgments-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	result, err := f.source.Fetch(ctx, day, tempDir)
	if err != nil {
		logCtx.Error("Failed to fetch judgments", "error", err)
		return nil, fmt.Errorf("failed to fetch judgments: %w", err)
	}

	resp := &models.FetchJudgmentsResponse{
		Documents:     make([]models.ExtractedDocument, 0, len(result.Documents)),
		Skipped:       result.Skipped,
		ListingFailed: result.ListingFailed,
	}
	for _, doc := range result.Documents {
		text, err := f.extractor.Extract(doc.LocalPath)
		if err != nil {
			logCtx.Error("Failed to extract text", "filename", doc.Name, "error", err)
			return nil, &ExtractionError{Filename: doc.Name, Err: err}
		}
		f.archive(ctx, logCtx, req.Date, doc)
		resp.Documents = append(resp.Documents, models.ExtractedDocument{Filename: doc.Name, TextContent: text, Date: req.Date})
	}

	logCtx.Info("Judgment fetch complete.", "documents", len(resp.Documents), "skipped", resp.Skipped, "listingFailed", resp.ListingFailed)
	return resp, nil
}

// archive is best effort; a failed copy does not fail the fetch.
func (f *JudgmentFetcherFunction) archive(ctx context.Context, logCtx *slog.Logger, date string, doc models.FetchedDocument) {
	if f.archiver == nil {
		return
	}
	file, err := os.Open(doc.LocalPath)
	if err != nil {
		logCtx.Warn("Could not open judgment for archiving", "filename", doc.Name, "error", err)
		return
	}
	defer file.Close()

	uri, err := f.archiver.Archive(ctx, date+"/"+doc.Name, "application/pdf", file)
	if err != nil {
		logCtx.Warn("Failed to archive judgment", "filename", doc.Name, "error", err)
		return
	}
	logCtx.Debug("Archived judgment.", "filename", doc.Name, "uri", uri)
}
