package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/judgmentnewsflow/internal/gcp"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/go-playground/validator/v10"
)

// SummarizerFunction turns extracted judgment text into SummaryRecords.
type SummarizerFunction struct {
	generator TextGenerator
	validate  *validator.Validate
}

func NewSummarizer(generator TextGenerator) *SummarizerFunction {
	return &SummarizerFunction{generator: generator, validate: validator.New()}
}

// Process summarizes every document in order. The first failure aborts the batch.
func (f *SummarizerFunction) Process(ctx context.Context, docs []models.ExtractedDocument) ([]models.SummaryRecord, error) {
	records := make([]models.SummaryRecord, 0, len(docs))
	for _, doc := range docs {
		logCtx := slog.With("filename", doc.Filename)
		logCtx.Info("Starting summarization.", "chars", len(doc.TextContent))

		record, err := f.Summarize(ctx, doc.TextContent, doc.Date)
		if err != nil {
			logCtx.Error("Summarization failed", "error", err)
			return nil, &SummaryError{Filename: doc.Filename, Err: err}
		}
		records = append(records, *record)
	}
	return records, nil
}

// Summarize asks the model for a summary of text and parses the reply.
// A non-empty date is the upload date the document was fetched for and
// replaces whatever date the model read from the judgment.
func (f *SummarizerFunction) Summarize(ctx context.Context, text, date string) (*models.SummaryRecord, error) {
	raw, err := f.generator.Generate(ctx, fmt.Sprintf(gcp.SummarizerUserPrompt, text))
	if err != nil {
		return nil, err
	}
	record, repaired, err := parseSummary(raw, date, f.validate)
	if err != nil {
		return nil, err
	}
	if repaired {
		slog.Warn("Model response needed repair before parsing.", "caseNumber", record.CaseNumber)
	}
	return record, nil
}

// parseSummary decodes a model reply into a validated record. When the trimmed reply is not
// a bare object, the text between the first '{' and the last '}' is used and repaired is true.
func parseSummary(raw, date string, validate *validator.Validate) (*models.SummaryRecord, bool, error) {
	cleaned := strings.TrimSpace(raw)
	repaired := false
	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end == -1 || end < start {
			return nil, false, ErrNoJSONObject
		}
		cleaned = cleaned[start : end+1]
		repaired = true
	}

	var record models.SummaryRecord
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, repaired, &DecodeError{Raw: cleaned, Err: err}
	}
	if date != "" {
		record.Date = date
	}
	if err := validate.Struct(record); err != nil {
		return nil, repaired, fmt.Errorf("summary failed validation: %w", err)
	}
	return &record, repaired, nil
}
