package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/gcp"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// ArticleFinder reads stored articles by their exact date string.
type ArticleFinder interface {
	FindByDate(ctx context.Context, date string) ([]models.StoredArticle, error)
}

// NewsletterComposerFunction builds the newsletter body for one date.
type NewsletterComposerFunction struct {
	articles  ArticleFinder
	generator TextGenerator
	archiver  Archiver
	siteHost  string
}

// promptArticle is what the model sees of each case.
type promptArticle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CaseNumber  string   `json:"case_number"`
	Parties     string   `json:"parties"`
	Background  string   `json:"background"`
	KeyPoints   []string `json:"key_points"`
	Conclusion  []string `json:"conclusion"`
	JudgmentBy  []string `json:"judgment_by"`
	ReadMoreURL string   `json:"read_more_url"`
}

// NewNewsletterComposer wires the compose stage. archiver may be nil.
func NewNewsletterComposer(articles ArticleFinder, generator TextGenerator, archiver Archiver, siteHost string) (*NewsletterComposerFunction, error) {
	if siteHost == "" {
		return nil, errors.New("PUBLIC_SITE_HOST must be set")
	}
	return &NewsletterComposerFunction{
		articles:  articles,
		generator: generator,
		archiver:  archiver,
		siteHost:  siteHost,
	}, nil
}

// ArticleURL is the public read-more link of a stored article.
func ArticleURL(host, date, id string) string {
	return fmt.Sprintf("https://%s/sera-ai/%s/%s", host, date, url.PathEscape(id))
}

func (f *NewsletterComposerFunction) Process(ctx context.Context, req *models.GenerateNewsletterRequest) (*models.NewsletterBody, error) {
	day, err := dates.Parse(req.Date)
	if err != nil {
		return nil, err
	}
	date := dates.Format(day)
	logCtx := slog.With("date", date)
	logCtx.Info("Starting newsletter composition.")

	articles, err := f.articles.FindByDate(ctx, date)
	if err != nil {
		logCtx.Error("Failed to read articles", "error", err)
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoArticles, date)
	}

	payload := make([]promptArticle, 0, len(articles))
	for _, a := range articles {
		payload = append(payload, promptArticle{
			ID:          a.ID,
			Title:       a.Title,
			CaseNumber:  a.CaseNumber,
			Parties:     a.Parties,
			Background:  a.Background,
			KeyPoints:   a.KeyPoints,
			Conclusion:  a.Conclusion,
			JudgmentBy:  a.JudgmentBy,
			ReadMoreURL: ArticleURL(f.siteHost, date, a.ID),
		})
	}
	payloadBytes, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal articles: %w", err)
	}

	raw, err := f.generator.Generate(ctx, fmt.Sprintf(gcp.NewsletterUserPrompt, f.siteHost, date, payloadBytes))
	if err != nil {
		logCtx.Error("Newsletter generation failed", "error", err)
		return nil, fmt.Errorf("failed to generate newsletter: %w", err)
	}

	fragment, err := extractBody(raw)
	if err != nil {
		logCtx.Error("Could not extract newsletter body", "error", err, "responseBody", raw)
		return nil, err
	}

	if f.archiver != nil {
		if uri, err := f.archiver.Archive(ctx, "newsletters/"+date+".html", "text/html; charset=utf-8", strings.NewReader(fragment)); err != nil {
			logCtx.Warn("Failed to archive newsletter", "error", err)
		} else {
			logCtx.Info("Archived newsletter.", "uri", uri)
		}
	}

	logCtx.Info("Newsletter composition complete.", "articles", len(articles), "chars", len(fragment))
	return &models.NewsletterBody{HTMLFragment: fragment}, nil
}

// extractBody keeps the inner HTML of <body> and drops any <title>.
func extractBody(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```html")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.TrimSpace(cleaned)))
	if err != nil {
		return "", fmt.Errorf("failed to parse newsletter HTML: %w", err)
	}
	doc.Find("title").Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render newsletter body: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errors.New("model returned an empty newsletter body")
	}
	return body, nil
}
