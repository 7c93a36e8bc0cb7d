// Package scraper retrieves judgment PDFs published on a listing page for a given day.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/judgmentnewsflow/internal/config"
	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const downloadConcurrency = 4

// Result is the outcome of one fetch. Skipped counts matching links whose download failed;
// ListingFailed is set when the listing page itself answered with a non-200 status.
type Result struct {
	Documents     []models.FetchedDocument
	Skipped       int
	ListingFailed bool
}

// Scraper reads a single listing page and downloads the documents dated on a given day.
type Scraper struct {
	client    *http.Client
	source    config.SourceConfig
	base      *url.URL
	dateRe    *regexp.Regexp
	userAgent string
}

type link struct {
	url  string
	name string
}

// New validates the source settings and returns a Scraper using client for all requests.
func New(source config.SourceConfig, client *http.Client, userAgent string) (*Scraper, error) {
	if source.ListingURL == "" {
		return nil, errors.New("SOURCE_LISTING_URL must be set")
	}
	base, err := url.Parse(source.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %q: %w", source.ListingURL, err)
	}
	dateRe, err := regexp.Compile(source.DatePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid date pattern %q: %w", source.DatePattern, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{
		client:    client,
		source:    source,
		base:      base,
		dateRe:    dateRe,
		userAgent: userAgent,
	}, nil
}

// Fetch downloads every document uploaded on day into dir. The caller owns dir and its cleanup.
func (s *Scraper) Fetch(ctx context.Context, day time.Time, dir string) (*Result, error) {
	logCtx := slog.With("date", dates.Format(day), "listingUrl", s.source.ListingURL)

	links, ok, err := s.listLinks(ctx, day)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{ListingFailed: true}, nil
	}
	logCtx.Info("Found matching documents on listing page.", "count", len(links))

	fetched := make([]*models.FetchedDocument, len(links))
	var skipped atomic.Int32

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(downloadConcurrency)
	for i, l := range links {
		eg.Go(func() error {
			doc, err := s.download(gctx, l, dir, day)
			if err != nil {
				return err
			}
			if doc == nil {
				skipped.Add(1)
				return nil
			}
			fetched[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Skipped: int(skipped.Load())}
	for _, doc := range fetched {
		if doc != nil {
			result.Documents = append(result.Documents, *doc)
		}
	}
	if result.Skipped > 0 {
		logCtx.Warn("Some documents could not be downloaded.", "skipped", result.Skipped)
	}
	return result, nil
}

// listLinks returns the download links dated on day. ok is false when the listing page
// answered with a non-200 status.
func (s *Scraper) listLinks(ctx context.Context, day time.Time) ([]link, bool, error) {
	resp, err := s.get(ctx, s.source.ListingURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to retrieve listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Listing page returned non-200 status.", "url", s.source.ListingURL, "status", resp.StatusCode)
		return nil, false, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var links []link
	seen := make(map[string]bool)
	doc.Find(s.source.ContainerSelector).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !s.isDocumentLink(href) {
			return
		}

		token := s.dateRe.FindString(s.dateText(a))
		if token == "" {
			return
		}
		uploaded, err := time.Parse(s.source.DateLayout, token)
		if err != nil || !dates.SameDay(uploaded, day) {
			return
		}

		if s.source.ViewMarker != "" && s.source.DownloadMarker != "" {
			href = strings.Replace(href, s.source.ViewMarker, s.source.DownloadMarker, 1)
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := s.base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, link{url: abs, name: documentName(ref, s.source.DocumentSuffix, len(links))})
	})
	return links, true, nil
}

func (s *Scraper) isDocumentLink(href string) bool {
	if href == "" {
		return false
	}
	if s.source.DocumentSuffix != "" && strings.HasSuffix(strings.ToLower(href), strings.ToLower(s.source.DocumentSuffix)) {
		return true
	}
	return s.source.ViewMarker != "" && strings.Contains(href, s.source.ViewMarker)
}

// download returns nil without error when the document is unavailable.
func (s *Scraper) download(ctx context.Context, l link, dir string, day time.Time) (*models.FetchedDocument, error) {
	resp, err := s.get(ctx, l.url)
	if err != nil {
		slog.Warn("Skipping document, request failed.", "url", l.url, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Skipping document, non-200 status.", "url", l.url, "status", resp.StatusCode)
		return nil, nil
	}

	file, err := os.CreateTemp(dir, "judgment-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", l.name, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		slog.Warn("Skipping document, download interrupted.", "url", l.url, "error", err)
		_ = os.Remove(file.Name())
		return nil, nil
	}

	return &models.FetchedDocument{
		Name:       l.name,
		LocalPath:  file.Name(),
		SourceURL:  l.url,
		UploadDate: day,
	}, nil
}

func (s *Scraper) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return s.client.Do(req)
}

// dateText is the text searched for a's upload date: the row holding a, or its parent
// outside tables. With DateCellSelector set only the matching cells of that row count.
func (s *Scraper) dateText(a *goquery.Selection) string {
	scope := a.Closest("tr")
	if scope.Length() == 0 {
		scope = a.Parent()
	}
	if s.source.DateCellSelector != "" {
		return scope.Find(s.source.DateCellSelector).Text()
	}
	return scope.Text()
}

func documentName(ref *url.URL, suffix string, index int) string {
	name := path.Base(ref.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("judgment-%d", index+1)
	}
	if suffix != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
		name += suffix
	}
	return name
}
