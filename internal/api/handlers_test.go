package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/services"
)

type stubFetcher struct{ err error }

func (s *stubFetcher) Process(_ context.Context, req *models.FetchJudgmentsRequest) (*models.FetchJudgmentsResponse, error) {
	if _, err := dates.Parse(req.Date); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.FetchJudgmentsResponse{Documents: []models.ExtractedDocument{}, Skipped: 1}, nil
}

type stubSummarizer struct{ err error }

func (s *stubSummarizer) Process(_ context.Context, docs []models.ExtractedDocument) ([]models.SummaryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]models.SummaryRecord, 0, len(docs)), nil
}

type stubStore struct {
	articles map[string][]models.StoredArticle
	stored   []models.SummaryRecord
}

func (s *stubStore) Process(_ context.Context, records []models.SummaryRecord) (*models.StoreSummariesResponse, error) {
	s.stored = append(s.stored, records...)
	return &models.StoreSummariesResponse{Message: fmt.Sprintf("Inserted %d articles", len(records)), Inserted: len(records)}, nil
}

func (s *stubStore) Articles(_ context.Context, date string) ([]models.StoredArticle, error) {
	return s.articles[date], nil
}

type stubComposer struct{ articles *stubStore }

func (s *stubComposer) Process(ctx context.Context, req *models.GenerateNewsletterRequest) (*models.NewsletterBody, error) {
	if _, err := dates.Parse(req.Date); err != nil {
		return nil, err
	}
	if len(s.articles.articles[req.Date]) == 0 {
		return nil, fmt.Errorf("%w %s", services.ErrNoArticles, req.Date)
	}
	return &models.NewsletterBody{HTMLFragment: "<h1>News</h1>"}, nil
}

type stubScheduler struct{ err error }

func (s *stubScheduler) Process(_ context.Context, req *models.ScheduleRequest) (*models.ScheduleNewsletterResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScheduleNewsletterResponse{Message: "Campaign 9 scheduled", CampaignID: 9}, nil
}

func newTestServer(stages Stages) http.Handler {
	return NewServer(NewHandler(stages), "https://app.example.com")
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newTestServer(Stages{}), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["message"] != welcomeMessage {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestFetchJudgmentsStatuses(t *testing.T) {
	h := newTestServer(Stages{Fetcher: &stubFetcher{}})

	if w := do(t, h, http.MethodPost, "/judgments/fetch", `{"date":"16-07-2024"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/judgments/fetch", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing date, got %d", w.Code)
	}

	w := do(t, h, http.MethodPost, "/judgments/fetch", `{"date":"2024-07-16"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["skipped"] != float64(1) {
		t.Errorf("Expected skipped count in body, got %v", body["skipped"])
	}

	failing := newTestServer(Stages{Fetcher: &stubFetcher{err: &services.ExtractionError{Filename: "bad.pdf", Err: errors.New("corrupt")}}})
	w = do(t, failing, http.MethodPost, "/judgments/fetch", `{"date":"2024-07-16"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if decode(t, w)["filename"] != "bad.pdf" {
		t.Errorf("Expected offending filename in body, got %s", w.Body.String())
	}
}

func TestGenerateSummariesFailureCarriesDetail(t *testing.T) {
	err := &services.SummaryError{Filename: "a.pdf", Err: &services.DecodeError{Raw: `{"date": }`, Err: errors.New("invalid character")}}
	h := newTestServer(Stages{Summarizer: &stubSummarizer{err: err}})

	w := do(t, h, http.MethodPost, "/summaries/generate", `[{"filename":"a.pdf","textContent":"x"}]`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	body := decode(t, w)
	if body["filename"] != "a.pdf" || body["detail"] != `{"date": }` {
		t.Errorf("Unexpected error body %v", body)
	}
}

func TestGenerateSummariesEmpty(t *testing.T) {
	h := newTestServer(Stages{Summarizer: &stubSummarizer{}})
	w := do(t, h, http.MethodPost, "/summaries/generate", `[]`)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected 200 with [], got %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodPost, "/summaries/generate", `[{"textContent":"x"}]`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing filename, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/summaries/generate", `[{"filename":"a.pdf","date":"16-07-2024"}]`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed document date, got %d", w.Code)
	}
}

func TestStoreAndListArticles(t *testing.T) {
	store := &stubStore{articles: map[string][]models.StoredArticle{
		"2024-07-16": {{ID: "abc", SummaryRecord: models.SummaryRecord{Date: "2024-07-16", Title: "Rao v. State"}}},
	}}
	h := newTestServer(Stages{Store: store})

	w := do(t, h, http.MethodPost, "/summaries", `[{"date":"2024-07-16","title":"A"},{"date":"2024-07-16","title":"B"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if decode(t, w)["message"] != "Inserted 2 articles" {
		t.Errorf("Unexpected body %s", w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/articles?date=2024-07-16", "")
	var articles []models.StoredArticle
	if err := json.Unmarshal(w.Body.Bytes(), &articles); err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 || articles[0].ID != "abc" || articles[0].Title != "Rao v. State" {
		t.Errorf("Unexpected articles %+v", articles)
	}

	w = do(t, h, http.MethodGet, "/articles?date=2024-07-01", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/articles?date=July", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestGenerateNewsletterStatuses(t *testing.T) {
	store := &stubStore{articles: map[string][]models.StoredArticle{"2024-07-15": {{ID: "x"}}}}
	h := newTestServer(Stages{Composer: &stubComposer{articles: store}})

	if w := do(t, h, http.MethodPost, "/newsletter/generate", `{"date":"2024-07-16"}`); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without articles, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/newsletter/generate", `{"date":"2024-7-15"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad date, got %d", w.Code)
	}
	w := do(t, h, http.MethodPost, "/newsletter/generate", `{"date":"2024-07-15"}`)
	if w.Code != http.StatusOK || decode(t, w)["htmlFragment"] != "<h1>News</h1>" {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestScheduleNewsletter(t *testing.T) {
	h := newTestServer(Stages{Scheduler: &stubScheduler{}})
	valid := `{"htmlFragment":"<h1>x</h1>","recipientListId":5,"scheduledTimeOfDay":"09:30","amPmPeriod":"AM","senderName":"Sera AI"}`

	w := do(t, h, http.MethodPost, "/newsletter/schedule", valid)
	if w.Code != http.StatusOK || decode(t, w)["campaignId"] != float64(9) {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodPost, "/newsletter/schedule", `{"htmlFragment":"<h1>x</h1>"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for incomplete body, got %d", w.Code)
	}

	failing := newTestServer(Stages{Scheduler: &stubScheduler{err: services.ErrTemplateNotFound}})
	if w := do(t, failing, http.MethodPost, "/newsletter/schedule", valid); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for provider failure, got %d", w.Code)
	}
}

func TestUnconfiguredStagesAreNotRouted(t *testing.T) {
	h := newTestServer(Stages{})
	if w := do(t, h, http.MethodPost, "/newsletter/schedule", `{}`); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unconfigured stage, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(Stages{})

	req := httptest.NewRequest(http.MethodOptions, "/newsletter/generate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" || w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("Unexpected CORS headers %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Expected no CORS header for foreign origin, got %s", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

type stubPipeline struct {
	got *models.PipelineTriggerRequest
}

func (s *stubPipeline) Process(_ context.Context, req *models.PipelineTriggerRequest) (*models.PipelineTriggerResponse, error) {
	s.got = req
	if req.Date == "bad" {
		return nil, dates.ErrInvalidDate
	}
	return &models.PipelineTriggerResponse{Message: "Pipeline started", Execution: "executions/1"}, nil
}

func TestTriggerPipeline(t *testing.T) {
	p := &stubPipeline{}
	h := newTestServer(Stages{Pipeline: p})

	w := do(t, h, http.MethodPost, "/pipeline/trigger", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 for empty body, got %d", w.Code)
	}
	if p.got == nil || p.got.Date != "" {
		t.Errorf("Expected empty request to reach the pipeline, got %+v", p.got)
	}

	w = do(t, h, http.MethodPost, "/pipeline/trigger", `{"date":"2024-07-16","recipientListId":3}`)
	if w.Code != http.StatusAccepted || decode(t, w)["execution"] != "executions/1" {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
	if p.got.RecipientListID != 3 {
		t.Errorf("Expected list id 3, got %d", p.got.RecipientListID)
	}

	if w := do(t, h, http.MethodPost, "/pipeline/trigger", `{"date":"bad"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/pipeline/trigger", `{"date":`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", w.Code)
	}
}
