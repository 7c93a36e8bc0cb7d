package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/services"
	"github.com/gin-gonic/gin"
)

const welcomeMessage = "Welcome to the SeraAI Agent API"

type JudgmentFetcher interface {
	Process(ctx context.Context, req *models.FetchJudgmentsRequest) (*models.FetchJudgmentsResponse, error)
}

type Summarizer interface {
	Process(ctx context.Context, docs []models.ExtractedDocument) ([]models.SummaryRecord, error)
}

type SummaryStore interface {
	Process(ctx context.Context, records []models.SummaryRecord) (*models.StoreSummariesResponse, error)
	Articles(ctx context.Context, date string) ([]models.StoredArticle, error)
}

type NewsletterComposer interface {
	Process(ctx context.Context, req *models.GenerateNewsletterRequest) (*models.NewsletterBody, error)
}

type NewsletterScheduler interface {
	Process(ctx context.Context, req *models.ScheduleRequest) (*models.ScheduleNewsletterResponse, error)
}

type PipelineTrigger interface {
	Process(ctx context.Context, req *models.PipelineTriggerRequest) (*models.PipelineTriggerResponse, error)
}

// Stages lists the pipeline stages served over HTTP. A nil stage is not routed.
type Stages struct {
	Fetcher    JudgmentFetcher
	Summarizer Summarizer
	Store      SummaryStore
	Composer   NewsletterComposer
	Scheduler  NewsletterScheduler
	Pipeline   PipelineTrigger
}

// Handler contains the HTTP handlers.
type Handler struct {
	fetcher    JudgmentFetcher
	summarizer Summarizer
	store      SummaryStore
	composer   NewsletterComposer
	scheduler  NewsletterScheduler
	pipeline   PipelineTrigger
}

func NewHandler(stages Stages) *Handler {
	return &Handler{
		fetcher:    stages.Fetcher,
		summarizer: stages.Summarizer,
		store:      stages.Store,
		composer:   stages.Composer,
		scheduler:  stages.Scheduler,
		pipeline:   stages.Pipeline,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

func (h *Handler) FetchJudgments(c *gin.Context) {
	var req models.FetchJudgmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.fetcher.Process(c.Request.Context(), &req)
	if err != nil {
		fail(c, "Failed to fetch judgments", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GenerateSummaries(c *gin.Context) {
	var docs []models.ExtractedDocument
	if err := c.ShouldBindJSON(&docs); err != nil {
		badRequest(c, err)
		return
	}
	records, err := h.summarizer.Process(c.Request.Context(), docs)
	if err != nil {
		fail(c, "Failed to generate summaries", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) StoreSummaries(c *gin.Context) {
	var records []models.SummaryRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.store.Process(c.Request.Context(), records)
	if err != nil {
		fail(c, "Failed to store summaries", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListArticles(c *gin.Context) {
	date := c.Query("date")
	if _, err := dates.Parse(date); err != nil {
		badRequest(c, err)
		return
	}
	articles, err := h.store.Articles(c.Request.Context(), date)
	if err != nil {
		fail(c, "Failed to read articles", err)
		return
	}
	if articles == nil {
		articles = []models.StoredArticle{}
	}
	c.JSON(http.StatusOK, articles)
}

func (h *Handler) GenerateNewsletter(c *gin.Context) {
	var req models.GenerateNewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	body, err := h.composer.Process(c.Request.Context(), &req)
	if err != nil {
		fail(c, "Failed to generate newsletter", err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) ScheduleNewsletter(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.scheduler.Process(c.Request.Context(), &req)
	if err != nil {
		fail(c, "Failed to schedule newsletter", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) TriggerPipeline(c *gin.Context) {
	var req models.PipelineTriggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	resp, err := h.pipeline.Process(c.Request.Context(), &req)
	if err != nil {
		fail(c, "Failed to trigger pipeline", err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "detail": err.Error()})
}

// fail maps a stage error onto a status code and a body carrying the underlying detail.
func fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	body := gin.H{"error": message, "detail": err.Error()}

	var decodeErr *services.DecodeError
	if errors.As(err, &decodeErr) {
		body["detail"] = decodeErr.Raw
	}
	var summaryErr *services.SummaryError
	if errors.As(err, &summaryErr) {
		body["filename"] = summaryErr.Filename
	}
	var extractErr *services.ExtractionError
	if errors.As(err, &extractErr) {
		body["filename"] = extractErr.Filename
	}

	if status >= http.StatusInternalServerError {
		slog.Error(message, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dates.ErrInvalidDate), errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoArticles):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
