// Package app builds the pipeline stages from a Config. It is shared by the
// HTTP server, the CLI and the Cloud Function.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/judgmentnewsflow/internal/api"
	"github.com/Lllllllleong/judgmentnewsflow/internal/brevo"
	"github.com/Lllllllleong/judgmentnewsflow/internal/config"
	"github.com/Lllllllleong/judgmentnewsflow/internal/gcp"
	"github.com/Lllllllleong/judgmentnewsflow/internal/pdftext"
	"github.com/Lllllllleong/judgmentnewsflow/internal/scraper"
	"github.com/Lllllllleong/judgmentnewsflow/internal/services"
	"github.com/Lllllllleong/judgmentnewsflow/internal/store"
)

// App holds every configured stage plus the clients that must be closed on exit.
// Scheduler and Pipeline are nil when their provider is not configured.
type App struct {
	Fetcher    *services.JudgmentFetcherFunction
	Summarizer *services.SummarizerFunction
	Store      *services.SummaryStoreFunction
	Composer   *services.NewsletterComposerFunction
	Scheduler  *services.NewsletterSchedulerFunction
	Pipeline   *services.PipelineFunction

	closers []func() error
}

// Build creates the clients named by cfg and wires the stages on top of them.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	if err := a.build(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	var judgmentArchive, newsletterArchive services.Archiver
	if cfg.JudgmentArchiveBucket != "" || cfg.NewsletterArchiveBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		if cfg.JudgmentArchiveBucket != "" {
			judgmentArchive = gcp.NewBucketArchiver(client, cfg.JudgmentArchiveBucket)
		}
		if cfg.NewsletterArchiveBucket != "" {
			newsletterArchive = gcp.NewBucketArchiver(client, cfg.NewsletterArchiveBucket)
		}
	}

	vertex, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.PrimaryModel, cfg.FallbackModel)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	a.closers = append(a.closers, vertex.Close)

	summaryStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, summaryStore.Close)

	source, err := scraper.New(cfg.Source, &http.Client{Timeout: cfg.HTTPTimeout}, cfg.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to configure judgment source: %w", err)
	}
	a.Fetcher = services.NewJudgmentFetcher(source, pdftext.NewExtractor(), judgmentArchive)

	a.Summarizer = services.NewSummarizer(generator("summarizer", vertex.SummarizerModel, vertex.SummarizerFallbackModel))
	a.Store = services.NewSummaryStore(summaryStore)

	a.Composer, err = services.NewNewsletterComposer(summaryStore,
		generator("composer", vertex.ComposerModel, vertex.ComposerFallbackModel),
		newsletterArchive, cfg.PublicSiteHost)
	if err != nil {
		return err
	}

	if cfg.BrevoAPIKey != "" {
		client, err := brevo.NewClient(cfg.BrevoBaseURL, cfg.BrevoAPIKey, &http.Client{Timeout: cfg.HTTPTimeout})
		if err != nil {
			return err
		}
		a.Scheduler, err = services.NewNewsletterScheduler(client, services.SchedulerConfig{
			SenderEmail:   cfg.BrevoSenderEmail,
			TemplateID:    cfg.BrevoTemplateID,
			TemplateName:  cfg.BrevoTemplateName,
			Placeholder:   cfg.TemplatePlaceholder,
			SubjectPrefix: cfg.SubjectPrefix,
			Location:      cfg.ScheduleLocation,
		})
		if err != nil {
			return err
		}
	}

	if cfg.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, trigger.Close)
		a.Pipeline = services.NewPipeline(trigger, services.PipelineDefaults{
			RecipientListID:    cfg.DefaultListID,
			ScheduledTimeOfDay: cfg.DefaultSendTime,
			AMPMPeriod:         cfg.DefaultSendPeriod,
			SenderName:         cfg.DefaultSenderName,
			Location:           cfg.ScheduleLocation,
		})
	}

	slog.Info("Application stages configured.",
		"store", cfg.StoreDriver,
		"scheduling", a.Scheduler != nil,
		"pipeline", a.Pipeline != nil,
	)
	return nil
}

// OpenStore opens the summary store selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.OpenSQLite(cfg.SQLitePath)
	case "firestore":
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		return &ownedFirestore{FirestoreStore: store.NewFirestoreStore(client, cfg.FirestoreCollection), client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// ownedFirestore closes the client it was built on.
type ownedFirestore struct {
	*store.FirestoreStore
	client *firestore.Client
}

func (s *ownedFirestore) Close() error {
	return s.client.Close()
}

func generator(stage string, primary, fallback *genai.GenerativeModel) services.TextGenerator {
	var fb services.TextGenerator
	if fallback != nil {
		fb = gcp.NewModelGenerator(fallback)
	}
	return services.WithFallback(stage, gcp.NewModelGenerator(primary), fb)
}

// Stages exposes the configured stages to the HTTP layer, leaving unconfigured ones nil.
func (a *App) Stages() api.Stages {
	stages := api.Stages{
		Fetcher:    a.Fetcher,
		Summarizer: a.Summarizer,
		Store:      a.Store,
		Composer:   a.Composer,
	}
	if a.Scheduler != nil {
		stages.Scheduler = a.Scheduler
	}
	if a.Pipeline != nil {
		stages.Pipeline = a.Pipeline
	}
	return stages
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
