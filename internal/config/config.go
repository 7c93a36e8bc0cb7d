package config

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes the judgment listing page and how links on it are recognised.
type SourceConfig struct {
	ListingURL        string `yaml:"listing_url"`
	ContainerSelector string `yaml:"container_selector"`
	DocumentSuffix    string `yaml:"document_suffix"`
	ViewMarker        string `yaml:"view_marker"`
	DownloadMarker    string `yaml:"download_marker"`
	DatePattern       string `yaml:"date_pattern"`
	DateLayout        string `yaml:"date_layout"`
	// DateCellSelector picks the upload-date cell within a link's row when the
	// row carries more than one date. Empty searches the whole row.
	DateCellSelector string `yaml:"date_cell_selector"`
}

// Config is built once at process start and handed to every component.
type Config struct {
	AppURL    string
	Port      string
	LogLevel  string
	LogFormat string

	ProjectID      string
	VertexAIRegion string
	PrimaryModel   string
	FallbackModel  string

	StoreDriver         string
	FirestoreDatabase   string
	FirestoreCollection string
	SQLitePath          string

	Source      SourceConfig
	HTTPTimeout time.Duration
	UserAgent   string

	BrevoAPIKey         string
	BrevoBaseURL        string
	BrevoSenderEmail    string
	BrevoTemplateID     int64
	BrevoTemplateName   string
	TemplatePlaceholder string
	SubjectPrefix       string
	ScheduleUTCOffset   string
	ScheduleLocation    *time.Location

	PublicSiteHost          string
	JudgmentArchiveBucket   string
	NewsletterArchiveBucket string

	WorkflowID       string
	WorkflowLocation string

	DefaultListID     int64
	DefaultSendTime   string
	DefaultSendPeriod string
	DefaultSenderName string
}

type rawConfig struct {
	AppURL    string `long:"app-url" env:"APP_URL" default:"http://localhost:3000" description:"Origin allowed to make cross-origin requests"`
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"json" choice:"json" choice:"text" description:"Log output format"`

	ProjectID      string `long:"project-id" env:"PROJECT_ID" description:"Google Cloud project ID"`
	VertexAIRegion string `long:"vertex-region" env:"VERTEX_AI_REGION" default:"us-central1" description:"Vertex AI region"`
	PrimaryModel   string `long:"primary-model" env:"PRIMARY_MODEL" default:"gemini-1.5-pro" description:"Primary generation model"`
	FallbackModel  string `long:"fallback-model" env:"FALLBACK_MODEL" default:"gemini-1.5-flash" description:"Model retried once when the primary fails (empty disables)"`

	StoreDriver         string `long:"store-driver" env:"STORE_DRIVER" default:"firestore" choice:"firestore" choice:"sqlite" description:"Summary store backend"`
	FirestoreDatabase   string `long:"firestore-database" env:"FIRESTORE_DATABASE" description:"Firestore database id (empty for the default database)"`
	FirestoreCollection string `long:"firestore-collection" env:"FIRESTORE_COLLECTION" default:"judgment_summaries" description:"Firestore collection for summaries"`
	SQLitePath          string `long:"sqlite-path" env:"SQLITE_PATH" default:"newsletter.db" description:"SQLite database file"`

	SourceListingURL string        `long:"source-listing-url" env:"SOURCE_LISTING_URL" description:"Judgment listing page"`
	SourceDateCell   string        `long:"source-date-cell" env:"SOURCE_DATE_CELL" description:"CSS selector of the upload-date cell within a listing row"`
	SourceConfigPath string        `long:"source-config" env:"SOURCE_CONFIG" description:"YAML file overriding the scrape source settings"`
	HTTPTimeout      time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"60s" description:"Timeout for scraping requests"`
	UserAgent        string        `long:"user-agent" env:"USER_AGENT" default:"judgment-newsletter/1.0" description:"User agent for scraping requests"`

	BrevoAPIKey         string `long:"brevo-api-key" env:"BREVO_API_KEY" description:"Email provider API key"`
	BrevoBaseURL        string `long:"brevo-base-url" env:"BREVO_BASE_URL" default:"https://api.brevo.com/v3" description:"Email provider API base URL"`
	BrevoSenderEmail    string `long:"brevo-sender-email" env:"BREVO_SENDER_EMAIL" description:"Campaign sender e-mail"`
	BrevoTemplateID     int64  `long:"brevo-template-id" env:"BREVO_TEMPLATE_ID" default:"0" description:"Email template id"`
	BrevoTemplateName   string `long:"brevo-template-name" env:"BREVO_TEMPLATE_NAME" description:"Email template name, used when no id is set"`
	TemplatePlaceholder string `long:"template-placeholder" env:"TEMPLATE_PLACEHOLDER" default:"<p>[[NEWSLETTER_CONTENT]]</p>" description:"Template paragraph replaced by the newsletter body"`
	SubjectPrefix       string `long:"subject-prefix" env:"SUBJECT_PREFIX" default:"Legal Judgments Digest" description:"Campaign subject prefix"`
	ScheduleUTCOffset   string `long:"schedule-utc-offset" env:"SCHEDULE_UTC_OFFSET" default:"+05:30" description:"UTC offset of scheduled delivery times"`

	PublicSiteHost          string `long:"public-site-host" env:"PUBLIC_SITE_HOST" description:"Host used in read-more links"`
	JudgmentArchiveBucket   string `long:"judgment-archive-bucket" env:"JUDGMENT_ARCHIVE_BUCKET" description:"GCS bucket for downloaded judgments (optional)"`
	NewsletterArchiveBucket string `long:"newsletter-archive-bucket" env:"NEWSLETTER_ARCHIVE_BUCKET" description:"GCS bucket for composed newsletters (optional)"`

	WorkflowID       string `long:"workflow-id" env:"WORKFLOW_ID" description:"Cloud Workflows pipeline id (empty disables triggering)"`
	WorkflowLocation string `long:"workflow-location" env:"WORKFLOW_LOCATION" default:"us-central1" description:"Cloud Workflows location"`

	DefaultListID     int64  `long:"default-list-id" env:"DEFAULT_LIST_ID" default:"0" description:"Recipient list used by triggered pipeline runs"`
	DefaultSendTime   string `long:"default-send-time" env:"DEFAULT_SEND_TIME" default:"09:30" description:"Delivery time used by triggered pipeline runs"`
	DefaultSendPeriod string `long:"default-send-period" env:"DEFAULT_SEND_PERIOD" default:"AM" description:"AM/PM period used by triggered pipeline runs"`
	DefaultSenderName string `long:"default-sender-name" env:"DEFAULT_SENDER_NAME" default:"Sera AI" description:"Sender name used by triggered pipeline runs"`
}

// DefaultSource returns the listing settings used when neither flags nor YAML override them.
func DefaultSource() SourceConfig {
	return SourceConfig{
		ContainerSelector: "table",
		DocumentSuffix:    ".pdf",
		ViewMarker:        "/view/",
		DownloadMarker:    "/download/",
		DatePattern:       `\d{2}-\d{2}-\d{4}`,
		DateLayout:        "02-01-2006",
	}
}

// Load parses args and the environment. It returns (nil, nil) when help was requested.
func Load(args []string) (*Config, error) {
	var raw rawConfig

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	source := DefaultSource()
	source.ListingURL = raw.SourceListingURL
	source.DateCellSelector = raw.SourceDateCell
	if raw.SourceConfigPath != "" {
		if err := mergeSourceFile(&source, raw.SourceConfigPath); err != nil {
			return nil, err
		}
	}

	loc, err := parseOffset(raw.ScheduleUTCOffset)
	if err != nil {
		return nil, err
	}

	return &Config{
		AppURL:                  raw.AppURL,
		Port:                    raw.Port,
		LogLevel:                raw.LogLevel,
		LogFormat:               raw.LogFormat,
		ProjectID:               raw.ProjectID,
		VertexAIRegion:          raw.VertexAIRegion,
		PrimaryModel:            raw.PrimaryModel,
		FallbackModel:           raw.FallbackModel,
		StoreDriver:             raw.StoreDriver,
		FirestoreDatabase:       raw.FirestoreDatabase,
		FirestoreCollection:     raw.FirestoreCollection,
		SQLitePath:              raw.SQLitePath,
		Source:                  source,
		HTTPTimeout:             raw.HTTPTimeout,
		UserAgent:               raw.UserAgent,
		BrevoAPIKey:             raw.BrevoAPIKey,
		BrevoBaseURL:            strings.TrimRight(raw.BrevoBaseURL, "/"),
		BrevoSenderEmail:        raw.BrevoSenderEmail,
		BrevoTemplateID:         raw.BrevoTemplateID,
		BrevoTemplateName:       raw.BrevoTemplateName,
		TemplatePlaceholder:     raw.TemplatePlaceholder,
		SubjectPrefix:           raw.SubjectPrefix,
		ScheduleUTCOffset:       raw.ScheduleUTCOffset,
		ScheduleLocation:        loc,
		PublicSiteHost:          raw.PublicSiteHost,
		JudgmentArchiveBucket:   raw.JudgmentArchiveBucket,
		NewsletterArchiveBucket: raw.NewsletterArchiveBucket,
		WorkflowID:              raw.WorkflowID,
		WorkflowLocation:        raw.WorkflowLocation,
		DefaultListID:           raw.DefaultListID,
		DefaultSendTime:         raw.DefaultSendTime,
		DefaultSendPeriod:       raw.DefaultSendPeriod,
		DefaultSenderName:       raw.DefaultSenderName,
	}, nil
}

// mergeSourceFile overlays the non-empty values of a YAML source file onto source.
func mergeSourceFile(source *SourceConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source config %s: %w", path, err)
	}
	var fromFile SourceConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("failed to parse source config %s: %w", path, err)
	}

	source.ListingURL = cmp.Or(fromFile.ListingURL, source.ListingURL)
	source.ContainerSelector = cmp.Or(fromFile.ContainerSelector, source.ContainerSelector)
	source.DocumentSuffix = cmp.Or(fromFile.DocumentSuffix, source.DocumentSuffix)
	source.ViewMarker = cmp.Or(fromFile.ViewMarker, source.ViewMarker)
	source.DownloadMarker = cmp.Or(fromFile.DownloadMarker, source.DownloadMarker)
	source.DatePattern = cmp.Or(fromFile.DatePattern, source.DatePattern)
	source.DateLayout = cmp.Or(fromFile.DateLayout, source.DateLayout)
	source.DateCellSelector = cmp.Or(fromFile.DateCellSelector, source.DateCellSelector)
	return nil
}

// parseOffset turns "+05:30" style offsets into a fixed zone.
func parseOffset(offset string) (*time.Location, error) {
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_UTC_OFFSET %q: %w", offset, err)
	}
	_, seconds := t.Zone()
	return time.FixedZone("UTC"+offset, seconds), nil
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process-wide slog logger described by the config.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
