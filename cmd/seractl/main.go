package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/judgmentnewsflow/internal/app"
	"github.com/Lllllllleong/judgmentnewsflow/internal/config"
	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
	"github.com/Lllllllleong/judgmentnewsflow/internal/services"
	"github.com/Lllllllleong/judgmentnewsflow/internal/store"
)

var (
	storeDriver string
	sqlitePath  string
	outPath     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "seractl",
		Short:         "Run the judgment newsletter stages from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&storeDriver, "store-driver", "", "summary store backend (overrides STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "write output to file instead of stdout")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(storeCmd())
	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(composeCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(runCmd())
	return rootCmd
}

// loadConfig reads the environment, applying the persistent flag overrides.
// Logs go to stderr so stdout stays machine readable.
func loadConfig() (*config.Config, error) {
	var args []string
	if storeDriver != "" {
		args = append(args, "--store-driver", storeDriver)
	}
	if sqlitePath != "" {
		args = append(args, "--sqlite-path", sqlitePath)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLoggerTo(os.Stderr))
	return cfg, nil
}

func buildApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.OpenStore(ctx, cfg)
}

func output() (io.Writer, func() error, error) {
	if outPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(v any) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func writeText(s string) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

// readJSON decodes the file at path, or stdin for "-".
func readJSON(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func fetchCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the day's judgments and print their text as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Fetcher.Process(cmd.Context(), &models.FetchJudgmentsRequest{Date: date})
			if err != nil {
				return err
			}
			if resp.ListingFailed {
				fmt.Fprintln(os.Stderr, "warning: listing page unavailable")
			}
			if resp.Skipped > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d documents skipped\n", resp.Skipped)
			}
			return writeJSON(resp.Documents)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "upload date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func summarizeCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize extracted documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []models.ExtractedDocument
			if err := readJSON(in, &docs); err != nil {
				return err
			}

			a, _, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Summarizer.Process(cmd.Context(), docs)
			if err != nil {
				return err
			}
			return writeJSON(records)
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "documents JSON file (- for stdin)")
	return cmd
}

func storeCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store summary records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []models.SummaryRecord
			if err := readJSON(in, &records); err != nil {
				return err
			}

			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := services.NewSummaryStore(s).Process(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "summaries JSON file (- for stdin)")
	return cmd
}

func articlesCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List stored articles for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := dates.Parse(date); err != nil {
				return err
			}
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			articles, err := s.FindByDate(cmd.Context(), date)
			if err != nil {
				return err
			}
			if articles == nil {
				articles = []models.StoredArticle{}
			}
			return writeJSON(articles)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "article date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func composeCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose the newsletter body for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			body, err := a.Composer.Process(cmd.Context(), &models.GenerateNewsletterRequest{Date: date})
			if err != nil {
				return err
			}
			return writeText(body.HTMLFragment)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "article date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

type scheduleFlags struct {
	listID int64
	time   string
	period string
	sender string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.listID, "list-id", 0, "recipient list id")
	cmd.Flags().StringVar(&f.time, "time", "", "delivery time of day, h:mm")
	cmd.Flags().StringVar(&f.period, "period", "", "AM or PM")
	cmd.Flags().StringVar(&f.sender, "sender", "", "sender display name")
}

func (f *scheduleFlags) request(html string, cfg *config.Config) *models.ScheduleRequest {
	req := &models.ScheduleRequest{
		HTMLFragment:       html,
		RecipientListID:    f.listID,
		ScheduledTimeOfDay: f.time,
		AMPMPeriod:         f.period,
		SenderName:         f.sender,
	}
	if req.RecipientListID == 0 {
		req.RecipientListID = cfg.DefaultListID
	}
	if req.ScheduledTimeOfDay == "" {
		req.ScheduledTimeOfDay = cfg.DefaultSendTime
	}
	if req.AMPMPeriod == "" {
		req.AMPMPeriod = cfg.DefaultSendPeriod
	}
	if req.SenderName == "" {
		req.SenderName = cfg.DefaultSenderName
	}
	return req
}

func scheduleCmd() *cobra.Command {
	var (
		htmlPath string
		flags    scheduleFlags
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a composed newsletter as an email campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := os.ReadFile(htmlPath)
			if err != nil {
				return err
			}

			a, cfg, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Scheduler == nil {
				return fmt.Errorf("scheduling is disabled: BREVO_API_KEY not set")
			}

			resp, err := a.Scheduler.Process(cmd.Context(), flags.request(string(html), cfg))
			if err != nil {
				return err
			}
			return writeJSON(resp)
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "newsletter body HTML file")
	_ = cmd.MarkFlagRequired("html")
	flags.register(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	var (
		date     string
		schedule bool
		flags    scheduleFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, summarize, store and compose one day's newsletter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cfg, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if schedule && a.Scheduler == nil {
				return fmt.Errorf("scheduling is disabled: BREVO_API_KEY not set")
			}

			fetched, err := a.Fetcher.Process(ctx, &models.FetchJudgmentsRequest{Date: date})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Fetched %d documents (%d skipped)\n", len(fetched.Documents), fetched.Skipped)

			records, err := a.Summarizer.Process(ctx, fetched.Documents)
			if err != nil {
				return err
			}
			stored, err := a.Store.Process(ctx, records)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, stored.Message)

			body, err := a.Composer.Process(ctx, &models.GenerateNewsletterRequest{Date: date})
			if err != nil {
				return err
			}
			if !schedule {
				return writeText(body.HTMLFragment)
			}

			resp, err := a.Scheduler.Process(ctx, flags.request(body.HTMLFragment, cfg))
			if err != nil {
				return err
			}
			return writeJSON(resp)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "upload date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "schedule the composed newsletter")
	_ = cmd.MarkFlagRequired("date")
	flags.register(cmd)
	return cmd
}
