package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"samtimesheet/internal/components/chrono"
	"samtimesheet/internal/components/notify"
	"samtimesheet/internal/components/store"
	"samtimesheet/internal/components/telemetry"
	"samtimesheet/internal/scrapers/sam"
	"samtimesheet/pkg/serviceutil"

	"github.com/spf13/cobra"
)

const key = "samtimesheet.ctx"

// Value is everything a command needs, it is built once before any command
// runs.
type Value struct {
	Config  Config
	Storage store.Storage
	Scraper *sam.Scraper
	Time    chrono.TimeAPI

	telemetry telemetry.Telemetry
}

func set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}

var (
	configPath string
	verbose    bool
	dumpDir    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "samtimesheet.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every request.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Write every request and response to this directory, cookies and passwords are redacted.")
}

var rootCmd = &cobra.Command{
	Use:           "samtimesheet",
	Short:         "samtimesheet retrieves your scheduled shifts from the SAM timesheet portal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		value, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		cmd.SetContext(set(cmd.Context(), value))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown(cmd.Context(), get(cmd.Context()))
	},
}

func setup(ctx context.Context) (*Value, error) {
	cfg, err := loadConfig(configPath, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	storage, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store, err)
	}

	otelTel, err := telemetry.Setup(ctx, "samtimesheet", cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	otelApi, err := telemetry.NewOtelAPI("samtimesheet")
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	opts := sam.Options{
		BaseUrl:          cfg.BaseUrl,
		Username:         cfg.Username,
		Password:         cfg.Password,
		CacheExpiry:      cfg.cacheExpiry(),
		TokenTTL:         cfg.tokenTTL(),
		CloudflareBypass: cfg.CloudflareBypass,
	}
	if cfg.Notify.Enabled() {
		opts.Notifier = notify.NewMailer(cfg.Notify)
	}
	if dumpDir != "" {
		output, err := telemetry.NewDirOutput(dumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump directory: %w", err)
		}
		opts.Dump = output
	}

	scraper := sam.NewScraper(
		storage,
		clock,
		telemetry.Multi{telemetry.SlogAPI{}, otelApi},
		opts,
	)

	return &Value{
		Config:    cfg,
		Storage:   storage,
		Scraper:   scraper,
		Time:      clock,
		telemetry: otelTel,
	}, nil
}

func teardown(ctx context.Context, value *Value) {
	if closer, ok := value.Storage.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			slog.Warn("failed to close store", "err", err)
		}
	}
	err := value.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal(fmt.Sprintf("%s failed", rootCmd.Name()), err)
	}
}
