package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aluiziolira/go-headline-log/config"
	"github.com/aluiziolira/go-headline-log/models"
	"github.com/aluiziolira/go-headline-log/pipeline"
	"github.com/aluiziolira/go-headline-log/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	root := newRootCommand(cfg)
	root.AddCommand(newExportCommand(cfg))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "headlinelog",
		Short:         "Scrape one headline and append it to a date-keyed history",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.TargetURL, "url", cfg.TargetURL, "page to scrape")
	flags.StringVar(&cfg.Preset, "preset", cfg.Preset, "built-in rule set: "+strings.Join(config.PresetNames(), ", "))
	flags.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "JSON5 rules file (a sibling .local file overrides it)")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "fallback User-Agent when no header is configured")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retries for transient fetch failures")
	flags.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "initial retry backoff")
	flags.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "maximum retry backoff")
	flags.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "timezone that defines the calendar day")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this textfile")
	flags.StringVar(&cfg.PushgatewayURL, "pushgateway", cfg.PushgatewayURL, "push metrics to this Pushgateway")
	addStorageFlags(cmd, cfg)
	return cmd
}

func addStorageFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.DataFile, "data", cfg.DataFile, "observation log file")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotating diagnostic log (empty disables)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging")
}

func runScrape(cmd *cobra.Command, cfg *config.Config) error {
	if err := resolveRules(cmd, cfg); err != nil {
		return err
	}

	logger, closer := newLogger(cfg)
	defer closer.Close()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		logger.Error("initialising pipeline", slog.Any("error", err))
		return err
	}

	startTime := time.Now()
	result, err := p.Run(ctx)
	if isFatal(err) {
		return err
	}
	if err != nil {
		// Save failures are visible in the logs but do not fail the run.
		logger.Warn("run finished with errors", slog.Any("error", err))
	}

	printSummary(os.Stdout, result, time.Since(startTime))
	logger.Info("exiting")
	return nil
}

// isFatal reports whether a pipeline error should fail the process. Only
// storage setup and corrupt-log errors do.
func isFatal(err error) bool {
	return errors.Is(err, store.ErrStorageSetup) || errors.Is(err, store.ErrCorrupt)
}

// resolveRules applies a rules file or preset, keeping explicit flags on top.
func resolveRules(cmd *cobra.Command, cfg *config.Config) error {
	flagURL := cfg.TargetURL
	if cfg.RulesFile != "" {
		rs, err := config.LoadRuleSet(cfg.RulesFile)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		cfg.ApplyRuleSet(rs)
	} else if cfg.Preset != "" {
		if err := cfg.ApplyPreset(cfg.Preset); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("url") {
		cfg.TargetURL = flagURL
	}
	return nil
}

func newExportCommand(cfg *config.Config) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the observation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.DataFile); err != nil {
				return fmt.Errorf("data file: %w", err)
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			st, err := store.Open(cfg.DataFile, store.WithLogger(logger))
			if err != nil {
				return err
			}
			return pipeline.Export(cmd.OutOrStdout(), st.Entries(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: "+strings.Join(pipeline.ExportFormats, ", "))
	return cmd
}

func printSummary(w io.Writer, result *models.RunResult, duration time.Duration) {
	if result == nil {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Scrape complete")
	t.AppendRows([]table.Row{
		{"URL", result.URL},
		{"Final URL", result.FinalURL},
		{"Status", result.StatusCode},
		{"Retries", result.RetryCount},
	})
	for _, m := range result.Matches {
		rule := m.Rule
		if rule == "" {
			rule = "(no match)"
		}
		t.AppendRow(table.Row{"Rule: " + m.Label, rule})
	}
	t.AppendRows([]table.Row{
		{"Value", result.Value},
		{"Recorded", result.Recorded},
		{"Saved", result.Saved},
		{"Days logged", result.Entries},
		{"Data file", result.DataFile},
		{"Duration", duration.Round(time.Millisecond)},
	})
	t.Render()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	level := &slog.LevelVar{}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	var rotateErr error
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxAge:     cfg.LogMaxAgeDays,
			MaxBackups: 7,
		}
		rotateErr = rotateDaily(rotating, cfg.LogFile, time.Now())
		out = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	logger := slog.New(handler)
	if rotateErr != nil {
		logger.Warn("failed to rotate log file", slog.String("path", cfg.LogFile), slog.Any("error", rotateErr))
	}
	return logger, closer
}

// rotateDaily starts a fresh log file when the current one is from an earlier day.
func rotateDaily(l *lumberjack.Logger, path string, now time.Time) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	y1, m1, d1 := info.ModTime().Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return nil
	}
	if err := l.Rotate(); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
