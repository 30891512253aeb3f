// Package pipeline runs one scrape end to end: open the log, scrape, record
// today's observation, save, and report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aluiziolira/go-headline-log/config"
	"github.com/aluiziolira/go-headline-log/models"
	"github.com/aluiziolira/go-headline-log/scraper"
	"github.com/aluiziolira/go-headline-log/store"
)

// ErrSaveFailed is returned when the run completed but the log could not be written.
var ErrSaveFailed = errors.New("pipeline: save failed")

// Scraper produces the observation for a run.
type Scraper interface {
	Scrape(ctx context.Context) *scraper.Outcome
}

// Pipeline wires a scraper to the log store for a single run.
type Pipeline struct {
	cfg       *config.Config
	scraper   Scraper
	fetcher   scraper.Fetcher
	metrics   *scraper.Metrics
	logger    *slog.Logger
	now       func() time.Time
	workDir   string
	storeOpts []store.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScraper replaces the default fetch-and-extract service.
func WithScraper(s Scraper) Option {
	return func(p *Pipeline) { p.scraper = s }
}

// WithFetcher keeps the default service but swaps its fetcher.
func WithFetcher(f scraper.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithMetrics shares a metrics registry with the caller.
func WithMetrics(m *scraper.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the diagnostic logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides the time source used for today's date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithStoreOptions passes extra options to store.Open, after the pipeline's own.
func WithStoreOptions(opts ...store.Option) Option {
	return func(p *Pipeline) { p.storeOpts = append(p.storeOpts, opts...) }
}

// WithWorkDir sets the directory whose tree is logged after the run.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) { p.workDir = dir }
}

// New builds a pipeline from a validated config.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = scraper.NewMetrics()
	}
	if p.workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			p.workDir = wd
		}
	}
	if p.scraper == nil {
		if p.fetcher == nil {
			p.fetcher = scraper.NewFetcher(cfg, p.metrics, p.logger)
		}
		svc, err := scraper.NewService(cfg, p.fetcher, p.metrics, p.logger)
		if err != nil {
			return nil, err
		}
		p.scraper = svc
	}
	return p, nil
}

// Metrics exposes the run's registry.
func (p *Pipeline) Metrics() *scraper.Metrics {
	return p.metrics
}

// Run executes one scrape. Setup failures (store.ErrStorageSetup,
// store.ErrCorrupt) abort before fetching; anything after setup is logged and
// the run still reaches diagnostics.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.RunResult{
		StartTime: p.now(),
		URL:       p.cfg.TargetURL,
		DataFile:  p.cfg.DataFile,
	}

	loc, err := p.cfg.Location()
	if err != nil {
		return result, err
	}

	p.logger.Info("loading observation log", slog.String("path", p.cfg.DataFile))
	opts := append([]store.Option{
		store.WithClock(p.now),
		store.WithLocation(loc),
		store.WithLogger(p.logger),
	}, p.storeOpts...)
	st, err := store.Open(p.cfg.DataFile, opts...)
	if err != nil {
		p.logger.Error("cannot open observation log", slog.Any("error", err))
		return result, err
	}

	p.logger.Info("starting scrape", slog.String("url", p.cfg.TargetURL))
	outcome := p.scrape(ctx)
	result.FinalURL = outcome.FinalURL
	result.StatusCode = outcome.StatusCode
	result.Value = outcome.Value
	result.Matches = outcome.Matches
	if outcome.Attempts > 1 {
		result.RetryCount = outcome.Attempts - 1
	}

	var runErr error
	result.Recorded = st.RecordToday(outcome.Value)
	if result.Recorded {
		p.metrics.IncObservation("recorded")
		if err := st.Save(); err != nil {
			p.logger.Error("failed to save observation log", slog.Any("error", err))
			runErr = fmt.Errorf("%w: %w", ErrSaveFailed, err)
		} else {
			result.Saved = true
			p.logger.Info("saved observation log",
				slog.String("date", st.Today()),
				slog.String("path", st.Path()),
			)
		}
	} else {
		p.metrics.IncObservation("skipped")
		p.logger.Warn("no data scraped; nothing to save")
	}
	result.Entries = st.Len()

	LogTree(p.logger, p.workDir)
	DumpFile(p.logger, st.Path())

	result.EndTime = p.now()
	p.metrics.MarkRun(result.EndTime, result.Saved)
	PublishMetrics(p.cfg, p.metrics, p.logger)

	p.logger.Info("scrape complete")
	return result, runErr
}

// scrape runs the scraper, treating a panic as an empty observation.
func (p *Pipeline) scrape(ctx context.Context) (out *scraper.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("failed to scrape data point", slog.Any("panic", r))
			out = &scraper.Outcome{URL: p.cfg.TargetURL, Err: fmt.Errorf("scrape panic: %v", r)}
		}
	}()
	out = p.scraper.Scrape(ctx)
	if out == nil {
		out = &scraper.Outcome{URL: p.cfg.TargetURL}
	}
	return out
}

// Run is shorthand for New followed by Pipeline.Run.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*models.RunResult, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}
