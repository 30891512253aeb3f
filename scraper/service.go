package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-headline-log/config"
	"github.com/aluiziolira/go-headline-log/extract"
	"github.com/aluiziolira/go-headline-log/models"
)

// Outcome is the full result of one scrape, for the orchestrator and its summary.
type Outcome struct {
	Value      string
	Matches    []models.FieldMatch
	URL        string
	FinalURL   string
	StatusCode int
	Attempts   int
	Err        error
}

// Service fetches the configured target and extracts its observation.
type Service struct {
	fetcher   Fetcher
	url       string
	headers   http.Header
	composite *extract.Composite
	metrics   *Metrics
	logger    *slog.Logger
}

// NewService wires a fetcher to the rule set in cfg.
func NewService(cfg *config.Config, fetcher Fetcher, metrics *Metrics, logger *slog.Logger) (*Service, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	composite, err := extract.NewComposite(cfg.Fields)
	if err != nil {
		return nil, fmt.Errorf("build extraction rules: %w", err)
	}
	return &Service{
		fetcher:   fetcher,
		url:       cfg.TargetURL,
		headers:   cfg.RequestHeaders(),
		composite: composite,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Run returns the observation for this run, or "" when the page could not be
// fetched or the target field was absent. It never fails.
func (s *Service) Run(ctx context.Context) string {
	return s.Scrape(ctx).Value
}

// Scrape is Run with the details needed for diagnostics.
func (s *Service) Scrape(ctx context.Context) (out *Outcome) {
	out = &Outcome{URL: s.url}

	resp, err := s.fetcher.Fetch(ctx, s.url, s.headers)
	if resp != nil {
		out.FinalURL = resp.FinalURL
		out.StatusCode = resp.StatusCode
		out.Attempts = resp.Attempts
	}
	s.logger.Info("request URL", slog.String("url", s.url), slog.String("final_url", out.FinalURL))
	s.logger.Info("request status code", slog.Int("status", out.StatusCode))

	if err == nil && (resp == nil || !resp.OK) {
		err = classifyError(nil, out.StatusCode)
		if err == nil {
			err = ErrHTTPStatus{Err: fmt.Errorf("no response")}
		}
	}
	if err != nil {
		out.Err = err
		s.logger.Warn("request failed; returning empty observation",
			slog.String("url", s.url),
			slog.String("category", errorTypeLabel(err)),
			slog.Any("error", err),
		)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extraction failed; returning empty observation",
				slog.String("url", s.url),
				slog.Any("panic", r),
			)
			out.Value = ""
			out.Matches = nil
			out.Err = fmt.Errorf("extraction panic: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		out.Err = fmt.Errorf("parse document: %w", err)
		s.logger.Error("parse document failed", slog.Any("error", err))
		return out
	}

	out.Value, out.Matches = s.composite.Extract(doc)
	for _, m := range out.Matches {
		s.metrics.IncMatch(m.Label, m.Rule)
		if m.Rule == "" {
			s.logger.Warn("no rule matched", slog.String("field", m.Label))
			continue
		}
		s.logger.Debug("field extracted",
			slog.String("field", m.Label),
			slog.String("rule", m.Rule),
			slog.String("value", m.Value),
		)
	}
	s.logger.Info("data point", slog.String("value", out.Value))
	return out
}
