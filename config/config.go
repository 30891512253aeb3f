package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-headline-log/extract"
)

// Config holds the deployment configuration for one scrape target.
type Config struct {
	TargetURL       string
	Headers         map[string]string
	Preset          string
	RulesFile       string
	Fields          []extract.Field
	DataFile        string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxAgeDays   int
	Timezone        string
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	UserAgent       string
	MetricsFile     string
	PushgatewayURL  string
	PushJob         string
	Verbose         bool
}

// DefaultConfig returns the production settings for the Daily Pennsylvanian.
func DefaultConfig() *Config {
	cfg := &Config{
		TargetURL: "https://www.thedp.com",
		Headers: map[string]string{
			"User-Agent":      defaultUserAgent,
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.google.com/",
		},
		Preset:          DefaultPreset,
		DataFile:        "data/daily_pennsylvanian_headlines.json",
		LogFile:         "scrape.log",
		LogMaxSizeMB:    10,
		LogMaxAgeDays:   1,
		Timezone:        "America/New_York",
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    500 * time.Millisecond,
		RetryBackoffMax: 5 * time.Second,
		UserAgent:       defaultUserAgent,
		PushJob:         "headlinelog",
		Verbose:         false,
	}
	cfg.Fields = Presets[DefaultPreset].Fields
	return cfg
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.96 Safari/537.36"

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("target URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("target URL scheme must be http or https")
	}

	if len(c.Fields) == 0 {
		return fmt.Errorf("extraction rules cannot be empty")
	}
	if _, err := extract.NewComposite(c.Fields); err != nil {
		return fmt.Errorf("invalid extraction rules: %w", err)
	}

	if c.DataFile == "" {
		return fmt.Errorf("data file cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.LogMaxSizeMB < 0 {
		return fmt.Errorf("log max size cannot be negative")
	}
	if c.LogMaxAgeDays < 0 {
		return fmt.Errorf("log max age cannot be negative")
	}
	if c.UserAgent == "" && c.Headers["User-Agent"] == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PushgatewayURL != "" {
		if u, err := url.Parse(c.PushgatewayURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid pushgateway URL %q", c.PushgatewayURL)
		}
	}

	return nil
}

// Location resolves the timezone that defines "today" for the log.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RequestHeaders returns the identity headers sent with the page request.
func (c *Config) RequestHeaders() http.Header {
	hdr := make(http.Header, len(c.Headers)+1)
	for k, v := range c.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	if hdr.Get("User-Agent") == "" && c.UserAgent != "" {
		hdr.Set("User-Agent", c.UserAgent)
	}
	return hdr
}
