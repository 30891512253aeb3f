package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "HEADLINELOG_"

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer. ok is false when key is unset.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overlays HEADLINELOG_* variables onto c.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"URL":          &c.TargetURL,
		"PRESET":       &c.Preset,
		"RULES":        &c.RulesFile,
		"DATA_FILE":    &c.DataFile,
		"LOG_FILE":     &c.LogFile,
		"TIMEZONE":     &c.Timezone,
		"USER_AGENT":   &c.UserAgent,
		"METRICS_FILE": &c.MetricsFile,
		"PUSHGATEWAY":  &c.PushgatewayURL,
	}
	for name, dst := range strs {
		if value, ok := EnvString(EnvPrefix + name); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"MAX_RETRIES":  &c.MaxRetries,
		"LOG_MAX_SIZE": &c.LogMaxSizeMB,
		"LOG_MAX_AGE":  &c.LogMaxAgeDays,
	}
	for name, dst := range ints {
		value, ok, err := EnvInt(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":           &c.Timeout,
		"RETRY_BACKOFF":     &c.RetryBackoff,
		"RETRY_BACKOFF_MAX": &c.RetryBackoffMax,
	}
	for name, dst := range durations {
		value, ok, err := EnvDuration(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	verbose, ok, err := EnvBool(EnvPrefix + "VERBOSE")
	if err != nil {
		return err
	}
	if ok {
		c.Verbose = verbose
	}
	return nil
}
