package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/aluiziolira/go-headline-log/extract"
)

// RuleSet is the on-disk form of a target: where to fetch and what to extract.
type RuleSet struct {
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Fields  []extract.Field   `json:"fields"`
}

// LocalPath returns the override path for name: rules.json5 -> rules.local.json5.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// LoadRuleSet reads a JSON5 rule file and merges its .local override on top.
// Only a missing base file with no override is reported as os.ErrNotExist.
func LoadRuleSet(name string) (RuleSet, error) {
	var out RuleSet
	found := false

	base, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read rules %q: %w", name, err)
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, fmt.Errorf("parse rules %q: %w", name, err)
		}
		found = true
	}

	localPath := LocalPath(name)
	local, err := os.ReadFile(localPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read rules %q: %w", localPath, err)
	}
	if len(local) > 0 {
		var override RuleSet
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, fmt.Errorf("parse rules %q: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge rules %q: %w", localPath, err)
		}
		slog.Info("merging rules with local overrides", slog.String("local", localPath))
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ApplyRuleSet overlays the non-empty parts of rs onto c.
func (c *Config) ApplyRuleSet(rs RuleSet) {
	if rs.URL != "" {
		c.TargetURL = rs.URL
	}
	if len(rs.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(rs.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range rs.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if len(rs.Fields) > 0 {
		c.Fields = rs.Fields
		c.Preset = ""
	}
}
