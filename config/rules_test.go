package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-headline-log/extract"
)

const baseRules = `{
  // front page of the test site
  url: "https://example.test/",
  headers: {"Accept-Language": "en-US"},
  fields: [
    {
      label: "Headline",
      rules: [
        {name: "top", path: [{selector: ".top-story"}, {selector: "a"}]},
        {name: "fallback", path: [{selector: "article h3 a"}], collapse: true},
      ],
    },
  ],
}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json5")
	writeFile(t, path, baseRules)

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := RuleSet{
		URL:     "https://example.test/",
		Headers: map[string]string{"Accept-Language": "en-US"},
		Fields: []extract.Field{{
			Label: "Headline",
			Rules: []extract.Rule{
				{Name: "top", Path: []extract.Step{{Selector: ".top-story"}, {Selector: "a"}}},
				{Name: "fallback", Path: []extract.Step{{Selector: "article h3 a"}}, Collapse: true},
			},
		}},
	}
	if diff := cmp.Diff(want, rs); diff != "" {
		t.Fatalf("rule set mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRuleSetLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json5")
	writeFile(t, path, baseRules)
	writeFile(t, filepath.Join(dir, "rules.local.json5"), `{
  url: "https://staging.example.test/",
  headers: {"Referer": "https://www.google.com/"},
}`)

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if rs.URL != "https://staging.example.test/" {
		t.Fatalf("URL = %q, want override", rs.URL)
	}
	wantHeaders := map[string]string{
		"Accept-Language": "en-US",
		"Referer":         "https://www.google.com/",
	}
	if diff := cmp.Diff(wantHeaders, rs.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
	if len(rs.Fields) != 1 || len(rs.Fields[0].Rules) != 2 {
		t.Fatalf("fields should survive an override without fields: %+v", rs.Fields)
	}
}

func TestLoadRuleSetMissing(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join(t.TempDir(), "absent.json5"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadRuleSetInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json5")
	writeFile(t, path, `{fields: [`)

	if _, err := LoadRuleSet(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json5")
	writeFile(t, path, baseRules)

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := DefaultConfig()
	cfg.ApplyRuleSet(rs)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.TargetURL != "https://example.test/" {
		t.Fatalf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Headers["Accept-Language"] != "en-US" || cfg.Headers["Referer"] == "" {
		t.Fatalf("headers not merged: %v", cfg.Headers)
	}
	if cfg.Preset != "" {
		t.Fatalf("preset should be cleared when a rules file supplies fields")
	}
}

func TestLocalPath(t *testing.T) {
	if got := LocalPath("conf/rules.json5"); got != "conf/rules.local.json5" {
		t.Fatalf("LocalPath = %q", got)
	}
	if got := LocalPath("rules"); got != "rules.local" {
		t.Fatalf("LocalPath = %q", got)
	}
}
