package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/go-headline-log/models"
)

// ValidateObservation ensures a log entry has a well-formed date and a value.
func ValidateObservation(o *models.Observation) error {
	if o == nil {
		return fmt.Errorf("observation is nil")
	}
	if err := ValidateDate(o.Date); err != nil {
		return err
	}
	if strings.TrimSpace(o.Value) == "" {
		return fmt.Errorf("observation missing value for %s", o.Date)
	}
	return nil
}

// ValidateDate reports whether key is a calendar date in YYYY-MM-DD form.
func ValidateDate(key string) error {
	t, err := time.Parse(models.DateLayout, key)
	if err != nil {
		return fmt.Errorf("invalid date key %q: %w", key, err)
	}
	// time.Parse accepts some non-canonical spellings; require a round trip.
	if t.Format(models.DateLayout) != key {
		return fmt.Errorf("invalid date key %q", key)
	}
	return nil
}

// FormatDate renders t as a log key in loc. A nil loc keeps t's own location.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(models.DateLayout)
}

// NormalizeText trims surrounding whitespace and replaces invalid UTF-8 so
// the value survives JSON encoding unchanged.
func NormalizeText(text string) string {
	return strings.TrimSpace(strings.ToValidUTF8(text, "\uFFFD"))
}

// CollapseWhitespace replaces every whitespace run with a single space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(strings.ToValidUTF8(text, "\uFFFD")), " ")
}

// LabeledValue is one field of a composite observation.
type LabeledValue struct {
	Label string
	Value string
}

// JoinFields renders a composite observation. A single field is returned
// verbatim; otherwise each non-empty field becomes "Label: value" on its own line.
func JoinFields(fields []LabeledValue) string {
	if len(fields) == 1 {
		return fields[0].Value
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if f.Label == "" {
			lines = append(lines, f.Value)
			continue
		}
		lines = append(lines, f.Label+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}
