package extract

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-headline-log/models"
	"github.com/aluiziolira/go-headline-log/parser"
)

// Chain evaluates locators in priority order.
type Chain struct {
	locators []Locator
}

// NewChain returns a chain over the given locators, highest priority first.
func NewChain(locators ...Locator) *Chain {
	return &Chain{locators: locators}
}

// RuleChain is a convenience for building a chain from plain rules.
func RuleChain(rules ...Rule) *Chain {
	locators := make([]Locator, 0, len(rules))
	for _, r := range rules {
		locators = append(locators, r)
	}
	return NewChain(locators...)
}

// Len returns the number of locators in the chain.
func (c *Chain) Len() int {
	return len(c.locators)
}

// Extract returns the first non-empty value, or "" when no locator matched.
func (c *Chain) Extract(doc *goquery.Document) string {
	text, _ := c.Match(doc)
	return text
}

// Match is Extract plus the name of the rule that produced the value.
func (c *Chain) Match(doc *goquery.Document) (text, rule string) {
	if c == nil || doc == nil {
		return "", ""
	}
	for i, loc := range c.locators {
		text, ok := loc.Locate(doc.Selection)
		if !ok {
			continue
		}
		if named, isNamed := loc.(Named); isNamed {
			return text, named.RuleName()
		}
		return text, fmt.Sprintf("#%d", i)
	}
	return "", ""
}

// Field is one labelled part of an observation.
type Field struct {
	Label string `json:"label"`
	Rules []Rule `json:"rules"`
}

// Validate checks the field's rules.
func (f Field) Validate() error {
	if len(f.Rules) == 0 {
		return fmt.Errorf("field %q has no rules", f.Label)
	}
	for _, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Label, err)
		}
	}
	return nil
}

type compositeField struct {
	label string
	chain *Chain
}

// Composite extracts several fields and joins them into one observation.
type Composite struct {
	fields []compositeField
}

// NewComposite validates fields and builds their chains.
func NewComposite(fields []Field) (*Composite, error) {
	if len(fields) == 0 {
		return nil, errors.New("at least one field is required")
	}
	out := make([]compositeField, 0, len(fields))
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		out = append(out, compositeField{label: f.Label, chain: RuleChain(f.Rules...)})
	}
	return &Composite{fields: out}, nil
}

// Extract evaluates every field and joins the results. One field yields its
// value verbatim; several yield "Label: value" lines with empty fields left out.
func (c *Composite) Extract(doc *goquery.Document) (string, []models.FieldMatch) {
	values := make([]parser.LabeledValue, 0, len(c.fields))
	matches := make([]models.FieldMatch, 0, len(c.fields))
	for _, f := range c.fields {
		text, rule := f.chain.Match(doc)
		values = append(values, parser.LabeledValue{Label: f.label, Value: text})
		matches = append(matches, models.FieldMatch{Label: f.label, Rule: rule, Value: text})
	}
	return parser.JoinFields(values), matches
}
