// Package extract locates a single text value in a parsed HTML document by
// trying an ordered list of configured rules.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-headline-log/parser"
)

// Axis selects how a step moves from the current selection.
type Axis string

const (
	// AxisDescendant searches inside the current selection.
	AxisDescendant Axis = "descendant"
	// AxisNext takes the following element siblings of the current selection.
	AxisNext Axis = "next"
)

// Step is one hop of a rule's locator path.
type Step struct {
	Selector string `json:"selector"`
	Axis     Axis   `json:"axis,omitempty"`
}

// Rule describes where a value lives in a document and how its text is read.
type Rule struct {
	Name string `json:"name"`
	Path []Step `json:"path"`
	// Attr reads an attribute of the matched element instead of its text.
	Attr string `json:"attr,omitempty"`
	// Collapse squeezes inner whitespace runs to single spaces.
	Collapse bool `json:"collapse,omitempty"`
}

// Locator finds a value below root. ok is false when nothing usable matched.
type Locator interface {
	Locate(root *goquery.Selection) (text string, ok bool)
}

// Named is implemented by locators that can be reported in diagnostics.
type Named interface {
	RuleName() string
}

// Selectors builds a single-step-per-selector rule, the common case of
// "first X inside Y".
func Selectors(name string, sels ...string) Rule {
	path := make([]Step, 0, len(sels))
	for _, sel := range sels {
		path = append(path, Step{Selector: sel})
	}
	return Rule{Name: name, Path: path}
}

// RuleName implements Named.
func (r Rule) RuleName() string {
	return r.Name
}

// Validate checks that every selector compiles and every axis is known.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name cannot be empty")
	}
	if len(r.Path) == 0 {
		return fmt.Errorf("rule %q has an empty path", r.Name)
	}
	for i, step := range r.Path {
		switch step.Axis {
		case "", AxisDescendant, AxisNext:
		default:
			return fmt.Errorf("rule %q step %d: unknown axis %q", r.Name, i, step.Axis)
		}
		if _, err := CompileSelector(step.Selector); err != nil {
			return fmt.Errorf("rule %q step %d: %w", r.Name, i, err)
		}
	}
	return nil
}

// Locate walks the path from root, narrowing to the first match at every
// step, and reads the element it lands on.
func (r Rule) Locate(root *goquery.Selection) (string, bool) {
	if root == nil {
		return "", false
	}
	current := root
	for _, step := range r.Path {
		matcher, err := CompileSelector(step.Selector)
		if err != nil {
			return "", false
		}
		switch step.Axis {
		case AxisNext:
			current = current.NextAllMatcher(matcher)
		default:
			current = current.FindMatcher(matcher)
		}
		if current.Length() == 0 {
			return "", false
		}
		// Each step continues from the first match only.
		current = current.First()
	}

	target := current
	var text string
	if r.Attr != "" {
		value, ok := target.Attr(r.Attr)
		if !ok {
			return "", false
		}
		text = value
	} else {
		text = target.Text()
	}

	if r.Collapse {
		text = parser.CollapseWhitespace(text)
	} else {
		text = parser.NormalizeText(text)
	}
	if text == "" {
		return "", false
	}
	return text, true
}
