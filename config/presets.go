package config

import (
	"fmt"
	"sort"

	"github.com/aluiziolira/go-headline-log/extract"
)

// DefaultPreset is the rule set used when none is configured.
const DefaultPreset = "most-read"

// Preset is a named target section with its extraction fields.
type Preset struct {
	Description string
	Fields      []extract.Field
}

var headlineRules = []extract.Rule{
	extract.Selectors("top-story", ".frontpage-top-story", "a"),
	extract.Selectors("article-headline", "article h3", "a"),
	extract.Selectors("standard-link", "h3.standard-link", "a"),
}

// Presets lists the built-in section targets.
var Presets = map[string]Preset{
	"most-read": {
		Description: "first link in the Most Read list",
		Fields: []extract.Field{{
			Label: "Most Read",
			Rules: []extract.Rule{
				extract.Selectors("most-read-list", "ul.most-read", "a"),
				extract.Selectors("most-read-id", "#most-read", "a"),
				{
					Name: "most-read-heading",
					Path: []extract.Step{
						{Selector: `h2:contains("Most Read"), h3:contains("Most Read")`},
						{Selector: "ul, ol", Axis: extract.AxisNext},
						{Selector: "a"},
					},
				},
			},
		}},
	},
	"top-story": {
		Description: "front-page headline",
		Fields: []extract.Field{{
			Label: "Headline",
			Rules: headlineRules,
		}},
	},
	"section": {
		Description: "section summary plus its lead headline",
		Fields: []extract.Field{
			{
				Label: "Summary",
				Rules: []extract.Rule{
					{
						Name: "summary-after-title",
						Path: []extract.Step{
							{Selector: "h2.section-title"},
							{Selector: "p", Axis: extract.AxisNext},
						},
						Collapse: true,
					},
					{
						Name:     "section-summary",
						Path:     []extract.Step{{Selector: ".section-summary"}},
						Collapse: true,
					},
				},
			},
			{
				Label: "Headline",
				Rules: headlineRules,
			},
		},
	},
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset replaces c.Fields with the named preset.
func (c *Config) ApplyPreset(name string) error {
	preset, ok := Presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	c.Preset = name
	c.Fields = preset.Fields
	return nil
}
