// Package models defines data structures shared by the scraper, store and pipeline.
package models

import "time"

// DateLayout is the key format of the observation log.
const DateLayout = "2006-01-02"

// Observation is the value extracted for one calendar day.
type Observation struct {
	Date  string `csv:"date" json:"date"`
	Value string `csv:"value" json:"value"`
}

// FieldMatch records which rule produced a field of the observation.
type FieldMatch struct {
	Label string
	Rule  string
	Value string
}

// RunResult holds the overall result of one scrape run.
type RunResult struct {
	StartTime  time.Time
	EndTime    time.Time
	URL        string
	FinalURL   string
	StatusCode int
	Value      string
	Matches    []FieldMatch
	Recorded   bool
	Saved      bool
	Entries    int
	RetryCount int
	DataFile   string
}
