package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-headline-log/models"
)

// ExportFormats lists the formats accepted by Export.
var ExportFormats = []string{"csv", "json", "table"}

// Export writes the observation history to w in the given format.
func Export(w io.Writer, entries []models.Observation, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return WriteCSV(w, entries)
	case "json", "jsonl":
		return WriteJSONLines(w, entries)
	case "table":
		return WriteTable(w, entries)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteCSV writes a date,value header followed by one row per observation.
func WriteCSV(w io.Writer, entries []models.Observation) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, obs := range entries {
		if err := writer.Write([]string{obs.Date, obs.Value}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// WriteJSONLines writes newline-delimited JSON records.
func WriteJSONLines(w io.Writer, entries []models.Observation) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for _, obs := range entries {
		if err := encoder.Encode(obs); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	return nil
}

// WriteTable renders the history as a text table.
func WriteTable(w io.Writer, entries []models.Observation) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Observation"})
	for _, obs := range entries {
		t.AppendRow(table.Row{obs.Date, obs.Value})
	}
	t.AppendFooter(table.Row{"Days", len(entries)})
	t.Render()
	return nil
}
