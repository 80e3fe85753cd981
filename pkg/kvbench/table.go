package kvbench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Row is one timing in the results table.
type Row struct {
	RunID          string    `json:"run_id"`
	Implementation string    `json:"implementation"`
	Scale          string    `json:"scale"`
	Operation      Operation `json:"operation"`
	Scenario       Scenario  `json:"scenario"`
	Seconds        float64   `json:"seconds"`
}

// Table holds every row produced by one Run.
type Table struct {
	RunID string `json:"run_id"`
	Rows  []Row  `json:"rows"`
}

var csvHeader = []string{"run_id", "implementation", "scale", "operation", "scenario", "seconds"}

func (t *Table) add(impl, scale string, op Operation, sc Scenario, seconds float64) {
	t.Rows = append(t.Rows, Row{
		RunID:          t.RunID,
		Implementation: impl,
		Scale:          scale,
		Operation:      op,
		Scenario:       sc,
		Seconds:        seconds,
	})
}

// Seconds returns the timing for the given cell.
func (t *Table) Seconds(impl, scale string, op Operation, sc Scenario) (float64, bool) {
	for _, r := range t.Rows {
		if r.Implementation == impl && r.Scale == scale && r.Operation == op && r.Scenario == sc {
			return r.Seconds, true
		}
	}
	return 0, false
}

// Merge appends the rows of other, keeping their run IDs.
func (t *Table) Merge(other *Table) {
	t.Rows = append(t.Rows, other.Rows...)
}

// WriteJSON writes the table as an indented JSON document.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.Rows {
		rec := []string{
			r.RunID,
			r.Implementation,
			r.Scale,
			string(r.Operation),
			string(r.Scenario),
			strconv.FormatFloat(r.Seconds, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes an aligned human-readable summary.
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IMPL\tSCALE\tOP\tSCENARIO\tSECONDS")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6f\n", r.Implementation, r.Scale, r.Operation, r.Scenario, r.Seconds)
	}
	return tw.Flush()
}
