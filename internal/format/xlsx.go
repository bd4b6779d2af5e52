package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/netsonde/synthctl/pkg/oneshot"
)

// sheetWriter fills one worksheet, remembering the first error so call
// sites stay flat.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err == nil {
		err = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.err = err
}

func (w *sheetWriter) setRow(row int, values ...any) {
	for i, v := range values {
		w.set(i+1, row, v)
	}
}

// WriteXLSX writes a one-shot report as a workbook with one sheet per
// report section: Summary, Results and Errors.
func WriteXLSX(path string, r *oneshot.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	summary := &sheetWriter{f: f, sheet: "Summary"}
	for i, row := range [][2]any{
		{"run_id", r.RunID},
		{"status", string(r.Status)},
		{"test_id", r.TestID()},
		{"test_type", r.TestType()},
		{"test_name", r.TestName()},
		{"targets", strings.Join(r.TestTargets(), ", ")},
		{"agents", strings.Join(r.TestAgents(), ", ")},
		{"polls", r.Polls},
	} {
		summary.setRow(i+1, row[0], row[1])
	}
	if summary.err != nil {
		return fmt.Errorf("failed to build workbook: %w", summary.err)
	}

	if _, err := f.NewSheet("Results"); err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	results := &sheetWriter{f: f, sheet: "Results"}
	cols := resultColumns(r.Results)
	header := make([]any, 0, len(cols)+1)
	header = append(header, "target")
	for _, c := range cols {
		header = append(header, c)
	}
	results.setRow(1, header...)
	row := 2
	for _, target := range sortedTargets(r.Results) {
		for _, e := range r.Results[target] {
			values := make([]any, 0, len(cols)+1)
			values = append(values, target)
			for _, c := range cols {
				values = append(values, renderCell(e[c]))
			}
			results.setRow(row, values...)
			row++
		}
	}
	if results.err != nil {
		return fmt.Errorf("failed to build workbook: %w", results.err)
	}

	if _, err := f.NewSheet("Errors"); err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	errorSheet := &sheetWriter{f: f, sheet: "Errors"}
	errorSheet.setRow(1, "type", "cause")
	for i, e := range r.Errors {
		errorSheet.setRow(i+2, e.Type, e.Cause)
	}
	if errorSheet.err != nil {
		return fmt.Errorf("failed to build workbook: %w", errorSheet.err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func sortedTargets(results map[string][]map[string]any) []string {
	targets := make([]string, 0, len(results))
	for t := range results {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

func resultColumns(results map[string][]map[string]any) []string {
	var entries []map[string]any
	for _, list := range results {
		entries = append(entries, list...)
	}
	return entryColumns(entries)
}
