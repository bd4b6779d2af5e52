package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Output modes selectable on the command line.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
	OutputID    = "id"
)

// Printer renders command output in the selected mode. Errors and warnings
// go to the error stream, everything else to the output stream.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	output string

	red    *color.Color
	yellow *color.Color
	green  *color.Color
}

// NewPrinter builds a printer for the given output mode. Coloring is forced
// on or off regardless of whether the streams are terminals, so callers
// decide via configuration.
func NewPrinter(out, errOut io.Writer, output string, colored bool) *Printer {
	p := &Printer{
		out:    out,
		errOut: errOut,
		output: output,
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.red, p.yellow, p.green} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Output returns the selected output mode.
func (p *Printer) Output() string { return p.output }

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// Failf writes a red FAILED line to the error stream.
func (p *Printer) Failf(format string, args ...any) {
	p.red.Fprintf(p.errOut, "FAILED: "+format+"\n", args...)
}

// Warnf writes a warning line to the error stream.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.errOut, "WARNING: "+format+"\n", args...)
}

// Dump writes a document to the output stream in the selected structured
// mode, JSON unless YAML was requested.
func (p *Printer) Dump(v any) error {
	if p.output == OutputYAML {
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(p.out, string(out))
	return nil
}

// PrintStruct writes a nested document as indented "key: value" lines, two
// spaces per level. Keys print in their snake_case display form, sorted
// alphabetically for deterministic output. Returns the number of value
// lines printed.
func (p *Printer) PrintStruct(v any) int {
	if m, ok := v.(map[string]any); ok {
		return p.printMap(m, 0)
	}
	fmt.Fprintf(p.out, "%s\n", renderCell(v))
	return 1
}

func (p *Printer) printMap(m map[string]any, level int) int {
	indent := strings.Repeat("  ", level)
	printed := 0
	for _, k := range displayOrder(m) {
		v := m[k]
		display := CamelToSnake(k)
		if child, ok := v.(map[string]any); ok {
			fmt.Fprintf(p.out, "%s%s:\n", indent, display)
			printed += p.printMap(child, level+1)
			continue
		}
		if items, ok := mapList(v); ok {
			for i, e := range items {
				fmt.Fprintf(p.out, "%s%s[%d]:\n", indent, display, i)
				printed += p.printMap(e, level+1)
			}
			continue
		}
		fmt.Fprintf(p.out, "%s%s: %s\n", indent, display, renderCell(v))
		printed++
	}
	return printed
}

// displayOrder returns the raw map keys sorted by their display form.
func displayOrder(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return CamelToSnake(keys[i]) < CamelToSnake(keys[j])
	})
	return keys
}

// mapList reports whether a value is a non-empty list made entirely of
// nested maps.
func mapList(v any) ([]map[string]any, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// colorizeHealth wraps a cell in the color of the health state it reports.
func (p *Printer) colorizeHealth(cell string) string {
	switch {
	case healthState(cell, "healthy"):
		return p.green.Sprint(cell)
	case healthState(cell, "warning"):
		return p.yellow.Sprint(cell)
	case healthState(cell, "critical"), healthState(cell, "failing"):
		return p.red.Sprint(cell)
	}
	return cell
}

func healthState(cell, state string) bool {
	return cell == state || strings.Contains(cell, "("+state+")")
}

// WriteJSONFile writes a document to a file as indented JSON.
func WriteJSONFile(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
