package format

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/netsonde/synthctl/pkg/oneshot"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// PrintOptions selects the list rendering variant: the brief table or a
// field-selected view over the display wire forms.
type PrintOptions struct {
	Brief  bool
	Fields []string
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	return t
}

// PrintTests renders a list of tests in the selected output mode.
func (p *Printer) PrintTests(tests []synthetics.Test, opts PrintOptions) error {
	switch {
	case p.output == OutputID:
		for _, t := range tests {
			p.Println(t.Base().ID())
		}
		return nil
	case opts.Brief:
		tw := p.newTable()
		tw.AppendHeader(table.Row{"id", "name", "type"})
		for _, t := range tests {
			base := t.Base()
			tw.AppendRow(table.Row{base.ID(), base.Name, string(base.Type)})
		}
		tw.Render()
		return nil
	case p.output == OutputJSON || p.output == OutputYAML:
		docs := make([]map[string]any, 0, len(tests))
		for _, t := range tests {
			docs = append(docs, SelectFields(DisplayTest(t), opts.Fields))
		}
		return p.Dump(docs)
	case len(opts.Fields) > 0:
		tw := p.newTable()
		header := table.Row{"id"}
		for _, f := range opts.Fields {
			header = append(header, f)
		}
		tw.AppendHeader(header)
		for _, t := range tests {
			row := table.Row{t.Base().ID()}
			display := DisplayTest(t)
			for _, f := range opts.Fields {
				row = append(row, FieldValue(display, f))
			}
			tw.AppendRow(row)
		}
		tw.Render()
		return nil
	default:
		for _, t := range tests {
			if p.PrintStruct(DisplayTest(t)) > 0 {
				p.Println()
			}
		}
		return nil
	}
}

// PrintTest renders a single test in the selected output mode.
func (p *Printer) PrintTest(t synthetics.Test, opts PrintOptions) error {
	if p.output == OutputJSON || p.output == OutputYAML {
		return p.Dump(SelectFields(DisplayTest(t), opts.Fields))
	}
	return p.PrintTests([]synthetics.Test{t}, opts)
}

// PrintAgents renders a list of agent wire forms in the selected output
// mode.
func (p *Printer) PrintAgents(agents []map[string]any, opts PrintOptions) error {
	switch {
	case p.output == OutputID:
		for _, a := range agents {
			p.Println(renderCell(a["id"]))
		}
		return nil
	case opts.Brief:
		tw := p.newTable()
		tw.AppendHeader(table.Row{"id", "name", "alias", "type"})
		for _, a := range agents {
			tw.AppendRow(table.Row{
				renderCell(a["id"]), renderCell(a["name"]),
				renderCell(a["alias"]), renderCell(a["type"]),
			})
		}
		tw.Render()
		return nil
	case p.output == OutputJSON || p.output == OutputYAML:
		docs := make([]map[string]any, 0, len(agents))
		for _, a := range agents {
			docs = append(docs, SelectFields(AgentWire(a), opts.Fields))
		}
		return p.Dump(docs)
	case len(opts.Fields) > 0:
		tw := p.newTable()
		header := table.Row{"id"}
		for _, f := range opts.Fields {
			header = append(header, f)
		}
		tw.AppendHeader(header)
		for _, a := range agents {
			row := table.Row{renderCell(a["id"])}
			for _, f := range opts.Fields {
				row = append(row, FieldValue(a, f))
			}
			tw.AppendRow(row)
		}
		tw.Render()
		return nil
	default:
		for _, a := range agents {
			if p.PrintStruct(AgentWire(a)) > 0 {
				p.Println()
			}
		}
		return nil
	}
}

// PrintDiff renders a change list as a three-column table. The labels name
// the two sides being compared.
func (p *Printer) PrintDiff(leftLabel, rightLabel string, changes []Change) {
	if len(changes) == 0 {
		p.Println("No differences found.")
		return
	}
	tw := p.newTable()
	tw.AppendHeader(table.Row{"path", leftLabel, rightLabel})
	for _, c := range changes {
		tw.AppendRow(table.Row{c.Path, c.Left, c.Right})
	}
	tw.Render()
}

// entryColumnOrder is the canonical leading column order of result entry
// tables, matching the order entries are assembled in.
var entryColumnOrder = []string{"time", "agent_id", "agent_addr", "task_type", "loss", "latency", "jitter"}

// PrintResultEntries renders per-target result entries, one table per
// target, health states colored.
func (p *Printer) PrintResultEntries(results map[string][]map[string]any) {
	targets := make([]string, 0, len(results))
	for t := range results {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, target := range targets {
		entries := results[target]
		p.Printf("target: %s\n", target)
		cols := entryColumns(entries)
		tw := p.newTable()
		header := make(table.Row, 0, len(cols))
		for _, c := range cols {
			header = append(header, c)
		}
		tw.AppendHeader(header)
		for _, e := range entries {
			row := make(table.Row, 0, len(cols))
			for _, c := range cols {
				row = append(row, p.colorizeHealth(renderCell(e[c])))
			}
			tw.AppendRow(row)
		}
		tw.Render()
	}
}

// entryColumns returns the union of entry keys: the canonical columns that
// occur first, any extras sorted after them.
func entryColumns(entries []map[string]any) []string {
	seen := make(map[string]bool)
	for _, e := range entries {
		for k := range e {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for _, c := range entryColumnOrder {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}
	extras := make([]string, 0, len(seen))
	for k := range seen {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	return append(cols, extras...)
}

// PrintReport renders a one-shot run report. The summary variant prints the
// test identity and poll count only.
func (p *Printer) PrintReport(r *oneshot.Report, summary bool) error {
	doc := r.ToMap()
	if summary {
		doc = map[string]any{
			"id":     r.TestID(),
			"type":   r.TestType(),
			"name":   r.TestName(),
			"status": string(r.Status),
			"agents": r.TestAgents(),
			"polls":  r.Polls,
		}
	}
	switch p.output {
	case OutputJSON, OutputYAML:
		return p.Dump(doc)
	case OutputID:
		p.Println(r.TestID())
		return nil
	}
	if !summary {
		if exec, ok := doc["execution"].(map[string]any); ok {
			delete(exec, "results")
		}
	}
	p.PrintStruct(doc)
	if !summary && len(r.Results) > 0 {
		p.Println()
		p.PrintResultEntries(r.Results)
	}
	return nil
}
