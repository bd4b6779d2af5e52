package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/netsonde/synthctl/internal/format"
	"github.com/netsonde/synthctl/pkg/oneshot"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// windowFlags select the time window of a data query. Empty from/to default
// to a window of the given number of test periods ending now.
type windowFlags struct {
	from    string
	to      string
	periods int
}

func (wf *windowFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&wf.from, "from", "", "Window start (RFC 3339 timestamp)")
	flags.StringVar(&wf.to, "to", "", "Window end (RFC 3339 timestamp)")
	flags.IntVar(&wf.periods, "periods", 3, "Window length in test periods when --from is not given")
}

func (wf *windowFlags) window() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if wf.from != "" {
		if start, err = time.Parse(time.RFC3339, wf.from); err != nil {
			return start, end, fmt.Errorf("invalid --from timestamp '%s': %w", wf.from, err)
		}
	}
	if wf.to != "" {
		if end, err = time.Parse(time.RFC3339, wf.to); err != nil {
			return start, end, fmt.Errorf("invalid --to timestamp '%s': %w", wf.to, err)
		}
	}
	return start, end, nil
}

func newTestResultsCommand(rt *runtime) *cobra.Command {
	var (
		wf      windowFlags
		agents  []string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "results <id>...",
		Short: "Print measurement results of tests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.applyJSONFlag(jsonOut, false)
			start, end, err := wf.window()
			if err != nil {
				return err
			}
			client, err := rt.Client()
			if err != nil {
				return err
			}
			p := rt.Printer()
			for _, id := range args {
				t, err := rt.getTest(cmd.Context(), id)
				if err != nil {
					return err
				}
				docs, err := client.Results(cmd.Context(), synthetics.ResultsRequest{
					Test:     t,
					Start:    start,
					End:      end,
					Periods:  wf.periods,
					AgentIDs: agents,
				})
				if err != nil {
					return err
				}
				rep := oneshot.NewReport(t)
				rep.SetResults(docs)
				if p.Output() == format.OutputJSON || p.Output() == format.OutputYAML {
					if err := p.Dump(rep.ToMap()); err != nil {
						return err
					}
					continue
				}
				p.Printf("test id: %s name: %s\n", t.Base().ID(), t.Base().Name)
				if len(rep.Results) == 0 {
					p.Println("No results found in the requested window")
					continue
				}
				p.PrintResultEntries(rep.Results)
			}
			return nil
		},
	}
	wf.register(cmd)
	flags := cmd.Flags()
	flags.StringSliceVar(&agents, "agents", nil, "Restrict results to these agent ids")
	flags.BoolVarP(&jsonOut, "json", "j", false, "Print results as JSON")
	return cmd
}

func newTestTraceCommand(rt *runtime) *cobra.Command {
	var (
		wf      windowFlags
		agents  []string
		targets []string
	)
	cmd := &cobra.Command{
		Use:   "trace <id>",
		Short: "Print network path trace data of a test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := wf.window()
			if err != nil {
				return err
			}
			client, err := rt.Client()
			if err != nil {
				return err
			}
			t, err := rt.getTest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := client.Trace(cmd.Context(), synthetics.TraceRequest{
				Test:      t,
				Start:     start,
				End:       end,
				Periods:   wf.periods,
				AgentIDs:  agents,
				TargetIPs: targets,
			})
			if err != nil {
				return err
			}
			return rt.Printer().Dump(doc)
		},
	}
	wf.register(cmd)
	flags := cmd.Flags()
	flags.StringSliceVar(&agents, "agents", nil, "Restrict the trace to these agent ids")
	flags.StringSliceVar(&targets, "target-ips", nil, "Restrict the trace to these target addresses")
	return cmd
}
