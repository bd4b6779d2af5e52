package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netsonde/synthctl/internal/format"
	"github.com/netsonde/synthctl/internal/models"
	"github.com/netsonde/synthctl/pkg/oneshot"
	"github.com/netsonde/synthctl/pkg/scheduler"
)

// oneShotFlags holds the knobs of the one-shot command.
type oneShotFlags struct {
	retries       int
	pause         bool
	period        int
	summary       bool
	jsonOut       bool
	printConfig   bool
	strictPeriods bool
	outputFile    string
	xlsxFile      string
	workers       int
	subs          []string
}

func newTestOneShotCommand(rt *runtime) *cobra.Command {
	var of oneShotFlags
	cmd := &cobra.Command{
		Use:   "one-shot <config>...",
		Short: "Create tests from configuration files, collect one round of results and tear them down",
		Long: `one-shot builds a test from each configuration file, deploys it, waits for
the first round of health results and deletes (or, with --pause, pauses) the
test again. The command exits nonzero unless every run collected results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runOneShot(cmd.Context(), args, of)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&of.retries, "retries", oneshot.DefaultRetries, "Health poll attempts before giving up")
	flags.BoolVar(&of.pause, "pause", false, "Pause the test after the run instead of deleting it")
	flags.IntVar(&of.period, "period", 0, "Override the scheduling period (seconds)")
	flags.BoolVar(&of.summary, "summary", false, "Print only a run summary")
	flags.BoolVarP(&of.jsonOut, "json", "j", false, "Print reports as JSON")
	flags.BoolVar(&of.printConfig, "print-config", false, "Print each built test before running it")
	flags.BoolVar(&of.strictPeriods, "strict-periods", false, "Reject unsupported scheduling periods instead of rounding down")
	flags.StringVar(&of.outputFile, "output-file", "", "Write the full report(s) as JSON to this file")
	flags.StringVar(&of.xlsxFile, "xlsx", "", "Write the report as an XLSX workbook (single config only)")
	flags.IntVarP(&of.workers, "workers", "w", 1, "Run up to this many configurations concurrently")
	flags.StringArrayVarP(&of.subs, "set", "s", nil, "Substitute @var@ tokens in the config text (var=value)")
	return cmd
}

func (rt *runtime) runOneShot(ctx context.Context, configs []string, of oneShotFlags) error {
	rt.applyJSONFlag(of.jsonOut, false)
	client, err := rt.Client()
	if err != nil {
		return err
	}
	fct := newFactory(of.strictPeriods)
	opts := oneshot.Options{Retries: of.retries, Delete: !of.pause}

	runOne := func(ctx context.Context, path string) *oneshot.Report {
		test := rt.loadTest(ctx, fct, path, of.subs)
		if test == nil {
			rep := oneshot.NewReport(nil)
			rep.Status = oneshot.RunStatusConfigBuildFailed
			return rep
		}
		if of.period > 0 {
			test.Base().SetPeriod(of.period)
		}
		if of.printConfig {
			if err := rt.Printer().PrintTest(test, format.PrintOptions{}); err != nil {
				rt.Printer().Warnf("failed to print test config: %v", err)
			}
		}
		return oneshot.Run(ctx, client, test, opts)
	}

	var reports []*oneshot.Report
	if of.workers > 1 {
		pool := scheduler.NewScheduler(of.workers)
		defer pool.Close()
		futures := make([]*models.Future[models.Result[any]], 0, len(configs))
		for _, path := range configs {
			futures = append(futures, pool.AddWork(func(ctx context.Context) (any, error) {
				return runOne(ctx, path), nil
			}))
		}
		// collect in submission order so reports line up with the args
		for _, f := range futures {
			res := <-f.C()
			if res.Err != nil {
				rep := oneshot.NewReport(nil)
				rep.Status = oneshot.RunStatusOther
				rep.Errors = append(rep.Errors, oneshot.ErrorRecord{Type: "RUN", Cause: res.Err.Error()})
				reports = append(reports, rep)
				continue
			}
			reports = append(reports, res.Data.(*oneshot.Report))
		}
	} else {
		for _, path := range configs {
			reports = append(reports, runOne(ctx, path))
		}
	}

	p := rt.Printer()
	failed := false
	for i, rep := range reports {
		if len(reports) > 1 {
			p.Printf("\n--- %s\n", configs[i])
		}
		if err := p.PrintReport(rep, of.summary); err != nil {
			return err
		}
		if rep.Status != oneshot.RunStatusSuccess {
			failed = true
		}
	}
	if of.outputFile != "" {
		if err := writeReportFile(of.outputFile, reports); err != nil {
			return err
		}
	}
	if of.xlsxFile != "" {
		if len(reports) != 1 {
			p.Warnf("--xlsx supports a single configuration, skipping export")
		} else if err := format.WriteXLSX(of.xlsxFile, reports[0]); err != nil {
			return err
		}
	}
	if failed {
		return errReported
	}
	return nil
}

// writeReportFile dumps reports as JSON, unwrapping the list for the common
// single-config case.
func writeReportFile(path string, reports []*oneshot.Report) error {
	if len(reports) == 1 {
		return format.WriteJSONFile(path, reports[0].ToMap())
	}
	docs := make([]map[string]any, 0, len(reports))
	for _, rep := range reports {
		docs = append(docs, rep.ToMap())
	}
	return format.WriteJSONFile(path, docs)
}
