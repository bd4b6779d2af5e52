package cmd

import (
	"github.com/spf13/cobra"

	"github.com/netsonde/synthctl/internal/format"
	"github.com/netsonde/synthctl/pkg/matcher"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

func newTestCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "test",
		Aliases: []string{"tests"},
		Short:   "Manage synthetic tests",
	}
	cmd.AddCommand(
		newTestOneShotCommand(rt),
		newTestCreateCommand(rt),
		newTestUpdateCommand(rt),
		newTestDeleteCommand(rt),
		newTestListCommand(rt),
		newTestGetCommand(rt),
		newTestMatchCommand(rt),
		newTestCompareCommand(rt),
		newTestPauseCommand(rt),
		newTestResumeCommand(rt),
		newTestResultsCommand(rt),
		newTestTraceCommand(rt),
	)
	return cmd
}

// listFlags are the display selectors shared by list, get and match.
type listFlags struct {
	brief   bool
	fields  []string
	jsonOut bool
}

func (lf *listFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVarP(&lf.brief, "brief", "b", false, "Print only the essential columns")
	flags.StringSliceVarP(&lf.fields, "fields", "f", nil, "Print only the listed fields (dotted paths)")
	flags.BoolVarP(&lf.jsonOut, "json", "j", false, "Print results as JSON")
}

func (lf *listFlags) printOptions() format.PrintOptions {
	return format.PrintOptions{Brief: lf.brief, Fields: lf.fields}
}

func newTestListCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	var presets bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt.applyJSONFlag(lf.jsonOut, lf.brief)
			client, err := rt.Client()
			if err != nil {
				return err
			}
			tests, err := client.ListTests(cmd.Context(), presets)
			if err != nil {
				return err
			}
			return rt.Printer().PrintTests(tests, lf.printOptions())
		},
	}
	lf.register(cmd)
	cmd.Flags().BoolVar(&presets, "presets", false, "Include preset tests")
	return cmd
}

func newTestGetCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: "Print test configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.applyJSONFlag(lf.jsonOut, lf.brief)
			p := rt.Printer()
			for _, id := range args {
				t, err := rt.getTest(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := p.PrintTest(t, lf.printOptions()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	lf.register(cmd)
	return cmd
}

func newTestMatchCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "match <rule>...",
		Short: "Print tests matching all rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.applyJSONFlag(lf.jsonOut, lf.brief)
			m, err := matcher.AllFromRules(args)
			if err != nil {
				return err
			}
			client, err := rt.Client()
			if err != nil {
				return err
			}
			tests, err := client.ListTests(cmd.Context(), false)
			if err != nil {
				return err
			}
			var matching []synthetics.Test
			for _, t := range tests {
				if m.Match(synthetics.EncodeFull(t)) {
					matching = append(matching, t)
				}
			}
			if len(matching) == 0 {
				rt.Printer().Println("No test matches specified rules")
				return nil
			}
			return rt.Printer().PrintTests(matching, lf.printOptions())
		},
	}
	lf.register(cmd)
	return cmd
}

func newTestCompareCommand(rt *runtime) *cobra.Command {
	var printConfig bool
	cmd := &cobra.Command{
		Use:   "compare <id> <id>",
		Short: "Compare the configuration of two tests",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := rt.getTest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			second, err := rt.getTest(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			p := rt.Printer()
			if printConfig {
				for i, t := range []synthetics.Test{first, second} {
					p.Printf("\ntest %d (%s):\n", i+1, t.Base().ID())
					if err := p.PrintTest(t, format.PrintOptions{}); err != nil {
						return err
					}
				}
			}
			left := "test " + first.Base().ID()
			right := "test " + second.Base().ID()
			p.PrintDiff(left, right, format.DiffTests(first, second))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "Print both test configurations before the diff")
	return cmd
}

func newTestPauseCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.setTestStatus(cmd.Context(), args[0], synthetics.TestStatusPaused, "Paused")
		},
	}
}

func newTestResumeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.setTestStatus(cmd.Context(), args[0], synthetics.TestStatusActive, "Resumed")
		},
	}
}
