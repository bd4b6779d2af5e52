package cmd

import (
	"github.com/spf13/cobra"

	"github.com/netsonde/synthctl/internal/format"
)

func newTestCreateCommand(rt *runtime) *cobra.Command {
	var (
		dryRun        bool
		printConfig   bool
		strictPeriods bool
		fields        []string
	)
	cmd := &cobra.Command{
		Use:   "create <config>",
		Short: "Create a test from a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			test := rt.loadTest(cmd.Context(), newFactory(strictPeriods), args[0], nil)
			if test == nil {
				return errReported
			}
			p := rt.Printer()
			if dryRun {
				return p.PrintTest(test, format.PrintOptions{Fields: fields})
			}
			client, err := rt.Client()
			if err != nil {
				return err
			}
			created, err := client.CreateTest(cmd.Context(), test)
			if err != nil {
				return err
			}
			p.Printf("Created new test - id: %s\n", created.Base().ID())
			if printConfig {
				return p.PrintTest(created, format.PrintOptions{})
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Build and print the test without creating it")
	flags.BoolVar(&printConfig, "print-config", false, "Print the created test configuration")
	flags.BoolVar(&strictPeriods, "strict-periods", false, "Reject unsupported scheduling periods instead of rounding down")
	flags.StringSliceVarP(&fields, "fields", "f", nil, "Print only the listed fields (dry run)")
	return cmd
}

func newTestUpdateCommand(rt *runtime) *cobra.Command {
	var (
		dryRun      bool
		printConfig bool
	)
	cmd := &cobra.Command{
		Use:   "update <id> <config>",
		Short: "Update an existing test from a configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := rt.getTest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			next := rt.loadTest(cmd.Context(), newFactory(false), args[1], nil)
			if next == nil {
				return errReported
			}
			p := rt.Printer()
			if dryRun {
				if printConfig {
					p.Println("--- New config:")
					if err := p.PrintTest(next, format.PrintOptions{}); err != nil {
						return err
					}
				}
				p.Println("--- Diff:")
				p.PrintDiff("EXISTING", "NEW", format.DiffTests(current, next))
				return nil
			}
			client, err := rt.Client()
			if err != nil {
				return err
			}
			next.Base().PinRevision(current)
			updated, err := client.UpdateTest(cmd.Context(), next, current.Base().ID())
			if err != nil {
				return err
			}
			p.Printf("Updated test - id: %s\n", args[0])
			if printConfig {
				return p.PrintTest(updated, format.PrintOptions{})
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Print the diff against the existing test without updating")
	flags.BoolVar(&printConfig, "print-config", false, "Print the new test configuration")
	return cmd
}

func newTestDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				if err := client.DeleteTest(cmd.Context(), t); err != nil {
					return err
				}
				p.Printf("Deleted test - id: %s\n", id)
			}
			return nil
		},
	}
}
