package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netsonde/synthctl/pkg/matcher"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

func newAgentCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agent",
		Aliases: []string{"agents"},
		Short:   "Manage synthetic test agents",
	}
	cmd.AddCommand(
		newAgentListCommand(rt),
		newAgentGetCommand(rt),
		newAgentMatchCommand(rt),
		newAgentActivateCommand(rt),
		newAgentDeactivateCommand(rt),
		newAgentDeleteCommand(rt),
	)
	return cmd
}

func newAgentListCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt.applyJSONFlag(lf.jsonOut, lf.brief)
			client, err := rt.Client()
			if err != nil {
				return err
			}
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Printer().PrintAgents(agents, lf.printOptions())
		},
	}
	lf.register(cmd)
	return cmd
}

func newAgentGetCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: "Print agent configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.applyJSONFlag(lf.jsonOut, lf.brief)
			p := rt.Printer()
			for _, id := range args {
				agent, err := rt.getAgent(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := p.PrintAgents([]map[string]any{agent}, lf.printOptions()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	lf.register(cmd)
	return cmd
}

func newAgentMatchCommand(rt *runtime) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "match <rule>...",
		Short: "Print agents matching all rules",
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
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			var matching []map[string]any
			for _, a := range agents {
				if m.Match(a) {
					matching = append(matching, a)
				}
			}
			if len(matching) == 0 {
				rt.Printer().Println("No agent matches specified rules")
				return nil
			}
			return rt.Printer().PrintAgents(matching, lf.printOptions())
		},
	}
	lf.register(cmd)
	return cmd
}

// setAgentStatus patches an agent into the target status. Agents already in
// the target state are left alone; after the patch the returned record is
// checked so a silently ignored transition is reported.
func (rt *runtime) setAgentStatus(ctx context.Context, id string, target synthetics.AgentStatus, verb string) error {
	agent, err := rt.getAgent(ctx, id)
	if err != nil {
		return err
	}
	p := rt.Printer()
	if current, _ := agent["status"].(string); current == string(target) {
		p.Printf("Agent %s is already in status %s, nothing to do\n", id, target)
		return nil
	}
	client, err := rt.Client()
	if err != nil {
		return err
	}
	agent["status"] = string(target)
	updated, err := client.PatchAgent(ctx, id, agent, "agent.status")
	if err != nil {
		return err
	}
	if status, _ := updated["status"].(string); status != string(target) {
		return rt.fail("Agent %s status update did not take effect (status: %s)", id, status)
	}
	p.Printf("%s agent - id: %s\n", verb, id)
	return nil
}

func newAgentActivateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>...",
		Short: "Activate pending agents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := rt.setAgentStatus(cmd.Context(), id, synthetics.AgentStatusOK, "Activated"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAgentDeactivateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>...",
		Short: "Move agents back to the pending state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := rt.setAgentStatus(cmd.Context(), id, synthetics.AgentStatusWait, "Deactivated"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAgentDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete agents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.Client()
			if err != nil {
				return err
			}
			p := rt.Printer()
			for _, id := range args {
				if _, err := rt.getAgent(cmd.Context(), id); err != nil {
					return err
				}
				if err := client.DeleteAgent(cmd.Context(), id); err != nil {
					return err
				}
				p.Printf("Deleted agent - id: %s\n", id)
			}
			return nil
		},
	}
}
