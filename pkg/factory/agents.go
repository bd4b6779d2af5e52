package factory

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/matcher"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// getAgents resolves an agent id set from a 'use' list or inventory match
// rules, optionally restricted to one agent implementation family. Match
// rules use snake_case property names and are transformed to the camelCase
// keys of the agent records.
func getAgents(ctx context.Context, inv Inventory, cfg map[string]any, impl synthetics.AgentImplementType, report Fail) []string {
	if !matchOrUse(cfg, "agents", report) {
		return nil
	}
	if _, ok := cfg["use"]; ok {
		return getUseList(cfg, "agents", report)
	}

	minAgents, hasMin := intValue(cfg["min_matches"])
	if !hasMin {
		minAgents = 1
	}
	maxAgents, hasMax := intValue(cfg["max_matches"])
	randomize := boolValue(cfg["randomize"])

	rules, err := ruleList(cfg["match"])
	if err != nil {
		report(fmt.Sprintf("Failed to parse agent match: %v", err))
		return nil
	}
	budget := matcher.Unlimited
	if hasMax && !randomize {
		budget = maxAgents
	}
	agentMatcher, err := matcher.NewAllMatcher(rules, budget, matcher.SnakeToCamel)
	if err != nil {
		report(fmt.Sprintf("Failed to parse agent match: %v", err))
		return nil
	}

	agents, err := inv.Agents(ctx)
	if err != nil {
		report(fmt.Sprintf("Failed to fetch agents: %v", err))
		return nil
	}
	var ids []string
	seen := map[string]bool{}
	for _, a := range agents {
		if impl != "" && stringOf(a["agentImpl"]) != string(impl) {
			continue
		}
		if !agentMatcher.Match(a) {
			continue
		}
		id := stringOf(a["id"])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < minAgents {
		report(fmt.Sprintf("Matched %d agents, %d required", len(ids), minAgents))
		return nil
	}
	if randomize && hasMax && len(ids) > maxAgents {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		ids = ids[:maxAgents]
	}
	zap.S().Named("factory").Debugw("matched agents", "ids", ids)
	return ids
}

// allAgents resolves agents of any implementation family. It doubles as the
// target resolver of agent-to-agent tests.
func allAgents(ctx context.Context, inv Inventory, cfg map[string]any, report Fail) []string {
	return getAgents(ctx, inv, cfg, "", report)
}

// rustAgents resolves agents able to run network-level probes.
func rustAgents(ctx context.Context, inv Inventory, cfg map[string]any, report Fail) []string {
	return getAgents(ctx, inv, cfg, synthetics.AgentImplementRust, report)
}

// nodeAgents resolves browser-capable agents, required by page_load tests.
func nodeAgents(ctx context.Context, inv Inventory, cfg map[string]any, report Fail) []string {
	return getAgents(ctx, inv, cfg, synthetics.AgentImplementNode, report)
}
