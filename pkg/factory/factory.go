// Package factory builds synthetic tests from declarative YAML documents.
// A document names a test type and its parameters and describes the probe
// targets and agents either as literal lists or as match rules resolved
// against live inventory.
package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/netsonde/synthctl/pkg/synthetics"
)

// Fail receives every configuration failure. The handler decides whether to
// raise, exit or collect; the factory guards each call site so a returning
// handler never causes a crash.
type Fail func(msg string)

// Inventory supplies the live records that match rules evaluate against.
type Inventory interface {
	Agents(ctx context.Context) ([]map[string]any, error)
	Devices(ctx context.Context) ([]map[string]any, error)
	Interfaces(ctx context.Context, deviceID string) ([]map[string]any, error)
}

type buildFunc func(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test

type loaderFunc func(ctx context.Context, inv Inventory, cfg map[string]any, report Fail) []string

// testEntry wires a config test type to its constructor and resolvers.
type testEntry struct {
	build           buildFunc
	targets         loaderFunc
	agents          loaderFunc
	requiresTargets bool
}

var testEntries = map[string]testEntry{
	"network_grid": {build: makeNetworkGridTest, targets: addressTargets, agents: rustAgents, requiresTargets: true},
	"ip":           {build: makeIPTest, targets: addressTargets, agents: rustAgents, requiresTargets: true},
	"agent":        {build: makeAgentTest, targets: allAgents, agents: rustAgents, requiresTargets: true},
	"dns":          {build: makeDNSTest, targets: domainTargets, agents: rustAgents, requiresTargets: true},
	"dns_grid":     {build: makeDNSGridTest, targets: domainTargets, agents: rustAgents, requiresTargets: true},
	"hostname":     {build: makeHostnameTest, targets: domainTargets, agents: rustAgents, requiresTargets: true},
	"mesh":         {build: makeMeshTest, targets: noTargets, agents: rustAgents},
	"page_load":    {build: makePageLoadTest, targets: urlTargets, agents: nodeAgents, requiresTargets: true},
	"url":          {build: makeURLTest, targets: urlTargets, agents: rustAgents, requiresTargets: true},
	"flow":         {build: makeFlowTest, targets: anyStrTargets, agents: rustAgents, requiresTargets: true},
}

// SupportedConfigTypes returns the test types the factory can build, sorted.
func SupportedConfigTypes() []string {
	out := make([]string, 0, len(testEntries))
	for t := range testEntries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Factory builds tests from configuration documents.
type Factory struct {
	strictPeriods bool
}

// Option adjusts factory behavior.
type Option func(*Factory)

// WithStrictPeriods makes an unsupported scheduling period a configuration
// failure instead of rounding it down to the nearest allowed value.
func WithStrictPeriods() Option {
	return func(f *Factory) { f.strictPeriods = true }
}

func New(opts ...Option) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// errorHandler prefixes failure messages with the config file and, once
// known, the test name or type.
func errorHandler(fail Fail, configName, testName, testType string) Fail {
	return func(msg string) {
		info := "Failed to create test: cfg file: " + configName
		if testName != "" {
			info += ", name: " + testName
		}
		if testType != "" {
			info += ", type: " + testType
		}
		fail(info + " - " + msg)
	}
}

const defaultNameTemplate = "__auto:{config_name}:{host}:{iso_date}"

var namePlaceholderRx = regexp.MustCompile(`\{(\w+)\}`)

// expandTestName renders a test name template. Supported placeholders are
// {config_name}, {host} and {iso_date} (UTC, second precision); anything
// else is a reported failure.
func expandTestName(tmpl, configName string, report Fail) (string, bool) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	values := map[string]string{
		"config_name": configName,
		"host":        host,
		"iso_date":    time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
	}
	unknown := ""
	name := namePlaceholderRx.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := values[key]
		if !ok {
			if unknown == "" {
				unknown = key
			}
			return m
		}
		return v
	})
	if unknown != "" {
		report(fmt.Sprintf("Test name template (%s) contains unsupported keyword '%s'", tmpl, unknown))
		return "", false
	}
	return name, true
}

// Create builds a test from a parsed configuration document. Every failure
// is reported through fail with config file, test name and type context; the
// result is nil whenever a failure was reported.
func (f *Factory) Create(ctx context.Context, inv Inventory, configName string, cfg map[string]any, fail Fail) synthetics.Test {
	report := errorHandler(fail, configName, "", "")
	var missing []string
	for _, section := range []string{"test", "agents"} {
		if _, ok := cfg[section]; !ok {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		report("Mandatory sections missing in configuration: " + strings.Join(missing, ", "))
		return nil
	}
	testCfg, ok := cfg["test"].(map[string]any)
	if !ok {
		report("'test' section must be a mapping")
		return nil
	}
	testType, _ := testCfg["type"].(string)
	if testType == "" {
		report("No 'test.type' in configuration")
		return nil
	}
	entry, ok := testEntries[testType]
	if !ok {
		report(fmt.Sprintf("Unsupported test type: %s (supported types: %s)",
			testType, strings.Join(SupportedConfigTypes(), ", ")))
		return nil
	}
	report = errorHandler(fail, configName, "", testType)

	tmpl := defaultNameTemplate
	if explicit, ok := testCfg["name"].(string); ok {
		tmpl = explicit
	}
	name, ok := expandTestName(tmpl, configName, report)
	if !ok {
		return nil
	}
	report = errorHandler(fail, configName, name, "")

	log := zap.S().Named("factory")
	var targets []string
	if entry.requiresTargets {
		raw, present := cfg["targets"]
		if !present {
			report("Required 'targets' section is missing in configuration")
			return nil
		}
		targetsCfg, ok := raw.(map[string]any)
		if !ok {
			report("'targets' section must be a mapping")
			return nil
		}
		targets = entry.targets(ctx, inv, targetsCfg, report)
		if len(targets) == 0 {
			report("No targets matched test configuration")
			return nil
		}
		log.Debugw("resolved targets", "test", name, "targets", targets)
	} else if _, present := cfg["targets"]; present {
		log.Warnw("'targets' section is ignored for this test type", "type", testType)
	}

	agentsCfg, ok := cfg["agents"].(map[string]any)
	if !ok {
		report("'agents' section must be a mapping")
		return nil
	}
	agentIDs := entry.agents(ctx, inv, agentsCfg, report)
	if len(agentIDs) == 0 {
		report("No agents matched configuration")
		return nil
	}
	log.Debugw("resolved agents", "test", name, "agents", agentIDs)

	test := entry.build(name, targets, agentIDs, testCfg, report)
	if test == nil {
		return nil
	}
	if !f.applyCommonParams(test, testCfg, report) {
		return nil
	}
	return test
}

// LoadTest reads a YAML test configuration from path and builds the test.
// The config name available to name templates is the file stem.
func (f *Factory) LoadTest(ctx context.Context, inv Inventory, path string, fail Fail) synthetics.Test {
	info, err := os.Stat(path)
	if err != nil {
		fail(fmt.Sprintf("Test configuration file '%s' does not exist", path))
		return nil
	}
	if !info.Mode().IsRegular() {
		fail(fmt.Sprintf("Test configuration '%s' is not a file", path))
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fail(fmt.Sprintf("Failed to load test config: %v", err))
		return nil
	}
	return f.ParseTest(ctx, inv, ConfigName(path), data, fail)
}

// ParseTest builds a test from raw YAML content under the given config name.
func (f *Factory) ParseTest(ctx context.Context, inv Inventory, configName string, data []byte, fail Fail) synthetics.Test {
	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fail(fmt.Sprintf("Failed to load test config: %v", err))
		return nil
	}
	return f.Create(ctx, inv, configName, cfg, fail)
}

// ConfigName derives the config name of a file path: the base name without
// extension.
func ConfigName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
