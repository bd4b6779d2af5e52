package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/netsonde/synthctl/internal/config"
	"github.com/netsonde/synthctl/internal/format"
	"github.com/netsonde/synthctl/internal/inventory"
	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/factory"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// runtime carries the machinery shared by all commands. The printer is
// built on first use from the output settings; the API client and the
// inventory cache resolve credentials only when a command reaches for
// them, so operations on local files never need a profile.
type runtime struct {
	cfg    *config.Configuration
	out    io.Writer
	errOut io.Writer

	printer *format.Printer
	client  *synthetics.Client
	inv     *inventory.Client
}

func newRuntime(cfg *config.Configuration) *runtime {
	return &runtime{cfg: cfg, out: os.Stdout, errOut: os.Stderr}
}

// Printer returns the output printer. Commands that override the output
// format do so before the first call.
func (rt *runtime) Printer() *format.Printer {
	if rt.printer == nil {
		rt.printer = format.NewPrinter(rt.out, rt.errOut, rt.cfg.Output.Format, rt.cfg.Output.Color)
	}
	return rt.printer
}

// Client resolves credentials against the profile store and environment
// and returns the API client.
func (rt *runtime) Client() (*synthetics.Client, error) {
	if rt.client != nil {
		return rt.client, nil
	}
	store, err := config.NewStore()
	if err != nil {
		return nil, err
	}
	if err := rt.cfg.Resolve(store); err != nil {
		return nil, err
	}
	transport, err := synthetics.NewHTTPTransport(rt.cfg.Auth.Email, rt.cfg.Auth.Token,
		synthetics.WithAPIURL(rt.cfg.API.URL),
		synthetics.WithProxy(rt.cfg.API.Proxy),
		synthetics.WithCAFile(rt.cfg.API.CAFile),
		synthetics.WithRequestTimeout(rt.cfg.API.Timeout),
	)
	if err != nil {
		return nil, err
	}
	rt.client = synthetics.NewClient(transport)
	return rt.client, nil
}

// Inventory returns the cached device and agent lookup used when building
// tests from configuration files.
func (rt *runtime) Inventory() (*inventory.Client, error) {
	if rt.inv != nil {
		return rt.inv, nil
	}
	client, err := rt.Client()
	if err != nil {
		return nil, err
	}
	var opts []inventory.Option
	if rt.cfg.API.URL != "" {
		opts = append(opts, inventory.WithAPIURL(rt.cfg.API.URL))
	}
	rt.inv = inventory.NewClient(client, rt.cfg.Auth.Email, rt.cfg.Auth.Token, opts...)
	return rt.inv, nil
}

// getTest fetches one test, translating a 404 into the canonical
// user-facing message.
func (rt *runtime) getTest(ctx context.Context, id string) (synthetics.Test, error) {
	client, err := rt.Client()
	if err != nil {
		return nil, err
	}
	t, err := client.GetTest(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, rt.fail("Test with id '%s' does not exist", id)
		}
		return nil, err
	}
	return t, nil
}

// getAgent fetches one agent record, translating a 404 into the canonical
// user-facing message.
func (rt *runtime) getAgent(ctx context.Context, id string) (map[string]any, error) {
	client, err := rt.Client()
	if err != nil {
		return nil, err
	}
	agent, err := client.GetAgent(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, rt.fail("Agent %s does not exist", id)
		}
		return nil, err
	}
	return agent, nil
}

// setTestStatus moves a test into the given status. The test is fetched
// first so a bad id fails with the not-found message instead of a raw API
// error.
func (rt *runtime) setTestStatus(ctx context.Context, id string, status synthetics.TestStatus, verb string) error {
	t, err := rt.getTest(ctx, id)
	if err != nil {
		return err
	}
	client, err := rt.Client()
	if err != nil {
		return err
	}
	if err := client.SetTestStatus(ctx, t.Base().ID(), status); err != nil {
		return err
	}
	rt.Printer().Printf("%s test - id: %s\n", verb, id)
	return nil
}

// newFactory builds the test factory, optionally rejecting unsupported
// scheduling periods instead of rounding them down.
func newFactory(strict bool) *factory.Factory {
	if strict {
		return factory.New(factory.WithStrictPeriods())
	}
	return factory.New()
}

// failSink adapts the printer to the factory failure callback. Factory
// failures surface as printed FAILED lines; the caller turns the nil test
// into errReported.
func (rt *runtime) failSink() factory.Fail {
	return func(msg string) {
		rt.Printer().Failf("%s", msg)
	}
}

// loadTest builds a test from a configuration file, optionally substituting
// "@name@" placeholders with values from "name=value" pairs first. Failures
// are reported as printed FAILED lines and yield a nil test.
func (rt *runtime) loadTest(ctx context.Context, fct *factory.Factory, path string, subs []string) synthetics.Test {
	fail := rt.failSink()
	inv, err := rt.Inventory()
	if err != nil {
		fail(err.Error())
		return nil
	}
	if len(subs) == 0 {
		return fct.LoadTest(ctx, inv, path, fail)
	}
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
	text := string(data)
	for _, s := range subs {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			fail(fmt.Sprintf("Invalid substitution item '%s', expected 'var=value'", s))
			return nil
		}
		text = strings.ReplaceAll(text, "@"+name+"@", value)
	}
	return fct.ParseTest(ctx, inv, factory.ConfigName(path), []byte(text), fail)
}

// applyJSONFlag folds the per-command --json shorthand into the global
// output format. --brief wins over --json to keep tabular summaries usable.
func (rt *runtime) applyJSONFlag(jsonOut, brief bool) {
	if !jsonOut {
		return
	}
	if brief {
		rt.Printer().Warnf("--brief option overrides --json")
		return
	}
	rt.cfg.Output.Format = format.OutputJSON
}
