package synthetics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
)

// DefaultResultPeriods is the number of test periods covered by the default
// results and trace query window.
const DefaultResultPeriods = 3

// Client provides typed access to the synthetics API on top of a Transport.
type Client struct {
	transport Transport
}

func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// ListAgents returns all agents visible to the account.
func (c *Client) ListAgents(ctx context.Context) ([]map[string]any, error) {
	r, err := c.transport.Req(ctx, OpAgentsList, Request{})
	if err != nil {
		return nil, err
	}
	return asMapSlice(r)
}

// Agents is shorthand for ListAgents.
func (c *Client) Agents(ctx context.Context) ([]map[string]any, error) {
	return c.ListAgents(ctx)
}

// GetAgent returns the agent with the given id.
func (c *Client) GetAgent(ctx context.Context, id string) (map[string]any, error) {
	r, err := c.transport.Req(ctx, OpAgentGet, Request{ID: id})
	if err != nil {
		return nil, err
	}
	return asMap(r)
}

// UpdateAgent replaces the agent configuration.
func (c *Client) UpdateAgent(ctx context.Context, id string, agent map[string]any) (map[string]any, error) {
	r, err := c.transport.Req(ctx, OpAgentUpdate, Request{ID: id, Body: map[string]any{"agent": agent}})
	if err != nil {
		return nil, err
	}
	return asMap(r)
}

// PatchAgent modifies the agent fields named by the modified mask,
// e.g. "agent.alias". The read-only name field is stripped before sending,
// the API rejects patches that include it.
func (c *Client) PatchAgent(ctx context.Context, id string, agent map[string]any, modified string) (map[string]any, error) {
	patch := make(map[string]any, len(agent))
	for k, v := range agent {
		if k == "name" {
			continue
		}
		patch[k] = v
	}
	r, err := c.transport.Req(ctx, OpAgentPatch, Request{
		ID:   id,
		Body: map[string]any{"agent": patch, "mask": modified},
	})
	if err != nil {
		return nil, err
	}
	return asMap(r)
}

// DeleteAgent removes the agent from the account.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	_, err := c.transport.Req(ctx, OpAgentDelete, Request{ID: id})
	return err
}

// ListTestsRaw returns all tests as raw API payloads. With presets, preset
// tests provisioned by the platform are included.
func (c *Client) ListTestsRaw(ctx context.Context, presets bool) ([]map[string]any, error) {
	r, err := c.transport.Req(ctx, OpTestsList, Request{Params: presetParams(presets)})
	if err != nil {
		return nil, err
	}
	return asMapSlice(r)
}

// ListTests returns all tests decoded into their concrete types. Tests of
// types the registry does not know are skipped with a warning, so that
// unknown preset types do not break listing.
func (c *Client) ListTests(ctx context.Context, presets bool) ([]Test, error) {
	raw, err := c.ListTestsRaw(ctx, presets)
	if err != nil {
		return nil, err
	}
	log := zap.S().Named("client")
	tests := make([]Test, 0, len(raw))
	for _, m := range raw {
		t, err := NewTestFromWire(m)
		if err != nil {
			log.Warnw("skipping unparsable test", "id", m["id"], "error", err)
			continue
		}
		tests = append(tests, t)
	}
	return tests, nil
}

// GetTestRaw returns the raw API payload of a single test.
func (c *Client) GetTestRaw(ctx context.Context, id string) (map[string]any, error) {
	r, err := c.transport.Req(ctx, OpTestGet, Request{ID: id})
	if err != nil {
		return nil, err
	}
	return asMap(r)
}

// GetTest returns a single test decoded into its concrete type.
func (c *Client) GetTest(ctx context.Context, id string) (Test, error) {
	m, err := c.GetTestRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTestFromWire(m)
}

// CreateTest deploys the test and returns the server's view of it,
// including the assigned id.
func (c *Client) CreateTest(ctx context.Context, t Test) (Test, error) {
	r, err := c.transport.Req(ctx, OpTestCreate, Request{Body: ToWire(t)})
	if err != nil {
		return nil, err
	}
	m, err := asMap(r)
	if err != nil {
		return nil, err
	}
	return NewTestFromWire(m)
}

// UpdateTest replaces the remote test configuration. For a test that has not
// been deployed yet, the target id must be supplied explicitly. A pinned
// revision (see SynTest.PinRevision) is sent along so the API can reject
// concurrent modifications.
func (c *Client) UpdateTest(ctx context.Context, t Test, id string) (Test, error) {
	id, err := resolveTestID(t, id)
	if err != nil {
		return nil, err
	}
	body := Encode(t)
	if e := t.Base().edate; e != "" {
		body["edate"] = e
	}
	r, err := c.transport.Req(ctx, OpTestUpdate, Request{ID: id, Body: map[string]any{"test": body}})
	if err != nil {
		return nil, err
	}
	m, err := asMap(r)
	if err != nil {
		return nil, err
	}
	return NewTestFromWire(m)
}

// PatchTest modifies the remote test fields named by the modified mask,
// e.g. "test.settings.period".
func (c *Client) PatchTest(ctx context.Context, t Test, modified string, id string) (Test, error) {
	id, err := resolveTestID(t, id)
	if err != nil {
		return nil, err
	}
	body := ToWire(t)
	body["mask"] = modified
	r, err := c.transport.Req(ctx, OpTestPatch, Request{ID: id, Body: body})
	if err != nil {
		return nil, err
	}
	m, err := asMap(r)
	if err != nil {
		return nil, err
	}
	return NewTestFromWire(m)
}

// DeleteTest removes the remote test and marks the local object undeployed.
func (c *Client) DeleteTest(ctx context.Context, t Test) error {
	base := t.Base()
	if !base.Deployed() {
		return errors.NewUndeployedTestError(base.Name)
	}
	if err := c.DeleteTestByID(ctx, base.ID()); err != nil {
		return err
	}
	base.Undeploy()
	return nil
}

// DeleteTestByID removes the remote test with the given id.
func (c *Client) DeleteTestByID(ctx context.Context, id string) error {
	_, err := c.transport.Req(ctx, OpTestDelete, Request{ID: id})
	return err
}

// SetTestStatus activates, pauses or soft-deletes the remote test.
func (c *Client) SetTestStatus(ctx context.Context, id string, status TestStatus) error {
	_, err := c.transport.Req(ctx, OpTestStatusUpdate, Request{
		ID:   id,
		Body: map[string]any{"id": id, "status": string(status)},
	})
	return err
}

// HealthRequest selects the tests and time window of a health query.
type HealthRequest struct {
	TestIDs  []string
	Start    time.Time
	End      time.Time
	Augment  bool
	AgentIDs []string
	TaskIDs  []string
}

// GetHealthForTests returns health records for the requested tests, one
// entry per test.
func (c *Client) GetHealthForTests(ctx context.Context, req HealthRequest) ([]map[string]any, error) {
	r, err := c.transport.Req(ctx, OpGetHealthForTests, Request{
		Body: map[string]any{
			"ids":       stringsOrEmpty(req.TestIDs),
			"startTime": req.Start.UTC().Format(time.RFC3339),
			"endTime":   req.End.UTC().Format(time.RFC3339),
			"augment":   req.Augment,
			"agentIds":  stringsOrEmpty(req.AgentIDs),
			"taskIds":   stringsOrEmpty(req.TaskIDs),
		},
	})
	if err != nil {
		return nil, err
	}
	return asMapSlice(r)
}

// ResultsRequest selects the window of a test results query. A zero Start
// and End defaults the window to the last Periods test periods (three when
// Periods is zero).
type ResultsRequest struct {
	Test     Test
	Start    time.Time
	End      time.Time
	Periods  int
	AgentIDs []string
	TaskIDs  []string
}

// Results returns measurement results of a deployed test.
func (c *Client) Results(ctx context.Context, req ResultsRequest) ([]map[string]any, error) {
	base := req.Test.Base()
	if !base.Deployed() {
		return nil, errors.NewUndeployedTestError(base.Name)
	}
	start, end := queryWindow(req.Start, req.End, req.Periods, base.Period())
	r, err := c.transport.Req(ctx, OpGetResultsForTests, Request{
		Body: map[string]any{
			"ids":       []string{base.ID()},
			"startTime": start.Format(time.RFC3339),
			"endTime":   end.Format(time.RFC3339),
			"agentIds":  stringsOrEmpty(req.AgentIDs),
			"taskIds":   stringsOrEmpty(req.TaskIDs),
		},
	})
	if err != nil {
		return nil, err
	}
	return asMapSlice(r)
}

// TraceRequest selects the window of a path trace query. The window
// defaults like in ResultsRequest.
type TraceRequest struct {
	Test      Test
	Start     time.Time
	End       time.Time
	Periods   int
	AgentIDs  []string
	TargetIPs []string
}

// Trace returns network path trace data of a deployed test.
func (c *Client) Trace(ctx context.Context, req TraceRequest) (map[string]any, error) {
	base := req.Test.Base()
	if !base.Deployed() {
		return nil, errors.NewUndeployedTestError(base.Name)
	}
	start, end := queryWindow(req.Start, req.End, req.Periods, base.Period())
	r, err := c.transport.Req(ctx, OpGetTraceForTest, Request{
		ID: base.ID(),
		Body: map[string]any{
			"id":        base.ID(),
			"startTime": start.Format(time.RFC3339),
			"endTime":   end.Format(time.RFC3339),
			"agentIds":  stringsOrEmpty(req.AgentIDs),
			"targetIps": stringsOrEmpty(req.TargetIPs),
		},
	})
	if err != nil {
		return nil, err
	}
	return asMap(r)
}

// queryWindow computes the effective [start, end] of a data query. Zero
// start and end yield a window of periods test periods ending now.
func queryWindow(start, end time.Time, periods, periodSeconds int) (time.Time, time.Time) {
	if periods <= 0 {
		periods = DefaultResultPeriods
	}
	if end.IsZero() {
		end = time.Now().UTC()
	} else {
		end = end.UTC()
	}
	if start.IsZero() {
		start = end.Add(-time.Duration(periods*periodSeconds) * time.Second)
	} else {
		start = start.UTC()
	}
	return start, end
}

func resolveTestID(t Test, id string) (string, error) {
	base := t.Base()
	if base.Deployed() {
		return base.ID(), nil
	}
	if id == "" {
		return "", errors.NewUndeployedTestError(base.Name)
	}
	return id, nil
}

func presetParams(presets bool) map[string]string {
	if !presets {
		return nil
	}
	return map[string]string{"presets": "true"}
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func asMapSlice(v any) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.NewConfigError("expected a list in API response, got %T", v)
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, err := asMap(it)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
