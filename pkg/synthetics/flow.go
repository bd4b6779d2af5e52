package synthetics

import (
	"github.com/netsonde/synthctl/pkg/errors"
)

// FlowTestSettings configure a traffic-direction flow probe.
type FlowTestSettings struct {
	PingTraceSettings
	Flow map[string]any
}

func NewFlowTestSettings() *FlowTestSettings {
	return &FlowTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		Flow:              map[string]any{},
	}
}

func (s *FlowTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "flow", Get: func() any { return s.Flow }, Set: setMap(&s.Flow)})
}

func (s *FlowTestSettings) TargetPayload() map[string]any { return s.Flow }

// FlowTestOptions hold the parameters of CreateFlowTest. TargetType,
// Direction and InetDirection are required.
type FlowTestOptions struct {
	TargetType                  FlowTestSubType
	Direction                   DirectionType
	InetDirection               DirectionType
	MaxIPTargets                int // default 10
	MaxProviders                int // default 3
	TargetRefreshIntervalMillis int // default 43200000 (12h)
}

// FlowTest probes targets discovered from observed traffic flows.
type FlowTest struct {
	SynTest
}

func CreateFlowTest(name, target string, agentIDs []string, opts FlowTestOptions) (*FlowTest, error) {
	if opts.TargetType == "" {
		return nil, errors.NewInvalidTestParameterError(string(TestTypeFlow), "target_type", "is required")
	}
	if opts.Direction == "" {
		return nil, errors.NewInvalidTestParameterError(string(TestTypeFlow), "direction", "is required")
	}
	if opts.InetDirection == "" {
		return nil, errors.NewInvalidTestParameterError(string(TestTypeFlow), "inet_direction", "is required")
	}
	if opts.MaxIPTargets == 0 {
		opts.MaxIPTargets = 10
	}
	if opts.MaxProviders == 0 {
		opts.MaxProviders = 3
	}
	if opts.TargetRefreshIntervalMillis == 0 {
		opts.TargetRefreshIntervalMillis = 43200000
	}
	s := NewFlowTestSettings()
	s.AgentIDs = agentIDs
	s.Flow["target"] = target
	s.Flow["type"] = string(opts.TargetType)
	s.Flow["direction"] = string(opts.Direction)
	s.Flow["inetDirection"] = string(opts.InetDirection)
	s.Flow["maxIpTargets"] = opts.MaxIPTargets
	s.Flow["maxProviders"] = opts.MaxProviders
	s.Flow["targetRefreshIntervalMillis"] = opts.TargetRefreshIntervalMillis
	return &FlowTest{SynTest: newSynTest(name, TestTypeFlow, s)}, nil
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *FlowTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
