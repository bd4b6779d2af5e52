package synthetics

// NetworkGridTestSettings configure a many-target address grid probe.
type NetworkGridTestSettings struct {
	PingTraceSettings
	NetworkGrid map[string]any
}

func NewNetworkGridTestSettings() *NetworkGridTestSettings {
	return &NetworkGridTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		NetworkGrid:       map[string]any{},
	}
}

func (s *NetworkGridTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "networkGrid", Get: func() any { return s.NetworkGrid }, Set: setMap(&s.NetworkGrid)})
}

func (s *NetworkGridTestSettings) TargetPayload() map[string]any { return s.NetworkGrid }

// NetworkGridTest probes a grid of IP addresses from each agent.
type NetworkGridTest struct {
	SynTest
}

// CreateNetworkGridTest returns a test probing the given addresses. Targets
// are stored in canonical numeric order; invalid addresses are rejected.
func CreateNetworkGridTest(name string, targets []string, agentIDs []string) (*NetworkGridTest, error) {
	sorted, err := sortAddressTargets(TestTypeNetworkGrid, targets)
	if err != nil {
		return nil, err
	}
	s := NewNetworkGridTestSettings()
	s.AgentIDs = agentIDs
	s.NetworkGrid["targets"] = sorted
	return &NetworkGridTest{SynTest: newSynTest(name, TestTypeNetworkGrid, s)}, nil
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *NetworkGridTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
