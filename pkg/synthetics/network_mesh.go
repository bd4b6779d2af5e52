package synthetics

// NetworkMeshTestSettings configure an agent-to-agent network mesh probe.
type NetworkMeshTestSettings struct {
	PingTraceSettings
	NetworkMesh map[string]any
}

func NewNetworkMeshTestSettings() *NetworkMeshTestSettings {
	return &NetworkMeshTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		NetworkMesh:       map[string]any{},
	}
}

func (s *NetworkMeshTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "networkMesh", Get: func() any { return s.NetworkMesh }, Set: setMap(&s.NetworkMesh)})
}

func (s *NetworkMeshTestSettings) TargetPayload() map[string]any { return s.NetworkMesh }

// NetworkMeshTest probes the network path between every pair of listed
// agents.
type NetworkMeshTest struct {
	SynTest
}

// CreateNetworkMeshTest returns a mesh test over the listed agents. When
// usePrivateIPs is set, agents probe each other's local addresses.
func CreateNetworkMeshTest(name string, agentIDs []string, usePrivateIPs bool) *NetworkMeshTest {
	s := NewNetworkMeshTestSettings()
	s.AgentIDs = agentIDs
	s.NetworkMesh["useLocalIp"] = usePrivateIPs
	return &NetworkMeshTest{SynTest: newSynTest(name, TestTypeNetworkMesh, s)}
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *NetworkMeshTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
