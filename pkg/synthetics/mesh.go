package synthetics

// MeshTestSettings carry no type-specific payload. The agent set doubles as
// the target set.
type MeshTestSettings struct {
	PingTraceSettings
}

func NewMeshTestSettings() *MeshTestSettings {
	return &MeshTestSettings{PingTraceSettings: newPingTraceSettings(nil)}
}

func (s *MeshTestSettings) Schema() Schema { return s.pingTraceSchema() }

// MeshTest probes every listed agent from every other listed agent.
type MeshTest struct {
	SynTest
}

func CreateMeshTest(name string, agentIDs []string) *MeshTest {
	s := NewMeshTestSettings()
	s.AgentIDs = agentIDs
	return &MeshTest{SynTest: newSynTest(name, TestTypeMesh, s)}
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *MeshTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
