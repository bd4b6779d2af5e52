package synthetics

// AgentTestSettings configure an agent-to-agent reachability test.
type AgentTestSettings struct {
	PingTraceSettings
	Agent map[string]any
}

func NewAgentTestSettings() *AgentTestSettings {
	return &AgentTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		Agent:             map[string]any{},
	}
}

func (s *AgentTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "agent", Get: func() any { return s.Agent }, Set: setMap(&s.Agent)})
}

func (s *AgentTestSettings) TargetPayload() map[string]any { return s.Agent }

// AgentTest probes the reachability of another agent.
type AgentTest struct {
	SynTest
}

// CreateAgentTest returns a test probing the agent with the given id from
// each of the listed agents.
func CreateAgentTest(name, target string, agentIDs []string) *AgentTest {
	s := NewAgentTestSettings()
	s.AgentIDs = agentIDs
	s.Agent["target"] = target
	return &AgentTest{SynTest: newSynTest(name, TestTypeAgent, s)}
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *AgentTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
