package synthetics

// HostnameTestSettings configure a hostname reachability test.
type HostnameTestSettings struct {
	PingTraceSettings
	Hostname map[string]any
}

func NewHostnameTestSettings() *HostnameTestSettings {
	return &HostnameTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		Hostname:          map[string]any{},
	}
}

func (s *HostnameTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "hostname", Get: func() any { return s.Hostname }, Set: setMap(&s.Hostname)})
}

func (s *HostnameTestSettings) TargetPayload() map[string]any { return s.Hostname }

// HostnameTest probes a DNS name resolved by each agent.
type HostnameTest struct {
	SynTest
}

func CreateHostnameTest(name, target string, agentIDs []string) *HostnameTest {
	s := NewHostnameTestSettings()
	s.AgentIDs = agentIDs
	s.Hostname["target"] = target
	return &HostnameTest{SynTest: newSynTest(name, TestTypeHostname, s)}
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *HostnameTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
