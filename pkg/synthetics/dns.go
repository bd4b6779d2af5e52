package synthetics

// DefaultDNSPort is the server port used when none is given.
const DefaultDNSPort = 53

// DNSTestSettings configure a single-target DNS resolution probe.
type DNSTestSettings struct {
	BaseSettings
	DNS map[string]any
}

func NewDNSTestSettings() *DNSTestSettings {
	return &DNSTestSettings{
		BaseSettings: *NewBaseSettings(),
		DNS:          map[string]any{},
	}
}

func (s *DNSTestSettings) Schema() Schema {
	return append(s.commonSchema(),
		Field{Key: "dns", Get: func() any { return s.DNS }, Set: setMap(&s.DNS)})
}

func (s *DNSTestSettings) TaskName() string { return "dns" }

func (s *DNSTestSettings) TargetPayload() map[string]any { return s.DNS }

// DNSTest resolves a single name against a set of servers.
type DNSTest struct {
	SynTest
}

// CreateDNSTest returns a test resolving target against the given servers.
// A zero recordType defaults to an A record query, a zero port to the
// standard DNS port.
func CreateDNSTest(name, target string, agentIDs, servers []string, recordType DNSRecordType, port int) *DNSTest {
	if recordType == "" {
		recordType = DNSRecordA
	}
	if port == 0 {
		port = DefaultDNSPort
	}
	s := NewDNSTestSettings()
	s.AgentIDs = agentIDs
	s.Tasks = []string{"dns"}
	s.DNS["target"] = target
	s.DNS["recordType"] = string(recordType)
	s.DNS["servers"] = servers
	s.DNS["port"] = port
	return &DNSTest{SynTest: newSynTest(name, TestTypeDNS, s)}
}

// SetTimeout sets the resolution timeout.
func (t *DNSTest) SetTimeout(millis int) error {
	t.dnsSettings().DNS["timeout"] = millis
	return nil
}

func (t *DNSTest) dnsSettings() *DNSTestSettings { return t.Settings.(*DNSTestSettings) }
