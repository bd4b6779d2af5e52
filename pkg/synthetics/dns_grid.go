package synthetics

// DNSGridTestSettings configure a DNS fan-out over multiple names.
type DNSGridTestSettings struct {
	BaseSettings
	DNSGrid map[string]any
}

func NewDNSGridTestSettings() *DNSGridTestSettings {
	return &DNSGridTestSettings{
		BaseSettings: *NewBaseSettings(),
		DNSGrid:      map[string]any{},
	}
}

func (s *DNSGridTestSettings) Schema() Schema {
	return append(s.commonSchema(),
		Field{Key: "dnsGrid", Get: func() any { return s.DNSGrid }, Set: setMap(&s.DNSGrid)})
}

func (s *DNSGridTestSettings) TargetPayload() map[string]any { return s.DNSGrid }

// DNSGridTest resolves a set of names against a set of servers.
type DNSGridTest struct {
	SynTest
}

// CreateDNSGridTest returns a test resolving each target against the given
// servers. Targets are stored sorted; a zero recordType defaults to an A
// record query, a zero timeout to the default expiry.
func CreateDNSGridTest(name string, targets []string, agentIDs, servers []string, recordType DNSRecordType, timeout int) *DNSGridTest {
	if recordType == "" {
		recordType = DNSRecordA
	}
	if timeout == 0 {
		timeout = DefaultExpiry
	}
	s := NewDNSGridTestSettings()
	s.AgentIDs = agentIDs
	s.Tasks = []string{"dns"}
	s.DNSGrid["targets"] = sortedStrings(targets)
	s.DNSGrid["type"] = string(recordType)
	s.DNSGrid["servers"] = servers
	s.DNSGrid["timeout"] = timeout
	return &DNSGridTest{SynTest: newSynTest(name, TestTypeDNSGrid, s)}
}

// SetTimeout sets the resolution timeout.
func (t *DNSGridTest) SetTimeout(millis int) error {
	t.gridSettings().DNSGrid["timeout"] = millis
	return nil
}

func (t *DNSGridTest) gridSettings() *DNSGridTestSettings { return t.Settings.(*DNSGridTestSettings) }
