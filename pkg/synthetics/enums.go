package synthetics

import "fmt"

// TestType tags each concrete synthetic test variant. The value is the wire
// string used by the API.
type TestType string

const (
	TestTypeNone        TestType = "<invalid>"
	TestTypeAgent       TestType = "agent"
	TestTypeBGPMonitor  TestType = "bgp_monitor"
	TestTypeDNS         TestType = "dns"
	TestTypeDNSGrid     TestType = "dns_grid"
	TestTypeFlow        TestType = "flow"
	TestTypeHostname    TestType = "hostname"
	TestTypeIP          TestType = "ip"
	TestTypeMesh        TestType = "application_mesh"
	TestTypeNetworkGrid TestType = "network_grid"
	TestTypeNetworkMesh TestType = "network_mesh"
	TestTypePageLoad    TestType = "page_load"
	TestTypeURL         TestType = "url"
)

func (t TestType) String() string {
	return string(t)
}

func ParseTestType(s string) (TestType, error) {
	switch TestType(s) {
	case TestTypeAgent, TestTypeBGPMonitor, TestTypeDNS, TestTypeDNSGrid, TestTypeFlow,
		TestTypeHostname, TestTypeIP, TestTypeMesh, TestTypeNetworkGrid, TestTypeNetworkMesh,
		TestTypePageLoad, TestTypeURL:
		return TestType(s), nil
	default:
		return TestTypeNone, fmt.Errorf("invalid test type: %s", s)
	}
}

// TestStatus is the remote lifecycle state of a deployed test.
type TestStatus string

const (
	TestStatusNone    TestStatus = "<invalid>"
	TestStatusActive  TestStatus = "TEST_STATUS_ACTIVE"
	TestStatusPaused  TestStatus = "TEST_STATUS_PAUSED"
	TestStatusDeleted TestStatus = "TEST_STATUS_DELETED"
)

func (s TestStatus) String() string {
	return string(s)
}

func ParseTestStatus(s string) (TestStatus, error) {
	switch TestStatus(s) {
	case TestStatusActive, TestStatusPaused, TestStatusDeleted:
		return TestStatus(s), nil
	default:
		return TestStatusNone, fmt.Errorf("invalid test status: %s", s)
	}
}

// IPFamily selects the address families a test probes.
type IPFamily string

const (
	IPFamilyUnspecified IPFamily = "IP_FAMILY_UNSPECIFIED"
	IPFamilyDual        IPFamily = "IP_FAMILY_DUAL"
	IPFamilyV4          IPFamily = "IP_FAMILY_V4"
	IPFamilyV6          IPFamily = "IP_FAMILY_V6"
)

func (f IPFamily) String() string {
	return string(f)
}

func ParseIPFamily(s string) (IPFamily, error) {
	switch IPFamily(s) {
	case IPFamilyUnspecified, IPFamilyDual, IPFamilyV4, IPFamilyV6:
		return IPFamily(s), nil
	default:
		return IPFamilyUnspecified, fmt.Errorf("invalid address family: %s", s)
	}
}

type Protocol string

const (
	ProtocolNone Protocol = ""
	ProtocolICMP Protocol = "icmp"
	ProtocolUDP  Protocol = "udp"
	ProtocolTCP  Protocol = "tcp"
)

func (p Protocol) String() string {
	return string(p)
}

func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolNone, ProtocolICMP, ProtocolUDP, ProtocolTCP:
		return Protocol(s), nil
	default:
		return ProtocolNone, fmt.Errorf("invalid protocol: %s", s)
	}
}

// FlowTestSubType selects what kind of traffic entity a flow test follows.
type FlowTestSubType string

const (
	FlowTestSubTypeNone    FlowTestSubType = ""
	FlowTestSubTypeASN     FlowTestSubType = "asn"
	FlowTestSubTypeCDN     FlowTestSubType = "cdn"
	FlowTestSubTypeCountry FlowTestSubType = "country"
	FlowTestSubTypeRegion  FlowTestSubType = "region"
	FlowTestSubTypeCity    FlowTestSubType = "city"
)

func (t FlowTestSubType) String() string {
	return string(t)
}

func ParseFlowTestSubType(s string) (FlowTestSubType, error) {
	switch FlowTestSubType(s) {
	case FlowTestSubTypeASN, FlowTestSubTypeCDN, FlowTestSubTypeCountry,
		FlowTestSubTypeRegion, FlowTestSubTypeCity:
		return FlowTestSubType(s), nil
	default:
		return FlowTestSubTypeNone, fmt.Errorf("invalid flow test sub-type: %s", s)
	}
}

type DirectionType string

const (
	DirectionDst DirectionType = "dst"
	DirectionSrc DirectionType = "src"
)

func (d DirectionType) String() string {
	return string(d)
}

func ParseDirectionType(s string) (DirectionType, error) {
	switch DirectionType(s) {
	case DirectionDst, DirectionSrc:
		return DirectionType(s), nil
	default:
		return "", fmt.Errorf("invalid direction: %s", s)
	}
}

type DNSRecordType string

const (
	DNSRecordA     DNSRecordType = "DNS_RECORD_A"
	DNSRecordAAAA  DNSRecordType = "DNS_RECORD_AAAA"
	DNSRecordCNAME DNSRecordType = "DNS_RECORD_CNAME"
	DNSRecordDNAME DNSRecordType = "DNS_RECORD_DNAME"
	DNSRecordNS    DNSRecordType = "DNS_RECORD_NS"
	DNSRecordMX    DNSRecordType = "DNS_RECORD_MX"
	DNSRecordPTR   DNSRecordType = "DNS_RECORD_PTR"
	DNSRecordSOA   DNSRecordType = "DNS_RECORD_SOA"
)

func (r DNSRecordType) String() string {
	return string(r)
}

func ParseDNSRecordType(s string) (DNSRecordType, error) {
	switch DNSRecordType(s) {
	case DNSRecordA, DNSRecordAAAA, DNSRecordCNAME, DNSRecordDNAME,
		DNSRecordNS, DNSRecordMX, DNSRecordPTR, DNSRecordSOA:
		return DNSRecordType(s), nil
	default:
		return "", fmt.Errorf("invalid DNS record type: %s", s)
	}
}

// AgentStatus is the remote lifecycle state of a probe agent.
type AgentStatus string

const (
	AgentStatusUnspecified AgentStatus = "AGENT_STATUS_UNSPECIFIED"
	AgentStatusOK          AgentStatus = "AGENT_STATUS_OK"
	AgentStatusWait        AgentStatus = "AGENT_STATUS_WAIT"
	AgentStatusDeleted     AgentStatus = "AGENT_STATUS_DELETED"
)

func (s AgentStatus) String() string {
	return string(s)
}

func ParseAgentStatus(s string) (AgentStatus, error) {
	switch AgentStatus(s) {
	case AgentStatusUnspecified, AgentStatusOK, AgentStatusWait, AgentStatusDeleted:
		return AgentStatus(s), nil
	default:
		return AgentStatusUnspecified, fmt.Errorf("invalid agent status: %s", s)
	}
}

// AgentImplementType is the agent implementation family. Network-level test
// types require rust agents; page_load requires node agents.
type AgentImplementType string

const (
	AgentImplementUnspecified AgentImplementType = "IMPLEMENT_TYPE_UNSPECIFIED"
	AgentImplementRust        AgentImplementType = "IMPLEMENT_TYPE_RUST"
	AgentImplementNode        AgentImplementType = "IMPLEMENT_TYPE_NODE"
)

func (t AgentImplementType) String() string {
	return string(t)
}

func ParseAgentImplementType(s string) (AgentImplementType, error) {
	switch AgentImplementType(s) {
	case AgentImplementUnspecified, AgentImplementRust, AgentImplementNode:
		return AgentImplementType(s), nil
	default:
		return AgentImplementUnspecified, fmt.Errorf("invalid agent implementation type: %s", s)
	}
}
