package synthetics

import (
	"sort"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
)

// GenericTest represents test types the client can list and inspect but not
// construct (bgp_monitor and other partially supported types).
type GenericTest struct {
	SynTest
}

var testRegistry = map[TestType]func() Test{
	TestTypeAgent:       func() Test { return &AgentTest{SynTest: newSynTest("", TestTypeAgent, NewAgentTestSettings())} },
	TestTypeBGPMonitor:  func() Test { return &GenericTest{SynTest: newSynTest("", TestTypeBGPMonitor, NewBaseSettings())} },
	TestTypeDNS:         func() Test { return &DNSTest{SynTest: newSynTest("", TestTypeDNS, NewDNSTestSettings())} },
	TestTypeDNSGrid:     func() Test { return &DNSGridTest{SynTest: newSynTest("", TestTypeDNSGrid, NewDNSGridTestSettings())} },
	TestTypeFlow:        func() Test { return &FlowTest{SynTest: newSynTest("", TestTypeFlow, NewFlowTestSettings())} },
	TestTypeHostname:    func() Test { return &HostnameTest{SynTest: newSynTest("", TestTypeHostname, NewHostnameTestSettings())} },
	TestTypeIP:          func() Test { return &IPTest{SynTest: newSynTest("", TestTypeIP, NewIPTestSettings())} },
	TestTypeMesh:        func() Test { return &MeshTest{SynTest: newSynTest("", TestTypeMesh, NewMeshTestSettings())} },
	TestTypeNetworkGrid: func() Test { return &NetworkGridTest{SynTest: newSynTest("", TestTypeNetworkGrid, NewNetworkGridTestSettings())} },
	TestTypeNetworkMesh: func() Test { return &NetworkMeshTest{SynTest: newSynTest("", TestTypeNetworkMesh, NewNetworkMeshTestSettings())} },
	TestTypePageLoad:    func() Test { return &PageLoadTest{SynTest: newSynTest("", TestTypePageLoad, NewPageLoadTestSettings())} },
	TestTypeURL:         func() Test { return &URLTest{SynTest: newSynTest("", TestTypeURL, NewURLTestSettings())} },
}

// SupportedTestTypes returns the wire names of all decodable test types in
// sorted order.
func SupportedTestTypes() []string {
	out := make([]string, 0, len(testRegistry))
	for t := range testRegistry {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// NewTestFromWire instantiates the concrete test type for the given wire
// form (the content of the API's "test" object) and populates it.
func NewTestFromWire(m map[string]any) (Test, error) {
	raw, ok := m["type"]
	if !ok {
		return nil, errors.NewConfigError("required attribute 'type' missing in test data (%v)", m)
	}
	name, _ := raw.(string)
	typ, err := ParseTestType(name)
	if err != nil {
		return nil, errors.NewUnsupportedTestTypeError(name, SupportedTestTypes())
	}
	ctor, ok := testRegistry[typ]
	if !ok {
		return nil, errors.NewUnsupportedTestTypeError(string(typ), SupportedTestTypes())
	}
	if typ == TestTypeBGPMonitor {
		zap.S().Named("synthetics").Debugw("test type is not fully supported, attributes may be incomplete",
			"type", string(typ))
	}
	t := ctor()
	if err := Decode(t, m); err != nil {
		return nil, err
	}
	return t, nil
}
