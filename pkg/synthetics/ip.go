package synthetics

import (
	"net/netip"
	"slices"

	"github.com/netsonde/synthctl/pkg/errors"
)

// sortAddressTargets validates the targets as IP addresses and returns them
// in canonical numeric order, so that two tests with the same logical target
// set serialize identically.
func sortAddressTargets(testType TestType, targets []string) ([]string, error) {
	addrs := make([]netip.Addr, 0, len(targets))
	for _, t := range targets {
		a, err := netip.ParseAddr(t)
		if err != nil {
			return nil, errors.NewInvalidTestParameterError(string(testType), "targets", "invalid address '%s'", t)
		}
		addrs = append(addrs, a)
	}
	slices.SortFunc(addrs, func(a, b netip.Addr) int { return a.Compare(b) })
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out, nil
}

// IPTestSettings configure a bare IP address probe.
type IPTestSettings struct {
	PingTraceSettings
	IP map[string]any
}

func NewIPTestSettings() *IPTestSettings {
	return &IPTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		IP:                map[string]any{},
	}
}

func (s *IPTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "ip", Get: func() any { return s.IP }, Set: setMap(&s.IP)})
}

func (s *IPTestSettings) TargetPayload() map[string]any { return s.IP }

// IPTest probes a set of IP addresses from each agent.
type IPTest struct {
	SynTest
}

// CreateIPTest returns a test probing the given addresses. Targets are
// stored in canonical numeric order; invalid addresses are rejected.
func CreateIPTest(name string, targets []string, agentIDs []string) (*IPTest, error) {
	sorted, err := sortAddressTargets(TestTypeIP, targets)
	if err != nil {
		return nil, err
	}
	s := NewIPTestSettings()
	s.AgentIDs = agentIDs
	s.IP["targets"] = sorted
	return &IPTest{SynTest: newSynTest(name, TestTypeIP, s)}, nil
}

// SetTimeout applies the timeout to the configured ping and trace tasks.
func (t *IPTest) SetTimeout(millis int) error {
	t.setTaskTimeouts(millis)
	return nil
}
