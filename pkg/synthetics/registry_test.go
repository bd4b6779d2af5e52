package synthetics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("Test Registry", func() {
	It("lists the supported wire types sorted", func() {
		Expect(synthetics.SupportedTestTypes()).To(Equal([]string{
			"agent", "application_mesh", "bgp_monitor", "dns", "dns_grid", "flow",
			"hostname", "ip", "network_grid", "network_mesh", "page_load", "url",
		}))
	})

	Context("NewTestFromWire", func() {
		It("decodes a test into its concrete type", func() {
			test, err := synthetics.NewTestFromWire(wireTest("77"))

			Expect(err).NotTo(HaveOccurred())
			Expect(test).To(BeAssignableToTypeOf(&synthetics.IPTest{}))
			Expect(test.Base().Name).To(Equal("wire-probe"))
			Expect(test.Base().ID()).To(Equal("77"))
			Expect(test.Base().Status).To(Equal(synthetics.TestStatusActive))
		})

		It("falls back to a generic test for partially supported types", func() {
			test, err := synthetics.NewTestFromWire(map[string]any{"name": "edge-bgp", "type": "bgp_monitor"})

			Expect(err).NotTo(HaveOccurred())
			Expect(test).To(BeAssignableToTypeOf(&synthetics.GenericTest{}))
		})

		It("fails without a type attribute", func() {
			_, err := synthetics.NewTestFromWire(map[string]any{"name": "typeless"})

			Expect(errors.IsConfigError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("required attribute 'type' missing")))
		})

		It("names the supported types when the type is unknown", func() {
			_, err := synthetics.NewTestFromWire(map[string]any{"name": "odd", "type": "quantum"})

			Expect(errors.IsUnsupportedTestTypeError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("unsupported test type: quantum")))
			Expect(err).To(MatchError(ContainSubstring("supported types: agent, application_mesh")))
		})

		It("propagates decode failures", func() {
			_, err := synthetics.NewTestFromWire(map[string]any{
				"name":   "probe",
				"type":   "ip",
				"status": "TEST_STATUS_BROKEN",
			})

			Expect(err).To(MatchError(ContainSubstring("invalid test status: TEST_STATUS_BROKEN")))
		})
	})

	It("round-trips every constructible type through its wire form", func() {
		ipTest, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7", "192.0.2.9"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		gridTest, err := synthetics.CreateNetworkGridTest("probe", []string{"198.51.100.8"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		urlTest, err := synthetics.CreateURLTest("probe", "https://example.com", []string{"101"},
			synthetics.URLTestOptions{Ping: true, Headers: map[string]string{"X-Probe": "1"}})
		Expect(err).NotTo(HaveOccurred())
		pageTest, err := synthetics.CreatePageLoadTest("probe", "https://example.com", []string{"101"},
			synthetics.PageLoadTestOptions{Trace: true})
		Expect(err).NotTo(HaveOccurred())
		flowTest, err := synthetics.CreateFlowTest("probe", "US", []string{"101"},
			synthetics.FlowTestOptions{
				TargetType:    synthetics.FlowTestSubTypeCountry,
				Direction:     synthetics.DirectionDst,
				InetDirection: synthetics.DirectionSrc,
			})
		Expect(err).NotTo(HaveOccurred())

		tests := []synthetics.Test{
			ipTest,
			gridTest,
			urlTest,
			pageTest,
			flowTest,
			synthetics.CreateDNSTest("probe", "example.com", []string{"101"}, []string{"198.51.100.53"}, "", 0),
			synthetics.CreateDNSGridTest("probe", []string{"example.com"}, []string{"101"}, []string{"198.51.100.53"}, "", 0),
			synthetics.CreateHostnameTest("probe", "web.example.com", []string{"101"}),
			synthetics.CreateAgentTest("probe", "4141", []string{"101"}),
			synthetics.CreateMeshTest("probe", []string{"101", "102"}),
			synthetics.CreateNetworkMeshTest("probe", []string{"101", "102"}, true),
		}

		for _, original := range tests {
			typeName := string(original.Base().Type)
			wire := synthetics.Encode(original)

			decoded, err := synthetics.NewTestFromWire(wire)

			Expect(err).NotTo(HaveOccurred(), typeName)
			Expect(decoded).To(BeAssignableToTypeOf(original), typeName)
			Expect(synthetics.Encode(decoded)).To(Equal(wire), typeName)
		}
	})
})
