package synthetics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("Test Constructors", func() {
	It("starts every new test active and undeployed", func() {
		test := synthetics.CreateHostnameTest("probe", "web.example.com", nil)

		Expect(test.Status).To(Equal(synthetics.TestStatusActive))
		Expect(test.Deployed()).To(BeFalse())
	})

	Context("ip", func() {
		It("stores targets in canonical address order", func() {
			test, err := synthetics.CreateIPTest("probe",
				[]string{"192.0.2.10", "192.0.2.9", "2001:db8::1"}, []string{"101"})

			Expect(err).NotTo(HaveOccurred())
			payload := test.Settings.TargetPayload()
			Expect(payload["targets"]).To(Equal([]string{"192.0.2.9", "192.0.2.10", "2001:db8::1"}))
		})

		It("rejects targets that are not addresses", func() {
			_, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7", "web.example.com"}, nil)

			Expect(errors.IsInvalidTestParameterError(err)).To(BeTrue())
			Expect(err).To(MatchError("ip test: invalid 'targets': invalid address 'web.example.com'"))
		})
	})

	Context("network grid", func() {
		It("validates grid targets like ip targets", func() {
			test, err := synthetics.CreateNetworkGridTest("grid",
				[]string{"198.51.100.9", "198.51.100.8"}, []string{"101"})

			Expect(err).NotTo(HaveOccurred())
			Expect(test.Settings.TargetPayload()["targets"]).To(Equal([]string{"198.51.100.8", "198.51.100.9"}))
		})

		It("rejects invalid grid targets", func() {
			_, err := synthetics.CreateNetworkGridTest("grid", []string{"not-an-address"}, nil)

			Expect(err).To(MatchError("network_grid test: invalid 'targets': invalid address 'not-an-address'"))
		})
	})

	Context("url", func() {
		It("fills the http defaults", func() {
			test, err := synthetics.CreateURLTest("probe", "https://example.com", []string{"101"},
				synthetics.URLTestOptions{})

			Expect(err).NotTo(HaveOccurred())
			payload := test.Settings.TargetPayload()
			Expect(payload["target"]).To(Equal("https://example.com"))
			Expect(payload["expiry"]).To(Equal(synthetics.MinHTTPTimeout))
			httpCfg := payload["http"].(map[string]any)
			Expect(httpCfg["method"]).To(Equal("GET"))
			Expect(httpCfg["headers"]).To(Equal(map[string]string{}))
			Expect(httpCfg["ignoreTlsErrors"]).To(BeFalse())
			Expect(test.Settings.Common().Tasks).To(Equal([]string{"http"}))
		})

		It("adds ping and trace tasks on request", func() {
			test, err := synthetics.CreateURLTest("probe", "https://example.com", nil,
				synthetics.URLTestOptions{Ping: true, Trace: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(test.Settings.Common().Tasks).To(Equal([]string{"http", "ping", "traceroute"}))
		})

		It("rejects timeouts below the http minimum", func() {
			_, err := synthetics.CreateURLTest("probe", "https://example.com", nil,
				synthetics.URLTestOptions{Expiry: 4999})

			Expect(errors.IsInvalidTestParameterError(err)).To(BeTrue())
			Expect(err).To(MatchError("url test: invalid 'timeout': test timeout must be >= 5000ms (got 4999)"))
		})

		It("accepts the minimum timeout exactly", func() {
			test, err := synthetics.CreateURLTest("probe", "https://example.com", nil,
				synthetics.URLTestOptions{Expiry: 5000})

			Expect(err).NotTo(HaveOccurred())
			Expect(test.Settings.TargetPayload()["expiry"]).To(Equal(5000))
		})

		It("enforces the minimum on later timeout changes", func() {
			test, err := synthetics.CreateURLTest("probe", "https://example.com", nil,
				synthetics.URLTestOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(test.SetTimeout(4500)).NotTo(Succeed())
			Expect(test.SetTimeout(6000)).To(Succeed())
			Expect(test.Settings.TargetPayload()["expiry"]).To(Equal(6000))
		})
	})

	Context("page load", func() {
		It("builds the page load payload", func() {
			test, err := synthetics.CreatePageLoadTest("probe", "https://example.com", []string{"101"},
				synthetics.PageLoadTestOptions{CSSSelectors: map[string]string{"hero": "#hero"}})

			Expect(err).NotTo(HaveOccurred())
			payload := test.Settings.TargetPayload()
			Expect(payload["target"]).To(Equal("https://example.com"))
			Expect(payload["timeout"]).To(Equal(synthetics.MinHTTPTimeout))
			Expect(payload["css_selectors"]).To(Equal(map[string]string{"hero": "#hero"}))
			Expect(test.Settings.Common().Tasks).To(Equal([]string{"page-load"}))
		})

		It("rejects timeouts below the http minimum", func() {
			_, err := synthetics.CreatePageLoadTest("probe", "https://example.com", nil,
				synthetics.PageLoadTestOptions{Timeout: 4999})

			Expect(err).To(MatchError("page_load test: invalid 'timeout': test timeout must be >= 5000ms (got 4999)"))
		})
	})

	Context("dns", func() {
		It("defaults to an A record query on the standard port", func() {
			test := synthetics.CreateDNSTest("probe", "example.com", []string{"101"},
				[]string{"198.51.100.53"}, "", 0)

			payload := test.Settings.TargetPayload()
			Expect(payload["recordType"]).To(Equal("DNS_RECORD_A"))
			Expect(payload["port"]).To(Equal(53))
			Expect(payload["servers"]).To(Equal([]string{"198.51.100.53"}))
			Expect(test.Settings.Common().Tasks).To(Equal([]string{"dns"}))
		})

		It("keeps an explicit record type and port", func() {
			test := synthetics.CreateDNSTest("probe", "example.com", nil, nil,
				synthetics.DNSRecordAAAA, 5353)

			payload := test.Settings.TargetPayload()
			Expect(payload["recordType"]).To(Equal("DNS_RECORD_AAAA"))
			Expect(payload["port"]).To(Equal(5353))
		})

		It("sets the resolution timeout without a floor", func() {
			test := synthetics.CreateDNSTest("probe", "example.com", nil, nil, "", 0)

			Expect(test.SetTimeout(2500)).To(Succeed())
			Expect(test.Settings.TargetPayload()["timeout"]).To(Equal(2500))
		})
	})

	Context("dns grid", func() {
		It("sorts grid targets and defaults the query parameters", func() {
			test := synthetics.CreateDNSGridTest("grid",
				[]string{"web.example.com", "api.example.com"}, []string{"101"},
				[]string{"198.51.100.53"}, "", 0)

			payload := test.Settings.TargetPayload()
			Expect(payload["targets"]).To(Equal([]string{"api.example.com", "web.example.com"}))
			Expect(payload["type"]).To(Equal("DNS_RECORD_A"))
			Expect(payload["timeout"]).To(Equal(synthetics.DefaultExpiry))
		})
	})

	Context("flow", func() {
		It("requires the traffic selection parameters", func() {
			_, err := synthetics.CreateFlowTest("flow", "US", nil, synthetics.FlowTestOptions{})

			Expect(errors.IsInvalidTestParameterError(err)).To(BeTrue())
			Expect(err).To(MatchError("flow test: invalid 'target_type': is required"))
		})

		It("rejects a missing direction", func() {
			_, err := synthetics.CreateFlowTest("flow", "US", nil,
				synthetics.FlowTestOptions{TargetType: synthetics.FlowTestSubTypeASN})

			Expect(err).To(MatchError("flow test: invalid 'direction': is required"))
		})

		It("fills the discovery defaults", func() {
			test, err := synthetics.CreateFlowTest("flow", "US", []string{"101"},
				synthetics.FlowTestOptions{
					TargetType:    synthetics.FlowTestSubTypeCountry,
					Direction:     synthetics.DirectionDst,
					InetDirection: synthetics.DirectionDst,
				})

			Expect(err).NotTo(HaveOccurred())
			payload := test.Settings.TargetPayload()
			Expect(payload["target"]).To(Equal("US"))
			Expect(payload["type"]).To(Equal("country"))
			Expect(payload["maxIpTargets"]).To(Equal(10))
			Expect(payload["maxProviders"]).To(Equal(3))
			Expect(payload["targetRefreshIntervalMillis"]).To(Equal(43200000))
		})
	})

	Context("agent and mesh", func() {
		It("targets another agent by id", func() {
			test := synthetics.CreateAgentTest("probe", "4141", []string{"101"})

			Expect(test.Type).To(Equal(synthetics.TestTypeAgent))
			Expect(test.Settings.TargetPayload()["target"]).To(Equal("4141"))
		})

		It("builds a mesh without a target payload", func() {
			test := synthetics.CreateMeshTest("full-mesh", []string{"101", "102"})

			Expect(test.Type).To(Equal(synthetics.TestTypeMesh))
			Expect(test.Settings.TargetPayload()).To(BeNil())
		})

		It("records the private address preference of a network mesh", func() {
			test := synthetics.CreateNetworkMeshTest("net-mesh", []string{"101", "102"}, true)

			Expect(test.Settings.TargetPayload()["useLocalIp"]).To(BeTrue())
		})
	})
})
