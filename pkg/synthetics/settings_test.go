package synthetics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("Settings", func() {
	Context("CanonicalAgentOrder", func() {
		It("sorts numeric ids by value and non-numeric ids after them", func() {
			Expect(synthetics.CanonicalAgentOrder([]string{"10", "2", "abc", "1"})).
				To(Equal([]string{"1", "2", "10", "abc"}))
		})

		It("leaves the input untouched", func() {
			in := []string{"10", "2"}

			out := synthetics.CanonicalAgentOrder(in)

			Expect(in).To(Equal([]string{"10", "2"}))
			Expect(out).To(Equal([]string{"2", "10"}))
		})
	})

	Context("defaults", func() {
		It("builds base settings with the default schedule", func() {
			s := synthetics.NewBaseSettings()

			Expect(s.Common().Period).To(Equal(synthetics.DefaultPeriod))
			Expect(s.Common().Family).To(Equal(synthetics.IPFamilyDual))
			Expect(s.Common().Tasks).To(Equal([]string{"ping", "traceroute"}))
			Expect(s.PingSettings()).To(BeNil())
			Expect(s.TraceSettings()).To(BeNil())
		})

		It("never shares the task list between instances", func() {
			a := synthetics.NewBaseSettings()
			b := synthetics.NewBaseSettings()

			a.Common().Tasks[0] = "dns"

			Expect(b.Common().Tasks[0]).To(Equal("ping"))
		})

		It("builds ping tasks with the probe defaults", func() {
			task := synthetics.NewPingTask()

			Expect(task.Count).To(Equal(5))
			Expect(task.Expiry).To(Equal(3000))
			Expect(task.Protocol).To(Equal(synthetics.ProtocolICMP))
			Expect(task.Port).To(BeZero())
		})

		It("builds trace tasks with the probe defaults", func() {
			task := synthetics.NewTraceTask()

			Expect(task.Count).To(Equal(3))
			Expect(task.Expiry).To(Equal(22500))
			Expect(task.Limit).To(Equal(30))
			Expect(task.Protocol).To(Equal(synthetics.ProtocolICMP))
			Expect(task.Port).To(Equal(33434))
		})

		It("builds health settings with thresholds disabled", func() {
			h := synthetics.NewHealthSettings()

			Expect(h.LatencyCritical).To(BeZero())
			Expect(h.PacketLossCritical).To(BeZero())
			Expect(h.UnhealthySubtestThreshold).To(Equal(1))
			Expect(h.Activation.GracePeriod).To(Equal("1"))
			Expect(h.Activation.TimeUnit).To(Equal("m"))
			Expect(h.Activation.Times).To(Equal("3"))
		})
	})

	Context("agent id encoding", func() {
		It("serializes agent ids in canonical order without reordering the live set", func() {
			test, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"7", "101", "23"})
			Expect(err).NotTo(HaveOccurred())

			wire := synthetics.Encode(test)

			settings := wire["settings"].(map[string]any)
			Expect(settings["agentIds"]).To(Equal([]string{"7", "23", "101"}))
			Expect(test.Base().Settings.Common().AgentIDs).To(Equal([]string{"7", "101", "23"}))
		})
	})
})
