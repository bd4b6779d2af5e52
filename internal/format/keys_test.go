package format_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/internal/format"
)

var _ = Describe("CamelToSnake", func() {
	DescribeTable("converts wire keys to display form",
		func(in, want string) {
			Expect(format.CamelToSnake(in)).To(Equal(want))
		},
		Entry("plain word", "name", "name"),
		Entry("two words", "agentIds", "agent_ids"),
		Entry("three words", "notificationChannels", "notification_channels"),
		Entry("acronym run", "HTTPStatus", "http_status"),
		Entry("trailing acronym", "useLocalIP", "use_local_ip"),
		Entry("digit boundary", "ipv4Targets", "ipv4_targets"),
		Entry("already snake", "agent_ids", "agent_ids"),
		Entry("hyphenated segments", "health-checkPeriod", "health-check_period"),
		Entry("empty", "", ""),
	)
})

var _ = Describe("TransformKeys", func() {
	It("rewrites keys through nested maps and lists", func() {
		in := map[string]any{
			"agentIds": []string{"101"},
			"healthSettings": map[string]any{
				"latencyCritical": 90.0,
			},
			"tasks": []any{
				map[string]any{"taskType": "ping"},
				"traceroute",
			},
		}
		out := format.TransformKeys(in, format.CamelToSnake)
		Expect(out).To(HaveKey("agent_ids"))
		Expect(out["health_settings"]).To(HaveKeyWithValue("latency_critical", 90.0))
		tasks := out["tasks"].([]any)
		Expect(tasks[0]).To(HaveKeyWithValue("task_type", "ping"))
		Expect(tasks[1]).To(Equal("traceroute"))
	})

	It("leaves the input untouched", func() {
		in := map[string]any{"agentIds": "x"}
		format.TransformKeys(in, format.CamelToSnake)
		Expect(in).To(HaveKey("agentIds"))
	})
})
