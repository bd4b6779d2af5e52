package format_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/internal/format"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("DiffWire", func() {
	It("reports changed scalars under their display path", func() {
		changes := format.DiffWire(
			map[string]any{"agentIds": "101", "name": "a"},
			map[string]any{"agentIds": "102", "name": "a"},
		)
		Expect(changes).To(Equal([]format.Change{
			{Path: "agent_ids", Left: "101", Right: "102"},
		}))
	})

	It("marks one-sided paths as missing", func() {
		changes := format.DiffWire(
			map[string]any{"a": "1", "b": "2"},
			map[string]any{"a": "1", "c": "3"},
		)
		Expect(changes).To(Equal([]format.Change{
			{Path: "b", Left: "2", Right: format.Missing},
			{Path: "c", Left: format.Missing, Right: "3"},
		}))
	})

	It("walks nested maps", func() {
		changes := format.DiffWire(
			map[string]any{"settings": map[string]any{"period": 60, "family": "IP_FAMILY_DUAL"}},
			map[string]any{"settings": map[string]any{"period": 300, "family": "IP_FAMILY_DUAL"}},
		)
		Expect(changes).To(Equal([]format.Change{
			{Path: "settings.period", Left: "60", Right: "300"},
		}))
	})

	It("treats numeric wire variants of the same value as equal", func() {
		changes := format.DiffWire(
			map[string]any{"period": 60},
			map[string]any{"period": float64(60)},
		)
		Expect(changes).To(BeEmpty())
	})

	It("compares list elements by index", func() {
		changes := format.DiffWire(
			map[string]any{"targets": []string{"192.0.2.7", "192.0.2.8"}},
			map[string]any{"targets": []string{"192.0.2.7"}},
		)
		Expect(changes).To(Equal([]format.Change{
			{Path: "targets[1]", Left: "192.0.2.8", Right: format.Missing},
		}))
	})

	It("recurses into lists of maps", func() {
		changes := format.DiffWire(
			map[string]any{"hops": []any{map[string]any{"ip": "10.0.0.1"}, map[string]any{"ip": "10.0.0.2"}}},
			map[string]any{"hops": []any{map[string]any{"ip": "10.0.0.1"}, map[string]any{"ip": "10.0.0.9"}}},
		)
		Expect(changes).To(Equal([]format.Change{
			{Path: "hops[1].ip", Left: "10.0.0.2", Right: "10.0.0.9"},
		}))
	})

	It("sorts changes by path", func() {
		changes := format.DiffWire(
			map[string]any{"z": "1", "a": "1"},
			map[string]any{"z": "2", "a": "2"},
		)
		Expect(changes[0].Path).To(Equal("a"))
		Expect(changes[1].Path).To(Equal("z"))
	})
})

var _ = Describe("DiffTests", func() {
	It("reports target and period differences", func() {
		t1, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		t2, err := synthetics.CreateIPTest("probe", []string{"192.0.2.8"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		t2.Base().Settings.Common().Period = 300

		changes := format.DiffTests(t1, t2)
		paths := make([]string, 0, len(changes))
		for _, c := range changes {
			paths = append(paths, c.Path)
		}
		Expect(paths).To(ConsistOf("settings.ip.targets[0]", "settings.period"))
	})

	It("ignores the internal settings", func() {
		t1, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		t2, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		t2.Base().Settings.Common().Tasks = []string{"ping"}

		Expect(format.DiffTests(t1, t2)).To(BeEmpty())
	})

	It("finds no differences between identical tests", func() {
		t1, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())
		t2, err := synthetics.CreateIPTest("probe", []string{"192.0.2.7"}, []string{"101"})
		Expect(err).NotTo(HaveOccurred())

		Expect(format.DiffTests(t1, t2)).To(BeEmpty())
	})
})
