package matcher_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/matcher"
)

var _ = Describe("AllMatcher", func() {
	It("requires every rule to match", func() {
		m, err := matcher.NewAllMatcher([]any{
			map[string]any{"type": "global"},
			map[string]any{"family": "IP_FAMILY_DUAL"},
		}, matcher.Unlimited, nil)
		Expect(err).To(BeNil())

		Expect(m.Match(map[string]any{"type": "global", "family": "IP_FAMILY_DUAL"})).To(BeTrue())
		Expect(m.Match(map[string]any{"type": "global", "family": "IP_FAMILY_V4"})).To(BeFalse())
	})

	It("matches everything when the rule list is empty", func() {
		m, err := matcher.NewAllMatcher(nil, matcher.Unlimited, nil)
		Expect(err).To(BeNil())
		Expect(m.Match(map[string]any{"anything": "goes"})).To(BeTrue())
	})

	It("stops matching once the budget is spent", func() {
		m, err := matcher.NewAllMatcher([]any{map[string]any{"type": "global"}}, 2, nil)
		Expect(err).To(BeNil())

		candidates := []map[string]any{
			{"id": "1", "type": "global"},
			{"id": "2", "type": "private"},
			{"id": "3", "type": "global"},
			{"id": "4", "type": "global"},
		}
		var matched []string
		for _, c := range candidates {
			if m.Match(c) {
				matched = append(matched, c["id"].(string))
			}
		}
		Expect(matched).To(Equal([]string{"1", "3"}))
	})

	It("matches nothing with a zero budget", func() {
		m, err := matcher.NewAllMatcher(nil, 0, nil)
		Expect(err).To(BeNil())
		Expect(m.Match(map[string]any{})).To(BeFalse())
	})

	It("only spends budget on successful matches", func() {
		m, err := matcher.NewAllMatcher([]any{map[string]any{"type": "global"}}, 1, nil)
		Expect(err).To(BeNil())

		Expect(m.Match(map[string]any{"type": "private"})).To(BeFalse())
		Expect(m.Match(map[string]any{"type": "private"})).To(BeFalse())
		Expect(m.Match(map[string]any{"type": "global"})).To(BeTrue())
		Expect(m.Match(map[string]any{"type": "global"})).To(BeFalse())
	})

	It("rejects rules that are not mappings", func() {
		_, err := matcher.NewAllMatcher([]any{"type:global"}, matcher.Unlimited, nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.IsMatchRuleError(err)).To(BeTrue())
	})

	It("supports nested any rules", func() {
		m, err := matcher.NewAllMatcher([]any{
			map[string]any{"type": "global"},
			map[string]any{"any": []any{
				map[string]any{"country": "PL"},
				map[string]any{"country": "DE"},
			}},
		}, matcher.Unlimited, nil)
		Expect(err).To(BeNil())

		Expect(m.Match(map[string]any{"type": "global", "country": "DE"})).To(BeTrue())
		Expect(m.Match(map[string]any{"type": "global", "country": "FR"})).To(BeFalse())
	})
})

var _ = Describe("AnyMatcher", func() {
	It("requires at least one rule to match", func() {
		m, err := matcher.NewAnyMatcher([]any{
			map[string]any{"country": "PL"},
			map[string]any{"country": "DE"},
		}, matcher.Unlimited, nil)
		Expect(err).To(BeNil())

		Expect(m.Match(map[string]any{"country": "PL"})).To(BeTrue())
		Expect(m.Match(map[string]any{"country": "FR"})).To(BeFalse())
	})

	It("matches everything when the rule list is empty", func() {
		m, err := matcher.NewAnyMatcher(nil, matcher.Unlimited, nil)
		Expect(err).To(BeNil())
		Expect(m.Match(map[string]any{"anything": "goes"})).To(BeTrue())
	})
})

var _ = Describe("OneOfEachMatcher", func() {
	It("consumes each value combination once", func() {
		m, err := matcher.NewOneOfEachMatcher(map[string]any{
			"family":  []any{"v4", "v6"},
			"country": []any{"PL", "US"},
		})
		Expect(err).To(BeNil())

		agents := []map[string]any{
			{"id": "1", "family": "v4", "country": "PL"},
			{"id": "2", "family": "v4", "country": "PL"}, // duplicate combination
			{"id": "3", "family": "v6", "country": "PL"},
			{"id": "4", "family": "v4", "country": "US"},
			{"id": "5", "family": "v6", "country": "US"},
			{"id": "6", "family": "v6", "country": "US"}, // duplicate combination
		}
		var matched []string
		for _, a := range agents {
			if m.Match(a) {
				matched = append(matched, a["id"].(string))
			}
		}
		Expect(matched).To(Equal([]string{"1", "3", "4", "5"}))
	})

	It("never matches objects missing a vector property", func() {
		m, err := matcher.NewOneOfEachMatcher(map[string]any{"family": []any{"v4"}})
		Expect(err).To(BeNil())
		Expect(m.Match(map[string]any{"country": "PL"})).To(BeFalse())
	})

	It("rejects values that are not lists", func() {
		_, err := matcher.NewOneOfEachMatcher(map[string]any{"family": "v4"})
		Expect(err).To(HaveOccurred())
		Expect(errors.IsMatchRuleError(err)).To(BeTrue())
	})
})

var _ = Describe("AllFromRules", func() {
	It("builds property matchers from colon-separated rules", func() {
		m, err := matcher.AllFromRules([]string{"type:ip", "settings.family:IP_FAMILY_DUAL"})
		Expect(err).To(BeNil())

		data := map[string]any{
			"type":     "ip",
			"settings": map[string]any{"family": "IP_FAMILY_DUAL"},
		}
		Expect(m.Match(data)).To(BeTrue())
		Expect(m.Match(map[string]any{"type": "ip"})).To(BeFalse())
	})

	It("keeps colons inside the value", func() {
		m, err := matcher.AllFromRules([]string{"target:2001:db8::1"})
		Expect(err).To(BeNil())
		Expect(m.Match(map[string]any{"target": "2001:db8::1"})).To(BeTrue())
	})

	It("rejects rules without a separator", func() {
		_, err := matcher.AllFromRules([]string{"no-separator"})
		Expect(err).To(HaveOccurred())
		Expect(errors.IsMatchRuleError(err)).To(BeTrue())
	})
})
