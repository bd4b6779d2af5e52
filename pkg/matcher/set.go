package matcher

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
)

// Unlimited disables the match budget of a set matcher.
const Unlimited = -1

// tupleSep joins tuple elements into set keys; it cannot occur in property
// values.
const tupleSep = "\x1f"

// setMatcher carries the shared state of AllMatcher and AnyMatcher: the rule
// list and the match budget. A budget of zero is exhausted immediately;
// Unlimited disables it. Once exhausted, the matcher rejects everything.
type setMatcher struct {
	matchers   []Matcher
	maxMatches int
	done       bool
}

func newSetMatcher(rules []any, maxMatches int, transform func(string) string) (setMatcher, error) {
	s := setMatcher{maxMatches: maxMatches}
	for _, e := range rules {
		rule, ok := e.(map[string]any)
		if !ok {
			return s, errors.NewMatchRuleError(rules, fmt.Sprintf("match rules must be mappings, got %T", e))
		}
		for _, k := range sortedKeys(rule) {
			m, err := newRuleMatcher(k, rule[k], transform)
			if err != nil {
				return s, err
			}
			s.matchers = append(s.matchers, m)
		}
	}
	zap.S().Named("matcher").Debugw("set matcher", "rules", len(s.matchers), "max_matches", maxMatches)
	return s, nil
}

// newRuleMatcher builds the matcher of one rule entry. The keys "all", "any"
// and "one_of_each" introduce nested set matchers; anything else is a
// property match. Nested set matchers carry no budget and no property
// transform of their own.
func newRuleMatcher(key string, value any, transform func(string) string) (Matcher, error) {
	switch key {
	case "all":
		nested, ok := value.([]any)
		if !ok {
			return nil, errors.NewMatchRuleError(value, "'all' takes a list of rules")
		}
		return NewAllMatcher(nested, Unlimited, nil)
	case "any":
		nested, ok := value.([]any)
		if !ok {
			return nil, errors.NewMatchRuleError(value, "'any' takes a list of rules")
		}
		return NewAnyMatcher(nested, Unlimited, nil)
	case "one_of_each":
		nested, ok := value.(map[string]any)
		if !ok {
			return nil, errors.NewMatchRuleError(value, "'one_of_each' takes a mapping of lists")
		}
		return NewOneOfEachMatcher(nested)
	default:
		return NewPropertyMatcher(key, value, transform)
	}
}

// gate reports whether matching may proceed and retires the matcher when
// its budget is spent.
func (s *setMatcher) gate() bool {
	if s.done {
		return false
	}
	if s.maxMatches == 0 {
		zap.S().Named("matcher").Debugw("match limit reached")
		s.done = true
		return false
	}
	return true
}

func (s *setMatcher) consume() {
	if s.maxMatches > 0 {
		s.maxMatches--
	}
}

// AllMatcher matches objects satisfying every rule. An empty rule list
// matches everything.
type AllMatcher struct {
	setMatcher
}

func NewAllMatcher(rules []any, maxMatches int, transform func(string) string) (*AllMatcher, error) {
	s, err := newSetMatcher(rules, maxMatches, transform)
	if err != nil {
		return nil, err
	}
	return &AllMatcher{setMatcher: s}, nil
}

func (a *AllMatcher) Match(data any) bool {
	if !a.gate() {
		return false
	}
	for _, m := range a.matchers {
		if !m.Match(data) {
			return false
		}
	}
	a.consume()
	return true
}

// AnyMatcher matches objects satisfying at least one rule. An empty rule
// list matches everything.
type AnyMatcher struct {
	setMatcher
}

func NewAnyMatcher(rules []any, maxMatches int, transform func(string) string) (*AnyMatcher, error) {
	s, err := newSetMatcher(rules, maxMatches, transform)
	if err != nil {
		return nil, err
	}
	return &AnyMatcher{setMatcher: s}, nil
}

func (a *AnyMatcher) Match(data any) bool {
	if !a.gate() {
		return false
	}
	if len(a.matchers) == 0 {
		a.consume()
		return true
	}
	for _, m := range a.matchers {
		if m.Match(data) {
			a.consume()
			return true
		}
	}
	return false
}

// OneOfEachMatcher matches each combination of the given property values at
// most once: the rule mapping's value lists span a cartesian product, and
// every matched tuple is consumed. Used to pick one agent per distinct
// (family, location, ...) combination.
type OneOfEachMatcher struct {
	keys []string
	set  map[string]struct{}
}

func NewOneOfEachMatcher(data map[string]any) (*OneOfEachMatcher, error) {
	keys := sortedKeys(data)
	lists := make([][]string, len(keys))
	for i, k := range keys {
		vals, ok := data[k].([]any)
		if !ok {
			return nil, errors.NewMatchRuleError(data, fmt.Sprintf("'one_of_each' values must be lists, got %T for '%s'", data[k], k))
		}
		lists[i] = make([]string, len(vals))
		for j, v := range vals {
			lists[i][j] = stringify(v)
		}
	}

	m := &OneOfEachMatcher{keys: keys, set: make(map[string]struct{})}
	var build func(i int, acc []string)
	build = func(i int, acc []string) {
		if i == len(lists) {
			m.set[strings.Join(acc, tupleSep)] = struct{}{}
			return
		}
		for _, v := range lists[i] {
			next := make([]string, len(acc)+1)
			copy(next, acc)
			next[len(acc)] = v
			build(i+1, next)
		}
	}
	build(0, nil)
	zap.S().Named("matcher").Debugw("one_of_each matcher", "keys", keys, "combinations", len(m.set))
	return m, nil
}

func (m *OneOfEachMatcher) Match(data any) bool {
	if len(m.set) == 0 {
		return false
	}
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		v, _ := lookup(data, k)
		parts[i] = stringify(v)
	}
	key := strings.Join(parts, tupleSep)
	if _, ok := m.set[key]; !ok {
		return false
	}
	delete(m.set, key)
	zap.S().Named("matcher").Debugw("matched combination", "remaining", len(m.set))
	return true
}

// AllFromRules builds an AllMatcher from "<property>:<value>" strings, the
// form match rules take on the command line.
func AllFromRules(rules []string) (*AllMatcher, error) {
	specs := make([]any, 0, len(rules))
	for _, r := range rules {
		k, v, found := strings.Cut(r, ":")
		if !found {
			return nil, errors.NewMatchRuleError(r, "must have format '<property>:<value>'")
		}
		specs = append(specs, map[string]any{k: v})
	}
	return NewAllMatcher(specs, Unlimited, nil)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
