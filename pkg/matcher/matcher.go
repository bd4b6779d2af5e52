// Package matcher evaluates declarative match rules against API objects
// (tests, agents, devices) represented as string-keyed maps or property
// sources. Rules come from YAML configuration or command line filters.
package matcher

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
)

// Matcher decides whether an object satisfies a match rule.
type Matcher interface {
	Match(data any) bool
}

// Labeled is implemented by objects carrying labels; the special "label"
// property matches against them instead of a map key.
type Labeled interface {
	HasLabel(label string) bool
}

// PropertySource exposes an object's matchable properties. Objects that are
// not plain maps implement it to participate in property path lookups.
type PropertySource interface {
	Properties() map[string]any
}

type matchFunc string

const (
	fnDirect    matchFunc = "direct"
	fnRegex     matchFunc = "regex"
	fnContains  matchFunc = "contains"
	fnOneOf     matchFunc = "one_of"
	fnOlderThan matchFunc = "older_than"
	fnNewerThan matchFunc = "newer_than"
)

var fnRx = regexp.MustCompile(`^(regex|contains|one_of|older_than|newer_than)\((.*)\)`)

// PropertyMatcher matches one property, addressed by a dotted path, against
// a value. String values support negation with a leading "!" and the match
// functions regex(), contains(), one_of(), older_than() and newer_than().
type PropertyMatcher struct {
	key      string
	fn       matchFunc
	value    string
	rx       *regexp.Regexp
	options  []string
	ref      time.Time
	refValid bool
	negate   bool
}

// NewPropertyMatcher builds a matcher for one property. The optional
// transform rewrites the property name, e.g. from snake_case configuration
// keys to the camelCase the API uses.
func NewPropertyMatcher(key string, value any, transform func(string) string) (*PropertyMatcher, error) {
	m := &PropertyMatcher{key: key, fn: fnDirect}
	if transform != nil {
		m.key = transform(key)
	}

	s, isString := value.(string)
	if !isString {
		m.value = stringify(value)
		return m, nil
	}
	if strings.HasPrefix(s, "!") {
		m.negate = true
		s = s[1:]
	}
	m.value = s

	if g := fnRx.FindStringSubmatch(s); g != nil {
		switch matchFunc(g[1]) {
		case fnRegex:
			rx, err := regexp.Compile("^(?:" + g[2] + ")")
			if err != nil {
				return nil, errors.NewMatchRuleError(fmt.Sprintf("%s: %s", key, s), fmt.Sprintf("invalid regex: %v", err))
			}
			m.fn, m.rx = fnRegex, rx
		case fnContains:
			m.fn, m.value = fnContains, g[2]
		case fnOneOf:
			opts := strings.Split(g[2], ",")
			for i := range opts {
				opts[i] = strings.TrimSpace(opts[i])
			}
			m.fn, m.options = fnOneOf, opts
		case fnOlderThan:
			m.fn = fnOlderThan
			m.ref, m.refValid = referenceTime(g[2])
		case fnNewerThan:
			m.fn = fnNewerThan
			m.ref, m.refValid = referenceTime(g[2])
		}
	}
	zap.S().Named("matcher").Debugw("property matcher",
		"key", m.key, "value", m.value, "fn", m.fn, "negate", m.negate)
	return m, nil
}

func (m *PropertyMatcher) Match(data any) bool {
	if m.key == "label" {
		if l, ok := data.(Labeled); ok {
			return m.matchLabel(l) != m.negate
		}
	}
	v, ok := lookup(data, m.key)
	if !ok {
		// a missing property never matches, negated or not
		zap.S().Named("matcher").Debugw("property not found", "key", m.key)
		return false
	}
	return m.apply(v) != m.negate
}

func (m *PropertyMatcher) matchLabel(obj Labeled) bool {
	switch m.fn {
	case fnDirect:
		return obj.HasLabel(m.value)
	case fnOneOf:
		for _, l := range m.options {
			if obj.HasLabel(l) {
				return true
			}
		}
		return false
	default:
		zap.S().Named("matcher").Errorw("match function not supported for labels", "fn", m.fn)
		return m.negate
	}
}

func (m *PropertyMatcher) apply(v any) bool {
	switch m.fn {
	case fnRegex:
		return m.rx.MatchString(stringify(v))
	case fnContains:
		return m.contains(v)
	case fnOneOf:
		s := stringify(v)
		for _, o := range m.options {
			if s == o {
				return true
			}
		}
		return false
	case fnOlderThan:
		if !m.refValid {
			return false
		}
		ts, ok := parseTimestamp(stringify(v))
		if !ok {
			zap.S().Named("matcher").Errorw("cannot parse time in object data", "value", v)
			return m.negate
		}
		return ts.Before(m.ref)
	case fnNewerThan:
		if !m.refValid {
			return false
		}
		ts, ok := parseTimestamp(stringify(v))
		if !ok {
			zap.S().Named("matcher").Errorw("cannot parse time in object data", "value", v)
			return m.negate
		}
		return ts.After(m.ref)
	default:
		return stringify(v) == m.value
	}
}

func (m *PropertyMatcher) contains(v any) bool {
	switch x := v.(type) {
	case string:
		return strings.Contains(x, m.value)
	case []string:
		for _, e := range x {
			if e == m.value {
				return true
			}
		}
		return false
	case []any:
		for _, e := range x {
			if stringify(e) == m.value {
				return true
			}
		}
		return false
	default:
		return stringify(v) == m.value
	}
}

// lookup walks a dotted property path through nested maps and property
// sources.
func lookup(data any, key string) (any, bool) {
	obj := data
	for _, k := range strings.Split(key, ".") {
		var props map[string]any
		switch x := obj.(type) {
		case map[string]any:
			props = x
		case PropertySource:
			props = x.Properties()
		default:
			return nil, false
		}
		v, ok := props[k]
		if !ok {
			return nil, false
		}
		obj = v
	}
	return obj, true
}

// stringify renders a value the way it is written in match rules. JSON
// numbers decode as float64; integral ones print without a fraction so that
// they compare equal to configuration integers.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// referenceTime resolves the argument of older_than()/newer_than(): a
// symbolic reference or an ISO timestamp (naive timestamps are taken as
// UTC). An invalid reference yields a matcher that matches nothing.
func referenceTime(arg string) (time.Time, bool) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch arg {
	case "now":
		return now, true
	case "today":
		return midnight, true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), true
	}
	if t, ok := parseTimestamp(arg); ok {
		return t, true
	}
	zap.S().Named("matcher").Errorw("invalid timestamp in match specification", "value", arg)
	return time.Time{}, false
}
