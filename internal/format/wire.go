package format

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/synthetics"
)

// internalTestSettings are the settings paths managed by the API. They carry
// no user-relevant information and are hidden from display and diff forms.
var internalTestSettings = []string{
	"tasks",
	"monitoringSettings",
	"rollupLevel",
	"ping.period",
	"trace.period",
	"http.period",
}

// TestWire renders a test for display: the external wire form plus the id
// and the created/modified timestamps.
func TestWire(t synthetics.Test) map[string]any {
	m := synthetics.EncodeFull(t)
	m["created"] = m["cdate"]
	m["modified"] = m["edate"]
	for _, k := range []string{"cdate", "edate", "createdBy", "lastUpdatedBy"} {
		delete(m, k)
	}
	return m
}

// SanitizeTest hides the server-managed noise from a test display form: the
// status while the test is undeployed, the legacy deviceId and the internal
// settings paths. The map is modified in place and returned.
func SanitizeTest(m map[string]any, deployed bool) map[string]any {
	if !deployed {
		delete(m, "status")
	}
	delete(m, "deviceId")
	if settings, ok := m["settings"].(map[string]any); ok {
		hideInternalSettings(settings)
	}
	return m
}

func hideInternalSettings(settings map[string]any) {
	log := zap.S().Named("format")
	for _, attr := range internalTestSettings {
		keys := strings.Split(attr, ".")
		item := settings
		for len(keys) > 1 {
			next, ok := item[keys[0]].(map[string]any)
			if !ok {
				log.Debugw("settings do not carry internal attribute", "attribute", attr)
				item = nil
				break
			}
			item = next
			keys = keys[1:]
		}
		if item != nil {
			delete(item, keys[0])
		}
	}
}

// DisplayTest returns the sanitized display form of a test.
func DisplayTest(t synthetics.Test) map[string]any {
	return SanitizeTest(TestWire(t), t.Base().Deployed())
}

// AgentWire renders an agent map for display. The map is copied shallowly so
// callers can keep using the original.
func AgentWire(agent map[string]any) map[string]any {
	out := make(map[string]any, len(agent))
	for k, v := range agent {
		out[k] = v
	}
	return out
}

// SelectFields filters a wire form down to the given dotted attribute paths.
// Segments are matched against the snake_case display form of each key, one
// level at a time, so "settings.agent_ids" keeps only agent_ids inside
// settings while a bare "settings" keeps the whole subtree. An empty field
// list keeps everything.
func SelectFields(m map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return m
	}
	out := make(map[string]any)
	for k, v := range m {
		display := CamelToSnake(k)
		matched := false
		var rest []string
		for _, f := range fields {
			head, tail, _ := strings.Cut(f, ".")
			if head != display {
				continue
			}
			matched = true
			if tail != "" {
				rest = append(rest, tail)
			}
		}
		if !matched {
			continue
		}
		if child, ok := v.(map[string]any); ok && len(rest) > 0 {
			if filtered := SelectFields(child, rest); len(filtered) > 0 {
				out[k] = filtered
			}
			continue
		}
		out[k] = v
	}
	return out
}

// FieldValue resolves one dotted snake_case path against a wire form and
// renders the value it finds, empty when the path does not exist.
func FieldValue(m map[string]any, path string) string {
	head, tail, _ := strings.Cut(path, ".")
	for k, v := range m {
		if CamelToSnake(k) != head {
			continue
		}
		if tail == "" {
			return renderCell(v)
		}
		if child, ok := v.(map[string]any); ok {
			return FieldValue(child, tail)
		}
		return ""
	}
	return ""
}

// renderCell formats a wire value for a single table cell. Scalar lists are
// comma-joined, nested maps collapse to sorted "key: value" pairs.
func renderCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = renderCell(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", CamelToSnake(k), renderCell(x[k])))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
