package synthetics

import (
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
)

// AllowedPeriods lists the scheduling periods (in seconds) accepted by the
// API, in ascending order.
var AllowedPeriods = []int{60, 120, 300, 600, 900, 1800, 3600}

// Test is implemented by every synthetic test type.
type Test interface {
	Element
	Base() *SynTest
}

// TimeoutSetter is implemented by test types with an adjustable probe
// timeout. Implementations reject values below the type's minimum.
type TimeoutSetter interface {
	SetTimeout(millis int) error
}

// SynTest carries the state shared by all test types. The id, creation and
// modification records are populated by the API and never sent back on
// create or update.
type SynTest struct {
	Name     string
	Type     TestType
	Status   TestStatus
	Labels   []string
	Settings TestSettings

	id            string
	cdate         string
	edate         string
	createdBy     UserInfo
	lastUpdatedBy UserInfo
}

func newSynTest(name string, typ TestType, settings TestSettings) SynTest {
	return SynTest{
		Name:     name,
		Type:     typ,
		Status:   TestStatusActive,
		Settings: settings,
		id:       "0",
	}
}

func (t *SynTest) Base() *SynTest { return t }

func (t *SynTest) Schema() Schema {
	return Schema{
		{Key: "name", Required: true, Get: func() any { return t.Name }, Set: setString(&t.Name)},
		{Key: "type", Get: func() any { return string(t.Type) }, Set: setEnum(&t.Type, ParseTestType)},
		{Key: "status", Get: func() any { return string(t.Status) }, Set: setEnum(&t.Status, ParseTestStatus)},
		{Key: "labels", Get: func() any { return t.Labels }, Set: setStringSlice(&t.Labels)},
		{Key: "settings", Get: func() any { return t.Settings }, Set: setElement(t.Settings)},
		{Key: "id", Internal: true, Get: func() any { return t.id }, Set: setString(&t.id)},
		{Key: "cdate", Internal: true, Get: func() any { return t.cdate }, Set: setString(&t.cdate)},
		{Key: "edate", Internal: true, Get: func() any { return t.edate }, Set: setString(&t.edate)},
		{Key: "createdBy", Internal: true, Get: func() any { return &t.createdBy }, Set: setElement(&t.createdBy)},
		{Key: "lastUpdatedBy", Internal: true, Get: func() any { return &t.lastUpdatedBy }, Set: setElement(&t.lastUpdatedBy)},
	}
}

// ID returns the API-assigned test id, "0" while undeployed.
func (t *SynTest) ID() string {
	if t.id == "" {
		return "0"
	}
	return t.id
}

// Deployed reports whether the test exists on the remote API.
func (t *SynTest) Deployed() bool {
	return t.id != "" && t.id != "0"
}

// Undeploy resets the local deployment state after the remote test has been
// deleted.
func (t *SynTest) Undeploy() {
	t.id = "0"
}

// CDate returns the creation timestamp, zero when unknown or unparsable.
func (t *SynTest) CDate() time.Time {
	return parseAPITime(t.cdate)
}

// EDate returns the last modification timestamp, zero when unknown or
// unparsable.
func (t *SynTest) EDate() time.Time {
	return parseAPITime(t.edate)
}

func parseAPITime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (t *SynTest) CreatedBy() string     { return t.createdBy.String() }
func (t *SynTest) LastUpdatedBy() string { return t.lastUpdatedBy.String() }

// PinRevision copies the modification token of a fetched test, making a
// subsequent update conditional on the remote test being unchanged since
// prev was read.
func (t *SynTest) PinRevision(prev Test) {
	t.edate = prev.Base().edate
}

// Period returns the scheduling period in seconds.
func (t *SynTest) Period() int {
	if t.Settings == nil {
		return DefaultPeriod
	}
	return t.Settings.Common().Period
}

// SetPeriod sets the scheduling period, rounding down to the nearest allowed
// value. Values below the minimum fall back to the default period. Returns
// the period actually applied.
func (t *SynTest) SetPeriod(seconds int) int {
	applied := DefaultPeriod
	for _, p := range AllowedPeriods {
		if p > seconds {
			break
		}
		applied = p
	}
	t.Settings.Common().Period = applied
	return applied
}

// HasLabel reports whether the test carries the given label.
func (t *SynTest) HasLabel(label string) bool {
	return slices.Contains(t.Labels, label)
}

// Targets returns the configured target view of the test: the single target
// or the sorted target list from the type-specific payload. Mesh tests have
// no explicit targets, their agents are the targets.
func (t *SynTest) Targets() []string {
	if t.Settings != nil {
		if p := t.Settings.TargetPayload(); p != nil {
			if target, ok := p["target"].(string); ok {
				return []string{target}
			}
			if raw, ok := p["targets"]; ok {
				if targets, err := asStringSlice(raw); err == nil {
					return sortedStrings(targets)
				}
			}
		}
		if t.Type == TestTypeMesh {
			return t.Settings.Common().AgentIDs
		}
	}
	zap.S().Named("synthetics").Debugw("test has no targets", "name", t.Name, "type", t.Type)
	return nil
}

// ConfiguredTasks returns the names of the task sub-configurations that are
// active: "ping" and "trace" when the corresponding task is enabled in the
// settings task list, plus the settings-level task of the type (dns, http,
// page-load).
func (t *SynTest) ConfiguredTasks() []string {
	if t.Settings == nil {
		return nil
	}
	tasks := t.Settings.Common().Tasks
	var out []string
	if p := t.Settings.PingSettings(); p != nil && slices.Contains(tasks, p.TaskName()) {
		out = append(out, "ping")
	}
	if tr := t.Settings.TraceSettings(); tr != nil && slices.Contains(tasks, tr.TaskName()) {
		out = append(out, "trace")
	}
	if n := t.Settings.TaskName(); n != "" {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// setTaskTimeouts applies a probe timeout to the ping and trace tasks that
// are active in the settings task list. Inactive tasks are left untouched.
func (t *SynTest) setTaskTimeouts(millis int) {
	tasks := t.ConfiguredTasks()
	if slices.Contains(tasks, "ping") {
		t.Settings.PingSettings().Expiry = millis
	}
	if slices.Contains(tasks, "trace") {
		t.Settings.TraceSettings().Expiry = millis
	}
}

// Properties renders the test as a nested map for rule matching, adding the
// derived read-only attributes on top of the full wire form.
func (t *SynTest) Properties() map[string]any {
	m := EncodeFull(t)
	m["deployed"] = t.Deployed()
	m["targets"] = t.Targets()
	m["created_by"] = t.createdBy.String()
	m["last_updated_by"] = t.lastUpdatedBy.String()
	return m
}

// ToWire renders a test in the wire shape expected by the test create and
// update operations.
func ToWire(t Test) map[string]any {
	return map[string]any{"test": Encode(t)}
}
