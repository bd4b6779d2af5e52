package oneshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/synthetics"
)

// RunStatus classifies the outcome of a one-shot test run.
type RunStatus string

const (
	RunStatusNone               RunStatus = "NONE"
	RunStatusSuccess            RunStatus = "SUCCESS"
	RunStatusConfigBuildFailed  RunStatus = "CONFIG_BUILD_FAILED"
	RunStatusCreationFailed     RunStatus = "CREATION_FAILED"
	RunStatusNoHealthData       RunStatus = "NO_HEALTH_DATA"
	RunStatusDeleteFailed       RunStatus = "DELETE_FAILED"
	RunStatusStatusChangeFailed RunStatus = "STATUS_CHANGE_FAILED"
	RunStatusRetryableError     RunStatus = "RETRYABLE_ERROR"
	RunStatusOther              RunStatus = "OTHER"
)

// ErrorRecord is one failure encountered during a run, labeled with the
// operation that produced it.
type ErrorRecord struct {
	Type  string
	Cause string
}

// Report accumulates the outcome of a one-shot run: the final status, poll
// count, parsed health results keyed by target and every error encountered
// along the way.
type Report struct {
	RunID  string
	Status RunStatus
	Polls  int
	Errors []ErrorRecord
	// Results holds the parsed health entries per target, time-ordered.
	Results map[string][]map[string]any

	test   synthetics.Test
	testID string
}

func newReport(test synthetics.Test) *Report {
	r := &Report{
		RunID:   uuid.NewString(),
		Status:  RunStatusNone,
		Results: map[string][]map[string]any{},
	}
	r.attach(test)
	return r
}

// NewReport builds an empty report bound to a test, for rendering query
// results outside of a one-shot run.
func NewReport(test synthetics.Test) *Report {
	return newReport(test)
}

// attach records the test identity. The id is copied eagerly because a
// delete resets it on the test object.
func (r *Report) attach(test synthetics.Test) {
	r.test = test
	if test != nil {
		r.testID = test.Base().ID()
	}
}

// recordError sets the run status and appends a labeled error record.
func (r *Report) recordError(status RunStatus, label, cause string) {
	r.Status = status
	r.appendError(label, cause)
}

// appendError adds a labeled error record without touching the run status.
func (r *Report) appendError(label, cause string) {
	r.Errors = append(r.Errors, ErrorRecord{Type: label, Cause: cause})
}

func (r *Report) TestID() string { return r.testID }

func (r *Report) TestType() string {
	if r.test == nil {
		return ""
	}
	return string(r.test.Base().Type)
}

func (r *Report) TestName() string {
	if r.test == nil {
		return ""
	}
	return r.test.Base().Name
}

func (r *Report) TestTargets() []string {
	if r.test == nil {
		return nil
	}
	return r.test.Base().Targets()
}

func (r *Report) TestAgents() []string {
	if r.test == nil {
		return nil
	}
	return r.test.Base().Settings.Common().AgentIDs
}

// healthTaskTypes are the task payload keys identifying what a health entry
// measured, in probe priority order.
var healthTaskTypes = []string{"ping", "knock", "shake", "dns", "http"}

// setHealth marks the run successful and folds a test health object into
// per-target result entries sorted by time.
func (r *Report) setHealth(health map[string]any) {
	r.Status = RunStatusSuccess
	log := zap.S().Named("oneshot")
	for _, task := range asMaps(health["tasks"]) {
		taskDef, _ := task["task"].(map[string]any)
		target, taskType := taskIdentity(taskDef)
		for _, agent := range asMaps(task["agents"]) {
			info, _ := agent["agent"].(map[string]any)
			for _, h := range asMaps(agent["health"]) {
				entryTarget, entryType := target, taskType
				if entryTarget == "" {
					entryTarget = stringOf(h["dstIp"])
					entryType = stringOf(h["taskType"])
				}
				overall, _ := h["overallHealth"].(map[string]any)
				e := map[string]any{
					"time":       stringOf(overall["time"]),
					"agent_id":   stringOf(info["id"]),
					"agent_addr": stringOf(info["ip"]),
					"task_type":  entryType,
					"loss":       fmt.Sprintf("%v%% (%v)", floatOf(h["packetLoss"])*100, h["packetLossHealth"]),
					"latency":    fmt.Sprintf("%vms (%v)", floatOf(h["avgLatency"])/1000, h["latencyHealth"]),
					"jitter":     fmt.Sprintf("%vms (%v)", floatOf(h["avgJitter"])/1000, h["jitterHealth"]),
				}
				for _, field := range []string{"data", "status", "size"} {
					if v, ok := h[field]; ok {
						e[field] = v
					}
				}
				if data, ok := e["data"].(string); ok && data != "" {
					var parsed any
					if err := json.Unmarshal([]byte(data), &parsed); err != nil {
						log.Errorw("failed to parse JSON in health data", "data", data, "error", err)
					} else {
						e["data"] = parsed
					}
				}
				r.Results[entryTarget] = append(r.Results[entryTarget], e)
			}
		}
	}
	for _, entries := range r.Results {
		sort.SliceStable(entries, func(i, j int) bool {
			return stringOf(entries[i]["time"]) < stringOf(entries[j]["time"])
		})
	}
}

// SetResults marks the run successful and folds measurement documents from
// the results query into per-target entries. Metric objects render as
// "current (health)", nested objects flatten into underscore-joined keys.
func (r *Report) SetResults(docs []map[string]any) {
	r.Status = RunStatusSuccess
	for _, doc := range docs {
		docTime := stringOf(doc["time"])
		for _, agent := range asMaps(doc["agents"]) {
			agentID := stringOf(agent["agentId"])
			agentHealth := stringOf(agent["health"])
			for _, task := range asMaps(agent["tasks"]) {
				for _, taskType := range healthTaskTypes {
					payload, ok := task[taskType].(map[string]any)
					if !ok {
						continue
					}
					target := resultTarget(payload, taskType)
					e := map[string]any{
						"time":      docTime,
						"agent_id":  agentID,
						"task_type": taskType,
					}
					if agentHealth != "" {
						e["health"] = agentHealth
					}
					foldMetrics(e, payload)
					r.Results[target] = append(r.Results[target], e)
				}
			}
		}
	}
	for _, entries := range r.Results {
		sort.SliceStable(entries, func(i, j int) bool {
			return stringOf(entries[i]["time"]) < stringOf(entries[j]["time"])
		})
	}
}

// resultTarget names the probed destination of a measurement payload. DNS
// tasks append the resolving server, mirroring the health entry keys.
func resultTarget(payload map[string]any, taskType string) string {
	target := stringOf(payload["target"])
	if target == "" {
		target = stringOf(payload["dstIp"])
	}
	if taskType == "dns" {
		if server := stringOf(payload["server"]); server != "" {
			return fmt.Sprintf("%s via %s", target, server)
		}
	}
	return target
}

// foldMetrics copies measurement fields into a result entry. A nested map
// with a "current" reading collapses to "current (health)"; other nested
// maps flatten one level with underscore-joined keys.
func foldMetrics(e map[string]any, payload map[string]any) {
	for k, v := range payload {
		switch k {
		case "target", "server", "dstIp":
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			e[k] = v
			continue
		}
		if current, found := m["current"]; found {
			if health := stringOf(m["health"]); health != "" {
				e[k] = fmt.Sprintf("%v (%v)", current, health)
			} else {
				e[k] = fmt.Sprintf("%v", current)
			}
			continue
		}
		for kk, vv := range m {
			e[k+"_"+kk] = vv
		}
	}
}

// taskIdentity extracts the probed target and task type from a task
// payload. Both are empty when the payload carries none of the known task
// keys; callers then fall back to the per-entry destination fields.
func taskIdentity(taskDef map[string]any) (string, string) {
	for _, taskType := range healthTaskTypes {
		payload, ok := taskDef[taskType].(map[string]any)
		if !ok {
			continue
		}
		target := stringOf(payload["target"])
		if taskType == "dns" {
			return fmt.Sprintf("%s via %s", target, stringOf(payload["resolver"])), taskType
		}
		return target, taskType
	}
	return "", ""
}

// ToMap renders the report as a plain document for JSON or YAML output.
func (r *Report) ToMap() map[string]any {
	errs := make([]any, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, map[string]any{"type": e.Type, "cause": e.Cause})
	}
	return map[string]any{
		"run_id": r.RunID,
		"status": string(r.Status),
		"test": map[string]any{
			"id":      r.TestID(),
			"type":    r.TestType(),
			"name":    r.TestName(),
			"targets": r.TestTargets(),
			"agents":  r.TestAgents(),
		},
		"execution": map[string]any{
			"polls":   r.Polls,
			"results": r.Results,
		},
		"errors": errs,
	}
}

func asMaps(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
