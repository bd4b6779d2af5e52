package synthetics

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/creasty/defaults"
)

const (
	DefaultPeriod = 60
	DefaultExpiry = 5000
	DefaultFamily = IPFamilyDual
)

// DefaultTasks returns the default active task list for ping/trace capable
// test types. Fresh slice per call so instances never alias.
func DefaultTasks() []string {
	return []string{"ping", "traceroute"}
}

// DefaultHTTPValidCodes returns HTTP status codes considered healthy.
func DefaultHTTPValidCodes() []int {
	return []int{200, 201}
}

// DefaultDNSValidCodes returns DNS status codes considered healthy.
func DefaultDNSValidCodes() []int {
	return []int{1, 2, 3}
}

// ActivationSettings controls when consecutive unhealthy results raise an
// alarm. TimeWindow and Times are strings on the wire.
type ActivationSettings struct {
	GracePeriod string `default:"1"`
	TimeUnit    string `default:"m"`
	TimeWindow  string `default:""`
	Times       string `default:"3"`
}

func NewActivationSettings() *ActivationSettings {
	a := &ActivationSettings{}
	defaults.MustSet(a)
	return a
}

func (a *ActivationSettings) Schema() Schema {
	return Schema{
		{Key: "gracePeriod", Get: func() any { return a.GracePeriod }, Set: setString(&a.GracePeriod)},
		{Key: "timeUnit", Get: func() any { return a.TimeUnit }, Set: setString(&a.TimeUnit)},
		{Key: "timeWindow", Get: func() any { return a.TimeWindow }, Set: setString(&a.TimeWindow)},
		{Key: "times", Get: func() any { return a.Times }, Set: setString(&a.Times)},
	}
}

// HealthSettings holds the alerting thresholds shared by all test types.
// Zero thresholds disable the corresponding check.
type HealthSettings struct {
	LatencyCritical           float64
	LatencyWarning            float64
	LatencyCriticalStddev     float64
	LatencyWarningStddev      float64
	PacketLossCritical        int
	PacketLossWarning         int
	JitterCritical            float64
	JitterWarning             float64
	JitterCriticalStddev      float64
	JitterWarningStddev       float64
	HTTPLatencyCritical       float64
	HTTPLatencyWarning        float64
	HTTPLatencyCriticalStddev float64
	HTTPLatencyWarningStddev  float64
	HTTPValidCodes            []int
	DNSValidCodes             []int
	UnhealthySubtestThreshold int `default:"1"`
	Activation                *ActivationSettings
}

func NewHealthSettings() *HealthSettings {
	h := &HealthSettings{Activation: NewActivationSettings()}
	defaults.MustSet(h)
	return h
}

func (h *HealthSettings) Schema() Schema {
	if h.Activation == nil {
		h.Activation = NewActivationSettings()
	}
	return Schema{
		{Key: "latencyCritical", Get: func() any { return h.LatencyCritical }, Set: setFloat(&h.LatencyCritical)},
		{Key: "latencyWarning", Get: func() any { return h.LatencyWarning }, Set: setFloat(&h.LatencyWarning)},
		{Key: "latencyCriticalStddev", Get: func() any { return h.LatencyCriticalStddev }, Set: setFloat(&h.LatencyCriticalStddev)},
		{Key: "latencyWarningStddev", Get: func() any { return h.LatencyWarningStddev }, Set: setFloat(&h.LatencyWarningStddev)},
		{Key: "packetLossCritical", Get: func() any { return h.PacketLossCritical }, Set: setInt(&h.PacketLossCritical)},
		{Key: "packetLossWarning", Get: func() any { return h.PacketLossWarning }, Set: setInt(&h.PacketLossWarning)},
		{Key: "jitterCritical", Get: func() any { return h.JitterCritical }, Set: setFloat(&h.JitterCritical)},
		{Key: "jitterWarning", Get: func() any { return h.JitterWarning }, Set: setFloat(&h.JitterWarning)},
		{Key: "jitterCriticalStddev", Get: func() any { return h.JitterCriticalStddev }, Set: setFloat(&h.JitterCriticalStddev)},
		{Key: "jitterWarningStddev", Get: func() any { return h.JitterWarningStddev }, Set: setFloat(&h.JitterWarningStddev)},
		{Key: "httpLatencyCritical", Get: func() any { return h.HTTPLatencyCritical }, Set: setFloat(&h.HTTPLatencyCritical)},
		{Key: "httpLatencyWarning", Get: func() any { return h.HTTPLatencyWarning }, Set: setFloat(&h.HTTPLatencyWarning)},
		{Key: "httpLatencyCriticalStddev", Get: func() any { return h.HTTPLatencyCriticalStddev }, Set: setFloat(&h.HTTPLatencyCriticalStddev)},
		{Key: "httpLatencyWarningStddev", Get: func() any { return h.HTTPLatencyWarningStddev }, Set: setFloat(&h.HTTPLatencyWarningStddev)},
		{Key: "httpValidCodes", Get: func() any { return h.HTTPValidCodes }, Set: setIntSlice(&h.HTTPValidCodes)},
		{Key: "dnsValidCodes", Get: func() any { return h.DNSValidCodes }, Set: setIntSlice(&h.DNSValidCodes)},
		{Key: "unhealthySubtestThreshold", Get: func() any { return h.UnhealthySubtestThreshold }, Set: setInt(&h.UnhealthySubtestThreshold)},
		{Key: "activation", Get: func() any { return h.Activation }, Set: setElement(h.Activation)},
	}
}

// UserInfo identifies the creator or last modifier of a test.
type UserInfo struct {
	ID       string
	Email    string
	FullName string
}

func (u *UserInfo) Schema() Schema {
	return Schema{
		{Key: "id", Get: func() any { return u.ID }, Set: setString(&u.ID)},
		{Key: "email", Get: func() any { return u.Email }, Set: setString(&u.Email)},
		{Key: "fullName", Get: func() any { return u.FullName }, Set: setString(&u.FullName)},
	}
}

func (u *UserInfo) String() string {
	if u.ID == "" && u.Email == "" && u.FullName == "" {
		return "<empty>"
	}
	if u.FullName != "" {
		return fmt.Sprintf("%s user_id: %s e-mail: %s", u.FullName, u.ID, u.Email)
	}
	return fmt.Sprintf("user_id: %s e-mail: %s", u.ID, u.Email)
}

// SynTestSettings holds the fields common to every test type.
type SynTestSettings struct {
	Family               IPFamily
	Period               int
	AgentIDs             []string
	Tasks                []string
	Health               *HealthSettings
	NotificationChannels []string
}

func newSynTestSettings(agentIDs []string, tasks []string) SynTestSettings {
	return SynTestSettings{
		Family:   DefaultFamily,
		Period:   DefaultPeriod,
		AgentIDs: agentIDs,
		Tasks:    tasks,
		Health:   NewHealthSettings(),
	}
}

// CanonicalAgentOrder sorts agent ids deterministically: numeric ids compare
// by value (zero-padded to a fixed width), non-numeric ids lexically after
// them. Two tests with the same logical agent set serialize identically,
// which keeps diffs stable.
func CanonicalAgentOrder(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return agentSortKey(out[i]) < agentSortKey(out[j])
	})
	return out
}

func agentSortKey(id string) string {
	if n, err := strconv.Atoi(id); err == nil {
		return fmt.Sprintf("%010d", n)
	}
	return id
}

// commonSchema contributes the shared settings fields to a concrete settings
// type's schema. Agent ids encode in canonical order.
func (s *SynTestSettings) commonSchema() Schema {
	if s.Health == nil {
		s.Health = NewHealthSettings()
	}
	return Schema{
		{Key: "family", Get: func() any { return string(s.Family) }, Set: setEnum(&s.Family, ParseIPFamily)},
		{Key: "period", Get: func() any { return s.Period }, Set: setInt(&s.Period)},
		{Key: "agentIds", Get: func() any { return CanonicalAgentOrder(s.AgentIDs) }, Set: setStringSlice(&s.AgentIDs)},
		{Key: "tasks", Get: func() any { return s.Tasks }, Set: setStringSlice(&s.Tasks)},
		{Key: "healthSettings", Get: func() any { return s.Health }, Set: setElement(s.Health)},
		{Key: "notificationChannels", Get: func() any { return s.NotificationChannels }, Set: setStringSlice(&s.NotificationChannels)},
	}
}

// TestSettings is implemented by every per-type settings struct. The
// capability accessors return nil when the type does not carry the
// corresponding sub-task; TaskName names the settings-level task ("dns",
// "http", "page-load") or returns the empty string.
type TestSettings interface {
	Element
	Common() *SynTestSettings
	TaskName() string
	PingSettings() *PingTask
	TraceSettings() *TraceTask
	TargetPayload() map[string]any
}

// BaseSettings carries only the common fields. It backs test types without
// a type-specific payload or sub-tasks and serves as the embedded core of
// the payload-only settings types.
type BaseSettings struct {
	SynTestSettings
}

func NewBaseSettings() *BaseSettings {
	return &BaseSettings{SynTestSettings: newSynTestSettings(nil, DefaultTasks())}
}

func (s *BaseSettings) Schema() Schema { return s.commonSchema() }

func (s *BaseSettings) Common() *SynTestSettings { return &s.SynTestSettings }

func (s *BaseSettings) TaskName() string { return "" }

func (s *BaseSettings) PingSettings() *PingTask { return nil }

func (s *BaseSettings) TraceSettings() *TraceTask { return nil }

func (s *BaseSettings) TargetPayload() map[string]any { return nil }

// PingTraceSettings extends the common fields with the ping and traceroute
// sub-task configurations shared by most probe types.
type PingTraceSettings struct {
	SynTestSettings
	Ping  *PingTask
	Trace *TraceTask
}

func newPingTraceSettings(agentIDs []string) PingTraceSettings {
	return PingTraceSettings{
		SynTestSettings: newSynTestSettings(agentIDs, DefaultTasks()),
		Ping:            NewPingTask(),
		Trace:           NewTraceTask(),
	}
}

func (s *PingTraceSettings) pingTraceSchema() Schema {
	if s.Ping == nil {
		s.Ping = NewPingTask()
	}
	if s.Trace == nil {
		s.Trace = NewTraceTask()
	}
	return append(s.commonSchema(),
		Field{Key: "ping", Get: func() any { return s.Ping }, Set: setElement(s.Ping)},
		Field{Key: "trace", Get: func() any { return s.Trace }, Set: setElement(s.Trace)},
	)
}

func (s *PingTraceSettings) Common() *SynTestSettings { return &s.SynTestSettings }

func (s *PingTraceSettings) TaskName() string { return "" }

func (s *PingTraceSettings) PingSettings() *PingTask { return s.Ping }

func (s *PingTraceSettings) TraceSettings() *TraceTask { return s.Trace }

func (s *PingTraceSettings) TargetPayload() map[string]any { return nil }
