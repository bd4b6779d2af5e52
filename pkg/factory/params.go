package factory

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/matcher"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// commonParams are the test config keys consumed by the shared
// post-processing rather than by the per-type constructors.
var commonParams = []string{
	"name", "type", "ping", "trace", "period", "health_settings", "family",
	"labels", "notification_channels", "status",
}

// testAttributes extracts the type-specific attributes of a test config:
// everything outside the common parameter set. Required attributes must be
// present; anything not in allowed is a reported failure.
func testAttributes(cfg map[string]any, required, allowed []string, report Fail) (map[string]any, bool) {
	var missing []string
	for _, k := range required {
		if _, ok := cfg[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		report(fmt.Sprintf("'%s' requires following configuration attributes: '%s'",
			stringOf(cfg["type"]), strings.Join(missing, ",")))
		return nil, false
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make(map[string]any)
	for _, k := range keys {
		if slices.Contains(commonParams, k) && !slices.Contains(required, k) {
			continue
		}
		if !slices.Contains(allowed, k) && !slices.Contains(required, k) {
			report(fmt.Sprintf("Unsupported test attribute: '%s'", k))
			return nil, false
		}
		attrs[k] = cfg[k]
	}
	return attrs, true
}

// singleTarget enforces that single-target test types received exactly one
// resolved target.
func singleTarget(testType string, targets []string, report Fail) (string, bool) {
	if len(targets) != 1 {
		report(fmt.Sprintf("%s test accepts only 1 target, %d provided ('%s')",
			testType, len(targets), strings.Join(targets, ", ")))
		return "", false
	}
	return targets[0], true
}

// intAttr reads an optional integer attribute; a non-integer value is a
// reported failure.
func intAttr(attrs map[string]any, key string, report Fail) (int, bool, bool) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false, true
	}
	v, okInt := intValue(raw)
	if !okInt {
		report(fmt.Sprintf("Invalid '%s' value: '%v' is not an integer", key, raw))
		return 0, false, false
	}
	return v, true, true
}

// pingTracePresence enforces that http probe configs specify 'ping' and
// 'trace' either both or not at all. Presence turns the corresponding task
// on; mapping values are decoded later by the shared post-processing.
func pingTracePresence(cfg map[string]any, report Fail) (bool, bool) {
	_, ping := cfg["ping"]
	_, trace := cfg["trace"]
	if ping != trace {
		missing := "trace"
		if trace {
			missing = "ping"
		}
		report(fmt.Sprintf("%s test requires both 'ping' and 'trace' to be specified or none ('%s' is missing)",
			stringOf(cfg["type"]), missing))
		return false, false
	}
	return ping, true
}

func makeNetworkGridTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	if _, ok := testAttributes(cfg, nil, nil, report); !ok {
		return nil
	}
	t, err := synthetics.CreateNetworkGridTest(name, targets, agentIDs)
	if err != nil {
		report(err.Error())
		return nil
	}
	return t
}

func makeIPTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	if _, ok := testAttributes(cfg, nil, nil, report); !ok {
		return nil
	}
	t, err := synthetics.CreateIPTest(name, targets, agentIDs)
	if err != nil {
		report(err.Error())
		return nil
	}
	return t
}

func makeAgentTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	if _, ok := testAttributes(cfg, nil, nil, report); !ok {
		return nil
	}
	return synthetics.CreateAgentTest(name, target, agentIDs)
}

func makeHostnameTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	if _, ok := testAttributes(cfg, nil, nil, report); !ok {
		return nil
	}
	return synthetics.CreateHostnameTest(name, target, agentIDs)
}

// dnsServers extracts the mandatory DNS server list.
func dnsServers(attrs map[string]any, testType string, report Fail) ([]string, bool) {
	servers, err := stringListValue(attrs["servers"])
	if err != nil || len(servers) == 0 {
		report(fmt.Sprintf("%s requires 'servers' parameter", testType))
		return nil, false
	}
	return servers, true
}

// dnsRecordType extracts the optional record type, defaulting to an A query.
func dnsRecordType(attrs map[string]any, report Fail) (synthetics.DNSRecordType, bool) {
	raw, ok := attrs["record_type"]
	if !ok {
		return synthetics.DNSRecordA, true
	}
	recordType, err := synthetics.ParseDNSRecordType(stringOf(raw))
	if err != nil {
		report(err.Error())
		return "", false
	}
	return recordType, true
}

func makeDNSTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	attrs, ok := testAttributes(cfg, nil, []string{"servers", "record_type", "port", "timeout"}, report)
	if !ok {
		return nil
	}
	servers, ok := dnsServers(attrs, stringOf(cfg["type"]), report)
	if !ok {
		return nil
	}
	recordType, ok := dnsRecordType(attrs, report)
	if !ok {
		return nil
	}
	port, _, ok := intAttr(attrs, "port", report)
	if !ok {
		return nil
	}
	t := synthetics.CreateDNSTest(name, target, agentIDs, servers, recordType, port)
	timeout, set, ok := intAttr(attrs, "timeout", report)
	if !ok {
		return nil
	}
	if set {
		_ = t.SetTimeout(timeout)
	}
	return t
}

func makeDNSGridTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	attrs, ok := testAttributes(cfg, nil, []string{"servers", "record_type", "timeout"}, report)
	if !ok {
		return nil
	}
	servers, ok := dnsServers(attrs, stringOf(cfg["type"]), report)
	if !ok {
		return nil
	}
	recordType, ok := dnsRecordType(attrs, report)
	if !ok {
		return nil
	}
	timeout, _, ok := intAttr(attrs, "timeout", report)
	if !ok {
		return nil
	}
	return synthetics.CreateDNSGridTest(name, targets, agentIDs, servers, recordType, timeout)
}

func makeMeshTest(name string, _, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	if _, ok := testAttributes(cfg, nil, nil, report); !ok {
		return nil
	}
	return synthetics.CreateMeshTest(name, agentIDs)
}

func makePageLoadTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	attrs, ok := testAttributes(cfg, nil,
		[]string{"timeout", "method", "headers", "css_selectors", "body", "ignore_tls_errors"}, report)
	if !ok {
		return nil
	}
	ping, ok := pingTracePresence(cfg, report)
	if !ok {
		return nil
	}
	opts := synthetics.PageLoadTestOptions{
		Method:          stringOf(attrs["method"]),
		Body:            stringOf(attrs["body"]),
		IgnoreTLSErrors: boolValue(attrs["ignore_tls_errors"]),
		Ping:            ping,
		Trace:           ping,
	}
	timeout, set, ok := intAttr(attrs, "timeout", report)
	if !ok {
		return nil
	}
	if set {
		opts.Timeout = timeout
	}
	if raw, ok := attrs["headers"]; ok {
		headers, err := stringMapValue(raw)
		if err != nil {
			report(fmt.Sprintf("Invalid 'headers' value: %v", err))
			return nil
		}
		opts.Headers = headers
	}
	if raw, ok := attrs["css_selectors"]; ok {
		selectors, err := stringMapValue(raw)
		if err != nil {
			report(fmt.Sprintf("Invalid 'css_selectors' value: %v", err))
			return nil
		}
		opts.CSSSelectors = selectors
	}
	t, err := synthetics.CreatePageLoadTest(name, target, agentIDs, opts)
	if err != nil {
		report(err.Error())
		return nil
	}
	return t
}

func makeURLTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	attrs, ok := testAttributes(cfg, nil,
		[]string{"timeout", "method", "headers", "body", "ignore_tls_errors"}, report)
	if !ok {
		return nil
	}
	ping, ok := pingTracePresence(cfg, report)
	if !ok {
		return nil
	}
	opts := synthetics.URLTestOptions{
		Method:          stringOf(attrs["method"]),
		Body:            stringOf(attrs["body"]),
		IgnoreTLSErrors: boolValue(attrs["ignore_tls_errors"]),
		Ping:            ping,
		Trace:           ping,
	}
	timeout, set, ok := intAttr(attrs, "timeout", report)
	if !ok {
		return nil
	}
	if set {
		opts.Expiry = timeout
	}
	if raw, ok := attrs["headers"]; ok {
		headers, err := stringMapValue(raw)
		if err != nil {
			report(fmt.Sprintf("Invalid 'headers' value: %v", err))
			return nil
		}
		opts.Headers = headers
	}
	t, err := synthetics.CreateURLTest(name, target, agentIDs, opts)
	if err != nil {
		report(err.Error())
		return nil
	}
	return t
}

func makeFlowTest(name string, targets, agentIDs []string, cfg map[string]any, report Fail) synthetics.Test {
	target, ok := singleTarget(stringOf(cfg["type"]), targets, report)
	if !ok {
		return nil
	}
	attrs, ok := testAttributes(cfg,
		[]string{"target_type", "direction", "inet_direction"},
		[]string{"max_ip_targets", "max_providers", "target_refresh_interval_millis"}, report)
	if !ok {
		return nil
	}
	subType, err := synthetics.ParseFlowTestSubType(stringOf(attrs["target_type"]))
	if err != nil {
		report(err.Error())
		return nil
	}
	direction, err := synthetics.ParseDirectionType(stringOf(attrs["direction"]))
	if err != nil {
		report(err.Error())
		return nil
	}
	inetDirection, err := synthetics.ParseDirectionType(stringOf(attrs["inet_direction"]))
	if err != nil {
		report(err.Error())
		return nil
	}
	opts := synthetics.FlowTestOptions{
		TargetType:    subType,
		Direction:     direction,
		InetDirection: inetDirection,
	}
	maxIPTargets, set, ok := intAttr(attrs, "max_ip_targets", report)
	if !ok {
		return nil
	}
	if set {
		opts.MaxIPTargets = maxIPTargets
	}
	maxProviders, set, ok := intAttr(attrs, "max_providers", report)
	if !ok {
		return nil
	}
	if set {
		opts.MaxProviders = maxProviders
	}
	refresh, set, ok := intAttr(attrs, "target_refresh_interval_millis", report)
	if !ok {
		return nil
	}
	if set {
		opts.TargetRefreshIntervalMillis = refresh
	}
	t, err := synthetics.CreateFlowTest(name, target, agentIDs, opts)
	if err != nil {
		report(err.Error())
		return nil
	}
	return t
}

// applyCommonParams applies the shared post-construction settings: family,
// per-task overrides, health thresholds, scheduling period, labels,
// notification channels and the activation window guard.
func (f *Factory) applyCommonParams(test synthetics.Test, cfg map[string]any, report Fail) bool {
	log := zap.S().Named("factory")
	base := test.Base()
	common := base.Settings.Common()

	if raw, ok := cfg["family"]; ok {
		family, err := synthetics.ParseIPFamily(stringOf(raw))
		if err != nil {
			report(err.Error())
			return false
		}
		common.Family = family
	}
	if taskCfg, ok := cfg["ping"].(map[string]any); ok && slices.Contains(common.Tasks, "ping") {
		ping := base.Settings.PingSettings()
		if ping == nil {
			report(fmt.Sprintf("'%s' test does not support 'ping'", base.Type))
			return false
		}
		fresh := synthetics.NewPingTask()
		if err := synthetics.Decode(fresh, remapKeys(taskCfg, map[string]string{"timeout": "expiry"})); err != nil {
			report(fmt.Sprintf("Invalid 'ping' configuration: %v", err))
			return false
		}
		*ping = *fresh
	}
	if taskCfg, ok := cfg["trace"].(map[string]any); ok && slices.Contains(common.Tasks, "traceroute") {
		trace := base.Settings.TraceSettings()
		if trace == nil {
			report(fmt.Sprintf("'%s' test does not support 'trace'", base.Type))
			return false
		}
		fresh := synthetics.NewTraceTask()
		if err := synthetics.Decode(fresh, remapKeys(taskCfg, map[string]string{"timeout": "expiry"})); err != nil {
			report(fmt.Sprintf("Invalid 'trace' configuration: %v", err))
			return false
		}
		*trace = *fresh
	}
	if raw, ok := cfg["health_settings"]; ok {
		healthCfg, okMap := raw.(map[string]any)
		if !okMap {
			report("'health_settings' must be a mapping")
			return false
		}
		fresh := synthetics.NewHealthSettings()
		if err := synthetics.Decode(fresh, camelizeKeys(healthCfg)); err != nil {
			report(fmt.Sprintf("Invalid 'health_settings' configuration: %v", err))
			return false
		}
		common.Health = fresh
	}
	if raw, ok := cfg["period"]; ok {
		period, okInt := intValue(raw)
		if !okInt {
			report(fmt.Sprintf("Invalid 'period' value: '%v' is not an integer", raw))
			return false
		}
		if f.strictPeriods && !slices.Contains(synthetics.AllowedPeriods, period) {
			report(fmt.Sprintf("Unsupported test period: %d (allowed: %s)",
				period, joinInts(synthetics.AllowedPeriods)))
			return false
		}
		applied := base.SetPeriod(period)
		if applied != period {
			log.Warnw("test period adjusted to nearest allowed value",
				"test", base.Name, "requested", period, "applied", applied)
		}
	}
	if raw, ok := cfg["labels"]; ok {
		labels, err := stringListValue(raw)
		if err != nil {
			report(fmt.Sprintf("Invalid 'labels' value: %v", err))
			return false
		}
		sort.Strings(labels)
		base.Labels = labels
	}
	if raw, ok := cfg["notification_channels"]; ok {
		channels, err := stringListValue(raw)
		if err != nil {
			report(fmt.Sprintf("Invalid 'notification_channels' value: %v", err))
			return false
		}
		sort.Strings(channels)
		common.NotificationChannels = channels
	}
	if raw, ok := cfg["status"]; ok {
		status, err := synthetics.ParseTestStatus(stringOf(raw))
		if err != nil {
			report(err.Error())
			return false
		}
		log.Warnw("test 'status' is ignored on creation, tests are created in active state",
			"test", base.Name, "status", status)
		base.Status = status
	}
	adjustActivationWindow(common, cfg)
	return true
}

// adjustActivationWindow recomputes the alert activation time window from
// the scheduling period and the activation count, unless the config pinned
// the window explicitly. The window must span at least times+1 periods so
// enough results exist for the alarm to fire.
func adjustActivationWindow(common *synthetics.SynTestSettings, cfg map[string]any) {
	if hs, ok := cfg["health_settings"].(map[string]any); ok {
		if act, ok := hs["activation"].(map[string]any); ok {
			if _, ok := act["time_window"]; ok {
				return
			}
		}
	}
	health := common.Health
	if health == nil || health.Activation == nil {
		return
	}
	times, err := strconv.Atoi(health.Activation.Times)
	if err != nil || times <= 0 {
		times = 3
	}
	minutes := (common.Period*(times+1) + 59) / 60
	health.Activation.TimeWindow = strconv.Itoa(minutes)
	health.Activation.TimeUnit = "m"
}

// remapKeys renames map keys per the attribute map. A mapping to the empty
// string drops the key.
func remapKeys(m map[string]any, attrMap map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		nk, ok := attrMap[k]
		if !ok {
			out[k] = v
			continue
		}
		if nk != "" {
			out[nk] = v
		}
	}
	return out
}

// camelizeKeys transforms snake_case config keys to the wire's camelCase
// form, recursing into nested mappings and lists.
func camelizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[matcher.SnakeToCamel(k)] = camelizeValue(v)
	}
	return out
}

func camelizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return camelizeKeys(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = camelizeValue(item)
		}
		return out
	default:
		return v
	}
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

// stringOf renders a scalar config value in its canonical string form.
// Integral floats render without a decimal point, matching the number
// conventions of the YAML and JSON decoders.
func stringOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// scalarString is stringOf restricted to scalar values.
func scalarString(v any) (string, bool) {
	switch v.(type) {
	case string, bool, int, int64, float64:
		return stringOf(v), true
	default:
		return "", false
	}
}

// intValue reads an integer config value, accepting the int and float forms
// produced by the YAML and JSON decoders.
func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == float64(int64(val)) {
			return int(val), true
		}
	}
	return 0, false
}

// boolValue reads a boolean config value; anything else is false.
func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// stringListValue converts a config list to strings, stringifying scalar
// elements.
func stringListValue(v any) ([]string, error) {
	switch items := v.(type) {
	case []string:
		out := make([]string, len(items))
		copy(out, items)
		return out, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := scalarString(item)
			if !ok {
				return nil, fmt.Errorf("list contains non-scalar element of type %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

// stringMapValue converts a config mapping to string values.
func stringMapValue(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		s, ok := scalarString(val)
		if !ok {
			return nil, fmt.Errorf("value of '%s' is not a scalar (%T)", k, val)
		}
		out[k] = s
	}
	return out, nil
}
