package factory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"net/url"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/matcher"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var validate = validator.New()

// validDomainName reports whether name is a well-formed fully qualified
// domain name.
func validDomainName(name string) bool {
	return validate.Var(name, "fqdn") == nil
}

// matchOrUse enforces that exactly one of the 'use' and 'match' directives
// is present in a config section.
func matchOrUse(cfg map[string]any, section string, report Fail) bool {
	_, hasUse := cfg["use"]
	_, hasMatch := cfg["match"]
	if hasUse == hasMatch {
		report(fmt.Sprintf("Exactly one of 'use' or 'match' sections must be specified in '%s'", section))
		return false
	}
	return true
}

// useListOnly enforces that a section offers only a literal 'use' list.
func useListOnly(cfg map[string]any, report Fail) bool {
	if _, ok := cfg["match"]; ok {
		report("Test type does not support matching targets with rules")
		return false
	}
	if _, ok := cfg["use"]; !ok {
		report("Test type requires list of strings to be specified in the 'use' section")
		return false
	}
	return true
}

// getUseList extracts the literal string list of a 'use' directive,
// deduplicated in input order. Scalar elements are stringified.
func getUseList(cfg map[string]any, section string, report Fail) []string {
	raw, ok := cfg["use"]
	if !ok {
		report(fmt.Sprintf("'use' directive missing in '%s' (cfg: %v)", section, cfg))
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		report("Invalid 'use' specification: must be a simple list")
		return nil
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s, ok := scalarString(item)
		if !ok {
			report(fmt.Sprintf("Invalid value in 'use' list in '%s': expected a scalar, got %T", section, item))
			return nil
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ruleList extracts an optional match rule list. A missing value yields an
// empty list, which matches everything.
func ruleList(raw any) ([]any, error) {
	if raw == nil {
		return nil, nil
	}
	rules, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("match rules must be a list, got %T", raw)
	}
	return rules, nil
}

type addressExtractor func(record map[string]any) []string

// addressSelector extracts candidate target addresses from device and
// interface inventory records per the 'targets.match' address selection
// keys.
type addressSelector struct {
	device []addressExtractor
	iface  []addressExtractor
}

var addressSelectorKeys = []struct {
	key           string
	fromInterface bool
}{
	{key: "interface_addresses", fromInterface: true},
	{key: "sending_ips"},
	{key: "device_snmp_ip"},
}

func newAddressSelector(cfg map[string]any, report Fail) (*addressSelector, bool) {
	present := false
	for _, e := range addressSelectorKeys {
		if _, ok := cfg[e.key]; ok {
			present = true
			break
		}
	}
	if !present {
		keys := make([]string, 0, len(addressSelectorKeys))
		for _, e := range addressSelectorKeys {
			keys = append(keys, e.key)
		}
		report(fmt.Sprintf("Address selection missing in 'targets' section. One of '%s' is required",
			strings.Join(keys, ", ")))
		return nil, false
	}
	sel := &addressSelector{}
	for _, e := range addressSelectorKeys {
		raw, ok := cfg[e.key]
		if !ok {
			continue
		}
		// a bare key (empty mapping) selects dual-family, any scope
		sub, _ := raw.(map[string]any)
		family := synthetics.IPFamilyDual
		if rawFamily, ok := sub["family"]; ok {
			parsed, err := synthetics.ParseIPFamily(stringOf(rawFamily))
			if err != nil {
				report(fmt.Sprintf("%s: %v", e.key, err))
				return nil, false
			}
			family = parsed
		}
		var families []int
		switch family {
		case synthetics.IPFamilyDual:
			families = []int{4, 6}
		case synthetics.IPFamilyV4:
			families = []int{4}
		case synthetics.IPFamilyV6:
			families = []int{6}
		default:
			report(fmt.Sprintf("%s: unsupported address family '%s'", e.key, family))
			return nil, false
		}
		publicOnly := boolValue(sub["public_only"])
		if e.fromInterface {
			sel.iface = append(sel.iface, interfaceAddresses(families, publicOnly))
		} else {
			sel.device = append(sel.device, deviceAddresses(e.key, families, publicOnly))
		}
	}
	return sel, true
}

func (s *addressSelector) hasInterfaceExtractors() bool { return len(s.iface) > 0 }

func (s *addressSelector) deviceAddresses(device map[string]any) []string {
	var out []string
	for _, extract := range s.device {
		out = append(out, extract(device)...)
	}
	return out
}

func (s *addressSelector) interfaceAddresses(ifc map[string]any) []string {
	var out []string
	for _, extract := range s.iface {
		out = append(out, extract(ifc)...)
	}
	return out
}

// deviceAddresses returns an extractor reading IP addresses from the given
// device record field, which may hold a single address or a list.
func deviceAddresses(key string, families []int, publicOnly bool) addressExtractor {
	return func(device map[string]any) []string {
		raw, ok := device[key]
		if !ok || raw == nil || raw == "" {
			zap.S().Named("factory").Warnw("device has no address property",
				"device", device["device_name"], "property", key)
			return nil
		}
		var candidates []string
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				candidates = append(candidates, stringOf(item))
			}
		case []string:
			candidates = append(candidates, v...)
		default:
			candidates = append(candidates, stringOf(v))
		}
		return filterAddresses(candidates, families, publicOnly)
	}
}

// interfaceAddresses returns an extractor reading the primary and secondary
// IP addresses of an interface record.
func interfaceAddresses(families []int, publicOnly bool) addressExtractor {
	return func(ifc map[string]any) []string {
		var candidates []string
		if ip := stringOf(ifc["interface_ip"]); ip != "" {
			candidates = append(candidates, ip)
		} else {
			zap.S().Named("factory").Debugw("interface has no primary address",
				"interface", ifc["id"], "device", ifc["device_id"])
		}
		if raw, ok := ifc["secondary_ips"].([]any); ok {
			for _, item := range raw {
				switch v := item.(type) {
				case map[string]any:
					if a := stringOf(v["address"]); a != "" {
						candidates = append(candidates, a)
					}
				default:
					if a := stringOf(v); a != "" {
						candidates = append(candidates, a)
					}
				}
			}
		}
		return filterAddresses(candidates, families, publicOnly)
	}
}

// filterAddresses parses candidates and keeps the ones passing the family
// and scope filters, in canonical form. Unparsable entries are logged and
// skipped.
func filterAddresses(candidates []string, families []int, publicOnly bool) []string {
	var out []string
	for _, c := range candidates {
		a, err := netip.ParseAddr(c)
		if err != nil {
			zap.S().Named("factory").Debugw("skipping invalid inventory address", "address", c)
			continue
		}
		if publicOnly && !isPublicAddress(a) {
			continue
		}
		if !slices.Contains(families, addressFamily(a)) {
			continue
		}
		out = append(out, a.String())
	}
	return out
}

func addressFamily(a netip.Addr) int {
	if a.Is4() || a.Is4In6() {
		return 4
	}
	return 6
}

// isPublicAddress reports whether a is globally routable.
func isPublicAddress(a netip.Addr) bool {
	return a.IsGlobalUnicast() && !a.IsPrivate()
}

// addressTargets resolves targets of address-based test types: either a
// literal list of IP addresses or device/interface inventory matching.
func addressTargets(ctx context.Context, inv Inventory, cfg map[string]any, report Fail) []string {
	if !matchOrUse(cfg, "targets", report) {
		return nil
	}
	if _, ok := cfg["use"]; ok {
		addresses := getUseList(cfg, "targets", report)
		if addresses == nil {
			return nil
		}
		var invalid []string
		for _, a := range addresses {
			if _, err := netip.ParseAddr(a); err != nil {
				invalid = append(invalid, a)
			}
		}
		if len(invalid) > 0 {
			report("Invalid addresses in targets: " + strings.Join(invalid, ", "))
			return nil
		}
		return addresses
	}

	maxTargets, hasMax := intValue(cfg["max_matches"])
	minTargets, hasMin := intValue(cfg["min_matches"])
	if !hasMin {
		minTargets = 1
	}
	randomize := boolValue(cfg["randomize"])

	matchCfg, ok := cfg["match"].(map[string]any)
	if !ok {
		report("'match' section in 'targets' must be a mapping")
		return nil
	}
	selector, ok := newAddressSelector(matchCfg, report)
	if !ok {
		return nil
	}
	deviceRules, err := ruleList(matchCfg["devices"])
	if err != nil {
		report(fmt.Sprintf("Failed to parse target device match: %v", err))
		return nil
	}
	deviceMatcher, err := matcher.NewAllMatcher(deviceRules, matcher.Unlimited, nil)
	if err != nil {
		report(fmt.Sprintf("Failed to parse target device match: %v", err))
		return nil
	}
	interfaceRules, err := ruleList(matchCfg["interfaces"])
	if err != nil {
		report(fmt.Sprintf("Failed to parse target interface match: %v", err))
		return nil
	}
	interfaceMatcher, err := matcher.NewAllMatcher(interfaceRules, matcher.Unlimited, nil)
	if err != nil {
		report(fmt.Sprintf("Failed to parse target interface match: %v", err))
		return nil
	}

	devices, err := inv.Devices(ctx)
	if err != nil {
		report(fmt.Sprintf("Failed to fetch devices: %v", err))
		return nil
	}
	var matched []map[string]any
	for _, d := range devices {
		if deviceMatcher.Match(d) {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		report("No device matched configuration")
		return nil
	}

	// caps apply in encounter order unless sampling was requested, in which
	// case the full collection is reduced at the end
	capped := hasMax && !randomize
	var targets []string
	seen := map[string]bool{}
	add := func(a string) bool {
		if capped && len(targets) >= maxTargets {
			zap.S().Named("factory").Debugw("target limit reached", "max", maxTargets)
			return false
		}
		if !seen[a] {
			seen[a] = true
			targets = append(targets, a)
		}
		return true
	}
	for _, d := range matched {
		for _, a := range selector.deviceAddresses(d) {
			if !add(a) {
				return targets
			}
		}
		if (capped && len(targets) >= maxTargets) || !selector.hasInterfaceExtractors() {
			continue
		}
		deviceID := stringOf(d["id"])
		interfaces, err := inv.Interfaces(ctx, deviceID)
		if err != nil {
			report(fmt.Sprintf("Failed to fetch interfaces of device '%s': %v", deviceID, err))
			return nil
		}
		for _, ifc := range interfaces {
			if !interfaceMatcher.Match(ifc) {
				continue
			}
			for _, a := range selector.interfaceAddresses(ifc) {
				if !add(a) {
					return targets
				}
			}
		}
	}
	if len(targets) < minTargets {
		report(fmt.Sprintf("Only %d matched, %d required", len(targets), minTargets))
		return nil
	}
	if randomize && hasMax && len(targets) > maxTargets {
		rand.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
		targets = targets[:maxTargets]
	}
	return targets
}

// urlTargets resolves literal URL target lists of the http probe types.
func urlTargets(_ context.Context, _ Inventory, cfg map[string]any, report Fail) []string {
	if !useListOnly(cfg, report) {
		return nil
	}
	urls := getUseList(cfg, "targets", report)
	if urls == nil {
		return nil
	}
	var invalid []string
	for _, u := range urls {
		if !validProbeURL(u) {
			invalid = append(invalid, u)
		}
	}
	if len(invalid) > 0 {
		report("List contains invalid URLs: " + strings.Join(invalid, ", "))
		return nil
	}
	return urls
}

// validProbeURL accepts http(s) URLs whose host is a FQDN or IP address.
// Ports are allowed.
func validProbeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	return validDomainName(host)
}

// domainTargets resolves literal DNS name target lists.
func domainTargets(_ context.Context, _ Inventory, cfg map[string]any, report Fail) []string {
	if !useListOnly(cfg, report) {
		return nil
	}
	names := getUseList(cfg, "targets", report)
	if names == nil {
		return nil
	}
	var invalid []string
	for _, n := range names {
		if !validDomainName(n) {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		report("List contains invalid names: " + strings.Join(invalid, ", "))
		return nil
	}
	return names
}

// anyStrTargets resolves literal target lists with no validation beyond
// being plain scalars.
func anyStrTargets(_ context.Context, _ Inventory, cfg map[string]any, report Fail) []string {
	if !useListOnly(cfg, report) {
		return nil
	}
	return getUseList(cfg, "targets", report)
}

// noTargets is the resolver of test types whose agents double as targets.
func noTargets(_ context.Context, _ Inventory, cfg map[string]any, _ Fail) []string {
	zap.S().Named("factory").Debugw("test type takes no targets", "cfg", cfg)
	return nil
}
