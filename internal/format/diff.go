package format

import (
	"fmt"
	"sort"

	"github.com/netsonde/synthctl/pkg/synthetics"
)

// Missing marks a diff side where the path does not exist at all.
const Missing = "<missing>"

// Change is one difference between two wire forms, keyed by the dotted
// snake_case path where the sides diverge.
type Change struct {
	Path  string
	Left  string
	Right string
}

// DiffTests compares the external wire forms of two tests, ignoring the
// internal settings the API manages.
func DiffTests(a, b synthetics.Test) []Change {
	left := synthetics.Encode(a)
	right := synthetics.Encode(b)
	for _, m := range []map[string]any{left, right} {
		if settings, ok := m["settings"].(map[string]any); ok {
			hideInternalSettings(settings)
		}
	}
	return DiffWire(left, right)
}

// DiffWire walks two wire forms and returns every path where they disagree,
// sorted by path. Values are compared in their rendered form, so numeric
// wire variants of the same value do not show up as changes.
func DiffWire(left, right map[string]any) []Change {
	var out []Change
	diffMaps(&out, "", left, right)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func diffMaps(out *[]Change, prefix string, left, right map[string]any) {
	keys := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		keys[k] = struct{}{}
	}
	for k := range right {
		keys[k] = struct{}{}
	}
	for k := range keys {
		path := CamelToSnake(k)
		if prefix != "" {
			path = prefix + "." + path
		}
		lv, lok := left[k]
		rv, rok := right[k]
		switch {
		case !lok:
			*out = append(*out, Change{Path: path, Left: Missing, Right: renderCell(rv)})
		case !rok:
			*out = append(*out, Change{Path: path, Left: renderCell(lv), Right: Missing})
		default:
			diffValues(out, path, lv, rv)
		}
	}
}

func diffValues(out *[]Change, path string, left, right any) {
	lm, lIsMap := left.(map[string]any)
	rm, rIsMap := right.(map[string]any)
	if lIsMap && rIsMap {
		diffMaps(out, path, lm, rm)
		return
	}
	ll, lIsList := anyList(left)
	rl, rIsList := anyList(right)
	if lIsList && rIsList {
		diffLists(out, path, ll, rl)
		return
	}
	l, r := renderCell(left), renderCell(right)
	if l != r {
		*out = append(*out, Change{Path: path, Left: l, Right: r})
	}
}

func diffLists(out *[]Change, path string, left, right []any) {
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		elem := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case i >= len(left):
			*out = append(*out, Change{Path: elem, Left: Missing, Right: renderCell(right[i])})
		case i >= len(right):
			*out = append(*out, Change{Path: elem, Left: renderCell(left[i]), Right: Missing})
		default:
			diffValues(out, elem, left[i], right[i])
		}
	}
}

func anyList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}
