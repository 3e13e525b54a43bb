package plan

import (
	"fmt"
	"sort"

	"github.com/opsloop/probed/internal/exprlang"
	"github.com/opsloop/probed/internal/probefn"
)

// toSortedSlice coerces a probe result into the ordered []any
// ForeachSeq walks. A probefn.Set (unordered) is sorted first; an
// already-ordered []any/[]string/[]int/[]float64 is returned as-is.
func toSortedSlice(v any) ([]any, error) {
	switch t := v.(type) {
	case probefn.Set:
		items := append([]any{}, []any(t)...)
		sortAny(items)
		return items, nil
	case []any:
		return t, nil
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return items, nil
	case []int:
		items := make([]any, len(t))
		for i, n := range t {
			items[i] = n
		}
		return items, nil
	case []float64:
		items := make([]any, len(t))
		for i, n := range t {
			items[i] = n
		}
		return items, nil
	default:
		return nil, fmt.Errorf("result is not a sequence or set (got %T)", v)
	}
}

type kvPair struct {
	key   string
	value any
}

// toSortedPairs coerces a ProbeResult into the sorted key/value pairs
// ForeachMap walks, visiting keys in sorted order so iteration is
// deterministic across runs.
func toSortedPairs(v any) ([]kvPair, error) {
	var m map[string]any
	switch t := v.(type) {
	case exprlang.AttrMap:
		m = map[string]any(t)
	case map[string]any:
		m = t
	default:
		return nil, notAMapError(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]kvPair, len(keys))
	for i, k := range keys {
		pairs[i] = kvPair{key: k, value: m[k]}
	}
	return pairs, nil
}

// sortAny sorts a mixed slice with a best-effort comparator: numeric
// values compare by magnitude, everything else falls back to its
// formatted string representation, so an unordered probe result gets
// a stable, deterministic iteration order.
func sortAny(items []any) {
	sort.Slice(items, func(i, j int) bool {
		fi, iOK := asFloat(items[i])
		fj, jOK := asFloat(items[j])
		if iOK && jOK {
			return fi < fj
		}
		return fmt.Sprint(items[i]) < fmt.Sprint(items[j])
	})
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
