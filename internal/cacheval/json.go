package cacheval

import (
	"fmt"
	"math"

	"github.com/bytedance/sonic"
)

// MarshalJSON implements the encoding rules from spec.md §3/§7: none -> null,
// numbers/strings/bools pass through, list -> array, map -> object.
//
// lang_vector is never persisted to JSON (spec.md §3 invariant). Rather than
// fail the whole session/cache encode over a view-only value a handler
// mistakenly stashed in persisted data, it silently coerces to null — the
// same "never fatal, fall through to a safe default" posture spec.md §7
// applies to template/translation lookup misses.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case KindNone, KindLangVector:
		return []byte("null"), nil
	case KindU8:
		return sonic.Marshal(e.u8)
	case KindI64:
		return sonic.Marshal(e.i64)
	case KindU64:
		return sonic.Marshal(e.u64)
	case KindF64:
		return sonic.Marshal(e.f64)
	case KindBool:
		return sonic.Marshal(e.b)
	case KindString:
		return sonic.Marshal(e.str)
	case KindList:
		return sonic.Marshal(e.list)
	case KindMap:
		return sonic.Marshal(e.m)
	default:
		return nil, fmt.Errorf("cacheval: unknown kind %d", e.kind)
	}
}

// UnmarshalJSON decodes generic JSON into the tagged union. Numbers are
// widened i64 -> u64 -> f64 by representability, per spec.md's Open
// Questions resolution: round-trip via i64 when representable, else u64,
// else f64.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = fromAny(v)
	return nil
}

func fromAny(v any) Entry {
	switch t := v.(type) {
	case nil:
		return None()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return numberEntry(t)
	case []any:
		out := make([]Entry, len(t))
		for i, item := range t {
			out[i] = fromAny(item)
		}
		return List(out)
	case map[string]any:
		out := make(map[string]Entry, len(t))
		for k, item := range t {
			out[k] = fromAny(item)
		}
		return Map(out)
	default:
		return None()
	}
}

func numberEntry(f float64) Entry {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if i := int64(f); float64(i) == f {
			return I64(i)
		}
		if u := uint64(f); f >= 0 && float64(u) == f {
			return U64(u)
		}
	}
	return F64(f)
}
