package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Observations is the set of user-reported indicators for one assessment.
// Values are float64, bool or string after Normalize. Yes/no answers are
// always bool after Normalize, whichever form the caller sent.
type Observations map[string]any

// Normalize returns a copy with numeric values widened to float64, numeric
// strings parsed, yes/no strings turned into bool, other strings trimmed and
// lower-cased, and nil or non-finite values dropped.
func (o Observations) Normalize() Observations {
	out := make(Observations, len(o))
	for k, v := range o {
		if nv, ok := normalizeValue(v); ok {
			out[k] = nv
		}
	}
	return out
}

func normalizeValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		return x, true
	case float32:
		return normalizeValue(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return normalizeValue(f)
	case bool:
		return x, true
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if s == "" {
			return nil, false
		}
		if b, ok := parseYesNo(s); ok {
			return b, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return normalizeValue(f)
		}
		return s, true
	default:
		return v, true
	}
}

// Number returns the numeric value for key.
func (o Observations) Number(key string) (float64, bool) {
	switch x := o[key].(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// parseYesNo reads the accepted spellings of a yes/no answer. s must already
// be lower-cased.
func parseYesNo(s string) (bool, bool) {
	switch s {
	case "yes", "y", "true":
		return true, true
	case "no", "n", "false":
		return false, true
	}
	return false, false
}

// Clone returns a shallow copy.
func (o Observations) Clone() Observations {
	out := make(Observations, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
