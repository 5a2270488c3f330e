package schema

import (
	"math"

	ccschema "github.com/ClusterCockpit/cc-lib/v2/schema"
)

// NormalizeTagValue converts a FLOAT/DOUBLE (or array-of) tag value to
// the shared NaN-aware representation (ccschema.Float, which marshals
// NaN to JSON `null`) and, per spec §7 ("NaN float/double... reported as
// TAG_VALUE_EXPIRED"), replaces a NaN reading with an error-typed value
// instead of forwarding the NaN itself to a subscriber. Every other tag
// type passes through unchanged.
func NormalizeTagValue(tv TagValue) TagValue {
	switch tv.Type {
	case TagTypeFloat, TagTypeDouble:
		f, isNaN, ok := asFloat(tv.Value)
		if !ok {
			return tv
		}
		if isNaN {
			tv.Error = "TAG_VALUE_EXPIRED"
			tv.Value = nil
			return tv
		}
		tv.Value = ccschema.Float(f)
	case TagTypeArrayFloat, TagTypeArrayDouble:
		arr, ok := tv.Value.([]float64)
		if !ok {
			return tv
		}
		out := make([]ccschema.Float, len(arr))
		for i, v := range arr {
			if math.IsNaN(v) {
				tv.Error = "TAG_VALUE_EXPIRED"
				tv.Value = nil
				return tv
			}
			out[i] = ccschema.Float(v)
		}
		tv.Value = out
	}
	return tv
}

// asFloat extracts a float64 from the dynamic types a driver plugin may
// hand back for a FLOAT/DOUBLE tag (float64, float32 or an
// already-wrapped ccschema.Float). ok is false for anything else, in
// which case the caller leaves the value untouched rather than guessing.
func asFloat(v any) (f float64, isNaN bool, ok bool) {
	switch x := v.(type) {
	case float64:
		return x, math.IsNaN(x), true
	case float32:
		return float64(x), math.IsNaN(float64(x)), true
	case ccschema.Float:
		return float64(x), x.IsNaN(), true
	default:
		return 0, false, false
	}
}

// NormalizeTagValues applies NormalizeTagValue to every element in
// place and returns the same slice for chaining.
func NormalizeTagValues(vs []TagValue) []TagValue {
	for i := range vs {
		vs[i] = NormalizeTagValue(vs[i])
	}
	return vs
}
