package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// asString converts strings, numbers and booleans. Anything else is
// unrecoercible.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

var numberCleaner = strings.NewReplacer(",", "", "_", "", " ", "")

// asNumber converts JSON numbers and numeric strings such as " 1,200 " or
// "85%". NaN, infinities and booleans are unrecoercible.
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := numberCleaner.Replace(strings.TrimSpace(t))
		s = strings.TrimSuffix(s, "%")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringOr returns the stringified value, or def when the value is missing,
// unrecoercible, or (when nonEmpty) empty.
func stringOr(v any, def string, nonEmpty bool) string {
	s, ok := asString(v)
	if !ok || (nonEmpty && s == "") {
		return def
	}
	return s
}

// Clamp truncates f toward zero and clamps it into [lo, hi].
func Clamp(f float64, lo, hi int) int {
	f = math.Trunc(f)
	if f < float64(lo) {
		return lo
	}
	if f > float64(hi) {
		return hi
	}
	return int(f)
}

func scoreOr(v any, def int) int {
	f, ok := asNumber(v)
	if !ok {
		return def
	}
	return Clamp(f, 0, 100)
}

// countOr returns a non-negative integer count.
func countOr(v any, def int64) int64 {
	f, ok := asNumber(v)
	if !ok {
		return def
	}
	f = math.Trunc(f)
	if f < 0 {
		return 0
	}
	if f > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(f)
}

func floatOr(v any, def float64) float64 {
	f, ok := asNumber(v)
	if !ok {
		return def
	}
	return f
}

// stringsOr keeps the string elements of v. A non-array, or an array with
// elements but none usable, yields def.
func stringsOr(v any, def []string) []string {
	arr, ok := v.([]any)
	if !ok {
		return append([]string(nil), def...)
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := asString(it); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(arr) > 0 {
		return append([]string(nil), def...)
	}
	return out
}

func mapOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// strict decodes v into out when it validates against the schema. It reports
// whether the fast path was taken.
func strict(rs *jsonschema.Resolved, v any, out any) bool {
	if err := rs.Validate(v); err != nil {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
