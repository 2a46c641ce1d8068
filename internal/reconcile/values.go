package reconcile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// statusEnabled is the status value of an enabled host or item.
const statusEnabled = 0

// int64Value reads a whole number from a json number, a float, or a numeric string.
func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// delayText renders a delay cell for the duration parser. Older servers send plain
// integer seconds, newer ones send strings such as "30s".
func delayText(v any) (string, bool) {
	switch d := v.(type) {
	case string:
		return d, true
	case json.Number:
		return d.String(), true
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(d, 10), true
	case int:
		return strconv.Itoa(d), true
	default:
		return "", false
	}
}

// enabled applies the status filter. A row without a status column counts as enabled;
// a status that is not a whole number counts as disabled.
func enabled(row Row) bool {
	raw, ok := row["status"]
	if !ok {
		return true
	}
	status, ok := int64Value(raw)
	return ok && status == statusEnabled
}
