// Package delay converts item polling delays into whole seconds.
//
// Delays arrive either as plain seconds ("30") or as human-readable durations
// ("30s", "5m", "2h", "1d"). Parse never fails; an unusable value becomes 0,
// which callers treat as "polling disabled".
package delay

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

var (
	ErrEmpty      = errors.New("delay: empty value")
	ErrMalformed  = errors.New("delay: malformed value")
	ErrOutOfRange = errors.New("delay: value out of range")
)

// Parse returns the delay in seconds, or 0 when text cannot be interpreted.
func Parse(text string) uint32 {
	secs, err := ParseStrict(text)
	if err != nil {
		return 0
	}
	return secs
}

// ParseStrict is Parse with the failure reason kept.
func ParseStrict(text string) (uint32, error) {
	if secs, err := strconv.ParseUint(unsigned(text), 10, 32); err == nil {
		return uint32(secs), nil
	}

	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		return 0, ErrEmpty
	}
	if secs, err := strconv.ParseUint(unsigned(norm), 10, 64); err == nil {
		if secs > math.MaxUint32 {
			return 0, ErrOutOfRange
		}
		return uint32(secs), nil
	}

	d, err := str2duration.ParseDuration(norm)
	if err != nil {
		return 0, ErrMalformed
	}
	if d < 0 {
		return 0, ErrOutOfRange
	}
	secs := uint64(d / time.Second)
	if secs > math.MaxUint32 {
		return 0, ErrOutOfRange
	}
	return uint32(secs), nil
}

// unsigned drops one leading plus sign, which ParseUint rejects.
func unsigned(text string) string {
	return strings.TrimPrefix(text, "+")
}
