// Package timestamp provides standardized Unix timestamp handling utilities.
//
// This package uses int64 milliseconds as the canonical timestamp format.
// All timestamps are stored as milliseconds since Unix epoch (UTC).
//
// Zero Value Semantics:
//   - A timestamp value of 0 means "not set" or "unknown"
//   - Functions handle zero values gracefully, returning appropriate defaults
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// Now returns the current time as Unix milliseconds
func Now() int64 {
	return time.Now().UnixMilli()
}

// FromTime converts a time.Time to Unix milliseconds. The zero time maps to 0.
func FromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ToTime converts Unix milliseconds to a UTC time.Time. Zero maps to the
// zero time.
func ToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ts).UTC()
}

// Format renders a timestamp as an RFC3339 string with millisecond precision.
// Zero timestamps render as the empty string.
func Format(ts int64) string {
	if ts == 0 {
		return ""
	}
	return ToTime(ts).Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatRelative renders a timestamp as fractional seconds elapsed since
// epoch, e.g. "12.345". Timestamps before the epoch render negative.
func FormatRelative(ts, epoch int64) string {
	return strconv.FormatFloat(float64(ts-epoch)/1000.0, 'f', 3, 64)
}

// FormatRaw renders the raw millisecond value verbatim.
func FormatRaw(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

// Parse converts common timestamp representations to Unix milliseconds.
// Supported: time.Time, int64/int/float64 (seconds or milliseconds by
// magnitude), and RFC3339 strings. Unparseable values return 0.
func Parse(v any) int64 {
	switch val := v.(type) {
	case time.Time:
		return FromTime(val)
	case int64:
		return normalizeUnix(val)
	case int:
		return normalizeUnix(int64(val))
	case float64:
		return normalizeUnix(int64(val))
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return FromTime(t)
		}
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return normalizeUnix(n)
		}
		return 0
	default:
		return 0
	}
}

// normalizeUnix treats values below 1e12 as Unix seconds and converts to
// milliseconds; larger values are assumed to be milliseconds already.
func normalizeUnix(v int64) int64 {
	if v == 0 {
		return 0
	}
	const msThreshold = 1_000_000_000_000
	if v < msThreshold && v > -msThreshold {
		return v * 1000
	}
	return v
}

// Validate reports an error for negative timestamps, which indicate a
// conversion bug upstream.
func Validate(ts int64) error {
	if ts < 0 {
		return fmt.Errorf("negative timestamp: %d", ts)
	}
	return nil
}
