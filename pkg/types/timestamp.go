package types

import (
	"fmt"
	"time"
)

// SavepointTimestampLayout renders UTC times at nanosecond precision in
// a fixed-width, string-sortable form. Savepoint timestamps are stored
// and compared as strings.
const SavepointTimestampLayout = "2006-01-02T15:04:05.000000000"

// FormatSavepointTimestamp renders t as a savepoint timestamp.
func FormatSavepointTimestamp(t time.Time) string {
	return t.UTC().Format(SavepointTimestampLayout)
}

// ParseSavepointTimestamp parses a stored savepoint timestamp.
func ParseSavepointTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(SavepointTimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: savepoint timestamp %q: %v", ErrCorruptState, s, err)
	}
	return t, nil
}

// SavepointTimestampAfter returns a timestamp for t that is strictly
// greater than prev. When the clock has not advanced past prev (clock
// skew, sub-resolution calls), the result is prev plus one nanosecond.
func SavepointTimestampAfter(t time.Time, prev string) (string, error) {
	candidate := FormatSavepointTimestamp(t)
	if prev == "" || candidate > prev {
		return candidate, nil
	}
	parsed, err := ParseSavepointTimestamp(prev)
	if err != nil {
		return "", err
	}
	return FormatSavepointTimestamp(parsed.Add(time.Nanosecond)), nil
}
