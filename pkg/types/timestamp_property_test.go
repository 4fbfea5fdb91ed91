package types

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Savepoint timestamps order checkpoint chains, so their string order
// must match time order regardless of the underlying clock values.
func TestProperty_SavepointTimestampOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("string order matches time order", prop.ForAll(
		func(aNs, bNs int64) bool {
			a := time.Unix(0, aNs).UTC()
			b := time.Unix(0, bNs).UTC()
			sa := FormatSavepointTimestamp(a)
			sb := FormatSavepointTimestamp(b)
			switch {
			case a.Before(b):
				return sa < sb
			case b.Before(a):
				return sb < sa
			default:
				return sa == sb
			}
		},
		gen.Int64Range(0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()),
		gen.Int64Range(0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()),
	))

	properties.Property("successor is strictly greater for any clock", prop.ForAll(
		func(clockNs, prevNs int64) bool {
			prev := FormatSavepointTimestamp(time.Unix(0, prevNs).UTC())
			next, err := SavepointTimestampAfter(time.Unix(0, clockNs).UTC(), prev)
			if err != nil {
				return false
			}
			return next > prev
		},
		gen.Int64Range(0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()),
		gen.Int64Range(0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()),
	))

	properties.Property("format/parse round trip", prop.ForAll(
		func(ns int64) bool {
			at := time.Unix(0, ns).UTC()
			parsed, err := ParseSavepointTimestamp(FormatSavepointTimestamp(at))
			return err == nil && parsed.Equal(at)
		},
		gen.Int64Range(0, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()),
	))

	properties.TestingRun(t)
}
