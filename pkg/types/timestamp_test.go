package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavepointTimestampFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	s := FormatSavepointTimestamp(at)

	assert.Equal(t, "2026-03-14T09:26:53.589793238", s)

	parsed, err := ParseSavepointTimestamp(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}

func TestSavepointTimestampFixedWidth(t *testing.T) {
	// Zero-padded fractional seconds keep string order equal to time
	// order.
	early := FormatSavepointTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 5, time.UTC))
	late := FormatSavepointTimestamp(time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC))

	assert.Len(t, early, len(late))
	assert.Less(t, early, late)
}

func TestParseSavepointTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseSavepointTimestamp("yesterday")
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestSavepointTimestampAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no predecessor uses now", func(t *testing.T) {
		s, err := SavepointTimestampAfter(now, "")
		require.NoError(t, err)
		assert.Equal(t, FormatSavepointTimestamp(now), s)
	})

	t.Run("predecessor in the past uses now", func(t *testing.T) {
		prev := FormatSavepointTimestamp(now.Add(-time.Second))
		s, err := SavepointTimestampAfter(now, prev)
		require.NoError(t, err)
		assert.Equal(t, FormatSavepointTimestamp(now), s)
	})

	t.Run("predecessor at or ahead of now bumps strictly after", func(t *testing.T) {
		prev := FormatSavepointTimestamp(now.Add(time.Second))
		s, err := SavepointTimestampAfter(now, prev)
		require.NoError(t, err)
		assert.Greater(t, s, prev)
	})

	t.Run("unparseable predecessor rejected", func(t *testing.T) {
		_, err := SavepointTimestampAfter(now, "garbage")
		assert.ErrorIs(t, err, ErrCorruptState)
	})
}
