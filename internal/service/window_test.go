package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateDate(t *testing.T) {
	got, err := parseCreateDate("2024-01-01T12:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), got)
}

func TestParseCreateDate_NoOffsetSuffix(t *testing.T) {
	got, err := parseCreateDate("2024-01-01T12:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), got)
}

func TestParseCreateDate_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not a date", "2024/01/01 12:00", "2024-01-01"} {
		_, err := parseCreateDate(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestWithinWindow(t *testing.T) {
	threshold := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, withinWindow(threshold.Add(time.Second), threshold))
	assert.True(t, withinWindow(threshold, threshold), "lower bound is inclusive")
	assert.False(t, withinWindow(threshold.Add(-time.Second), threshold))
}
