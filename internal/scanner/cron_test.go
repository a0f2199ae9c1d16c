package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronFieldCount(t *testing.T) {
	_, err := parseCron("0 3 * *")
	assert.Error(t, err)

	_, err = parseCron("0 3 * * *")
	assert.NoError(t, err)
}

func TestParseCronRejectsRanges(t *testing.T) {
	// Only literals, comma lists, and wildcards are supported.
	_, err := parseCron("*/5 * * * *")
	assert.Error(t, err)

	_, err = parseCron("1-5 * * * *")
	assert.Error(t, err)
}

func TestNextCronTimeDaily(t *testing.T) {
	after := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTimeSameDay(t *testing.T) {
	after := time.Date(2026, 8, 30, 1, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTimeCommaList(t *testing.T) {
	after := time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC)

	next, err := nextCronTime("0,30 * * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC), next)
}

func TestNextCronTimeStrictlyAfter(t *testing.T) {
	// A timestamp exactly on a matching minute rolls to the next match.
	after := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTimeWeekday(t *testing.T) {
	// 2026-08-30 is a Sunday; day-of-week 1 is Monday.
	after := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 4 * * 1", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())
}
