package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextCrawlAt_Intervals(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	next := NextCrawlAt(CadenceHourly, now)
	require.NotNil(t, next)
	require.Equal(t, time.Hour, next.Sub(now))

	next = NextCrawlAt(CadenceDaily, now)
	require.NotNil(t, next)
	require.Equal(t, 24*time.Hour, next.Sub(now))

	next = NextCrawlAt(CadenceWeekly, now)
	require.NotNil(t, next)
	require.Equal(t, 7*24*time.Hour, next.Sub(now))
}

func TestNextCrawlAt_NoneNeverSchedules(t *testing.T) {
	t.Parallel()

	require.Nil(t, NextCrawlAt(CadenceNone, time.Now()))
	require.Nil(t, NextCrawlAt(Cadence("bogus"), time.Now()))
}

func TestParseCadence(t *testing.T) {
	t.Parallel()

	c, err := ParseCadence("")
	require.NoError(t, err)
	require.Equal(t, CadenceDaily, c)

	for _, valid := range []string{"hourly", "daily", "weekly", "none"} {
		c, err := ParseCadence(valid)
		require.NoError(t, err)
		require.Equal(t, Cadence(valid), c)
	}

	_, err = ParseCadence("fortnightly")
	require.ErrorIs(t, err, ErrInvalidInput)
}
