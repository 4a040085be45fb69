// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package cost_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/internal/cost"
)

func TestParsePeriod(t *testing.T) {
	p, err := cost.ParsePeriod("weekly")
	require.NoError(t, err)
	assert.Equal(t, cost.PeriodWeekly, p)

	_, err = cost.ParsePeriod("fortnightly")
	assert.Error(t, err)
}

func TestPeriodWindow(t *testing.T) {
	// 2024-03-15 is a Friday.
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		period cost.Period
		start  time.Time
		end    time.Time
	}{
		{
			cost.PeriodDaily,
			time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			cost.PeriodWeekly,
			time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), // Monday
			time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			cost.PeriodMonthly,
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			cost.PeriodQuarterly,
			time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			cost.PeriodYearly,
			time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.period), func(t *testing.T) {
			start, end := tc.period.Window(now)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

func TestPeriodWindow_YearBoundary(t *testing.T) {
	now := time.Date(2024, time.December, 20, 10, 30, 0, 0, time.UTC)
	janFirst := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		period cost.Period
		start  time.Time
	}{
		{cost.PeriodMonthly, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)},
		{cost.PeriodQuarterly, time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)},
		{cost.PeriodYearly, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(string(tc.period), func(t *testing.T) {
			start, end := tc.period.Window(now)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, janFirst, end, "window must roll over into the next year")
		})
	}
}

func TestPeriodWindow_NewYearsEveDay(t *testing.T) {
	eve := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC)
	start, end := cost.PeriodDaily.Window(eve)
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindow_SundayBelongsToPrecedingMondayWeek(t *testing.T) {
	sunday := time.Date(2024, time.March, 17, 23, 0, 0, 0, time.UTC)
	start, end := cost.PeriodWeekly.Window(sunday)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC), end)
}
