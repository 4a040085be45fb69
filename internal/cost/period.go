// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package cost

import (
	"time"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Period is a calendar-aligned budget window kind.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return Period(s), nil
	default:
		return "", stratumerr.Errorf(stratumerr.CodeRequestInvalid,
			"unknown budget period %q", s)
	}
}

// Window computes the half-open [start, end) calendar window containing
// now. Weeks start on Monday; quarters on Jan/Apr/Jul/Oct.
func (p Period) Window(now time.Time) (start, end time.Time) {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch p {
	case PeriodDaily:
		return midnight, midnight.AddDate(0, 0, 1)
	case PeriodWeekly:
		// time.Weekday numbers Sunday as 0; shift so Monday is the origin.
		back := (int(now.Weekday()) + 6) % 7
		start = midnight.AddDate(0, 0, -back)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		qMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), qMonth, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 3, 0)
	case PeriodYearly:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		return now, now
	}
}
