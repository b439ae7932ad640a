// Package calendar answers whether a market is currently open for a given
// asset class. Staleness checks consult it so that closed markets do not page
// anyone.
package calendar

import (
	"strings"
	"time"
)

// Calendar resolves market hours in US eastern time.
type Calendar struct {
	loc *time.Location
}

// New constructs a Calendar. Falls back to a fixed EST offset when the tz
// database is unavailable.
func New() *Calendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Calendar{loc: loc}
}

// IsOpen reports whether the market for the given asset class is open at now.
// Crypto and unrecognised classes are treated as always open.
func (c *Calendar) IsOpen(assetType string, now time.Time) bool {
	local := now.In(c.loc)
	switch strings.ToLower(strings.TrimSpace(assetType)) {
	case "equity":
		return c.equityOpen(local)
	case "fx", "metal":
		return fxOpen(local)
	default:
		return true
	}
}

// equityOpen implements the regular NYSE session: weekdays 09:30-16:00
// eastern, excluding exchange holidays. Early-close sessions count as open.
func (c *Calendar) equityOpen(local time.Time) bool {
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if _, holiday := nyseHolidays[local.Format("2006-01-02")]; holiday {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// fxOpen treats FX and metals as a continuous session that closes from
// Friday 17:00 eastern until Sunday 17:00 eastern.
func fxOpen(local time.Time) bool {
	switch local.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return local.Hour() < 17
	case time.Sunday:
		return local.Hour() >= 17
	}
	return true
}

// nyseHolidays lists full-day closures. Extend as new years are published.
var nyseHolidays = map[string]struct{}{
	// 2025
	"2025-01-01": {},
	"2025-01-20": {},
	"2025-02-17": {},
	"2025-04-18": {},
	"2025-05-26": {},
	"2025-06-19": {},
	"2025-07-04": {},
	"2025-09-01": {},
	"2025-11-27": {},
	"2025-12-25": {},
	// 2026
	"2026-01-01": {},
	"2026-01-19": {},
	"2026-02-16": {},
	"2026-04-03": {},
	"2026-05-25": {},
	"2026-06-19": {},
	"2026-07-03": {},
	"2026-09-07": {},
	"2026-11-26": {},
	"2026-12-25": {},
}
