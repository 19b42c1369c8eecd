package models

import (
	"strings"
	"time"
)

// Recurrence cadence values.
const (
	CadenceHourly = "hourly"
	CadenceDaily  = "daily"
	CadenceWeekly = "weekly"
)

// Recurrence describes how often a schedule fires.
// Weekday uses 0=Monday .. 6=Sunday.
type Recurrence struct {
	Cadence  string `json:"cadence"`
	Interval int    `json:"interval"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Weekday  int    `json:"weekday"`
}

// DefaultRecurrence is daily at 09:00 UTC.
func DefaultRecurrence() Recurrence {
	return Recurrence{Cadence: CadenceDaily, Interval: 1, Hour: 9}
}

// ComputeNextRun returns the next fire time strictly after now.
// A malformed cadence falls back to now+1h rather than failing.
// Results are UTC with sub-second precision dropped.
func ComputeNextRun(rec Recurrence, now time.Time) time.Time {
	now = now.UTC()
	interval := rec.Interval
	if interval < 1 {
		interval = 1
	}
	hour := clamp(rec.Hour, 0, 23)
	minute := clamp(rec.Minute, 0, 59)

	switch strings.ToLower(rec.Cadence) {
	case CadenceHourly:
		return now.Add(time.Duration(interval) * time.Hour).Truncate(time.Second)

	case CadenceDaily:
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
		if !target.After(now) {
			target = target.AddDate(0, 0, interval)
		}
		return target

	case CadenceWeekly:
		wd := clamp(rec.Weekday, 0, 6)
		// Monday-based weekday of now
		nowWd := (int(now.Weekday()) + 6) % 7
		daysAhead := (wd - nowWd + 7) % 7
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC).
			AddDate(0, 0, daysAhead)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7*interval)
		}
		return candidate
	}

	// Unrecognized cadence: run in one hour
	return now.Add(time.Hour).Truncate(time.Second)
}

// NextRunISO is ComputeNextRun rendered in the canonical timestamp layout.
func NextRunISO(rec Recurrence, now time.Time) string {
	return FormatTime(ComputeNextRun(rec, now))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
