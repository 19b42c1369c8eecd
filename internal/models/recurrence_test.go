package models

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test time %s: %v", s, err)
	}
	return ts.UTC()
}

func TestComputeNextRun_Hourly(t *testing.T) {
	now := mustTime(t, "2024-01-01T10:30:00Z")
	rec := Recurrence{Cadence: CadenceHourly, Interval: 3}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-01T13:30:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_DailyBeforeTime(t *testing.T) {
	// 08:00, schedule at 09:00 -> today 09:00
	now := mustTime(t, "2024-01-01T08:00:00Z")
	rec := Recurrence{Cadence: CadenceDaily, Interval: 1, Hour: 9}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-01T09:00:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_DailyAfterTime(t *testing.T) {
	// 10:00, schedule at 09:00 -> tomorrow 09:00
	now := mustTime(t, "2024-01-01T10:00:00Z")
	rec := Recurrence{Cadence: CadenceDaily, Interval: 1, Hour: 9}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-02T09:00:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_DailyExactTieAdvances(t *testing.T) {
	// candidate == now is not a valid next run
	now := mustTime(t, "2024-01-01T09:00:00Z")
	rec := Recurrence{Cadence: CadenceDaily, Interval: 2, Hour: 9}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-03T09:00:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_WeeklySameWeek(t *testing.T) {
	// 2024-01-01 is a Monday. Weekday 4 = Friday.
	now := mustTime(t, "2024-01-01T12:00:00Z")
	rec := Recurrence{Cadence: CadenceWeekly, Interval: 1, Hour: 9, Minute: 30, Weekday: 4}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-05T09:30:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_WeeklyElapsedAddsInterval(t *testing.T) {
	// Monday 12:00, target Monday 09:00 already passed -> +2 weeks
	now := mustTime(t, "2024-01-01T12:00:00Z")
	rec := Recurrence{Cadence: CadenceWeekly, Interval: 2, Hour: 9, Weekday: 0}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-15T09:00:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_WeeklySunday(t *testing.T) {
	// Weekday 6 = Sunday in the Monday-based scheme
	now := mustTime(t, "2024-01-03T00:00:00Z") // Wednesday
	rec := Recurrence{Cadence: CadenceWeekly, Interval: 1, Hour: 18, Weekday: 6}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-07T18:00:00Z")
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestComputeNextRun_UnknownCadenceFallback(t *testing.T) {
	now := mustTime(t, "2024-01-01T10:15:30Z")
	rec := Recurrence{Cadence: "fortnightly", Interval: 3}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-01T11:15:30Z")
	if !next.Equal(want) {
		t.Errorf("expected fallback now+1h %v, got %v", want, next)
	}
}

func TestComputeNextRun_StrictlyAfterNow(t *testing.T) {
	recs := []Recurrence{
		{Cadence: CadenceHourly, Interval: 1},
		{Cadence: CadenceDaily, Interval: 1, Hour: 9},
		{Cadence: CadenceDaily, Interval: 1, Hour: 0, Minute: 0},
		{Cadence: CadenceWeekly, Interval: 1, Hour: 9, Weekday: 0},
		{Cadence: CadenceWeekly, Interval: 4, Hour: 23, Minute: 59, Weekday: 6},
		{Cadence: "bogus"},
		{}, // zero value
	}
	nows := []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01T09:00:00Z",
		"2024-02-29T12:00:00Z", // leap day
		"2024-12-31T23:59:59Z",
	}

	for _, rec := range recs {
		for _, ns := range nows {
			now := mustTime(t, ns)
			next := ComputeNextRun(rec, now)
			if !next.After(now) {
				t.Errorf("rec %+v at %s: next %v is not strictly after now", rec, ns, next)
			}
		}
	}
}

func TestComputeNextRun_ReanchoredSequenceIncreases(t *testing.T) {
	rec := Recurrence{Cadence: CadenceDaily, Interval: 1, Hour: 9}
	cur := mustTime(t, "2024-01-01T08:00:00Z")

	prev := cur
	for i := 0; i < 10; i++ {
		next := ComputeNextRun(rec, prev)
		if !next.After(prev) {
			t.Fatalf("iteration %d: %v not after %v", i, next, prev)
		}
		if i > 0 {
			if got := next.Sub(prev); got != 24*time.Hour {
				t.Errorf("iteration %d: expected 24h spacing, got %v", i, got)
			}
		}
		prev = next
	}
}

func TestComputeNextRun_InvalidIntervalClamped(t *testing.T) {
	now := mustTime(t, "2024-01-01T10:00:00Z")
	rec := Recurrence{Cadence: CadenceHourly, Interval: 0}

	next := ComputeNextRun(rec, now)
	want := mustTime(t, "2024-01-01T11:00:00Z")
	if !next.Equal(want) {
		t.Errorf("interval 0 should clamp to 1: expected %v, got %v", want, next)
	}
}

func TestFormatTimeOrdering(t *testing.T) {
	// Lexicographic order of formatted timestamps must match time order.
	a := FormatTime(mustTime(t, "2024-01-02T09:00:00Z"))
	b := FormatTime(mustTime(t, "2024-01-10T08:00:00Z"))
	if a >= b {
		t.Errorf("expected %s < %s", a, b)
	}
}

func TestParseTimeRoundTrip(t *testing.T) {
	orig := mustTime(t, "2024-06-15T12:34:56Z")
	parsed, err := ParseTime(FormatTime(orig))
	if err != nil {
		t.Fatalf("ParseTime failed: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip mismatch: %v vs %v", parsed, orig)
	}

	if _, err := ParseTime("not-a-time"); err == nil {
		t.Error("expected parse error for junk input")
	}
}
