// Package models defines the stockscout data model: schedules, runs,
// reports, tracked stocks, and orchestration state.
package models

import (
	"time"
)

// TimeFormat is the canonical timestamp layout: ISO-8601 UTC, second
// precision. Lexicographic order equals chronological order, which the
// due-schedule query relies on.
const TimeFormat = "2006-01-02T15:04:05Z"

// FormatTime renders a time in the canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeFormat)
}

// ParseTime parses a canonical timestamp. Returns the zero time on failure.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// EmailSettings holds per-schedule delivery options.
type EmailSettings struct {
	To        []string `json:"to"`
	AttachPDF bool     `json:"attachPdf"`
}

// Schedule is a user's recurring research request.
// Exactly one of Prompt / Symbols must be non-empty at creation.
type Schedule struct {
	ID           string        `json:"id" badgerhold:"key"`
	UserID       string        `json:"userId" badgerhold:"index"`
	Prompt       string        `json:"prompt,omitempty"`
	Symbols      []string      `json:"symbols"`
	Recurrence   Recurrence    `json:"recurrence"`
	Email        EmailSettings `json:"email"`
	DeepResearch bool          `json:"deepResearch"`
	Active       bool          `json:"active"`
	NextRunAt    string        `json:"nextRunAt,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
}

// Run status values. A run that carried neither symbols nor a prompt
// finishes as "no-input" so callers can tell it from a run that
// actually produced a report.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusNoInput   = "no-input"
)

// OneOffScheduleID marks runs started ad hoc, outside any schedule.
const OneOffScheduleID = "one-off"

// Run is one execution instance of a Schedule.
type Run struct {
	ID         string `json:"id" badgerhold:"key"`
	ScheduleID string `json:"scheduleId" badgerhold:"index"`
	UserID     string `json:"userId" badgerhold:"index"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Citation is one source reference attached to a report.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the durable output of one Run. Immutable after creation
// except for deletion. BlobPaths keys: "md", "html", optionally "pdf".
type Report struct {
	ID         string            `json:"id" badgerhold:"key"`
	RunID      string            `json:"runId"`
	ScheduleID string            `json:"scheduleId" badgerhold:"index"`
	UserID     string            `json:"userId" badgerhold:"index"`
	Title      string            `json:"title"`
	Prompt     string            `json:"prompt,omitempty"`
	Symbols    []string          `json:"symbols"`
	Summary    string            `json:"summary,omitempty"`
	BlobPaths  map[string]string `json:"blobPaths"`
	Citations  []Citation        `json:"citations"`
	Status     string            `json:"status"`
	CreatedAt  string            `json:"createdAt,omitempty"`
}

// TrackedStock records a recommendation derived from a report, used for
// later performance comparison. At most one exists per
// (UserID, Symbol, ReportID); on conflict the earlier RecommendationDate
// wins.
type TrackedStock struct {
	ID                  string  `json:"id" badgerhold:"key"`
	UserID              string  `json:"userId" badgerhold:"index"`
	Symbol              string  `json:"symbol" badgerhold:"index"`
	ReportID            string  `json:"reportId,omitempty"`
	ReportTitle         string  `json:"reportTitle,omitempty"`
	RecommendationDate  string  `json:"recommendationDate"` // YYYY-MM-DD
	RecommendationPrice float64 `json:"recommendationPrice"`
	CreatedAt           string  `json:"createdAt,omitempty"`
}

// Source is one fetched web source: readable title plus excerpt.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// SourceGroup collects the sources fetched for one symbol (or for the
// free-text prompt when no symbols are given).
type SourceGroup struct {
	Symbol  string   `json:"symbol,omitempty"`
	Prompt  string   `json:"prompt,omitempty"`
	Sources []Source `json:"sources"`
}

// SynthesizedReport is the output of the synthesis stage.
type SynthesizedReport struct {
	Title     string     `json:"title"`
	Markdown  string     `json:"markdown"`
	HTML      string     `json:"html"`
	Citations []Citation `json:"citations"`
}
