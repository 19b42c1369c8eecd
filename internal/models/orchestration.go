package models

// Orchestration stage values, in execution order. A run resumes from its
// persisted stage after a restart; completed stages are never re-executed.
const (
	StageFetchingContext = "fetching_context"
	StageSynthesizing    = "synthesizing"
	StageSaving          = "saving"
	StageEmailing        = "emailing"
	StageCompleted       = "completed"
	StageFailed          = "failed"
)

// OrchestrationInput is the frozen request a run executes against.
// It is captured from the schedule at enqueue time so later edits to the
// schedule do not affect an in-flight run.
type OrchestrationInput struct {
	ScheduleID   string        `json:"scheduleId"`
	UserID       string        `json:"userId"`
	Prompt       string        `json:"prompt,omitempty"`
	Symbols      []string      `json:"symbols"`
	Email        EmailSettings `json:"email"`
	DeepResearch bool          `json:"deepResearch"`
}

// OrchestrationState is the durable checkpoint record for one run.
// Each stage writes its output here before the next stage starts, so a
// crash mid-run loses at most the stage in progress.
type OrchestrationState struct {
	ID        string             `json:"id" badgerhold:"key"` // equals the run ID
	UserID    string             `json:"userId" badgerhold:"index"`
	Input     OrchestrationInput `json:"input"`
	Stage     string             `json:"stage" badgerhold:"index"`
	Context   []SourceGroup      `json:"context,omitempty"`
	Report    *SynthesizedReport `json:"report,omitempty"`
	ReportID  string             `json:"reportId,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt string             `json:"createdAt,omitempty"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

// Terminal reports whether the orchestration has finished, successfully
// or not.
func (s *OrchestrationState) Terminal() bool {
	return s.Stage == StageCompleted || s.Stage == StageFailed
}
