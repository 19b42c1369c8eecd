// Package research runs the durable research workflow: fetch context,
// synthesize a report, save its artifacts, and email the result. Each
// run's progress is checkpointed to the document store, so interrupted
// runs resume from their last completed stage after a restart.
package research

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// Engine executes research runs.
type Engine struct {
	storage   interfaces.StorageManager
	blobs     interfaces.ObjectStore
	searcher  interfaces.WebSearcher
	extractor interfaces.Extractor
	synth     interfaces.Synthesizer
	prices    interfaces.PriceFeed
	email     interfaces.EmailSender
	cfg       *config.Config
	logger    *common.Logger

	wg sync.WaitGroup
}

// NewEngine wires the engine's collaborators.
func NewEngine(
	logger *common.Logger,
	cfg *config.Config,
	storage interfaces.StorageManager,
	blobs interfaces.ObjectStore,
	searcher interfaces.WebSearcher,
	extractor interfaces.Extractor,
	synth interfaces.Synthesizer,
	prices interfaces.PriceFeed,
	email interfaces.EmailSender,
) *Engine {
	return &Engine{
		storage:   storage,
		blobs:     blobs,
		searcher:  searcher,
		extractor: extractor,
		synth:     synth,
		prices:    prices,
		email:     email,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartRun creates a run record and orchestration checkpoint for the
// schedule and begins executing in the background. The schedule's
// fields are frozen into the orchestration input, so later edits do not
// affect the run in flight. For ad hoc runs the caller passes a
// schedule with ID models.OneOffScheduleID.
func (e *Engine) StartRun(ctx context.Context, sched *models.Schedule) (*models.Run, error) {
	now := models.FormatTime(time.Now())

	run := &models.Run{
		ID:         uuid.New().String(),
		ScheduleID: sched.ID,
		UserID:     sched.UserID,
		Status:     models.RunStatusQueued,
		CreatedAt:  now,
	}
	if err := e.storage.Runs().Put(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	state := &models.OrchestrationState{
		ID:     run.ID,
		UserID: sched.UserID,
		Input: models.OrchestrationInput{
			ScheduleID:   sched.ID,
			UserID:       sched.UserID,
			Prompt:       sched.Prompt,
			Symbols:      sched.Symbols,
			Email:        sched.Email,
			DeepResearch: sched.DeepResearch,
		},
		Stage:     models.StageFetchingContext,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.storage.Orchestrations().Put(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create orchestration: %w", err)
	}

	e.logger.Info().
		Str("run_id", run.ID).
		Str("schedule_id", sched.ID).
		Str("user_id", sched.UserID).
		Msg("research run started")

	e.spawn(state)
	return run, nil
}

// Resume re-launches every orchestration that was interrupted before
// reaching a terminal stage. Called once at startup.
func (e *Engine) Resume(ctx context.Context) error {
	states, err := e.storage.Orchestrations().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active orchestrations: %w", err)
	}
	for i := range states {
		state := states[i]
		e.logger.Info().
			Str("run_id", state.ID).
			Str("stage", state.Stage).
			Msg("resuming interrupted run")
		e.spawn(&state)
	}
	return nil
}

func (e *Engine) spawn(state *models.OrchestrationState) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Runs outlive the request that started them
		e.Execute(context.Background(), state)
	}()
}

// Wait blocks until all in-flight runs finish. Used during shutdown
// and in tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}
