// Package scheduler runs the periodic sweeps: starting research runs
// for due schedules, and purging reports past the retention window.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
)

// Scheduler owns the cron timers for the due and retention sweeps.
type Scheduler struct {
	storage interfaces.StorageManager
	blobs   interfaces.ObjectStore
	engine  *research.Engine
	cfg     *config.Config
	cron    *cron.Cron
	logger  *common.Logger
}

// New creates a scheduler. Start registers and starts the timers.
func New(logger *common.Logger, cfg *config.Config, storage interfaces.StorageManager, blobs interfaces.ObjectStore, engine *research.Engine) *Scheduler {
	return &Scheduler{
		storage: storage,
		blobs:   blobs,
		engine:  engine,
		cfg:     cfg,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
	}
}

// Start registers the sweep jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	sweepSpec := s.cfg.Scheduler.SweepSpec
	if sweepSpec == "" {
		sweepSpec = "@every 1m"
	}
	if _, err := s.cron.AddFunc(sweepSpec, func() {
		s.SweepDue(context.Background())
	}); err != nil {
		return err
	}

	// Retention is disabled when the window is zero
	if s.cfg.Scheduler.RetentionDays > 0 {
		retentionSpec := s.cfg.Scheduler.RetentionSpec
		if retentionSpec == "" {
			retentionSpec = "@daily"
		}
		if _, err := s.cron.AddFunc(retentionSpec, func() {
			s.SweepRetention(context.Background())
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info().
		Str("sweep", sweepSpec).
		Int("retention_days", s.cfg.Scheduler.RetentionDays).
		Msg("scheduler started")
	return nil
}

// Stop halts the timers and waits for running sweeps to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepDue starts a research run for every due schedule and advances
// each schedule's next-run anchor. Per-schedule errors are logged and
// skipped so one bad schedule cannot stall the rest.
func (s *Scheduler) SweepDue(ctx context.Context) {
	now := time.Now()
	limit := s.cfg.Scheduler.DueLimit
	if limit <= 0 {
		limit = 50
	}

	due, err := s.storage.Schedules().ListDue(ctx, models.FormatTime(now), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("due sweep query failed")
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info().Int("due", len(due)).Msg("due sweep starting runs")

	for i := range due {
		sched := due[i]
		if _, err := s.engine.StartRun(ctx, &sched); err != nil {
			s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("failed to start run for due schedule")
			continue
		}

		// Advance the anchor even if the run later fails: a broken run
		// must not make the schedule fire on every sweep.
		sched.NextRunAt = models.NextRunISO(sched.Recurrence, now)
		if err := s.storage.Schedules().Put(ctx, &sched); err != nil {
			s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("failed to advance schedule")
		}
	}
}

// SweepRetention deletes reports older than the retention window,
// artifacts first, then the report document. Per-report errors are
// logged and skipped.
func (s *Scheduler) SweepRetention(ctx context.Context) {
	days := s.cfg.Scheduler.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := models.FormatTime(time.Now().AddDate(0, 0, -days))

	old, err := s.storage.Reports().ListOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention sweep query failed")
		return
	}
	if len(old) == 0 {
		return
	}

	deleted := 0
	for _, rep := range old {
		// Unparsable timestamps sort unpredictably against the cutoff;
		// never delete on a corrupt createdAt.
		if _, err := models.ParseTime(rep.CreatedAt); err != nil {
			s.logger.Warn().
				Str("report_id", rep.ID).
				Str("created_at", rep.CreatedAt).
				Msg("skipping report with unparsable createdAt")
			continue
		}
		if err := DeleteReport(ctx, s.storage, s.blobs, &rep); err != nil {
			s.logger.Warn().Err(err).Str("report_id", rep.ID).Msg("retention delete failed")
			continue
		}
		deleted++
	}
	s.logger.Info().Int("deleted", deleted).Int("candidates", len(old)).Msg("retention sweep complete")
}

// DeleteReport removes a report's artifacts and then its document.
// Each known blob path is deleted individually; blob deletes are
// idempotent, so a partial earlier attempt can be retried safely.
func DeleteReport(ctx context.Context, storage interfaces.StorageManager, blobs interfaces.ObjectStore, rep *models.Report) error {
	for _, path := range rep.BlobPaths {
		if err := blobs.Delete(ctx, path); err != nil {
			return err
		}
	}
	return storage.Reports().Delete(ctx, rep.ID)
}
