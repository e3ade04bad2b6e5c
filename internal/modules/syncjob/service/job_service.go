package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outcomes/internal/modules/syncjob/domain"
	syncjobout "outcomes/internal/modules/syncjob/port/out"
	"outcomes/internal/platform/clock"
	apperrors "outcomes/internal/platform/errors"
)

type JobService struct {
	clock    clock.Clock
	store    syncjobout.JobStore
	focus    syncjobout.FocusFlusher
	outcomes syncjobout.OutcomeFlusher
	delay    time.Duration
	logger   *slog.Logger
}

func NewJobService(clk clock.Clock, store syncjobout.JobStore, focus syncjobout.FocusFlusher, outcomes syncjobout.OutcomeFlusher, delay time.Duration, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{clock: clk, store: store, focus: focus, outcomes: outcomes, delay: delay, logger: logger}
}

func (s *JobService) Schedule(ctx context.Context, from time.Time) (domain.Job, error) {
	job := domain.NewSyncJob(from.Add(s.delay))
	current, err := s.pending(ctx)
	if err != nil {
		return domain.Job{}, err
	}
	job = current.Merge(job)
	if err := s.store.Save(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("save sync job: %w", err)
	}
	s.logger.Debug("sync job scheduled", "due_at", job.DueAt)
	return job, nil
}

func (s *JobService) Pending(ctx context.Context) (domain.Job, bool, error) {
	job, err := s.pending(ctx)
	if err != nil {
		return domain.Job{}, false, err
	}
	return job, !job.DueAt.IsZero(), nil
}

type RunResult struct {
	Ran          bool
	Completed    bool
	FocusSent    int
	OutcomesSent int
	Remaining    int
	Errors       []error
}

// RunDue runs the pending job when it is due. Without a due job it does nothing.
func (s *JobService) RunDue(ctx context.Context) (RunResult, error) {
	job, ok, err := s.Pending(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if !ok || !job.Due(s.clock.Now()) {
		return RunResult{}, nil
	}
	return s.run(ctx)
}

// RunNow flushes immediately whether or not a job is pending.
func (s *JobService) RunNow(ctx context.Context) (RunResult, error) {
	return s.run(ctx)
}

// run flushes focus time first and saved outcomes second. The job is only
// cleared when both steps left nothing to retry.
func (s *JobService) run(ctx context.Context) (RunResult, error) {
	res := RunResult{Ran: true}
	sent, err := s.focus.FlushFocus(ctx)
	res.FocusSent = sent
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("flush focus: %w", err))
	}
	sent, remaining, err := s.outcomes.SendSavedOutcomes(ctx)
	res.OutcomesSent, res.Remaining = sent, remaining
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("send saved outcomes: %w", err))
	}
	if len(res.Errors) > 0 || res.Remaining > 0 {
		s.logger.Warn("sync job incomplete", "remaining", res.Remaining, "error", errors.Join(res.Errors...))
		return res, nil
	}
	if err := s.store.Delete(ctx); err != nil {
		return res, fmt.Errorf("clear sync job: %w", err)
	}
	res.Completed = true
	s.logger.Info("sync job completed", "focus_sent", res.FocusSent, "outcomes_sent", res.OutcomesSent)
	return res, nil
}

func (s *JobService) pending(ctx context.Context) (domain.Job, error) {
	job, err := s.store.Load(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Job{}, nil
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("load sync job: %w", err)
	}
	return job, nil
}
