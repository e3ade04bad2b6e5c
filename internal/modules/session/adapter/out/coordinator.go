package out

import (
	"context"
	"log/slog"
	"time"

	outcomein "outcomes/internal/modules/outcome/port/in"
	"outcomes/internal/modules/session/domain"
	sessionout "outcomes/internal/modules/session/port/out"
	syncjobin "outcomes/internal/modules/syncjob/port/in"
)

// Coordinator forwards session lifecycle events to the outcome and sync job
// modules. Failures are logged; they never undo a lifecycle transition.
type Coordinator struct {
	outcomes outcomein.Usecase
	jobs     syncjobin.Usecase
	logger   *slog.Logger
}

func NewCoordinator(outcomes outcomein.Usecase, jobs syncjobin.Usecase, logger *slog.Logger) sessionout.Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{outcomes: outcomes, jobs: jobs, logger: logger}
}

func (c *Coordinator) SessionStarted(ctx context.Context, att domain.Attribution) {
	if c.outcomes == nil {
		return
	}
	if err := c.outcomes.ClearOutcomes(ctx); err != nil {
		c.logger.Warn("reset unique outcomes", "session", att.Type, "error", err)
	}
}

func (c *Coordinator) Backgrounded(ctx context.Context, at time.Time) {
	if c.jobs == nil {
		return
	}
	if _, err := c.jobs.Schedule(ctx, at); err != nil {
		c.logger.Warn("schedule sync job", "error", err)
	}
}
