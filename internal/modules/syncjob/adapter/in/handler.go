package in

import (
	"context"
	"log/slog"
	"time"

	syncjobdto "outcomes/internal/modules/syncjob/dto"
	syncjobin "outcomes/internal/modules/syncjob/port/in"
	"outcomes/internal/platform/queue"
)

type Handler struct {
	usecase syncjobin.Usecase
	queue   *queue.Serial
	logger  *slog.Logger
}

func NewHandler(usecase syncjobin.Usecase, q *queue.Serial, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return Handler{usecase: usecase, queue: q, logger: logger}
}

func (h Handler) RunDue(ctx context.Context) (syncjobdto.RunOutput, error) {
	return queue.Call(ctx, h.queue, "syncjob.run_due", h.usecase.RunDue)
}

func (h Handler) RunNow(ctx context.Context) (syncjobdto.RunOutput, error) {
	return queue.Call(ctx, h.queue, "syncjob.run_now", h.usecase.RunNow)
}

func (h Handler) Pending(ctx context.Context) (syncjobdto.JobOutput, error) {
	return queue.Call(ctx, h.queue, "syncjob.pending", h.usecase.Pending)
}

// Poll runs due jobs every interval until ctx is done. A job found on the
// first tick may have been persisted by an earlier process.
func (h Handler) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if res, err := h.RunDue(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Error("run sync job", "error", err)
		} else if res.Ran {
			h.logger.Debug("sync job ran", "completed", res.Completed, "remaining", res.Remaining)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
