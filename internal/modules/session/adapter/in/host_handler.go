package in

import (
	"context"
	"log/slog"
	"time"

	sessiondto "outcomes/internal/modules/session/dto"
	sessionin "outcomes/internal/modules/session/port/in"
	"outcomes/internal/platform/queue"
)

// HostHandler receives lifecycle and push signals from the host. Every call
// returns at once; the work runs in order on the serial queue.
type HostHandler struct {
	usecase sessionin.Usecase
	queue   *queue.Serial
	logger  *slog.Logger
}

func NewHostHandler(usecase sessionin.Usecase, q *queue.Serial, logger *slog.Logger) HostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return HostHandler{usecase: usecase, queue: q, logger: logger}
}

func (h HostHandler) OnForeground() {
	h.enqueue("session.foreground", func(ctx context.Context) error {
		_, err := h.usecase.OnForeground(ctx)
		return err
	})
}

func (h HostHandler) OnBackground() {
	h.enqueue("session.background", func(ctx context.Context) error {
		_, err := h.usecase.OnBackground(ctx)
		return err
	})
}

func (h HostHandler) OnNotificationReceived(id string, wasBackground bool) {
	h.enqueue("session.received", func(ctx context.Context) error {
		_, err := h.usecase.OnNotificationReceived(ctx, sessiondto.ReceivedInput{NotificationID: id, WasBackground: wasBackground})
		return err
	})
}

func (h HostHandler) OnNotificationClicked(id string) {
	h.enqueue("session.clicked", func(ctx context.Context) error {
		_, err := h.usecase.OnNotificationClicked(ctx, sessiondto.ClickedInput{NotificationID: id})
		return err
	})
}

// Checkpoint runs a foreground checkpoint every interval until ctx is done.
func (h HostHandler) Checkpoint(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		err := h.queue.Do(ctx, "session.checkpoint", func(taskCtx context.Context) error {
			_, err := h.usecase.Checkpoint(taskCtx)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Error("session checkpoint failed", "error", err)
		}
	}
}

func (h HostHandler) enqueue(name string, fn func(context.Context) error) {
	err := h.queue.Enqueue(name, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			h.logger.Error("lifecycle signal failed", "signal", name, "error", err)
		}
	})
	if err != nil {
		h.logger.Warn("lifecycle signal dropped", "signal", name, "error", err)
	}
}
