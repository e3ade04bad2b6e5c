package in

import (
	"context"

	sessiondto "outcomes/internal/modules/session/dto"
	sessionin "outcomes/internal/modules/session/port/in"
	"outcomes/internal/platform/queue"
)

// CLIHandler runs each call as one queue turn and waits for the result.
type CLIHandler struct {
	usecase sessionin.Usecase
	queue   *queue.Serial
}

func NewCLIHandler(usecase sessionin.Usecase, q *queue.Serial) CLIHandler {
	return CLIHandler{usecase: usecase, queue: q}
}

func (h CLIHandler) Foreground(ctx context.Context) (sessiondto.TransitionOutput, error) {
	return queue.Call(ctx, h.queue, "session.foreground", h.usecase.OnForeground)
}

func (h CLIHandler) Background(ctx context.Context) (sessiondto.TransitionOutput, error) {
	return queue.Call(ctx, h.queue, "session.background", h.usecase.OnBackground)
}

func (h CLIHandler) Received(ctx context.Context, id string, wasBackground bool) (sessiondto.ReceivedOutput, error) {
	return queue.Call(ctx, h.queue, "session.received", func(ctx context.Context) (sessiondto.ReceivedOutput, error) {
		return h.usecase.OnNotificationReceived(ctx, sessiondto.ReceivedInput{NotificationID: id, WasBackground: wasBackground})
	})
}

func (h CLIHandler) Clicked(ctx context.Context, id string) (sessiondto.TransitionOutput, error) {
	return queue.Call(ctx, h.queue, "session.clicked", func(ctx context.Context) (sessiondto.TransitionOutput, error) {
		return h.usecase.OnNotificationClicked(ctx, sessiondto.ClickedInput{NotificationID: id})
	})
}

func (h CLIHandler) State(ctx context.Context) (sessiondto.StateOutput, error) {
	return h.usecase.State(ctx)
}

func (h CLIHandler) FlushFocus(ctx context.Context) (sessiondto.FlushFocusOutput, error) {
	return queue.Call(ctx, h.queue, "session.flush_focus", h.usecase.FlushFocus)
}
