package in

import (
	"context"

	outcomedto "outcomes/internal/modules/outcome/dto"
	outcomein "outcomes/internal/modules/outcome/port/in"
	"outcomes/internal/platform/queue"
)

// Handler is the application-facing entry point. Each call is one queue
// turn, so sends, replays and lifecycle signals never interleave.
type Handler struct {
	usecase outcomein.Usecase
	queue   *queue.Serial
}

func NewHandler(usecase outcomein.Usecase, q *queue.Serial) Handler {
	return Handler{usecase: usecase, queue: q}
}

func (h Handler) SendOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error) {
	return h.send(ctx, outcomedto.SendInput{Name: name})
}

func (h Handler) SendOutcomeWithValue(ctx context.Context, name string, weight float64) (outcomedto.DeliveryOutput, error) {
	return h.send(ctx, outcomedto.SendInput{Name: name, Weight: &weight})
}

func (h Handler) SendUniqueOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error) {
	return queue.Call(ctx, h.queue, "outcome.send_unique", func(ctx context.Context) (outcomedto.DeliveryOutput, error) {
		return h.usecase.SendUniqueOutcome(ctx, outcomedto.SendUniqueInput{Name: name})
	})
}

func (h Handler) SendSavedOutcomes(ctx context.Context) (outcomedto.FlushOutput, error) {
	return queue.Call(ctx, h.queue, "outcome.send_saved", h.usecase.SendSavedOutcomes)
}

func (h Handler) ClearOutcomes(ctx context.Context) error {
	return h.queue.Do(ctx, "outcome.clear", h.usecase.ClearOutcomes)
}

func (h Handler) Pending(ctx context.Context) ([]outcomedto.EventOutput, error) {
	return queue.Call(ctx, h.queue, "outcome.pending", h.usecase.Pending)
}

func (h Handler) send(ctx context.Context, input outcomedto.SendInput) (outcomedto.DeliveryOutput, error) {
	return queue.Call(ctx, h.queue, "outcome.send", func(ctx context.Context) (outcomedto.DeliveryOutput, error) {
		return h.usecase.SendOutcome(ctx, input)
	})
}
