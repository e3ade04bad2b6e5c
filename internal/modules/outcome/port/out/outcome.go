package out

import (
	"context"

	"outcomes/internal/modules/outcome/domain"
)

// Store holds outcomes whose delivery failed transiently. Append is durable
// once it returns and ListAll yields rows in insertion order.
type Store interface {
	Append(ctx context.Context, event domain.Event) error
	ListAll(ctx context.Context) ([]domain.Event, error)
	Remove(ctx context.Context, event domain.Event) error
	Clear(ctx context.Context) error
}

type MeasureClient interface {
	RequestDirect(ctx context.Context, payload domain.Payload) error
	RequestIndirect(ctx context.Context, payload domain.Payload) error
	RequestUnattributed(ctx context.Context, payload domain.Payload) error
}

type AttributionSource interface {
	Attribution(ctx context.Context) (domain.Attribution, error)
}

type Metrics interface {
	Delivered(route domain.SessionType, status domain.Status)
	Replayed(status domain.Status)
}
