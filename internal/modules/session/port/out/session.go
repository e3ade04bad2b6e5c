package out

import (
	"context"
	"time"

	"outcomes/internal/modules/session/domain"
)

// StateStore persists the whole session state. Load returns apperrors.ErrNotFound
// when nothing was saved yet.
type StateStore interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
}

type FocusClient interface {
	SendFocus(ctx context.Context, payload domain.FocusPayload) error
}

// Listener is notified after a lifecycle transition has been persisted.
type Listener interface {
	SessionStarted(ctx context.Context, attribution domain.Attribution)
	Backgrounded(ctx context.Context, at time.Time)
}
