package out

import (
	"context"

	"outcomes/internal/modules/syncjob/domain"
)

// JobStore returns apperrors.ErrNotFound from Load when no job is pending.
type JobStore interface {
	Load(ctx context.Context) (domain.Job, error)
	Save(ctx context.Context, job domain.Job) error
	Delete(ctx context.Context) error
}

type FocusFlusher interface {
	FlushFocus(ctx context.Context) (sent int, err error)
}

type OutcomeFlusher interface {
	SendSavedOutcomes(ctx context.Context) (sent, remaining int, err error)
}
