package in

import (
	"context"
	"time"

	"outcomes/internal/modules/syncjob/dto"
)

type Usecase interface {
	// Schedule persists a sync job due one job delay after from.
	Schedule(ctx context.Context, from time.Time) (dto.JobOutput, error)
	RunDue(ctx context.Context) (dto.RunOutput, error)
	RunNow(ctx context.Context) (dto.RunOutput, error)
	Pending(ctx context.Context) (dto.JobOutput, error)
}
