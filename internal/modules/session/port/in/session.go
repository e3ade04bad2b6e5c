package in

import (
	"context"

	"outcomes/internal/modules/session/dto"
)

type Usecase interface {
	OnForeground(ctx context.Context) (dto.TransitionOutput, error)
	OnBackground(ctx context.Context) (dto.TransitionOutput, error)
	OnNotificationReceived(ctx context.Context, input dto.ReceivedInput) (dto.ReceivedOutput, error)
	OnNotificationClicked(ctx context.Context, input dto.ClickedInput) (dto.TransitionOutput, error)
	State(ctx context.Context) (dto.StateOutput, error)
	Attribution(ctx context.Context) (dto.AttributionOutput, error)
	FlushFocus(ctx context.Context) (dto.FlushFocusOutput, error)
	Checkpoint(ctx context.Context) (bool, error)
}
