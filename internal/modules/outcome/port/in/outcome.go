package in

import (
	"context"

	"outcomes/internal/modules/outcome/dto"
)

type Usecase interface {
	SendOutcome(ctx context.Context, input dto.SendInput) (dto.DeliveryOutput, error)
	SendUniqueOutcome(ctx context.Context, input dto.SendUniqueInput) (dto.DeliveryOutput, error)
	SendSavedOutcomes(ctx context.Context) (dto.FlushOutput, error)
	ClearOutcomes(ctx context.Context) error
	Pending(ctx context.Context) ([]dto.EventOutput, error)
}
