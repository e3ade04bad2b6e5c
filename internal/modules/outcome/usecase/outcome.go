package usecase

import (
	"context"
	"slices"

	"outcomes/internal/modules/outcome/domain"
	outcomedto "outcomes/internal/modules/outcome/dto"
	outcomein "outcomes/internal/modules/outcome/port/in"
	"outcomes/internal/modules/outcome/service"
)

type Interactor struct {
	svc *service.DeliveryService
}

func NewInteractor(svc *service.DeliveryService) outcomein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) SendOutcome(ctx context.Context, input outcomedto.SendInput) (outcomedto.DeliveryOutput, error) {
	d, err := i.svc.Send(ctx, input.Name, input.Weight)
	if err != nil {
		return outcomedto.DeliveryOutput{}, err
	}
	return toDelivery(d), nil
}

func (i *Interactor) SendUniqueOutcome(ctx context.Context, input outcomedto.SendUniqueInput) (outcomedto.DeliveryOutput, error) {
	d, err := i.svc.SendUnique(ctx, input.Name)
	if err != nil {
		return outcomedto.DeliveryOutput{}, err
	}
	return toDelivery(d), nil
}

func (i *Interactor) SendSavedOutcomes(ctx context.Context) (outcomedto.FlushOutput, error) {
	res, err := i.svc.SendSaved(ctx)
	if err != nil {
		return outcomedto.FlushOutput{}, err
	}
	return outcomedto.FlushOutput{Attempted: res.Attempted, Sent: res.Sent, Rejected: res.Rejected, Remaining: res.Remaining}, nil
}

func (i *Interactor) ClearOutcomes(context.Context) error {
	i.svc.Clear()
	return nil
}

func (i *Interactor) Pending(ctx context.Context) ([]outcomedto.EventOutput, error) {
	events, err := i.svc.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]outcomedto.EventOutput, 0, len(events))
	for _, ev := range events {
		out = append(out, outcomedto.EventOutput{
			Name:            ev.Name,
			Session:         string(ev.Session),
			NotificationIDs: slices.Clone(ev.NotificationIDs),
			Params:          ev.Params,
		})
	}
	return out, nil
}

func toDelivery(d domain.Delivery) outcomedto.DeliveryOutput {
	out := outcomedto.DeliveryOutput{
		Name:            d.Event.Name,
		Session:         string(d.Event.Session),
		NotificationIDs: slices.Clone(d.Event.NotificationIDs),
		Weight:          d.Event.Weight,
		Status:          string(d.Status),
	}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	return out
}
