package usecase

import (
	"context"
	"slices"

	"outcomes/internal/modules/session/domain"
	sessiondto "outcomes/internal/modules/session/dto"
	sessionin "outcomes/internal/modules/session/port/in"
	"outcomes/internal/modules/session/service"
)

type Interactor struct {
	svc *service.SessionService
}

func NewInteractor(svc *service.SessionService) sessionin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) OnForeground(ctx context.Context) (sessiondto.TransitionOutput, error) {
	tr, err := i.svc.Foreground(ctx)
	return toTransition(tr), err
}

func (i *Interactor) OnBackground(ctx context.Context) (sessiondto.TransitionOutput, error) {
	tr, err := i.svc.Background(ctx)
	return toTransition(tr), err
}

func (i *Interactor) OnNotificationReceived(ctx context.Context, input sessiondto.ReceivedInput) (sessiondto.ReceivedOutput, error) {
	accepted, err := i.svc.NotificationReceived(ctx, input.NotificationID, input.WasBackground)
	if err != nil {
		return sessiondto.ReceivedOutput{}, err
	}
	return sessiondto.ReceivedOutput{NotificationID: input.NotificationID, Accepted: accepted}, nil
}

func (i *Interactor) OnNotificationClicked(ctx context.Context, input sessiondto.ClickedInput) (sessiondto.TransitionOutput, error) {
	tr, err := i.svc.NotificationClicked(ctx, input.NotificationID)
	return toTransition(tr), err
}

func (i *Interactor) State(context.Context) (sessiondto.StateOutput, error) {
	st := i.svc.State()
	out := sessiondto.StateOutput{
		Attribution:    toAttribution(st.Attribution()),
		StartedAt:      st.StartedAt,
		ActiveTime:     st.ActiveTime,
		Foreground:     st.Foreground,
		ClickPending:   st.ClickPending,
		BackgroundedAt: st.BackgroundedAt,
	}
	for _, r := range st.Received {
		out.Received = append(out.Received, r.ID)
	}
	for _, f := range st.PendingFocus {
		out.PendingFocus = append(out.PendingFocus, sessiondto.FocusOutput{
			Type:            string(f.Type),
			NotificationIDs: slices.Clone(f.NotificationIDs),
			ActiveTime:      f.ActiveTime,
		})
	}
	return out, nil
}

func (i *Interactor) Attribution(context.Context) (sessiondto.AttributionOutput, error) {
	return toAttribution(i.svc.Attribution()), nil
}

func (i *Interactor) FlushFocus(ctx context.Context) (sessiondto.FlushFocusOutput, error) {
	res, err := i.svc.FlushFocus(ctx)
	return sessiondto.FlushFocusOutput{Sent: res.Sent, Dropped: res.Dropped, Remaining: res.Remaining}, err
}

func (i *Interactor) Checkpoint(ctx context.Context) (bool, error) {
	return i.svc.Checkpoint(ctx)
}

func toTransition(tr domain.Transition) sessiondto.TransitionOutput {
	return sessiondto.TransitionOutput{
		NewSession: tr.NewSession,
		Previous:   string(tr.Previous),
		Type:       string(tr.Current),
		Elapsed:    tr.Elapsed,
	}
}

func toAttribution(att domain.Attribution) sessiondto.AttributionOutput {
	return sessiondto.AttributionOutput{
		Type:                 string(att.Type),
		DirectNotificationID: att.DirectNotificationID,
		NotificationIDs:      slices.Clone(att.NotificationIDs),
	}
}
