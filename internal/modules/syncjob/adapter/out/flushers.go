package out

import (
	"context"

	outcomein "outcomes/internal/modules/outcome/port/in"
	sessionin "outcomes/internal/modules/session/port/in"
	syncjobout "outcomes/internal/modules/syncjob/port/out"
)

type SessionFocusFlusher struct {
	sessions sessionin.Usecase
}

func NewSessionFocusFlusher(sessions sessionin.Usecase) syncjobout.FocusFlusher {
	return &SessionFocusFlusher{sessions: sessions}
}

func (f *SessionFocusFlusher) FlushFocus(ctx context.Context) (int, error) {
	out, err := f.sessions.FlushFocus(ctx)
	return out.Sent, err
}

type SavedOutcomeFlusher struct {
	outcomes outcomein.Usecase
}

func NewSavedOutcomeFlusher(outcomes outcomein.Usecase) syncjobout.OutcomeFlusher {
	return &SavedOutcomeFlusher{outcomes: outcomes}
}

func (f *SavedOutcomeFlusher) SendSavedOutcomes(ctx context.Context) (int, int, error) {
	out, err := f.outcomes.SendSavedOutcomes(ctx)
	return out.Sent, out.Remaining, err
}
