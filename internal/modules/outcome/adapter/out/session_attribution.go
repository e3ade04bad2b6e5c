package out

import (
	"context"

	"outcomes/internal/modules/outcome/domain"
	outcomeout "outcomes/internal/modules/outcome/port/out"
	sessionin "outcomes/internal/modules/session/port/in"
)

// SessionAttribution reads the current attribution from the session module.
type SessionAttribution struct {
	sessions sessionin.Usecase
}

func NewSessionAttribution(sessions sessionin.Usecase) outcomeout.AttributionSource {
	return &SessionAttribution{sessions: sessions}
}

func (a *SessionAttribution) Attribution(ctx context.Context) (domain.Attribution, error) {
	att, err := a.sessions.Attribution(ctx)
	if err != nil {
		return domain.Attribution{}, err
	}
	return domain.Attribution{Session: domain.SessionType(att.Type), NotificationIDs: att.NotificationIDs}, nil
}
