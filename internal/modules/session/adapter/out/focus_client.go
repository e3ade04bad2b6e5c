package out

import (
	"context"

	"outcomes/internal/modules/session/domain"
	sessionout "outcomes/internal/modules/session/port/out"
	"outcomes/internal/platform/rest"
)

const FocusPath = "/sessions/on_focus"

type RESTFocusClient struct {
	client *rest.Client
}

func NewRESTFocusClient(client *rest.Client) sessionout.FocusClient {
	return &RESTFocusClient{client: client}
}

func (c *RESTFocusClient) SendFocus(ctx context.Context, payload domain.FocusPayload) error {
	return c.client.PostJSON(ctx, FocusPath, payload)
}
