package out

import (
	"context"

	"outcomes/internal/modules/outcome/domain"
	outcomeout "outcomes/internal/modules/outcome/port/out"
	"outcomes/internal/platform/rest"
)

const MeasurePath = "/outcomes/measure"

// RESTMeasureClient posts every route to the measure endpoint; the payload
// shape already tells the backend how the outcome was attributed.
type RESTMeasureClient struct {
	client *rest.Client
}

func NewRESTMeasureClient(client *rest.Client) outcomeout.MeasureClient {
	return &RESTMeasureClient{client: client}
}

func (c *RESTMeasureClient) RequestDirect(ctx context.Context, payload domain.Payload) error {
	return c.client.PostJSON(ctx, MeasurePath, payload)
}

func (c *RESTMeasureClient) RequestIndirect(ctx context.Context, payload domain.Payload) error {
	return c.client.PostJSON(ctx, MeasurePath, payload)
}

func (c *RESTMeasureClient) RequestUnattributed(ctx context.Context, payload domain.Payload) error {
	return c.client.PostJSON(ctx, MeasurePath, payload)
}
