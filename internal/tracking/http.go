package tracking

import (
	"context"

	"github.com/example/storefront-client/internal/backend"
)

// HTTPPublisher sends view events straight to the storefront API. The
// request rides the client's session token, so the backend attributes the
// view itself and the event's UserID is informational only.
type HTTPPublisher struct {
	client *backend.Client
}

func NewHTTPPublisher(client *backend.Client) *HTTPPublisher {
	return &HTTPPublisher{client: client}
}

func (p *HTTPPublisher) Publish(ctx context.Context, event Event) error {
	return p.client.TrackView(ctx, event.ProductID, int(event.DurationSeconds))
}

func (p *HTTPPublisher) Close() error { return nil }
