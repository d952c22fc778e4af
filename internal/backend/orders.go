package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/example/storefront-client/internal/metrics"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/normalize"
)

// Orders fetches the authenticated user's orders. Malformed records are
// dropped and logged.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	payload, err := c.do(ctx, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}

	orders, errs := normalize.OrderList(payload)
	if orders == nil && len(errs) > 0 {
		return nil, fmt.Errorf("%w: orders payload: %v", ErrBackend, errs[0])
	}
	for _, err := range errs {
		metrics.RecordsDropped.WithLabelValues("order").Inc()
		c.logger.Warn().Err(err).Msg("dropped malformed order")
	}
	return orders, nil
}

// History fetches a user's product view history.
func (c *Client) History(ctx context.Context, userID string) ([]model.ViewRecord, error) {
	payload, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/history", nil)
	if err != nil {
		return nil, err
	}

	records, errs := normalize.ViewHistory(payload)
	if records == nil && len(errs) > 0 {
		return nil, fmt.Errorf("%w: history payload: %v", ErrBackend, errs[0])
	}
	for _, err := range errs {
		metrics.RecordsDropped.WithLabelValues("history").Inc()
		c.logger.Warn().Err(err).Msg("dropped malformed history entry")
	}
	return records, nil
}

// TrackView reports a product view to the tracking endpoint.
func (c *Client) TrackView(ctx context.Context, productID string, durationSeconds int) error {
	_, err := c.do(ctx, http.MethodPost, "/track/view", map[string]any{
		"product_id":    productID,
		"view_duration": durationSeconds,
	})
	return err
}
