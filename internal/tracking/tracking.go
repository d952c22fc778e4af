// Package tracking records product view events. Events feed the
// recommendation models on the backend, so delivery is best effort:
// a failed publish is logged and never surfaces to the caller.
package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/storefront-client/internal/model"
)

// Event is a single product view.
type Event struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ProductID       string    `json:"product_id"`
	DurationSeconds float64   `json:"view_duration"`
	ViewedAt        time.Time `json:"viewed_at"`
}

// Publisher delivers view events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Recorder stamps and forwards view events. A nil publisher disables
// tracking entirely.
type Recorder struct {
	publisher Publisher
	logger    zerolog.Logger
}

func NewRecorder(publisher Publisher, logger zerolog.Logger) *Recorder {
	return &Recorder{publisher: publisher, logger: logger}
}

// RecordView publishes a view of product by userID. Tracking must never
// break browsing, so failures are logged and swallowed.
func (r *Recorder) RecordView(ctx context.Context, userID string, product model.Product, duration time.Duration) {
	if r.publisher == nil || product.ID == "" {
		return
	}

	event := Event{
		ID:              uuid.New().String(),
		UserID:          userID,
		ProductID:       product.ID,
		DurationSeconds: duration.Seconds(),
		ViewedAt:        time.Now().UTC(),
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn().Err(err).
			Str("product_id", event.ProductID).
			Msg("failed to publish view event")
	}
}

func (r *Recorder) Close() error {
	if r.publisher == nil {
		return nil
	}
	return r.publisher.Close()
}
