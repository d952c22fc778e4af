// Package cart maintains the per-scope shopping cart. State lives in memory
// and is written through to the durable store on every mutation, so a reload
// never loses a confirmed change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/storefront-client/internal/metrics"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/session"
	"github.com/example/storefront-client/internal/store"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id is required")
)

// Manager owns the cart for the current scope. One lock covers both the
// in-memory lines and the persistence write: a mutation's snapshot is written
// before the next mutation starts, so persisted writes are ordered by issue
// and a slow earlier write can never overwrite a later one.
type Manager struct {
	durable store.Store
	logger  zerolog.Logger

	mu    sync.Mutex // held across memory update + persist
	scope string
	lines []model.CartLine
}

func NewManager(durable store.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		durable: durable,
		logger:  logger,
		scope:   session.GuestScope,
	}
}

// Bind subscribes the manager to identity changes and hydrates the current
// scope. Call once during wiring.
func (m *Manager) Bind(ctx context.Context, sess *session.Store) {
	m.Rescope(ctx, sess.Scope())
	sess.OnChange(func(ident *model.Identity) {
		m.Rescope(ctx, session.ScopeFor(ident))
	})
}

// Rescope switches the manager to a new partition: in-memory state is
// replaced wholesale by whatever the durable store holds for that scope.
// Nothing is persisted here, so the previous scope's record stays intact.
func (m *Manager) Rescope(ctx context.Context, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scope = scope
	m.lines = m.load(ctx, scope)
}

func (m *Manager) load(ctx context.Context, scope string) []model.CartLine {
	data, ok, err := m.durable.Get(ctx, store.CartKey(scope))
	if err != nil {
		metrics.PersistFailures.WithLabelValues("get").Inc()
		m.logger.Error().Err(err).Str("scope", scope).Msg("cart hydration failed, starting empty")
		return nil
	}
	if !ok {
		return nil
	}

	var lines []model.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		m.logger.Warn().Err(err).Str("scope", scope).Msg("discarding corrupt cart record")
		return nil
	}
	return lines
}

// AddItem adds quantity of product, merging into an existing line for the
// same product id. The snapshot is taken at add time and deliberately not
// refreshed by later catalog fetches.
func (m *Manager) AddItem(ctx context.Context, product model.Product, quantity int) error {
	if product.ID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ProductID == product.ID {
			m.lines[i].Quantity += quantity
			m.persist(ctx)
			return nil
		}
	}
	m.lines = append(m.lines, model.CartLine{
		ProductID: product.ID,
		Snapshot:  product,
		Quantity:  quantity,
	})
	m.persist(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity exactly; zero or less removes the
// line. Unknown product ids are a no-op.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
		} else {
			m.lines[i].Quantity = quantity
		}
		m.persist(ctx)
		return
	}
}

// RemoveItem removes the line for productID, if present.
func (m *Manager) RemoveItem(ctx context.Context, productID string) {
	m.UpdateQuantity(ctx, productID, 0)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = nil
	m.persist(ctx)
}

// Lines returns the cart lines in insertion order.
func (m *Manager) Lines() []model.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

// Total is recomputed on every call from the line snapshots.
func (m *Manager) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, line := range m.lines {
		total += line.Subtotal()
	}
	return total
}

// Count returns the total number of units across all lines.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int
	for _, line := range m.lines {
		count += line.Quantity
	}
	return count
}

// persist writes the full current snapshot under the scope key. Called with
// the lock held. A failed write is logged; the in-memory mutation stands.
func (m *Manager) persist(ctx context.Context) {
	lines := m.lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to encode cart")
		return
	}
	if err := m.durable.Set(ctx, store.CartKey(m.scope), data); err != nil {
		metrics.PersistFailures.WithLabelValues("set").Inc()
		m.logger.Error().Err(err).Str("scope", m.scope).Msg("cart mutation will not survive a reload")
	}
}
