// Package wishlist maintains the per-scope set of saved products. Same
// persistence discipline as the cart: write-through, identity-scoped,
// cleared from memory but not storage on logout.
package wishlist

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

var ErrInvalidProduct = errors.New("product id is required")

// Manager owns the wishlist for the current scope. Set semantics over
// product id: at most one entry per product. The lock is held across the
// memory flip and the persistence write, which serializes rapid repeated
// toggles on the same product; the second toggle always observes the first.
type Manager struct {
	durable store.Store
	logger  zerolog.Logger

	mu      sync.Mutex
	scope   string
	entries []model.WishlistEntry
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

// Rescope switches the manager to a new partition, replacing in-memory
// state with the persisted record for that scope.
func (m *Manager) Rescope(ctx context.Context, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scope = scope
	m.entries = m.load(ctx, scope)
}

func (m *Manager) load(ctx context.Context, scope string) []model.WishlistEntry {
	data, ok, err := m.durable.Get(ctx, store.WishlistKey(scope))
	if err != nil {
		metrics.PersistFailures.WithLabelValues("get").Inc()
		m.logger.Error().Err(err).Str("scope", scope).Msg("wishlist hydration failed, starting empty")
		return nil
	}
	if !ok {
		return nil
	}

	var entries []model.WishlistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		m.logger.Warn().Err(err).Str("scope", scope).Msg("discarding corrupt wishlist record")
		return nil
	}
	return entries
}

// Toggle adds the product if absent and removes it if present, reporting
// whether it was added. Two toggles in sequence return to the original
// state.
func (m *Manager) Toggle(ctx context.Context, product model.Product) (added bool, err error) {
	if product.ID == "" {
		return false, ErrInvalidProduct
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ProductID == product.ID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			m.persist(ctx)
			return false, nil
		}
	}
	m.entries = append(m.entries, model.WishlistEntry{
		ProductID: product.ID,
		Snapshot:  product,
	})
	m.persist(ctx)
	return true, nil
}

// Contains reports membership for productID.
func (m *Manager) Contains(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Remove drops the entry for productID, if present.
func (m *Manager) Remove(ctx context.Context, productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ProductID == productID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			m.persist(ctx)
			return
		}
	}
}

// Clear empties the wishlist.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.persist(ctx)
}

// List returns the entries in insertion order.
func (m *Manager) List() []model.WishlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.WishlistEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns the number of saved products.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// persist writes the full current snapshot under the scope key. Called with
// the lock held.
func (m *Manager) persist(ctx context.Context) {
	entries := m.entries
	if entries == nil {
		entries = []model.WishlistEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to encode wishlist")
		return
	}
	if err := m.durable.Set(ctx, store.WishlistKey(m.scope), data); err != nil {
		metrics.PersistFailures.WithLabelValues("set").Inc()
		m.logger.Error().Err(err).Str("scope", m.scope).Msg("wishlist mutation will not survive a reload")
	}
}
