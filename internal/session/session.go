// Package session owns the active Identity and its lifecycle. It is the only
// writer of the persisted session record and the single trigger for clearing
// dependent in-memory state: cart and wishlist managers subscribe to identity
// changes and re-scope themselves.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/example/storefront-client/internal/backend"
	"github.com/example/storefront-client/internal/metrics"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/store"
)

// GuestScope is the partition key for unauthenticated state.
const GuestScope = "guest"

// ErrNoSession is returned by Restore when no persisted session exists.
var ErrNoSession = errors.New("no persisted session")

// ScopeFor maps an identity (or its absence) to the partition key under
// which cart and wishlist state is persisted.
func ScopeFor(ident *model.Identity) string {
	if ident == nil || ident.ID == "" {
		return GuestScope
	}
	return ident.ID
}

// Store holds the current authenticated identity. All mutation goes through
// Login, Register, Logout, Restore and Invalidate.
type Store struct {
	client  *backend.Client
	durable store.Store
	sealer  *sealer
	logger  zerolog.Logger

	mu        sync.RWMutex
	current   *model.Identity
	listeners []func(*model.Identity)
}

func NewStore(client *backend.Client, durable store.Store, secret string, logger zerolog.Logger) *Store {
	return &Store{
		client:  client,
		durable: durable,
		sealer:  newSealer(secret),
		logger:  logger,
	}
}

// OnChange registers a listener invoked after every identity transition with
// the new identity (nil after logout). Listeners are invoked synchronously
// in registration order, outside the store lock.
func (s *Store) OnChange(fn func(*model.Identity)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Current returns a copy of the active identity, or nil.
func (s *Store) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	ident := *s.current
	return &ident
}

// Scope returns the partition key for the active identity, or GuestScope.
func (s *Store) Scope() string {
	return ScopeFor(s.Current())
}

// Login authenticates against the auth backend. On success the new identity
// replaces the active one; on rejection the prior identity is untouched.
func (s *Store) Login(ctx context.Context, email, password string) (model.Identity, error) {
	ident, err := s.client.Login(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil {
		return model.Identity{}, err
	}
	s.activate(ctx, ident)
	return ident, nil
}

// Register creates an account and activates the resulting identity.
func (s *Store) Register(ctx context.Context, email, password, displayName string) (model.Identity, error) {
	ident, err := s.client.Register(ctx, backend.Profile{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return model.Identity{}, err
	}
	s.activate(ctx, ident)
	return ident, nil
}

// Logout clears the active identity and its persisted record. Cart and
// wishlist records stay in the durable store, keyed by the identity id, and
// re-hydrate on the next login by the same identity.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.client.ClearToken()
	if err := s.durable.Delete(ctx, store.SessionKey); err != nil {
		metrics.PersistFailures.WithLabelValues("delete").Inc()
		s.logger.Error().Err(err).Msg("failed to delete persisted session")
	}
	s.notify(nil)
}

// Invalidate is the forced variant of Logout, used when a request was
// rejected for an expired or invalid token.
func (s *Store) Invalidate(ctx context.Context) {
	s.logger.Warn().Msg("session invalidated by backend, forcing logout")
	s.Logout(ctx)
}

// Restore loads the persisted session record at startup. It never contacts
// the backend: an expired token is only discovered on the first rejected
// request. Returns ErrNoSession when no structurally valid record exists.
func (s *Store) Restore(ctx context.Context) (model.Identity, error) {
	box, ok, err := s.durable.Get(ctx, store.SessionKey)
	if err != nil {
		metrics.PersistFailures.WithLabelValues("get").Inc()
		return model.Identity{}, err
	}
	if !ok {
		return model.Identity{}, ErrNoSession
	}

	plaintext, err := s.sealer.open(box)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable session record")
		s.discard(ctx)
		return model.Identity{}, ErrNoSession
	}

	var ident model.Identity
	if err := json.Unmarshal(plaintext, &ident); err != nil || ident.ID == "" || ident.Token == "" {
		s.logger.Warn().Msg("discarding structurally invalid session record")
		s.discard(ctx)
		return model.Identity{}, ErrNoSession
	}

	s.warnIfExpired(ident.Token)
	s.activate(ctx, ident)
	return ident, nil
}

// activate installs ident as the current identity, attaches its token to the
// backend client, persists the sealed record and notifies dependents.
func (s *Store) activate(ctx context.Context, ident model.Identity) {
	s.mu.Lock()
	cp := ident
	s.current = &cp
	s.mu.Unlock()

	s.client.SetToken(ident.Token)
	s.persist(ctx, ident)
	s.notify(&ident)
}

func (s *Store) persist(ctx context.Context, ident model.Identity) {
	plaintext, err := json.Marshal(ident)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode session record")
		return
	}
	box, err := s.sealer.seal(plaintext)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to seal session record")
		return
	}
	if err := s.durable.Set(ctx, store.SessionKey, box); err != nil {
		metrics.PersistFailures.WithLabelValues("set").Inc()
		s.logger.Error().Err(err).Msg("session will not survive a reload")
	}
}

func (s *Store) discard(ctx context.Context) {
	if err := s.durable.Delete(ctx, store.SessionKey); err != nil {
		metrics.PersistFailures.WithLabelValues("delete").Inc()
		s.logger.Error().Err(err).Msg("failed to delete stale session record")
	}
}

func (s *Store) notify(ident *model.Identity) {
	s.mu.RLock()
	listeners := make([]func(*model.Identity), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ident)
	}
}

// warnIfExpired inspects the token's exp claim without validating the
// signature. Purely informational; the backend remains the authority.
func (s *Store) warnIfExpired(token string) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(time.Now()) {
		s.logger.Warn().Time("expired_at", exp.Time).Msg("restored session token appears expired")
	}
}
