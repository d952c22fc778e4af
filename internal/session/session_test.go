package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-client/internal/backend"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/store"
)

const testSecret = "test-session-secret"

// fakeAuth serves login/register for a fixed user and echoes the bearer
// token it last saw on /products.
type fakeAuth struct {
	reject    bool
	lastToken string
}

func (f *fakeAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login", "/register":
		if f.reject {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"data": {
			"user": {"id": "u1", "email": "a@b.c", "username": "alice"},
			"access_token": "tok-u1"
		}}`))
	case "/products":
		f.lastToken = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestStore(t *testing.T, auth *fakeAuth) (*Store, *backend.Client, *store.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)

	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	durable := store.NewMemoryStore()
	return NewStore(client, durable, testSecret, zerolog.Nop()), client, durable
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, GuestScope, ScopeFor(nil))
	assert.Equal(t, GuestScope, ScopeFor(&model.Identity{}))
	assert.Equal(t, "u1", ScopeFor(&model.Identity{ID: "u1"}))
}

func TestLogin_ActivatesIdentity(t *testing.T) {
	auth := &fakeAuth{}
	sess, client, _ := newTestStore(t, auth)
	ctx := context.Background()

	ident, err := sess.Login(ctx, "a@b.c", "pw")

	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
	require.NotNil(t, sess.Current())
	assert.Equal(t, "u1", sess.Scope())

	// The token rides along on subsequent requests.
	_, err = client.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-u1", auth.lastToken)
}

func TestLogin_RejectionLeavesPriorIdentity(t *testing.T) {
	auth := &fakeAuth{}
	sess, _, _ := newTestStore(t, auth)
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	auth.reject = true
	_, err = sess.Login(ctx, "a@b.c", "wrong")

	assert.ErrorIs(t, err, backend.ErrAuthentication)
	require.NotNil(t, sess.Current())
	assert.Equal(t, "u1", sess.Current().ID)
}

func TestSessionRecord_SealedAtRest(t *testing.T) {
	sess, _, durable := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	box, ok, err := durable.Get(ctx, store.SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, bytes.Contains(box, []byte("tok-u1")), "token stored in the clear")
	assert.False(t, bytes.Contains(box, []byte("a@b.c")), "email stored in the clear")
}

func TestRestore_RoundTrip(t *testing.T) {
	auth := &fakeAuth{}
	sess, _, durable := newTestStore(t, auth)
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	// A fresh store over the same durable medium simulates a reload.
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)
	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	reloaded := NewStore(client, durable, testSecret, zerolog.Nop())

	ident, err := reloaded.Restore(ctx)

	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
	assert.Equal(t, "tok-u1", ident.Token)

	// Token attached without any backend call having happened yet.
	_, err = client.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-u1", auth.lastToken)
}

func TestRestore_NoRecord(t *testing.T) {
	sess, _, _ := newTestStore(t, &fakeAuth{})

	_, err := sess.Restore(context.Background())

	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, sess.Current())
}

func TestRestore_CorruptRecordDiscarded(t *testing.T) {
	sess, _, durable := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	require.NoError(t, durable.Set(ctx, store.SessionKey, []byte("garbage")))

	_, err := sess.Restore(ctx)

	assert.ErrorIs(t, err, ErrNoSession)
	_, ok, err := durable.Get(ctx, store.SessionKey)
	require.NoError(t, err)
	assert.False(t, ok, "corrupt record should be deleted")
}

func TestRestore_WrongSecretDiscarded(t *testing.T) {
	auth := &fakeAuth{}
	sess, _, durable := newTestStore(t, auth)
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)
	client := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	other := NewStore(client, durable, "a-different-secret", zerolog.Nop())

	_, err = other.Restore(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLogout(t *testing.T) {
	sess, _, durable := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	// Unrelated scoped records must survive logout.
	require.NoError(t, durable.Set(ctx, store.CartKey("u1"), []byte(`[]`)))

	sess.Logout(ctx)

	assert.Nil(t, sess.Current())
	assert.Equal(t, GuestScope, sess.Scope())

	_, ok, err := durable.Get(ctx, store.SessionKey)
	require.NoError(t, err)
	assert.False(t, ok, "session record should be deleted")

	_, ok, err = durable.Get(ctx, store.CartKey("u1"))
	require.NoError(t, err)
	assert.True(t, ok, "cart record must be left intact")
}

func TestOnChange_Notifications(t *testing.T) {
	sess, _, _ := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	var seen []*model.Identity
	sess.OnChange(func(ident *model.Identity) {
		seen = append(seen, ident)
	})

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	sess.Logout(ctx)

	require.Len(t, seen, 2)
	require.NotNil(t, seen[0])
	assert.Equal(t, "u1", seen[0].ID)
	assert.Nil(t, seen[1])
}

func TestInvalidate_ForcesLogout(t *testing.T) {
	sess, _, _ := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	_, err := sess.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	sess.Invalidate(ctx)

	assert.Nil(t, sess.Current())
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newSealer("secret")

	box, err := s.seal([]byte("payload"))
	require.NoError(t, err)
	assert.NotContains(t, string(box), "payload")

	plaintext, err := s.open(box)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(plaintext))

	_, err = s.open(box[:4])
	assert.ErrorIs(t, err, ErrSealedRecord)

	box[len(box)-1] ^= 0xff
	_, err = s.open(box)
	assert.ErrorIs(t, err, ErrSealedRecord)
}

func TestRestore_ExpiredTokenStillRestores(t *testing.T) {
	// An expired token is only acted on at the first rejected request;
	// restore itself must succeed without touching the backend.
	sess, _, durable := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	token, err := expired.SignedString([]byte("whatever"))
	require.NoError(t, err)

	record, err := newSealer(testSecret).seal([]byte(`{"id": "u1", "email": "a@b.c", "token": "` + token + `"}`))
	require.NoError(t, err)
	require.NoError(t, durable.Set(ctx, store.SessionKey, record))

	ident, err := sess.Restore(ctx)

	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
}
