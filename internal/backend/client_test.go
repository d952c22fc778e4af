package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	return client, srv
}

func TestLogin_EnvelopedPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)
		w.Write([]byte(`{"data": {
			"user": {"_id": "u1", "email": "a@b.c", "username": "alice"},
			"access_token": "tok-1"
		}, "message": "welcome"}`))
	}))

	ident, err := client.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
	assert.Equal(t, "a@b.c", ident.Email)
	assert.Equal(t, "alice", ident.DisplayName)
	assert.Equal(t, "tok-1", ident.Token)
}

func TestLogin_BarePayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"id": "u2", "email": "b@c.d"}, "token": "tok-2"}`))
	}))

	ident, err := client.Login(context.Background(), Credentials{})

	require.NoError(t, err)
	assert.Equal(t, "u2", ident.ID)
	assert.Equal(t, "tok-2", ident.Token)
}

func TestLogin_Rejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid credentials"}`))
	}))

	_, err := client.Login(context.Background(), Credentials{})

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_NoTokenInPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"id": "u1"}}`))
	}))

	_, err := client.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestRegister(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		w.Write([]byte(`{"data": {"user": {"id": "u3", "first_name": "Bob"}, "access_token": "t"}}`))
	}))

	ident, err := client.Register(context.Background(), Profile{Email: "x@y.z", Password: "pw", DisplayName: "Bob"})

	require.NoError(t, err)
	assert.Equal(t, "Bob", ident.DisplayName)
}

func TestTokenAttachment(t *testing.T) {
	var got string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))

	_, err := client.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	client.SetToken("tok")
	_, err = client.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got)

	client.ClearToken()
	_, err = client.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProducts_DropsMalformedRecords(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"products": [
			{"id": "p1", "name": "Widget", "amount": 19.99, "stock": 3},
			{"name": "no id"},
			{"id": "p2", "title": "Gadget", "price": 5}
		]}}`))
	}))

	products, err := client.Products(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, products[0].InStock)
	assert.Equal(t, "p2", products[1].ID)
}

func TestProduct_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "product not found"}`))
	}))

	_, err := client.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorIsTransient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Products(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestTimeoutIsTransient(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	srv := httptest.NewServer(slow)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zerolog.Nop())

	_, err := client.Products(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestRecommendations_WrappedEntries(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recommendations/collaborative/u1", r.URL.Path)
		w.Write([]byte(`{"data": {"recommendations": [
			{"product_id": "p1", "product": {"_id": "p1", "name": "Widget", "amount": 1}}
		]}}`))
	}))

	products, err := client.RecommendationsForUser(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Title)
}

func TestOrders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"orders": [
			{"id": "o1", "status": "delivered", "total": 10,
			 "items": [{"product_id": "p1", "product_name": "W", "quantity": 1, "price": 10}]},
			{"status": "pending"}
		]}}`))
	}))

	orders, err := client.Orders(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
}

func TestHistory(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/u1/history", r.URL.Path)
		w.Write([]byte(`{"data": {"history": [
			{"product_id": "p1", "viewed_at": "2026-02-01T10:00:00", "view_duration": 12}
		]}}`))
	}))

	records, err := client.History(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].ProductID)
}

func TestTrackView(t *testing.T) {
	var body string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/track/view", r.URL.Path)
		buf, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(buf)
		w.Write([]byte(`{"data": {}, "message": "tracked"}`))
	}))

	err := client.TrackView(context.Background(), "p1", 30)

	require.NoError(t, err)
	assert.JSONEq(t, `{"product_id": "p1", "view_duration": 30}`, body)
}
