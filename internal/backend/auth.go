package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/normalize"
)

// Credentials are what Login sends to the auth backend.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is what Register sends to the auth backend.
type Profile struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name,omitempty"`
}

// Login exchanges credentials for an identity. Never retried: a failed
// login is surfaced and retried only by the user.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.Identity, error) {
	return c.authenticate(ctx, "/login", creds)
}

// Register creates an account and returns the resulting identity. Same
// retry policy as Login.
func (c *Client) Register(ctx context.Context, profile Profile) (model.Identity, error) {
	return c.authenticate(ctx, "/register", profile)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (model.Identity, error) {
	payload, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return model.Identity{}, err
	}

	ident, err := normalize.AuthSession(payload)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return ident, nil
}
