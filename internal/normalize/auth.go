package normalize

import (
	"fmt"

	"github.com/example/storefront-client/internal/model"
)

// AuthSession extracts the identity and access token from a login or
// register payload of the shape {user, access_token}. Older backend builds
// emit the token under "token"; both are accepted.
func AuthSession(payload any) (model.Identity, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return model.Identity{}, fmt.Errorf("auth payload: %w", ErrNotObject)
	}

	user, ok := m["user"].(map[string]any)
	if !ok {
		return model.Identity{}, invalid("user", "no user returned")
	}

	token := stringField(m, "access_token", "token")
	if token == "" {
		return model.Identity{}, invalid("access_token", "no token returned")
	}

	id, err := resolveID(user, "id", "_id")
	if err != nil {
		return model.Identity{}, err
	}

	return model.Identity{
		ID:          id,
		Email:       stringField(user, "email"),
		DisplayName: stringField(user, "username", "first_name", "name"),
		Token:       token,
	}, nil
}
