package common

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// User identifies the owner of a request. The service only requires a
// stable non-empty ID; Name and Provider are display metadata.
type User struct {
	ID       string `json:"userId"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// DevUser is the identity assumed when no auth headers are present.
// Only meaningful for local development and tests.
var DevUser = User{ID: "dev-user", Name: "Developer", Provider: "local"}

type contextKey int

const userKey contextKey = iota

// WithUser stores the resolved user in the request context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the resolved user, falling back to DevUser.
func UserFromContext(ctx context.Context) User {
	if u, ok := ctx.Value(userKey).(User); ok && u.ID != "" {
		return u
	}
	return DevUser
}

// ResolveUser extracts a user identity from request headers.
//
// Order: X-Client-Principal (base64 JSON principal injected by an auth
// gateway), then Authorization: Bearer <opaque id> for dev/custom
// frontends, then the dev fallback. The token itself is opaque here;
// verification belongs to the gateway in front of this service.
func ResolveUser(r *http.Request) User {
	if principal := r.Header.Get("X-Client-Principal"); principal != "" {
		if u, ok := parsePrincipal(principal); ok {
			return u
		}
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		token := strings.TrimSpace(authz[len("bearer "):])
		if token != "" {
			return User{ID: token, Provider: "bearer"}
		}
	}

	return DevUser
}

// parsePrincipal decodes a base64 JSON principal header.
func parsePrincipal(encoded string) (User, bool) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return User{}, false
	}

	var principal struct {
		UserID           string `json:"userId"`
		UserDetails      string `json:"userDetails"`
		Name             string `json:"name"`
		IdentityProvider string `json:"identityProvider"`
	}
	if err := json.Unmarshal(decoded, &principal); err != nil {
		return User{}, false
	}

	id := principal.UserID
	if id == "" {
		id = principal.UserDetails
	}
	if id == "" {
		return User{}, false
	}

	name := principal.UserDetails
	if principal.Name != "" {
		name = principal.Name
	}

	return User{ID: id, Name: name, Provider: principal.IdentityProvider}, true
}
