package common

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"testing"
)

func TestResolveUser_DevFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/schedules", nil)

	u := ResolveUser(r)
	if u.ID != "dev-user" {
		t.Errorf("expected dev-user fallback, got %s", u.ID)
	}
	if u.Provider != "local" {
		t.Errorf("expected local provider, got %s", u.Provider)
	}
}

func TestResolveUser_Bearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/schedules", nil)
	r.Header.Set("Authorization", "Bearer user-42")

	u := ResolveUser(r)
	if u.ID != "user-42" {
		t.Errorf("expected user-42, got %s", u.ID)
	}
	if u.Provider != "bearer" {
		t.Errorf("expected bearer provider, got %s", u.Provider)
	}
}

func TestResolveUser_BearerEmptyToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/schedules", nil)
	r.Header.Set("Authorization", "Bearer ")

	u := ResolveUser(r)
	if u.ID != "dev-user" {
		t.Errorf("empty bearer token should fall back to dev-user, got %s", u.ID)
	}
}

func TestResolveUser_Principal(t *testing.T) {
	principal := base64.StdEncoding.EncodeToString([]byte(
		`{"userId":"abc123","userDetails":"alice@example.com","identityProvider":"google"}`,
	))

	r := httptest.NewRequest("GET", "/api/schedules", nil)
	r.Header.Set("X-Client-Principal", principal)

	u := ResolveUser(r)
	if u.ID != "abc123" {
		t.Errorf("expected abc123, got %s", u.ID)
	}
	if u.Name != "alice@example.com" {
		t.Errorf("expected alice@example.com, got %s", u.Name)
	}
	if u.Provider != "google" {
		t.Errorf("expected google, got %s", u.Provider)
	}
}

func TestResolveUser_PrincipalFallsBackToUserDetails(t *testing.T) {
	principal := base64.StdEncoding.EncodeToString([]byte(
		`{"userDetails":"bob@example.com","identityProvider":"github"}`,
	))

	r := httptest.NewRequest("GET", "/api/schedules", nil)
	r.Header.Set("X-Client-Principal", principal)

	u := ResolveUser(r)
	if u.ID != "bob@example.com" {
		t.Errorf("expected bob@example.com, got %s", u.ID)
	}
}

func TestResolveUser_MalformedPrincipal(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/schedules", nil)
	r.Header.Set("X-Client-Principal", "not-base64!!!")

	u := ResolveUser(r)
	if u.ID != "dev-user" {
		t.Errorf("malformed principal should fall back to dev-user, got %s", u.ID)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), User{ID: "u1", Name: "U One"})

	u := UserFromContext(ctx)
	if u.ID != "u1" {
		t.Errorf("expected u1, got %s", u.ID)
	}

	// Missing value falls back to dev user
	u = UserFromContext(context.Background())
	if u.ID != "dev-user" {
		t.Errorf("expected dev-user fallback, got %s", u.ID)
	}
}
