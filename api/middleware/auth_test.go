package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/auth"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: "42", Role: enums.ActorRoleBillingAdmin})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var user, role string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if user != "42" || role != string(enums.ActorRoleBillingAdmin) {
		t.Fatalf("unexpected claims in context: user=%q role=%q", user, role)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.ActorRoleBillingAdmin, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleMember)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member got %d", resp.Code)
	}

	req = req.WithContext(WithRole(req.Context(), string(enums.ActorRoleBillingAdmin)))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin got %d", resp.Code)
	}
}

func TestPageIndexSeedsContext(t *testing.T) {
	var index int
	handler := PageIndex(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		index = pager.IndexFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?page=3", nil))
	if resp.Code != http.StatusOK || index != 3 {
		t.Fatalf("expected page 3, got status %d index %d", resp.Code, index)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?page=-1", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative page, got %d", resp.Code)
	}
}
