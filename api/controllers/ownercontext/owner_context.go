package ownercontext

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/api/middleware"
	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

// Resolve extracts the owner named by the route and the authenticated actor.
func Resolve(r *http.Request) (accounts.Owner, entitlements.Actor, error) {
	actor, err := ResolveActor(r)
	if err != nil {
		return accounts.Owner{}, entitlements.Actor{}, err
	}
	owner, err := accounts.NewOwner(chi.URLParam(r, "ownerType"), chi.URLParam(r, "ownerID"))
	if err != nil {
		return accounts.Owner{}, entitlements.Actor{}, err
	}
	return owner, actor, nil
}

// ResolveActor reads the actor seeded by the auth middleware.
func ResolveActor(r *http.Request) (entitlements.Actor, error) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		return entitlements.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context required")
	}
	role := enums.ActorRole(middleware.RoleFromContext(ctx))
	if !role.IsValid() {
		return entitlements.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "actor role required")
	}
	return entitlements.Actor{ID: userID, Role: role}, nil
}

// Flag reads a boolean query flag such as ?signup=1 or ?past_due=1.
func Flag(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
