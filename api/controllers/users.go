package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/api/controllers/ownercontext"
	"github.com/angelmondragon/recurly-gateway/api/responses"
	"github.com/angelmondragon/recurly-gateway/api/validators"
	"github.com/angelmondragon/recurly-gateway/internal/users"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
)

// userTarget parses {userId} and requires the actor to be that user or a billing admin.
func userTarget(r *http.Request) (int64, error) {
	actor, err := ownercontext.ResolveActor(r)
	if err != nil {
		return 0, err
	}
	raw := chi.URLParam(r, "userId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id")
	}
	if !actor.IsAdmin() && actor.ID != raw {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage another user")
	}
	return id, nil
}

func UserProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		id, err := userTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UserUpdateProfile saves profile fields and mirrors them onto the billing account.
func UserUpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		id, err := userTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload users.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminUserDelete closes the user's billing account, then deletes the user.
func AdminUserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		id, err := userTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
