package subscriptions

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/api/controllers/ownercontext"
	"github.com/angelmondragon/recurly-gateway/api/responses"
	"github.com/angelmondragon/recurly-gateway/api/validators"
	subsvc "github.com/angelmondragon/recurly-gateway/internal/subscriptions"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
)

type cancelRequest struct {
	Action string `json:"action" validate:"required,oneof=cancel terminate"`
	Refund string `json:"refund" validate:"omitempty,oneof=none prorated full"`
}

type changePlanRequest struct {
	PlanCode  string `json:"plan_code" validate:"required,max=255"`
	Timeframe string `json:"timeframe" validate:"omitempty,oneof=now renewal"`
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable")
}

func OwnerOverview(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.Overview(r.Context(), owner, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

func PlanSelection(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		selection, err := svc.Plans(r.Context(), owner, actor, ownercontext.Flag(r, "signup"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, selection)
	}
}

func Signup(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subsvc.SignupInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Signup(r.Context(), owner, actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// List relies on middleware.PageIndex for the page index.
func List(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), owner, actor, ownercontext.Flag(r, "signup"), nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Latest(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Latest(r.Context(), owner, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CancelOptions(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		options, err := svc.CancelOptions(r.Context(), owner, actor, chi.URLParam(r, "uuid"), ownercontext.Flag(r, "past_due"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

// Cancel ends a subscription at period end ("cancel") or immediately ("terminate").
func Cancel(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uuid := chi.URLParam(r, "uuid")
		pastDue := ownercontext.Flag(r, "past_due")

		var result *subsvc.Result
		if payload.Action == "terminate" {
			result, err = svc.Terminate(r.Context(), owner, actor, uuid, enums.RefundMode(payload.Refund), pastDue)
		} else {
			result, err = svc.Cancel(r.Context(), owner, actor, uuid, pastDue)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Reactivate(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reactivate(r.Context(), owner, actor, chi.URLParam(r, "uuid"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ChangePlan(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var timeframe *enums.Timeframe
		if payload.Timeframe != "" {
			tf := enums.Timeframe(payload.Timeframe)
			timeframe = &tf
		}

		planCode := validators.SanitizeString(payload.PlanCode, 255)
		result, err := svc.ChangePlan(r.Context(), owner, actor, chi.URLParam(r, "uuid"), planCode, timeframe)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RedeemCoupon(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subsvc.CouponInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Code = validators.SanitizeString(payload.Code, 255)
		payload.Currency = strings.ToUpper(strings.TrimSpace(payload.Currency))

		result, err := svc.RedeemCoupon(r.Context(), owner, actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BillingInfo(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.BillingInfo(r.Context(), owner, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
