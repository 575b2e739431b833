package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/api/responses"
	recurlywebhook "github.com/angelmondragon/recurly-gateway/internal/webhooks/recurly"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// maxNotificationBytes bounds a push document.
const maxNotificationBytes = 1 << 20

type RecurlyPushService interface {
	Verify(ctx context.Context, key, subdomain string) error
	Parse(ctx context.Context, body []byte) (*recurly.Notification, error)
	Handle(ctx context.Context, notification *recurly.Notification) error
}

type RecurlyPushGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// RecurlyPush handles gateway push notifications posted to
// /webhooks/recurly/{key} or /webhooks/recurly/{key}/{subdomain}.
func RecurlyPush(svc RecurlyPushService, guard RecurlyPushGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "push service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		if err := svc.Verify(ctx, chi.URLParam(r, "key"), chi.URLParam(r, "subdomain")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		notification, err := svc.Parse(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deliveryID := recurlywebhook.Digest(payload)
		alreadyProcessed, err := guard.CheckAndMark(ctx, deliveryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]any{"type": notification.Type, "duplicate": true})
			return
		}

		if err := svc.Handle(ctx, notification); err != nil {
			_ = guard.Delete(ctx, deliveryID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithAccountCode(ctx, notification.Account.Code), "push."+notification.Type.EventName()+".processed")
		}
		responses.WriteSuccess(w, map[string]any{"type": notification.Type, "duplicate": false})
	}
}
