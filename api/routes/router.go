package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/recurly-gateway/api/controllers"
	invoicecontrollers "github.com/angelmondragon/recurly-gateway/api/controllers/invoices"
	subscriptioncontrollers "github.com/angelmondragon/recurly-gateway/api/controllers/subscriptions"
	webhookcontrollers "github.com/angelmondragon/recurly-gateway/api/controllers/webhooks"
	"github.com/angelmondragon/recurly-gateway/api/middleware"
	"github.com/angelmondragon/recurly-gateway/internal/invoices"
	subscriptionsvc "github.com/angelmondragon/recurly-gateway/internal/subscriptions"
	"github.com/angelmondragon/recurly-gateway/internal/users"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	pkgredis "github.com/angelmondragon/recurly-gateway/pkg/redis"
)

// Services groups the domain services mounted on the router.
type Services struct {
	Subscriptions subscriptionsvc.Service
	Invoices      invoices.Service
	Users         users.Service
	Push          webhookcontrollers.RecurlyPushService
	PushGuard     webhookcontrollers.RecurlyPushGuard
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	ready map[string]controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	registry prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks/recurly", func(r chi.Router) {
		r.Post("/{key}", webhookcontrollers.RecurlyPush(svc.Push, svc.PushGuard, logg))
		r.Post("/{key}/{subdomain}", webhookcontrollers.RecurlyPush(svc.Push, svc.PushGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/owners/{ownerType}/{ownerID}", func(r chi.Router) {
			r.Get("/", subscriptioncontrollers.OwnerOverview(svc.Subscriptions, logg))
			r.Get("/plans", subscriptioncontrollers.PlanSelection(svc.Subscriptions, logg))
			r.Post("/signup", subscriptioncontrollers.Signup(svc.Subscriptions, logg))
			r.Post("/coupon", subscriptioncontrollers.RedeemCoupon(svc.Subscriptions, logg))
			r.Get("/billing", subscriptioncontrollers.BillingInfo(svc.Subscriptions, logg))

			r.Route("/subscriptions", func(r chi.Router) {
				r.With(middleware.PageIndex(logg)).Get("/", subscriptioncontrollers.List(svc.Subscriptions, logg))
				r.Get("/latest", subscriptioncontrollers.Latest(svc.Subscriptions, logg))
				r.Get("/{uuid}/cancel", subscriptioncontrollers.CancelOptions(svc.Subscriptions, logg))
				r.Post("/{uuid}/cancel", subscriptioncontrollers.Cancel(svc.Subscriptions, logg))
				r.Post("/{uuid}/reactivate", subscriptioncontrollers.Reactivate(svc.Subscriptions, logg))
				r.Post("/{uuid}/change", subscriptioncontrollers.ChangePlan(svc.Subscriptions, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.With(middleware.PageIndex(logg)).Get("/", invoicecontrollers.List(svc.Invoices, logg))
				r.Get("/{number}", invoicecontrollers.Detail(svc.Invoices, logg))
				r.Get("/{number}/pdf", invoicecontrollers.PDF(svc.Invoices, logg))
			})
		})

		r.Route("/v1/users/{userId}", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(svc.Users, logg))
			r.Put("/", controllers.UserUpdateProfile(svc.Users, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleBillingAdmin, logg))
		r.Delete("/v1/users/{userId}", controllers.AdminUserDelete(svc.Users, logg))
	})

	return r
}
