package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shutupnraveee/backend/api/controllers"
	"github.com/shutupnraveee/backend/api/middleware"
	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/internal/applications"
	authsvc "github.com/shutupnraveee/backend/internal/auth"
	checkoutsvc "github.com/shutupnraveee/backend/internal/checkout"
	"github.com/shutupnraveee/backend/internal/discounts"
	"github.com/shutupnraveee/backend/internal/fulfillment"
	"github.com/shutupnraveee/backend/internal/orders"
	"github.com/shutupnraveee/backend/internal/pricing"
	"github.com/shutupnraveee/backend/pkg/auth/session"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/enums"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/redis"
	"github.com/shutupnraveee/backend/pkg/storage/gcs"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth         authsvc.Service
	Checkout     checkoutsvc.Service
	Discounts    discounts.Service
	Orders       orders.Service
	Affiliates   affiliates.Service
	Applications applications.Service
	Resolver     *pricing.Resolver
	Fulfillment  *fulfillment.Pipeline
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsP gcs.Pinger,
	sessions session.AccessSessionChecker,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
	)

	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Window: cfg.RateLimit.CheckoutWindow,
		Limit:  cfg.RateLimit.CheckoutLimit,
	}
	loginPolicy := middleware.RateLimitPolicy{
		Name:   "login",
		Window: cfg.RateLimit.LoginWindow,
		Limit:  cfg.RateLimit.LoginLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, gcsP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tickets", controllers.TicketCatalog(svcs.Resolver))
		r.Post("/discounts/validate", controllers.PublicDiscountValidate(svcs.Discounts, logg))

		r.With(middleware.PublicRateLimit(checkoutPolicy, redisClient, logg)).
			Post("/checkout", controllers.CheckoutInitiate(svcs.Checkout, logg))
		r.Get("/checkout/verify/{orderId}", controllers.CheckoutVerify(svcs.Checkout, logg))

		r.Route("/applications", func(r chi.Router) {
			r.Post("/dj", controllers.DJApplicationSubmit(svcs.Applications, logg))
			r.Post("/volunteer", controllers.VolunteerApplicationSubmit(svcs.Applications, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.PublicRateLimit(loginPolicy, redisClient, logg)).
				Post("/admin/login", controllers.AdminAuthLogin(svcs.Auth, logg))
			r.With(middleware.PublicRateLimit(loginPolicy, redisClient, logg)).
				Post("/affiliate/login", controllers.AffiliateAuthLogin(svcs.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(svcs.Orders, logg))
				r.Get("/export", controllers.AdminOrdersExport(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderGet(svcs.Orders, logg))
				r.Post("/{orderId}/deactivate", controllers.AdminOrderDeactivate(svcs.Orders, logg))
				r.Post("/{orderId}/resend-confirmation", controllers.AdminOrderResend(svcs.Orders, svcs.Fulfillment, logg))
			})

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", controllers.AdminDiscountsList(svcs.Discounts, logg))
				r.Post("/", controllers.AdminDiscountCreate(svcs.Discounts, logg))
				r.Patch("/{discountId}", controllers.AdminDiscountUpdate(svcs.Discounts, logg))
				r.Delete("/{discountId}", controllers.AdminDiscountDelete(svcs.Discounts, logg))
			})

			r.Route("/affiliates", func(r chi.Router) {
				r.Get("/", controllers.AdminAffiliatesList(svcs.Affiliates, logg))
				r.Post("/", controllers.AdminAffiliateCreate(svcs.Affiliates, logg))
				r.Get("/{affiliateId}/commissions", controllers.AdminAffiliateCommissions(svcs.Affiliates, logg))
			})

			r.Get("/applications", controllers.AdminApplicationsList(svcs.Applications, logg))
		})
	})

	r.Route("/api/affiliate/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAffiliate, logg))
		r.Get("/me/commissions", controllers.AffiliateMyCommissions(svcs.Affiliates, logg))
	})

	return r
}
