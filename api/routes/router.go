package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MudassirSafi/Wolf-Backend/api/controllers"
	cartcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/cart"
	ordercontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/orders"
	paymentcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/payments"
	reviewcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/reviews"
	shippingcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/shipping"
	webhookcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/webhooks"
	wishlistcontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/wishlist"
	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/internal/auth"
	"github.com/MudassirSafi/Wolf-Backend/internal/cart"
	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/internal/payments"
	"github.com/MudassirSafi/Wolf-Backend/internal/reviews"
	"github.com/MudassirSafi/Wolf-Backend/internal/shipments"
	"github.com/MudassirSafi/Wolf-Backend/internal/wishlist"
	"github.com/MudassirSafi/Wolf-Backend/pkg/auth/session"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/redis"
)

// RedisStore is the redis surface used by the HTTP layer.
type RedisStore interface {
	redis.IdempotencyStore
	redis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingSecretProvider interface {
	SigningSecret() string
}

// Params bundles everything the router mounts.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Auth      auth.Service
	Catalog   catalog.Service
	Orders    orders.Service
	Payments  payments.Service
	Shipments shipments.Service
	Cart      cart.Service
	Wishlist  wishlist.Service
	Reviews   reviews.Service

	StripeWebhook      webhookcontrollers.StripeWebhookService
	StripeClient       signingSecretProvider
	StripeWebhookGuard webhookGuard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if p.Metrics != nil {
		r.Use(middleware.Metrics(p.Metrics))
	}
	r.Use(middleware.CORS(append([]string{cfg.Checkout.FrontendURL}, cfg.Service.CORSOrigins...)...))

	loginLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:     "login",
		Window:   cfg.RateLimit.LoginWindow,
		PerIP:    cfg.RateLimit.LoginIPLimit,
		PerEmail: cfg.RateLimit.LoginEmailLimit,
	}, p.Redis, logg)
	registerLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:     "register",
		Window:   cfg.RateLimit.RegisterWindow,
		PerIP:    cfg.RateLimit.RegisterIPLimit,
		PerEmail: cfg.RateLimit.RegisterEmailLimit,
	}, p.Redis, logg)
	guestOrderLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:       "guest_order",
		Window:     cfg.RateLimit.GuestOrderWindow,
		PerIP:      cfg.RateLimit.GuestOrderIPLimit,
		GuestsOnly: true,
	}, p.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.StripeWebhookGuard, logg))
		r.Post("/jnt", webhookcontrollers.JNTWebhook(p.Shipments, logg))
	})

	// idempotency runs after authentication so stored replies are scoped per user
	idempotent := middleware.Idempotency(p.Redis, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit, idempotent).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(p.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(p.Catalog, logg))
		r.Get("/products/{productId}/reviews", reviewcontrollers.ForProduct(p.Reviews, logg))
		r.Post("/shipping/rates", shippingcontrollers.Rates(p.Shipments, logg))

		// guest-capable
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg), idempotent)
			r.With(guestOrderLimit).Post("/orders", ordercontrollers.Create(p.Orders, logg))
			r.Post("/payments/checkout-session", paymentcontrollers.CheckoutSession(p.Payments, logg))
			r.Post("/payments/verify", paymentcontrollers.Verify(p.Payments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Get("/orders", ordercontrollers.List(p.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Get("/shipping/track/{trackingNumber}", shippingcontrollers.Track(p.Shipments, logg))
			r.Get("/shipping/orders/{orderId}", shippingcontrollers.ForOrder(p.Shipments, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(p.Cart, logg))
				r.Post("/", cartcontrollers.AddItem(p.Cart, logg))
				r.Delete("/", cartcontrollers.Clear(p.Cart, logg))
				r.Delete("/{productId}", cartcontrollers.RemoveItem(p.Cart, logg))
				r.With(idempotent).Post("/checkout", cartcontrollers.Checkout(p.Cart, p.Payments, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistcontrollers.List(p.Wishlist, logg))
				r.Get("/ids", wishlistcontrollers.IDs(p.Wishlist, logg))
				r.Get("/check/{productId}", wishlistcontrollers.Check(p.Wishlist, logg))
				r.Post("/{productId}", wishlistcontrollers.Add(p.Wishlist, logg))
				r.Delete("/{productId}", wishlistcontrollers.Remove(p.Wishlist, logg))
				r.Delete("/", wishlistcontrollers.Clear(p.Wishlist, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", reviewcontrollers.Create(p.Reviews, logg))
				r.Put("/{reviewId}", reviewcontrollers.Update(p.Reviews, logg))
				r.Delete("/{reviewId}", reviewcontrollers.Delete(p.Reviews, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(idempotent)

		r.Post("/products", controllers.AdminCreateProduct(p.Catalog, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(p.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(p.Orders, logg))
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", shippingcontrollers.AdminCreate(p.Shipments, logg))
			r.Get("/", shippingcontrollers.AdminList(p.Shipments, logg))
			r.Post("/{trackingNumber}/cancel", shippingcontrollers.AdminCancel(p.Shipments, logg))
			r.Post("/{trackingNumber}/label", shippingcontrollers.AdminLabel(p.Shipments, logg))
			r.Post("/{trackingNumber}/pickup", shippingcontrollers.AdminPickup(p.Shipments, logg))
		})
	})

	return r
}
