package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MudassirSafi/Wolf-Backend/api/routes"
	"github.com/MudassirSafi/Wolf-Backend/internal/auth"
	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/internal/cart"
	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/internal/payments"
	"github.com/MudassirSafi/Wolf-Backend/internal/reviews"
	"github.com/MudassirSafi/Wolf-Backend/internal/shipments"
	"github.com/MudassirSafi/Wolf-Backend/internal/users"
	stripewebhook "github.com/MudassirSafi/Wolf-Backend/internal/webhooks/stripe"
	"github.com/MudassirSafi/Wolf-Backend/internal/wishlist"
	"github.com/MudassirSafi/Wolf-Backend/pkg/auth/session"
	"github.com/MudassirSafi/Wolf-Backend/pkg/jnt"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/redis"
	pkgstripe "github.com/MudassirSafi/Wolf-Backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc, err := boot.Start("api")
	ctx := proc.Context()
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}
	if err := run(ctx, proc); err != nil {
		proc.Fatal(ctx, "api server stopped unexpectedly", err)
	}
	proc.Shutdown(ctx)
}

func run(ctx context.Context, proc *boot.Process) error {
	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext(ctx)
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	courierMetrics := metrics.NewCourierMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)

	if cfg.FeatureFlags.BootstrapAdmin {
		bootstrapper, err := auth.NewAdminBootstrapper(auth.AdminBootstrapParams{
			DB:             dbClient,
			Users:          usersRepo,
			PasswordConfig: cfg.Password,
			Admin:          cfg.Admin,
			Logger:         logg,
		})
		if err != nil {
			return fmt.Errorf("admin bootstrapper: %w", err)
		}
		if _, err := bootstrapper.Run(ctx); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return fmt.Errorf("catalog service: %w", err)
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, catalogRepo)
	if err != nil {
		return fmt.Errorf("cart service: %w", err)
	}
	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ProductRepo:  catalogRepo,
	})
	if err != nil {
		return fmt.Errorf("wishlist service: %w", err)
	}
	reviewsService, err := reviews.NewService(reviews.NewRepository(conn), catalogRepo, usersRepo)
	if err != nil {
		return fmt.Errorf("reviews service: %w", err)
	}

	publisher := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := orders.NewRepository(conn)
	reservations, err := orders.NewReservations(ordersRepo, catalogRepo, publisher)
	if err != nil {
		return fmt.Errorf("reservations: %w", err)
	}
	ordersService, err := orders.NewService(ordersRepo, catalogRepo, dbClient, publisher, cfg.Checkout, logg)
	if err != nil {
		return fmt.Errorf("orders service: %w", err)
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("stripe client: %w", err)
	}
	if stripeClient.Live() && !cfg.App.IsProd() {
		logg.Warn(ctx, "live stripe keys configured outside prod")
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:            ordersRepo,
		OrderCreator:      ordersService,
		Reservations:      reservations,
		Catalog:           catalogRepo,
		Gateway:           pkgstripe.NewCheckoutGateway(stripeClient),
		TransactionRunner: dbClient,
		Outbox:            publisher,
		Checkout:          cfg.Checkout,
		Stripe:            cfg.Stripe,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return fmt.Errorf("payments service: %w", err)
	}

	courier, err := jnt.NewClient(cfg.Courier, jnt.WithMetrics(courierMetrics))
	if err != nil {
		return fmt.Errorf("courier client: %w", err)
	}
	shipmentsService, err := shipments.NewService(shipments.ServiceParams{
		Shipments:         shipments.NewRepository(conn),
		Orders:            ordersRepo,
		Reservations:      reservations,
		Courier:           courier,
		TransactionRunner: dbClient,
		Outbox:            publisher,
		Warehouse:         cfg.Warehouse,
		Logger:            logg,
	})
	if err != nil {
		return fmt.Errorf("shipments service: %w", err)
	}

	webhookService, err := stripewebhook.NewService(paymentsService, logg)
	if err != nil {
		return fmt.Errorf("stripe webhook service: %w", err)
	}
	webhookGuard, err := redis.NewEventGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		return fmt.Errorf("stripe webhook guard: %w", err)
	}

	handler := routes.NewRouter(routes.Params{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		Sessions:           sessionManager,
		Gatherer:           registry,
		Metrics:            httpMetrics,
		Auth:               authService,
		Catalog:            catalogService,
		Orders:             ordersService,
		Payments:           paymentsService,
		Shipments:          shipmentsService,
		Cart:               cartService,
		Wishlist:           wishlistService,
		Reviews:            reviewsService,
		StripeWebhook:      webhookService,
		StripeClient:       stripeClient,
		StripeWebhookGuard: webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
