package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/internal/cron"
	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/internal/payments"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	pkgstripe "github.com/MudassirSafi/Wolf-Backend/pkg/stripe"
)

// cron-worker closes abandoned checkouts, releases their stock and prunes the
// outbox.
// Replicas coordinate through a redis lock, so running several is safe.
func main() {
	proc, err := boot.Start("cron-worker")
	ctx := proc.Context()
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}
	cfg, logg := proc.Config, proc.Logger

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "database unavailable", err)
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		proc.Fatal(ctx, "redis unavailable", err)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		proc.Fatal(ctx, "failed to create cron lock", err)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	publisher := outbox.NewService(outboxRepo, logg)
	reservations, err := orders.NewReservations(ordersRepo, catalogRepo, publisher)
	if err != nil {
		proc.Fatal(ctx, "failed to create reservations", err)
	}
	ordersService, err := orders.NewService(ordersRepo, catalogRepo, dbClient, publisher, cfg.Checkout, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to create orders service", err)
	}

	// expiring the hosted session first stops a late payment for a released order
	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		proc.Fatal(ctx, "stripe client unavailable", err)
	}
	checkout, err := payments.NewService(payments.ServiceParams{
		Orders:            ordersRepo,
		OrderCreator:      ordersService,
		Reservations:      reservations,
		Catalog:           catalogRepo,
		Gateway:           pkgstripe.NewCheckoutGateway(stripeClient),
		TransactionRunner: dbClient,
		Outbox:            publisher,
		Checkout:          cfg.Checkout,
		Stripe:            cfg.Stripe,
		Metrics:           metrics.NewPaymentMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create payments service", err)
	}

	reaper, err := cron.NewReservationTTLJob(cron.ReservationTTLJobParams{
		Logger:       logg,
		DB:           dbClient,
		Orders:       ordersRepo,
		Reservations: reservations,
		Checkout:     checkout,
		TTL:          cfg.Checkout.ReservationTTL,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create reservation ttl job", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
		BatchSize:  cfg.Outbox.RetentionBatch,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create outbox retention job", err)
	}

	jobs := cron.NewRegistry(reaper)
	jobs.RegisterEvery(retention, cfg.Cron.RetentionEvery)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create cron service", err)
	}

	runCtx, stop := proc.SignalContext(logg.WithField(ctx, "jobs", jobs.Names()))
	defer stop()
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "cron worker stopped unexpectedly", err)
	}
	proc.Shutdown(ctx)
	logg.Info(ctx, "cron worker shut down gracefully")
}
