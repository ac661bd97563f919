package main

import (
	"context"
	"errors"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/internal/analytics"
	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/pkg/bigquery"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pubsub"
	"github.com/MudassirSafi/Wolf-Backend/pkg/redis"
)

const flushTimeout = 10 * time.Second

// analytics-worker consumes order and shipment events from Pub/Sub and
// streams them into BigQuery.
func main() {
	proc, err := boot.Start("analytics-worker")
	ctx := proc.Context()
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}
	cfg, logg := proc.Config, proc.Logger

	redisClient, err := proc.Redis(ctx)
	if err != nil {
		proc.Fatal(ctx, "redis unavailable", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap pubsub", err)
	}
	proc.Track("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap bigquery", err)
	}
	proc.Track("bigquery", bqClient.Close)

	subscription := pubsubClient.Subscriber(cfg.PubSub.AnalyticsSubscription)
	if subscription == nil {
		proc.Fatal(ctx, "analytics subscription unavailable", errors.New("subscription not configured"))
	}

	guard, err := redis.NewEventGuard(redisClient, cfg.Eventing.ConsumerIdempotencyTTL, "analytics")
	if err != nil {
		proc.Fatal(ctx, "failed to create event guard", err)
	}
	writer, err := analytics.NewWriter(bqClient, analytics.WriterConfig{
		OrderTable:    cfg.BigQuery.OrderEventsTable,
		ShipmentTable: cfg.BigQuery.ShipmentEventsTable,
		BatchSize:     cfg.BigQuery.BatchSize,
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create analytics writer", err)
	}
	router, err := analytics.NewRouter(writer, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to create analytics router", err)
	}
	consumer, err := analytics.NewConsumer(subscription, router, guard, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to create analytics consumer", err)
	}

	runCtx, stop := proc.SignalContext(logg.WithField(ctx, "subscription", cfg.PubSub.AnalyticsSubscription))
	defer stop()
	logg.Info(runCtx, "analytics worker ready")

	runErr := consumer.Run(runCtx)

	// buffered rows were already acked upstream; flush them before closing bigquery
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := writer.Flush(flushCtx); err != nil {
		logg.Error(ctx, "failed to flush buffered analytics rows", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		proc.Fatal(ctx, "analytics worker failed", runErr)
	}
	proc.Shutdown(ctx)
	logg.Info(ctx, "analytics worker stopped")
}
