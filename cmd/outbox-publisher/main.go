package main

import (
	"context"
	"errors"
	"flag"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/registry"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pubsub"
)

func main() {
	replay := flag.String("replay", "", "dead-lettered event id to requeue, then exit")
	flag.Parse()

	proc, err := boot.Start("outbox-publisher")
	ctx := proc.Context()
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}
	logg := proc.Logger

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fatal(ctx, "database unavailable", err)
	}
	dlqRepo := outbox.NewDLQRepository(dbClient.DB())
	if *replay != "" {
		proc.Exit(ctx, runReplay(ctx, logg, dlqRepo, *replay))
	}

	pubsubClient, err := pubsub.NewClient(ctx, proc.Config.GCP, proc.Config.PubSub, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap pubsub", err)
	}
	proc.Track("pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		proc.Fatal(ctx, "failed to build event registry", err)
	}
	service, err := NewService(ServiceParams{
		Config:        proc.Config,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: dlqRepo,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		proc.Fatal(ctx, "failed to create outbox publisher", err)
	}

	runCtx, stop := proc.SignalContext(ctx)
	defer stop()
	logg.Info(runCtx, "starting outbox publisher")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}
	proc.Shutdown(ctx)
	logg.Info(ctx, "outbox publisher shut down gracefully")
}

func runReplay(ctx context.Context, logg *logger.Logger, dlq *outbox.DLQRepository, raw string) int {
	eventID, err := uuid.Parse(raw)
	if err != nil {
		logg.Error(ctx, "replay expects an event uuid", err)
		return 2
	}
	ctx = logg.WithField(ctx, "event_id", eventID.String())
	entry, err := dlq.Get(ctx, eventID)
	if err != nil {
		logg.Error(ctx, "dead-letter lookup failed", err)
		return 1
	}
	if err := dlq.Replay(ctx, eventID); err != nil {
		logg.Error(ctx, "replay failed", err)
		return 1
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"event_type":   entry.EventType,
		"error_reason": entry.ErrorReason,
	}), "event requeued for publishing")
	return 0
}
