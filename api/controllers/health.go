package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wolf-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and redis answer.
func HealthReady(cfg *config.Config, database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wolf-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := ping(ctx, database); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
			return
		}
		if err := ping(ctx, cache); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

func ping(ctx context.Context, p interface{ Ping(context.Context) error }) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "dependency not configured")
	}
	return p.Ping(ctx)
}
