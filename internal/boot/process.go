// Package boot holds the start-up sequence shared by every wolf binary:
// .env loading, config, the structured logger, and an ordered list of
// resources to close on the way out.
package boot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/migrate"
	"github.com/MudassirSafi/Wolf-Backend/pkg/redis"
)

type resource struct {
	name  string
	close func() error
}

// Process is one running binary. Resources registered with Track are closed
// in reverse order by Shutdown, which Fatal and Exit also run.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	resources []resource
	exit      func(int)
}

// Start loads configuration and builds the configured logger. On failure the
// returned Process still carries a bootstrap logger so the caller can report
// the error through Fatal.
func Start(kind string) (*Process, error) {
	p := &Process{
		Kind:   kind,
		Logger: logger.New(logger.Options{ServiceName: kind}),
		exit:   os.Exit,
	}
	if err := godotenv.Load(); err != nil {
		p.Logger.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return p, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Environment: cfg.App.Env,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p, nil
}

// Context returns a background context tagged with the environment and
// process kind.
func (p *Process) Context() context.Context {
	fields := map[string]any{"serviceKind": p.Kind}
	if p.Config != nil {
		fields["env"] = p.Config.App.Env
	}
	return p.Logger.WithFields(context.Background(), fields)
}

// SignalContext derives a context canceled on SIGINT or SIGTERM.
func (p *Process) SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Track registers a resource to be closed by Shutdown.
func (p *Process) Track(name string, closeFn func() error) {
	p.resources = append(p.resources, resource{name: name, close: closeFn})
}

// Shutdown closes tracked resources, newest first. Close errors are logged
// and do not stop the remaining closes.
func (p *Process) Shutdown(ctx context.Context) {
	for _, r := range slices.Backward(p.resources) {
		if err := r.close(); err != nil {
			p.Logger.Error(p.Logger.WithField(ctx, "resource", r.name), "failed to close resource", err)
		}
	}
	p.resources = nil
}

// Exit shuts the process down and exits with code.
func (p *Process) Exit(ctx context.Context, code int) {
	p.Shutdown(ctx)
	p.exit(code)
}

// Fatal logs err, shuts down and exits non-zero.
func (p *Process) Fatal(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	p.Exit(ctx, 1)
}

// Database connects to postgres, applies dev migrations when enabled, and
// tracks the connection pool.
func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	p.Track("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

// Redis connects to redis and tracks the client.
func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	p.Track("redis", client.Close)
	return client, nil
}
