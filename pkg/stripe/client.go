package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	appName = "wolf-backend"
)

var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

// Client carries the validated Stripe settings. Creating one installs the
// secret key, app info and a zerolog-backed logger on the stripe-go package.
type Client struct {
	environment   string
	signingSecret string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	env := cfg.Environment()

	var problems []error
	if _, ok := keyPrefixes[env]; !ok {
		problems = append(problems, fmt.Errorf("stripe environment must be %q or %q, got %q", testEnv, liveEnv, env))
	}
	if apiKey == "" {
		problems = append(problems, errors.New("stripe api key is required"))
	} else if prefixes, ok := keyPrefixes[env]; ok && !hasAnyPrefix(apiKey, prefixes) {
		problems = append(problems, fmt.Errorf("stripe environment %q requires a %s key", env, strings.Join(prefixes, "/")))
	}
	if secret == "" {
		problems = append(problems, errors.New("stripe webhook secret is required"))
	} else if !strings.HasPrefix(secret, "whsec_") {
		problems = append(problems, errors.New("stripe webhook secret must start with whsec_"))
	}
	if cfg.MinChargeCents < 0 {
		problems = append(problems, errors.New("stripe minimum charge cannot be negative"))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}

	stripe.Key = apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: appName})
	if logg != nil {
		stripe.DefaultLeveledLogger = leveledLogger{logg: logg}
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}

	return &Client{
		environment:   env,
		signingSecret: secret,
	}, nil
}

// Environment reports the Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Live reports whether charges are real.
func (c *Client) Live() bool {
	return c.Environment() == liveEnv
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// leveledLogger routes stripe-go's request logging into zerolog. Per-request
// info lines are demoted to debug.
type leveledLogger struct {
	logg *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.logg.Error(context.Background(), "stripe: "+fmt.Sprintf(format, v...), nil)
}
