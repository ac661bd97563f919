package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

const maxPeekBody = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one surface per client IP and, for credential
// endpoints, per email found in the JSON body. Zero limits disable a counter.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
	// GuestsOnly exempts requests that carry an authenticated user, which
	// keeps anonymous checkouts from hoarding stock without slowing shoppers
	// who signed in.
	GuestsOnly bool
}

func (p RateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

type rateCounter struct {
	scope string
	key   string
	limit int
}

// RateLimit enforces policy against store. A store failure fails the request
// closed with a dependency error.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(policy.Name))
	if name == "" {
		name = "default"
	}
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if policy.GuestsOnly && UserIDFromContext(ctx) != "" {
				next.ServeHTTP(w, r)
				return
			}

			counters := make([]rateCounter, 0, 2)
			if ip := remoteHost(r); policy.PerIP > 0 && ip != "" {
				counters = append(counters, rateCounter{scope: "ip", key: "rl:" + name + ":ip:" + ip, limit: policy.PerIP})
			}
			if policy.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					counters = append(counters, rateCounter{scope: "email", key: "rl:" + name + ":email:" + digest(email), limit: policy.PerEmail})
				}
			}

			for _, c := range counters {
				allowed, count, err := store.FixedWindowAllow(ctx, c.key, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, name, c, count, policy.Window)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy string, c rateCounter, count int64, window time.Duration) {
	retryAfter := int(window.Seconds())
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"rate_policy": policy,
			"rate_scope":  c.scope,
			"attempts":    count,
			"limit":       c.limit,
		}), "rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
		WithDetails(map[string]any{"retry_after_seconds": retryAfter})
	responses.WriteError(ctx, nil, w, err)
}

// remoteHost reads the client address. chi's RealIP runs first and has
// already resolved proxy headers into RemoteAddr.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// peekEmail reads the "email" field and restores the body for the handler.
// Bodies that are not JSON objects yield no email.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var peek struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &peek) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(peek.Email)), nil
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:12])
}
