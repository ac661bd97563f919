package jnt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
)

const (
	defaultBaseURL              = "https://openapi.jtjms-sa.com/webopenplatformapi/api"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
	successCode                 = "1"
)

const (
	pathCreateOrder = "/order/addOrder"
	pathTrack       = "/order/track"
	pathShippingFee = "/order/getShippingFee"
	pathPrintInfo   = "/order/getPrintInfo"
	pathPickup      = "/order/createPickup"
	pathCancel      = "/order/cancel"
)

var (
	errAPIKeyRequired = errors.New("jnt api key is required")
	errSecretRequired = errors.New("jnt secret is required")
)

// Client signs and issues requests to the J&T Express open platform.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiAccount    string
	apiKey        string
	secret        string
	customerCode  string
	webhookSecret string
	timeout       time.Duration
	now           func() time.Time
	metrics       *metrics.CourierMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides time.Now for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records call outcomes on the provided collector.
func WithMetrics(m *metrics.CourierMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the courier client from configuration.
func NewClient(cfg config.CourierConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	account := strings.TrimSpace(cfg.APIAccount)
	if account == "" {
		account = apiKey
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		webhookSecret = secret
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:    &http.Client{},
		baseURL:       defaultBaseURL,
		apiAccount:    account,
		apiKey:        apiKey,
		secret:        secret,
		customerCode:  strings.TrimSpace(cfg.CustomerCode),
		webhookSecret: webhookSecret,
		timeout:       timeout,
		now:           time.Now,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.baseURL = base
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// VerifyWebhook checks the signature of an inbound tracking callback body.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	return VerifyWebhookSignature(body, c.webhookSecret, signature)
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// call posts payload to path and decodes the data section into out.
func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "jnt client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal jnt request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build jnt request")
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apiAccount", c.apiAccount)
	httpReq.Header.Set("timestamp", timestamp)
	httpReq.Header.Set("sign", Sign(c.apiKey, body, timestamp, c.secret))
	httpReq.Header.Set("digest", Digest(body))

	started := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(operation, metrics.OutcomeUnavailable, started)
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("%w: %v", ErrUnavailable, err), operation+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.observe(operation, metrics.OutcomeUnavailable, started)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg))), operation+" request failed")
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.observe(operation, metrics.OutcomeUnavailable, started)
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("%w: %v", ErrUnavailable, err), "decode "+operation+" response")
	}
	if env.Code != successCode {
		c.observe(operation, metrics.OutcomeRejected, started)
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, &RejectedError{Code: env.Code, Message: env.Msg}, operation+" rejected")
	}

	c.observe(operation, metrics.OutcomeOK, started)
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("%w: %v", ErrUnavailable, err), "decode "+operation+" data")
	}
	return nil
}

func (c *Client) observe(operation, outcome string, started time.Time) {
	c.metrics.Observe(operation, outcome, c.now().Sub(started))
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}
