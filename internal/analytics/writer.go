package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// WriterConfig names the destination tables and the insert policy.
type WriterConfig struct {
	OrderTable     string
	ShipmentTable  string
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

// BigQueryWriter buffers rows per table and streams them with bounded retries.
// Pub/Sub delivers concurrently, so the buffers and flushes share one mutex.
type BigQueryWriter struct {
	client tableInserter
	cfg    WriterConfig

	mu        sync.Mutex
	orders    []OrderEventRow
	shipments []ShipmentEventRow
}

func NewWriter(client tableInserter, cfg WriterConfig) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	cfg.OrderTable = strings.TrimSpace(cfg.OrderTable)
	cfg.ShipmentTable = strings.TrimSpace(cfg.ShipmentTable)
	if cfg.OrderTable == "" || cfg.ShipmentTable == "" {
		return nil, errors.New("order and shipment tables are required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaximumBackoff < cfg.InitialBackoff {
		cfg.MaximumBackoff = max(defaultMaximumBackoff, cfg.InitialBackoff)
	}
	return &BigQueryWriter{client: client, cfg: cfg}, nil
}

func (w *BigQueryWriter) InsertOrderEvent(ctx context.Context, row OrderEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orders = append(w.orders, row)
	if len(w.orders) < w.cfg.BatchSize {
		return nil
	}
	return w.flushOrders(ctx)
}

func (w *BigQueryWriter) InsertShipmentEvent(ctx context.Context, row ShipmentEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shipments = append(w.shipments, row)
	if len(w.shipments) < w.cfg.BatchSize {
		return nil
	}
	return w.flushShipments(ctx)
}

// Flush writes whatever is buffered.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.flushOrders(ctx), w.flushShipments(ctx))
}

func (w *BigQueryWriter) flushOrders(ctx context.Context) error {
	if len(w.orders) == 0 {
		return nil
	}
	rows := make([]any, len(w.orders))
	for i := range w.orders {
		rows[i] = &w.orders[i]
	}
	if err := w.insertWithRetry(ctx, w.cfg.OrderTable, rows); err != nil {
		return err
	}
	w.orders = w.orders[:0]
	return nil
}

func (w *BigQueryWriter) flushShipments(ctx context.Context) error {
	if len(w.shipments) == 0 {
		return nil
	}
	rows := make([]any, len(w.shipments))
	for i := range w.shipments {
		rows[i] = &w.shipments[i]
	}
	if err := w.insertWithRetry(ctx, w.cfg.ShipmentTable, rows); err != nil {
		return err
	}
	w.shipments = w.shipments[:0]
	return nil
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, table string, rows []any) error {
	backoff := w.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.cfg.MaxAttempts || !isRetryable(err) {
			return fmt.Errorf("insert %d %s rows: %w", len(rows), table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, w.cfg.MaximumBackoff)
	}
}

// isRetryable reports whether every underlying failure is transient.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var multi bigquery.MultiError
	if errors.As(err, &multi) {
		return allRetryable(len(multi), func(i int) error { return multi[i] })
	}
	var putErr bigquery.PutMultiError
	if errors.As(err, &putErr) {
		return allRetryable(len(putErr), func(i int) error { return putErr[i].Errors })
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func allRetryable(n int, at func(int) error) bool {
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if !isRetryable(at(i)) {
			return false
		}
	}
	return true
}
