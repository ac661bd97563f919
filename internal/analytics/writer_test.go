package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type insertCall struct {
	table string
	rows  int
}

type fakeInserter struct {
	calls []insertCall
	errs  []error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: len(rows)})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func fastWriterConfig() WriterConfig {
	return WriterConfig{
		OrderTable:     "order_events",
		ShipmentTable:  "shipment_events",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaximumBackoff: time.Millisecond,
	}
}

func TestWriterRetriesTransientErrors(t *testing.T) {
	inserter := &fakeInserter{errs: []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		status.Error(codes.Unavailable, "try again"),
	}}
	writer, err := NewWriter(inserter, fastWriterConfig())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := writer.InsertOrderEvent(context.Background(), OrderEventRow{EventID: "e1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(inserter.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(inserter.calls))
	}
	if inserter.calls[0].table != "order_events" {
		t.Fatalf("unexpected table %q", inserter.calls[0].table)
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	inserter := &fakeInserter{errs: []error{&googleapi.Error{Code: http.StatusBadRequest}}}
	writer, err := NewWriter(inserter, fastWriterConfig())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := writer.InsertShipmentEvent(context.Background(), ShipmentEventRow{EventID: "e1"}); err == nil {
		t.Fatal("expected error")
	}
	if len(inserter.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(inserter.calls))
	}
}

func TestWriterBuffersUntilBatchSize(t *testing.T) {
	inserter := &fakeInserter{}
	cfg := fastWriterConfig()
	cfg.BatchSize = 2
	writer, err := NewWriter(inserter, cfg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	ctx := context.Background()
	if err := writer.InsertOrderEvent(ctx, OrderEventRow{EventID: "e1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := writer.InsertShipmentEvent(ctx, ShipmentEventRow{EventID: "s1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(inserter.calls) != 0 {
		t.Fatalf("expected rows to stay buffered, got %d calls", len(inserter.calls))
	}
	if err := writer.InsertOrderEvent(ctx, OrderEventRow{EventID: "e2"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(inserter.calls) != 1 || inserter.calls[0].rows != 2 {
		t.Fatalf("expected one order batch of 2, got %+v", inserter.calls)
	}

	if err := writer.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(inserter.calls) != 2 || inserter.calls[1].table != "shipment_events" {
		t.Fatalf("expected flush of shipment rows, got %+v", inserter.calls)
	}
	if err := writer.Flush(ctx); err != nil || len(inserter.calls) != 2 {
		t.Fatalf("expected empty flush to be a no-op, calls=%d err=%v", len(inserter.calls), err)
	}
}

func TestNewWriterValidates(t *testing.T) {
	if _, err := NewWriter(nil, fastWriterConfig()); err == nil {
		t.Fatal("expected nil client error")
	}
	cfg := fastWriterConfig()
	cfg.ShipmentTable = " "
	if _, err := NewWriter(&fakeInserter{}, cfg); err == nil {
		t.Fatal("expected missing table error")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad"), false},
		{"multi all transient", bigquery.MultiError{
			&googleapi.Error{Code: http.StatusBadGateway},
			status.Error(codes.Unavailable, "down"),
		}, true},
		{"multi mixed", bigquery.MultiError{
			&googleapi.Error{Code: http.StatusBadGateway},
			&googleapi.Error{Code: http.StatusBadRequest},
		}, false},
		{"put errors transient", bigquery.PutMultiError{
			{InsertID: "a", Errors: bigquery.MultiError{status.Error(codes.Unavailable, "down")}},
		}, true},
		{"put errors invalid row", bigquery.PutMultiError{
			{InsertID: "a", Errors: bigquery.MultiError{&bigquery.Error{Reason: "invalid"}}},
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Fatalf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWriterBuffersConcurrentDeliveries(t *testing.T) {
	inserter := &fakeInserter{}
	writer, err := NewWriter(inserter, WriterConfig{OrderTable: "order_events", ShipmentTable: "shipment_events", BatchSize: 10})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 95 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = writer.InsertOrderEvent(context.Background(), OrderEventRow{EventID: fmt.Sprintf("evt-%d", i)})
		}()
	}
	wg.Wait()
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	total := 0
	for _, call := range inserter.calls {
		total += call.rows
	}
	if total != 95 || len(inserter.calls) != 10 {
		t.Fatalf("expected 95 rows over 10 inserts, got %d rows over %d", total, len(inserter.calls))
	}
}
