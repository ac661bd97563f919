package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/dbtest"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

type harness struct {
	db     *gorm.DB
	svc    Service
	outbox *outbox.Repository
}

func newHarness(t *testing.T, cfg config.CheckoutConfig, publisher outboxPublisher) harness {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	outboxRepo := outbox.NewRepository(conn)
	if publisher == nil {
		publisher = outbox.NewService(outboxRepo, nil)
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), client, publisher, cfg, nil)
	require.NoError(t, err)
	return harness{db: conn, svc: svc, outbox: outboxRepo}
}

func (h harness) product(t *testing.T, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "Item " + price, Price: decimal.RequireFromString(price), Stock: stock, WeightKg: 0.5, IsActive: true}
	require.NoError(t, h.db.Create(&p).Error)
	return p
}

func (h harness) stock(t *testing.T, id uuid.UUID) (int, int) {
	t.Helper()
	var p models.Product
	require.NoError(t, h.db.First(&p, "id = ?", id).Error)
	return p.Stock, p.ReservedStock
}

func customer() Actor {
	id := uuid.New()
	return Actor{UserID: &id, Role: enums.UserRoleCustomer}
}

func admin() Actor {
	id := uuid.New()
	return Actor{UserID: &id, Role: enums.UserRoleAdmin}
}

func address() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:    "Sara Ali",
		Mobile:      "+971500000000",
		CountryCode: "ae",
		City:        "Dubai",
		Address:     "1 Palm St",
	}
}

type failingOutbox struct{}

func (failingOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestCreateOrderMergesLinesAndReservesStock(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	shirt := h.product(t, "10.00", 5)
	hat := h.product(t, "25.00", 2)

	order, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor: customer(),
		Items: []ItemInput{
			{ProductID: shirt.ID, Quantity: 2},
			{ProductID: hat.ID, Quantity: 1},
			{ProductID: shirt.ID, Quantity: 1},
		},
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	assert.True(t, order.Total.Equal(decimal.RequireFromString("55.00")), "total %s", order.Total)
	assert.True(t, order.Subtotal.Equal(order.Total))
	assert.Equal(t, enums.PaymentMethodStripe, order.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.ReservationStatusReserved, order.ReservationStatus)
	assert.Equal(t, "AE", order.ShippingAddress.CountryCode)
	require.Len(t, order.Items, 2)
	assert.Equal(t, shirt.ID, order.Items[0].ProductID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.RequireFromString("30")))
	assert.InDelta(t, 2.0, order.TotalWeight, 0.0001)

	stock, reserved := h.stock(t, shirt.ID)
	assert.Equal(t, 2, stock)
	assert.Equal(t, 3, reserved)

	count, err := h.outbox.CountByAggregate(context.Background(), enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrderRejectsGuestWhenDisabled(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 5)

	_, err := h.svc.Create(context.Background(), CreateOrderInput{
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 1}},
		ShippingAddress: address(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCreateOrderGuestNeedsEmail(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{AllowGuest: true}, nil)
	p := h.product(t, "10.00", 5)
	input := CreateOrderInput{
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 1}},
		ShippingAddress: address(),
	}

	_, err := h.svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	input.ShippingAddress.Email = "guest@example.com"
	order, err := h.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, order.UserID)
	require.NotNil(t, order.GuestEmail)
	assert.Equal(t, "guest@example.com", *order.GuestEmail)
}

func TestCreateOrderValidatesBeforeReserving(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 5)

	_, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 0}},
		ShippingAddress: address(),
	})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidQuantity))

	_, err = h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 1}, {ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: address(),
	})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))

	stock, reserved := h.stock(t, p.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)
}

func TestCreateOrderInsufficientStockCompensates(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	plenty := h.product(t, "10.00", 5)
	scarce := h.product(t, "20.00", 1)

	_, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: plenty.ID, Quantity: 2}, {ProductID: scarce.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))

	stock, reserved := h.stock(t, plenty.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)

	var orders int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateOrderReleasesStockWhenWriteFails(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, failingOutbox{})
	p := h.product(t, "10.00", 5)

	_, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 4}},
		ShippingAddress: address(),
	})
	require.Error(t, err)

	stock, reserved := h.stock(t, p.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)

	var orders int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 3)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		refused int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Create(context.Background(), CreateOrderInput{
				Actor:           customer(),
				Items:           []ItemInput{{ProductID: p.ID, Quantity: 1}},
				ShippingAddress: address(),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				placed++
			} else if pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.Equal(t, 5, refused)
	stock, reserved := h.stock(t, p.ID)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 3, reserved)
}

func TestUpdateStatusForwardRegressionAndCorrection(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 5)
	op := admin()
	order, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 1}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	shipped := enums.OrderStatusShipped
	updated, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: op, OrderID: order.ID, Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	processing := enums.OrderStatusProcessing
	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: op, OrderID: order.ID, Status: &processing})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonStatusRegression))
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	note := "scanned twice by mistake"
	updated, err = h.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor: op, OrderID: order.ID, Status: &processing, AdminNote: &note, Correction: true,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	require.NotNil(t, updated.AdminNote)
	assert.Equal(t, note, *updated.AdminNote)
}

func TestUpdateStatusCancelReleasesReservation(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 5)
	order, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	cancelled := enums.OrderStatusCancelled
	updated, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin(), OrderID: order.ID, Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusReleased, updated.ReservationStatus)
	require.NotNil(t, updated.Cancellation)
	require.NotNil(t, updated.Cancellation.Reason)
	assert.Equal(t, adminCancelReason, *updated.Cancellation.Reason)

	stock, reserved := h.stock(t, p.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)

	count, err := h.outbox.CountByAggregate(context.Background(), enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestUpdateStatusClosedPaymentReleasesReservation(t *testing.T) {
	for _, status := range []enums.PaymentStatus{enums.PaymentStatusFailed, enums.PaymentStatusRefunded} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t, config.CheckoutConfig{}, nil)
			p := h.product(t, "10.00", 5)
			order, err := h.svc.Create(context.Background(), CreateOrderInput{
				Actor:           customer(),
				Items:           []ItemInput{{ProductID: p.ID, Quantity: 2}},
				ShippingAddress: address(),
			})
			require.NoError(t, err)

			updated, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin(), OrderID: order.ID, PaymentStatus: &status})
			require.NoError(t, err)
			assert.Equal(t, status, updated.PaymentStatus)
			assert.Equal(t, enums.ReservationStatusReleased, updated.ReservationStatus)
			assert.Equal(t, enums.OrderStatusPending, updated.Status)

			stock, reserved := h.stock(t, p.ID)
			assert.Equal(t, 5, stock)
			assert.Equal(t, 0, reserved)
		})
	}
}

func TestUpdateStatusRefundAfterPaymentKeepsCommittedStock(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 5)
	order, err := h.svc.Create(context.Background(), CreateOrderInput{
		Actor:           customer(),
		Items:           []ItemInput{{ProductID: p.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	paid, refunded := enums.PaymentStatusPaid, enums.PaymentStatusRefunded
	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin(), OrderID: order.ID, PaymentStatus: &paid})
	require.NoError(t, err)
	updated, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin(), OrderID: order.ID, PaymentStatus: &refunded})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCommitted, updated.ReservationStatus)

	stock, reserved := h.stock(t, p.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, reserved)
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	status := enums.OrderStatusProcessing

	_, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: customer(), OrderID: uuid.New(), Status: &status})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin(), OrderID: uuid.New(), Status: &status})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonOrderNotFound))
}

func TestListAndGetVisibility(t *testing.T) {
	h := newHarness(t, config.CheckoutConfig{}, nil)
	p := h.product(t, "10.00", 20)
	alice, bob := customer(), customer()
	for i := 0; i < 3; i++ {
		_, err := h.svc.Create(context.Background(), CreateOrderInput{Actor: alice, Items: []ItemInput{{ProductID: p.ID, Quantity: 1}}, ShippingAddress: address()})
		require.NoError(t, err)
	}
	bobs, err := h.svc.Create(context.Background(), CreateOrderInput{Actor: bob, Items: []ItemInput{{ProductID: p.ID, Quantity: 1}}, ShippingAddress: address()})
	require.NoError(t, err)

	own, err := h.svc.List(context.Background(), alice, ListFilter{}, pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, own.Total)
	assert.Equal(t, 2, own.TotalPages)
	assert.Len(t, own.Items, 2)

	_, err = h.svc.List(context.Background(), alice, ListFilter{UserID: bob.UserID}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	pending := enums.OrderStatusPending
	all, err := h.svc.List(context.Background(), admin(), ListFilter{Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Total)

	_, err = h.svc.Get(context.Background(), alice, bobs.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	got, err := h.svc.Get(context.Background(), bob, bobs.ID)
	require.NoError(t, err)
	assert.Equal(t, bobs.ID, got.ID)

	_, err = h.svc.Get(context.Background(), Actor{}, bobs.ID)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
