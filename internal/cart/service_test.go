package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/dbtest"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), client, catalog.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func createProduct(t *testing.T, db *gorm.DB, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "Cap " + price, Price: decimal.RequireFromString(price), Stock: stock, WeightKg: 0.2, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestCartAddMergesQuantities(t *testing.T) {
	svc, db := newTestService(t)
	user := uuid.New()
	p := createProduct(t, db, "12.50", 10)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.ItemCount)
	assert.True(t, decimal.RequireFromString("62.50").Equal(cart.Subtotal), cart.Subtotal.String())
}

func TestCartNegativeChangeRemovesEmptyLine(t *testing.T) {
	svc, db := newTestService(t)
	user := uuid.New()
	p := createProduct(t, db, "5.00", 10)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: -1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: -4})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	var rows int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestCartRejectsQuantityBeyondStock(t *testing.T) {
	svc, db := newTestService(t)
	user := uuid.New()
	p := createProduct(t, db, "5.00", 3)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, AddItemInput{ProductID: p.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))

	cart, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartValidatesInput(t *testing.T) {
	svc, db := newTestService(t)
	p := createProduct(t, db, "5.00", 3)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), AddItemInput{ProductID: p.ID})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidQuantity))

	_, err = svc.AddItem(ctx, uuid.New(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))

	_, err = svc.Get(ctx, uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestCartRemoveClearAndOrderItems(t *testing.T) {
	svc, db := newTestService(t)
	user := uuid.New()
	kept := createProduct(t, db, "5.00", 5)
	retired := createProduct(t, db, "9.00", 5)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user, AddItemInput{ProductID: kept.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, AddItemInput{ProductID: retired.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, db.Model(&retired).Update("is_active", false).Error)

	cart, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.ItemCount)

	items, err := svc.OrderItems(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)

	cart, err = svc.RemoveItem(ctx, user, kept.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	_, err = svc.OrderItems(ctx, user)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	cart, err = svc.Clear(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
