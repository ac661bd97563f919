package catalog

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

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/dbtest"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:     "Wolf Hoodie",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		WeightKg: 0.5,
		IsActive: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func loadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", id).Error)
	return product
}

func TestReserveCommitRelease(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 5)

	require.NoError(t, repo.Reserve(ctx, product.ID, 3))
	got := loadProduct(t, db, product.ID)
	assert.Equal(t, 2, got.Stock)
	assert.Equal(t, 3, got.ReservedStock)

	require.NoError(t, repo.Commit(ctx, product.ID, 2))
	require.NoError(t, repo.Release(ctx, product.ID, 1))
	got = loadProduct(t, db, product.ID)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 0, got.ReservedStock)

	err := repo.Release(ctx, product.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))
}

func TestReserveInsufficientStockLeavesRowUntouched(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, "10.00", 2)

	err := repo.Reserve(context.Background(), product.ID, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))
	assert.Equal(t, pkgerrors.CodeIntegrity, pkgerrors.As(err).Code())

	got := loadProduct(t, db, product.ID)
	assert.Equal(t, 2, got.Stock)
	assert.Equal(t, 0, got.ReservedStock)
}

func TestReserveUnknownProduct(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))

	err := repo.Reserve(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, "10.00", 2)

	err := repo.Reserve(context.Background(), product.ID, 0)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidQuantity))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	product := seedProduct(t, db, "10.00", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Reserve(context.Background(), product.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got := loadProduct(t, db, product.ID)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 10, got.ReservedStock)
}

func TestReserveAllCompensatesOnFailure(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	first := seedProduct(t, db, "10.00", 5)
	second := seedProduct(t, db, "20.00", 1)

	err := ReserveAll(ctx, repo, []Line{
		{ProductID: first.ID, Quantity: 2},
		{ProductID: second.ID, Quantity: 2},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))

	got := loadProduct(t, db, first.ID)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 0, got.ReservedStock)
}

type flakyStock struct {
	stockMover
	failRelease bool
}

func (f flakyStock) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if f.failRelease {
		return errors.New("release failed")
	}
	return f.stockMover.Release(ctx, productID, qty)
}

func TestReserveAllReportsFailedCompensation(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	first := seedProduct(t, db, "10.00", 5)

	err := ReserveAll(context.Background(), flakyStock{stockMover: repo, failRelease: true}, []Line{
		{ProductID: first.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonProductNotFound))
	assert.Contains(t, err.Error(), "release failed")
}

func TestListActiveNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	for i := 0; i < 3; i++ {
		seedProduct(t, db, "1.00", 1)
	}
	inactive := models.Product{Name: "Hidden", Price: decimal.NewFromInt(1), IsActive: false, WeightKg: 1}
	require.NoError(t, db.Create(&inactive).Error)

	rows, total, err := repo.ListActive(context.Background(), pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 2)
	assert.False(t, rows[0].CreatedAt.Before(rows[1].CreatedAt))
}
