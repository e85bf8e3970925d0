package reporting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
	"github.com/mamadbah2/dairyfarm/internal/service/analytics"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
)

func TestWeeklyDigest(t *testing.T) {
	store := gormdbtest.NewStore(t)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	batch := gormdbtest.Batch(t, store, farm, "Layers", 100)
	ctx := context.Background()

	end := models.DateOf(2024, 5, 19)
	gormdbtest.Milk(t, store, cow, models.DateOf(2024, 5, 10), models.SessionMorning, "10")
	gormdbtest.Milk(t, store, cow, models.DateOf(2024, 5, 14), models.SessionMorning, "12")
	gormdbtest.Milk(t, store, cow, models.DateOf(2024, 5, 15), models.SessionMorning, "3")
	gormdbtest.Transaction(t, store, farm, models.TransactionIncome, models.CategoryMilkSales, models.DateOf(2024, 5, 16), "500")

	herd := livestock.NewService(store, nil)
	_, err := herd.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 4, Reason: models.ReductionDeath, Date: models.DateOf(2024, 5, 13)})
	require.NoError(t, err)
	_, err = herd.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 2, Reason: models.ReductionSale, Date: models.DateOf(2024, 5, 18)})
	require.NoError(t, err)
	_, err = herd.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 1, Reason: models.ReductionDeath, Date: models.DateOf(2024, 5, 12)})
	require.NoError(t, err)

	svc := NewService(analytics.NewService(store, nil), herd, nil)
	text, err := svc.WeeklyDigest(ctx, farm.ID, end)
	require.NoError(t, err)

	assert.Contains(t, text, "*Green Acres weekly digest*")
	assert.Contains(t, text, "2024-05-13 to 2024-05-19")
	assert.Contains(t, text, "Milk: 15.00 L (+50.0%), 1 cows milked")
	assert.Contains(t, text, "Eggs: 0 collected (no change)")
	assert.Contains(t, text, "net 500.00 (new)")
	assert.Contains(t, text, "Birds: 4 death, 2 sale")
}

func TestWeeklyDigestOtherFarmIsolated(t *testing.T) {
	store := gormdbtest.NewStore(t)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	other := gormdbtest.Farm(t, store, "Hillside")
	batch := gormdbtest.Batch(t, store, other, "Broilers", 50)
	herd := livestock.NewService(store, nil)
	_, err := herd.ReduceBatch(context.Background(), batch.ID, models.ReductionInput{Count: 3, Reason: models.ReductionDeath, Date: models.DateOf(2024, 5, 15)})
	require.NoError(t, err)

	got, err := herd.ReductionsBetween(context.Background(), farm.ID, models.DateOf(2024, 5, 13), models.DateOf(2024, 5, 19))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewService(analytics.NewService(store, nil), herd, nil).WeeklyDigest(context.Background(), uuid.New(), models.DateOf(2024, 5, 19))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChange(t *testing.T) {
	assert.Equal(t, "no change", change(decimal.Zero, decimal.Zero))
	assert.Equal(t, "new", change(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, "-25.0%", change(decimal.NewFromInt(75), decimal.NewFromInt(100)))
	assert.Equal(t, "+50.0%", change(decimal.NewFromInt(-50), decimal.NewFromInt(-100)))
}
