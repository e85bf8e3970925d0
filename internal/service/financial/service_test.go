package financial

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
)

func manual(farmID uuid.UUID, typ models.TransactionType, cat models.TransactionCategory) models.TransactionInput {
	return models.TransactionInput{
		FarmID:          farmID,
		TransactionType: typ,
		Category:        cat,
		Date:            models.DateOf(2024, 5, 2),
		Amount:          decimal.NewFromInt(800),
		Description:     "casual workers",
	}
}

func TestCategoryMustMatchType(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	ctx := context.Background()

	tests := []struct {
		typ models.TransactionType
		cat models.TransactionCategory
		ok  bool
	}{
		{models.TransactionExpense, models.CategoryLabor, true},
		{models.TransactionIncome, models.CategoryMilkSales, true},
		{models.TransactionIncome, models.CategoryOther, true},
		{models.TransactionExpense, models.CategoryOther, true},
		{models.TransactionIncome, models.CategoryFeedPurchase, false},
		{models.TransactionExpense, models.CategoryEggSales, false},
	}
	for _, tt := range tests {
		_, err := svc.Create(ctx, manual(farm.ID, tt.typ, tt.cat))
		if tt.ok {
			assert.NoError(t, err, "%s/%s", tt.typ, tt.cat)
			continue
		}
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, "%s/%s", tt.typ, tt.cat)
		assert.Contains(t, verr.Fields, "category")
	}

	n, err := gormdb.Count[models.Transaction](store.Conn(ctx), "farm_id = ?", farm.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n, "rejected rows are never written")
}

func TestCreateUnknownFarm(t *testing.T) {
	svc := NewService(gormdbtest.NewStore(t), nil)
	_, err := svc.Create(context.Background(), manual(uuid.New(), models.TransactionExpense, models.CategoryLabor))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBookedTransactionsFollowTheirSource(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	ctx := context.Background()
	source := models.SourceRef{Kind: models.SourceMilkSale, ID: uuid.New()}

	booking := Booking{
		FarmID:      farm.ID,
		Type:        models.TransactionIncome,
		Category:    models.CategoryMilkSales,
		Date:        models.DateOf(2024, 5, 2),
		Amount:      decimal.NewFromInt(1100),
		Description: "20 L to Brookside",
		Source:      source,
	}
	require.NoError(t, store.Transaction(ctx, func(tx *gorm.DB) error { return Sync(tx, booking) }))
	booked, err := gormdb.First[models.Transaction](store.Conn(ctx), "booked", "source_kind = ? AND source_id = ?", source.Kind, source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, booked.PaymentMethod)

	_, err = svc.Update(ctx, booked.ID, manual(farm.ID, models.TransactionIncome, models.CategoryMilkSales))
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.ErrorIs(t, svc.Delete(ctx, booked.ID), models.ErrConflict)

	got, err := svc.Get(ctx, booked.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1100).Equal(got.Amount))

	booking.Amount = decimal.NewFromInt(1200)
	require.NoError(t, store.Transaction(ctx, func(tx *gorm.DB) error { return Sync(tx, booking) }))
	got, err = svc.Get(ctx, booked.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1200).Equal(got.Amount), "the same row is rewritten")

	require.NoError(t, store.Transaction(ctx, func(tx *gorm.DB) error {
		return Unbook(tx, source.Kind, source.ID)
	}))
	_, err = svc.Get(ctx, booked.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestManualTransactionLifecycle(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	ctx := context.Background()

	tr, err := svc.Create(ctx, manual(farm.ID, models.TransactionExpense, models.CategoryLabor))
	require.NoError(t, err)
	assert.Nil(t, tr.Source())

	in := manual(farm.ID, models.TransactionExpense, models.CategoryTransport)
	in.Amount = decimal.NewFromInt(300)
	tr, err = svc.Update(ctx, tr.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTransport, tr.Category)

	rows, err := svc.ForPeriod(ctx, farm.ID, MonthPeriod(2024, 5))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, svc.Delete(ctx, tr.ID))
	rows, err = svc.ForPeriod(ctx, farm.ID, MonthPeriod(2024, 5))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
