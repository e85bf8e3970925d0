package farms

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
)

func TestHeadCountsSkipDeleted(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	db := store.Conn(ctx)

	farm := gormdbtest.Farm(t, store, "Green Acres")
	other := gormdbtest.Farm(t, store, "Hill Top")
	gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	gormdbtest.Cow(t, store, farm, "C-002", "Bella")
	sold := gormdbtest.Cow(t, store, farm, "C-003", "Rosa")
	gormdbtest.Cow(t, store, other, "H-001", "Clover")
	gormdbtest.Batch(t, store, farm, "Layers", 120)
	gormdbtest.Batch(t, store, farm, "Broilers", 80)
	culled := gormdbtest.Batch(t, store, farm, "Old layers", 40)
	gormdbtest.Batch(t, store, other, "Kienyeji", 25)

	got, err := svc.Get(ctx, farm.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.TotalCows)
	assert.EqualValues(t, 240, got.TotalChickens)

	require.NoError(t, gormdb.SoftDelete[models.Cow](db, sold.ID, "cow"))
	require.NoError(t, gormdb.SoftDelete[models.ChickenBatch](db, culled.ID, "chicken batch"))

	got, err = svc.Get(ctx, farm.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.TotalCows)
	assert.EqualValues(t, 200, got.TotalChickens)

	page, err := svc.List(ctx, models.ListQuery{Search: "hill"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.EqualValues(t, 1, page.Items[0].TotalCows)
	assert.EqualValues(t, 25, page.Items[0].TotalChickens)
}

func TestEmptyFarmCountsZero(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)

	farm, err := svc.Create(context.Background(), models.FarmInput{Name: "New plot", Location: "Nakuru"})
	require.NoError(t, err)
	assert.True(t, farm.IsActive)

	got, err := svc.Get(context.Background(), farm.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalCows)
	assert.Zero(t, got.TotalChickens)
}

func TestActiveIDsAndDelete(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	inactive := false
	dormant, err := svc.Create(ctx, models.FarmInput{Name: "Dormant", Location: "Eldoret", IsActive: &inactive})
	require.NoError(t, err)
	live := gormdbtest.Farm(t, store, "Green Acres")
	gone := gormdbtest.Farm(t, store, "Sold plot")
	require.NoError(t, svc.Delete(ctx, gone.ID))

	ids, err := svc.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{live.ID}, ids)
	assert.NotContains(t, ids, dormant.ID)

	_, err = svc.Get(ctx, gone.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, gone.ID), models.ErrNotFound)
}
