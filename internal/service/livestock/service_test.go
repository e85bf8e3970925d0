package livestock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
)

func cowInput(farmID uuid.UUID, tag string) models.CowInput {
	return models.CowInput{
		FarmID:          farmID,
		Name:            "Cow " + tag,
		TagNumber:       tag,
		Breed:           models.BreedJersey,
		DateAcquired:    models.DateOf(2021, 5, 2),
		AcquisitionCost: decimal.NewFromInt(650),
	}
}

func TestCowTagUniquePerFarm(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	green := gormdbtest.Farm(t, store, "Green Acres")
	hill := gormdbtest.Farm(t, store, "Hill Top")

	cow, err := svc.CreateCow(ctx, cowInput(green.ID, "T-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StageHeifer, cow.CurrentStage)

	_, err = svc.CreateCow(ctx, cowInput(green.ID, "T-1"))
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = svc.CreateCow(ctx, cowInput(hill.ID, "T-1"))
	assert.NoError(t, err, "the same tag may be used on another farm")
}

func TestCowMotherRules(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	green := gormdbtest.Farm(t, store, "Green Acres")
	hill := gormdbtest.Farm(t, store, "Hill Top")
	mother := gormdbtest.Cow(t, store, green, "M-1", "Mama")
	stranger := gormdbtest.Cow(t, store, hill, "S-1", "Stranger")

	in := cowInput(green.ID, "K-1")
	in.MotherID = &mother.ID
	calf, err := svc.CreateCow(ctx, in)
	require.NoError(t, err)

	got, err := svc.GetCow(ctx, mother.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalCalves)

	got, err = svc.GetCow(ctx, calf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mama", got.MotherName)

	in = cowInput(green.ID, "K-2")
	in.MotherID = &stranger.ID
	_, err = svc.CreateCow(ctx, in)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "mother_id")

	in = cowInput(green.ID, "K-1")
	in.MotherID = &calf.ID
	_, err = svc.UpdateCow(ctx, calf.ID, in)
	require.ErrorAs(t, err, &verr)
}

func TestListCowsFilters(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	green := gormdbtest.Farm(t, store, "Green Acres")
	hill := gormdbtest.Farm(t, store, "Hill Top")
	gormdbtest.Cow(t, store, green, "A-2", "Bella")
	gormdbtest.Cow(t, store, green, "A-1", "Daisy")
	gormdbtest.Cow(t, store, hill, "B-1", "Rosa")

	page, err := svc.ListCows(ctx, models.ListQuery{}.WithFilter("farm_id", green.ID.String()))
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Count)
	assert.Equal(t, "A-1", page.Items[0].TagNumber)

	_, err = svc.ListCows(ctx, models.ListQuery{}.WithFilter("colour", "black"))
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReduceBatch(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	farm := gormdbtest.Farm(t, store, "Green Acres")
	batch := gormdbtest.Batch(t, store, farm, "Layers A", 50)

	r, err := svc.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 5, Reason: models.ReductionDeath})
	require.NoError(t, err)
	assert.Equal(t, models.DateOf(2024, 3, 15), r.Date)

	got, err := svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, got.CurrentCount)
	assert.Equal(t, 5, got.MortalityCount())
	assert.Equal(t, 10.0, got.MortalityRate())

	_, err = svc.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 46, Reason: models.ReductionSale})
	assert.ErrorIs(t, err, models.ErrInsufficientCount)

	got, err = svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, got.CurrentCount, "a rejected reduction changes nothing")

	page, err := svc.ListReductions(ctx, batch.ID, models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)

	_, err = svc.ReduceBatch(ctx, uuid.New(), models.ReductionInput{Count: 1, Reason: models.ReductionSale})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBatchNameUniquePerFarm(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	farm := gormdbtest.Farm(t, store, "Green Acres")
	in := models.ChickenBatchInput{FarmID: farm.ID, BatchName: "Layers A", InitialCount: 100, DateAcquired: models.DateOf(2023, 1, 1)}

	b, err := svc.CreateBatch(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 100, b.CurrentCount)

	_, err = svc.CreateBatch(ctx, in)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUpdateBatchKeepsCount(t *testing.T) {
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	farm := gormdbtest.Farm(t, store, "Green Acres")
	batch := gormdbtest.Batch(t, store, farm, "Layers A", 50)
	_, err := svc.ReduceBatch(ctx, batch.ID, models.ReductionInput{Count: 5, Reason: models.ReductionDeath})
	require.NoError(t, err)

	in := models.ChickenBatchInput{FarmID: farm.ID, BatchName: "Layers A", InitialCount: 50, DateAcquired: models.DateOf(2023, 6, 1)}
	forced := 80
	in.CurrentCount = &forced
	_, err = svc.UpdateBatch(ctx, batch.ID, in)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "current_count")

	same := 45
	in.CurrentCount = &same
	in.Notes = "moved to house 2"
	got, err := svc.UpdateBatch(ctx, batch.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 45, got.CurrentCount)

	in.CurrentCount = nil
	in.BatchName = "Layers House 2"
	got, err = svc.UpdateBatch(ctx, batch.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 45, got.CurrentCount)
	assert.Equal(t, "moved to house 2", got.Notes)
}
