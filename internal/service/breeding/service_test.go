package breeding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
)

func newService(t *testing.T) (*Service, *gormdb.Store, *models.Farm) {
	t.Helper()
	store := gormdbtest.NewStore(t)
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.Date(2024, 10, 20, 8, 0, 0, 0, time.UTC) }
	return svc, store, gormdbtest.Farm(t, store, "Green Acres")
}

func TestBreedingCycle(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	calf := gormdbtest.Cow(t, store, farm, "C-100", "Junior")

	r, err := svc.Create(ctx, models.BreedingRecordInput{
		CowID:        cow.ID,
		BreedingDate: models.DateOf(2024, 1, 10),
		BreedingCost: decimal.NewFromInt(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BreedingBred, r.Status)
	assert.Equal(t, models.BreedingAI, r.BreedingMethod)
	assert.Equal(t, models.DateOf(2024, 1, 10).AddDays(models.GestationDays), r.ExpectedCalvingDate)

	_, err = svc.RecordCalving(ctx, r.ID, models.CalvingInput{ActualCalvingDate: models.DateOf(2024, 10, 18)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	r, err = svc.ConfirmPregnancy(ctx, r.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 3, 1)})
	require.NoError(t, err)
	assert.Equal(t, models.BreedingPregnancyConfirmed, r.Status)

	_, err = svc.RecordCalving(ctx, r.ID, models.CalvingInput{ActualCalvingDate: models.DateOf(2024, 10, 18), CalfID: ptr(uuid.New())})
	assert.ErrorIs(t, err, models.ErrNotFound)
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BreedingPregnancyConfirmed, got.Status, "a failed calving is rolled back")

	r, err = svc.RecordCalving(ctx, r.ID, models.CalvingInput{ActualCalvingDate: models.DateOf(2024, 10, 18), CalfID: &calf.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BreedingCalved, r.Status)
	require.NotNil(t, r.GestationPeriodDays())
	assert.Equal(t, 282, *r.GestationPeriodDays())

	_, err = svc.ConfirmPregnancy(ctx, r.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 3, 1)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestOneOpenCyclePerCow(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	in := models.BreedingRecordInput{CowID: cow.ID, BreedingDate: models.DateOf(2024, 1, 10)}

	first, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Create(ctx, in)
	assert.NoError(t, err)
}

func TestRebreedAfterNegativeTest(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")

	first, err := svc.Create(ctx, models.BreedingRecordInput{
		CowID:        cow.ID,
		BreedingDate: models.DateOf(2024, 1, 10),
		BreedingCost: decimal.NewFromInt(1500),
	})
	require.NoError(t, err)

	_, err = svc.MarkNotPregnant(ctx, first.ID, models.PregnancyConfirmationInput{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "pregnancy_test_date")

	closed, err := svc.MarkNotPregnant(ctx, first.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 1, 31)})
	require.NoError(t, err)
	assert.Equal(t, models.BreedingNotPregnant, closed.Status)
	assert.Nil(t, closed.DaysToCalving(models.DateOf(2024, 2, 1)))
	assert.False(t, closed.IsOverdue(models.DateOf(2025, 1, 1)))

	_, err = svc.ConfirmPregnancy(ctx, first.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 2, 5)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = svc.MarkNotPregnant(ctx, first.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 2, 5)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	second, err := svc.Create(ctx, models.BreedingRecordInput{
		CowID:        cow.ID,
		BreedingDate: models.DateOf(2024, 2, 1),
		BreedingCost: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BreedingBred, second.Status)

	n, err := gormdb.Count[models.Transaction](store.Conn(ctx), "farm_id = ?", farm.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "the failed insemination stays on the books")
}

func TestBreedingCostIsBooked(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")

	r, err := svc.Create(ctx, models.BreedingRecordInput{
		CowID:        cow.ID,
		BreedingDate: models.DateOf(2024, 1, 10),
		BreedingCost: decimal.NewFromInt(1500),
	})
	require.NoError(t, err)

	db := store.Conn(ctx)
	tx, err := gormdb.First[models.Transaction](db, "booked breeding", "source_kind = ? AND source_id = ?", models.SourceBreedingRecord, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionExpense, tx.TransactionType)
	assert.Equal(t, models.CategoryBreeding, tx.Category)
	assert.Equal(t, farm.ID, tx.FarmID)
	assert.True(t, decimal.NewFromInt(1500).Equal(tx.Amount))

	require.NoError(t, svc.Delete(ctx, r.ID))
	n, err := gormdb.Count[models.Transaction](db, "farm_id = ?", farm.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCalvingsDue(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	soon := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	later := gormdbtest.Cow(t, store, farm, "C-002", "Bella")
	open := gormdbtest.Cow(t, store, farm, "C-003", "Rosa")

	confirm := func(cow *models.Cow, expected models.Date) {
		r, err := svc.Create(ctx, models.BreedingRecordInput{
			CowID:               cow.ID,
			BreedingDate:        models.DateOf(2024, 1, 10),
			ExpectedCalvingDate: expected,
		})
		require.NoError(t, err)
		_, err = svc.ConfirmPregnancy(ctx, r.ID, models.PregnancyConfirmationInput{PregnancyTestDate: models.DateOf(2024, 3, 1)})
		require.NoError(t, err)
	}
	confirm(soon, models.DateOf(2024, 10, 23))
	confirm(later, models.DateOf(2024, 11, 30))
	_, err := svc.Create(ctx, models.BreedingRecordInput{
		CowID:               open.ID,
		BreedingDate:        models.DateOf(2024, 1, 10),
		ExpectedCalvingDate: models.DateOf(2024, 10, 22),
	})
	require.NoError(t, err)

	due, err := svc.CalvingsDue(ctx, 7)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, soon.ID, due[0].Cow.ID)
	assert.Equal(t, 3, due[0].DaysLeft)
}

func TestHeatDetection(t *testing.T) {
	svc, store, farm := newService(t)
	ctx := context.Background()
	daisy := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	bella := gormdbtest.Cow(t, store, farm, "C-002", "Bella")
	r, err := svc.Create(ctx, models.BreedingRecordInput{CowID: daisy.ID, BreedingDate: models.DateOf(2024, 1, 10)})
	require.NoError(t, err)

	h, err := svc.CreateHeat(ctx, models.HeatDetectionInput{
		CowID:            daisy.ID,
		HeatDate:         models.DateOf(2024, 1, 9),
		BredThisCycle:    true,
		BreedingRecordID: &r.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.HeatModerate, h.HeatIntensity)

	_, err = svc.CreateHeat(ctx, models.HeatDetectionInput{
		CowID:            bella.ID,
		HeatDate:         models.DateOf(2024, 1, 9),
		BreedingRecordID: &r.ID,
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "breeding_record_id")

	require.NoError(t, svc.Delete(ctx, r.ID))
	h, err = svc.GetHeat(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, h.BreedingRecordID)
}

func ptr[T any](v T) *T { return &v }
