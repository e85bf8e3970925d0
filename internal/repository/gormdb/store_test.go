package gormdb

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

var cowSpec = ListSpec{
	Filters: map[string]Filter{
		"farm_id":       {Column: "farm_id", Kind: FilterUUID},
		"current_stage": {Column: "current_stage"},
		"is_active":     {Column: "is_active", Kind: FilterBool},
		"date_acquired": {Column: "date_acquired", Kind: FilterDate},
	},
	Search:   []string{"name", "tag_number"},
	Ordering: []string{"name", "tag_number", "date_acquired"},
	Default:  "tag_number",
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCow(t *testing.T, s *Store, farmID uuid.UUID, tag, name string, acquired models.Date) *models.Cow {
	t.Helper()
	c := &models.Cow{
		FarmID:          farmID,
		Name:            name,
		TagNumber:       tag,
		Breed:           models.BreedFriesian,
		DateAcquired:    acquired,
		AcquisitionCost: decimal.NewFromInt(500),
		CurrentStage:    models.StageLactating,
		IsActive:        true,
	}
	require.NoError(t, Create(s.Conn(context.Background()), c))
	return c
}

func TestCreateGetAndSoftDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	farm := &models.Farm{Name: "Green Acres", Location: "Nakuru", IsActive: true, EstablishedDate: models.DateOf(2015, 3, 1)}
	require.NoError(t, Create(s.Conn(ctx), farm))
	require.NotEqual(t, uuid.Nil, farm.ID)

	got, err := Get[models.Farm](s.Conn(ctx), farm.ID, "farm")
	require.NoError(t, err)
	assert.Equal(t, "Green Acres", got.Name)
	assert.Equal(t, "2015-03-01", got.EstablishedDate.String())
	assert.True(t, got.IsActive)

	require.NoError(t, SoftDelete[models.Farm](s.Conn(ctx), farm.ID, "farm"))
	_, err = Get[models.Farm](s.Conn(ctx), farm.ID, "farm")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = SoftDelete[models.Farm](s.Conn(ctx), farm.ID, "farm")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDecimalAndDateRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c := seedCow(t, s, uuid.New(), "T-1", "Daisy", models.DateOf(2023, 6, 15))
	c.Weight = decimal.RequireFromString("412.75")
	require.NoError(t, Save(s.Conn(ctx), c))

	got, err := Get[models.Cow](s.Conn(ctx), c.ID, "cow")
	require.NoError(t, err)
	assert.True(t, got.Weight.Equal(decimal.RequireFromString("412.75")))
	assert.True(t, got.AcquisitionCost.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "2023-06-15", got.DateAcquired.String())
	assert.True(t, got.DateOfBirth.IsZero())
	assert.Nil(t, got.MotherID)
}

func TestListFiltersSearchAndOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	farmA, farmB := uuid.New(), uuid.New()
	seedCow(t, s, farmA, "T-3", "Bella", models.DateOf(2023, 1, 10))
	seedCow(t, s, farmA, "T-1", "Daisy", models.DateOf(2023, 5, 1))
	gone := seedCow(t, s, farmA, "T-2", "Molly", models.DateOf(2023, 7, 1))
	seedCow(t, s, farmB, "X-1", "Daisy Two", models.DateOf(2023, 2, 1))
	require.NoError(t, SoftDelete[models.Cow](s.Conn(ctx), gone.ID, "cow"))

	page, err := List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Filters: map[string]string{"farm_id": farmA.String()}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "T-1", page.Items[0].TagNumber)
	assert.Equal(t, "T-3", page.Items[1].TagNumber)

	page, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Search: "daisy", Ordering: "-name"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Daisy Two", page.Items[0].Name)

	page, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Filters: map[string]string{
		"date_acquired_from": "2023-02-01",
		"date_acquired_to":   "2023-05-01",
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)

	page, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Limit: 1, Offset: 1, Ordering: "date_acquired"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "X-1", page.Items[0].TagNumber)
}

func TestListRejectsUnknownInput(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	var verr *models.ValidationError
	_, err := List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Filters: map[string]string{"password": "x"}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	_, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Filters: map[string]string{"farm_id": "nope"}})
	require.ErrorAs(t, err, &verr)

	_, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Ordering: "name; DROP TABLE cows"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "ordering")

	_, err = List[models.Cow](s.Conn(ctx), cowSpec, models.ListQuery{Filters: map[string]string{"name_from": "a"}})
	require.ErrorAs(t, err, &verr)
}

func TestSourceFingerprintSeesDeletes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	farm := uuid.New()
	c := seedCow(t, s, farm, "T-1", "Daisy", models.DateOf(2023, 1, 1))

	before, err := SourceFingerprint[models.Cow](s.Conn(ctx), "farm_id = ?", farm)
	require.NoError(t, err)
	assert.EqualValues(t, 1, before.Count)
	require.NotNil(t, before.LatestUpdate)

	require.NoError(t, SoftDelete[models.Cow](s.Conn(ctx), c.ID, "cow"))
	after, err := SourceFingerprint[models.Cow](s.Conn(ctx), "farm_id = ?", farm)
	require.NoError(t, err)
	assert.EqualValues(t, 1, after.Count)
	require.NotNil(t, after.LatestUpdate)
	assert.False(t, after.LatestUpdate.Before(*before.LatestUpdate))

	empty, err := SourceFingerprint[models.Cow](s.Conn(ctx), "farm_id = ?", uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.Equal(models.Fingerprint{}))
}

func TestUniqueIndexRejectsDuplicateTag(t *testing.T) {
	s := newStore(t)
	farm := uuid.New()
	seedCow(t, s, farm, "T-1", "Daisy", models.DateOf(2023, 1, 1))

	dup := &models.Cow{FarmID: farm, Name: "Again", TagNumber: "T-1", Breed: models.BreedJersey, DateAcquired: models.DateOf(2023, 1, 1), CurrentStage: models.StageCalf}
	err := Create(s.Conn(context.Background()), dup)
	require.Error(t, err)
}

func TestDeletedCowReleasesTag(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	farm := uuid.New()
	old := seedCow(t, s, farm, "T-1", "Daisy", models.DateOf(2023, 1, 1))
	require.NoError(t, SoftDelete[models.Cow](s.Conn(ctx), old.ID, "cow"))

	again := seedCow(t, s, farm, "T-1", "Bella", models.DateOf(2024, 1, 1))
	assert.NotEqual(t, old.ID, again.ID)

	taken, err := Exists[models.Cow](s.Conn(ctx), true, "farm_id = ? AND tag_number = ?", farm, "T-1")
	require.NoError(t, err)
	assert.True(t, taken)
	n, err := Count[models.Cow](s.Conn(ctx), "farm_id = ?", farm)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		require.NoError(t, Create(tx, &models.Farm{Name: "Temp", Location: "Nowhere"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := Count[models.Farm](s.Conn(ctx), "1 = 1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
