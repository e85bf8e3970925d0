package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

type stubSources struct {
	calvings  []models.CalvingDue
	followUps []models.HealthRecord
	low       []models.FeedInventory
	stockErr  error
	day       models.Date
}

func (s *stubSources) CalvingsDue(context.Context, int) ([]models.CalvingDue, error) {
	return s.calvings, nil
}

func (s *stubSources) FollowUpsDue(_ context.Context, day models.Date) ([]models.HealthRecord, error) {
	s.day = day
	return s.followUps, nil
}

func (s *stubSources) Today() models.Date { return models.DateOf(2024, 3, 20) }

func (s *stubSources) LowStock(context.Context) ([]models.FeedInventory, error) {
	return s.low, s.stockErr
}

type inbox struct{ got []models.NotificationInput }

func (i *inbox) Create(_ context.Context, in models.NotificationInput) (*models.Notification, error) {
	i.got = append(i.got, in)
	return in.Build(), nil
}

func TestSweep(t *testing.T) {
	farmID := uuid.New()
	cow := models.Cow{FarmID: farmID, Name: "Daisy", TagNumber: "C-001"}
	cow.ID = uuid.New()
	src := &stubSources{
		calvings: []models.CalvingDue{
			{Cow: cow, DaysLeft: 1, Record: models.BreedingRecord{ExpectedCalvingDate: models.DateOf(2024, 3, 21)}},
			{Cow: cow, DaysLeft: 5, Record: models.BreedingRecord{ExpectedCalvingDate: models.DateOf(2024, 3, 25)}},
		},
		followUps: []models.HealthRecord{{
			FarmID:      farmID,
			Animal:      models.AnimalRef{Kind: models.AnimalCow, ID: cow.ID},
			AnimalName:  "Daisy (C-001)",
			DiseaseName: "Mastitis",
		}},
		low: []models.FeedInventory{{
			FarmID:            farmID,
			FeedTypeName:      "Dairy Meal",
			CurrentStock:      decimal.Zero,
			MinimumStockLevel: decimal.NewFromInt(50),
		}},
	}
	box := &inbox{}
	svc := NewService(src, src, src, box, "", nil)

	res, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Calvings: 2, FollowUps: 1, LowStock: 1}, res)
	assert.Equal(t, 4, res.Total())
	assert.Equal(t, models.DateOf(2024, 3, 20), src.day)

	require.Len(t, box.got, 4)
	for _, n := range box.got {
		assert.Equal(t, "farm-manager", n.RecipientID)
		require.NotNil(t, n.FarmID)
		assert.Equal(t, farmID, *n.FarmID)
	}
	assert.Equal(t, models.NotifyCalvingDue, box.got[0].NotificationType)
	assert.Equal(t, models.PriorityUrgent, box.got[0].Priority)
	assert.Equal(t, models.PriorityHigh, box.got[1].Priority)
	assert.Equal(t, models.NotifyTreatmentFollowup, box.got[2].NotificationType)
	assert.Equal(t, &cow.ID, box.got[2].CowID)
	assert.Equal(t, models.NotifyLowStock, box.got[3].NotificationType)
	assert.Equal(t, models.PriorityUrgent, box.got[3].Priority)
	assert.Contains(t, box.got[3].Message, "Dairy Meal")
}

func TestSweepContinuesPastFailures(t *testing.T) {
	src := &stubSources{
		stockErr: errors.New("db gone"),
		followUps: []models.HealthRecord{{
			FarmID:      uuid.New(),
			Animal:      models.AnimalRef{Kind: models.AnimalChickenBatch, ID: uuid.New()},
			AnimalName:  "Layers A",
			DiseaseName: "Newcastle",
		}},
	}
	box := &inbox{}
	svc := NewService(src, src, src, box, "owner", nil)

	res, err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, res.FollowUps)
	require.Len(t, box.got, 1)
	assert.Nil(t, box.got[0].CowID)
	assert.Equal(t, "owner", box.got[0].RecipientID)
}
