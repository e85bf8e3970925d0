package breeding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
)

const cowFarmExpr = "cow_id IN (SELECT id FROM cows WHERE farm_id = ?)"

var RecordSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"cow_id":                {Column: "cow_id", Kind: gormdb.FilterUUID},
		"farm_id":               {Kind: gormdb.FilterUUID, Expr: cowFarmExpr},
		"status":                {Column: "status"},
		"breeding_method":       {Column: "breeding_method"},
		"breeding_date":         {Column: "breeding_date", Kind: gormdb.FilterDate},
		"expected_calving_date": {Column: "expected_calving_date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"bull_info", "ai_technician", "notes"},
	Ordering: []string{"breeding_date", "expected_calving_date", "status"},
	Default:  "-breeding_date",
}

var HeatSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"cow_id":          {Column: "cow_id", Kind: gormdb.FilterUUID},
		"farm_id":         {Kind: gormdb.FilterUUID, Expr: cowFarmExpr},
		"heat_intensity":  {Column: "heat_intensity"},
		"bred_this_cycle": {Column: "bred_this_cycle", Kind: gormdb.FilterBool},
		"heat_date":       {Column: "heat_date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"heat_date", "heat_intensity"},
	Default:  "-heat_date",
}

// Service runs breeding cycles: bred, pregnancy_confirmed, calved or not_pregnant.
type Service struct {
	store  *gormdb.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store *gormdb.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create opens a new cycle. A cow has at most one open cycle at a time.
func (s *Service) Create(ctx context.Context, in models.BreedingRecordInput) (*models.BreedingRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := in.NewBreedingRecord()
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		cow, err := gormdb.Get[models.Cow](tx, in.CowID, "cow")
		if err != nil {
			return err
		}
		open, err := gormdb.Exists[models.BreedingRecord](tx, false, "cow_id = ? AND status IN ?",
			in.CowID, []models.BreedingStatus{models.BreedingBred, models.BreedingPregnancyConfirmed})
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("cow %s already has an open breeding cycle: %w", cow.TagNumber, models.ErrConflict)
		}
		if err := gormdb.Create(tx, r); err != nil {
			return err
		}
		return financial.Sync(tx, financial.Booking{
			FarmID:      cow.FarmID,
			Type:        models.TransactionExpense,
			Category:    models.CategoryBreeding,
			Date:        r.BreedingDate,
			Amount:      r.BreedingCost,
			Description: fmt.Sprintf("Breeding (%s) of %s (%s)", r.BreedingMethod, cow.Name, cow.TagNumber),
			Source:      models.SourceRef{Kind: models.SourceBreedingRecord, ID: r.ID},
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("breeding recorded",
		zap.String("record_id", r.ID.String()),
		zap.String("cow_id", r.CowID.String()),
		zap.String("expected_calving", r.ExpectedCalvingDate.String()))
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.BreedingRecord, error) {
	return gormdb.Get[models.BreedingRecord](s.store.Conn(ctx), id, "breeding record")
}

func (s *Service) List(ctx context.Context, q models.ListQuery) (models.Page[models.BreedingRecord], error) {
	return gormdb.List[models.BreedingRecord](s.store.Conn(ctx), RecordSpec, q)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := gormdb.SoftDelete[models.BreedingRecord](tx, id, "breeding record"); err != nil {
			return err
		}
		if err := tx.Model(&models.HeatDetection{}).Where("breeding_record_id = ?", id).
			Update("breeding_record_id", nil).Error; err != nil {
			return fmt.Errorf("detach heat detections: %w", err)
		}
		return financial.Unbook(tx, models.SourceBreedingRecord, id)
	})
}

// ConfirmPregnancy moves a bred cycle to pregnancy_confirmed.
func (s *Service) ConfirmPregnancy(ctx context.Context, id uuid.UUID, in models.PregnancyConfirmationInput) (*models.BreedingRecord, error) {
	return s.transition(ctx, id, "pregnancy confirmed", func(r *models.BreedingRecord) error {
		return r.ConfirmPregnancy(in.PregnancyTestDate)
	})
}

// MarkNotPregnant closes a failed cycle so the cow can be bred again. The
// breeding expense stays booked.
func (s *Service) MarkNotPregnant(ctx context.Context, id uuid.UUID, in models.PregnancyConfirmationInput) (*models.BreedingRecord, error) {
	return s.transition(ctx, id, "pregnancy test negative", func(r *models.BreedingRecord) error {
		return r.MarkNotPregnant(in.PregnancyTestDate)
	})
}

// RecordCalving closes a confirmed pregnancy.
func (s *Service) RecordCalving(ctx context.Context, id uuid.UUID, in models.CalvingInput) (*models.BreedingRecord, error) {
	return s.transition(ctx, id, "calving recorded", func(r *models.BreedingRecord) error {
		return r.RecordCalving(in)
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, event string, step func(*models.BreedingRecord) error) (*models.BreedingRecord, error) {
	var r *models.BreedingRecord
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if r, err = gormdb.Get[models.BreedingRecord](tx, id, "breeding record"); err != nil {
			return err
		}
		if err := step(r); err != nil {
			return err
		}
		if r.CalfID != nil {
			if _, err := gormdb.Get[models.Cow](tx, *r.CalfID, "calf"); err != nil {
				return err
			}
		}
		return gormdb.Save(tx, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(event, zap.String("record_id", id.String()), zap.String("status", string(r.Status)))
	return r, nil
}

// CalvingsDue lists confirmed pregnancies expected to calve within the next days,
// soonest first.
func (s *Service) CalvingsDue(ctx context.Context, within int) ([]models.CalvingDue, error) {
	db := s.store.Conn(ctx)
	today := models.Today(s.now())
	var rows []models.BreedingRecord
	err := db.Where("is_deleted = ? AND status = ? AND expected_calving_date >= ? AND expected_calving_date <= ?",
		false, models.BreedingPregnancyConfirmed, today, today.AddDays(within)).
		Order("expected_calving_date").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load calvings due: %w", err)
	}
	out := make([]models.CalvingDue, 0, len(rows))
	for _, r := range rows {
		cow, err := gormdb.Get[models.Cow](db, r.CowID, "cow")
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, models.CalvingDue{Record: r, Cow: *cow, DaysLeft: today.DaysUntil(r.ExpectedCalvingDate)})
	}
	return out, nil
}

func (s *Service) CreateHeat(ctx context.Context, in models.HeatDetectionInput) (*models.HeatDetection, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	h := &models.HeatDetection{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkHeat(tx, in); err != nil {
			return err
		}
		in.Apply(h)
		return gormdb.Create(tx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) GetHeat(ctx context.Context, id uuid.UUID) (*models.HeatDetection, error) {
	return gormdb.Get[models.HeatDetection](s.store.Conn(ctx), id, "heat detection")
}

func (s *Service) ListHeats(ctx context.Context, q models.ListQuery) (models.Page[models.HeatDetection], error) {
	return gormdb.List[models.HeatDetection](s.store.Conn(ctx), HeatSpec, q)
}

func (s *Service) UpdateHeat(ctx context.Context, id uuid.UUID, in models.HeatDetectionInput) (*models.HeatDetection, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var h *models.HeatDetection
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if h, err = gormdb.Get[models.HeatDetection](tx, id, "heat detection"); err != nil {
			return err
		}
		if err := checkHeat(tx, in); err != nil {
			return err
		}
		in.Apply(h)
		return gormdb.Save(tx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) DeleteHeat(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.HeatDetection](s.store.Conn(ctx), id, "heat detection")
}

func checkHeat(tx *gorm.DB, in models.HeatDetectionInput) error {
	if _, err := gormdb.Get[models.Cow](tx, in.CowID, "cow"); err != nil {
		return err
	}
	if in.BreedingRecordID == nil {
		return nil
	}
	rec, err := gormdb.Get[models.BreedingRecord](tx, *in.BreedingRecordID, "breeding record")
	if err != nil {
		return err
	}
	if rec.CowID != in.CowID {
		return models.FieldError("breeding_record_id", "belongs to another cow")
	}
	return nil
}
