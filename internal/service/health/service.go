package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
)

var VeterinarianSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"is_active":      {Column: "is_active", Kind: gormdb.FilterBool},
		"specialization": {Column: "specialization"},
		"location":       {Column: "location"},
	},
	Search:   []string{"name", "license_number", "location", "specialization"},
	Ordering: []string{"name", "created_at"},
	Default:  "name",
}

var RecordSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":            {Column: "farm_id", Kind: gormdb.FilterUUID},
		"animal_type":        {Column: "animal_type"},
		"animal_id":          {Column: "animal_id", Kind: gormdb.FilterUUID},
		"treatment_status":   {Column: "treatment_status"},
		"veterinarian_id":    {Column: "veterinarian_id", Kind: gormdb.FilterUUID},
		"follow_up_required": {Column: "follow_up_required", Kind: gormdb.FilterBool},
		"date_reported":      {Column: "date_reported", Kind: gormdb.FilterDate},
		"follow_up_date":     {Column: "follow_up_date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"disease_name", "symptoms", "diagnosis", "medicine_used"},
	Ordering: []string{"date_reported", "treatment_status", "medicine_cost", "follow_up_date"},
	Default:  "-date_reported",
}

// Service keeps veterinarians and the treatment history of animals.
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

func (s *Service) CreateVeterinarian(ctx context.Context, in models.VeterinarianInput) (*models.Veterinarian, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	v := &models.Veterinarian{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkLicense(tx, uuid.Nil, in.LicenseNumber); err != nil {
			return err
		}
		in.Apply(v)
		return gormdb.Create(tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) GetVeterinarian(ctx context.Context, id uuid.UUID) (*models.Veterinarian, error) {
	return gormdb.Get[models.Veterinarian](s.store.Conn(ctx), id, "veterinarian")
}

func (s *Service) ListVeterinarians(ctx context.Context, q models.ListQuery) (models.Page[models.Veterinarian], error) {
	return gormdb.List[models.Veterinarian](s.store.Conn(ctx), VeterinarianSpec, q)
}

func (s *Service) UpdateVeterinarian(ctx context.Context, id uuid.UUID, in models.VeterinarianInput) (*models.Veterinarian, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var v *models.Veterinarian
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if v, err = gormdb.Get[models.Veterinarian](tx, id, "veterinarian"); err != nil {
			return err
		}
		if err := checkLicense(tx, id, in.LicenseNumber); err != nil {
			return err
		}
		in.Apply(v)
		return gormdb.Save(tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVeterinarian removes the veterinarian and detaches their records.
func (s *Service) DeleteVeterinarian(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := gormdb.SoftDelete[models.Veterinarian](tx, id, "veterinarian"); err != nil {
			return err
		}
		return tx.Model(&models.HealthRecord{}).Where("veterinarian_id = ?", id).
			Update("veterinarian_id", nil).Error
	})
}

func checkLicense(tx *gorm.DB, self uuid.UUID, license string) error {
	taken, err := gormdb.Exists[models.Veterinarian](tx, false, "license_number = ? AND id <> ?", license, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("license %s already registered: %w", license, models.ErrConflict)
	}
	return nil
}

// CreateRecord stores a health record for a cow or a chicken batch. The farm is taken
// from the animal; a positive medicine cost is booked as a veterinary expense.
func (s *Service) CreateRecord(ctx context.Context, in models.HealthRecordInput) (*models.HealthRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := &models.HealthRecord{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		in.Apply(r)
		if err := resolve(tx, r); err != nil {
			return err
		}
		if err := gormdb.Create(tx, r); err != nil {
			return err
		}
		return bookTreatment(tx, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("health record created",
		zap.String("record_id", r.ID.String()),
		zap.String("animal", string(r.Animal.Kind)+" "+r.Animal.ID.String()),
		zap.String("disease", r.DiseaseName))
	return r, nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*models.HealthRecord, error) {
	db := s.store.Conn(ctx)
	r, err := gormdb.Get[models.HealthRecord](db, id, "health record")
	if err != nil {
		return nil, err
	}
	r.AnimalName = animalName(db, r.Animal)
	return r, nil
}

func (s *Service) ListRecords(ctx context.Context, q models.ListQuery) (models.Page[models.HealthRecord], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.HealthRecord](db, RecordSpec, q)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		page.Items[i].AnimalName = animalName(db, page.Items[i].Animal)
	}
	return page, nil
}

func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, in models.HealthRecordInput) (*models.HealthRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var r *models.HealthRecord
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if r, err = gormdb.Get[models.HealthRecord](tx, id, "health record"); err != nil {
			return err
		}
		in.Apply(r)
		if err := resolve(tx, r); err != nil {
			return err
		}
		if err := gormdb.Save(tx, r); err != nil {
			return err
		}
		return bookTreatment(tx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := gormdb.SoftDelete[models.HealthRecord](tx, id, "health record"); err != nil {
			return err
		}
		return financial.Unbook(tx, models.SourceHealthRecord, id)
	})
}

// FollowUpsDue lists the open follow-ups scheduled for day.
func (s *Service) FollowUpsDue(ctx context.Context, day models.Date) ([]models.HealthRecord, error) {
	db := s.store.Conn(ctx)
	rows, err := gormdb.Find[models.HealthRecord](db,
		"follow_up_required = ? AND follow_up_date = ? AND treatment_status NOT IN ?",
		true, day, []models.TreatmentStatus{models.TreatmentRecovered, models.TreatmentDead})
	if err != nil {
		return nil, fmt.Errorf("load follow-ups: %w", err)
	}
	for i := range rows {
		rows[i].AnimalName = animalName(db, rows[i].Animal)
	}
	return rows, nil
}

// Today is the current calendar day as seen by the service clock.
func (s *Service) Today() models.Date {
	return models.Today(s.now())
}

// resolve checks the referenced animal and veterinarian and fills the owning farm.
func resolve(tx *gorm.DB, r *models.HealthRecord) error {
	switch r.Animal.Kind {
	case models.AnimalCow:
		cow, err := gormdb.Get[models.Cow](tx, r.Animal.ID, "cow")
		if err != nil {
			return err
		}
		r.FarmID = cow.FarmID
		r.AnimalName = fmt.Sprintf("%s (%s)", cow.Name, cow.TagNumber)
	case models.AnimalChickenBatch:
		batch, err := gormdb.Get[models.ChickenBatch](tx, r.Animal.ID, "chicken batch")
		if err != nil {
			return err
		}
		r.FarmID = batch.FarmID
		r.AnimalName = batch.BatchName
	default:
		return models.FieldError("animal.kind", "must be one of [cow chicken_batch]")
	}
	if r.VeterinarianID != nil {
		if _, err := gormdb.Get[models.Veterinarian](tx, *r.VeterinarianID, "veterinarian"); err != nil {
			return err
		}
	}
	return nil
}

func animalName(db *gorm.DB, ref models.AnimalRef) string {
	switch ref.Kind {
	case models.AnimalCow:
		var cow models.Cow
		if err := db.Select("name", "tag_number").Where("id = ?", ref.ID).Take(&cow).Error; err == nil {
			return fmt.Sprintf("%s (%s)", cow.Name, cow.TagNumber)
		}
	case models.AnimalChickenBatch:
		var batch models.ChickenBatch
		if err := db.Select("batch_name").Where("id = ?", ref.ID).Take(&batch).Error; err == nil {
			return batch.BatchName
		}
	}
	return ""
}

func bookTreatment(tx *gorm.DB, r *models.HealthRecord) error {
	return financial.Sync(tx, financial.Booking{
		FarmID:      r.FarmID,
		Type:        models.TransactionExpense,
		Category:    models.CategoryVeterinary,
		Date:        r.DateReported,
		Amount:      r.MedicineCost,
		Description: fmt.Sprintf("Treatment: %s for %s", r.DiseaseName, r.AnimalName),
		Source:      models.SourceRef{Kind: models.SourceHealthRecord, ID: r.ID},
	})
}
