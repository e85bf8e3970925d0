package livestock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

var CowSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":       {Column: "farm_id", Kind: gormdb.FilterUUID},
		"breed":         {Column: "breed"},
		"current_stage": {Column: "current_stage"},
		"is_active":     {Column: "is_active", Kind: gormdb.FilterBool},
		"mother_id":     {Column: "mother_id", Kind: gormdb.FilterUUID},
		"date_acquired": {Column: "date_acquired", Kind: gormdb.FilterDate},
	},
	Search:   []string{"name", "tag_number", "father_info"},
	Ordering: []string{"name", "tag_number", "date_of_birth", "date_acquired", "created_at"},
	Default:  "tag_number",
}

var BatchSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":       {Column: "farm_id", Kind: gormdb.FilterUUID},
		"batch_type":    {Column: "batch_type"},
		"is_active":     {Column: "is_active", Kind: gormdb.FilterBool},
		"date_acquired": {Column: "date_acquired", Kind: gormdb.FilterDate},
	},
	Search:   []string{"batch_name", "notes"},
	Ordering: []string{"batch_name", "date_acquired", "current_count", "created_at"},
	Default:  "batch_name",
}

var ReductionSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"batch_id": {Column: "batch_id", Kind: gormdb.FilterUUID},
		"reason":   {Column: "reason"},
		"date":     {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"date", "count", "created_at"},
	Default:  "-date",
}

// Service manages cows and chicken batches.
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

func (s *Service) CreateCow(ctx context.Context, in models.CowInput) (*models.Cow, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &models.Cow{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkCow(tx, uuid.Nil, in); err != nil {
			return err
		}
		in.Apply(c)
		if err := gormdb.Create(tx, c); err != nil {
			return err
		}
		return decorateCow(tx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cow registered", zap.String("cow_id", c.ID.String()), zap.String("tag", c.TagNumber))
	return c, nil
}

func (s *Service) GetCow(ctx context.Context, id uuid.UUID) (*models.Cow, error) {
	db := s.store.Conn(ctx)
	c, err := gormdb.Get[models.Cow](db, id, "cow")
	if err != nil {
		return nil, err
	}
	if err := decorateCow(db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// FindCowByTag resolves a cow by its tag within a farm.
func (s *Service) FindCowByTag(ctx context.Context, farmID uuid.UUID, tag string) (*models.Cow, error) {
	return gormdb.First[models.Cow](s.store.Conn(ctx), "cow "+tag, "farm_id = ? AND tag_number = ?", farmID, tag)
}

func (s *Service) ListCows(ctx context.Context, q models.ListQuery) (models.Page[models.Cow], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.Cow](db, CowSpec, q)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		if err := decorateCow(db, &page.Items[i]); err != nil {
			return page, err
		}
	}
	return page, nil
}

func (s *Service) UpdateCow(ctx context.Context, id uuid.UUID, in models.CowInput) (*models.Cow, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var c *models.Cow
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if c, err = gormdb.Get[models.Cow](tx, id, "cow"); err != nil {
			return err
		}
		if err := checkCow(tx, id, in); err != nil {
			return err
		}
		in.Apply(c)
		if err := gormdb.Save(tx, c); err != nil {
			return err
		}
		return decorateCow(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCow(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.Cow](s.store.Conn(ctx), id, "cow")
}

// checkCow enforces the cross-record rules of a cow: its farm exists, the tag is free
// within the farm, and the mother is another cow of the same farm.
func checkCow(tx *gorm.DB, self uuid.UUID, in models.CowInput) error {
	if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
		return err
	}
	taken, err := gormdb.Exists[models.Cow](tx, false, "farm_id = ? AND tag_number = ? AND id <> ?", in.FarmID, in.TagNumber, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("tag %q already used on this farm: %w", in.TagNumber, models.ErrConflict)
	}
	if in.MotherID != nil {
		if *in.MotherID == self {
			return models.FieldError("mother_id", "a cow cannot be its own mother")
		}
		mother, err := gormdb.Get[models.Cow](tx, *in.MotherID, "mother")
		if err != nil {
			return err
		}
		if mother.FarmID != in.FarmID {
			return models.FieldError("mother_id", "mother must belong to the same farm")
		}
	}
	return nil
}

func decorateCow(db *gorm.DB, c *models.Cow) error {
	calves, err := gormdb.Count[models.Cow](db, "mother_id = ?", c.ID)
	if err != nil {
		return err
	}
	c.TotalCalves = calves
	c.MotherName = ""
	if c.MotherID != nil {
		var names []string
		if err := db.Model(&models.Cow{}).Where("id = ? AND is_deleted = ?", *c.MotherID, false).Pluck("name", &names).Error; err != nil {
			return err
		}
		if len(names) > 0 {
			c.MotherName = names[0]
		}
	}
	return nil
}

func (s *Service) CreateBatch(ctx context.Context, in models.ChickenBatchInput) (*models.ChickenBatch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b := &models.ChickenBatch{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkBatch(tx, uuid.Nil, in); err != nil {
			return err
		}
		in.Apply(b)
		b.CurrentCount = b.InitialCount
		if in.CurrentCount != nil {
			b.CurrentCount = *in.CurrentCount
		}
		return gormdb.Create(tx, b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("chicken batch registered", zap.String("batch_id", b.ID.String()), zap.Int("birds", b.CurrentCount))
	return b, nil
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*models.ChickenBatch, error) {
	return gormdb.Get[models.ChickenBatch](s.store.Conn(ctx), id, "chicken batch")
}

// FindBatchByName resolves a batch by its name within a farm.
func (s *Service) FindBatchByName(ctx context.Context, farmID uuid.UUID, name string) (*models.ChickenBatch, error) {
	return gormdb.First[models.ChickenBatch](s.store.Conn(ctx), "chicken batch "+name, "farm_id = ? AND LOWER(batch_name) = LOWER(?)", farmID, name)
}

func (s *Service) ListBatches(ctx context.Context, q models.ListQuery) (models.Page[models.ChickenBatch], error) {
	return gormdb.List[models.ChickenBatch](s.store.Conn(ctx), BatchSpec, q)
}

// UpdateBatch rewrites the descriptive fields of a batch. The head count is left alone.
func (s *Service) UpdateBatch(ctx context.Context, id uuid.UUID, in models.ChickenBatchInput) (*models.ChickenBatch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var b *models.ChickenBatch
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if b, err = gormdb.Get[models.ChickenBatch](tx, id, "chicken batch"); err != nil {
			return err
		}
		if err := in.ValidateUpdate(b); err != nil {
			return err
		}
		if err := checkBatch(tx, id, in); err != nil {
			return err
		}
		in.Apply(b)
		return gormdb.Save(tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.ChickenBatch](s.store.Conn(ctx), id, "chicken batch")
}

func checkBatch(tx *gorm.DB, self uuid.UUID, in models.ChickenBatchInput) error {
	if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
		return err
	}
	taken, err := gormdb.Exists[models.ChickenBatch](tx, false, "farm_id = ? AND batch_name = ? AND id <> ?", in.FarmID, in.BatchName, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("batch %q already exists on this farm: %w", in.BatchName, models.ErrConflict)
	}
	return nil
}

// ReduceBatch removes birds from a batch and records why. The decrement only applies
// while enough birds remain, so concurrent reductions can never drive the count negative.
func (s *Service) ReduceBatch(ctx context.Context, batchID uuid.UUID, in models.ReductionInput) (*models.ChickenReduction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = models.Today(s.now())
	}

	reduction := &models.ChickenReduction{
		BatchID: batchID,
		Count:   in.Count,
		Reason:  in.Reason,
		Date:    in.Date,
		Notes:   in.Notes,
	}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		batch, err := gormdb.Get[models.ChickenBatch](tx, batchID, "chicken batch")
		if err != nil {
			return err
		}
		res := tx.Model(&models.ChickenBatch{}).
			Where("id = ? AND is_deleted = ? AND current_count >= ?", batchID, false, in.Count).
			Update("current_count", gorm.Expr("current_count - ?", in.Count))
		if res.Error != nil {
			return fmt.Errorf("reduce batch %s: %w", batchID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reduce batch %s by %d with %d birds left: %w", batchID, in.Count, batch.CurrentCount, models.ErrInsufficientCount)
		}
		return gormdb.Create(tx, reduction)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch reduced",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", in.Count),
		zap.String("reason", string(in.Reason)))
	return reduction, nil
}

func (s *Service) ListReductions(ctx context.Context, batchID uuid.UUID, q models.ListQuery) (models.Page[models.ChickenReduction], error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return models.Page[models.ChickenReduction]{}, err
	}
	return gormdb.List[models.ChickenReduction](s.store.Conn(ctx), ReductionSpec, q.WithFilter("batch_id", batchID.String()))
}

// ReductionsBetween totals a farm's bird reductions per reason over an inclusive range.
func (s *Service) ReductionsBetween(ctx context.Context, farmID uuid.UUID, start, end models.Date) (map[models.ReductionReason]int, error) {
	rows, err := gormdb.Find[models.ChickenReduction](s.store.Conn(ctx),
		"batch_id IN (SELECT id FROM chicken_batches WHERE farm_id = ?) AND date >= ? AND date <= ?", farmID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load reductions: %w", err)
	}
	out := map[models.ReductionReason]int{}
	for _, r := range rows {
		out[r.Reason] += r.Count
	}
	return out, nil
}
