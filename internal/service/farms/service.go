package farms

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

var FarmSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"is_active": {Column: "is_active", Kind: gormdb.FilterBool},
		"location":  {Column: "location"},
	},
	Search:   []string{"name", "location"},
	Ordering: []string{"name", "location", "created_at", "established_date"},
	Default:  "name",
}

type Service struct {
	store  *gormdb.Store
	logger *zap.Logger
}

func NewService(store *gormdb.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, in models.FarmInput) (*models.Farm, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	f := &models.Farm{}
	in.Apply(f)
	if err := gormdb.Create(s.store.Conn(ctx), f); err != nil {
		return nil, err
	}
	s.logger.Info("farm created", zap.String("farm_id", f.ID.String()), zap.String("name", f.Name))
	return f, nil
}

// Get returns the farm with its head counts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Farm, error) {
	db := s.store.Conn(ctx)
	f, err := gormdb.Get[models.Farm](db, id, "farm")
	if err != nil {
		return nil, err
	}
	if err := decorate(db, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) List(ctx context.Context, q models.ListQuery) (models.Page[models.Farm], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.Farm](db, FarmSpec, q)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		if err := decorate(db, &page.Items[i]); err != nil {
			return page, err
		}
	}
	return page, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.FarmInput) (*models.Farm, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var f *models.Farm
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if f, err = gormdb.Get[models.Farm](tx, id, "farm"); err != nil {
			return err
		}
		in.Apply(f)
		if err := gormdb.Save(tx, f); err != nil {
			return err
		}
		return decorate(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.Farm](s.store.Conn(ctx), id, "farm")
}

// ActiveIDs lists the farms that scheduled work runs for.
func (s *Service) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.store.Conn(ctx).Model(&models.Farm{}).
		Where("is_deleted = ? AND is_active = ?", false, true).
		Order("name").
		Pluck("id", &ids).Error
	return ids, err
}

func decorate(db *gorm.DB, f *models.Farm) error {
	cows, err := gormdb.Count[models.Cow](db, "farm_id = ?", f.ID)
	if err != nil {
		return err
	}
	var chickens int64
	err = db.Model(&models.ChickenBatch{}).
		Select("COALESCE(SUM(current_count), 0)").
		Where("farm_id = ? AND is_deleted = ?", f.ID, false).
		Scan(&chickens).Error
	if err != nil {
		return err
	}
	f.TotalCows = cows
	f.TotalChickens = chickens
	return nil
}
