package production

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
)

const cowFarmExpr = "cow_id IN (SELECT id FROM cows WHERE farm_id = ?)"
const batchFarmExpr = "batch_id IN (SELECT id FROM chicken_batches WHERE farm_id = ?)"

var MilkSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"cow_id":        {Column: "cow_id", Kind: gormdb.FilterUUID},
		"farm_id":       {Kind: gormdb.FilterUUID, Expr: cowFarmExpr},
		"session":       {Column: "session"},
		"quality_grade": {Column: "quality_grade"},
		"date":          {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"recorded_by", "notes"},
	Ordering: []string{"date", "session", "quantity_liters", "created_at"},
	Default:  "-date,session",
}

var MilkSaleSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":        {Column: "farm_id", Kind: gormdb.FilterUUID},
		"payment_method": {Column: "payment_method"},
		"date":           {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"buyer_name", "buyer_contact", "notes"},
	Ordering: []string{"date", "total_amount", "quantity_liters"},
	Default:  "-date",
}

var EggSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"batch_id": {Column: "batch_id", Kind: gormdb.FilterUUID},
		"farm_id":  {Kind: gormdb.FilterUUID, Expr: batchFarmExpr},
		"date":     {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"date", "eggs_collected"},
	Default:  "-date",
}

var HatchingSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"batch_id": {Column: "batch_id", Kind: gormdb.FilterUUID},
		"farm_id":  {Kind: gormdb.FilterUUID, Expr: batchFarmExpr},
		"date":     {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"date", "chicks_hatched"},
	Default:  "-date",
}

// Service records milk, egg and hatching events.
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

func (s *Service) CreateMilk(ctx context.Context, in models.MilkProductionInput) (*models.MilkProduction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := &models.MilkProduction{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkMilk(tx, uuid.Nil, in); err != nil {
			return err
		}
		in.Apply(m)
		return gormdb.Create(tx, m)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("milk recorded",
		zap.String("cow_id", m.CowID.String()),
		zap.String("date", m.Date.String()),
		zap.String("session", string(m.Session)),
		zap.String("liters", m.QuantityLiters.String()))
	return m, nil
}

func (s *Service) GetMilk(ctx context.Context, id uuid.UUID) (*models.MilkProduction, error) {
	return gormdb.Get[models.MilkProduction](s.store.Conn(ctx), id, "milk record")
}

func (s *Service) ListMilk(ctx context.Context, q models.ListQuery) (models.Page[models.MilkProduction], error) {
	return gormdb.List[models.MilkProduction](s.store.Conn(ctx), MilkSpec, q)
}

func (s *Service) UpdateMilk(ctx context.Context, id uuid.UUID, in models.MilkProductionInput) (*models.MilkProduction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var m *models.MilkProduction
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if m, err = gormdb.Get[models.MilkProduction](tx, id, "milk record"); err != nil {
			return err
		}
		if err := checkMilk(tx, id, in); err != nil {
			return err
		}
		in.Apply(m)
		return gormdb.Save(tx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteMilk(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.MilkProduction](s.store.Conn(ctx), id, "milk record")
}

func checkMilk(tx *gorm.DB, self uuid.UUID, in models.MilkProductionInput) error {
	if _, err := gormdb.Get[models.Cow](tx, in.CowID, "cow"); err != nil {
		return err
	}
	taken, err := gormdb.Exists[models.MilkProduction](tx, false,
		"cow_id = ? AND date = ? AND session = ? AND id <> ?", in.CowID, in.Date, in.Session, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%s milking of %s already recorded for this cow: %w", in.Session, in.Date, models.ErrConflict)
	}
	return nil
}

// CreateMilkSale records a sale and books its income in the same database transaction.
func (s *Service) CreateMilkSale(ctx context.Context, in models.MilkSaleInput) (*models.MilkSale, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sale := &models.MilkSale{}
	in.Apply(sale)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
			return err
		}
		if err := gormdb.Create(tx, sale); err != nil {
			return err
		}
		return financial.Sync(tx, financial.Booking{
			FarmID:        sale.FarmID,
			Type:          models.TransactionIncome,
			Category:      models.CategoryMilkSales,
			Date:          sale.Date,
			Amount:        sale.TotalAmount,
			Description:   saleDescription(sale),
			PaymentMethod: sale.PaymentMethod,
			Source:        models.SourceRef{Kind: models.SourceMilkSale, ID: sale.ID},
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("milk sale recorded", zap.String("sale_id", sale.ID.String()), zap.String("amount", sale.TotalAmount.String()))
	return sale, nil
}

func saleDescription(sale *models.MilkSale) string {
	desc := fmt.Sprintf("Milk sale: %s L at %s", sale.QuantityLiters.StringFixed(2), sale.PricePerLiter.StringFixed(2))
	if sale.BuyerName != "" {
		desc += " to " + sale.BuyerName
	}
	return desc
}

func (s *Service) GetMilkSale(ctx context.Context, id uuid.UUID) (*models.MilkSale, error) {
	return gormdb.Get[models.MilkSale](s.store.Conn(ctx), id, "milk sale")
}

func (s *Service) ListMilkSales(ctx context.Context, q models.ListQuery) (models.Page[models.MilkSale], error) {
	return gormdb.List[models.MilkSale](s.store.Conn(ctx), MilkSaleSpec, q)
}

// DeleteMilkSale removes the sale together with the income it booked.
func (s *Service) DeleteMilkSale(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := gormdb.SoftDelete[models.MilkSale](tx, id, "milk sale"); err != nil {
			return err
		}
		return financial.Unbook(tx, models.SourceMilkSale, id)
	})
}

func (s *Service) CreateEggs(ctx context.Context, in models.EggProductionInput) (*models.EggProduction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e := &models.EggProduction{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkEggs(tx, uuid.Nil, in); err != nil {
			return err
		}
		in.Apply(e)
		return gormdb.Create(tx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEggs(ctx context.Context, id uuid.UUID) (*models.EggProduction, error) {
	return gormdb.Get[models.EggProduction](s.store.Conn(ctx), id, "egg record")
}

func (s *Service) ListEggs(ctx context.Context, q models.ListQuery) (models.Page[models.EggProduction], error) {
	return gormdb.List[models.EggProduction](s.store.Conn(ctx), EggSpec, q)
}

func (s *Service) UpdateEggs(ctx context.Context, id uuid.UUID, in models.EggProductionInput) (*models.EggProduction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var e *models.EggProduction
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if e, err = gormdb.Get[models.EggProduction](tx, id, "egg record"); err != nil {
			return err
		}
		if err := checkEggs(tx, id, in); err != nil {
			return err
		}
		in.Apply(e)
		return gormdb.Save(tx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteEggs(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.EggProduction](s.store.Conn(ctx), id, "egg record")
}

func checkEggs(tx *gorm.DB, self uuid.UUID, in models.EggProductionInput) error {
	if _, err := gormdb.Get[models.ChickenBatch](tx, in.BatchID, "chicken batch"); err != nil {
		return err
	}
	taken, err := gormdb.Exists[models.EggProduction](tx, false, "batch_id = ? AND date = ? AND id <> ?", in.BatchID, in.Date, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("eggs for %s already recorded for this batch: %w", in.Date, models.ErrConflict)
	}
	return nil
}

// RecordHatching stores a hatching and adds the hatched chicks to the batch atomically.
func (s *Service) RecordHatching(ctx context.Context, in models.HatchingInput) (*models.ChickHatching, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	h := &models.ChickHatching{}
	in.Apply(h)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := gormdb.Get[models.ChickenBatch](tx, in.BatchID, "chicken batch"); err != nil {
			return err
		}
		if err := gormdb.Create(tx, h); err != nil {
			return err
		}
		if h.ChicksHatched == 0 {
			return nil
		}
		res := tx.Model(&models.ChickenBatch{}).
			Where("id = ? AND is_deleted = ?", in.BatchID, false).
			Update("current_count", gorm.Expr("current_count + ?", h.ChicksHatched))
		if res.Error != nil {
			return fmt.Errorf("add hatched chicks to batch %s: %w", in.BatchID, res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("hatching recorded", zap.String("batch_id", h.BatchID.String()), zap.Int("chicks", h.ChicksHatched))
	return h, nil
}

func (s *Service) GetHatching(ctx context.Context, id uuid.UUID) (*models.ChickHatching, error) {
	return gormdb.Get[models.ChickHatching](s.store.Conn(ctx), id, "hatching")
}

func (s *Service) ListHatchings(ctx context.Context, q models.ListQuery) (models.Page[models.ChickHatching], error) {
	return gormdb.List[models.ChickHatching](s.store.Conn(ctx), HatchingSpec, q)
}

// MilkForDay returns the live milking records of a farm's cows on one day.
func (s *Service) MilkForDay(ctx context.Context, farmID uuid.UUID, day models.Date) ([]models.MilkProduction, error) {
	return gormdb.Find[models.MilkProduction](s.store.Conn(ctx), "date = ? AND "+cowFarmExpr, day, farmID)
}
