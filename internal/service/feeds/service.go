package feeds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
)

var FeedTypeSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"category":            {Column: "category"},
		"unit_of_measurement": {Column: "unit_of_measurement"},
		"is_active":           {Column: "is_active", Kind: gormdb.FilterBool},
	},
	Search:   []string{"name", "description"},
	Ordering: []string{"name", "category", "created_at"},
	Default:  "name",
}

var PurchaseSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":       {Column: "farm_id", Kind: gormdb.FilterUUID},
		"feed_type_id":  {Column: "feed_type_id", Kind: gormdb.FilterUUID},
		"is_finished":   {Column: "is_finished", Kind: gormdb.FilterBool},
		"purchase_date": {Column: "purchase_date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"supplier_name", "supplier_contact", "notes"},
	Ordering: []string{"purchase_date", "total_cost", "quantity", "remaining_quantity"},
	Default:  "-purchase_date",
}

var ConsumptionSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"cow_id":  {Column: "cow_id", Kind: gormdb.FilterUUID},
		"farm_id": {Kind: gormdb.FilterUUID, Expr: "cow_id IN (SELECT id FROM cows WHERE farm_id = ?)"},
		"date":    {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"date", "dairy_meal_kg", "napier_hay_silage_kg"},
	Default:  "-date",
}

var ChickenFeedSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"batch_id": {Column: "batch_id", Kind: gormdb.FilterUUID},
		"farm_id":  {Kind: gormdb.FilterUUID, Expr: "batch_id IN (SELECT id FROM chicken_batches WHERE farm_id = ?)"},
		"date":     {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"notes"},
	Ordering: []string{"date", "feed_quantity_kg", "feed_cost"},
	Default:  "-date",
}

var InventorySpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":      {Column: "farm_id", Kind: gormdb.FilterUUID},
		"feed_type_id": {Column: "feed_type_id", Kind: gormdb.FilterUUID},
	},
	Ordering: []string{"current_stock", "minimum_stock_level", "updated_at"},
	Default:  "current_stock",
}

// Service manages feed types, purchases, rations and stock.
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

// Feed types

func (s *Service) CreateFeedType(ctx context.Context, in models.FeedTypeInput) (*models.FeedType, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	f := &models.FeedType{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkFeedTypeName(tx, uuid.Nil, in.Name); err != nil {
			return err
		}
		in.Apply(f)
		return gormdb.Create(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) GetFeedType(ctx context.Context, id uuid.UUID) (*models.FeedType, error) {
	return gormdb.Get[models.FeedType](s.store.Conn(ctx), id, "feed type")
}

func (s *Service) ListFeedTypes(ctx context.Context, q models.ListQuery) (models.Page[models.FeedType], error) {
	return gormdb.List[models.FeedType](s.store.Conn(ctx), FeedTypeSpec, q)
}

func (s *Service) UpdateFeedType(ctx context.Context, id uuid.UUID, in models.FeedTypeInput) (*models.FeedType, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var f *models.FeedType
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if f, err = gormdb.Get[models.FeedType](tx, id, "feed type"); err != nil {
			return err
		}
		if err := checkFeedTypeName(tx, id, in.Name); err != nil {
			return err
		}
		in.Apply(f)
		return gormdb.Save(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) DeleteFeedType(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.FeedType](s.store.Conn(ctx), id, "feed type")
}

func checkFeedTypeName(tx *gorm.DB, self uuid.UUID, name string) error {
	taken, err := gormdb.Exists[models.FeedType](tx, false, "name = ? AND id <> ?", name, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("feed type %q already exists: %w", name, models.ErrConflict)
	}
	return nil
}

// Purchases

// CreatePurchase records a purchase and books its expense in the same database transaction.
func (s *Service) CreatePurchase(ctx context.Context, in models.FeedPurchaseInput) (*models.FeedPurchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &models.FeedPurchase{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		ft, err := checkPurchase(tx, in)
		if err != nil {
			return err
		}
		in.Apply(p, true)
		if err := gormdb.Create(tx, p); err != nil {
			return err
		}
		p.FeedTypeName = ft.Name
		return bookPurchase(tx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("feed purchase recorded",
		zap.String("purchase_id", p.ID.String()),
		zap.String("feed_type", p.FeedTypeName),
		zap.String("expense", p.ExpenseAmount().String()))
	return p, nil
}

func (s *Service) GetPurchase(ctx context.Context, id uuid.UUID) (*models.FeedPurchase, error) {
	db := s.store.Conn(ctx)
	p, err := gormdb.Get[models.FeedPurchase](db, id, "feed purchase")
	if err != nil {
		return nil, err
	}
	if err := decoratePurchases(db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPurchases(ctx context.Context, q models.ListQuery) (models.Page[models.FeedPurchase], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.FeedPurchase](db, PurchaseSpec, q)
	if err != nil {
		return page, err
	}
	return page, decoratePurchases(db, sliceRefs(page.Items)...)
}

// UpdatePurchase rewrites a purchase and keeps its booked expense in step.
func (s *Service) UpdatePurchase(ctx context.Context, id uuid.UUID, in models.FeedPurchaseInput) (*models.FeedPurchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var p *models.FeedPurchase
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if p, err = gormdb.Get[models.FeedPurchase](tx, id, "feed purchase"); err != nil {
			return err
		}
		ft, err := checkPurchase(tx, in)
		if err != nil {
			return err
		}
		in.Apply(p, false)
		if p.RemainingQuantity.GreaterThan(p.Quantity) {
			p.RemainingQuantity = p.Quantity
		}
		if err := gormdb.Save(tx, p); err != nil {
			return err
		}
		p.FeedTypeName = ft.Name
		return bookPurchase(tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkFinished flags the purchase as used up.
func (s *Service) MarkFinished(ctx context.Context, id uuid.UUID) (*models.FeedPurchase, error) {
	var p *models.FeedPurchase
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if p, err = gormdb.Get[models.FeedPurchase](tx, id, "feed purchase"); err != nil {
			return err
		}
		p.IsFinished = true
		p.RemainingQuantity = decimal.Zero
		if err := gormdb.Save(tx, p); err != nil {
			return err
		}
		return decoratePurchases(tx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("feed purchase finished", zap.String("purchase_id", id.String()))
	return p, nil
}

func (s *Service) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := gormdb.SoftDelete[models.FeedPurchase](tx, id, "feed purchase"); err != nil {
			return err
		}
		return financial.Unbook(tx, models.SourceFeedPurchase, id)
	})
}

func checkPurchase(tx *gorm.DB, in models.FeedPurchaseInput) (*models.FeedType, error) {
	if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
		return nil, err
	}
	return gormdb.Get[models.FeedType](tx, in.FeedTypeID, "feed type")
}

func bookPurchase(tx *gorm.DB, p *models.FeedPurchase) error {
	return financial.Sync(tx, financial.Booking{
		FarmID:      p.FarmID,
		Type:        models.TransactionExpense,
		Category:    models.CategoryFeedPurchase,
		Date:        p.PurchaseDate,
		Amount:      p.ExpenseAmount(),
		Description: fmt.Sprintf("Feed purchase: %s %s from %s", p.Quantity.StringFixed(2), p.FeedTypeName, p.SupplierName),
		Source:      models.SourceRef{Kind: models.SourceFeedPurchase, ID: p.ID},
	})
}

func decoratePurchases(db *gorm.DB, purchases ...*models.FeedPurchase) error {
	names, err := feedTypeNames(db)
	if err != nil {
		return err
	}
	for _, p := range purchases {
		p.FeedTypeName = names[p.FeedTypeID]
	}
	return nil
}

// Cow rations

func (s *Service) CreateConsumption(ctx context.Context, in models.DailyFeedConsumptionInput) (*models.DailyFeedConsumption, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &models.DailyFeedConsumption{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkConsumption(tx, uuid.Nil, in); err != nil {
			return err
		}
		in.Apply(c)
		return gormdb.Create(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetConsumption(ctx context.Context, id uuid.UUID) (*models.DailyFeedConsumption, error) {
	return gormdb.Get[models.DailyFeedConsumption](s.store.Conn(ctx), id, "feed consumption")
}

func (s *Service) ListConsumption(ctx context.Context, q models.ListQuery) (models.Page[models.DailyFeedConsumption], error) {
	return gormdb.List[models.DailyFeedConsumption](s.store.Conn(ctx), ConsumptionSpec, q)
}

func (s *Service) UpdateConsumption(ctx context.Context, id uuid.UUID, in models.DailyFeedConsumptionInput) (*models.DailyFeedConsumption, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var c *models.DailyFeedConsumption
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if c, err = gormdb.Get[models.DailyFeedConsumption](tx, id, "feed consumption"); err != nil {
			return err
		}
		if err := checkConsumption(tx, id, in); err != nil {
			return err
		}
		in.Apply(c)
		return gormdb.Save(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteConsumption(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.DailyFeedConsumption](s.store.Conn(ctx), id, "feed consumption")
}

func checkConsumption(tx *gorm.DB, self uuid.UUID, in models.DailyFeedConsumptionInput) error {
	if _, err := gormdb.Get[models.Cow](tx, in.CowID, "cow"); err != nil {
		return err
	}
	taken, err := gormdb.Exists[models.DailyFeedConsumption](tx, false, "cow_id = ? AND date = ? AND id <> ?", in.CowID, in.Date, self)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("ration for %s already recorded for this cow: %w", in.Date, models.ErrConflict)
	}
	return nil
}

// Chicken feed

func (s *Service) CreateChickenFeed(ctx context.Context, in models.ChickenFeedConsumptionInput) (*models.ChickenFeedConsumption, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &models.ChickenFeedConsumption{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		batch, err := checkChickenFeed(tx, uuid.Nil, in)
		if err != nil {
			return err
		}
		in.Apply(c)
		if err := gormdb.Create(tx, c); err != nil {
			return err
		}
		c.CostPerBird = c.CostPerBirdFor(batch.CurrentCount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetChickenFeed(ctx context.Context, id uuid.UUID) (*models.ChickenFeedConsumption, error) {
	db := s.store.Conn(ctx)
	c, err := gormdb.Get[models.ChickenFeedConsumption](db, id, "chicken feed record")
	if err != nil {
		return nil, err
	}
	return c, decorateChickenFeed(db, c)
}

func (s *Service) ListChickenFeed(ctx context.Context, q models.ListQuery) (models.Page[models.ChickenFeedConsumption], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.ChickenFeedConsumption](db, ChickenFeedSpec, q)
	if err != nil {
		return page, err
	}
	return page, decorateChickenFeed(db, sliceRefs(page.Items)...)
}

func (s *Service) UpdateChickenFeed(ctx context.Context, id uuid.UUID, in models.ChickenFeedConsumptionInput) (*models.ChickenFeedConsumption, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var c *models.ChickenFeedConsumption
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if c, err = gormdb.Get[models.ChickenFeedConsumption](tx, id, "chicken feed record"); err != nil {
			return err
		}
		batch, err := checkChickenFeed(tx, id, in)
		if err != nil {
			return err
		}
		in.Apply(c)
		if err := gormdb.Save(tx, c); err != nil {
			return err
		}
		c.CostPerBird = c.CostPerBirdFor(batch.CurrentCount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteChickenFeed(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.ChickenFeedConsumption](s.store.Conn(ctx), id, "chicken feed record")
}

func checkChickenFeed(tx *gorm.DB, self uuid.UUID, in models.ChickenFeedConsumptionInput) (*models.ChickenBatch, error) {
	batch, err := gormdb.Get[models.ChickenBatch](tx, in.BatchID, "chicken batch")
	if err != nil {
		return nil, err
	}
	taken, err := gormdb.Exists[models.ChickenFeedConsumption](tx, false, "batch_id = ? AND date = ? AND id <> ?", in.BatchID, in.Date, self)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("feed for %s already recorded for this batch: %w", in.Date, models.ErrConflict)
	}
	return batch, nil
}

func decorateChickenFeed(db *gorm.DB, records ...*models.ChickenFeedConsumption) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.BatchID)
	}
	var batches []models.ChickenBatch
	if err := db.Where("id IN ?", ids).Find(&batches).Error; err != nil {
		return fmt.Errorf("load batches: %w", err)
	}
	counts := make(map[uuid.UUID]int, len(batches))
	for _, b := range batches {
		counts[b.ID] = b.CurrentCount
	}
	for _, r := range records {
		r.CostPerBird = r.CostPerBirdFor(counts[r.BatchID])
	}
	return nil
}

// Inventory

func (s *Service) CreateInventory(ctx context.Context, in models.FeedInventoryInput) (*models.FeedInventory, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	inv := &models.FeedInventory{}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		ft, err := checkInventory(tx, uuid.Nil, in)
		if err != nil {
			return err
		}
		in.Apply(inv)
		if err := gormdb.Create(tx, inv); err != nil {
			return err
		}
		inv.FeedTypeName = ft.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInventory(ctx context.Context, id uuid.UUID) (*models.FeedInventory, error) {
	db := s.store.Conn(ctx)
	inv, err := gormdb.Get[models.FeedInventory](db, id, "feed inventory")
	if err != nil {
		return nil, err
	}
	return inv, decorateInventory(db, inv)
}

func (s *Service) ListInventory(ctx context.Context, q models.ListQuery) (models.Page[models.FeedInventory], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.FeedInventory](db, InventorySpec, q)
	if err != nil {
		return page, err
	}
	return page, decorateInventory(db, sliceRefs(page.Items)...)
}

func (s *Service) UpdateInventory(ctx context.Context, id uuid.UUID, in models.FeedInventoryInput) (*models.FeedInventory, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var inv *models.FeedInventory
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if inv, err = gormdb.Get[models.FeedInventory](tx, id, "feed inventory"); err != nil {
			return err
		}
		ft, err := checkInventory(tx, id, in)
		if err != nil {
			return err
		}
		in.Apply(inv)
		if err := gormdb.Save(tx, inv); err != nil {
			return err
		}
		inv.FeedTypeName = ft.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) DeleteInventory(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.FeedInventory](s.store.Conn(ctx), id, "feed inventory")
}

// LowStock returns the stock lines at or below their minimum level across all farms.
func (s *Service) LowStock(ctx context.Context) ([]models.FeedInventory, error) {
	db := s.store.Conn(ctx)
	var rows []models.FeedInventory
	err := db.Where("is_deleted = ? AND current_stock <= minimum_stock_level", false).
		Order("farm_id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load low stock: %w", err)
	}
	return rows, decorateInventory(db, sliceRefs(rows)...)
}

func checkInventory(tx *gorm.DB, self uuid.UUID, in models.FeedInventoryInput) (*models.FeedType, error) {
	if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
		return nil, err
	}
	ft, err := gormdb.Get[models.FeedType](tx, in.FeedTypeID, "feed type")
	if err != nil {
		return nil, err
	}
	taken, err := gormdb.Exists[models.FeedInventory](tx, false, "farm_id = ? AND feed_type_id = ? AND id <> ?", in.FarmID, in.FeedTypeID, self)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("stock line for %s already exists on this farm: %w", ft.Name, models.ErrConflict)
	}
	return ft, nil
}

func decorateInventory(db *gorm.DB, rows ...*models.FeedInventory) error {
	names, err := feedTypeNames(db)
	if err != nil {
		return err
	}
	for _, r := range rows {
		r.FeedTypeName = names[r.FeedTypeID]
	}
	return nil
}

func feedTypeNames(db *gorm.DB) (map[uuid.UUID]string, error) {
	var types []models.FeedType
	if err := db.Select("id", "name").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("load feed types: %w", err)
	}
	names := make(map[uuid.UUID]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names, nil
}

func sliceRefs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
