package financial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

// TransactionSpec is the list whitelist for transactions.
var TransactionSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":          {Column: "farm_id", Kind: gormdb.FilterUUID},
		"transaction_type": {Column: "transaction_type"},
		"category":         {Column: "category"},
		"payment_method":   {Column: "payment_method"},
		"date":             {Column: "date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"description", "reference_number", "notes"},
	Ordering: []string{"date", "amount", "created_at"},
	Default:  "-date",
}

// Service manages the farm ledger.
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

func (s *Service) Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := &models.Transaction{}
	in.Apply(t)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
			return err
		}
		return gormdb.Create(tx, t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction recorded",
		zap.String("farm_id", t.FarmID.String()),
		zap.String("type", string(t.TransactionType)),
		zap.String("category", string(t.Category)),
		zap.String("amount", t.Amount.String()))
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return gormdb.Get[models.Transaction](s.store.Conn(ctx), id, "transaction")
}

func (s *Service) List(ctx context.Context, q models.ListQuery) (models.Page[models.Transaction], error) {
	return gormdb.List[models.Transaction](s.store.Conn(ctx), TransactionSpec, q)
}

// Update rewrites a manual transaction. Booked transactions follow their source record
// and are changed through it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.TransactionInput) (*models.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t *models.Transaction
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if t, err = gormdb.Get[models.Transaction](tx, id, "transaction"); err != nil {
			return err
		}
		if src := t.Source(); src != nil {
			return fmt.Errorf("transaction %s is booked from %s %s: %w", id, src.Kind, src.ID, models.ErrConflict)
		}
		if _, err := gormdb.Get[models.Farm](tx, in.FarmID, "farm"); err != nil {
			return err
		}
		in.Apply(t)
		return gormdb.Save(tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete soft-deletes a manual transaction. Booked transactions go away with their
// source record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := gormdb.Get[models.Transaction](tx, id, "transaction")
		if err != nil {
			return err
		}
		if src := t.Source(); src != nil {
			return fmt.Errorf("transaction %s is booked from %s %s: %w", id, src.Kind, src.ID, models.ErrConflict)
		}
		return gormdb.SoftDelete[models.Transaction](tx, id, "transaction")
	})
}

// ForPeriod returns the live transactions of a farm between two dates, inclusive.
func (s *Service) ForPeriod(ctx context.Context, farmID uuid.UUID, period models.Period) ([]models.Transaction, error) {
	return gormdb.Find[models.Transaction](s.store.Conn(ctx), "farm_id = ? AND date >= ? AND date <= ?", farmID, period.Start, period.End)
}

// Booking describes the ledger entry a source record implies.
type Booking struct {
	FarmID        uuid.UUID
	Type          models.TransactionType
	Category      models.TransactionCategory
	Date          models.Date
	Amount        decimal.Decimal
	Description   string
	PaymentMethod models.PaymentMethod
	Source        models.SourceRef
}

// Sync makes the ledger agree with b inside tx: the booked transaction is created,
// updated, or removed when the amount is no longer positive.
func Sync(tx *gorm.DB, b Booking) error {
	existing, err := gormdb.First[models.Transaction](tx, "booked transaction",
		"source_kind = ? AND source_id = ?", b.Source.Kind, b.Source.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	if !b.Amount.IsPositive() {
		if existing == nil {
			return nil
		}
		return gormdb.SoftDelete[models.Transaction](tx, existing.ID, "transaction")
	}

	t := existing
	if t == nil {
		t = &models.Transaction{}
	}
	t.FarmID = b.FarmID
	t.TransactionType = b.Type
	t.Category = b.Category
	t.Date = b.Date
	t.Amount = b.Amount
	t.Description = b.Description
	t.PaymentMethod = b.PaymentMethod
	if t.PaymentMethod == "" {
		t.PaymentMethod = models.PaymentCash
	}
	t.SetSource(b.Source.Kind, b.Source.ID)

	if existing == nil {
		return gormdb.Create(tx, t)
	}
	return gormdb.Save(tx, t)
}

// Unbook removes the transaction booked from a source record, if any.
func Unbook(tx *gorm.DB, kind models.SourceKind, id uuid.UUID) error {
	res := tx.Model(&models.Transaction{}).
		Where("source_kind = ? AND source_id = ? AND is_deleted = ?", kind, id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return fmt.Errorf("unbook %s %s: %w", kind, id, res.Error)
	}
	return nil
}

// MonthPeriod is the period covering one calendar month.
func MonthPeriod(year int, month time.Month) models.Period {
	start, end := models.MonthBounds(year, int(month))
	return models.Period{Start: start, End: end}
}
