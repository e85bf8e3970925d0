package summary

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
)

const cowFarmExpr = "cow_id IN (SELECT id FROM cows WHERE farm_id = ?)"

var DailyMilkSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id": {Column: "farm_id", Kind: gormdb.FilterUUID},
		"date":    {Column: "date", Kind: gormdb.FilterDate},
	},
	Ordering: []string{"date", "total_daily", "cows_milked", "computed_at"},
	Default:  "-date",
}

var MonthlyFinancialSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id": {Column: "farm_id", Kind: gormdb.FilterUUID},
		"year":    {Column: "year", Kind: gormdb.FilterInt},
		"month":   {Column: "month", Kind: gormdb.FilterInt},
	},
	Ordering: []string{"year", "month", "net_profit", "total_income", "computed_at"},
	Default:  "-year,-month",
}

// Sink receives every summary whose version moved. Sinks are best effort.
type Sink interface {
	Name() string
	PutDailyMilk(ctx context.Context, s models.DailyMilkSummary) error
	PutMonthlyFinancial(ctx context.Context, s models.MonthlyFinancialSummary) error
}

// Service maintains the stored daily milk and monthly financial summaries.
type Service struct {
	store  *gormdb.Store
	logger *zap.Logger
	sinks  []Sink
	now    func() time.Time
}

func NewService(store *gormdb.Store, logger *zap.Logger, sinks ...Sink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, sinks: sinks, now: time.Now}
}

// RecalculateDailyMilk recomputes the milk totals of one farm on one day and upserts
// the summary keyed by (farm, date). Running it again without source changes leaves
// the figures and the version untouched.
func (s *Service) RecalculateDailyMilk(ctx context.Context, farmID uuid.UUID, day models.Date) (*models.DailyMilkSummary, error) {
	if day.IsZero() {
		return nil, models.FieldError("date", "this field is required")
	}
	var (
		sum    *models.DailyMilkSummary
		bumped bool
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := gormdb.Get[models.Farm](tx, farmID, "farm"); err != nil {
			return err
		}
		rows, err := gormdb.Find[models.MilkProduction](tx, "date = ? AND "+cowFarmExpr, day, farmID)
		if err != nil {
			return fmt.Errorf("load milk records: %w", err)
		}
		fp, err := gormdb.SourceFingerprint[models.MilkProduction](tx, "date = ? AND "+cowFarmExpr, day, farmID)
		if err != nil {
			return err
		}
		figures := models.ComputeDailyMilk(rows)

		existing, err := gormdb.First[models.DailyMilkSummary](tx, "daily milk summary", "farm_id = ? AND date = ?", farmID, day)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if existing == nil {
			sum = &models.DailyMilkSummary{FarmID: farmID, Date: day, DailyMilkFigures: figures}
			sum.Stamp(s.now(), fp, true)
			bumped = true
			return gormdb.Create(tx, sum)
		}
		sum = existing
		before := sum.Version
		sum.Stamp(s.now(), fp, !sum.DailyMilkFigures.Equal(figures))
		sum.DailyMilkFigures = figures
		bumped = sum.Version != before
		return gormdb.Save(tx, sum)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("daily milk summary recalculated",
		zap.String("farm_id", farmID.String()),
		zap.String("date", day.String()),
		zap.String("total", sum.TotalDaily.String()),
		zap.Int("version", sum.Version))
	if bumped {
		s.publishDaily(ctx, *sum)
	}
	return sum, nil
}

// RecalculateMonthlyFinancial recomputes one farm's income and expense lines for a
// calendar month and upserts the summary keyed by (farm, year, month).
func (s *Service) RecalculateMonthlyFinancial(ctx context.Context, farmID uuid.UUID, year, month int) (*models.MonthlyFinancialSummary, error) {
	verr := &models.ValidationError{}
	if month < 1 || month > 12 {
		verr.Add("month", "must be between 1 and 12")
	}
	if year < 1 {
		verr.Add("year", "must be greater than or equal to 1")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	start, end := models.MonthBounds(year, month)

	var (
		sum    *models.MonthlyFinancialSummary
		bumped bool
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := gormdb.Get[models.Farm](tx, farmID, "farm"); err != nil {
			return err
		}
		const cond = "farm_id = ? AND date >= ? AND date <= ?"
		txs, err := gormdb.Find[models.Transaction](tx, cond, farmID, start, end)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		fp, err := gormdb.SourceFingerprint[models.Transaction](tx, cond, farmID, start, end)
		if err != nil {
			return err
		}
		figures := models.ComputeMonthlyFinancial(txs)

		existing, err := gormdb.First[models.MonthlyFinancialSummary](tx, "monthly financial summary",
			"farm_id = ? AND year = ? AND month = ?", farmID, year, month)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if existing == nil {
			sum = &models.MonthlyFinancialSummary{FarmID: farmID, Year: year, Month: month, MonthlyFinancialFigures: figures}
			sum.Stamp(s.now(), fp, true)
			bumped = true
			return gormdb.Create(tx, sum)
		}
		sum = existing
		before := sum.Version
		sum.Stamp(s.now(), fp, !sum.MonthlyFinancialFigures.Equal(figures))
		sum.MonthlyFinancialFigures = figures
		bumped = sum.Version != before
		return gormdb.Save(tx, sum)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("monthly financial summary recalculated",
		zap.String("farm_id", farmID.String()),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("net_profit", sum.NetProfit.String()),
		zap.Int("version", sum.Version))
	if bumped {
		s.publishMonthly(ctx, *sum)
	}
	return sum, nil
}

// RecalculateResult counts the summaries refreshed by RecalculateAllForDate.
type RecalculateResult struct {
	Farms   int `json:"farms"`
	Daily   int `json:"daily"`
	Monthly int `json:"monthly"`
}

// RecalculateAllForDate refreshes the daily milk summary of day and the monthly
// financial summary of day's month for every active farm. A failing farm does not
// stop the others; their errors are joined.
func (s *Service) RecalculateAllForDate(ctx context.Context, day models.Date) (RecalculateResult, error) {
	res := RecalculateResult{}
	if day.IsZero() {
		return res, models.FieldError("date", "this field is required")
	}
	farmIDs, err := s.activeFarms(ctx)
	if err != nil {
		return res, err
	}
	res.Farms = len(farmIDs)

	var errs []error
	for _, id := range farmIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.RecalculateDailyMilk(ctx, id, day); err != nil {
			errs = append(errs, fmt.Errorf("farm %s daily milk: %w", id, err))
		} else {
			res.Daily++
		}
		if _, err := s.RecalculateMonthlyFinancial(ctx, id, day.Year(), int(day.Month())); err != nil {
			errs = append(errs, fmt.Errorf("farm %s monthly financial: %w", id, err))
		} else {
			res.Monthly++
		}
	}
	s.logger.Info("summaries recalculated",
		zap.String("date", day.String()),
		zap.Int("farms", res.Farms),
		zap.Int("daily", res.Daily),
		zap.Int("monthly", res.Monthly),
		zap.Int("failures", len(errs)))
	return res, errors.Join(errs...)
}

func (s *Service) activeFarms(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.store.Conn(ctx).Model(&models.Farm{}).
		Where("is_deleted = ? AND is_active = ?", false, true).
		Order("name").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load active farms: %w", err)
	}
	return ids, nil
}

func (s *Service) GetDailyMilk(ctx context.Context, farmID uuid.UUID, day models.Date) (*models.DailyMilkSummary, error) {
	db := s.store.Conn(ctx)
	sum, err := gormdb.First[models.DailyMilkSummary](db, "daily milk summary", "farm_id = ? AND date = ?", farmID, day)
	if err != nil {
		return nil, err
	}
	return sum, markDaily(db, sum)
}

func (s *Service) ListDailyMilk(ctx context.Context, q models.ListQuery) (models.Page[models.DailyMilkSummary], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.DailyMilkSummary](db, DailyMilkSpec, q)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		if err := markDaily(db, &page.Items[i]); err != nil {
			return page, err
		}
	}
	return page, nil
}

func (s *Service) GetMonthlyFinancial(ctx context.Context, farmID uuid.UUID, year, month int) (*models.MonthlyFinancialSummary, error) {
	db := s.store.Conn(ctx)
	sum, err := gormdb.First[models.MonthlyFinancialSummary](db, "monthly financial summary",
		"farm_id = ? AND year = ? AND month = ?", farmID, year, month)
	if err != nil {
		return nil, err
	}
	return sum, markMonthly(db, sum)
}

func (s *Service) ListMonthlyFinancial(ctx context.Context, q models.ListQuery) (models.Page[models.MonthlyFinancialSummary], error) {
	db := s.store.Conn(ctx)
	page, err := gormdb.List[models.MonthlyFinancialSummary](db, MonthlyFinancialSpec, q)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		if err := markMonthly(db, &page.Items[i]); err != nil {
			return page, err
		}
	}
	return page, nil
}

// RecalculateDailyMilkByID and RecalculateMonthlyFinancialByID back the admin
// recalculate action, which works on stored rows.
func (s *Service) RecalculateDailyMilkByID(ctx context.Context, id uuid.UUID) error {
	sum, err := gormdb.Get[models.DailyMilkSummary](s.store.Conn(ctx), id, "daily milk summary")
	if err != nil {
		return err
	}
	_, err = s.RecalculateDailyMilk(ctx, sum.FarmID, sum.Date)
	return err
}

func (s *Service) RecalculateMonthlyFinancialByID(ctx context.Context, id uuid.UUID) error {
	sum, err := gormdb.Get[models.MonthlyFinancialSummary](s.store.Conn(ctx), id, "monthly financial summary")
	if err != nil {
		return err
	}
	_, err = s.RecalculateMonthlyFinancial(ctx, sum.FarmID, sum.Year, sum.Month)
	return err
}

func markDaily(db *gorm.DB, sum *models.DailyMilkSummary) error {
	fp, err := gormdb.SourceFingerprint[models.MilkProduction](db, "date = ? AND "+cowFarmExpr, sum.Date, sum.FarmID)
	if err != nil {
		return err
	}
	sum.Stale = !fp.Equal(sum.Fingerprint())
	return nil
}

func markMonthly(db *gorm.DB, sum *models.MonthlyFinancialSummary) error {
	start, end := models.MonthBounds(sum.Year, sum.Month)
	fp, err := gormdb.SourceFingerprint[models.Transaction](db, "farm_id = ? AND date >= ? AND date <= ?", sum.FarmID, start, end)
	if err != nil {
		return err
	}
	sum.Stale = !fp.Equal(sum.Fingerprint())
	return nil
}

func (s *Service) publishDaily(ctx context.Context, sum models.DailyMilkSummary) {
	for _, sink := range s.sinks {
		if err := sink.PutDailyMilk(ctx, sum); err != nil {
			s.logger.Warn("summary sink failed",
				zap.String("sink", sink.Name()),
				zap.String("summary", "daily_milk"),
				zap.String("farm_id", sum.FarmID.String()),
				zap.Error(err))
		}
	}
}

func (s *Service) publishMonthly(ctx context.Context, sum models.MonthlyFinancialSummary) {
	for _, sink := range s.sinks {
		if err := sink.PutMonthlyFinancial(ctx, sum); err != nil {
			s.logger.Warn("summary sink failed",
				zap.String("sink", sink.Name()),
				zap.String("summary", "monthly_financial"),
				zap.String("farm_id", sum.FarmID.String()),
				zap.Error(err))
		}
	}
}
