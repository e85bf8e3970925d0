package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

const (
	cowPeriod   = "cow_id IN (SELECT id FROM cows WHERE farm_id = ?) AND date >= ? AND date <= ?"
	batchPeriod = "batch_id IN (SELECT id FROM chicken_batches WHERE farm_id = ?) AND date >= ? AND date <= ?"
)

// Service computes in-memory statistics for a farm over an inclusive date range.
// Nothing is stored; an empty range yields zero values.
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

func (s *Service) MilkProductionStats(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.MilkStats, error) {
	period, db, _, err := s.scope(ctx, farmID, start, end)
	if err != nil {
		return models.MilkStats{}, err
	}
	rows, err := gormdb.Find[models.MilkProduction](db, cowPeriod, farmID, period.Start, period.End)
	if err != nil {
		return models.MilkStats{}, fmt.Errorf("load milk records: %w", err)
	}
	return milkStats(period, rows), nil
}

func milkStats(period models.Period, rows []models.MilkProduction) models.MilkStats {
	st := models.MilkStats{
		Period:    period.Echo(),
		BySession: map[models.Session]decimal.Decimal{},
		Daily:     []models.MilkDay{},
	}
	cows := map[uuid.UUID]struct{}{}
	days := map[string]*models.MilkDay{}
	for _, r := range rows {
		st.TotalProduction = st.TotalProduction.Add(r.QuantityLiters)
		st.BySession[r.Session] = st.BySession[r.Session].Add(r.QuantityLiters)
		cows[r.CowID] = struct{}{}

		day, ok := days[r.Date.String()]
		if !ok {
			day = &models.MilkDay{Date: r.Date}
			days[r.Date.String()] = day
		}
		switch r.Session {
		case models.SessionMorning:
			day.Morning = day.Morning.Add(r.QuantityLiters)
		case models.SessionAfternoon:
			day.Afternoon = day.Afternoon.Add(r.QuantityLiters)
		case models.SessionEvening:
			day.Evening = day.Evening.Add(r.QuantityLiters)
		}
		day.Total = day.Total.Add(r.QuantityLiters)
	}
	st.TotalRecords = len(rows)
	st.CowsMilked = len(cows)
	st.AveragePerRecord = ratio(st.TotalProduction, st.TotalRecords)
	st.AveragePerCow = ratio(st.TotalProduction, st.CowsMilked)
	st.AveragePerDay = ratio(st.TotalProduction, period.Days())

	for _, d := range days {
		st.Daily = append(st.Daily, *d)
	}
	sort.Slice(st.Daily, func(i, j int) bool { return st.Daily[i].Date.Before(st.Daily[j].Date) })
	return st
}

func (s *Service) EggProductionStats(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.EggStats, error) {
	period, db, _, err := s.scope(ctx, farmID, start, end)
	if err != nil {
		return models.EggStats{}, err
	}
	rows, err := gormdb.Find[models.EggProduction](db, batchPeriod, farmID, period.Start, period.End)
	if err != nil {
		return models.EggStats{}, fmt.Errorf("load egg records: %w", err)
	}
	return eggStats(period, rows), nil
}

func eggStats(period models.Period, rows []models.EggProduction) models.EggStats {
	st := models.EggStats{Period: period.Echo(), TotalRecords: len(rows)}
	for _, r := range rows {
		st.TotalCollected += r.EggsCollected
		st.TotalBroken += r.BrokenEggs
		st.TotalSold += r.EggsSold
		st.TotalConsumed += r.EggsConsumed
		st.TotalUsable += r.UsableEggs()
	}
	if st.TotalCollected > 0 {
		st.BreakageRate = round2(float64(st.TotalBroken) / float64(st.TotalCollected) * 100)
	}
	if st.TotalRecords > 0 {
		st.AverageDailyCollection = round2(float64(st.TotalCollected) / float64(st.TotalRecords))
	}
	return st
}

func (s *Service) FeedConsumptionStats(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.FeedStats, error) {
	period, db, _, err := s.scope(ctx, farmID, start, end)
	if err != nil {
		return models.FeedStats{}, err
	}
	rations, err := gormdb.Find[models.DailyFeedConsumption](db, cowPeriod, farmID, period.Start, period.End)
	if err != nil {
		return models.FeedStats{}, fmt.Errorf("load rations: %w", err)
	}
	chicken, err := gormdb.Find[models.ChickenFeedConsumption](db, batchPeriod, farmID, period.Start, period.End)
	if err != nil {
		return models.FeedStats{}, fmt.Errorf("load chicken feed: %w", err)
	}
	purchases, err := gormdb.Find[models.FeedPurchase](db, "farm_id = ? AND purchase_date >= ? AND purchase_date <= ?",
		farmID, period.Start, period.End)
	if err != nil {
		return models.FeedStats{}, fmt.Errorf("load feed purchases: %w", err)
	}
	return feedStats(period, rations, chicken, purchases), nil
}

func feedStats(period models.Period, rations []models.DailyFeedConsumption, chicken []models.ChickenFeedConsumption, purchases []models.FeedPurchase) models.FeedStats {
	st := models.FeedStats{Period: period.Echo(), TotalRecords: len(rations)}
	for _, r := range rations {
		st.TotalConcentrateKg = st.TotalConcentrateKg.Add(r.TotalConcentrateKg())
		st.TotalMineralKg = st.TotalMineralKg.Add(r.TotalMineralKg())
		st.TotalRoughageKg = st.TotalRoughageKg.Add(r.NapierHaySilageKg)
		st.TotalFeedKg = st.TotalFeedKg.Add(r.TotalFeedKg())
	}
	for _, c := range chicken {
		st.ChickenFeedKg = st.ChickenFeedKg.Add(c.FeedQuantityKg)
		st.ChickenFeedCost = st.ChickenFeedCost.Add(c.FeedCost)
	}
	for _, p := range purchases {
		st.PurchasedCost = st.PurchasedCost.Add(p.ExpenseAmount())
	}
	// one ration row is one cow-day
	st.AveragePerCowPerDay = ratio(st.TotalFeedKg, len(rations))
	return st
}

func (s *Service) FinancialSummary(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.FinancialStats, error) {
	period, db, _, err := s.scope(ctx, farmID, start, end)
	if err != nil {
		return models.FinancialStats{}, err
	}
	txs, err := gormdb.Find[models.Transaction](db, "farm_id = ? AND date >= ? AND date <= ?", farmID, period.Start, period.End)
	if err != nil {
		return models.FinancialStats{}, fmt.Errorf("load transactions: %w", err)
	}
	return financialStats(period, txs), nil
}

func financialStats(period models.Period, txs []models.Transaction) models.FinancialStats {
	st := models.FinancialStats{
		Period:       period.Echo(),
		IncomeBy:     map[models.TransactionCategory]decimal.Decimal{},
		ExpensesBy:   map[models.TransactionCategory]decimal.Decimal{},
		Transactions: len(txs),
	}
	for _, t := range txs {
		switch t.TransactionType {
		case models.TransactionIncome:
			st.TotalIncome = st.TotalIncome.Add(t.Amount)
			st.IncomeBy[t.Category] = st.IncomeBy[t.Category].Add(t.Amount)
		case models.TransactionExpense:
			st.TotalExpenses = st.TotalExpenses.Add(t.Amount)
			st.ExpensesBy[t.Category] = st.ExpensesBy[t.Category].Add(t.Amount)
		}
	}
	st.NetProfit = st.TotalIncome.Sub(st.TotalExpenses)
	st.ProfitMargin = models.ProfitMargin(st.NetProfit, st.TotalIncome)
	return st
}

// Bundle gathers every statistic of the range, as stored on production reports.
func (s *Service) Bundle(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.AnalyticsBundle, error) {
	period, _, farm, err := s.scope(ctx, farmID, start, end)
	if err != nil {
		return models.AnalyticsBundle{}, err
	}
	b := models.AnalyticsBundle{Farm: farm.Name, Period: period.Echo()}
	if b.Milk, err = s.MilkProductionStats(ctx, farmID, start, end); err != nil {
		return b, err
	}
	if b.Eggs, err = s.EggProductionStats(ctx, farmID, start, end); err != nil {
		return b, err
	}
	if b.Feed, err = s.FeedConsumptionStats(ctx, farmID, start, end); err != nil {
		return b, err
	}
	if b.Financial, err = s.FinancialSummary(ctx, farmID, start, end); err != nil {
		return b, err
	}
	return b, nil
}

// scope validates the range and resolves the farm; an unknown farm is ErrNotFound.
func (s *Service) scope(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.Period, *gorm.DB, *models.Farm, error) {
	period, err := models.NewPeriod(start, end)
	if err != nil {
		return period, nil, nil, err
	}
	if farmID == uuid.Nil {
		return period, nil, nil, models.FieldError("farm_id", "this field is required")
	}
	db := s.store.Conn(ctx)
	farm, err := gormdb.Get[models.Farm](db, farmID, "farm")
	if err != nil {
		return period, nil, nil, err
	}
	return period, db, farm, nil
}

func ratio(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
