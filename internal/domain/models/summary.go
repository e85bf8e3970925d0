package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fingerprint identifies the state of the source rows a summary was computed from:
// how many rows the period holds (deleted ones included) and when the newest changed.
type Fingerprint struct {
	Count        int64
	LatestUpdate *time.Time
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Count != other.Count {
		return false
	}
	if f.LatestUpdate == nil || other.LatestUpdate == nil {
		return f.LatestUpdate == nil && other.LatestUpdate == nil
	}
	return f.LatestUpdate.UTC().Truncate(time.Microsecond).Equal(other.LatestUpdate.UTC().Truncate(time.Microsecond))
}

// Staleness is the bookkeeping every stored summary carries.
type Staleness struct {
	ComputedAt      time.Time  `gorm:"not null" json:"computed_at"`
	Version         int        `gorm:"not null" json:"version"`
	SourceCount     int64      `gorm:"not null" json:"source_count"`
	SourceUpdatedAt *time.Time `json:"source_updated_at"`

	Stale bool `gorm:"-" json:"stale"`
}

func (s Staleness) Fingerprint() Fingerprint {
	return Fingerprint{Count: s.SourceCount, LatestUpdate: s.SourceUpdatedAt}
}

// Stamp records a recompute. The version moves only when the figures changed.
func (s *Staleness) Stamp(at time.Time, fp Fingerprint, changed bool) {
	if s.Version == 0 || changed {
		s.Version++
	}
	s.ComputedAt = at
	s.SourceCount = fp.Count
	s.SourceUpdatedAt = fp.LatestUpdate
	s.Stale = false
}

type DailyMilkFigures struct {
	TotalMorning   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_morning"`
	TotalAfternoon decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_afternoon"`
	TotalEvening   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_evening"`
	TotalDaily     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_daily"`
	CowsMilked     int             `gorm:"not null" json:"cows_milked"`
	AveragePerCow  decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"average_per_cow"`
}

func (f DailyMilkFigures) Equal(other DailyMilkFigures) bool {
	return f.TotalMorning.Equal(other.TotalMorning) &&
		f.TotalAfternoon.Equal(other.TotalAfternoon) &&
		f.TotalEvening.Equal(other.TotalEvening) &&
		f.TotalDaily.Equal(other.TotalDaily) &&
		f.CowsMilked == other.CowsMilked &&
		f.AveragePerCow.Equal(other.AveragePerCow)
}

// ComputeDailyMilk totals one day of milking records. Deleted rows must already be excluded.
func ComputeDailyMilk(rows []MilkProduction) DailyMilkFigures {
	f := DailyMilkFigures{}
	cows := make(map[uuid.UUID]struct{})
	for _, r := range rows {
		switch r.Session {
		case SessionMorning:
			f.TotalMorning = f.TotalMorning.Add(r.QuantityLiters)
		case SessionAfternoon:
			f.TotalAfternoon = f.TotalAfternoon.Add(r.QuantityLiters)
		case SessionEvening:
			f.TotalEvening = f.TotalEvening.Add(r.QuantityLiters)
		}
		cows[r.CowID] = struct{}{}
	}
	f.TotalDaily = f.TotalMorning.Add(f.TotalAfternoon).Add(f.TotalEvening)
	f.CowsMilked = len(cows)
	if f.CowsMilked > 0 {
		f.AveragePerCow = f.TotalDaily.Div(decimal.NewFromInt(int64(f.CowsMilked))).Round(2)
	}
	return f
}

type DailyMilkSummary struct {
	Base
	FarmID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_milk_farm_date" json:"farm_id"`
	Date             Date      `gorm:"not null;uniqueIndex:idx_daily_milk_farm_date" json:"date"`
	DailyMilkFigures `gorm:"embedded"`
	Staleness        `gorm:"embedded"`
}

func (DailyMilkSummary) TableName() string { return "daily_milk_summaries" }

type MonthlyFinancialFigures struct {
	TotalIncome          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_income"`
	MilkSalesIncome      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"milk_sales_income"`
	LivestockSalesIncome decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"livestock_sales_income"`
	EggSalesIncome       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"egg_sales_income"`
	OtherIncome          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"other_income"`
	TotalExpenses        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_expenses"`
	FeedExpenses         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"feed_expenses"`
	VeterinaryExpenses   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"veterinary_expenses"`
	BreedingExpenses     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"breeding_expenses"`
	LaborExpenses        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"labor_expenses"`
	OtherExpenses        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"other_expenses"`
	NetProfit            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"net_profit"`
	ProfitMargin         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"profit_margin"`
}

func (f MonthlyFinancialFigures) Equal(other MonthlyFinancialFigures) bool {
	pairs := [][2]decimal.Decimal{
		{f.TotalIncome, other.TotalIncome},
		{f.MilkSalesIncome, other.MilkSalesIncome},
		{f.LivestockSalesIncome, other.LivestockSalesIncome},
		{f.EggSalesIncome, other.EggSalesIncome},
		{f.OtherIncome, other.OtherIncome},
		{f.TotalExpenses, other.TotalExpenses},
		{f.FeedExpenses, other.FeedExpenses},
		{f.VeterinaryExpenses, other.VeterinaryExpenses},
		{f.BreedingExpenses, other.BreedingExpenses},
		{f.LaborExpenses, other.LaborExpenses},
		{f.OtherExpenses, other.OtherExpenses},
		{f.NetProfit, other.NetProfit},
		{f.ProfitMargin, other.ProfitMargin},
	}
	for _, p := range pairs {
		if !p[0].Equal(p[1]) {
			return false
		}
	}
	return true
}

// ComputeMonthlyFinancial rolls a month of transactions into income and expense lines.
// Deleted rows must already be excluded.
func ComputeMonthlyFinancial(txs []Transaction) MonthlyFinancialFigures {
	f := MonthlyFinancialFigures{}
	for _, t := range txs {
		switch t.TransactionType {
		case TransactionIncome:
			f.TotalIncome = f.TotalIncome.Add(t.Amount)
			switch t.Category {
			case CategoryMilkSales:
				f.MilkSalesIncome = f.MilkSalesIncome.Add(t.Amount)
			case CategoryLivestockSales:
				f.LivestockSalesIncome = f.LivestockSalesIncome.Add(t.Amount)
			case CategoryEggSales:
				f.EggSalesIncome = f.EggSalesIncome.Add(t.Amount)
			}
		case TransactionExpense:
			f.TotalExpenses = f.TotalExpenses.Add(t.Amount)
			switch t.Category {
			case CategoryFeedPurchase:
				f.FeedExpenses = f.FeedExpenses.Add(t.Amount)
			case CategoryVeterinary:
				f.VeterinaryExpenses = f.VeterinaryExpenses.Add(t.Amount)
			case CategoryBreeding:
				f.BreedingExpenses = f.BreedingExpenses.Add(t.Amount)
			case CategoryLabor:
				f.LaborExpenses = f.LaborExpenses.Add(t.Amount)
			}
		}
	}
	f.OtherIncome = f.TotalIncome.Sub(f.MilkSalesIncome).Sub(f.LivestockSalesIncome).Sub(f.EggSalesIncome)
	f.OtherExpenses = f.TotalExpenses.Sub(f.FeedExpenses).Sub(f.VeterinaryExpenses).Sub(f.BreedingExpenses).Sub(f.LaborExpenses)
	f.NetProfit = f.TotalIncome.Sub(f.TotalExpenses)
	f.ProfitMargin = ProfitMargin(f.NetProfit, f.TotalIncome)
	return f
}

// ProfitMargin is net as a percentage of income, 0 when there is no income.
func ProfitMargin(net, income decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return net.Div(income).Mul(decimal.NewFromInt(100)).Round(2)
}

type MonthlyFinancialSummary struct {
	Base
	FarmID                  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_fin_farm_period" json:"farm_id"`
	Year                    int       `gorm:"not null;uniqueIndex:idx_monthly_fin_farm_period" json:"year"`
	Month                   int       `gorm:"not null;uniqueIndex:idx_monthly_fin_farm_period" json:"month"`
	MonthlyFinancialFigures `gorm:"embedded"`
	Staleness               `gorm:"embedded"`
}

func (MonthlyFinancialSummary) TableName() string { return "monthly_financial_summaries" }

// MonthBounds returns the first and last day of a calendar month.
func MonthBounds(year, month int) (Date, Date) {
	first := DateOf(year, time.Month(month), 1)
	return first, Date{first.AddDate(0, 1, -1)}
}
