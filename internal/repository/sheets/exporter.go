package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

const (
	DailyMilkRange        = "DailyMilk!A:K"
	MonthlyFinancialRange = "MonthlyFinancial!A:R"
)

var (
	DailyMilkHeader = []interface{}{
		"farm_id", "date", "version", "total_morning", "total_afternoon", "total_evening",
		"total_daily", "cows_milked", "average_per_cow", "source_count", "computed_at",
	}
	MonthlyFinancialHeader = []interface{}{
		"farm_id", "year", "month", "version", "total_income", "milk_sales_income",
		"livestock_sales_income", "egg_sales_income", "other_income", "total_expenses",
		"feed_expenses", "veterinary_expenses", "breeding_expenses", "labor_expenses",
		"other_expenses", "net_profit", "profit_margin", "computed_at",
	}
)

// Exporter appends one row per published summary version, so the spreadsheet
// reads as a log the farm office can pivot on.
type Exporter struct {
	repo Repository
}

func NewExporter(repo Repository) *Exporter {
	return &Exporter{repo: repo}
}

func (e *Exporter) Name() string { return "sheets" }

// EnsureHeaders writes the header rows of tabs that are still empty.
func (e *Exporter) EnsureHeaders(ctx context.Context) error {
	tabs := []struct {
		rng    string
		header []interface{}
	}{
		{DailyMilkRange, DailyMilkHeader},
		{MonthlyFinancialRange, MonthlyFinancialHeader},
	}
	for _, tab := range tabs {
		rows, err := e.repo.ReadRange(ctx, tab.rng)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			continue
		}
		if err := e.repo.AppendRows(ctx, tab.rng, [][]interface{}{tab.header}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	return nil
}

func (e *Exporter) PutDailyMilk(ctx context.Context, s models.DailyMilkSummary) error {
	return e.repo.AppendRows(ctx, DailyMilkRange, [][]interface{}{DailyMilkRow(s)})
}

func (e *Exporter) PutMonthlyFinancial(ctx context.Context, s models.MonthlyFinancialSummary) error {
	return e.repo.AppendRows(ctx, MonthlyFinancialRange, [][]interface{}{MonthlyFinancialRow(s)})
}

// DailyMilkRow renders a summary in DailyMilkHeader order. Amounts are written
// as fixed two-decimal strings and left for the sheet to parse.
func DailyMilkRow(s models.DailyMilkSummary) []interface{} {
	return []interface{}{
		s.FarmID.String(),
		s.Date.String(),
		s.Version,
		s.TotalMorning.StringFixed(2),
		s.TotalAfternoon.StringFixed(2),
		s.TotalEvening.StringFixed(2),
		s.TotalDaily.StringFixed(2),
		s.CowsMilked,
		s.AveragePerCow.StringFixed(2),
		s.SourceCount,
		s.ComputedAt.UTC().Format(time.RFC3339),
	}
}

func MonthlyFinancialRow(s models.MonthlyFinancialSummary) []interface{} {
	return []interface{}{
		s.FarmID.String(),
		s.Year,
		s.Month,
		s.Version,
		s.TotalIncome.StringFixed(2),
		s.MilkSalesIncome.StringFixed(2),
		s.LivestockSalesIncome.StringFixed(2),
		s.EggSalesIncome.StringFixed(2),
		s.OtherIncome.StringFixed(2),
		s.TotalExpenses.StringFixed(2),
		s.FeedExpenses.StringFixed(2),
		s.VeterinaryExpenses.StringFixed(2),
		s.BreedingExpenses.StringFixed(2),
		s.LaborExpenses.StringFixed(2),
		s.OtherExpenses.StringFixed(2),
		s.NetProfit.StringFixed(2),
		s.ProfitMargin.StringFixed(2),
		s.ComputedAt.UTC().Format(time.RFC3339),
	}
}
