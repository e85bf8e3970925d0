package reports

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// renderPDF lays the analytics bundle out as an A4 production report.
func renderPDF(r *models.ProductionReport) ([]byte, error) {
	b := r.ReportData
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("%s production report", b.Farm), true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	label := contentW * 0.6
	value := contentW * 0.4

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, b.Farm, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("%s report, %s", r.ReportType, b.Period), "", 1, "L", false, 0, "")
	if r.GeneratedBy != "" {
		pdf.CellFormat(contentW, 6, "Generated by "+r.GeneratedBy, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section := func(title string) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentW, 7, title, "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	row := func(name, v string) {
		pdf.CellFormat(label, 6, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(value, 6, v, "", 1, "R", false, 0, "")
	}

	section("Milk")
	row("Total production (L)", b.Milk.TotalProduction.StringFixed(2))
	row("Records", fmt.Sprint(b.Milk.TotalRecords))
	row("Cows milked", fmt.Sprint(b.Milk.CowsMilked))
	row("Average per cow (L)", b.Milk.AveragePerCow.StringFixed(2))
	row("Average per day (L)", b.Milk.AveragePerDay.StringFixed(2))
	for _, session := range []models.Session{models.SessionMorning, models.SessionAfternoon, models.SessionEvening} {
		if v, ok := b.Milk.BySession[session]; ok {
			row("  "+string(session), v.StringFixed(2))
		}
	}

	section("Eggs")
	row("Collected", fmt.Sprint(b.Eggs.TotalCollected))
	row("Broken", fmt.Sprint(b.Eggs.TotalBroken))
	row("Usable", fmt.Sprint(b.Eggs.TotalUsable))
	row("Sold", fmt.Sprint(b.Eggs.TotalSold))
	row("Breakage rate (%)", fmt.Sprintf("%.2f", b.Eggs.BreakageRate))

	section("Feed")
	row("Concentrates (kg)", b.Feed.TotalConcentrateKg.StringFixed(2))
	row("Minerals (kg)", b.Feed.TotalMineralKg.StringFixed(2))
	row("Roughage (kg)", b.Feed.TotalRoughageKg.StringFixed(2))
	row("Chicken feed (kg)", b.Feed.ChickenFeedKg.StringFixed(2))
	row("Purchases", b.Feed.PurchasedCost.StringFixed(2))

	section("Finances")
	row("Income", b.Financial.TotalIncome.StringFixed(2))
	for _, line := range sortedLines(b.Financial.IncomeBy) {
		row("  "+line.name, line.amount.StringFixed(2))
	}
	row("Expenses", b.Financial.TotalExpenses.StringFixed(2))
	for _, line := range sortedLines(b.Financial.ExpensesBy) {
		row("  "+line.name, line.amount.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 10)
	row("Net profit", b.Financial.NetProfit.StringFixed(2))
	row("Profit margin (%)", b.Financial.ProfitMargin.StringFixed(2))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type line struct {
	name   string
	amount decimal.Decimal
}

func sortedLines(m map[models.TransactionCategory]decimal.Decimal) []line {
	out := make([]line, 0, len(m))
	for k, v := range m {
		out = append(out, line{name: string(k), amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
