package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is an inclusive date range.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates the bounds of a range.
func NewPeriod(start, end Date) (Period, error) {
	verr := &ValidationError{}
	if start.IsZero() {
		verr.Add("start_date", "this field is required")
	}
	if end.IsZero() {
		verr.Add("end_date", "this field is required")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		verr.Add("end_date", "must not be before start_date")
	}
	if err := verr.Err(); err != nil {
		return Period{}, err
	}
	return Period{Start: start, End: end}, nil
}

// Echo renders the range the way analytics responses report it.
func (p Period) Echo() string {
	return fmt.Sprintf("%s to %s", p.Start, p.End)
}

// Days is the number of calendar days covered, both ends included.
func (p Period) Days() int {
	return p.Start.DaysUntil(p.End) + 1
}

type MilkStats struct {
	Period           string          `json:"period"`
	TotalProduction  decimal.Decimal `json:"total_production"`
	AveragePerRecord decimal.Decimal `json:"average_per_record"`
	AveragePerCow    decimal.Decimal `json:"average_per_cow"`
	AveragePerDay    decimal.Decimal `json:"average_per_day"`
	TotalRecords     int             `json:"total_records"`
	CowsMilked       int             `json:"cows_milked"`

	BySession map[Session]decimal.Decimal `json:"by_session"`
	Daily     []MilkDay                   `json:"daily_breakdown"`
}

// MilkDay is one day of the milk breakdown, per session.
type MilkDay struct {
	Date      Date            `json:"date"`
	Morning   decimal.Decimal `json:"morning"`
	Afternoon decimal.Decimal `json:"afternoon"`
	Evening   decimal.Decimal `json:"evening"`
	Total     decimal.Decimal `json:"total"`
}

type EggStats struct {
	Period         string  `json:"period"`
	TotalCollected int     `json:"total_collected"`
	TotalBroken    int     `json:"total_broken"`
	TotalSold      int     `json:"total_sold"`
	TotalConsumed  int     `json:"total_consumed"`
	TotalUsable    int     `json:"total_usable"`
	BreakageRate   float64 `json:"breakage_rate"`
	TotalRecords   int     `json:"total_records"`

	// AverageDailyCollection is the mean of eggs_collected over the batch-day records.
	AverageDailyCollection float64 `json:"average_daily_collection"`
}

type FeedStats struct {
	Period              string          `json:"period"`
	TotalConcentrateKg  decimal.Decimal `json:"total_concentrate_kg"`
	TotalMineralKg      decimal.Decimal `json:"total_mineral_kg"`
	TotalRoughageKg     decimal.Decimal `json:"total_roughage_kg"`
	TotalFeedKg         decimal.Decimal `json:"total_feed_kg"`
	ChickenFeedKg       decimal.Decimal `json:"chicken_feed_kg"`
	ChickenFeedCost     decimal.Decimal `json:"chicken_feed_cost"`
	PurchasedCost       decimal.Decimal `json:"purchased_cost"`
	AveragePerCowPerDay decimal.Decimal `json:"average_per_cow_per_day"`
	TotalRecords        int             `json:"total_records"`
}

type FinancialStats struct {
	Period        string                                  `json:"period"`
	TotalIncome   decimal.Decimal                         `json:"total_income"`
	TotalExpenses decimal.Decimal                         `json:"total_expenses"`
	NetProfit     decimal.Decimal                         `json:"net_profit"`
	ProfitMargin  decimal.Decimal                         `json:"profit_margin"`
	IncomeBy      map[TransactionCategory]decimal.Decimal `json:"income_by_category"`
	ExpensesBy    map[TransactionCategory]decimal.Decimal `json:"expenses_by_category"`
	Transactions  int                                     `json:"transactions"`
}

// AnalyticsBundle is the full set of statistics a production report is built from.
type AnalyticsBundle struct {
	Farm      string         `json:"farm"`
	Period    string         `json:"period"`
	Milk      MilkStats      `json:"milk"`
	Eggs      EggStats       `json:"eggs"`
	Feed      FeedStats      `json:"feed"`
	Financial FinancialStats `json:"financial"`
}

type ProductionReport struct {
	Base
	FarmID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"farm_id"`
	ReportType  ReportType      `gorm:"size:10;not null" json:"report_type"`
	StartDate   Date            `gorm:"not null" json:"start_date"`
	EndDate     Date            `gorm:"not null" json:"end_date"`
	ReportData  AnalyticsBundle `gorm:"serializer:json;type:text;not null" json:"report_data"`
	GeneratedBy string          `gorm:"size:100" json:"generated_by"`
	FilePath    string          `gorm:"size:500" json:"file_path"`
}

func (ProductionReport) TableName() string { return "production_reports" }

type ReportRequest struct {
	FarmID      uuid.UUID  `json:"farm_id" validate:"required"`
	ReportType  ReportType `json:"report_type" validate:"required,oneof=daily weekly monthly yearly custom"`
	StartDate   Date       `json:"start_date" validate:"required"`
	EndDate     Date       `json:"end_date" validate:"required"`
	GeneratedBy string     `json:"generated_by" validate:"max=100"`
}

func (in ReportRequest) Validate() error {
	verr := ValidateStruct(in)
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		verr.Add("end_date", "must not be before start_date")
	}
	return verr.Err()
}
