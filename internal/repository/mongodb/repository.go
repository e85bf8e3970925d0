package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

const (
	dailyMilkCollection = "daily_milk_summaries"
	monthlyCollection   = "monthly_financial_summaries"
)

// Archive keeps every published version of the stored summaries. It is the
// write-once history behind the relational rows, which only hold the latest version.
type Archive struct {
	client *mongo.Client
	dbName string
}

// NewArchive connects to MongoDB and verifies the connection.
func NewArchive(ctx context.Context, uri string, dbName string) (*Archive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	a := &Archive{client: client, dbName: dbName}
	if err := a.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return a, nil
}

func (a *Archive) collection(name string) *mongo.Collection {
	return a.client.Database(a.dbName).Collection(name)
}

func (a *Archive) ensureIndexes(ctx context.Context) error {
	_, err := a.collection(dailyMilkCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "farm_id", Value: 1}, {Key: "date", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", dailyMilkCollection, err)
	}
	_, err = a.collection(monthlyCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "farm_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", monthlyCollection, err)
	}
	return nil
}

func (a *Archive) Name() string { return "mongodb" }

// DailyMilkDoc is the archived form of one daily milk summary version.
type DailyMilkDoc struct {
	FarmID         string               `bson:"farm_id"`
	Date           string               `bson:"date"`
	Version        int                  `bson:"version"`
	TotalMorning   primitive.Decimal128 `bson:"total_morning"`
	TotalAfternoon primitive.Decimal128 `bson:"total_afternoon"`
	TotalEvening   primitive.Decimal128 `bson:"total_evening"`
	TotalDaily     primitive.Decimal128 `bson:"total_daily"`
	CowsMilked     int                  `bson:"cows_milked"`
	AveragePerCow  primitive.Decimal128 `bson:"average_per_cow"`
	SourceCount    int64                `bson:"source_count"`
	ComputedAt     time.Time            `bson:"computed_at"`
}

// MonthlyFinancialDoc is the archived form of one monthly financial summary version.
type MonthlyFinancialDoc struct {
	FarmID        string               `bson:"farm_id"`
	Year          int                  `bson:"year"`
	Month         int                  `bson:"month"`
	Version       int                  `bson:"version"`
	TotalIncome   primitive.Decimal128 `bson:"total_income"`
	TotalExpenses primitive.Decimal128 `bson:"total_expenses"`
	NetProfit     primitive.Decimal128 `bson:"net_profit"`
	ProfitMargin  primitive.Decimal128 `bson:"profit_margin"`
	// Lines holds every income and expense line by its summary field name.
	Lines       map[string]primitive.Decimal128 `bson:"lines"`
	SourceCount int64                           `bson:"source_count"`
	ComputedAt  time.Time                       `bson:"computed_at"`
}

func dec128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal strings always parse; keep the zero value otherwise
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func newDailyMilkDoc(s models.DailyMilkSummary) DailyMilkDoc {
	return DailyMilkDoc{
		FarmID:         s.FarmID.String(),
		Date:           s.Date.String(),
		Version:        s.Version,
		TotalMorning:   dec128(s.TotalMorning),
		TotalAfternoon: dec128(s.TotalAfternoon),
		TotalEvening:   dec128(s.TotalEvening),
		TotalDaily:     dec128(s.TotalDaily),
		CowsMilked:     s.CowsMilked,
		AveragePerCow:  dec128(s.AveragePerCow),
		SourceCount:    s.SourceCount,
		ComputedAt:     s.ComputedAt.UTC(),
	}
}

func newMonthlyFinancialDoc(s models.MonthlyFinancialSummary) MonthlyFinancialDoc {
	return MonthlyFinancialDoc{
		FarmID:        s.FarmID.String(),
		Year:          s.Year,
		Month:         s.Month,
		Version:       s.Version,
		TotalIncome:   dec128(s.TotalIncome),
		TotalExpenses: dec128(s.TotalExpenses),
		NetProfit:     dec128(s.NetProfit),
		ProfitMargin:  dec128(s.ProfitMargin),
		Lines: map[string]primitive.Decimal128{
			"milk_sales_income":      dec128(s.MilkSalesIncome),
			"livestock_sales_income": dec128(s.LivestockSalesIncome),
			"egg_sales_income":       dec128(s.EggSalesIncome),
			"other_income":           dec128(s.OtherIncome),
			"feed_expenses":          dec128(s.FeedExpenses),
			"veterinary_expenses":    dec128(s.VeterinaryExpenses),
			"breeding_expenses":      dec128(s.BreedingExpenses),
			"labor_expenses":         dec128(s.LaborExpenses),
			"other_expenses":         dec128(s.OtherExpenses),
		},
		SourceCount: s.SourceCount,
		ComputedAt:  s.ComputedAt.UTC(),
	}
}

// PutDailyMilk appends the summary version. Archiving the same version twice is a no-op.
func (a *Archive) PutDailyMilk(ctx context.Context, s models.DailyMilkSummary) error {
	_, err := a.collection(dailyMilkCollection).InsertOne(ctx, newDailyMilkDoc(s))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert daily milk summary: %w", err)
	}
	return nil
}

func (a *Archive) PutMonthlyFinancial(ctx context.Context, s models.MonthlyFinancialSummary) error {
	_, err := a.collection(monthlyCollection).InsertOne(ctx, newMonthlyFinancialDoc(s))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert monthly financial summary: %w", err)
	}
	return nil
}

// DailyMilkHistory returns every archived version of a farm's day, oldest first.
func (a *Archive) DailyMilkHistory(ctx context.Context, farmID uuid.UUID, day models.Date) ([]DailyMilkDoc, error) {
	filter := bson.D{{Key: "farm_id", Value: farmID.String()}, {Key: "date", Value: day.String()}}
	cur, err := a.collection(dailyMilkCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find daily milk history: %w", err)
	}
	var docs []DailyMilkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode daily milk history: %w", err)
	}
	return docs, nil
}

// MonthlyFinancialHistory returns every archived version of a farm's month, oldest first.
func (a *Archive) MonthlyFinancialHistory(ctx context.Context, farmID uuid.UUID, year, month int) ([]MonthlyFinancialDoc, error) {
	filter := bson.D{{Key: "farm_id", Value: farmID.String()}, {Key: "year", Value: year}, {Key: "month", Value: month}}
	cur, err := a.collection(monthlyCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find monthly financial history: %w", err)
	}
	var docs []MonthlyFinancialDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode monthly financial history: %w", err)
	}
	return docs, nil
}

// Close closes the MongoDB connection.
func (a *Archive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
