package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/service/breeding"
	"github.com/mamadbah2/dairyfarm/internal/service/farms"
	"github.com/mamadbah2/dairyfarm/internal/service/feeds"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
	"github.com/mamadbah2/dairyfarm/internal/service/health"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
	"github.com/mamadbah2/dairyfarm/internal/service/notifications"
	"github.com/mamadbah2/dairyfarm/internal/service/production"
	"github.com/mamadbah2/dairyfarm/internal/service/reports"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

// Services are the owners of the records the admin acts on. Deletes go through
// them so side effects such as unbooking ledger entries still happen.
type Services struct {
	Farms         *farms.Service
	Livestock     *livestock.Service
	Production    *production.Service
	Feeds         *feeds.Service
	Health        *health.Service
	Breeding      *breeding.Service
	Financial     *financial.Service
	Summary       *summary.Service
	Reports       *reports.Service
	Notifications *notifications.Service
}

// NewDefault registers every resource of the farm.
func NewDefault(store *gormdb.Store, svc Services) *Registry {
	reg := NewRegistry()
	stamps := []string{"computed_at", "version", "source_count", "source_updated_at"}

	Register[models.Farm](reg, store, "farms", farms.FarmSpec,
		[]string{"name", "location", "phone_number", "is_active", "established_date"}, nil,
		svc.Farms.Delete)
	Register[models.Cow](reg, store, "cows", livestock.CowSpec,
		[]string{"tag_number", "name", "breed", "current_stage", "farm_id", "is_active"}, nil,
		svc.Livestock.DeleteCow)
	Register[models.ChickenBatch](reg, store, "chicken-batches", livestock.BatchSpec,
		[]string{"batch_name", "batch_type", "initial_count", "current_count", "date_acquired", "is_active"},
		[]string{"current_count"},
		svc.Livestock.DeleteBatch)
	Register[models.ChickenReduction](reg, store, "chicken-reductions", livestock.ReductionSpec,
		[]string{"batch_id", "date", "count", "reason"},
		[]string{"batch_id", "count", "reason", "date"},
		nil)
	Register[models.MilkProduction](reg, store, "milk", production.MilkSpec,
		[]string{"cow_id", "date", "session", "quantity_liters", "quality_grade"}, nil,
		svc.Production.DeleteMilk)
	Register[models.MilkSale](reg, store, "milk-sales", production.MilkSaleSpec,
		[]string{"date", "quantity_liters", "price_per_liter", "total_amount", "buyer_name"},
		[]string{"total_amount"},
		svc.Production.DeleteMilkSale)
	Register[models.EggProduction](reg, store, "eggs", production.EggSpec,
		[]string{"batch_id", "date", "eggs_collected", "broken_eggs", "eggs_sold"}, nil,
		svc.Production.DeleteEggs)
	Register[models.ChickHatching](reg, store, "hatchings", production.HatchingSpec,
		[]string{"batch_id", "date", "eggs_set_for_hatching", "chicks_hatched", "failed_eggs"},
		[]string{"failed_eggs"},
		nil)
	Register[models.FeedType](reg, store, "feed-types", feeds.FeedTypeSpec,
		[]string{"name", "category", "unit_of_measurement", "is_active"}, nil,
		svc.Feeds.DeleteFeedType)
	Register[models.FeedPurchase](reg, store, "feed-purchases", feeds.PurchaseSpec,
		[]string{"purchase_date", "feed_type_id", "quantity", "total_cost", "remaining_quantity", "is_finished"},
		[]string{"total_cost"},
		svc.Feeds.DeletePurchase).
		WithAction("mark_as_finished", func(ctx context.Context, id uuid.UUID) error {
			_, err := svc.Feeds.MarkFinished(ctx, id)
			return err
		})
	Register[models.DailyFeedConsumption](reg, store, "feed-consumption", feeds.ConsumptionSpec,
		[]string{"cow_id", "date", "dairy_meal_kg", "maize_germ_kg", "napier_hay_silage_kg"}, nil,
		svc.Feeds.DeleteConsumption)
	Register[models.ChickenFeedConsumption](reg, store, "chicken-feed", feeds.ChickenFeedSpec,
		[]string{"batch_id", "date", "feed_quantity_kg", "feed_cost"}, nil,
		svc.Feeds.DeleteChickenFeed)
	Register[models.FeedInventory](reg, store, "feed-inventory", feeds.InventorySpec,
		[]string{"farm_id", "feed_type_id", "current_stock", "minimum_stock_level"}, nil,
		svc.Feeds.DeleteInventory)
	Register[models.Veterinarian](reg, store, "veterinarians", health.VeterinarianSpec,
		[]string{"name", "license_number", "phone_number", "specialization", "is_active"}, nil,
		svc.Health.DeleteVeterinarian)
	Register[models.HealthRecord](reg, store, "health-records", health.RecordSpec,
		[]string{"date_reported", "disease_name", "treatment_status", "follow_up_date", "medicine_cost"}, nil,
		svc.Health.DeleteRecord)
	Register[models.BreedingRecord](reg, store, "breeding-records", breeding.RecordSpec,
		[]string{"cow_id", "breeding_date", "breeding_method", "status", "expected_calving_date"},
		[]string{"expected_calving_date"},
		svc.Breeding.Delete)
	Register[models.HeatDetection](reg, store, "heat-detections", breeding.HeatSpec,
		[]string{"cow_id", "heat_date", "heat_intensity", "bred_this_cycle"}, nil,
		svc.Breeding.DeleteHeat)
	Register[models.Transaction](reg, store, "transactions", financial.TransactionSpec,
		[]string{"date", "transaction_type", "category", "amount", "description"}, nil,
		svc.Financial.Delete)
	Register[models.DailyMilkSummary](reg, store, "daily-milk-summaries", summary.DailyMilkSpec,
		[]string{"farm_id", "date", "total_daily", "cows_milked", "average_per_cow", "version"},
		stamps,
		softDelete[models.DailyMilkSummary](store, "daily milk summary")).
		WithAction("recalculate_summaries", svc.Summary.RecalculateDailyMilkByID)
	Register[models.MonthlyFinancialSummary](reg, store, "monthly-financial-summaries", summary.MonthlyFinancialSpec,
		[]string{"farm_id", "year", "month", "total_income", "total_expenses", "net_profit", "version"},
		stamps,
		softDelete[models.MonthlyFinancialSummary](store, "monthly financial summary")).
		WithAction("recalculate_summaries", svc.Summary.RecalculateMonthlyFinancialByID)
	Register[models.ProductionReport](reg, store, "reports", reports.ReportSpec,
		[]string{"farm_id", "report_type", "start_date", "end_date", "generated_by"},
		[]string{"report_data", "file_path"},
		svc.Reports.Delete)
	Register[models.Notification](reg, store, "notifications", notifications.NotificationSpec,
		[]string{"recipient_id", "title", "priority", "is_read", "created_at"},
		[]string{"read_at"},
		svc.Notifications.Delete).
		WithAction("mark_as_read", func(ctx context.Context, id uuid.UUID) error {
			_, err := svc.Notifications.MarkRead(ctx, id)
			return err
		})
	return reg
}

func softDelete[T any](store *gormdb.Store, name string) Action {
	return func(ctx context.Context, id uuid.UUID) error {
		return gormdb.SoftDelete[T](store.Conn(ctx), id, name)
	}
}
