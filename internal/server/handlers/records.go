package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/breeding"
	"github.com/mamadbah2/dairyfarm/internal/service/farms"
	"github.com/mamadbah2/dairyfarm/internal/service/feeds"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
	"github.com/mamadbah2/dairyfarm/internal/service/health"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
	"github.com/mamadbah2/dairyfarm/internal/service/production"
)

// Records serves the day-to-day farm records.
type Records struct {
	base
	farms      *farms.Service
	livestock  *livestock.Service
	production *production.Service
	feeds      *feeds.Service
	health     *health.Service
	breeding   *breeding.Service
	financial  *financial.Service
}

func NewRecords(f *farms.Service, l *livestock.Service, p *production.Service, fd *feeds.Service,
	h *health.Service, b *breeding.Service, fin *financial.Service, logger *zap.Logger) *Records {
	return &Records{
		base:       newBase(logger, "records"),
		farms:      f,
		livestock:  l,
		production: p,
		feeds:      fd,
		health:     h,
		breeding:   b,
		financial:  fin,
	}
}

func (h *Records) Mount(api *gin.RouterGroup) {
	crud[models.Farm, models.FarmInput]{base: h.base,
		create: h.farms.Create, get: h.farms.Get, list: h.farms.List, update: h.farms.Update, remove: h.farms.Delete,
	}.mount(api.Group("/farms"))

	crud[models.Cow, models.CowInput]{base: h.base,
		create: h.livestock.CreateCow, get: h.livestock.GetCow, list: h.livestock.ListCows,
		update: h.livestock.UpdateCow, remove: h.livestock.DeleteCow,
	}.mount(api.Group("/cows"))

	batches := api.Group("/chicken-batches")
	crud[models.ChickenBatch, models.ChickenBatchInput]{base: h.base,
		create: h.livestock.CreateBatch, get: h.livestock.GetBatch, list: h.livestock.ListBatches,
		update: h.livestock.UpdateBatch, remove: h.livestock.DeleteBatch,
	}.mount(batches)
	batches.POST("/:id/reductions", h.reduceBatch)
	batches.GET("/:id/reductions", h.listReductions)

	crud[models.MilkProduction, models.MilkProductionInput]{base: h.base,
		create: h.production.CreateMilk, get: h.production.GetMilk, list: h.production.ListMilk,
		update: h.production.UpdateMilk, remove: h.production.DeleteMilk,
	}.mount(api.Group("/milk"))
	crud[models.MilkSale, models.MilkSaleInput]{base: h.base,
		create: h.production.CreateMilkSale, get: h.production.GetMilkSale, list: h.production.ListMilkSales,
		remove: h.production.DeleteMilkSale,
	}.mount(api.Group("/milk-sales"))
	crud[models.EggProduction, models.EggProductionInput]{base: h.base,
		create: h.production.CreateEggs, get: h.production.GetEggs, list: h.production.ListEggs,
		update: h.production.UpdateEggs, remove: h.production.DeleteEggs,
	}.mount(api.Group("/eggs"))
	crud[models.ChickHatching, models.HatchingInput]{base: h.base,
		create: h.production.RecordHatching, get: h.production.GetHatching, list: h.production.ListHatchings,
	}.mount(api.Group("/hatchings"))

	crud[models.FeedType, models.FeedTypeInput]{base: h.base,
		create: h.feeds.CreateFeedType, get: h.feeds.GetFeedType, list: h.feeds.ListFeedTypes,
		update: h.feeds.UpdateFeedType, remove: h.feeds.DeleteFeedType,
	}.mount(api.Group("/feed-types"))
	purchases := api.Group("/feed-purchases")
	crud[models.FeedPurchase, models.FeedPurchaseInput]{base: h.base,
		create: h.feeds.CreatePurchase, get: h.feeds.GetPurchase, list: h.feeds.ListPurchases,
		update: h.feeds.UpdatePurchase, remove: h.feeds.DeletePurchase,
	}.mount(purchases)
	purchases.POST("/:id/finish", h.finishPurchase)
	crud[models.DailyFeedConsumption, models.DailyFeedConsumptionInput]{base: h.base,
		create: h.feeds.CreateConsumption, get: h.feeds.GetConsumption, list: h.feeds.ListConsumption,
		update: h.feeds.UpdateConsumption, remove: h.feeds.DeleteConsumption,
	}.mount(api.Group("/feed-consumption"))
	crud[models.ChickenFeedConsumption, models.ChickenFeedConsumptionInput]{base: h.base,
		create: h.feeds.CreateChickenFeed, get: h.feeds.GetChickenFeed, list: h.feeds.ListChickenFeed,
		update: h.feeds.UpdateChickenFeed, remove: h.feeds.DeleteChickenFeed,
	}.mount(api.Group("/chicken-feed"))
	crud[models.FeedInventory, models.FeedInventoryInput]{base: h.base,
		create: h.feeds.CreateInventory, get: h.feeds.GetInventory, list: h.feeds.ListInventory,
		update: h.feeds.UpdateInventory, remove: h.feeds.DeleteInventory,
	}.mount(api.Group("/feed-inventory"))

	crud[models.Veterinarian, models.VeterinarianInput]{base: h.base,
		create: h.health.CreateVeterinarian, get: h.health.GetVeterinarian, list: h.health.ListVeterinarians,
		update: h.health.UpdateVeterinarian, remove: h.health.DeleteVeterinarian,
	}.mount(api.Group("/veterinarians"))
	crud[models.HealthRecord, models.HealthRecordInput]{base: h.base,
		create: h.health.CreateRecord, get: h.health.GetRecord, list: h.health.ListRecords,
		update: h.health.UpdateRecord, remove: h.health.DeleteRecord,
	}.mount(api.Group("/health-records"))

	breedingRecords := api.Group("/breeding-records")
	crud[models.BreedingRecord, models.BreedingRecordInput]{base: h.base,
		create: h.breeding.Create, get: h.breeding.Get, list: h.breeding.List, remove: h.breeding.Delete,
	}.mount(breedingRecords)
	breedingRecords.POST("/:id/confirm-pregnancy", h.confirmPregnancy)
	breedingRecords.POST("/:id/not-pregnant", h.markNotPregnant)
	breedingRecords.POST("/:id/calving", h.recordCalving)
	crud[models.HeatDetection, models.HeatDetectionInput]{base: h.base,
		create: h.breeding.CreateHeat, get: h.breeding.GetHeat, list: h.breeding.ListHeats,
		update: h.breeding.UpdateHeat, remove: h.breeding.DeleteHeat,
	}.mount(api.Group("/heat-detections"))

	crud[models.Transaction, models.TransactionInput]{base: h.base,
		create: h.financial.Create, get: h.financial.Get, list: h.financial.List,
		update: h.financial.Update, remove: h.financial.Delete,
	}.mount(api.Group("/transactions"))
}

func (h *Records) reduceBatch(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in models.ReductionInput
	if !h.bind(c, &in) {
		return
	}
	reduction, err := h.livestock.ReduceBatch(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, reduction)
}

func (h *Records) listReductions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	q, err := listQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.livestock.ListReductions(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Records) finishPurchase(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	purchase, err := h.feeds.MarkFinished(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (h *Records) confirmPregnancy(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in models.PregnancyConfirmationInput
	if !h.bindOptional(c, &in) {
		return
	}
	rec, err := h.breeding.ConfirmPregnancy(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Records) markNotPregnant(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in models.PregnancyConfirmationInput
	if !h.bindOptional(c, &in) {
		return
	}
	rec, err := h.breeding.MarkNotPregnant(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Records) recordCalving(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in models.CalvingInput
	if !h.bindOptional(c, &in) {
		return
	}
	rec, err := h.breeding.RecordCalving(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
