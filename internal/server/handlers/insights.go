package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/analytics"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

// Insights serves the derived figures: cached summaries and on-demand analytics.
type Insights struct {
	base
	summary   *summary.Service
	analytics *analytics.Service
}

func NewInsights(s *summary.Service, a *analytics.Service, logger *zap.Logger) *Insights {
	return &Insights{base: newBase(logger, "insights"), summary: s, analytics: a}
}

func (h *Insights) Mount(api *gin.RouterGroup) {
	sums := api.Group("/summaries")
	sums.GET("/daily-milk", h.dailyMilk)
	sums.POST("/daily-milk/recalculate", h.recalculateDailyMilk)
	sums.GET("/monthly-financial", h.monthlyFinancial)
	sums.POST("/monthly-financial/recalculate", h.recalculateMonthlyFinancial)
	sums.POST("/recalculate-all", h.recalculateAll)

	stats := api.Group("/analytics")
	stats.GET("/milk", stat(h, h.analytics.MilkProductionStats))
	stats.GET("/eggs", stat(h, h.analytics.EggProductionStats))
	stats.GET("/feed", stat(h, h.analytics.FeedConsumptionStats))
	stats.GET("/financial", stat(h, h.analytics.FinancialSummary))
	stats.GET("/bundle", stat(h, h.analytics.Bundle))
}

// dailyMilk returns one summary when farm_id and date are both given, a list otherwise.
func (h *Insights) dailyMilk(c *gin.Context) {
	if c.Query("farm_id") != "" && c.Query("date") != "" {
		verr := &models.ValidationError{}
		farmID := queryUUID(c, "farm_id", verr)
		day := queryDate(c, "date", verr)
		if err := verr.Err(); err != nil {
			h.fail(c, err)
			return
		}
		sum, err := h.summary.GetDailyMilk(c.Request.Context(), farmID, day)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
		return
	}
	q, err := listQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.summary.ListDailyMilk(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Insights) monthlyFinancial(c *gin.Context) {
	if c.Query("farm_id") != "" && c.Query("year") != "" && c.Query("month") != "" {
		verr := &models.ValidationError{}
		farmID := queryUUID(c, "farm_id", verr)
		year := queryInt(c, "year", verr)
		month := queryInt(c, "month", verr)
		if err := verr.Err(); err != nil {
			h.fail(c, err)
			return
		}
		sum, err := h.summary.GetMonthlyFinancial(c.Request.Context(), farmID, year, month)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
		return
	}
	q, err := listQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.summary.ListMonthlyFinancial(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type recalculateRequest struct {
	FarmID uuid.UUID   `json:"farm_id"`
	Date   models.Date `json:"date"`
	Year   int         `json:"year"`
	Month  int         `json:"month"`
}

func (r recalculateRequest) check(needFarm, needDate, needMonth bool) error {
	verr := &models.ValidationError{}
	if needFarm && r.FarmID == uuid.Nil {
		verr.Add("farm_id", "this field is required")
	}
	if needDate && r.Date.IsZero() {
		verr.Add("date", "this field is required")
	}
	if needMonth {
		if r.Year < 1900 {
			verr.Add("year", "must be a four digit year")
		}
		if r.Month < 1 || r.Month > 12 {
			verr.Add("month", "must be between 1 and 12")
		}
	}
	return verr.Err()
}

func (h *Insights) recalculateDailyMilk(c *gin.Context) {
	var req recalculateRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.check(true, true, false); err != nil {
		h.fail(c, err)
		return
	}
	sum, err := h.summary.RecalculateDailyMilk(c.Request.Context(), req.FarmID, req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Insights) recalculateMonthlyFinancial(c *gin.Context) {
	var req recalculateRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.check(true, false, true); err != nil {
		h.fail(c, err)
		return
	}
	sum, err := h.summary.RecalculateMonthlyFinancial(c.Request.Context(), req.FarmID, req.Year, req.Month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Insights) recalculateAll(c *gin.Context) {
	var req recalculateRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.check(false, true, false); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.summary.RecalculateAllForDate(c.Request.Context(), req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// stat serves one analytics query over ?farm_id&start_date&end_date.
func stat[T any](h *Insights, fn func(ctx context.Context, farmID uuid.UUID, start, end models.Date) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		verr := &models.ValidationError{}
		farmID := queryUUID(c, "farm_id", verr)
		start := queryDate(c, "start_date", verr)
		end := queryDate(c, "end_date", verr)
		if err := verr.Err(); err != nil {
			h.fail(c, err)
			return
		}
		out, err := fn(c.Request.Context(), farmID, start, end)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
