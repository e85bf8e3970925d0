package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/reports"
)

type Reports struct {
	base
	svc *reports.Service
}

func NewReports(svc *reports.Service, logger *zap.Logger) *Reports {
	return &Reports{base: newBase(logger, "reports"), svc: svc}
}

func (h *Reports) Mount(api *gin.RouterGroup) {
	g := api.Group("/reports")
	crud[models.ProductionReport, models.ReportRequest]{base: h.base,
		create: h.svc.Generate, get: h.svc.Get, list: h.svc.List, remove: h.svc.Delete,
	}.mount(g)
	g.GET("/:id/file", h.file)
}

// file streams the stored PDF.
func (h *Reports) file(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	report, rc, err := h.svc.Open(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	name := fmt.Sprintf("%s-report-%s-%s.pdf", report.ReportType, report.StartDate, report.EndDate)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warn("stream report file", zap.String("report_id", id.String()), zap.Error(err))
	}
}
