package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/server/admin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

type base struct {
	logger *zap.Logger
}

func newBase(logger *zap.Logger, area string) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{logger: logger.Named("handlers." + area)}
}

// fail maps a service error onto a status. Unclassified causes are logged and
// hidden from the caller.
func (b base) fail(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "validation failed", Fields: verr.Fields})
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, admin.ErrUnknownResource),
		errors.Is(err, admin.ErrUnknownAction):
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: err.Error()})
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrInsufficientCount):
		c.JSON(http.StatusConflict, ErrorResponse{Detail: err.Error()})
	default:
		b.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal server error"})
	}
}

func (b base) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		b.logger.Debug("malformed request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "malformed JSON: " + err.Error()})
		return false
	}
	return true
}

// bindOptional accepts an empty body and leaves dst zero.
func (b base) bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return b.bind(c, dst)
}

// pathID parses the :id segment; an id that is not a uuid cannot name a record.
func (b base) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "not found"})
		return uuid.Nil, false
	}
	return id, true
}

var reservedParams = map[string]bool{
	"search": true, "q": true, "ordering": true, "limit": true, "offset": true,
}

// listQuery reads paging, search and ordering from the query string and treats
// every other parameter as a filter. Skipped names belong to the route itself.
func listQuery(c *gin.Context, skip ...string) (models.ListQuery, error) {
	q := models.ListQuery{
		Filters:  map[string]string{},
		Search:   firstNonEmpty(c.Query("search"), c.Query("q")),
		Ordering: c.Query("ordering"),
	}
	verr := &models.ValidationError{}
	for _, name := range []string{"limit", "offset"} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			verr.Add(name, "must be a non-negative integer")
			continue
		}
		if name == "limit" {
			q.Limit = n
		} else {
			q.Offset = n
		}
	}
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] || contains(skip, key) || len(values) == 0 {
			continue
		}
		q.Filters[key] = values[len(values)-1]
	}
	return q, verr.Err()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// queryUUID and queryDate collect problems into verr so one response lists them all.
func queryUUID(c *gin.Context, name string, verr *models.ValidationError) uuid.UUID {
	raw := c.Query(name)
	if raw == "" {
		verr.Add(name, "this field is required")
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		verr.Add(name, "must be a valid uuid")
	}
	return id
}

func queryDate(c *gin.Context, name string, verr *models.ValidationError) models.Date {
	raw := c.Query(name)
	if raw == "" {
		verr.Add(name, "this field is required")
		return models.Date{}
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		verr.Add(name, err.Error())
	}
	return d
}

func queryInt(c *gin.Context, name string, verr *models.ValidationError) int {
	raw := c.Query(name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(name, "must be an integer")
	}
	return n
}
