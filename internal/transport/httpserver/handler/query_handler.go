// Package handler provides HTTP handlers for the query route.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"content-query-service/internal/app/service"
	"content-query-service/internal/domain"
	"content-query-service/internal/transport/httpserver/dto"
	"content-query-service/internal/transport/httpserver/params"
)

// Response headers carrying the pagination totals.
const (
	HeaderTotal      = "X-WP-Total"
	HeaderTotalPages = "X-WP-TotalPages"
)

// QueryHandler handles the query route.
type QueryHandler struct {
	service *service.QueryService
	limits  params.Limits
	logger  *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc *service.QueryService, limits params.Limits, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: svc,
		limits:  limits,
		logger:  logger,
	}
}

// Query handles GET /{prefix}/{namespace}/{route}
func (h *QueryHandler) Query(c *fiber.Ctx) error {
	req := h.request(c)
	ctx := c.UserContext()

	if !h.service.Authorize(ctx, req) {
		h.logger.Debug("query denied by permission gate",
			zap.String("ip", req.RemoteIP),
		)
		return c.Status(fiber.StatusForbidden).JSON(dto.Forbidden())
	}

	resp := h.service.Query(ctx, req)

	items := resp.Items
	if items == nil {
		items = []any{}
	}

	c.Set(HeaderTotal, strconv.FormatInt(resp.Total, 10))
	c.Set(HeaderTotalPages, strconv.Itoa(resp.TotalPages))

	return c.JSON(items)
}

func (h *QueryHandler) request(c *fiber.Ctx) *domain.Request {
	header := http.Header{}
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	return &domain.Request{
		Params:   params.Parse(string(c.Request().URI().QueryString()), h.limits),
		Header:   header,
		RemoteIP: c.IP(),
	}
}
