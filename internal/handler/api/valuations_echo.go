package api

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	"FinYield/internal/services/valuation"
	xhttp "FinYield/pkg/http"
	xlogger "FinYield/pkg/logger"
)

// Computer values an ad-hoc request.
type Computer interface {
	Compute(ctx context.Context, req *models.ComputeRequest) (*models.ValuationResult, error)
}

// Limiter throttles ad-hoc computations per client.
type Limiter interface {
	Allow(key string) bool
}

// ValuationsHandler serves stored valuations, ad-hoc computations and the
// latest quotes.
type ValuationsHandler struct {
	logger  *xlogger.Logger
	results domrepo.ResultStore
	quotes  domrepo.QuoteStore
	compute Computer
	limiter Limiter
}

func NewValuationsHandler(logger *xlogger.Logger, results domrepo.ResultStore, quotes domrepo.QuoteStore, compute Computer) *ValuationsHandler {
	return &ValuationsHandler{logger: logger, results: results, quotes: quotes, compute: compute}
}

// WithComputeLimit throttles POST /api/valuations/compute by client IP.
func (h *ValuationsHandler) WithComputeLimit(l Limiter) *ValuationsHandler {
	h.limiter = l
	return h
}

func (h *ValuationsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/valuations", h.List)
	g.GET("/valuations/:id", h.Get)
	g.POST("/valuations/compute", h.Compute)
	g.GET("/quotes/:symbol", h.Quote)
}

func (h *ValuationsHandler) Health(c echo.Context) error {
	if err := h.results.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("result store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *ValuationsHandler) List(c echo.Context) error {
	req := &models.ListValuationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.results.LatestResults(c.Request().Context(), models.InstrumentType(req.Type), req.Limit)
	if err != nil {
		h.logger.Error("list valuations", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load valuations").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ValuationsHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	res, err := h.results.LatestResult(c.Request().Context(), id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no valuation for %s", id))
	}
	if err != nil {
		h.logger.Error("get valuation", xlogger.String("instrument", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load valuation").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ValuationsHandler) Compute(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many compute requests"))
	}
	req := &models.ComputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.compute.Compute(c.Request().Context(), req)
	if err != nil {
		if se, ok := valuation.AsSkip(err); ok {
			return xhttp.AppErrorResponse(c,
				xhttp.UnprocessableError("ERR_"+strings.ToUpper(string(se.Reason)), se.Error()).
					WithParam("stage", se.Stage))
		}
		h.logger.Error("compute valuation", xlogger.String("instrument", req.InstrumentID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ValuationsHandler) Quote(c echo.Context) error {
	sym := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	q, err := h.quotes.GetQuote(c.Request().Context(), sym)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no quote for %s", sym))
	}
	if err != nil {
		h.logger.Error("get quote", xlogger.String("symbol", sym), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not load quote").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, q)
}

var _ xhttp.Handler = (*ValuationsHandler)(nil)
