package api

import (
	"context"
	"errors"
	"net/http"

	"SignalDesk/internal/domain/models"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Engine is the analysis surface the HTTP layer depends on.
type Engine interface {
	Symbol(symbol string) string
	Analyze(ctx context.Context, symbol string, costBasis float64) (*models.Analysis, error)
	Bars(ctx context.Context, symbol string, limit int) (models.PriceSeries, error)
	Invalidate(ctx context.Context, symbol string) error
}

// AnalysisEchoHandler serves the analysis endpoints.
type AnalysisEchoHandler struct {
	logger *xlogger.Logger
	engine Engine
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, engine Engine) *AnalysisEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AnalysisEchoHandler{logger: logger, engine: engine}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/analysis", h.Analysis)
	g.GET("/bars", h.Bars)
	g.DELETE("/analysis/cache", h.Invalidate)
}

func (h *AnalysisEchoHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{Symbol: h.engine.Symbol("")}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.engine.Analyze(c.Request().Context(), req.Symbol, req.CostBasis)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{Symbol: h.engine.Symbol("")}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	series, err := h.engine.Bars(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, series.Bars, int64(series.Len()))
}

func (h *AnalysisEchoHandler) Invalidate(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sym := h.engine.Symbol(req.Symbol)
	if err := h.engine.Invalidate(c.Request().Context(), sym); err != nil {
		h.logger.Error("cache invalidate error", xlogger.String("symbol", sym), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("cache is unavailable").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]string{"symbol": sym, "status": "invalidated"})
}

// toAppError maps engine outcomes onto HTTP errors without leaking causes.
func toAppError(err error) *xhttp.AppError {
	var aerr *models.AnalysisError
	if !errors.As(err, &aerr) {
		aerr = models.Unavailable("", err)
	}
	switch models.Classify(aerr) {
	case models.ErrDataUnavailable:
		return xhttp.NotFoundErrorf("no price data for %s", aerr.Symbol).
			WithCode("ERR_DATA_UNAVAILABLE").
			WithParam("symbol", aerr.Symbol)
	case models.ErrInsufficientData:
		return xhttp.UnprocessableError("not enough history to train a model").
			WithCode("ERR_INSUFFICIENT_DATA").
			WithParams(map[string]interface{}{
				"symbol":   aerr.Symbol,
				"rows":     aerr.Rows,
				"required": aerr.Required,
			})
	default:
		return xhttp.ServiceUnavailableError("analysis is temporarily unavailable").
			WithCode("ERR_ANALYSIS_UNAVAILABLE").
			WithParam("symbol", aerr.Symbol)
	}
}
