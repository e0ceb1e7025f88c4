package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	models "RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/pricing"
	"RiskPulse/internal/risk"
	"RiskPulse/internal/simulator"
	"RiskPulse/internal/streaming"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
	xlogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/ws"
)

// RiskEchoHandler exposes the risk assessment control surface: pipeline
// lifecycle, assessment reads, on-demand scoring and pricing, and the
// WebSocket subscription endpoint.
type RiskEchoHandler struct {
	logger    *xlogger.Logger
	query     *usecase.AssessmentQuery
	processor *usecase.EventProcessor
	pipeline  *streaming.Pipeline
	engine    *risk.Engine
	pricer    *pricing.Black76
	sim       *simulator.Generator
	store     drepo.AssessmentStore
	hub       *ws.Hub
	interval  time.Duration
}

func NewRiskEchoHandler(
	logger *xlogger.Logger,
	query *usecase.AssessmentQuery,
	processor *usecase.EventProcessor,
	pipeline *streaming.Pipeline,
	engine *risk.Engine,
	pricer *pricing.Black76,
	sim *simulator.Generator,
	store drepo.AssessmentStore,
	hub *ws.Hub,
	interval time.Duration,
) *RiskEchoHandler {
	return &RiskEchoHandler{
		logger:    logger,
		query:     query,
		processor: processor,
		pipeline:  pipeline,
		engine:    engine,
		pricer:    pricer,
		sim:       sim,
		store:     store,
		hub:       hub,
		interval:  interval,
	}
}

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/assessments/latest", h.LatestAssessments)
	g.GET("/assessments/:entity_id", h.EntityHistory)
	g.POST("/assessments", h.Assess)
	g.GET("/pipeline/stats", h.PipelineStats)
	g.POST("/pipeline/start", h.StartPipeline)
	g.POST("/pipeline/stop", h.StopPipeline)
	g.GET("/market/summary", h.MarketSummary)
	g.POST("/pricing/greeks", h.Greeks)
	g.GET("/risk/thresholds", h.Thresholds)
	g.PUT("/risk/thresholds", h.UpdateThresholds)

	e.GET("/ws", h.Subscribe)
}

func (h *RiskEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	storage := "ok"
	if h.store != nil {
		if err := h.store.Health(ctx); err != nil {
			storage = "unavailable"
		}
	} else {
		storage = "disabled"
	}

	stats := h.pipeline.Stats()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":           "ok",
		"storage":          storage,
		"pipeline_running": stats.IsRunning,
		"engine":           stats.Engine,
		"events_processed": stats.EventsProcessed,
		"errors_count":     stats.ErrorsCount,
		"ws_clients":       h.hub.ClientCount(),
	})
}

func (h *RiskEchoHandler) LatestAssessments(c echo.Context) error {
	req := &models.LatestAssessmentsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.query.Latest(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("latest assessments query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *RiskEchoHandler) EntityHistory(c echo.Context) error {
	req := &models.EntityHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Time{})

	res, err := h.query.ByEntity(c.Request().Context(), req.EntityID, from, to, req.Limit)
	if err != nil {
		h.logger.Error("entity history query failed",
			xlogger.String("entity_id", req.EntityID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *RiskEchoHandler) Assess(c echo.Context) error {
	req := &models.AssessRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	a, err := h.processor.ProcessManual(c.Request().Context(), &models.MarketEvent{
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
		Features:   models.FeatureSet(req.Features),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("manual assessment failed",
			xlogger.String("entity_id", req.EntityID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, a)
}

func (h *RiskEchoHandler) PipelineStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Stats())
}

func (h *RiskEchoHandler) StartPipeline(c echo.Context) error {
	if err := h.pipeline.Launch(context.Background(), h.interval); err != nil {
		return xhttp.BadRequestResponse(c, map[string]string{"error": err.Error()})
	}
	h.logger.Info("pipeline started via api")
	return xhttp.SuccessResponse(c, h.pipeline.Stats())
}

func (h *RiskEchoHandler) StopPipeline(c echo.Context) error {
	h.pipeline.Stop()
	return xhttp.SuccessResponse(c, h.pipeline.Stats())
}

func (h *RiskEchoHandler) MarketSummary(c echo.Context) error {
	if h.sim == nil {
		return xhttp.NotFoundResponse(c, map[string]string{"error": "simulator not active"})
	}
	return xhttp.SuccessResponse(c, h.sim.Summary())
}

func (h *RiskEchoHandler) Greeks(c echo.Context) error {
	req := &models.GreeksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	kind := models.OptionCall
	if req.OptionType == "put" {
		kind = models.OptionPut
	}

	greeks, err := h.pricer.PriceAndGreeks(
		req.SpotPrice, req.StrikePrice, req.TimeToExpiry,
		req.Volatility, req.RiskFreeRate, kind,
	)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidInput) {
			return xhttp.BadRequestResponse(c, map[string]string{"error": err.Error()})
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, greeks)
}

func (h *RiskEchoHandler) Thresholds(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.CurrentThresholds())
}

func (h *RiskEchoHandler) UpdateThresholds(c echo.Context) error {
	req := &models.ThresholdsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !(req.Low < req.Medium && req.Medium < req.High) {
		return xhttp.BadRequestResponse(c, map[string]string{
			"error": "thresholds must be strictly increasing",
		})
	}

	h.engine.SetThresholds(risk.Thresholds{Low: req.Low, Medium: req.Medium, High: req.High})
	h.logger.Info("risk thresholds updated",
		xlogger.Any("low", req.Low),
		xlogger.Any("medium", req.Medium),
		xlogger.Any("high", req.High))
	return xhttp.SuccessResponse(c, h.engine.CurrentThresholds())
}

// Subscribe upgrades the connection and attaches it to the broadcast hub.
func (h *RiskEchoHandler) Subscribe(c echo.Context) error {
	return h.hub.ServeHTTP(c.Response(), c.Request())
}
