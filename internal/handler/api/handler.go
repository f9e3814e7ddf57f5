package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	"FinScout/internal/service/ratelimit"
	"FinScout/internal/services/classify"
	"FinScout/internal/usecase"
	xhttp "FinScout/pkg/http"
	"FinScout/pkg/logger"
)

// Runner triggers background analysis runs. Satisfied by usecase.Research.
type Runner interface {
	RunAsync(ctx context.Context, testMode bool) error
}

// Rater applies star ratings and reports aggregate statistics. Satisfied by
// usecase.Review.
type Rater interface {
	Rate(ctx context.Context, id string, stars int) error
	Statistics(ctx context.Context) (*models.SignalStatistics, error)
}

// Diagnoser reports classifier chain health. Satisfied by classify.Chain.
type Diagnoser interface {
	Diagnostics() models.ClassifierDiagnostics
	QualityCheck(ctx context.Context) classify.QualityReport
}

// Handler serves the ops API on top of the research usecases.
type Handler struct {
	research Runner
	review   Rater
	store    domrepo.SignalStore
	diag     Diagnoser
	rl       *ratelimit.Limiter
	log      *logger.Logger
}

func New(research Runner, review Rater, store domrepo.SignalStore, diag Diagnoser, lgr *logger.Logger) *Handler {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &Handler{
		research: research,
		review:   review,
		store:    store,
		diag:     diag,
		rl:       ratelimit.New(nil),
		log:      lgr,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/signals", h.ListSignals)
	g.GET("/signals/:id", h.GetSignal)
	g.POST("/signals/:id/rating", h.RateSignal)
	g.GET("/stats", h.Stats)
	g.GET("/diagnostics", h.Diagnostics)
	g.POST("/runs", h.TriggerRun)
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Healthz reports process and store health. Plain JSON, real HTTP status,
// so load balancer probes don't have to parse the API envelope.
func (h *Handler) Healthz(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			h.log.Warn("health check failed", logger.Error(err))
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded", Error: err.Error()})
		}
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) ListSignals(c echo.Context) error {
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recs, err := h.store.ListAll(c.Request().Context(), req.Limit)
	if err != nil {
		h.log.Error("list signals", logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("list signals").WithError(err))
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *Handler) GetSignal(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domrepo.ErrSignalNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %s not found", id))
		}
		h.log.Error("get signal", logger.String("id", id), logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("get signal").WithError(err))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *Handler) RateSignal(c echo.Context) error {
	id := c.Param("id")
	req := &models.RateSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.review.Rate(c.Request().Context(), id, req.Rating); err != nil {
		if errors.Is(err, domrepo.ErrSignalNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %s not found", id))
		}
		h.log.Error("rate signal", logger.String("id", id), logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("rate signal").WithError(err))
	}

	rec, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		// rating landed, only the echo back failed
		return xhttp.SuccessResponse(c, map[string]string{"id": id, "status": "rated"})
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.review.Statistics(c.Request().Context())
	if err != nil {
		h.log.Error("signal statistics", logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal statistics").WithError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

type diagnosticsResponse struct {
	Classifier models.ClassifierDiagnostics `json:"classifier"`
	Quality    *classify.QualityReport      `json:"quality,omitempty"`
}

// Diagnostics reports classifier chain counters. quality=true additionally
// grades the chain against the canned headlines, which spends LLM calls, so
// that path is rate limited per caller.
func (h *Handler) Diagnostics(c echo.Context) error {
	if h.diag == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("classifier not configured"))
	}

	out := diagnosticsResponse{Classifier: h.diag.Diagnostics()}
	if c.QueryParam("quality") == "true" {
		if !h.rl.Allow(c.RealIP()+":quality", 2, 0.1) {
			h.log.Warn("quality check rate limited", logger.String("remote", c.RealIP()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("quality check limited to a few per minute"))
		}
		rep := h.diag.QualityCheck(c.Request().Context())
		out.Quality = &rep
	}
	return xhttp.SuccessResponse(c, out)
}

// TriggerRun starts an analysis run in the background. Only one run may be
// in flight at a time.
func (h *Handler) TriggerRun(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":runs", 3, 0.05) {
		h.log.Warn("run trigger rate limited", logger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many run requests"))
	}

	if err := h.research.RunAsync(c.Request().Context(), false); err != nil {
		if errors.Is(err, usecase.ErrRunInFlight) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("an analysis run is already in flight"))
		}
		h.log.Error("trigger run", logger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("trigger run").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"status": "started"})
}
