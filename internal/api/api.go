package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/impact"
	"github.com/gatehouse/gatehouse/internal/logger"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gatehouse/gatehouse/internal/store"
)

// FlagService is the slice of the service layer the handlers need.
// Declared here so handler tests can substitute a stub.
type FlagService interface {
	IsFlagEnabled(ctx context.Context, name, sessionToken string) (bool, error)
	GetFlagStatuses(ctx context.Context, names []string, sessionToken string) (map[string]bool, error)
	GetFlagDebugInfo(ctx context.Context, name, sessionToken string) (*flags.DebugInfo, error)

	ListFlags(ctx context.Context, sessionToken string) ([]flags.FeatureFlag, error)
	GetImpactStats(ctx context.Context, sessionToken string) (impact.Stats, error)
	FindFlagsForUser(ctx context.Context, sessionToken, email string) (*service.UserFlagsReport, error)
	ListWorkspaces(ctx context.Context, sessionToken string) ([]store.Workspace, error)

	CreateFlag(ctx context.Context, sessionToken string, params service.FlagParams) (*flags.FeatureFlag, error)
	UpdateFlag(ctx context.Context, sessionToken string, params service.FlagParams) (*flags.FeatureFlag, error)
	SetFlagEnabled(ctx context.Context, sessionToken, name string, enabled bool) error
	SetFlagRollout(ctx context.Context, sessionToken, name string, percentage int) error
	ArchiveFlag(ctx context.Context, sessionToken, name string) error
}

// API holds the router and its dependencies.
type API struct {
	Router *chi.Mux

	svc    FlagService
	logger *slog.Logger
}

// NewAPI wires the REST surface over the flag service.
func NewAPI(svc FlagService, log *slog.Logger) *API {
	if svc == nil {
		panic("api: flag service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &API{
		Router: chi.NewRouter(),
		svc:    svc,
		logger: log,
	}
	a.configureRoutes()
	return a
}

func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(Metrics)

		// Evaluation surface: any valid session.
		r.Post("/evaluate", a.handleEvaluate)
		r.Post("/evaluate/batch", a.handleBatchEvaluate)

		r.Get("/flags", a.handleListFlags)
		r.Post("/flags", a.handleCreateFlag)
		r.Get("/flags/{name}/debug", a.handleDebugFlag)
		r.Put("/flags/{name}", a.handleUpdateFlag)
		r.Patch("/flags/{name}/state", a.handleSetEnabled)
		r.Patch("/flags/{name}/rollout", a.handleSetRollout)
		r.Delete("/flags/{name}", a.handleArchiveFlag)

		r.Get("/impact", a.handleImpactStats)
		r.Get("/users/{email}/flags", a.handleUserFlags)
		r.Get("/workspaces", a.handleListWorkspaces)
	})
}

// handleHealthCheck confirms HTTP serving capability; deep dependency checks
// live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// writeServiceError maps service-layer errors onto the HTTP contract.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrSessionInvalid):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_SESSION_INVALID",
			Message: "Session token is missing, unknown or expired",
		})

	case errors.Is(err, auth.ErrUnauthorized):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_UNAUTHORIZED",
			Message: "Administrator rights are required",
		})

	case errors.Is(err, store.ErrFlagNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_FLAG_NOT_FOUND",
			Message: "No flag with this name exists",
		})

	case errors.Is(err, store.ErrFlagAlreadyExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_CONFLICT",
			Message: "A flag with this name already exists",
		})

	case errors.Is(err, flags.ErrInvalidPercentage):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_PERCENTAGE",
			Message: "Rollout percentage must be between 0 and 100",
		})

	default:
		log := logger.FromContext(r.Context())
		log.Error("request failed", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Internal server error",
		})
	}
}
