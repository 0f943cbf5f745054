package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/gatehouse/gatehouse/internal/logger"
)

// handleEvaluate processes POST /api/v1/evaluate.
// A missing flag is not an error: it answers enabled=false like any flag the
// caller is outside of, so clients cannot probe for flag existence.
func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req EvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	enabled, err := a.svc.IsFlagEnabled(r.Context(), req.Flag, sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvaluateResponse{Flag: req.Flag, Enabled: enabled})
}

// handleBatchEvaluate processes POST /api/v1/evaluate/batch. The session is
// resolved once for the whole batch.
func (a *API) handleBatchEvaluate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req BatchEvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	results, err := a.svc.GetFlagStatuses(r.Context(), req.Flags, sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, BatchEvaluateResponse{Results: results})
}

// handleDebugFlag processes GET /api/v1/flags/{name}/debug. Unlike evaluate,
// a missing flag is reported explicitly (exists=false) because this endpoint
// exists for operators diagnosing configuration.
func (a *API) handleDebugFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	info, err := a.svc.GetFlagDebugInfo(r.Context(), name, sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, info)
}
