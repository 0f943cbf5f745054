package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/gatehouse/gatehouse/internal/logger"
)

// decodeBody decodes and reports the standard invalid-JSON error. Returns
// false when the handler should stop.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return false
	}
	return true
}

// handleListFlags processes GET /api/v1/flags. The full set is returned
// unpaginated; flag counts are operator-bounded and small.
func (a *API) handleListFlags(w http.ResponseWriter, r *http.Request) {
	all, err := a.svc.ListFlags(r.Context(), sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, FlagListResponse{Flags: all, Count: len(all)})
}

// handleCreateFlag processes POST /api/v1/flags.
func (a *API) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	req.Sanitize()

	flag, err := a.svc.CreateFlag(r.Context(), sessionToken(r), req.Params())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	log := logger.FromContext(r.Context())
	log.Info("flag created", slog.String("flag", flag.Name), slog.Int64("flag_id", flag.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, flag)
}

// handleUpdateFlag processes PUT /api/v1/flags/{name}. The URL is
// authoritative for the name; a name in the body is ignored.
func (a *API) handleUpdateFlag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	req.Name = chi.URLParam(r, "name")
	req.Sanitize()

	flag, err := a.svc.UpdateFlag(r.Context(), sessionToken(r), req.Params())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, flag)
}

// handleSetEnabled processes PATCH /api/v1/flags/{name}/state.
func (a *API) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req SetEnabledRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	name := chi.URLParam(r, "name")
	if err := a.svc.SetFlagEnabled(r.Context(), sessionToken(r), name, *req.Enabled); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"flag": name, "enabled": *req.Enabled})
}

// handleSetRollout processes PATCH /api/v1/flags/{name}/rollout.
func (a *API) handleSetRollout(w http.ResponseWriter, r *http.Request) {
	var req SetRolloutRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	name := chi.URLParam(r, "name")
	if err := a.svc.SetFlagRollout(r.Context(), sessionToken(r), name, *req.Percentage); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"flag": name, "rollout_percentage": *req.Percentage})
}

// handleArchiveFlag processes DELETE /api/v1/flags/{name}.
func (a *API) handleArchiveFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := a.svc.ArchiveFlag(r.Context(), sessionToken(r), name); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.NoContent(w, r)
}
