package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// handleImpactStats processes GET /api/v1/impact.
func (a *API) handleImpactStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.GetImpactStats(r.Context(), sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, stats)
}

// handleUserFlags processes GET /api/v1/users/{email}/flags. A user that
// does not exist is a 404, not an empty report.
func (a *API) handleUserFlags(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "email")))
	if email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Email is required",
		})
		return
	}

	report, err := a.svc.FindFlagsForUser(r.Context(), sessionToken(r), email)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if report == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_USER_NOT_FOUND",
			Message: "No user with this email exists",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report)
}

// handleListWorkspaces processes GET /api/v1/workspaces.
func (a *API) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := a.svc.ListWorkspaces(r.Context(), sessionToken(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"workspaces": workspaces,
		"count":      len(workspaces),
	})
}
