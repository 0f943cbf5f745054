// Package api implements the REST surface of gatehouse. It handles HTTP
// routing, request decoding, validation, and response formatting; all flag
// semantics live in the service layer.
package api

import (
	"strings"

	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/service"
)

// EvaluateRequest asks for the decision of a single flag for the caller.
type EvaluateRequest struct {
	Flag string `json:"flag"`
}

// Sanitize cleans up input data by trimming whitespace and normalizing case.
func (r *EvaluateRequest) Sanitize() {
	r.Flag = strings.ToLower(strings.TrimSpace(r.Flag))
}

// Validate returns a structured error when the request is unusable.
func (r *EvaluateRequest) Validate() *ErrorResponse {
	if r.Flag == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Flag is required",
		}
	}
	return nil
}

// EvaluateResponse is the answer to a single evaluation.
type EvaluateResponse struct {
	Flag    string `json:"flag"`
	Enabled bool   `json:"enabled"`
}

// BatchEvaluateRequest asks for the decisions of several flags at once.
type BatchEvaluateRequest struct {
	Flags []string `json:"flags"`
}

func (r *BatchEvaluateRequest) Sanitize() {
	for i, name := range r.Flags {
		r.Flags[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

func (r *BatchEvaluateRequest) Validate() *ErrorResponse {
	if len(r.Flags) == 0 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "At least one flag is required",
		}
	}
	// Guard against abusive payloads; clients never need hundreds of flags.
	if len(r.Flags) > 100 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "At most 100 flags per request",
		}
	}
	for _, name := range r.Flags {
		if name == "" {
			return &ErrorResponse{
				Code:    "ERR_INVALID_INPUT",
				Message: "Flag names must be non-empty",
			}
		}
	}
	return nil
}

// BatchEvaluateResponse maps each requested flag to its decision.
type BatchEvaluateResponse struct {
	Results map[string]bool `json:"results"`
}

// FlagRequest defines the payload for creating or replacing a flag. For
// creation the name comes from the body; for updates it comes from the URL.
type FlagRequest struct {
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	Enabled             bool     `json:"enabled"`
	RolloutPercentage   *int     `json:"rollout_percentage,omitempty"`
	AllowedUserIDs      []string `json:"allowed_user_ids,omitempty"`
	AllowedWorkspaceIDs []string `json:"allowed_workspace_ids,omitempty"`
	AllowedDomains      []string `json:"allowed_domains,omitempty"`
}

func (r *FlagRequest) Sanitize() {
	r.Name = strings.ToLower(strings.TrimSpace(r.Name))
	r.Description = strings.TrimSpace(r.Description)
	for i, d := range r.AllowedDomains {
		r.AllowedDomains[i] = strings.ToLower(strings.TrimSpace(d))
	}
}

// Params converts the DTO to the service-layer parameter struct.
func (r *FlagRequest) Params() service.FlagParams {
	return service.FlagParams{
		Name:                r.Name,
		Description:         r.Description,
		Enabled:             r.Enabled,
		RolloutPercentage:   r.RolloutPercentage,
		AllowedUserIDs:      r.AllowedUserIDs,
		AllowedWorkspaceIDs: r.AllowedWorkspaceIDs,
		AllowedDomains:      r.AllowedDomains,
	}
}

// SetEnabledRequest defines the payload for the master-switch patch.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (r *SetEnabledRequest) Validate() *ErrorResponse {
	if r.Enabled == nil {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Enabled is required",
		}
	}
	return nil
}

// SetRolloutRequest defines the payload for the rollout patch.
type SetRolloutRequest struct {
	Percentage *int `json:"percentage"`
}

func (r *SetRolloutRequest) Validate() *ErrorResponse {
	if r.Percentage == nil {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Percentage is required",
		}
	}
	return nil
}

// FlagListResponse wraps the full flag set for the admin console.
type FlagListResponse struct {
	Flags []flags.FeatureFlag `json:"flags"`
	Count int                 `json:"count"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_FLAG_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}
