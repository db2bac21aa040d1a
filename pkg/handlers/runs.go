package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/auth"
	"github.com/promptwatch/promptwatch-engine/pkg/llm"
	"github.com/promptwatch/promptwatch-engine/pkg/services"
)

// RunsHandler handles run execution and result retrieval endpoints.
type RunsHandler struct {
	runService services.RunService
	logger     *zap.Logger
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(runService services.RunService, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{runService: runService, logger: logger}
}

// RegisterRoutes registers the runs handler's routes on the given mux.
func (h *RunsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, workspaceMiddleware WorkspaceMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/templates/{tid}/run",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.Run)))
	mux.HandleFunc("GET /api/workspaces/{wid}/templates/{tid}/results",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.ListResults)))
	mux.HandleFunc("GET /api/workspaces/{wid}/results/{rid}",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.GetResult)))
}

type runRequestBody struct {
	RenderedPrompt string `json:"rendered_prompt"`
	Country        string `json:"country,omitempty"`
	GroundingMode  string `json:"grounding_mode,omitempty"`
}

// Run handles POST /api/workspaces/{wid}/templates/{tid}/run
// Executes a rendered prompt against the template's provider. An enforcement
// failure is a normal 200 response with enforcement_failed set; only provider
// call failures are errors, and those write no result row.
func (h *RunsHandler) Run(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("tid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_template_id", "Template ID must be a valid UUID")
		return
	}

	var body runRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if body.RenderedPrompt == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "rendered_prompt is required")
		return
	}

	result, err := h.runService.Run(r.Context(), &services.RunRequest{
		TemplateID:     templateID,
		RenderedPrompt: body.RenderedPrompt,
		Country:        body.Country,
		GroundingMode:  body.GroundingMode,
	})
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode result response", zap.Error(err))
	}
}

// GetResult handles GET /api/workspaces/{wid}/results/{rid}
func (h *RunsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("rid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_result_id", "Result ID must be a valid UUID")
		return
	}

	result, err := h.runService.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Result not found")
			return
		}
		h.logger.Error("Failed to get result", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get result")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode result response", zap.Error(err))
	}
}

// ListResults handles GET /api/workspaces/{wid}/templates/{tid}/results
// Accepts an optional ?limit= query parameter.
func (h *RunsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("tid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_template_id", "Template ID must be a valid UUID")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
	}

	results, err := h.runService.ListResults(r.Context(), templateID, limit)
	if err != nil {
		h.logger.Error("Failed to list results", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list results")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"results": results}); err != nil {
		h.logger.Error("Failed to encode results response", zap.Error(err))
	}
}

// writeRunError maps run failures onto HTTP statuses. Provider failures come
// back as 502/504 so callers can distinguish them from their own bad input.
func (h *RunsHandler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Template not found")
	case errors.Is(err, apperrors.ErrTemplateDeleted):
		h.writeError(w, http.StatusGone, "template_deleted", "Template has been deleted")
	default:
		var provErr *llm.Error
		if errors.As(err, &provErr) {
			status := http.StatusBadGateway
			code := "provider_error"
			switch provErr.Type {
			case llm.ErrorTypeTimeout:
				status = http.StatusGatewayTimeout
			case llm.ErrorTypeNotConfigured:
				// Template is fine; this server just has no credentials for
				// its provider family.
				status = http.StatusServiceUnavailable
				code = "provider_not_configured"
			}
			h.logger.Warn("Provider call failed",
				zap.String("provider", provErr.Provider),
				zap.String("error_type", string(provErr.Type)),
				zap.Error(err))
			h.writeError(w, status, code, provErr.Message)
			return
		}
		h.logger.Error("Run failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Run failed")
	}
}

func (h *RunsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
