package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/apperrors"
	"github.com/promptwatch/promptwatch-engine/pkg/auth"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/services"
)

// WorkspaceMiddleware wraps a handler with a database connection scoped to the
// authenticated workspace.
type WorkspaceMiddleware func(http.HandlerFunc) http.HandlerFunc

// TemplatesHandler handles template CRUD and version tracking endpoints.
type TemplatesHandler struct {
	templateService services.TemplateService
	versionService  services.VersionService
	logger          *zap.Logger
}

// NewTemplatesHandler creates a new TemplatesHandler.
func NewTemplatesHandler(templateService services.TemplateService, versionService services.VersionService, logger *zap.Logger) *TemplatesHandler {
	return &TemplatesHandler{
		templateService: templateService,
		versionService:  versionService,
		logger:          logger,
	}
}

// RegisterRoutes registers the template handler's routes on the given mux.
func (h *TemplatesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, workspaceMiddleware WorkspaceMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/templates",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.Create)))
	mux.HandleFunc("POST /api/workspaces/{wid}/templates/check",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.Check)))
	mux.HandleFunc("GET /api/workspaces/{wid}/templates",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.List)))
	mux.HandleFunc("GET /api/workspaces/{wid}/templates/{tid}",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.Get)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}/templates/{tid}",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.Delete)))
	mux.HandleFunc("POST /api/workspaces/{wid}/templates/{tid}/versions",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.EnsureVersion)))
	mux.HandleFunc("GET /api/workspaces/{wid}/templates/{tid}/versions",
		authMiddleware.RequireWorkspace("wid")(workspaceMiddleware(h.ListVersions)))
}

// Create handles POST /api/workspaces/{wid}/templates
// Canonicalizes the submitted configuration and creates a template. A
// configuration that already exists as an active template returns 409 with
// the existing template's identity so the caller can reuse it.
func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cfg models.PromptConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if cfg.ModelID == "" || cfg.UserPromptTemplate == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "model_id and user_prompt_template are required")
		return
	}

	template, err := h.templateService.CreateTemplate(r.Context(), &cfg)
	if err != nil {
		var dup *apperrors.DuplicateTemplateError
		if errors.As(err, &dup) {
			if err := WriteJSON(w, http.StatusConflict, map[string]string{
				"error":                  "duplicate_template",
				"existing_template_id":   dup.ExistingID.String(),
				"existing_template_name": dup.ExistingName,
				"config_hash":            dup.ConfigHash,
			}); err != nil {
				h.logger.Error("Failed to write conflict response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to create template", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create template")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, template); err != nil {
		h.logger.Error("Failed to encode template response", zap.Error(err))
	}
}

// Check handles POST /api/workspaces/{wid}/templates/check
// Reports whether the configuration already exists, without creating anything.
func (h *TemplatesHandler) Check(w http.ResponseWriter, r *http.Request) {
	var cfg models.PromptConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	check, err := h.templateService.CheckDuplicate(r.Context(), &cfg)
	if err != nil {
		h.logger.Error("Failed to check for duplicate", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to check for duplicate")
		return
	}

	if err := WriteJSON(w, http.StatusOK, check); err != nil {
		h.logger.Error("Failed to encode check response", zap.Error(err))
	}
}

// List handles GET /api/workspaces/{wid}/templates
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateService.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("Failed to list templates", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list templates")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"templates": templates}); err != nil {
		h.logger.Error("Failed to encode templates response", zap.Error(err))
	}
}

// Get handles GET /api/workspaces/{wid}/templates/{tid}
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}

	template, err := h.templateService.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Template not found")
			return
		}
		h.logger.Error("Failed to get template", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get template")
		return
	}

	if err := WriteJSON(w, http.StatusOK, template); err != nil {
		h.logger.Error("Failed to encode template response", zap.Error(err))
	}
}

// Delete handles DELETE /api/workspaces/{wid}/templates/{tid}
// Soft-deletes the template. Recreating the identical configuration
// afterwards produces a new template id.
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}

	if err := h.templateService.DeleteTemplate(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Template not found")
			return
		}
		h.logger.Error("Failed to delete template", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete template")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EnsureVersion handles POST /api/workspaces/{wid}/templates/{tid}/versions
// Probes the provider for the model's current version key and records the
// sighting. Never fails on an unknown provider; the sighting is recorded
// under the "unknown" key.
func (h *TemplatesHandler) EnsureVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}

	template, err := h.templateService.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Template not found")
			return
		}
		h.logger.Error("Failed to get template", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get template")
		return
	}
	if template.DeletedAt != nil {
		h.writeError(w, http.StatusGone, "template_deleted", "Template has been deleted")
		return
	}

	version, err := h.versionService.EnsureVersion(r.Context(), template)
	if err != nil {
		h.logger.Error("Failed to ensure version", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to ensure version")
		return
	}

	if err := WriteJSON(w, http.StatusOK, version); err != nil {
		h.logger.Error("Failed to encode version response", zap.Error(err))
	}
}

// ListVersions handles GET /api/workspaces/{wid}/templates/{tid}/versions
func (h *TemplatesHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.templateID(w, r)
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list versions", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list versions")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"versions": versions}); err != nil {
		h.logger.Error("Failed to encode versions response", zap.Error(err))
	}
}

func (h *TemplatesHandler) templateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("tid"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_template_id", "Template ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *TemplatesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
