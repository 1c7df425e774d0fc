package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

// TemplatesStore is the persistence surface of the template endpoints.
type TemplatesStore interface {
	Create(ctx context.Context, t *models.AnnotationTemplate) error
	ByID(ctx context.Context, id uuid.UUID) (*models.AnnotationTemplate, error)
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]*models.AnnotationTemplate, error)
	Update(ctx context.Context, t *models.AnnotationTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TemplateHandler serves annotation-template CRUD nested under projects.
type TemplateHandler struct {
	templates TemplatesStore
	projects  ProjectAccessStore
}

func NewTemplateHandler(templates TemplatesStore, projects ProjectAccessStore) *TemplateHandler {
	return &TemplateHandler{templates: templates, projects: projects}
}

func (h *TemplateHandler) projectFor(w http.ResponseWriter, r *http.Request) (*models.Project, string, bool) {
	user, _ := middleware.UserFrom(r.Context())
	id, ok := urlUUID(w, r, "projectID")
	if !ok {
		return nil, "", false
	}
	project, ok := loadProject(w, r, h.projects, id)
	if !ok {
		return nil, "", false
	}
	role, err := projectRole(r.Context(), h.projects, project, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return nil, "", false
	}
	return project, role, true
}

func (h *TemplateHandler) templateFor(w http.ResponseWriter, r *http.Request, project *models.Project) (*models.AnnotationTemplate, bool) {
	id, ok := urlUUID(w, r, "templateID")
	if !ok {
		return nil, false
	}
	template, err := h.templates.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	if template.ProjectID != project.ID {
		writeError(w, http.StatusNotFound, "Template not found")
		return nil, false
	}
	return template, true
}

// List handles GET /projects/{projectID}/templates/.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	templates, err := h.templates.ListForProject(r.Context(), project.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if templates == nil {
		templates = []*models.AnnotationTemplate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"templates": templates,
	})
}

type createTemplateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	IsDefault   bool            `json:"is_default"`
	IsRequired  bool            `json:"is_required"`
}

// Create handles POST /projects/{projectID}/templates/.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}

	var req createTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Name == "" {
		errs["name"] = "Template name is required"
	}
	if len(req.Schema) == 0 || !json.Valid(req.Schema) {
		errs["schema"] = "Template schema must be a valid JSON document"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	now := time.Now().UTC()
	template := &models.AnnotationTemplate{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Name:        req.Name,
		Description: req.Description,
		Schema:      req.Schema,
		IsDefault:   req.IsDefault,
		IsRequired:  req.IsRequired,
	}
	if err := h.templates.Create(r.Context(), template); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Template created successfully",
		"template": template,
	})
}

// Get handles GET /projects/{projectID}/templates/{templateID}/.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	template, ok := h.templateFor(w, r, project)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"template": template,
	})
}

type updateTemplateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	IsDefault   *bool           `json:"is_default"`
	IsRequired  *bool           `json:"is_required"`
}

// Update handles PUT /projects/{projectID}/templates/{templateID}/.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}
	template, ok := h.templateFor(w, r, project)
	if !ok {
		return
	}

	var req updateTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"name": "Template name is required"})
			return
		}
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if len(req.Schema) > 0 {
		if !json.Valid(req.Schema) {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"schema": "Template schema must be a valid JSON document"})
			return
		}
		template.Schema = req.Schema
	}
	if req.IsDefault != nil {
		template.IsDefault = *req.IsDefault
	}
	if req.IsRequired != nil {
		template.IsRequired = *req.IsRequired
	}

	if err := h.templates.Update(r.Context(), template); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Template updated successfully",
		"template": template,
	})
}

// Delete handles DELETE /projects/{projectID}/templates/{templateID}/.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}
	template, ok := h.templateFor(w, r, project)
	if !ok {
		return
	}

	if err := h.templates.Delete(r.Context(), template.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Template deleted successfully",
	})
}
