package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
)

// ProjectsStore is the persistence surface of the project endpoints.
type ProjectsStore interface {
	ProjectAccessStore
	Create(ctx context.Context, p *models.Project) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectHandler serves project CRUD.
type ProjectHandler struct {
	projects ProjectsStore
}

func NewProjectHandler(projects ProjectsStore) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List handles GET /projects/: projects the caller owns or collaborates on.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	projects, err := h.projects.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"projects": projects,
	})
}

type createProjectRequest struct {
	Name                      string `json:"name"`
	Description               string `json:"description"`
	ProjectType               string `json:"project_type"`
	IsPublic                  bool   `json:"is_public"`
	AllowAnonymousAnnotations bool   `json:"allow_anonymous_annotations"`
}

// Create handles POST /projects/. New projects start in draft.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req createProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Name == "" {
		errs["name"] = "Project name is required"
	}
	if !models.ValidProjectType(req.ProjectType) {
		errs["project_type"] = "Invalid project type"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:                        uuid.New(),
		CreatedAt:                 now,
		UpdatedAt:                 now,
		Name:                      req.Name,
		Description:               req.Description,
		ProjectType:               req.ProjectType,
		Status:                    models.ProjectStatusDraft,
		OwnerID:                   user.ID,
		IsPublic:                  req.IsPublic,
		AllowAnonymousAnnotations: req.AllowAnonymousAnnotations,
	}
	if err := h.projects.Create(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Project created successfully",
		"project": project,
	})
}

// Get handles GET /projects/{projectID}/.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	id, ok := urlUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, ok := loadProject(w, r, h.projects, id)
	if !ok {
		return
	}

	role, err := projectRole(r.Context(), h.projects, project, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !canViewProject(role, project) {
		// Hidden projects look like they don't exist.
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"project": project,
		"role":    role,
	})
}

type updateProjectRequest struct {
	Name                      *string `json:"name"`
	Description               *string `json:"description"`
	Status                    *string `json:"status"`
	IsPublic                  *bool   `json:"is_public"`
	AllowAnonymousAnnotations *bool   `json:"allow_anonymous_annotations"`
}

// Update handles PUT /projects/{projectID}/. Owner only.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	id, ok := urlUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, ok := loadProject(w, r, h.projects, id)
	if !ok {
		return
	}
	if project.OwnerID != user.ID {
		forbidden(w)
		return
	}

	var req updateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Name != nil && *req.Name == "" {
		errs["name"] = "Project name is required"
	}
	if req.Status != nil && !models.ValidProjectStatus(*req.Status) {
		errs["status"] = "Invalid project status"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.IsPublic != nil {
		project.IsPublic = *req.IsPublic
	}
	if req.AllowAnonymousAnnotations != nil {
		project.AllowAnonymousAnnotations = *req.AllowAnonymousAnnotations
	}

	if err := h.projects.Update(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Project updated successfully",
		"project": project,
	})
}

// Delete handles DELETE /projects/{projectID}/. Owner only; datasets,
// annotations, templates, and invitations go with it via FK cascade.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	id, ok := urlUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, ok := loadProject(w, r, h.projects, id)
	if !ok {
		return
	}
	if project.OwnerID != user.ID {
		forbidden(w)
		return
	}

	if err := h.projects.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Project deleted successfully",
	})
}
