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

// DatasetsStore is the persistence surface of the dataset endpoints.
type DatasetsStore interface {
	Create(ctx context.Context, d *models.Dataset) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error)
	Update(ctx context.Context, d *models.Dataset) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DatasetHandler serves dataset CRUD nested under projects.
type DatasetHandler struct {
	datasets DatasetsStore
	projects ProjectAccessStore
}

func NewDatasetHandler(datasets DatasetsStore, projects ProjectAccessStore) *DatasetHandler {
	return &DatasetHandler{datasets: datasets, projects: projects}
}

// projectFor resolves the enclosing project and the caller's role on it.
func (h *DatasetHandler) projectFor(w http.ResponseWriter, r *http.Request) (*models.Project, string, bool) {
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

// List handles GET /projects/{projectID}/datasets/.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	datasets, err := h.datasets.ListForProject(r.Context(), project.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if datasets == nil {
		datasets = []*models.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"datasets": datasets,
	})
}

type createDatasetRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	FilePath    string          `json:"file_path"`
	FileSize    int64           `json:"file_size"`
	FileType    string          `json:"file_type"`
	Metadata    json.RawMessage `json:"metadata"`
}

// Create handles POST /projects/{projectID}/datasets/. Owner and admin
// collaborators only.
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}

	var req createDatasetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Name == "" {
		errs["name"] = "Dataset name is required"
	}
	if req.FilePath == "" {
		errs["file_path"] = "File path is required"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	now := time.Now().UTC()
	dataset := &models.Dataset{
		ID:               uuid.New(),
		ProjectID:        project.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Name:             req.Name,
		Description:      req.Description,
		FilePath:         req.FilePath,
		FileSize:         req.FileSize,
		FileType:         req.FileType,
		Metadata:         req.Metadata,
		ProcessingStatus: "pending",
	}
	if err := h.datasets.Create(r.Context(), dataset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create dataset")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Dataset created successfully",
		"dataset": dataset,
	})
}

// datasetFor resolves the dataset inside the route's project, verifying the
// nesting so dataset ids can't be guessed across projects.
func (h *DatasetHandler) datasetFor(w http.ResponseWriter, r *http.Request, project *models.Project) (*models.Dataset, bool) {
	id, ok := urlUUID(w, r, "datasetID")
	if !ok {
		return nil, false
	}
	dataset, err := h.datasets.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	if dataset.ProjectID != project.ID {
		writeError(w, http.StatusNotFound, "Dataset not found")
		return nil, false
	}
	return dataset, true
}

// Get handles GET /projects/{projectID}/datasets/{datasetID}/.
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	dataset, ok := h.datasetFor(w, r, project)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"dataset": dataset,
	})
}

type updateDatasetRequest struct {
	Name             *string         `json:"name"`
	Description      *string         `json:"description"`
	Metadata         json.RawMessage `json:"metadata"`
	IsProcessed      *bool           `json:"is_processed"`
	ProcessingStatus *string         `json:"processing_status"`
}

// Update handles PUT /projects/{projectID}/datasets/{datasetID}/.
func (h *DatasetHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}
	dataset, ok := h.datasetFor(w, r, project)
	if !ok {
		return
	}

	var req updateDatasetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"name": "Dataset name is required"})
			return
		}
		dataset.Name = *req.Name
	}
	if req.Description != nil {
		dataset.Description = *req.Description
	}
	if len(req.Metadata) > 0 {
		dataset.Metadata = req.Metadata
	}
	if req.IsProcessed != nil {
		dataset.IsProcessed = *req.IsProcessed
	}
	if req.ProcessingStatus != nil {
		dataset.ProcessingStatus = *req.ProcessingStatus
	}

	if err := h.datasets.Update(r.Context(), dataset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update dataset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Dataset updated successfully",
		"dataset": dataset,
	})
}

// Delete handles DELETE /projects/{projectID}/datasets/{datasetID}/.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, role, ok := h.projectFor(w, r)
	if !ok {
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}
	dataset, ok := h.datasetFor(w, r, project)
	if !ok {
		return
	}

	if err := h.datasets.Delete(r.Context(), dataset.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete dataset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Dataset deleted successfully",
	})
}
