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

// AnnotationsStore is the persistence surface of the annotation endpoints.
type AnnotationsStore interface {
	Create(ctx context.Context, a *models.Annotation) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Annotation, error)
	ListForDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Annotation, error)
	Update(ctx context.Context, a *models.Annotation) error
	Verify(ctx context.Context, id, verifierID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AnnotationHandler serves annotation CRUD and verification nested under
// project datasets.
type AnnotationHandler struct {
	annotations AnnotationsStore
	datasets    DatasetsStore
	projects    ProjectAccessStore
}

func NewAnnotationHandler(annotations AnnotationsStore, datasets DatasetsStore, projects ProjectAccessStore) *AnnotationHandler {
	return &AnnotationHandler{annotations: annotations, datasets: datasets, projects: projects}
}

// scopeFor resolves the project, the caller's role, and the dataset from the
// route, verifying the dataset belongs to the project.
func (h *AnnotationHandler) scopeFor(w http.ResponseWriter, r *http.Request) (*models.Project, string, *models.Dataset, bool) {
	user, _ := middleware.UserFrom(r.Context())

	projectID, ok := urlUUID(w, r, "projectID")
	if !ok {
		return nil, "", nil, false
	}
	project, ok := loadProject(w, r, h.projects, projectID)
	if !ok {
		return nil, "", nil, false
	}
	role, err := projectRole(r.Context(), h.projects, project, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return nil, "", nil, false
	}

	datasetID, ok := urlUUID(w, r, "datasetID")
	if !ok {
		return nil, "", nil, false
	}
	dataset, err := h.datasets.ByID(r.Context(), datasetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Dataset not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return nil, "", nil, false
	}
	if dataset.ProjectID != project.ID {
		writeError(w, http.StatusNotFound, "Dataset not found")
		return nil, "", nil, false
	}
	return project, role, dataset, true
}

// annotationFor resolves the annotation inside the route's dataset.
func (h *AnnotationHandler) annotationFor(w http.ResponseWriter, r *http.Request, dataset *models.Dataset) (*models.Annotation, bool) {
	id, ok := urlUUID(w, r, "annotationID")
	if !ok {
		return nil, false
	}
	annotation, err := h.annotations.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Annotation not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	if annotation.DatasetID != dataset.ID {
		writeError(w, http.StatusNotFound, "Annotation not found")
		return nil, false
	}
	return annotation, true
}

// List handles GET .../datasets/{datasetID}/annotations/.
func (h *AnnotationHandler) List(w http.ResponseWriter, r *http.Request) {
	project, role, dataset, ok := h.scopeFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	annotations, err := h.annotations.ListForDataset(r.Context(), dataset.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if annotations == nil {
		annotations = []*models.Annotation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"annotations": annotations,
	})
}

type createAnnotationRequest struct {
	AnnotationType  string          `json:"annotation_type"`
	Content         json.RawMessage `json:"content"`
	ConfidenceScore float64         `json:"confidence_score"`
}

// Create handles POST .../annotations/. Owner, admins, and annotators; one
// annotation per (annotator, type) on a dataset.
func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	project, role, dataset, ok := h.scopeFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canAnnotateProject(role) {
		forbidden(w)
		return
	}

	var req createAnnotationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if !models.ValidAnnotationType(req.AnnotationType) {
		errs["annotation_type"] = "Invalid annotation type"
	}
	if len(req.Content) == 0 {
		errs["content"] = "Annotation content is required"
	}
	if req.ConfidenceScore < 0 || req.ConfidenceScore > 1 {
		errs["confidence_score"] = "Confidence score must be between 0 and 1"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	now := time.Now().UTC()
	annotation := &models.Annotation{
		ID:              uuid.New(),
		DatasetID:       dataset.ID,
		AnnotatorID:     user.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		AnnotationType:  req.AnnotationType,
		Content:         req.Content,
		ConfidenceScore: req.ConfidenceScore,
	}
	if err := h.annotations.Create(r.Context(), annotation); err != nil {
		if errors.Is(err, store.ErrDuplicateAnnotation) {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{
				"annotation_type": "You already have an annotation of this type on this dataset",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create annotation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "Annotation created successfully",
		"annotation": annotation,
	})
}

type updateAnnotationRequest struct {
	Content         json.RawMessage `json:"content"`
	ConfidenceScore *float64        `json:"confidence_score"`
}

// Update handles PUT .../annotations/{annotationID}/. Only the author may
// edit; editing clears nothing — verification state is left to Verify.
func (h *AnnotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	project, role, dataset, ok := h.scopeFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	annotation, ok := h.annotationFor(w, r, dataset)
	if !ok {
		return
	}
	if annotation.AnnotatorID != user.ID {
		forbidden(w)
		return
	}

	var req updateAnnotationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Content) > 0 {
		annotation.Content = req.Content
	}
	if req.ConfidenceScore != nil {
		if *req.ConfidenceScore < 0 || *req.ConfidenceScore > 1 {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{
				"confidence_score": "Confidence score must be between 0 and 1",
			})
			return
		}
		annotation.ConfidenceScore = *req.ConfidenceScore
	}

	if err := h.annotations.Update(r.Context(), annotation); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update annotation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Annotation updated successfully",
		"annotation": annotation,
	})
}

// Verify handles POST .../annotations/{annotationID}/verify/. Owner and
// admin collaborators only; annotators cannot verify their own work unless
// they hold one of those roles.
func (h *AnnotationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	project, role, dataset, ok := h.scopeFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}
	annotation, ok := h.annotationFor(w, r, dataset)
	if !ok {
		return
	}

	now := time.Now().UTC()
	if err := h.annotations.Verify(r.Context(), annotation.ID, user.ID, now); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to verify annotation")
		return
	}
	annotation.IsVerified = true
	annotation.VerifiedBy = &user.ID
	annotation.VerifiedAt = &now

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Annotation verified successfully",
		"annotation": annotation,
	})
}

// Delete handles DELETE .../annotations/{annotationID}/. The author or a
// project manager may delete.
func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	project, role, dataset, ok := h.scopeFor(w, r)
	if !ok {
		return
	}
	if !canViewProject(role, project) {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	annotation, ok := h.annotationFor(w, r, dataset)
	if !ok {
		return
	}
	if annotation.AnnotatorID != user.ID && !canManageProject(role) {
		forbidden(w)
		return
	}

	if err := h.annotations.Delete(r.Context(), annotation.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete annotation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Annotation deleted successfully",
	})
}
