package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

// ProjectAccessStore is the slice of the project store the access checks
// need.
type ProjectAccessStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	CollaboratorRole(ctx context.Context, projectID, userID uuid.UUID) (string, error)
	AddCollaborator(ctx context.Context, projectID, userID uuid.UUID, role string, at time.Time) error
}

// roleOwner is a synthetic role returned for the project owner; it outranks
// every collaborator role.
const roleOwner = "owner"

// projectRole resolves the user's role on the project. The empty string
// means no membership at all.
func projectRole(ctx context.Context, projects ProjectAccessStore, p *models.Project, u *models.User) (string, error) {
	if p.OwnerID == u.ID {
		return roleOwner, nil
	}
	role, err := projects.CollaboratorRole(ctx, p.ID, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return role, err
}

// canViewProject: owner, any collaborator, or anyone when the project is
// public.
func canViewProject(role string, p *models.Project) bool {
	return role != "" || p.IsPublic
}

// canAnnotateProject: owner, admins and annotators. Viewers are read-only.
func canAnnotateProject(role string) bool {
	switch role {
	case roleOwner, models.RoleAdmin, models.RoleAnnotator:
		return true
	}
	return false
}

// canManageProject: owner and admin collaborators. Covers dataset and
// template management, inviting, and annotation verification.
func canManageProject(role string) bool {
	return role == roleOwner || role == models.RoleAdmin
}

// urlUUID parses a uuid route parameter; a malformed value 404s like an
// unknown id would.
func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return uuid.Nil, false
	}
	return id, true
}

// loadProject fetches the project or writes the 404/500 response.
func loadProject(w http.ResponseWriter, r *http.Request, projects ProjectAccessStore, id uuid.UUID) (*models.Project, bool) {
	p, err := projects.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return p, true
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
}
