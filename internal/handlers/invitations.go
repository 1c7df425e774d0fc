package handlers

import (
	"errors"
	"net/http"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/services"
	"github.com/sernion/mark-backend/pkg/utils"
)

// InvitationHandler serves the collaboration invitation flow.
type InvitationHandler struct {
	invitations *services.Invitations
	projects    ProjectAccessStore
}

func NewInvitationHandler(invitations *services.Invitations, projects ProjectAccessStore) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, projects: projects}
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Invite handles POST /projects/{projectID}/invitations/. Owner and admin
// collaborators only.
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	projectID, ok := urlUUID(w, r, "projectID")
	if !ok {
		return
	}
	project, ok := loadProject(w, r, h.projects, projectID)
	if !ok {
		return
	}
	role, err := projectRole(r.Context(), h.projects, project, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !canManageProject(role) {
		forbidden(w)
		return
	}

	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if err := utils.ValidateEmail(req.Email); err != nil {
		errs["email"] = err.Error()
	}
	if !models.ValidCollaboratorRole(req.Role) {
		errs["role"] = "Invalid collaborator role"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	inv, err := h.invitations.Invite(r.Context(), project, user, req.Email, req.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create invitation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "Invitation sent successfully",
		"invitation": inv,
	})
}

// List handles GET /invitations/: pending invitations addressed to the
// caller's email.
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	invitations, err := h.invitations.PendingFor(r.Context(), user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if invitations == nil {
		invitations = []*models.ProjectInvitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"invitations": invitations,
	})
}

type invitationTokenRequest struct {
	Token string `json:"token"`
}

func (h *InvitationHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvitationInvalid):
		writeError(w, http.StatusBadRequest, "Invalid or expired invitation")
	case errors.Is(err, services.ErrInvitationForbidden):
		forbidden(w)
	default:
		writeError(w, http.StatusInternalServerError, "Database error")
	}
}

// Accept handles POST /invitations/accept/.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req invitationTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"token": "Token is required"})
		return
	}

	inv, err := h.invitations.Accept(r.Context(), req.Token, user)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Invitation accepted",
		"invitation": inv,
	})
}

// Decline handles POST /invitations/decline/.
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req invitationTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"token": "Token is required"})
		return
	}

	if err := h.invitations.Decline(r.Context(), req.Token, user); err != nil {
		h.writeResolveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Invitation declined",
	})
}
