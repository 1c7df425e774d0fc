package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
)

// UserLister pages through active accounts for the staff directory.
type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// LoginHistoryReader reads the caller's recent authentication attempts.
type LoginHistoryReader interface {
	RecentForUser(ctx context.Context, userID string, limit int64) ([]models.LoginRecord, error)
}

// UserHandler serves the staff user directory and per-user login history.
type UserHandler struct {
	users   UserLister
	history LoginHistoryReader
}

func NewUserHandler(users UserLister, history LoginHistoryReader) *UserHandler {
	return &UserHandler{users: users, history: history}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// List handles GET /users/. Staff only; mounted behind RequireStaff.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	payload := make([]map[string]any, 0, len(users))
	for _, u := range users {
		entry := userPayload(u)
		entry["is_staff"] = u.IsStaff
		entry["created_at"] = u.CreatedAt
		entry["last_login_at"] = u.LastLoginAt
		payload = append(payload, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   payload,
	})
}

// LoginHistory handles GET /user/login-history/: the caller's most recent
// authentication attempts, newest first.
func (h *UserHandler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	limit := int64(queryInt(r, "limit", 50))
	records, err := h.history.RecentForUser(r.Context(), user.ID.String(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load login history")
		return
	}
	if records == nil {
		records = []models.LoginRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
	})
}
