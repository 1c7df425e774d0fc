package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sernion/mark-backend/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the generic failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// writeFieldErrors writes a field-keyed validation failure.
func writeFieldErrors(w http.ResponseWriter, status int, errs map[string]string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"errors":  errs,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// userPayload is the public representation of a user account.
func userPayload(u *models.User) map[string]any {
	return map[string]any{
		"id":          u.ID.String(),
		"username":    u.Username,
		"email":       u.Email,
		"full_name":   u.DisplayName(),
		"is_verified": u.IsVerified,
	}
}
