package handlers

import (
	"net/http"
	"time"
)

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "sernion-mark-backend",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
