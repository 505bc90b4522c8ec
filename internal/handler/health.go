package handler

import (
	"encoding/json"
	"net/http"

	"facedistance/internal/dto"
	"facedistance/internal/services"
)

// HealthHandler reports liveness and the number of open sessions.
func HealthHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dto.HealthInfo{
			Status:   "ok",
			Sessions: manager.ActiveSessions(),
		})
	}
}
