package route

import (
	"net/http"

	"facedistance/internal/config"
	"facedistance/internal/handler"
	"facedistance/internal/logger"
	"facedistance/internal/middleware"
	"facedistance/internal/services"
)

// SetupRoutes registers the websocket endpoints, health and log endpoints,
// and wraps the mux with the CORS middleware.
func SetupRoutes(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	upgrader := handler.NewUpgrader(cfg.AllowedOrigins)

	// Websocket endpoints
	mux.HandleFunc("GET /ws", handler.DeviceWebsocketHandler(manager, upgrader))
	mux.HandleFunc("GET /ws/push", handler.PushWebsocketHandler(manager, upgrader))

	mux.HandleFunc("GET /healthz", handler.HealthHandler(manager))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.CORSMiddleware(cfg.AllowedOrigins)(mux)
}
