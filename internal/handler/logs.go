package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"facedistance/internal/logger"
)

// ShowLogsHandler serves GET /logs/{level} as text/plain.
func ShowLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logger.LogFiles[r.PathValue("level")]
		if !ok || log.LogDir() == "" {
			http.NotFound(w, r)
			return
		}
		serveLogFile(w, r, log.LogDir(), filename)
	}
}

// serveLogFile sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file for POST /logs/{level}/clear.
func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logger.LogFiles[r.PathValue("level")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			http.Error(w, "Failed to clear "+filename, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
