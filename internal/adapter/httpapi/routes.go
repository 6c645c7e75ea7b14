package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts the management API. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler, recorder HTTPRecorder) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.Logger, recorder))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/connect", h.connect).Methods(http.MethodPost)
	api.HandleFunc("/disconnect", h.disconnect).Methods(http.MethodPost)
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)

	api.HandleFunc("/backup", h.backup).Methods(http.MethodPost)
	api.HandleFunc("/backup/force", h.forceBackup).Methods(http.MethodPost)
	api.HandleFunc("/restore", h.restore).Methods(http.MethodPost)
	api.HandleFunc("/backups", h.listBackups).Methods(http.MethodGet)

	api.HandleFunc("/scheduler/start", h.startScheduler).Methods(http.MethodPost)
	api.HandleFunc("/scheduler/stop", h.stopScheduler).Methods(http.MethodPost)
	api.HandleFunc("/scheduler/status", h.schedulerStatus).Methods(http.MethodGet)

	api.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", h.manageUser).Methods(http.MethodPost)

	api.HandleFunc("/config", h.getConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.saveConfig).Methods(http.MethodPost)
	api.HandleFunc("/tools/detect", h.detectTools).Methods(http.MethodPost)

	return r
}
