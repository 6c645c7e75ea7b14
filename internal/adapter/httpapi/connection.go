package httpapi

import (
	"net/http"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if !req.complete() {
		badRequest(w, "Missing required fields")
		return
	}

	engine, err := domain.ParseEngine(req.DBType)
	if err != nil {
		respondOutcome(w, domain.Failed("Connection failed: %v", err))
		return
	}

	profile := domain.ConnectionProfile{
		Engine:   engine,
		Host:     req.Host,
		Port:     int(req.Port),
		Database: req.Database,
		Username: req.Username,
		Password: *req.Password,
		SSLMode:  req.SSLMode,
	}

	out := h.Connections.Connect(r.Context(), profile)
	if out.Success {
		h.Store.SetProfile(profile)
		if err := h.Store.Save(); err != nil {
			h.Logger.Warnf("Could not persist connection profile: %v", err)
		}
		if !h.Scheduler.Running() {
			h.Scheduler.Start()
		}
	}
	respondOutcome(w, out)
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	out := h.Connections.Disconnect()
	if out.Success && h.Scheduler.Running() {
		h.Scheduler.Stop()
	}
	respondOutcome(w, out)
}

// statusResponse renders db_type and database as null while disconnected.
type statusResponse struct {
	Connected        bool    `json:"connected"`
	DBType           *string `json:"db_type"`
	Database         *string `json:"database"`
	SchedulerRunning bool    `json:"scheduler_running"`
	NextBackup       string  `json:"next_backup"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	profile, connected := h.Connections.Status()
	resp := statusResponse{
		Connected:        connected,
		SchedulerRunning: h.Scheduler.Running(),
		NextBackup:       h.Scheduler.NextFireTime(),
	}
	if connected {
		engine := profile.Engine.String()
		resp.DBType = &engine
		resp.Database = &profile.Database
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	_, connected := h.Connections.Status()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"connected": connected,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}
