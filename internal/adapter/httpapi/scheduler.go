package httpapi

import "net/http"

func (h *Handler) startScheduler(w http.ResponseWriter, r *http.Request) {
	respondOutcome(w, h.Scheduler.Start())
}

func (h *Handler) stopScheduler(w http.ResponseWriter, r *http.Request) {
	respondOutcome(w, h.Scheduler.Stop())
}

func (h *Handler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running":     h.Scheduler.Running(),
		"next_backup": h.Scheduler.NextFireTime(),
	})
}
