package httpapi

import (
	"net/http"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

func (h *Handler) backup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	respondOutcome(w, h.Backups.Create(r.Context(), domain.BackupRequest{
		Name:      req.BackupName,
		Directory: req.BackupLocation,
		Trigger:   domain.TriggerManual,
	}))
}

func (h *Handler) forceBackup(w http.ResponseWriter, r *http.Request) {
	respondOutcome(w, h.Scheduler.ForceRun(r.Context()))
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.BackupFilePath == "" {
		badRequest(w, "backup_file_path is required")
		return
	}

	respondOutcome(w, h.Backups.Restore(r.Context(), req.BackupFilePath))
}

type artifactView struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
}

type backupsResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Backups []artifactView `json:"backups"`
}

func (h *Handler) listBackups(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("backup_location")
	if dir == "" {
		dir = h.Backups.DefaultDirectory()
	}

	resp := backupsResponse{Backups: []artifactView{}}

	exists, err := h.Artifacts.DirExists(dir)
	if err == nil && !exists {
		resp.Message = "Backup directory does not exist"
		respondJSON(w, http.StatusOK, resp)
		return
	}

	artifacts, err := h.Artifacts.ListArtifacts(dir)
	if err != nil {
		resp.Message = "Error listing backups: " + err.Error()
		respondJSON(w, http.StatusOK, resp)
		return
	}

	for _, a := range artifacts {
		resp.Backups = append(resp.Backups, artifactView{
			Filename: a.Filename,
			Path:     a.Path,
			Size:     a.Size,
			Created:  a.CreatedAt,
		})
	}
	resp.Success = true
	respondJSON(w, http.StatusOK, resp)
}
