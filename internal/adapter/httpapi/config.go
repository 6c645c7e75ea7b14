package httpapi

import (
	"net/http"

	"github.com/semmidev/custos/internal/adapter/tools"
	"github.com/semmidev/custos/internal/domain"
)

type configView struct {
	DBType        string `json:"db_type"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Database      string `json:"database"`
	Username      string `json:"username"`
	SSLMode       string `json:"ssl_mode,omitempty"`
	PgDumpPath    string `json:"pg_dump_path"`
	PgRestorePath string `json:"pg_restore_path"`
	MySQLDumpPath string `json:"mysqldump_path"`
	MySQLPath     string `json:"mysql_path"`
}

// getConfig never returns the password.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	db := h.Store.Database()
	paths := h.Store.Tools()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"config": configView{
			DBType:        db.Type,
			Host:          db.Host,
			Port:          db.Port,
			Database:      db.Database,
			Username:      db.Username,
			SSLMode:       db.SSLMode,
			PgDumpPath:    paths.PgDump,
			PgRestorePath: paths.PgRestore,
			MySQLDumpPath: paths.MySQLDump,
			MySQLPath:     paths.MySQL,
		},
	})
}

func (h *Handler) saveConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	if req.DBType != nil && *req.DBType != "" {
		if _, err := domain.ParseEngine(*req.DBType); err != nil {
			respondOutcome(w, domain.Failed("Failed to save configuration: %v", err))
			return
		}
	}

	db := h.Store.Database()
	setString(&db.Type, req.DBType)
	setString(&db.Host, req.Host)
	setString(&db.Database, req.Database)
	setString(&db.Username, req.Username)
	setString(&db.Password, req.Password)
	setString(&db.SSLMode, req.SSLMode)
	if req.Port != nil {
		db.Port = int(*req.Port)
	}
	h.Store.SetDatabase(db)

	paths := h.Store.Tools()
	setString(&paths.PgDump, req.PgDumpPath)
	setString(&paths.PgRestore, req.PgRestorePath)
	setString(&paths.MySQLDump, req.MySQLDumpPath)
	setString(&paths.MySQL, req.MySQLPath)
	h.Store.SetTools(paths)

	if err := h.Store.Save(); err != nil {
		h.Logger.Errorf("Saving configuration failed: %v", err)
		respondOutcome(w, domain.Failed("Failed to save configuration: %v", err))
		return
	}
	respondOutcome(w, domain.Succeeded("Configuration saved successfully"))
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

const notFound = "Not found"

// detectTools searches PATH, keeps configured paths for tools it cannot
// find and persists the result.
func (h *Handler) detectTools(w http.ResponseWriter, r *http.Request) {
	found := h.DetectTools()
	merged := tools.Merge(h.Store.Tools(), found)
	h.Store.SetTools(merged)
	if err := h.Store.Save(); err != nil {
		h.Logger.Warnf("Could not persist detected tools: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tools": map[string]string{
			tools.PgDump:    orNotFound(merged.PgDump),
			tools.PgRestore: orNotFound(merged.PgRestore),
			tools.MySQLDump: orNotFound(merged.MySQLDump),
			tools.MySQL:     orNotFound(merged.MySQL),
		},
	})
}

func orNotFound(path string) string {
	if path == "" {
		return notFound
	}
	return path
}
