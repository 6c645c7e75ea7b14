// Package httpapi is the JSON management API. Domain failures are reported
// as 200 with success=false; 400 is reserved for malformed requests.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type Connections interface {
	Connect(ctx context.Context, profile domain.ConnectionProfile) domain.Outcome
	Disconnect() domain.Outcome
	Status() (domain.ConnectionProfile, bool)
}

type Backups interface {
	Create(ctx context.Context, req domain.BackupRequest) domain.Outcome
	Restore(ctx context.Context, path string) domain.Outcome
	DefaultDirectory() string
}

type Artifacts interface {
	DirExists(dir string) (bool, error)
	ListArtifacts(dir string) ([]domain.Artifact, error)
}

type Scheduler interface {
	Start() domain.Outcome
	Stop() domain.Outcome
	Running() bool
	NextFireTime() string
	ForceRun(ctx context.Context) domain.Outcome
}

type Users interface {
	List(ctx context.Context) (domain.Outcome, []domain.User)
	Manage(ctx context.Context, req domain.UserRequest) domain.Outcome
}

type ConfigStore interface {
	Database() config.DatabaseConfig
	SetDatabase(d config.DatabaseConfig)
	SetProfile(p domain.ConnectionProfile)
	Tools() domain.ToolPaths
	SetTools(paths domain.ToolPaths)
	Save() error
}

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Deps carries everything the handlers call into.
type Deps struct {
	Connections Connections
	Backups     Backups
	Artifacts   Artifacts
	Scheduler   Scheduler
	Users       Users
	Store       ConfigStore
	DetectTools func() domain.ToolPaths
	Logger      Logger
}

type Handler struct {
	Deps
	started time.Time
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d, started: time.Now()}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondOutcome(w http.ResponseWriter, out domain.Outcome) {
	respondJSON(w, http.StatusOK, out)
}

func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, domain.Failed("%s", message))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
