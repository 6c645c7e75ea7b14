package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

type fakeConns struct {
	out       domain.Outcome
	got       domain.ConnectionProfile
	connected bool
}

func (f *fakeConns) Connect(_ context.Context, p domain.ConnectionProfile) domain.Outcome {
	f.got = p
	f.connected = f.out.Success
	return f.out
}

func (f *fakeConns) Disconnect() domain.Outcome {
	if !f.connected {
		return domain.Failed("Not connected.")
	}
	f.connected = false
	return domain.Succeeded("Disconnected successfully.")
}

func (f *fakeConns) Status() (domain.ConnectionProfile, bool) {
	if !f.connected {
		return domain.ConnectionProfile{}, false
	}
	return f.got, true
}

type fakeBackups struct {
	req     domain.BackupRequest
	restore string
}

func (f *fakeBackups) Create(_ context.Context, req domain.BackupRequest) domain.Outcome {
	f.req = req
	return domain.Succeeded("Backup created successfully at /backups/x.sql")
}

func (f *fakeBackups) Restore(_ context.Context, path string) domain.Outcome {
	f.restore = path
	return domain.Succeeded("Restore successful from %s", path)
}

func (f *fakeBackups) DefaultDirectory() string { return "/backups" }

type fakeArtifacts struct {
	exists    bool
	artifacts []domain.Artifact
	dir       string
}

func (f *fakeArtifacts) DirExists(dir string) (bool, error) {
	f.dir = dir
	return f.exists, nil
}

func (f *fakeArtifacts) ListArtifacts(string) ([]domain.Artifact, error) {
	return f.artifacts, nil
}

type fakeScheduler struct {
	running bool
}

func (f *fakeScheduler) Start() domain.Outcome {
	if f.running {
		return domain.Failed("Scheduler is already running")
	}
	f.running = true
	return domain.Succeeded("Backup scheduler started successfully")
}

func (f *fakeScheduler) Stop() domain.Outcome {
	if !f.running {
		return domain.Failed("Scheduler is not running")
	}
	f.running = false
	return domain.Succeeded("Backup scheduler stopped successfully")
}

func (f *fakeScheduler) Running() bool { return f.running }

func (f *fakeScheduler) NextFireTime() string {
	if !f.running {
		return "Scheduler not running"
	}
	return "2026-10-24 00:00:00"
}

func (f *fakeScheduler) ForceRun(context.Context) domain.Outcome {
	return domain.Succeeded("Backup created successfully at /backups/scheduled_backup_20261019_000000.sql")
}

type fakeUsers struct {
	req domain.UserRequest
}

func (f *fakeUsers) List(context.Context) (domain.Outcome, []domain.User) {
	return domain.Succeeded("Users listed successfully."), []domain.User{{Username: "root", Host: "localhost"}}
}

func (f *fakeUsers) Manage(_ context.Context, req domain.UserRequest) domain.Outcome {
	f.req = req
	return domain.Succeeded("User operation '%s' for '%s' successful.", req.Operation, req.Username)
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
}

type fixture struct {
	conns     *fakeConns
	backups   *fakeBackups
	artifacts *fakeArtifacts
	scheduler *fakeScheduler
	users     *fakeUsers
	store     *config.Store
	recorder  *routeRecorder
	server    *httptest.Server
}

func newFixture(dir string) *fixture {
	f := &fixture{
		conns:     &fakeConns{out: domain.Succeeded("Connection successful.")},
		backups:   &fakeBackups{},
		artifacts: &fakeArtifacts{},
		scheduler: &fakeScheduler{},
		users:     &fakeUsers{},
		store:     config.NewStore(filepath.Join(dir, "config.yaml"), &config.Config{}),
		recorder:  &routeRecorder{},
	}
	h := NewHandler(Deps{
		Connections: f.conns,
		Backups:     f.backups,
		Artifacts:   f.artifacts,
		Scheduler:   f.scheduler,
		Users:       f.users,
		Store:       f.store,
		DetectTools: func() domain.ToolPaths { return domain.ToolPaths{PgDump: "/usr/bin/pg_dump"} },
		Logger:      nopLogger{},
	})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics\n")) })
	f.server = httptest.NewServer(NewRouter(h, metrics, f.recorder))
	return f
}

func call(f *fixture, method, path, body string) (int, map[string]interface{}, http.Header) {
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	So(err, ShouldBeNil)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	}
	return resp.StatusCode, out, resp.Header
}

func TestConnectionRoutes(t *testing.T) {
	Convey("Given the management API", t, func() {
		dir, err := os.MkdirTemp("", "httpapi_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		f := newFixture(dir)
		defer f.server.Close()

		Convey("POST /api/connect with a missing field", func() {
			code, body, _ := call(f, http.MethodPost, "/api/connect", `{"db_type":"PostgreSQL","host":"localhost"}`)

			So(code, ShouldEqual, http.StatusBadRequest)
			So(body["success"], ShouldEqual, false)
			So(body["message"], ShouldEqual, "Missing required fields")
		})

		Convey("POST /api/connect with an empty password", func() {
			code, body, _ := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"PostgreSQL","host":"localhost","port":5432,"database":"shop","username":"trusted","password":""}`)

			Convey("It should reach the connection manager", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(f.conns.got.Username, ShouldEqual, "trusted")
				So(f.conns.got.Password, ShouldBeEmpty)
			})
		})

		Convey("POST /api/connect without a password field", func() {
			code, body, _ := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"PostgreSQL","host":"localhost","port":5432,"database":"shop","username":"u"}`)

			So(code, ShouldEqual, http.StatusBadRequest)
			So(body["message"], ShouldEqual, "Missing required fields")
			So(f.conns.got.Username, ShouldBeEmpty)
		})

		Convey("GET /api/status while disconnected", func() {
			code, status, _ := call(f, http.MethodGet, "/api/status", "")

			Convey("It should render the session fields as null", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(status["connected"], ShouldEqual, false)
				So(status, ShouldContainKey, "db_type")
				So(status["db_type"], ShouldBeNil)
				So(status, ShouldContainKey, "database")
				So(status["database"], ShouldBeNil)
			})
		})

		Convey("POST /api/connect with a malformed port", func() {
			code, _, _ := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"PostgreSQL","host":"localhost","port":"abc","database":"shop","username":"u","password":"p"}`)
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST /api/connect with a string port", func() {
			code, body, header := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"postgres","host":"localhost","port":"5432","database":"shop","username":"u","password":"p"}`)

			Convey("It should connect, persist the profile and arm the scheduler", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["message"], ShouldEqual, "Connection successful.")
				So(header.Get("X-Request-ID"), ShouldNotBeEmpty)

				So(f.conns.got.Engine, ShouldEqual, domain.EnginePostgres)
				So(f.conns.got.Port, ShouldEqual, 5432)
				So(f.scheduler.running, ShouldBeTrue)

				saved, err := config.Load(f.store.Path())
				So(err, ShouldBeNil)
				So(saved.Database.Host, ShouldEqual, "localhost")
				So(saved.Database.Type, ShouldEqual, "PostgreSQL")
			})

			Convey("GET /api/status should report the session and schedule", func() {
				_, status, _ := call(f, http.MethodGet, "/api/status", "")
				So(status["connected"], ShouldEqual, true)
				So(status["db_type"], ShouldEqual, "PostgreSQL")
				So(status["database"], ShouldEqual, "shop")
				So(status["scheduler_running"], ShouldEqual, true)
				So(status["next_backup"], ShouldEqual, "2026-10-24 00:00:00")
			})

			Convey("POST /api/disconnect should stop the scheduler", func() {
				_, body, _ := call(f, http.MethodPost, "/api/disconnect", "")
				So(body["success"], ShouldEqual, true)
				So(f.scheduler.running, ShouldBeFalse)
			})
		})

		Convey("POST /api/connect when the database refuses", func() {
			f.conns.out = domain.Failed("Connection failed: connection refused")
			code, body, _ := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"MySQL","host":"localhost","port":3306,"database":"shop","username":"u","password":"p"}`)

			So(code, ShouldEqual, http.StatusOK)
			So(body["success"], ShouldEqual, false)
			So(f.scheduler.running, ShouldBeFalse)
			_, err := os.Stat(f.store.Path())
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("POST /api/connect with an unknown engine", func() {
			_, body, _ := call(f, http.MethodPost, "/api/connect",
				`{"db_type":"Oracle","host":"localhost","port":1521,"database":"shop","username":"u","password":"p"}`)
			So(body["success"], ShouldEqual, false)
			So(body["message"], ShouldStartWith, "Connection failed:")
		})

		Convey("GET /health", func() {
			code, body, _ := call(f, http.MethodGet, "/health", "")
			So(code, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("Requests should be recorded under their route template", func() {
			call(f, http.MethodGet, "/api/scheduler/status", "")
			So(f.recorder.routes, ShouldContain, "GET /api/scheduler/status")
		})
	})
}

func TestBackupRoutes(t *testing.T) {
	Convey("Given the management API", t, func() {
		dir, err := os.MkdirTemp("", "httpapi_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		f := newFixture(dir)
		defer f.server.Close()

		Convey("POST /api/backup with no body", func() {
			_, body, _ := call(f, http.MethodPost, "/api/backup", "")
			So(body["success"], ShouldEqual, true)
			So(f.backups.req, ShouldResemble, domain.BackupRequest{Trigger: domain.TriggerManual})
		})

		Convey("POST /api/backup with a name and location", func() {
			call(f, http.MethodPost, "/api/backup", `{"backup_name":"nightly","backup_location":"/srv/dumps"}`)
			So(f.backups.req.Name, ShouldEqual, "nightly")
			So(f.backups.req.Directory, ShouldEqual, "/srv/dumps")
		})

		Convey("POST /api/backup/force", func() {
			_, body, _ := call(f, http.MethodPost, "/api/backup/force", "")
			So(body["message"], ShouldContainSubstring, "scheduled_backup_20261019_000000.sql")
		})

		Convey("POST /api/restore without a path", func() {
			code, body, _ := call(f, http.MethodPost, "/api/restore", `{}`)
			So(code, ShouldEqual, http.StatusBadRequest)
			So(body["message"], ShouldEqual, "backup_file_path is required")
		})

		Convey("POST /api/restore with a path", func() {
			_, body, _ := call(f, http.MethodPost, "/api/restore", `{"backup_file_path":"/backups/a.sql"}`)
			So(body["message"], ShouldEqual, "Restore successful from /backups/a.sql")
			So(f.backups.restore, ShouldEqual, "/backups/a.sql")
		})

		Convey("GET /api/backups for a missing directory", func() {
			_, body, _ := call(f, http.MethodGet, "/api/backups?backup_location=/nowhere", "")
			So(body["success"], ShouldEqual, false)
			So(body["message"], ShouldEqual, "Backup directory does not exist")
			So(body["backups"], ShouldResemble, []interface{}{})
			So(f.artifacts.dir, ShouldEqual, "/nowhere")
		})

		Convey("GET /api/backups for the default directory", func() {
			f.artifacts.exists = true
			f.artifacts.artifacts = []domain.Artifact{{
				Filename:  "shop_20261019_000000.sql",
				Path:      "/backups/shop_20261019_000000.sql",
				Size:      42,
				CreatedAt: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			}}

			_, body, _ := call(f, http.MethodGet, "/api/backups", "")
			So(body["success"], ShouldEqual, true)
			So(f.artifacts.dir, ShouldEqual, "/backups")

			backups := body["backups"].([]interface{})
			So(len(backups), ShouldEqual, 1)
			first := backups[0].(map[string]interface{})
			So(first["filename"], ShouldEqual, "shop_20261019_000000.sql")
			So(first["size"], ShouldEqual, float64(42))
			So(first["created"], ShouldEqual, "2026-10-19T00:00:00Z")
		})

		Convey("Scheduler routes", func() {
			_, body, _ := call(f, http.MethodPost, "/api/scheduler/start", "")
			So(body["message"], ShouldEqual, "Backup scheduler started successfully")
			_, body, _ = call(f, http.MethodPost, "/api/scheduler/start", "")
			So(body["message"], ShouldEqual, "Scheduler is already running")

			_, body, _ = call(f, http.MethodGet, "/api/scheduler/status", "")
			So(body["running"], ShouldEqual, true)

			_, body, _ = call(f, http.MethodPost, "/api/scheduler/stop", "")
			So(body["success"], ShouldEqual, true)
		})

		Convey("Wrong method should not match", func() {
			code, _, _ := call(f, http.MethodGet, "/api/backup", "")
			So(code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestUserAndConfigRoutes(t *testing.T) {
	Convey("Given the management API", t, func() {
		dir, err := os.MkdirTemp("", "httpapi_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		f := newFixture(dir)
		defer f.server.Close()

		Convey("GET /api/users", func() {
			_, body, _ := call(f, http.MethodGet, "/api/users", "")
			So(body["success"], ShouldEqual, true)
			So(len(body["users"].([]interface{})), ShouldEqual, 1)
		})

		Convey("POST /api/users with long-form operation names", func() {
			_, body, _ := call(f, http.MethodPost, "/api/users", `{"operation":"Create User","username":"reporter","password":"pw","privileges":["SELECT"]}`)
			So(body["message"], ShouldEqual, "User operation 'create' for 'reporter' successful.")
			So(f.users.req.Privileges, ShouldResemble, []string{"SELECT"})
		})

		Convey("POST /api/users with an unknown operation", func() {
			code, body, _ := call(f, http.MethodPost, "/api/users", `{"operation":"rename","username":"reporter"}`)
			So(code, ShouldEqual, http.StatusOK)
			So(body["success"], ShouldEqual, false)
		})

		Convey("POST /api/users without a username", func() {
			code, _, _ := call(f, http.MethodPost, "/api/users", `{"operation":"drop"}`)
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST then GET /api/config", func() {
			_, body, _ := call(f, http.MethodPost, "/api/config", `{"db_type":"MySQL","host":"db","port":"3306","password":"hunter2","mysqldump_path":"/usr/bin/mysqldump"}`)
			So(body["message"], ShouldEqual, "Configuration saved successfully")

			_, body, _ = call(f, http.MethodGet, "/api/config", "")
			cfg := body["config"].(map[string]interface{})
			So(cfg["db_type"], ShouldEqual, "MySQL")
			So(cfg["port"], ShouldEqual, float64(3306))
			So(cfg["mysqldump_path"], ShouldEqual, "/usr/bin/mysqldump")
			So(cfg, ShouldNotContainKey, "password")

			saved, err := config.Load(f.store.Path())
			So(err, ShouldBeNil)
			So(saved.Database.Password, ShouldEqual, "hunter2")
		})

		Convey("POST /api/config with an unknown engine", func() {
			_, body, _ := call(f, http.MethodPost, "/api/config", `{"db_type":"Oracle"}`)
			So(body["success"], ShouldEqual, false)
		})

		Convey("POST /api/tools/detect", func() {
			_, body, _ := call(f, http.MethodPost, "/api/tools/detect", "")
			tools := body["tools"].(map[string]interface{})
			So(tools["pg_dump"], ShouldEqual, "/usr/bin/pg_dump")
			So(tools["mysqldump"], ShouldEqual, "Not found")
			So(f.store.Tools().PgDump, ShouldEqual, "/usr/bin/pg_dump")
		})
	})
}
