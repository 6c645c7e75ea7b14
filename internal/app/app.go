package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/semmidev/custos/internal/adapter/compressor"
	"github.com/semmidev/custos/internal/adapter/database"
	"github.com/semmidev/custos/internal/adapter/httpapi"
	"github.com/semmidev/custos/internal/adapter/notify"
	"github.com/semmidev/custos/internal/adapter/storage"
	"github.com/semmidev/custos/internal/adapter/tools"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/infrastructure/logger"
	"github.com/semmidev/custos/internal/infrastructure/metrics"
	"github.com/semmidev/custos/internal/infrastructure/process"
	"github.com/semmidev/custos/internal/infrastructure/scheduler"
	"github.com/semmidev/custos/internal/usecase"
	"github.com/spf13/afero"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	store    *config.Store
	conns    *usecase.ConnectionManager
	backup   *usecase.Backup
	schedule *usecase.Schedule
	timer    *scheduler.Scheduler
	server   *http.Server
}

func New(ctx context.Context, cfg *config.Config, configPath string) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	m := metrics.New()
	store := config.NewStore(configPath, cfg)

	if cfg.Tools.AutoDetect {
		store.SetTools(tools.Fill(store.Tools()))
	}
	logTools(log, store.Tools())

	engines := database.Default(cfg.Backup.ConnectTimeout)
	conns := usecase.NewConnectionManager(engines, log.Named("connection"), m)
	fs := afero.NewOsFs()
	retention := usecase.NewRetention(fs, cfg.Backup.Keep, log.Named("retention"))

	opts := []usecase.BackupOption{
		usecase.WithRecorder(m),
		usecase.WithToolTimeout(cfg.Backup.ToolTimeout),
		usecase.WithDefaultDirectory(cfg.Backup.DefaultLocation),
	}

	uploadTargets := initializeUploadTargets(ctx, cfg, log)
	if len(uploadTargets) > 0 {
		var comp domain.Compressor
		if cfg.Mirror.Compress {
			comp = compressor.NewGzip()
		}
		cleanup := usecase.NewCleanup(uploadTargets, log.Named("cleanup"), cfg.Mirror.RetentionDays, cfg.Mirror.Keep)
		opts = append(opts, usecase.WithMirror(usecase.NewMirror(uploadTargets, comp, cleanup, log.Named("mirror"), m)))
	}

	if notifier := initializeNotifiers(cfg, log); notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	backup := usecase.NewBackup(conns, engines, store, process.NewRunner(fs), retention, log.Named("backup"), opts...)

	schedule := usecase.NewSchedule(backup, conns, cfg.Backup.ScheduledName, cfg.Backup.DefaultLocation, log.Named("scheduler"), m)
	timer, err := scheduler.New(cfg.Backup.Schedule, cfg.Location(), schedule.Fire, scheduler.NewLogger(log.Named("cron").SugaredLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	schedule.Bind(timer)

	handler := httpapi.NewHandler(httpapi.Deps{
		Connections: conns,
		Backups:     backup,
		Artifacts:   retention,
		Scheduler:   schedule,
		Users:       usecase.NewUsers(conns, engines, log.Named("users")),
		Store:       store,
		DetectTools: tools.Lookup,
		Logger:      log.Named("http"),
	})
	router := httpapi.NewRouter(handler, m.Handler(), m)

	for _, t := range cfg.GetEnabledUploadTargets() {
		if t.Type != "gdrive" || t.ClientSecretFile == "" {
			continue
		}
		oauth, err := NewGoogleOAuthService(log, t.ClientSecretFile)
		if err != nil {
			log.Warnf("Google Drive OAuth helper disabled: %v", err)
			break
		}
		oauth.Register(router)
		if t.RefreshToken == "" {
			log.Warnf("Google Drive has no refresh token; authorize at http://%s/auth/google/drive", cfg.App.ListenAddr)
		}
		break
	}

	return &App{
		config:   cfg,
		logger:   log,
		metrics:  m,
		store:    store,
		conns:    conns,
		backup:   backup,
		schedule: schedule,
		timer:    timer,
		server: &http.Server{
			Addr:              cfg.App.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func logTools(log *logger.Logger, paths domain.ToolPaths) {
	for name, path := range map[string]string{
		tools.PgDump:    paths.PgDump,
		tools.PgRestore: paths.PgRestore,
		tools.MySQLDump: paths.MySQLDump,
		tools.MySQL:     paths.MySQL,
	} {
		if path == "" {
			log.Warnf("%s not found; configure tools.%s_path to enable it", name, name)
			continue
		}
		log.Debugf("%s: %s", name, path)
	}
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive mirror enabled")

		case "s3":
			stor, err = storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 mirror enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("✓ Telegram mirror enabled")

		case "local":
			stor, err = storage.NewLocal(afero.NewOsFs(), targetCfg.Path)
			if err != nil {
				log.Errorf("Failed to initialize local mirror: %v", err)
				continue
			}
			log.Infof("✓ Local mirror enabled (%s)", targetCfg.Path)

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

func initializeNotifiers(cfg *config.Config, log *logger.Logger) domain.Notifier {
	var notifiers notify.Multi

	for _, n := range cfg.GetEnabledNotifications() {
		var target domain.Notifier

		switch n.Type {
		case "webhook":
			w, err := notify.NewWebhook(n.URL, n.Timeout)
			if err != nil {
				log.Errorf("Failed to initialize webhook notifier: %v", err)
				continue
			}
			target = w

		case "telegram":
			t, err := storage.NewTelegram(&config.UploadTarget{Type: "telegram", BotToken: n.BotToken, ChatID: n.ChatID})
			if err != nil {
				log.Errorf("Failed to initialize Telegram notifier: %v", err)
				continue
			}
			target = t

		default:
			log.Warnf("Unknown notification type: %s", n.Type)
			continue
		}

		notifiers = append(notifiers, notify.Filter{Notifier: target, Status: n.OnlyOn})
		log.Infof("✓ %s notifications enabled", n.Type)
	}

	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// ConnectStored connects with the persisted profile, if it is complete.
func (a *App) ConnectStored(ctx context.Context) (domain.Outcome, bool) {
	profile := a.store.Profile()
	if !profile.Complete() {
		return domain.Failed("No stored connection profile"), false
	}
	out := a.conns.Connect(ctx, profile)
	if out.Success {
		a.logger.Infof("Connected using stored profile for %s", profile.Database)
	} else {
		a.logger.Warnf("Stored profile connection failed: %s", out.Message)
	}
	return out, true
}

// Run serves the management API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.config.App.AutoConnect {
		if out, attempted := a.ConnectStored(ctx); attempted && out.Success {
			a.schedule.Start()
			a.logger.Infof("Next scheduled backup: %s", a.schedule.NextFireTime())
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Management API listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

// Backup runs a single backup with the stored profile.
func (a *App) Backup(ctx context.Context, req domain.BackupRequest) domain.Outcome {
	if out, _ := a.ConnectStored(ctx); !out.Success {
		return out
	}
	return a.backup.Create(ctx, req)
}

// Restore runs a single restore with the stored profile.
func (a *App) Restore(ctx context.Context, path string) domain.Outcome {
	if out, _ := a.ConnectStored(ctx); !out.Success {
		return out
	}
	return a.backup.Restore(ctx, path)
}

func (a *App) Shutdown(ctx context.Context) {
	a.logger.Infof("Shutting down application...")

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warnf("HTTP server shutdown: %v", err)
	}
	if a.schedule.Running() {
		a.schedule.Stop()
	}
	if err := a.timer.Shutdown(ctx); err != nil {
		a.logger.Warnf("Scheduler shutdown: %v", err)
	}
	a.conns.Close()
	a.logger.Close()
}
