package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/semmidev/custos/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig            `mapstructure:"app"`
	Database      DatabaseConfig       `mapstructure:"database"`
	Tools         ToolsConfig          `mapstructure:"tools"`
	Backup        BackupConfig         `mapstructure:"backup"`
	Mirror        MirrorConfig         `mapstructure:"mirror"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	ListenAddr  string `mapstructure:"listen_addr"`
	AutoConnect bool   `mapstructure:"auto_connect"`
}

// DatabaseConfig is the persisted connection profile.
type DatabaseConfig struct {
	Type     string `mapstructure:"db_type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type ToolsConfig struct {
	PgDumpPath    string `mapstructure:"pg_dump_path"`
	PgRestorePath string `mapstructure:"pg_restore_path"`
	MySQLDumpPath string `mapstructure:"mysqldump_path"`
	MySQLPath     string `mapstructure:"mysql_path"`
	AutoDetect    bool   `mapstructure:"auto_detect"`
}

type BackupConfig struct {
	DefaultLocation string        `mapstructure:"default_location"`
	Keep            int           `mapstructure:"keep"`
	Schedule        string        `mapstructure:"schedule"`
	Timezone        string        `mapstructure:"timezone"`
	ScheduledName   string        `mapstructure:"scheduled_name"`
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type MirrorConfig struct {
	Compress      bool           `mapstructure:"compress"`
	Keep          int            `mapstructure:"keep"`
	RetentionDays int            `mapstructure:"retention_days"`
	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local directory
	Path string `mapstructure:"path"`

	// Google Drive
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	RefreshToken     string `mapstructure:"refresh_token"`
	FolderID         string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

type NotificationConfig struct {
	Type    string        `mapstructure:"type"`
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	OnlyOn  string        `mapstructure:"only_on"`

	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

const EnvPrefix = "CUSTOS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "custos")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.listen_addr", ":8080")
	v.SetDefault("app.auto_connect", true)

	// Registered so that CUSTOS_DATABASE_* overrides are picked up.
	v.SetDefault("database.db_type", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.database", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "")

	v.SetDefault("tools.pg_dump_path", "")
	v.SetDefault("tools.pg_restore_path", "")
	v.SetDefault("tools.mysqldump_path", "")
	v.SetDefault("tools.mysql_path", "")
	v.SetDefault("tools.auto_detect", true)

	v.SetDefault("backup.default_location", "./backups")
	v.SetDefault("backup.keep", 3)
	v.SetDefault("backup.schedule", "0 0 * * 6")
	v.SetDefault("backup.timezone", "")
	v.SetDefault("backup.scheduled_name", "scheduled_backup")
	v.SetDefault("backup.tool_timeout", 2*time.Hour)
	v.SetDefault("backup.connect_timeout", 10*time.Second)

	v.SetDefault("mirror.compress", true)
	v.SetDefault("mirror.keep", 0)
	v.SetDefault("mirror.retention_days", 0)
}

// Load reads the YAML file at path. A missing file yields the defaults so a
// fresh install can start and persist its first profile on connect.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Type != "" {
		if _, err := domain.ParseEngine(c.Database.Type); err != nil {
			return fmt.Errorf("database.db_type: %w", err)
		}
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port: %d out of range", c.Database.Port)
	}

	if c.Backup.DefaultLocation == "" {
		return fmt.Errorf("backup.default_location is required")
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("backup.keep must be at least 1")
	}
	if c.Backup.Schedule == "" {
		return fmt.Errorf("backup.schedule is required")
	}
	if c.Backup.ScheduledName == "" {
		return fmt.Errorf("backup.scheduled_name is required")
	}
	if c.Backup.ToolTimeout <= 0 {
		return fmt.Errorf("backup.tool_timeout must be positive")
	}
	if c.Backup.Timezone != "" {
		if _, err := time.LoadLocation(c.Backup.Timezone); err != nil {
			return fmt.Errorf("backup.timezone: %w", err)
		}
	}

	for i, t := range c.Mirror.UploadTargets {
		if !t.Enabled {
			continue
		}
		switch t.Type {
		case "local":
			if t.Path == "" {
				return fmt.Errorf("mirror.upload_targets[%d]: path is required", i)
			}
		case "s3":
			if t.Bucket == "" {
				return fmt.Errorf("mirror.upload_targets[%d]: bucket is required", i)
			}
		case "gdrive":
			if t.CredentialsFile == "" && t.ClientSecretFile == "" {
				return fmt.Errorf("mirror.upload_targets[%d]: credentials_file or client_secret_file is required", i)
			}
		case "telegram":
			if t.BotToken == "" || t.ChatID == "" {
				return fmt.Errorf("mirror.upload_targets[%d]: bot_token and chat_id are required", i)
			}
		default:
			return fmt.Errorf("mirror.upload_targets[%d]: unknown type %q", i, t.Type)
		}
	}

	return nil
}

// Location resolves backup.timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.Backup.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Backup.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Mirror.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}

func (c *Config) GetEnabledNotifications() []NotificationConfig {
	var enabled []NotificationConfig
	for _, n := range c.Notifications {
		if n.Enabled {
			enabled = append(enabled, n)
		}
	}
	return enabled
}

// Profile converts the persisted database section into a connection profile.
// The engine is left empty when db_type is unset.
func (d DatabaseConfig) Profile() domain.ConnectionProfile {
	engine, _ := domain.ParseEngine(d.Type)
	return domain.ConnectionProfile{
		Engine:   engine,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.Username,
		Password: d.Password,
		SSLMode:  d.SSLMode,
	}
}

func FromProfile(p domain.ConnectionProfile) DatabaseConfig {
	return DatabaseConfig{
		Type:     p.Engine.String(),
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		Username: p.Username,
		Password: p.Password,
		SSLMode:  p.SSLMode,
	}
}

func (t ToolsConfig) Paths() domain.ToolPaths {
	return domain.ToolPaths{
		PgDump:    t.PgDumpPath,
		PgRestore: t.PgRestorePath,
		MySQLDump: t.MySQLDumpPath,
		MySQL:     t.MySQLPath,
	}
}
