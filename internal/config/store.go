package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/semmidev/custos/internal/domain"
	"github.com/spf13/viper"
)

// Store keeps the live profile and tool paths and persists them back to the
// config file. Sections it does not own are preserved on save.
type Store struct {
	mu      sync.RWMutex
	path    string
	profile DatabaseConfig
	tools   ToolsConfig
}

func NewStore(path string, cfg *Config) *Store {
	return &Store{
		path:    path,
		profile: cfg.Database,
		tools:   cfg.Tools,
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Profile() domain.ConnectionProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Profile()
}

// Database returns the raw section, including a db_type that may not parse.
func (s *Store) Database() DatabaseConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) SetDatabase(d DatabaseConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = d
}

func (s *Store) SetProfile(p domain.ConnectionProfile) {
	s.SetDatabase(FromProfile(p))
}

func (s *Store) Tools() domain.ToolPaths {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tools.Paths()
}

func (s *Store) SetTools(paths domain.ToolPaths) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.PgDumpPath = paths.PgDump
	s.tools.PgRestorePath = paths.PgRestore
	s.tools.MySQLDumpPath = paths.MySQLDump
	s.tools.MySQLPath = paths.MySQL
}

// Save rewrites the database and tools sections of the config file.
func (s *Store) Save() error {
	s.mu.RLock()
	d, t := s.profile, s.tools
	s.mu.RUnlock()

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.Set("database.db_type", d.Type)
	v.Set("database.host", d.Host)
	v.Set("database.port", d.Port)
	v.Set("database.database", d.Database)
	v.Set("database.username", d.Username)
	v.Set("database.password", d.Password)
	v.Set("database.ssl_mode", d.SSLMode)

	v.Set("tools.pg_dump_path", t.PgDumpPath)
	v.Set("tools.pg_restore_path", t.PgRestorePath)
	v.Set("tools.mysqldump_path", t.MySQLDumpPath)
	v.Set("tools.mysql_path", t.MySQLPath)
	v.Set("tools.auto_detect", t.AutoDetect)

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
