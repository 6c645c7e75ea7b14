package httpapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Port accepts either a JSON number or a numeric string.
type Port int

func (p *Port) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %s", b)
	}
	*p = Port(n)
	return nil
}

type connectRequest struct {
	DBType   string `json:"db_type"`
	Host     string `json:"host"`
	Port     Port   `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	// Password only has to be present; trust and peer auth send "".
	Password *string `json:"password"`
	SSLMode  string  `json:"ssl_mode"`
}

func (r connectRequest) complete() bool {
	return r.DBType != "" && r.Host != "" && r.Port > 0 && r.Database != "" && r.Username != "" && r.Password != nil
}

type backupRequest struct {
	BackupName     string `json:"backup_name"`
	BackupLocation string `json:"backup_location"`
}

type restoreRequest struct {
	BackupFilePath string `json:"backup_file_path"`
}

type userRequest struct {
	Operation  string   `json:"operation"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	Privileges []string `json:"privileges"`
}

// configRequest fields are optional; only those present are applied.
type configRequest struct {
	DBType        *string `json:"db_type"`
	Host          *string `json:"host"`
	Port          *Port   `json:"port"`
	Database      *string `json:"database"`
	Username      *string `json:"username"`
	Password      *string `json:"password"`
	SSLMode       *string `json:"ssl_mode"`
	PgDumpPath    *string `json:"pg_dump_path"`
	PgRestorePath *string `json:"pg_restore_path"`
	MySQLDumpPath *string `json:"mysqldump_path"`
	MySQLPath     *string `json:"mysql_path"`
}
