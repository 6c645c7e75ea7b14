package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/semmidev/custos/internal/domain"
)

const mysqlListUsers = `SELECT user, host FROM mysql.user ORDER BY user, host`

var mysqlPrivileges = map[string]bool{
	"ALL PRIVILEGES":          true,
	"SELECT":                  true,
	"INSERT":                  true,
	"UPDATE":                  true,
	"DELETE":                  true,
	"CREATE":                  true,
	"DROP":                    true,
	"ALTER":                   true,
	"INDEX":                   true,
	"REFERENCES":              true,
	"EXECUTE":                 true,
	"CREATE VIEW":             true,
	"SHOW VIEW":               true,
	"CREATE ROUTINE":          true,
	"ALTER ROUTINE":           true,
	"EVENT":                   true,
	"TRIGGER":                 true,
	"LOCK TABLES":             true,
	"RELOAD":                  true,
	"PROCESS":                 true,
	"SHOW DATABASES":          true,
	"REPLICATION CLIENT":      true,
	"REPLICATION SLAVE":       true,
	"CREATE USER":             true,
	"CREATE TEMPORARY TABLES": true,
}

type MySQL struct {
	connectTimeout time.Duration
}

func NewMySQL(connectTimeout time.Duration) *MySQL {
	return &MySQL{connectTimeout: connectTimeout}
}

func (m *MySQL) Engine() domain.Engine {
	return domain.EngineMySQL
}

// DSN enables client-side interpolation so placeholders work in account
// management statements, which the server refuses to prepare.
func (m *MySQL) DSN(profile domain.ConnectionProfile) string {
	cfg := mysql.NewConfig()
	cfg.User = profile.Username
	cfg.Passwd = profile.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(profile.Host, strconv.Itoa(profile.Port))
	cfg.DBName = profile.Database
	cfg.InterpolateParams = true
	cfg.ParseTime = true
	if m.connectTimeout > 0 {
		cfg.Timeout = m.connectTimeout
	}
	if profile.SSLMode != "" && profile.SSLMode != "disable" {
		cfg.TLSConfig = "preferred"
		if profile.SSLMode == "require" || profile.SSLMode == "verify-full" {
			cfg.TLSConfig = "true"
		}
	}
	return cfg.FormatDSN()
}

func (m *MySQL) Open(ctx context.Context, profile domain.ConnectionProfile) (domain.Session, error) {
	db, err := openAndPing(ctx, "mysql", m.DSN(profile), m.connectTimeout)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (m *MySQL) connArgs(profile domain.ConnectionProfile) []string {
	return []string{
		fmt.Sprintf("--host=%s", profile.Host),
		fmt.Sprintf("--port=%d", profile.Port),
		fmt.Sprintf("--user=%s", profile.Username),
	}
}

// env passes the password through MYSQL_PWD so it never shows up in the
// process list.
func (m *MySQL) env(profile domain.ConnectionProfile) []string {
	return []string{"MYSQL_PWD=" + profile.Password}
}

func (m *MySQL) DumpCommand(profile domain.ConnectionProfile, tools domain.ToolPaths, outputPath string) (domain.Command, error) {
	if tools.MySQLDump == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "mysqldump", Engine: domain.EngineMySQL}
	}
	args := append(m.connArgs(profile),
		"--single-transaction",
		"--routines",
		"--triggers",
		profile.Database,
	)
	return domain.Command{
		Path:       tools.MySQLDump,
		Args:       args,
		Env:        m.env(profile),
		OutputFile: outputPath,
	}, nil
}

func (m *MySQL) RestoreCommand(profile domain.ConnectionProfile, tools domain.ToolPaths, inputPath string) (domain.Command, error) {
	if tools.MySQL == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "mysql", Engine: domain.EngineMySQL}
	}
	return domain.Command{
		Path:      tools.MySQL,
		Args:      append(m.connArgs(profile), profile.Database),
		Env:       m.env(profile),
		InputFile: inputPath,
	}, nil
}

func (m *MySQL) ListUsers(ctx context.Context, q domain.Querier) ([]domain.User, error) {
	rows, err := q.QueryContext(ctx, mysqlListUsers)
	if err != nil {
		return nil, fmt.Errorf("query mysql.user: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.Host); err != nil {
			return nil, fmt.Errorf("scan mysql.user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (m *MySQL) UserStatements(req domain.UserRequest) ([]domain.Statement, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}

	switch req.Operation {
	case domain.UserCreate:
		privs, err := normalizePrivileges(req.Privileges, mysqlPrivileges)
		if err != nil {
			return nil, err
		}
		stmts := []domain.Statement{{
			Query: "CREATE USER ?@'localhost' IDENTIFIED BY ?",
			Args:  []any{req.Username, req.Password},
		}}
		for _, priv := range privs {
			stmts = append(stmts, domain.Statement{
				Query: fmt.Sprintf("GRANT %s ON *.* TO ?@'localhost'", priv),
				Args:  []any{req.Username},
			})
		}
		return stmts, nil
	case domain.UserDrop:
		return []domain.Statement{{Query: "DROP USER ?@'localhost'", Args: []any{req.Username}}}, nil
	}
	return nil, fmt.Errorf("unsupported MySQL user operation %q", req.Operation)
}
