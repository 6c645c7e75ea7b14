package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/semmidev/custos/internal/domain"
)

const pgListUsers = `SELECT usename, usesuper, usecreatedb, userepl, usebypassrls
FROM pg_catalog.pg_user
ORDER BY usename`

var pgPrivileges = map[string]bool{
	"SUPERUSER":   true,
	"CREATEDB":    true,
	"CREATEROLE":  true,
	"REPLICATION": true,
	"BYPASSRLS":   true,
	"INHERIT":     true,
	"LOGIN":       true,
}

type PostgreSQL struct {
	connectTimeout time.Duration
}

func NewPostgreSQL(connectTimeout time.Duration) *PostgreSQL {
	return &PostgreSQL{connectTimeout: connectTimeout}
}

func (p *PostgreSQL) Engine() domain.Engine {
	return domain.EnginePostgres
}

// DSN renders the profile as a postgres:// URL understood by pgx.
func (p *PostgreSQL) DSN(profile domain.ConnectionProfile) string {
	q := url.Values{}
	if profile.SSLMode != "" {
		q.Set("sslmode", profile.SSLMode)
	}
	if p.connectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(p.connectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(profile.Username, profile.Password),
		Host:     net.JoinHostPort(profile.Host, strconv.Itoa(profile.Port)),
		Path:     "/" + profile.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (p *PostgreSQL) Open(ctx context.Context, profile domain.ConnectionProfile) (domain.Session, error) {
	db, err := openAndPing(ctx, "pgx", p.DSN(profile), p.connectTimeout)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p *PostgreSQL) env(profile domain.ConnectionProfile) []string {
	env := []string{"PGPASSWORD=" + profile.Password}
	if profile.SSLMode != "" {
		env = append(env, "PGSSLMODE="+profile.SSLMode)
	}
	return env
}

func (p *PostgreSQL) connArgs(profile domain.ConnectionProfile) []string {
	return []string{
		fmt.Sprintf("--host=%s", profile.Host),
		fmt.Sprintf("--port=%d", profile.Port),
		fmt.Sprintf("--username=%s", profile.Username),
		"--no-password",
	}
}

func (p *PostgreSQL) DumpCommand(profile domain.ConnectionProfile, tools domain.ToolPaths, outputPath string) (domain.Command, error) {
	if tools.PgDump == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "pg_dump", Engine: domain.EnginePostgres}
	}
	args := append(p.connArgs(profile),
		"--format=plain",
		fmt.Sprintf("--file=%s", outputPath),
		profile.Database,
	)
	return domain.Command{Path: tools.PgDump, Args: args, Env: p.env(profile)}, nil
}

func (p *PostgreSQL) RestoreCommand(profile domain.ConnectionProfile, tools domain.ToolPaths, inputPath string) (domain.Command, error) {
	if tools.PgRestore == "" {
		return domain.Command{}, &domain.ToolNotConfiguredError{Tool: "pg_restore", Engine: domain.EnginePostgres}
	}
	args := append(p.connArgs(profile),
		fmt.Sprintf("--dbname=%s", profile.Database),
		inputPath,
	)
	return domain.Command{Path: tools.PgRestore, Args: args, Env: p.env(profile)}, nil
}

func (p *PostgreSQL) ListUsers(ctx context.Context, q domain.Querier) ([]domain.User, error) {
	rows, err := q.QueryContext(ctx, pgListUsers)
	if err != nil {
		return nil, fmt.Errorf("query pg_user: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			name                                 string
			superuser, createDB, repl, bypassRLS bool
		)
		if err := rows.Scan(&name, &superuser, &createDB, &repl, &bypassRLS); err != nil {
			return nil, fmt.Errorf("scan pg_user: %w", err)
		}
		users = append(users, domain.User{
			Username:    name,
			Superuser:   &superuser,
			CreateDB:    &createDB,
			Replication: &repl,
			BypassRLS:   &bypassRLS,
		})
	}
	return users, rows.Err()
}

// UserStatements builds DDL for req. PostgreSQL cannot bind parameters in
// role DDL, so the name is quoted as an identifier and the password as a
// string literal.
func (p *PostgreSQL) UserStatements(req domain.UserRequest) ([]domain.Statement, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	ident := pgx.Identifier{req.Username}.Sanitize()

	switch req.Operation {
	case domain.UserCreate:
		privs, err := normalizePrivileges(req.Privileges, pgPrivileges)
		if err != nil {
			return nil, err
		}
		create := "CREATE USER " + ident
		if req.Password != "" {
			create += " WITH PASSWORD " + quoteLiteral(req.Password)
		}
		stmts := []domain.Statement{{Query: create}}
		for _, priv := range privs {
			if priv == "LOGIN" {
				// CREATE USER already implies LOGIN
				continue
			}
			stmts = append(stmts, domain.Statement{Query: fmt.Sprintf("ALTER USER %s WITH %s", ident, priv)})
		}
		return stmts, nil
	case domain.UserDrop:
		return []domain.Statement{{Query: "DROP USER " + ident}}, nil
	}
	return nil, fmt.Errorf("unsupported PostgreSQL user operation %q", req.Operation)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
