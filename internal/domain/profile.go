package domain

import (
	"context"
	"database/sql"
)

type ConnectionProfile struct {
	Engine   Engine
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// Complete reports whether the profile carries everything needed to connect.
func (p ConnectionProfile) Complete() bool {
	return p.Engine != "" && p.Host != "" && p.Port > 0 && p.Database != "" && p.Username != ""
}

// Querier is the read side of a session.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session is a live database handle. *sql.DB satisfies it.
type Session interface {
	Querier
	PingContext(ctx context.Context) error
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// Database is an engine adapter: how to open a session, which external
// tools to invoke and which SQL drives user administration.
type Database interface {
	Engine() Engine
	Open(ctx context.Context, profile ConnectionProfile) (Session, error)
	DumpCommand(profile ConnectionProfile, tools ToolPaths, outputPath string) (Command, error)
	RestoreCommand(profile ConnectionProfile, tools ToolPaths, inputPath string) (Command, error)
	ListUsers(ctx context.Context, q Querier) ([]User, error)
	UserStatements(req UserRequest) ([]Statement, error)
}
