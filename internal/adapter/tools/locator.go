package tools

import (
	"os/exec"

	"github.com/semmidev/custos/internal/domain"
)

// Swapped in tests.
var lookPath = exec.LookPath

const (
	PgDump    = "pg_dump"
	PgRestore = "pg_restore"
	MySQLDump = "mysqldump"
	MySQL     = "mysql"
)

// Lookup searches PATH for every tool. Missing tools are left empty.
func Lookup() domain.ToolPaths {
	return domain.ToolPaths{
		PgDump:    find(PgDump),
		PgRestore: find(PgRestore),
		MySQLDump: find(MySQLDump),
		MySQL:     find(MySQL),
	}
}

// Fill keeps every configured path and resolves only the empty ones.
func Fill(current domain.ToolPaths) domain.ToolPaths {
	found := Lookup()
	if current.PgDump == "" {
		current.PgDump = found.PgDump
	}
	if current.PgRestore == "" {
		current.PgRestore = found.PgRestore
	}
	if current.MySQLDump == "" {
		current.MySQLDump = found.MySQLDump
	}
	if current.MySQL == "" {
		current.MySQL = found.MySQL
	}
	return current
}

// Merge overlays the tools found on PATH onto current; tools that were not
// found keep their configured value.
func Merge(current, found domain.ToolPaths) domain.ToolPaths {
	if found.PgDump != "" {
		current.PgDump = found.PgDump
	}
	if found.PgRestore != "" {
		current.PgRestore = found.PgRestore
	}
	if found.MySQLDump != "" {
		current.MySQLDump = found.MySQLDump
	}
	if found.MySQL != "" {
		current.MySQL = found.MySQL
	}
	return current
}

func find(name string) string {
	path, err := lookPath(name)
	if err != nil {
		return ""
	}
	return path
}
