package domain

import "strings"

// Engine identifies the relational database product a profile targets.
type Engine string

const (
	EnginePostgres Engine = "PostgreSQL"
	EngineMySQL    Engine = "MySQL"
)

// ParseEngine accepts the canonical names and the usual aliases, case-insensitively.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgresql", "postgres", "pg":
		return EnginePostgres, nil
	case "mysql", "mariadb":
		return EngineMySQL, nil
	}
	return "", &UnsupportedEngineError{Engine: s}
}

func (e Engine) String() string {
	return string(e)
}
