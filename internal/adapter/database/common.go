package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.$-]{0,62}$`)

func validateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("invalid username %q", name)
	}
	return nil
}

// normalizePrivileges upper-cases and checks each entry against allowed.
func normalizePrivileges(privs []string, allowed map[string]bool) ([]string, error) {
	out := make([]string, 0, len(privs))
	for _, p := range privs {
		p = strings.ToUpper(strings.Join(strings.Fields(p), " "))
		if p == "" {
			continue
		}
		if !allowed[p] {
			return nil, fmt.Errorf("unsupported privilege %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// openAndPing opens a pool for driver and verifies it within timeout.
// User operations and dumps run one at a time, so the pool stays small.
func openAndPing(ctx context.Context, driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
