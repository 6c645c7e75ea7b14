package domain

import (
	"context"
	"time"
)

// Storage is a mirror target receiving copies of finished backups.
// Targets that cannot list or delete return empty results and nil.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}
