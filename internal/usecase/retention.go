package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semmidev/custos/internal/domain"
	"github.com/spf13/afero"
)

const DefaultKeep = 3

// Retention keeps the newest artifacts in a directory and deletes the rest.
type Retention struct {
	fs     afero.Fs
	keep   int
	logger Logger
}

func NewRetention(fs afero.Fs, keep int, logger Logger) *Retention {
	if keep < 1 {
		keep = DefaultKeep
	}
	return &Retention{fs: fs, keep: keep, logger: logger}
}

func (r *Retention) Keep() int {
	return r.keep
}

// DirExists reports whether dir exists and is a directory.
func (r *Retention) DirExists(dir string) (bool, error) {
	return afero.DirExists(r.fs, dir)
}

// ListArtifacts returns the backup files in dir, newest first. A missing
// directory is an empty listing.
func (r *Retention) ListArtifacts(dir string) ([]domain.Artifact, error) {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.FilesystemError{Op: "read directory", Path: dir, Err: err}
	}

	artifacts := make([]domain.Artifact, 0, len(entries))
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !strings.HasSuffix(entry.Name(), domain.ArtifactExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		artifacts = append(artifacts, domain.Artifact{
			Filename:  entry.Name(),
			Path:      path,
			Size:      entry.Size(),
			CreatedAt: entry.ModTime(),
		})
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		a, b := artifacts[i], artifacts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Filename > b.Filename
	})
	return artifacts, nil
}

// Sweep deletes everything beyond the newest keep artifacts, oldest first,
// and returns the removed file names. A file that cannot be removed is
// logged and skipped.
func (r *Retention) Sweep(dir string) []string {
	artifacts, err := r.ListArtifacts(dir)
	if err != nil {
		r.logger.Warnf("Retention sweep of %s skipped: %v", dir, err)
		return nil
	}
	if len(artifacts) <= r.keep {
		return nil
	}

	var removed []string
	for i := len(artifacts) - 1; i >= r.keep; i-- {
		name := artifacts[i].Filename
		if err := r.fs.Remove(filepath.Join(dir, name)); err != nil {
			r.logger.Warnf("Could not remove old backup %s: %v", name, err)
			continue
		}
		r.logger.Infof("Removed old backup: %s", name)
		removed = append(removed, name)
	}
	return removed
}
