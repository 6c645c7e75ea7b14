package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// LocalStorage mirrors backups into a second directory, typically a mounted
// volume on another disk.
type LocalStorage struct {
	fs       afero.Fs
	basePath string
}

func NewLocal(fs afero.Fs, basePath string) (*LocalStorage, error) {
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &LocalStorage{fs: fs, basePath: basePath}, nil
}

func (l *LocalStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	source, err := l.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	// Write under a temporary name so a listing never sees a partial copy.
	destPath := l.GetPath(remoteName)
	tmpPath := destPath + ".part"
	dest, err := l.fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		l.fs.Remove(tmpPath)
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := dest.Close(); err != nil {
		l.fs.Remove(tmpPath)
		return fmt.Errorf("failed to close dest: %w", err)
	}

	if err := l.fs.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", remoteName, err)
	}
	return nil
}

func (l *LocalStorage) List(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) != ".part" {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

func (l *LocalStorage) Delete(ctx context.Context, remoteName string) error {
	if err := l.fs.Remove(l.GetPath(remoteName)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var oldFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && entry.ModTime().Before(cutoffTime) {
			oldFiles = append(oldFiles, entry.Name())
		}
	}

	return oldFiles, nil
}

func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filepath.Base(filename))
}
