package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/semmidev/custos/internal/domain"
)

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

// Mirror copies finished artifacts to off-host targets, optionally
// compressed, then prunes each target.
type Mirror struct {
	targets    []UploadTarget
	compressor domain.Compressor
	cleanup    *Cleanup
	logger     Logger
	recorder   Recorder
	tempDir    string
}

// NewMirror builds a mirror. A nil compressor uploads the plain artifact and
// a nil cleanup skips pruning.
func NewMirror(targets []UploadTarget, compressor domain.Compressor, cleanup *Cleanup, logger Logger, recorder Recorder) *Mirror {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Mirror{
		targets:    targets,
		compressor: compressor,
		cleanup:    cleanup,
		logger:     logger,
		recorder:   recorder,
		tempDir:    os.TempDir(),
	}
}

func (m *Mirror) Targets() []UploadTarget {
	return m.targets
}

// Push uploads the artifact at localPath to every target. The local artifact
// is never modified.
func (m *Mirror) Push(ctx context.Context, localPath string) error {
	if len(m.targets) == 0 {
		return nil
	}

	filePath, filename := localPath, filepath.Base(localPath)

	if m.compressor != nil {
		compressedPath, compressedFilename, err := m.compressBackup(localPath, filename)
		if err != nil {
			return err
		}
		defer os.Remove(compressedPath)
		filePath, filename = compressedPath, compressedFilename
	}

	err := m.uploadToTargets(ctx, filePath, filename)

	if m.cleanup != nil {
		if cErr := m.cleanup.Execute(ctx); cErr != nil {
			m.logger.Warnf("Mirror cleanup failed: %v", cErr)
		}
	}

	return err
}

func (m *Mirror) compressBackup(localPath, filename string) (string, string, error) {
	compressedFilename := filename + m.compressor.Ext()
	compressedPath := filepath.Join(m.tempDir, compressedFilename)

	m.logger.Infof("Compressing %s for mirroring...", filename)
	if err := m.compressor.Compress(localPath, compressedPath); err != nil {
		return "", "", fmt.Errorf("compression: %w", err)
	}

	original, err := os.Stat(localPath)
	if err != nil {
		return compressedPath, compressedFilename, nil
	}
	if compressed, err := os.Stat(compressedPath); err == nil && original.Size() > 0 {
		m.logger.Infof("Compression complete, size: %.2f MB (%.1f%% of original)",
			float64(compressed.Size())/(1024*1024),
			float64(compressed.Size())/float64(original.Size())*100)
	}

	return compressedPath, compressedFilename, nil
}

func (m *Mirror) uploadToTargets(ctx context.Context, filePath, filename string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, target := range m.targets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			m.logger.Infof("Uploading %s to %s...", filename, t.Name)
			err := t.Storage.Upload(ctx, filePath, filename)
			m.recorder.MirrorUpload(t.Name, err == nil)
			if err != nil {
				m.logger.Errorf("Failed to upload to %s: %v", t.Name, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				mu.Unlock()
				return
			}
			m.logger.Infof("Successfully uploaded to %s", t.Name)
		}(target)
	}

	wg.Wait()
	return errors.Join(errs...)
}
