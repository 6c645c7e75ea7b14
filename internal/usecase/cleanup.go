package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Cleanup prunes mirror targets by age and by count. A zero value for
// either limit disables it.
type Cleanup struct {
	uploadTargets []UploadTarget
	logger        Logger
	retentionDays int
	keep          int
	now           func() time.Time
}

func NewCleanup(
	uploadTargets []UploadTarget,
	logger Logger,
	retentionDays int,
	keep int,
) *Cleanup {
	return &Cleanup{
		uploadTargets: uploadTargets,
		logger:        logger,
		retentionDays: retentionDays,
		keep:          keep,
		now:           time.Now,
	}
}

func (uc *Cleanup) Execute(ctx context.Context) error {
	if uc.retentionDays <= 0 && uc.keep <= 0 {
		return nil
	}
	uc.logger.Infof("Starting mirror cleanup, retention: %d days, keep: %d", uc.retentionDays, uc.keep)

	var cutoff time.Time
	if uc.retentionDays > 0 {
		cutoff = uc.now().AddDate(0, 0, -uc.retentionDays)
	}

	if len(uc.uploadTargets) > 0 {
		uc.cleanupTargets(ctx, cutoff)
	}

	uc.logger.Infof("Mirror cleanup completed")
	return nil
}

func (uc *Cleanup) cleanupTargets(ctx context.Context, cutoff time.Time) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := uc.cleanupTarget(ctx, t, cutoff); err != nil {
				uc.logger.Errorf("Cleanup failed for %s: %v", t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Cleanup) cleanupTarget(ctx context.Context, target UploadTarget, cutoff time.Time) error {
	doomed := make(map[string]struct{})

	if !cutoff.IsZero() {
		files, err := target.Storage.GetOldFiles(ctx, cutoff)
		if err != nil {
			files, err = uc.fallbackListFiles(ctx, target, cutoff)
			if err != nil {
				return err
			}
		}
		for _, f := range files {
			doomed[f] = struct{}{}
		}
	}

	if uc.keep > 0 {
		files, err := target.Storage.List(ctx)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		for _, f := range beyondNewest(files, uc.keep) {
			doomed[f] = struct{}{}
		}
	}

	names := make([]string, 0, len(doomed))
	for f := range doomed {
		names = append(names, f)
	}
	sort.Strings(names)

	deleted := 0
	for _, filename := range names {
		uc.logger.Infof("Deleting old backup from %s: %s", target.Name, filename)

		if err := target.Storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", filename, target.Name, err)
		} else {
			deleted++
		}
	}

	if deleted > 0 {
		uc.logger.Infof("Deleted %d old backup(s) from %s", deleted, target.Name)
	}
	return nil
}

func (uc *Cleanup) fallbackListFiles(ctx context.Context, target UploadTarget, cutoff time.Time) ([]string, error) {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	oldFiles := make([]string, 0)
	for _, filename := range files {
		timestamp, err := extractTimestamp(filename)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", filename, err)
			continue
		}

		if timestamp.Before(cutoff) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}
