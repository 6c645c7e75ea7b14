package domain

import (
	"fmt"
	"time"
)

const (
	ArtifactExt     = ".sql"
	TimestampLayout = "20060102_150405"
)

type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerForced    Trigger = "forced"
)

// Artifact is a backup file found on disk. It is never cached; every
// listing re-derives it from the directory.
type Artifact struct {
	Filename  string
	Path      string
	Size      int64
	CreatedAt time.Time
}

type BackupRequest struct {
	Name      string
	Directory string
	Trigger   Trigger
}

// Outcome is the result shape of every mutating operation.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Succeeded(format string, args ...any) Outcome {
	return Outcome{Success: true, Message: fmt.Sprintf(format, args...)}
}

func Failed(format string, args ...any) Outcome {
	return Outcome{Success: false, Message: fmt.Sprintf(format, args...)}
}
