package domain

import (
	"context"
	"time"
)

type Event struct {
	Database string
	Engine   Engine
	Status   string
	Trigger  Trigger
	Path     string
	Bytes    int64
	Duration time.Duration
	Error    string
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
