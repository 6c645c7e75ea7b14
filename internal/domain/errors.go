package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected      = errors.New("not connected to a database")
	ErrUnsupportedEngine = errors.New("unsupported database engine")
	ErrToolNotConfigured = errors.New("tool not configured")
	ErrExternalTool      = errors.New("external tool failed")
	ErrConnection        = errors.New("connection failed")
	ErrFilesystem        = errors.New("filesystem error")
)

type UnsupportedEngineError struct {
	Engine string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported database type %q", e.Engine)
}

func (e *UnsupportedEngineError) Is(target error) bool {
	return target == ErrUnsupportedEngine
}

type ToolNotConfiguredError struct {
	Tool   string
	Engine Engine
}

func (e *ToolNotConfiguredError) Error() string {
	return fmt.Sprintf("%s tool not configured for %s. Please configure its path.", e.Tool, e.Engine)
}

func (e *ToolNotConfiguredError) Is(target error) bool {
	return target == ErrToolNotConfigured
}

// ExternalToolError is a nonzero exit from a dump, restore or load tool.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

func (e *ExternalToolError) Is(target error) bool {
	return target == ErrExternalTool
}

type ConnectionError struct {
	Engine Engine
	Host   string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s at %s: %v", e.Engine, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

func (e *FilesystemError) Is(target error) bool {
	return target == ErrFilesystem
}
