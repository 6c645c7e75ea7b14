package domain

import "context"

// Command describes one external tool invocation. Env entries are appended
// to the parent environment. OutputFile receives stdout, InputFile feeds stdin.
type Command struct {
	Path       string
	Args       []string
	Env        []string
	InputFile  string
	OutputFile string
}

type ProcessResult struct {
	ExitCode int
	Stderr   string
}

// Runner executes a command to completion. A nonzero exit is reported in the
// result; the error is reserved for launch failures and cancellation.
type Runner interface {
	Run(ctx context.Context, cmd Command) (ProcessResult, error)
}
