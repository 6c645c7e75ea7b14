package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/afero"

	"github.com/semmidev/custos/internal/domain"
)

// Runner spawns external tools with os/exec. Redirected stdin and stdout
// files are opened through fs, the same filesystem the executor uses for
// directories and partial-artifact cleanup.
type Runner struct {
	fs afero.Fs

	// WaitDelay bounds how long Wait keeps draining pipes after the
	// process has been killed on cancellation.
	WaitDelay time.Duration
}

func NewRunner(fs afero.Fs) *Runner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Runner{fs: fs, WaitDelay: 5 * time.Second}
}

func (r *Runner) Run(ctx context.Context, c domain.Command) (domain.ProcessResult, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = r.WaitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if c.InputFile != "" {
		in, err := r.fs.Open(c.InputFile)
		if err != nil {
			return domain.ProcessResult{}, &domain.FilesystemError{Op: "open input", Path: c.InputFile, Err: err}
		}
		defer in.Close()
		cmd.Stdin = in
	}

	if c.OutputFile != "" {
		out, err := r.fs.OpenFile(c.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return domain.ProcessResult{}, &domain.FilesystemError{Op: "create output", Path: c.OutputFile, Err: err}
		}
		defer out.Close()
		cmd.Stdout = out
	}

	return classify(ctx, c.Path, cmd.Run(), stderr.String())
}

// classify maps the result of cmd.Run. A clean exit wins over a context that
// expired after the process was already done.
func classify(ctx context.Context, path string, err error, stderr string) (domain.ProcessResult, error) {
	result := domain.ProcessResult{Stderr: stderr}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, fmt.Errorf("%s timed out: %w", path, ctxErr)
		}
		return result, fmt.Errorf("%s cancelled: %w", path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("start %s: %w", path, err)
}
