package backstop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"
)

// CommandResult holds the output of a single command execution.
type CommandResult struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// CommandExecutor abstracts process execution so runners can be tested
// without Node installed.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args []string) (*CommandResult, error)
}

// RealExecutor runs commands via os/exec. When Echo is set, output is also
// streamed there as it is produced.
type RealExecutor struct {
	Echo io.Writer
}

// Execute runs command with args. A non-zero exit is reported through
// ExitCode, not as an error; errors mean the process could not run.
// On Windows a missing executable is retried through cmd.exe /C so that
// npx.cmd shims resolve.
func (r *RealExecutor) Execute(ctx context.Context, command string, args []string) (*CommandResult, error) {
	start := time.Now()
	var stdout, stderr bytes.Buffer

	run := func(name string, argv ...string) error {
		cmd := exec.CommandContext(ctx, name, argv...)
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if r.Echo != nil {
			cmd.Stdout = io.MultiWriter(&stdout, r.Echo)
			cmd.Stderr = io.MultiWriter(&stderr, r.Echo)
		}
		return cmd.Run()
	}

	err := run(command, args...)
	if err != nil && runtime.GOOS == "windows" && isExecNotFound(err) {
		stdout.Reset()
		stderr.Reset()
		cmdLine := command
		for _, a := range args {
			cmdLine += " " + a
		}
		err = run("cmd.exe", "/C", cmdLine)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("execute command %q: %w", command, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

func isExecNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr)
}
