// Package backstop invokes the BackstopJS command-line tool for one
// scenario at a time. Capture and comparison happen entirely inside
// BackstopJS; this package only builds its configuration and reports
// whether the run succeeded.
package backstop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Action is a BackstopJS command.
type Action string

const (
	None      Action = ""
	Reference Action = "reference"
	Test      Action = "test"
	Approve   Action = "approve"
)

// ErrUnknownAction is returned by ParseAction for unrecognized keywords.
var ErrUnknownAction = errors.New("unknown action")

// ParseAction accepts the full keyword or its first letter, ignoring case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test", "t":
		return Test, nil
	case "approve", "a":
		return Approve, nil
	case "reference", "r":
		return Reference, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Runner executes one BackstopJS action for one scenario. A nil error
// means BackstopJS reported success.
type Runner interface {
	Run(ctx context.Context, action Action, s scenario.Scenario) error
}

// CLIRunner runs `<Command> <Args...> <action> --config=<file>` with a
// configuration generated per scenario.
type CLIRunner struct {
	Command  string
	Args     []string
	Engine   browser.Engine
	Layout   artifact.Layout
	Executor CommandExecutor
}

// Run writes the scenario's configuration to a temporary JSON file and
// invokes BackstopJS with it.
func (r *CLIRunner) Run(ctx context.Context, action Action, s scenario.Scenario) error {
	cfg := NewConfig(r.Engine, r.Layout, s)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backstop config: %w", err)
	}

	f, err := os.CreateTemp("", "backstop-*.json")
	if err != nil {
		return fmt.Errorf("create backstop config: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write backstop config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write backstop config: %w", err)
	}

	args := append(append([]string(nil), r.Args...), string(action), "--config="+f.Name())
	res, err := r.Executor.Execute(ctx, r.Command, args)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &ExitError{Action: action, Scenario: s.Name, Code: res.ExitCode, Stderr: lastLine(res.Stderr)}
	}
	return nil
}

// ExitError reports a BackstopJS run that exited non-zero. For test this
// usually means a visual mismatch.
type ExitError struct {
	Action   Action
	Scenario string
	Code     int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("backstop %s for %q exited with code %d", e.Action, e.Scenario, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(bytes.TrimSpace(b))
}
