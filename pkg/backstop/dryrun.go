package backstop

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Call records one invocation seen by DryRunner.
type Call struct {
	Action   Action
	Scenario string
}

// DryRunner stands in for BackstopJS: it succeeds without capturing
// anything but creates the bitmap directories a real run would, so the
// promotion chain behaves as it would against real artifacts.
type DryRunner struct {
	Engine browser.Engine
	Layout artifact.Layout

	mu    sync.Mutex
	calls []Call
}

// Run records the call and creates the directory the action would produce.
func (d *DryRunner) Run(ctx context.Context, action Action, s scenario.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.calls = append(d.calls, Call{Action: action, Scenario: s.Name})
	d.mu.Unlock()

	paths := d.Layout.For(d.Engine, s)
	var dir string
	switch action {
	case Reference:
		dir = paths.BitmapsReference
	case Test:
		dir = paths.BitmapsTest
	default:
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dry run %s: %w", action, err)
	}
	return nil
}

// Calls returns the invocations recorded so far.
func (d *DryRunner) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}
