package runner

import (
	"context"
	"time"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Output renders what the session has to say.
type Output interface {
	Notice(n Notice)
	ScenarioList(cat *scenario.Catalog)
}

// Combiner merges the HTML reports on request.
type Combiner interface {
	Combine(ctx context.Context) error
}

// CombinerFunc adapts a function to Combiner.
type CombinerFunc func(ctx context.Context) error

// Combine calls f.
func (f CombinerFunc) Combine(ctx context.Context) error { return f(ctx) }

// Session drives a Machine from operator lines. Its Run loop is the only
// goroutine that touches the state; BackstopJS runs in a worker goroutine
// and reports back over a channel, so input keeps flowing while an action
// is in flight.
type Session struct {
	Machine  *Machine
	Runner   backstop.Runner
	Combiner Combiner // nil disables "combine reports"
	Out      Output
	Trace    *TraceWriter // optional

	state State
	now   func() time.Time
}

type outcome struct {
	task     Task
	err      error
	started  time.Time
	combined bool
}

// NewSession creates a session in the initial state.
func NewSession(m *Machine, r backstop.Runner, out Output) *Session {
	return &Session{Machine: m, Runner: r, Out: out, state: NewState(), now: time.Now}
}

// State returns the current state. It is only safe to call when Run is
// not executing.
func (s *Session) State() State { return s.state }

// Run processes lines until ctx is cancelled or lines is closed. After
// lines closes, Run waits for the in-flight action chain to finish.
func (s *Session) Run(ctx context.Context, lines <-chan string) error {
	done := make(chan outcome, 1)
	s.apply(ctx, s.Machine.Start(s.state), done)

	for {
		if lines == nil && !s.state.Busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			next, effects := s.Machine.Step(s.state, line)
			s.state = next
			s.apply(ctx, effects, done)
		case res := <-done:
			s.finish(ctx, res, done)
		}
	}
}

func (s *Session) apply(ctx context.Context, effects []Effect, done chan<- outcome) {
	for _, e := range effects {
		switch e := e.(type) {
		case Notice:
			s.Out.Notice(e)
		case ShowList:
			s.Out.ScenarioList(s.Machine.Catalog)
		case RunTask:
			s.start(ctx, e.Task, done)
		case CombineReports:
			s.combine(ctx, done)
		}
	}
}

func (s *Session) start(ctx context.Context, t Task, done chan<- outcome) {
	next, task, effects := s.Machine.Dispatch(s.state, t)
	s.state = next
	s.apply(ctx, effects, done)

	sc := s.Machine.Catalog.At(task.Index)
	started := s.now()
	go func() {
		err := s.Runner.Run(ctx, task.Effective, sc)
		done <- outcome{task: task, err: err, started: started}
	}()
}

func (s *Session) combine(ctx context.Context, done chan<- outcome) {
	if s.Combiner == nil {
		s.Out.Notice(errorf("Combining reports is not configured."))
		done <- outcome{combined: true}
		return
	}
	go func() {
		done <- outcome{combined: true, err: s.Combiner.Combine(ctx)}
	}()
}

func (s *Session) finish(ctx context.Context, res outcome, done chan<- outcome) {
	if res.combined {
		if res.err != nil {
			s.Out.Notice(errorf("Combining reports failed: %v", res.err))
		}
		next, effects := s.Machine.Idle(s.state)
		s.state = next
		s.apply(ctx, effects, done)
		return
	}

	s.record(res)
	next, task, effects := s.Machine.Complete(s.state, res.task, res.err)
	s.state = next
	s.apply(ctx, effects, done)
	if task != nil {
		s.start(ctx, *task, done)
	}
}

func (s *Session) record(res outcome) {
	if s.Trace == nil {
		return
	}
	sc := s.Machine.Catalog.At(res.task.Index)
	rec := ActionRecord{
		Timestamp: s.now(),
		Engine:    string(s.Machine.Engine),
		Index:     res.task.Index,
		Scenario:  sc.Name,
		Requested: res.task.Requested,
		Effective: res.task.Effective,
		Succeeded: res.err == nil,
		Duration:  s.now().Sub(res.started),
	}
	if res.err != nil {
		rec.Error = res.err.Error()
	}
	if err := s.Trace.Write(rec); err != nil {
		s.Out.Notice(errorf("Writing run trace failed: %v", err))
	}
}
