package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

type recordingOutput struct {
	notices []Notice
	lists   int
	paused  chan struct{} // signalled when a resume question is shown
}

func (o *recordingOutput) Notice(n Notice) {
	o.notices = append(o.notices, n)
	if o.paused != nil && strings.Contains(n.Text, "Resume the rest") {
		o.paused <- struct{}{}
	}
}

func (o *recordingOutput) ScenarioList(*scenario.Catalog) { o.lists++ }

func (o *recordingOutput) saw(text string) bool {
	for _, n := range o.notices {
		if strings.Contains(n.Text, text) {
			return true
		}
	}
	return false
}

// gatedRunner announces each call on started and then waits for gate.
type gatedRunner struct {
	started chan string
	gate    chan struct{}
	fail    map[string]bool

	mu    sync.Mutex
	calls []string
}

func (r *gatedRunner) Run(ctx context.Context, action backstop.Action, s scenario.Scenario) error {
	call := fmt.Sprintf("%s:%s", s.Name, action)
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- call
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.fail[call] {
		return errors.New("exit status 1")
	}
	return nil
}

func (r *gatedRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// newTestSession builds a session whose scenarios all have references and
// test captures, so no action is downgraded.
func newTestSession(t *testing.T, r backstop.Runner, names ...string) (*Session, *recordingOutput) {
	t.Helper()
	var list []scenario.Scenario
	store := newFakeStore()
	for _, n := range names {
		list = append(list, scenario.Scenario{Name: n, PrimaryURL: "https://example.com"})
		store.refs[n] = true
		store.tests[n] = true
	}
	m, err := NewMachine(scenario.NewCatalog(list), store, browser.Firefox)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	out := &recordingOutput{}
	return NewSession(m, r, out), out
}

func runAsync(ctx context.Context, s *Session, lines <-chan string) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, lines) }()
	return errc
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func feed(lines ...string) <-chan string {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return ch
}

func TestSession_AutoRun(t *testing.T) {
	r := &gatedRunner{}
	s, out := newTestSession(t, r, "A", "B")

	if err := waitRun(t, runAsync(context.Background(), s, feed("a", "y"))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(r.Calls(), " "); got != "A:test B:test" {
		t.Fatalf("calls = %q", got)
	}
	st := s.State()
	if st.Mode != Manual || st.Busy {
		t.Fatalf("state = %+v", st)
	}
	if !out.saw("All runs completed.") {
		t.Fatal("missing completion notice")
	}
}

func TestSession_PauseWhileRunning(t *testing.T) {
	r := &gatedRunner{started: make(chan string), gate: make(chan struct{})}
	s, out := newTestSession(t, r, "A", "B", "C")
	out.paused = make(chan struct{}, 1)
	lines := make(chan string)
	errc := runAsync(context.Background(), s, lines)

	lines <- "a"
	lines <- "y"
	if call := <-r.started; call != "A:test" {
		t.Fatalf("first call = %q", call)
	}
	lines <- ""
	r.gate <- struct{}{}
	<-out.paused

	lines <- "n"
	close(lines)
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(r.Calls(), " "); got != "A:test" {
		t.Fatalf("calls = %q", got)
	}
	if !out.saw("Pausing after scenario 0 (A) finishes.") {
		t.Fatal("missing pause notice")
	}
	if st := s.State(); st.Mode != Manual {
		t.Fatalf("mode = %s, want manual", st.Mode)
	}
}

func TestSession_ContextCancel(t *testing.T) {
	r := &gatedRunner{started: make(chan string, 1), gate: make(chan struct{})}
	s, _ := newTestSession(t, r, "A")
	ctx, cancel := context.WithCancel(context.Background())
	lines := make(chan string, 4)
	lines <- "m"
	lines <- ""
	lines <- "y"
	lines <- "t"
	errc := runAsync(ctx, s, lines)

	<-r.started
	cancel()
	if err := waitRun(t, errc); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSession_CombineReports(t *testing.T) {
	s, out := newTestSession(t, &gatedRunner{}, "A")
	var called int
	s.Combiner = CombinerFunc(func(context.Context) error {
		called++
		return errors.New("no reports")
	})

	if err := waitRun(t, runAsync(context.Background(), s, feed("m", "combine reports"))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called != 1 {
		t.Fatalf("combiner called %d times", called)
	}
	if !out.saw("Combining reports failed: no reports") {
		t.Fatal("missing failure notice")
	}
	if st := s.State(); st.Busy || st.Mode != Manual {
		t.Fatalf("state = %+v", st)
	}
}

func TestSession_CombineNotConfigured(t *testing.T) {
	s, out := newTestSession(t, &gatedRunner{}, "A")
	if err := waitRun(t, runAsync(context.Background(), s, feed("m", "combine reports"))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.saw("not configured") {
		t.Fatal("missing notice")
	}
}

func TestSession_ShowList(t *testing.T) {
	s, out := newTestSession(t, &gatedRunner{}, "A")
	if err := waitRun(t, runAsync(context.Background(), s, feed("m", "show list"))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.lists != 1 {
		t.Fatalf("lists = %d, want 1", out.lists)
	}
}

func TestSession_Trace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "run_trace.jsonl")
	tw, err := NewTraceWriter(path)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}
	r := &gatedRunner{fail: map[string]bool{"B:test": true}}
	s, _ := newTestSession(t, r, "A", "B")
	s.Trace = tw

	if err := waitRun(t, runAsync(context.Background(), s, feed("a", "y"))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs, err := ReadTrace(path)
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if !recs[0].Succeeded || recs[0].Scenario != "A" || recs[0].Engine != "firefox" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Succeeded || recs[1].Error != "exit status 1" || recs[1].Index != 1 {
		t.Errorf("record 1 = %+v", recs[1])
	}
}
