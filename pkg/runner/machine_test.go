package runner

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

type fakeStore struct {
	refs  map[string]bool
	tests map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{refs: map[string]bool{}, tests: map[string]bool{}}
}

func (f *fakeStore) HasReference(_ browser.Engine, s scenario.Scenario) bool { return f.refs[s.Name] }
func (f *fakeStore) HasTest(_ browser.Engine, s scenario.Scenario) bool      { return f.tests[s.Name] }

// harness runs the machine synchronously, standing in for Session.
type harness struct {
	t       *testing.T
	m       *Machine
	store   *fakeStore
	s       State
	fail    map[string]bool // "name:action"
	calls   []string
	notices []Notice
	combine int
	onCall  func(h *harness, call string)
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	var list []scenario.Scenario
	for _, n := range names {
		list = append(list, scenario.Scenario{Name: n, PrimaryURL: "https://example.com/" + strings.ToLower(n)})
	}
	store := newFakeStore()
	m, err := NewMachine(scenario.NewCatalog(list), store, browser.Chromium)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	h := &harness{t: t, m: m, store: store, s: NewState(), fail: map[string]bool{}}
	h.apply(m.Start(h.s))
	return h
}

func (h *harness) send(lines ...string) {
	h.t.Helper()
	for _, line := range lines {
		next, effects := h.m.Step(h.s, line)
		h.s = next
		h.checkBounds()
		h.apply(effects)
	}
}

func (h *harness) apply(effects []Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case Notice:
			h.notices = append(h.notices, e)
		case RunTask:
			h.run(e.Task)
		case CombineReports:
			h.combine++
		}
	}
}

func (h *harness) run(t Task) {
	for {
		next, task, effects := h.m.Dispatch(h.s, t)
		h.s = next
		h.apply(effects)

		sc := h.m.Catalog.At(task.Index)
		call := fmt.Sprintf("%s:%s", sc.Name, task.Effective)
		h.calls = append(h.calls, call)
		if h.onCall != nil {
			h.onCall(h, call)
		}

		var err error
		if h.fail[call] {
			err = errors.New("exit status 1")
		} else {
			switch task.Effective {
			case backstop.Reference:
				h.store.refs[sc.Name] = true
			case backstop.Test:
				h.store.tests[sc.Name] = true
			}
		}

		var follow *Task
		h.s, follow, effects = h.m.Complete(h.s, task, err)
		h.checkBounds()
		h.apply(effects)
		if follow == nil {
			return
		}
		t = *follow
	}
}

func (h *harness) checkBounds() {
	h.t.Helper()
	n := h.m.Catalog.Len()
	if h.s.CurrentIndex < 0 || h.s.CurrentIndex >= n {
		h.t.Fatalf("CurrentIndex = %d, outside [0, %d)", h.s.CurrentIndex, n)
	}
}

func (h *harness) saw(text string) bool {
	for _, n := range h.notices {
		if strings.Contains(n.Text, text) {
			return true
		}
	}
	return false
}

func (h *harness) wantCalls(want ...string) {
	h.t.Helper()
	if strings.Join(h.calls, " ") != strings.Join(want, " ") {
		h.t.Fatalf("calls = %v, want %v", h.calls, want)
	}
}

func (h *harness) wantMode(mode Mode, busy bool) {
	h.t.Helper()
	if h.s.Mode != mode || h.s.Busy != busy {
		h.t.Fatalf("mode = %s busy = %v, want %s busy = %v", h.s.Mode, h.s.Busy, mode, busy)
	}
}

func TestNewMachine_EmptyCatalog(t *testing.T) {
	_, err := NewMachine(scenario.NewCatalog(nil), newFakeStore(), browser.Chromium)
	if !errors.Is(err, scenario.ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestChooseMode_InvalidKeyword(t *testing.T) {
	h := newHarness(t, "A")
	h.send("x")
	h.wantMode(Choosing, false)
	last := h.notices[len(h.notices)-1]
	if last.Level != LevelError || !strings.Contains(last.Text, "auto/manual/a/m") {
		t.Fatalf("last notice = %+v", last)
	}
}

func TestAutoRun_NoArtifacts(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("a", "y")

	h.wantCalls("A:reference", "A:test", "B:reference", "B:test")
	h.wantMode(Manual, false)
	if h.s.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", h.s.CurrentIndex)
	}
	if !h.saw("All runs completed.") {
		t.Fatal("missing completion notice")
	}
	if !h.saw("Automatically starting test for next scenario, scenario 1 (B).") {
		t.Fatal("missing advance notice")
	}
}

func TestAutoRun_Declined(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("auto", "n")
	h.wantCalls()
	h.wantMode(Manual, false)
}

func TestAutoRun_ReferenceFailureStops(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.fail["A:reference"] = true
	h.send("a", "y")

	h.wantCalls("A:reference")
	h.wantMode(Manual, false)
	if h.s.CurrentIndex != 0 {
		t.Fatalf("CurrentIndex = %d, want 0", h.s.CurrentIndex)
	}
	if !h.saw("Automatically switched to manual mode.") {
		t.Fatal("missing switch notice")
	}
}

func TestAutoRun_TestFailureContinues(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.store.refs["A"] = true
	h.store.refs["B"] = true
	h.fail["A:test"] = true
	h.send("a", "y")

	h.wantCalls("A:test", "B:test")
	h.wantMode(Manual, false)
}

func TestManual_ApprovePromotesThroughChain(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("m", "", "y", "a")

	h.wantCalls("A:reference", "A:test", "A:approve")
	h.wantMode(Manual, false)
	if h.s.Step != Selecting {
		t.Fatalf("Step = %s, want %s", h.s.Step, Selecting)
	}
	if !h.saw("No previous tests exist for scenario 0 (A).") || !h.saw("No previous references exist for scenario 0 (A).") {
		t.Fatal("missing downgrade notices")
	}
}

func TestManual_ApproveWithTestOnly(t *testing.T) {
	h := newHarness(t, "A")
	h.store.refs["A"] = true
	h.send("m", "", "y", "approve")
	h.wantCalls("A:test", "A:approve")
}

func TestManual_FailedTestDoesNotApprove(t *testing.T) {
	h := newHarness(t, "A")
	h.store.refs["A"] = true
	h.fail["A:test"] = true
	h.send("m", "", "y", "a")
	h.wantCalls("A:test")
	h.wantMode(Manual, false)
}

func TestManual_Reference(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("m", "1", "y", "r")
	h.wantCalls("B:reference")
	if h.s.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", h.s.CurrentIndex)
	}
}

func TestManual_Selection(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	h.send("m")

	tests := []struct {
		line string
		want int
	}{
		{"++", 1},
		{"--", 0},
		{"c", 2},
		{"99", 0},
		{"", 0},
	}
	for _, tt := range tests {
		h.send(tt.line)
		if h.s.PendingIndex != tt.want || h.s.Step != Confirming {
			t.Fatalf("after %q: PendingIndex = %d step = %s, want %d confirming", tt.line, h.s.PendingIndex, h.s.Step, tt.want)
		}
		h.send("n")
		if h.s.CurrentIndex != 0 || h.s.Step != Selecting {
			t.Fatalf("after n: CurrentIndex = %d step = %s", h.s.CurrentIndex, h.s.Step)
		}
	}
}

func TestManual_StepAtBoundaries(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("m", "--")
	if h.s.PendingIndex != 0 {
		t.Fatalf("-- at 0: PendingIndex = %d", h.s.PendingIndex)
	}
	h.send("y", "t")
	h.send("1", "y", "t")
	h.send("++")
	if h.s.PendingIndex != 1 {
		t.Fatalf("++ at end: PendingIndex = %d", h.s.PendingIndex)
	}
}

func TestManual_InvalidAction(t *testing.T) {
	h := newHarness(t, "A")
	h.send("m", "", "y", "deploy")
	h.wantCalls()
	if h.s.Step != AwaitingAction {
		t.Fatalf("Step = %s, want %s", h.s.Step, AwaitingAction)
	}
}

func TestManual_InputWhileBusyIsDropped(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.onCall = func(h *harness, call string) {
		if call == "A:reference" {
			h.send("auto run")
		}
	}
	h.send("m", "", "y", "t")
	h.wantCalls("A:reference", "A:test")
	h.wantMode(Manual, false)
}

func TestManual_ShowList(t *testing.T) {
	h := newHarness(t, "A")
	h.send("m")
	next, effects := h.m.Step(h.s, "show list")
	if next.Step != Selecting {
		t.Fatalf("Step = %s", next.Step)
	}
	if _, ok := effects[0].(ShowList); !ok {
		t.Fatalf("first effect = %T, want ShowList", effects[0])
	}
}

func TestManual_CombineReports(t *testing.T) {
	h := newHarness(t, "A")
	h.send("m", "combine reports")
	if h.combine != 1 || !h.s.Busy {
		t.Fatalf("combine = %d busy = %v", h.combine, h.s.Busy)
	}
	h.send("auto run")
	h.wantMode(Manual, true)

	next, _ := h.m.Idle(h.s)
	if next.Busy || next.Mode != Manual {
		t.Fatalf("after Idle: %+v", next)
	}
}

func TestAutoRun_PauseFinishesChain(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	h.onCall = func(h *harness, call string) {
		if call == "A:reference" {
			h.send("")
		}
	}
	h.send("a", "y")

	h.wantCalls("A:reference", "A:test")
	h.wantMode(AutoPaused, false)
	if !h.saw("Resume the rest of the tests? (y/n)") {
		t.Fatal("missing resume question")
	}

	h.onCall = nil
	h.send("y")
	if h.s.Mode != AutoConfirming || h.s.PendingIndex != 1 {
		t.Fatalf("after resume: %+v", h.s)
	}
	h.send("y")
	h.wantCalls("A:reference", "A:test", "B:reference", "B:test", "C:reference", "C:test")
	h.wantMode(Manual, false)
	if !h.saw("Resuming automatic run starting from scenario 1 (B).") {
		t.Fatal("missing resuming notice")
	}
}

func TestAutoRun_PauseDeclined(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.onCall = func(h *harness, _ string) { h.send("stop") }
	h.send("a", "y", "n")
	h.wantCalls("A:reference", "A:test")
	h.wantMode(Manual, false)
}

func TestAutoRun_SecondPauseLineIgnored(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.onCall = func(h *harness, _ string) { h.send("", "") }
	h.send("a", "y")
	h.wantMode(AutoPaused, false)
}

func TestApproveAll_ForcesApproveAfterFailedTest(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.fail["A:test"] = true
	h.send("m", "approve all", "", "y")

	h.wantCalls("A:reference", "A:test", "A:approve", "B:reference", "B:test", "B:approve")
	h.wantMode(Manual, false)
}

func TestApproveAll_PauseAndResume(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.store.tests["A"] = true
	h.store.tests["B"] = true
	h.onCall = func(h *harness, call string) {
		if call == "A:approve" {
			h.send("")
		}
	}
	h.send("m", "approve all", "", "y")
	h.wantCalls("A:approve")
	h.wantMode(ApproveAllPaused, false)

	h.onCall = nil
	h.send("y")
	if h.s.Mode != ApproveAllStarting || h.s.Step != Confirming || h.s.PendingIndex != 1 {
		t.Fatalf("after resume: %+v", h.s)
	}
	h.send("y")
	h.wantCalls("A:approve", "B:approve")
	h.wantMode(Manual, false)
}

func TestConfirmResume_Index(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	tests := []struct {
		name  string
		state State
		want  int
	}{
		{"auto after reference", State{Mode: AutoPaused, CurrentIndex: 1, LastAction: backstop.Reference, LastActionSucceeded: true}, 1},
		{"auto after failed reference", State{Mode: AutoPaused, CurrentIndex: 1, LastAction: backstop.Reference}, 2},
		{"auto after test", State{Mode: AutoPaused, CurrentIndex: 0, LastAction: backstop.Test, LastActionSucceeded: true}, 1},
		{"approve all after test", State{Mode: ApproveAllPaused, CurrentIndex: 1, LastAction: backstop.Test}, 1},
		{"approve all after approve", State{Mode: ApproveAllPaused, CurrentIndex: 1, LastAction: backstop.Approve}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := h.m.Step(tt.state, "y")
			if next.PendingIndex != tt.want || !next.PendingResume {
				t.Fatalf("PendingIndex = %d resume = %v, want %d", next.PendingIndex, next.PendingResume, tt.want)
			}
		})
	}
}

func TestConfirmResume_PastEnd(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.s = State{Mode: AutoPaused, CurrentIndex: 1, LastAction: backstop.Test, LastActionSucceeded: true}
	h.send("y")
	h.wantMode(Manual, false)
	if !h.saw("All runs completed.") {
		t.Fatal("missing completion notice")
	}
}

func TestAutoStarting_FromChosenIndex(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	h.store.refs["B"] = true
	h.store.refs["C"] = true
	h.send("m", "auto run", "B")
	if !h.saw("All 2 scenarios starting from scenario 1 (B) will be tested in order.") {
		t.Fatalf("notices = %v", h.notices)
	}
	h.send("y")
	h.wantCalls("B:test", "C:test")
}

func TestAutoStarting_Declined(t *testing.T) {
	h := newHarness(t, "A", "B")
	h.send("m", "auto run", "", "n")
	h.wantCalls()
	h.wantMode(Manual, false)
}

func TestDispatch_KeepsResolvedAction(t *testing.T) {
	h := newHarness(t, "A")
	_, task, effects := h.m.Dispatch(NewState(), Task{Index: 0, Requested: backstop.Approve, Effective: backstop.Test})
	if task.Effective != backstop.Test {
		t.Fatalf("Effective = %s, want test", task.Effective)
	}
	if len(effects) != 1 {
		t.Fatalf("effects = %v, want only the running notice", effects)
	}
}
