package runner

import (
	"fmt"
	"strings"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Machine holds the immutable inputs of the state machine. Its methods are
// transitions from one State to the next plus the effects to perform.
type Machine struct {
	Catalog *scenario.Catalog
	Store   artifact.Store
	Engine  browser.Engine
}

// NewMachine creates a machine over a non-empty catalog.
func NewMachine(cat *scenario.Catalog, store artifact.Store, engine browser.Engine) (*Machine, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, scenario.ErrEmpty
	}
	return &Machine{Catalog: cat, Store: store, Engine: engine}, nil
}

// Start returns the prompt shown before the first line of input.
func (m *Machine) Start(s State) []Effect {
	return []Effect{prompt(`Run in "auto" (a) or "manual" (m) mode?`)}
}

// Step applies one line of operator input. While busy, a line in a running
// mode becomes a pause request and every other line is dropped.
func (m *Machine) Step(s State, line string) (State, []Effect) {
	if s.Busy {
		switch s.Mode {
		case AutoRunning:
			s.Mode = AutoPaused
		case ApproveAllRunning:
			s.Mode = ApproveAllPaused
		default:
			return s, nil
		}
		return s, []Effect{warn(fmt.Sprintf("Pausing after scenario %s finishes.", m.describe(s.CurrentIndex)))}
	}

	line = strings.TrimSpace(line)
	key := strings.ToLower(line)

	switch s.Mode {
	case Choosing:
		return m.chooseMode(s, key)
	case AutoConfirming:
		return m.confirmBatch(s, key)
	case Manual:
		return m.manual(s, line, key)
	case AutoStarting, ApproveAllStarting:
		return m.starting(s, line, key)
	case AutoPaused, ApproveAllPaused:
		return m.confirmResume(s, key)
	case AutoRunning, ApproveAllRunning:
		// Idle in a running mode means the batch lost its task; offer resume.
		if s.Mode == AutoRunning {
			s.Mode = AutoPaused
		} else {
			s.Mode = ApproveAllPaused
		}
		return s, []Effect{warn(resumeQuestion(batchOf(s.Mode)))}
	}
	return s, []Effect{errorf("Unknown run mode %q.", s.Mode)}
}

func (m *Machine) chooseMode(s State, key string) (State, []Effect) {
	switch key {
	case "auto", "a":
		s.Mode = AutoConfirming
		s.PendingIndex = 0
		s.PendingResume = false
		n := m.Catalog.Len()
		return s, []Effect{
			success("Running in auto mode."),
			warn(fmt.Sprintf("All %d %s will be tested in order. %s Continue? (y/n)", n, plural(n, "scenario"), pauseHint)),
		}
	case "manual", "m":
		return m.toManual(s, success("Running in manual mode."))
	}
	return s, []Effect{errorf("Please type in a valid keyword. (auto/manual/a/m)")}
}

func (m *Machine) manual(s State, line, key string) (State, []Effect) {
	switch key {
	case "auto run":
		return m.readyBatch(s, AutoStarting, "Starting auto run.")
	case "approve all":
		return m.readyBatch(s, ApproveAllStarting, "Starting approve all.")
	}

	switch s.Step {
	case Confirming:
		switch key {
		case "y":
			s.CurrentIndex = s.PendingIndex
			s.Step = AwaitingAction
			return s, []Effect{prompt(`Type in a keyword to start: "test" (t), "approve" (a), "reference" (r)`)}
		case "n":
			s.Step = Selecting
			s.PendingIndex = s.CurrentIndex
			return s, m.choosePrompt(s)
		}
		return s, []Effect{errorf("Please type in a valid keyword. (y/n)")}

	case AwaitingAction:
		action, err := backstop.ParseAction(key)
		if err != nil {
			return s, []Effect{errorf("Please type in a valid keyword. (test/approve/reference/t/a/r)")}
		}
		s.Busy = true
		return s, []Effect{RunTask{Task: Task{Index: s.CurrentIndex, Requested: action}}}
	}

	switch key {
	case "show list":
		return s, append([]Effect{ShowList{}}, m.choosePrompt(s)...)
	case "combine reports":
		s.Busy = true
		return s, []Effect{info("Combining reports."), CombineReports{}}
	}
	s.PendingIndex = m.Catalog.Select(line, s.CurrentIndex)
	s.Step = Confirming
	return s, []Effect{prompt(fmt.Sprintf("Scenario %s chosen. Continue? (y/n)", m.describe(s.PendingIndex)))}
}

func (m *Machine) readyBatch(s State, mode Mode, msg string) (State, []Effect) {
	s.Mode = mode
	s.Step = Selecting
	s.PendingIndex = s.CurrentIndex
	s.PendingResume = false
	return s, append([]Effect{success(msg)}, m.startingPrompt(s)...)
}

func (m *Machine) starting(s State, line, key string) (State, []Effect) {
	if s.Step == Confirming {
		return m.confirmBatch(s, key)
	}
	if key == "show list" {
		return s, append([]Effect{ShowList{}}, m.startingPrompt(s)...)
	}
	s.PendingIndex = m.Catalog.Select(line, s.CurrentIndex)
	s.Step = Confirming
	return s, []Effect{warn(m.batchWarning(batchOf(s.Mode), s.PendingIndex, "All"))}
}

// confirmBatch handles y/n before an unattended run starts at PendingIndex.
func (m *Machine) confirmBatch(s State, key string) (State, []Effect) {
	b := batchOf(s.Mode)
	switch key {
	case "y":
		if s.PendingIndex >= m.Catalog.Len() {
			return m.toManual(s, success("All runs completed."), success("Automatically switched to manual mode."))
		}
		var effects []Effect
		if s.PendingResume {
			effects = append(effects, success(fmt.Sprintf("Resuming %s starting from scenario %s.", b.label(), m.describe(s.PendingIndex))))
		}
		s.CurrentIndex = s.PendingIndex
		s.Mode = b.running()
		s.Step = Selecting
		s.PendingResume = false
		s.Busy = true
		return s, append(effects, RunTask{Task: m.batchTask(b, s.CurrentIndex)})
	case "n":
		return m.toManual(s, success("Switched to manual mode."))
	}
	return s, []Effect{errorf("Please type in a valid keyword. (y/n)")}
}

func (m *Machine) confirmResume(s State, key string) (State, []Effect) {
	b := batchOf(s.Mode)
	switch key {
	case "y":
		next := m.resumeIndex(s)
		if next >= m.Catalog.Len() {
			return m.toManual(s, success("All runs completed."), success("Automatically switched to manual mode."))
		}
		s.PendingIndex = next
		s.PendingResume = true
		if b == approveAllBatch {
			s.Mode = ApproveAllStarting
			s.Step = Confirming
		} else {
			s.Mode = AutoConfirming
		}
		return s, []Effect{warn(m.batchWarning(b, next, "All the rest"))}
	case "n":
		return m.toManual(s, success("Running in manual mode."))
	}
	return s, []Effect{errorf("Please type in a valid keyword. (y/n)")}
}

// resumeIndex is the first scenario a paused batch has not finished: the
// current one again if its last action was only a successful reference
// capture (or, for approve all, anything short of approve), else the next.
func (m *Machine) resumeIndex(s State) int {
	if batchOf(s.Mode) == approveAllBatch {
		if s.LastAction != backstop.Approve {
			return s.CurrentIndex
		}
		return s.CurrentIndex + 1
	}
	if s.LastAction == backstop.Reference && s.LastActionSucceeded {
		return s.CurrentIndex
	}
	return s.CurrentIndex + 1
}

func (m *Machine) batchTask(b batch, index int) Task {
	return Task{Index: index, Requested: b.action(), ForceApprove: b == approveAllBatch}
}

// Dispatch resolves the task's effective action through the promotion
// chain and marks the state busy. Tasks that already carry an effective
// action are chained follow-ups and are not re-resolved.
func (m *Machine) Dispatch(s State, t Task) (State, Task, []Effect) {
	s.Busy = true
	s.CurrentIndex = t.Index
	sc := m.Catalog.At(t.Index)

	var effects []Effect
	if t.Effective == backstop.None {
		t.Effective, effects = m.resolve(t.Index, sc, t.Requested)
	}
	effects = append(effects, info(fmt.Sprintf("Running %s for scenario %s.", upper(t.Effective), m.describe(t.Index))))
	return s, t, effects
}

// resolve downgrades requested to the strongest action whose precondition
// artifacts exist: test needs a reference, approve needs a test capture.
func (m *Machine) resolve(index int, sc scenario.Scenario, requested backstop.Action) (backstop.Action, []Effect) {
	var effects []Effect
	noRefs := errorf("No previous references exist for scenario %s.", m.describe(index))

	switch requested {
	case backstop.Test:
		if m.Store.HasReference(m.Engine, sc) {
			return backstop.Test, nil
		}
		return backstop.Reference, append(effects, noRefs)
	case backstop.Approve:
		if m.Store.HasTest(m.Engine, sc) {
			return backstop.Approve, nil
		}
		effects = append(effects, errorf("No previous tests exist for scenario %s.", m.describe(index)))
		if m.Store.HasReference(m.Engine, sc) {
			return backstop.Test, effects
		}
		return backstop.Reference, append(effects, noRefs)
	}
	return backstop.Reference, nil
}

// Complete records the outcome of a dispatched task and decides what runs
// next: a chained follow-up on the same scenario, the next scenario of a
// batch, or nothing. A nil next task means the state is no longer busy.
func (m *Machine) Complete(s State, t Task, runErr error) (State, *Task, []Effect) {
	ok := runErr == nil
	s.LastAction = t.Effective
	s.LastActionSucceeded = ok

	var effects []Effect
	if ok {
		effects = append(effects, success(fmt.Sprintf("%s succeeded for scenario %s.", upper(t.Effective), m.describe(t.Index))))
	} else {
		effects = append(effects, errorf("%s failed for scenario %s: %v", upper(t.Effective), m.describe(t.Index), runErr))
	}

	if next, chained := m.chain(t, ok); chained {
		return s, &next, effects
	}

	b := batchOf(s.Mode)
	var more []Effect
	switch {
	case !isRunning(s.Mode) && !isPaused(s.Mode):
		s, more = m.toManual(s)
		return s, nil, append(effects, more...)

	case !ok && t.Effective == backstop.Reference:
		s, more = m.toManual(s, errorf("Automatically switched to manual mode."))
		return s, nil, append(effects, more...)

	case s.CurrentIndex >= m.Catalog.Len()-1:
		s, more = m.toManual(s, success("All runs completed."), success("Automatically switched to manual mode."))
		return s, nil, append(effects, more...)

	case isPaused(s.Mode):
		s.Busy = false
		return s, nil, append(effects, warn(resumeQuestion(b)))
	}

	next := m.batchTask(b, s.CurrentIndex+1)
	verb := "test"
	if b == approveAllBatch {
		verb = "approval"
	}
	effects = append(effects, success(fmt.Sprintf("Automatically starting %s for next scenario, scenario %s.", verb, m.describe(next.Index))))
	return s, &next, effects
}

// chain returns the follow-up that keeps a promoted request going: a
// successful reference capture is followed by the test it stood in for,
// and a test that stood in for approve is followed by approve once it
// succeeds (or regardless, in approve-all batches).
func (m *Machine) chain(t Task, ok bool) (Task, bool) {
	next := t
	switch {
	case ok && t.Effective == backstop.Reference && (t.Requested == backstop.Test || t.Requested == backstop.Approve):
		next.Effective = backstop.Test
	case t.Effective == backstop.Test && t.Requested == backstop.Approve && (ok || t.ForceApprove):
		next.Effective = backstop.Approve
	default:
		return Task{}, false
	}
	return next, true
}

// Idle ends a busy period that did not run a task, such as report combining.
func (m *Machine) Idle(s State) (State, []Effect) {
	if !s.Busy {
		return s, nil
	}
	return m.toManual(s)
}

func (m *Machine) toManual(s State, lead ...Effect) (State, []Effect) {
	s.Mode = Manual
	s.Step = Selecting
	s.Busy = false
	s.PendingIndex = s.CurrentIndex
	s.PendingResume = false
	return s, append(lead, m.choosePrompt(s)...)
}

const pauseHint = "Press enter at any time to stop the next test once the program starts running."

func (m *Machine) choosePrompt(s State) []Effect {
	return []Effect{
		hint(`Type in "auto run" at any time to start auto run.`),
		hint(`Type in "approve all" at any time to approve all scenarios.`),
		hint(`Type in "show list" to see a list of all scenarios, or "combine reports" to merge failed tests into one report.`),
		prompt(fmt.Sprintf(`Type in a valid index (0 to %d) or the scenario name to choose a scenario, type in "--" or "++" to choose the previous or the next scenario, if there is one, or press enter to choose scenario %s by default.`,
			m.Catalog.Len()-1, m.describe(s.CurrentIndex))),
	}
}

func (m *Machine) startingPrompt(s State) []Effect {
	goal := "start the auto run from"
	if batchOf(s.Mode) == approveAllBatch {
		goal = "start approving from"
	}
	return []Effect{
		hint(`Type in "show list" to see a list of all scenarios.`),
		prompt(fmt.Sprintf(`Type in a valid index (0 to %d) or the scenario name to choose a scenario to %s, type in "--" or "++" to step, or press enter to choose scenario %s by default.`,
			m.Catalog.Len()-1, goal, m.describe(s.CurrentIndex))),
	}
}

func (m *Machine) batchWarning(b batch, from int, lead string) string {
	n := m.Catalog.Len() - from
	return fmt.Sprintf("%s %d %s starting from scenario %s will be %s in order. %s Continue? (y/n)",
		lead, n, plural(n, "scenario"), m.describe(from), b.verb(), pauseHint)
}

func resumeQuestion(b batch) string {
	if b == approveAllBatch {
		return "Automatic approval stopped due to your keyboard input. Resume the rest of the scenarios? (y/n)"
	}
	return "Automatic run stopped due to your keyboard input. Resume the rest of the tests? (y/n)"
}

// describe renders "3 (Alumni Content)".
func (m *Machine) describe(i int) string {
	if i < 0 || i >= m.Catalog.Len() {
		return fmt.Sprintf("%d", i)
	}
	return fmt.Sprintf("%d (%s)", i, m.Catalog.At(i).Name)
}

func upper(a backstop.Action) string { return strings.ToUpper(string(a)) }

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func warn(text string) Notice    { return Notice{Level: LevelWarn, Text: text} }
func hint(text string) Notice    { return Notice{Level: LevelHint, Text: text} }
func prompt(text string) Notice  { return Notice{Level: LevelPrompt, Text: text} }

func errorf(format string, a ...any) Notice {
	return Notice{Level: LevelError, Text: fmt.Sprintf(format, a...)}
}
