package runner

// Effect is a side effect requested by a transition. The session performs
// effects; the machine never does I/O beyond artifact precondition checks.
type Effect interface {
	effect()
}

// Level classifies a Notice for styling.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
	LevelHint
	LevelPrompt
)

// Notice is one console status line.
type Notice struct {
	Level Level
	Text  string
}

// ShowList asks for the scenario table to be printed.
type ShowList struct{}

// RunTask asks for a task to be dispatched.
type RunTask struct {
	Task Task
}

// CombineReports asks for the HTML reports to be merged. The state is busy
// until the session calls Machine.Idle.
type CombineReports struct{}

func (Notice) effect()         {}
func (ShowList) effect()       {}
func (RunTask) effect()        {}
func (CombineReports) effect() {}
