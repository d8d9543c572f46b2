// Package runner implements the interactive run-mode state machine that
// sequences BackstopJS actions across a scenario catalog, and the session
// that drives it from operator input.
package runner

import "github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"

// Mode is the top-level run mode.
type Mode string

const (
	Choosing           Mode = "choosing"
	AutoConfirming     Mode = "autoConfirming"
	Manual             Mode = "manual"
	AutoRunning        Mode = "autoRunning"
	ApproveAllRunning  Mode = "approveAllRunning"
	AutoPaused         Mode = "autoPaused"
	ApproveAllPaused   Mode = "approveAllPaused"
	AutoStarting       Mode = "autoStarting"
	ApproveAllStarting Mode = "approveAllStarting"
)

// Step is the scenario-selection sub-step inside Manual and the two
// starting modes.
type Step string

const (
	Selecting      Step = "selecting"
	Confirming     Step = "confirming"
	AwaitingAction Step = "awaitingAction"
)

// State is the complete engine position. It is a value: every transition
// returns a new State.
type State struct {
	Mode                Mode            `json:"mode"`
	Step                Step            `json:"step"`
	CurrentIndex        int             `json:"current_index"`
	PendingIndex        int             `json:"pending_index"`
	Busy                bool            `json:"busy"`
	LastAction          backstop.Action `json:"last_action"`
	LastActionSucceeded bool            `json:"last_action_succeeded"`
	PendingResume       bool            `json:"pending_resume"`
}

// NewState returns the initial state.
func NewState() State {
	return State{Mode: Choosing, Step: Selecting, LastActionSucceeded: true}
}

// Task is one queued BackstopJS invocation. Requested is what the operator
// (or batch) asked for and survives the whole promotion chain; Effective is
// what actually runs and is empty until resolved.
type Task struct {
	Index        int             `json:"index"`
	Requested    backstop.Action `json:"requested"`
	Effective    backstop.Action `json:"effective,omitempty"`
	ForceApprove bool            `json:"force_approve,omitempty"`
}

// batch is the kind of unattended run a mode belongs to.
type batch int

const (
	noBatch batch = iota
	autoBatch
	approveAllBatch
)

func batchOf(m Mode) batch {
	switch m {
	case AutoConfirming, AutoStarting, AutoRunning, AutoPaused:
		return autoBatch
	case ApproveAllStarting, ApproveAllRunning, ApproveAllPaused:
		return approveAllBatch
	}
	return noBatch
}

func (b batch) running() Mode {
	if b == approveAllBatch {
		return ApproveAllRunning
	}
	return AutoRunning
}

func (b batch) action() backstop.Action {
	if b == approveAllBatch {
		return backstop.Approve
	}
	return backstop.Test
}

func (b batch) verb() string {
	if b == approveAllBatch {
		return "approved"
	}
	return "tested"
}

func (b batch) label() string {
	if b == approveAllBatch {
		return "approve all"
	}
	return "automatic run"
}

func isRunning(m Mode) bool { return m == AutoRunning || m == ApproveAllRunning }

func isPaused(m Mode) bool { return m == AutoPaused || m == ApproveAllPaused }
