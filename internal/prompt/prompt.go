// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package prompt drives the operator confirmation flow. A Flow walks a
// fixed sequence of display steps on a Screen and then blocks, without
// any timeout, for a final accept or reject. Exactly one flow runs at a
// time; the command loop is sequential, so there is no queue.
package prompt

import (
	"context"
	"fmt"
	"sync"
)

// Step is one screen of a confirmation flow.
type Step struct {
	Header string
	Body   string
	// Paginate marks values too wide for one screen, such as addresses
	// and digests. Screens chunk the body instead of truncating it.
	Paginate bool

	// Index and Total position the step within its flow. Run fills them
	// in; builders of step sequences leave them zero.
	Index int
	Total int
}

// Screen presents steps to the operator. ShowStep blocks until the
// operator advances past the step or rejects outright. Decide blocks
// until the final verdict.
type Screen interface {
	ShowStep(ctx context.Context, step Step) error
	Decide(ctx context.Context) (bool, error)
}

// ErrRejected is returned by screens when the operator rejects during a
// step, before the final decision screen.
var ErrRejected = fmt.Errorf("rejected by operator")

// State is the observable position of a Flow.
type State int

const (
	StateIdle State = iota
	StateShowing
	StateAwaitingDecision
	StateAccepted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShowing:
		return "showing"
	case StateAwaitingDecision:
		return "awaiting-decision"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Flow runs one confirmation at a time over a Screen.
type Flow struct {
	mu    sync.Mutex
	state State
	step  int
}

func NewFlow() *Flow {
	return &Flow{state: StateIdle}
}

// State reports the current position. Step is only meaningful while the
// state is StateShowing.
func (f *Flow) State() (State, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.step
}

func (f *Flow) set(s State, step int) {
	f.mu.Lock()
	f.state = s
	f.step = step
	f.mu.Unlock()
}

// Run shows every step in order and then waits for the verdict. There
// is no timeout: the operator holds the flow open as long as they need.
// A rejection mid-flow or a screen failure resolves to rejected.
func (f *Flow) Run(ctx context.Context, scr Screen, steps []Step) (bool, error) {
	if len(steps) == 0 {
		return false, fmt.Errorf("confirmation flow needs at least one step")
	}

	for i, step := range steps {
		step.Index = i
		step.Total = len(steps)
		f.set(StateShowing, i)
		if err := scr.ShowStep(ctx, step); err != nil {
			f.set(StateRejected, 0)
			return false, err
		}
	}

	f.set(StateAwaitingDecision, 0)
	approved, err := scr.Decide(ctx)
	if err != nil {
		f.set(StateRejected, 0)
		return false, err
	}
	if !approved {
		f.set(StateRejected, 0)
		return false, nil
	}
	f.set(StateAccepted, 0)
	return true, nil
}

// Reset returns the flow to idle for the next command.
func (f *Flow) Reset() {
	f.set(StateIdle, 0)
}
