// Package lifecycle defines the status state machines shared by the
// marketplace: verification applications, profile verification, and
// peer-to-peer swaps. Each machine is a static transition table; all
// persistence and concurrency control belongs to the callers.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"
)

// State is a named lifecycle state.
type State string

// Action is a named transition trigger.
type Action string

// ErrInvalidTransition is the sentinel all transition failures unwrap to.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError describes a rejected transition: which machine,
// which state it was in, and what was attempted.
type TransitionError struct {
	Machine string
	State   State
	Action  Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: machine=%s state=%s action=%s", e.Machine, e.State, e.Action)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Machine is an immutable transition table. Construct once at package
// init; safe for concurrent use.
type Machine struct {
	name     string
	initial  State
	table    map[State]map[Action]State
	terminal map[State]bool
}

// NewMachine builds a machine from a transition table. States that
// appear only as targets and never as sources are terminal.
func NewMachine(name string, initial State, table map[State]map[Action]State) *Machine {
	terminal := make(map[State]bool)
	for _, actions := range table {
		for _, to := range actions {
			if _, hasOutgoing := table[to]; !hasOutgoing {
				terminal[to] = true
			}
		}
	}

	return &Machine{
		name:     name,
		initial:  initial,
		table:    table,
		terminal: terminal,
	}
}

// Name returns the machine name.
func (m *Machine) Name() string {
	return m.name
}

// Initial returns the initial state.
func (m *Machine) Initial() State {
	return m.initial
}

// IsState reports whether s is a state of this machine.
func (m *Machine) IsState(s State) bool {
	if _, ok := m.table[s]; ok {
		return true
	}
	return m.terminal[s]
}

// IsTerminal reports whether s has no outgoing transitions.
func (m *Machine) IsTerminal(s State) bool {
	return m.terminal[s]
}

// Transition applies action to the current state. Attempts from a
// terminal state, from an unknown state, or with an action absent from
// the table are rejected with a *TransitionError.
func (m *Machine) Transition(current State, action Action) (State, error) {
	actions, ok := m.table[current]
	if !ok {
		return "", &TransitionError{Machine: m.name, State: current, Action: action}
	}
	next, ok := actions[action]
	if !ok {
		return "", &TransitionError{Machine: m.name, State: current, Action: action}
	}
	return next, nil
}

// Next returns the set of states reachable from current in one step,
// sorted for stable output. Terminal and unknown states yield an empty
// set.
func (m *Machine) Next(current State) []State {
	actions, ok := m.table[current]
	if !ok {
		return nil
	}

	seen := make(map[State]bool, len(actions))
	out := make([]State, 0, len(actions))
	for _, to := range actions {
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Actions returns the actions available from current, sorted.
func (m *Machine) Actions(current State) []Action {
	actions, ok := m.table[current]
	if !ok {
		return nil
	}

	out := make([]Action, 0, len(actions))
	for a := range actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanTransition reports whether action is valid from current.
func (m *Machine) CanTransition(current State, action Action) bool {
	_, err := m.Transition(current, action)
	return err == nil
}
