// Package pfsm implements the Persona FSM: the four-state machine governing
// Initializing/Idle/Speaking/Interrupting transitions described in
// spec.md §4.7. It owns nothing but the current state and a transition log
// hook; callers perform the side effects (emitting frames, clearing queues)
// around calls to Set.
package pfsm

import (
	"log"
	"sync"
)

// State is one of the four persona lifecycle states.
type State int

const (
	// Initializing is the initial state: the idle cache is being built.
	Initializing State = iota
	// Idle is the resting state: the playback clock emits idle-loop frames.
	Idle
	// Speaking is active while a speech burst is in flight.
	Speaking
	// Interrupting is the brief transitional state during §4.10's protocol.
	Interrupting
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Idle:
		return "Idle"
	case Speaking:
		return "Speaking"
	case Interrupting:
		return "Interrupting"
	default:
		return "Unknown"
	}
}

// Machine is the Persona FSM. The zero value is not usable; use New.
// Reads of Current are safe from any goroutine; writes (Set) are expected
// to come only from FSM-reachable call paths per spec.md §5 — the mutex
// here just serializes those writers, it does not grant arbitrary callers
// the right to mutate state.
type Machine struct {
	mu      sync.Mutex
	current State
}

// New returns a Machine starting in Initializing.
func New() *Machine {
	return &Machine{current: Initializing}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set transitions to next, logging old->new. Setting the same state is a
// documented no-op (still logged at a lower level would be noise, so it's
// silent) per spec.md §4.7.
func (m *Machine) Set(next State) {
	m.mu.Lock()
	prev := m.current
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.current = next
	m.mu.Unlock()
	log.Printf("[fsm] %s -> %s", prev, next)
}

// Is reports whether the current state equals s.
func (m *Machine) Is(s State) bool {
	return m.Current() == s
}
