// Package panel implements the motor control panel: per-motor view state,
// keyboard interaction, the position poll and the terminal rendering.
package panel

import "sort"

// ConnState is the state of the bridge connection as seen by the view.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Disconnected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MotorState is the view model for a single motor. Angles are in degrees;
// conversion to the bridge's radians happens at the call site, once.
type MotorState struct {
	ID         int
	CurrentDeg float64 // from the last successful poll
	TargetDeg  float64 // from the last user action
	Moving     bool    // set on dispatch, cleared by the settle timer
}

// MotorSet holds motor states keyed by ID. Iteration is always in
// ascending ID order so rendering and tests are deterministic.
type MotorSet struct {
	ids    []int
	motors map[int]*MotorState
}

// NewMotorSet returns an empty set.
func NewMotorSet() *MotorSet {
	return &MotorSet{motors: make(map[int]*MotorState)}
}

// Len returns the number of motors in the set.
func (s *MotorSet) Len() int {
	return len(s.ids)
}

// IDs returns the motor IDs in ascending order.
func (s *MotorSet) IDs() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// Get returns the state for a motor ID.
func (s *MotorSet) Get(id int) (*MotorState, bool) {
	m, ok := s.motors[id]
	return m, ok
}

// At returns the motor at position i in ID order.
func (s *MotorSet) At(i int) *MotorState {
	return s.motors[s.ids[i]]
}

// Add inserts a motor with zeroed state, keeping ID order. Adding an
// existing ID returns the existing state untouched.
func (s *MotorSet) Add(id int) *MotorState {
	if m, ok := s.motors[id]; ok {
		return m
	}
	m := &MotorState{ID: id}
	s.motors[id] = m
	s.ids = append(s.ids, id)
	sort.Ints(s.ids)
	return m
}

// Sync reconciles the set against a discovery result: newly reported
// motors are added, motors no longer reported are removed, everything
// else keeps its state.
func (s *MotorSet) Sync(ids []int) {
	reported := make(map[int]bool, len(ids))
	for _, id := range ids {
		reported[id] = true
		s.Add(id)
	}
	kept := s.ids[:0]
	for _, id := range s.ids {
		if reported[id] {
			kept = append(kept, id)
		} else {
			delete(s.motors, id)
		}
	}
	s.ids = kept
}
