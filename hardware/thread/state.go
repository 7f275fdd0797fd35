// This file is part of GopherCell.
//
// GopherCell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherCell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherCell.  If not, see <https://www.gnu.org/licenses/>.

package thread

import "sync/atomic"

// State of a logical thread.
type State int32

// List of valid State values.
const (
	Idle State = iota
	Running
	Blocked
	Halted
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Halted:
		return "halted"
	case Terminated:
		return "terminated"
	}
	panic("unknown thread state")
}

// Reason qualifies the Blocked and Halted states.
type Reason int32

// List of valid Reason values.
const (
	NoReason Reason = iota

	// blocked reasons
	OnSignal
	OnQueue
	OnBreakpoint
	OnJoin
	OnGroup

	// halted reasons
	Fault
	Stopped
)

func (r Reason) String() string {
	switch r {
	case NoReason:
		return ""
	case OnSignal:
		return "signal"
	case OnQueue:
		return "queue"
	case OnBreakpoint:
		return "breakpoint"
	case OnJoin:
		return "join"
	case OnGroup:
		return "group"
	case Fault:
		return "fault"
	case Stopped:
		return "stopped"
	}
	panic("unknown thread reason")
}

// Kind of logical thread.
type Kind int

// List of valid Kind values.
const (
	Scalar Kind = iota
	Vector
	Custom
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	}
	return "custom"
}

// Status is the published state of a thread. It is written by the host
// worker running the thread and read by anyone.
type Status struct {
	state  atomic.Int32
	reason atomic.Int32
}

// Set the state and reason together.
func (s *Status) Set(state State, reason Reason) {
	s.reason.Store(int32(reason))
	s.state.Store(int32(state))
}

// Get the state and reason.
func (s *Status) Get() (State, Reason) {
	return State(s.state.Load()), Reason(s.reason.Load())
}

// State returns the state without the reason.
func (s *Status) State() State {
	return State(s.state.Load())
}
