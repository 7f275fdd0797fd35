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

package govern

// State indicates the machine's state.
type State int

// List of possible machine states.
//
// Off is the default state. A machine returns to Off only if it is
// restarted.
//
// Initialising is used while a machine is being built or while a savestate
// is being plumbed in.
//
// Paused can have meaningful sub-states.
const (
	Off State = iota
	Initialising
	Paused
	Stepping
	Running
	Ending
)

func (s State) String() string {
	switch s {
	case Off:
		return "Off"
	case Initialising:
		return "Initialising"
	case Paused:
		return "Paused"
	case Stepping:
		return "Stepping"
	case Running:
		return "Running"
	case Ending:
		return "Ending"
	}

	return ""
}

// SubState allows more detail for some states. Normal indicates that there
// is no more information to impart about the state.
type SubState int

// List of possible sub states.
const (
	Normal SubState = iota
	PausedOnBreakpoint
	PausedOnFault
	PausedForSavestate
	EndingOnDeadlock
)

func (s SubState) String() string {
	switch s {
	case PausedOnBreakpoint:
		return "on breakpoint"
	case PausedOnFault:
		return "on fault"
	case PausedForSavestate:
		return "for savestate"
	case EndingOnDeadlock:
		return "deadlocked"
	}
	return ""
}

// StateIntegrity checks whether the combination of state, sub-state makes
// sense.
//
// Rules:
//
//  1. Normal can coexist with any state
//
//  2. PausedOnBreakpoint, PausedOnFault and PausedForSavestate can only be
//     paired with the Paused State
//
//  3. EndingOnDeadlock can only be paired with the Ending state
func StateIntegrity(state State, subState SubState) bool {
	if subState == Normal {
		return true
	}
	switch state {
	case Paused:
		switch subState {
		case PausedOnBreakpoint, PausedOnFault, PausedForSavestate:
			return true
		}
	case Ending:
		return subState == EndingOnDeadlock
	}
	return false
}

// Condition is the state and sub-state of a machine. It is the data sent
// with the machine state notification.
type Condition struct {
	State    State
	SubState SubState
}

func (c Condition) String() string {
	if c.SubState == Normal {
		return c.State.String()
	}
	return c.State.String() + " " + c.SubState.String()
}
