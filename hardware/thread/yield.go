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

// YieldType is a broad categorisation of why a core stopped executing.
type YieldType int

// List of valid YieldType values.
const (
	// the instruction budget was used up or a safepoint was requested. the
	// thread remains runnable
	YieldBudget YieldType = iota

	// the thread is waiting for something. the Reason field says what and
	// the Wake channel (if not nil) will be closed when it might be able to
	// continue
	YieldBlocked

	// the thread has reached a breakpoint. the instruction at the PC has not
	// been executed
	YieldBreakpoint

	// the thread has ended normally with an exit status
	YieldExit

	// the thread has faulted. the Error field is set
	YieldFault
)

func (t YieldType) String() string {
	switch t {
	case YieldBudget:
		return "budget"
	case YieldBlocked:
		return "blocked"
	case YieldBreakpoint:
		return "breakpoint"
	case YieldExit:
		return "exit"
	case YieldFault:
		return "fault"
	}
	panic("unknown YieldType")
}

// Normal returns true if yield type is expected during normal operation.
func (t YieldType) Normal() bool {
	return t == YieldBudget || t == YieldBlocked || t == YieldExit
}

// Yield is returned by a core when it stops executing.
type Yield struct {
	Type   YieldType
	Reason Reason
	Wake   <-chan struct{}
	Status uint32
	Error  error

	// number of instructions retired during the run
	Retired int
}

// State returns the thread state implied by the yield.
func (y Yield) State() (State, Reason) {
	switch y.Type {
	case YieldBudget:
		return Running, NoReason
	case YieldBlocked:
		return Blocked, y.Reason
	case YieldBreakpoint:
		return Blocked, OnBreakpoint
	case YieldExit:
		return Terminated, NoReason
	case YieldFault:
		return Halted, Fault
	}
	return Idle, NoReason
}

// Safepoint is called by a core at every block boundary. A true result
// means that the core should stop at that boundary with YieldBudget.
type Safepoint func() bool

// NoSafepoint is a Safepoint that never requests a stop.
func NoSafepoint() bool {
	return false
}
