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

package hardware

import (
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// StepOverLimit is the largest number of instructions executed by
// StepOver() before giving up on the call returning.
const StepOverLimit = 1000000

// stepper is implemented by both core types.
type stepper interface {
	PC() uint32
	IsCall() bool
	Step() thread.Yield
	ResumeFromBreakpoint()
}

// Step executes a single instruction of a thread. The machine must be paused
// and the thread must be runnable or stopped on a breakpoint.
func (m *Machine) Step(id int) (thread.Yield, error) {
	t, err := m.Thread(id)
	if err != nil {
		return thread.Yield{}, err
	}
	return m.Scheduler.Step(t, func(r scheduler.Runnable) thread.Yield {
		return r.(stepper).Step()
	})
}

// StepOver is the same as Step() unless the instruction is a call. In which
// case the thread runs until the instruction after the call is reached or
// until the thread stops for any other reason. No other thread runs while
// the call is being stepped over.
func (m *Machine) StepOver(id int) (thread.Yield, error) {
	t, err := m.Thread(id)
	if err != nil {
		return thread.Yield{}, err
	}
	return m.Scheduler.Step(t, func(r scheduler.Runnable) thread.Yield {
		c := r.(stepper)
		if !c.IsCall() {
			return c.Step()
		}

		ret := c.PC() + 4
		retired := 0
		for i := 0; i < StepOverLimit; i++ {
			y := c.Step()
			retired += y.Retired
			if y.Type != thread.YieldBudget || c.PC() == ret {
				y.Retired = retired
				return y
			}
		}
		return thread.Yield{Type: thread.YieldBudget, Retired: retired}
	})
}

// Continue a thread that has stopped on a breakpoint. The thread is runnable
// when the function returns and the instruction at the breakpoint is executed
// when the thread next runs.
func (m *Machine) Continue(id int) error {
	t, err := m.Thread(id)
	if err != nil {
		return err
	}
	st, r := t.Status()
	if st != thread.Blocked || r != thread.OnBreakpoint {
		return curated.Errorf(scheduler.BadThreadState, id, st)
	}
	t.Runnable().(stepper).ResumeFromBreakpoint()
	if !m.Scheduler.Unblock(t, thread.OnBreakpoint) {
		st, _ := t.Status()
		return curated.Errorf(scheduler.BadThreadState, id, st)
	}
	return nil
}
