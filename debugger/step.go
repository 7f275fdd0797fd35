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

package debugger

import (
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// halt the machine if it is running. stepping one thread while the others
// continue would make the state of the machine impossible to reason about.
func (dbg *Debugger) halt() error {
	if dbg.m.Condition().State != govern.Running {
		return nil
	}
	return dbg.m.Pause()
}

// Step executes count instructions of the thread. Stepping ends early if the
// thread stops for any reason other than the end of the instruction. The
// machine is paused first if necessary.
func (dbg *Debugger) Step(id int, count int) (thread.Yield, error) {
	if _, _, err := dbg.thread(id); err != nil {
		return thread.Yield{}, err
	}
	if err := dbg.halt(); err != nil {
		return thread.Yield{}, err
	}

	var y thread.Yield
	retired := 0
	for i := 0; i < count; i++ {
		var err error
		y, err = dbg.m.Step(id)
		if err != nil {
			return y, err
		}
		retired += y.Retired
		if y.Type != thread.YieldBudget {
			break
		}
	}
	y.Retired = retired

	return y, nil
}

// StepOver is the same as Step() with a count of one, except that a call is
// treated as a single instruction.
func (dbg *Debugger) StepOver(id int) (thread.Yield, error) {
	if _, _, err := dbg.thread(id); err != nil {
		return thread.Yield{}, err
	}
	if err := dbg.halt(); err != nil {
		return thread.Yield{}, err
	}
	return dbg.m.StepOver(id)
}

// Continue releases the thread from its breakpoint and resumes the machine.
// If the thread is not on a breakpoint the machine is resumed.
func (dbg *Debugger) Continue(id int) error {
	th, _, err := dbg.thread(id)
	if err != nil {
		return err
	}
	if st, r := th.Status(); st == thread.Blocked && r == thread.OnBreakpoint {
		if err := dbg.m.Continue(id); err != nil {
			return err
		}
	}
	return dbg.resume()
}

// Run releases every thread stopped on a breakpoint and resumes the machine.
func (dbg *Debugger) Run() error {
	m, err := dbg.machine()
	if err != nil {
		return err
	}
	for _, info := range m.Threads() {
		if info.State == thread.Blocked && info.Reason == thread.OnBreakpoint {
			if err := m.Continue(info.ID); err != nil {
				return err
			}
		}
	}
	return dbg.resume()
}

func (dbg *Debugger) resume() error {
	if dbg.m.Condition().State != govern.Paused {
		return nil
	}
	return dbg.m.Resume()
}
