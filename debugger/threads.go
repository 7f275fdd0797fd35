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
	"fmt"
	"strconv"
	"strings"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/vector"
)

// Threads returns a summary of every thread in the machine.
func (dbg *Debugger) Threads() ([]thread.Info, error) {
	m, err := dbg.machine()
	if err != nil {
		return nil, err
	}
	return m.Threads(), nil
}

// Selected returns the ID of the selected thread.
func (dbg *Debugger) Selected() int {
	return dbg.selected
}

// SelectThread changes the thread that commands apply to.
func (dbg *Debugger) SelectThread(id int) error {
	if _, _, err := dbg.thread(id); err != nil {
		return err
	}
	dbg.selected = id
	return nil
}

// thread returns the scheduler thread and the core running in it. the core
// is either a *scalar.Core or a *vector.Core.
func (dbg *Debugger) thread(id int) (*scheduler.Thread, scheduler.Runnable, error) {
	m, err := dbg.machine()
	if err != nil {
		return nil, nil, err
	}
	th, err := m.Thread(id)
	if err != nil {
		return nil, nil, curated.Errorf(NoSuchThread, id)
	}
	return th, th.Runnable(), nil
}

// stopped returns true if the thread can not run until the debugger allows
// it to.
func (dbg *Debugger) stopped(th *scheduler.Thread) bool {
	if dbg.m.Condition().State != govern.Running {
		return true
	}
	st, r := th.Status()
	switch st {
	case thread.Blocked:
		return r == thread.OnBreakpoint
	case thread.Running:
		return false
	}
	return true
}

// Registers returns the register file of the thread, formatted for display.
func (dbg *Debugger) Registers(id int) (string, error) {
	th, r, err := dbg.thread(id)
	if err != nil {
		return "", err
	}
	if !dbg.stopped(th) {
		return "", curated.Errorf(ThreadNotStopped, id)
	}

	switch c := r.(type) {
	case *scalar.Core:
		return c.State.String(), nil
	case *vector.Core:
		return c.State.String(), nil
	}
	return "", curated.Errorf(NoSuchThread, id)
}

// SetRegister changes the value of a register. For vector cores the value
// is placed in the preferred slot. The thread must be stopped.
func (dbg *Debugger) SetRegister(id int, register string, value uint64) error {
	th, r, err := dbg.thread(id)
	if err != nil {
		return err
	}
	if !dbg.stopped(th) {
		return curated.Errorf(ThreadNotStopped, id)
	}

	register = strings.ToLower(register)

	switch c := r.(type) {
	case *scalar.Core:
		return setScalarRegister(&c.State, register, value)
	case *vector.Core:
		return setVectorRegister(&c.State, register, value)
	}
	return curated.Errorf(NoSuchThread, id)
}

// registerIndex parses register names of the form r12 or f3.
func registerIndex(register string, prefix string, count int) (int, bool) {
	if !strings.HasPrefix(register, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(register[len(prefix):])
	if err != nil || n < 0 || n >= count {
		return 0, false
	}
	return n, true
}

func setScalarRegister(s *scalar.State, register string, value uint64) error {
	if n, ok := registerIndex(register, "r", scalar.NumGPR); ok {
		s.GPR[n] = value
		return nil
	}
	if n, ok := registerIndex(register, "f", scalar.NumGPR); ok {
		s.FPR[n] = value
		return nil
	}

	switch register {
	case "pc":
		s.PC = uint32(value) &^ 3
	case "lr":
		s.LR = value
	case "ctr":
		s.CTR = value
	case "cr":
		s.CR = uint32(value)
	case "xer":
		s.XER = value
	case "fpscr":
		s.FPSCR = uint32(value)
	default:
		return curated.Errorf(UnknownRegister, register)
	}
	return nil
}

func setVectorRegister(s *vector.State, register string, value uint64) error {
	if n, ok := registerIndex(register, "r", vector.NumRegisters); ok {
		s.GPR[n][0] = uint32(value)
		return nil
	}

	switch register {
	case "pc":
		s.PC = uint32(value) &^ 3
	case "dec":
		s.Dec = uint32(value)
	default:
		return curated.Errorf(UnknownRegister, register)
	}
	return nil
}

// parseValue accepts decimal, hex (0x or $ prefix) and binary (0b prefix)
// values.
func parseValue(s string) (uint64, error) {
	if strings.HasPrefix(s, "$") {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a value", s)
	}
	return v, nil
}
