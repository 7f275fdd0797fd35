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

package scalar

import (
	"fmt"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
)

// HostPanic is the pattern used when a panic in the host is recovered during
// execution of a thread.
const HostPanic = "scalar: host panic at %#08x: %v"

// SyscallAction tells the core what to do after a system call.
type SyscallAction int

// List of valid SyscallAction values.
const (
	// the call completed and execution continues with the next instruction
	SyscallContinue SyscallAction = iota

	// the call completed and the thread gives up the rest of its slice
	SyscallYield

	// the call cannot complete yet. the sc instruction will be executed
	// again when the thread is woken
	SyscallBlock

	// the thread has ended
	SyscallExit

	// the call faulted
	SyscallFault
)

// SyscallResult is returned by a Kernel.
type SyscallResult struct {
	Action SyscallAction
	Reason thread.Reason
	Wake   <-chan struct{}
	Status uint32
	Error  error
}

// Kernel handles system calls made by a scalar thread.
type Kernel interface {
	Syscall(c *Core) SyscallResult
}

// ENOSYS is returned in r3 for a system call with no kernel.
const ENOSYS = 0x80010003

// Core is the execution context of a single scalar thread.
type Core struct {
	id   int
	name string

	// register file. must only be accessed by the goroutine running the
	// thread or when the thread is not running
	State State

	tr     *Translator
	mem    Memory
	kernel Kernel

	// floating point unit for the current accuracy
	fp *fpu

	// the most recent fault
	fault error

	// the breakpoint at the current PC has been reported and should be
	// ignored when execution resumes
	resumeBreak bool

	// the next block should be interpreted. set after a unit invalidated
	// itself
	interpretNext bool

	retired atomic.Uint64
}

// NewCore is the preferred method of initialisation for the Core type.
func NewCore(id int, name string, tr *Translator, kernel Kernel) *Core {
	return &Core{
		id:     id,
		name:   name,
		tr:     tr,
		mem:    tr.mem,
		kernel: kernel,
		fp:     fpuFor(tr.Settings().Accuracy),
	}
}

func (c *Core) String() string {
	return fmt.Sprintf("%s: %s", c.name, c.State.String())
}

// ID of the thread.
func (c *Core) ID() int {
	return c.id
}

// Name of the thread.
func (c *Core) Name() string {
	return c.name
}

// Kind returns thread.Scalar.
func (c *Core) Kind() thread.Kind {
	return thread.Scalar
}

// PC returns the current program counter.
func (c *Core) PC() uint32 {
	return c.State.PC
}

// Retired returns the number of instructions retired by the thread.
func (c *Core) Retired() uint64 {
	return c.retired.Load()
}

// Fault returns the most recent fault.
func (c *Core) Fault() error {
	return c.fault
}

// Translator returns the translator used by the core.
func (c *Core) Translator() *Translator {
	return c.tr
}

// ResumeFromBreakpoint should be called before resuming a thread that
// stopped on a breakpoint.
func (c *Core) ResumeFromBreakpoint() {
	c.resumeBreak = true
}

// Reset the register file. The thread will start at the entry address.
func (c *Core) Reset(entry uint32) {
	c.State = State{PC: entry}
	c.fault = nil
	c.resumeBreak = false
	c.interpretNext = false
}

// Run the thread for at least the number of instructions in the budget,
// stopping at a block boundary. The safepoint function is called at every
// block boundary.
func (c *Core) Run(budget int, safepoint thread.Safepoint) (y thread.Yield) {
	settings := c.tr.Settings()
	c.fp = fpuFor(settings.Accuracy)

	retired := 0

	defer func() {
		if r := recover(); r != nil {
			c.fault = curated.Errorf(HostPanic, c.State.PC, r)
			y = thread.Yield{Type: thread.YieldFault, Error: c.fault}
		}
		c.retired.Add(uint64(retired))
		y.Retired = retired
	}()

	for retired < budget {
		if safepoint() {
			return thread.Yield{Type: thread.YieldBudget}
		}

		if !c.resumeBreak && c.tr.breaks.Hit(c.State.PC, c) {
			return thread.Yield{Type: thread.YieldBreakpoint}
		}
		c.resumeBreak = false

		var n int
		var ex exit
		var u *Unit

		if c.interpretNext || settings.Tier == translator.Interpreter {
			c.interpretNext = false
			n, ex = c.interpret(translator.MaxBlockInstructions)
		} else {
			var err error
			u, err = c.tr.executable(c.State.PC, settings)
			if err != nil {
				c.fault = err
				return thread.Yield{Type: thread.YieldFault, Error: err}
			}
			if u.tier == translator.Interpreter {
				n, ex = c.interpret(translator.MaxBlockInstructions)
			} else {
				n, ex = c.runUnit(u)
			}
		}
		retired += n

		switch ex {
		case exitInvalidated:
			c.tr.cache.Invalidate(u.entry)
			c.tr.cache.RecordFallback()
			c.interpretNext = true
		default:
			if y, done := c.complete(ex, &retired); done {
				return y
			}
		}
	}

	return thread.Yield{Type: thread.YieldBudget}
}

// complete handles the exit condition of a block. returns true if the
// thread must stop.
func (c *Core) complete(ex exit, retired *int) (thread.Yield, bool) {
	switch ex {
	case exitSyscall:
		if c.kernel == nil {
			c.State.GPR[3] = ENOSYS
			c.State.PC += 4
			*retired++
			return thread.Yield{}, false
		}

		r := c.kernel.Syscall(c)
		switch r.Action {
		case SyscallContinue:
			c.State.PC += 4
			*retired++
		case SyscallYield:
			c.State.PC += 4
			*retired++
			return thread.Yield{Type: thread.YieldBudget}, true
		case SyscallBlock:
			return thread.Yield{Type: thread.YieldBlocked, Reason: r.Reason, Wake: r.Wake}, true
		case SyscallExit:
			*retired++
			return thread.Yield{Type: thread.YieldExit, Status: r.Status}, true
		case SyscallFault:
			c.fault = r.Error
			return thread.Yield{Type: thread.YieldFault, Error: r.Error}, true
		}

	case exitFault:
		return thread.Yield{Type: thread.YieldFault, Error: c.fault}, true
	}

	return thread.Yield{}, false
}

// Step executes a single instruction with the interpreter, regardless of
// breakpoints and translation settings.
func (c *Core) Step() (y thread.Yield) {
	c.fp = fpuFor(c.tr.Settings().Accuracy)
	c.resumeBreak = false

	retired := 0
	defer func() {
		if r := recover(); r != nil {
			c.fault = curated.Errorf(HostPanic, c.State.PC, r)
			y = thread.Yield{Type: thread.YieldFault, Error: c.fault}
		}
		c.retired.Add(uint64(retired))
		y.Retired = retired
	}()

	n, ex := c.interpret(1)
	retired += n
	if y, done := c.complete(ex, &retired); done {
		return y
	}
	return thread.Yield{Type: thread.YieldBudget}
}

// runUnit executes a threaded or native unit. the PC must be the entry
// address of the unit. returns the number of instructions retired.
func (c *Core) runUnit(u *Unit) (int, exit) {
	for i := range u.ops {
		d := &u.ops[i]

		var ex exit
		if u.code != nil {
			ex = u.code[i](c)
		} else {
			ex = handlers[d.op](c, d)
		}

		switch ex {
		case exitNone:
			c.State.PC += 4
		case exitBranch:
		default:
			return i, ex
		}

		if d.op.is(flagStore) && !u.coverage.Valid(c.mem) {
			return i + 1, exitInvalidated
		}

		// side exit from a superblock
		if i+1 < len(u.ops) && c.State.PC != u.addrs[i+1] {
			return i + 1, exitBranch
		}
	}
	return len(u.ops), exitBranch
}

// interpret instructions until the end of a block or until the limit is
// reached. returns the number of instructions retired.
func (c *Core) interpret(limit int) (int, exit) {
	for n := 0; n < limit; n++ {
		if n > 0 && c.tr.breaks.Has(c.State.PC) {
			return n, exitBranch
		}

		inst, err := c.mem.Fetch(c.State.PC)
		if err != nil {
			return n, c.faulted(err)
		}

		d := decode(inst)
		switch handlers[d.op](c, &d) {
		case exitNone:
			c.State.PC += 4
			if d.op.is(flagEndsBlock) {
				return n + 1, exitBranch
			}
		case exitBranch:
			return n + 1, exitBranch
		case exitSyscall:
			return n, exitSyscall
		case exitFault:
			return n, exitFault
		}
	}
	return limit, exitBranch
}

// IsCall returns true if the instruction at the PC is a branch that sets
// the link register.
func (c *Core) IsCall() bool {
	inst, err := c.mem.Fetch(c.State.PC)
	if err != nil {
		return false
	}
	d := decode(inst)
	return d.op.is(flagBranch) && d.lk
}

// Snapshot returns a copy of the register file. Reservations are not
// included.
func (c *Core) Snapshot() *State {
	s := c.State
	s.Reservation = memory.Reservation{}
	return &s
}

// Plumb a register file into the core.
func (c *Core) Plumb(s *State) {
	c.State = *s
	c.State.Reservation.Valid = false
	c.fault = nil
	c.resumeBreak = false
	c.interpretNext = false
}
