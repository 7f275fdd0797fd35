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

package vector

import (
	"fmt"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
)

// Ranges of stop codes.
const (
	// codes up to and including StopExitMax end the thread. the code is
	// the exit status
	StopExitMax = 0x00ff

	// codes above StopExitMax and up to and including StopSignalMax stop
	// the thread and signal the scalar core. the thread waits for the
	// group to be resumed
	StopSignalMax = 0x1fff
)

// Channels connects a core to its DMA engine, mailboxes and signal
// registers. A non-nil wake channel means the access cannot complete yet.
// The instruction will be executed again after the wake channel is closed.
type Channels interface {
	ReadChannel(ch uint32) (uint32, <-chan struct{}, thread.Reason, error)
	WriteChannel(ch uint32, v uint32) (<-chan struct{}, thread.Reason, error)
	ChannelCount(ch uint32) (uint32, error)
}

// Core is the execution context of a single vector core.
type Core struct {
	id   int
	name string

	State State

	tr   *Translator
	ls   LocalStore
	port Channels

	fp *fpu

	fault       error
	stopCode    uint32
	blockReason thread.Reason
	blockWake   <-chan struct{}

	resumeBreak   bool
	interpretNext bool

	retired atomic.Uint64
}

// NewCore is the preferred method of initialisation for the Core type. The
// port can be nil, in which case all channel accesses other than the
// decrementer fault.
func NewCore(id int, name string, tr *Translator, port Channels) *Core {
	return &Core{
		id:   id,
		name: name,
		tr:   tr,
		ls:   tr.ls,
		port: port,
		fp:   fpuFor(tr.Settings().Accuracy),
	}
}

func (c *Core) String() string {
	return fmt.Sprintf("%s: pc=%05x", c.name, c.State.PC)
}

// ID of the core.
func (c *Core) ID() int {
	return c.id
}

// Name of the core.
func (c *Core) Name() string {
	return c.name
}

// Kind returns thread.Vector.
func (c *Core) Kind() thread.Kind {
	return thread.Vector
}

// PC returns the current program counter.
func (c *Core) PC() uint32 {
	return c.State.PC
}

// Retired returns the number of instructions retired by the core.
func (c *Core) Retired() uint64 {
	return c.retired.Load()
}

// Fault returns the most recent fault.
func (c *Core) Fault() error {
	return c.fault
}

// StopCode returns the code of the most recent stop instruction.
func (c *Core) StopCode() uint32 {
	return c.stopCode
}

// Translator returns the translator for the core.
func (c *Core) Translator() *Translator {
	return c.tr
}

// ResumeFromBreakpoint should be called before resuming a core that
// stopped on a breakpoint.
func (c *Core) ResumeFromBreakpoint() {
	c.resumeBreak = true
}

// Reset the register file. The core will start at the entry address.
func (c *Core) Reset(entry uint32) {
	c.State = State{PC: entry & localstore.LSLR &^ 3}
	c.fault = nil
	c.stopCode = 0
	c.resumeBreak = false
	c.interpretNext = false
}

// Run the core for at least the number of instructions in the budget,
// stopping at a block boundary.
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
			u = c.tr.executable(c.State.PC, settings)
			if u.tier == translator.Interpreter {
				n, ex = c.interpret(translator.MaxBlockInstructions)
			} else {
				n, ex = c.runUnit(u)
			}
		}
		retired += n

		if ex == exitInvalidated {
			c.tr.cache.Invalidate(u.entry)
			c.tr.cache.RecordFallback()
			c.interpretNext = true
			continue
		}

		if y, done := c.complete(ex, &retired); done {
			return y
		}
	}

	return thread.Yield{Type: thread.YieldBudget}
}

func (c *Core) complete(ex exit, retired *int) (thread.Yield, bool) {
	switch ex {
	case exitStop:
		c.State.PC = (c.State.PC + 4) & localstore.LSLR
		c.State.Dec--
		*retired++
		if c.stopCode <= StopExitMax {
			return thread.Yield{Type: thread.YieldExit, Status: c.stopCode}, true
		}
		return thread.Yield{Type: thread.YieldBlocked, Reason: thread.OnGroup, Status: c.stopCode}, true

	case exitBlocked:
		return thread.Yield{Type: thread.YieldBlocked, Reason: c.blockReason, Wake: c.blockWake}, true

	case exitFault:
		return thread.Yield{Type: thread.YieldFault, Error: c.fault}, true
	}
	return thread.Yield{}, false
}

// Step executes a single instruction with the interpreter.
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
			c.State.PC = (c.State.PC + 4) & localstore.LSLR
		case exitBranch:
		default:
			return i, ex
		}
		c.State.Dec--

		if d.op.is(flagStore) && !u.coverage.Valid(c.ls) {
			return i + 1, exitInvalidated
		}

		if i+1 < len(u.ops) && c.State.PC != u.addrs[i+1] {
			return i + 1, exitBranch
		}
	}
	return len(u.ops), exitBranch
}

func (c *Core) interpret(limit int) (int, exit) {
	for n := 0; n < limit; n++ {
		if n > 0 && c.tr.breaks.Has(c.State.PC) {
			return n, exitBranch
		}

		d := decode(c.ls.Fetch(c.State.PC))
		switch ex := handlers[d.op](c, &d); ex {
		case exitNone:
			c.State.PC = (c.State.PC + 4) & localstore.LSLR
			c.State.Dec--
		case exitBranch:
			c.State.Dec--
			return n + 1, exitBranch
		default:
			return n, ex
		}
	}
	return limit, exitBranch
}

// IsCall returns true if the instruction at the PC is a branch that sets a
// link register.
func (c *Core) IsCall() bool {
	d := decode(c.ls.Fetch(c.State.PC))
	return d.op == opBrsl || d.op == opBisl
}

// Snapshot returns a copy of the register file.
func (c *Core) Snapshot() *State {
	s := c.State
	return &s
}

// Plumb a register file into the core.
func (c *Core) Plumb(s *State) {
	c.State = *s
	c.fault = nil
	c.resumeBreak = false
	c.interpretNext = false
}
