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

package debugger_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/debugger/terminal/plainterm"
	"github.com/jetsetilly/gophercell/environment"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/test"
)

const (
	codeBase = 0x00010000
	dataBase = 0x00100000

	// the add instruction at the top of the loop
	loopAddr = codeBase + 12

	mainThread = hardware.ScalarThreadBase
)

var counter = scalar.Program{
	scalar.AsmLis(20, dataBase>>16),
	scalar.AsmLi(3, 0),
	scalar.AsmLi(4, 1),
	scalar.AsmAdd(3, 3, 4),
	scalar.AsmAddi(4, 4, 1),
	scalar.AsmStw(3, 20, 0),
	scalar.AsmB(-12),
}

func image() *loader.Image {
	return &loader.Image{
		Format: loader.Raw,
		Target: loader.Scalar,
		Entry:  codeBase,
		Segments: []loader.Segment{
			{Address: codeBase, MemSize: 0x1000, Data: counter.Bytes(), Prot: memory.ProtRX},
			{Address: dataBase, MemSize: 0x1000, Prot: memory.ProtRW},
		},
	}
}

// newDebugger creates a debugger with a started machine. the machine is
// stopped at the entry address.
func newDebugger(t *testing.T, script string) (*debugger.Debugger, *hardware.Machine, *test.CappedWriter) {
	t.Helper()

	out, err := test.NewCappedWriter(1 << 20)
	test.DemandSuccess(t, err)
	dbg := debugger.NewDebugger(plainterm.NewPlainTerminal(strings.NewReader(script), out), nil)

	p := preferences.NewDefaultPreferences()
	test.DemandSuccess(t, p.MemorySize.Set(16))
	test.DemandSuccess(t, p.VectorCount.Set(1))
	test.DemandSuccess(t, p.StopTimeout.Set(1000))

	m, err := hardware.NewMachine(environment.NewEnvironment(environment.MainEmulation, p, dbg), nil)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = m.Stop(0)
		_ = m.Release()
	})

	dbg.Attach(m)
	test.DemandSuccess(t, dbg.Start(0, image()))

	return dbg, m, out
}

func TestEntry(t *testing.T) {
	dbg, m, _ := newDebugger(t, "")

	test.ExpectEquality(t, m.Condition().State, govern.Paused)
	test.ExpectEquality(t, dbg.Selected(), mainThread)

	c, err := m.ScalarCore(mainThread)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.PC(), uint32(codeBase))

	// the entry breakpoint is not a user breakpoint
	l, err := dbg.Breakpoints()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(l), 0)
	test.ExpectEquality(t, m.Scalar.Breakpoints().Has(codeBase), false)
}

func TestBreakpointMemory(t *testing.T) {
	dbg, _, _ := newDebugger(t, "")

	// data memory is not executable
	err := dbg.SetBreakpoint(mainThread, dataBase, "")
	test.ExpectEquality(t, curated.Is(err, debugger.InvalidBreakpointMemory), true)

	// unmapped
	err = dbg.SetBreakpoint(mainThread, 0x00f00000, "")
	test.ExpectEquality(t, curated.Is(err, debugger.InvalidBreakpointMemory), true)

	// misaligned
	err = dbg.SetBreakpoint(mainThread, loopAddr+2, "")
	test.ExpectEquality(t, curated.Is(err, debugger.InvalidBreakpointMemory), true)

	// zeroed code memory past the end of the program is not a valid
	// instruction
	err = dbg.SetBreakpoint(mainThread, codeBase+0x800, "")
	test.ExpectEquality(t, curated.Is(err, debugger.InvalidBreakpointMemory), true)

	// outside of the local store of a vector core
	err = dbg.SetBreakpoint(hardware.VectorThreadBase, 0x40000, "")
	test.ExpectEquality(t, curated.Is(err, debugger.InvalidBreakpointMemory), true)

	test.ExpectSuccess(t, dbg.SetBreakpoint(mainThread, loopAddr, ""))
	l, err := dbg.Breakpoints()
	test.ExpectSuccess(t, err)
	test.DemandEquality(t, len(l), 1)
	test.ExpectEquality(t, l[0].Address, uint32(loopAddr))
	test.ExpectEquality(t, l[0].Target, "scalar")

	test.ExpectSuccess(t, dbg.ClearBreakpoint(mainThread, loopAddr))
	err = dbg.ClearBreakpoint(mainThread, loopAddr)
	test.ExpectEquality(t, curated.Is(err, debugger.NoSuchBreakpoint), true)

	err = dbg.SetBreakpoint(0x9999, loopAddr, "")
	test.ExpectEquality(t, curated.Is(err, debugger.NoSuchThread), true)
}

func TestBadCondition(t *testing.T) {
	dbg, _, _ := newDebugger(t, "")
	err := dbg.SetBreakpoint(mainThread, loopAddr, "r3 ==")
	test.ExpectEquality(t, curated.Is(err, debugger.BadCondition), true)
}

func TestStep(t *testing.T) {
	dbg, m, _ := newDebugger(t, "")

	y, err := dbg.Step(mainThread, 3)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, y.Type, thread.YieldBudget)
	test.ExpectEquality(t, y.Retired, 3)

	c, err := m.ScalarCore(mainThread)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.PC(), uint32(loopAddr))
	test.ExpectEquality(t, c.State.GPR[4], uint64(1))

	test.ExpectSuccess(t, dbg.SetRegister(mainThread, "r4", 10))
	_, err = dbg.StepOver(mainThread)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, c.State.GPR[3], uint64(10))

	err = dbg.SetRegister(mainThread, "q9", 0)
	test.ExpectEquality(t, curated.Is(err, debugger.UnknownRegister), true)
}

func TestConditionalBreakpoint(t *testing.T) {
	dbg, m, _ := newDebugger(t, "")

	test.DemandSuccess(t, dbg.SetBreakpoint(mainThread, loopAddr, "r3 >= 10"))
	test.ExpectSuccess(t, dbg.Run())
	waitStopped(t, m)

	c, err := m.ScalarCore(mainThread)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.PC(), uint32(loopAddr))
	test.ExpectEquality(t, c.State.GPR[3], uint64(10))
}

func TestScript(t *testing.T) {
	script := strings.Join([]string{
		"threads",
		"break $1000c",
		"list",
		"run",
		"regs",
		"disasm",
		"nonsense",
		"help step",
		"quit",
		"threads",
	}, "\n")

	dbg, _, out := newDebugger(t, script)
	test.ExpectSuccess(t, dbg.Loop())

	s := out.String()
	test.ExpectEquality(t, strings.Contains(s, "main"), true)
	test.ExpectEquality(t, strings.Contains(s, "breakpoint at"), true)
	test.ExpectEquality(t, strings.Contains(s, "scalar 0x0001000c"), true)
	test.ExpectEquality(t, strings.Contains(s, "*>0x0001000c"), true)
	test.ExpectEquality(t, strings.Contains(s, "* debugger: unknown command (NONSENSE)"), true)
	test.ExpectEquality(t, strings.Contains(s, "Execute instructions"), true)
}

// waitStopped waits for the main thread to reach a breakpoint and pauses the
// machine.
func waitStopped(t *testing.T, m *hardware.Machine) {
	t.Helper()
	th, err := m.Thread(mainThread)
	test.DemandSuccess(t, err)

	for i := 0; ; i++ {
		st, r := th.Status()
		if st == thread.Blocked && r == thread.OnBreakpoint {
			break
		}
		if i > 5000 {
			t.Fatalf("thread did not stop")
		}
		time.Sleep(time.Millisecond)
	}
	test.ExpectSuccess(t, m.Pause())
}
