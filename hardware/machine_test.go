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

package hardware_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/environment"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/test"
)

const (
	codeBase = 0x00010000
	dataBase = 0x00100000
)

func newMachine(t *testing.T, notify notifications.Notify, setup func(p *preferences.Preferences)) *hardware.Machine {
	t.Helper()

	p := preferences.NewDefaultPreferences()
	test.DemandSuccess(t, p.MemorySize.Set(16))
	test.DemandSuccess(t, p.VectorCount.Set(1))
	test.DemandSuccess(t, p.StopTimeout.Set(1000))
	if setup != nil {
		setup(p)
	}
	if notify == nil {
		notify = notifications.Discard{}
	}

	m, err := hardware.NewMachine(environment.NewEnvironment(environment.MainEmulation, p, notify), nil)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = m.Stop(0)
		_ = m.Release()
	})
	return m
}

// program joins fragments of scalar code.
func program(parts ...[]uint32) scalar.Program {
	var p scalar.Program
	for _, f := range parts {
		p = append(p, f...)
	}
	return p
}

func syscall(n int16) []uint32 {
	return []uint32{scalar.AsmLi(11, n), scalar.AsmSc()}
}

// image places the program at codeBase and an area of read/write memory at
// dataBase.
func image(p scalar.Program, data []byte) *loader.Image {
	return &loader.Image{
		Format: loader.Raw,
		Target: loader.Scalar,
		Entry:  codeBase,
		Segments: []loader.Segment{
			{Address: codeBase, MemSize: 0x1000, Data: p.Bytes(), Prot: memory.ProtRX},
			{Address: dataBase, MemSize: 0x1000, Data: data, Prot: memory.ProtRW},
		},
	}
}

func wait(t *testing.T, m *hardware.Machine) uint32 {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("main thread did not end")
	}
	status, err := m.ExitStatus()
	test.ExpectSuccess(t, err)
	return status
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func onBreakpoint(m *hardware.Machine, id int) func() bool {
	return func() bool {
		th, err := m.Thread(id)
		if err != nil {
			return false
		}
		st, r := th.Status()
		return st == thread.Blocked && r == thread.OnBreakpoint
	}
}

func TestExit(t *testing.T) {
	m := newMachine(t, nil, nil)
	test.ExpectEquality(t, m.Condition().State, govern.Off)

	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{scalar.AsmLi(3, 42)},
		syscall(hardware.SysExit),
	), nil)))
	test.ExpectEquality(t, wait(t, m), uint32(42))

	test.ExpectSuccess(t, m.Stop(0))
	test.ExpectEquality(t, m.Condition().State, govern.Ending)

	// a stopped machine can not be restarted
	err := m.Start(0, image(program(syscall(hardware.SysExit)), nil))
	test.ExpectEquality(t, curated.Is(err, hardware.Ended), true)
}

func TestStartErrors(t *testing.T) {
	m := newMachine(t, nil, nil)

	err := m.Start(0, nil)
	test.ExpectEquality(t, curated.Is(err, hardware.NoImage), true)

	_, err = m.ExitStatus()
	test.ExpectEquality(t, curated.Is(err, hardware.NotStarted), true)
	test.ExpectEquality(t, curated.Is(m.Pause(), hardware.NotStarted), true)

	// an endless loop
	test.ExpectSuccess(t, m.Start(0, image(program([]uint32{scalar.AsmB(0)}), nil)))
	err = m.Start(0, image(program([]uint32{scalar.AsmB(0)}), nil))
	test.ExpectEquality(t, curated.Is(err, hardware.AlreadyStarted), true)

	test.ExpectSuccess(t, m.Pause())
	test.ExpectEquality(t, m.Condition().State, govern.Paused)
	test.ExpectSuccess(t, m.Pause())
	test.ExpectSuccess(t, m.Resume())
	test.ExpectEquality(t, m.Condition().State, govern.Running)
	test.ExpectEquality(t, curated.Is(m.Resume(), hardware.NotPaused), true)

	test.ExpectSuccess(t, m.Stop(time.Second))
	th, err := m.Thread(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	st, _ := th.Status()
	test.ExpectEquality(t, st, thread.Halted)
}

func TestUnknownSyscall(t *testing.T) {
	m := newMachine(t, nil, nil)
	test.ExpectSuccess(t, m.Start(0, image(program(
		syscall(99),
		syscall(hardware.SysExit),
	), nil)))
	test.ExpectEquality(t, wait(t, m), uint32(hardware.CellENOSYS))
}

func TestThreadCreateAndJoin(t *testing.T) {
	m := newMachine(t, nil, nil)

	// the child adds one to its argument and exits with the result
	const childOffset = 0x100

	p := program(
		[]uint32{
			scalar.AsmLis(3, codeBase>>16),
			scalar.AsmOri(3, 3, childOffset),
			scalar.AsmLi(4, 9),
			scalar.AsmLi(5, 500),
			scalar.AsmLi(6, 0),
		},
		syscall(hardware.SysThreadCreate),
		[]uint32{scalar.AsmMr(3, 4)},
		syscall(hardware.SysThreadJoin),
		[]uint32{scalar.AsmMr(3, 4)},
		syscall(hardware.SysExit),
	)
	for len(p) < childOffset/4 {
		p = append(p, scalar.AsmNop())
	}
	p = append(p, program(
		[]uint32{scalar.AsmAddi(3, 3, 1)},
		syscall(hardware.SysExit),
	)...)

	test.ExpectSuccess(t, m.Start(0, image(p, nil)))
	test.ExpectEquality(t, wait(t, m), uint32(10))

	threads := m.Threads()
	test.ExpectEquality(t, threads[0].ID, hardware.ScalarThreadBase)
	test.ExpectEquality(t, threads[1].ID, hardware.ScalarThreadBase+1)
}

func TestGuestPrint(t *testing.T) {
	rec := notifications.NewRecorder(0)
	m := newMachine(t, rec, nil)

	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{
			scalar.AsmLis(3, dataBase>>16),
			scalar.AsmLi(4, 5),
		},
		syscall(hardware.SysPrint),
		syscall(hardware.SysExit),
	), []byte("hello world"))))
	test.ExpectEquality(t, wait(t, m), uint32(hardware.CellOK))

	var printed []string
	for _, e := range rec.Events() {
		if e.Notice == notifications.NotifyGuestPrint {
			printed = append(printed, e.Data.(string))
		}
	}
	if diff := cmp.Diff([]string{"hello"}, printed); diff != "" {
		t.Errorf("guest print (-want +got):\n%s", diff)
	}
}

func TestGPUSubmit(t *testing.T) {
	m := newMachine(t, nil, nil)

	// one command writing a single argument to method 0x100
	buf := []byte{0x00, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01}

	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{
			scalar.AsmLis(3, dataBase>>16),
			scalar.AsmLi(4, int16(len(buf))),
		},
		syscall(hardware.SysGPUSubmit),
		syscall(hardware.SysExit),
	), buf)))
	test.ExpectEquality(t, wait(t, m), uint32(hardware.CellOK))

	s := m.Stats()
	if s.GPU == nil {
		t.Fatalf("no GPU statistics")
	}
	test.ExpectEquality(t, s.GPU.Submissions, uint64(1))
	test.ExpectEquality(t, s.GPU.Commands, uint64(1))
}

func TestMailboxes(t *testing.T) {
	m := newMachine(t, nil, nil)

	// the vector program reads a value from its inbound mailbox and writes
	// the value plus one to its outbound mailbox
	test.ExpectSuccess(t, m.LoadVector(loader.NewRaw(vector.Program{
		vector.AsmRdch(3, mfc.ChRdInMbox),
		vector.AsmAi(3, 3, 1),
		vector.AsmWrch(mfc.ChWrOutMbox, 3),
		vector.AsmStop(0),
	}.Bytes(), 0, 0, loader.Vector)))

	gid := int16(m.Group().ID())

	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{
			scalar.AsmLi(3, gid),
			scalar.AsmLi(4, 0),
			scalar.AsmLi(5, 0),
			scalar.AsmLi(6, 0),
			scalar.AsmLi(7, 0),
		},
		syscall(hardware.SysGroupStart),
		[]uint32{
			scalar.AsmLi(3, 0),
			scalar.AsmLi(4, 41),
		},
		syscall(hardware.SysInMboxWrite),
		[]uint32{scalar.AsmLi(3, 0)},
		syscall(hardware.SysOutMboxRead),
		[]uint32{scalar.AsmMr(3, 4)},
		syscall(hardware.SysExit),
	), nil)))
	test.ExpectEquality(t, wait(t, m), uint32(42))
}

func TestStopBlocked(t *testing.T) {
	m := newMachine(t, nil, nil)

	// reading an outbound mailbox that is never written blocks forever
	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{scalar.AsmLi(3, 0)},
		syscall(hardware.SysOutMboxRead),
		syscall(hardware.SysExit),
	), nil)))

	waitFor(t, func() bool {
		th, err := m.Thread(hardware.ScalarThreadBase)
		if err != nil {
			return false
		}
		st, _ := th.Status()
		return st == thread.Blocked
	})

	test.ExpectSuccess(t, m.Stop(time.Second))
	test.ExpectEquality(t, m.Condition(), govern.Condition{State: govern.Ending, SubState: govern.Normal})
}

// the scalar thread takes a reservation on the line at dataBase and starts
// a vector thread that writes sixteen bytes by DMA to dataBase+offset. the
// vector thread then raises a stop signal, after which the scalar thread
// attempts its conditional store. the exit status is the condition register
// after the conditional store.
func reservationTest(t *testing.T, offset int16) (*hardware.Machine, uint32) {
	m := newMachine(t, nil, nil)

	test.ExpectSuccess(t, m.LoadVector(loader.NewRaw(vector.Program{
		vector.AsmIl(10, 0x1000),
		vector.AsmWrch(mfc.ChLSA, 10),
		vector.AsmIl(11, 0),
		vector.AsmWrch(mfc.ChEAH, 11),
		vector.AsmWrch(mfc.ChEAL, 3),
		vector.AsmIl(12, 16),
		vector.AsmWrch(mfc.ChSize, 12),
		vector.AsmIl(13, 1),
		vector.AsmWrch(mfc.ChTagID, 13),
		vector.AsmIl(14, int16(mfc.Put)),
		vector.AsmWrch(mfc.ChCmd, 14),
		vector.AsmIl(15, 2),
		vector.AsmWrch(mfc.ChWrTagMask, 15),
		vector.AsmIl(16, mfc.TagUpdateAll),
		vector.AsmWrch(mfc.ChWrTagUpdate, 16),
		vector.AsmRdch(17, mfc.ChRdTagStat),
		vector.AsmStop(0x101),
		vector.AsmStop(0),
	}.Bytes(), 0, 0, loader.Vector)))

	v, err := m.Vector(0)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, v.LS.Write(0x1000, []byte{
		0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef,
		0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef,
	}))

	gid := int16(m.Group().ID())

	test.ExpectSuccess(t, m.Start(0, image(program(
		[]uint32{
			scalar.AsmLis(20, dataBase>>16),
			scalar.AsmLwarx(21, 0, 20),
			scalar.AsmLi(3, gid),
			scalar.AsmLi(4, 0),
			scalar.AsmLi(5, 0),
			scalar.AsmLi(6, 0),
			scalar.AsmAddi(7, 20, offset),
		},
		syscall(hardware.SysGroupStart),
		[]uint32{scalar.AsmLi(3, gid)},
		syscall(hardware.SysGroupReceiveStop),
		[]uint32{
			scalar.AsmAddi(21, 21, 1),
			scalar.AsmStwcx(21, 0, 20),
			scalar.AsmMfcr(22),
			scalar.AsmLi(3, gid),
		},
		syscall(hardware.SysGroupResume),
		[]uint32{scalar.AsmLi(3, gid)},
		syscall(hardware.SysGroupJoin),
		[]uint32{scalar.AsmMr(3, 22)},
		syscall(hardware.SysExit),
	), nil)))

	return m, wait(t, m)
}

func TestReservationLostToDMA(t *testing.T) {
	const offset = 0x10

	m, cr := reservationTest(t, offset)
	test.ExpectEquality(t, (cr>>28)&scalar.CrEQ, uint32(0))

	v, err := m.Mem.Read32(dataBase + offset)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xdeadbeef))

	// the conditional store did not happen
	v, err = m.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0))
}

func TestReservationKept(t *testing.T) {
	// the DMA is to a different reservation line
	const offset = 0x200

	m, cr := reservationTest(t, offset)
	test.ExpectInequality(t, (cr>>28)&scalar.CrEQ, uint32(0))

	v, err := m.Mem.Read32(dataBase + offset)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xdeadbeef))

	v, err = m.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(1))
}

// counting loop with a store to dataBase on every iteration. breakpointAddr
// is the address of the add instruction at the top of the loop.
var counter = program([]uint32{
	scalar.AsmLis(20, dataBase>>16),
	scalar.AsmLi(3, 0),
	scalar.AsmLi(4, 1),
	scalar.AsmAdd(3, 3, 4),
	scalar.AsmAddi(4, 4, 1),
	scalar.AsmStw(3, 20, 0),
	scalar.AsmB(-12),
})

const breakpointAddr = codeBase + 12

func TestStep(t *testing.T) {
	m := newMachine(t, nil, nil)
	m.Scalar.Breakpoints().Add(breakpointAddr, nil)

	test.ExpectSuccess(t, m.Start(0, image(counter, nil)))
	waitFor(t, onBreakpoint(m, hardware.ScalarThreadBase))

	// the machine must be paused before stepping
	_, err := m.Step(hardware.ScalarThreadBase)
	test.ExpectFailure(t, err)

	test.ExpectSuccess(t, m.Pause())

	c, err := m.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.PC(), uint32(breakpointAddr))

	// stepping ignores the breakpoint
	for i := 0; i < 8; i++ {
		y, err := m.Step(hardware.ScalarThreadBase)
		test.ExpectSuccess(t, err)
		test.ExpectEquality(t, y.Type, thread.YieldBudget)
	}
	test.ExpectEquality(t, c.PC(), uint32(breakpointAddr))
	test.ExpectEquality(t, c.State.GPR[3], uint64(3))

	_, err = m.Step(0x9999)
	test.ExpectEquality(t, curated.Is(err, hardware.NoSuchThread), true)
}

func TestStepOver(t *testing.T) {
	m := newMachine(t, nil, nil)

	p := program([]uint32{
		scalar.AsmLi(5, 0),
		scalar.AsmBl(12),
		scalar.AsmB(0),
		scalar.AsmNop(),
		scalar.AsmLi(5, 5),
		scalar.AsmAddi(5, 5, 1),
		scalar.AsmBlr(),
	})
	call := uint32(codeBase + 4)
	m.Scalar.Breakpoints().Add(call, nil)

	test.ExpectSuccess(t, m.Start(0, image(p, nil)))
	waitFor(t, onBreakpoint(m, hardware.ScalarThreadBase))
	test.ExpectSuccess(t, m.Pause())

	y, err := m.StepOver(hardware.ScalarThreadBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, y.Retired, 4)

	c, err := m.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.PC(), call+4)
	test.ExpectEquality(t, c.State.GPR[5], uint64(6))
}

func TestContinue(t *testing.T) {
	m := newMachine(t, nil, nil)
	m.Scalar.Breakpoints().Add(breakpointAddr, nil)

	test.ExpectSuccess(t, m.Start(0, image(counter, nil)))
	waitFor(t, onBreakpoint(m, hardware.ScalarThreadBase))

	c, err := m.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	r := c.Retired()

	// the thread is runnable as soon as Continue() returns
	test.ExpectSuccess(t, m.Pause())
	test.ExpectSuccess(t, m.Continue(hardware.ScalarThreadBase))
	th, err := m.Thread(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	st, reason := th.Status()
	test.ExpectEquality(t, st, thread.Running)
	test.ExpectEquality(t, reason, thread.NoReason)

	// continuing a thread that is not on a breakpoint is an error
	test.ExpectFailure(t, m.Continue(hardware.ScalarThreadBase))

	// the thread runs once around the loop and stops on the same breakpoint
	test.ExpectSuccess(t, m.Resume())
	waitFor(t, func() bool {
		return c.Retired() > r && onBreakpoint(m, hardware.ScalarThreadBase)()
	})

	v, err := m.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(1))
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := newMachine(t, nil, nil)
	a.Scalar.Breakpoints().Add(breakpointAddr, nil)
	test.ExpectSuccess(t, a.Start(0, image(counter, nil)))
	waitFor(t, onBreakpoint(a, hardware.ScalarThreadBase))
	test.ExpectSuccess(t, a.Pause())

	// step a few times so that the snapshot is not taken on the breakpoint
	for i := 0; i < 10; i++ {
		_, err := a.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
	}

	s, err := a.Snapshot()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, a.Condition().State, govern.Paused)

	// the restored thread runs until the breakpoint
	b := newMachine(t, nil, nil)
	b.Scalar.Breakpoints().Add(breakpointAddr, nil)
	test.DemandSuccess(t, b.Plumb(s))
	test.ExpectEquality(t, b.Condition().State, govern.Running)
	waitFor(t, onBreakpoint(b, hardware.ScalarThreadBase))
	test.ExpectSuccess(t, b.Pause())

	// bring a to the same point
	ca, err := a.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	for ca.PC() != breakpointAddr {
		_, err := a.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
	}

	cb, err := b.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)

	for i := 0; i < 200; i++ {
		if diff := cmp.Diff(ca.State, cb.State); diff != "" {
			t.Fatalf("state differs after %d steps (-a +b):\n%s", i, diff)
		}
		_, err := a.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
		_, err = b.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
	}

	va, err := a.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	vb, err := b.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, va, vb)

	test.ExpectEquality(t, len(a.Threads()), len(b.Threads()))
}

func TestSnapshotIncompatible(t *testing.T) {
	a := newMachine(t, nil, nil)
	a.Scalar.Breakpoints().Add(breakpointAddr, nil)
	test.ExpectSuccess(t, a.Start(0, image(counter, nil)))
	waitFor(t, onBreakpoint(a, hardware.ScalarThreadBase))

	// snapshot of a running machine leaves the machine running
	s, err := a.Snapshot()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, a.Condition().State, govern.Running)

	b := newMachine(t, nil, func(p *preferences.Preferences) {
		test.DemandSuccess(t, p.VectorCount.Set(2))
	})
	err = b.Plumb(s)
	test.ExpectEquality(t, curated.Is(err, hardware.IncompatibleState), true)
	test.ExpectEquality(t, b.Condition().State, govern.Off)

	err = b.Plumb(nil)
	test.ExpectEquality(t, curated.Is(err, hardware.IncompatibleState), true)

	// malformed memory is rejected before the running machine is changed
	bad := *s
	mem := *s.Memory
	mem.Pages = append(append([]memory.Page(nil), mem.Pages...), memory.Page{Address: 0x00800000, Data: make([]byte, memory.PageSize)})
	bad.Memory = &mem
	threads := len(a.Threads())
	err = a.Plumb(&bad)
	test.ExpectEquality(t, curated.Is(err, hardware.IncompatibleState), true)
	test.ExpectEquality(t, a.Condition().State, govern.Running)
	test.ExpectEquality(t, len(a.Threads()), threads)

	// a machine that has never started has no state
	_, err = b.Snapshot()
	test.ExpectEquality(t, curated.Is(err, hardware.NotStarted), true)
}

func TestApplyPreferences(t *testing.T) {
	m := newMachine(t, nil, nil)
	test.ExpectSuccess(t, m.Start(0, image(program([]uint32{scalar.AsmB(0)}), nil)))

	p := m.Env().Prefs
	err := p.Policy.Set("TIMESLICED")
	test.ExpectEquality(t, curated.Is(err, preferences.NotHotSwappable), true)

	test.ExpectSuccess(t, p.ScalarTier.Set("INTERPRETER"))
	m.ApplyPreferences()
	test.ExpectEquality(t, m.Scalar.Settings().Tier, translator.Interpreter)
}
