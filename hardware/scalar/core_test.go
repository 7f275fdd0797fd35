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

package scalar_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/test"
)

const (
	codeBase = 0x10000
	dataBase = 0x20000
)

// kernel for tests. system call 1 ends the thread with the status in r3.
// every other call is passed to the onCall function.
type kernel struct {
	onCall func(c *scalar.Core)
}

func (k *kernel) Syscall(c *scalar.Core) scalar.SyscallResult {
	if c.State.GPR[11] == 1 {
		return scalar.SyscallResult{Action: scalar.SyscallExit, Status: uint32(c.State.GPR[3])}
	}
	if k.onCall != nil {
		k.onCall(c)
	}
	return scalar.SyscallResult{Action: scalar.SyscallContinue}
}

func newMemory(t *testing.T) *memory.Memory {
	t.Helper()
	mem, err := memory.NewMemory(logger.Allow, 1<<20, memory.Strict)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = mem.Release()
	})
	test.DemandSuccess(t, mem.Map(codeBase, 0x10000, memory.ProtRWX))
	test.DemandSuccess(t, mem.Map(dataBase, 0x20000, memory.ProtRW))
	return mem
}

func newCore(t *testing.T, mem *memory.Memory, settings translator.Settings, prog scalar.Program, k scalar.Kernel) *scalar.Core {
	t.Helper()
	test.DemandSuccess(t, mem.Poke(codeBase, prog.Bytes()))
	tr := scalar.NewTranslator(logger.Allow, mem, 256, settings)
	c := scalar.NewCore(1, "test", tr, k)
	c.Reset(codeBase)
	return c
}

// run the core until it yields for any reason other than the budget.
func run(t *testing.T, c *scalar.Core) thread.Yield {
	t.Helper()
	for i := 0; i < 1000; i++ {
		y := c.Run(100, thread.NoSafepoint)
		if y.Type != thread.YieldBudget {
			return y
		}
	}
	t.Fatalf("program did not end")
	return thread.Yield{}
}

func exitProgram(p ...uint32) scalar.Program {
	return append(scalar.Program(p), scalar.AsmLi(11, 1), scalar.AsmSc())
}

func TestArithmetic(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(
		scalar.AsmLi(4, 100),
		scalar.AsmLi(5, -7),
		scalar.AsmAdd(6, 4, 5),
		scalar.AsmSubf(7, 5, 4),
		scalar.AsmMullw(8, 4, 5),
		scalar.AsmDivw(9, 8, 5),
		scalar.AsmDivw(10, 4, 0),
		scalar.AsmLis(12, 0x1234),
		scalar.AsmOri(12, 12, 0x5678),
		scalar.AsmRlwinm(13, 12, 8, 24, 31),
		scalar.AsmLi(3, 42),
	)

	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})
	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, y.Status, uint32(42))

	test.ExpectEquality(t, c.State.GPR[6], uint64(93))
	test.ExpectEquality(t, c.State.GPR[7], uint64(107))
	test.ExpectEquality(t, int64(c.State.GPR[8]), int64(-700))
	test.ExpectEquality(t, c.State.GPR[9], uint64(100))
	test.ExpectEquality(t, c.State.GPR[10], uint64(0))
	test.ExpectEquality(t, c.State.GPR[12], uint64(0x12345678))
	test.ExpectEquality(t, c.State.GPR[13], uint64(0x12))
}

func TestLoop(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(
		scalar.AsmLi(3, 0),
		scalar.AsmLi(4, 10),
		scalar.AsmMtctr(4),
		scalar.AsmAdd(3, 3, 4),
		scalar.AsmAddi(4, 4, -1),
		scalar.AsmBdnz(-8),
	)

	for _, tier := range []translator.Tier{translator.Interpreter, translator.Threaded, translator.Native} {
		c := newCore(t, mem, translator.Settings{Tier: tier}, prog, &kernel{})
		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldExit, tier)
		test.ExpectEquality(t, y.Status, uint32(55), tier)
	}
}

// program that exercises most of the instruction set. the function at
// index 15 is called with bl and an unconditional branch skips over
// padding.
func equivalenceProgram() scalar.Program {
	return scalar.Program{
		scalar.AsmLi(3, 0),
		scalar.AsmLis(20, 2),
		scalar.AsmLi(4, 10),
		scalar.AsmMtctr(4),

		// loop
		scalar.AsmAddi(3, 3, 7),
		scalar.AsmMullw(5, 3, 4),
		scalar.AsmStw(5, 20, 0),
		scalar.AsmLwz(6, 20, 0),
		scalar.AsmAdd(7, 6, 3),
		scalar.AsmAddi(20, 20, 4),
		scalar.AsmBdnz(-24),

		scalar.AsmBl(16),
		scalar.AsmB(28),
		scalar.AsmNop(),
		scalar.AsmNop(),

		// function
		scalar.AsmLi(8, 123),
		scalar.AsmNeg(12, 8),
		scalar.AsmSraw(10, 12, 4),
		scalar.AsmBlr(),

		scalar.AsmCmpwi(0, 3, 70),
		scalar.AsmBeq(8),
		scalar.AsmLi(13, 1),
		scalar.AsmLi(14, 2),

		// floating point
		scalar.AsmLis(21, 3),
		scalar.AsmLfd(1, 21, 0),
		scalar.AsmLfd(2, 21, 8),
		scalar.AsmFadd(3, 1, 2),
		scalar.AsmFmul(4, 3, 2),
		scalar.AsmFmadd(5, 1, 2, 3),
		scalar.AsmFdiv(6, 5, 1),
		scalar.AsmLfd(7, 21, 16),
		scalar.AsmFadd(8, 7, 1),
		scalar.AsmLfd(9, 21, 24),
		scalar.AsmFsub(10, 9, 9),
		scalar.AsmFsqrt(11, 2),
		scalar.AsmFadds(12, 1, 2),
		scalar.AsmFcmpu(1, 1, 2),
		scalar.AsmStfd(6, 21, 32),
		scalar.AsmFrsp(13, 6),
		scalar.AsmMfcr(15),

		scalar.AsmLi(11, 1),
		scalar.AsmSc(),
	}
}

func prepareFloatData(t *testing.T, mem *memory.Memory) {
	t.Helper()
	test.DemandSuccess(t, mem.Write64(0x30000, math.Float64bits(1.5)))
	test.DemandSuccess(t, mem.Write64(0x30008, math.Float64bits(2.25)))
	test.DemandSuccess(t, mem.Write64(0x30010, 0x7ff0000000000123))
	test.DemandSuccess(t, mem.Write64(0x30018, math.Float64bits(math.Inf(1))))
}

func TestTierEquivalence(t *testing.T) {
	prog := equivalenceProgram()

	for _, accuracy := range []translator.Accuracy{translator.Accurate, translator.Fast} {
		for _, superblock := range []translator.Superblock{translator.SuperblockOff, translator.SuperblockMega, translator.SuperblockGiga} {
			var reference *scalar.State
			var referenceData []byte

			for _, tier := range []translator.Tier{translator.Interpreter, translator.Threaded, translator.Native} {
				settings := translator.Settings{Tier: tier, Accuracy: accuracy, Superblock: superblock}

				mem := newMemory(t)
				prepareFloatData(t, mem)
				c := newCore(t, mem, settings, prog, &kernel{})

				y := run(t, c)
				test.ExpectEquality(t, y.Type, thread.YieldExit, settings)

				data := make([]byte, 0x40)
				test.DemandSuccess(t, mem.Peek(dataBase, data))
				fpdata := make([]byte, 0x40)
				test.DemandSuccess(t, mem.Peek(0x30000, fpdata))
				data = append(data, fpdata...)

				if reference == nil {
					reference = c.Snapshot()
					referenceData = data
					continue
				}

				if diff := cmp.Diff(reference, c.Snapshot()); diff != "" {
					t.Errorf("%s: register state differs from interpreter (-want +got):\n%s", settings, diff)
				}
				if diff := cmp.Diff(referenceData, data); diff != "" {
					t.Errorf("%s: memory differs from interpreter (-want +got):\n%s", settings, diff)
				}
			}

			test.ExpectEquality(t, reference.GPR[3], uint64(70))
			test.ExpectEquality(t, reference.GPR[13], uint64(0))
			test.ExpectEquality(t, reference.GPR[14], uint64(2))
			test.ExpectEquality(t, reference.GPR[8], uint64(123))
			test.ExpectEquality(t, reference.FPR[3], math.Float64bits(3.75))
		}
	}
}

func TestFloatingPointTiers(t *testing.T) {
	prog := equivalenceProgram()

	results := make(map[translator.Accuracy]*scalar.State)
	for _, accuracy := range []translator.Accuracy{translator.Accurate, translator.Fast} {
		mem := newMemory(t)
		prepareFloatData(t, mem)
		c := newCore(t, mem, translator.Settings{Tier: translator.Native, Accuracy: accuracy}, prog, &kernel{})
		run(t, c)
		results[accuracy] = c.Snapshot()
	}

	acc := results[translator.Accurate]
	fast := results[translator.Fast]

	// accurate tier: first NaN operand is propagated and quieted. invalid
	// operations produce the default NaN
	test.ExpectEquality(t, acc.FPR[8], uint64(0x7ff8000000000123))
	test.ExpectEquality(t, acc.FPR[10], scalar.DefaultNaN)
	test.ExpectInequality(t, acc.FPSCR&scalar.FpscrVX, 0)

	// fast tier produces a NaN but the payload is not defined
	test.ExpectSuccess(t, math.IsNaN(math.Float64frombits(fast.FPR[10])))
	test.ExpectEquality(t, fast.FPSCR&scalar.FpscrVX, 0)

	// ordinary arithmetic is identical
	test.ExpectEquality(t, acc.FPR[6], fast.FPR[6])
	test.ExpectEquality(t, acc.FPR[11], math.Float64bits(1.5))

	// fcmpu: 1.5 < 2.25 in cr1
	test.ExpectEquality(t, acc.CRField(1), uint32(scalar.CrLT))
}

func TestSelfModifyingCode(t *testing.T) {
	patch := scalar.AsmLi(5, 99)

	for _, tier := range []translator.Tier{translator.Interpreter, translator.Threaded, translator.Native} {
		mem := newMemory(t)
		prog := exitProgram(
			scalar.AsmLis(3, 1),
			scalar.AsmLis(4, int16(patch>>16)),
			scalar.AsmOri(4, 4, uint16(patch)),
			scalar.AsmStw(4, 3, 0x14),
			scalar.AsmNop(),
			scalar.AsmLi(5, 1),
			scalar.AsmMr(3, 5),
		)

		c := newCore(t, mem, translator.Settings{Tier: tier, Superblock: translator.SuperblockMega}, prog, &kernel{})
		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldExit, tier)
		test.ExpectEquality(t, y.Status, uint32(99), tier)

		if tier != translator.Interpreter {
			s := c.Translator().Cache().Stats()
			test.ExpectInequality(t, s.Fallbacks, uint64(0), tier)
		}
	}
}

func TestStaleTranslation(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(scalar.AsmLi(3, 1))
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})

	y := run(t, c)
	test.ExpectEquality(t, y.Status, uint32(1))

	// rewrite the program from outside the thread and run again. the
	// cached unit must not be used
	test.DemandSuccess(t, mem.Write32(codeBase, scalar.AsmLi(3, 2)))
	c.Reset(codeBase)
	y = run(t, c)
	test.ExpectEquality(t, y.Status, uint32(2))
	test.ExpectInequality(t, c.Translator().Cache().Stats().Invalidations, uint64(0))
}

func TestReservationInstructions(t *testing.T) {
	prog := exitProgram(
		scalar.AsmLis(20, 2),
		scalar.AsmLwarx(4, 0, 20),
		scalar.AsmLi(11, 2),
		scalar.AsmSc(),
		scalar.AsmAddi(4, 4, 1),
		scalar.AsmStwcx(4, 0, 20),
		scalar.AsmMfcr(3),
	)

	// no intervening write
	mem := newMemory(t)
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})
	y := run(t, c)
	test.ExpectEquality(t, (y.Status>>28)&scalar.CrEQ, uint32(scalar.CrEQ))
	v, _ := mem.Read32(dataBase)
	test.ExpectEquality(t, v, uint32(1))

	// a DMA write to the same line from somewhere else during the
	// reservation
	mem = newMemory(t)
	k := &kernel{onCall: func(c *scalar.Core) {
		_ = mem.WriteDMA(dataBase+0x10, []byte{1, 2, 3, 4})
	}}
	c = newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, k)
	y = run(t, c)
	test.ExpectEquality(t, (y.Status>>28)&scalar.CrEQ, uint32(0))
	v, _ = mem.Read32(dataBase)
	test.ExpectEquality(t, v, uint32(0))
}

func TestIllegalInstruction(t *testing.T) {
	for _, tier := range []translator.Tier{translator.Interpreter, translator.Threaded, translator.Native} {
		mem := newMemory(t)
		prog := scalar.Program{0x00000000}
		c := newCore(t, mem, translator.Settings{Tier: tier}, prog, &kernel{})
		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldFault, tier)
		test.ExpectSuccess(t, curated.Is(y.Error, scalar.IllegalInstruction), tier)
		test.ExpectEquality(t, c.PC(), uint32(codeBase), tier)

		if tier != translator.Interpreter {
			test.ExpectEquality(t, c.Translator().Cache().Stats().Fallbacks, uint64(1), tier)
		}
	}
}

func TestMemoryFault(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(
		scalar.AsmLi(4, 0),
		scalar.AsmLwz(5, 4, 0),
	)
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})
	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldFault)
	test.ExpectSuccess(t, memory.IsGuestFault(y.Error))
	test.ExpectEquality(t, c.PC(), uint32(codeBase+4))
}

func TestBreakpoint(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(
		scalar.AsmLi(3, 1),
		scalar.AsmLi(3, 2),
		scalar.AsmLi(3, 3),
	)
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})
	c.Translator().Breakpoints().Add(codeBase+8, nil)

	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldBreakpoint)
	test.ExpectEquality(t, c.PC(), uint32(codeBase+8))
	test.ExpectEquality(t, c.State.GPR[3], uint64(2))

	c.ResumeFromBreakpoint()
	y = run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, y.Status, uint32(3))
}

func TestStep(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(
		scalar.AsmLi(3, 1),
		scalar.AsmBl(8),
		scalar.AsmNop(),
		scalar.AsmLi(3, 5),
	)
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})

	y := c.Step()
	test.ExpectEquality(t, y.Type, thread.YieldBudget)
	test.ExpectEquality(t, y.Retired, 1)
	test.ExpectEquality(t, c.PC(), uint32(codeBase+4))
	test.ExpectSuccess(t, c.IsCall())

	c.Step()
	test.ExpectEquality(t, c.PC(), uint32(codeBase+12))
	test.ExpectEquality(t, c.State.LR, uint64(codeBase+8))
	test.ExpectFailure(t, c.IsCall())
}

func TestBudget(t *testing.T) {
	mem := newMemory(t)
	prog := scalar.Program{scalar.AsmAddi(3, 3, 1), scalar.AsmB(-4)}
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})

	y := c.Run(1000, thread.NoSafepoint)
	test.ExpectEquality(t, y.Type, thread.YieldBudget)
	test.ExpectEquality(t, y.Retired >= 1000, true)
	test.ExpectEquality(t, c.Retired(), uint64(y.Retired))

	// safepoint stops at the first boundary
	y = c.Run(1000, func() bool { return true })
	test.ExpectEquality(t, y.Retired, 0)
}

func TestReconfigure(t *testing.T) {
	mem := newMemory(t)
	prog := exitProgram(scalar.AsmLi(3, 1))
	c := newCore(t, mem, translator.Settings{Tier: translator.Native}, prog, &kernel{})
	run(t, c)
	test.ExpectEquality(t, c.Translator().Cache().Len(), 1)

	c.Translator().Reconfigure(translator.Settings{Tier: translator.Threaded})
	test.ExpectEquality(t, c.Translator().Cache().Len(), 0)

	c.Reset(codeBase)
	run(t, c)
	u, err := c.Translator().Executable(codeBase)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, u.Tier(), translator.Threaded)
}

func TestDisassemble(t *testing.T) {
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmLi(3, -1), 0), "li r3, -1")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmNop(), 0), "nop")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmBl(8), 0x100), "bl 0x00000108")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmBlr(), 0), "blr")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmMr(4, 5), 0), "mr r4, r5")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmLwz(3, 1, 8), 0), "lwz r3, 8(r1)")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmStwcx(3, 0, 4), 0), "stwcx. r3, r0, r4")
	test.ExpectEquality(t, scalar.Disassemble(scalar.AsmMtlr(0), 0), "mtlr r0")
	test.ExpectEquality(t, scalar.Disassemble(0, 0), ".long 0x00000000")
}
