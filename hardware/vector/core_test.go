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

package vector_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/test"
)

var tiers = []translator.Tier{translator.Interpreter, translator.Threaded, translator.Native}

func newCore(t *testing.T, settings translator.Settings, prog vector.Program, port vector.Channels) (*vector.Core, *localstore.LocalStore) {
	t.Helper()
	ls := localstore.NewLocalStore()
	test.DemandSuccess(t, ls.Write(0, prog.Bytes()))
	tr := vector.NewTranslator(logger.Allow, ls, 64, settings)
	c := vector.NewCore(0, "spu0", tr, port)
	c.Reset(0)
	return c, ls
}

func run(t *testing.T, c *vector.Core) thread.Yield {
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

func TestArithmetic(t *testing.T) {
	prog := vector.Program{
		vector.AsmIl(3, -2),
		vector.AsmIla(4, 0x20000),
		vector.AsmIlhu(5, 0x1234),
		vector.AsmIohl(5, 0x5678),
		vector.AsmA(6, 3, 4),
		vector.AsmSf(7, 3, 4),
		vector.AsmAi(8, 4, -1),
		vector.AsmMpy(9, 3, 3),
		vector.AsmShli(10, 5, 4),
		vector.AsmCeq(11, 3, 3),
		vector.AsmCgti(12, 3, -1),
		vector.AsmFsmbi(13, 0x8001),
		vector.AsmSelb(14, 4, 5, 13),
		vector.AsmRotqbyi(15, 5, 4),
		vector.AsmShlqbyi(16, 13, 15),
		vector.AsmShl(17, 5, 11),
		vector.AsmStop(0),
	}
	c, _ := newCore(t, translator.Settings{Tier: translator.Native}, prog, nil)
	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, y.Status, uint32(0))

	s := c.State
	test.ExpectEquality(t, s.GPR[3], vector.Splat(0xfffffffe))
	test.ExpectEquality(t, s.GPR[5], vector.Splat(0x12345678))
	test.ExpectEquality(t, s.GPR[6], vector.Splat(0x1fffe))
	test.ExpectEquality(t, s.GPR[7], vector.Splat(0x20002))
	test.ExpectEquality(t, s.GPR[8], vector.Splat(0x1ffff))
	test.ExpectEquality(t, s.GPR[9], vector.Splat(4))
	test.ExpectEquality(t, s.GPR[10], vector.Splat(0x23456780))
	test.ExpectEquality(t, s.GPR[11], vector.Splat(0xffffffff))
	test.ExpectEquality(t, s.GPR[12], vector.Splat(0))
	test.ExpectEquality(t, s.GPR[13], vector.Reg{0xff000000, 0, 0, 0x000000ff})
	test.ExpectEquality(t, s.GPR[14], vector.Reg{0x12020000, 0x20000, 0x20000, 0x00020078})
	test.ExpectEquality(t, s.GPR[15], vector.Splat(0x12345678))
	test.ExpectEquality(t, s.GPR[16], vector.Reg{0xff000000, 0, 0, 0})
	test.ExpectEquality(t, s.GPR[17], vector.Splat(0))
}

func TestShuffle(t *testing.T) {
	prog := vector.Program{
		vector.AsmIlhu(3, 0x0001),
		vector.AsmIohl(3, 0x0203),
		vector.AsmIlhu(4, 0x1011),
		vector.AsmIohl(4, 0x1213),
		vector.AsmLqa(6, 0x100),
		vector.AsmShufb(8, 3, 4, 6),
		vector.AsmStop(0),
	}
	c, ls := newCore(t, translator.Settings{Tier: translator.Native}, prog, nil)
	test.DemandSuccess(t, ls.Write(0x100, []byte{0x13, 0x10, 0x80, 0xc0, 0xe0, 0x01}))
	run(t, c)

	// byte 0 selects byte 3 of rb and byte 1 selects byte 0 of rb. then the
	// three constant patterns and byte 1 of ra
	test.ExpectEquality(t, c.State.GPR[8][0], uint32(0x131000ff))
	test.ExpectEquality(t, c.State.GPR[8][1], uint32(0x80010000))
}

func TestLoop(t *testing.T) {
	prog := vector.Program{
		vector.AsmIl(3, 0),
		vector.AsmIl(4, 10),
		vector.AsmA(3, 3, 4),
		vector.AsmAi(4, 4, -1),
		vector.AsmBrnz(4, -8),
		vector.AsmStop(0x42),
	}
	for _, tier := range tiers {
		c, _ := newCore(t, translator.Settings{Tier: tier}, prog, nil)
		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldExit, tier)
		test.ExpectEquality(t, y.Status, uint32(0x42), tier)
		test.ExpectEquality(t, c.State.GPR[3][0], uint32(55), tier)
		test.ExpectEquality(t, c.PC(), uint32(len(prog)*4), tier)
	}
}

func equivalenceProgram() vector.Program {
	return vector.Program{
		vector.AsmIl(3, 0),
		vector.AsmIl(4, 10),
		vector.AsmIla(5, 0x1000),

		// loop
		vector.AsmA(3, 3, 4),
		vector.AsmStqd(3, 5, 0),
		vector.AsmAi(5, 5, 16),
		vector.AsmAi(4, 4, -1),
		vector.AsmBrnz(4, -16),

		// floating point
		vector.AsmIlhu(6, 0x3fc0),
		vector.AsmIlhu(7, 0x4010),
		vector.AsmFa(8, 6, 7),
		vector.AsmFm(9, 8, 7),
		vector.AsmFma(10, 6, 7, 8),
		vector.AsmFnms(11, 6, 7, 10),
		vector.AsmFsmbi(12, 0xf0f0),
		vector.AsmShufb(13, 3, 10, 12),
		vector.AsmSelb(14, 3, 8, 12),
		vector.AsmRotqbyi(15, 10, 5),

		// call and return
		vector.AsmBrsl(0, 12),
		vector.AsmBr(16),
		vector.AsmNop(),
		vector.AsmMpyi(16, 3, -3),
		vector.AsmBi(0),

		vector.AsmCeqi(17, 3, 55),
		vector.AsmBrz(17, 8),
		vector.AsmIl(18, 1),
		vector.AsmLqd(19, 5, -160),
		vector.AsmDfa(20, 9, 10),
		vector.AsmStop(0x22),
	}
}

func TestTierEquivalence(t *testing.T) {
	prog := equivalenceProgram()

	for _, accuracy := range []translator.Accuracy{translator.Accurate, translator.Fast} {
		for _, superblock := range []translator.Superblock{translator.SuperblockOff, translator.SuperblockMega, translator.SuperblockGiga} {
			var reference *vector.State
			var referenceData []byte

			for _, tier := range tiers {
				settings := translator.Settings{Tier: tier, Accuracy: accuracy, Superblock: superblock}
				c, ls := newCore(t, settings, prog, nil)

				y := run(t, c)
				test.ExpectEquality(t, y.Type, thread.YieldExit, settings)
				test.ExpectEquality(t, y.Status, uint32(0x22), settings)

				data := make([]byte, 0xa0)
				test.DemandSuccess(t, ls.Read(0x1000, data))

				if reference == nil {
					reference = c.Snapshot()
					referenceData = data
					continue
				}

				if diff := cmp.Diff(reference, c.Snapshot()); diff != "" {
					t.Errorf("%s: register state differs from interpreter (-want +got):\n%s", settings, diff)
				}
				if diff := cmp.Diff(referenceData, data); diff != "" {
					t.Errorf("%s: local store differs from interpreter (-want +got):\n%s", settings, diff)
				}
			}

			test.ExpectEquality(t, reference.GPR[3][0], uint32(55))
			test.ExpectEquality(t, reference.GPR[17][0], uint32(0xffffffff))
			test.ExpectEquality(t, reference.GPR[18][0], uint32(1))
			test.ExpectEquality(t, reference.GPR[16][0], uint32(0xffffff5b))
			test.ExpectEquality(t, reference.GPR[19][0], uint32(10))
			test.ExpectEquality(t, math.Float32frombits(reference.GPR[8][0]), float32(3.75))
		}
	}
}

func TestSelfModifyingCode(t *testing.T) {
	original := vector.Program{
		vector.AsmLqa(4, 0x1000),
		vector.AsmStqa(4, 0x10),
		vector.AsmNop(),
		vector.AsmNop(),
		vector.AsmIl(5, 1),
		vector.AsmStop(1),
		vector.AsmNop(),
		vector.AsmNop(),
	}
	patch := vector.Program{
		vector.AsmIl(5, 99),
		vector.AsmStop(2),
		vector.AsmNop(),
		vector.AsmNop(),
	}

	for _, tier := range tiers {
		c, ls := newCore(t, translator.Settings{Tier: tier, Superblock: translator.SuperblockMega}, original, nil)
		test.DemandSuccess(t, ls.Write(0x1000, patch.Bytes()))

		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldExit, tier)
		test.ExpectEquality(t, y.Status, uint32(2), tier)
		test.ExpectEquality(t, c.State.GPR[5][0], uint32(99), tier)

		if tier != translator.Interpreter {
			test.ExpectInequality(t, c.Translator().Cache().Stats().Fallbacks, uint64(0), tier)
		}
	}
}

func TestStopCodes(t *testing.T) {
	c, _ := newCore(t, translator.Settings{Tier: translator.Native}, vector.Program{
		vector.AsmStop(0x1234),
		vector.AsmStop(0x10),
	}, nil)

	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldBlocked)
	test.ExpectEquality(t, y.Reason, thread.OnGroup)
	test.ExpectEquality(t, y.Status, uint32(0x1234))
	test.ExpectEquality(t, c.PC(), uint32(4))

	y = run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, y.Status, uint32(0x10))

	c, _ = newCore(t, translator.Settings{Tier: translator.Native}, vector.Program{
		vector.AsmStop(0x3000),
	}, nil)
	y = run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldFault)
	test.ExpectSuccess(t, curated.Is(y.Error, vector.IllegalInstruction))
}

func TestIllegalInstruction(t *testing.T) {
	for _, tier := range tiers {
		c, _ := newCore(t, translator.Settings{Tier: tier}, vector.Program{0x7fe00000}, nil)
		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldFault, tier)
		test.ExpectSuccess(t, curated.Is(y.Error, vector.IllegalInstruction), tier)
		test.ExpectEquality(t, c.PC(), uint32(0), tier)
	}
}

// mailbox is a Channels implementation with an inbound and outbound mailbox.
type mailbox struct {
	ev    *thread.Event
	inbox []uint32
	out   []uint32
}

func (m *mailbox) ReadChannel(ch uint32) (uint32, <-chan struct{}, thread.Reason, error) {
	if ch != 29 {
		return 0, nil, thread.NoReason, curated.Errorf("no channel")
	}
	if len(m.inbox) == 0 {
		return 0, m.ev.Wait(), thread.OnSignal, nil
	}
	v := m.inbox[0]
	m.inbox = m.inbox[1:]
	return v, nil, thread.NoReason, nil
}

func (m *mailbox) WriteChannel(ch uint32, v uint32) (<-chan struct{}, thread.Reason, error) {
	if ch != 28 {
		return nil, thread.NoReason, curated.Errorf("no channel")
	}
	m.out = append(m.out, v)
	return nil, thread.NoReason, nil
}

func (m *mailbox) ChannelCount(ch uint32) (uint32, error) {
	if ch != 29 {
		return 0, curated.Errorf("no channel")
	}
	return uint32(len(m.inbox)), nil
}

func TestChannels(t *testing.T) {
	prog := vector.Program{
		vector.AsmIl(2, 1000),
		vector.AsmWrch(vector.ChWrDec, 2),
		vector.AsmRdch(3, 29),
		vector.AsmAi(3, 3, 1),
		vector.AsmWrch(28, 3),
		vector.AsmRchcnt(4, 29),
		vector.AsmRdch(5, vector.ChRdDec),
		vector.AsmStop(0),
	}

	for _, tier := range tiers {
		m := &mailbox{ev: thread.NewEvent()}
		c, _ := newCore(t, translator.Settings{Tier: tier}, prog, m)

		y := run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldBlocked, tier)
		test.ExpectEquality(t, y.Reason, thread.OnSignal, tier)
		test.ExpectEquality(t, c.PC(), uint32(8), tier)

		m.inbox = append(m.inbox, 41)
		m.ev.Notify()
		select {
		case <-y.Wake:
		default:
			t.Errorf("wake channel not closed")
		}

		y = run(t, c)
		test.ExpectEquality(t, y.Type, thread.YieldExit, tier)
		test.ExpectEquality(t, len(m.out), 1, tier)
		test.ExpectEquality(t, m.out[0], uint32(42), tier)
		test.ExpectEquality(t, c.State.GPR[4][0], uint32(0), tier)

		// the decrementer counts the instruction that sets it and the four
		// instructions that follow
		test.ExpectEquality(t, c.State.GPR[5][0], uint32(995), tier)
	}
}

func TestNoChannels(t *testing.T) {
	c, _ := newCore(t, translator.Settings{Tier: translator.Native}, vector.Program{
		vector.AsmRdch(3, 29),
	}, nil)
	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldFault)
	test.ExpectSuccess(t, curated.Is(y.Error, vector.BadChannel))
}

func TestBreakpoint(t *testing.T) {
	prog := vector.Program{
		vector.AsmIl(3, 1),
		vector.AsmIl(3, 2),
		vector.AsmIl(3, 3),
		vector.AsmStop(0),
	}
	c, _ := newCore(t, translator.Settings{Tier: translator.Native}, prog, nil)
	c.Translator().Breakpoints().Add(8, func(ctx any) bool {
		return ctx.(*vector.Core).State.GPR[3][0] == 2
	})

	y := run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldBreakpoint)
	test.ExpectEquality(t, c.PC(), uint32(8))

	c.ResumeFromBreakpoint()
	y = run(t, c)
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, c.State.GPR[3][0], uint32(3))
}

func TestStep(t *testing.T) {
	prog := vector.Program{
		vector.AsmBrsl(0, 8),
		vector.AsmStop(0),
		vector.AsmBi(0),
	}
	c, _ := newCore(t, translator.Settings{Tier: translator.Native}, prog, nil)
	test.ExpectSuccess(t, c.IsCall())

	c.Step()
	test.ExpectEquality(t, c.PC(), uint32(8))
	test.ExpectEquality(t, c.State.GPR[0][0], uint32(4))
	test.ExpectFailure(t, c.IsCall())

	c.Step()
	test.ExpectEquality(t, c.PC(), uint32(4))

	y := c.Step()
	test.ExpectEquality(t, y.Type, thread.YieldExit)
	test.ExpectEquality(t, c.Retired(), uint64(3))
}

func TestDisassemble(t *testing.T) {
	test.ExpectEquality(t, vector.Disassemble(vector.AsmIl(3, -1), 0), "il $3, -1")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmA(3, 4, 5), 0), "a $3, $4, $5")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmLqd(3, 1, 32), 0), "lqd $3, 32($1)")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmBr(-8), 0x100), "br 0x000f8")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmRdch(3, 29), 0), "rdch $3, $ch29")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmWrch(28, 3), 0), "wrch $ch28, $3")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmFma(1, 2, 3, 4), 0), "fma $1, $2, $3, $4")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmStop(0x2000), 0), "stop 0x2000")
	test.ExpectEquality(t, vector.Disassemble(vector.AsmNop(), 0), "nop")
}
