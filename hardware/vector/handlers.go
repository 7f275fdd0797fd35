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
	"math/bits"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// exit is the result of executing an instruction or a unit.
type exit int

const (
	// execution continues with the next instruction. the handler has not
	// changed the PC
	exitNone exit = iota

	// the handler has set the PC
	exitBranch

	// stop instruction. the PC is the address of the stop instruction and
	// the stopCode field of the core is set
	exitStop

	// a channel access must wait. the PC is the address of the instruction,
	// which will be executed again when the thread is woken
	exitBlocked

	// the instruction faulted. the PC is the address of the instruction and
	// the fault field of the core is set
	exitFault

	// a store has invalidated the unit being executed. the PC is the address
	// of the next instruction
	exitInvalidated
)

// channels handled by the core itself.
const (
	ChWrDec      = 7
	ChRdDec      = 8
	ChRdMachStat = 13
)

type handler func(c *Core, d *decoded) exit

var handlers [numOps]handler

func init() {
	handlers = [numOps]handler{
		opIllegal: handleIllegal,
		opA:       wordOp(func(a, b uint32) uint32 { return a + b }),
		opSf:      wordOp(func(a, b uint32) uint32 { return b - a }),
		opAnd:     wordOp(func(a, b uint32) uint32 { return a & b }),
		opOr:      wordOp(func(a, b uint32) uint32 { return a | b }),
		opXor:     wordOp(func(a, b uint32) uint32 { return a ^ b }),
		opNor:     wordOp(func(a, b uint32) uint32 { return ^(a | b) }),
		opCeq:     wordOp(func(a, b uint32) uint32 { return mask(a == b) }),
		opCgt:     wordOp(func(a, b uint32) uint32 { return mask(int32(a) > int32(b)) }),
		opClgt:    wordOp(func(a, b uint32) uint32 { return mask(a > b) }),
		opShl:     wordOp(shl),
		opRot:     wordOp(func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b&0x1f)) }),
		opMpy:     wordOp(func(a, b uint32) uint32 { return uint32(int32(int16(a)) * int32(int16(b))) }),
		opMpyu:    wordOp(func(a, b uint32) uint32 { return uint32(uint16(a)) * uint32(uint16(b)) }),
		opFa:      handleFa,
		opFs:      handleFs,
		opFm:      handleFm,
		opDfa:     handleDfa,
		opDfs:     handleDfs,
		opDfm:     handleDfm,
		opBi:      handleBi,
		opBisl:    handleBisl,
		opBiz:     handleBiz,
		opBinz:    handleBinz,
		opLqx:     handleLqx,
		opStqx:    handleStqx,
		opRdch:    handleRdch,
		opWrch:    handleWrch,
		opRchcnt:  handleRchcnt,
		opStop:    handleStop,
		opNop:     handleNop,
		opLnop:    handleNop,
		opSync:    handleNop,
		opDsync:   handleNop,
		opShli:    immOp(func(a uint32, i int32) uint32 { return shl(a, uint32(i)) }),
		opRoti:    immOp(func(a uint32, i int32) uint32 { return bits.RotateLeft32(a, int(i&0x1f)) }),
		opShlqbyi: handleShlqbyi,
		opRotqbyi: handleRotqbyi,
		opAi:      immOp(func(a uint32, i int32) uint32 { return a + uint32(i) }),
		opSfi:     immOp(func(a uint32, i int32) uint32 { return uint32(i) - a }),
		opAndi:    immOp(func(a uint32, i int32) uint32 { return a & uint32(i) }),
		opOri:     immOp(func(a uint32, i int32) uint32 { return a | uint32(i) }),
		opXori:    immOp(func(a uint32, i int32) uint32 { return a ^ uint32(i) }),
		opCeqi:    immOp(func(a uint32, i int32) uint32 { return mask(a == uint32(i)) }),
		opCgti:    immOp(func(a uint32, i int32) uint32 { return mask(int32(a) > i) }),
		opClgti:   immOp(func(a uint32, i int32) uint32 { return mask(a > uint32(i)) }),
		opMpyi:    immOp(func(a uint32, i int32) uint32 { return uint32(int32(int16(a)) * i) }),
		opLqd:     handleLqd,
		opStqd:    handleStqd,
		opIl:      handleIl,
		opIlh:     handleIlh,
		opIlhu:    handleIlhu,
		opIohl:    handleIohl,
		opBr:      handleBr,
		opBra:     handleBra,
		opBrsl:    handleBrsl,
		opBrz:     handleBrz,
		opBrnz:    handleBrnz,
		opLqa:     handleLqa,
		opStqa:    handleStqa,
		opLqr:     handleLqr,
		opStqr:    handleStqr,
		opFsmbi:   handleFsmbi,
		opIla:     handleIla,
		opShufb:   handleShufb,
		opSelb:    handleSelb,
		opFma:     handleFma,
		opFms:     handleFms,
		opFnms:    handleFnms,
	}
}

func mask(b bool) uint32 {
	if b {
		return 0xffffffff
	}
	return 0
}

func shl(a, b uint32) uint32 {
	n := b & 0x3f
	if n > 31 {
		return 0
	}
	return a << n
}

// wordOp creates a handler for an RR instruction that operates on each word
// of RA and RB.
func wordOp(f func(a, b uint32) uint32) handler {
	return func(c *Core, d *decoded) exit {
		a, b := &c.State.GPR[d.ra], &c.State.GPR[d.rb]
		c.State.GPR[d.rt] = Reg{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2]), f(a[3], b[3])}
		return exitNone
	}
}

// immOp creates a handler for an RI7 or RI10 instruction that operates on
// each word of RA and the immediate value.
func immOp(f func(a uint32, i int32) uint32) handler {
	return func(c *Core, d *decoded) exit {
		a, i := &c.State.GPR[d.ra], d.imm
		c.State.GPR[d.rt] = Reg{f(a[0], i), f(a[1], i), f(a[2], i), f(a[3], i)}
		return exitNone
	}
}

func (c *Core) faulted(err error) exit {
	c.fault = err
	return exitFault
}

func (c *Core) block(reason thread.Reason, wake <-chan struct{}) exit {
	c.blockReason = reason
	c.blockWake = wake
	return exitBlocked
}

func handleIllegal(c *Core, d *decoded) exit {
	return c.faulted(curated.Errorf(IllegalInstruction, d.inst, c.State.PC))
}

func handleNop(_ *Core, _ *decoded) exit {
	return exitNone
}

func handleFa(c *Core, d *decoded) exit {
	a, b := &c.State.GPR[d.ra], &c.State.GPR[d.rb]
	f := c.fp.add
	c.State.GPR[d.rt] = Reg{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2]), f(a[3], b[3])}
	return exitNone
}

func handleFs(c *Core, d *decoded) exit {
	a, b := &c.State.GPR[d.ra], &c.State.GPR[d.rb]
	f := c.fp.sub
	c.State.GPR[d.rt] = Reg{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2]), f(a[3], b[3])}
	return exitNone
}

func handleFm(c *Core, d *decoded) exit {
	a, b := &c.State.GPR[d.ra], &c.State.GPR[d.rb]
	f := c.fp.mul
	c.State.GPR[d.rt] = Reg{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2]), f(a[3], b[3])}
	return exitNone
}

func fused(c *Core, d *decoded, f func(a, b, c uint32) uint32) exit {
	a, b, x := &c.State.GPR[d.ra], &c.State.GPR[d.rb], &c.State.GPR[d.rc]
	c.State.GPR[d.rt] = Reg{f(a[0], b[0], x[0]), f(a[1], b[1], x[1]), f(a[2], b[2], x[2]), f(a[3], b[3], x[3])}
	return exitNone
}

func handleFma(c *Core, d *decoded) exit {
	return fused(c, d, c.fp.fma)
}

func handleFms(c *Core, d *decoded) exit {
	return fused(c, d, c.fp.fms)
}

func handleFnms(c *Core, d *decoded) exit {
	return fused(c, d, c.fp.fnms)
}

func doubleOp(c *Core, d *decoded, f func(a, b float64) float64) exit {
	a, b := c.State.GPR[d.ra], c.State.GPR[d.rb]
	var r Reg
	setDword(&r, 0, f(dword(a, 0), dword(b, 0)))
	setDword(&r, 1, f(dword(a, 1), dword(b, 1)))
	c.State.GPR[d.rt] = r
	return exitNone
}

func handleDfa(c *Core, d *decoded) exit {
	return doubleOp(c, d, func(a, b float64) float64 { return a + b })
}

func handleDfs(c *Core, d *decoded) exit {
	return doubleOp(c, d, func(a, b float64) float64 { return a - b })
}

func handleDfm(c *Core, d *decoded) exit {
	return doubleOp(c, d, func(a, b float64) float64 { return a * b })
}

func handleShlqbyi(c *Core, d *decoded) exit {
	n := int(d.imm & 0x1f)
	a := c.State.GPR[d.ra].bytes()
	var r [16]byte
	for i := 0; i+n < 16; i++ {
		r[i] = a[i+n]
	}
	c.State.GPR[d.rt] = fromBytes(r)
	return exitNone
}

func handleRotqbyi(c *Core, d *decoded) exit {
	n := int(d.imm & 0xf)
	a := c.State.GPR[d.ra].bytes()
	var r [16]byte
	for i := range r {
		r[i] = a[(i+n)&0xf]
	}
	c.State.GPR[d.rt] = fromBytes(r)
	return exitNone
}

func handleShufb(c *Core, d *decoded) exit {
	a := c.State.GPR[d.ra].bytes()
	b := c.State.GPR[d.rb].bytes()
	sel := c.State.GPR[d.rc].bytes()
	var r [16]byte
	for i, s := range sel {
		switch {
		case s&0xc0 == 0x80:
			r[i] = 0x00
		case s&0xe0 == 0xc0:
			r[i] = 0xff
		case s&0xe0 == 0xe0:
			r[i] = 0x80
		case s&0x10 == 0:
			r[i] = a[s&0xf]
		default:
			r[i] = b[s&0xf]
		}
	}
	c.State.GPR[d.rt] = fromBytes(r)
	return exitNone
}

func handleSelb(c *Core, d *decoded) exit {
	a, b, m := &c.State.GPR[d.ra], &c.State.GPR[d.rb], &c.State.GPR[d.rc]
	var r Reg
	for i := range r {
		r[i] = a[i]&^m[i] | b[i]&m[i]
	}
	c.State.GPR[d.rt] = r
	return exitNone
}

func handleFsmbi(c *Core, d *decoded) exit {
	var r [16]byte
	for i := range r {
		if d.uimm&(0x8000>>i) != 0 {
			r[i] = 0xff
		}
	}
	c.State.GPR[d.rt] = fromBytes(r)
	return exitNone
}

func handleIl(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = Splat(uint32(d.imm))
	return exitNone
}

func handleIlh(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = Splat(d.uimm<<16 | d.uimm)
	return exitNone
}

func handleIlhu(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = Splat(d.uimm << 16)
	return exitNone
}

func handleIohl(c *Core, d *decoded) exit {
	r := &c.State.GPR[d.rt]
	for i := range r {
		r[i] |= d.uimm
	}
	return exitNone
}

func handleIla(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = Splat(d.uimm)
	return exitNone
}

// local store addresses for loads and stores.
func quadAddress(a uint32) uint32 {
	return a & localstore.LSLR &^ 0xf
}

func (c *Core) lqdAddress(d *decoded) uint32 {
	return quadAddress(c.State.GPR[d.ra][0] + uint32(d.imm<<4))
}

func (c *Core) lqxAddress(d *decoded) uint32 {
	return quadAddress(c.State.GPR[d.ra][0] + c.State.GPR[d.rb][0])
}

func (c *Core) relative(d *decoded) uint32 {
	return (c.State.PC + uint32(d.imm<<2)) & localstore.LSLR
}

func absolute(d *decoded) uint32 {
	return uint32(d.imm<<2) & localstore.LSLR
}

func handleLqd(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = c.ls.ReadQuad(c.lqdAddress(d))
	return exitNone
}

func handleStqd(c *Core, d *decoded) exit {
	c.ls.WriteQuad(c.lqdAddress(d), c.State.GPR[d.rt])
	return exitNone
}

func handleLqx(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = c.ls.ReadQuad(c.lqxAddress(d))
	return exitNone
}

func handleStqx(c *Core, d *decoded) exit {
	c.ls.WriteQuad(c.lqxAddress(d), c.State.GPR[d.rt])
	return exitNone
}

func handleLqa(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = c.ls.ReadQuad(quadAddress(absolute(d)))
	return exitNone
}

func handleStqa(c *Core, d *decoded) exit {
	c.ls.WriteQuad(quadAddress(absolute(d)), c.State.GPR[d.rt])
	return exitNone
}

func handleLqr(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = c.ls.ReadQuad(quadAddress(c.relative(d)))
	return exitNone
}

func handleStqr(c *Core, d *decoded) exit {
	c.ls.WriteQuad(quadAddress(c.relative(d)), c.State.GPR[d.rt])
	return exitNone
}

func handleBr(c *Core, d *decoded) exit {
	c.State.PC = c.relative(d)
	return exitBranch
}

func handleBra(c *Core, d *decoded) exit {
	c.State.PC = absolute(d)
	return exitBranch
}

func handleBrsl(c *Core, d *decoded) exit {
	target := c.relative(d)
	c.State.GPR[d.rt] = Reg{(c.State.PC + 4) & localstore.LSLR}
	c.State.PC = target
	return exitBranch
}

func handleBrz(c *Core, d *decoded) exit {
	if c.State.GPR[d.rt][0] != 0 {
		return exitNone
	}
	c.State.PC = c.relative(d)
	return exitBranch
}

func handleBrnz(c *Core, d *decoded) exit {
	if c.State.GPR[d.rt][0] == 0 {
		return exitNone
	}
	c.State.PC = c.relative(d)
	return exitBranch
}

func indirect(a uint32) uint32 {
	return a & localstore.LSLR &^ 3
}

func handleBi(c *Core, d *decoded) exit {
	c.State.PC = indirect(c.State.GPR[d.ra][0])
	return exitBranch
}

func handleBisl(c *Core, d *decoded) exit {
	target := indirect(c.State.GPR[d.ra][0])
	c.State.GPR[d.rt] = Reg{(c.State.PC + 4) & localstore.LSLR}
	c.State.PC = target
	return exitBranch
}

func handleBiz(c *Core, d *decoded) exit {
	if c.State.GPR[d.rt][0] != 0 {
		return exitNone
	}
	c.State.PC = indirect(c.State.GPR[d.ra][0])
	return exitBranch
}

func handleBinz(c *Core, d *decoded) exit {
	if c.State.GPR[d.rt][0] == 0 {
		return exitNone
	}
	c.State.PC = indirect(c.State.GPR[d.ra][0])
	return exitBranch
}

func handleStop(c *Core, d *decoded) exit {
	if d.uimm > StopSignalMax {
		return handleIllegal(c, d)
	}
	c.stopCode = d.uimm
	return exitStop
}

// the channel number is in the RA field.
func handleRdch(c *Core, d *decoded) exit {
	ch := uint32(d.ra)
	switch ch {
	case ChRdDec:
		c.State.GPR[d.rt] = Reg{c.State.Dec}
		return exitNone
	case ChRdMachStat:
		c.State.GPR[d.rt] = Reg{}
		return exitNone
	case ChWrDec:
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}

	if c.port == nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}

	v, wake, reason, err := c.port.ReadChannel(ch)
	if err != nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}
	if wake != nil {
		return c.block(reason, wake)
	}
	c.State.GPR[d.rt] = Reg{v}
	return exitNone
}

func handleWrch(c *Core, d *decoded) exit {
	ch := uint32(d.ra)
	switch ch {
	case ChWrDec:
		c.State.Dec = c.State.GPR[d.rt][0]
		return exitNone
	case ChRdDec, ChRdMachStat:
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}

	if c.port == nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}

	wake, reason, err := c.port.WriteChannel(ch, c.State.GPR[d.rt][0])
	if err != nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}
	if wake != nil {
		return c.block(reason, wake)
	}
	return exitNone
}

func handleRchcnt(c *Core, d *decoded) exit {
	ch := uint32(d.ra)
	switch ch {
	case ChWrDec, ChRdDec, ChRdMachStat:
		c.State.GPR[d.rt] = Reg{1}
		return exitNone
	}

	if c.port == nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}

	n, err := c.port.ChannelCount(ch)
	if err != nil {
		return c.faulted(curated.Errorf(BadChannel, ch, c.State.PC))
	}
	c.State.GPR[d.rt] = Reg{n}
	return exitNone
}
