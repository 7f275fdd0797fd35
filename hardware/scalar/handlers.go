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
	"encoding/binary"
	"math/bits"

	"github.com/jetsetilly/gophercell/curated"
)

// exit is the result of executing an instruction or a unit.
type exit int

const (
	// execution continues with the next instruction. the handler has not
	// changed the PC
	exitNone exit = iota

	// the handler has set the PC
	exitBranch

	// system call. the PC is the address of the sc instruction
	exitSyscall

	// the instruction faulted. the PC is the address of the instruction and
	// the fault field of the core is set
	exitFault

	// a store has invalidated the unit being executed. the PC is the address
	// of the next instruction
	exitInvalidated
)

type handler func(c *Core, d *decoded) exit

var handlers [numOps]handler

func init() {
	handlers = [numOps]handler{
		opIllegal: handleIllegal,
		opAddi:    handleAddi,
		opAddis:   handleAddis,
		opOri:     handleOri,
		opOris:    handleOris,
		opXori:    handleXori,
		opAndiRc:  handleAndiRc,
		opMulli:   handleMulli,
		opCmpi:    handleCmpi,
		opCmpli:   handleCmpli,
		opLwz:     handleLwz,
		opLbz:     handleLbz,
		opLhz:     handleLhz,
		opStw:     handleStw,
		opStb:     handleStb,
		opSth:     handleSth,
		opLfs:     handleLfs,
		opLfd:     handleLfd,
		opStfs:    handleStfs,
		opStfd:    handleStfd,
		opLd:      handleLd,
		opStd:     handleStd,
		opRlwinm:  handleRlwinm,
		opB:       handleB,
		opBc:      handleBc,
		opBclr:    handleBclr,
		opBcctr:   handleBcctr,
		opSc:      handleSc,
		opIsync:   handleNop,
		opAdd:     handleAdd,
		opSubf:    handleSubf,
		opNeg:     handleNeg,
		opMullw:   handleMullw,
		opDivw:    handleDivw,
		opDivwu:   handleDivwu,
		opAnd:     handleAnd,
		opOr:      handleOr,
		opXor:     handleXor,
		opNor:     handleNor,
		opSlw:     handleSlw,
		opSrw:     handleSrw,
		opSraw:    handleSraw,
		opCmp:     handleCmp,
		opCmpl:    handleCmpl,
		opLwarx:   handleLwarx,
		opStwcx:   handleStwcx,
		opLdarx:   handleLdarx,
		opStdcx:   handleStdcx,
		opLwzx:    handleLwzx,
		opStwx:    handleStwx,
		opMfspr:   handleMfspr,
		opMtspr:   handleMtspr,
		opMfcr:    handleMfcr,
		opSync:    handleNop,
		opEieio:   handleNop,
		opDcbf:    handleNop,
		opFadd:    handleFadd,
		opFsub:    handleFsub,
		opFmul:    handleFmul,
		opFdiv:    handleFdiv,
		opFmadd:   handleFmadd,
		opFsqrt:   handleFsqrt,
		opFmr:     handleFmr,
		opFneg:    handleFneg,
		opFabs:    handleFabs,
		opFcmpu:   handleFcmpu,
		opFrsp:    handleFrsp,
		opFadds:   handleFadds,
		opFsubs:   handleFsubs,
		opFmuls:   handleFmuls,
		opFdivs:   handleFdivs,
		opFmadds:  handleFmadds,
	}
}

func (c *Core) faulted(err error) exit {
	c.fault = err
	return exitFault
}

// effective address for D-form instructions.
func (c *Core) ead(d *decoded) uint32 {
	if d.ra == 0 {
		return uint32(d.imm)
	}
	return uint32(c.State.GPR[d.ra] + uint64(d.imm))
}

// effective address for X-form instructions.
func (c *Core) eax(d *decoded) uint32 {
	if d.ra == 0 {
		return uint32(c.State.GPR[d.rb])
	}
	return uint32(c.State.GPR[d.ra] + c.State.GPR[d.rb])
}

func handleIllegal(c *Core, d *decoded) exit {
	return c.faulted(curated.Errorf(IllegalInstruction, d.inst, c.State.PC))
}

func handleNop(_ *Core, _ *decoded) exit {
	return exitNone
}

func handleAddi(c *Core, d *decoded) exit {
	if d.ra == 0 {
		c.State.GPR[d.rt] = uint64(d.imm)
	} else {
		c.State.GPR[d.rt] = c.State.GPR[d.ra] + uint64(d.imm)
	}
	return exitNone
}

func handleAddis(c *Core, d *decoded) exit {
	if d.ra == 0 {
		c.State.GPR[d.rt] = uint64(d.imm << 16)
	} else {
		c.State.GPR[d.rt] = c.State.GPR[d.ra] + uint64(d.imm<<16)
	}
	return exitNone
}

func handleOri(c *Core, d *decoded) exit {
	c.State.GPR[d.ra] = c.State.GPR[d.rt] | d.uimm
	return exitNone
}

func handleOris(c *Core, d *decoded) exit {
	c.State.GPR[d.ra] = c.State.GPR[d.rt] | d.uimm<<16
	return exitNone
}

func handleXori(c *Core, d *decoded) exit {
	c.State.GPR[d.ra] = c.State.GPR[d.rt] ^ d.uimm
	return exitNone
}

func handleAndiRc(c *Core, d *decoded) exit {
	v := c.State.GPR[d.rt] & d.uimm
	c.State.GPR[d.ra] = v
	c.State.record(v)
	return exitNone
}

func handleMulli(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = uint64(int64(c.State.GPR[d.ra]) * d.imm)
	return exitNone
}

func handleCmpi(c *Core, d *decoded) exit {
	var a int64
	if d.l {
		a = int64(c.State.GPR[d.ra])
	} else {
		a = int64(int32(c.State.GPR[d.ra]))
	}
	c.State.setCRField(d.bf, compareSigned(a, d.imm)|c.State.so())
	return exitNone
}

func handleCmpli(c *Core, d *decoded) exit {
	a := c.State.GPR[d.ra]
	if !d.l {
		a = uint64(uint32(a))
	}
	c.State.setCRField(d.bf, compareUnsigned(a, d.uimm)|c.State.so())
	return exitNone
}

func handleCmp(c *Core, d *decoded) exit {
	a, b := int64(c.State.GPR[d.ra]), int64(c.State.GPR[d.rb])
	if !d.l {
		a, b = int64(int32(a)), int64(int32(b))
	}
	c.State.setCRField(d.bf, compareSigned(a, b)|c.State.so())
	return exitNone
}

func handleCmpl(c *Core, d *decoded) exit {
	a, b := c.State.GPR[d.ra], c.State.GPR[d.rb]
	if !d.l {
		a, b = uint64(uint32(a)), uint64(uint32(b))
	}
	c.State.setCRField(d.bf, compareUnsigned(a, b)|c.State.so())
	return exitNone
}

// rotateMask returns the 32 bit mask for the rlwinm instruction.
func rotateMask(mb uint8, me uint8) uint32 {
	begin := uint32(0xffffffff) >> mb
	end := uint32(0xffffffff) << (31 - me)
	if mb <= me {
		return begin & end
	}
	return begin | end
}

func handleRlwinm(c *Core, d *decoded) exit {
	v := uint64(bits.RotateLeft32(uint32(c.State.GPR[d.rt]), int(d.sh)) & rotateMask(d.mb, d.me))
	c.State.GPR[d.ra] = v
	if d.record {
		c.State.record(v)
	}
	return exitNone
}

// loads and stores

func handleLwz(c *Core, d *decoded) exit {
	v, err := c.mem.Read32(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.GPR[d.rt] = uint64(v)
	return exitNone
}

func handleLbz(c *Core, d *decoded) exit {
	v, err := c.mem.Read8(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.GPR[d.rt] = uint64(v)
	return exitNone
}

func handleLhz(c *Core, d *decoded) exit {
	v, err := c.mem.Read16(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.GPR[d.rt] = uint64(v)
	return exitNone
}

func handleLd(c *Core, d *decoded) exit {
	v, err := c.mem.Read64(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.GPR[d.rt] = v
	return exitNone
}

func handleLwzx(c *Core, d *decoded) exit {
	v, err := c.mem.Read32(c.eax(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.GPR[d.rt] = uint64(v)
	return exitNone
}

func handleStw(c *Core, d *decoded) exit {
	if err := c.mem.Write32(c.ead(d), uint32(c.State.GPR[d.rt])); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleStb(c *Core, d *decoded) exit {
	if err := c.mem.Write8(c.ead(d), uint8(c.State.GPR[d.rt])); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleSth(c *Core, d *decoded) exit {
	if err := c.mem.Write16(c.ead(d), uint16(c.State.GPR[d.rt])); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleStd(c *Core, d *decoded) exit {
	if err := c.mem.Write64(c.ead(d), c.State.GPR[d.rt]); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleStwx(c *Core, d *decoded) exit {
	if err := c.mem.Write32(c.eax(d), uint32(c.State.GPR[d.rt])); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleLfs(c *Core, d *decoded) exit {
	v, err := c.mem.Read32(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.FPR[d.rt] = singleToDouble(v)
	return exitNone
}

func handleLfd(c *Core, d *decoded) exit {
	v, err := c.mem.Read64(c.ead(d))
	if err != nil {
		return c.faulted(err)
	}
	c.State.FPR[d.rt] = v
	return exitNone
}

func handleStfs(c *Core, d *decoded) exit {
	if err := c.mem.Write32(c.ead(d), doubleToSingle(c.State.FPR[d.rt])); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

func handleStfd(c *Core, d *decoded) exit {
	if err := c.mem.Write64(c.ead(d), c.State.FPR[d.rt]); err != nil {
		return c.faulted(err)
	}
	return exitNone
}

// reservations

func handleLwarx(c *Core, d *decoded) exit {
	var b [4]byte
	res, err := c.mem.Reserve(c.eax(d), b[:])
	if err != nil {
		return c.faulted(err)
	}
	c.State.Reservation = res
	c.State.GPR[d.rt] = uint64(binary.BigEndian.Uint32(b[:]))
	return exitNone
}

func handleLdarx(c *Core, d *decoded) exit {
	var b [8]byte
	res, err := c.mem.Reserve(c.eax(d), b[:])
	if err != nil {
		return c.faulted(err)
	}
	c.State.Reservation = res
	c.State.GPR[d.rt] = binary.BigEndian.Uint64(b[:])
	return exitNone
}

func (c *Core) storeConditional(address uint32, p []byte) exit {
	res := c.State.Reservation
	c.State.Reservation.Valid = false

	ok, err := c.mem.StoreConditional(res, address, p)
	if err != nil {
		return c.faulted(err)
	}

	v := c.State.so()
	if ok {
		v |= CrEQ
	}
	c.State.setCRField(0, v)
	return exitNone
}

func handleStwcx(c *Core, d *decoded) exit {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c.State.GPR[d.rt]))
	return c.storeConditional(c.eax(d), b[:])
}

func handleStdcx(c *Core, d *decoded) exit {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], c.State.GPR[d.rt])
	return c.storeConditional(c.eax(d), b[:])
}

// branches

func (c *Core) branchTarget(d *decoded) uint32 {
	if d.aa {
		return uint32(d.imm)
	}
	return c.State.PC + uint32(d.imm)
}

// branchTaken evaluates the BO and BI fields. CTR is decremented if the BO
// field says so.
func (c *Core) branchTaken(d *decoded) bool {
	ctrOK := true
	if d.bo&0x04 == 0 {
		c.State.CTR--
		ctrOK = (c.State.CTR != 0) != (d.bo&0x02 == 0x02)
	}
	condOK := d.bo&0x10 == 0x10 || c.State.crBit(d.bi) == (d.bo&0x08 == 0x08)
	return ctrOK && condOK
}

func handleB(c *Core, d *decoded) exit {
	if d.lk {
		c.State.LR = uint64(c.State.PC + 4)
	}
	c.State.PC = c.branchTarget(d)
	return exitBranch
}

func handleBc(c *Core, d *decoded) exit {
	taken := c.branchTaken(d)
	if d.lk {
		c.State.LR = uint64(c.State.PC + 4)
	}
	if taken {
		c.State.PC = c.branchTarget(d)
	} else {
		c.State.PC += 4
	}
	return exitBranch
}

func handleBclr(c *Core, d *decoded) exit {
	taken := c.branchTaken(d)
	target := uint32(c.State.LR) &^ 3
	if d.lk {
		c.State.LR = uint64(c.State.PC + 4)
	}
	if taken {
		c.State.PC = target
	} else {
		c.State.PC += 4
	}
	return exitBranch
}

func handleBcctr(c *Core, d *decoded) exit {
	taken := c.branchTaken(d)
	if d.lk {
		c.State.LR = uint64(c.State.PC + 4)
	}
	if taken {
		c.State.PC = uint32(c.State.CTR) &^ 3
	} else {
		c.State.PC += 4
	}
	return exitBranch
}

func handleSc(_ *Core, _ *decoded) exit {
	return exitSyscall
}

// integer arithmetic and logic

func (c *Core) setRT(d *decoded, v uint64) {
	c.State.GPR[d.rt] = v
	if d.record {
		c.State.record(v)
	}
}

func (c *Core) setRA(d *decoded, v uint64) {
	c.State.GPR[d.ra] = v
	if d.record {
		c.State.record(v)
	}
}

func handleAdd(c *Core, d *decoded) exit {
	c.setRT(d, c.State.GPR[d.ra]+c.State.GPR[d.rb])
	return exitNone
}

func handleSubf(c *Core, d *decoded) exit {
	c.setRT(d, c.State.GPR[d.rb]-c.State.GPR[d.ra])
	return exitNone
}

func handleNeg(c *Core, d *decoded) exit {
	c.setRT(d, -c.State.GPR[d.ra])
	return exitNone
}

func handleMullw(c *Core, d *decoded) exit {
	c.setRT(d, uint64(int64(int32(c.State.GPR[d.ra]))*int64(int32(c.State.GPR[d.rb]))))
	return exitNone
}

func handleDivw(c *Core, d *decoded) exit {
	a, b := int32(c.State.GPR[d.ra]), int32(c.State.GPR[d.rb])
	var v uint64
	if b != 0 && !(a == -0x80000000 && b == -1) {
		v = uint64(uint32(a / b))
	}
	c.setRT(d, v)
	return exitNone
}

func handleDivwu(c *Core, d *decoded) exit {
	a, b := uint32(c.State.GPR[d.ra]), uint32(c.State.GPR[d.rb])
	var v uint64
	if b != 0 {
		v = uint64(a / b)
	}
	c.setRT(d, v)
	return exitNone
}

func handleAnd(c *Core, d *decoded) exit {
	c.setRA(d, c.State.GPR[d.rt]&c.State.GPR[d.rb])
	return exitNone
}

func handleOr(c *Core, d *decoded) exit {
	c.setRA(d, c.State.GPR[d.rt]|c.State.GPR[d.rb])
	return exitNone
}

func handleXor(c *Core, d *decoded) exit {
	c.setRA(d, c.State.GPR[d.rt]^c.State.GPR[d.rb])
	return exitNone
}

func handleNor(c *Core, d *decoded) exit {
	c.setRA(d, ^(c.State.GPR[d.rt] | c.State.GPR[d.rb]))
	return exitNone
}

func handleSlw(c *Core, d *decoded) exit {
	n := c.State.GPR[d.rb] & 0x3f
	var v uint64
	if n < 32 {
		v = uint64(uint32(c.State.GPR[d.rt]) << n)
	}
	c.setRA(d, v)
	return exitNone
}

func handleSrw(c *Core, d *decoded) exit {
	n := c.State.GPR[d.rb] & 0x3f
	var v uint64
	if n < 32 {
		v = uint64(uint32(c.State.GPR[d.rt]) >> n)
	}
	c.setRA(d, v)
	return exitNone
}

func handleSraw(c *Core, d *decoded) exit {
	n := c.State.GPR[d.rb] & 0x3f
	s := int32(c.State.GPR[d.rt])

	var r int32
	var ca bool
	if n > 31 {
		r = s >> 31
		ca = s < 0
	} else {
		r = s >> n
		ca = s < 0 && uint32(s)&(uint32(1)<<n-1) != 0
	}

	if ca {
		c.State.XER |= XerCA
	} else {
		c.State.XER &^= XerCA
	}
	c.setRA(d, uint64(int64(r)))
	return exitNone
}

// special purpose registers

func handleMfspr(c *Core, d *decoded) exit {
	switch d.spr {
	case SprLR:
		c.State.GPR[d.rt] = c.State.LR
	case SprCTR:
		c.State.GPR[d.rt] = c.State.CTR
	case SprXER:
		c.State.GPR[d.rt] = c.State.XER
	}
	return exitNone
}

func handleMtspr(c *Core, d *decoded) exit {
	switch d.spr {
	case SprLR:
		c.State.LR = c.State.GPR[d.rt]
	case SprCTR:
		c.State.CTR = c.State.GPR[d.rt]
	case SprXER:
		c.State.XER = c.State.GPR[d.rt] & (XerSO | XerOV | XerCA)
	}
	return exitNone
}

func handleMfcr(c *Core, d *decoded) exit {
	c.State.GPR[d.rt] = uint64(c.State.CR)
	return exitNone
}

// floating point

func (c *Core) setFRT(d *decoded, v uint64) {
	c.State.FPR[d.rt] = v
	if d.record {
		c.State.setCRField(1, c.State.FPSCR>>28)
	}
}

func handleFadd(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.add(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFsub(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.sub(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFmul(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.mul(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rc]))
	return exitNone
}

func handleFdiv(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.div(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFmadd(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.madd(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rc], c.State.FPR[d.rb]))
	return exitNone
}

func handleFsqrt(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.sqrt(&c.State, c.State.FPR[d.rb]))
	return exitNone
}

func handleFadds(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.adds(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFsubs(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.subs(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFmuls(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.muls(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rc]))
	return exitNone
}

func handleFdivs(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.divs(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rb]))
	return exitNone
}

func handleFmadds(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.madds(&c.State, c.State.FPR[d.ra], c.State.FPR[d.rc], c.State.FPR[d.rb]))
	return exitNone
}

func handleFmr(c *Core, d *decoded) exit {
	c.setFRT(d, c.State.FPR[d.rb])
	return exitNone
}

func handleFneg(c *Core, d *decoded) exit {
	c.setFRT(d, c.State.FPR[d.rb]^signBit64)
	return exitNone
}

func handleFabs(c *Core, d *decoded) exit {
	c.setFRT(d, c.State.FPR[d.rb]&^signBit64)
	return exitNone
}

func handleFrsp(c *Core, d *decoded) exit {
	c.setFRT(d, c.fp.single(c.State.FPR[d.rb]))
	return exitNone
}

func handleFcmpu(c *Core, d *decoded) exit {
	v := compareFP(c.State.FPR[d.ra], c.State.FPR[d.rb])
	c.State.FPSCR = c.State.FPSCR&^(0xf<<fpccShift) | v<<fpccShift
	c.State.setCRField(d.bf, v)
	return exitNone
}
