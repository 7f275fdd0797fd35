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

// Assembler helpers. Each function returns a single encoded instruction.
// Only the instructions needed to build test programs and debugger patches
// are provided.

func dform(primary uint32, rt, ra uint8, imm int16) uint32 {
	return primary<<26 | uint32(rt&0x1f)<<21 | uint32(ra&0x1f)<<16 | uint32(uint16(imm))
}

func xform(rt, ra, rb uint8, xo uint32, rc bool) uint32 {
	v := uint32(31)<<26 | uint32(rt&0x1f)<<21 | uint32(ra&0x1f)<<16 | uint32(rb&0x1f)<<11 | xo<<1
	if rc {
		v |= 1
	}
	return v
}

func aform(primary uint32, frt, fra, frb, frc uint8, xo uint32) uint32 {
	return primary<<26 | uint32(frt&0x1f)<<21 | uint32(fra&0x1f)<<16 | uint32(frb&0x1f)<<11 | uint32(frc&0x1f)<<6 | xo<<1
}

// AsmAddi encodes addi rt, ra, imm.
func AsmAddi(rt, ra uint8, imm int16) uint32 { return dform(14, rt, ra, imm) }

// AsmLi encodes li rt, imm.
func AsmLi(rt uint8, imm int16) uint32 { return dform(14, rt, 0, imm) }

// AsmAddis encodes addis rt, ra, imm.
func AsmAddis(rt, ra uint8, imm int16) uint32 { return dform(15, rt, ra, imm) }

// AsmLis encodes lis rt, imm.
func AsmLis(rt uint8, imm int16) uint32 { return dform(15, rt, 0, imm) }

// AsmOri encodes ori ra, rs, imm.
func AsmOri(ra, rs uint8, imm uint16) uint32 { return dform(24, rs, ra, int16(imm)) }

// AsmOris encodes oris ra, rs, imm.
func AsmOris(ra, rs uint8, imm uint16) uint32 { return dform(25, rs, ra, int16(imm)) }

// AsmXori encodes xori ra, rs, imm.
func AsmXori(ra, rs uint8, imm uint16) uint32 { return dform(26, rs, ra, int16(imm)) }

// AsmAndiRc encodes andi. ra, rs, imm.
func AsmAndiRc(ra, rs uint8, imm uint16) uint32 { return dform(28, rs, ra, int16(imm)) }

// AsmMulli encodes mulli rt, ra, imm.
func AsmMulli(rt, ra uint8, imm int16) uint32 { return dform(7, rt, ra, imm) }

// AsmNop encodes nop.
func AsmNop() uint32 { return AsmOri(0, 0, 0) }

// AsmCmpwi encodes cmpwi crf, ra, imm.
func AsmCmpwi(crf, ra uint8, imm int16) uint32 { return dform(11, crf<<2, ra, imm) }

// AsmCmplwi encodes cmplwi crf, ra, imm.
func AsmCmplwi(crf, ra uint8, imm uint16) uint32 { return dform(10, crf<<2, ra, int16(imm)) }

// AsmCmpw encodes cmpw crf, ra, rb.
func AsmCmpw(crf, ra, rb uint8) uint32 { return xform(crf<<2, ra, rb, 0, false) }

// AsmRlwinm encodes rlwinm ra, rs, sh, mb, me.
func AsmRlwinm(ra, rs, sh, mb, me uint8) uint32 {
	return 21<<26 | uint32(rs&0x1f)<<21 | uint32(ra&0x1f)<<16 | uint32(sh&0x1f)<<11 | uint32(mb&0x1f)<<6 | uint32(me&0x1f)<<1
}

// AsmLwz encodes lwz rt, disp(ra).
func AsmLwz(rt, ra uint8, disp int16) uint32 { return dform(32, rt, ra, disp) }

// AsmLbz encodes lbz rt, disp(ra).
func AsmLbz(rt, ra uint8, disp int16) uint32 { return dform(34, rt, ra, disp) }

// AsmLhz encodes lhz rt, disp(ra).
func AsmLhz(rt, ra uint8, disp int16) uint32 { return dform(40, rt, ra, disp) }

// AsmStw encodes stw rs, disp(ra).
func AsmStw(rs, ra uint8, disp int16) uint32 { return dform(36, rs, ra, disp) }

// AsmStb encodes stb rs, disp(ra).
func AsmStb(rs, ra uint8, disp int16) uint32 { return dform(38, rs, ra, disp) }

// AsmSth encodes sth rs, disp(ra).
func AsmSth(rs, ra uint8, disp int16) uint32 { return dform(44, rs, ra, disp) }

// AsmLd encodes ld rt, disp(ra). The displacement must be a multiple of 4.
func AsmLd(rt, ra uint8, disp int16) uint32 { return dform(58, rt, ra, disp) &^ 3 }

// AsmStd encodes std rs, disp(ra). The displacement must be a multiple of 4.
func AsmStd(rs, ra uint8, disp int16) uint32 { return dform(62, rs, ra, disp) &^ 3 }

// AsmLfd encodes lfd frt, disp(ra).
func AsmLfd(frt, ra uint8, disp int16) uint32 { return dform(50, frt, ra, disp) }

// AsmStfd encodes stfd frs, disp(ra).
func AsmStfd(frs, ra uint8, disp int16) uint32 { return dform(54, frs, ra, disp) }

// AsmLfs encodes lfs frt, disp(ra).
func AsmLfs(frt, ra uint8, disp int16) uint32 { return dform(48, frt, ra, disp) }

// AsmStfs encodes stfs frs, disp(ra).
func AsmStfs(frs, ra uint8, disp int16) uint32 { return dform(52, frs, ra, disp) }

// AsmAdd encodes add rt, ra, rb.
func AsmAdd(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 266, false) }

// AsmAddRc encodes add. rt, ra, rb.
func AsmAddRc(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 266, true) }

// AsmSubf encodes subf rt, ra, rb.
func AsmSubf(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 40, false) }

// AsmNeg encodes neg rt, ra.
func AsmNeg(rt, ra uint8) uint32 { return xform(rt, ra, 0, 104, false) }

// AsmMullw encodes mullw rt, ra, rb.
func AsmMullw(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 235, false) }

// AsmDivw encodes divw rt, ra, rb.
func AsmDivw(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 491, false) }

// AsmDivwu encodes divwu rt, ra, rb.
func AsmDivwu(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 459, false) }

// AsmAnd encodes and ra, rs, rb.
func AsmAnd(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 28, false) }

// AsmOr encodes or ra, rs, rb.
func AsmOr(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 444, false) }

// AsmMr encodes mr ra, rs.
func AsmMr(ra, rs uint8) uint32 { return AsmOr(ra, rs, rs) }

// AsmXor encodes xor ra, rs, rb.
func AsmXor(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 316, false) }

// AsmNor encodes nor ra, rs, rb.
func AsmNor(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 124, false) }

// AsmSlw encodes slw ra, rs, rb.
func AsmSlw(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 24, false) }

// AsmSrw encodes srw ra, rs, rb.
func AsmSrw(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 536, false) }

// AsmSraw encodes sraw ra, rs, rb.
func AsmSraw(ra, rs, rb uint8) uint32 { return xform(rs, ra, rb, 792, false) }

// AsmLwarx encodes lwarx rt, ra, rb.
func AsmLwarx(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 20, false) }

// AsmStwcx encodes stwcx. rs, ra, rb.
func AsmStwcx(rs, ra, rb uint8) uint32 { return xform(rs, ra, rb, 150, true) }

// AsmLdarx encodes ldarx rt, ra, rb.
func AsmLdarx(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 84, false) }

// AsmStdcx encodes stdcx. rs, ra, rb.
func AsmStdcx(rs, ra, rb uint8) uint32 { return xform(rs, ra, rb, 214, true) }

// AsmLwzx encodes lwzx rt, ra, rb.
func AsmLwzx(rt, ra, rb uint8) uint32 { return xform(rt, ra, rb, 23, false) }

// AsmStwx encodes stwx rs, ra, rb.
func AsmStwx(rs, ra, rb uint8) uint32 { return xform(rs, ra, rb, 151, false) }

func spr(n uint16) (uint8, uint8) {
	return uint8(n & 0x1f), uint8(n >> 5)
}

// AsmMtspr encodes mtspr n, rs.
func AsmMtspr(n uint16, rs uint8) uint32 {
	lo, hi := spr(n)
	return xform(rs, lo, hi, 467, false)
}

// AsmMfspr encodes mfspr rt, n.
func AsmMfspr(rt uint8, n uint16) uint32 {
	lo, hi := spr(n)
	return xform(rt, lo, hi, 339, false)
}

// AsmMtlr encodes mtlr rs.
func AsmMtlr(rs uint8) uint32 { return AsmMtspr(SprLR, rs) }

// AsmMflr encodes mflr rt.
func AsmMflr(rt uint8) uint32 { return AsmMfspr(rt, SprLR) }

// AsmMtctr encodes mtctr rs.
func AsmMtctr(rs uint8) uint32 { return AsmMtspr(SprCTR, rs) }

// AsmMfcr encodes mfcr rt.
func AsmMfcr(rt uint8) uint32 { return xform(rt, 0, 0, 19, false) }

// AsmSync encodes sync.
func AsmSync() uint32 { return xform(0, 0, 0, 598, false) }

// AsmB encodes b with a byte offset relative to the instruction.
func AsmB(offset int32) uint32 { return 18<<26 | uint32(offset)&0x03fffffc }

// AsmBl encodes bl with a byte offset relative to the instruction.
func AsmBl(offset int32) uint32 { return AsmB(offset) | 1 }

// AsmBc encodes bc bo, bi, offset.
func AsmBc(bo, bi uint8, offset int16) uint32 {
	return 16<<26 | uint32(bo&0x1f)<<21 | uint32(bi&0x1f)<<16 | uint32(uint16(offset))&0xfffc
}

// Common branch conditions for use with AsmBc. The bi argument selects the
// CR bit: 4*crf + 0 (lt), 1 (gt), 2 (eq), 3 (so).
const (
	BoTrue   = 12
	BoFalse  = 4
	BoDnz    = 16
	BoAlways = 20
)

// AsmBeq encodes beq cr0, offset.
func AsmBeq(offset int16) uint32 { return AsmBc(BoTrue, 2, offset) }

// AsmBne encodes bne cr0, offset.
func AsmBne(offset int16) uint32 { return AsmBc(BoFalse, 2, offset) }

// AsmBlt encodes blt cr0, offset.
func AsmBlt(offset int16) uint32 { return AsmBc(BoTrue, 0, offset) }

// AsmBdnz encodes bdnz offset.
func AsmBdnz(offset int16) uint32 { return AsmBc(BoDnz, 0, offset) }

// AsmBlr encodes blr.
func AsmBlr() uint32 { return 19<<26 | BoAlways<<21 | 16<<1 }

// AsmBctr encodes bctr.
func AsmBctr() uint32 { return 19<<26 | BoAlways<<21 | 528<<1 }

// AsmBctrl encodes bctrl.
func AsmBctrl() uint32 { return AsmBctr() | 1 }

// AsmSc encodes sc.
func AsmSc() uint32 { return 17<<26 | 2 }

// AsmFadd encodes fadd frt, fra, frb.
func AsmFadd(frt, fra, frb uint8) uint32 { return aform(63, frt, fra, frb, 0, 21) }

// AsmFsub encodes fsub frt, fra, frb.
func AsmFsub(frt, fra, frb uint8) uint32 { return aform(63, frt, fra, frb, 0, 20) }

// AsmFmul encodes fmul frt, fra, frc.
func AsmFmul(frt, fra, frc uint8) uint32 { return aform(63, frt, fra, 0, frc, 25) }

// AsmFdiv encodes fdiv frt, fra, frb.
func AsmFdiv(frt, fra, frb uint8) uint32 { return aform(63, frt, fra, frb, 0, 18) }

// AsmFmadd encodes fmadd frt, fra, frc, frb.
func AsmFmadd(frt, fra, frc, frb uint8) uint32 { return aform(63, frt, fra, frb, frc, 29) }

// AsmFsqrt encodes fsqrt frt, frb.
func AsmFsqrt(frt, frb uint8) uint32 { return aform(63, frt, 0, frb, 0, 22) }

// AsmFadds encodes fadds frt, fra, frb.
func AsmFadds(frt, fra, frb uint8) uint32 { return aform(59, frt, fra, frb, 0, 21) }

// AsmFmadds encodes fmadds frt, fra, frc, frb.
func AsmFmadds(frt, fra, frc, frb uint8) uint32 { return aform(59, frt, fra, frb, frc, 29) }

// AsmFmr encodes fmr frt, frb.
func AsmFmr(frt, frb uint8) uint32 { return xfp(frt, 0, frb, 72) }

// AsmFneg encodes fneg frt, frb.
func AsmFneg(frt, frb uint8) uint32 { return xfp(frt, 0, frb, 40) }

// AsmFabs encodes fabs frt, frb.
func AsmFabs(frt, frb uint8) uint32 { return xfp(frt, 0, frb, 264) }

// AsmFrsp encodes frsp frt, frb.
func AsmFrsp(frt, frb uint8) uint32 { return xfp(frt, 0, frb, 12) }

// AsmFcmpu encodes fcmpu crf, fra, frb.
func AsmFcmpu(crf, fra, frb uint8) uint32 { return xfp(crf<<2, fra, frb, 0) }

func xfp(rt, ra, rb uint8, xo uint32) uint32 {
	return 63<<26 | uint32(rt&0x1f)<<21 | uint32(ra&0x1f)<<16 | uint32(rb&0x1f)<<11 | xo<<1
}

// Program is a sequence of instructions.
type Program []uint32

// Bytes returns the program in big-endian byte order.
func (p Program) Bytes() []byte {
	b := make([]byte, len(p)*4)
	for i, v := range p {
		b[i*4] = byte(v >> 24)
		b[i*4+1] = byte(v >> 16)
		b[i*4+2] = byte(v >> 8)
		b[i*4+3] = byte(v)
	}
	return b
}
