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
)

// Disassemble a single instruction. The address is used to resolve relative
// branch targets.
func Disassemble(inst uint32, address uint32) string {
	d := decode(inst)
	m := d.op.String()
	if d.record && d.op.is(flagRecordable) {
		m += "."
	}

	switch d.op {
	case opIllegal:
		return fmt.Sprintf(".long %#08x", inst)

	case opAddi, opAddis, opMulli:
		if d.op == opAddi && d.ra == 0 {
			return fmt.Sprintf("li r%d, %d", d.rt, d.imm)
		}
		return fmt.Sprintf("%s r%d, r%d, %d", m, d.rt, d.ra, d.imm)

	case opOri, opOris, opXori, opAndiRc:
		if d.op == opOri && d.rt == 0 && d.ra == 0 && d.uimm == 0 {
			return "nop"
		}
		return fmt.Sprintf("%s r%d, r%d, %#x", m, d.ra, d.rt, d.uimm)

	case opCmpi:
		return fmt.Sprintf("%s cr%d, %d, r%d, %d", m, d.bf, b2i(d.l), d.ra, d.imm)
	case opCmpli:
		return fmt.Sprintf("%s cr%d, %d, r%d, %#x", m, d.bf, b2i(d.l), d.ra, d.uimm)
	case opCmp, opCmpl:
		return fmt.Sprintf("%s cr%d, %d, r%d, r%d", m, d.bf, b2i(d.l), d.ra, d.rb)

	case opLwz, opLbz, opLhz, opStw, opStb, opSth, opLd, opStd:
		return fmt.Sprintf("%s r%d, %d(r%d)", m, d.rt, d.imm, d.ra)
	case opLfs, opLfd, opStfs, opStfd:
		return fmt.Sprintf("%s f%d, %d(r%d)", m, d.rt, d.imm, d.ra)

	case opRlwinm:
		return fmt.Sprintf("%s r%d, r%d, %d, %d, %d", m, d.ra, d.rt, d.sh, d.mb, d.me)

	case opB:
		if d.lk {
			m += "l"
		}
		if d.aa {
			m += "a"
			return fmt.Sprintf("%s %#08x", m, uint32(d.imm))
		}
		return fmt.Sprintf("%s %#08x", m, address+uint32(d.imm))

	case opBc:
		if d.lk {
			m += "l"
		}
		target := address + uint32(d.imm)
		if d.aa {
			m += "a"
			target = uint32(d.imm)
		}
		return fmt.Sprintf("%s %d, %d, %#08x", m, d.bo, d.bi, target)

	case opBclr, opBcctr:
		if d.lk {
			m += "l"
		}
		if d.bo == 20 && d.bi == 0 {
			if d.op == opBclr {
				return "blr" + m[len("bclr"):]
			}
			return "bctr" + m[len("bcctr"):]
		}
		return fmt.Sprintf("%s %d, %d", m, d.bo, d.bi)

	case opSc, opIsync, opSync, opEieio:
		return m

	case opAdd, opSubf, opMullw, opDivw, opDivwu:
		return fmt.Sprintf("%s r%d, r%d, r%d", m, d.rt, d.ra, d.rb)
	case opNeg:
		return fmt.Sprintf("%s r%d, r%d", m, d.rt, d.ra)

	case opAnd, opOr, opXor, opNor, opSlw, opSrw, opSraw:
		if d.op == opOr && d.rt == d.rb {
			return fmt.Sprintf("mr%s r%d, r%d", m[len("or"):], d.ra, d.rt)
		}
		return fmt.Sprintf("%s r%d, r%d, r%d", m, d.ra, d.rt, d.rb)

	case opLwarx, opStwcx, opLdarx, opStdcx, opLwzx, opStwx:
		return fmt.Sprintf("%s r%d, r%d, r%d", m, d.rt, d.ra, d.rb)
	case opDcbf:
		return fmt.Sprintf("%s r%d, r%d", m, d.ra, d.rb)

	case opMfspr, opMtspr:
		var name string
		switch d.spr {
		case SprLR:
			name = "lr"
		case SprCTR:
			name = "ctr"
		case SprXER:
			name = "xer"
		}
		if d.op == opMfspr {
			return fmt.Sprintf("mf%s r%d", name, d.rt)
		}
		return fmt.Sprintf("mt%s r%d", name, d.rt)
	case opMfcr:
		return fmt.Sprintf("%s r%d", m, d.rt)

	case opFadd, opFsub, opFdiv, opFadds, opFsubs, opFdivs:
		return fmt.Sprintf("%s f%d, f%d, f%d", m, d.rt, d.ra, d.rb)
	case opFmul, opFmuls:
		return fmt.Sprintf("%s f%d, f%d, f%d", m, d.rt, d.ra, d.rc)
	case opFmadd, opFmadds:
		return fmt.Sprintf("%s f%d, f%d, f%d, f%d", m, d.rt, d.ra, d.rc, d.rb)
	case opFsqrt, opFmr, opFneg, opFabs, opFrsp:
		return fmt.Sprintf("%s f%d, f%d", m, d.rt, d.rb)
	case opFcmpu:
		return fmt.Sprintf("%s cr%d, f%d, f%d", m, d.bf, d.ra, d.rb)
	}

	return m
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DisassembleAt fetches and disassembles the instruction at the address.
func DisassembleAt(mem Memory, address uint32) (string, error) {
	inst, err := mem.Fetch(address)
	if err != nil {
		return "", err
	}
	return Disassemble(inst, address), nil
}
