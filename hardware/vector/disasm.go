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

	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
)

// Disassemble a single instruction. The address is used to resolve relative
// branch targets.
func Disassemble(inst uint32, address uint32) string {
	d := decode(inst)
	m := d.op.String()

	switch d.op {
	case opIllegal:
		return fmt.Sprintf(".long %#08x", inst)

	case opNop, opLnop, opSync, opDsync:
		return m

	case opStop:
		return fmt.Sprintf("%s %#04x", m, d.uimm)

	case opRdch, opRchcnt:
		return fmt.Sprintf("%s $%d, $ch%d", m, d.rt, d.ra)
	case opWrch:
		return fmt.Sprintf("%s $ch%d, $%d", m, d.ra, d.rt)

	case opBi:
		return fmt.Sprintf("%s $%d", m, d.ra)
	case opBisl, opBiz, opBinz:
		return fmt.Sprintf("%s $%d, $%d", m, d.rt, d.ra)

	case opShli, opRoti, opShlqbyi, opRotqbyi,
		opAi, opSfi, opAndi, opOri, opXori, opCeqi, opCgti, opClgti, opMpyi:
		return fmt.Sprintf("%s $%d, $%d, %d", m, d.rt, d.ra, d.imm)

	case opLqd, opStqd:
		return fmt.Sprintf("%s $%d, %d($%d)", m, d.rt, d.imm<<4, d.ra)

	case opIl:
		return fmt.Sprintf("%s $%d, %d", m, d.rt, d.imm)
	case opIlh, opIlhu, opIohl, opFsmbi, opIla:
		return fmt.Sprintf("%s $%d, %#x", m, d.rt, d.uimm)

	case opBr:
		return fmt.Sprintf("%s %#05x", m, (address+uint32(d.imm<<2))&localstore.LSLR)
	case opBra:
		return fmt.Sprintf("%s %#05x", m, uint32(d.imm<<2)&localstore.LSLR)
	case opBrsl, opBrz, opBrnz, opLqr, opStqr:
		return fmt.Sprintf("%s $%d, %#05x", m, d.rt, (address+uint32(d.imm<<2))&localstore.LSLR)
	case opLqa, opStqa:
		return fmt.Sprintf("%s $%d, %#05x", m, d.rt, uint32(d.imm<<2)&localstore.LSLR)

	case opShufb, opSelb, opFma, opFms, opFnms:
		return fmt.Sprintf("%s $%d, $%d, $%d, $%d", m, d.rt, d.ra, d.rb, d.rc)
	}

	return fmt.Sprintf("%s $%d, $%d, $%d", m, d.rt, d.ra, d.rb)
}

// DisassembleAt disassembles the instruction at the local store address.
func DisassembleAt(ls LocalStore, address uint32) string {
	return Disassemble(ls.Fetch(address), address)
}
