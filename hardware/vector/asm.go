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

// Instruction encoders. Used to build test programs and by the debugger.

func rr(opcode uint32, rt, ra, rb uint8) uint32 {
	return opcode<<21 | uint32(rb&0x7f)<<14 | uint32(ra&0x7f)<<7 | uint32(rt&0x7f)
}

func rrr(opcode uint32, rt, ra, rb, rc uint8) uint32 {
	return opcode<<28 | uint32(rt&0x7f)<<21 | uint32(rb&0x7f)<<14 | uint32(ra&0x7f)<<7 | uint32(rc&0x7f)
}

func ri7(opcode uint32, rt, ra uint8, imm int8) uint32 {
	return opcode<<21 | (uint32(imm)&0x7f)<<14 | uint32(ra&0x7f)<<7 | uint32(rt&0x7f)
}

func ri10(opcode uint32, rt, ra uint8, imm int16) uint32 {
	return opcode<<24 | (uint32(imm)&0x3ff)<<14 | uint32(ra&0x7f)<<7 | uint32(rt&0x7f)
}

func ri16(opcode uint32, rt uint8, imm uint16) uint32 {
	return opcode<<23 | uint32(imm)<<7 | uint32(rt&0x7f)
}

func ri18(opcode uint32, rt uint8, imm uint32) uint32 {
	return opcode<<25 | (imm&0x3ffff)<<7 | uint32(rt&0x7f)
}

func encode(o op, rt, ra, rb uint8) uint32 {
	return rr(opTable[o].opcode, rt, ra, rb)
}

// AsmA encodes a rt, ra, rb.
func AsmA(rt, ra, rb uint8) uint32 { return encode(opA, rt, ra, rb) }

// AsmSf encodes sf rt, ra, rb (rt = rb - ra).
func AsmSf(rt, ra, rb uint8) uint32 { return encode(opSf, rt, ra, rb) }

// AsmAnd encodes and rt, ra, rb.
func AsmAnd(rt, ra, rb uint8) uint32 { return encode(opAnd, rt, ra, rb) }

// AsmOr encodes or rt, ra, rb.
func AsmOr(rt, ra, rb uint8) uint32 { return encode(opOr, rt, ra, rb) }

// AsmXor encodes xor rt, ra, rb.
func AsmXor(rt, ra, rb uint8) uint32 { return encode(opXor, rt, ra, rb) }

// AsmNor encodes nor rt, ra, rb.
func AsmNor(rt, ra, rb uint8) uint32 { return encode(opNor, rt, ra, rb) }

// AsmCeq encodes ceq rt, ra, rb.
func AsmCeq(rt, ra, rb uint8) uint32 { return encode(opCeq, rt, ra, rb) }

// AsmCgt encodes cgt rt, ra, rb.
func AsmCgt(rt, ra, rb uint8) uint32 { return encode(opCgt, rt, ra, rb) }

// AsmClgt encodes clgt rt, ra, rb.
func AsmClgt(rt, ra, rb uint8) uint32 { return encode(opClgt, rt, ra, rb) }

// AsmShl encodes shl rt, ra, rb.
func AsmShl(rt, ra, rb uint8) uint32 { return encode(opShl, rt, ra, rb) }

// AsmRot encodes rot rt, ra, rb.
func AsmRot(rt, ra, rb uint8) uint32 { return encode(opRot, rt, ra, rb) }

// AsmMpy encodes mpy rt, ra, rb.
func AsmMpy(rt, ra, rb uint8) uint32 { return encode(opMpy, rt, ra, rb) }

// AsmMpyu encodes mpyu rt, ra, rb.
func AsmMpyu(rt, ra, rb uint8) uint32 { return encode(opMpyu, rt, ra, rb) }

// AsmFa encodes fa rt, ra, rb.
func AsmFa(rt, ra, rb uint8) uint32 { return encode(opFa, rt, ra, rb) }

// AsmFs encodes fs rt, ra, rb.
func AsmFs(rt, ra, rb uint8) uint32 { return encode(opFs, rt, ra, rb) }

// AsmFm encodes fm rt, ra, rb.
func AsmFm(rt, ra, rb uint8) uint32 { return encode(opFm, rt, ra, rb) }

// AsmDfa encodes dfa rt, ra, rb.
func AsmDfa(rt, ra, rb uint8) uint32 { return encode(opDfa, rt, ra, rb) }

// AsmDfs encodes dfs rt, ra, rb.
func AsmDfs(rt, ra, rb uint8) uint32 { return encode(opDfs, rt, ra, rb) }

// AsmDfm encodes dfm rt, ra, rb.
func AsmDfm(rt, ra, rb uint8) uint32 { return encode(opDfm, rt, ra, rb) }

// AsmBi encodes bi ra.
func AsmBi(ra uint8) uint32 { return encode(opBi, 0, ra, 0) }

// AsmBisl encodes bisl rt, ra.
func AsmBisl(rt, ra uint8) uint32 { return encode(opBisl, rt, ra, 0) }

// AsmBiz encodes biz rt, ra.
func AsmBiz(rt, ra uint8) uint32 { return encode(opBiz, rt, ra, 0) }

// AsmBinz encodes binz rt, ra.
func AsmBinz(rt, ra uint8) uint32 { return encode(opBinz, rt, ra, 0) }

// AsmLqx encodes lqx rt, ra, rb.
func AsmLqx(rt, ra, rb uint8) uint32 { return encode(opLqx, rt, ra, rb) }

// AsmStqx encodes stqx rt, ra, rb.
func AsmStqx(rt, ra, rb uint8) uint32 { return encode(opStqx, rt, ra, rb) }

// AsmRdch encodes rdch rt, ch.
func AsmRdch(rt uint8, ch uint8) uint32 { return encode(opRdch, rt, ch, 0) }

// AsmWrch encodes wrch ch, rt.
func AsmWrch(ch uint8, rt uint8) uint32 { return encode(opWrch, rt, ch, 0) }

// AsmRchcnt encodes rchcnt rt, ch.
func AsmRchcnt(rt uint8, ch uint8) uint32 { return encode(opRchcnt, rt, ch, 0) }

// AsmStop encodes stop with the signal code.
func AsmStop(code uint16) uint32 { return uint32(code) & 0x3fff }

// AsmNop encodes nop.
func AsmNop() uint32 { return encode(opNop, 0, 0, 0) }

// AsmLnop encodes lnop.
func AsmLnop() uint32 { return encode(opLnop, 0, 0, 0) }

// AsmSync encodes sync.
func AsmSync() uint32 { return encode(opSync, 0, 0, 0) }

// AsmShli encodes shli rt, ra, imm.
func AsmShli(rt, ra uint8, imm int8) uint32 { return ri7(opTable[opShli].opcode, rt, ra, imm) }

// AsmRoti encodes roti rt, ra, imm.
func AsmRoti(rt, ra uint8, imm int8) uint32 { return ri7(opTable[opRoti].opcode, rt, ra, imm) }

// AsmShlqbyi encodes shlqbyi rt, ra, imm.
func AsmShlqbyi(rt, ra uint8, imm int8) uint32 {
	return ri7(opTable[opShlqbyi].opcode, rt, ra, imm)
}

// AsmRotqbyi encodes rotqbyi rt, ra, imm.
func AsmRotqbyi(rt, ra uint8, imm int8) uint32 {
	return ri7(opTable[opRotqbyi].opcode, rt, ra, imm)
}

// AsmAi encodes ai rt, ra, imm.
func AsmAi(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opAi].opcode, rt, ra, imm) }

// AsmSfi encodes sfi rt, ra, imm (rt = imm - ra).
func AsmSfi(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opSfi].opcode, rt, ra, imm) }

// AsmAndi encodes andi rt, ra, imm.
func AsmAndi(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opAndi].opcode, rt, ra, imm) }

// AsmOri encodes ori rt, ra, imm.
func AsmOri(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opOri].opcode, rt, ra, imm) }

// AsmXori encodes xori rt, ra, imm.
func AsmXori(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opXori].opcode, rt, ra, imm) }

// AsmCeqi encodes ceqi rt, ra, imm.
func AsmCeqi(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opCeqi].opcode, rt, ra, imm) }

// AsmCgti encodes cgti rt, ra, imm.
func AsmCgti(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opCgti].opcode, rt, ra, imm) }

// AsmClgti encodes clgti rt, ra, imm.
func AsmClgti(rt, ra uint8, imm int16) uint32 {
	return ri10(opTable[opClgti].opcode, rt, ra, imm)
}

// AsmMpyi encodes mpyi rt, ra, imm.
func AsmMpyi(rt, ra uint8, imm int16) uint32 { return ri10(opTable[opMpyi].opcode, rt, ra, imm) }

// AsmLqd encodes lqd rt, offset(ra). The offset is in bytes and must be a
// multiple of 16.
func AsmLqd(rt, ra uint8, offset int16) uint32 {
	return ri10(opTable[opLqd].opcode, rt, ra, offset>>4)
}

// AsmStqd encodes stqd rt, offset(ra). The offset is in bytes and must be a
// multiple of 16.
func AsmStqd(rt, ra uint8, offset int16) uint32 {
	return ri10(opTable[opStqd].opcode, rt, ra, offset>>4)
}

// AsmIl encodes il rt, imm.
func AsmIl(rt uint8, imm int16) uint32 { return ri16(opTable[opIl].opcode, rt, uint16(imm)) }

// AsmIlh encodes ilh rt, imm.
func AsmIlh(rt uint8, imm uint16) uint32 { return ri16(opTable[opIlh].opcode, rt, imm) }

// AsmIlhu encodes ilhu rt, imm.
func AsmIlhu(rt uint8, imm uint16) uint32 { return ri16(opTable[opIlhu].opcode, rt, imm) }

// AsmIohl encodes iohl rt, imm.
func AsmIohl(rt uint8, imm uint16) uint32 { return ri16(opTable[opIohl].opcode, rt, imm) }

// AsmFsmbi encodes fsmbi rt, mask.
func AsmFsmbi(rt uint8, mask uint16) uint32 { return ri16(opTable[opFsmbi].opcode, rt, mask) }

// AsmIla encodes ila rt, imm. Only the low 18 bits of the value are used.
func AsmIla(rt uint8, imm uint32) uint32 { return ri18(opTable[opIla].opcode, rt, imm) }

// the offset of a relative branch is in bytes.
func rel(offset int32) uint16 {
	return uint16(offset >> 2)
}

// AsmBr encodes br with a byte offset relative to the instruction.
func AsmBr(offset int32) uint32 { return ri16(opTable[opBr].opcode, 0, rel(offset)) }

// AsmBra encodes bra to the absolute local store address.
func AsmBra(address uint32) uint32 {
	return ri16(opTable[opBra].opcode, 0, uint16(address>>2))
}

// AsmBrsl encodes brsl rt with a byte offset relative to the instruction.
func AsmBrsl(rt uint8, offset int32) uint32 { return ri16(opTable[opBrsl].opcode, rt, rel(offset)) }

// AsmBrz encodes brz rt with a byte offset relative to the instruction.
func AsmBrz(rt uint8, offset int32) uint32 { return ri16(opTable[opBrz].opcode, rt, rel(offset)) }

// AsmBrnz encodes brnz rt with a byte offset relative to the instruction.
func AsmBrnz(rt uint8, offset int32) uint32 { return ri16(opTable[opBrnz].opcode, rt, rel(offset)) }

// AsmLqa encodes lqa rt for the absolute local store address.
func AsmLqa(rt uint8, address uint32) uint32 {
	return ri16(opTable[opLqa].opcode, rt, uint16(address>>2))
}

// AsmStqa encodes stqa rt for the absolute local store address.
func AsmStqa(rt uint8, address uint32) uint32 {
	return ri16(opTable[opStqa].opcode, rt, uint16(address>>2))
}

// AsmLqr encodes lqr rt with a byte offset relative to the instruction.
func AsmLqr(rt uint8, offset int32) uint32 { return ri16(opTable[opLqr].opcode, rt, rel(offset)) }

// AsmStqr encodes stqr rt with a byte offset relative to the instruction.
func AsmStqr(rt uint8, offset int32) uint32 { return ri16(opTable[opStqr].opcode, rt, rel(offset)) }

// AsmShufb encodes shufb rt, ra, rb, rc.
func AsmShufb(rt, ra, rb, rc uint8) uint32 { return rrr(opTable[opShufb].opcode, rt, ra, rb, rc) }

// AsmSelb encodes selb rt, ra, rb, rc.
func AsmSelb(rt, ra, rb, rc uint8) uint32 { return rrr(opTable[opSelb].opcode, rt, ra, rb, rc) }

// AsmFma encodes fma rt, ra, rb, rc (rt = ra * rb + rc).
func AsmFma(rt, ra, rb, rc uint8) uint32 { return rrr(opTable[opFma].opcode, rt, ra, rb, rc) }

// AsmFms encodes fms rt, ra, rb, rc (rt = ra * rb - rc).
func AsmFms(rt, ra, rb, rc uint8) uint32 { return rrr(opTable[opFms].opcode, rt, ra, rb, rc) }

// AsmFnms encodes fnms rt, ra, rb, rc (rt = rc - ra * rb).
func AsmFnms(rt, ra, rb, rc uint8) uint32 { return rrr(opTable[opFnms].opcode, rt, ra, rb, rc) }

// Program is a sequence of encoded instructions.
type Program []uint32

// Bytes returns the program in big-endian order.
func (p Program) Bytes() []byte {
	b := make([]byte, 0, len(p)*4)
	for _, w := range p {
		b = append(b, byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	}
	return b
}
