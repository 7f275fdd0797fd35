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

type op int

const (
	opIllegal op = iota

	// RR
	opA
	opSf
	opAnd
	opOr
	opXor
	opNor
	opCeq
	opCgt
	opClgt
	opShl
	opRot
	opMpy
	opMpyu
	opFa
	opFs
	opFm
	opDfa
	opDfs
	opDfm
	opBi
	opBisl
	opBiz
	opBinz
	opLqx
	opStqx
	opRdch
	opWrch
	opRchcnt
	opStop
	opNop
	opLnop
	opSync
	opDsync

	// RI7
	opShli
	opRoti
	opShlqbyi
	opRotqbyi

	// RI10
	opAi
	opSfi
	opAndi
	opOri
	opXori
	opCeqi
	opCgti
	opClgti
	opMpyi
	opLqd
	opStqd

	// RI16
	opIl
	opIlh
	opIlhu
	opIohl
	opBr
	opBra
	opBrsl
	opBrz
	opBrnz
	opLqa
	opStqa
	opLqr
	opStqr
	opFsmbi

	// RI18
	opIla

	// RRR
	opShufb
	opSelb
	opFma
	opFms
	opFnms

	numOps
)

// instruction formats.
type format int

const (
	formRR format = iota
	formRRR
	formRI7
	formRI10
	formRI16
	formRI18
)

// instruction flags.
const (
	flagBranch = 1 << iota
	flagStore
	flagEndsBlock
	flagChannel
)

type opInfo struct {
	mnemonic string
	form     format
	opcode   uint32
	flags    int
}

var opTable = [numOps]opInfo{
	opIllegal: {"illegal", formRR, 0, flagEndsBlock},

	opA:      {"a", formRR, 0x0c0, 0},
	opSf:     {"sf", formRR, 0x040, 0},
	opAnd:    {"and", formRR, 0x0c1, 0},
	opOr:     {"or", formRR, 0x041, 0},
	opXor:    {"xor", formRR, 0x241, 0},
	opNor:    {"nor", formRR, 0x049, 0},
	opCeq:    {"ceq", formRR, 0x3c0, 0},
	opCgt:    {"cgt", formRR, 0x240, 0},
	opClgt:   {"clgt", formRR, 0x2c0, 0},
	opShl:    {"shl", formRR, 0x05b, 0},
	opRot:    {"rot", formRR, 0x058, 0},
	opMpy:    {"mpy", formRR, 0x3c4, 0},
	opMpyu:   {"mpyu", formRR, 0x3cc, 0},
	opFa:     {"fa", formRR, 0x2c4, 0},
	opFs:     {"fs", formRR, 0x2c5, 0},
	opFm:     {"fm", formRR, 0x2c6, 0},
	opDfa:    {"dfa", formRR, 0x2cc, 0},
	opDfs:    {"dfs", formRR, 0x2cd, 0},
	opDfm:    {"dfm", formRR, 0x2ce, 0},
	opBi:     {"bi", formRR, 0x1a8, flagBranch},
	opBisl:   {"bisl", formRR, 0x1a9, flagBranch},
	opBiz:    {"biz", formRR, 0x128, flagBranch},
	opBinz:   {"binz", formRR, 0x129, flagBranch},
	opLqx:    {"lqx", formRR, 0x1c4, 0},
	opStqx:   {"stqx", formRR, 0x144, flagStore},
	opRdch:   {"rdch", formRR, 0x00d, flagChannel},
	opWrch:   {"wrch", formRR, 0x10d, flagChannel},
	opRchcnt: {"rchcnt", formRR, 0x00f, flagChannel},
	opStop:   {"stop", formRR, 0x000, flagEndsBlock},
	opNop:    {"nop", formRR, 0x201, 0},
	opLnop:   {"lnop", formRR, 0x001, 0},
	opSync:   {"sync", formRR, 0x002, 0},
	opDsync:  {"dsync", formRR, 0x003, 0},

	opShli:    {"shli", formRI7, 0x07b, 0},
	opRoti:    {"roti", formRI7, 0x078, 0},
	opShlqbyi: {"shlqbyi", formRI7, 0x1ff, 0},
	opRotqbyi: {"rotqbyi", formRI7, 0x1fc, 0},

	opAi:    {"ai", formRI10, 0x1c, 0},
	opSfi:   {"sfi", formRI10, 0x0c, 0},
	opAndi:  {"andi", formRI10, 0x14, 0},
	opOri:   {"ori", formRI10, 0x04, 0},
	opXori:  {"xori", formRI10, 0x44, 0},
	opCeqi:  {"ceqi", formRI10, 0x7c, 0},
	opCgti:  {"cgti", formRI10, 0x4c, 0},
	opClgti: {"clgti", formRI10, 0x5c, 0},
	opMpyi:  {"mpyi", formRI10, 0x74, 0},
	opLqd:   {"lqd", formRI10, 0x34, 0},
	opStqd:  {"stqd", formRI10, 0x24, flagStore},

	opIl:    {"il", formRI16, 0x081, 0},
	opIlh:   {"ilh", formRI16, 0x083, 0},
	opIlhu:  {"ilhu", formRI16, 0x082, 0},
	opIohl:  {"iohl", formRI16, 0x0c1, 0},
	opBr:    {"br", formRI16, 0x064, flagBranch},
	opBra:   {"bra", formRI16, 0x060, flagBranch},
	opBrsl:  {"brsl", formRI16, 0x066, flagBranch},
	opBrz:   {"brz", formRI16, 0x040, flagBranch},
	opBrnz:  {"brnz", formRI16, 0x042, flagBranch},
	opLqa:   {"lqa", formRI16, 0x061, 0},
	opStqa:  {"stqa", formRI16, 0x041, flagStore},
	opLqr:   {"lqr", formRI16, 0x067, 0},
	opStqr:  {"stqr", formRI16, 0x047, flagStore},
	opFsmbi: {"fsmbi", formRI16, 0x065, 0},

	opIla: {"ila", formRI18, 0x21, 0},

	opShufb: {"shufb", formRRR, 0xb, 0},
	opSelb:  {"selb", formRRR, 0x8, 0},
	opFma:   {"fma", formRRR, 0xe, 0},
	opFms:   {"fms", formRRR, 0xf, 0},
	opFnms:  {"fnms", formRRR, 0xd, 0},
}

func (o op) String() string {
	return opTable[o].mnemonic
}

func (o op) is(flag int) bool {
	return opTable[o].flags&flag == flag
}

// decoding tables indexed by the opcode field of each length.
var (
	decode4  [1 << 4]op
	decode7  [1 << 7]op
	decode8  [1 << 8]op
	decode9  [1 << 9]op
	decode11 [1 << 11]op
)

func init() {
	for o := opIllegal + 1; o < numOps; o++ {
		info := opTable[o]
		switch info.form {
		case formRR, formRI7:
			decode11[info.opcode] = o
		case formRRR:
			decode4[info.opcode] = o
		case formRI10:
			decode8[info.opcode] = o
		case formRI16:
			decode9[info.opcode] = o
		case formRI18:
			decode7[info.opcode] = o
		}
	}
}

// decoded is an instruction with its fields extracted. immediates are
// sign extended except where noted.
type decoded struct {
	op   op
	inst uint32

	rt, ra, rb, rc uint8

	// I7, I10 or I16 sign extended
	imm int32

	// I16 or I18 zero extended. the signal code for stop
	uimm uint32
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// Supported returns true if the instruction word is a supported
// instruction.
func Supported(inst uint32) bool {
	return decode(inst).op != opIllegal
}

func decode(inst uint32) decoded {
	d := decoded{inst: inst}

	switch {
	case decode4[inst>>28] != opIllegal:
		d.op = decode4[inst>>28]
		d.rt = uint8((inst >> 21) & 0x7f)
		d.rb = uint8((inst >> 14) & 0x7f)
		d.ra = uint8((inst >> 7) & 0x7f)
		d.rc = uint8(inst & 0x7f)

	case decode7[inst>>25] != opIllegal:
		d.op = decode7[inst>>25]
		d.uimm = (inst >> 7) & 0x3ffff
		d.rt = uint8(inst & 0x7f)

	case decode8[inst>>24] != opIllegal:
		d.op = decode8[inst>>24]
		d.imm = signExtend((inst>>14)&0x3ff, 10)
		d.ra = uint8((inst >> 7) & 0x7f)
		d.rt = uint8(inst & 0x7f)

	case decode9[inst>>23] != opIllegal:
		d.op = decode9[inst>>23]
		d.uimm = (inst >> 7) & 0xffff
		d.imm = signExtend(d.uimm, 16)
		d.rt = uint8(inst & 0x7f)

	case decode11[inst>>21] != opIllegal:
		d.op = decode11[inst>>21]
		d.rb = uint8((inst >> 14) & 0x7f)
		d.ra = uint8((inst >> 7) & 0x7f)
		d.rt = uint8(inst & 0x7f)
		if opTable[d.op].form == formRI7 {
			d.imm = signExtend(uint32(d.rb), 7)
		}
		if d.op == opStop {
			d.uimm = inst & 0x3fff
		}
	}

	return d
}
