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

type op int

const (
	opIllegal op = iota

	// D-form
	opAddi
	opAddis
	opOri
	opOris
	opXori
	opAndiRc
	opMulli
	opCmpi
	opCmpli
	opLwz
	opLbz
	opLhz
	opStw
	opStb
	opSth
	opLfs
	opLfd
	opStfs
	opStfd

	// DS-form
	opLd
	opStd

	// M-form
	opRlwinm

	// branches
	opB
	opBc
	opBclr
	opBcctr
	opSc
	opIsync

	// X-form and XO-form
	opAdd
	opSubf
	opNeg
	opMullw
	opDivw
	opDivwu
	opAnd
	opOr
	opXor
	opNor
	opSlw
	opSrw
	opSraw
	opCmp
	opCmpl
	opLwarx
	opStwcx
	opLdarx
	opStdcx
	opLwzx
	opStwx
	opMfspr
	opMtspr
	opMfcr
	opSync
	opEieio
	opDcbf

	// floating point
	opFadd
	opFsub
	opFmul
	opFdiv
	opFmadd
	opFsqrt
	opFmr
	opFneg
	opFabs
	opFcmpu
	opFrsp
	opFadds
	opFsubs
	opFmuls
	opFdivs
	opFmadds

	numOps
)

// instruction flags.
const (
	flagBranch = 1 << iota
	flagStore
	flagEndsBlock
	flagRecordable
)

type opInfo struct {
	mnemonic string
	flags    int
}

var opTable = [numOps]opInfo{
	opIllegal: {"illegal", flagEndsBlock},
	opAddi:    {"addi", 0},
	opAddis:   {"addis", 0},
	opOri:     {"ori", 0},
	opOris:    {"oris", 0},
	opXori:    {"xori", 0},
	opAndiRc:  {"andi.", 0},
	opMulli:   {"mulli", 0},
	opCmpi:    {"cmpi", 0},
	opCmpli:   {"cmpli", 0},
	opLwz:     {"lwz", 0},
	opLbz:     {"lbz", 0},
	opLhz:     {"lhz", 0},
	opStw:     {"stw", flagStore},
	opStb:     {"stb", flagStore},
	opSth:     {"sth", flagStore},
	opLfs:     {"lfs", 0},
	opLfd:     {"lfd", 0},
	opStfs:    {"stfs", flagStore},
	opStfd:    {"stfd", flagStore},
	opLd:      {"ld", 0},
	opStd:     {"std", flagStore},
	opRlwinm:  {"rlwinm", flagRecordable},
	opB:       {"b", flagBranch},
	opBc:      {"bc", flagBranch},
	opBclr:    {"bclr", flagBranch | flagEndsBlock},
	opBcctr:   {"bcctr", flagBranch | flagEndsBlock},
	opSc:      {"sc", flagEndsBlock},
	opIsync:   {"isync", 0},
	opAdd:     {"add", flagRecordable},
	opSubf:    {"subf", flagRecordable},
	opNeg:     {"neg", flagRecordable},
	opMullw:   {"mullw", flagRecordable},
	opDivw:    {"divw", flagRecordable},
	opDivwu:   {"divwu", flagRecordable},
	opAnd:     {"and", flagRecordable},
	opOr:      {"or", flagRecordable},
	opXor:     {"xor", flagRecordable},
	opNor:     {"nor", flagRecordable},
	opSlw:     {"slw", flagRecordable},
	opSrw:     {"srw", flagRecordable},
	opSraw:    {"sraw", flagRecordable},
	opCmp:     {"cmp", 0},
	opCmpl:    {"cmpl", 0},
	opLwarx:   {"lwarx", 0},
	opStwcx:   {"stwcx.", flagStore},
	opLdarx:   {"ldarx", 0},
	opStdcx:   {"stdcx.", flagStore},
	opLwzx:    {"lwzx", 0},
	opStwx:    {"stwx", flagStore},
	opMfspr:   {"mfspr", 0},
	opMtspr:   {"mtspr", 0},
	opMfcr:    {"mfcr", 0},
	opSync:    {"sync", 0},
	opEieio:   {"eieio", 0},
	opDcbf:    {"dcbf", 0},
	opFadd:    {"fadd", flagRecordable},
	opFsub:    {"fsub", flagRecordable},
	opFmul:    {"fmul", flagRecordable},
	opFdiv:    {"fdiv", flagRecordable},
	opFmadd:   {"fmadd", flagRecordable},
	opFsqrt:   {"fsqrt", flagRecordable},
	opFmr:     {"fmr", flagRecordable},
	opFneg:    {"fneg", flagRecordable},
	opFabs:    {"fabs", flagRecordable},
	opFcmpu:   {"fcmpu", 0},
	opFrsp:    {"frsp", flagRecordable},
	opFadds:   {"fadds", flagRecordable},
	opFsubs:   {"fsubs", flagRecordable},
	opFmuls:   {"fmuls", flagRecordable},
	opFdivs:   {"fdivs", flagRecordable},
	opFmadds:  {"fmadds", flagRecordable},
}

func (o op) String() string {
	return opTable[o].mnemonic
}

func (o op) is(flag int) bool {
	return opTable[o].flags&flag == flag
}

// decoded is a single instruction with every field extracted. Not every
// field is meaningful for every instruction.
type decoded struct {
	op   op
	inst uint32

	// register fields. rt is also RS and the FRT/FRS fields. rc is the FRC
	// field of A-form floating point instructions
	rt uint8
	ra uint8
	rb uint8
	rc uint8

	// sign extended immediate, displacement or branch offset
	imm int64

	// zero extended immediate
	uimm uint64

	// M-form
	sh uint8
	mb uint8
	me uint8

	// compare instructions. bf is the target CR field
	bf uint8
	l  bool

	// branch fields. bo and bi are taken from the rt and ra fields
	bo uint8
	bi uint8
	aa bool
	lk bool

	// record bit
	record bool

	spr uint16
}

func signExtend16(v uint32) int64 {
	return int64(int16(uint16(v)))
}

// Supported returns true if the instruction word is a supported
// instruction.
func Supported(inst uint32) bool {
	return decode(inst).op != opIllegal
}

// decode a single instruction word. instructions that are not supported are
// decoded with opIllegal.
func decode(inst uint32) decoded {
	d := decoded{
		inst: inst,
		rt:   uint8((inst >> 21) & 0x1f),
		ra:   uint8((inst >> 16) & 0x1f),
		rb:   uint8((inst >> 11) & 0x1f),
		rc:   uint8((inst >> 6) & 0x1f),
		imm:  signExtend16(inst),
		uimm: uint64(inst & 0xffff),
	}
	d.bf = d.rt >> 2
	d.l = d.rt&1 == 1
	d.bo = d.rt
	d.bi = d.ra
	d.record = inst&1 == 1

	switch inst >> 26 {
	case 14:
		d.op = opAddi
	case 15:
		d.op = opAddis
	case 24:
		d.op = opOri
	case 25:
		d.op = opOris
	case 26:
		d.op = opXori
	case 28:
		d.op = opAndiRc
	case 7:
		d.op = opMulli
	case 11:
		if d.rt&2 == 0 {
			d.op = opCmpi
		}
	case 10:
		if d.rt&2 == 0 {
			d.op = opCmpli
		}
	case 21:
		d.op = opRlwinm
		d.sh = d.rb
		d.mb = uint8((inst >> 6) & 0x1f)
		d.me = uint8((inst >> 1) & 0x1f)
	case 18:
		d.op = opB
		d.imm = int64(int32(inst&0x03fffffc<<6) >> 6)
		d.aa = inst&2 == 2
		d.lk = inst&1 == 1
	case 16:
		d.op = opBc
		d.imm = signExtend16(inst & 0xfffc)
		d.aa = inst&2 == 2
		d.lk = inst&1 == 1
	case 17:
		if inst&2 == 2 {
			d.op = opSc
		}
	case 19:
		d.lk = inst&1 == 1
		switch (inst >> 1) & 0x3ff {
		case 16:
			d.op = opBclr
		case 528:
			// decrementing CTR in bcctr is an invalid form
			if d.bo&4 == 4 {
				d.op = opBcctr
			}
		case 150:
			d.op = opIsync
		}
	case 32:
		d.op = opLwz
	case 34:
		d.op = opLbz
	case 40:
		d.op = opLhz
	case 36:
		d.op = opStw
	case 38:
		d.op = opStb
	case 44:
		d.op = opSth
	case 48:
		d.op = opLfs
	case 50:
		d.op = opLfd
	case 52:
		d.op = opStfs
	case 54:
		d.op = opStfd
	case 58:
		d.imm = signExtend16(inst & 0xfffc)
		if inst&3 == 0 {
			d.op = opLd
		}
	case 62:
		d.imm = signExtend16(inst & 0xfffc)
		if inst&3 == 0 {
			d.op = opStd
		}
	case 31:
		decodeX(&d)
	case 63:
		decodeFP(&d, false)
	case 59:
		decodeFP(&d, true)
	}

	// record bit only applies to some instructions
	if !d.op.is(flagRecordable) {
		switch d.op {
		case opAndiRc:
			d.record = true
		case opStwcx, opStdcx:
			d.record = true
		default:
			d.record = false
		}
	}

	return d
}

func decodeX(d *decoded) {
	switch (d.inst >> 1) & 0x3ff {
	case 266:
		d.op = opAdd
	case 40:
		d.op = opSubf
	case 104:
		d.op = opNeg
	case 235:
		d.op = opMullw
	case 491:
		d.op = opDivw
	case 459:
		d.op = opDivwu
	case 28:
		d.op = opAnd
	case 444:
		d.op = opOr
	case 316:
		d.op = opXor
	case 124:
		d.op = opNor
	case 24:
		d.op = opSlw
	case 536:
		d.op = opSrw
	case 792:
		d.op = opSraw
	case 0:
		if d.rt&2 == 0 {
			d.op = opCmp
		}
	case 32:
		if d.rt&2 == 0 {
			d.op = opCmpl
		}
	case 20:
		d.op = opLwarx
	case 150:
		if d.record {
			d.op = opStwcx
		}
	case 84:
		d.op = opLdarx
	case 214:
		if d.record {
			d.op = opStdcx
		}
	case 23:
		d.op = opLwzx
	case 151:
		d.op = opStwx
	case 339:
		d.op = opMfspr
	case 467:
		d.op = opMtspr
	case 19:
		d.op = opMfcr
	case 598:
		d.op = opSync
	case 854:
		d.op = opEieio
	case 86:
		d.op = opDcbf
	}

	if d.op == opMfspr || d.op == opMtspr {
		d.spr = uint16((d.inst>>16)&0x1f) | uint16((d.inst>>11)&0x1f)<<5
		switch d.spr {
		case SprXER, SprLR, SprCTR:
		default:
			d.op = opIllegal
		}
	}
}

func decodeFP(d *decoded, single bool) {
	// A-form instructions are identified by a 5 bit extended opcode
	switch (d.inst >> 1) & 0x1f {
	case 21:
		d.op = opFadd
	case 20:
		d.op = opFsub
	case 25:
		d.op = opFmul
	case 18:
		d.op = opFdiv
	case 29:
		d.op = opFmadd
	case 22:
		if !single {
			d.op = opFsqrt
		}
	}

	if d.op != opIllegal {
		if single {
			switch d.op {
			case opFadd:
				d.op = opFadds
			case opFsub:
				d.op = opFsubs
			case opFmul:
				d.op = opFmuls
			case opFdiv:
				d.op = opFdivs
			case opFmadd:
				d.op = opFmadds
			}
		}
		return
	}

	if single {
		return
	}

	switch (d.inst >> 1) & 0x3ff {
	case 72:
		d.op = opFmr
	case 40:
		d.op = opFneg
	case 264:
		d.op = opFabs
	case 0:
		d.op = opFcmpu
	case 12:
		d.op = opFrsp
	}
}
