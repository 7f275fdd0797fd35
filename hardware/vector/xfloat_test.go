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
	"math"
	"testing"

	"github.com/jetsetilly/gophercell/test"
)

func TestExtendedFormat(t *testing.T) {
	one := math.Float32bits(1.0)
	two := math.Float32bits(2.0)
	tiny := math.Float32bits(float32(math.Ldexp(1, -30)))

	// exponent 255 is an ordinary number
	big := uint32(0x7f800000)
	test.ExpectEquality(t, xvalue(big), math.Ldexp(1, 128))
	test.ExpectEquality(t, extendedFPU.mul(big, one), big)

	// overflow saturates
	test.ExpectEquality(t, extendedFPU.mul(big, two), XMax)
	test.ExpectEquality(t, extendedFPU.mul(big|0x80000000, two), XMax|0x80000000)

	// denormals are zero
	test.ExpectEquality(t, extendedFPU.add(0x00000001, 0x00000001), uint32(0))
	test.ExpectEquality(t, extendedFPU.mul(math.Float32bits(float32(math.Ldexp(1, -100))),
		math.Float32bits(float32(math.Ldexp(1, -100)))), uint32(0))

	// rounding is toward zero
	test.ExpectEquality(t, extendedFPU.sub(one, tiny), uint32(0x3f7fffff))
	test.ExpectEquality(t, extendedFPU.add(one|0x80000000, tiny), uint32(0xbf7fffff))

	// fused multiply add rounds once
	third := math.Float32bits(1.0 / 3.0)
	three := math.Float32bits(3.0)
	test.ExpectEquality(t, extendedFPU.fms(third, three, one), uint32(0x33000000))
	test.ExpectEquality(t, extendedFPU.fnms(third, three, one), uint32(0xb3000000))
	test.ExpectEquality(t, extendedFPU.fma(one, two, one), three)
}

func TestFastFormat(t *testing.T) {
	one := math.Float32bits(1.0)
	two := math.Float32bits(2.0)
	tiny := math.Float32bits(float32(math.Ldexp(1, -30)))

	// host arithmetic rounds to nearest and produces infinities
	test.ExpectEquality(t, fastFPU.sub(one, tiny), one)
	test.ExpectEquality(t, fastFPU.mul(0x7f7fffff, two), uint32(0x7f800000))

	// denormals are kept
	test.ExpectEquality(t, fastFPU.add(0x00000001, 0x00000001), uint32(0x00000002))
}

func TestDecodeFormats(t *testing.T) {
	for o := opIllegal + 1; o < numOps; o++ {
		var inst uint32
		switch opTable[o].form {
		case formRR, formRI7:
			inst = rr(opTable[o].opcode, 1, 2, 3)
		case formRRR:
			inst = rrr(opTable[o].opcode, 1, 2, 3, 4)
		case formRI10:
			inst = ri10(opTable[o].opcode, 1, 2, -1)
		case formRI16:
			inst = ri16(opTable[o].opcode, 1, 0xfffe)
		case formRI18:
			inst = ri18(opTable[o].opcode, 1, 0x3ffff)
		}

		d := decode(inst)
		test.ExpectEquality(t, d.op, o, o.String())
		test.ExpectEquality(t, d.rt, uint8(1), o.String())

		switch opTable[o].form {
		case formRRR:
			test.ExpectEquality(t, d.ra, uint8(2), o.String())
			test.ExpectEquality(t, d.rb, uint8(3), o.String())
			test.ExpectEquality(t, d.rc, uint8(4), o.String())
		case formRI10:
			test.ExpectEquality(t, d.ra, uint8(2), o.String())
			test.ExpectEquality(t, d.imm, int32(-1), o.String())
		case formRI16:
			test.ExpectEquality(t, d.imm, int32(-2), o.String())
			test.ExpectEquality(t, d.uimm, uint32(0xfffe), o.String())
		case formRI18:
			test.ExpectEquality(t, d.uimm, uint32(0x3ffff), o.String())
		}
	}
}
