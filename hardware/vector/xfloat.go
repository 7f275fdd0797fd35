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
	"math/big"

	"github.com/jetsetilly/gophercell/hardware/translator"
)

// single precision arithmetic on the bit patterns of the operands.
type fpu struct {
	add  func(a, b uint32) uint32
	sub  func(a, b uint32) uint32
	mul  func(a, b uint32) uint32
	fma  func(a, b, c uint32) uint32
	fms  func(a, b, c uint32) uint32
	fnms func(a, b, c uint32) uint32
}

func fpuFor(accuracy translator.Accuracy) *fpu {
	if accuracy == translator.Fast {
		return &fastFPU
	}
	return &extendedFPU
}

// XMax is the largest magnitude of the extended single precision format.
const XMax = uint32(0x7fffffff)

// xvalue returns the exact value of an extended single precision number.
func xvalue(b uint32) float64 {
	e := int((b >> 23) & 0xff)
	if e == 0 {
		return 0
	}
	v := math.Ldexp(float64(b&0x7fffff|0x800000), e-127-23)
	if b&0x80000000 != 0 {
		return -v
	}
	return v
}

// xencode truncates a value toward zero to extended single precision.
func xencode(v float64) uint32 {
	if v == 0 {
		return 0
	}

	bits := math.Float64bits(v)
	sign := uint32(bits>>32) & 0x80000000

	e := int((bits>>52)&0x7ff) - 1023 + 127
	if e > 255 {
		return sign | XMax
	}
	if e < 1 {
		return 0
	}
	return sign | uint32(e)<<23 | uint32(bits>>29)&0x7fffff
}

// xround converts the result of a big.Float operation. the operation has
// already rounded toward zero to 24 bits.
func xround(f *big.Float) uint32 {
	v, _ := f.Float64()
	return xencode(v)
}

func xfloat() *big.Float {
	return new(big.Float).SetPrec(24).SetMode(big.ToZero)
}

func exact(v float64) *big.Float {
	return new(big.Float).SetFloat64(v)
}

var extendedFPU = fpu{
	add: func(a, b uint32) uint32 {
		return xround(xfloat().Add(exact(xvalue(a)), exact(xvalue(b))))
	},
	sub: func(a, b uint32) uint32 {
		return xround(xfloat().Sub(exact(xvalue(a)), exact(xvalue(b))))
	},
	mul: func(a, b uint32) uint32 {
		// the product of two 24 bit mantissas is exact in a float64
		return xencode(xvalue(a) * xvalue(b))
	},
	fma: func(a, b, c uint32) uint32 {
		p := xvalue(a) * xvalue(b)
		return xround(xfloat().Add(exact(p), exact(xvalue(c))))
	},
	fms: func(a, b, c uint32) uint32 {
		p := xvalue(a) * xvalue(b)
		return xround(xfloat().Sub(exact(p), exact(xvalue(c))))
	},
	fnms: func(a, b, c uint32) uint32 {
		p := xvalue(a) * xvalue(b)
		return xround(xfloat().Sub(exact(xvalue(c)), exact(p)))
	},
}

// host arithmetic. the product is converted to float32 before the addition
// so that the compiler cannot fuse the operations.
var fastFPU = fpu{
	add: func(a, b uint32) uint32 {
		return math.Float32bits(math.Float32frombits(a) + math.Float32frombits(b))
	},
	sub: func(a, b uint32) uint32 {
		return math.Float32bits(math.Float32frombits(a) - math.Float32frombits(b))
	},
	mul: func(a, b uint32) uint32 {
		return math.Float32bits(math.Float32frombits(a) * math.Float32frombits(b))
	},
	fma: func(a, b, c uint32) uint32 {
		p := float32(math.Float32frombits(a) * math.Float32frombits(b))
		return math.Float32bits(p + math.Float32frombits(c))
	},
	fms: func(a, b, c uint32) uint32 {
		p := float32(math.Float32frombits(a) * math.Float32frombits(b))
		return math.Float32bits(p - math.Float32frombits(c))
	},
	fnms: func(a, b, c uint32) uint32 {
		p := float32(math.Float32frombits(a) * math.Float32frombits(b))
		return math.Float32bits(math.Float32frombits(c) - p)
	},
}

// double precision operations are the same in both tiers.
func dword(r Reg, i int) float64 {
	return math.Float64frombits(uint64(r[i*2])<<32 | uint64(r[i*2+1]))
}

func setDword(r *Reg, i int, v float64) {
	b := math.Float64bits(v)
	r[i*2] = uint32(b >> 32)
	r[i*2+1] = uint32(b)
}
