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
	"math"

	"github.com/jetsetilly/gophercell/hardware/translator"
)

// DefaultNaN is the result of an invalid operation in the accurate tier.
const DefaultNaN = uint64(0x7ff8000000000000)

const (
	expMask   = uint64(0x7ff) << 52
	fracMask  = uint64(1)<<52 - 1
	quietBit  = uint64(1) << 51
	signBit64 = uint64(1) << 63
)

func isNaN(v uint64) bool {
	return v&expMask == expMask && v&fracMask != 0
}

func isSNaN(v uint64) bool {
	return isNaN(v) && v&quietBit == 0
}

func isInf(v uint64) bool {
	return v&^signBit64 == expMask
}

func isZero(v uint64) bool {
	return v&^signBit64 == 0
}

// fpu is a set of floating point operations on the bit patterns of double
// precision values. the State is passed so that FPSCR can be updated.
type fpu struct {
	add    func(s *State, a, b uint64) uint64
	sub    func(s *State, a, b uint64) uint64
	mul    func(s *State, a, c uint64) uint64
	div    func(s *State, a, b uint64) uint64
	madd   func(s *State, a, c, b uint64) uint64
	sqrt   func(s *State, b uint64) uint64
	single func(v uint64) uint64

	// single precision forms
	adds  func(s *State, a, b uint64) uint64
	subs  func(s *State, a, b uint64) uint64
	muls  func(s *State, a, c uint64) uint64
	divs  func(s *State, a, b uint64) uint64
	madds func(s *State, a, c, b uint64) uint64
}

func fpuFor(accuracy translator.Accuracy) *fpu {
	if accuracy == translator.Fast {
		return &fastFPU
	}
	return &accurateFPU
}

// singleToDouble converts the bits of a single precision value to the bits
// of a double precision value. NaN payloads are preserved.
func singleToDouble(w uint32) uint64 {
	if w&0x7f800000 == 0x7f800000 && w&0x007fffff != 0 {
		return uint64(w>>31)<<63 | expMask | uint64(w&0x007fffff)<<29
	}
	return math.Float64bits(float64(math.Float32frombits(w)))
}

// doubleToSingle converts the bits of a double precision value to the bits
// of a single precision value. NaN payloads are truncated.
func doubleToSingle(v uint64) uint32 {
	if isNaN(v) {
		return uint32(v>>63)<<31 | 0x7f800000 | uint32((v&fracMask)>>29)
	}
	return math.Float32bits(float32(math.Float64frombits(v)))
}

// roundSingle rounds a double precision value to single precision, keeping
// it in double precision format.
func roundSingle(v uint64) uint64 {
	return singleToDouble(doubleToSingle(v))
}

// accurate tier

func invalid(s *State) uint64 {
	s.FPSCR |= FpscrFX | FpscrVX
	return DefaultNaN
}

// propagate returns the first NaN operand, quieted.
func propagate(s *State, ops ...uint64) (uint64, bool) {
	for _, v := range ops {
		if isSNaN(v) {
			s.FPSCR |= FpscrFX | FpscrVX | FpscrVXSNAN
		}
	}
	for _, v := range ops {
		if isNaN(v) {
			return v | quietBit, true
		}
	}
	return 0, false
}

func asFloat(v uint64) float64 {
	return math.Float64frombits(v)
}

func asBits(v float64) uint64 {
	return math.Float64bits(v)
}

func accurateAdd(s *State, a, b uint64) uint64 {
	if r, ok := propagate(s, a, b); ok {
		return r
	}
	if isInf(a) && isInf(b) && (a^b)&signBit64 != 0 {
		return invalid(s)
	}
	return asBits(asFloat(a) + asFloat(b))
}

func accurateSub(s *State, a, b uint64) uint64 {
	if r, ok := propagate(s, a, b); ok {
		return r
	}
	if isInf(a) && isInf(b) && (a^b)&signBit64 == 0 {
		return invalid(s)
	}
	return asBits(asFloat(a) - asFloat(b))
}

func accurateMul(s *State, a, c uint64) uint64 {
	if r, ok := propagate(s, a, c); ok {
		return r
	}
	if (isInf(a) && isZero(c)) || (isZero(a) && isInf(c)) {
		return invalid(s)
	}
	return asBits(asFloat(a) * asFloat(c))
}

func accurateDiv(s *State, a, b uint64) uint64 {
	if r, ok := propagate(s, a, b); ok {
		return r
	}
	if (isInf(a) && isInf(b)) || (isZero(a) && isZero(b)) {
		return invalid(s)
	}
	if isZero(b) {
		s.FPSCR |= FpscrFX | FpscrZX
	}
	return asBits(asFloat(a) / asFloat(b))
}

func accurateMadd(s *State, a, c, b uint64) uint64 {
	if r, ok := propagate(s, a, b, c); ok {
		return r
	}
	if (isInf(a) && isZero(c)) || (isZero(a) && isInf(c)) {
		return invalid(s)
	}
	if (isInf(a) || isInf(c)) && isInf(b) {
		if ((a ^ c) & signBit64) != b&signBit64 {
			return invalid(s)
		}
	}
	return asBits(math.FMA(asFloat(a), asFloat(c), asFloat(b)))
}

func accurateSqrt(s *State, b uint64) uint64 {
	if r, ok := propagate(s, b); ok {
		return r
	}
	if b&signBit64 != 0 && !isZero(b) {
		return invalid(s)
	}
	return asBits(math.Sqrt(asFloat(b)))
}

var accurateFPU = fpu{
	add:    accurateAdd,
	sub:    accurateSub,
	mul:    accurateMul,
	div:    accurateDiv,
	madd:   accurateMadd,
	sqrt:   accurateSqrt,
	single: roundSingle,
	adds: func(s *State, a, b uint64) uint64 {
		return roundSingle(accurateAdd(s, a, b))
	},
	subs: func(s *State, a, b uint64) uint64 {
		return roundSingle(accurateSub(s, a, b))
	},
	muls: func(s *State, a, c uint64) uint64 {
		return roundSingle(accurateMul(s, a, c))
	},
	divs: func(s *State, a, b uint64) uint64 {
		return roundSingle(accurateDiv(s, a, b))
	},
	madds: func(s *State, a, c, b uint64) uint64 {
		return roundSingle(accurateMadd(s, a, c, b))
	},
}

// fast tier. host arithmetic with no NaN selection and no FPSCR updates.
// multiply-add is not fused

func asFloat32(v uint64) float32 {
	return float32(math.Float64frombits(v))
}

func asBits32(v float32) uint64 {
	return math.Float64bits(float64(v))
}

var fastFPU = fpu{
	add: func(_ *State, a, b uint64) uint64 {
		return asBits(asFloat(a) + asFloat(b))
	},
	sub: func(_ *State, a, b uint64) uint64 {
		return asBits(asFloat(a) - asFloat(b))
	},
	mul: func(_ *State, a, c uint64) uint64 {
		return asBits(asFloat(a) * asFloat(c))
	},
	div: func(_ *State, a, b uint64) uint64 {
		return asBits(asFloat(a) / asFloat(b))
	},
	madd: func(_ *State, a, c, b uint64) uint64 {
		return asBits(float64(asFloat(a)*asFloat(c)) + asFloat(b))
	},
	sqrt: func(_ *State, b uint64) uint64 {
		return asBits(math.Sqrt(asFloat(b)))
	},
	single: func(v uint64) uint64 {
		return asBits32(asFloat32(v))
	},
	adds: func(_ *State, a, b uint64) uint64 {
		return asBits32(asFloat32(a) + asFloat32(b))
	},
	subs: func(_ *State, a, b uint64) uint64 {
		return asBits32(asFloat32(a) - asFloat32(b))
	},
	muls: func(_ *State, a, c uint64) uint64 {
		return asBits32(asFloat32(a) * asFloat32(c))
	},
	divs: func(_ *State, a, b uint64) uint64 {
		return asBits32(asFloat32(a) / asFloat32(b))
	},
	madds: func(_ *State, a, c, b uint64) uint64 {
		return asBits32(float32(asFloat32(a)*asFloat32(c)) + asFloat32(b))
	},
}

// compareFP returns the CR field value for an unordered compare.
func compareFP(a, b uint64) uint32 {
	if isNaN(a) || isNaN(b) {
		return CrSO
	}
	fa, fb := asFloat(a), asFloat(b)
	switch {
	case fa < fb:
		return CrLT
	case fa > fb:
		return CrGT
	}
	return CrEQ
}
