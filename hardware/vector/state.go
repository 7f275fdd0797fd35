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
	"strings"
)

// NumRegisters is the number of 128-bit registers.
const NumRegisters = 128

// Reg is a 128-bit register as four big-endian words. Word 0 is the
// preferred slot.
type Reg [4]uint32

// Preferred returns the word in the preferred slot.
func (r Reg) Preferred() uint32 {
	return r[0]
}

// Splat returns a register with the value in every word.
func Splat(v uint32) Reg {
	return Reg{v, v, v, v}
}

func (r Reg) bytes() [16]byte {
	var b [16]byte
	for i, w := range r {
		b[i*4] = byte(w >> 24)
		b[i*4+1] = byte(w >> 16)
		b[i*4+2] = byte(w >> 8)
		b[i*4+3] = byte(w)
	}
	return b
}

func fromBytes(b [16]byte) Reg {
	var r Reg
	for i := range r {
		r[i] = uint32(b[i*4])<<24 | uint32(b[i*4+1])<<16 | uint32(b[i*4+2])<<8 | uint32(b[i*4+3])
	}
	return r
}

func (r Reg) String() string {
	return fmt.Sprintf("%08x %08x %08x %08x", r[0], r[1], r[2], r[3])
}

// State is the register file of a vector core. It is a plain value and can
// be copied. The local store is not part of the State.
type State struct {
	GPR [NumRegisters]Reg
	PC  uint32

	// decrementer. counts down once for every retired instruction
	Dec uint32
}

func (s *State) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("pc=%05x dec=%08x", s.PC, s.Dec))
	for i := range s.GPR {
		if s.GPR[i] != (Reg{}) {
			b.WriteString(fmt.Sprintf("\n$%-3d %s", i, s.GPR[i]))
		}
	}
	return b.String()
}
