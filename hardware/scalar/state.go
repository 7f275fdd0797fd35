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
	"strings"

	"github.com/jetsetilly/gophercell/hardware/memory"
)

// XER bits.
const (
	XerCA = uint64(1 << 29)
	XerOV = uint64(1 << 30)
	XerSO = uint64(1 << 31)
)

// Condition register field bits.
const (
	CrLT = 0x8
	CrGT = 0x4
	CrEQ = 0x2
	CrSO = 0x1
)

// FPSCR bits.
const (
	FpscrFX     = uint32(1 << 31)
	FpscrVX     = uint32(1 << 29)
	FpscrZX     = uint32(1 << 26)
	FpscrVXSNAN = uint32(1 << 24)
	fpccShift   = 12
)

// Special purpose register numbers.
const (
	SprXER = 1
	SprLR  = 8
	SprCTR = 9
)

// NumGPR is the number of general purpose registers. The same number of
// floating point registers exist.
const NumGPR = 32

// State is the register file of a scalar thread. It is a plain value and
// can be copied.
type State struct {
	GPR   [NumGPR]uint64
	FPR   [NumGPR]uint64
	CR    uint32
	LR    uint64
	CTR   uint64
	XER   uint64
	FPSCR uint32
	PC    uint32

	// the reservation held by the thread. a reservation is never carried
	// across a savestate
	Reservation memory.Reservation
}

func (s *State) String() string {
	b := strings.Builder{}
	for i := 0; i < NumGPR; i++ {
		b.WriteString(fmt.Sprintf("r%-2d=%016x", i, s.GPR[i]))
		if i%4 == 3 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString(fmt.Sprintf("pc=%08x lr=%016x ctr=%016x cr=%08x xer=%016x", s.PC, s.LR, s.CTR, s.CR, s.XER))
	return b.String()
}

// CRField returns the 4 bit value of condition register field n.
func (s *State) CRField(n uint8) uint32 {
	return (s.CR >> (28 - 4*uint32(n&7))) & 0xf
}

func (s *State) setCRField(n uint8, v uint32) {
	shift := 28 - 4*uint32(n&7)
	s.CR = s.CR&^(0xf<<shift) | (v&0xf)<<shift
}

// crBit returns bit n of the condition register. bit 0 is the most
// significant bit.
func (s *State) crBit(n uint8) bool {
	return (s.CR>>(31-uint32(n&31)))&1 == 1
}

func (s *State) so() uint32 {
	if s.XER&XerSO != 0 {
		return CrSO
	}
	return 0
}

// record updates CR0 with the result of an instruction with the Rc bit set.
func (s *State) record(v uint64) {
	s.setCRField(0, compareSigned(int64(v), 0)|s.so())
}

func compareSigned(a int64, b int64) uint32 {
	switch {
	case a < b:
		return CrLT
	case a > b:
		return CrGT
	}
	return CrEQ
}

func compareUnsigned(a uint64, b uint64) uint32 {
	switch {
	case a < b:
		return CrLT
	case a > b:
		return CrGT
	}
	return CrEQ
}
