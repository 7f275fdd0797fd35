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

package mfc

import (
	"fmt"

	"github.com/jetsetilly/gophercell/curated"
)

// Opcode of an MFC command.
type Opcode uint32

// List of supported opcodes. The B and F variants are barrier and fence
// forms.
const (
	Put     Opcode = 0x20
	PutB    Opcode = 0x21
	PutF    Opcode = 0x22
	PutL    Opcode = 0x24
	PutLB   Opcode = 0x25
	PutLF   Opcode = 0x26
	Get     Opcode = 0x40
	GetB    Opcode = 0x41
	GetF    Opcode = 0x42
	GetL    Opcode = 0x44
	GetLB   Opcode = 0x45
	GetLF   Opcode = 0x46
	PutLLUC Opcode = 0xb0
	PutLLC  Opcode = 0xb4
	Barrier Opcode = 0xc0
	Eieio   Opcode = 0xc8
	Sync    Opcode = 0xcc
	GetLLAR Opcode = 0xd0
)

var opcodeNames = map[Opcode]string{
	Put: "PUT", PutB: "PUTB", PutF: "PUTF",
	PutL: "PUTL", PutLB: "PUTLB", PutLF: "PUTLF",
	Get: "GET", GetB: "GETB", GetF: "GETF",
	GetL: "GETL", GetLB: "GETLB", GetLF: "GETLF",
	PutLLUC: "PUTLLUC", PutLLC: "PUTLLC", GetLLAR: "GETLLAR",
	Barrier: "BARRIER", Eieio: "EIEIO", Sync: "SYNC",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("%#02x", uint32(o))
}

func (o Opcode) valid() bool {
	_, ok := opcodeNames[o]
	return ok
}

func (o Opcode) isPut() bool {
	return o&0xf0 == 0x20
}

func (o Opcode) isList() bool {
	return o == PutL || o == PutLB || o == PutLF || o == GetL || o == GetLB || o == GetLF
}

func (o Opcode) isAtomic() bool {
	return o == GetLLAR || o == PutLLC || o == PutLLUC
}

func (o Opcode) isTransfer() bool {
	return o&0xf0 == 0x20 || o&0xf0 == 0x40
}

// Command is a single queued MFC command. For list commands EA is the local
// store address of the list and Size is the size of the list in bytes.
type Command struct {
	Port   int
	Opcode Opcode
	LSA    uint32
	EA     uint32
	Size   uint32
	Tag    uint32

	// the command was issued by the scalar core
	Proxy bool

	// global issue order
	Seq uint64
}

func (c Command) String() string {
	return fmt.Sprintf("%s port=%d lsa=%05x ea=%08x size=%#x tag=%d", c.Opcode, c.Port, c.LSA, c.EA, c.Size, c.Tag)
}

// validTransfer checks the size and alignment of a single transfer.
func validTransfer(lsa, ea, size uint32) bool {
	switch size {
	case 1, 2, 4, 8:
		return lsa&(size-1) == 0 && ea&(size-1) == 0 && lsa&0xf == ea&0xf
	}
	return size > 0 && size <= 16384 && size&0xf == 0 && lsa&0xf == 0 && ea&0xf == 0
}

func (c Command) validate() error {
	if !c.Opcode.valid() {
		return curated.Errorf(BadCommand, fmt.Sprintf("unknown opcode %#02x", uint32(c.Opcode)))
	}
	if c.Tag >= NumTags {
		return curated.Errorf(BadCommand, fmt.Sprintf("tag %d out of range", c.Tag))
	}

	switch {
	case c.Opcode.isList():
		if c.Size == 0 || c.Size&7 != 0 || c.Size > 16384 || c.EA&7 != 0 {
			return curated.Errorf(BadCommand, fmt.Sprintf("bad list at %#05x (%d bytes)", c.EA, c.Size))
		}
	case c.Opcode.isAtomic():
		if c.LSA&0x7f != 0 || c.EA&0x7f != 0 {
			return curated.Errorf(BadCommand, fmt.Sprintf("%s requires 128 byte alignment", c.Opcode))
		}
	case c.Opcode.isTransfer():
		if !validTransfer(c.LSA, c.EA, c.Size) {
			return curated.Errorf(BadCommand, fmt.Sprintf("bad transfer %#x bytes (lsa=%05x ea=%08x)", c.Size, c.LSA, c.EA))
		}
	}
	return nil
}

// list element as stored in the local store.
type listElement struct {
	stall bool
	size  uint32
	ea    uint32
}

func decodeListElement(b []byte) listElement {
	w0 := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	w1 := uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])
	return listElement{
		stall: w0&0x80000000 != 0,
		size:  w0 & 0x7fff,
		ea:    w1,
	}
}
