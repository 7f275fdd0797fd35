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

package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
)

// MachineSPU is the ELF machine number of vector core images. It is not
// defined by the debug/elf package.
const MachineSPU = elf.Machine(23)

// Format of a loaded image.
type Format int

// List of valid Format values.
const (
	Raw Format = iota
	ELF32
	ELF64
)

func (f Format) String() string {
	switch f {
	case Raw:
		return "raw"
	case ELF32:
		return "ELF32"
	case ELF64:
		return "ELF64"
	}
	return "unknown format"
}

// Target is the core type an image is intended for.
type Target int

// List of valid Target values.
const (
	Scalar Target = iota
	Vector
)

func (t Target) String() string {
	if t == Vector {
		return "vector"
	}
	return "scalar"
}

// Segment is a single loadable part of an image.
type Segment struct {
	Address uint32
	MemSize uint32
	Data    []byte
	Prot    memory.Protection
}

func (s Segment) String() string {
	return fmt.Sprintf("%#08x-%#08x %s (%d bytes of data)", s.Address, uint64(s.Address)+uint64(s.MemSize), s.Prot, len(s.Data))
}

// Image is a guest program ready to be placed in memory.
type Image struct {
	Format   Format
	Target   Target
	Entry    uint32
	Segments []Segment
}

func (img *Image) String() string {
	return fmt.Sprintf("%s %s image, entry %#08x, %d segments", img.Target, img.Format, img.Entry, len(img.Segments))
}

// NewRaw creates an Image from a flat binary. The image is loaded at the
// base address with read, write and execute permission and starts executing
// at the entry address.
func NewRaw(data []byte, base uint32, entry uint32, target Target) *Image {
	return &Image{
		Format: Raw,
		Target: target,
		Entry:  entry,
		Segments: []Segment{{
			Address: base,
			MemSize: uint32(len(data)),
			Data:    data,
			Prot:    memory.ProtRWX,
		}},
	}
}

// LoadFile loads an ELF image from the named file.
func LoadFile(filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, curated.Errorf(NotSupported, err)
	}
	defer f.Close()
	return Load(f)
}

// LoadBytes loads an ELF image from memory.
func LoadBytes(data []byte) (*Image, error) {
	return Load(bytes.NewReader(data))
}

// Load an ELF image. The image must be big-endian and executable. The
// machine type selects the target core.
func Load(r io.ReaderAt) (*Image, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, curated.Errorf(NotSupported, err)
	}
	defer ef.Close()

	img := &Image{}

	if ef.Data != elf.ELFDATA2MSB {
		return nil, curated.Errorf(NotSupported, "not big-endian")
	}
	if ef.Type != elf.ET_EXEC {
		return nil, curated.Errorf(NotSupported, ef.Type)
	}

	switch ef.Class {
	case elf.ELFCLASS32:
		img.Format = ELF32
	case elf.ELFCLASS64:
		img.Format = ELF64
	default:
		return nil, curated.Errorf(NotSupported, ef.Class)
	}

	switch ef.Machine {
	case elf.EM_PPC, elf.EM_PPC64:
		img.Target = Scalar
	case MachineSPU:
		img.Target = Vector
	default:
		return nil, curated.Errorf(WrongMachine, ef.Machine)
	}

	if ef.Entry > 0xffffffff {
		return nil, curated.Errorf(NotSupported, fmt.Sprintf("entry point %#x", ef.Entry))
	}
	img.Entry = uint32(ef.Entry)

	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		if p.Vaddr+p.Memsz > 0x100000000 {
			return nil, curated.Errorf(BadSegment, p.Vaddr, "outside 32-bit address space")
		}
		if p.Filesz > p.Memsz {
			return nil, curated.Errorf(BadSegment, p.Vaddr, "file size larger than memory size")
		}

		data := make([]byte, p.Filesz)
		if _, err := io.ReadFull(p.Open(), data); err != nil {
			return nil, curated.Errorf(BadSegment, p.Vaddr, err)
		}

		var prot memory.Protection
		if p.Flags&elf.PF_R == elf.PF_R {
			prot |= memory.ProtRead
		}
		if p.Flags&elf.PF_W == elf.PF_W {
			prot |= memory.ProtWrite
		}
		if p.Flags&elf.PF_X == elf.PF_X {
			prot |= memory.ProtExec
		}

		img.Segments = append(img.Segments, Segment{
			Address: uint32(p.Vaddr),
			MemSize: uint32(p.Memsz),
			Data:    data,
			Prot:    prot,
		})
	}

	if len(img.Segments) == 0 {
		return nil, curated.Errorf(NotSupported, "no loadable segments")
	}

	return img, nil
}
