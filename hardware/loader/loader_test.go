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

package loader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/test"
)

type segment struct {
	addr  uint32
	data  []byte
	memsz uint32
	flags elf.ProgFlag
}

// buildELF creates a minimal executable with one program header for each
// segment.
func buildELF(t *testing.T, class elf.Class, order binary.ByteOrder, machine elf.Machine, entry uint32, segs []segment) []byte {
	t.Helper()

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	if order == binary.BigEndian {
		ident[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	} else {
		ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	}

	var b bytes.Buffer
	var ehsize, phentsize int
	if class == elf.ELFCLASS32 {
		ehsize, phentsize = 52, 32
	} else {
		ehsize, phentsize = 64, 56
	}
	offset := ehsize + phentsize*len(segs)

	if class == elf.ELFCLASS32 {
		test.DemandSuccess(t, binary.Write(&b, order, elf.Header32{
			Ident: ident, Type: uint16(elf.ET_EXEC), Machine: uint16(machine),
			Version: uint32(elf.EV_CURRENT), Entry: entry, Phoff: uint32(ehsize),
			Ehsize: uint16(ehsize), Phentsize: uint16(phentsize), Phnum: uint16(len(segs)),
			Shentsize: 40,
		}))
		for _, s := range segs {
			test.DemandSuccess(t, binary.Write(&b, order, elf.Prog32{
				Type: uint32(elf.PT_LOAD), Off: uint32(offset), Vaddr: s.addr, Paddr: s.addr,
				Filesz: uint32(len(s.data)), Memsz: s.memsz, Flags: uint32(s.flags), Align: 16,
			}))
			offset += len(s.data)
		}
	} else {
		test.DemandSuccess(t, binary.Write(&b, order, elf.Header64{
			Ident: ident, Type: uint16(elf.ET_EXEC), Machine: uint16(machine),
			Version: uint32(elf.EV_CURRENT), Entry: uint64(entry), Phoff: uint64(ehsize),
			Ehsize: uint16(ehsize), Phentsize: uint16(phentsize), Phnum: uint16(len(segs)),
			Shentsize: 64,
		}))
		for _, s := range segs {
			test.DemandSuccess(t, binary.Write(&b, order, elf.Prog64{
				Type: uint32(elf.PT_LOAD), Flags: uint32(s.flags), Off: uint64(offset),
				Vaddr: uint64(s.addr), Paddr: uint64(s.addr),
				Filesz: uint64(len(s.data)), Memsz: uint64(s.memsz), Align: 16,
			}))
			offset += len(s.data)
		}
	}

	for _, s := range segs {
		b.Write(s.data)
	}

	return b.Bytes()
}

func newMemory(t *testing.T) *memory.Memory {
	t.Helper()
	mem, err := memory.NewMemory(logger.Allow, 16<<20, memory.Strict)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = mem.Release()
	})
	return mem
}

func TestELF32(t *testing.T) {
	text := []byte{0x38, 0x60, 0x00, 0x2a, 0x44, 0x00, 0x00, 0x02}
	data := []byte{1, 2, 3, 4}

	b := buildELF(t, elf.ELFCLASS32, binary.BigEndian, elf.EM_PPC, 0x10000, []segment{
		{addr: 0x10000, data: text, memsz: uint32(len(text)), flags: elf.PF_R | elf.PF_X},
		{addr: 0x10800, data: data, memsz: 0x2000, flags: elf.PF_R | elf.PF_W},
	})

	img, err := loader.LoadBytes(b)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Format, loader.ELF32)
	test.ExpectEquality(t, img.Target, loader.Scalar)
	test.ExpectEquality(t, img.Entry, uint32(0x10000))
	test.DemandEquality(t, len(img.Segments), 2)
	test.ExpectEquality(t, img.Segments[0].Prot, memory.ProtRX)
	test.ExpectEquality(t, img.Segments[1].MemSize, uint32(0x2000))

	mem := newMemory(t)
	test.ExpectSuccess(t, img.Map(mem))

	// the first page is shared by both segments
	prot, ok := mem.Protection(0x10000)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, prot, memory.ProtRWX)
	prot, ok = mem.Protection(0x12000)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, prot, memory.ProtRW)
	_, ok = mem.Protection(0x13000)
	test.ExpectFailure(t, ok)
	test.ExpectEquality(t, len(mem.Regions()), 2)

	w, err := mem.Fetch(0x10000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, w, uint32(0x3860002a))
	v, err := mem.Read32(0x10800)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0x01020304))

	// the bss part of the segment is zeroed
	v, err = mem.Read32(0x12000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0))

	// mapping the same image again overlaps
	err = img.Map(mem)
	test.ExpectSuccess(t, curated.Is(err, loader.MapFailed))
	test.ExpectSuccess(t, curated.Has(err, memory.Overlap))
}

func TestELF64(t *testing.T) {
	text := []byte{0x38, 0x60, 0x00, 0x01}
	b := buildELF(t, elf.ELFCLASS64, binary.BigEndian, elf.EM_PPC64, 0x400000, []segment{
		{addr: 0x400000, data: text, memsz: 0x1000, flags: elf.PF_R | elf.PF_X},
	})

	img, err := loader.LoadBytes(b)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Format, loader.ELF64)
	test.ExpectEquality(t, img.Entry, uint32(0x400000))

	mem := newMemory(t)
	test.ExpectSuccess(t, img.Map(mem))
	w, err := mem.Fetch(0x400000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, w, uint32(0x38600001))

	// not writable
	test.ExpectFailure(t, mem.Write32(0x400000, 0))
}

func TestVectorImage(t *testing.T) {
	code := []byte{0x40, 0x80, 0x00, 0x83, 0x00, 0x00, 0x00, 0x00}
	b := buildELF(t, elf.ELFCLASS32, binary.BigEndian, loader.MachineSPU, 0x80, []segment{
		{addr: 0x80, data: code, memsz: 0x100, flags: elf.PF_R | elf.PF_W | elf.PF_X},
	})

	img, err := loader.LoadBytes(b)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Target, loader.Vector)

	ls := localstore.NewLocalStore()
	ls.SetWord(0x100, 0xffffffff)
	test.ExpectSuccess(t, img.LoadLocalStore(ls))
	test.ExpectEquality(t, ls.Word(0x80), uint32(0x40800083))
	test.ExpectEquality(t, ls.Word(0x100), uint32(0))

	err = img.Map(newMemory(t))
	test.ExpectSuccess(t, curated.Is(err, loader.WrongMachine))

	// a scalar image cannot be placed in a local store
	err = loader.NewRaw(code, 0, 0, loader.Scalar).LoadLocalStore(ls)
	test.ExpectSuccess(t, curated.Is(err, loader.WrongMachine))

	// segments outside the local store
	big := buildELF(t, elf.ELFCLASS32, binary.BigEndian, loader.MachineSPU, 0, []segment{
		{addr: 0x3ff00, data: code, memsz: 0x200, flags: elf.PF_R},
	})
	img, err = loader.LoadBytes(big)
	test.DemandSuccess(t, err)
	err = img.LoadLocalStore(ls)
	test.ExpectSuccess(t, curated.Is(err, loader.BadSegment))
}

func TestRejected(t *testing.T) {
	text := []byte{0, 0, 0, 0}
	segs := []segment{{addr: 0x10000, data: text, memsz: 4, flags: elf.PF_R | elf.PF_X}}

	_, err := loader.LoadBytes(buildELF(t, elf.ELFCLASS32, binary.LittleEndian, elf.EM_PPC, 0x10000, segs))
	test.ExpectSuccess(t, curated.Is(err, loader.NotSupported))

	_, err = loader.LoadBytes(buildELF(t, elf.ELFCLASS64, binary.BigEndian, elf.EM_X86_64, 0x10000, segs))
	test.ExpectSuccess(t, curated.Is(err, loader.WrongMachine))

	_, err = loader.LoadBytes(buildELF(t, elf.ELFCLASS32, binary.BigEndian, elf.EM_PPC, 0x10000, nil))
	test.ExpectSuccess(t, curated.Is(err, loader.NotSupported))

	_, err = loader.LoadBytes([]byte("not an elf file at all"))
	test.ExpectSuccess(t, curated.Is(err, loader.NotSupported))

	_, err = loader.LoadFile("no such file")
	test.ExpectSuccess(t, curated.Is(err, loader.NotSupported))
}

func TestRaw(t *testing.T) {
	data := []byte{0x38, 0x60, 0x00, 0x07}
	img := loader.NewRaw(data, 0x20000, 0x20000, loader.Scalar)
	test.ExpectEquality(t, img.Format, loader.Raw)

	mem := newMemory(t)
	test.ExpectSuccess(t, img.Map(mem))
	prot, ok := mem.Protection(0x20000)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, prot, memory.ProtRWX)
	w, err := mem.Fetch(0x20000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, w, uint32(0x38600007))
}
