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

package memory

import (
	"encoding/binary"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/jetsetilly/gophercell/curated"
)

// check that every page touched by the access is mapped and has the required
// protection.
func (mem *Memory) check(address uint32, n int, prot Protection) error {
	if n == 0 {
		return nil
	}
	end := uint64(address) + uint64(n) - 1
	if end >= mem.size {
		if uint64(address) >= mem.size {
			return curated.Errorf(UnmappedAccess, address)
		}
		return curated.Errorf(UnmappedAccess, uint32(mem.size))
	}

	for p := uint64(address) >> PageShift; p <= end>>PageShift; p++ {
		f := mem.flags[p].Load()
		if f&pageMapped == 0 {
			a := uint32(p << PageShift)
			if a < address {
				a = address
			}
			return curated.Errorf(UnmappedAccess, a)
		}
		if Protection(f)&prot != prot {
			a := uint32(p << PageShift)
			if a < address {
				a = address
			}
			return curated.Errorf(ProtectionFault, prot, a)
		}
	}
	return nil
}

// written is called after every write to advance the generation of any code
// page in the range.
func (mem *Memory) written(address uint32, n int) {
	end := (uint64(address) + uint64(n) - 1) >> PageShift
	for p := uint64(address) >> PageShift; p <= end; p++ {
		if mem.flags[p].Load()&pageCode == pageCode {
			mem.gens[p].Add(1)
		}
	}
}

// Read copies guest memory into p. Requires read permission.
func (mem *Memory) Read(address uint32, p []byte) error {
	if err := mem.check(address, len(p), ProtRead); err != nil {
		return err
	}
	copy(p, mem.data[address:])
	return nil
}

// Write copies p into guest memory. Requires write permission.
func (mem *Memory) Write(address uint32, p []byte) error {
	if err := mem.check(address, len(p), ProtWrite); err != nil {
		return err
	}
	mem.store(address, p, mem.strict)
	return nil
}

// WriteDMA is the same as Write except that the write always takes part in
// reservation tracking, regardless of the strictness of the memory.
func (mem *Memory) WriteDMA(address uint32, p []byte) error {
	if err := mem.check(address, len(p), ProtWrite); err != nil {
		return err
	}
	mem.store(address, p, true)
	return nil
}

// store data without checking permissions. tracked writes are split at
// reservation line boundaries.
func (mem *Memory) store(address uint32, p []byte, tracked bool) {
	if len(p) == 0 {
		return
	}

	if !tracked {
		copy(mem.data[address:], p)
		mem.written(address, len(p))
		return
	}

	a := address
	rem := p
	for len(rem) > 0 {
		n := LineSize - int(a%LineSize)
		if n > len(rem) {
			n = len(rem)
		}
		mem.res.write(a, func() {
			copy(mem.data[a:], rem[:n])
		})
		a += uint32(n)
		rem = rem[n:]
	}
	mem.written(address, len(p))
}

// Peek reads guest memory ignoring protection. The memory must be mapped.
// Used by the debugger and the loader.
func (mem *Memory) Peek(address uint32, p []byte) error {
	if err := mem.check(address, len(p), ProtNone); err != nil {
		return err
	}
	copy(p, mem.data[address:])
	return nil
}

// Poke writes guest memory ignoring protection. The memory must be mapped.
// Used by the debugger and the loader.
func (mem *Memory) Poke(address uint32, p []byte) error {
	if err := mem.check(address, len(p), ProtNone); err != nil {
		return err
	}
	mem.store(address, p, true)
	return nil
}

// Fetch an instruction word. Requires execute permission and word alignment.
func (mem *Memory) Fetch(address uint32) (uint32, error) {
	if address&3 != 0 {
		return 0, curated.Errorf(AlignmentFault, 4, address)
	}
	if err := mem.check(address, 4, ProtExec); err != nil {
		return 0, err
	}
	return mem.load32(address), nil
}

// Read8 reads a single byte.
func (mem *Memory) Read8(address uint32) (uint8, error) {
	if err := mem.check(address, 1, ProtRead); err != nil {
		return 0, err
	}
	return mem.data[address], nil
}

// Read16 reads a big-endian halfword.
func (mem *Memory) Read16(address uint32) (uint16, error) {
	if err := mem.check(address, 2, ProtRead); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(mem.data[address:]), nil
}

// Read32 reads a big-endian word. Aligned reads are atomic.
func (mem *Memory) Read32(address uint32) (uint32, error) {
	if err := mem.check(address, 4, ProtRead); err != nil {
		return 0, err
	}
	if address&3 != 0 {
		return binary.BigEndian.Uint32(mem.data[address:]), nil
	}
	return mem.load32(address), nil
}

// Read64 reads a big-endian doubleword. Aligned reads are atomic.
func (mem *Memory) Read64(address uint32) (uint64, error) {
	if err := mem.check(address, 8, ProtRead); err != nil {
		return 0, err
	}
	if address&7 != 0 {
		return binary.BigEndian.Uint64(mem.data[address:]), nil
	}
	v := atomic.LoadUint64((*uint64)(unsafe.Pointer(&mem.data[address])))
	if hostLittleEndian {
		v = bits.ReverseBytes64(v)
	}
	return v, nil
}

func (mem *Memory) load32(address uint32) uint32 {
	v := atomic.LoadUint32((*uint32)(unsafe.Pointer(&mem.data[address])))
	if hostLittleEndian {
		v = bits.ReverseBytes32(v)
	}
	return v
}

// Write8 writes a single byte.
func (mem *Memory) Write8(address uint32, v uint8) error {
	return mem.Write(address, []byte{v})
}

// Write16 writes a big-endian halfword.
func (mem *Memory) Write16(address uint32, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return mem.Write(address, b[:])
}

// Write32 writes a big-endian word. Aligned writes are atomic.
func (mem *Memory) Write32(address uint32, v uint32) error {
	if address&3 != 0 {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		return mem.Write(address, b[:])
	}
	if err := mem.check(address, 4, ProtWrite); err != nil {
		return err
	}
	if hostLittleEndian {
		v = bits.ReverseBytes32(v)
	}
	ptr := (*uint32)(unsafe.Pointer(&mem.data[address]))
	if mem.strict {
		mem.res.write(address, func() {
			atomic.StoreUint32(ptr, v)
		})
	} else {
		atomic.StoreUint32(ptr, v)
	}
	mem.written(address, 4)
	return nil
}

// Write64 writes a big-endian doubleword. Aligned writes are atomic.
func (mem *Memory) Write64(address uint32, v uint64) error {
	if address&7 != 0 {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		return mem.Write(address, b[:])
	}
	if err := mem.check(address, 8, ProtWrite); err != nil {
		return err
	}
	if hostLittleEndian {
		v = bits.ReverseBytes64(v)
	}
	ptr := (*uint64)(unsafe.Pointer(&mem.data[address]))
	if mem.strict {
		mem.res.write(address, func() {
			atomic.StoreUint64(ptr, v)
		})
	} else {
		atomic.StoreUint64(ptr, v)
	}
	mem.written(address, 8)
	return nil
}
