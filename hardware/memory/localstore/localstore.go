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

package localstore

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
)

// Size of the local store and the address mask applied to all core
// generated addresses.
const (
	Size = 0x40000
	LSLR = Size - 1
)

// Page geometry for code tracking.
const (
	PageShift = 10
	pageCount = Size >> PageShift
)

// Sentinal error patterns.
const (
	OutOfRange = "localstore: access out of range (%#05x+%d)"
	BadState   = "localstore: cannot restore state: %v"
)

// LocalStore is the private memory of a single vector core.
type LocalStore struct {
	words []atomic.Uint32
	code  [pageCount]atomic.Bool
	gens  [pageCount]atomic.Uint64
}

// NewLocalStore is the preferred method of initialisation for the
// LocalStore type.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		words: make([]atomic.Uint32, Size/4),
	}
}

func (ls *LocalStore) checkRange(address uint32, n int) error {
	if uint64(address)+uint64(n) > Size {
		return curated.Errorf(OutOfRange, address, n)
	}
	return nil
}

// Word returns the big-endian word at the address. The address is masked
// by LSLR and aligned down to the word.
func (ls *LocalStore) Word(address uint32) uint32 {
	return ls.words[(address&LSLR)>>2].Load()
}

// SetWord stores a big-endian word at the address. The address is masked by
// LSLR and aligned down to the word.
func (ls *LocalStore) SetWord(address uint32, v uint32) {
	address &= LSLR &^ 3
	ls.words[address>>2].Store(v)
	ls.written(address, 4)
}

// Fetch an instruction word. The address is masked by LSLR.
func (ls *LocalStore) Fetch(address uint32) uint32 {
	return ls.Word(address)
}

// ReadQuad returns the quadword containing the address. The address is
// masked by LSLR and aligned down to the quadword.
func (ls *LocalStore) ReadQuad(address uint32) [4]uint32 {
	i := ((address & LSLR) &^ 0xf) >> 2
	return [4]uint32{
		ls.words[i].Load(),
		ls.words[i+1].Load(),
		ls.words[i+2].Load(),
		ls.words[i+3].Load(),
	}
}

// WriteQuad stores the quadword containing the address. The address is
// masked by LSLR and aligned down to the quadword.
func (ls *LocalStore) WriteQuad(address uint32, q [4]uint32) {
	address = (address & LSLR) &^ 0xf
	i := address >> 2
	ls.words[i].Store(q[0])
	ls.words[i+1].Store(q[1])
	ls.words[i+2].Store(q[2])
	ls.words[i+3].Store(q[3])
	ls.written(address, 16)
}

// Read copies local store data into p. Used by the DMA engine.
func (ls *LocalStore) Read(address uint32, p []byte) error {
	if err := ls.checkRange(address, len(p)); err != nil {
		return err
	}

	for n := 0; n < len(p); {
		a := address + uint32(n)
		w := ls.words[a>>2].Load()
		if a&3 == 0 && len(p)-n >= 4 {
			binary.BigEndian.PutUint32(p[n:], w)
			n += 4
			continue
		}
		p[n] = byte(w >> (24 - 8*(a&3)))
		n++
	}
	return nil
}

// Write copies p into the local store. Used by the DMA engine.
func (ls *LocalStore) Write(address uint32, p []byte) error {
	if err := ls.checkRange(address, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	for n := 0; n < len(p); {
		a := address + uint32(n)
		if a&3 == 0 && len(p)-n >= 4 {
			ls.words[a>>2].Store(binary.BigEndian.Uint32(p[n:]))
			n += 4
			continue
		}

		shift := 24 - 8*(a&3)
		mask := uint32(0xff) << shift
		v := uint32(p[n]) << shift
		for {
			o := ls.words[a>>2].Load()
			if ls.words[a>>2].CompareAndSwap(o, o&^mask|v) {
				break
			}
		}
		n++
	}

	ls.written(address, len(p))
	return nil
}

func (ls *LocalStore) written(address uint32, n int) {
	end := (address + uint32(n) - 1) >> PageShift
	for p := address >> PageShift; p <= end; p++ {
		if ls.code[p].Load() {
			ls.gens[p].Add(1)
		}
	}
}

// PageShift returns the page size used for code tracking as a shift value.
func (ls *LocalStore) PageShift() uint {
	return PageShift
}

// Generation of the page containing the address.
func (ls *LocalStore) Generation(address uint32) uint64 {
	return ls.gens[(address&LSLR)>>PageShift].Load()
}

// MarkCode flags the pages in the range as containing translated code.
func (ls *LocalStore) MarkCode(address uint32, size uint32) {
	if size == 0 {
		return
	}
	end := (uint64(address&LSLR) + uint64(size) - 1) >> PageShift
	if end >= pageCount {
		end = pageCount - 1
	}
	for p := uint64(address&LSLR) >> PageShift; p <= end; p++ {
		ls.code[p].Store(true)
	}
}

// Invalidate advances the generation of every page in the range.
func (ls *LocalStore) Invalidate(address uint32, size uint32) {
	if size == 0 {
		return
	}
	end := (uint64(address&LSLR) + uint64(size) - 1) >> PageShift
	if end >= pageCount {
		end = pageCount - 1
	}
	for p := uint64(address&LSLR) >> PageShift; p <= end; p++ {
		ls.gens[p].Add(1)
	}
}

// Snapshot returns a copy of the local store contents.
func (ls *LocalStore) Snapshot() []byte {
	b := make([]byte, Size)
	_ = ls.Read(0, b)
	return b
}

// Plumb replaces the local store contents. Every page generation is
// advanced.
func (ls *LocalStore) Plumb(b []byte) error {
	if len(b) != Size {
		return curated.Errorf(BadState, "wrong size")
	}
	for i := range ls.words {
		ls.words[i].Store(binary.BigEndian.Uint32(b[i*4:]))
	}
	for p := range ls.gens {
		ls.code[p].Store(false)
		ls.gens[p].Add(1)
	}
	return nil
}
