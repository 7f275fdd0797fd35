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
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/logger"
)

// Page geometry.
const (
	PageShift = 12
	PageSize  = 1 << PageShift
	pageMask  = PageSize - 1
)

// LineSize is the size of the reservation granule.
const LineSize = 128

// MaxSize is the largest supported guest address space.
const MaxSize = uint64(1) << 32

// Protection flags for a mapped page.
type Protection uint32

// List of protection flags.
const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExec

	ProtNone Protection = 0
	ProtRW              = ProtRead | ProtWrite
	ProtRX              = ProtRead | ProtExec
	ProtRWX             = ProtRead | ProtWrite | ProtExec
)

func (p Protection) String() string {
	s := strings.Builder{}
	for _, f := range []struct {
		flag Protection
		c    byte
	}{{ProtRead, 'r'}, {ProtWrite, 'w'}, {ProtExec, 'x'}} {
		if p&f.flag == f.flag {
			s.WriteByte(f.c)
		} else {
			s.WriteByte('-')
		}
	}
	return s.String()
}

// page flags in addition to the protection bits.
const (
	protMask   = uint32(ProtRWX)
	pageMapped = uint32(1 << 8)
	pageCode   = uint32(1 << 9)
)

// Strictness of reservation tracking.
type Strictness int

// List of reservation strictness values.
const (
	Strict Strictness = iota
	Relaxed
)

// ParseStrictness converts a preferences string to a Strictness value.
func ParseStrictness(s string) Strictness {
	if strings.ToUpper(s) == "RELAXED" {
		return Relaxed
	}
	return Strict
}

// Region is a single allocation in guest memory.
type Region struct {
	Base uint32
	Size uint32
	Prot Protection
}

func (r Region) String() string {
	return fmt.Sprintf("%#08x-%#08x %s", r.Base, uint64(r.Base)+uint64(r.Size)-1, r.Prot)
}

func (r Region) end() uint64 {
	return uint64(r.Base) + uint64(r.Size)
}

// Memory is the guest memory model. It is shared by every core in the
// machine.
type Memory struct {
	env logger.Permission

	size uint64
	data []byte

	// per page flags and generations
	flags []atomic.Uint32
	gens  []atomic.Uint64

	strict bool
	res    *reservations

	// allocations are sorted by base address. map/unmap/protect are rare and
	// serialised by the critical section
	crit    sync.Mutex
	regions []Region
}

// hostLittleEndian is true if the host is little endian. guest memory is
// always big endian.
var hostLittleEndian = binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 0x0001

// NewMemory is the preferred method of initialisation for the Memory type.
// The size must be a multiple of the page size and no larger than 4GiB.
func NewMemory(env logger.Permission, size uint64, strictness Strictness) (*Memory, error) {
	if size == 0 || size > MaxSize || size&pageMask != 0 {
		return nil, curated.Errorf(BadSize, size)
	}

	data, err := allocateBacking(size)
	if err != nil {
		return nil, curated.Errorf(BadSize, size)
	}

	pages := size >> PageShift
	mem := &Memory{
		env:    env,
		size:   size,
		data:   data,
		flags:  make([]atomic.Uint32, pages),
		gens:   make([]atomic.Uint64, pages),
		strict: strictness == Strict,
		res:    newReservations(),
	}

	logger.Logf(env, "memory", "guest memory %dMiB (%s reservations)", size>>20, map[bool]string{true: "strict", false: "relaxed"}[mem.strict])

	return mem, nil
}

// Release the host memory used by the guest memory. The Memory instance must
// not be used after this.
func (mem *Memory) Release() error {
	mem.crit.Lock()
	defer mem.crit.Unlock()
	if mem.data == nil {
		return nil
	}
	err := releaseBacking(mem.data)
	mem.data = nil
	return err
}

// Size returns the size of the guest address space.
func (mem *Memory) Size() uint64 {
	return mem.size
}

// Strictness returns the reservation strictness of the memory.
func (mem *Memory) Strictness() Strictness {
	if mem.strict {
		return Strict
	}
	return Relaxed
}

func (mem *Memory) String() string {
	mem.crit.Lock()
	defer mem.crit.Unlock()
	s := strings.Builder{}
	for _, r := range mem.regions {
		s.WriteString(r.String())
		s.WriteString("\n")
	}
	return s.String()
}

// validRegion checks that the range is page aligned and inside memory.
func (mem *Memory) validRegion(base uint32, size uint32) bool {
	if size == 0 || base&pageMask != 0 || size&pageMask != 0 {
		return false
	}
	return uint64(base)+uint64(size) <= mem.size
}

// Map a new region of guest memory. The region must be page aligned and must
// not overlap an existing allocation. Newly mapped memory is zeroed.
func (mem *Memory) Map(base uint32, size uint32, prot Protection) error {
	mem.crit.Lock()
	defer mem.crit.Unlock()
	return mem.mapRegion(Region{Base: base, Size: size, Prot: prot})
}

func (mem *Memory) mapRegion(r Region) error {
	if !mem.validRegion(r.Base, r.Size) {
		return curated.Errorf(BadRegion, r.Base, r.Size)
	}

	i := sort.Search(len(mem.regions), func(i int) bool {
		return mem.regions[i].end() > uint64(r.Base)
	})
	if i < len(mem.regions) && uint64(mem.regions[i].Base) < r.end() {
		return curated.Errorf(Overlap, r.Base, r.Size)
	}

	mem.regions = append(mem.regions, Region{})
	copy(mem.regions[i+1:], mem.regions[i:])
	mem.regions[i] = r

	for p := r.Base >> PageShift; uint64(p) < r.end()>>PageShift; p++ {
		mem.flags[p].Store(pageMapped | uint32(r.Prot))
	}

	return nil
}

// Unmap an allocation. The region must match an allocation exactly. The
// contents are discarded and any translated code in the region is
// invalidated.
func (mem *Memory) Unmap(base uint32, size uint32) error {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	i := sort.Search(len(mem.regions), func(i int) bool {
		return mem.regions[i].Base >= base
	})
	if i >= len(mem.regions) || mem.regions[i].Base != base || mem.regions[i].Size != size {
		return curated.Errorf(NotAllocated, base, size)
	}
	r := mem.regions[i]
	mem.regions = append(mem.regions[:i], mem.regions[i+1:]...)

	mem.unmapPages(r)

	return nil
}

func (mem *Memory) unmapPages(r Region) {
	for p := r.Base >> PageShift; uint64(p) < r.end()>>PageShift; p++ {
		mem.flags[p].Store(0)
		mem.gens[p].Add(1)
	}
	zeroBacking(mem.data[r.Base:r.end()])
}

// Protect changes the protection of a range of mapped pages. The range must
// lie entirely within allocations.
func (mem *Memory) Protect(base uint32, size uint32, prot Protection) error {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	if !mem.validRegion(base, size) {
		return curated.Errorf(BadRegion, base, size)
	}

	first := base >> PageShift
	last := uint32((uint64(base) + uint64(size)) >> PageShift)
	for p := first; p < last; p++ {
		if mem.flags[p].Load()&pageMapped == 0 {
			return curated.Errorf(NotAllocated, base, size)
		}
	}

	for p := first; p < last; p++ {
		f := mem.flags[p].Load()
		mem.flags[p].Store(f&^protMask | uint32(prot))

		// removing exec permission is the same as unloading the code
		if Protection(f)&ProtExec == ProtExec && prot&ProtExec == 0 {
			mem.gens[p].Add(1)
		}
	}

	return nil
}

// Allocate finds a free region of the requested size at or above the hint
// address and maps it. Returns the base address of the allocation.
func (mem *Memory) Allocate(hint uint32, size uint32, prot Protection) (uint32, error) {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	size = (size + pageMask) &^ pageMask
	if size == 0 {
		return 0, curated.Errorf(OutOfMemory, size)
	}

	candidate := uint64(hint+pageMask) &^ pageMask
	for _, r := range mem.regions {
		if r.end() <= candidate {
			continue
		}
		if candidate+uint64(size) <= uint64(r.Base) {
			break
		}
		candidate = r.end()
	}

	if candidate+uint64(size) > mem.size {
		return 0, curated.Errorf(OutOfMemory, size)
	}

	base := uint32(candidate)
	if err := mem.mapRegion(Region{Base: base, Size: size, Prot: prot}); err != nil {
		return 0, err
	}
	return base, nil
}

// Regions returns a copy of the current allocations.
func (mem *Memory) Regions() []Region {
	mem.crit.Lock()
	defer mem.crit.Unlock()
	r := make([]Region, len(mem.regions))
	copy(r, mem.regions)
	return r
}

// Protection returns the protection of the page containing the address and
// whether the page is mapped.
func (mem *Memory) Protection(address uint32) (Protection, bool) {
	if uint64(address) >= mem.size {
		return ProtNone, false
	}
	f := mem.flags[address>>PageShift].Load()
	return Protection(f & protMask), f&pageMapped == pageMapped
}

// PageShift returns the page size as a shift value. Part of the generation
// source interface used by the translator.
func (mem *Memory) PageShift() uint {
	return PageShift
}

// Generation returns the current generation of the page containing the
// address.
func (mem *Memory) Generation(address uint32) uint64 {
	if uint64(address) >= mem.size {
		return 0
	}
	return mem.gens[address>>PageShift].Load()
}

// MarkCode flags the pages in the range as containing translated code. Once
// flagged, writes to a page advance its generation.
func (mem *Memory) MarkCode(address uint32, size uint32) {
	if size == 0 {
		return
	}
	end := uint64(address) + uint64(size) - 1
	if end >= mem.size {
		end = mem.size - 1
	}
	for p := address >> PageShift; uint64(p) <= end>>PageShift; p++ {
		for {
			f := mem.flags[p].Load()
			if f&pageCode == pageCode || mem.flags[p].CompareAndSwap(f, f|pageCode) {
				break
			}
		}
	}
}

// Invalidate advances the generation of every page in the range. Used when
// translated code must be discarded without the memory being written, for
// example when a breakpoint is added.
func (mem *Memory) Invalidate(address uint32, size uint32) {
	if size == 0 {
		return
	}
	end := uint64(address) + uint64(size) - 1
	if end >= mem.size {
		end = mem.size - 1
	}
	for p := address >> PageShift; uint64(p) <= end>>PageShift; p++ {
		mem.gens[p].Add(1)
	}
}
