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
	"sort"

	"github.com/jetsetilly/gophercell/curated"
)

// Page is a single non-zero page of guest memory.
type Page struct {
	Address uint32
	Data    []byte
}

// State is a serialisable copy of guest memory. Pages that are entirely zero
// are not included.
type State struct {
	Size    uint64
	Regions []Region
	Pages   []Page
}

func zeroPage(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}

// Snapshot creates a copy of guest memory. No other goroutine should be
// writing to memory while the snapshot is taken.
func (mem *Memory) Snapshot() *State {
	mem.crit.Lock()
	defer mem.crit.Unlock()

	s := &State{
		Size:    mem.size,
		Regions: make([]Region, len(mem.regions)),
	}
	copy(s.Regions, mem.regions)

	for _, r := range mem.regions {
		for a := uint64(r.Base); a < r.end(); a += PageSize {
			d := mem.data[a : a+PageSize]
			if zeroPage(d) {
				continue
			}
			p := Page{Address: uint32(a), Data: make([]byte, PageSize)}
			copy(p.Data, d)
			s.Pages = append(s.Pages, p)
		}
	}

	return s
}

// Compatible checks that the state can be plumbed into memory. Memory is not
// changed.
func (mem *Memory) Compatible(s *State) error {
	if s == nil {
		return curated.Errorf(BadState, "no state")
	}
	if s.Size != mem.size {
		return curated.Errorf(BadState, "memory size differs")
	}

	regions := make([]Region, len(s.Regions))
	copy(regions, s.Regions)
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Base < regions[j].Base
	})
	for i, r := range regions {
		if !mem.validRegion(r.Base, r.Size) || r.Prot&^ProtRWX != 0 {
			return curated.Errorf(BadState, curated.Errorf(BadRegion, r.Base, r.Size))
		}
		if i > 0 && regions[i-1].end() > uint64(r.Base) {
			return curated.Errorf(BadState, curated.Errorf(Overlap, r.Base, r.Size))
		}
	}

	for _, p := range s.Pages {
		if len(p.Data) != PageSize || p.Address&pageMask != 0 || uint64(p.Address)+PageSize > mem.size {
			return curated.Errorf(BadState, "malformed page")
		}
		i := sort.Search(len(regions), func(i int) bool {
			return regions[i].end() > uint64(p.Address)
		})
		if i == len(regions) || p.Address < regions[i].Base {
			return curated.Errorf(BadState, "page outside of allocation")
		}
	}

	return nil
}

// Plumb replaces the contents of guest memory with the state. All
// translated code is invalidated. No other goroutine should be accessing
// memory while the state is plumbed in. Memory is not changed if the state is
// not compatible.
func (mem *Memory) Plumb(s *State) error {
	if err := mem.Compatible(s); err != nil {
		return err
	}

	mem.crit.Lock()
	defer mem.crit.Unlock()

	for _, r := range mem.regions {
		mem.unmapPages(r)
	}
	mem.regions = mem.regions[:0]

	for _, r := range s.Regions {
		if err := mem.mapRegion(r); err != nil {
			return curated.Errorf(BadState, err)
		}
	}

	for _, p := range s.Pages {
		mem.store(p.Address, p.Data, true)
	}

	return nil
}
