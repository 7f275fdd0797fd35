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
	"sort"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
)

// Memory is the view of guest memory required to place an image.
type Memory interface {
	Map(base uint32, size uint32, prot memory.Protection) error
	Poke(address uint32, p []byte) error
}

// Map places the image in guest memory. The pages covered by the segments
// must not already be mapped.
func (img *Image) Map(mem Memory) error {
	if img.Target != Scalar {
		return curated.Errorf(WrongMachine, img.Target)
	}

	// protection of every page touched by a segment
	pages := make(map[uint32]memory.Protection)
	for _, s := range img.Segments {
		first := s.Address >> memory.PageShift
		last := uint32((uint64(s.Address) + uint64(s.MemSize) - 1) >> memory.PageShift)
		for p := first; p <= last; p++ {
			pages[p] |= s.Prot
		}
	}

	keys := make([]uint32, 0, len(pages))
	for p := range pages {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	// map runs of contiguous pages with the same protection as one region
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j] == keys[j-1]+1 && pages[keys[j]] == pages[keys[i]] {
			j++
		}
		base := keys[i] << memory.PageShift
		size := uint32(j-i) << memory.PageShift
		if err := mem.Map(base, size, pages[keys[i]]); err != nil {
			return curated.Errorf(MapFailed, err)
		}
		i = j
	}

	for _, s := range img.Segments {
		if len(s.Data) == 0 {
			continue
		}
		if err := mem.Poke(s.Address, s.Data); err != nil {
			return curated.Errorf(MapFailed, err)
		}
	}

	return nil
}

// LocalStore is the view of a local store required to place an image.
type LocalStore interface {
	Write(address uint32, p []byte) error
}

// LoadLocalStore places a vector image in a local store. Memory beyond the
// data of each segment is zeroed.
func (img *Image) LoadLocalStore(ls LocalStore) error {
	if img.Target != Vector {
		return curated.Errorf(WrongMachine, img.Target)
	}
	for _, s := range img.Segments {
		b := make([]byte, s.MemSize)
		copy(b, s.Data)
		if err := ls.Write(s.Address, b); err != nil {
			return curated.Errorf(BadSegment, s.Address, err)
		}
	}
	return nil
}
