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

package translator

// Source of page generations. Implemented by guest memory and by the local
// store of a vector core.
type Source interface {
	PageShift() uint
	Generation(address uint32) uint64
	MarkCode(address uint32, size uint32)
}

type pageGeneration struct {
	page uint32
	gen  uint64
}

// Coverage is the set of guest address ranges a unit was translated from,
// together with the generation of every page in those ranges.
type Coverage struct {
	ranges [][2]uint32
	pages  []pageGeneration
}

// NewCoverage is the preferred method of initialisation for the Coverage
// type. The range is marked as code before generations are recorded. The
// end address is exclusive.
func NewCoverage(src Source, start uint32, end uint32) *Coverage {
	c := &Coverage{}
	c.Extend(src, start, end)
	return c
}

// Extend the coverage with another range. Used when a superblock follows a
// branch.
func (c *Coverage) Extend(src Source, start uint32, end uint32) {
	if end <= start {
		return
	}
	c.ranges = append(c.ranges, [2]uint32{start, end})

	src.MarkCode(start, end-start)

	shift := src.PageShift()
	for p := start >> shift; p <= (end-1)>>shift; p++ {
		if c.hasPage(p) {
			continue
		}
		c.pages = append(c.pages, pageGeneration{
			page: p,
			gen:  src.Generation(p << shift),
		})
	}
}

func (c *Coverage) hasPage(p uint32) bool {
	for _, g := range c.pages {
		if g.page == p {
			return true
		}
	}
	return false
}

// Valid returns true if no page in the coverage has changed generation.
func (c *Coverage) Valid(src Source) bool {
	shift := src.PageShift()
	for _, g := range c.pages {
		if src.Generation(g.page<<shift) != g.gen {
			return false
		}
	}
	return true
}

// Contains returns true if the address is in any covered range.
func (c *Coverage) Contains(address uint32) bool {
	for _, r := range c.ranges {
		if address >= r[0] && address < r[1] {
			return true
		}
	}
	return false
}

// Start returns the first address of the first range.
func (c *Coverage) Start() uint32 {
	if len(c.ranges) == 0 {
		return 0
	}
	return c.ranges[0][0]
}

// Pages returns the number of distinct pages in the coverage.
func (c *Coverage) Pages() int {
	return len(c.pages)
}
