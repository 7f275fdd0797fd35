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

package translator_test

import (
	"sync"
	"testing"

	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/test"
)

// source with 256 byte pages.
type source struct {
	crit sync.Mutex
	gens map[uint32]uint64
	code map[uint32]bool
}

func newSource() *source {
	return &source{
		gens: make(map[uint32]uint64),
		code: make(map[uint32]bool),
	}
}

func (s *source) PageShift() uint {
	return 8
}

func (s *source) Generation(address uint32) uint64 {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.gens[address>>8]
}

func (s *source) MarkCode(address uint32, size uint32) {
	s.crit.Lock()
	defer s.crit.Unlock()
	for p := address >> 8; p <= (address+size-1)>>8; p++ {
		s.code[p] = true
	}
}

func (s *source) write(address uint32) {
	s.crit.Lock()
	defer s.crit.Unlock()
	if s.code[address>>8] {
		s.gens[address>>8]++
	}
}

type unit struct {
	entry    uint32
	coverage *translator.Coverage
}

func (u *unit) Entry() uint32                  { return u.entry }
func (u *unit) Tier() translator.Tier          { return translator.Native }
func (u *unit) Coverage() *translator.Coverage { return u.coverage }
func (u *unit) Len() int                       { return 1 }

func newUnit(src translator.Source, start uint32, end uint32) *unit {
	return &unit{entry: start, coverage: translator.NewCoverage(src, start, end)}
}

func TestLookup(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 16, translator.Settings{})

	_, ok := c.Lookup(0x100)
	test.ExpectFailure(t, ok)

	u := newUnit(src, 0x100, 0x120)
	c.Insert(u)
	v, ok := c.Lookup(0x100)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, v, u)

	s := c.Stats()
	test.ExpectEquality(t, s.Hits, uint64(1))
	test.ExpectEquality(t, s.Misses, uint64(1))
	test.ExpectEquality(t, s.Compiles, uint64(1))
	test.ExpectEquality(t, s.Units, 1)
}

func TestStaleUnit(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 16, translator.Settings{})

	c.Insert(newUnit(src, 0x100, 0x120))

	// write to a page that is not covered
	src.write(0x400)
	_, ok := c.Lookup(0x100)
	test.ExpectSuccess(t, ok)

	// write to the covered page
	src.write(0x1f0)
	_, ok = c.Lookup(0x100)
	test.ExpectFailure(t, ok)
	test.ExpectEquality(t, c.Len(), 0)
	test.ExpectEquality(t, c.Stats().Invalidations, uint64(1))
}

func TestSuperblockCoverage(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 16, translator.Settings{})

	u := newUnit(src, 0x100, 0x120)
	u.coverage.Extend(src, 0x800, 0x810)
	c.Insert(u)

	test.ExpectEquality(t, u.coverage.Pages(), 2)
	test.ExpectSuccess(t, u.coverage.Contains(0x804))
	test.ExpectFailure(t, u.coverage.Contains(0x200))

	// the whole superblock is invalidated by a write to any of its pages
	src.write(0x808)
	_, ok := c.Lookup(0x100)
	test.ExpectFailure(t, ok)
}

func TestInvalidateAbsent(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 16, translator.Settings{})

	c.Invalidate(0x100)
	test.ExpectEquality(t, c.Stats(), translator.Stats{})

	c.Insert(newUnit(src, 0x100, 0x120))
	c.Invalidate(0x200)
	test.ExpectEquality(t, c.Len(), 1)

	c.Invalidate(0x100)
	c.Invalidate(0x100)
	test.ExpectEquality(t, c.Len(), 0)
	test.ExpectEquality(t, c.Stats().Invalidations, uint64(1))
}

func TestInvalidateContaining(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 16, translator.Settings{})

	c.Insert(newUnit(src, 0x100, 0x120))
	c.Insert(newUnit(src, 0x110, 0x130))
	c.Insert(newUnit(src, 0x200, 0x220))

	c.InvalidateContaining(0x114)
	test.ExpectEquality(t, c.Len(), 1)
	_, ok := c.Lookup(0x200)
	test.ExpectSuccess(t, ok)
}

func TestEviction(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 8, translator.Settings{})

	for i := uint32(0); i < 8; i++ {
		c.Insert(newUnit(src, i*0x10, i*0x10+4))
	}

	// touch every unit except the first
	for i := uint32(1); i < 8; i++ {
		_, ok := c.Lookup(i * 0x10)
		test.ExpectSuccess(t, ok)
	}

	c.Insert(newUnit(src, 0x1000, 0x1004))
	test.ExpectEquality(t, c.Len() <= 8, true)
	_, ok := c.Lookup(0)
	test.ExpectFailure(t, ok)
	test.ExpectInequality(t, c.Stats().Evictions, uint64(0))
}

func TestReconfigure(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 8, translator.Settings{})
	c.Insert(newUnit(src, 0, 4))

	test.ExpectFailure(t, c.Reconfigure(translator.Settings{}))
	test.ExpectEquality(t, c.Len(), 1)

	test.ExpectSuccess(t, c.Reconfigure(translator.Settings{Accuracy: translator.Fast}))
	test.ExpectEquality(t, c.Len(), 0)
}

func TestConcurrentLookup(t *testing.T) {
	src := newSource()
	c := translator.NewCache[*unit](src, 64, translator.Settings{})
	for i := uint32(0); i < 32; i++ {
		c.Insert(newUnit(src, i*0x100, i*0x100+4))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				a := uint32((i+w)%32) * 0x100
				if _, ok := c.Lookup(a); !ok {
					c.Insert(newUnit(src, a, a+4))
				}
				if i%100 == 0 {
					c.Invalidate(a)
				}
			}
		}(w)
	}
	wg.Wait()

	test.ExpectEquality(t, c.Len() <= 64, true)
}

func TestParse(t *testing.T) {
	test.ExpectEquality(t, translator.ParseTier("threaded"), translator.Threaded)
	test.ExpectEquality(t, translator.ParseTier("nonsense"), translator.Native)
	test.ExpectEquality(t, translator.ParseAccuracy("FAST"), translator.Fast)
	test.ExpectEquality(t, translator.ParseSuperblock("GIGA"), translator.SuperblockGiga)
}

func TestBreakpoints(t *testing.T) {
	b := translator.NewBreakpoints()
	test.ExpectFailure(t, b.Has(0x100))

	b.Add(0x100, nil)
	b.Add(0x200, func(ctx any) bool {
		return ctx.(int) == 10
	})
	test.ExpectSuccess(t, b.Hit(0x100, 0))
	test.ExpectFailure(t, b.Hit(0x200, 0))
	test.ExpectSuccess(t, b.Hit(0x200, 10))
	test.ExpectEquality(t, len(b.List()), 2)

	test.ExpectSuccess(t, b.Remove(0x100))
	test.ExpectFailure(t, b.Remove(0x100))
	b.Clear()
	test.ExpectFailure(t, b.Has(0x200))
}
