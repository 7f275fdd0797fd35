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

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Stats are the counters kept by a Cache.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Compiles      uint64
	Fallbacks     uint64
	Invalidations uint64
	Evictions     uint64
	Units         int
}

func (s Stats) String() string {
	return fmt.Sprintf("units=%d hits=%d misses=%d compiles=%d fallbacks=%d invalidations=%d evictions=%d",
		s.Units, s.Hits, s.Misses, s.Compiles, s.Fallbacks, s.Invalidations, s.Evictions)
}

// Add the counters of another Stats value.
func (s Stats) Add(o Stats) Stats {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Compiles += o.Compiles
	s.Fallbacks += o.Fallbacks
	s.Invalidations += o.Invalidations
	s.Evictions += o.Evictions
	s.Units += o.Units
	return s
}

type entry[U Unit] struct {
	unit    U
	lastUse atomic.Uint64
}

// Cache of translated units keyed by entry address. Lookups are lock free.
// Insertion, invalidation and eviction are serialised.
type Cache[U Unit] struct {
	src Source

	entries sync.Map

	// write path
	crit     sync.Mutex
	count    int
	capacity atomic.Int64
	settings Settings

	clock atomic.Uint64

	hits          atomic.Uint64
	misses        atomic.Uint64
	compiles      atomic.Uint64
	fallbacks     atomic.Uint64
	invalidations atomic.Uint64
	evictions     atomic.Uint64
}

// NewCache is the preferred method of initialisation for the Cache type.
func NewCache[U Unit](src Source, capacity int, settings Settings) *Cache[U] {
	c := &Cache[U]{
		src:      src,
		settings: settings,
	}
	c.SetCapacity(capacity)
	return c
}

// SetCapacity changes the maximum number of units held. Safe to call at
// any time. Excess units are evicted on the next insertion.
func (c *Cache[U]) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	c.capacity.Store(int64(capacity))
}

// Settings returns the settings the cached units were translated with.
func (c *Cache[U]) Settings() Settings {
	c.crit.Lock()
	defer c.crit.Unlock()
	return c.settings
}

// Reconfigure changes the settings of the cache. If the settings differ
// from the current settings the cache is flushed. Returns true if the cache
// was flushed.
func (c *Cache[U]) Reconfigure(settings Settings) bool {
	c.crit.Lock()
	defer c.crit.Unlock()
	if c.settings == settings {
		return false
	}
	c.settings = settings
	c.flush()
	return true
}

// Lookup the unit with the entry address. A unit whose coverage has changed
// generation is evicted and not returned.
func (c *Cache[U]) Lookup(address uint32) (U, bool) {
	v, ok := c.entries.Load(address)
	if !ok {
		c.misses.Add(1)
		var zero U
		return zero, false
	}

	e := v.(*entry[U])
	if !e.unit.Coverage().Valid(c.src) {
		c.remove(address, e)
		c.invalidations.Add(1)
		c.misses.Add(1)
		var zero U
		return zero, false
	}

	e.lastUse.Store(c.clock.Add(1))
	c.hits.Add(1)
	return e.unit, true
}

// Insert a newly translated unit. Any existing unit with the same entry
// address is replaced.
func (c *Cache[U]) Insert(u U) {
	c.compiles.Add(1)

	e := &entry[U]{unit: u}
	e.lastUse.Store(c.clock.Add(1))

	c.crit.Lock()
	defer c.crit.Unlock()

	if c.count >= int(c.capacity.Load()) {
		c.evict()
	}

	if _, loaded := c.entries.Swap(u.Entry(), e); !loaded {
		c.count++
	}
}

// evict the least recently used eighth of the cache. must be called with
// the critical section held.
func (c *Cache[U]) evict() {
	type candidate struct {
		address uint32
		lastUse uint64
	}

	all := make([]candidate, 0, c.count)
	c.entries.Range(func(k, v any) bool {
		all = append(all, candidate{address: k.(uint32), lastUse: v.(*entry[U]).lastUse.Load()})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		return all[i].lastUse < all[j].lastUse
	})

	n := len(all)/8 + 1
	if excess := len(all) - int(c.capacity.Load()) + 1; excess > n {
		n = excess
	}
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		if _, ok := c.entries.LoadAndDelete(a.address); ok {
			c.count--
			c.evictions.Add(1)
		}
	}
}

func (c *Cache[U]) remove(address uint32, e *entry[U]) {
	c.crit.Lock()
	defer c.crit.Unlock()
	if c.entries.CompareAndDelete(address, e) {
		c.count--
	}
}

// Invalidate removes the unit with the entry address. Invalidating an
// address that is not cached does nothing.
func (c *Cache[U]) Invalidate(address uint32) {
	c.crit.Lock()
	defer c.crit.Unlock()
	if _, ok := c.entries.LoadAndDelete(address); ok {
		c.count--
		c.invalidations.Add(1)
	}
}

// InvalidateContaining removes every unit whose coverage contains the
// address.
func (c *Cache[U]) InvalidateContaining(address uint32) {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.entries.Range(func(k, v any) bool {
		if v.(*entry[U]).unit.Coverage().Contains(address) {
			if _, ok := c.entries.LoadAndDelete(k); ok {
				c.count--
				c.invalidations.Add(1)
			}
		}
		return true
	})
}

// Flush removes every unit.
func (c *Cache[U]) Flush() {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.flush()
}

func (c *Cache[U]) flush() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
	c.count = 0
}

// RecordFallback is called when translation of a block failed and the
// block was executed by the interpreter.
func (c *Cache[U]) RecordFallback() {
	c.fallbacks.Add(1)
}

// Len returns the number of cached units.
func (c *Cache[U]) Len() int {
	c.crit.Lock()
	defer c.crit.Unlock()
	return c.count
}

// Stats returns a copy of the cache counters.
func (c *Cache[U]) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Compiles:      c.compiles.Load(),
		Fallbacks:     c.fallbacks.Load(),
		Invalidations: c.invalidations.Load(),
		Evictions:     c.evictions.Load(),
		Units:         c.Len(),
	}
}
