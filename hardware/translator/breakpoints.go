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
	"sort"
	"sync"
	"sync/atomic"
)

// Condition is evaluated when execution reaches a breakpoint. The argument
// is the core context that reached the breakpoint. A nil Condition always
// breaks.
type Condition func(ctx any) bool

// Breakpoints is a set of instruction addresses at which execution must
// stop. Translation consults the set so that a breakpoint is only ever the
// first instruction of a unit.
type Breakpoints struct {
	crit  sync.RWMutex
	addrs map[uint32]Condition
	count atomic.Int32
}

// NewBreakpoints is the preferred method of initialisation for the
// Breakpoints type.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{
		addrs: make(map[uint32]Condition),
	}
}

// Add a breakpoint. Replaces the condition of an existing breakpoint.
func (b *Breakpoints) Add(address uint32, cond Condition) {
	b.crit.Lock()
	defer b.crit.Unlock()
	b.addrs[address] = cond
	b.count.Store(int32(len(b.addrs)))
}

// Remove a breakpoint. Returns false if there was no breakpoint at the
// address.
func (b *Breakpoints) Remove(address uint32) bool {
	b.crit.Lock()
	defer b.crit.Unlock()
	_, ok := b.addrs[address]
	delete(b.addrs, address)
	b.count.Store(int32(len(b.addrs)))
	return ok
}

// Clear all breakpoints.
func (b *Breakpoints) Clear() {
	b.crit.Lock()
	defer b.crit.Unlock()
	clear(b.addrs)
	b.count.Store(0)
}

// Has returns true if there is a breakpoint at the address.
func (b *Breakpoints) Has(address uint32) bool {
	if b == nil || b.count.Load() == 0 {
		return false
	}
	b.crit.RLock()
	defer b.crit.RUnlock()
	_, ok := b.addrs[address]
	return ok
}

// Hit returns true if there is a breakpoint at the address and its
// condition is met.
func (b *Breakpoints) Hit(address uint32, ctx any) bool {
	if b == nil || b.count.Load() == 0 {
		return false
	}
	b.crit.RLock()
	cond, ok := b.addrs[address]
	b.crit.RUnlock()
	if !ok {
		return false
	}
	return cond == nil || cond(ctx)
}

// List returns the breakpoint addresses in order.
func (b *Breakpoints) List() []uint32 {
	b.crit.RLock()
	defer b.crit.RUnlock()
	l := make([]uint32, 0, len(b.addrs))
	for a := range b.addrs {
		l = append(l, a)
	}
	sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
	return l
}
