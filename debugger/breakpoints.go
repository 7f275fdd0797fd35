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

package debugger

import (
	"fmt"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/hardware/vector"
)

// breakpoint identifies a breakpoint. every scalar thread shares the scalar
// translator and so shares breakpoints. each vector core has its own.
type breakpoint struct {
	// zero for the scalar translator, otherwise the ID of the vector thread
	vector  int
	address uint32
}

// Breakpoint describes a breakpoint for display.
type Breakpoint struct {
	Target    string
	Address   uint32
	Condition string
}

func (b Breakpoint) String() string {
	if b.Condition == "" {
		return fmt.Sprintf("%s %#08x", b.Target, b.Address)
	}
	return fmt.Sprintf("%s %#08x if %s", b.Target, b.Address, b.Condition)
}

// target is the translator that a breakpoint applies to.
type target struct {
	key    int
	name   string
	breaks *translator.Breakpoints

	// invalidate cached units containing the address
	invalidate func(address uint32)

	// the instruction at the address. returns an error if the address is not
	// executable
	fetch func(address uint32) (uint32, error)

	supported func(inst uint32) bool
}

func (dbg *Debugger) scalarTarget(m *hardware.Machine) target {
	return target{
		name:       "scalar",
		breaks:     m.Scalar.Breakpoints(),
		invalidate: m.Scalar.Cache().InvalidateContaining,
		fetch:      m.Mem.Fetch,
		supported:  scalar.Supported,
	}
}

func (dbg *Debugger) vectorTarget(v *hardware.VectorUnit) target {
	tr := v.Core.Translator()
	return target{
		key:        v.Core.ID(),
		name:       v.Core.Name(),
		breaks:     tr.Breakpoints(),
		invalidate: tr.Cache().InvalidateContaining,
		fetch: func(address uint32) (uint32, error) {
			if address >= localstore.Size || address&3 != 0 {
				return 0, curated.Errorf(InvalidBreakpointMemory, address)
			}
			return v.LS.Fetch(address), nil
		},
		supported: vector.Supported,
	}
}

// target for the thread.
func (dbg *Debugger) target(id int) (target, error) {
	_, r, err := dbg.thread(id)
	if err != nil {
		return target{}, err
	}
	if r.Kind() == thread.Vector {
		v, err := dbg.m.Vector(id - hardware.VectorThreadBase)
		if err != nil {
			return target{}, curated.Errorf(NoSuchThread, id)
		}
		return dbg.vectorTarget(v), nil
	}
	return dbg.scalarTarget(dbg.m), nil
}

// SetBreakpoint adds a breakpoint for the thread. Breakpoints for scalar
// threads apply to every scalar thread. An empty condition means the
// breakpoint is unconditional. Replaces any existing breakpoint at the
// address.
func (dbg *Debugger) SetBreakpoint(id int, address uint32, cond string) error {
	t, err := dbg.target(id)
	if err != nil {
		return err
	}

	inst, err := t.fetch(address)
	if err != nil || !t.supported(inst) {
		return curated.Errorf(InvalidBreakpointMemory, address)
	}

	key := breakpoint{vector: t.key, address: address}

	var c *condition
	var fn translator.Condition
	if cond != "" {
		c, err = compileCondition(dbg.m.Env(), cond)
		if err != nil {
			return err
		}
		fn = c.evaluate
	}

	if old, ok := dbg.conditions[key]; ok {
		old.close()
		delete(dbg.conditions, key)
	}
	if c != nil {
		dbg.conditions[key] = c
	}

	// an explicit breakpoint at the entry address replaces the temporary one
	if dbg.entry != nil && *dbg.entry == key {
		dbg.entry = nil
	}

	t.breaks.Add(address, fn)
	t.invalidate(address)

	return nil
}

// ClearBreakpoint removes the breakpoint at the address.
func (dbg *Debugger) ClearBreakpoint(id int, address uint32) error {
	t, err := dbg.target(id)
	if err != nil {
		return err
	}
	if !t.breaks.Remove(address) {
		return curated.Errorf(NoSuchBreakpoint, address)
	}
	t.invalidate(address)

	key := breakpoint{vector: t.key, address: address}
	if c, ok := dbg.conditions[key]; ok {
		c.close()
		delete(dbg.conditions, key)
	}

	return nil
}

// ClearAllBreakpoints removes every breakpoint from every thread.
func (dbg *Debugger) ClearAllBreakpoints() error {
	m, err := dbg.machine()
	if err != nil {
		return err
	}

	targets := []target{dbg.scalarTarget(m)}
	for _, v := range m.Vectors {
		targets = append(targets, dbg.vectorTarget(v))
	}
	for _, t := range targets {
		for _, a := range t.breaks.List() {
			t.breaks.Remove(a)
			t.invalidate(a)
		}
	}

	for k, c := range dbg.conditions {
		c.close()
		delete(dbg.conditions, k)
	}
	dbg.entry = nil

	return nil
}

// Breakpoints lists every breakpoint in the machine.
func (dbg *Debugger) Breakpoints() ([]Breakpoint, error) {
	m, err := dbg.machine()
	if err != nil {
		return nil, err
	}

	targets := []target{dbg.scalarTarget(m)}
	for _, v := range m.Vectors {
		targets = append(targets, dbg.vectorTarget(v))
	}

	var l []Breakpoint
	for _, t := range targets {
		for _, a := range t.breaks.List() {
			key := breakpoint{vector: t.key, address: a}
			if dbg.entry != nil && *dbg.entry == key {
				continue
			}
			b := Breakpoint{Target: t.name, Address: a}
			if c, ok := dbg.conditions[key]; ok {
				b.Condition = c.String()
			}
			l = append(l, b)
		}
	}

	return l, nil
}

// setEntryBreakpoint stops the main thread before it executes its first
// instruction. the breakpoint is removed when it is reached.
func (dbg *Debugger) setEntryBreakpoint(address uint32) {
	t := dbg.scalarTarget(dbg.m)
	if t.breaks.Has(address) {
		return
	}
	t.breaks.Add(address, nil)
	t.invalidate(address)
	dbg.entry = &breakpoint{address: address}
}

// entryReached removes the temporary entry breakpoint if the thread has
// stopped on it. returns true if it has.
func (dbg *Debugger) entryReached(info thread.Info) bool {
	if dbg.entry == nil || info.Kind != thread.Scalar || info.PC != dbg.entry.address {
		return false
	}
	t := dbg.scalarTarget(dbg.m)
	t.breaks.Remove(dbg.entry.address)
	t.invalidate(dbg.entry.address)
	dbg.entry = nil
	return true
}
