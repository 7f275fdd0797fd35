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

// Package preferences is the configuration surface of the emulated machine.
// The values are read when a machine starts. Values documented as hot-swappable
// may be changed while the machine is running; changing any other value while
// a machine is running is refused.
package preferences

import (
	"sync/atomic"
	"time"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/paths"
	"github.com/jetsetilly/gophercell/prefs"
)

// NotHotSwappable is returned when a start-only preference is changed while
// the machine is running.
const NotHotSwappable = "preferences: %s cannot be changed while the machine is running"

// the name of the preferences file in the resource directory.
const prefsFile = "preferences"

// value is satisfied by all the prefs types.
type value interface {
	String() string
	Set(prefs.Value) error
	Get() prefs.Value
	Reset() error
}

// Preferences defines and collates all the preference values used by the
// machine.
type Preferences struct {
	dsk *prefs.Disk

	// decoder tier for each core type: INTERPRETER, THREADED or NATIVE.
	// hot-swappable
	ScalarTier prefs.String
	VectorTier prefs.String

	// floating-point accuracy for each core type: ACCURATE or FAST.
	// hot-swappable
	ScalarAccuracy prefs.String
	VectorAccuracy prefs.String

	// superblock formation in the native tier: OFF, MEGA or GIGA.
	// hot-swappable
	Superblock prefs.String

	// maximum number of units in a translation cache. hot-swappable
	CacheSize prefs.Int

	// scheduler policy: AUTO, PINNED, DELEGATED or TIMESLICED
	Policy prefs.String

	// number of host workers for the TIMESLICED policy. zero means the number
	// of host cores
	Workers prefs.Int

	// number of instructions a logical thread executes before it is
	// considered for preemption. hot-swappable
	Quantum prefs.Int

	// group scheduling: all members of a thread group are descheduled while
	// any member waits on a group-wide barrier
	StrictGroups prefs.Bool

	// how long to wait for a cooperative stop before declaring a deadlock.
	// hot-swappable
	StopTimeout prefs.Duration

	// DMA accuracy mode: FAST, ATOMIC or ORDERED
	MFCMode prefs.String

	// whether suspending the machine waits for queued DMA commands to
	// complete. if false, queued commands are recorded in the snapshot.
	// hot-swappable
	DrainOnSuspend prefs.Bool

	// reservation strictness: STRICT or RELAXED
	Reservations prefs.String

	// size of the guest address space in MiB
	MemorySize prefs.Int

	// number of vector cores
	VectorCount prefs.Int

	// a guest fault halts the whole machine rather than just the faulting
	// thread. hot-swappable
	HaltMachineOnFault prefs.Bool

	// set while a machine is running with these preferences
	running atomic.Bool
}

func (p *Preferences) String() string {
	if p.dsk == nil {
		return ""
	}
	return p.dsk.String()
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type. Values are loaded from the preferences file in the
// resource directory.
func NewPreferences() (*Preferences, error) {
	p := NewDefaultPreferences()

	pth, err := paths.ResourcePath(prefsFile)
	if err != nil {
		return nil, err
	}
	p.dsk, err = prefs.NewDisk(pth)
	if err != nil {
		return nil, err
	}

	for k, v := range p.registry() {
		if err := p.dsk.Add(k, v); err != nil {
			return nil, err
		}
	}

	if err := p.dsk.Load(true); err != nil {
		return nil, err
	}

	return p, nil
}

// NewDefaultPreferences returns preferences with default values that are not
// associated with the preferences file.
func NewDefaultPreferences() *Preferences {
	p := &Preferences{}

	p.ScalarTier.SetOptions("NATIVE", "THREADED", "INTERPRETER")
	p.VectorTier.SetOptions("NATIVE", "THREADED", "INTERPRETER")
	p.ScalarAccuracy.SetOptions("ACCURATE", "FAST")
	p.VectorAccuracy.SetOptions("ACCURATE", "FAST")
	p.Superblock.SetOptions("MEGA", "GIGA", "OFF")
	p.Policy.SetOptions("AUTO", "PINNED", "DELEGATED", "TIMESLICED")
	p.MFCMode.SetOptions("ATOMIC", "FAST", "ORDERED")
	p.Reservations.SetOptions("STRICT", "RELAXED")

	p.SetDefaults()

	startOnly := map[string]interface {
		SetHookPre(func(prefs.Value) error)
	}{
		"cell.scheduler.policy":       &p.Policy,
		"cell.scheduler.workers":      &p.Workers,
		"cell.scheduler.strictGroups": &p.StrictGroups,
		"cell.mfc.mode":               &p.MFCMode,
		"cell.memory.reservations":    &p.Reservations,
		"cell.memory.size":            &p.MemorySize,
		"cell.vector.count":           &p.VectorCount,
	}
	for k, v := range startOnly {
		key := k
		v.SetHookPre(func(prefs.Value) error {
			if p.running.Load() {
				return curated.Errorf(NotHotSwappable, key)
			}
			return nil
		})
	}

	return p
}

func (p *Preferences) registry() map[string]value {
	return map[string]value{
		"cell.scalar.tier":            &p.ScalarTier,
		"cell.vector.tier":            &p.VectorTier,
		"cell.scalar.accuracy":        &p.ScalarAccuracy,
		"cell.vector.accuracy":        &p.VectorAccuracy,
		"cell.translator.superblock":  &p.Superblock,
		"cell.translator.cacheSize":   &p.CacheSize,
		"cell.scheduler.policy":       &p.Policy,
		"cell.scheduler.workers":      &p.Workers,
		"cell.scheduler.quantum":      &p.Quantum,
		"cell.scheduler.strictGroups": &p.StrictGroups,
		"cell.scheduler.stopTimeout":  &p.StopTimeout,
		"cell.mfc.mode":               &p.MFCMode,
		"cell.mfc.drainOnSuspend":     &p.DrainOnSuspend,
		"cell.memory.reservations":    &p.Reservations,
		"cell.memory.size":            &p.MemorySize,
		"cell.vector.count":           &p.VectorCount,
		"cell.faults.haltMachine":     &p.HaltMachineOnFault,
	}
}

// SetDefaults reverts all settings to default values. Start-only values are
// not changed if the machine is running.
func (p *Preferences) SetDefaults() {
	p.ScalarTier.Set("NATIVE")
	p.VectorTier.Set("NATIVE")
	p.ScalarAccuracy.Set("ACCURATE")
	p.VectorAccuracy.Set("ACCURATE")
	p.Superblock.Set("MEGA")
	p.CacheSize.Set(8192)
	p.Policy.Set("AUTO")
	p.Workers.Set(0)
	p.Quantum.Set(20000)
	p.StrictGroups.Set(false)
	p.StopTimeout.Set(2 * time.Second)
	p.MFCMode.Set("ATOMIC")
	p.DrainOnSuspend.Set(true)
	p.Reservations.Set("STRICT")
	p.MemorySize.Set(512)
	p.VectorCount.Set(6)
	p.HaltMachineOnFault.Set(false)
}

// SetRunning is called by the machine when it starts and stops. While
// running is true start-only preferences refuse to change.
func (p *Preferences) SetRunning(running bool) {
	p.running.Store(running)
}

// Load preferences from disk. Does nothing for preferences not associated
// with the preferences file.
func (p *Preferences) Load() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Load(false)
}

// Save preferences to disk. Does nothing for preferences not associated with
// the preferences file.
func (p *Preferences) Save() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Save()
}

// Set a preference by key. Used by the debugger's PREFS command.
func (p *Preferences) Set(key string, value string) error {
	v, ok := p.registry()[key]
	if !ok {
		return curated.Errorf(prefs.UnregisteredK, key)
	}
	return v.Set(value)
}

// Keys returns the list of preference keys and their current values.
func (p *Preferences) Keys() map[string]string {
	m := make(map[string]string)
	for k, v := range p.registry() {
		m[k] = v.String()
	}
	return m
}

// StopTimeoutDuration returns the StopTimeout value as a time.Duration.
func (p *Preferences) StopTimeoutDuration() time.Duration {
	return p.StopTimeout.Value()
}
