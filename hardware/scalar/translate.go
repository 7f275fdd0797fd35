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

package scalar

import (
	"fmt"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/logger"
)

// Memory is the interface to guest memory required by the scalar core.
type Memory interface {
	translator.Source
	Fetch(address uint32) (uint32, error)
	Read8(address uint32) (uint8, error)
	Read16(address uint32) (uint16, error)
	Read32(address uint32) (uint32, error)
	Read64(address uint32) (uint64, error)
	Write8(address uint32, v uint8) error
	Write16(address uint32, v uint16) error
	Write32(address uint32, v uint32) error
	Write64(address uint32, v uint64) error
	Reserve(address uint32, p []byte) (memory.Reservation, error)
	StoreConditional(res memory.Reservation, address uint32, p []byte) (bool, error)
}

// compiled is a single instruction compiled for the native tier.
type compiled func(c *Core) exit

// Unit is a translated block of scalar instructions.
type Unit struct {
	entry    uint32
	tier     translator.Tier
	coverage *translator.Coverage

	ops   []decoded
	addrs []uint32

	// native tier only
	code []compiled
}

// Entry implements the translator.Unit interface.
func (u *Unit) Entry() uint32 {
	return u.entry
}

// Tier implements the translator.Unit interface.
func (u *Unit) Tier() translator.Tier {
	return u.tier
}

// Coverage implements the translator.Unit interface.
func (u *Unit) Coverage() *translator.Coverage {
	return u.coverage
}

// Len implements the translator.Unit interface.
func (u *Unit) Len() int {
	return len(u.ops)
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s unit at %#08x (%d instructions, %d pages)", u.tier, u.entry, len(u.ops), u.coverage.Pages())
}

// Cache of scalar units.
type Cache = translator.Cache[*Unit]

// Translator produces executable units for scalar cores. A single
// Translator is shared by every scalar thread of a machine.
type Translator struct {
	env    logger.Permission
	mem    Memory
	cache  *Cache
	breaks *translator.Breakpoints

	settings atomic.Pointer[translator.Settings]
}

// NewTranslator is the preferred method of initialisation for the Translator
// type.
func NewTranslator(env logger.Permission, mem Memory, capacity int, settings translator.Settings) *Translator {
	tr := &Translator{
		env:    env,
		mem:    mem,
		cache:  translator.NewCache[*Unit](mem, capacity, settings),
		breaks: translator.NewBreakpoints(),
	}
	tr.settings.Store(&settings)
	return tr
}

// Settings returns the current translation settings.
func (tr *Translator) Settings() translator.Settings {
	return *tr.settings.Load()
}

// Reconfigure changes the translation settings. The cache is flushed if the
// settings have changed. Threads pick up the new settings at their next
// block boundary.
func (tr *Translator) Reconfigure(settings translator.Settings) {
	tr.settings.Store(&settings)
	if tr.cache.Reconfigure(settings) {
		logger.Logf(tr.env, "translator", "scalar translation changed to %s", settings)
	}
}

// Cache returns the cache of translated units.
func (tr *Translator) Cache() *Cache {
	return tr.cache
}

// Breakpoints returns the breakpoints consulted by translation and by every
// scalar thread.
func (tr *Translator) Breakpoints() *translator.Breakpoints {
	return tr.breaks
}

// Executable returns the unit for the address using the current settings.
// The unit is translated and cached if required. For the interpreter tier a
// new uncached unit is returned.
func (tr *Translator) Executable(address uint32) (*Unit, error) {
	return tr.executable(address, tr.Settings())
}

func (tr *Translator) executable(address uint32, settings translator.Settings) (*Unit, error) {
	if settings.Tier == translator.Interpreter {
		return &Unit{entry: address, tier: translator.Interpreter}, nil
	}

	if u, ok := tr.cache.Lookup(address); ok {
		return u, nil
	}

	u, err := tr.build(address, settings)
	if err != nil {
		if curated.Is(err, translator.TranslationFailure) {
			logger.Log(tr.env, "translator", err)
			tr.cache.RecordFallback()
			return &Unit{entry: address, tier: translator.Interpreter}, nil
		}
		return nil, err
	}

	if settings.Tier == translator.Native {
		fp := fpuFor(settings.Accuracy)
		u.code = make([]compiled, len(u.ops))
		for i := range u.ops {
			u.code[i] = compile(u.ops[i], u.addrs[i], fp)
		}
	}

	// don't cache a unit translated with settings that have since changed
	if *tr.settings.Load() == settings {
		tr.cache.Insert(u)
	}

	return u, nil
}

// build decodes the block starting at the address. the first instruction
// must be fetchable and decodable.
func (tr *Translator) build(address uint32, settings translator.Settings) (*Unit, error) {
	for {
		u, err := tr.decodeBlock(address, settings)
		if err != nil {
			return nil, err
		}

		// the coverage marks pages as code before recording generations. if
		// any instruction changed before that happened, the block is decoded
		// again
		if tr.verify(u) {
			return u, nil
		}
	}
}

func (tr *Translator) decodeBlock(address uint32, settings translator.Settings) (*Unit, error) {
	u := &Unit{entry: address, tier: settings.Tier}

	var ranges [][2]uint32
	start := address
	pc := address

	visited := func(a uint32) bool {
		for _, v := range u.addrs {
			if v == a {
				return true
			}
		}
		return false
	}

	for len(u.ops) < translator.MaxBlockInstructions {
		if len(u.ops) > 0 && tr.breaks.Has(pc) {
			break
		}

		inst, err := tr.mem.Fetch(pc)
		if err != nil {
			if len(u.ops) == 0 {
				return nil, err
			}
			break
		}

		d := decode(inst)
		if d.op == opIllegal {
			if len(u.ops) == 0 {
				return nil, curated.Errorf(translator.TranslationFailure, address,
					fmt.Sprintf("illegal instruction %#08x", inst))
			}
			break
		}

		u.ops = append(u.ops, d)
		u.addrs = append(u.addrs, pc)

		if d.op.is(flagEndsBlock) {
			pc += 4
			break
		}

		if d.op.is(flagBranch) {
			if d.op == opB && settings.Superblock != translator.SuperblockOff {
				target := pc + uint32(d.imm)
				if d.aa {
					target = uint32(d.imm)
				}
				if visited(target) || tr.breaks.Has(target) {
					pc += 4
					break
				}
				ranges = append(ranges, [2]uint32{start, pc + 4})
				start = target
				pc = target
				continue
			}

			// conditional branches become side exits and translation
			// continues with the fall through path
			if d.op == opBc && settings.Superblock == translator.SuperblockGiga {
				pc += 4
				continue
			}

			pc += 4
			break
		}

		pc += 4
	}

	ranges = append(ranges, [2]uint32{start, pc})

	u.coverage = translator.NewCoverage(tr.mem, ranges[0][0], ranges[0][1])
	for _, r := range ranges[1:] {
		u.coverage.Extend(tr.mem, r[0], r[1])
	}

	return u, nil
}

// verify that the instructions in the unit are still those in memory.
func (tr *Translator) verify(u *Unit) bool {
	for i, a := range u.addrs {
		inst, err := tr.mem.Fetch(a)
		if err != nil || inst != u.ops[i].inst {
			return false
		}
	}
	return true
}
