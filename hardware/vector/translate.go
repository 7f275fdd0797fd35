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

package vector

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/logger"
)

// LocalStore is the memory a vector core executes from. It is implemented
// by localstore.LocalStore.
type LocalStore interface {
	translator.Source
	Fetch(address uint32) uint32
	ReadQuad(address uint32) [4]uint32
	WriteQuad(address uint32, q [4]uint32)
}

type compiled func(c *Core) exit

// Unit is a translated block of vector instructions.
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
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s unit at %#05x", u.tier, u.entry))
	for i := range u.ops {
		s.WriteString(fmt.Sprintf("\n%05x %s", u.addrs[i], Disassemble(u.ops[i].inst, u.addrs[i])))
	}
	return s.String()
}

// Cache of translated vector units.
type Cache = translator.Cache[*Unit]

// Translator produces executable units from the local store of a single
// vector core.
type Translator struct {
	env    logger.Permission
	ls     LocalStore
	cache  *Cache
	breaks *translator.Breakpoints

	settings atomic.Pointer[translator.Settings]
}

// NewTranslator is the preferred method of initialisation for the Translator
// type.
func NewTranslator(env logger.Permission, ls LocalStore, capacity int, settings translator.Settings) *Translator {
	tr := &Translator{
		env:    env,
		ls:     ls,
		cache:  translator.NewCache[*Unit](ls, capacity, settings),
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
// settings have changed.
func (tr *Translator) Reconfigure(settings translator.Settings) {
	tr.settings.Store(&settings)
	if tr.cache.Reconfigure(settings) {
		logger.Logf(tr.env, "translator", "vector translation changed to %s", settings)
	}
}

// Cache returns the cache of translated units.
func (tr *Translator) Cache() *Cache {
	return tr.cache
}

// Breakpoints returns the breakpoints for the core.
func (tr *Translator) Breakpoints() *translator.Breakpoints {
	return tr.breaks
}

// Executable returns the unit for the address using the current settings.
func (tr *Translator) Executable(address uint32) *Unit {
	return tr.executable(address, tr.Settings())
}

func (tr *Translator) executable(address uint32, settings translator.Settings) *Unit {
	if settings.Tier == translator.Interpreter {
		return &Unit{entry: address, tier: translator.Interpreter}
	}

	if u, ok := tr.cache.Lookup(address); ok {
		return u
	}

	u, err := tr.build(address, settings)
	if err != nil {
		logger.Log(tr.env, "translator", err)
		tr.cache.RecordFallback()
		return &Unit{entry: address, tier: translator.Interpreter}
	}

	if settings.Tier == translator.Native {
		fp := fpuFor(settings.Accuracy)
		u.code = make([]compiled, len(u.ops))
		for i := range u.ops {
			u.code[i] = compile(u.ops[i], u.addrs[i], fp)
		}
	}

	if *tr.settings.Load() == settings {
		tr.cache.Insert(u)
	}

	return u
}

// build a unit. the local store can be written by DMA while the block is
// being decoded so the instructions are checked again after the coverage
// has been recorded.
func (tr *Translator) build(address uint32, settings translator.Settings) (*Unit, error) {
	for {
		u, err := tr.decodeBlock(address, settings)
		if err != nil {
			return nil, err
		}
		if tr.verify(u) {
			return u, nil
		}
	}
}

func (tr *Translator) decodeBlock(address uint32, settings translator.Settings) (*Unit, error) {
	address &= localstore.LSLR &^ 3
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

	for len(u.ops) < translator.MaxBlockInstructions && pc < localstore.Size {
		if len(u.ops) > 0 && tr.breaks.Has(pc) {
			break
		}

		inst := tr.ls.Fetch(pc)
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
			if (d.op == opBr || d.op == opBra) && settings.Superblock != translator.SuperblockOff {
				target := (pc + uint32(d.imm<<2)) & localstore.LSLR
				if d.op == opBra {
					target = uint32(d.imm<<2) & localstore.LSLR
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

			if (d.op == opBrz || d.op == opBrnz) && settings.Superblock == translator.SuperblockGiga {
				pc += 4
				continue
			}

			pc += 4
			break
		}

		pc += 4
	}

	ranges = append(ranges, [2]uint32{start, pc})

	u.coverage = translator.NewCoverage(tr.ls, ranges[0][0], ranges[0][1])
	for _, r := range ranges[1:] {
		u.coverage.Extend(tr.ls, r[0], r[1])
	}

	return u, nil
}

func (tr *Translator) verify(u *Unit) bool {
	for i, a := range u.addrs {
		if tr.ls.Fetch(a) != u.ops[i].inst {
			return false
		}
	}
	return true
}
