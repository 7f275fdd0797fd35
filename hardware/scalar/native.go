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
	"math/bits"
)

// compile a decoded instruction at the address into a closure. common
// instructions are specialised for their operands. everything else is
// compiled into a call to the generic handler.
func compile(d decoded, address uint32, fp *fpu) compiled {
	rt, ra, rb := d.rt, d.ra, d.rb

	switch d.op {
	case opAddi:
		imm := uint64(d.imm)
		if ra == 0 {
			return func(c *Core) exit {
				c.State.GPR[rt] = imm
				return exitNone
			}
		}
		return func(c *Core) exit {
			c.State.GPR[rt] = c.State.GPR[ra] + imm
			return exitNone
		}

	case opAddis:
		imm := uint64(d.imm << 16)
		if ra == 0 {
			return func(c *Core) exit {
				c.State.GPR[rt] = imm
				return exitNone
			}
		}
		return func(c *Core) exit {
			c.State.GPR[rt] = c.State.GPR[ra] + imm
			return exitNone
		}

	case opOri:
		imm := d.uimm
		if imm == 0 && rt == ra {
			return func(_ *Core) exit {
				return exitNone
			}
		}
		return func(c *Core) exit {
			c.State.GPR[ra] = c.State.GPR[rt] | imm
			return exitNone
		}

	case opOris:
		imm := d.uimm << 16
		return func(c *Core) exit {
			c.State.GPR[ra] = c.State.GPR[rt] | imm
			return exitNone
		}

	case opAdd:
		if !d.record {
			return func(c *Core) exit {
				c.State.GPR[rt] = c.State.GPR[ra] + c.State.GPR[rb]
				return exitNone
			}
		}

	case opSubf:
		if !d.record {
			return func(c *Core) exit {
				c.State.GPR[rt] = c.State.GPR[rb] - c.State.GPR[ra]
				return exitNone
			}
		}

	case opOr:
		if !d.record {
			if rt == rb {
				return func(c *Core) exit {
					c.State.GPR[ra] = c.State.GPR[rt]
					return exitNone
				}
			}
			return func(c *Core) exit {
				c.State.GPR[ra] = c.State.GPR[rt] | c.State.GPR[rb]
				return exitNone
			}
		}

	case opRlwinm:
		if !d.record {
			sh := int(d.sh)
			mask := rotateMask(d.mb, d.me)
			return func(c *Core) exit {
				c.State.GPR[ra] = uint64(bits.RotateLeft32(uint32(c.State.GPR[rt]), sh) & mask)
				return exitNone
			}
		}

	case opCmpi:
		bf := d.bf
		imm := d.imm
		if !d.l {
			return func(c *Core) exit {
				c.State.setCRField(bf, compareSigned(int64(int32(c.State.GPR[ra])), imm)|c.State.so())
				return exitNone
			}
		}

	case opCmpli:
		bf := d.bf
		imm := d.uimm
		if !d.l {
			return func(c *Core) exit {
				c.State.setCRField(bf, compareUnsigned(uint64(uint32(c.State.GPR[ra])), imm)|c.State.so())
				return exitNone
			}
		}

	case opLwz:
		imm := uint64(d.imm)
		if ra != 0 {
			return func(c *Core) exit {
				v, err := c.mem.Read32(uint32(c.State.GPR[ra] + imm))
				if err != nil {
					return c.faulted(err)
				}
				c.State.GPR[rt] = uint64(v)
				return exitNone
			}
		}

	case opStw:
		imm := uint64(d.imm)
		if ra != 0 {
			return func(c *Core) exit {
				if err := c.mem.Write32(uint32(c.State.GPR[ra]+imm), uint32(c.State.GPR[rt])); err != nil {
					return c.faulted(err)
				}
				return exitNone
			}
		}

	case opB:
		target := address + uint32(d.imm)
		if d.aa {
			target = uint32(d.imm)
		}
		if d.lk {
			link := uint64(address + 4)
			return func(c *Core) exit {
				c.State.LR = link
				c.State.PC = target
				return exitBranch
			}
		}
		return func(c *Core) exit {
			c.State.PC = target
			return exitBranch
		}

	case opBc:
		target := address + uint32(d.imm)
		if d.aa {
			target = uint32(d.imm)
		}
		next := address + 4

		// the common case of a branch on a condition register bit that does
		// not use CTR
		if d.bo&0x04 == 0x04 && d.bo&0x10 == 0 && !d.lk {
			bi := d.bi
			want := d.bo&0x08 == 0x08
			return func(c *Core) exit {
				if c.State.crBit(bi) == want {
					c.State.PC = target
				} else {
					c.State.PC = next
				}
				return exitBranch
			}
		}

		// loop counter branch (bdnz)
		if d.bo&0x14 == 0x10 && d.bo&0x02 == 0 && !d.lk {
			return func(c *Core) exit {
				c.State.CTR--
				if c.State.CTR != 0 {
					c.State.PC = target
				} else {
					c.State.PC = next
				}
				return exitBranch
			}
		}

	case opFadd:
		add := fp.add
		if !d.record {
			return func(c *Core) exit {
				c.State.FPR[rt] = add(&c.State, c.State.FPR[ra], c.State.FPR[rb])
				return exitNone
			}
		}

	case opFmul:
		mul := fp.mul
		rc := d.rc
		if !d.record {
			return func(c *Core) exit {
				c.State.FPR[rt] = mul(&c.State, c.State.FPR[ra], c.State.FPR[rc])
				return exitNone
			}
		}

	case opFmadd:
		madd := fp.madd
		rc := d.rc
		if !d.record {
			return func(c *Core) exit {
				c.State.FPR[rt] = madd(&c.State, c.State.FPR[ra], c.State.FPR[rc], c.State.FPR[rb])
				return exitNone
			}
		}
	}

	// generic handler. the floating point unit is bound at compile time in
	// the same way as the specialised closures
	h := handlers[d.op]
	return func(c *Core) exit {
		save := c.fp
		c.fp = fp
		e := h(c, &d)
		c.fp = save
		return e
	}
}
