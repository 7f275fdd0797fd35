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

import "github.com/jetsetilly/gophercell/hardware/memory/localstore"

// compile a decoded instruction into a closure. the most common
// instructions are specialised for their operands.
func compile(d decoded, address uint32, fp *fpu) compiled {
	rt, ra, rb, rc := d.rt, d.ra, d.rb, d.rc

	switch d.op {
	case opA:
		return func(c *Core) exit {
			a, b := &c.State.GPR[ra], &c.State.GPR[rb]
			c.State.GPR[rt] = Reg{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
			return exitNone
		}

	case opAi:
		i := uint32(d.imm)
		return func(c *Core) exit {
			a := &c.State.GPR[ra]
			c.State.GPR[rt] = Reg{a[0] + i, a[1] + i, a[2] + i, a[3] + i}
			return exitNone
		}

	case opIl:
		v := Splat(uint32(d.imm))
		return func(c *Core) exit {
			c.State.GPR[rt] = v
			return exitNone
		}

	case opIla:
		v := Splat(d.uimm)
		return func(c *Core) exit {
			c.State.GPR[rt] = v
			return exitNone
		}

	case opIlhu:
		v := Splat(d.uimm << 16)
		return func(c *Core) exit {
			c.State.GPR[rt] = v
			return exitNone
		}

	case opLqd:
		offset := uint32(d.imm << 4)
		return func(c *Core) exit {
			c.State.GPR[rt] = c.ls.ReadQuad(quadAddress(c.State.GPR[ra][0] + offset))
			return exitNone
		}

	case opStqd:
		offset := uint32(d.imm << 4)
		return func(c *Core) exit {
			c.ls.WriteQuad(quadAddress(c.State.GPR[ra][0]+offset), c.State.GPR[rt])
			return exitNone
		}

	case opBr:
		target := (address + uint32(d.imm<<2)) & localstore.LSLR
		return func(c *Core) exit {
			c.State.PC = target
			return exitBranch
		}

	case opBrnz:
		target := (address + uint32(d.imm<<2)) & localstore.LSLR
		return func(c *Core) exit {
			if c.State.GPR[rt][0] == 0 {
				return exitNone
			}
			c.State.PC = target
			return exitBranch
		}

	case opBrz:
		target := (address + uint32(d.imm<<2)) & localstore.LSLR
		return func(c *Core) exit {
			if c.State.GPR[rt][0] != 0 {
				return exitNone
			}
			c.State.PC = target
			return exitBranch
		}

	case opFa:
		add := fp.add
		return func(c *Core) exit {
			a, b := &c.State.GPR[ra], &c.State.GPR[rb]
			c.State.GPR[rt] = Reg{add(a[0], b[0]), add(a[1], b[1]), add(a[2], b[2]), add(a[3], b[3])}
			return exitNone
		}

	case opFm:
		mul := fp.mul
		return func(c *Core) exit {
			a, b := &c.State.GPR[ra], &c.State.GPR[rb]
			c.State.GPR[rt] = Reg{mul(a[0], b[0]), mul(a[1], b[1]), mul(a[2], b[2]), mul(a[3], b[3])}
			return exitNone
		}

	case opFma:
		fma := fp.fma
		return func(c *Core) exit {
			a, b, x := &c.State.GPR[ra], &c.State.GPR[rb], &c.State.GPR[rc]
			c.State.GPR[rt] = Reg{fma(a[0], b[0], x[0]), fma(a[1], b[1], x[1]), fma(a[2], b[2], x[2]), fma(a[3], b[3], x[3])}
			return exitNone
		}

	case opNop, opLnop, opSync, opDsync:
		return func(_ *Core) exit {
			return exitNone
		}
	}

	h := handlers[d.op]
	return func(c *Core) exit {
		saved := c.fp
		c.fp = fp
		ex := h(c, &d)
		c.fp = saved
		return ex
	}
}
