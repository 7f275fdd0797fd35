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
	"sync"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/logger"
	lua "github.com/yuin/gopher-lua"
)

// condition is a compiled Lua expression. the expression is evaluated with
// the registers of the core that reached the breakpoint as global variables.
type condition struct {
	env logger.Permission
	src string

	// a Lua state is not safe for concurrent use and the condition may be
	// evaluated by any worker
	crit sync.Mutex
	L    *lua.LState
	fn   *lua.LFunction
}

func compileCondition(env logger.Permission, src string) (*condition, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// the base and math libraries are enough for expressions
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	fn, err := L.LoadString(fmt.Sprintf("return (%s)", src))
	if err != nil {
		L.Close()
		return nil, curated.Errorf(BadCondition, err)
	}

	return &condition{
		env: env,
		src: src,
		L:   L,
		fn:  fn,
	}, nil
}

func (c *condition) String() string {
	return c.src
}

func (c *condition) close() {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.L.Close()
}

// bind the registers of the core as globals. the core must be a scalar or
// vector core.
func (c *condition) bind(ctx any) {
	switch core := ctx.(type) {
	case *scalar.Core:
		s := &core.State
		for i := range s.GPR {
			c.L.SetGlobal(fmt.Sprintf("r%d", i), lua.LNumber(s.GPR[i]))
		}
		c.L.SetGlobal("pc", lua.LNumber(s.PC))
		c.L.SetGlobal("lr", lua.LNumber(s.LR))
		c.L.SetGlobal("ctr", lua.LNumber(s.CTR))
		c.L.SetGlobal("cr", lua.LNumber(s.CR))
	case *vector.Core:
		s := &core.State
		for i := range s.GPR {
			c.L.SetGlobal(fmt.Sprintf("r%d", i), lua.LNumber(s.GPR[i][0]))
		}
		c.L.SetGlobal("pc", lua.LNumber(s.PC))
	}
}

// evaluate implements the translator.Condition type. an expression that
// fails to evaluate is treated as true so that the breakpoint is not
// silently ignored.
func (c *condition) evaluate(ctx any) bool {
	c.crit.Lock()
	defer c.crit.Unlock()

	c.bind(ctx)

	c.L.Push(c.fn)
	if err := c.L.PCall(0, 1, nil); err != nil {
		logger.Logf(c.env, "debugger", "condition %q: %v", c.src, err)
		return true
	}
	v := c.L.Get(-1)
	c.L.Pop(1)

	// zero is false in the condition language, as it is for the guest
	if n, ok := v.(lua.LNumber); ok {
		return n != 0
	}
	return lua.LVAsBool(v)
}
