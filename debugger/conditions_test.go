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
	"testing"

	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/test"
)

func TestConditionScalar(t *testing.T) {
	c := &scalar.Core{}
	c.State.GPR[3] = 10
	c.State.LR = 0x10040
	c.State.PC = 0x10000

	cond, err := compileCondition(logger.Allow, "r3 == 10 and lr > pc")
	test.DemandSuccess(t, err)
	defer cond.close()
	test.ExpectEquality(t, cond.evaluate(c), true)

	c.State.GPR[3] = 11
	test.ExpectEquality(t, cond.evaluate(c), false)

	// numeric results are true if they are not zero
	cond, err = compileCondition(logger.Allow, "r3 - 11")
	test.DemandSuccess(t, err)
	defer cond.close()
	test.ExpectEquality(t, cond.evaluate(c), false)
	c.State.GPR[3] = 12
	test.ExpectEquality(t, cond.evaluate(c), true)

	cond, err = compileCondition(logger.Allow, "math.fmod(r3, 4) == 0")
	test.DemandSuccess(t, err)
	defer cond.close()
	test.ExpectEquality(t, cond.evaluate(c), true)
}

func TestConditionVector(t *testing.T) {
	c := &vector.Core{}
	c.State.GPR[127] = vector.Reg{5, 1, 2, 3}

	cond, err := compileCondition(logger.Allow, "r127 == 5")
	test.DemandSuccess(t, err)
	defer cond.close()
	test.ExpectEquality(t, cond.evaluate(c), true)
}

func TestConditionErrors(t *testing.T) {
	_, err := compileCondition(logger.Allow, "r3 ==")
	test.ExpectFailure(t, err)

	// a run time error breaks
	cond, err := compileCondition(logger.Allow, "undefined.field == 1")
	test.DemandSuccess(t, err)
	defer cond.close()
	test.ExpectEquality(t, cond.evaluate(&scalar.Core{}), true)
}
