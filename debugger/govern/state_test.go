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

package govern_test

import (
	"testing"

	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/test"
)

func TestStateIntegrity(t *testing.T) {
	test.ExpectSuccess(t, govern.StateIntegrity(govern.Running, govern.Normal))
	test.ExpectSuccess(t, govern.StateIntegrity(govern.Paused, govern.PausedOnBreakpoint))
	test.ExpectSuccess(t, govern.StateIntegrity(govern.Paused, govern.PausedForSavestate))
	test.ExpectSuccess(t, govern.StateIntegrity(govern.Ending, govern.EndingOnDeadlock))
	test.ExpectFailure(t, govern.StateIntegrity(govern.Running, govern.PausedOnFault))
	test.ExpectFailure(t, govern.StateIntegrity(govern.Paused, govern.EndingOnDeadlock))
}

func TestConditionString(t *testing.T) {
	c := govern.Condition{State: govern.Paused, SubState: govern.PausedOnFault}
	test.ExpectEquality(t, c.String(), "Paused on fault")
	c = govern.Condition{State: govern.Running}
	test.ExpectEquality(t, c.String(), "Running")
}
