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

package scheduler

import (
	"testing"

	"github.com/jetsetilly/gophercell/test"
)

func TestGroupAffinity(t *testing.T) {
	g := &Group{affinity: 0b1010_0100}
	test.ExpectEquality(t, g.cpu(0, 8), 2)
	test.ExpectEquality(t, g.cpu(1, 8), 5)
	test.ExpectEquality(t, g.cpu(2, 8), 7)
	test.ExpectEquality(t, g.cpu(3, 8), 2)

	// cores that the host does not have are ignored
	test.ExpectEquality(t, g.cpu(1, 6), 5)
	test.ExpectEquality(t, g.cpu(2, 6), 2)

	// no affinity
	g = &Group{}
	test.ExpectEquality(t, g.cpu(5, 4), 1)
}

func TestConfigResolve(t *testing.T) {
	cfg := Config{Policy: Delegated}.resolve()
	test.ExpectEquality(t, cfg.Policy, Delegated)
	test.ExpectInequality(t, cfg.Workers, 0)
	test.ExpectEquality(t, cfg.Quantum, DefaultConfig().Quantum)
	test.ExpectEquality(t, cfg.slice(1000), 1000)

	cfg = Config{Policy: Timesliced}.resolve()
	test.ExpectEquality(t, cfg.slice(1000), 250)
	test.ExpectEquality(t, cfg.slice(2), 1)
}
