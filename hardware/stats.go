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

package hardware

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/gophercell/hardware/gpu"
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/translator"
)

// Stats is a summary of machine activity.
type Stats struct {
	Scalar translator.Stats

	// one entry for every vector core
	Vector []translator.Stats

	MFC mfc.Stats

	// only available if the GPU sink is a gpu.Counter
	GPU *gpu.Stats
}

// Translation returns the sum of the statistics of every translation cache.
func (s Stats) Translation() translator.Stats {
	t := s.Scalar
	for _, v := range s.Vector {
		t = t.Add(v)
	}
	return t
}

func (s Stats) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("scalar: %s\n", s.Scalar))
	for i, v := range s.Vector {
		b.WriteString(fmt.Sprintf("vector %d: %s\n", i, v))
	}
	b.WriteString(fmt.Sprintf("mfc: %s", s.MFC))
	if s.GPU != nil {
		b.WriteString(fmt.Sprintf("\ngpu: %s", s.GPU))
	}
	return b.String()
}

// Stats returns the current statistics for the machine. Safe to call while
// the machine is running.
func (m *Machine) Stats() Stats {
	s := Stats{
		Scalar: m.Scalar.Cache().Stats(),
		MFC:    m.MFC.Stats(),
	}
	for _, v := range m.Vectors {
		s.Vector = append(s.Vector, v.Core.Translator().Cache().Stats())
	}
	if c, ok := m.GPU.(*gpu.Counter); ok {
		g := c.Stats()
		s.GPU = &g
	}
	return s
}
