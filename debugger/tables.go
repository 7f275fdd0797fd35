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

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

func threadTable(threads []thread.Info, selected int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"", "ID", "Name", "Kind", "State", "PC", "Pri", "Retired"})
	for _, t := range threads {
		sel := ""
		if t.ID == selected {
			sel = "*"
		}
		state := t.State.String()
		if t.Reason != thread.NoReason {
			state = fmt.Sprintf("%s (%s)", t.State, t.Reason)
		}
		tw.AppendRow(table.Row{sel, fmt.Sprintf("%#x", t.ID), t.Name, t.Kind, state,
			fmt.Sprintf("%#08x", t.PC), t.Priority, t.Retired})
	}
	return tw.Render()
}

func statsTable(s hardware.Stats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("translation")
	tw.AppendHeader(table.Row{"Cache", "Units", "Hits", "Misses", "Compiles", "Fallbacks", "Invalidations", "Evictions"})

	tw.AppendRow(table.Row{"scalar", s.Scalar.Units, s.Scalar.Hits, s.Scalar.Misses,
		s.Scalar.Compiles, s.Scalar.Fallbacks, s.Scalar.Invalidations, s.Scalar.Evictions})
	for i, v := range s.Vector {
		tw.AppendRow(table.Row{fmt.Sprintf("vector %d", i), v.Units, v.Hits, v.Misses,
			v.Compiles, v.Fallbacks, v.Invalidations, v.Evictions})
	}

	t := s.Translation()
	tw.AppendFooter(table.Row{"total", t.Units, t.Hits, t.Misses,
		t.Compiles, t.Fallbacks, t.Invalidations, t.Evictions})

	out := tw.Render()
	out = fmt.Sprintf("%s\nmfc: %s", out, s.MFC)
	if s.GPU != nil {
		out = fmt.Sprintf("%s\ngpu: %s", out, s.GPU)
	}
	return out
}
