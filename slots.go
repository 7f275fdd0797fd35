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

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/modalflag"
	"github.com/jetsetilly/gophercell/savestate"
)

// slots lists the savestate slots or deletes one.
func slots(md *modalflag.Modes) error {
	md.NewMode()
	del := md.AddString("delete", "", "delete the named slot")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	store, err := savestate.NewStore(logger.Allow)
	if err != nil {
		return err
	}
	defer store.Close()

	if *del != "" {
		return store.Delete(*del)
	}

	l, err := store.List()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Slot", "ID", "Version", "Created", "Size"})
	for _, s := range l {
		tw.AppendRow(table.Row{s.Name, s.ID, s.Version, s.Created.Format("2006-01-02 15:04:05"), s.Size})
	}
	fmt.Println(tw.Render())

	return nil
}
