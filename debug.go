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
	"strings"

	"github.com/jetsetilly/gophercell/debugger"
	"github.com/jetsetilly/gophercell/debugger/terminal"
	"github.com/jetsetilly/gophercell/debugger/terminal/lineterm"
	"github.com/jetsetilly/gophercell/debugger/terminal/plainterm"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/modalflag"
	"github.com/jetsetilly/gophercell/savestate"
	"github.com/tebeka/atexit"
)

func debug(md *modalflag.Modes) error {
	md.NewMode()
	img := addImageFlags(md)
	termType := md.AddString("term", "LINE", "terminal type to use in debug mode: LINE, PLAIN")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	scalarImg, err := img.load(md)
	if err != nil {
		return err
	}

	var term terminal.Terminal
	switch strings.ToUpper(*termType) {
	case "PLAIN":
		term = plainterm.NewPlainTerminal(nil, nil)
	default:
		term = lineterm.NewLineTerminal()
	}

	// the debugger is usable without savestates
	store, err := savestate.NewStore(logger.Allow)
	if err != nil {
		logger.Log(logger.Allow, "savestate", err)
		store = nil
	} else {
		atexit.Register(func() { store.Close() })
	}

	dbg := debugger.NewDebugger(term, store)
	m, err := newMachine(dbg)
	if err != nil {
		return err
	}
	dbg.Attach(m)

	if err := img.prepare(m); err != nil {
		return err
	}
	if err := dbg.Start(*img.entry, scalarImg); err != nil {
		return err
	}

	return dbg.Loop()
}
