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
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/debugger/terminal"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// Start the attached machine with the image. The machine stops before the
// main thread executes its first instruction.
func (dbg *Debugger) Start(entry uint32, img *loader.Image) error {
	m, err := dbg.machine()
	if err != nil {
		return err
	}
	if img == nil {
		return curated.Errorf(hardware.NoImage)
	}
	if entry == 0 {
		entry = img.Entry
	}

	dbg.setEntryBreakpoint(entry)
	if err := m.Start(entry, img); err != nil {
		return err
	}
	dbg.wait()

	return nil
}

// Loop reads and executes commands until the QUIT command or the end of
// input.
func (dbg *Debugger) Loop() error {
	if err := dbg.term.Initialise(); err != nil {
		return err
	}
	defer dbg.term.CleanUp()

	for !dbg.quit {
		dbg.drain()

		input, err := dbg.term.TermRead(dbg.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if !dbg.term.IsInteractive() {
			dbg.term.TermPrintLine(terminal.StyleEcho, input)
		}

		resumed, err := dbg.parseCommand(input)
		if err != nil {
			dbg.printError(err)
		}
		if resumed && err == nil {
			dbg.wait()
		}
	}

	return nil
}

func (dbg *Debugger) prompt() terminal.Prompt {
	p := terminal.Prompt{}
	if dbg.m == nil {
		return p
	}
	p.Condition = dbg.m.Condition()
	if th, _, err := dbg.thread(dbg.selected); err == nil {
		p.Thread = th.Info()
	}
	return p
}

// wait for the machine to stop. the machine stops when a thread reaches a
// breakpoint or faults, when the main thread ends or when the user
// interrupts. every thread is paused and the stopped thread is selected.
func (dbg *Debugger) wait() {
	if dbg.m.Condition().State != govern.Running {
		return
	}

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	defer signal.Stop(intr)

	done := dbg.m.Done()

	stop := func(info *thread.Info) {
		if err := dbg.halt(); err != nil {
			dbg.printError(err)
		}
		if info != nil {
			dbg.selected = info.ID
			dbg.where(info.ID)
		}
	}

	for {
		select {
		case <-dbg.signal:
			if info := dbg.drain(); info != nil {
				stop(info)
				return
			}
		case <-done:
			dbg.drain()
			status, err := dbg.m.ExitStatus()
			if err != nil {
				dbg.printError(err)
			} else {
				dbg.printLine(terminal.StyleFeedback, "main thread exited with status %d", status)
			}
			stop(nil)
			return
		case <-intr:
			dbg.printLine(terminal.StyleFeedback, "interrupted")
			stop(nil)
			return
		}
	}
}
