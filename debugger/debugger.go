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
	"github.com/jetsetilly/gophercell/debugger/terminal"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/savestate"
)

// the number of notifications that can be queued before the oldest is
// discarded. guest output is never discarded
const maxQueuedEvents = 1000

// Debugger is the basic debugging frontend for the emulation.
type Debugger struct {
	m     *hardware.Machine
	term  terminal.Terminal
	store *savestate.Store

	// the thread that commands apply to when no thread is specified
	selected int

	// breakpoint conditions, keyed by breakpoint
	conditions map[breakpoint]*condition

	// the temporary breakpoint at the entry address of the main thread
	entry *breakpoint

	// notifications from the machine, serviced by the command loop
	crit   sync.Mutex
	events []notifications.Event
	signal chan struct{}

	// set by the QUIT command
	quit bool
}

// NewDebugger creates a debugger. The savestate store is optional. The
// debugger should be the notification sink of the machine that is later
// attached with Attach().
func NewDebugger(term terminal.Terminal, store *savestate.Store) *Debugger {
	dbg := &Debugger{
		term:       term,
		store:      store,
		conditions: make(map[breakpoint]*condition),
		signal:     make(chan struct{}, 1),
	}
	term.RegisterTabCompletion(newTabCompletion())
	return dbg
}

// Attach the machine to the debugger. The main scalar thread is selected.
func (dbg *Debugger) Attach(m *hardware.Machine) {
	dbg.m = m
	dbg.selected = hardware.ScalarThreadBase
}

// Notify implements the notifications.Notify interface. It is called by
// emulation goroutines and so never blocks.
func (dbg *Debugger) Notify(notice notifications.Notice, data interface{}) error {
	switch notice {
	case notifications.NotifyThreadState, notifications.NotifyCacheStats:
		// too frequent to be of interest at the command line
		return nil
	}

	dbg.crit.Lock()
	dbg.events = append(dbg.events, notifications.Event{Notice: notice, Data: data})
	if len(dbg.events) > maxQueuedEvents {
		for i, e := range dbg.events {
			if e.Notice != notifications.NotifyGuestPrint {
				dbg.events = append(dbg.events[:i], dbg.events[i+1:]...)
				break
			}
		}
	}
	dbg.crit.Unlock()

	select {
	case dbg.signal <- struct{}{}:
	default:
	}
	return nil
}

// drain the notification queue. guest output and machine events are printed
// to the terminal. returns the transition of the first breakpoint or fault
// in the queue.
func (dbg *Debugger) drain() (stopped *thread.Info) {
	dbg.crit.Lock()
	events := dbg.events
	dbg.events = nil
	dbg.crit.Unlock()

	for _, e := range events {
		switch e.Notice {
		case notifications.NotifyGuestPrint:
			dbg.term.TermPrintLine(terminal.StyleGuest, fmt.Sprint(e.Data))
			continue
		case notifications.NotifyBreakpoint:
			if tr, ok := e.Data.(thread.Transition); ok {
				if stopped == nil {
					stopped = &tr.Info
				}
				if dbg.entryReached(tr.Info) {
					continue
				}
			}
		case notifications.NotifyGuestFault:
			if f, ok := e.Data.(thread.FaultReport); ok && stopped == nil {
				stopped = &f.Info
			}
		}
		dbg.term.TermPrintLine(terminal.StyleNotify, fmt.Sprintf("%s: %v", e.Notice, e.Data))
	}

	return stopped
}

// the machine or an error if no machine is attached.
func (dbg *Debugger) machine() (*hardware.Machine, error) {
	if dbg.m == nil {
		return nil, curated.Errorf(NoMachine)
	}
	return dbg.m, nil
}

func (dbg *Debugger) printLine(style terminal.Style, s string, a ...any) {
	dbg.term.TermPrintLine(style, fmt.Sprintf(s, a...))
}

func (dbg *Debugger) printError(err error) {
	dbg.term.TermPrintLine(terminal.StyleError, err.Error())
}
