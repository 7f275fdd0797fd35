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
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/jetsetilly/gophercell/debugger/terminal/hotkeys"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/modalflag"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/savestate"
	"github.com/tebeka/atexit"
	"golang.org/x/term"
)

// runNotify prints guest output and faults while the machine runs without
// the debugger.
type runNotify struct{}

func (runNotify) Notify(notice notifications.Notice, data interface{}) error {
	switch notice {
	case notifications.NotifyGuestPrint:
		fmt.Print(data)
	case notifications.NotifyGuestFault:
		if f, ok := data.(thread.FaultReport); ok {
			fmt.Fprintf(os.Stderr, "* fault: %s\n", f)
		}
	case notifications.NotifyDeadlock:
		fmt.Fprintf(os.Stderr, "* deadlock: %v\n", data)
	case notifications.NotifyBreakpoint:
		fmt.Fprintf(os.Stderr, "* breakpoint: %v\n", data)
	}
	return nil
}

func run(md *modalflag.Modes) (int, error) {
	md.NewMode()
	img := addImageFlags(md)
	useHotkeys := md.AddBool("hotkeys", true, "control the machine with single key presses (p, r, s, q)")
	slot := md.AddString("slot", "quick", "savestate slot used by the save hotkey")
	restore := md.AddString("load", "", "restore the machine from a savestate slot instead of an image")
	limit := md.AddDuration("timeout", 0, "stop the machine after this long. zero means no limit")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return 0, err
	}

	m, err := newMachine(runNotify{})
	if err != nil {
		return 0, err
	}

	// the store is only needed for hotkey saves and for restoring
	var store *savestate.Store
	if *useHotkeys || *restore != "" {
		store, err = savestate.NewStore(m.Env())
		if err != nil {
			if *restore != "" {
				return 0, err
			}
			logger.Log(m.Env(), "savestate", err)
		} else {
			atexit.Register(func() { store.Close() })
		}
	}

	if *restore != "" {
		if _, err := store.Load(m, *restore); err != nil {
			return 0, err
		}
	} else {
		if err := img.prepare(m); err != nil {
			return 0, err
		}
		scalarImg, err := img.load(md)
		if err != nil {
			return 0, err
		}
		if err := m.Start(*img.entry, scalarImg); err != nil {
			return 0, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := make(chan rune, 1)
	if *useHotkeys && term.IsTerminal(int(os.Stdin.Fd())) {
		hk, err := hotkeys.NewHotkeys(os.Stdin)
		if err != nil {
			return 0, err
		}
		if err := hk.CBreakMode(); err != nil {
			return 0, err
		}
		atexit.Register(func() { hk.CanonicalMode() })
		go func() {
			if err := hk.Listen(ctx, keys); err != nil {
				logger.Log(m.Env(), "hotkeys", err)
			}
		}()
	}

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	defer signal.Stop(intr)

	var deadline <-chan time.Time
	if *limit > 0 {
		deadline = time.After(*limit)
	}

	for {
		select {
		case <-m.Done():
			status, err := m.ExitStatus()
			if err != nil {
				return 0, err
			}
			return int(status), nil

		case <-intr:
			return 0, nil

		case <-deadline:
			return 0, fmt.Errorf("guest program did not end within %s", *limit)

		case k := <-keys:
			if err := hotkey(m, store, *slot, k); err != nil {
				if err == errQuit {
					return 0, nil
				}
				fmt.Fprintf(os.Stderr, "* %v\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func hotkey(m *hardware.Machine, store *savestate.Store, slot string, k rune) error {
	switch k {
	case hotkeys.Pause:
		return m.Pause()
	case hotkeys.Resume:
		return m.Resume()
	case hotkeys.Save:
		if store == nil {
			return fmt.Errorf("no savestate store")
		}
		rec, err := store.Save(m, slot)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "! saved %s to %s\n", rec.ID, slot)
	case hotkeys.Quit:
		return errQuit
	}
	return nil
}
