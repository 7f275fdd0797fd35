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

// Package hotkeys reads single key presses from a terminal in cbreak mode.
// It is used while the machine is running, when there is no prompt, so that
// the user can control the machine with a single key.
//
// The package is a wrapper for "github.com/pkg/term/termios".
package hotkeys

import (
	"context"
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Key presses recognised by Listen().
const (
	Pause  = 'p'
	Resume = 'r'
	Save   = 's'
	Quit   = 'q'
)

// Hotkeys is a terminal that can be switched between canonical and cbreak
// mode.
type Hotkeys struct {
	input *os.File

	canAttr    unix.Termios
	cbreakAttr unix.Termios
}

// NewHotkeys prepares the terminal attached to the file. The terminal is not
// changed until CBreakMode() is called.
func NewHotkeys(input *os.File) (*Hotkeys, error) {
	hk := &Hotkeys{input: input}

	if err := termios.Tcgetattr(hk.input.Fd(), &hk.canAttr); err != nil {
		return nil, err
	}

	hk.cbreakAttr = hk.canAttr
	termios.Cfmakecbreak(&hk.cbreakAttr)

	// reads return after a tenth of a second even if no key has been pressed
	// so that Listen() can notice cancellation
	hk.cbreakAttr.Cc[unix.VMIN] = 0
	hk.cbreakAttr.Cc[unix.VTIME] = 1

	return hk, nil
}

// CanonicalMode puts terminal into normal, everyday canonical mode.
func (hk *Hotkeys) CanonicalMode() error {
	return termios.Tcsetattr(hk.input.Fd(), termios.TCSANOW, &hk.canAttr)
}

// CBreakMode puts terminal into cbreak mode.
func (hk *Hotkeys) CBreakMode() error {
	return termios.Tcsetattr(hk.input.Fd(), termios.TCSANOW, &hk.cbreakAttr)
}

// Listen sends recognised key presses to the channel until the context is
// cancelled or the input ends. The terminal must be in cbreak mode.
func (hk *Hotkeys) Listen(ctx context.Context, keys chan<- rune) error {
	return listen(ctx, hk.input, keys)
}

func listen(ctx context.Context, input io.Reader, keys chan<- rune) error {
	b := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := input.Read(b)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		switch b[0] {
		case Pause, Resume, Save, Quit:
			select {
			case keys <- rune(b[0]):
			case <-ctx.Done():
				return nil
			}
		}
	}
}
