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

// Package lineterm implements the Terminal interface for the debugger using
// the line editor from golang.org/x/term. The terminal is put into raw mode
// only while a line is being read so that output from the running machine is
// not disturbed.
package lineterm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/terminal"
	"golang.org/x/term"
)

// NotATerminal is returned by Initialise() if the standard input is not a
// terminal.
const NotATerminal = "lineterm: input is not a terminal"

// key code handled by the autocomplete callback.
const keyTab = 9

// LineTerminal offers line editing and history. Output is written with the
// correct line endings whether or not the terminal is in raw mode.
type LineTerminal struct {
	input  *os.File
	output *os.File

	crit sync.Mutex
	line *term.Terminal
	raw  *term.State

	tabCompletion terminal.TabCompletion
}

// NewLineTerminal creates a LineTerminal for the standard input and output.
func NewLineTerminal() *LineTerminal {
	return &LineTerminal{
		input:  os.Stdin,
		output: os.Stdout,
	}
}

// Initialise implements the terminal.Terminal interface.
func (lt *LineTerminal) Initialise() error {
	if !term.IsTerminal(int(lt.input.Fd())) {
		return curated.Errorf(NotATerminal)
	}

	rw := struct {
		io.Reader
		io.Writer
	}{lt.input, lt.output}

	lt.line = term.NewTerminal(rw, "")
	lt.line.AutoCompleteCallback = lt.autoComplete

	if w, h, err := term.GetSize(int(lt.output.Fd())); err == nil {
		_ = lt.line.SetSize(w, h)
	}

	return nil
}

// CleanUp implements the terminal.Terminal interface.
func (lt *LineTerminal) CleanUp() {
	lt.crit.Lock()
	defer lt.crit.Unlock()
	if lt.raw != nil {
		_ = term.Restore(int(lt.input.Fd()), lt.raw)
		lt.raw = nil
	}
}

// RegisterTabCompletion implements the terminal.Terminal interface.
func (lt *LineTerminal) RegisterTabCompletion(tc terminal.TabCompletion) {
	lt.tabCompletion = tc
}

// IsInteractive implements the terminal.Input interface.
func (lt *LineTerminal) IsInteractive() bool {
	return true
}

func (lt *LineTerminal) autoComplete(line string, pos int, key rune) (string, int, bool) {
	if key != keyTab || lt.tabCompletion == nil {
		return "", 0, false
	}
	s := lt.tabCompletion.Complete(line[:pos])
	return s + line[pos:], len(s), true
}

// TermPrintLine implements the terminal.Output interface.
func (lt *LineTerminal) TermPrintLine(style terminal.Style, s string) {
	if style == terminal.StyleEcho {
		return
	}

	switch style {
	case terminal.StyleError:
		s = fmt.Sprintf("* %s", s)
	case terminal.StyleGuest:
		s = fmt.Sprintf("| %s", s)
	}

	lt.crit.Lock()
	defer lt.crit.Unlock()

	// the line editor translates line endings while the terminal is raw
	if lt.raw != nil {
		fmt.Fprintln(lt.line, s)
		return
	}
	fmt.Fprintln(lt.output, s)
}

// TermRead implements the terminal.Input interface.
func (lt *LineTerminal) TermRead(prompt terminal.Prompt) (string, error) {
	lt.crit.Lock()
	raw, err := term.MakeRaw(int(lt.input.Fd()))
	if err != nil {
		lt.crit.Unlock()
		return "", err
	}
	lt.raw = raw
	lt.line.SetPrompt(prompt.String())
	lt.crit.Unlock()

	s, err := lt.line.ReadLine()

	lt.CleanUp()

	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
