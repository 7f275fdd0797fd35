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

package terminal

// Style is used to identify the category of text being sent to the
// Terminal.TermPrintLine() function. The terminal implementation can choose
// to interpret the style however it wants.
type Style int

// List of terminal styles.
const (
	// input from the user being echoed back to the user. echoed input has
	// been "normalised" (eg. capitalised, leading space removed, etc.)
	StyleEcho Style = iota

	// information from the internal help system
	StyleHelp

	// information as a result of an error
	StyleError

	// information as a result of a command
	StyleFeedback

	// disassembly output
	StyleInstrument

	// notifications from the machine while it is running
	StyleNotify

	// text printed by the guest program
	StyleGuest
)

func (s Style) String() string {
	switch s {
	case StyleEcho:
		return "echo"
	case StyleHelp:
		return "help"
	case StyleError:
		return "error"
	case StyleFeedback:
		return "feedback"
	case StyleInstrument:
		return "instrument"
	case StyleNotify:
		return "notify"
	case StyleGuest:
		return "guest"
	}
	return "unknown style"
}
