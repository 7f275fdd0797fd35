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

// Sentinal error patterns.
const (
	InvalidBreakpointMemory = "debugger: invalid memory for breakpoints (%#08x)"
	NoSuchBreakpoint        = "debugger: no breakpoint at %#08x"
	BadCondition            = "debugger: bad condition: %v"
	NoSuchThread            = "debugger: no such thread (%d)"
	NoThreadSelected        = "debugger: no thread selected"
	ThreadNotStopped        = "debugger: thread %d is not stopped"
	UnknownRegister         = "debugger: unknown register (%s)"
	NoMachine               = "debugger: no machine attached"
	NoSlotStore             = "debugger: no savestate store"
	UnknownCommand          = "debugger: unknown command (%s)"
	BadArguments            = "debugger: %s: %v"
)
