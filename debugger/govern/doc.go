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

// Package govern describes the condition of a machine. A Condition is a State
// with a SubState giving the reason for the state, when there is one of
// interest. For example, a machine paused because a thread reached a
// breakpoint is Paused with the PausedOnBreakpoint sub-state.
//
// The machine changes its own condition. Front ends request changes through
// the machine's Pause(), Resume() and Stop() functions and are told of the
// change with the machine state notification.
package govern
