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

// Package debugger is the interactive debugger for the emulated machine.
//
// The debugger attaches to a hardware.Machine and offers thread enumeration,
// register inspection and modification, breakpoints, single-stepping and
// stepping over calls. Breakpoints can be conditional, the condition being a
// Lua expression evaluated with the registers of the thread bound as global
// variables. For example:
//
//	BREAK 0x10020 IF r3 == 0 and lr > 0x10000
//
// Breakpoints are rejected if the address is not in executable memory or if
// the instruction at the address can not be translated.
//
// The debugger implements the notifications.Notify interface and should be
// the notification sink of the machine's environment.
//
// The commands understood by the debugger are listed by the HELP command.
package debugger
