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

// Package terminal defines the operations required for command-line
// interaction with the debugger.
//
// Two implementations are provided in sub-packages. The plainterm package
// reads lines from any io.Reader and is used when input is not a terminal
// (and in tests). The lineterm package puts a real terminal into raw mode
// and offers line editing, history and tab completion.
//
// The hotkeys sub-package is not a Terminal. It reads single key presses
// while the machine is running so that the user can pause the machine
// without waiting for a prompt.
package terminal
