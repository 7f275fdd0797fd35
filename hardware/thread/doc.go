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

// Package thread contains the vocabulary shared by the execution units and
// the scheduler: the state of a logical thread, the reason it is blocked and
// the Yield value returned by a core when it stops executing.
//
// A core never blocks a host thread. When it cannot proceed it returns a
// Yield describing why, together with a wake channel obtained from an Event.
// The channel is obtained before the blocking condition is checked so that a
// notification between the check and the return is never lost.
package thread
