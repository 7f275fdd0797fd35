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

// Package statsview serves runtime statistics of the host process over HTTP.
// The server is only available when the program is built with the statsview
// build tag, otherwise Launch() does nothing and Available() returns false.
//
// The statistics are useful for watching the scheduler's host workers and
// the garbage collector while a guest program runs. When launched, the charts
// are at:
//
//	localhost:12601/debug/statsview
//
// And the standard pprof pages at:
//
//	localhost:12601/debug/pprof/
package statsview
