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

// Package logger is the central log for the application. Entries are tagged
// strings kept in a bounded ring; repeated identical entries are folded into
// a single entry with a repeat count.
//
// Every log request carries a Permission. Environments that should not be
// heard (a second machine instance used for comparison, for example)
// implement Permission and return false from AllowLogging().
//
// The package level functions log to a single central Logger. Separate
// Logger instances can be created with NewLogger() and are mostly useful for
// testing.
package logger
