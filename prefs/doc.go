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

// Package prefs implements typed preference values and their persistence.
//
// Preference values (Bool, Int, Duration, String) are safe to read and write
// from any goroutine. Each value can have a hook that runs before a new value
// is stored (and which can veto the change by returning an error) and a hook
// that runs after.
//
// A Disk associates preference values with keys and saves/loads them to a
// file. The file format is one "key :: value" pair per line, preceded by a
// warning header. Keys in the file that are not registered with the Disk
// instance are preserved when saving, so more than one Disk can share a file.
//
// Values can be overridden from the command line with
// PushCommandLineStack(). Overrides are applied the next time a Disk is
// loaded.
package prefs
