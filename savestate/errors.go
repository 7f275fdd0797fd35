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

package savestate

// Sentinal error patterns.
const (
	VersionMismatch  = "savestate: version mismatch (%s, expected %s)"
	CorruptData      = "savestate: corrupt data: %v"
	UnsupportedState = "savestate: unsupported state: %v"
	NoSuchSlot       = "savestate: no such slot (%s)"
	InvalidSlotName  = "savestate: invalid slot name (%q)"
)
