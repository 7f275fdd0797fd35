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

package vector

// Sentinal error patterns.
const (
	IllegalInstruction = "vector: illegal instruction %#08x at %#05x"
	BadChannel         = "vector: bad channel access (%d) at %#05x"
	HostPanic          = "vector: host panic at %#05x: %v"
	BadState           = "vector: cannot restore state: %v"
)
