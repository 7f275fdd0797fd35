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

// Package translator contains the parts of instruction translation that are
// common to both core types: the tier and accuracy settings, the Unit
// interface implemented by every executable unit, page coverage with
// generation tracking, and the Cache of translated units.
//
// The ISA specific decoding and compilation is in the scalar and vector
// packages. Each produces units of three tiers:
//
//	Interpreter: decode and dispatch one instruction at a time
//	Threaded: a block pre-decoded into a chain of handler calls
//	Native: a block compiled into specialised host closures
//
// A unit records the generation of every page it was translated from. When
// any of those pages is written the generation changes and the unit is
// discarded on its next lookup. Units are never patched in place.
package translator
