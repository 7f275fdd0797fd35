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

// Package loader prepares guest images for execution. Big-endian ELF32 and
// ELF64 executables are supported, as are raw binary images loaded at a
// fixed base address.
//
// An Image for the scalar core is placed in guest memory with the Map()
// function. Each loadable segment is mapped with the protection given by its
// program header. Segments that share a page share the union of their
// protections.
//
// An Image for the vector core is placed in a local store with the
// LoadLocalStore() function. Segment addresses are local store addresses.
package loader
