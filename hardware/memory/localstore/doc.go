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

// Package localstore implements the private memory of a vector core.
//
// The local store is 256KiB and is addressed with an 18 bit address. It is
// written by the owning core and by the DMA engine acting on behalf of that
// core, concurrently. For that reason storage is held as a slice of atomic
// words rather than as a byte slice. Words are stored in guest (big-endian)
// order.
//
// Like guest memory, the local store tracks page generations so that
// translated vector code can be revalidated after a DMA transfer or a store
// overwrites it.
package localstore
