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

// Package memory implements the guest memory model: a flat big-endian
// address space backed by host memory, mapped and protected with page
// granularity.
//
// Every page has a generation counter. Writes to a page that has been marked
// as containing translated code advance the generation, which is how the
// translator detects self-modifying code without the memory keeping
// references to translated blocks.
//
// Reservations (load-and-reserve / store-conditional) are tracked per 128
// byte line. A store-conditional fails if any write to the line has started
// since the reservation was made, no matter which core or DMA transfer made
// the write. Lines are hashed into a fixed number of stripes; two lines that
// share a stripe can cause a spurious failure but never a false success.
//
// With RELAXED reservation strictness, ordinary stores from the cores do not
// take part in reservation tracking. Only conditional stores, atomic line
// stores and DMA transfers do.
package memory
