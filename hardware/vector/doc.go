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

// Package vector implements the vector co-processor cores of the machine.
// The instruction set is a subset of the SPU instruction set.
//
// A vector core executes from its own private local store. It cannot access
// guest memory directly. Data is moved between the local store and guest
// memory by the DMA engine, which the core talks to through channels (the
// rdch, wrch and rchcnt instructions). The Channels interface is
// implemented by the mfc package.
//
// Each vector core has its own Translator because the code it executes is
// in its own local store. Translation follows the same three tiers as the
// scalar core.
//
// Floating point arithmetic in the accurate tier follows the extended
// single precision format of the SPU. In that format the largest exponent
// is an ordinary exponent, denormals are treated as zero, overflow
// saturates and rounding is always toward zero. The fast tier uses host
// float32 arithmetic.
package vector
