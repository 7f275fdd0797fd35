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

// Package scalar implements the general purpose core of the machine. The
// instruction set is a subset of 64-bit PowerPC with 32-bit effective
// addresses.
//
// Every logical scalar thread has its own Core. The Translator, and the
// cache of translated units it owns, is shared by all scalar threads in a
// machine because they execute from the same guest memory.
//
// Instructions are decoded once into a decoded value and then executed by a
// handler from the handlers table. The three translation tiers differ in how
// often that happens:
//
//	Interpreter: fetch, decode and handle every instruction every time
//	Threaded: a block of decoded instructions is cached and the handlers are
//	called in sequence
//	Native: the block is compiled into a sequence of closures specialised
//	for the operands of each instruction
//
// All tiers use the same floating point unit for a given accuracy setting,
// so the results of a block are identical regardless of tier.
//
// System calls are not handled by the core. The sc instruction causes the
// Kernel to be called with the Core as an argument.
package scalar
