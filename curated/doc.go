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

// Package curated wraps the plain Go error type with errors that remember the
// pattern they were created with.
//
// Patterns are stored as exported string constants by the package that owns
// the error. Callers test for a specific condition with Is(), or for a
// condition anywhere in the chain with Has():
//
//	const QueueFull = "mfc: queue full for core %d"
//
//	err := curated.Errorf(QueueFull, 3)
//	wrapped := curated.Errorf("kernel: %v", err)
//
//	curated.Is(err, QueueFull)      // true
//	curated.Is(wrapped, QueueFull)  // false
//	curated.Has(wrapped, QueueFull) // true
//
// The Error() implementation normalises the message so that duplicate
// adjacent parts ("memory: memory: unmapped") collapse to one. A part is a
// section of the message separated by ": ".
//
// Curated errors also implement Unwrap() so that the errors package in the
// standard library can see through them.
package curated
