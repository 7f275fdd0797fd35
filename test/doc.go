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

// Package test contains helper functions that remove common boilerplate from
// the tests of the other packages.
//
// The Expect*() functions report failure with t.Errorf() and allow the test
// to continue. The Demand*() functions use t.Fatalf() and are used when the
// value being tested is needed by later parts of the test.
//
// Success and failure are interpreted according to the type of the value:
//
//	bool  -> true is success
//	error -> nil is success
//	nil   -> success
//
// The nil case is not obvious but it is necessary because a nil error passed
// through an interface{} argument arrives as an untyped nil.
//
// The CompareWriter and CappedWriter types implement io.Writer and are used
// to capture output for later comparison.
package test
