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

package localstore_test

import (
	"testing"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/test"
)

func TestQuadwords(t *testing.T) {
	ls := localstore.NewLocalStore()

	ls.WriteQuad(0x105, [4]uint32{1, 2, 3, 4})
	test.ExpectEquality(t, ls.ReadQuad(0x100), [4]uint32{1, 2, 3, 4})
	test.ExpectEquality(t, ls.Word(0x108), uint32(3))

	// addresses wrap with LSLR
	test.ExpectEquality(t, ls.ReadQuad(0x40100), [4]uint32{1, 2, 3, 4})
}

func TestBytes(t *testing.T) {
	ls := localstore.NewLocalStore()

	test.ExpectSuccess(t, ls.Write(0x11, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee}))
	test.ExpectEquality(t, ls.Word(0x10), uint32(0x00aabbcc))
	test.ExpectEquality(t, ls.Word(0x14), uint32(0xddee0000))

	p := make([]byte, 5)
	test.ExpectSuccess(t, ls.Read(0x11, p))
	test.ExpectEquality(t, string(p), string([]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee}))

	err := ls.Write(localstore.Size-2, []byte{1, 2, 3, 4})
	test.ExpectSuccess(t, curated.Is(err, localstore.OutOfRange))
}

func TestGenerations(t *testing.T) {
	ls := localstore.NewLocalStore()

	g := ls.Generation(0x400)
	ls.SetWord(0x400, 1)
	test.ExpectEquality(t, ls.Generation(0x400), g)

	ls.MarkCode(0x400, 8)
	ls.SetWord(0x404, 1)
	test.ExpectInequality(t, ls.Generation(0x400), g)

	// different page
	g = ls.Generation(0x800)
	test.ExpectSuccess(t, ls.Write(0x400, make([]byte, 16)))
	test.ExpectEquality(t, ls.Generation(0x800), g)
}

func TestSnapshot(t *testing.T) {
	ls := localstore.NewLocalStore()
	ls.SetWord(0x3fffc, 0x12345678)

	s := ls.Snapshot()
	ls.SetWord(0x3fffc, 0)
	test.DemandSuccess(t, ls.Plumb(s))
	test.ExpectEquality(t, ls.Word(0x3fffc), uint32(0x12345678))

	test.ExpectFailure(t, ls.Plumb(s[:100]))
}
