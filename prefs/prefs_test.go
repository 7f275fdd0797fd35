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

package prefs_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/prefs"
	"github.com/jetsetilly/gophercell/test"
)

func cmpFile(t *testing.T, fn string, expected string) {
	t.Helper()

	data, err := os.ReadFile(fn)
	test.DemandSuccess(t, err)

	expected = fmt.Sprintf("%s\n%s", prefs.WarningBoilerPlate, expected)
	test.ExpectEquality(t, string(data), expected)
}

func TestBool(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "prefs")

	dsk, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)

	var v, w, x prefs.Bool
	test.ExpectSuccess(t, dsk.Add("test", &v))
	test.ExpectSuccess(t, dsk.Add("testB", &w))
	test.ExpectSuccess(t, dsk.Add("testC", &x))
	test.ExpectFailure(t, dsk.Add("testC", &x))

	test.ExpectSuccess(t, v.Set(true))
	test.ExpectSuccess(t, w.Set("foo"))
	test.ExpectSuccess(t, x.Set("TRUE"))
	test.ExpectFailure(t, x.Set(10))

	test.DemandSuccess(t, dsk.Save())
	cmpFile(t, fn, "test :: true\ntestB :: false\ntestC :: true\n")
}

func TestIntAndLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "prefs")

	dsk, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)

	var v, w prefs.Int
	test.ExpectSuccess(t, dsk.Add("number", &v))
	test.ExpectSuccess(t, dsk.Add("numberB", &w))
	test.ExpectSuccess(t, v.Set(10))
	test.ExpectSuccess(t, w.Set("99"))
	test.DemandSuccess(t, dsk.Save())
	cmpFile(t, fn, "number :: 10\nnumberB :: 99\n")

	test.ExpectFailure(t, v.Set("---"))
	test.ExpectFailure(t, v.Set(1.0))

	test.ExpectSuccess(t, v.Reset())
	test.ExpectSuccess(t, w.Reset())
	test.DemandSuccess(t, dsk.Load(false))
	test.ExpectEquality(t, v.Value(), 10)
	test.ExpectEquality(t, w.Value(), 99)
}

// a second Disk instance sharing the file must not clobber the first.
func TestSharedFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "prefs")

	dsk, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)
	var v prefs.Bool
	test.ExpectSuccess(t, dsk.Add("test", &v))
	test.ExpectSuccess(t, v.Set(true))
	test.DemandSuccess(t, dsk.Save())

	dsk, err = prefs.NewDisk(fn)
	test.DemandSuccess(t, err)
	var s prefs.String
	test.ExpectSuccess(t, dsk.Add("foo", &s))
	test.ExpectSuccess(t, s.Set("bar"))
	test.DemandSuccess(t, dsk.Save())

	cmpFile(t, fn, "foo :: bar\ntest :: true\n")
}

func TestStringOptions(t *testing.T) {
	var s prefs.String
	s.SetOptions("fast", "atomic", "ordered")
	test.ExpectSuccess(t, s.Set("Atomic"))
	test.ExpectEquality(t, s.String(), "ATOMIC")
	test.ExpectFailure(t, s.Set("slow"))
	test.ExpectEquality(t, s.String(), "ATOMIC")
	test.ExpectSuccess(t, s.Reset())
	test.ExpectEquality(t, s.String(), "FAST")
}

func TestHookVeto(t *testing.T) {
	const vetoed = "vetoed"

	var b prefs.Bool
	b.SetHookPre(func(v prefs.Value) error {
		if v.(bool) {
			return curated.Errorf(vetoed)
		}
		return nil
	})

	err := b.Set(true)
	test.ExpectSuccess(t, curated.Is(err, vetoed))
	test.ExpectEquality(t, b.Value(), false)

	var post int
	b.SetHookPost(func(v prefs.Value) error {
		post++
		return nil
	})
	test.ExpectSuccess(t, b.Set(false))
	test.ExpectEquality(t, post, 1)
}

func TestCommandLineOverride(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "prefs")

	dsk, err := prefs.NewDisk(fn)
	test.DemandSuccess(t, err)
	var v prefs.Int
	test.ExpectSuccess(t, dsk.Add("cell.vector.count", &v))
	test.ExpectSuccess(t, v.Set(6))
	test.DemandSuccess(t, dsk.Save())

	prefs.PushCommandLineStack("cell.vector.count::2")
	defer prefs.PopCommandLineStack()

	test.DemandSuccess(t, dsk.Load(false))
	test.ExpectEquality(t, v.Value(), 2)
}

func TestDuration(t *testing.T) {
	var d prefs.Duration
	test.ExpectEquality(t, d.Value(), time.Duration(0))

	test.ExpectSuccess(t, d.Set(1500))
	test.ExpectEquality(t, d.Value(), 1500*time.Millisecond)
	test.ExpectEquality(t, d.String(), "1.5s")

	test.ExpectSuccess(t, d.Set("250ms"))
	test.ExpectEquality(t, d.Value(), 250*time.Millisecond)

	test.ExpectSuccess(t, d.Set(" 2000 "))
	test.ExpectEquality(t, d.Value(), 2*time.Second)

	test.ExpectFailure(t, d.Set("soon"))
	test.ExpectFailure(t, d.Set(-1))
	test.ExpectFailure(t, d.Set(1.5))
	test.ExpectEquality(t, d.Value(), 2*time.Second)
}
