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

package paths_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jetsetilly/gophercell/paths"
	"github.com/jetsetilly/gophercell/test"
)

func TestPaths(t *testing.T) {
	base := t.TempDir()
	paths.SetBase(base)
	defer paths.SetBase("")

	pth, err := paths.ResourcePath("foo", "bar", "baz")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pth, filepath.Join(base, "foo", "bar", "baz"))

	// parent directory of the resource has been created
	info, err := os.Stat(filepath.Join(base, "foo", "bar"))
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, info.IsDir())

	pth, err = paths.ResourcePath("")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pth, base)
}

func TestUniqueFilename(t *testing.T) {
	fn := paths.UniqueFilename("quick", "boot")
	test.ExpectSuccess(t, strings.HasPrefix(fn, "quick_boot_"))

	fn = paths.UniqueFilename("quick", "  ")
	test.ExpectSuccess(t, strings.HasPrefix(fn, "quick_"))
	test.ExpectFailure(t, strings.HasPrefix(fn, "quick__"))
}
