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

package paths

import (
	"os"
	"path/filepath"
	"sync"
)

// the base path for all resources when found in the current directory.
const baseResourcePath = ".gophercell"

var override struct {
	crit sync.Mutex
	base string
}

// SetBase forces the base path for all resources. An empty string restores
// the default policy.
func SetBase(base string) {
	override.crit.Lock()
	defer override.crit.Unlock()
	override.base = base
}

// ResourcePath returns the resource path joined to the base path. The
// directory containing the resource is created if necessary.
func ResourcePath(resource ...string) (string, error) {
	p := make([]string, 0, len(resource)+1)
	p = append(p, getBasePath())
	p = append(p, resource...)
	pth := filepath.Join(p...)

	dir := pth
	if len(resource) > 0 && resource[len(resource)-1] != "" {
		dir = filepath.Dir(pth)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	return pth, nil
}

func getBasePath() string {
	override.crit.Lock()
	defer override.crit.Unlock()

	if override.base != "" {
		return override.base
	}

	if _, err := os.Stat(baseResourcePath); err == nil {
		return baseResourcePath
	}

	cnf, err := os.UserConfigDir()
	if err != nil {
		return baseResourcePath
	}
	return filepath.Join(cnf, baseResourcePath[1:])
}
