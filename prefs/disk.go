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

package prefs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jetsetilly/gophercell/curated"
)

// WarningBoilerPlate is added to the head of every preferences file.
const WarningBoilerPlate = "*** do not edit this file by hand unless the emulator is not running ***"

// the separator between key and value in the preferences file.
const separator = " :: "

// Sentinal error patterns.
const (
	DuplicateKey  = "prefs: duplicate key (%s)"
	InvalidPrefs  = "prefs: invalid preferences file (%s)"
	UnregisteredK = "prefs: key not registered (%s)"
)

// Disk represents preference values as stored on disk.
type Disk struct {
	crit    sync.Mutex
	path    string
	entries map[string]pref
}

func (dsk *Disk) String() string {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	s := strings.Builder{}
	for _, k := range dsk.keys() {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, separator, dsk.entries[k]))
	}
	return s.String()
}

// NewDisk is the preferred method of initialisation for the Disk type. The
// file is not accessed until Load() or Save() is called.
func NewDisk(path string) (*Disk, error) {
	return &Disk{
		path:    path,
		entries: make(map[string]pref),
	}, nil
}

// Add a preference value to the disk instance.
func (dsk *Disk) Add(key string, p pref) error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	key = strings.TrimSpace(key)
	if _, ok := dsk.entries[key]; ok {
		return curated.Errorf(DuplicateKey, key)
	}
	dsk.entries[key] = p
	return nil
}

// Set the value of a registered key.
func (dsk *Disk) Set(key string, v Value) error {
	dsk.crit.Lock()
	p, ok := dsk.entries[key]
	dsk.crit.Unlock()
	if !ok {
		return curated.Errorf(UnregisteredK, key)
	}
	return p.Set(v)
}

// Keys returns the sorted list of registered keys.
func (dsk *Disk) Keys() []string {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()
	return dsk.keys()
}

func (dsk *Disk) keys() []string {
	k := make([]string, 0, len(dsk.entries))
	for key := range dsk.entries {
		k = append(k, key)
	}
	sort.Strings(k)
	return k
}

// read the preferences file. a missing file is not an error.
func (dsk *Disk) read() (map[string]string, error) {
	vals := make(map[string]string)

	f, err := os.Open(dsk.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vals, nil
		}
		return nil, curated.Errorf(InvalidPrefs, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// the first line must be the warning
	if !scanner.Scan() {
		return vals, nil
	}
	if scanner.Text() != WarningBoilerPlate {
		return nil, curated.Errorf(InvalidPrefs, "missing header")
	}

	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), separator, 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if isDefunct(key) {
			continue
		}
		vals[key] = kv[1]
	}

	if err := scanner.Err(); err != nil {
		return nil, curated.Errorf(InvalidPrefs, err)
	}

	return vals, nil
}

// Save current preference values to disk. Values in the file for keys that
// are not registered with this Disk are preserved.
func (dsk *Disk) Save() error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	vals, err := dsk.read()
	if err != nil {
		return err
	}
	for k, p := range dsk.entries {
		vals[k] = p.String()
	}

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := os.MkdirAll(filepath.Dir(dsk.path), 0o700); err != nil {
		return curated.Errorf(InvalidPrefs, err)
	}

	s := strings.Builder{}
	s.WriteString(WarningBoilerPlate)
	s.WriteString("\n")
	for _, k := range keys {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, separator, vals[k]))
	}

	if err := os.WriteFile(dsk.path, []byte(s.String()), 0o600); err != nil {
		return curated.Errorf(InvalidPrefs, err)
	}

	return nil
}

// Load preference values from disk and then apply any command line
// overrides. If ignoreErrors is true then values that cannot be set (because
// they are invalid or vetoed by a hook) are skipped.
func (dsk *Disk) Load(ignoreErrors bool) error {
	dsk.crit.Lock()
	defer dsk.crit.Unlock()

	vals, err := dsk.read()
	if err != nil {
		return err
	}

	for _, k := range dsk.keys() {
		if v, ok := vals[k]; ok {
			if err := dsk.entries[k].Set(v); err != nil && !ignoreErrors {
				return err
			}
		}
		if ok, v := GetCommandLinePref(k); ok {
			if err := dsk.entries[k].Set(v); err != nil && !ignoreErrors {
				return err
			}
		}
	}

	return nil
}
