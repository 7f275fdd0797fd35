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

package main

import (
	"fmt"
	"os"

	"github.com/jetsetilly/gophercell/environment"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/modalflag"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/tebeka/atexit"
)

// imageFlags are the flags common to every mode that loads a guest image.
type imageFlags struct {
	entry  *uint32
	base   *uint32
	raw    *bool
	vector *string
}

func addImageFlags(md *modalflag.Modes) imageFlags {
	return imageFlags{
		entry:  md.AddAddress("entry", 0, "entry address. zero is the entry address of the image"),
		base:   md.AddAddress("base", hardware.StackSize, "load address of a raw image"),
		raw:    md.AddBool("raw", false, "the image is a raw binary rather than ELF"),
		vector: md.AddString("vector", "", "ELF image to place in the local store of every vector core"),
	}
}

// load the scalar image named by the first remaining argument.
func (f imageFlags) load(md *modalflag.Modes) (*loader.Image, error) {
	switch len(md.RemainingArgs()) {
	case 0:
		return nil, fmt.Errorf("guest image required for %s mode", md)
	case 1:
	default:
		return nil, fmt.Errorf("too many arguments for %s mode", md)
	}

	filename := md.GetArg(0)
	if !*f.raw {
		return loader.LoadFile(filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	entry := *f.entry
	if entry == 0 {
		entry = *f.base
	}
	return loader.NewRaw(data, *f.base, entry, loader.Scalar), nil
}

// newMachine creates the machine with the preferences from disk. the
// machine is stopped and released when the program exits.
func newMachine(notify notifications.Notify) (*hardware.Machine, error) {
	p, err := preferences.NewPreferences()
	if err != nil {
		return nil, err
	}

	env := environment.NewEnvironment(environment.MainEmulation, p, notify)
	m, err := hardware.NewMachine(env, nil)
	if err != nil {
		return nil, err
	}

	atexit.Register(func() {
		if err := m.Stop(0); err != nil {
			logger.Log(env, "machine", err)
		}
		if err := m.Release(); err != nil {
			logger.Log(env, "machine", err)
		}
	})

	return m, nil
}

// prepare the vector image, if one has been named.
func (f imageFlags) prepare(m *hardware.Machine) error {
	if *f.vector == "" {
		return nil
	}
	img, err := loader.LoadFile(*f.vector)
	if err != nil {
		return err
	}
	return m.LoadVector(img)
}
