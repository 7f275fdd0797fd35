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

	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/modalflag"
	"github.com/jetsetilly/gophercell/prefs"
	"github.com/jetsetilly/gophercell/statsview"
	"github.com/tebeka/atexit"
)

// exit values used when the program fails before the guest program has run.
// otherwise the exit value is the exit status of the guest program.
const (
	exitParse = 10
	exitMode  = 20
)

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("RUN", "DEBUG", "SLOTS")

	log := md.AddBool("log", false, "echo log to stdout")
	overrides := md.AddString("prefs", "", "preference overrides (key::value; key::value)")
	stats := md.AddBool("statsview", false, "launch the runtime statistics server")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		atexit.Exit(0)
	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		atexit.Exit(exitParse)
	}

	if *log {
		logger.SetEcho(os.Stdout)
	}
	if *overrides != "" {
		prefs.PushCommandLineStack(*overrides)
	}
	if *stats {
		if !statsview.Available() {
			fmt.Println("* statsview not available in this build")
		} else {
			statsview.Launch(os.Stdout)
		}
	}

	var status int
	switch md.Mode() {
	case "RUN":
		status, err = run(md)
	case "DEBUG":
		err = debug(md)
	case "SLOTS":
		err = slots(md)
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md, err)
		atexit.Exit(exitMode)
	}

	atexit.Exit(status)
}
