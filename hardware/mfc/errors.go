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

package mfc

import "github.com/jetsetilly/gophercell/curated"

// Sentinal error patterns.
const (
	QueueFull      = "mfc: command queue full (port %d)"
	TargetUnmapped = "mfc: target unmapped (%#08x+%d)"
	BadCommand     = "mfc: bad command: %v"
	NoChannel      = "mfc: no such channel (%d)"
	NoPort         = "mfc: no such port (%d)"
	DrainTimeout   = "mfc: commands still in flight after %v"
	BadState       = "mfc: cannot restore state: %v"
)

// Guest visible status codes. These are the values seen by the guest in the
// command status channel and in the result of proxy commands.
const (
	StatusOK      = uint32(0)
	StatusInvalid = uint32(0x80010002)
	StatusBusy    = uint32(0x8001000a)
	StatusFault   = uint32(0x8001000d)
)

// StatusOf returns the guest visible status for an error.
func StatusOf(err error) uint32 {
	switch {
	case err == nil:
		return StatusOK
	case curated.Is(err, QueueFull):
		return StatusBusy
	case curated.Is(err, BadCommand):
		return StatusInvalid
	}
	return StatusFault
}
