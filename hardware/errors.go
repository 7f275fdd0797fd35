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

package hardware

// Sentinal error patterns.
const (
	AlreadyStarted      = "machine: already started"
	NotStarted          = "machine: not started"
	NotPaused           = "machine: must be paused"
	Ended               = "machine: has ended and cannot be restarted"
	NoImage             = "machine: no image to start"
	BusyIO              = "machine: busy I/O in progress: %v"
	UnserializableState = "machine: unserializable state: %v"
	IncompatibleState   = "machine: state is incompatible with machine: %v"
	NoSuchThread        = "machine: no such thread (%d)"
)
