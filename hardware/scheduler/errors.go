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

package scheduler

// Sentinal error patterns.
const (
	Deadlock       = "scheduler: deadlock: threads failed to stop within %v (%s)"
	UnknownThread  = "scheduler: no such thread (%d)"
	UnknownGroup   = "scheduler: no such group (%d)"
	AlreadyStarted = "scheduler: already started"
	NotPaused      = "scheduler: operation requires the scheduler to be paused"
	BadThreadState = "scheduler: thread %d is %s"
)
