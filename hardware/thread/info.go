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

package thread

import "fmt"

// Info is a summary of a logical thread for display.
type Info struct {
	ID       int
	Name     string
	Kind     Kind
	State    State
	Reason   Reason
	PC       uint32
	Priority int
	Group    int
	Retired  uint64
}

func (i Info) String() string {
	s := fmt.Sprintf("%d %s (%s) pc=%#08x %s", i.ID, i.Name, i.Kind, i.PC, i.State)
	if i.Reason != NoReason {
		s = fmt.Sprintf("%s [%s]", s, i.Reason)
	}
	return s
}

// Transition is the data sent with notifications about a change in the state
// of a logical thread.
type Transition struct {
	Info

	// the yield that caused the transition
	Yield YieldType

	// stop code for stop-and-signal transitions
	Code uint32
}

func (t Transition) String() string {
	return fmt.Sprintf("%s after %s", t.Info, t.Yield)
}

// FaultReport is the data sent with the guest fault notification.
type FaultReport struct {
	Info
	Error error
}

func (f FaultReport) String() string {
	return fmt.Sprintf("%s: %v", f.Info, f.Error)
}
