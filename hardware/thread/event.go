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

import "sync"

// Event is a broadcast notification. Waiters obtain a channel with Wait(),
// which is closed on the next call to Notify().
type Event struct {
	crit sync.Mutex
	ch   chan struct{}
}

// NewEvent is the preferred method of initialisation for the Event type.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Wait returns a channel that will be closed by the next Notify().
func (e *Event) Wait() <-chan struct{} {
	e.crit.Lock()
	defer e.crit.Unlock()
	return e.ch
}

// Notify wakes all current waiters.
func (e *Event) Notify() {
	e.crit.Lock()
	defer e.crit.Unlock()
	close(e.ch)
	e.ch = make(chan struct{})
}

// Closed is a channel that is always closed. Used as the Wake channel of a
// yield when the thread can be retried immediately.
var Closed <-chan struct{}

func init() {
	c := make(chan struct{})
	close(c)
	Closed = c
}
