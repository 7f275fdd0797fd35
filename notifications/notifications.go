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

package notifications

import (
	"sync"
)

// Notice describes events that somehow change the state of the emulation.
type Notice string

// List of defined notifications.
const (
	// the machine as a whole changed state. data is a govern.Condition
	NotifyMachineState Notice = "NotifyMachineState"

	// a logical thread changed state. data is a thread.Transition
	NotifyThreadState Notice = "NotifyThreadState"

	// a logical thread has halted because of a guest fault. data is a
	// thread.FaultReport
	NotifyGuestFault Notice = "NotifyGuestFault"

	// a logical thread has stopped on a breakpoint. data is a thread.Transition
	NotifyBreakpoint Notice = "NotifyBreakpoint"

	// translation of a block failed and the block will be interpreted. data
	// is the error
	NotifyTranslationFailure Notice = "NotifyTranslationFailure"

	// periodic translation cache statistics. data is translator.Stats
	NotifyCacheStats Notice = "NotifyCacheStats"

	// a vector thread executed a stop-and-signal. data is a thread.Transition
	NotifyStopSignal Notice = "NotifyStopSignal"

	// the guest asked for a value to be printed. data is a string
	NotifyGuestPrint Notice = "NotifyGuestPrint"

	// a cooperative stop timed out. data is the error
	NotifyDeadlock Notice = "NotifyDeadlock"

	// a savestate has been created or restored. data is the slot name or ID
	NotifySavestate Notice = "NotifySavestate"
)

// Notify is used for communication from the emulation to the surrounding
// application.
type Notify interface {
	Notify(notice Notice, data interface{}) error
}

// Event is a single notification as recorded by a Recorder.
type Event struct {
	Notice Notice
	Data   interface{}
}

// Recorder is an implementation of Notify that keeps the most recent
// notifications. Safe to use from more than one goroutine.
type Recorder struct {
	crit   sync.Mutex
	max    int
	events []Event
	signal chan struct{}
}

// NewRecorder is the preferred method of initialisation for the Recorder
// type. A max value of zero means there is no limit.
func NewRecorder(max int) *Recorder {
	return &Recorder{
		max:    max,
		signal: make(chan struct{}, 1),
	}
}

// Notify implements the Notify interface.
func (r *Recorder) Notify(notice Notice, data interface{}) error {
	r.crit.Lock()
	r.events = append(r.events, Event{Notice: notice, Data: data})
	if r.max > 0 && len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
	r.crit.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

// Events returns a copy of the recorded notifications.
func (r *Recorder) Events() []Event {
	r.crit.Lock()
	defer r.crit.Unlock()
	c := make([]Event, len(r.events))
	copy(c, r.events)
	return c
}

// Count returns the number of recorded notifications of the specified type.
func (r *Recorder) Count(notice Notice) int {
	r.crit.Lock()
	defer r.crit.Unlock()
	var n int
	for _, e := range r.events {
		if e.Notice == notice {
			n++
		}
	}
	return n
}

// Signal returns a channel that receives a value (at most one is buffered)
// whenever a notification is recorded.
func (r *Recorder) Signal() <-chan struct{} {
	return r.signal
}

// Discard is an implementation of Notify that ignores all notifications.
type Discard struct{}

// Notify implements the Notify interface.
func (Discard) Notify(_ Notice, _ interface{}) error {
	return nil
}
