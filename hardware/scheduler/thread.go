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

import (
	"sync/atomic"

	"github.com/jetsetilly/gophercell/hardware/thread"
)

// Runnable is a logical thread that can be run by the scheduler.
type Runnable interface {
	ID() int
	Name() string
	Kind() thread.Kind
	PC() uint32
	Retired() uint64

	// Run for the number of instructions in the budget, stopping early at a
	// block boundary if the safepoint function returns true
	Run(budget int, safepoint thread.Safepoint) thread.Yield
}

// Thread is a Runnable under the control of the scheduler.
type Thread struct {
	run      Runnable
	group    *Group
	priority int

	status thread.Status
	kick   *thread.Event

	// set by the debugger to stop a single thread at the next safepoint
	preempt atomic.Bool

	safepoint thread.Safepoint

	// the following fields are guarded by the scheduler lock

	// the thread is being run by a worker
	executing bool

	// channels to wait on while blocked. the watcher for the block is
	// identified by blockGen
	wake     <-chan struct{}
	kickWait <-chan struct{}
	blockGen uint64
	watched  bool

	last       thread.Yield
	exitStatus uint32
	fault      error

	// round robin ordering in the timesliced pool
	tick uint64

	removed bool
	done    chan struct{}
}

// Runnable returns the Runnable being run by the thread.
func (t *Thread) Runnable() Runnable {
	return t.run
}

// ID of the thread. The same as the ID of the Runnable.
func (t *Thread) ID() int {
	return t.run.ID()
}

// Name of the thread.
func (t *Thread) Name() string {
	return t.run.Name()
}

// Group returns the group the thread is a member of. Returns nil if the
// thread is not in a group.
func (t *Thread) Group() *Group {
	return t.group
}

// Priority of the thread. Lower values are higher priority.
func (t *Thread) Priority() int {
	return t.priority
}

// Status returns the state of the thread and the reason for it.
func (t *Thread) Status() (thread.State, thread.Reason) {
	return t.status.Get()
}

// Done returns a channel that is closed when the thread has terminated or
// halted.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Preempt asks the thread to stop at the next safepoint. It will remain
// runnable.
func (t *Thread) Preempt() {
	t.preempt.Store(true)
}

func (t *Thread) finished() bool {
	s := t.status.State()
	return s == thread.Terminated || s == thread.Halted
}

// Info returns a summary of the thread for display.
func (t *Thread) Info() thread.Info {
	s, r := t.status.Get()
	g := -1
	if t.group != nil {
		g = t.group.id
	}
	return thread.Info{
		ID:       t.run.ID(),
		Name:     t.run.Name(),
		Kind:     t.run.Kind(),
		State:    s,
		Reason:   r,
		PC:       t.run.PC(),
		Priority: t.priority,
		Group:    g,
		Retired:  t.run.Retired(),
	}
}

// ThreadState is the serialisable scheduling state of a Thread.
type ThreadState struct {
	State      thread.State
	Reason     thread.Reason
	Priority   int
	ExitStatus uint32
}

// Valid returns false if the state can not be restored by RestoreThread().
func (st ThreadState) Valid() bool {
	return st.State >= thread.Idle && st.State <= thread.Terminated
}
