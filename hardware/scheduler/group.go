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
	"math/bits"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/hardware/thread"
)

// Group is a collection of threads that are started together and that can
// be stopped and resumed together.
type Group struct {
	id       int
	name     string
	priority int
	affinity uint64

	// mirrors the stopped field for the safepoint function. only set if
	// strict groups are in effect
	halted atomic.Bool

	// notified when the group is resumed
	release *thread.Event

	// notified when the group stops or a member finishes
	ev *thread.Event

	// the following fields are guarded by the scheduler lock
	members  []*Thread
	started  bool
	stopped  bool
	stopCode uint32
	stopper  *Thread
}

// ID of the group.
func (g *Group) ID() int {
	return g.id
}

// Name of the group.
func (g *Group) Name() string {
	return g.name
}

// Priority of the group. Threads added to the group with a negative priority
// inherit this value.
func (g *Group) Priority() int {
	return g.priority
}

// Affinity mask of the group. Bit n set means that the threads of the group
// may be pinned to host core n. Zero means any core.
func (g *Group) Affinity() uint64 {
	return g.affinity
}

// cpu returns the host core for the nth thread pinned from the group.
func (g *Group) cpu(n int, ncpu int) int {
	mask := g.affinity
	if ncpu < 64 {
		mask &= (uint64(1) << ncpu) - 1
	}
	if mask == 0 {
		return n % ncpu
	}
	n %= bits.OnesCount64(mask)
	for ; n > 0; n-- {
		mask &= mask - 1
	}
	return bits.TrailingZeros64(mask)
}

func (g *Group) finished() bool {
	if len(g.members) == 0 {
		return false
	}
	for _, t := range g.members {
		if !t.finished() {
			return false
		}
	}
	return true
}

// GroupStatus is returned by Scheduler.GroupStatus().
type GroupStatus struct {
	Started  bool
	Stopped  bool
	Finished bool

	// the stop code and the thread that stopped the group
	Code    uint32
	Stopper int

	// closed when the group status might have changed
	Wake <-chan struct{}
}

// GroupState is the serialisable state of a Group.
type GroupState struct {
	Name     string
	Priority int
	Affinity uint64
	Started  bool
	Stopped  bool
	StopCode uint32

	// index into the group members. -1 if there is no stopper
	Stopper int
}
