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

import (
	"sort"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/logger"
)

// ScalarThreadState is the state of a single scalar thread.
type ScalarThreadState struct {
	ID     int
	Name   string
	Stack  uint32
	Core   scalar.State
	Thread scheduler.ThreadState
}

// VectorUnitState is the state of a vector core and its local store. The
// MFC port state is part of the MFC state.
type VectorUnitState struct {
	Core   vector.State
	LS     []byte
	Thread scheduler.ThreadState
}

// State is everything needed to resume a machine. It is produced by
// Snapshot() and consumed by Plumb(). Translated code is never part of the
// state.
type State struct {
	Memory  *memory.State
	MFC     *mfc.State
	Group   scheduler.GroupState
	Vectors []VectorUnitState
	Scalars []ScalarThreadState

	// ID of the main scalar thread
	Main       int
	NextScalar int
}

// Snapshot suspends every thread at its next block boundary and returns the
// state of the machine. Queued DMA commands are allowed to complete if the
// drain on suspend preference is set, otherwise they are recorded in the
// state. A running machine is resumed after the snapshot has been taken.
func (m *Machine) Snapshot() (*State, error) {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	switch m.Condition().State {
	case govern.Running:
		if err := m.pause(govern.PausedForSavestate); err != nil {
			return nil, err
		}
		defer m.resume()
	case govern.Paused:
	default:
		return nil, curated.Errorf(NotStarted)
	}

	m.crit.Lock()
	defer m.crit.Unlock()

	if m.deadlocked {
		return nil, curated.Errorf(UnserializableState, "a thread has been abandoned")
	}

	timeout := m.env.Prefs.StopTimeoutDuration()
	if m.env.Prefs.DrainOnSuspend.Value() {
		if err := m.MFC.Drain(timeout); err != nil {
			return nil, curated.Errorf(BusyIO, err)
		}
	}

	m.MFC.Freeze()
	defer m.MFC.Thaw()

	for _, st := range m.scalars {
		if err := st.core.Fault(); curated.Is(err, scalar.HostPanic) {
			return nil, curated.Errorf(UnserializableState, err)
		}
	}
	for _, v := range m.Vectors {
		if err := v.Core.Fault(); curated.Is(err, vector.HostPanic) {
			return nil, curated.Errorf(UnserializableState, err)
		}
	}

	s := &State{
		Memory:     m.Mem.Snapshot(),
		MFC:        m.MFC.Snapshot(),
		Group:      m.Scheduler.SnapshotGroup(m.group),
		NextScalar: m.nextScalar,
	}

	for _, v := range m.Vectors {
		s.Vectors = append(s.Vectors, VectorUnitState{
			Core:   *v.Core.Snapshot(),
			LS:     v.LS.Snapshot(),
			Thread: m.Scheduler.Snapshot(v.thread),
		})
	}

	for id, st := range m.scalars {
		s.Scalars = append(s.Scalars, ScalarThreadState{
			ID:     id,
			Name:   st.core.Name(),
			Stack:  st.stack,
			Core:   *st.core.Snapshot(),
			Thread: m.Scheduler.Snapshot(st.thread),
		})
		if st.thread == m.main {
			s.Main = id
		}
	}
	sort.Slice(s.Scalars, func(i, j int) bool {
		return s.Scalars[i].ID < s.Scalars[j].ID
	})

	return s, nil
}

// compatible checks that the state can be plumbed into the machine. Nothing
// is changed if the state is incompatible.
func (m *Machine) compatible(s *State) error {
	if s == nil || s.Memory == nil || s.MFC == nil {
		return curated.Errorf(IncompatibleState, "incomplete state")
	}
	if s.Memory.Size != m.Mem.Size() {
		return curated.Errorf(IncompatibleState, "guest memory size differs")
	}
	if len(s.Vectors) != len(m.Vectors) || len(s.MFC.Ports) != len(m.Vectors) {
		return curated.Errorf(IncompatibleState, "number of vector cores differs")
	}
	for _, v := range s.Vectors {
		if len(v.LS) != localstore.Size {
			return curated.Errorf(IncompatibleState, "local store size differs")
		}
	}
	if s.Group.Stopper >= len(m.Vectors) {
		return curated.Errorf(IncompatibleState, "group stopper out of range")
	}
	for _, v := range s.Vectors {
		if !v.Thread.Valid() {
			return curated.Errorf(IncompatibleState, "vector thread state")
		}
	}
	main := false
	ids := make(map[int]bool)
	for _, st := range s.Scalars {
		if st.ID < ScalarThreadBase || st.ID >= VectorThreadBase {
			return curated.Errorf(IncompatibleState, "scalar thread ID out of range")
		}
		if ids[st.ID] {
			return curated.Errorf(IncompatibleState, "duplicate scalar thread ID")
		}
		ids[st.ID] = true
		if !st.Thread.Valid() {
			return curated.Errorf(IncompatibleState, "scalar thread state")
		}
		main = main || st.ID == s.Main
	}
	if !main {
		return curated.Errorf(IncompatibleState, "no main thread")
	}

	if err := m.Mem.Compatible(s.Memory); err != nil {
		return curated.Errorf(IncompatibleState, err)
	}
	if err := m.MFC.Compatible(s.MFC); err != nil {
		return curated.Errorf(IncompatibleState, err)
	}
	return nil
}

// Plumb a previously snapshotted state into the machine, replacing every
// thread. The machine may be paused or not yet started. A machine that was
// not started is started. Translation caches are flushed and rebuilt as code
// is executed.
//
// An incompatible state is rejected before anything is changed, including
// states with malformed memory or DMA queues. Any other error leaves the
// machine paused with its state undefined.
func (m *Machine) Plumb(s *State) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	if err := m.compatible(s); err != nil {
		return err
	}

	state := m.Condition().State
	switch state {
	case govern.Off, govern.Paused:
	case govern.Running:
		if err := m.pause(govern.PausedForSavestate); err != nil {
			return err
		}
	default:
		return curated.Errorf(Ended)
	}

	if err := m.Scheduler.Clear(); err != nil {
		return err
	}

	m.MFC.Freeze()
	defer m.MFC.Thaw()

	m.crit.Lock()
	defer m.crit.Unlock()

	m.setCondition(govern.Initialising, govern.Normal)

	if err := m.Mem.Plumb(s.Memory); err != nil {
		return err
	}

	if err := m.MFC.Plumb(s.MFC); err != nil {
		return err
	}

	m.group = m.Scheduler.RestoreGroup(s.Group)
	for i, v := range m.Vectors {
		vs := s.Vectors[i]
		if err := v.LS.Plumb(vs.LS); err != nil {
			return err
		}
		v.Core.Plumb(&vs.Core)
		v.Core.Translator().Cache().Flush()

		t, err := m.Scheduler.RestoreThread(v.Core, m.group, vs.Thread)
		if err != nil {
			return err
		}
		v.thread = t
	}

	m.Scalar.Cache().Flush()
	m.scalars = make(map[int]*scalarThread)
	m.main = nil
	for _, ss := range s.Scalars {
		c := scalar.NewCore(ss.ID, ss.Name, m.Scalar, m.kernel)
		c.Plumb(&ss.Core)
		t, err := m.Scheduler.RestoreThread(c, nil, ss.Thread)
		if err != nil {
			return err
		}
		m.scalars[ss.ID] = &scalarThread{core: c, thread: t, stack: ss.Stack}
		if ss.ID == s.Main {
			m.main = t
		}
	}
	m.nextScalar = s.NextScalar

	if state == govern.Off {
		if err := m.boot(); err != nil {
			return err
		}
		m.setCondition(govern.Running, govern.Normal)
	} else if state == govern.Running {
		m.Scheduler.Resume()
		m.setCondition(govern.Running, govern.Normal)
	} else {
		m.setCondition(govern.Paused, govern.Normal)
	}

	logger.Logf(m.env, "machine", "plumbed state with %d scalar threads", len(s.Scalars))

	return nil
}
