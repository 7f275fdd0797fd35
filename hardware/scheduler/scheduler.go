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
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/logger"
)

// Scheduler runs logical threads on host goroutines.
type Scheduler struct {
	env logger.Permission
	cfg Config

	quantum     atomic.Int64
	haltOnFault atomic.Bool

	// set when every thread should stop at the next safepoint
	interrupt atomic.Bool

	// scheduler wide lock
	crit sync.Mutex

	threads []*Thread
	groups  []*Group

	started  bool
	paused   bool
	stopping bool

	// number of threads currently being run by a worker
	executing int

	tick    uint64
	nextCPU int

	// notified on any change that might allow a thread to run or that
	// might interest a waiting caller
	changed *thread.Event

	ctx     context.Context
	cancel  context.CancelFunc
	workers *errgroup.Group

	observer func(*Thread, thread.Yield)
}

// NewScheduler is the preferred method of initialisation for the Scheduler
// type. The Auto policy is resolved immediately.
func NewScheduler(env logger.Permission, cfg Config) *Scheduler {
	cfg = cfg.resolve()
	s := &Scheduler{
		env:     env,
		cfg:     cfg,
		changed: thread.NewEvent(),
	}
	s.quantum.Store(int64(cfg.Quantum))
	s.haltOnFault.Store(cfg.HaltOnFault)
	logger.Logf(env, "scheduler", "policy %s (%d host cores)", cfg.Policy, runtime.NumCPU())
	return s
}

// Policy returns the policy in use. Never returns Auto.
func (s *Scheduler) Policy() Policy {
	return s.cfg.Policy
}

// SetQuantum changes the number of instructions per slice. Takes effect at
// the next slice.
func (s *Scheduler) SetQuantum(n int) {
	if n > 0 {
		s.quantum.Store(int64(n))
	}
}

// SetHaltOnFault changes whether a faulting thread pauses the scheduler.
func (s *Scheduler) SetHaltOnFault(halt bool) {
	s.haltOnFault.Store(halt)
}

// SetStopTimeout changes the timeout used by Stop() when called with a zero
// duration.
func (s *Scheduler) SetStopTimeout(d time.Duration) {
	s.crit.Lock()
	defer s.crit.Unlock()
	if d > 0 {
		s.cfg.StopTimeout = d
	}
}

// SetObserver installs a function that is called every time a thread yields.
// The function is called without the scheduler lock held.
func (s *Scheduler) SetObserver(f func(*Thread, thread.Yield)) {
	s.crit.Lock()
	defer s.crit.Unlock()
	s.observer = f
}

// NewGroup creates a new thread group.
func (s *Scheduler) NewGroup(name string, priority int, affinity uint64) *Group {
	s.crit.Lock()
	defer s.crit.Unlock()
	g := &Group{
		id:       len(s.groups),
		name:     name,
		priority: priority,
		affinity: affinity,
		release:  thread.NewEvent(),
		ev:       thread.NewEvent(),
	}
	s.groups = append(s.groups, g)
	return g
}

// Group returns the group with the specified ID.
func (s *Scheduler) Group(id int) (*Group, error) {
	s.crit.Lock()
	defer s.crit.Unlock()
	if id < 0 || id >= len(s.groups) {
		return nil, curated.Errorf(UnknownGroup, id)
	}
	return s.groups[id], nil
}

// AddThread adds a Runnable to the scheduler. The new thread is Idle until
// StartThread() or StartGroup() is called. A negative priority inherits the
// priority of the group.
func (s *Scheduler) AddThread(r Runnable, priority int, g *Group) *Thread {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.add(r, priority, g)
}

func (s *Scheduler) add(r Runnable, priority int, g *Group) *Thread {
	if priority < 0 {
		if g != nil {
			priority = g.priority
		} else {
			priority = 0
		}
	}

	t := &Thread{
		run:      r,
		group:    g,
		priority: priority,
		kick:     thread.NewEvent(),
		done:     make(chan struct{}),
	}
	t.safepoint = func() bool {
		if s.interrupt.Load() {
			return true
		}
		if t.preempt.Load() {
			t.preempt.Store(false)
			return true
		}
		return t.group != nil && t.group.halted.Load()
	}
	t.status.Set(thread.Idle, thread.NoReason)

	s.threads = append(s.threads, t)
	if g != nil {
		g.members = append(g.members, t)
	}

	if s.started && !s.stopping && s.cfg.Policy != Timesliced {
		s.spawn(t)
	}

	return t
}

// StartThread makes an Idle thread runnable.
func (s *Scheduler) StartThread(t *Thread) error {
	s.crit.Lock()
	defer s.crit.Unlock()
	if st := t.status.State(); st != thread.Idle {
		return curated.Errorf(BadThreadState, t.ID(), st)
	}
	t.status.Set(thread.Running, thread.NoReason)
	s.changed.Notify()
	return nil
}

// StartGroup makes every Idle member of the group runnable at the same
// moment.
func (s *Scheduler) StartGroup(g *Group) error {
	s.crit.Lock()
	defer s.crit.Unlock()
	for _, t := range g.members {
		if t.status.State() == thread.Idle {
			t.status.Set(thread.Running, thread.NoReason)
		}
	}
	g.started = true
	g.ev.Notify()
	s.changed.Notify()
	return nil
}

// Thread returns the thread with the specified ID.
func (s *Scheduler) Thread(id int) (*Thread, error) {
	s.crit.Lock()
	defer s.crit.Unlock()
	for _, t := range s.threads {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, curated.Errorf(UnknownThread, id)
}

// Threads returns a summary of every thread in the order they were added.
func (s *Scheduler) Threads() []thread.Info {
	s.crit.Lock()
	threads := append([]*Thread(nil), s.threads...)
	s.crit.Unlock()

	info := make([]thread.Info, 0, len(threads))
	for _, t := range threads {
		info = append(info, t.Info())
	}
	return info
}

// Wake a blocked thread. The thread will retry whatever it was doing when it
// blocked.
func (s *Scheduler) Wake(t *Thread) {
	t.kick.Notify()
}

// Unblock a thread that is blocked for the specified reason. Unlike Wake(),
// the thread is runnable when the function returns. Returns false if the
// thread was not blocked for that reason.
func (s *Scheduler) Unblock(t *Thread, reason thread.Reason) bool {
	s.crit.Lock()
	defer s.crit.Unlock()

	if st, r := t.status.Get(); st != thread.Blocked || r != reason {
		return false
	}

	// retire the watcher for the block
	t.blockGen++
	t.wake = nil
	t.kickWait = nil
	t.watched = false
	t.kick.Notify()

	t.status.Set(thread.Running, thread.NoReason)
	s.changed.Notify()
	return true
}

// Start the scheduler. Threads that have been started will begin running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.crit.Lock()
	defer s.crit.Unlock()

	if s.started {
		return curated.Errorf(AlreadyStarted)
	}
	s.started = true

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.workers, s.ctx = errgroup.WithContext(s.ctx)

	if s.cfg.Policy == Timesliced {
		for i := 0; i < s.cfg.Workers; i++ {
			s.workers.Go(func() error {
				return s.pool(s.ctx)
			})
		}
	} else {
		for _, t := range s.threads {
			s.spawn(t)
		}
	}

	// watchers for threads that were blocked before the scheduler started
	for _, t := range s.threads {
		if t.status.State() == thread.Blocked && !t.watched {
			s.watch(t)
		}
	}

	return nil
}

// spawn a dedicated worker for the thread. must be called with the lock held.
func (s *Scheduler) spawn(t *Thread) {
	var cpu int
	if t.group != nil {
		cpu = t.group.cpu(s.nextCPU, runtime.NumCPU())
	} else {
		cpu = s.nextCPU % runtime.NumCPU()
	}
	s.nextCPU++

	ctx := s.ctx
	s.workers.Go(func() error {
		return s.dedicated(ctx, t, cpu)
	})
}

func (s *Scheduler) dedicated(ctx context.Context, t *Thread, cpu int) error {
	if s.cfg.Policy == Pinned {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pin(cpu); err != nil {
			logger.Logf(s.env, "scheduler", "%s: cannot pin to host core %d: %v", t.Name(), cpu, err)
		}
	}

	for {
		s.crit.Lock()
		if s.stopping || t.removed || t.finished() {
			s.crit.Unlock()
			return nil
		}
		if !s.runnable(t) {
			w := s.changed.Wait()
			s.crit.Unlock()
			select {
			case <-w:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		s.begin(t)
		s.crit.Unlock()

		s.execute(t)
	}
}

func (s *Scheduler) pool(ctx context.Context) error {
	for {
		s.crit.Lock()
		if s.stopping {
			s.crit.Unlock()
			return nil
		}
		t := s.pick()
		if t == nil {
			w := s.changed.Wait()
			s.crit.Unlock()
			select {
			case <-w:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		s.begin(t)
		s.crit.Unlock()

		s.execute(t)
	}
}

// pick the runnable thread with the highest priority that has waited
// longest. must be called with the lock held.
func (s *Scheduler) pick() *Thread {
	var best *Thread
	for _, t := range s.threads {
		if t.removed || !s.runnable(t) {
			continue
		}
		if best == nil || t.priority < best.priority || (t.priority == best.priority && t.tick < best.tick) {
			best = t
		}
	}
	return best
}

// must be called with the lock held.
func (s *Scheduler) runnable(t *Thread) bool {
	if s.paused || t.executing || t.status.State() != thread.Running {
		return false
	}
	return t.group == nil || !s.cfg.StrictGroups || !t.group.stopped
}

// must be called with the lock held.
func (s *Scheduler) begin(t *Thread) {
	t.executing = true
	s.executing++
	s.tick++
	t.tick = s.tick
}

func (s *Scheduler) execute(t *Thread) {
	quantum := s.cfg.slice(int(s.quantum.Load()))
	y := t.run.Run(quantum, t.safepoint)
	s.yielded(t, y)
}

func (s *Scheduler) yielded(t *Thread, y thread.Yield) {
	s.crit.Lock()

	t.executing = false
	s.executing--
	t.last = y

	// the thread was abandoned by Stop() or removed by Clear()
	if t.finished() || t.removed {
		s.changed.Notify()
		s.crit.Unlock()
		return
	}

	switch y.Type {
	case thread.YieldBudget:

	case thread.YieldBlocked:
		t.wake = y.Wake
		if y.Reason == thread.OnGroup && t.group != nil {
			t.wake = s.stopGroup(t.group, t, y.Status)
		}
		s.block(t, y.Reason)

	case thread.YieldBreakpoint:
		t.wake = nil
		s.block(t, thread.OnBreakpoint)

	case thread.YieldExit:
		t.exitStatus = y.Status
		s.finish(t, thread.Terminated, thread.NoReason)

	case thread.YieldFault:
		t.fault = y.Error
		logger.Logf(s.env, "scheduler", "%s: %v", t.Name(), y.Error)
		s.finish(t, thread.Halted, thread.Fault)
		if s.haltOnFault.Load() {
			s.paused = true
			s.interrupt.Store(true)
		}
	}

	s.changed.Notify()
	observer := s.observer
	s.crit.Unlock()

	if observer != nil {
		observer(t, y)
	}
}

// Step runs a thread outside of the normal scheduling loop. The scheduler
// must be paused (or not yet started) and the thread must be runnable or
// stopped on a breakpoint. The yield returned by the function is applied to
// the thread as though it had been returned by Run(). A thread stopped on a
// breakpoint remains stopped unless the step caused some other transition.
func (s *Scheduler) Step(t *Thread, f func(Runnable) thread.Yield) (thread.Yield, error) {
	s.crit.Lock()
	if s.started && !s.paused {
		s.crit.Unlock()
		return thread.Yield{}, curated.Errorf(NotPaused)
	}
	st, r := t.status.Get()
	if t.executing || t.removed || !(st == thread.Running || (st == thread.Blocked && r == thread.OnBreakpoint)) {
		s.crit.Unlock()
		return thread.Yield{}, curated.Errorf(BadThreadState, t.ID(), st)
	}
	t.executing = true
	s.executing++
	s.crit.Unlock()

	y := f(t.run)
	s.yielded(t, y)
	return y, nil
}

// must be called with the lock held.
func (s *Scheduler) block(t *Thread, reason thread.Reason) {
	t.kickWait = t.kick.Wait()
	t.status.Set(thread.Blocked, reason)
	t.blockGen++
	t.watched = false
	if s.started && !s.stopping {
		s.watch(t)
	}
}

// watch a blocked thread for a wake condition. must be called with the lock
// held.
func (s *Scheduler) watch(t *Thread) {
	t.watched = true
	gen := t.blockGen
	wake := t.wake
	kick := t.kickWait
	ctx := s.ctx
	s.workers.Go(func() error {
		select {
		case <-wake:
		case <-kick:
		case <-ctx.Done():
			return nil
		}
		s.unblock(t, gen)
		return nil
	})
}

func (s *Scheduler) unblock(t *Thread, gen uint64) {
	s.crit.Lock()
	defer s.crit.Unlock()
	if t.blockGen != gen || t.status.State() != thread.Blocked {
		return
	}
	t.wake = nil
	t.kickWait = nil
	t.status.Set(thread.Running, thread.NoReason)
	s.changed.Notify()
}

// must be called with the lock held.
func (s *Scheduler) finish(t *Thread, state thread.State, reason thread.Reason) {
	if t.finished() {
		return
	}
	t.blockGen++
	t.status.Set(state, reason)
	close(t.done)
	if t.group != nil {
		t.group.ev.Notify()
	}
}

// must be called with the lock held. returns the channel that is closed when
// the group is resumed.
func (s *Scheduler) stopGroup(g *Group, t *Thread, code uint32) <-chan struct{} {
	g.stopped = true
	g.stopCode = code
	g.stopper = t
	if s.cfg.StrictGroups {
		g.halted.Store(true)
	}
	g.ev.Notify()
	return g.release.Wait()
}

// ResumeGroup releases a stopped group. Has no effect if the group is not
// stopped.
func (s *Scheduler) ResumeGroup(g *Group) {
	s.crit.Lock()
	defer s.crit.Unlock()
	if !g.stopped {
		return
	}
	g.stopped = false
	g.stopper = nil
	g.halted.Store(false)
	g.release.Notify()
	g.ev.Notify()
	s.changed.Notify()
}

// GroupStatus returns the current status of the group.
func (s *Scheduler) GroupStatus(g *Group) GroupStatus {
	s.crit.Lock()
	defer s.crit.Unlock()
	st := GroupStatus{
		Started:  g.started,
		Stopped:  g.stopped,
		Finished: g.finished(),
		Code:     g.stopCode,
		Stopper:  -1,
		Wake:     g.ev.Wait(),
	}
	if g.stopper != nil {
		st.Stopper = g.stopper.ID()
	}
	return st
}

// ExitStatus returns the exit status of a terminated thread and the error of
// a halted thread.
func (s *Scheduler) ExitStatus(t *Thread) (uint32, error) {
	s.crit.Lock()
	defer s.crit.Unlock()
	return t.exitStatus, t.fault
}

// LastYield returns the most recent yield of the thread.
func (s *Scheduler) LastYield(t *Thread) thread.Yield {
	s.crit.Lock()
	defer s.crit.Unlock()
	return t.last
}

// Executing returns the number of threads currently being run.
func (s *Scheduler) Executing() int {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.executing
}

// Paused returns true if the scheduler is paused.
func (s *Scheduler) Paused() bool {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.paused
}

// Pause the scheduler. Returns when no thread is running or with a Deadlock
// error if that does not happen within the timeout. The scheduler remains
// paused even if an error is returned.
func (s *Scheduler) Pause(timeout time.Duration) error {
	s.crit.Lock()
	s.paused = true
	s.interrupt.Store(true)
	s.changed.Notify()
	s.crit.Unlock()
	return s.quiesce(timeout)
}

// Resume the scheduler after a Pause().
func (s *Scheduler) Resume() {
	s.crit.Lock()
	defer s.crit.Unlock()
	s.paused = false
	s.interrupt.Store(s.stopping)
	s.changed.Notify()
}

// stuck returns the names of the threads currently being run. must be
// called with the lock held.
func (s *Scheduler) stuck() string {
	var names []string
	for _, t := range s.threads {
		if t.executing {
			names = append(names, t.Name())
		}
	}
	return strings.Join(names, ", ")
}

func (s *Scheduler) quiesce(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		s.crit.Lock()
		if s.executing == 0 {
			s.crit.Unlock()
			return nil
		}
		w := s.changed.Wait()
		s.crit.Unlock()

		select {
		case <-w:
		case <-deadline.C:
			s.crit.Lock()
			defer s.crit.Unlock()
			return curated.Errorf(Deadlock, timeout, s.stuck())
		}
	}
}

// Stop the scheduler. Every thread is asked to stop at the next safepoint.
// If any thread fails to do so within the timeout then a Deadlock error is
// returned and the thread is abandoned. A zero timeout uses the configured
// stop timeout.
//
// Threads that have not terminated are halted with the Stopped reason. A
// stopped scheduler cannot be restarted.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.crit.Lock()
	if timeout <= 0 {
		timeout = s.cfg.StopTimeout
	}
	if s.stopping {
		s.crit.Unlock()
		return nil
	}
	s.stopping = true
	s.interrupt.Store(true)
	s.changed.Notify()
	started := s.started
	s.crit.Unlock()

	if !started {
		s.halt()
		return nil
	}

	s.cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.workers.Wait()
	}()

	select {
	case err := <-done:
		s.halt()
		return err
	case <-time.After(timeout):
	}

	s.crit.Lock()
	stuck := s.stuck()
	s.crit.Unlock()
	s.halt()

	err := curated.Errorf(Deadlock, timeout, stuck)
	logger.Log(s.env, "scheduler", err)
	return err
}

// halt every thread that has not finished.
func (s *Scheduler) halt() {
	s.crit.Lock()
	defer s.crit.Unlock()
	for _, t := range s.threads {
		s.finish(t, thread.Halted, thread.Stopped)
	}
	s.changed.Notify()
}

// Clear removes every thread and group. The scheduler must be paused or not
// yet started.
func (s *Scheduler) Clear() error {
	s.crit.Lock()
	defer s.crit.Unlock()
	if s.started && !s.paused {
		return curated.Errorf(NotPaused)
	}
	if s.executing > 0 {
		return curated.Errorf(NotPaused)
	}
	for _, t := range s.threads {
		t.removed = true
		t.blockGen++
	}
	s.threads = s.threads[:0]
	s.groups = s.groups[:0]
	s.changed.Notify()
	return nil
}

// Snapshot returns the scheduling state of a thread. The scheduler must be
// paused or not yet started.
func (s *Scheduler) Snapshot(t *Thread) ThreadState {
	s.crit.Lock()
	defer s.crit.Unlock()
	st, r := t.status.Get()
	return ThreadState{
		State:      st,
		Reason:     r,
		Priority:   t.priority,
		ExitStatus: t.exitStatus,
	}
}

// SnapshotGroup returns the state of a group.
func (s *Scheduler) SnapshotGroup(g *Group) GroupState {
	s.crit.Lock()
	defer s.crit.Unlock()
	st := GroupState{
		Name:     g.name,
		Priority: g.priority,
		Affinity: g.affinity,
		Started:  g.started,
		Stopped:  g.stopped,
		StopCode: g.stopCode,
		Stopper:  -1,
	}
	for i, t := range g.members {
		if t == g.stopper {
			st.Stopper = i
		}
	}
	return st
}

// RestoreGroup creates a group from a previously snapshotted state. Members
// are added with RestoreThread().
func (s *Scheduler) RestoreGroup(st GroupState) *Group {
	g := s.NewGroup(st.Name, st.Priority, st.Affinity)
	s.crit.Lock()
	defer s.crit.Unlock()
	g.started = st.Started
	g.stopped = st.Stopped
	g.stopCode = st.StopCode
	g.halted.Store(st.Stopped && s.cfg.StrictGroups)
	return g
}

// RestoreThread adds a Runnable with a previously snapshotted scheduling
// state. A thread that was blocked waiting for its group to be resumed is
// blocked again. A thread that was blocked for any other reason is made
// runnable and will retry the operation that blocked it.
func (s *Scheduler) RestoreThread(r Runnable, g *Group, st ThreadState) (*Thread, error) {
	s.crit.Lock()
	defer s.crit.Unlock()

	t := s.add(r, st.Priority, g)
	t.exitStatus = st.ExitStatus

	switch st.State {
	case thread.Idle:
	case thread.Running:
		t.status.Set(thread.Running, thread.NoReason)
	case thread.Blocked:
		if st.Reason == thread.OnGroup && g != nil && g.stopped {
			if g.stopper == nil {
				g.stopper = t
			}
			t.wake = g.release.Wait()
			s.block(t, thread.OnGroup)
		} else {
			t.status.Set(thread.Running, thread.NoReason)
		}
	case thread.Terminated, thread.Halted:
		if st.Reason == thread.Fault {
			t.fault = curated.Errorf(BadThreadState, r.ID(), fmt.Sprintf("%s before restore", st.State))
		}
		s.finish(t, st.State, st.Reason)
	default:
		return nil, curated.Errorf(BadThreadState, r.ID(), st.State)
	}

	s.changed.Notify()
	return t, nil
}
