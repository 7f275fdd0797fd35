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
	"context"
	"time"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
)

// HousekeepingInterval is how often hot-swappable preferences are applied
// and cache statistics are sent while the machine is running.
const HousekeepingInterval = 250 * time.Millisecond

// Start the machine. The image is placed in guest memory and the main scalar
// thread begins at the entry address. An entry address of zero means the
// entry address of the image.
func (m *Machine) Start(entry uint32, img *loader.Image) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	if err := m.startable(); err != nil {
		return err
	}
	if img == nil {
		return curated.Errorf(NoImage)
	}

	m.crit.Lock()
	defer m.crit.Unlock()

	m.setCondition(govern.Initialising, govern.Normal)

	if err := img.Map(m.Mem); err != nil {
		m.setCondition(govern.Off, govern.Normal)
		return err
	}
	if entry == 0 {
		entry = img.Entry
	}

	st, err := m.newScalarThread("main", entry, 0, MainPriority, StackSize)
	if err != nil {
		m.setCondition(govern.Off, govern.Normal)
		return err
	}
	m.main = st.thread

	if err := m.boot(); err != nil {
		m.setCondition(govern.Ending, govern.Normal)
		return err
	}
	if err := m.Scheduler.StartThread(st.thread); err != nil {
		return err
	}

	logger.Logf(m.env, "machine", "started at %#08x (%s)", entry, img)
	m.setCondition(govern.Running, govern.Normal)

	return nil
}

// LoadVector places a vector image in the local store of every vector core.
// The image is used when the group is started with an image size of zero.
// The machine must not be running.
func (m *Machine) LoadVector(img *loader.Image) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()
	if m.Condition().State == govern.Running {
		return curated.Errorf(NotPaused)
	}
	for _, v := range m.Vectors {
		if err := img.LoadLocalStore(v.LS); err != nil {
			return err
		}
		v.Core.Reset(img.Entry)
	}
	return nil
}

// must be called with the ctrl lock held.
func (m *Machine) startable() error {
	switch m.Condition().State {
	case govern.Off:
		return nil
	case govern.Ending:
		return curated.Errorf(Ended)
	}
	return curated.Errorf(AlreadyStarted)
}

// boot starts the engines of the machine. must be called with the ctrl and
// crit locks held.
func (m *Machine) boot() error {
	var ctx context.Context
	ctx, m.cancel = context.WithCancel(context.Background())

	m.env.Prefs.SetRunning(true)
	m.MFC.Start(ctx)
	if err := m.Scheduler.Start(ctx); err != nil {
		m.cancel()
		m.cancel = nil
		return err
	}

	m.housekeeping = make(chan struct{})
	go m.housekeep(ctx, m.housekeeping)

	return nil
}

// Stop the machine. Every thread is asked to stop and the machine waits for
// the timeout (zero means the stop timeout preference) before declaring a
// deadlock. A stopped machine cannot be restarted. Stopping a machine that
// has never started is not an error.
func (m *Machine) Stop(timeout time.Duration) error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()

	switch m.Condition().State {
	case govern.Ending:
		return nil
	case govern.Off:
		m.crit.Lock()
		m.setCondition(govern.Ending, govern.Normal)
		m.crit.Unlock()
		return nil
	}

	err := m.Scheduler.Stop(timeout)
	mfcErr := m.MFC.Stop()

	if m.cancel != nil {
		m.cancel()
		<-m.housekeeping
	}
	m.env.Prefs.SetRunning(false)

	m.crit.Lock()
	defer m.crit.Unlock()

	if err != nil {
		m.deadlocked = true
		m.setCondition(govern.Ending, govern.EndingOnDeadlock)
		m.env.Notify(notifications.NotifyDeadlock, err)
		return err
	}

	m.setCondition(govern.Ending, govern.Normal)
	logger.Log(m.env, "machine", "stopped")
	return mfcErr
}

// Pause every thread in the machine. Returns when no thread is running. The
// machine remains paused if an error is returned.
func (m *Machine) Pause() error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()
	return m.pause(govern.Normal)
}

// must be called with the ctrl lock held.
func (m *Machine) pause(sub govern.SubState) error {
	switch m.Condition().State {
	case govern.Running:
	case govern.Paused:
		return nil
	default:
		return curated.Errorf(NotStarted)
	}

	err := m.Scheduler.Pause(m.env.Prefs.StopTimeoutDuration())

	m.crit.Lock()
	m.setCondition(govern.Paused, sub)
	m.crit.Unlock()

	return err
}

// Resume a paused machine.
func (m *Machine) Resume() error {
	m.ctrl.Lock()
	defer m.ctrl.Unlock()
	return m.resume()
}

// must be called with the ctrl lock held.
func (m *Machine) resume() error {
	if m.Condition().State != govern.Paused {
		return curated.Errorf(NotPaused)
	}
	m.Scheduler.Resume()
	m.crit.Lock()
	m.setCondition(govern.Running, govern.Normal)
	m.crit.Unlock()
	return nil
}

// Done returns a channel that is closed when the main scalar thread has
// ended. Returns nil if the machine has not been started.
func (m *Machine) Done() <-chan struct{} {
	m.crit.Lock()
	defer m.crit.Unlock()
	if m.main == nil {
		return nil
	}
	return m.main.Done()
}

// ExitStatus returns the exit status of the main scalar thread, or the fault
// that halted it.
func (m *Machine) ExitStatus() (uint32, error) {
	m.crit.Lock()
	main := m.main
	m.crit.Unlock()
	if main == nil {
		return 0, curated.Errorf(NotStarted)
	}
	return m.Scheduler.ExitStatus(main)
}

// observe is called by the scheduler after every yield.
func (m *Machine) observe(t *scheduler.Thread, y thread.Yield) {
	if y.Type == thread.YieldBudget {
		return
	}

	tr := thread.Transition{Info: t.Info(), Yield: y.Type, Code: y.Status}

	switch y.Type {
	case thread.YieldFault:
		m.env.Notify(notifications.NotifyGuestFault, thread.FaultReport{Info: tr.Info, Error: y.Error})
		if m.Scheduler.Paused() {
			m.crit.Lock()
			if m.condition.State == govern.Running {
				m.setCondition(govern.Paused, govern.PausedOnFault)
			}
			m.crit.Unlock()
		}
	case thread.YieldBreakpoint:
		m.env.Notify(notifications.NotifyBreakpoint, tr)
	case thread.YieldBlocked:
		if y.Reason == thread.OnGroup {
			m.env.Notify(notifications.NotifyStopSignal, tr)
		}
	}

	m.env.Notify(notifications.NotifyThreadState, tr)
}

func (m *Machine) housekeep(ctx context.Context, done chan struct{}) {
	defer close(done)

	tick := time.NewTicker(HousekeepingInterval)
	defer tick.Stop()

	var last translator.Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.ApplyPreferences()
			if s := m.Stats().Translation(); s != last {
				last = s
				m.env.Notify(notifications.NotifyCacheStats, s)
			}
		}
	}
}

// ApplyPreferences applies the hot-swappable preferences. Called
// periodically while the machine is running but can be called at any time
// for immediate effect.
func (m *Machine) ApplyPreferences() {
	p := m.env.Prefs

	if s := scalarSettings(p); s != m.Scalar.Settings() {
		m.Scalar.Reconfigure(s)
	}
	vs := vectorSettings(p)
	for _, v := range m.Vectors {
		if tr := v.Core.Translator(); tr.Settings() != vs {
			tr.Reconfigure(vs)
		}
	}

	m.crit.Lock()
	if c := p.CacheSize.Value(); c != m.applied.capacity {
		m.applied.capacity = c
		m.Scalar.Cache().SetCapacity(c)
		for _, v := range m.Vectors {
			v.Core.Translator().Cache().SetCapacity(c)
		}
	}
	m.crit.Unlock()

	m.Scheduler.SetQuantum(p.Quantum.Value())
	m.Scheduler.SetHaltOnFault(p.HaltMachineOnFault.Value())
	m.Scheduler.SetStopTimeout(p.StopTimeoutDuration())
}
