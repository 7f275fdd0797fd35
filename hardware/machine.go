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
	"fmt"
	"sort"
	"sync"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/environment"
	"github.com/jetsetilly/gophercell/hardware/gpu"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/memory/localstore"
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/translator"
	"github.com/jetsetilly/gophercell/hardware/vector"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
)

// Thread IDs are allocated from these bases.
const (
	ScalarThreadBase = 0x0100
	VectorThreadBase = 0x0200
)

// Scheduling priorities. Lower values are higher priority.
const (
	MainPriority   = 1000
	VectorPriority = 100
)

// StackSize is the size of the stack allocated for a scalar thread when no
// other size is requested.
const StackSize = 0x10000

// stacks are allocated at or above this address. keeps the zero page free
// so that null pointer accesses fault.
const stackHint = 0x10000

// MaxVectorCores is the largest number of vector cores a machine can have.
const MaxVectorCores = 16

// VectorUnit is a vector core with its local store and MFC port.
type VectorUnit struct {
	Core *vector.Core
	LS   *localstore.LocalStore
	Port *mfc.Port

	thread *scheduler.Thread
}

// Thread returns the scheduler thread running the vector core.
func (v *VectorUnit) Thread() *scheduler.Thread {
	return v.thread
}

// scalarThread is a scalar core with the stack allocated for it.
type scalarThread struct {
	core   *scalar.Core
	thread *scheduler.Thread
	stack  uint32
}

// Machine is the main container for the emulated components of the system.
type Machine struct {
	env *environment.Environment

	Mem       *memory.Memory
	MFC       *mfc.Engine
	Scheduler *scheduler.Scheduler
	Scalar    *scalar.Translator
	Vectors   []*VectorUnit
	GPU       gpu.CommandSink

	kernel *kernel

	// serialises the control operations: start, stop, pause, resume,
	// snapshot and plumb. never held by a worker goroutine
	ctrl sync.Mutex

	// guards the fields below. never held while waiting on the scheduler
	crit sync.Mutex

	condition  govern.Condition
	group      *scheduler.Group
	scalars    map[int]*scalarThread
	main       *scheduler.Thread
	nextScalar int
	deadlocked bool

	cancel       context.CancelFunc
	housekeeping chan struct{}
	applied      applied
}

// the hot-swappable preferences as last applied.
type applied struct {
	capacity int
}

// translation settings from the preferences.
func scalarSettings(p *preferences.Preferences) translator.Settings {
	return translator.Settings{
		Tier:       translator.ParseTier(p.ScalarTier.String()),
		Accuracy:   translator.ParseAccuracy(p.ScalarAccuracy.String()),
		Superblock: translator.ParseSuperblock(p.Superblock.String()),
	}
}

func vectorSettings(p *preferences.Preferences) translator.Settings {
	return translator.Settings{
		Tier:       translator.ParseTier(p.VectorTier.String()),
		Accuracy:   translator.ParseAccuracy(p.VectorAccuracy.String()),
		Superblock: translator.ParseSuperblock(p.Superblock.String()),
	}
}

// NewMachine creates a new machine and everything associated with it. The
// start-only preferences in the environment are read once. A nil sink means
// GPU command buffers are decoded and counted by a gpu.Counter.
func NewMachine(env *environment.Environment, sink gpu.CommandSink) (*Machine, error) {
	p := env.Prefs

	count := p.VectorCount.Value()
	if count < 0 || count > MaxVectorCores {
		return nil, curated.Errorf("machine: unsupported number of vector cores (%d)", count)
	}

	m := &Machine{
		env:     env,
		scalars: make(map[int]*scalarThread),
		GPU:     sink,
	}
	m.kernel = &kernel{m: m}

	if m.GPU == nil {
		m.GPU = gpu.NewCounter(env)
	}

	var err error
	size := uint64(p.MemorySize.Value()) << 20
	m.Mem, err = memory.NewMemory(env, size, memory.ParseStrictness(p.Reservations.String()))
	if err != nil {
		return nil, err
	}

	capacity := p.CacheSize.Value()
	m.applied.capacity = capacity
	m.Scalar = scalar.NewTranslator(env, m.Mem, capacity, scalarSettings(p))
	m.MFC = mfc.NewEngine(env, m.Mem, mfc.ParseMode(p.MFCMode.String()))

	cfg := scheduler.DefaultConfig()
	cfg.Policy = scheduler.ParsePolicy(p.Policy.String())
	cfg.Workers = p.Workers.Value()
	cfg.Quantum = p.Quantum.Value()
	cfg.StrictGroups = p.StrictGroups.Value()
	cfg.StopTimeout = p.StopTimeoutDuration()
	cfg.ExpectedThreads = count + 1
	cfg.HaltOnFault = p.HaltMachineOnFault.Value()
	m.Scheduler = scheduler.NewScheduler(env, cfg)
	m.Scheduler.SetObserver(m.observe)

	m.group = m.Scheduler.NewGroup("vector", VectorPriority, 0)
	for i := 0; i < count; i++ {
		v := &VectorUnit{LS: localstore.NewLocalStore()}
		v.Port = m.MFC.AddPort(v.LS)
		tr := vector.NewTranslator(env, v.LS, capacity, vectorSettings(p))
		v.Core = vector.NewCore(VectorThreadBase+i, fmt.Sprintf("vector %d", i), tr, v.Port)
		v.thread = m.Scheduler.AddThread(v.Core, -1, m.group)
		m.Vectors = append(m.Vectors, v)
	}

	logger.Logf(env, "machine", "%s: %d MiB, %d vector cores, mfc %s, scheduler %s",
		env.ID, p.MemorySize.Value(), count, m.MFC.Mode(), m.Scheduler.Policy())

	return m, nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("%s (%s)", m.env.ID, m.Condition())
}

// Env returns the environment of the machine.
func (m *Machine) Env() *environment.Environment {
	return m.env
}

// Condition returns the current state of the machine.
func (m *Machine) Condition() govern.Condition {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.condition
}

// must be called with the crit lock held.
func (m *Machine) setCondition(state govern.State, sub govern.SubState) {
	c := govern.Condition{State: state, SubState: sub}
	if c == m.condition {
		return
	}
	m.condition = c
	m.env.Notify(notifications.NotifyMachineState, c)
}

// Group returns the thread group containing every vector core.
func (m *Machine) Group() *scheduler.Group {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.group
}

// Vector returns the vector unit with the index.
func (m *Machine) Vector(i int) (*VectorUnit, error) {
	if i < 0 || i >= len(m.Vectors) {
		return nil, curated.Errorf(NoSuchThread, VectorThreadBase+i)
	}
	return m.Vectors[i], nil
}

// vectorByID returns the vector unit for a thread ID. Returns nil if the ID
// is not that of a vector core.
func (m *Machine) vectorByID(id int) *VectorUnit {
	i := id - VectorThreadBase
	if i < 0 || i >= len(m.Vectors) {
		return nil
	}
	return m.Vectors[i]
}

// ScalarCore returns the scalar core for a thread ID.
func (m *Machine) ScalarCore(id int) (*scalar.Core, error) {
	m.crit.Lock()
	defer m.crit.Unlock()
	st, ok := m.scalars[id]
	if !ok {
		return nil, curated.Errorf(NoSuchThread, id)
	}
	return st.core, nil
}

// Thread returns the scheduler thread with the ID.
func (m *Machine) Thread(id int) (*scheduler.Thread, error) {
	t, err := m.Scheduler.Thread(id)
	if err != nil {
		return nil, curated.Errorf(NoSuchThread, id)
	}
	return t, nil
}

// Threads returns a summary of every logical thread in the machine. Scalar
// threads are listed before vector threads.
func (m *Machine) Threads() []thread.Info {
	info := m.Scheduler.Threads()
	sort.SliceStable(info, func(i, j int) bool {
		return info[i].ID < info[j].ID
	})
	return info
}

// newScalarThread creates a scalar core and adds it to the scheduler. The
// thread is Idle until started. must be called with the crit lock held.
func (m *Machine) newScalarThread(name string, entry uint32, arg uint64, priority int, stackSize uint32) (*scalarThread, error) {
	if stackSize == 0 {
		stackSize = StackSize
	}
	stack, err := m.Mem.Allocate(stackHint, stackSize, memory.ProtRW)
	if err != nil {
		return nil, err
	}

	id := ScalarThreadBase + m.nextScalar
	m.nextScalar++
	if name == "" {
		name = fmt.Sprintf("scalar %d", id-ScalarThreadBase)
	}

	c := scalar.NewCore(id, name, m.Scalar, m.kernel)
	c.Reset(entry)
	c.State.GPR[1] = uint64(stack + stackSize - 0x100)
	c.State.GPR[3] = arg

	st := &scalarThread{
		core:   c,
		thread: m.Scheduler.AddThread(c, priority, nil),
		stack:  stack,
	}
	m.scalars[id] = st

	return st, nil
}

// Release the resources held by the machine. The machine must have been
// stopped. Guest memory is not released if a thread was abandoned because
// of a deadlock.
func (m *Machine) Release() error {
	m.crit.Lock()
	defer m.crit.Unlock()
	switch m.condition.State {
	case govern.Off, govern.Ending:
	default:
		return curated.Errorf("machine: cannot release a running machine")
	}
	if m.deadlocked {
		logger.Log(m.env, "machine", "guest memory kept after deadlock")
		return nil
	}
	return m.Mem.Release()
}
