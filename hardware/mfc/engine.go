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

package mfc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/logger"
)

// Mode selects the ordering guarantees of the engine.
type Mode int

// List of valid Mode values.
const (
	// commands are executed synchronously at the moment of issue
	Fast Mode = iota

	// commands from a port are executed in issue order. a command is
	// visible machine-wide before the next command from the same port
	// starts
	Atomic

	// commands from all ports are executed in global issue order
	Ordered
)

func (m Mode) String() string {
	switch m {
	case Fast:
		return "FAST"
	case Atomic:
		return "ATOMIC"
	case Ordered:
		return "ORDERED"
	}
	return "unknown mode"
}

// ParseMode converts a string to a Mode. Unrecognised strings return the
// Atomic mode.
func ParseMode(s string) Mode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FAST":
		return Fast
	case "ORDERED":
		return Ordered
	}
	return Atomic
}

// Memory is the view of guest memory required by the engine.
type Memory interface {
	Read(address uint32, p []byte) error
	WriteDMA(address uint32, p []byte) error
	Reserve(address uint32, p []byte) (memory.Reservation, error)
	StoreConditional(res memory.Reservation, address uint32, p []byte) (bool, error)
	StoreLine(address uint32, p []byte) error
	Protection(address uint32) (memory.Protection, bool)
}

// Stats is a summary of engine activity.
type Stats struct {
	Commands uint64
	Bytes    uint64
	Busy     uint64
	Faults   uint64
	Atomics  uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("commands=%d bytes=%d busy=%d faults=%d atomics=%d",
		s.Commands, s.Bytes, s.Busy, s.Faults, s.Atomics)
}

// lane is a FIFO of commands consumed by a single worker.
type lane struct {
	crit   sync.Mutex
	queue  []Command
	signal chan struct{}
}

func newLane() *lane {
	return &lane{signal: make(chan struct{}, 1)}
}

func (l *lane) push(cmd Command) {
	l.crit.Lock()
	l.queue = append(l.queue, cmd)
	l.crit.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *lane) front() (Command, bool) {
	l.crit.Lock()
	defer l.crit.Unlock()
	if len(l.queue) == 0 {
		return Command{}, false
	}
	return l.queue[0], true
}

func (l *lane) pop() {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.queue = l.queue[1:]
}

func (l *lane) snapshot() []Command {
	l.crit.Lock()
	defer l.crit.Unlock()
	return append([]Command(nil), l.queue...)
}

func (l *lane) clear() {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.queue = l.queue[:0]
}

// Engine is the DMA and queue engine shared by all vector cores.
type Engine struct {
	env  logger.Permission
	mem  Memory
	mode Mode

	ports []*Port
	lanes []*lane

	// global issue order
	seq atomic.Uint64

	// command execution holds a read lock. Freeze() holds the write lock
	freeze sync.RWMutex

	// notified on every command completion
	ev *thread.Event

	cancel context.CancelFunc
	group  *errgroup.Group

	observer func(Command)

	commands atomic.Uint64
	bytes    atomic.Uint64
	busy     atomic.Uint64
	faults   atomic.Uint64
	atomics  atomic.Uint64
}

// NewEngine is the preferred method of initialisation for the Engine type.
func NewEngine(env logger.Permission, mem Memory, mode Mode) *Engine {
	e := &Engine{
		env:  env,
		mem:  mem,
		mode: mode,
		ev:   thread.NewEvent(),
	}
	if mode == Ordered {
		e.lanes = append(e.lanes, newLane())
	}
	return e
}

// Mode returns the ordering mode of the engine.
func (e *Engine) Mode() Mode {
	return e.mode
}

// AddPort creates a new port for a vector core. Ports must be added before
// the engine is started.
func (e *Engine) AddPort(ls LocalStore) *Port {
	p := &Port{
		id:     len(e.ports),
		engine: e,
		ls:     ls,
		ev:     thread.NewEvent(),
	}
	e.ports = append(e.ports, p)
	if e.mode == Atomic {
		e.lanes = append(e.lanes, newLane())
	}
	return p
}

// Port returns the port with the specified ID.
func (e *Engine) Port(id int) (*Port, error) {
	if id < 0 || id >= len(e.ports) {
		return nil, curated.Errorf(NoPort, id)
	}
	return e.ports[id], nil
}

// Ports returns all ports in ID order.
func (e *Engine) Ports() []*Port {
	return e.ports
}

// SetObserver installs a function that is called after every command
// completes. The function is called by the goroutine that executed the
// command and before any subsequent command in the same lane starts.
func (e *Engine) SetObserver(f func(Command)) {
	e.observer = f
}

// Stats returns a summary of engine activity.
func (e *Engine) Stats() Stats {
	return Stats{
		Commands: e.commands.Load(),
		Bytes:    e.bytes.Load(),
		Busy:     e.busy.Load(),
		Faults:   e.faults.Load(),
		Atomics:  e.atomics.Load(),
	}
}

// Start the lane workers. Has no effect in Fast mode.
func (e *Engine) Start(ctx context.Context) {
	if e.group != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.group, ctx = errgroup.WithContext(ctx)
	for _, l := range e.lanes {
		l := l
		e.group.Go(func() error {
			return e.worker(ctx, l)
		})
	}
}

// Stop the lane workers. Commands still queued remain queued.
func (e *Engine) Stop() error {
	if e.group == nil {
		return nil
	}
	e.cancel()
	err := e.group.Wait()
	e.group = nil
	return err
}

func (e *Engine) worker(ctx context.Context, l *lane) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.signal:
		}
		for ctx.Err() == nil && e.step(l) {
		}
	}
}

// step executes the command at the front of the lane. Returns false if the
// lane is empty.
func (e *Engine) step(l *lane) bool {
	e.freeze.RLock()
	defer e.freeze.RUnlock()

	cmd, ok := l.front()
	if !ok {
		return false
	}
	p := e.ports[cmd.Port]
	err := e.execute(p, cmd)
	l.pop()
	e.complete(p, cmd, err)
	return true
}

// Freeze waits for any executing command to finish and prevents further
// execution until Thaw() is called.
func (e *Engine) Freeze() {
	e.freeze.Lock()
}

// Thaw allows execution of commands after a Freeze().
func (e *Engine) Thaw() {
	e.freeze.Unlock()
}

func (e *Engine) idle() bool {
	for _, p := range e.ports {
		if !p.Idle() {
			return false
		}
	}
	return true
}

// Drain waits for every queued command to complete. Returns a DrainTimeout
// error if that does not happen within the timeout.
func (e *Engine) Drain(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		w := e.ev.Wait()
		if e.idle() {
			return nil
		}
		select {
		case <-w:
		case <-deadline.C:
			return curated.Errorf(DrainTimeout, timeout)
		}
	}
}

// issue a command from the port. Returns the guest visible status.
func (e *Engine) issue(p *Port, cmd Command) uint32 {
	if err := cmd.validate(); err != nil {
		logger.Logf(e.env, "mfc", "port %d: %v", p.id, err)
		return StatusOf(err)
	}

	e.commands.Add(1)

	if cmd.Opcode.isAtomic() {
		e.atomics.Add(1)
		return e.atomic(p, cmd)
	}

	if cmd.Opcode.isTransfer() && !cmd.Opcode.isList() {
		if err := e.mapped(cmd.EA, cmd.Size); err != nil {
			e.faults.Add(1)
			logger.Logf(e.env, "mfc", "port %d: %v", p.id, err)
			return StatusOf(err)
		}
	}

	if err := p.reserve(cmd); err != nil {
		e.busy.Add(1)
		return StatusOf(err)
	}

	cmd.Seq = e.seq.Add(1)

	switch e.mode {
	case Fast:
		e.freeze.RLock()
		err := e.execute(p, cmd)
		e.complete(p, cmd, err)
		e.freeze.RUnlock()
	case Atomic:
		e.lanes[p.id].push(cmd)
	case Ordered:
		e.lanes[0].push(cmd)
	}

	return StatusOK
}

func (e *Engine) mapped(ea uint32, size uint32) error {
	if _, ok := e.mem.Protection(ea); !ok {
		return curated.Errorf(TargetUnmapped, ea, size)
	}
	if size > 1 {
		if _, ok := e.mem.Protection(ea + size - 1); !ok {
			return curated.Errorf(TargetUnmapped, ea, size)
		}
	}
	return nil
}

func (e *Engine) complete(p *Port, cmd Command, err error) {
	if err != nil {
		e.faults.Add(1)
		logger.Logf(e.env, "mfc", "%v: %v", cmd, err)
	}
	p.complete(cmd, err)
	e.ev.Notify()
	if e.observer != nil {
		e.observer(cmd)
	}
}

func (e *Engine) execute(p *Port, cmd Command) error {
	switch {
	case cmd.Opcode.isList():
		return e.list(p, cmd)
	case cmd.Opcode.isTransfer():
		return e.transfer(p, cmd.Opcode.isPut(), cmd.LSA, cmd.EA, cmd.Size)
	}

	// barrier, eieio and sync. lanes are FIFO so there is nothing to do
	return nil
}

func (e *Engine) transfer(p *Port, put bool, lsa uint32, ea uint32, size uint32) error {
	buf := make([]byte, size)
	if put {
		if err := p.ls.Read(lsa, buf); err != nil {
			return err
		}
		if err := e.mem.WriteDMA(ea, buf); err != nil {
			return err
		}
	} else {
		if err := e.mem.Read(ea, buf); err != nil {
			return err
		}
		if err := p.ls.Write(lsa, buf); err != nil {
			return err
		}
	}
	e.bytes.Add(uint64(size))
	return nil
}

// list executes every element of a list command. the stall-and-notify bit is
// ignored.
func (e *Engine) list(p *Port, cmd Command) error {
	l := make([]byte, cmd.Size)
	if err := p.ls.Read(cmd.EA, l); err != nil {
		return err
	}

	lsa := cmd.LSA
	for i := 0; i < len(l); i += 8 {
		el := decodeListElement(l[i:])
		if el.size == 0 {
			continue
		}
		if !validTransfer(lsa, el.ea, el.size) {
			return curated.Errorf(BadCommand, fmt.Sprintf("bad list element %d (lsa=%05x ea=%08x size=%#x)", i/8, lsa, el.ea, el.size))
		}
		if err := e.transfer(p, cmd.Opcode.isPut(), lsa, el.ea, el.size); err != nil {
			return err
		}
		lsa += el.size
		if el.size >= 16 {
			lsa = (lsa + 15) &^ 15
		}
	}
	return nil
}

// atomic commands are executed immediately in all modes.
func (e *Engine) atomic(p *Port, cmd Command) uint32 {
	var buf [memory.LineSize]byte

	switch cmd.Opcode {
	case GetLLAR:
		res, err := e.mem.Reserve(cmd.EA, buf[:])
		if err == nil {
			err = p.ls.Write(cmd.LSA, buf[:])
		}
		if err != nil {
			return e.atomicFault(p, cmd, err, AtomicGetllar)
		}
		p.crit.Lock()
		p.reservation = res
		p.crit.Unlock()
		p.pushAtomicStatus(AtomicGetllar)

	case PutLLC:
		if err := p.ls.Read(cmd.LSA, buf[:]); err != nil {
			return e.atomicFault(p, cmd, err, AtomicPutllcFailure)
		}
		p.crit.Lock()
		res := p.reservation
		p.reservation = memory.Reservation{}
		p.crit.Unlock()

		ok, err := e.mem.StoreConditional(res, cmd.EA, buf[:])
		if err != nil {
			return e.atomicFault(p, cmd, err, AtomicPutllcFailure)
		}
		if ok {
			p.pushAtomicStatus(AtomicPutllcSuccess)
		} else {
			p.pushAtomicStatus(AtomicPutllcFailure)
		}

	case PutLLUC:
		err := p.ls.Read(cmd.LSA, buf[:])
		if err == nil {
			err = e.mem.StoreLine(cmd.EA, buf[:])
		}
		if err != nil {
			return e.atomicFault(p, cmd, err, AtomicPutlluc)
		}
		p.crit.Lock()
		p.reservation = memory.Reservation{}
		p.crit.Unlock()
		p.pushAtomicStatus(AtomicPutlluc)
	}

	e.bytes.Add(memory.LineSize)
	return StatusOK
}

// atomicFault still pushes an atomic status so that a guest waiting on the
// atomic status channel is woken.
func (e *Engine) atomicFault(p *Port, cmd Command, err error, status uint32) uint32 {
	e.faults.Add(1)
	logger.Logf(e.env, "mfc", "%v: %v", cmd, err)
	p.pushAtomicStatus(status)
	return StatusOf(err)
}
