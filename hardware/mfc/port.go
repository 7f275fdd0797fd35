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
	"sync"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// LocalStore is the local store of the vector core that owns a Port.
type LocalStore interface {
	Read(address uint32, p []byte) error
	Write(address uint32, p []byte) error
}

// Port is the connection between a single vector core and the Engine. It
// implements the channel interface of the vector core.
type Port struct {
	id     int
	engine *Engine
	ls     LocalStore

	crit sync.Mutex

	// notified on every change of state that a blocked thread might be
	// waiting for
	ev *thread.Event

	// command parameters
	lsa  uint32
	eah  uint32
	eal  uint32
	size uint32
	tag  uint32

	// outstanding commands for each tag
	pending     [NumTags]int
	queued      int
	proxyQueued int

	tagMask   uint32
	tagUpdate uint32

	lastStatus  uint32
	atomicStat  []uint32
	reservation memory.Reservation

	inMbox      []uint32
	outMbox     []uint32
	outIntrMbox []uint32

	sig1, sig2     uint32
	sig1Or, sig2Or bool

	eventMask    uint32
	eventPending uint32
}

// ID of the port. The same as the index of the vector core.
func (p *Port) ID() int {
	return p.id
}

func (p *Port) completedLocked() uint32 {
	var done uint32
	for t, n := range p.pending {
		if n == 0 {
			done |= 1 << t
		}
	}
	return done
}

// tagStatusLocked returns the completed tags in the tag mask and whether the
// current update condition is satisfied.
func (p *Port) tagStatusLocked() (uint32, bool) {
	done := p.completedLocked() & p.tagMask
	switch p.tagUpdate {
	case TagUpdateAny:
		return done, done != 0
	case TagUpdateAll:
		return done, done == p.tagMask
	}
	return done, true
}

func (p *Port) eventStatLocked() uint32 {
	return p.eventPending & p.eventMask
}

// ReadChannel implements the vector.Channels interface.
func (p *Port) ReadChannel(ch uint32) (uint32, <-chan struct{}, thread.Reason, error) {
	p.crit.Lock()
	defer p.crit.Unlock()

	switch ch {
	case ChRdEventStat:
		if s := p.eventStatLocked(); s != 0 {
			return s, nil, thread.NoReason, nil
		}
		return 0, p.ev.Wait(), thread.OnSignal, nil

	case ChRdSigNotify1:
		if p.sig1 == 0 {
			return 0, p.ev.Wait(), thread.OnSignal, nil
		}
		v := p.sig1
		p.sig1 = 0
		return v, nil, thread.NoReason, nil

	case ChRdSigNotify2:
		if p.sig2 == 0 {
			return 0, p.ev.Wait(), thread.OnSignal, nil
		}
		v := p.sig2
		p.sig2 = 0
		return v, nil, thread.NoReason, nil

	case ChRdEventMask:
		return p.eventMask, nil, thread.NoReason, nil

	case ChRdTagMask:
		return p.tagMask, nil, thread.NoReason, nil

	case ChRdTagStat:
		done, ok := p.tagStatusLocked()
		if !ok {
			return 0, p.ev.Wait(), thread.OnQueue, nil
		}
		p.tagUpdate = TagUpdateImmediate
		return done, nil, thread.NoReason, nil

	case ChRdAtomicStat:
		if len(p.atomicStat) == 0 {
			return 0, p.ev.Wait(), thread.OnQueue, nil
		}
		v := p.atomicStat[0]
		p.atomicStat = p.atomicStat[1:]
		return v, nil, thread.NoReason, nil

	case ChRdInMbox:
		if len(p.inMbox) == 0 {
			return 0, p.ev.Wait(), thread.OnSignal, nil
		}
		v := p.inMbox[0]
		p.inMbox = p.inMbox[1:]
		p.ev.Notify()
		return v, nil, thread.NoReason, nil

	case ChRdCmdStatus:
		return p.lastStatus, nil, thread.NoReason, nil
	}

	return 0, nil, thread.NoReason, curated.Errorf(NoChannel, ch)
}

// WriteChannel implements the vector.Channels interface.
func (p *Port) WriteChannel(ch uint32, v uint32) (<-chan struct{}, thread.Reason, error) {
	p.crit.Lock()

	switch ch {
	case ChWrEventMask:
		p.eventMask = v
	case ChWrEventAck:
		p.eventPending &^= v
	case ChLSA:
		p.lsa = v
	case ChEAH:
		p.eah = v
	case ChEAL:
		p.eal = v
	case ChSize:
		p.size = v & 0xffff
	case ChTagID:
		p.tag = v & 0xffff
	case ChWrTagMask:
		p.tagMask = v
	case ChWrTagUpdate:
		p.tagUpdate = v

	case ChCmd:
		cmd := Command{
			Port:   p.id,
			Opcode: Opcode(v & 0xff),
			LSA:    p.lsa,
			EA:     p.eal,
			Size:   p.size,
			Tag:    p.tag,
		}
		// the status is cleared before the command is issued. a command
		// that faults while executing sets the status when it completes,
		// which may be before or after issue() returns
		p.lastStatus = StatusOK
		p.crit.Unlock()

		if status := p.engine.issue(p, cmd); status != StatusOK {
			p.crit.Lock()
			p.lastStatus = status
			p.crit.Unlock()
		}
		return nil, thread.NoReason, nil

	case ChWrOutMbox:
		if len(p.outMbox) > 0 {
			w := p.ev.Wait()
			p.crit.Unlock()
			return w, thread.OnSignal, nil
		}
		p.outMbox = append(p.outMbox, v)
		p.ev.Notify()

	case ChWrOutIntrMbox:
		if len(p.outIntrMbox) > 0 {
			w := p.ev.Wait()
			p.crit.Unlock()
			return w, thread.OnSignal, nil
		}
		p.outIntrMbox = append(p.outIntrMbox, v)
		p.ev.Notify()

	default:
		p.crit.Unlock()
		return nil, thread.NoReason, curated.Errorf(NoChannel, ch)
	}

	p.crit.Unlock()
	return nil, thread.NoReason, nil
}

// ChannelCount implements the vector.Channels interface.
func (p *Port) ChannelCount(ch uint32) (uint32, error) {
	p.crit.Lock()
	defer p.crit.Unlock()

	b := func(v bool) uint32 {
		if v {
			return 1
		}
		return 0
	}

	switch ch {
	case ChRdEventStat:
		return b(p.eventStatLocked() != 0), nil
	case ChRdSigNotify1:
		return b(p.sig1 != 0), nil
	case ChRdSigNotify2:
		return b(p.sig2 != 0), nil
	case ChWrEventMask, ChWrEventAck, ChRdEventMask, ChRdTagMask,
		ChLSA, ChEAH, ChEAL, ChSize, ChTagID, ChWrTagMask, ChWrTagUpdate, ChRdCmdStatus:
		return 1, nil
	case ChCmd:
		return uint32(QueueDepth - p.queued), nil
	case ChRdTagStat:
		_, ok := p.tagStatusLocked()
		return b(ok), nil
	case ChRdAtomicStat:
		return uint32(len(p.atomicStat)), nil
	case ChWrOutMbox:
		return 1 - uint32(len(p.outMbox)), nil
	case ChRdInMbox:
		return uint32(len(p.inMbox)), nil
	case ChWrOutIntrMbox:
		return 1 - uint32(len(p.outIntrMbox)), nil
	}

	return 0, curated.Errorf(NoChannel, ch)
}

// WriteInMbox writes a value to the inbound mailbox. Returns a non-nil wake
// channel if the mailbox is full.
func (p *Port) WriteInMbox(v uint32) <-chan struct{} {
	p.crit.Lock()
	defer p.crit.Unlock()
	if len(p.inMbox) >= InMboxDepth {
		return p.ev.Wait()
	}
	p.inMbox = append(p.inMbox, v)
	p.eventPending |= EventInMbox
	p.ev.Notify()
	return nil
}

// ReadOutMbox reads the outbound mailbox. Returns a non-nil wake channel if
// the mailbox is empty.
func (p *Port) ReadOutMbox() (uint32, <-chan struct{}) {
	p.crit.Lock()
	defer p.crit.Unlock()
	if len(p.outMbox) == 0 {
		return 0, p.ev.Wait()
	}
	v := p.outMbox[0]
	p.outMbox = p.outMbox[1:]
	p.ev.Notify()
	return v, nil
}

// ReadOutIntrMbox reads the outbound interrupt mailbox. Returns a non-nil
// wake channel if the mailbox is empty.
func (p *Port) ReadOutIntrMbox() (uint32, <-chan struct{}) {
	p.crit.Lock()
	defer p.crit.Unlock()
	if len(p.outIntrMbox) == 0 {
		return 0, p.ev.Wait()
	}
	v := p.outIntrMbox[0]
	p.outIntrMbox = p.outIntrMbox[1:]
	p.ev.Notify()
	return v, nil
}

// SetSignalMode selects OR mode or overwrite mode for a signal notification
// register. The register is 1 or 2.
func (p *Port) SetSignalMode(register int, or bool) {
	p.crit.Lock()
	defer p.crit.Unlock()
	if register == 1 {
		p.sig1Or = or
	} else {
		p.sig2Or = or
	}
}

// WriteSignal writes to a signal notification register. The register is 1
// or 2.
func (p *Port) WriteSignal(register int, v uint32) error {
	p.crit.Lock()
	defer p.crit.Unlock()

	switch register {
	case 1:
		if p.sig1Or {
			p.sig1 |= v
		} else {
			p.sig1 = v
		}
		p.eventPending |= EventSignal1
	case 2:
		if p.sig2Or {
			p.sig2 |= v
		} else {
			p.sig2 = v
		}
		p.eventPending |= EventSignal2
	default:
		return curated.Errorf(BadCommand, "no such signal register")
	}

	p.ev.Notify()
	return nil
}

// Proxy issues a command on behalf of the scalar core. Returns the guest
// visible status.
func (p *Port) Proxy(cmd Command) uint32 {
	cmd.Port = p.id
	cmd.Proxy = true
	return p.engine.issue(p, cmd)
}

// TagWait returns a non-nil wake channel if any (or all) of the tags in the
// mask have commands outstanding.
func (p *Port) TagWait(mask uint32, all bool) <-chan struct{} {
	p.crit.Lock()
	defer p.crit.Unlock()
	done := p.completedLocked() & mask
	if (all && done == mask) || (!all && (done != 0 || mask == 0)) {
		return nil
	}
	return p.ev.Wait()
}

// Completed returns a mask of the tags with no outstanding commands.
func (p *Port) Completed() uint32 {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.completedLocked()
}

// Idle returns true if the port has no outstanding commands.
func (p *Port) Idle() bool {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.queued == 0 && p.proxyQueued == 0
}

// reserve a queue slot and mark the tag as outstanding.
func (p *Port) reserve(cmd Command) error {
	p.crit.Lock()
	defer p.crit.Unlock()

	if cmd.Proxy {
		if p.proxyQueued >= ProxyQueueDepth {
			return curated.Errorf(QueueFull, p.id)
		}
		p.proxyQueued++
	} else {
		if p.queued >= QueueDepth {
			return curated.Errorf(QueueFull, p.id)
		}
		p.queued++
	}
	p.pending[cmd.Tag]++
	return nil
}

// complete a command previously reserved.
func (p *Port) complete(cmd Command, err error) {
	p.crit.Lock()
	defer p.crit.Unlock()

	if cmd.Proxy {
		p.proxyQueued--
	} else {
		p.queued--
	}
	p.pending[cmd.Tag]--

	if err != nil {
		p.lastStatus = StatusOf(err)
	}

	if p.tagUpdate != TagUpdateImmediate {
		if _, ok := p.tagStatusLocked(); ok {
			p.eventPending |= EventTagGroup
		}
	}

	p.ev.Notify()
}

func (p *Port) pushAtomicStatus(v uint32) {
	p.crit.Lock()
	defer p.crit.Unlock()
	p.atomicStat = append(p.atomicStat, v)
	p.ev.Notify()
}
