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
	"fmt"

	"github.com/jetsetilly/gophercell/curated"
)

// PortState is the serialisable state of a Port. Reservations are not
// included and are lost over a snapshot.
type PortState struct {
	LSA  uint32
	EAH  uint32
	EAL  uint32
	Size uint32
	Tag  uint32

	TagMask   uint32
	TagUpdate uint32

	LastStatus uint32
	AtomicStat []uint32

	InMbox      []uint32
	OutMbox     []uint32
	OutIntrMbox []uint32

	Sig1, Sig2     uint32
	Sig1Or, Sig2Or bool

	EventMask    uint32
	EventPending uint32
}

// State is the serialisable state of the Engine, including every command
// that has been issued but not yet completed.
type State struct {
	Mode     Mode
	Seq      uint64
	Ports    []PortState
	InFlight []Command
}

func copyWords(w []uint32) []uint32 {
	if len(w) == 0 {
		return nil
	}
	return append([]uint32(nil), w...)
}

// Snapshot the state of the engine. The engine must be frozen.
func (e *Engine) Snapshot() *State {
	s := &State{
		Mode: e.mode,
		Seq:  e.seq.Load(),
	}

	for _, p := range e.ports {
		p.crit.Lock()
		s.Ports = append(s.Ports, PortState{
			LSA:          p.lsa,
			EAH:          p.eah,
			EAL:          p.eal,
			Size:         p.size,
			Tag:          p.tag,
			TagMask:      p.tagMask,
			TagUpdate:    p.tagUpdate,
			LastStatus:   p.lastStatus,
			AtomicStat:   copyWords(p.atomicStat),
			InMbox:       copyWords(p.inMbox),
			OutMbox:      copyWords(p.outMbox),
			OutIntrMbox:  copyWords(p.outIntrMbox),
			Sig1:         p.sig1,
			Sig2:         p.sig2,
			Sig1Or:       p.sig1Or,
			Sig2Or:       p.sig2Or,
			EventMask:    p.eventMask,
			EventPending: p.eventPending,
		})
		p.crit.Unlock()
	}

	for _, l := range e.lanes {
		s.InFlight = append(s.InFlight, l.snapshot()...)
	}

	return s
}

// Compatible checks that the state can be plumbed into the engine. The
// engine is not changed.
func (e *Engine) Compatible(s *State) error {
	if s == nil {
		return curated.Errorf(BadState, "no state")
	}
	if len(s.Ports) != len(e.ports) {
		return curated.Errorf(BadState, fmt.Sprintf("snapshot has %d ports, engine has %d", len(s.Ports), len(e.ports)))
	}
	for i, ps := range s.Ports {
		if len(ps.InMbox) > InMboxDepth || len(ps.OutMbox) > 1 || len(ps.OutIntrMbox) > 1 {
			return curated.Errorf(BadState, fmt.Sprintf("mailbox overflow on port %d", i))
		}
	}

	queued := make([]int, len(e.ports))
	proxyQueued := make([]int, len(e.ports))
	for _, cmd := range s.InFlight {
		if cmd.Port < 0 || cmd.Port >= len(e.ports) {
			return curated.Errorf(BadState, fmt.Sprintf("in-flight command for port %d", cmd.Port))
		}
		if err := cmd.validate(); err != nil {
			return curated.Errorf(BadState, err)
		}
		if cmd.Proxy {
			proxyQueued[cmd.Port]++
			if proxyQueued[cmd.Port] > ProxyQueueDepth {
				return curated.Errorf(BadState, curated.Errorf(QueueFull, cmd.Port))
			}
		} else {
			queued[cmd.Port]++
			if queued[cmd.Port] > QueueDepth {
				return curated.Errorf(BadState, curated.Errorf(QueueFull, cmd.Port))
			}
		}
	}

	return nil
}

// Plumb a previously snapshotted state into the engine. The engine must be
// frozen and have the same number of ports. The engine mode may differ from
// the mode of the snapshot, in which case the in-flight commands are queued
// according to the current mode.
//
// The engine is not changed if the state is not compatible.
func (e *Engine) Plumb(s *State) error {
	if err := e.Compatible(s); err != nil {
		return err
	}

	for _, l := range e.lanes {
		l.clear()
	}

	for i, p := range e.ports {
		ps := s.Ports[i]
		p.crit.Lock()
		p.lsa = ps.LSA
		p.eah = ps.EAH
		p.eal = ps.EAL
		p.size = ps.Size
		p.tag = ps.Tag
		p.tagMask = ps.TagMask
		p.tagUpdate = ps.TagUpdate
		p.lastStatus = ps.LastStatus
		p.atomicStat = copyWords(ps.AtomicStat)
		p.inMbox = copyWords(ps.InMbox)
		p.outMbox = copyWords(ps.OutMbox)
		p.outIntrMbox = copyWords(ps.OutIntrMbox)
		p.sig1 = ps.Sig1
		p.sig2 = ps.Sig2
		p.sig1Or = ps.Sig1Or
		p.sig2Or = ps.Sig2Or
		p.eventMask = ps.EventMask
		p.eventPending = ps.EventPending
		p.pending = [NumTags]int{}
		p.queued = 0
		p.proxyQueued = 0
		p.crit.Unlock()
	}

	e.seq.Store(s.Seq)

	for _, cmd := range s.InFlight {
		p := e.ports[cmd.Port]
		if err := p.reserve(cmd); err != nil {
			return curated.Errorf(BadState, err)
		}
		switch e.mode {
		case Fast:
			e.complete(p, cmd, e.execute(p, cmd))
		case Atomic:
			e.lanes[p.id].push(cmd)
		case Ordered:
			e.lanes[0].push(cmd)
		}
	}

	for _, p := range e.ports {
		p.ev.Notify()
	}
	e.ev.Notify()

	return nil
}
