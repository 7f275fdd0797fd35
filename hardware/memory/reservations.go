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

package memory

import (
	"bytes"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jetsetilly/gophercell/curated"
)

// number of reservation stripes. lines that share a stripe alias one another,
// which can only cause a spurious store-conditional failure.
const (
	stripeCount = 1 << 16
	lockCount   = 1 << 10
)

func stripe(address uint32) uint32 {
	return (address / LineSize) & (stripeCount - 1)
}

// reservations is a table of sequence counters, one pair per stripe. a writer
// advances begin, writes and then advances end. a reader that sees begin and
// end equal, before and after reading, has read a consistent line.
type reservations struct {
	begin []atomic.Uint64
	end   []atomic.Uint64
	locks [lockCount]sync.Mutex
}

func newReservations() *reservations {
	return &reservations{
		begin: make([]atomic.Uint64, stripeCount),
		end:   make([]atomic.Uint64, stripeCount),
	}
}

func (r *reservations) lock(s uint32) *sync.Mutex {
	return &r.locks[s%lockCount]
}

// write must not span a line boundary.
func (r *reservations) write(address uint32, f func()) {
	s := stripe(address)
	l := r.lock(s)
	l.Lock()
	r.begin[s].Add(1)
	f()
	r.end[s].Add(1)
	l.Unlock()
}

// Reservation records the state of a reserved granule. The zero value is an
// invalid reservation.
type Reservation struct {
	Valid   bool
	Address uint32
	Size    int
	Stamp   uint64
	Data    [LineSize]byte
}

// Lost returns true if the reservation would no longer succeed. A true result
// is definitive. A false result may change at any time.
func (mem *Memory) Lost(res Reservation) bool {
	if !res.Valid {
		return true
	}
	s := stripe(res.Address)
	if mem.res.begin[s].Load() != res.Stamp {
		return true
	}
	return !bytes.Equal(res.Data[:res.Size], mem.data[res.Address:res.Address+uint32(res.Size)])
}

func validGranule(address uint32, n int) bool {
	switch n {
	case 4, 8, LineSize:
		return address%uint32(n) == 0
	}
	return false
}

// Reserve reads the granule at address into p and returns a reservation for
// it. The granule must be 4, 8 or 128 bytes and naturally aligned.
func (mem *Memory) Reserve(address uint32, p []byte) (Reservation, error) {
	if !validGranule(address, len(p)) {
		return Reservation{}, curated.Errorf(AlignmentFault, len(p), address)
	}
	if err := mem.check(address, len(p), ProtRead); err != nil {
		return Reservation{}, err
	}

	s := stripe(address)
	res := Reservation{
		Valid:   true,
		Address: address,
		Size:    len(p),
	}

	for spin := 0; ; spin++ {
		b := mem.res.begin[s].Load()
		if b != mem.res.end[s].Load() {
			if spin&0x3f == 0x3f {
				runtime.Gosched()
			}
			continue
		}
		copy(res.Data[:len(p)], mem.data[address:])
		if mem.res.begin[s].Load() == b {
			res.Stamp = b
			break
		}
	}

	copy(p, res.Data[:len(p)])
	return res, nil
}

// StoreConditional writes p to the reserved granule if, and only if, the
// reservation is still held. The address and size must match the
// reservation. Returns false if the store did not happen.
//
// Permissions are checked before the reservation and a protection fault is
// returned as an error regardless of the reservation state.
func (mem *Memory) StoreConditional(res Reservation, address uint32, p []byte) (bool, error) {
	if !validGranule(address, len(p)) {
		return false, curated.Errorf(AlignmentFault, len(p), address)
	}
	if err := mem.check(address, len(p), ProtWrite); err != nil {
		return false, err
	}
	if !res.Valid || res.Address != address || res.Size != len(p) {
		return false, nil
	}

	s := stripe(address)
	l := mem.res.lock(s)
	l.Lock()

	if mem.res.begin[s].Load() != res.Stamp {
		l.Unlock()
		return false, nil
	}

	// data comparison catches plain writes that were not tracked because
	// the memory is in relaxed mode
	if !bytes.Equal(res.Data[:res.Size], mem.data[address:address+uint32(res.Size)]) {
		l.Unlock()
		return false, nil
	}

	mem.res.begin[s].Add(1)
	copy(mem.data[address:], p)
	mem.res.end[s].Add(1)
	l.Unlock()

	mem.written(address, len(p))
	return true, nil
}

// StoreLine writes a full line unconditionally, with the same exclusion as a
// successful store-conditional. Any reservation on the line is lost.
func (mem *Memory) StoreLine(address uint32, p []byte) error {
	if len(p) != LineSize || address%LineSize != 0 {
		return curated.Errorf(AlignmentFault, len(p), address)
	}
	if err := mem.check(address, len(p), ProtWrite); err != nil {
		return err
	}
	mem.store(address, p, true)
	return nil
}
