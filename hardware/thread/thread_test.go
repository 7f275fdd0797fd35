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

package thread_test

import (
	"testing"
	"time"

	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/test"
)

func TestEvent(t *testing.T) {
	e := thread.NewEvent()
	w := e.Wait()

	select {
	case <-w:
		t.Fatalf("event closed before notify")
	default:
	}

	go e.Notify()

	select {
	case <-w:
	case <-time.After(time.Second):
		t.Fatalf("event not closed by notify")
	}

	// a new wait after notify gets a new channel
	select {
	case <-e.Wait():
		t.Fatalf("new wait channel is already closed")
	default:
	}
}

func TestYieldState(t *testing.T) {
	s, r := thread.Yield{Type: thread.YieldBlocked, Reason: thread.OnQueue}.State()
	test.ExpectEquality(t, s, thread.Blocked)
	test.ExpectEquality(t, r, thread.OnQueue)

	s, r = thread.Yield{Type: thread.YieldFault}.State()
	test.ExpectEquality(t, s, thread.Halted)
	test.ExpectEquality(t, r, thread.Fault)

	test.ExpectFailure(t, thread.YieldBreakpoint.Normal())
	test.ExpectSuccess(t, thread.YieldExit.Normal())
}

func TestStatus(t *testing.T) {
	var st thread.Status
	test.ExpectEquality(t, st.State(), thread.Idle)
	st.Set(thread.Blocked, thread.OnSignal)
	s, r := st.Get()
	test.ExpectEquality(t, s, thread.Blocked)
	test.ExpectEquality(t, r, thread.OnSignal)
}

func TestClosed(t *testing.T) {
	select {
	case <-thread.Closed:
	default:
		t.Fatalf("thread.Closed is not closed")
	}
}
