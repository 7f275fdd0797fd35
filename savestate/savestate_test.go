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

package savestate_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/environment"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/loader"
	"github.com/jetsetilly/gophercell/hardware/memory"
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/savestate"
	"github.com/jetsetilly/gophercell/test"
	"github.com/jetsetilly/gophercell/version"
)

const (
	codeBase       = 0x00010000
	dataBase       = 0x00100000
	breakpointAddr = codeBase + 12
)

// counting loop that stores the count to dataBase on every iteration
var counter = scalar.Program{
	scalar.AsmLis(20, dataBase>>16),
	scalar.AsmLi(3, 0),
	scalar.AsmLi(4, 1),
	scalar.AsmAdd(3, 3, 4),
	scalar.AsmAddi(4, 4, 1),
	scalar.AsmStw(3, 20, 0),
	scalar.AsmB(-12),
}

func newMachine(t *testing.T, notify notifications.Notify, vectors int) *hardware.Machine {
	t.Helper()

	p := preferences.NewDefaultPreferences()
	test.DemandSuccess(t, p.MemorySize.Set(16))
	test.DemandSuccess(t, p.VectorCount.Set(vectors))
	if notify == nil {
		notify = notifications.Discard{}
	}

	m, err := hardware.NewMachine(environment.NewEnvironment(environment.MainEmulation, p, notify), nil)
	test.DemandSuccess(t, err)
	m.Scalar.Breakpoints().Add(breakpointAddr, nil)
	t.Cleanup(func() {
		_ = m.Stop(0)
		_ = m.Release()
	})
	return m
}

func atBreakpoint(t *testing.T, m *hardware.Machine) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		th, err := m.Thread(hardware.ScalarThreadBase)
		if err == nil {
			st, r := th.Status()
			if st == thread.Blocked && r == thread.OnBreakpoint {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("thread did not reach breakpoint")
		}
		time.Sleep(time.Millisecond)
	}
}

// running returns a paused machine with the main thread on the breakpoint.
func running(t *testing.T, notify notifications.Notify) *hardware.Machine {
	t.Helper()

	m := newMachine(t, notify, 1)
	test.DemandSuccess(t, m.Start(0, &loader.Image{
		Format: loader.Raw,
		Target: loader.Scalar,
		Entry:  codeBase,
		Segments: []loader.Segment{
			{Address: codeBase, MemSize: 0x1000, Data: counter.Bytes(), Prot: memory.ProtRX},
			{Address: dataBase, MemSize: 0x1000, Prot: memory.ProtRW},
		},
	}))
	atBreakpoint(t, m)
	test.DemandSuccess(t, m.Pause())
	return m
}

func minimal(v string) *savestate.Record {
	return &savestate.Record{
		ID:      uuid.New(),
		Version: v,
		Created: time.Now(),
		State: &hardware.State{
			Memory: &memory.State{Size: 16 << 20},
			MFC:    &mfc.State{},
		},
	}
}

func TestVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	test.DemandSuccess(t, savestate.Encode(&buf, minimal("1.2")))

	_, err := savestate.Decode(bytes.NewReader(buf.Bytes()), "1.3")
	test.ExpectEquality(t, curated.Is(err, savestate.VersionMismatch), true)

	rec, err := savestate.Decode(bytes.NewReader(buf.Bytes()), "1.2")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, rec.Version, "1.2")
}

func TestCorruptData(t *testing.T) {
	var buf bytes.Buffer
	test.DemandSuccess(t, savestate.Encode(&buf, minimal("1.2")))
	good := buf.Bytes()

	corrupt := func(f func(b []byte) []byte) error {
		b := f(append([]byte(nil), good...))
		_, err := savestate.Decode(bytes.NewReader(b), "1.2")
		return err
	}

	// payload changed
	err := corrupt(func(b []byte) []byte {
		b[len(b)-1] ^= 0xff
		return b
	})
	test.ExpectEquality(t, curated.Is(err, savestate.CorruptData), true)

	// truncated
	err = corrupt(func(b []byte) []byte {
		return b[:len(b)-10]
	})
	test.ExpectEquality(t, curated.Is(err, savestate.CorruptData), true)

	// not a savestate
	err = corrupt(func(b []byte) []byte {
		b[0] = 'X'
		return b
	})
	test.ExpectEquality(t, curated.Is(err, savestate.CorruptData), true)

	// empty
	err = corrupt(func(b []byte) []byte {
		return nil
	})
	test.ExpectEquality(t, curated.Is(err, savestate.CorruptData), true)

	// future container revision
	err = corrupt(func(b []byte) []byte {
		b[5] = 0x7f
		return b
	})
	test.ExpectEquality(t, curated.Is(err, savestate.UnsupportedState), true)
}

func TestUnsupportedState(t *testing.T) {
	var buf bytes.Buffer

	err := savestate.Encode(&buf, &savestate.Record{Version: "1.2"})
	test.ExpectEquality(t, curated.Is(err, savestate.UnsupportedState), true)

	rec := minimal("1.2")
	rec.State.Vectors = make([]hardware.VectorUnitState, hardware.MaxVectorCores+1)
	err = savestate.Encode(&buf, rec)
	test.ExpectEquality(t, curated.Is(err, savestate.UnsupportedState), true)

	// a state from a machine with a different number of vector cores
	a := running(t, nil)
	rec, err = savestate.Capture(a, "")
	test.DemandSuccess(t, err)

	b := newMachine(t, nil, 2)
	err = savestate.Restore(b, rec)
	test.ExpectEquality(t, curated.Is(err, savestate.UnsupportedState), true)
}

// a record made by another version is rejected even when it did not come
// from Decode().
func TestRestoreVersionMismatch(t *testing.T) {
	m := running(t, nil)
	rec, err := savestate.Capture(m, "")
	test.DemandSuccess(t, err)

	rec.Version = "1.2"
	err = savestate.Restore(m, rec)
	test.ExpectEquality(t, curated.Is(err, savestate.VersionMismatch), true)

	rec.Version = version.Tag()
	test.ExpectSuccess(t, savestate.Restore(m, rec))
}

// a record that can not be restored leaves the machine as it was.
func TestRestoreRejected(t *testing.T) {
	m := running(t, nil)
	rec, err := savestate.Capture(m, "")
	test.DemandSuccess(t, err)

	threads := len(m.Threads())
	test.DemandSuccess(t, threads > 0)

	damage := []func(s *hardware.State){
		func(s *hardware.State) {
			s.Memory.Pages = append(s.Memory.Pages, memory.Page{Address: 0x00800000, Data: make([]byte, memory.PageSize)})
		},
		func(s *hardware.State) {
			s.Memory.Regions = append(s.Memory.Regions, s.Memory.Regions[0])
		},
		func(s *hardware.State) {
			for i := 0; i <= mfc.QueueDepth; i++ {
				s.MFC.InFlight = append(s.MFC.InFlight, mfc.Command{Opcode: mfc.Put, EA: dataBase, Size: 16})
			}
		},
		func(s *hardware.State) {
			s.Scalars[0].Thread.State = thread.State(99)
		},
	}

	for i, f := range damage {
		mem := *rec.State.Memory
		mem.Regions = append([]memory.Region(nil), mem.Regions...)
		mem.Pages = append([]memory.Page(nil), mem.Pages...)
		engine := *rec.State.MFC
		engine.InFlight = append([]mfc.Command(nil), engine.InFlight...)
		st := *rec.State
		st.Memory = &mem
		st.MFC = &engine
		st.Scalars = append([]hardware.ScalarThreadState(nil), st.Scalars...)
		f(&st)

		bad := *rec
		bad.State = &st
		err := savestate.Restore(m, &bad)
		test.ExpectEquality(t, curated.Is(err, savestate.UnsupportedState), true, i)

		test.ExpectEquality(t, len(m.Threads()), threads, i)
		test.ExpectEquality(t, m.Condition().State, govern.Paused, i)
	}

	// the machine is still usable
	test.ExpectSuccess(t, savestate.Restore(m, rec))
	test.ExpectSuccess(t, m.Resume())
	atBreakpoint(t, m)
}

func TestRoundTrip(t *testing.T) {
	rec := notifications.NewRecorder(0)
	a := running(t, rec)

	var buf bytes.Buffer
	saved, err := savestate.Save(a, &buf, "round trip")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, saved.Version, version.Tag())
	test.ExpectEquality(t, rec.Count(notifications.NotifySavestate), 1)

	b := newMachine(t, nil, 1)
	loaded, err := savestate.Load(b, bytes.NewReader(buf.Bytes()))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, loaded.ID, saved.ID)
	test.ExpectEquality(t, loaded.Label, "round trip")

	if diff := cmp.Diff(saved.State, loaded.State, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("decoded state differs (-saved +loaded):\n%s", diff)
	}

	// the restored thread runs until it reaches the breakpoint again, by
	// which time it is in the same state as the original
	atBreakpoint(t, b)
	test.DemandSuccess(t, b.Pause())

	ca, err := a.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)
	cb, err := b.ScalarCore(hardware.ScalarThreadBase)
	test.DemandSuccess(t, err)

	for i := 0; i < 100; i++ {
		if diff := cmp.Diff(ca.State, cb.State); diff != "" {
			t.Fatalf("execution differs after %d steps (-original +restored):\n%s", i, diff)
		}
		_, err := a.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
		_, err = b.Step(hardware.ScalarThreadBase)
		test.DemandSuccess(t, err)
	}

	va, err := a.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	vb, err := b.Mem.Read32(dataBase)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, va, vb)
}

func TestStore(t *testing.T) {
	fs := vfs.NewMem()

	s, err := savestate.OpenStore(logger.Allow, "savestates", fs)
	test.DemandSuccess(t, err)

	first := minimal(version.Tag())
	second := minimal(version.Tag())
	test.ExpectSuccess(t, s.Put("first", first))
	test.ExpectSuccess(t, s.Put("second", second))

	err = s.Put("", first)
	test.ExpectEquality(t, curated.Is(err, savestate.InvalidSlotName), true)
	err = s.Put("a/b", first)
	test.ExpectEquality(t, curated.Is(err, savestate.InvalidSlotName), true)

	l, err := s.List()
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(l), 2)
	test.ExpectEquality(t, l[0].Name, "first")
	test.ExpectEquality(t, l[0].ID, first.ID)
	test.ExpectEquality(t, l[1].Name, "second")

	rec, err := s.Get("second", version.Tag())
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, rec.ID, second.ID)

	_, err = s.Get("third", version.Tag())
	test.ExpectEquality(t, curated.Is(err, savestate.NoSuchSlot), true)

	_, err = s.Get("first", "0.0")
	test.ExpectEquality(t, curated.Is(err, savestate.VersionMismatch), true)

	// replacing a slot
	replacement := minimal(version.Tag())
	test.ExpectSuccess(t, s.Put("first", replacement))
	rec, err = s.Get("first", version.Tag())
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, rec.ID, replacement.ID)

	test.ExpectSuccess(t, s.Delete("second"))
	err = s.Delete("second")
	test.ExpectEquality(t, curated.Is(err, savestate.NoSuchSlot), true)

	// the store persists after closing
	test.DemandSuccess(t, s.Close())
	s, err = savestate.OpenStore(logger.Allow, "savestates", fs)
	test.DemandSuccess(t, err)
	defer s.Close()

	l, err = s.List()
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(l), 1)
	test.ExpectEquality(t, l[0].Name, "first")
	test.ExpectEquality(t, l[0].ID, replacement.ID)
}

func TestStoreMachine(t *testing.T) {
	s, err := savestate.OpenStore(logger.Allow, "savestates", vfs.NewMem())
	test.DemandSuccess(t, err)
	defer s.Close()

	rec := notifications.NewRecorder(0)
	a := running(t, rec)

	saved, err := s.Save(a, "quick")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, saved.Label, "quick")

	b := newMachine(t, rec, 1)
	loaded, err := s.Load(b, "quick")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, loaded.ID, saved.ID)

	// capture and restore each notify with the record ID, the store notifies
	// with the slot name
	var slots []string
	for _, e := range rec.Events() {
		if e.Notice == notifications.NotifySavestate {
			slots = append(slots, e.Data.(string))
		}
	}
	want := []string{saved.ID.String(), "quick", saved.ID.String(), "quick"}
	if diff := cmp.Diff(want, slots); diff != "" {
		t.Errorf("savestate notifications (-want +got):\n%s", diff)
	}
}
