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

package savestate

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/paths"
	"github.com/jetsetilly/gophercell/version"
)

// the name of the store in the resource directory.
const storeDir = "savestates"

// key of the slot index. slot keys all begin with slotPrefix so can never
// collide with the index.
var indexKey = []byte("\x00index")

const slotPrefix = "slot/"

// Slot describes a savestate in the store.
type Slot struct {
	Name    string
	ID      uuid.UUID
	Version string
	Created time.Time
	Size    int
}

func (s Slot) String() string {
	return fmt.Sprintf("%s: %s [%s] %s (%d bytes)", s.Name, s.ID, s.Version, s.Created.Format(time.RFC3339), s.Size)
}

// Store keeps savestates in named slots.
type Store struct {
	env logger.Permission
	db  *pebble.DB
}

// NewStore opens the store in the resource directory.
func NewStore(env logger.Permission) (*Store, error) {
	pth, err := paths.ResourcePath(storeDir)
	if err != nil {
		return nil, err
	}
	return OpenStore(env, pth, nil)
}

// OpenStore opens the store in the named directory. A nil filesystem means
// the host filesystem.
func OpenStore(env logger.Permission, dirname string, fs vfs.FS) (*Store, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dirname, opts)
	if err != nil {
		return nil, err
	}
	logger.Logf(env, "savestate", "opened slot store at %s", dirname)
	return &Store{env: env, db: db}, nil
}

// Close the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func slotKey(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, "\x00/") {
		return nil, curated.Errorf(InvalidSlotName, name)
	}
	return []byte(slotPrefix + name), nil
}

// index reads the slot index from the database or from an indexed batch.
func (s *Store) index(r pebble.Reader) (map[string]Slot, error) {
	idx := make(map[string]Slot)

	v, closer, err := r.Get(indexKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&idx); err != nil {
		return nil, curated.Errorf(CorruptData, fmt.Sprintf("slot index: %v", err))
	}
	return idx, nil
}

func putIndex(b *pebble.Batch, idx map[string]Slot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx); err != nil {
		return err
	}
	return b.Set(indexKey, buf.Bytes(), nil)
}

// Put writes the record to the named slot, replacing any record already in
// the slot.
func (s *Store) Put(name string, rec *Record) error {
	key, err := slotKey(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		return err
	}

	b := s.db.NewIndexedBatch()
	defer b.Close()

	idx, err := s.index(b)
	if err != nil {
		return err
	}
	idx[name] = Slot{
		Name:    name,
		ID:      rec.ID,
		Version: rec.Version,
		Created: rec.Created,
		Size:    buf.Len(),
	}

	if err := b.Set(key, buf.Bytes(), nil); err != nil {
		return err
	}
	if err := putIndex(b, idx); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}

	logger.Logf(s.env, "savestate", "%s written to slot %s", rec.ID, name)
	return nil
}

// Get reads the record in the named slot. The record must have been produced
// by the build with the specified version tag.
func (s *Store) Get(name string, expected string) (*Record, error) {
	key, err := slotKey(name)
	if err != nil {
		return nil, err
	}

	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, curated.Errorf(NoSuchSlot, name)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return Decode(bytes.NewReader(v), expected)
}

// Delete the named slot.
func (s *Store) Delete(name string) error {
	key, err := slotKey(name)
	if err != nil {
		return err
	}

	b := s.db.NewIndexedBatch()
	defer b.Close()

	idx, err := s.index(b)
	if err != nil {
		return err
	}
	if _, ok := idx[name]; !ok {
		return curated.Errorf(NoSuchSlot, name)
	}
	delete(idx, name)

	if err := b.Delete(key, nil); err != nil {
		return err
	}
	if err := putIndex(b, idx); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// List the slots in the store, ordered by name.
func (s *Store) List() ([]Slot, error) {
	idx, err := s.index(s.db)
	if err != nil {
		return nil, err
	}
	l := make([]Slot, 0, len(idx))
	for _, sl := range idx {
		l = append(l, sl)
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].Name < l[j].Name
	})
	return l, nil
}

// Save captures the state of the machine to the named slot.
func (s *Store) Save(m *hardware.Machine, name string) (*Record, error) {
	rec, err := Capture(m, name)
	if err != nil {
		return nil, err
	}
	if err := s.Put(name, rec); err != nil {
		return nil, err
	}
	m.Env().Notify(notifications.NotifySavestate, name)
	return rec, nil
}

// Load restores the machine from the named slot.
func (s *Store) Load(m *hardware.Machine, name string) (*Record, error) {
	rec, err := s.Get(name, version.Tag())
	if err != nil {
		return nil, err
	}
	if err := Restore(m, rec); err != nil {
		return nil, err
	}
	m.Env().Notify(notifications.NotifySavestate, name)
	return rec, nil
}
