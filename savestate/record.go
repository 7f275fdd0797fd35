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
	"compress/gzip"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
	"github.com/jetsetilly/gophercell/version"
	"golang.org/x/crypto/blake2b"
)

// the revision of the container. changes to the header layout or to the
// payload compression change the revision
const formatRevision = 1

var magic = [4]byte{'G', 'C', 'S', 'S'}

// the largest payload that will be read. guest memory is limited to 4GiB and
// zero pages are not stored, so a larger payload cannot be genuine
const maxPayload = 1 << 33

// Record is a single savestate.
type Record struct {
	ID      uuid.UUID
	Version string
	Created time.Time
	Label   string
	State   *hardware.State
}

func (rec *Record) String() string {
	if rec.Label == "" {
		return fmt.Sprintf("%s [%s] %s", rec.ID, rec.Version, rec.Created.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s %s [%s] %s", rec.Label, rec.ID, rec.Version, rec.Created.Format(time.RFC3339))
}

// Capture the state of the machine. The record is tagged with the version of
// the running build.
func Capture(m *hardware.Machine, label string) (*Record, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:      uuid.New(),
		Version: version.Tag(),
		Created: time.Now(),
		Label:   label,
		State:   s,
	}

	logger.Logf(m.Env(), "savestate", "captured %s", rec)
	m.Env().Notify(notifications.NotifySavestate, rec.ID.String())

	return rec, nil
}

// Restore the machine from the record. A record made by a different version
// is rejected with VersionMismatch. Any other failure is returned as
// UnsupportedState.
func Restore(m *hardware.Machine, rec *Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	if rec.Version != version.Tag() {
		return curated.Errorf(VersionMismatch, rec.Version, version.Tag())
	}

	if err := m.Plumb(rec.State); err != nil {
		return curated.Errorf(UnsupportedState, err)
	}

	logger.Logf(m.Env(), "savestate", "restored %s", rec)
	m.Env().Notify(notifications.NotifySavestate, rec.ID.String())

	return nil
}

// validate the parts of a record that can be checked without a machine.
func validate(rec *Record) error {
	if rec == nil || rec.State == nil {
		return curated.Errorf(UnsupportedState, "no machine state")
	}
	if rec.State.Memory == nil || rec.State.MFC == nil {
		return curated.Errorf(UnsupportedState, "incomplete machine state")
	}
	if len(rec.State.Vectors) > hardware.MaxVectorCores {
		return curated.Errorf(UnsupportedState, fmt.Sprintf("%d vector cores", len(rec.State.Vectors)))
	}
	return nil
}

// Encode writes the record to w.
func Encode(w io.Writer, rec *Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	if err := gob.NewEncoder(zw).Encode(rec); err != nil {
		return curated.Errorf(UnsupportedState, err)
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if len(rec.Version) > 0xffff {
		return curated.Errorf(UnsupportedState, "version tag too long")
	}

	var hdr bytes.Buffer
	hdr.Write(magic[:])
	binary.Write(&hdr, binary.BigEndian, uint16(formatRevision))
	binary.Write(&hdr, binary.BigEndian, uint16(len(rec.Version)))
	hdr.WriteString(rec.Version)
	sum := blake2b.Sum256(payload.Bytes())
	hdr.Write(sum[:])
	binary.Write(&hdr, binary.BigEndian, uint64(payload.Len()))

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return err
	}
	return nil
}

// Decode reads a record from r. The record must have been produced by the
// build with the specified version tag.
func Decode(r io.Reader, expected string) (*Record, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	if m != magic {
		return nil, curated.Errorf(CorruptData, "not a savestate")
	}

	var format, vlen uint16
	if err := binary.Read(r, binary.BigEndian, &format); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	if format != formatRevision {
		return nil, curated.Errorf(UnsupportedState, fmt.Sprintf("container revision %d", format))
	}
	if err := binary.Read(r, binary.BigEndian, &vlen); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	v := make([]byte, vlen)
	if _, err := io.ReadFull(r, v); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	if string(v) != expected {
		return nil, curated.Errorf(VersionMismatch, string(v), expected)
	}

	var sum [blake2b.Size256]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	var plen uint64
	if err := binary.Read(r, binary.BigEndian, &plen); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	if plen > maxPayload {
		return nil, curated.Errorf(CorruptData, fmt.Sprintf("payload of %d bytes", plen))
	}

	var payload bytes.Buffer
	if n, err := io.CopyN(&payload, r, int64(plen)); err != nil {
		return nil, curated.Errorf(CorruptData, fmt.Sprintf("payload truncated at %d bytes", n))
	}
	if blake2b.Sum256(payload.Bytes()) != sum {
		return nil, curated.Errorf(CorruptData, "checksum mismatch")
	}

	zr, err := gzip.NewReader(&payload)
	if err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	defer zr.Close()

	rec := &Record{}
	if err := gob.NewDecoder(zr).Decode(rec); err != nil {
		return nil, curated.Errorf(CorruptData, err)
	}
	if rec.Version != string(v) {
		return nil, curated.Errorf(CorruptData, "version tag does not match payload")
	}
	if err := validate(rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// Save captures the state of the machine and writes it to w.
func Save(m *hardware.Machine, w io.Writer, label string) (*Record, error) {
	rec, err := Capture(m, label)
	if err != nil {
		return nil, err
	}
	if err := Encode(w, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Load reads a savestate produced by the running build from r and restores
// the machine from it.
func Load(m *hardware.Machine, r io.Reader) (*Record, error) {
	rec, err := Decode(r, version.Tag())
	if err != nil {
		return nil, err
	}
	if err := Restore(m, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
