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

package test

import (
	"fmt"
	"sync"
)

// CappedWriter is an io.Writer that keeps no more than a fixed number of
// bytes. Output from a runaway guest program can be captured without
// exhausting host memory. It is safe to write to from more than one
// goroutine.
type CappedWriter struct {
	crit      sync.Mutex
	buffer    []byte
	size      int
	truncated bool
}

// NewCappedWriter is the preferred method of initialisation for the
// CappedWriter type.
func NewCappedWriter(size int) (*CappedWriter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size for CappedWriter (%d)", size)
	}
	return &CappedWriter{
		size:   size,
		buffer: make([]byte, 0, size),
	}, nil
}

func (w *CappedWriter) String() string {
	w.crit.Lock()
	defer w.crit.Unlock()
	return string(w.buffer)
}

// Truncated returns true if any output has been discarded since the last
// Reset().
func (w *CappedWriter) Truncated() bool {
	w.crit.Lock()
	defer w.crit.Unlock()
	return w.truncated
}

// Reset empties the buffer.
func (w *CappedWriter) Reset() {
	w.crit.Lock()
	defer w.crit.Unlock()
	w.buffer = w.buffer[:0]
	w.truncated = false
}

// Write implements io.Writer. Bytes beyond the cap are discarded but are
// reported as written so that the writer never causes an error upstream.
func (w *CappedWriter) Write(p []byte) (int, error) {
	w.crit.Lock()
	defer w.crit.Unlock()

	n := min(len(p), w.size-len(w.buffer))
	w.buffer = append(w.buffer, p[:n]...)
	if n < len(p) {
		w.truncated = true
	}
	return len(p), nil
}
