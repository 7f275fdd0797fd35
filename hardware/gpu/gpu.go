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

// Package gpu is the boundary between the emulated processor and GPU
// command processing. Command buffers submitted by guest code are forwarded
// to a CommandSink. Rasterisation is not part of this package.
package gpu

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/logger"
)

// BadBuffer is the error pattern for a malformed command buffer.
const BadBuffer = "gpu: malformed command buffer: %v"

// CommandSink consumes command buffers. The buffer is only valid for the
// duration of the call.
type CommandSink interface {
	Submit(buffer []byte) error
}

// command header fields
const (
	headerNonIncrement = 0x40000000
	headerJump         = 0x20000000
	headerCountShift   = 18
	headerCountMask    = 0x7ff
	headerMethodMask   = 0xfffc
)

// Stats is a summary of the commands seen by a Counter.
type Stats struct {
	Submissions uint64
	Commands    uint64
	Bytes       uint64

	// number of times each method has been written to
	Methods map[uint32]uint64
}

func (s Stats) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("submissions=%d commands=%d bytes=%d", s.Submissions, s.Commands, s.Bytes))

	methods := make([]uint32, 0, len(s.Methods))
	for m := range s.Methods {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	for _, m := range methods {
		b.WriteString(fmt.Sprintf(" %#x:%d", m, s.Methods[m]))
	}
	return b.String()
}

// Counter is the default CommandSink. It decodes the command headers in each
// buffer, counts them and logs the submission.
type Counter struct {
	env   logger.Permission
	crit  sync.Mutex
	stats Stats
}

// NewCounter is the preferred method of initialisation for the Counter type.
func NewCounter(env logger.Permission) *Counter {
	return &Counter{
		env:   env,
		stats: Stats{Methods: make(map[uint32]uint64)},
	}
}

// Submit implements the CommandSink interface.
func (c *Counter) Submit(buffer []byte) error {
	if len(buffer)%4 != 0 {
		return curated.Errorf(BadBuffer, fmt.Sprintf("length %d is not a multiple of four", len(buffer)))
	}

	methods := make(map[uint32]uint64)
	var commands uint64

	for i := 0; i < len(buffer); {
		hdr := binary.BigEndian.Uint32(buffer[i:])
		i += 4

		// jumps end the buffer. the target is not followed
		if hdr&headerJump == headerJump {
			commands++
			break
		}

		count := int(hdr>>headerCountShift) & headerCountMask
		method := hdr & headerMethodMask
		if i+count*4 > len(buffer) {
			return curated.Errorf(BadBuffer, fmt.Sprintf("command at offset %d overruns buffer", i-4))
		}

		for n := 0; n < count; n++ {
			methods[method]++
			if hdr&headerNonIncrement == 0 {
				method += 4
			}
		}
		i += count * 4
		commands++
	}

	c.crit.Lock()
	defer c.crit.Unlock()
	c.stats.Submissions++
	c.stats.Commands += commands
	c.stats.Bytes += uint64(len(buffer))
	for m, n := range methods {
		c.stats.Methods[m] += n
	}

	logger.Logf(c.env, "gpu", "command buffer: %d bytes, %d commands", len(buffer), commands)

	return nil
}

// Stats returns a copy of the current statistics.
func (c *Counter) Stats() Stats {
	c.crit.Lock()
	defer c.crit.Unlock()
	s := c.stats
	s.Methods = make(map[uint32]uint64, len(c.stats.Methods))
	for m, n := range c.stats.Methods {
		s.Methods[m] = n
	}
	return s
}
