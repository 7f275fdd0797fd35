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

import "github.com/jetsetilly/gophercell/curated"

// Sentinal error patterns. The first three are guest faults and are
// recoverable in the sense that only the faulting thread is affected.
const (
	UnmappedAccess  = "memory: unmapped access at %#08x"
	ProtectionFault = "memory: protection fault (%s required) at %#08x"
	AlignmentFault  = "memory: unaligned %d byte access at %#08x"

	BadRegion    = "memory: invalid region %#08x+%#x"
	Overlap      = "memory: region %#08x+%#x overlaps existing allocation"
	NotAllocated = "memory: region %#08x+%#x is not an allocation"
	OutOfMemory  = "memory: cannot allocate %#x bytes"
	BadSize      = "memory: unsupported guest memory size (%d bytes)"
	BadState     = "memory: cannot restore state: %v"
)

// IsGuestFault returns true if the error is one of the guest fault errors.
func IsGuestFault(err error) bool {
	return curated.Has(err, UnmappedAccess) || curated.Has(err, ProtectionFault) || curated.Has(err, AlignmentFault)
}
