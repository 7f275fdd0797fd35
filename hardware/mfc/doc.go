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

// Package mfc implements the DMA engine of the vector cores, together with
// the mailboxes and signal notification registers used for synchronisation
// between the scalar core and the vector cores.
//
// Every vector core has a Port. The core accesses the Port through channel
// instructions. The scalar core accesses the Port through system calls.
//
// The Engine executes the transfer commands queued on each Port. How it does
// so depends on the Mode:
//
//	Fast: commands are executed immediately by the issuing thread
//	Atomic: each Port has a lane that executes its commands in issue order
//	Ordered: a single lane executes the commands of every Port in global
//	issue order
//
// In every mode, commands with the same tag complete in issue order and the
// effects of a command are visible to every thread before the next command
// with the same tag starts.
//
// Atomic commands (GETLLAR, PUTLLC, PUTLLUC) are never queued. They are
// executed immediately and report their result through the atomic status
// channel.
package mfc
