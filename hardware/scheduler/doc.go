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

// Package scheduler maps logical threads onto a bounded set of host
// goroutines.
//
// A logical thread is anything that implements the Runnable interface. Both
// the scalar and the vector cores do so. A Runnable is run for a quantum of
// instructions at a time and returns a thread.Yield at a block boundary. The
// scheduler never interrupts a Runnable mid-block. Instead, it asks the
// Runnable to stop at the next boundary by way of the safepoint function.
//
// The Policy type selects how threads are mapped onto host goroutines:
//
//	Pinned		one goroutine per thread, locked to an OS thread which is
//			pinned to a host core
//	Delegated	one goroutine per thread, left to the Go runtime and the
//			host operating system
//	Timesliced	a fixed pool of goroutines sharing all threads, with a
//			short quantum
//	Auto		Pinned if the host has enough cores, otherwise Timesliced
//
// Threads may be collected into a Group. A group member that yields with the
// thread.OnGroup reason stops the group. The group remains stopped until
// ResumeGroup() is called. With strict groups no member of a stopped group
// is allowed to run.
//
// Stop() is a cooperative request. If any thread fails to reach a safepoint
// within the timeout then a Deadlock error is returned and the thread is
// abandoned.
package scheduler
