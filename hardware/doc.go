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

// Package hardware is the base package for the emulated machine. The Machine
// type owns every component: guest memory, the scalar translator and the
// scalar threads, the vector cores and their local stores, the MFC engine,
// the scheduler and the GPU command sink. More than one Machine can exist at
// the same time. Each is independent of the others.
//
// A Machine is created with NewMachine() and started with Start(). The main
// scalar thread begins at the entry point of the image. The machine runs
// until Stop() is called, after which it cannot be restarted.
//
// Guest programs talk to the machine through system calls, handled by the
// kernel in kernel.go. Vector programs talk to the machine through their
// channels, which are implemented by the mfc package.
//
// Snapshot() and Plumb() are the suspend and resume operations used by the
// savestate package.
package hardware
