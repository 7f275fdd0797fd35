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

package scheduler

import (
	"runtime"
	"strings"
	"time"
)

// Policy selects how logical threads are mapped onto host goroutines.
type Policy int

// List of valid Policy values.
const (
	Auto Policy = iota
	Pinned
	Delegated
	Timesliced
)

func (p Policy) String() string {
	switch p {
	case Auto:
		return "AUTO"
	case Pinned:
		return "PINNED"
	case Delegated:
		return "DELEGATED"
	case Timesliced:
		return "TIMESLICED"
	}
	return "unknown policy"
}

// ParsePolicy converts a string to a Policy. Unrecognised strings return
// Auto.
func ParsePolicy(s string) Policy {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PINNED":
		return Pinned
	case "DELEGATED":
		return Delegated
	case "TIMESLICED":
		return Timesliced
	}
	return Auto
}

// Config for a new Scheduler.
type Config struct {
	Policy Policy

	// number of goroutines in the timesliced pool. zero means the number of
	// host cores
	Workers int

	// instructions per slice
	Quantum int

	// no member of a group may run while the group is stopped
	StrictGroups bool

	// how long Stop() waits for threads to reach a safepoint
	StopTimeout time.Duration

	// the expected number of logical threads. used by the Auto policy
	ExpectedThreads int

	// a faulting thread pauses the whole scheduler
	HaltOnFault bool
}

// DefaultConfig returns a Config with sensible values.
func DefaultConfig() Config {
	return Config{
		Policy:          Auto,
		Quantum:         20000,
		StopTimeout:     2 * time.Second,
		ExpectedThreads: 7,
	}
}

// resolve the Auto policy and fill in zero values.
func (cfg Config) resolve() Config {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Quantum <= 0 {
		cfg.Quantum = DefaultConfig().Quantum
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}
	if cfg.Policy == Auto {
		if runtime.NumCPU() >= cfg.ExpectedThreads+1 {
			cfg.Policy = Pinned
		} else {
			cfg.Policy = Timesliced
		}
	}
	return cfg
}

// the timesliced pool preempts more often than the dedicated policies.
func (cfg Config) slice(quantum int) int {
	if cfg.Policy == Timesliced {
		return max(quantum/4, 1)
	}
	return quantum
}
