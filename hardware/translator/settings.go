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

package translator

import "strings"

// Tier of translation.
type Tier int

// List of valid Tier values.
const (
	Interpreter Tier = iota
	Threaded
	Native
)

func (t Tier) String() string {
	switch t {
	case Interpreter:
		return "INTERPRETER"
	case Threaded:
		return "THREADED"
	case Native:
		return "NATIVE"
	}
	panic("unknown translation tier")
}

// TierOptions lists the string values accepted by ParseTier.
var TierOptions = []string{"NATIVE", "THREADED", "INTERPRETER"}

// ParseTier converts a preferences string to a Tier. Unrecognised values
// select the Native tier.
func ParseTier(s string) Tier {
	switch strings.ToUpper(s) {
	case "INTERPRETER":
		return Interpreter
	case "THREADED":
		return Threaded
	}
	return Native
}

// Accuracy of floating point operations.
type Accuracy int

// List of valid Accuracy values.
const (
	Accurate Accuracy = iota
	Fast
)

func (a Accuracy) String() string {
	if a == Fast {
		return "FAST"
	}
	return "ACCURATE"
}

// AccuracyOptions lists the string values accepted by ParseAccuracy.
var AccuracyOptions = []string{"ACCURATE", "FAST"}

// ParseAccuracy converts a preferences string to an Accuracy.
func ParseAccuracy(s string) Accuracy {
	if strings.ToUpper(s) == "FAST" {
		return Fast
	}
	return Accurate
}

// Superblock controls how far translation continues past a branch.
type Superblock int

// List of valid Superblock values.
const (
	// translation ends at the first branch
	SuperblockOff Superblock = iota

	// translation follows unconditional direct branches
	SuperblockMega

	// as Mega and conditional branches become side exits
	SuperblockGiga
)

func (s Superblock) String() string {
	switch s {
	case SuperblockOff:
		return "OFF"
	case SuperblockMega:
		return "MEGA"
	case SuperblockGiga:
		return "GIGA"
	}
	panic("unknown superblock setting")
}

// SuperblockOptions lists the string values accepted by ParseSuperblock.
var SuperblockOptions = []string{"MEGA", "GIGA", "OFF"}

// ParseSuperblock converts a preferences string to a Superblock value.
func ParseSuperblock(s string) Superblock {
	switch strings.ToUpper(s) {
	case "OFF":
		return SuperblockOff
	case "GIGA":
		return SuperblockGiga
	}
	return SuperblockMega
}

// Settings that affect the form of translated units. A cache only holds
// units translated with the same settings.
type Settings struct {
	Tier       Tier
	Accuracy   Accuracy
	Superblock Superblock
}

func (s Settings) String() string {
	return s.Tier.String() + "/" + s.Accuracy.String() + "/" + s.Superblock.String()
}

// MaxBlockInstructions is the maximum number of instructions in a single
// unit, including instructions added by superblock formation.
const MaxBlockInstructions = 256

// TranslationFailure is logged when a block cannot be translated and
// execution falls back to the interpreter.
const TranslationFailure = "translator: cannot translate block at %#08x: %v"
