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

// Package savestate converts the state of a hardware.Machine to and from a
// versioned binary form and keeps named savestates in a slot store.
//
// A savestate is only valid for the build that produced it. The version tag
// is stored in the clear at the head of the file and is checked before any
// other part of the file is decoded, so a savestate from another build is
// rejected with VersionMismatch and never partially loaded.
//
// The layout of a savestate file is:
//
//	magic     4 bytes "GCSS"
//	format    uint16 (big-endian) container revision
//	version   uint16 length followed by the version tag
//	checksum  32 bytes, blake2b-256 of the payload
//	length    uint64 (big-endian) length of the payload
//	payload   gzip compressed gob encoding of a Record
//
// Loading reports exactly one of success, VersionMismatch, CorruptData or
// UnsupportedState.
package savestate
