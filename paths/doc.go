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

// Package paths contains functions to prepare paths to emulator resources
// (the preferences file, the savestate database).
//
// The policy of ResourcePath() is simple: if the base resource directory
// ".gophercell" is present in the program's current directory then that is
// the base path. Otherwise the user's config directory is used, as reported
// by os.UserConfigDir(). On a modern Linux system:
//
//	paths.ResourcePath("savestates")
//
// returns
//
//	/home/user/.config/gophercell/savestates
//
// The base directory can be overridden with SetBase(), which is mostly
// useful for tests.
package paths
