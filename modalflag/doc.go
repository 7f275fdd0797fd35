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

// Package modalflag handles command lines made up of modes, each mode with its
// own flags. It is a thin layer over the flag package of the standard library.
//
// Arguments are given to NewArgs() and then parsed one mode at a time. After
// each Parse(), Mode() says which of the sub-modes (added with AddSubModes())
// was selected. The first sub-mode is the default and is selected if the
// argument following the flags is not a sub-mode. For example:
//
//	md := modalflag.Modes{Output: os.Stdout}
//	md.NewArgs(os.Args[1:])
//	md.AddSubModes("RUN", "DEBUG")
//	if p, err := md.Parse(); p != modalflag.ParseContinue {
//		return err
//	}
//
//	switch md.Mode() {
//	case "DEBUG":
//		md.NewMode()
//		entry := md.AddAddress("entry", 0, "entry address")
//		...
//	}
//
// Sub-mode comparisons are case insensitive. Help is printed to the Output
// writer when the -help flag is seen, in which case Parse() returns ParseHelp.
//
// Address flags accept decimal values and hexadecimal values with either the
// 0x or $ prefix.
package modalflag
