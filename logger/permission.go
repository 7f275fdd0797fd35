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

package logger

// Permission is implemented by anything that makes log requests. Worker
// goroutines of a machine log with the machine's environment as the
// permission so that a machine created for a background task (a savestate
// verification for example) can be silenced.
type Permission interface {
	AllowLogging() bool
}

type permission bool

func (p permission) AllowLogging() bool {
	return bool(p)
}

// Allow is a Permission that always allows logging.
var Allow Permission = permission(true)

// Deny is a Permission that never allows logging.
var Deny Permission = permission(false)
