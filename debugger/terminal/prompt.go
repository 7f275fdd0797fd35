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

package terminal

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/gophercell/debugger/govern"
	"github.com/jetsetilly/gophercell/hardware/thread"
)

// Prompt specifies the prompt text and the prompt style.
type Prompt struct {
	// the selected thread. ID is zero if no thread is selected
	Thread thread.Info

	// the state of the machine
	Condition govern.Condition
}

// String returns the prompt with "standard" decoration.
func (p Prompt) String() string {
	s := strings.Builder{}
	s.WriteString("[ ")
	if p.Thread.ID != 0 {
		s.WriteString(fmt.Sprintf("%s %#08x ", p.Thread.Name, p.Thread.PC))
	}
	s.WriteString(strings.ToLower(p.Condition.String()))
	s.WriteString(" ] ")

	switch p.Condition.State {
	case govern.Paused:
		s.WriteString(">> ")
	case govern.Running:
		s.WriteString("> ")
	default:
		s.WriteString(". ")
	}

	return s.String()
}
