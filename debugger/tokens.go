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

package debugger

import (
	"strings"
)

// tokens is tokenised command input.
type tokens struct {
	input  string
	tokens []string
	curr   int
}

func (tk *tokens) String() string {
	return tk.input
}

// get returns the next token and false if the end of the input has been
// reached.
func (tk *tokens) get() (string, bool) {
	if tk.curr >= len(tk.tokens) {
		return "", false
	}
	tk.curr++
	return tk.tokens[tk.curr-1], true
}

// peek returns the next token without advancing.
func (tk *tokens) peek() (string, bool) {
	if tk.curr >= len(tk.tokens) {
		return "", false
	}
	return tk.tokens[tk.curr], true
}

func (tk *tokens) isEnd() bool {
	return tk.curr >= len(tk.tokens)
}

func (tk *tokens) remaining() int {
	return len(tk.tokens) - tk.curr
}

// remainder returns the remaining tokens as a string and ends the traversal.
func (tk *tokens) remainder() string {
	s := strings.Join(tk.tokens[tk.curr:], " ")
	tk.curr = len(tk.tokens)
	return s
}

// tokenise input. the first token (the command keyword) is normalised to
// upper case. a comment introduced with # ends the input.
func tokenise(input string) *tokens {
	if i := strings.IndexByte(input, '#'); i >= 0 {
		input = input[:i]
	}
	input = strings.TrimSpace(input)

	tk := &tokens{
		input:  input,
		tokens: strings.Fields(input),
	}
	if len(tk.tokens) > 0 {
		tk.tokens[0] = strings.ToUpper(tk.tokens[0])
	}
	return tk
}
