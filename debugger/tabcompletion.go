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

// tabCompletion completes command keywords. repeated completion of the same
// input cycles through the matching keywords.
type tabCompletion struct {
	keywords []string

	// the input that began the current cycle and the matches for it
	last    string
	matches []string
	idx     int
}

func newTabCompletion() *tabCompletion {
	return &tabCompletion{keywords: commandKeywords}
}

// Complete implements the terminal.TabCompletion interface.
func (tc *tabCompletion) Complete(input string) string {
	// only the command keyword is completed
	if strings.ContainsAny(strings.TrimSpace(input), " \t") {
		return input
	}

	if input != tc.last || len(tc.matches) == 0 {
		tc.matches = tc.matches[:0]
		tc.idx = 0
		prefix := strings.ToUpper(strings.TrimSpace(input))
		for _, k := range tc.keywords {
			if strings.HasPrefix(k, prefix) {
				tc.matches = append(tc.matches, k)
			}
		}
		if len(tc.matches) == 0 {
			tc.last = ""
			return input
		}
	} else {
		tc.idx = (tc.idx + 1) % len(tc.matches)
	}

	tc.last = tc.matches[tc.idx] + " "
	return tc.last
}
