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

package logger_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/test"
)

func TestLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	test.ExpectEquality(t, w.String(), "")

	log.Log(logger.Allow, "test", "this is a test")
	log.Write(w)
	test.ExpectEquality(t, w.String(), "test: this is a test\n")

	w.Reset()
	log.Log(logger.Allow, "test2", errors.New("this is another test"))
	log.Write(w)
	test.ExpectEquality(t, w.String(), "test: this is a test\ntest2: this is another test\n")

	// asking for too many entries in a Tail() should be okay
	w.Reset()
	log.Tail(w, 100)
	test.ExpectEquality(t, w.String(), "test: this is a test\ntest2: this is another test\n")

	w.Reset()
	log.Tail(w, 1)
	test.ExpectEquality(t, w.String(), "test2: this is another test\n")

	w.Reset()
	log.Tail(w, 0)
	test.ExpectEquality(t, w.String(), "")
}

func TestRepeatAndPermission(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}

	log.Log(logger.Allow, "tag", "same")
	log.Log(logger.Allow, "tag", "same")
	log.Log(logger.Deny, "tag", "never")
	log.Write(w)
	test.ExpectEquality(t, w.String(), "tag: same (repeat x2)\n")
}

func TestRecentAndCap(t *testing.T) {
	log := logger.NewLogger(3)
	w := &strings.Builder{}

	for i := 0; i < 5; i++ {
		log.Logf(logger.Allow, "n", "%d", i)
	}
	log.Write(w)
	test.ExpectEquality(t, w.String(), "n: 2\nn: 3\nn: 4\n")

	w.Reset()
	log.WriteRecent(w)
	test.ExpectEquality(t, w.String(), "n: 2\nn: 3\nn: 4\n")

	w.Reset()
	log.Logf(logger.Allow, "n", "%d", 5)
	log.WriteRecent(w)
	test.ExpectEquality(t, w.String(), "n: 5\n")
}

func TestConcurrentLogging(t *testing.T) {
	log := logger.NewLogger(1000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Log(logger.Allow, fmt.Sprintf("worker%d", i), fmt.Sprintf("%d", j))
			}
		}(i)
	}
	wg.Wait()

	var n int
	log.BorrowLog(func(e []logger.Entry) {
		n = len(e)
	})
	test.ExpectEquality(t, n, 400)
}
