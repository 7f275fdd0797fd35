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
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"github.com/jetsetilly/gophercell/curated"
	"github.com/jetsetilly/gophercell/debugger/terminal"
	"github.com/jetsetilly/gophercell/hardware"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/hardware/vector"
)

// debugger keywords
const (
	cmdThreads  = "THREADS"
	cmdThread   = "THREAD"
	cmdRegs     = "REGS"
	cmdSet      = "SET"
	cmdBreak    = "BREAK"
	cmdClear    = "CLEAR"
	cmdList     = "LIST"
	cmdStep     = "STEP"
	cmdOver     = "OVER"
	cmdContinue = "CONTINUE"
	cmdRun      = "RUN"
	cmdPause    = "PAUSE"
	cmdDisasm   = "DISASM"
	cmdMem      = "MEM"
	cmdDump     = "DUMP"
	cmdStats    = "STATS"
	cmdSave     = "SAVE"
	cmdLoad     = "LOAD"
	cmdSlots    = "SLOTS"
	cmdPrefs    = "PREFS"
	cmdHelp     = "HELP"
	cmdQuit     = "QUIT"
)

var commandKeywords = []string{
	cmdThreads, cmdThread, cmdRegs, cmdSet, cmdBreak, cmdClear, cmdList,
	cmdStep, cmdOver, cmdContinue, cmdRun, cmdPause, cmdDisasm, cmdMem,
	cmdDump, cmdStats, cmdSave, cmdLoad, cmdSlots, cmdPrefs, cmdHelp, cmdQuit,
}

var help = map[string]string{
	cmdThreads:  "List every thread in the machine",
	cmdThread:   "Select the thread that commands apply to. THREAD <id>",
	cmdRegs:     "Display the registers of the selected thread",
	cmdSet:      "Change a register of the selected thread. SET <register> <value>",
	cmdBreak:    "Halt when the selected thread reaches an address. BREAK <address> [IF <expression>]",
	cmdClear:    "Remove a breakpoint from the selected thread or every breakpoint. CLEAR <address>|ALL",
	cmdList:     "List current breakpoints",
	cmdStep:     "Execute instructions of the selected thread. STEP [count]",
	cmdOver:     "Step the selected thread, treating a call as a single instruction",
	cmdContinue: "Release the selected thread from its breakpoint and run until the next stop",
	cmdRun:      "Release every thread from its breakpoint and run until the next stop",
	cmdPause:    "Pause every thread",
	cmdDisasm:   "Disassemble instructions of the selected thread. DISASM [address] [count]",
	cmdMem:      "Display memory visible to the selected thread. MEM <address> [length]",
	cmdDump:     "Write a graph of the state of the selected core in dot format. DUMP [filename]",
	cmdStats:    "Display translation cache and MFC statistics",
	cmdSave:     "Save the machine to a savestate slot. SAVE <slot>",
	cmdLoad:     "Restore the machine from a savestate slot. LOAD <slot>",
	cmdSlots:    "List savestate slots",
	cmdPrefs:    "List preferences or change a preference. PREFS [<key> <value>]",
	cmdHelp:     "Lists commands or describes a command. HELP [command]",
	cmdQuit:     "Stop the machine and end the debugging session",
}

// the default number of instructions shown by DISASM and bytes by MEM
const (
	defaultDisasm = 8
	defaultMem    = 64
)

// parseCommand executes a single line of input. returns true if the machine
// has been resumed and the caller should wait for it to stop.
func (dbg *Debugger) parseCommand(input string) (bool, error) {
	tk := tokenise(input)
	command, ok := tk.get()
	if !ok {
		return false, nil
	}

	switch command {
	case cmdHelp:
		dbg.help(tk)
		return false, nil
	case cmdQuit:
		dbg.quit = true
		return false, nil
	}

	if _, err := dbg.machine(); err != nil {
		return false, err
	}

	switch command {
	case cmdThreads:
		threads, err := dbg.Threads()
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleInstrument, "%s", threadTable(threads, dbg.selected))

	case cmdThread:
		id, err := dbg.argValue(tk, command)
		if err != nil {
			return false, err
		}
		if err := dbg.SelectThread(int(id)); err != nil {
			return false, err
		}
		dbg.where(dbg.selected)

	case cmdRegs:
		s, err := dbg.Registers(dbg.selected)
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleInstrument, "%s", s)

	case cmdSet:
		reg, ok := tk.get()
		if !ok {
			return false, curated.Errorf(BadArguments, command, "register required")
		}
		v, err := dbg.argValue(tk, command)
		if err != nil {
			return false, err
		}
		return false, dbg.SetRegister(dbg.selected, reg, v)

	case cmdBreak:
		addr, err := dbg.argValue(tk, command)
		if err != nil {
			return false, err
		}
		cond := ""
		if kw, ok := tk.get(); ok {
			if strings.ToUpper(kw) != "IF" || tk.isEnd() {
				return false, curated.Errorf(BadArguments, command, "expected IF <expression>")
			}
			cond = tk.remainder()
		}
		if err := dbg.SetBreakpoint(dbg.selected, uint32(addr), cond); err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleFeedback, "breakpoint at %#08x", addr)

	case cmdClear:
		arg, ok := tk.peek()
		if !ok {
			return false, curated.Errorf(BadArguments, command, "address or ALL required")
		}
		if strings.ToUpper(arg) == "ALL" {
			if err := dbg.ClearAllBreakpoints(); err != nil {
				return false, err
			}
			dbg.printLine(terminal.StyleFeedback, "breakpoints cleared")
			break
		}
		addr, err := dbg.argValue(tk, command)
		if err != nil {
			return false, err
		}
		return false, dbg.ClearBreakpoint(dbg.selected, uint32(addr))

	case cmdList:
		l, err := dbg.Breakpoints()
		if err != nil {
			return false, err
		}
		if len(l) == 0 {
			dbg.printLine(terminal.StyleFeedback, "no breakpoints")
		}
		for i, b := range l {
			dbg.printLine(terminal.StyleFeedback, "%2d: %s", i, b)
		}

	case cmdStep:
		count := uint64(1)
		if !tk.isEnd() {
			var err error
			count, err = dbg.argValue(tk, command)
			if err != nil {
				return false, err
			}
		}
		y, err := dbg.Step(dbg.selected, int(count))
		if err != nil {
			return false, err
		}
		dbg.stepped(y)

	case cmdOver:
		y, err := dbg.StepOver(dbg.selected)
		if err != nil {
			return false, err
		}
		dbg.stepped(y)

	case cmdContinue:
		return true, dbg.Continue(dbg.selected)

	case cmdRun:
		return true, dbg.Run()

	case cmdPause:
		return false, dbg.halt()

	case cmdDisasm:
		return false, dbg.disasm(tk)

	case cmdMem:
		return false, dbg.mem(tk)

	case cmdDump:
		return false, dbg.dump(tk)

	case cmdStats:
		dbg.printLine(terminal.StyleInstrument, "%s", statsTable(dbg.m.Stats()))

	case cmdSave, cmdLoad:
		if dbg.store == nil {
			return false, curated.Errorf(NoSlotStore)
		}
		name, ok := tk.get()
		if !ok {
			return false, curated.Errorf(BadArguments, command, "slot name required")
		}
		if command == cmdSave {
			rec, err := dbg.store.Save(dbg.m, name)
			if err != nil {
				return false, err
			}
			dbg.printLine(terminal.StyleFeedback, "saved %s to %s", rec.ID, name)
			break
		}
		rec, err := dbg.store.Load(dbg.m, name)
		if err != nil {
			return false, err
		}
		dbg.printLine(terminal.StyleFeedback, "restored %s from %s", rec.ID, name)
		if _, _, err := dbg.thread(dbg.selected); err != nil {
			dbg.selected = hardware.ScalarThreadBase
		}

	case cmdSlots:
		if dbg.store == nil {
			return false, curated.Errorf(NoSlotStore)
		}
		slots, err := dbg.store.List()
		if err != nil {
			return false, err
		}
		if len(slots) == 0 {
			dbg.printLine(terminal.StyleFeedback, "no savestates")
		}
		for _, s := range slots {
			dbg.printLine(terminal.StyleFeedback, "%s", s)
		}

	case cmdPrefs:
		return false, dbg.prefs(tk)

	default:
		return false, curated.Errorf(UnknownCommand, command)
	}

	return false, nil
}

func (dbg *Debugger) help(tk *tokens) {
	if kw, ok := tk.get(); ok {
		kw = strings.ToUpper(kw)
		if h, ok := help[kw]; ok {
			dbg.printLine(terminal.StyleHelp, "%s", h)
			return
		}
		dbg.printError(curated.Errorf(UnknownCommand, kw))
		return
	}

	kw := append([]string{}, commandKeywords...)
	sort.Strings(kw)
	for _, k := range kw {
		dbg.printLine(terminal.StyleHelp, "%-10s %s", k, help[k])
	}
}

// argValue parses the next token as a value.
func (dbg *Debugger) argValue(tk *tokens, command string) (uint64, error) {
	s, ok := tk.get()
	if !ok {
		return 0, curated.Errorf(BadArguments, command, "value required")
	}
	v, err := parseValue(s)
	if err != nil {
		return 0, curated.Errorf(BadArguments, command, err)
	}
	return v, nil
}

// where prints the location of the thread.
func (dbg *Debugger) where(id int) {
	th, r, err := dbg.thread(id)
	if err != nil {
		dbg.printError(err)
		return
	}
	info := th.Info()
	dbg.printLine(terminal.StyleFeedback, "%s (%s): %s", info.Name, info.State, dbg.instruction(r, r.PC()))
}

func (dbg *Debugger) stepped(y thread.Yield) {
	if y.Type != thread.YieldBudget {
		dbg.printLine(terminal.StyleFeedback, "stopped: %s", y.Type)
		if y.Error != nil {
			dbg.printError(y.Error)
		}
	}
	dbg.where(dbg.selected)
}

// instruction returns the disassembly of the instruction at the address,
// decorated with breakpoint and PC markers.
func (dbg *Debugger) instruction(r any, address uint32) string {
	var s string
	var pc uint32
	var brk bool

	switch c := r.(type) {
	case *scalar.Core:
		pc = c.PC()
		brk = dbg.m.Scalar.Breakpoints().Has(address)
		d, err := scalar.DisassembleAt(dbg.m.Mem, address)
		if err != nil {
			d = err.Error()
		}
		s = d
	case *vector.Core:
		pc = c.PC()
		brk = c.Translator().Breakpoints().Has(address)
		v, err := dbg.m.Vector(c.ID() - hardware.VectorThreadBase)
		if err != nil {
			return err.Error()
		}
		s = vector.DisassembleAt(v.LS, address)
	}

	marker := "  "
	if brk {
		marker = "* "
	}
	if address == pc {
		marker = marker[:1] + ">"
	}
	return fmt.Sprintf("%s%#08x  %s", marker, address, s)
}

func (dbg *Debugger) disasm(tk *tokens) error {
	_, r, err := dbg.thread(dbg.selected)
	if err != nil {
		return err
	}

	address := r.PC()
	count := uint64(defaultDisasm)
	if !tk.isEnd() {
		v, err := dbg.argValue(tk, cmdDisasm)
		if err != nil {
			return err
		}
		address = uint32(v) &^ 3
	}
	if !tk.isEnd() {
		count, err = dbg.argValue(tk, cmdDisasm)
		if err != nil {
			return err
		}
	}

	for i := uint64(0); i < count; i++ {
		dbg.printLine(terminal.StyleInstrument, "%s", dbg.instruction(r, address))
		address += 4
	}
	return nil
}

func (dbg *Debugger) mem(tk *tokens) error {
	_, r, err := dbg.thread(dbg.selected)
	if err != nil {
		return err
	}

	address, err := dbg.argValue(tk, cmdMem)
	if err != nil {
		return err
	}
	length := uint64(defaultMem)
	if !tk.isEnd() {
		length, err = dbg.argValue(tk, cmdMem)
		if err != nil {
			return err
		}
	}

	p := make([]byte, length)
	switch c := r.(type) {
	case *vector.Core:
		v, err := dbg.m.Vector(c.ID() - hardware.VectorThreadBase)
		if err != nil {
			return err
		}
		err = v.LS.Read(uint32(address), p)
		if err != nil {
			return err
		}
	default:
		if err := dbg.m.Mem.Peek(uint32(address), p); err != nil {
			return err
		}
	}

	for _, l := range strings.Split(strings.TrimSuffix(hex.Dump(p), "\n"), "\n") {
		// hex.Dump() offsets are relative to the start of the slice
		if off, err := strconv.ParseUint(l[:8], 16, 32); err == nil {
			l = fmt.Sprintf("%08x%s", uint32(address)+uint32(off), l[8:])
		}
		dbg.printLine(terminal.StyleInstrument, "%s", l)
	}
	return nil
}

func (dbg *Debugger) dump(tk *tokens) error {
	_, r, err := dbg.thread(dbg.selected)
	if err != nil {
		return err
	}

	var state any
	switch c := r.(type) {
	case *scalar.Core:
		state = &c.State
	case *vector.Core:
		state = &c.State
	default:
		return curated.Errorf(NoSuchThread, dbg.selected)
	}

	if filename, ok := tk.get(); ok {
		f, err := os.Create(filename)
		if err != nil {
			return curated.Errorf(BadArguments, cmdDump, err)
		}
		defer f.Close()
		memviz.Map(f, state)
		dbg.printLine(terminal.StyleFeedback, "state written to %s", filename)
		return nil
	}

	s := &strings.Builder{}
	memviz.Map(s, state)
	dbg.printLine(terminal.StyleInstrument, "%s", s.String())
	return nil
}

func (dbg *Debugger) prefs(tk *tokens) error {
	p := dbg.m.Env().Prefs

	if tk.isEnd() {
		keys := p.Keys()
		l := make([]string, 0, len(keys))
		for k := range keys {
			l = append(l, k)
		}
		sort.Strings(l)
		for _, k := range l {
			dbg.printLine(terminal.StyleFeedback, "%-24s %s", k, keys[k])
		}
		return nil
	}

	if tk.remaining() < 2 {
		return curated.Errorf(BadArguments, cmdPrefs, "key and value required")
	}
	key, _ := tk.get()
	if err := p.Set(key, tk.remainder()); err != nil {
		return err
	}
	dbg.m.ApplyPreferences()
	return nil
}
