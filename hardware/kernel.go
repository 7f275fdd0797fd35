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

package hardware

import (
	"github.com/jetsetilly/gophercell/hardware/mfc"
	"github.com/jetsetilly/gophercell/hardware/scalar"
	"github.com/jetsetilly/gophercell/hardware/scheduler"
	"github.com/jetsetilly/gophercell/hardware/thread"
	"github.com/jetsetilly/gophercell/logger"
	"github.com/jetsetilly/gophercell/notifications"
)

// System call numbers. The call number is in r11 and the arguments are in
// r3 to r8. The result code is returned in r3 and any values in r4 and r5.
const (
	SysExit         = 1
	SysYield        = 2
	SysThreadCreate = 3
	SysThreadJoin   = 4

	SysGroupStart       = 10
	SysGroupJoin        = 11
	SysGroupResume      = 12
	SysGroupReceiveStop = 13

	SysInMboxWrite     = 20
	SysOutMboxRead     = 21
	SysOutIntrMboxRead = 22
	SysSignalWrite     = 23
	SysProxyCommand    = 24
	SysTagWait         = 25
	SysPrint           = 30
	SysGPUSubmit       = 31
)

// the largest buffer accepted by the print and GPU submit calls.
const maxGuestBufferBytes = 0x10000

// Result codes returned in r3.
const (
	CellOK     = 0
	CellEINVAL = 0x80010002
	CellENOSYS = scalar.ENOSYS
	CellESRCH  = 0x80010005
	CellEBUSY  = 0x8001000a
	CellEFAULT = 0x8001000d
)

// kernel handles the system calls made by scalar threads.
type kernel struct {
	m *Machine
}

var proceed = scalar.SyscallResult{Action: scalar.SyscallContinue}

func block(reason thread.Reason, wake <-chan struct{}) scalar.SyscallResult {
	return scalar.SyscallResult{Action: scalar.SyscallBlock, Reason: reason, Wake: wake}
}

// ret sets the result code and any values and continues with the next
// instruction.
func ret(c *scalar.Core, code uint64, values ...uint64) scalar.SyscallResult {
	c.State.GPR[3] = code
	for i, v := range values {
		c.State.GPR[4+i] = v
	}
	return proceed
}

// Syscall implements the scalar.Kernel interface.
func (k *kernel) Syscall(c *scalar.Core) scalar.SyscallResult {
	g := &c.State.GPR

	switch g[11] {
	case SysExit:
		return scalar.SyscallResult{Action: scalar.SyscallExit, Status: uint32(g[3])}
	case SysYield:
		c.State.GPR[3] = CellOK
		return scalar.SyscallResult{Action: scalar.SyscallYield}
	case SysThreadCreate:
		return k.threadCreate(c)
	case SysThreadJoin:
		return k.threadJoin(c)
	case SysGroupStart:
		return k.groupStart(c)
	case SysGroupJoin:
		return k.groupJoin(c)
	case SysGroupResume:
		return k.groupResume(c)
	case SysGroupReceiveStop:
		return k.groupReceiveStop(c)
	case SysInMboxWrite, SysOutMboxRead, SysOutIntrMboxRead, SysSignalWrite, SysProxyCommand, SysTagWait:
		return k.port(c)
	case SysPrint:
		return k.print(c)
	case SysGPUSubmit:
		return k.gpuSubmit(c)
	}

	logger.Logf(k.m.env, "kernel", "%s: unknown system call (%d)", c.Name(), g[11])
	return ret(c, CellENOSYS)
}

func (k *kernel) threadCreate(c *scalar.Core) scalar.SyscallResult {
	g := &c.State.GPR
	priority := int(int32(g[5]))
	if priority < 0 {
		return ret(c, CellEINVAL)
	}

	k.m.crit.Lock()
	st, err := k.m.newScalarThread("", uint32(g[3]), g[4], priority, uint32(g[6]))
	k.m.crit.Unlock()
	if err != nil {
		logger.Logf(k.m.env, "kernel", "%s: thread create: %v", c.Name(), err)
		return ret(c, CellEFAULT)
	}

	if err := k.m.Scheduler.StartThread(st.thread); err != nil {
		return ret(c, CellEINVAL)
	}
	return ret(c, CellOK, uint64(st.core.ID()))
}

func (k *kernel) threadJoin(c *scalar.Core) scalar.SyscallResult {
	id := int(c.State.GPR[3])
	if id == c.ID() {
		return ret(c, CellEINVAL)
	}
	t, err := k.m.Scheduler.Thread(id)
	if err != nil {
		return ret(c, CellESRCH)
	}
	select {
	case <-t.Done():
	default:
		return block(thread.OnJoin, t.Done())
	}
	status, err := k.m.Scheduler.ExitStatus(t)
	if err != nil {
		return ret(c, CellEFAULT, uint64(status))
	}
	return ret(c, CellOK, uint64(status))
}

// group returns the vector thread group if the ID in r3 identifies it.
func (k *kernel) group(c *scalar.Core) *scheduler.Group {
	g := k.m.Group()
	if len(k.m.Vectors) == 0 || int(c.State.GPR[3]) != g.ID() {
		return nil
	}
	return g
}

// arguments: r3 group, r4 image address, r5 image size, r6 entry, r7
// argument passed to each vector core in r3. the index of each core is
// passed in r4. an image size of zero starts the cores with the contents
// already in their local stores.
func (k *kernel) groupStart(c *scalar.Core) scalar.SyscallResult {
	grp := k.group(c)
	if grp == nil {
		return ret(c, CellESRCH)
	}
	if k.m.Scheduler.GroupStatus(grp).Started {
		return ret(c, CellEBUSY)
	}

	gpr := &c.State.GPR
	var image []byte
	if size := uint32(gpr[5]); size > 0 {
		image = make([]byte, size)
		if err := k.m.Mem.Read(uint32(gpr[4]), image); err != nil {
			logger.Logf(k.m.env, "kernel", "%s: group start: %v", c.Name(), err)
			return ret(c, CellEFAULT)
		}
	}

	for i, v := range k.m.Vectors {
		if image != nil {
			if err := v.LS.Write(0, image); err != nil {
				return ret(c, CellEINVAL)
			}
		}
		v.Core.Reset(uint32(gpr[6]))
		v.Core.State.GPR[3][0] = uint32(gpr[7])
		v.Core.State.GPR[4][0] = uint32(i)
	}

	if err := k.m.Scheduler.StartGroup(grp); err != nil {
		return ret(c, CellEINVAL)
	}
	return ret(c, CellOK)
}

func (k *kernel) groupJoin(c *scalar.Core) scalar.SyscallResult {
	grp := k.group(c)
	if grp == nil {
		return ret(c, CellESRCH)
	}
	st := k.m.Scheduler.GroupStatus(grp)
	if !st.Finished {
		return block(thread.OnJoin, st.Wake)
	}
	status, _ := k.m.Scheduler.ExitStatus(k.m.Vectors[0].thread)
	return ret(c, CellOK, uint64(status))
}

func (k *kernel) groupResume(c *scalar.Core) scalar.SyscallResult {
	grp := k.group(c)
	if grp == nil {
		return ret(c, CellESRCH)
	}
	k.m.Scheduler.ResumeGroup(grp)
	return ret(c, CellOK)
}

// returns the stop code in r4 and the ID of the stopping thread in r5. the
// group remains stopped until it is resumed.
func (k *kernel) groupReceiveStop(c *scalar.Core) scalar.SyscallResult {
	grp := k.group(c)
	if grp == nil {
		return ret(c, CellESRCH)
	}
	st := k.m.Scheduler.GroupStatus(grp)
	switch {
	case st.Stopped:
		return ret(c, CellOK, uint64(st.Code), uint64(st.Stopper))
	case st.Finished:
		return ret(c, CellESRCH)
	}
	return block(thread.OnSignal, st.Wake)
}

// system calls that operate on the MFC port of a vector core. the index of
// the vector core is in r3.
func (k *kernel) port(c *scalar.Core) scalar.SyscallResult {
	g := &c.State.GPR
	v, err := k.m.Vector(int(g[3]))
	if err != nil {
		return ret(c, CellESRCH)
	}

	switch g[11] {
	case SysInMboxWrite:
		if wake := v.Port.WriteInMbox(uint32(g[4])); wake != nil {
			return block(thread.OnSignal, wake)
		}
		return ret(c, CellOK)

	case SysOutMboxRead:
		d, wake := v.Port.ReadOutMbox()
		if wake != nil {
			return block(thread.OnSignal, wake)
		}
		return ret(c, CellOK, uint64(d))

	case SysOutIntrMboxRead:
		d, wake := v.Port.ReadOutIntrMbox()
		if wake != nil {
			return block(thread.OnSignal, wake)
		}
		return ret(c, CellOK, uint64(d))

	case SysSignalWrite:
		if err := v.Port.WriteSignal(int(g[4]), uint32(g[5])); err != nil {
			return ret(c, CellEINVAL)
		}
		return ret(c, CellOK)

	case SysProxyCommand:
		cmd := mfc.Command{
			Opcode: mfc.Opcode(g[8]),
			LSA:    uint32(g[4]),
			EA:     uint32(g[5]),
			Size:   uint32(g[6]),
			Tag:    uint32(g[7]),
		}
		return ret(c, uint64(v.Port.Proxy(cmd)))

	case SysTagWait:
		mask := uint32(g[4])
		if wake := v.Port.TagWait(mask, g[5] != 0); wake != nil {
			return block(thread.OnQueue, wake)
		}
		return ret(c, CellOK, uint64(v.Port.Completed()&mask))
	}

	return ret(c, CellENOSYS)
}

// guestBuffer reads a buffer of guest memory described by r3 and r4.
func (k *kernel) guestBuffer(c *scalar.Core) ([]byte, bool) {
	size := uint32(c.State.GPR[4])
	if size > maxGuestBufferBytes {
		return nil, false
	}
	b := make([]byte, size)
	if err := k.m.Mem.Read(uint32(c.State.GPR[3]), b); err != nil {
		logger.Logf(k.m.env, "kernel", "%s: %v", c.Name(), err)
		return nil, false
	}
	return b, true
}

func (k *kernel) print(c *scalar.Core) scalar.SyscallResult {
	b, ok := k.guestBuffer(c)
	if !ok {
		return ret(c, CellEFAULT)
	}
	s := string(b)
	logger.Logf(k.m.env, "guest", "%s: %s", c.Name(), s)
	k.m.env.Notify(notifications.NotifyGuestPrint, s)
	return ret(c, CellOK)
}

func (k *kernel) gpuSubmit(c *scalar.Core) scalar.SyscallResult {
	b, ok := k.guestBuffer(c)
	if !ok {
		return ret(c, CellEFAULT)
	}
	if err := k.m.GPU.Submit(b); err != nil {
		logger.Logf(k.m.env, "kernel", "%s: %v", c.Name(), err)
		return ret(c, CellEINVAL)
	}
	return ret(c, CellOK)
}
