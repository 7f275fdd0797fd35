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

package mfc

import "fmt"

// Channel numbers handled by a Port.
const (
	ChRdEventStat   = 0
	ChWrEventMask   = 1
	ChWrEventAck    = 2
	ChRdSigNotify1  = 3
	ChRdSigNotify2  = 4
	ChRdEventMask   = 11
	ChRdTagMask     = 12
	ChLSA           = 16
	ChEAH           = 17
	ChEAL           = 18
	ChSize          = 19
	ChTagID         = 20
	ChCmd           = 21
	ChWrTagMask     = 22
	ChWrTagUpdate   = 23
	ChRdTagStat     = 24
	ChRdAtomicStat  = 27
	ChWrOutMbox     = 28
	ChRdInMbox      = 29
	ChWrOutIntrMbox = 30
	ChRdCmdStatus   = 32
)

var channelNames = map[uint32]string{
	ChRdEventStat:   "SPU_RdEventStat",
	ChWrEventMask:   "SPU_WrEventMask",
	ChWrEventAck:    "SPU_WrEventAck",
	ChRdSigNotify1:  "SPU_RdSigNotify1",
	ChRdSigNotify2:  "SPU_RdSigNotify2",
	ChRdEventMask:   "SPU_RdEventMask",
	ChRdTagMask:     "MFC_RdTagMask",
	ChLSA:           "MFC_LSA",
	ChEAH:           "MFC_EAH",
	ChEAL:           "MFC_EAL",
	ChSize:          "MFC_Size",
	ChTagID:         "MFC_TagID",
	ChCmd:           "MFC_Cmd",
	ChWrTagMask:     "MFC_WrTagMask",
	ChWrTagUpdate:   "MFC_WrTagUpdate",
	ChRdTagStat:     "MFC_RdTagStat",
	ChRdAtomicStat:  "MFC_RdAtomicStat",
	ChWrOutMbox:     "SPU_WrOutMbox",
	ChRdInMbox:      "SPU_RdInMbox",
	ChWrOutIntrMbox: "SPU_WrOutIntrMbox",
	ChRdCmdStatus:   "MFC_RdCmdStatus",
}

// ChannelName returns the architectural name of a channel.
func ChannelName(ch uint32) string {
	if n, ok := channelNames[ch]; ok {
		return n
	}
	return fmt.Sprintf("ch%d", ch)
}

// Event bits of SPU_RdEventStat.
const (
	EventTagGroup = 0x0001
	EventInMbox   = 0x0010
	EventSignal2  = 0x0100
	EventSignal1  = 0x0200
)

// Tag update modes written to MFC_WrTagUpdate.
const (
	TagUpdateImmediate = 0
	TagUpdateAny       = 1
	TagUpdateAll       = 2
)

// Atomic status values read from MFC_RdAtomicStat.
const (
	AtomicPutllcSuccess = 0
	AtomicPutllcFailure = 1
	AtomicPutlluc       = 2
	AtomicGetllar       = 4
)

// Queue depths.
const (
	QueueDepth      = 16
	ProxyQueueDepth = 8
	InMboxDepth     = 4
	NumTags         = 32
)
