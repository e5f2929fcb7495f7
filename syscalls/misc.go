// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package syscalls

import (
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/sched"
)

// PageSize is the frame size BRK rounds its data-segment growth to,
// the same one-page unit fs/pipefs.PipeBufBytes uses for its ring.
const PageSize = 4096

// DoTime implements the TIME.
func (d *Dispatcher) DoTime(pid proc.ProcessID) int64 {
	defer d.stats.record(Time)
	return d.Clock.Now().Unix()
}

// DoBrk implements the BRK: increment moves pid's
// data-segment end by that many bytes (0 reads the current end,
// matching sbrk(0)'s idiom) and returns the new end. When the break
// grows past a page boundary, the frames for all newly covered pages
// are requested from Memory in one AllocPages call; a negative increment below the segment's
// base is rejected with EINVAL rather than silently clamped.
func (d *Dispatcher) DoBrk(pid proc.ProcessID, increment int64) (int64, iocommon.Errno) {
	defer d.stats.record(Brk)

	base := int64(proc.CodeBase) + int64(proc.DataBaseOffset)

	d.breaksMu.Lock()
	defer d.breaksMu.Unlock()

	cur, ok := d.breaks[pid]
	if !ok {
		cur = base
		d.breaks[pid] = cur
	}
	if increment == 0 {
		return cur, iocommon.OK
	}

	next := cur + increment
	if next < base {
		return cur, iocommon.EINVAL
	}

	if d.Memory != nil && next > cur {
		oldPages := pagesFor(cur - base)
		newPages := pagesFor(next - base)
		if extra := newPages - oldPages; extra > 0 {
			frames, err := d.Memory.AllocPages(extra)
			if err != nil {
				return cur, iocommon.ENOMEM
			}
			virt := uintptr(base) + uintptr(oldPages)*PageSize
			if err := d.Memory.MapUser(sched.ProcessID(pid), frames, virt, sched.MapReadOnly|sched.MapWritable); err != nil {
				d.Memory.FreePages(frames)
				return cur, iocommon.ENOMEM
			}
		}
	}

	d.breaks[pid] = next
	return next, iocommon.OK
}

func pagesFor(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + PageSize - 1) / PageSize
}

// DoCacheFlush implements the CACHE_FLUSH: write back every
// dirty, reserved block-cache entry without evicting clean ones.
func (d *Dispatcher) DoCacheFlush() iocommon.Errno {
	defer d.stats.record(CacheFlush)
	if d.Cache == nil {
		return iocommon.OK
	}
	return d.Cache.Flush()
}

// DoCacheFlushClear implements the CACHE_FLUSH_CLEAR: flush,
// then drop every evictable entry so the next access re-reads from the
// backing device.
func (d *Dispatcher) DoCacheFlushClear() iocommon.Errno {
	defer d.stats.record(CacheFlushClear)
	if d.Cache == nil {
		return iocommon.OK
	}
	if errno := d.Cache.Flush(); errno != iocommon.OK {
		return errno
	}
	d.Cache.Clear()
	return iocommon.OK
}

// DoReboot implements the REBOOT, delegating to whatever
// caller-supplied shutdown action OnReboot names (there is no power
// controller within this module's scope).
func (d *Dispatcher) DoReboot() iocommon.Errno {
	defer d.stats.record(Reboot)
	if d.OnReboot != nil {
		d.OnReboot()
	}
	return iocommon.OK
}

// PollFD mirrors one entry of POLL's pollfd array.
type PollFD struct {
	Fd      int
	Events  uint32
	Revents uint32
}

// DoPoll implements the POLL. Since readiness events here are
// only ever computed synchronously against each node's current state
// (there is no event-loop driving StartIoEventMonitoring's waiter
// callbacks at this layer), DoPoll takes a single non-blocking
// snapshot regardless of timeoutMs; a caller wanting to actually block
// for timeoutMs is expected to loop DoPoll against its own
// sched.CommandScheduler, the same deferral DoSleep documents.
func (d *Dispatcher) DoPoll(pid proc.ProcessID, fds []PollFD, timeoutMs int) (int, iocommon.Errno) {
	defer d.stats.record(Poll)
	ready := 0
	for i := range fds {
		ofd, _, errno := d.lookupFD(pid, fds[i].Fd)
		if errno != iocommon.OK {
			fds[i].Revents = 0
			continue
		}
		revents, errno := ofd.Node.MonitorIoEvent(fds[i].Events)
		if errno != iocommon.OK {
			fds[i].Revents = 0
			continue
		}
		fds[i].Revents = revents
		if revents != 0 {
			ready++
		}
	}
	return ready, iocommon.OK
}
