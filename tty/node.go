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

package tty

import (
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/vfs"
)

// ioctl requests this Node understands, the subset of TCGETS/TCSETS/
// TIOCGPGRP/TIOCSPGRP the "manipulateDeviceParameters"
// operation needs.
const (
	IoctlGetTermios = iota
	IoctlSetTermios
	IoctlGetForegroundGroup
	IoctlSetForegroundGroup
)

// Node mounts a Device into the VFS as a character device, the same
// way fs/devfs's Null/Zero expose a fixed behavior through the Node
// vtable. Device.Read/Write need the calling process's pid for the
// foreground-group discipline but Node's vtable carries no caller
// context, so Node resolves it itself via Manager.CurrentProcess(),
// the same pattern fs/pipefs uses to find who to SIGPIPE.
type Node struct {
	vfs.UnimplementedNode
	mgr    *proc.Manager
	dev    *Device
	fs     vfs.FileSystem
	rc     vfs.ReservationCounter
	noCTTY bool
}

type fileSystem struct{}

func (fileSystem) Name() string { return "ttyfs" }

var sharedFileSystem fileSystem

// NewNode returns a VFS node wrapping dev, reserved once for the
// caller per the "every Node-returning entry point already reserves"
// convention (fs/pipefs.New, vfs.Manager.ResolvePath).
func NewNode(mgr *proc.Manager, dev *Device) *Node {
	n := &Node{mgr: mgr, dev: dev, fs: sharedFileSystem}
	n.rc.Init(func() {})
	n.Reserve()
	return n
}

func (n *Node) callerPid() proc.ProcessID {
	pid, _ := n.mgr.CurrentProcess()
	return pid
}

// Open implements the controlling-TTY acquisition rule; O_NOCTTY is bit
// 6 of flags, the same bit as syscalls.ONoCTTY in this kernel's own
// open(2) encoding.
func (n *Node) Open(flags int) iocommon.Errno {
	const oNoCTTY = 1 << 6
	return n.dev.Open(n.callerPid(), flags&oNoCTTY != 0)
}

func (n *Node) Read(_ int64, buf []byte) (int, iocommon.Errno) {
	return n.dev.Read(n.callerPid(), buf)
}

func (n *Node) Write(_ int64, buf []byte) (int, iocommon.Errno) {
	return n.dev.Write(n.callerPid(), buf)
}

func (n *Node) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeCharDevice, Links: 1}, iocommon.OK
}

func (n *Node) GetMode() vfs.Mode { return vfs.ModeCharDevice }

func (n *Node) GetSize() int64 { return 0 }

func (n *Node) GetFileSystem() vfs.FileSystem { return n.fs }

func (n *Node) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionNotAllowed
}

// ManipulateDeviceParameters implements the ioctl subset a line
// discipline needs: termios get/set and the tcgetpgrp/tcsetpgrp pair,
// the latter backed by Manager.SetForegroundGroup/ForegroundGroup
// rather than anything Device itself tracks (the session, not the
// TTY, owns the foreground group).
func (n *Node) ManipulateDeviceParameters(request int, arg any) iocommon.Errno {
	switch request {
	case IoctlGetTermios:
		out, ok := arg.(*Termios)
		if !ok {
			return iocommon.EFAULT
		}
		*out = n.dev.Termios
		return iocommon.OK
	case IoctlSetTermios:
		t, ok := arg.(Termios)
		if !ok {
			return iocommon.EFAULT
		}
		n.dev.Termios = t
		return iocommon.OK
	case IoctlGetForegroundGroup:
		out, ok := arg.(*proc.ProcessID)
		if !ok {
			return iocommon.EFAULT
		}
		if n.dev.sid == 0 {
			return iocommon.ENOTTY
		}
		fg, ok := n.mgr.ForegroundGroup(n.dev.sid)
		if !ok {
			return iocommon.ENOTTY
		}
		*out = fg
		return iocommon.OK
	case IoctlSetForegroundGroup:
		pgid, ok := arg.(proc.ProcessID)
		if !ok {
			return iocommon.EFAULT
		}
		if n.dev.sid == 0 {
			return iocommon.ENOTTY
		}
		return n.mgr.SetForegroundGroup(n.dev.sid, pgid)
	default:
		return iocommon.ENOTTY
	}
}

func (n *Node) Reserve()        { n.rc.Reserve() }
func (n *Node) Release()        { n.rc.Release() }
func (n *Node) UsageCount() int { return n.rc.UsageCount() }
