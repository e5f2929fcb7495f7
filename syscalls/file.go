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
	"github.com/gokernel/gokernel/fs/pipefs"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/pathutil"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/vfs"
)

// Open flags are declared in syscalls.go alongside Dispatcher.

// DoOpen implements the OPEN: resolve path relative to pid's
// cwd (creating it if O_CREAT is set), install an open-file
// description, and attach the lowest free descriptor to pid.
func (d *Dispatcher) DoOpen(pid proc.ProcessID, path string, flags int, mode vfs.Mode) (int, iocommon.Errno) {
	defer d.stats.record(Open)

	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return -1, errno
	}
	opts.CreateIfMissing = flags&OCreat != 0
	opts.FailIfExists = flags&OExcl != 0
	opts.Mode = mode

	res, errno := d.VFS.ResolvePath(path, opts)
	if errno != iocommon.OK {
		return -1, errno
	}
	node := res.Node

	if flags&ODirectory != 0 && node.GetMode() != vfs.ModeDirectory {
		node.Release()
		return -1, iocommon.ENOTDIR
	}
	if flags&OTrunc != 0 && node.GetMode() == vfs.ModeRegular {
		if errno := node.ChangeFileSize(0); errno != iocommon.OK {
			node.Release()
			return -1, errno
		}
	}
	if errno := node.Open(flags); errno != iocommon.OK {
		node.Release()
		return -1, errno
	}

	handle, errno := d.VFS.OFDs.Acquire(node, flags)
	if errno != iocommon.OK {
		node.Release()
		return -1, errno
	}
	if flags&OAppend != 0 {
		if st, errno := node.Status(); errno == iocommon.OK {
			if ofd, errno := d.VFS.OFDs.Get(handle); errno == iocommon.OK {
				ofd.Offset = st.Size
			}
		}
	}

	p, errno := d.process(pid)
	if errno != iocommon.OK {
		d.VFS.OFDs.Release(handle)
		return -1, errno
	}
	fd, ok := p.AllocateFD(handle, 0)
	if !ok {
		d.VFS.OFDs.Release(handle)
		return -1, iocommon.EMFILE
	}
	return fd, iocommon.OK
}

// DoRead implements the READ, advancing the shared OFD offset
// by however many bytes the node actually returned (a short read is
// success).
func (d *Dispatcher) DoRead(pid proc.ProcessID, fd int, buf []byte) (int, iocommon.Errno) {
	defer d.stats.record(Read)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return 0, errno
	}
	n, errno := ofd.Node.Read(ofd.Offset, buf)
	ofd.Offset += int64(n)
	return n, errno
}

// DoWrite implements the WRITE.
func (d *Dispatcher) DoWrite(pid proc.ProcessID, fd int, buf []byte) (int, iocommon.Errno) {
	defer d.stats.record(Write)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return 0, errno
	}
	n, errno := ofd.Node.Write(ofd.Offset, buf)
	ofd.Offset += int64(n)
	return n, errno
}

// DoClose implements the CLOSE.
func (d *Dispatcher) DoClose(pid proc.ProcessID, fd int) iocommon.Errno {
	defer d.stats.record(Close)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return errno
	}
	handle, ok := p.CloseFD(fd)
	if !ok {
		return iocommon.EBADF
	}
	return d.VFS.OFDs.Release(handle)
}

// Whence selects lseek's offset origin, mirroring SEEK_SET/CUR/END.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// DoLseek implements the LSEEK, honoring the node's own reposition
// policy.
func (d *Dispatcher) DoLseek(pid proc.ProcessID, fd int, offset int64, whence Whence) (int64, iocommon.Errno) {
	defer d.stats.record(Lseek)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return 0, errno
	}

	switch ofd.Node.GetOpenFileDescriptionOffsetRepositionPolicy() {
	case vfs.RepositionNotAllowed:
		return 0, iocommon.ESPIPE
	case vfs.RepositionAlwaysZero:
		ofd.Offset = 0
		return 0, iocommon.OK
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = ofd.Offset
	case SeekEnd:
		base = ofd.Node.GetSize()
	default:
		return 0, iocommon.EINVAL
	}

	newOffset := base + offset
	if newOffset < 0 {
		return 0, iocommon.EINVAL
	}
	ofd.Offset = newOffset
	return newOffset, iocommon.OK
}

// DoStat implements the STAT ("fd → stat struct").
func (d *Dispatcher) DoStat(pid proc.ProcessID, fd int) (vfs.Stat, iocommon.Errno) {
	defer d.stats.record(Stat)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return vfs.Stat{}, errno
	}
	return ofd.Node.Status()
}

// DoReaddir implements the READDIR ("fd → dirent, eod flag").
func (d *Dispatcher) DoReaddir(pid proc.ProcessID, fd int) (vfs.DirEntry, iocommon.Errno) {
	defer d.stats.record(Readdir)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return vfs.DirEntry{}, errno
	}
	entry, next, errno := ofd.Node.ReadDirectoryEntry(ofd.Offset)
	if errno != iocommon.OK {
		return vfs.DirEntry{}, errno
	}
	ofd.Offset = next
	return entry, iocommon.OK
}

// DoFtruncate implements the FTRUNCATE.
func (d *Dispatcher) DoFtruncate(pid proc.ProcessID, fd int, size int64) iocommon.Errno {
	defer d.stats.record(Ftruncate)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return errno
	}
	return ofd.Node.ChangeFileSize(size)
}

// DoMkdir implements the MKDIR.
func (d *Dispatcher) DoMkdir(pid proc.ProcessID, path string, mode vfs.Mode) iocommon.Errno {
	defer d.stats.record(Mkdir)
	return d.createViaParent(pid, path, func(parent vfs.Node, name string) (vfs.Node, iocommon.Errno) {
		return parent.CreateDirectory(name, mode)
	})
}

// DoSymlink implements the SYMLINK ("target, path").
func (d *Dispatcher) DoSymlink(pid proc.ProcessID, target, path string) iocommon.Errno {
	defer d.stats.record(Symlink)
	return d.createViaParent(pid, path, func(parent vfs.Node, name string) (vfs.Node, iocommon.Errno) {
		return parent.CreateSymbolicLink(name, target)
	})
}

// createViaParent resolves path's containing directory (without
// following a symlink in the final segment) and invokes create
// against the directory node and final segment name, the shared shape
// of MKDIR and SYMLINK.
func (d *Dispatcher) createViaParent(pid proc.ProcessID, path string, create func(parent vfs.Node, name string) (vfs.Node, iocommon.Errno)) iocommon.Errno {
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return errno
	}
	ctx := pathutil.NewContext()
	if errno := ctx.ParsePath(path, false, false, opts.Cwd); errno != iocommon.OK {
		return errno
	}
	last, ok := ctx.LastSegment()
	if !ok {
		return iocommon.EEXIST
	}
	res, errno := d.VFS.ResolvePath(ctx.Buffer(), opts)
	if errno != iocommon.OK {
		return errno
	}
	defer res.Node.Release()
	if res.Node.GetMode() != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}
	child, errno := create(res.Node, last)
	if errno == iocommon.OK {
		child.Release()
	}
	return errno
}

// DoUnlink/DoRmdir implement the UNLINK/RMDIR.
func (d *Dispatcher) DoUnlink(pid proc.ProcessID, path string) iocommon.Errno {
	defer d.stats.record(Unlink)
	return d.releaseViaParent(pid, path, false)
}

func (d *Dispatcher) DoRmdir(pid proc.ProcessID, path string) iocommon.Errno {
	defer d.stats.record(Rmdir)
	return d.releaseViaParent(pid, path, true)
}

func (d *Dispatcher) releaseViaParent(pid proc.ProcessID, path string, directory bool) iocommon.Errno {
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return errno
	}
	ctx := pathutil.NewContext()
	if errno := ctx.ParsePath(path, false, false, opts.Cwd); errno != iocommon.OK {
		return errno
	}
	last, ok := ctx.LastSegment()
	if !ok {
		return iocommon.EPERM
	}
	res, errno := d.VFS.ResolvePath(ctx.Buffer(), opts)
	if errno != iocommon.OK {
		return errno
	}
	defer res.Node.Release()
	if directory {
		return res.Node.ReleaseDirectory(last)
	}
	return res.Node.ReleaseName(last)
}

// DoLink implements the LINK. The VirtualFileSystemNode
// vtable has no "attach a second name to an existing inode" operation:
// createName/createDirectory/
// createSymbolicLink always mint a fresh inode, and rename transfers a
// single directory entry rather than adding one. Without a backing
// primitive a second entry pointing at oldPath's inode cannot be
// created, so this resolves oldPath (to surface ENOENT for a missing
// source, matching link(2)'s ordering) and reports the operation as
// unsupported.
func (d *Dispatcher) DoLink(pid proc.ProcessID, oldPath, newPath string) iocommon.Errno {
	defer d.stats.record(Link)
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return errno
	}
	old, errno := d.VFS.ResolvePath(oldPath, opts)
	if errno != iocommon.OK {
		return errno
	}
	old.Node.Release()
	return iocommon.EPERM
}

// DoRename implements the RENAME.
func (d *Dispatcher) DoRename(pid proc.ProcessID, oldPath, newPath string) iocommon.Errno {
	defer d.stats.record(Rename)
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return errno
	}
	oldCtx := pathutil.NewContext()
	if errno := oldCtx.ParsePath(oldPath, false, false, opts.Cwd); errno != iocommon.OK {
		return errno
	}
	oldName, ok := oldCtx.LastSegment()
	if !ok {
		return iocommon.EINVAL
	}
	oldParent, errno := d.VFS.ResolvePath(oldCtx.Buffer(), opts)
	if errno != iocommon.OK {
		return errno
	}
	defer oldParent.Node.Release()

	newCtx := pathutil.NewContext()
	if errno := newCtx.ParsePath(newPath, false, false, opts.Cwd); errno != iocommon.OK {
		return errno
	}
	newName, ok := newCtx.LastSegment()
	if !ok {
		return iocommon.EINVAL
	}
	newParent, errno := d.VFS.ResolvePath(newCtx.Buffer(), opts)
	if errno != iocommon.OK {
		return errno
	}
	defer newParent.Node.Release()

	return oldParent.Node.Rename(oldName, newParent.Node, newName)
}

// DoGetcwd/DoChdir implement the GETCWD/CHDIR.
func (d *Dispatcher) DoGetcwd(pid proc.ProcessID) (string, iocommon.Errno) {
	defer d.stats.record(Getcwd)
	return d.Procs.Cwd(pid)
}

func (d *Dispatcher) DoChdir(pid proc.ProcessID, path string) iocommon.Errno {
	defer d.stats.record(Chdir)
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return errno
	}
	res, errno := d.VFS.ResolvePath(path, opts)
	if errno != iocommon.OK {
		return errno
	}
	defer res.Node.Release()
	if res.Node.GetMode() != vfs.ModeDirectory {
		return iocommon.ENOTDIR
	}

	ctx := pathutil.NewContext()
	if errno := ctx.ParsePath(path, false, true, opts.Cwd); errno != iocommon.OK {
		return errno
	}
	return d.Procs.SetCwd(pid, ctx.Buffer())
}

// DoUmask implements the UMASK ("new → old").
func (d *Dispatcher) DoUmask(pid proc.ProcessID, newMask uint32) (uint32, iocommon.Errno) {
	defer d.stats.record(Umask)
	return d.Procs.SetUmask(pid, newMask)
}

// DoDup/DoDup2 implement the DUP/DUP2.
func (d *Dispatcher) DoDup(pid proc.ProcessID, fd int) (int, iocommon.Errno) {
	defer d.stats.record(Dup)
	_, handle, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return -1, errno
	}
	dup, errno := d.VFS.OFDs.Dup(handle)
	if errno != iocommon.OK {
		return -1, errno
	}
	p, _ := d.process(pid)
	newFd, ok := p.AllocateFD(dup, 0)
	if !ok {
		d.VFS.OFDs.Release(dup)
		return -1, iocommon.EMFILE
	}
	return newFd, iocommon.OK
}

func (d *Dispatcher) DoDup2(pid proc.ProcessID, oldFd, newFd int) (int, iocommon.Errno) {
	defer d.stats.record(Dup)
	_, handle, errno := d.lookupFD(pid, oldFd)
	if errno != iocommon.OK {
		return -1, errno
	}
	if oldFd == newFd {
		return newFd, iocommon.OK
	}
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return -1, errno
	}
	if old, ok := p.CloseFD(newFd); ok {
		d.VFS.OFDs.Release(old)
	}
	dup, errno := d.VFS.OFDs.Dup(handle)
	if errno != iocommon.OK {
		return -1, errno
	}
	if !p.AllocateFDAt(newFd, dup, 0) {
		d.VFS.OFDs.Release(dup)
		return -1, iocommon.EBADF
	}
	return newFd, iocommon.OK
}

// DoPipe implements the PIPE ("→ (rfd, wfd)"), mounting the
// two ends of a fresh fs/pipefs.Buffer into pid's descriptor table.
func (d *Dispatcher) DoPipe(pid proc.ProcessID) (readFd, writeFd int, errno iocommon.Errno) {
	defer d.stats.record(Pipe)
	r, w := pipefs.New(d.Procs)

	rHandle, errno := d.VFS.OFDs.Acquire(r, ORdOnly)
	if errno != iocommon.OK {
		r.Release()
		w.Release()
		return -1, -1, errno
	}
	wHandle, errno := d.VFS.OFDs.Acquire(w, OWrOnly)
	if errno != iocommon.OK {
		d.VFS.OFDs.Release(rHandle)
		w.Release()
		return -1, -1, errno
	}

	p, errno := d.process(pid)
	if errno != iocommon.OK {
		d.VFS.OFDs.Release(rHandle)
		d.VFS.OFDs.Release(wHandle)
		return -1, -1, errno
	}
	rFd, ok := p.AllocateFD(rHandle, 0)
	if !ok {
		d.VFS.OFDs.Release(rHandle)
		d.VFS.OFDs.Release(wHandle)
		return -1, -1, iocommon.EMFILE
	}
	wFd, ok := p.AllocateFD(wHandle, 0)
	if !ok {
		p.CloseFD(rFd)
		d.VFS.OFDs.Release(rHandle)
		d.VFS.OFDs.Release(wHandle)
		return -1, -1, iocommon.EMFILE
	}
	return rFd, wFd, iocommon.OK
}

// DoIoctl implements the IOCTL, forwarded verbatim to the
// node's ManipulateDeviceParameters vtable slot.
func (d *Dispatcher) DoIoctl(pid proc.ProcessID, fd int, request int, arg any) iocommon.Errno {
	defer d.stats.record(Ioctl)
	ofd, _, errno := d.lookupFD(pid, fd)
	if errno != iocommon.OK {
		return errno
	}
	return ofd.Node.ManipulateDeviceParameters(request, arg)
}

// FcntlCmd selects FCNTL's operation.
type FcntlCmd int

const (
	FcntlDupFD FcntlCmd = iota
)

// DoFcntl implements the FCNTL (the generic, non-CLOEXEC
// entry at 0x21); only F_DUPFD is modeled since this kernel has no
// file-status flags distinct from open flags.
func (d *Dispatcher) DoFcntl(pid proc.ProcessID, fd int, cmd FcntlCmd, arg int) (int, iocommon.Errno) {
	defer d.stats.record(Fcntl)
	switch cmd {
	case FcntlDupFD:
		return d.DoDup(pid, fd)
	default:
		return -1, iocommon.EINVAL
	}
}

// DoFcntlSetCloseOnExec implements the separate FCNTL
// (FD_CLOEXEC) entry at 0x30.
func (d *Dispatcher) DoFcntlSetCloseOnExec(pid proc.ProcessID, fd int, set bool) iocommon.Errno {
	defer d.stats.record(FcntlSetCloseOnExec)
	p, errno := d.process(pid)
	if errno != iocommon.OK {
		return errno
	}
	if !p.SetCloseOnExec(fd, set) {
		return iocommon.EBADF
	}
	return iocommon.OK
}

// readWholeFile opens path read-only through the VFS and drains it
// into a single buffer, the ReadFileFunc proc.Manager.Exec needs to
// parse a `#!` header or load a flat binary; proc has no VFS type of
// its own to do this reading directly.
func (d *Dispatcher) readWholeFile(pid proc.ProcessID, path string) ([]byte, iocommon.Errno) {
	opts, errno := d.resolveOptions(pid)
	if errno != iocommon.OK {
		return nil, errno
	}
	res, errno := d.VFS.ResolvePath(path, opts)
	if errno != iocommon.OK {
		return nil, errno
	}
	defer res.Node.Release()
	if res.Node.GetMode() == vfs.ModeDirectory {
		return nil, iocommon.EISDIR
	}

	size := res.Node.GetSize()
	if size < 0 {
		size = 0
	}
	buf := make([]byte, size)
	var offset int64
	for offset < size {
		n, errno := res.Node.Read(offset, buf[offset:])
		if errno != iocommon.OK {
			return nil, errno
		}
		if n == 0 {
			break
		}
		offset += int64(n)
	}
	return buf[:offset], iocommon.OK
}

// DoExec implements the EXEC.
func (d *Dispatcher) DoExec(pid proc.ProcessID, path string, argv, envp []string) (proc.ExecImage, iocommon.Errno) {
	defer d.stats.record(Exec)
	read := func(p string) ([]byte, iocommon.Errno) { return d.readWholeFile(pid, p) }
	return d.Procs.Exec(pid, read, d.isDirectoryFD, path, argv, envp)
}
