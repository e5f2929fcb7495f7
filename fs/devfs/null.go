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

package devfs

import (
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/vfs"
)

// Null is /dev/null: reads return zero bytes, writes silently discard
// everything
type Null struct {
	vfs.UnimplementedNode
	owner *FileSystem
	rc    vfs.ReservationCounter
}

// NewNull returns a ready-to-register Null device node belonging to
// owner.
func NewNull(owner *FileSystem) *Null {
	n := &Null{owner: owner}
	n.rc.Init(func() {})
	return n
}

func (n *Null) Open(int) iocommon.Errno { return iocommon.OK }

func (n *Null) Read(int64, []byte) (int, iocommon.Errno) { return 0, iocommon.OK }

func (n *Null) Write(_ int64, buf []byte) (int, iocommon.Errno) { return len(buf), iocommon.OK }

func (n *Null) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeCharDevice, Links: 1}, iocommon.OK
}

func (n *Null) GetMode() vfs.Mode { return vfs.ModeCharDevice }

func (n *Null) GetSize() int64 { return 0 }

func (n *Null) GetFileSystem() vfs.FileSystem { return n.owner }

func (n *Null) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionAlwaysZero
}

func (n *Null) Reserve()        { n.rc.Reserve() }
func (n *Null) Release()        { n.rc.Release() }
func (n *Null) UsageCount() int { return n.rc.UsageCount() }
