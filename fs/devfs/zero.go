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

// Zero is /dev/zero: reads fill the caller's buffer with zero bytes;
// writes discard
type Zero struct {
	vfs.UnimplementedNode
	owner *FileSystem
	rc    vfs.ReservationCounter
}

// NewZero returns a ready-to-register Zero device node belonging to
// owner.
func NewZero(owner *FileSystem) *Zero {
	z := &Zero{owner: owner}
	z.rc.Init(func() {})
	return z
}

func (z *Zero) Open(int) iocommon.Errno { return iocommon.OK }

func (z *Zero) Read(_ int64, buf []byte) (int, iocommon.Errno) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), iocommon.OK
}

func (z *Zero) Write(_ int64, buf []byte) (int, iocommon.Errno) { return len(buf), iocommon.OK }

func (z *Zero) Status() (vfs.Stat, iocommon.Errno) {
	return vfs.Stat{Mode: vfs.ModeCharDevice, Links: 1}, iocommon.OK
}

func (z *Zero) GetMode() vfs.Mode { return vfs.ModeCharDevice }

func (z *Zero) GetSize() int64 { return 0 }

func (z *Zero) GetFileSystem() vfs.FileSystem { return z.owner }

func (z *Zero) GetOpenFileDescriptionOffsetRepositionPolicy() vfs.RepositionPolicy {
	return vfs.RepositionAlwaysZero
}

func (z *Zero) Reserve()        { z.rc.Reserve() }
func (z *Zero) Release()        { z.rc.Release() }
func (z *Zero) UsageCount() int { return z.rc.UsageCount() }
