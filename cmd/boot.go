// Copyright 2024 Google LLC
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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gokernel/gokernel/blockcache"
	"github.com/gokernel/gokernel/blockdev"
	"github.com/gokernel/gokernel/cfg"
	"github.com/gokernel/gokernel/clock"
	"github.com/gokernel/gokernel/fs/devfs"
	"github.com/gokernel/gokernel/fs/ext2"
	"github.com/gokernel/gokernel/iocommon"
	"github.com/gokernel/gokernel/logger"
	"github.com/gokernel/gokernel/proc"
	"github.com/gokernel/gokernel/sched"
	"github.com/gokernel/gokernel/syscalls"
	"github.com/gokernel/gokernel/tty"
	"github.com/gokernel/gokernel/vfs"
)

// devfsCapacity bounds the number of device nodes devfs will ever hold;
// the kernel only ever registers the handful it knows about at boot.
const devfsCapacity = 16

// ofdPoolCapacity bounds the number of simultaneously open file
// descriptions across every process, mirroring a typical open-file-table
// sizing rather than growing unbounded.
const ofdPoolCapacity = 4096

// Kernel holds every collaborator boot assembles, wired together the way
// mount.go's mountWithStorageHandle wired a gcsx.BucketManager into an
// fs.Server: each concrete implementation satisfies an interface some
// other package depends on only abstractly.
type Kernel struct {
	VFS      *vfs.Manager
	Procs    *proc.Manager
	Cache    *blockcache.Cache
	Dev      blockdev.BlockDevice
	Syscalls *syscalls.Dispatcher

	device *tty.Device
	tick   sched.CommandScheduler
}

// crashLogPath is where a panic in the boot goroutine gets dumped before
// the process exits, alongside the regular rotated log.
const crashLogPath = "gokernel.crash.log"

// Boot assembles a Kernel from config and starts its round-robin
// scheduling tick, then blocks forever. It returns only when logging
// setup or assembly fails, or when assembly panics; tests that need the
// assembled Kernel call assemble directly.
func Boot(config *cfg.Config) (err error) {
	if err := initLogging(config); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	bootID := uuid.New().String()

	crash := logger.NewAsyncLogger(&crashWriterCloser{&CrashWriter{fileName: crashLogPath}}, 64)
	defer crash.Close()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(crash, "boot %s: panic during boot: %v\n", bootID, r)
			err = fmt.Errorf("panic during boot: %v", r)
		}
	}()

	logger.Infof("boot %s: booting from root image %q", bootID, config.Root)

	k, err := assemble(config)
	if err != nil {
		return err
	}

	logger.Infof("boot %s: init process started as pid %d", bootID, k.Procs.Init().Pid)
	k.tick.Every(time.Duration(config.Scheduler.TimesliceMs)*time.Millisecond, k.Procs.Tick)

	// A real boot hands control to the init process's fetch-decode-execute
	// loop next; that loop lives outside this module's scope, so Boot's
	// job ends once the kernel is fully assembled and ticking.
	select {}
}

// crashWriterCloser adapts CrashWriter (which reopens its file on every
// write and has nothing to release) to io.WriteCloser for AsyncLogger.
type crashWriterCloser struct {
	*CrashWriter
}

func (crashWriterCloser) Close() error { return nil }

func initLogging(config *cfg.Config) error {
	return logger.InitLogFile(logger.Config{
		FilePath: string(config.Logging.FilePath),
		Severity: string(config.Logging.Severity),
		Format:   config.Logging.Format,
		Rotate: logger.RotateConfig{
			MaxFileSizeMB:   int(config.Logging.LogRotate.MaxFileSizeMb),
			BackupFileCount: config.Logging.LogRotate.BackupFileCount,
			Compress:        config.Logging.LogRotate.Compress,
		},
	})
}

func assemble(config *cfg.Config) (*Kernel, error) {
	dev, fresh, err := openRootDevice(config.Root)
	if err != nil {
		return nil, fmt.Errorf("opening root device: %w", err)
	}

	cache := blockcache.New(int(config.Cache.CapacityBlocks))

	vfsMgr := vfs.NewManager(ofdPoolCapacity)

	var root *ext2.FileSystem
	var errno iocommon.Errno
	if fresh {
		root, errno = ext2.Format("root", dev, cache, rootInodeCacheCapacity, defaultRootInodeCount)
	} else {
		root, errno = ext2.Mount("root", dev, cache, rootInodeCacheCapacity)
	}
	if errno != iocommon.OK {
		return nil, fmt.Errorf("mounting root filesystem: errno %d", errno)
	}
	vfsMgr.Mount("/", root)

	procMgr := proc.NewManager(vfsMgr.OFDs)

	devFS := devfs.New(devfsCapacity)
	vfsMgr.Mount("/dev", devFS)

	device := tty.NewDevice(procMgr, 80, 24)
	node := tty.NewNode(procMgr, device)
	if errno := devFS.Register(config.ForegroundTty, node); errno != iocommon.OK {
		return nil, fmt.Errorf("registering foreground tty %q: errno %d", config.ForegroundTty, errno)
	}

	init := procMgr.Init()
	if errno := procMgr.AcquireControllingTTY(init.Pid, device); errno != iocommon.OK {
		logger.Warnf("init could not acquire %q as its controlling tty: errno %d", config.ForegroundTty, errno)
	}

	dispatcher := syscalls.NewDispatcher(procMgr, vfsMgr, clock.RealClock{})
	dispatcher.Cache = cache
	dispatcher.OnReboot = func() {
		logger.Infof("reboot requested, exiting")
		os.Exit(0)
	}

	return &Kernel{
		VFS:      vfsMgr,
		Procs:    procMgr,
		Cache:    cache,
		Dev:      dev,
		Syscalls: dispatcher,
		device:   device,
		tick:     newRealtimeScheduler(),
	}, nil
}

// defaultRootInodeCount sizes a freshly-formatted in-memory root image;
// small enough for a quick boot, large enough for a handful of device
// nodes and a few directories underneath them.
const defaultRootInodeCount = 256

// rootInodeCacheCapacity bounds the root filesystem's in-memory inode
// cache; ext2 evicts an unreserved inode once it holds this many.
const rootInodeCacheCapacity = 64

// openRootDevice opens config.Root as a 4 KiB-block device. A path that
// doesn't yet exist is treated as a request for a fresh in-memory image,
// which the caller must then ext2.Format rather than ext2.Mount, the
// same fallback blockdev's own tests use in place of a real disk image.
func openRootDevice(root cfg.ResolvedPath) (dev blockdev.BlockDevice, fresh bool, err error) {
	const blockSize = 4096
	info, statErr := os.Stat(string(root))
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return blockdev.NewMemoryDevice(blockSize, 16384), true, nil
		}
		return nil, false, statErr
	}
	blockCount := uint32(info.Size() / blockSize)
	dev, err = blockdev.OpenFileDevice(string(root), blockSize, blockCount)
	return dev, false, err
}
