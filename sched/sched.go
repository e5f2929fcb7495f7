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

// Package sched defines the collaborator interfaces the process manager
// depends on but that this module does not itself drive against real
// hardware: physical memory allocation and a periodic/one-shot command
// timer standing in for the PIT/CMOS tick source. Keeping both behind
// interfaces, the same role ServerConfig's collaborators play for
// fs.NewServer, lets proc.Manager be driven deterministically in tests
// without a real MMU or timer interrupt.
package sched

import "time"

// PageFrame identifies one physical page frame by its frame number.
type PageFrame uint32

// MapFlags controls how a mapping behaves.
type MapFlags uint32

const (
	MapReadOnly MapFlags = 1 << iota
	MapWritable
	MapExecutable
)

// ProcessID identifies a process for the purposes of MemoryManager, kept
// as an independent type so sched does not import proc; callers such as
// syscalls convert proc.ProcessID to it.
type ProcessID uint32

// MemoryManager allocates and maps physical page frames on behalf of the
// process manager. Production wiring stays abstract since the paging
// hardware driver is out of scope (the out-of-scope list).
type MemoryManager interface {
	AllocPages(n int) ([]PageFrame, error)
	FreePages([]PageFrame)
	MapUser(proc ProcessID, frames []PageFrame, virt uintptr, flags MapFlags) error
}

// CommandID identifies a scheduled command for later cancellation.
type CommandID uint64

// CommandScheduler runs callbacks after a delay (single-shot) or on a
// fixed period (repeating), standing in for the kernel's timer-interrupt
// tick source so the round-robin scheduler's preemption ticks are
// testable without a real PIT/CMOS driver.
type CommandScheduler interface {
	After(d time.Duration, fn func()) CommandID
	Every(d time.Duration, fn func()) CommandID
	Cancel(id CommandID)
}
