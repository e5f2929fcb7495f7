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

package signal

import "encoding/binary"

// CallbackFrame is the fixed-size structure pushed onto the user stack
// before a user signal handler runs. sa_sigaction (siginfo_t delivery)
// is not implemented by this kernel and is always cleared.
type CallbackFrame struct {
	ReturnEIP      uint32
	Sigaction      Sigaction
	SigactionSize  uint32
	PostHandlerMask Set
	SignalID       uint32
}

// FrameSize is CallbackFrame's size once serialized (4 uint32-equivalent
// fields, with Sigaction flattened to its mask+flags pair).
const FrameSize = 4*4 + 4 + 4

// PrepareCallbackFrame computes the frame for delivering sig to a
// process currently at returnEIP with current blocked mask callerMask,
// using t's installed sigaction for sig. The post-handler mask is the
// caller's mask unioned with the sigaction's mask unioned with the
// delivered signal itself, unless SA_NODEFER is set (in which case the
// delivered signal is not added, allowing it to re-enter).
func (t *Table) PrepareCallbackFrame(sig Signal, returnEIP uint32, callerMask Set) CallbackFrame {
	sa := t.signals[sig].sigaction
	post := callerMask.Union(sa.Mask)
	if sa.Flags&SA_NODEFER == 0 {
		post = post.Add(sig)
	}
	return CallbackFrame{
		ReturnEIP:       returnEIP,
		Sigaction:       sa,
		SigactionSize:   FrameSize,
		PostHandlerMask: post,
		SignalID:        uint32(sig),
	}
}

// Serialize writes f into buf (which must be at least FrameSize bytes)
// in the fixed layout the user-mode trampoline expects.
func (f CallbackFrame) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], f.ReturnEIP)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Sigaction.Mask))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.Sigaction.Flags))
	binary.LittleEndian.PutUint32(buf[12:16], f.SigactionSize)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(f.PostHandlerMask))
	binary.LittleEndian.PutUint32(buf[20:24], f.SignalID)
}

// FitsOnStack reports whether FrameSize bytes fit below stackPointer
// without crossing stackLimit (the lowest valid stack address); if not,
// TERMINATE_PROCESS is substituted for the callback.
func FitsOnStack(stackPointer, stackLimit uint32) bool {
	return stackPointer >= stackLimit+FrameSize
}
