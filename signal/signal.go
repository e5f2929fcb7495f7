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

// Package signal implements the per-process signal disposition table and
// delivery-decision logic, re-expressed with the same dirty/clean
// small-state-machine shape gcsproxy.MutableObject uses for
// its own internal transitions (there: clean/dirty/syncing; here: each
// signal's pending/handler/sigaction triple transitioning under
// ChangeSignalAction, ChangeSignalsBlockage, and GenerateSignal).
package signal

// Signal identifies one of NumberOfSignals signal numbers, 1-indexed to
// match POSIX numbering (index 0 is never used).
type Signal int

const NumberOfSignals = 31

const (
	SIGHUP  Signal = 1
	SIGINT  Signal = 2
	SIGQUIT Signal = 3
	SIGILL  Signal = 4
	SIGTRAP Signal = 5
	SIGABRT Signal = 6
	SIGBUS  Signal = 7
	SIGFPE  Signal = 8
	SIGKILL Signal = 9
	SIGUSR1 Signal = 10
	SIGSEGV Signal = 11
	SIGUSR2 Signal = 12
	SIGPIPE Signal = 13
	SIGALRM Signal = 14
	SIGTERM Signal = 15
	SIGCHLD Signal = 17
	SIGCONT Signal = 18
	SIGSTOP Signal = 19
	SIGTSTP Signal = 20
	SIGTTIN Signal = 21
	SIGTTOU Signal = 22
	SIGURG  Signal = 23
	SIGXCPU Signal = 24
	SIGXFSZ Signal = 25
	SIGVTALRM Signal = 26
	SIGPROF Signal = 27
	SIGWINCH Signal = 28
	SIGSYS  Signal = 31
)

// Disposition is what happens when a signal is delivered.
type Disposition int

const (
	DispositionDefault Disposition = iota
	DispositionIgnore
	DispositionHandler
)

// Handler is a disposition record for one signal.
type Handler struct {
	Disposition Disposition
	Callback    uintptr // user-space function pointer, meaningful only when Disposition == DispositionHandler
}

// Sigaction mirrors struct sigaction's mask/flags pair.
type Sigaction struct {
	Mask  Set
	Flags Flags
}

// Flags are the subset of sigaction flags this kernel cares about.
type Flags uint32

const (
	SA_NODEFER Flags = 1 << iota
)

// creationInfo records why a signal became pending, for the
// unrecoverable-fault-signals-are-sticky rule in Fork/GenerateSignal.
type creationInfo struct {
	inResponseToUnrecoverableFault bool
}

// perSignalState is the {pending?, creationInfo, handler, sigaction}
// tuple attached to every signal number.
type perSignalState struct {
	pending  bool
	info     creationInfo
	handler  Handler
	sigaction Sigaction
}

// Table is one process's full signal disposition + pending + blocked
// state.
type Table struct {
	blocked Set
	signals [NumberOfSignals + 1]perSignalState
}

// NewTable returns a Table with every signal at its default
// disposition and nothing blocked or pending.
func NewTable() *Table {
	return &Table{}
}

// cannotBeChanged reports whether sig's action/blockage is immutable
// (SIGKILL, SIGSTOP).
func cannotBeChanged(sig Signal) bool {
	return sig == SIGKILL || sig == SIGSTOP
}

// Fork returns a copy of t for a child process: handlers and sigactions
// are copied, but pending status is cleared except for signals whose
// creationInfo marks them as originating from an unrecoverable fault
// (those are sticky across fork Fork description).
func (t *Table) Fork() *Table {
	child := &Table{blocked: t.blocked}
	for i := range t.signals {
		s := t.signals[i]
		s.pending = s.pending && s.info.inResponseToUnrecoverableFault
		child.signals[i] = s
	}
	return child
}

// Disposition returns sig's current handler disposition.
func (t *Table) Disposition(sig Signal) Disposition {
	return t.signals[sig].handler.Disposition
}

// ResetOnExec clears every caught (user-handler) disposition back to
// default Exec description; ignored dispositions and
// blocked/pending state survive exec.
func (t *Table) ResetOnExec() {
	for i := range t.signals {
		if t.signals[i].handler.Disposition == DispositionHandler {
			t.signals[i].handler = Handler{}
		}
	}
}
