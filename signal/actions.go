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

import "github.com/gokernel/gokernel/iocommon"

// ChangeSignalAction replaces sig's handler with disposition/callback/
// sigaction, for any signal except SIGKILL and SIGSTOP.
func (t *Table) ChangeSignalAction(sig Signal, h Handler, sa Sigaction) iocommon.Errno {
	if cannotBeChanged(sig) {
		return iocommon.EINVAL
	}
	t.signals[sig].handler = h
	t.signals[sig].sigaction = sa
	return iocommon.OK
}

// BlockageOp selects how ChangeSignalsBlockage combines its argument set
// with the current blocked mask.
type BlockageOp int

const (
	SIG_BLOCK BlockageOp = iota
	SIG_UNBLOCK
	SIG_SETMASK
)

// ChangeSignalsBlockage applies op with arg to the blocked mask,
// returning the mask as it was before the change. SIGKILL and SIGSTOP
// can never be blocked, regardless of arg.
func (t *Table) ChangeSignalsBlockage(op BlockageOp, arg Set) Set {
	old := t.blocked
	switch op {
	case SIG_BLOCK:
		t.blocked = t.blocked.Union(arg)
	case SIG_UNBLOCK:
		t.blocked &^= arg
	case SIG_SETMASK:
		t.blocked = arg
	}
	t.blocked = t.blocked.Remove(SIGKILL).Remove(SIGSTOP)
	return old
}

// Blocked returns the current blocked mask.
func (t *Table) Blocked() Set { return t.blocked }

// stopSignals and their continuation counterpart, used by GenerateSignal's
// SIGCONT/SIGSTOP-family mutual-exclusion rule.
var stopSignals = []Signal{SIGSTOP, SIGTSTP, SIGTTIN, SIGTTOU}

// GenerateSignal marks sig pending on t, applying the SIGCONT/stop-signal
// mutual-exclusion rule. fromUnrecoverableFault records that sig answers
// an unrecoverable fault, and re-marks it even when it is already
// pending; wake reports whether receiving this signal must wake a
// stopped process (SIGKILL/SIGCONT).
func (t *Table) GenerateSignal(sig Signal, fromUnrecoverableFault bool) (wake bool) {
	if sig == SIGCONT {
		for _, s := range stopSignals {
			t.signals[s].pending = false
		}
	}
	for _, s := range stopSignals {
		if sig == s {
			t.signals[SIGCONT].pending = false
		}
	}

	cur := &t.signals[sig]
	if cur.pending && !fromUnrecoverableFault {
		return sig == SIGKILL || sig == SIGCONT
	}
	cur.pending = true
	cur.info.inResponseToUnrecoverableFault = fromUnrecoverableFault
	return sig == SIGKILL || sig == SIGCONT
}

// Action is the delivery decision CalculateAction returns.
type Action int

const (
	ActionNone Action = iota
	ActionTerminateProcess
	ActionStopProcess
	ActionContinueProcessExecution
	ActionUserCallback
)

// defaultActionTable implements the priority table for every
// signal other than the unrecoverable-fault special case.
func defaultActionTable(sig Signal) Action {
	switch sig {
	case SIGCHLD, SIGWINCH, SIGURG:
		return ActionNone
	case SIGTSTP, SIGTTIN, SIGTTOU:
		return ActionStopProcess
	case SIGSTOP:
		return ActionStopProcess
	case SIGKILL:
		return ActionTerminateProcess
	case SIGCONT:
		return ActionContinueProcessExecution
	default:
		return ActionTerminateProcess
	}
}

// CalculateAction picks the action for the highest-priority deliverable
// pending signal on t: an unrecoverable-fault pending
// signal always wins with ActionTerminateProcess; otherwise the
// highest-numbered deliverable pending signal is chosen and its default
// action (or ActionUserCallback, if a handler is installed) applies. It
// returns the chosen signal and action, or (0, ActionNone) if nothing is
// deliverable.
func (t *Table) CalculateAction() (Signal, Action) {
	for sig := 1; sig <= NumberOfSignals; sig++ {
		s := &t.signals[sig]
		if s.pending && s.info.inResponseToUnrecoverableFault {
			return Signal(sig), ActionTerminateProcess
		}
	}

	for sig := NumberOfSignals; sig >= 1; sig-- {
		s := &t.signals[sig]
		if !s.pending {
			continue
		}
		deliverable := Signal(sig) == SIGKILL || Signal(sig) == SIGSTOP ||
			Signal(sig) == SIGCONT || !t.blocked.Has(Signal(sig))
		if !deliverable {
			continue
		}
		if s.handler.Disposition == DispositionHandler {
			return Signal(sig), ActionUserCallback
		}
		if s.handler.Disposition == DispositionIgnore && Signal(sig) != SIGCONT {
			s.pending = false
			continue
		}
		return Signal(sig), defaultActionTable(Signal(sig))
	}
	return 0, ActionNone
}

// ClearPending clears sig's pending flag, called after a delivery
// decision has been acted on.
func (t *Table) ClearPending(sig Signal) {
	t.signals[sig].pending = false
}
