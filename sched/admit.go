// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// maxSelectionRetries bounds the retry loop for a known selection race:
// between choosing a candidate CPU and inserting into its assigned list,
// a peer CPU may concurrently enqueue a higher-priority task there,
// invalidating the Assigned/Running decision. The production path
// retries selection instead of asserting; a bound exists only as a
// backstop against a genuinely corrupted queue.
const maxSelectionRetries = 1000

// AdmitReadyToRun is the ready-to-run admission procedure. b is a
// detached TCB that has just become runnable; the caller must
// already hold a critical section (interrupts disabled or equivalent)
// and must have removed b from whatever list previously held it.
//
// It returns switch_required: true iff the head of the locally-executing
// CPU's assigned list changed as a result of this call and no cross-CPU
// pause/resume occurred. The caller — not this procedure — performs the
// actual context switch.
func (s *Scheduler) AdmitReadyToRun(b *TCB) bool {
	assert(!b.Enqueued(), "admit_ready_to_run: task is already linked into a queue")
	assert(!b.CPULocked || b.Affinity.IsSet(b.CPU), "admit_ready_to_run: cpu_locked task's cpu is not in its own affinity")

	if s.IsSMP() {
		return s.admitSMP(b)
	}
	return s.admitUP(b)
}

// admitUP implements the !CONFIG_SMP half of sched_addreadytorun: the
// running task is always the head of ready_to_run.
func (s *Scheduler) admitUP(b *TCB) bool {
	r := s.ReadyToRun.Head()

	// Pre-emption blocked: the running task holds the scheduler lock and
	// would otherwise be displaced.
	if r != nil && r.LockCount > 0 && r.Priority < b.Priority {
		s.Pending.Insert(b)
		b.State = Pending
		return false
	}

	becameHead := s.ReadyToRun.Insert(b)
	if becameHead {
		assert(r == nil || r.LockCount == 0, "admit_ready_to_run: preempted a locked task")
		b.State = Running
		if r != nil {
			r.State = ReadyToRun
		}
		return true
	}

	b.State = ReadyToRun
	return false
}

// admitSMP implements the CONFIG_SMP half of sched_addreadytorun.
func (s *Scheduler) admitSMP(b *TCB) bool {
	me := s.CurrentCPU()

	for attempt := 0; ; attempt++ {
		assert(attempt < maxSelectionRetries, "admit_ready_to_run: selection race did not converge after %d retries", maxSelectionRetries)

		// Step 1: choose a candidate CPU.
		c := b.CPU
		if !b.CPULocked {
			c = SelectCPU(b.Affinity, func(cpu int) int { return s.Assigned[cpu].Head().Priority })
		}

		// Step 2: compute the desired target state.
		r := s.Assigned[c].Head()
		var target State
		switch {
		case r.Priority < b.Priority:
			target = Running
		case b.CPULocked:
			target = Assigned
		default:
			target = ReadyToRun
		}

		// Step 3: honor pre-emption and IRQ locks. Assigned placements are
		// exempt: they never cause an immediate context switch anywhere.
		if (s.SchedLock.IsHeld() || s.IRQLock.IRQLockedElsewhere(me, s.initialized, s.InInterruptContext)) && target != Assigned {
			s.Pending.Insert(b)
			b.State = Pending
			return false
		}

		switch target {
		case ReadyToRun:
			// Step 4a.
			s.ReadyToRun.Insert(b)
			b.State = ReadyToRun
			return false

		case Assigned:
			// Step 4b. b is cpu_locked but not high enough priority to
			// preempt c; it must land behind the current head. assigned[c]
			// is mutated here same as in the Running path, so a remote c
			// is paused around the splice.
			remote := c != me
			if remote {
				s.Cross.Pause(c)
			}
			becameHead := s.Assigned[c].Insert(b)
			if becameHead {
				// Known race: another CPU changed assigned[c]'s head
				// between step 1 and step 2. Undo and retry selection
				// with fresh state.
				s.Assigned[c].Remove(b)
				b.State = Blocked
				if remote {
					s.Cross.Resume(c)
				}
				continue
			}
			b.CPU = c
			b.State = Assigned
			if remote {
				s.Cross.Resume(c)
			}
			return false

		default: // Running
			return s.admitRunning(b, c, me)
		}
	}
}

// admitRunning handles the case where b preempts the task currently
// running on c.
func (s *Scheduler) admitRunning(b *TCB, c, me int) bool {
	remote := c != me
	if remote {
		s.Cross.Pause(c)
	}

	becameHead := s.Assigned[c].Insert(b)
	assert(becameHead, "admit_ready_to_run: priority ordering violated inserting into assigned[%d]", c)

	b.CPU = c
	b.State = Running

	if b.LockCount > 0 {
		s.SchedLock.SetBit(c)
	} else {
		s.SchedLock.ClearBit(c)
	}
	if b.IRQCount > 0 {
		s.IRQLock.SetBit(c)
	} else {
		s.IRQLock.ClearBit(c)
	}

	// Re-home the displaced head.
	next := b.Next()
	assert(next != nil, "admit_ready_to_run: assigned[%d] had only one task before preemption", c)
	if next.CPULocked {
		assert(next.CPU == c, "admit_ready_to_run: cpu_locked successor pinned to the wrong cpu")
		next.State = Assigned
	} else {
		s.Assigned[c].Remove(next)
		if s.SchedLock.IsHeld() {
			next.State = Pending
			s.Pending.Insert(next)
		} else {
			next.State = ReadyToRun
			s.ReadyToRun.Insert(next)
		}
	}

	if remote {
		s.Cross.Resume(c)
		return false
	}
	return true
}
