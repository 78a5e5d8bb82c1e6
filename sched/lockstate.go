// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import "sync"

// LockState is a bitmask-of-CPUs lock: the lock is held iff the mask is
// nonzero, and CPU c holds it iff bit c is set. It represents either
// sched_lock_set (the scheduler pre-emption lock) or irq_lock_set (the
// cross-CPU IRQ critical section).
//
// Alongside the mask sits a coarse boolean spinlock that other
// subsystems consume as a plain yes/no: it is held exactly while the
// mask is nonzero. Modeled on the packed-atomic-state/CAS-retry style of
// an intention lock, but simplified to the single owned/not-owned
// transition this spec calls for.
type LockState struct {
	guard  sync.Mutex
	mask   uint64
	coarse sync.Mutex
	held   bool
}

// SetBit atomically sets bit cpu in the mask. If this is the transition
// from unheld to held, the coarse spinlock is also acquired.
func (l *LockState) SetBit(cpu int) {
	l.guard.Lock()
	defer l.guard.Unlock()

	was := l.mask
	l.mask |= 1 << uint(cpu)
	if was == 0 && l.mask != 0 {
		l.coarse.Lock()
		l.held = true
	}
}

// ClearBit atomically clears bit cpu in the mask. If this is the
// transition from held to unheld, the coarse spinlock is released.
func (l *LockState) ClearBit(cpu int) {
	l.guard.Lock()
	defer l.guard.Unlock()

	was := l.mask
	l.mask &^= 1 << uint(cpu)
	if was != 0 && l.mask == 0 {
		l.held = false
		l.coarse.Unlock()
	}
}

// IsHeld reports whether any CPU holds the lock.
func (l *LockState) IsHeld() bool {
	l.guard.Lock()
	defer l.guard.Unlock()
	return l.mask != 0
}

// CPUHolds reports whether cpu specifically holds the lock.
func (l *LockState) CPUHolds(cpu int) bool {
	l.guard.Lock()
	defer l.guard.Unlock()
	return l.mask&(1<<uint(cpu)) != 0
}

// IRQLockedElsewhere implements the irq_locked_elsewhere(me) predicate
// for an IRQ-flavored LockState. initialized corresponds to "the kernel
// has completed early init" (pre-SMP boot is single threaded, so the
// predicate is trivially false); inInterruptContext is used only for a
// debug assertion covering the held-by-nobody-but-coarse-locked case.
func (l *LockState) IRQLockedElsewhere(me int, initialized bool, inInterruptContext func() bool) bool {
	l.guard.Lock()
	defer l.guard.Unlock()

	if !initialized {
		return false
	}

	if l.mask != 0 {
		return l.mask&(1<<uint(me)) == 0
	}

	if l.held && inInterruptContext != nil {
		assert(inInterruptContext(), "irq_locked_elsewhere: coarse IRQ lock held with empty mask outside interrupt context")
	}
	return false
}
