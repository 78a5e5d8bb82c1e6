// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import "github.com/cortexrt/rtsched/internal/cpuset"

// IdlePriority is the priority given to the placeholder idle task seeded
// onto each CPU's assigned list by NewSMP. It is lower than any
// realistic task priority, so a CPU with nothing else runnable always
// has a well-defined head without this package needing to know anything
// about the idle task's actual body.
const IdlePriority = -1 << 31

// Scheduler holds the process-wide queues and lock state, and is the
// receiver for AdmitReadyToRun. The zero value is not usable; construct
// with NewUP or NewSMP.
type Scheduler struct {
	numCPUs int // 0 means uniprocessor.

	ReadyToRun PrioritizedQueue
	Pending    PrioritizedQueue
	Assigned   []PrioritizedQueue // len == numCPUs; only used in SMP mode.

	SchedLock LockState
	IRQLock   LockState

	Cross              CrossCPUController
	CurrentCPU         func() int
	InInterruptContext func() bool

	initialized bool
}

// NewUP creates a uniprocessor scheduler. On a uniprocessor build,
// ReadyToRun also holds the running task at its head.
func NewUP() *Scheduler {
	return &Scheduler{
		Cross: NoCrossCPUController{},
	}
}

// NewSMP creates an SMP scheduler for numCPUs CPUs, each seeded with an
// idle placeholder task so assigned[c] is never empty. currentCPU
// reports the CPU the caller is executing on; inInterruptContext is
// consulted only by debug assertions in LockState.IRQLockedElsewhere.
func NewSMP(numCPUs int, cross CrossCPUController, currentCPU func() int, inInterruptContext func() bool) *Scheduler {
	assert(numCPUs > 0, "NewSMP: numCPUs must be positive, got %d", numCPUs)
	s := &Scheduler{
		numCPUs:            numCPUs,
		Assigned:           make([]PrioritizedQueue, numCPUs),
		Cross:              cross,
		CurrentCPU:         currentCPU,
		InInterruptContext: inInterruptContext,
	}
	for c := 0; c < numCPUs; c++ {
		idle := &TCB{
			Priority:  IdlePriority,
			State:     Running,
			CPU:       c,
			CPULocked: true,
			Affinity:  cpuset.Single(c),
		}
		s.Assigned[c].Insert(idle)
	}
	return s
}

// NumCPUs returns the number of CPUs this scheduler was constructed
// with, or 0 for a uniprocessor scheduler.
func (s *Scheduler) NumCPUs() int {
	return s.numCPUs
}

// IsSMP reports whether this scheduler was constructed with NewSMP.
func (s *Scheduler) IsSMP() bool {
	return s.numCPUs > 0
}

// MarkInitialized records that early (single-threaded) kernel
// initialization has completed; before this call,
// LockState.IRQLockedElsewhere always returns false.
func (s *Scheduler) MarkInitialized() {
	s.initialized = true
}
