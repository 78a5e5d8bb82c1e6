// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched implements the ready-to-run admission procedure of a
// preemptive, priority-based, optionally-SMP real-time scheduler: given a
// task control block that has just become runnable, it decides which
// run-queue the task joins and whether a currently running task must be
// displaced.
package sched

import "golang.org/x/sys/unix"

// State is the lifecycle state of a task visible to the admission
// procedure.
type State int

const (
	// Blocked tasks are not reachable from any of the queues this package
	// manages; the caller has already detached them from whatever made
	// them wait.
	Blocked State = iota
	// Running is the head of some assigned[cpu] list (SMP) or the head of
	// ready_to_run (UP).
	Running
	// ReadyToRun tasks are runnable but not bound to any CPU yet.
	ReadyToRun
	// Assigned tasks are bound to a CPU (cpu_locked) but ranked behind the
	// task currently running there.
	Assigned
	// Pending tasks would be admitted but are deferred by a pre-emption or
	// IRQ lock.
	Pending
)

func (s State) String() string {
	switch s {
	case Blocked:
		return "blocked"
	case Running:
		return "running"
	case ReadyToRun:
		return "ready-to-run"
	case Assigned:
		return "assigned"
	case Pending:
		return "pending"
	default:
		return "invalid"
	}
}

// TCB is a task control block: the per-task descriptor the admission
// procedure reads and mutates. The zero value is a task with priority 0,
// state Blocked, and an empty Affinity; an SMP scheduler rejects an empty
// affinity, so SMP tasks must set one.
//
// A TCB is owned by whatever created it (a task table, a test, a
// simulation harness); the queues in this package never allocate or free
// a TCB, they only relink it.
type TCB struct {
	Priority int
	State    State

	// CPU is meaningful when State is Running or Assigned, or when
	// CPULocked is set.
	CPU int
	// CPULocked pins the task to CPU; Affinity must then be a superset of
	// {CPU}.
	CPULocked bool
	// Affinity is the set of CPUs this task may run on.
	Affinity unix.CPUSet

	// LockCount is >0 iff this task holds the scheduler pre-emption lock.
	LockCount int
	// IRQCount is >0 iff this task holds the global IRQ critical section.
	IRQCount int

	prev, next *TCB
	queue      *PrioritizedQueue
}

// Enqueued reports whether the task is currently linked into some queue.
func (t *TCB) Enqueued() bool {
	return t.queue != nil
}

// Next returns the task immediately behind t in whatever queue holds it,
// or nil if t is the tail or detached.
func (t *TCB) Next() *TCB {
	return t.next
}
