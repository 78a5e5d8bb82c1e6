// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// PrioritizedQueue is an intrusive, doubly-linked, priority-ordered list
// of TCBs. Priorities are non-increasing from head to tail; ties preserve
// FIFO order (a newly inserted task goes in behind any existing task of
// equal priority). No allocation occurs: membership is a pure pointer
// relink on the TCB itself, so a TCB can move between queues without the
// queue ever owning it.
type PrioritizedQueue struct {
	head, tail *TCB
	len        int
}

// Head returns the highest-priority task in the queue, or nil if empty.
func (q *PrioritizedQueue) Head() *TCB {
	return q.head
}

// Len reports the number of tasks currently linked into the queue.
func (q *PrioritizedQueue) Len() int {
	return q.len
}

// Empty reports whether the queue holds no tasks.
func (q *PrioritizedQueue) Empty() bool {
	return q.head == nil
}

// Insert links t into the queue at the first position whose existing
// occupant has strictly lower priority than t, preserving FIFO order
// among equal priorities. It reports whether t became the new head.
//
// t must not already be linked into any queue.
func (q *PrioritizedQueue) Insert(t *TCB) bool {
	assert(t.queue == nil, "insert_prioritized: task already enqueued in %p", t.queue)
	assert(t.prev == nil && t.next == nil, "insert_prioritized: task has dangling links")

	t.queue = q
	q.len++

	// Find the first node with strictly lower priority than t; insert
	// immediately before it. A nil target means t goes at the tail.
	var before *TCB
	for n := q.head; n != nil; n = n.next {
		if n.Priority < t.Priority {
			before = n
			break
		}
	}

	switch {
	case q.head == nil:
		// Empty queue: head insertion.
		q.head, q.tail = t, t
		return true

	case before == nil:
		// t is lowest priority (or ties the current tail): append.
		t.prev = q.tail
		q.tail.next = t
		q.tail = t
		return false

	case before == q.head:
		// t outranks everything currently queued: new head.
		t.next = before
		before.prev = t
		q.head = t
		return true

	default:
		t.prev = before.prev
		t.next = before
		before.prev.next = t
		before.prev = t
		return false
	}
}

// Remove unlinks t from the queue. t must currently be linked into q.
func (q *PrioritizedQueue) Remove(t *TCB) {
	assert(t.queue == q, "remove: task is not linked into this queue")

	if t.prev != nil {
		t.prev.next = t.next
	} else {
		q.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		q.tail = t.prev
	}
	t.prev, t.next, t.queue = nil, nil, nil
	q.len--
}

// Tasks returns the queue contents head-to-tail. It is intended for
// testing and inspection (e.g. the rtschedctl -list surface), not for use
// on the admission hot path.
func (q *PrioritizedQueue) Tasks() []*TCB {
	out := make([]*TCB, 0, q.len)
	for n := q.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}
