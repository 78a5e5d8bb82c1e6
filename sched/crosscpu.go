// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// CrossCPUController pauses and resumes a peer CPU so its assigned-task
// list can be mutated safely from another CPU. Pause must block until
// the target CPU has acknowledged that it is spinning in a safe state;
// Resume releases it. A pause/resume pair must provide happens-before:
// mutations performed between them must be visible to the target CPU
// once it resumes.
//
// Implementations have no recoverable failure mode: a pause/resume that
// cannot complete is a kernel bug, not a condition AdmitReadyToRun can
// recover from.
type CrossCPUController interface {
	Pause(cpu int)
	Resume(cpu int)
}

// NoCrossCPUController is the controller for single-CPU schedulers: it
// is never called, because AdmitReadyToRun only pauses a peer when the
// target CPU differs from the caller's, which cannot happen with one
// CPU. It exists so Scheduler always has a non-nil controller to wire.
type NoCrossCPUController struct{}

func (NoCrossCPUController) Pause(cpu int) {
	fail("pause: called on a single-CPU scheduler (cpu=%d)", cpu)
}

func (NoCrossCPUController) Resume(cpu int) {
	fail("resume: called on a single-CPU scheduler (cpu=%d)", cpu)
}
