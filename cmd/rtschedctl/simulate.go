// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// Simulator stands in for the N real CPUs a kernel would run on: each
// simulated CPU is a goroutine locked to its own OS thread (and,
// optionally, pinned to a real core via SchedSetaffinity) so that
// Pause/Resume have to cross an actual thread boundary instead of being
// no-ops under the Go scheduler.
//
// It implements sched.CrossCPUController.
type Simulator struct {
	pauseReq  []chan struct{}
	pauseAck  []chan struct{}
	resumeReq []chan struct{}
	quit      []chan struct{}
}

// NewSimulator starts numCPUs driver goroutines. If pin is true, each
// goroutine attempts to pin itself to the real core with the same
// index via unix.SchedSetaffinity; a failure to pin (e.g. not enough
// real cores, insufficient privilege) is logged and otherwise ignored,
// since the simulation is correct regardless.
func NewSimulator(numCPUs int, pin bool) *Simulator {
	s := &Simulator{
		pauseReq:  make([]chan struct{}, numCPUs),
		pauseAck:  make([]chan struct{}, numCPUs),
		resumeReq: make([]chan struct{}, numCPUs),
		quit:      make([]chan struct{}, numCPUs),
	}
	for c := 0; c < numCPUs; c++ {
		s.pauseReq[c] = make(chan struct{})
		s.pauseAck[c] = make(chan struct{})
		s.resumeReq[c] = make(chan struct{})
		s.quit[c] = make(chan struct{})
		go s.run(c, pin)
	}
	return s
}

func (s *Simulator) run(cpu int, pin bool) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if pin {
		var set unix.CPUSet
		set.Set(cpu)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			vlog("cpu %d: SchedSetaffinity: %v\n", cpu, err)
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit[cpu]:
			return
		case <-s.pauseReq[cpu]:
			s.pauseAck[cpu] <- struct{}{}
			<-s.resumeReq[cpu]
		case <-ticker.C:
			// Otherwise idle: a real CPU would be running whatever
			// scheduler.Assigned[cpu].Head() names.
		}
	}
}

// Pause blocks until cpu has parked itself in a safe state.
func (s *Simulator) Pause(cpu int) {
	s.pauseReq[cpu] <- struct{}{}
	<-s.pauseAck[cpu]
}

// Resume releases a previously paused CPU.
func (s *Simulator) Resume(cpu int) {
	s.resumeReq[cpu] <- struct{}{}
}

// Stop terminates every driver goroutine.
func (s *Simulator) Stop() {
	for _, q := range s.quit {
		close(q)
	}
}
