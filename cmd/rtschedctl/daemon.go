// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/user"
	"runtime"
	"sync"
	"time"

	"inet.af/peercred"

	"github.com/cortexrt/rtsched/internal/cpuset"
	"github.com/cortexrt/rtsched/sched"
)

// Daemon owns the scheduler simulation and serializes every request
// against it, playing the role the "caller already holds a critical
// section" precondition assigns to the kernel around a real
// AdmitReadyToRun call.
type Daemon struct {
	mu   sync.Mutex
	sim  *Simulator
	sch  *sched.Scheduler
	cpu  int // "currently executing" simulated CPU for the next admit.
	msgs map[*sched.TCB]string
}

func doDaemon(path string, numCPUs int, pin bool) {
	d := &Daemon{
		msgs: make(map[*sched.TCB]string),
	}
	if numCPUs > 0 {
		d.sim = NewSimulator(numCPUs, pin)
		d.sch = sched.NewSMP(numCPUs, d.sim, func() int { return d.cpu }, func() bool { return false })
	} else {
		d.sch = sched.NewUP()
	}
	d.sch.MarkInitialized()

	isAbstractSocket := runtime.GOOS == "linux" && len(path) > 1 && path[0] == '@'
	if !isAbstractSocket {
		os.Remove(path)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()
	if !isAbstractSocket {
		if err := os.Chmod(path, 0777); err != nil {
			log.Fatal(err)
		}
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			log.Fatal(err)
		}
		go func(c net.Conn) {
			defer c.Close()
			d.serve(c)
		}(conn)
	}
}

func send(enc *gob.Encoder, a interface{}) bool {
	if err := enc.Encode(a); err != nil {
		log.Printf("could not send response %T %v to user: %v", a, a, err)
		return false
	}
	vlog("-> %T %+v\n", a, a)
	return true
}

func (d *Daemon) serve(c net.Conn) {
	userName := "???"
	if cred, err := peercred.Get(c); err != nil {
		log.Print("reading credentials: ", err)
	} else if uid, ok := cred.UserID(); ok {
		if u, err := user.LookupId(uid); err == nil {
			userName = u.Username
		}
	}

	gr := gob.NewDecoder(c)
	gw := gob.NewEncoder(c)
	for {
		var msg RTSchedAction
		if err := gr.Decode(&msg); err != nil {
			if err != io.EOF {
				log.Print(err)
			}
			return
		}
		vlog("<- %s: %T %+v\n", userName, msg.Action, msg.Action)

		switch action := msg.Action.(type) {
		case ActionAdmit:
			resp := d.admit(userName, action)
			if !send(gw, resp) {
				return
			}

		case ActionSnapshot:
			if !send(gw, d.snapshot()) {
				return
			}

		default:
			log.Printf("unknown message %T", action)
			return
		}
	}
}

func (d *Daemon) admit(userName string, action ActionAdmit) ActionAdmitResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	simulated := cpuset.Full(max(d.sch.NumCPUs(), 1))
	affinity := simulated
	if action.Affinity != "" {
		a, err := cpuset.Parse(action.Affinity)
		if err != nil {
			return ActionAdmitResponse{Err: fmt.Sprintf("invalid affinity: %v", err)}
		}
		affinity = a
	}

	// Clamp the requested affinity to the set of CPUs this simulation
	// actually has; a CPU requested but not simulated would otherwise
	// index out of range in SelectCPU/Assigned.
	clamped := cpuset.Intersect(affinity, simulated)
	if dropped := cpuset.Difference(affinity, simulated); dropped.Count() > 0 {
		vlog("admit: affinity %s requests cpus outside this %d-cpu simulation, dropping %s\n",
			cpuset.String(affinity), d.sch.NumCPUs(), cpuset.String(dropped))
	}
	affinity = clamped

	if action.CPULocked {
		// A cpu_locked task's affinity must be a superset of {cpu}
		// (AdmitReadyToRun asserts this); guarantee it here rather than
		// relying on the caller to have included it explicitly.
		affinity = cpuset.Union(affinity, cpuset.Single(action.CPU))
	}

	t := &sched.TCB{
		Priority:  action.Priority,
		CPU:       action.CPU,
		CPULocked: action.CPULocked,
		Affinity:  affinity,
		LockCount: action.LockCount,
		IRQCount:  action.IRQCount,
	}
	d.msgs[t] = fmt.Sprintf("%s\t%s\t%s", userName, time.Now().Format(time.Stamp), action.Msg)

	d.cpu = action.CPU
	if !action.CPULocked && d.sch.IsSMP() {
		// A floating task is admitted "from" CPU 0's perspective, so
		// switch_required is true only when CPU 0 is the one preempted;
		// a placement on any other CPU is bracketed by Pause/Resume.
		d.cpu = 0
	}

	switchRequired := d.sch.AdmitReadyToRun(t)
	return ActionAdmitResponse{
		SwitchRequired: switchRequired,
		State:          t.State.String(),
		CPU:            t.CPU,
	}
}

func (d *Daemon) snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	toInfo := func(t *sched.TCB) TaskInfo {
		return TaskInfo{
			Priority:  t.Priority,
			State:     t.State.String(),
			CPU:       t.CPU,
			CPULocked: t.CPULocked,
			Affinity:  cpuset.String(t.Affinity),
			Msg:       d.msgs[t],
		}
	}
	toInfos := func(tasks []*sched.TCB) []TaskInfo {
		infos := make([]TaskInfo, len(tasks))
		for i, t := range tasks {
			infos[i] = toInfo(t)
		}
		return infos
	}

	var snap Snapshot
	snap.ReadyToRun = toInfos(d.sch.ReadyToRun.Tasks())
	snap.Pending = toInfos(d.sch.Pending.Tasks())
	if d.sch.IsSMP() {
		snap.Assigned = make([][]TaskInfo, d.sch.NumCPUs())
		for c := range d.sch.Assigned {
			snap.Assigned[c] = toInfos(d.sch.Assigned[c].Tasks())
		}
	}
	return snap
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
