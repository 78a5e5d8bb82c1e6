// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "encoding/gob"

// RTSchedAction wraps every request to the daemon so gob can dispatch
// on the concrete type of Action.
type RTSchedAction struct {
	Action interface{}
}

// ActionAdmit constructs a TCB from its fields and calls
// Scheduler.AdmitReadyToRun on it. Affinity is a Linux CPU-list string
// (e.g. "0-2,4"); an empty string means "every simulated CPU".
type ActionAdmit struct {
	Priority  int
	CPULocked bool
	CPU       int
	Affinity  string
	LockCount int
	IRQCount  int
	Msg       string
}

// ActionAdmitResponse reports the outcome of an ActionAdmit.
type ActionAdmitResponse struct {
	SwitchRequired bool
	State          string
	CPU            int
	Err            string
}

// ActionSnapshot asks for the current contents of every queue the
// scheduler tracks.
type ActionSnapshot struct{}

// TaskInfo is a read-only projection of a TCB for display.
type TaskInfo struct {
	Priority  int
	State     string
	CPU       int
	CPULocked bool
	Affinity  string
	Msg       string
}

// Snapshot is the response to ActionSnapshot.
type Snapshot struct {
	ReadyToRun []TaskInfo
	Pending    []TaskInfo
	Assigned   [][]TaskInfo // len == numCPUs; Assigned[c][0] is that CPU's head.
}

func init() {
	gob.Register(ActionAdmit{})
	gob.Register(ActionSnapshot{})
}
