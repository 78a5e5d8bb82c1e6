// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"fmt"
	"runtime"
)

// fail reports a fatal precondition or invariant violation. The admission
// procedure has no recoverable error path: either the task transitions
// to a well-defined state or the kernel has a bug worth crashing over.
func fail(format string, a ...interface{}) {
	failSkip(2, format, a...)
}

func assert(cond bool, format string, a ...interface{}) {
	if !cond {
		failSkip(2, format, a...)
	}
}

// failSkip panics with the location of the caller skip frames up from
// here, so fail and assert both report the real call site rather than
// each other's.
func failSkip(skip int, format string, a ...interface{}) {
	meta := ""
	var pcs [1]uintptr
	if runtime.Callers(skip+1, pcs[:]) == 1 {
		frame, _ := runtime.CallersFrames(pcs[:]).Next()
		meta = fmt.Sprintf("%s (%s:%d): ", frame.Function, frame.File, frame.Line)
	}
	panic(fmt.Errorf("sched: "+meta+format, a...))
}
