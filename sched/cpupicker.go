// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"golang.org/x/sys/unix"

	"github.com/cortexrt/rtsched/internal/cpuset"
)

// SelectCPU returns the CPU in affinity whose currently-running task (as
// reported by headPriority) has the lowest priority, breaking ties
// toward the lowest CPU id. affinity must be non-empty.
func SelectCPU(affinity unix.CPUSet, headPriority func(cpu int) int) int {
	best := -1
	bestPriority := 0
	cpuset.Range(affinity, func(cpu int) {
		p := headPriority(cpu)
		if best == -1 || p < bestPriority {
			best, bestPriority = cpu, p
		}
	})
	assert(best != -1, "select_cpu: affinity mask is empty")
	return best
}
