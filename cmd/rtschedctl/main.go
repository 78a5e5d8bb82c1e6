// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rtschedctl is a demonstration harness for the sched package:
// it runs an in-process simulation of an optionally-SMP ready-to-run
// admission procedure and lets a client drive and inspect it over a
// unix socket.
//
// The typical use is:
//
//	rtschedctl -daemon -cpus 4
//
// in one terminal, and in another:
//
//	rtschedctl -admit -priority 100
//	rtschedctl -list
//
// This is a test/demo surface, not a production kernel boundary; the
// sched package itself has no CLI, environment, or I/O surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

var (
	gVerbose  = false
	gIsClient = true
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  %s -daemon -cpus N\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -admit -priority P [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		flag.PrintDefaults()
	}

	flagDaemon := flag.Bool("daemon", false, "start the rtschedctl daemon")
	flagCPUs := flag.Uint("cpus", 0, "number of simulated CPUs (0 means uniprocessor)")
	flagPin := flag.Bool("pin", false, "pin each simulated CPU's driver goroutine to a real core")
	flagSocket := flag.String("socket", "/var/run/rtschedctl.socket", "connect to socket `path`")
	flagVerbose := flag.Bool("verbose", false, "be verbose, useful for debugging")

	flagAdmit := flag.Bool("admit", false, "admit a new task and report the outcome")
	flagPriority := flag.Int("priority", 0, "priority of the task being admitted")
	flagCPULocked := flag.Bool("cpu-locked", false, "pin the admitted task to -cpu")
	flagCPU := flag.Int("cpu", 0, "cpu the admitted task is locked to, when -cpu-locked")
	flagAffinity := &affinityFlag{}
	flag.Var(flagAffinity, "affinity", "Linux CPU-list `set` the admitted task may run on\n\t(default: every simulated cpu)")
	flagLockCount := flag.Int("lock-count", 0, "admitted task's scheduler-lock hold count")
	flagIRQCount := flag.Int("irq-count", 0, "admitted task's IRQ-lock hold count")
	flagMsg := flag.String("msg", "", "label recorded alongside the admitted task")

	flagList := flag.Bool("list", false, "print the current queue contents")

	flag.Parse()
	gVerbose = *flagVerbose

	if *flagDaemon {
		gIsClient = false
		if flag.NArg() > 0 {
			flag.Usage()
			os.Exit(2)
		}
		doDaemon(*flagSocket, int(*flagCPUs), *flagPin)
		return
	}

	log.SetFlags(0)

	c := NewClient(*flagSocket)

	if *flagAdmit {
		resp := c.Admit(ActionAdmit{
			Priority:  *flagPriority,
			CPULocked: *flagCPULocked,
			CPU:       *flagCPU,
			Affinity:  flagAffinity.String(),
			LockCount: *flagLockCount,
			IRQCount:  *flagIRQCount,
			Msg:       *flagMsg,
		})
		if resp.Err != "" {
			fmt.Fprintf(os.Stderr, "invalid request: %v\n", resp.Err)
			os.Exit(1)
		}
		fmt.Printf("switch_required=%v state=%s cpu=%d\n", resp.SwitchRequired, resp.State, resp.CPU)
		return
	}

	if *flagList {
		snap := c.Snapshot()
		printTasks("ready_to_run", snap.ReadyToRun)
		printTasks("pending", snap.Pending)
		for cpu, tasks := range snap.Assigned {
			printTasks(fmt.Sprintf("assigned[%d]", cpu), tasks)
		}
		return
	}

	flag.Usage()
	os.Exit(2)
}

func printTasks(label string, tasks []TaskInfo) {
	fmt.Printf("%s:\n", label)
	for _, t := range tasks {
		locked := ""
		if t.CPULocked {
			locked = " cpu-locked"
		}
		fmt.Printf("\tpriority=%d state=%s cpu=%d%s affinity=%s\t%s\n", t.Priority, t.State, t.CPU, locked, t.Affinity, t.Msg)
	}
}

// vlog logs if gVerbose is true.
func vlog(format string, a ...interface{}) {
	if gVerbose {
		logfn := log.Printf
		if gIsClient {
			logfn = func(format string, a ...interface{}) {
				fmt.Fprintf(os.Stderr, format, a...)
			}
		}
		logfn(format, a...)
	}
}

// affinityFlag is a flag.Value parsing a Linux CPU-list string, e.g.
// "0-2,4".
type affinityFlag struct {
	raw string
}

func (f *affinityFlag) String() string {
	return f.raw
}

func (f *affinityFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		for _, b := range bounds {
			if _, err := strconv.Atoi(b); err != nil {
				return fmt.Errorf("invalid affinity %q: %w", v, err)
			}
		}
	}
	f.raw = v
	return nil
}
