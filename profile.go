package main

import (
	"fmt"
	"os"
	"path"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

const profTimeFormat = "20060102_150405"

// started is non zero if a profile is running.
var profStarted uint32

// Profiler is an active cpu-profiling session toggled by SIGUSR2. A
// client session is short lived; cpu and goroutine dumps cover the
// reconnect-storm and leaked-timer cases we actually debug.
type Profiler struct {
	dataDir string
	file    *os.File
	stopped uint32
}

// StartProfiler begins cpu profiling into dataDir, or returns nil if a
// session is already running.
func StartProfiler(dataDir string) *Profiler {
	if !atomic.CompareAndSwapUint32(&profStarted, 0, 1) {
		glog.Warning("pprof: a profiling session is already running")
		return nil
	}

	fn := path.Join(dataDir, fmt.Sprintf("cpu-%s.pprof", time.Now().Format(profTimeFormat)))
	f, err := os.Create(fn)
	if err != nil {
		glog.Errorf("pprof: could not create cpu profile %q: %v", fn, err)
		atomic.StoreUint32(&profStarted, 0)
		return nil
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		glog.Errorf("pprof: could not start cpu profile: %v", err)
		f.Close()
		atomic.StoreUint32(&profStarted, 0)
		return nil
	}

	glog.Infof("pprof: cpu profiling enabled, %s", fn)
	return &Profiler{dataDir: dataDir, file: f}
}

// Stop flushes and closes the session. Idempotent.
func (p *Profiler) Stop() {
	if !atomic.CompareAndSwapUint32(&p.stopped, 0, 1) {
		return
	}
	pprof.StopCPUProfile()
	p.file.Close()
	atomic.StoreUint32(&profStarted, 0)
	glog.Infof("pprof: cpu profiling disabled, %s", p.file.Name())
}

// dumpGoroutines writes the goroutine profile, the first thing to look
// at when a reconnect timer or read loop failed to exit.
func (p *Profiler) dumpGoroutines() {
	fn := path.Join(p.dataDir, fmt.Sprintf("goroutines-%s.dump", time.Now().Format(profTimeFormat)))
	f, err := os.Create(fn)
	if err != nil {
		glog.Errorf("pprof: could not create goroutine dump %q: %v", fn, err)
		return
	}
	defer f.Close()
	if err := pprof.Lookup("goroutine").WriteTo(f, 2); err != nil {
		glog.Errorf("pprof: could not write goroutine dump to %s: %v", fn, err)
		return
	}
	glog.Infof("pprof: goroutine dump written to %s", fn)
}
