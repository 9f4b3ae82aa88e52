// This file is part of rvm, ported from the Ngaro VM core at
// https://github.com/db47h/ngaro
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sched runs VM snapshots to completion on their own goroutines.
// Each spawned run owns its Instance exclusively -- no state is shared
// between a run and its caller or any other run -- and reports back through
// a one-shot result channel, the same shape as the goroutine-plus-channel
// pattern in smoynes-elsie/internal/cli/cmd/exec.go, generalized from one
// long-lived machine reporting display runes to a pool of short-lived
// one-shot VM runs each reporting their own final Instance.
package sched

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/layderv/rvm/rvmconfig"
	"github.com/layderv/rvm/vm"
)

// Scheduler assigns wrapping PIDs to spawned runs and bounds how many run
// concurrently. The zero value is not usable; build one with New.
type Scheduler struct {
	maxPID  uint32
	nextPID uint32

	sem chan struct{}
}

// New builds a Scheduler. poolSize bounds the number of VM runs executing
// concurrently (0 means unbounded); maxPID is the wraparound boundary for
// assigned PIDs, per the original scheduler's next_pid counter
// (SPEC_FULL.md, Supplemented features).
func New(poolSize int, maxPID uint32) *Scheduler {
	s := &Scheduler{maxPID: maxPID}
	if poolSize > 0 {
		s.sem = make(chan struct{}, poolSize)
	}
	return s
}

// NewFromConfig builds a Scheduler from cfg.Scheduler.PoolSize/MaxPID, the
// TOML-backed defaults described in SPEC_FULL.md's C7 section --
// rvmconfig.DefaultConfig() already resolves "no config supplied" to
// runtime.NumCPU() workers and a full uint32 PID space, so this is a plain
// passthrough rather than its own default policy.
func NewFromConfig(cfg *rvmconfig.Config) *Scheduler {
	return New(cfg.Scheduler.PoolSize, cfg.Scheduler.MaxPID)
}

// NextPID returns the PID the next Spawn call will assign, without
// consuming it. Exposed for observability and wraparound testing
// (SPEC_FULL.md, Supplemented features).
func (s *Scheduler) NextPID() uint32 {
	return s.wrapPID(atomic.LoadUint32(&s.nextPID))
}

func (s *Scheduler) allocatePID() uint32 {
	return s.wrapPID(atomic.AddUint32(&s.nextPID, 1) - 1)
}

// wrapPID maps a raw counter value into [0, maxPID]. With maxPID at the
// uint32 maximum the counter's own overflow already wraps there.
func (s *Scheduler) wrapPID(n uint32) uint32 {
	if s.maxPID == ^uint32(0) {
		return n
	}
	return n % (s.maxPID + 1)
}

// Handle is a join-handle for one spawned run.
type Handle struct {
	pid    uint32
	result chan *vm.Instance
}

// PID returns the PID assigned to this run at spawn time.
func (h *Handle) PID() uint32 { return h.pid }

// Join blocks until the spawned run halts and returns its final Instance,
// including any events (Start/Stop/Crash) it recorded.
func (h *Handle) Join() *vm.Instance {
	return <-h.result
}

// Spawn runs snapshot to completion on its own goroutine and returns a
// Handle to retrieve the result. snapshot must not be touched by the caller
// again after Spawn returns -- the goroutine now owns it exclusively, per
// the concurrency model (SPEC_FULL.md C7/§5).
//
// A fatal panic from within the run (divide-by-zero, an out-of-range
// register) is recovered here rather than propagated: the run's Instance
// records an EventCrash and Join still returns normally, so one VM crashing
// cannot take down the scheduler or any sibling run.
func (s *Scheduler) Spawn(snapshot *vm.Instance) *Handle {
	if s.sem != nil {
		s.sem <- struct{}{}
	}

	h := &Handle{
		pid:    s.allocatePID(),
		result: make(chan *vm.Instance, 1),
	}

	go func() {
		defer func() {
			if s.sem != nil {
				<-s.sem
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				snapshot.RecordCrash(fmt.Sprintf("%v", r))
			}
			h.result <- snapshot
		}()
		snapshot.Run()
	}()

	return h
}

// SpawnAll spawns every snapshot and returns their handles in order,
// respecting pool-size backpressure: if the pool is full, SpawnAll blocks
// on the next Spawn call rather than launching unbounded goroutines.
func (s *Scheduler) SpawnAll(snapshots []*vm.Instance) []*Handle {
	handles := make([]*Handle, len(snapshots))
	for i, snap := range snapshots {
		handles[i] = s.Spawn(snap)
	}
	return handles
}

// JoinAll blocks until every handle's run has completed, returning their
// final Instances in the same order as handles. Each handle is joined on its
// own goroutine.
func JoinAll(handles []*Handle) []*vm.Instance {
	results := make([]*vm.Instance, len(handles))
	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		go func(i int, h *Handle) {
			defer wg.Done()
			results[i] = h.Join()
		}(i, h)
	}
	wg.Wait()
	return results
}
