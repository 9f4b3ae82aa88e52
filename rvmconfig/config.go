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

// Package rvmconfig loads TOML configuration for the scheduler and the VM's
// default resource limits. Grounded on lookbusy1344-arm_emulator/config's
// nested-struct-with-tags shape and its DefaultConfig-before-any-file-read
// pattern: callers always get a usable Config even with no file on disk.
package rvmconfig

import (
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds every tunable the scheduler and VM construction read from
// disk. Zero value is never used directly; always start from DefaultConfig.
type Config struct {
	Scheduler struct {
		// PoolSize caps the number of VM instances run concurrently; 0 means
		// unbounded (see sched.New). DefaultConfig sets it to runtime.NumCPU(),
		// and a TOML file that omits pool_size keeps that default.
		PoolSize int `toml:"pool_size"`
		// MaxPID is the wraparound boundary for scheduler-assigned PIDs.
		MaxPID uint32 `toml:"max_pid"`
	} `toml:"scheduler"`

	VM struct {
		DefaultHeapCapacity int `toml:"default_heap_capacity"`
		DefaultROCapacity   int `toml:"default_ro_capacity"`
	} `toml:"vm"`
}

// DefaultConfig returns a Config with usable defaults: a worker pool sized
// to the host's CPU count and the PID space spanning the full uint32 range.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Scheduler.PoolSize = runtime.NumCPU()
	cfg.Scheduler.MaxPID = ^uint32(0)
	cfg.VM.DefaultHeapCapacity = 1 << 16
	cfg.VM.DefaultROCapacity = 1 << 12
	return cfg
}

// Load reads path and overlays it onto DefaultConfig. A missing file is not
// an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "rvmconfig: parsing %s", path)
	}
	return cfg, nil
}
