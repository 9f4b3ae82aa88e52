package vm

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/layderv/rvm/rvmconfig"
)

const numRegisters = 32

// Option configures an Instance at construction time. Grounded on the
// teacher's functional-options constructor (vm.Option func(*Instance) error
// in db47h/ngaro/vm), simplified to the non-failing case since none of this
// VM's options can fail.
type Option func(*Instance)

// WithProgram sets the raw program bytes and the program counter to 0, for
// running a bare code buffer with no PIE header (see LoadCode).
func WithProgram(code []byte) Option {
	return func(i *Instance) {
		i.program = code
		i.pc = 0
	}
}

// WithRO sets the read-only data section. The slice is copied so the
// Instance owns it exclusively, per the concurrency model (SPEC_FULL.md C6).
func WithRO(ro []byte) Option {
	return func(i *Instance) {
		i.roData = append([]byte(nil), ro...)
	}
}

// WithOutput sets the writer PRTS writes to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(i *Instance) { i.output = w }
}

// WithHeapCapacity pre-allocates heap capacity (not length) so early ALOC
// calls don't force immediate reallocation.
func WithHeapCapacity(n int) Option {
	return func(i *Instance) { i.heap = make([]byte, 0, n) }
}

// WithPC overrides the initial program counter, for loading an image whose
// header size differs from the default (mainly useful in tests).
func WithPC(pc int) Option {
	return func(i *Instance) { i.pc = pc }
}

// WithConfig pre-allocates heap and RO data capacity from cfg's VM section
// (rvmconfig.Config.VM.DefaultHeapCapacity/DefaultROCapacity), the same way
// a caller building many Instances for the scheduler's pool would: one
// config read, consistent defaults across every spawned VM. Like any
// functional option, later options win -- pass WithConfig before WithRO or
// WithHeapCapacity if both are given, or it will overwrite their contents.
func WithConfig(cfg *rvmconfig.Config) Option {
	return func(i *Instance) {
		i.heap = make([]byte, 0, cfg.VM.DefaultHeapCapacity)
		i.roData = make([]byte, 0, cfg.VM.DefaultROCapacity)
	}
}

// Instance is one VM: an exclusively-owned register file, heap, RO data
// section, program counter and equality flag. Nothing about an Instance is
// safe for concurrent use from more than one goroutine at a time -- see the
// sched package for running many of them in parallel.
type Instance struct {
	id uuid.UUID

	regs      [numRegisters]int32
	pc        int
	remainder uint32
	equality  bool

	program []byte
	heap    []byte
	roData  []byte

	output    io.Writer
	outputErr error
	events    []Event
	crashMsg  string
}

// New creates an Instance with zeroed registers and an empty heap, ready to
// have a program loaded with LoadImage or LoadCode.
func New(opts ...Option) *Instance {
	i := &Instance{
		id:     uuid.New(),
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ID returns this Instance's unique identifier.
func (i *Instance) ID() uuid.UUID { return i.id }

// Registers returns a copy of the register file.
func (i *Instance) Registers() [numRegisters]int32 { return i.regs }

// Reg returns the value of register r. Panics if r is out of range; callers
// working from a trusted source (the VM's own dispatch loop) never hit this,
// it exists for host introspection (SPEC_FULL.md §6, VM API).
func (i *Instance) Reg(r int) int32 {
	return i.regs[r]
}

// SetReg sets the value of register r, for host-driven setup (e.g. a shell's
// .registers command).
func (i *Instance) SetReg(r int, v int32) {
	i.regs[r] = v
}

// PC returns the current program counter.
func (i *Instance) PC() int { return i.pc }

// SetPC overrides the program counter.
func (i *Instance) SetPC(pc int) { i.pc = pc }

// Remainder returns the remainder left by the last DIV instruction.
func (i *Instance) Remainder() uint32 { return i.remainder }

// EqualityFlag returns the flag set by the last comparison instruction.
func (i *Instance) EqualityFlag() bool { return i.equality }

// Program returns the raw program bytes currently loaded.
func (i *Instance) Program() []byte { return i.program }

// Heap returns the current heap contents.
func (i *Instance) Heap() []byte { return i.heap }

// ROData returns the read-only data section.
func (i *Instance) ROData() []byte { return i.roData }

// LoadCode loads a bare code buffer with no PIE header; the program counter
// starts at 0.
func (i *Instance) LoadCode(code []byte) {
	i.program = code
	i.pc = 0
}

// LoadRO replaces the read-only data section.
func (i *Instance) LoadRO(ro []byte) {
	i.roData = append([]byte(nil), ro...)
}

// writeOutput writes p to the configured output writer, latching the first
// error it sees: once outputErr is set, every later PRTS write is a no-op
// rather than repeating a broken write (e.g. a closed pipe) on every
// instruction.
func (i *Instance) writeOutput(p []byte) {
	if i.outputErr != nil {
		return
	}
	if _, err := i.output.Write(p); err != nil {
		i.outputErr = errors.Wrap(err, "vm: PRTS write failed")
	}
}

// OutputError returns the first error encountered writing PRTS output, or
// nil if every write has succeeded so far.
func (i *Instance) OutputError() error { return i.outputErr }

// Snapshot returns a deep copy of this Instance, suitable for handing to
// sched.Spawn so the spawned run owns its state exclusively.
func (i *Instance) Snapshot() *Instance {
	cp := *i
	cp.id = uuid.New()
	cp.program = append([]byte(nil), i.program...)
	cp.heap = append([]byte(nil), i.heap...)
	cp.roData = append([]byte(nil), i.roData...)
	cp.events = append([]Event(nil), i.events...)
	cp.output = i.output
	return &cp
}
