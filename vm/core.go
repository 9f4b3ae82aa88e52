package vm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/layderv/rvm/opcode"
)

// Step fetches, decodes and executes a single instruction, advancing pc by
// 4 bytes unless the instruction is a jump. It returns true when the VM has
// halted: HLT, an unrecognized opcode, or pc running off the end of the
// program (SPEC_FULL.md §4.6).
//
// Divide-by-zero and out-of-range register indices panic with an error from
// github.com/pkg/errors rather than returning a value: these are fatal
// encoder/assembler bugs, not ordinary program outcomes (SPEC_FULL.md §7).
func (i *Instance) Step() (halted bool) {
	if i.pc < 0 || i.pc >= len(i.program) {
		return true
	}

	op := opcode.FromByte(i.program[i.pc])
	if op == opcode.HLT || op == opcode.IGL {
		return true
	}

	end := i.pc + 4
	var b1, b2, b3 byte
	if i.pc+1 < len(i.program) {
		b1 = i.program[i.pc+1]
	}
	if i.pc+2 < len(i.program) {
		b2 = i.program[i.pc+2]
	}
	if i.pc+3 < len(i.program) {
		b3 = i.program[i.pc+3]
	}

	switch op {
	case opcode.NOP:
		i.pc = end

	case opcode.LOAD:
		r := i.regIndex(b1)
		i.regs[r] = int32(uint16(b2)<<8 | uint16(b3))
		i.pc = end

	case opcode.MOV:
		d, s := i.regIndex(b1), i.regIndex(b2)
		i.regs[d] = i.regs[s]
		i.pc = end

	case opcode.ADD:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		i.regs[c] = i.regs[a] + i.regs[b]
		i.pc = end

	case opcode.SUB:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		i.regs[c] = i.regs[a] - i.regs[b]
		i.pc = end

	case opcode.MUL:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		i.regs[c] = i.regs[a] * i.regs[b]
		i.pc = end

	case opcode.DIV:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		if i.regs[b] == 0 {
			panic(errors.Errorf("vm: division by zero at pc=%d", i.pc))
		}
		i.remainder = uint32(i.regs[a] % i.regs[b])
		i.regs[c] = i.regs[a] / i.regs[b]
		i.pc = end

	case opcode.INC:
		r := i.regIndex(b1)
		i.regs[r]++
		i.pc = end

	case opcode.DEC:
		r := i.regIndex(b1)
		i.regs[r]--
		i.pc = end

	case opcode.NEG:
		r := i.regIndex(b1)
		i.regs[r] = -i.regs[r]
		i.pc = end

	case opcode.JMP:
		r := i.regIndex(b1)
		i.pc = int(i.regs[r])

	case opcode.JMPB:
		r := i.regIndex(b1)
		i.pc = i.pc + 1 - int(i.regs[r])

	case opcode.JMPF:
		r := i.regIndex(b1)
		i.pc = i.pc + 1 + int(i.regs[r])

	case opcode.EQ:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] == i.regs[b]
		i.pc = end

	case opcode.NEQ:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] != i.regs[b]
		i.pc = end

	case opcode.GT:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] > i.regs[b]
		i.pc = end

	case opcode.LT:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] < i.regs[b]
		i.pc = end

	case opcode.GEQ:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] >= i.regs[b]
		i.pc = end

	case opcode.LEQ:
		a, b := i.regIndex(b1), i.regIndex(b2)
		i.equality = i.regs[a] <= i.regs[b]
		i.pc = end

	case opcode.JEQ:
		r := i.regIndex(b1)
		if i.equality {
			i.pc = int(i.regs[r])
		} else {
			i.pc = end
		}

	case opcode.JNE:
		r := i.regIndex(b1)
		if !i.equality {
			i.pc = int(i.regs[r])
		} else {
			i.pc = end
		}

	case opcode.AND:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		i.regs[c] = i.regs[a] & i.regs[b]
		i.pc = end

	case opcode.OR:
		a, b, c := i.regIndex(b1), i.regIndex(b2), i.regIndex(b3)
		i.regs[c] = i.regs[a] | i.regs[b]
		i.pc = end

	case opcode.NOT:
		r := i.regIndex(b1)
		i.regs[r] = ^i.regs[r]
		i.pc = end

	case opcode.ALOC:
		r := i.regIndex(b1)
		i.growHeap(i.regs[r])
		i.pc = end

	case opcode.PRTS:
		addr := int(uint16(b1)<<8 | uint16(b2))
		s := i.readCString(addr)
		i.writeOutput([]byte(s + "\n"))
		i.pc = end

	default:
		return true
	}

	return false
}

// Run steps the VM until it halts, recording Start/Stop events around the
// run. Grounded on the teacher's Run loop (db47h/ngaro/vm/core.go) but
// without its panic-to-error recover: fatal errors here are meant to
// surface loudly (SPEC_FULL.md §7); the sched package is what recovers them
// for a worker pool.
func (i *Instance) Run() (halted bool) {
	i.recordEvent(EventStart)
	defer i.recordEvent(EventStop)

	for {
		if i.Step() {
			return true
		}
	}
}

// regIndex validates a register index byte. Out-of-range indices are a
// fatal encoder/assembler bug: the assembler's lexer already bounds
// registers to [0,31], so reaching here with anything else means the
// program bytes were not produced by this package's assembler.
func (i *Instance) regIndex(b byte) int {
	if b > 31 {
		panic(errors.Errorf("vm: register index %d out of range at pc=%d", b, i.pc))
	}
	return int(b)
}

// growHeap extends the heap by n bytes (new bytes zeroed), or shrinks it by
// -n bytes if n is negative, per ALOC's semantics.
func (i *Instance) growHeap(n int32) {
	switch {
	case n > 0:
		i.heap = append(i.heap, make([]byte, n)...)
	case n < 0:
		// math.MinInt32 has no positive int32 counterpart (-n would overflow
		// back to math.MinInt32), so treat it as "shrink to empty" directly
		// rather than negating it.
		var shrink int
		if n == math.MinInt32 {
			shrink = len(i.heap)
		} else {
			shrink = int(-n)
		}
		if shrink > len(i.heap) {
			shrink = len(i.heap)
		}
		i.heap = i.heap[:len(i.heap)-shrink]
	}
}

// readCString reads a null-terminated string from ro data starting at addr.
func (i *Instance) readCString(addr int) string {
	if addr < 0 || addr > len(i.roData) {
		panic(errors.Errorf("vm: PRTS address %d out of range (ro data length %d)", addr, len(i.roData)))
	}
	end := addr
	for end < len(i.roData) && i.roData[end] != 0 {
		end++
	}
	return string(i.roData[addr:end])
}
