package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layderv/rvm/opcode"
	"github.com/layderv/rvm/vm"
)

// enc builds a 4-byte instruction from an opcode and up to 3 operand bytes.
func enc(op opcode.Opcode, a, b, c byte) []byte {
	return []byte{byte(op), a, b, c}
}

func TestStepLoadAndHalt(t *testing.T) {
	code := append(enc(opcode.LOAD, 0, 0, 100), enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))

	halted := i.Run()
	require.True(t, halted)
	assert.Equal(t, int32(100), i.Reg(0))
}

func TestAddExceedsInt16Range(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0x7F, 0xFF)...) // r0 = 32767
	code = append(code, enc(opcode.LOAD, 1, 0, 1)...)       // r1 = 1
	code = append(code, enc(opcode.ADD, 0, 1, 2)...)        // r2 = r0 + r1
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(32768), i.Reg(2))
}

func TestDivRemainder(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 10)...)
	code = append(code, enc(opcode.LOAD, 1, 0, 3)...)
	code = append(code, enc(opcode.DIV, 0, 1, 2)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(3), i.Reg(2))
	assert.Equal(t, uint32(1), i.Remainder())
}

func TestDivByZeroPanics(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 10)...)
	code = append(code, enc(opcode.LOAD, 1, 0, 0)...)
	code = append(code, enc(opcode.DIV, 0, 1, 2)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	assert.Panics(t, func() { i.Run() })
}

func TestIncDecNeg(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 5)...)
	code = append(code, enc(opcode.INC, 0, 0, 0)...)
	code = append(code, enc(opcode.INC, 0, 0, 0)...)
	code = append(code, enc(opcode.DEC, 0, 0, 0)...)
	code = append(code, enc(opcode.NEG, 0, 0, 0)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(-6), i.Reg(0))
}

func TestMovCopiesRegister(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 7)...)
	code = append(code, enc(opcode.MOV, 1, 0, 0)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(7), i.Reg(1))
}

func TestJmpAbsolute(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 8)...) // offset 0: r0 = 8
	code = append(code, enc(opcode.JMP, 0, 0, 0)...)  // offset 4: jump to r0 == 8
	code = append(code, enc(opcode.LOAD, 1, 0, 1)...) // offset 8: jump target
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(1), i.Reg(1))
}

// JMPF's target is pc+1+r, where pc is the offset of the JMPF instruction
// itself (the "pc value after opcode fetch" per SPEC_FULL.md §4.6). A JMPF
// at offset 4 with r0=7 lands on pc 4+1+7 == 12, skipping the LOAD at
// offset 8 entirely.
func TestJmpfSkipsForward(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 7)...)  // offset 0: r0 = 7
	code = append(code, enc(opcode.JMPF, 0, 0, 0)...)  // offset 4: pc = 4+1+7 = 12
	code = append(code, enc(opcode.LOAD, 1, 0, 99)...) // offset 8: skipped
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)   // offset 12: landed here
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(0), i.Reg(1), "forward jump must skip the intervening LOAD")
}

// JNE jumps absolute to the register's value when the equality flag is
// clear, which is enough to build a back-edge loop: reload the absolute
// address of the loop body each iteration and jump to it while unequal.
func TestJneLoopsUntilEqual(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 1, 0, 0)...) // offset 0: r1 = 0 (loop counter)
	code = append(code, enc(opcode.INC, 1, 0, 0)...)  // offset 4: loop body, r1++
	code = append(code, enc(opcode.LOAD, 2, 0, 3)...) // offset 8: r2 = 3
	code = append(code, enc(opcode.EQ, 1, 2, 0)...)   // offset 12: equality = (r1 == r2)
	code = append(code, enc(opcode.LOAD, 0, 0, 4)...) // offset 16: r0 = 4 (absolute address of loop body)
	code = append(code, enc(opcode.JNE, 0, 0, 0)...)  // offset 20: jump to r0 while !equality
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)  // offset 24
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(3), i.Reg(1))
}

func TestComparisonsSetEquality(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 5)...)
	code = append(code, enc(opcode.LOAD, 1, 0, 5)...)
	code = append(code, enc(opcode.EQ, 0, 1, 0)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.True(t, i.EqualityFlag())
}

func TestJeqJumpsWhenEqualityTrue(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 5)...)  // offset 0: r0 = 5
	code = append(code, enc(opcode.LOAD, 1, 0, 5)...)  // offset 4: r1 = 5
	code = append(code, enc(opcode.EQ, 0, 1, 0)...)    // offset 8: equality = true
	code = append(code, enc(opcode.LOAD, 2, 0, 24)...) // offset 12: r2 = 24 (target offset)
	code = append(code, enc(opcode.JEQ, 2, 0, 0)...)   // offset 16: jump to r2 since equality
	code = append(code, enc(opcode.LOAD, 3, 0, 1)...)  // offset 20: skipped
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)   // offset 24: landed here
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(0), i.Reg(3), "JEQ must skip the intervening LOAD when equality is set")
}

func TestAndOrNot(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 0x0F)...)
	code = append(code, enc(opcode.LOAD, 1, 0, 0x03)...)
	code = append(code, enc(opcode.AND, 0, 1, 2)...)
	code = append(code, enc(opcode.OR, 0, 1, 3)...)
	code = append(code, enc(opcode.NOT, 1, 0, 0)...)
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Equal(t, int32(0x03), i.Reg(2))
	assert.Equal(t, int32(0x0F), i.Reg(3))
	assert.Equal(t, ^int32(0x03), i.Reg(1))
}

func TestAlocGrowsAndShrinksHeap(t *testing.T) {
	code := []byte{}
	code = append(code, enc(opcode.LOAD, 0, 0, 10)...) // r0 = 10
	code = append(code, enc(opcode.ALOC, 0, 0, 0)...)  // heap grows by 10
	code = append(code, enc(opcode.LOAD, 1, 0, 5)...)  // r1 = 5
	code = append(code, enc(opcode.NEG, 1, 0, 0)...)   // r1 = -5
	code = append(code, enc(opcode.ALOC, 1, 0, 0)...)  // heap shrinks by 5
	code = append(code, enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	assert.Len(t, i.Heap(), 5)
}

func TestPrtsWritesToOutput(t *testing.T) {
	ro := append([]byte("hi"), 0)
	code := append(enc(opcode.PRTS, 0, 0, 0), enc(opcode.HLT, 0, 0, 0)...)
	var buf bytes.Buffer
	i := vm.New(vm.WithProgram(code), vm.WithRO(ro), vm.WithOutput(&buf))
	i.Run()
	assert.Equal(t, "hi\n", buf.String())
}

func TestRunOffEndOfProgramHalts(t *testing.T) {
	code := enc(opcode.NOP, 0, 0, 0)
	i := vm.New(vm.WithProgram(code))
	halted := i.Run()
	assert.True(t, halted)
}

func TestOutOfRangeRegisterPanics(t *testing.T) {
	code := append(enc(opcode.INC, 40, 0, 0), enc(opcode.HLT, 0, 0, 0)...)
	i := vm.New(vm.WithProgram(code))
	assert.Panics(t, func() { i.Run() })
}

func TestEventsRecordStartAndStop(t *testing.T) {
	code := enc(opcode.HLT, 0, 0, 0)
	i := vm.New(vm.WithProgram(code))
	i.Run()
	events := i.Events()
	require.Len(t, events, 2)
	assert.Equal(t, vm.EventStart, events[0].Kind)
	assert.Equal(t, vm.EventStop, events[1].Kind)
}
