package vm

import "github.com/pkg/errors"

// HeaderSize is the fixed size, in bytes, of the PIE image header.
const HeaderSize = 64

// Magic is the 4-byte prefix every valid image must begin with.
var Magic = [4]byte{0x7E, 'P', 'I', 'E'}

// LoadImage loads a full PIE image (64-byte header followed by code) and
// sets the program counter to HeaderSize, per the on-disk layout in
// SPEC_FULL.md §6. Read-only data is not part of the on-disk image (Open
// Question 3 in SPEC_FULL.md): callers must load it separately with LoadRO.
func (i *Instance) LoadImage(data []byte) error {
	if len(data) < HeaderSize {
		return errors.Errorf("image: too short, want at least %d bytes, got %d", HeaderSize, len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return errors.Errorf("image: bad magic %v, want %v", data[0:4], Magic)
	}
	i.program = data
	i.pc = HeaderSize
	return nil
}

// EncodeImage concatenates a fresh 64-byte header with code, producing the
// same byte layout LoadImage expects. The asm package builds this directly;
// EncodeImage exists for callers (tests, tools) assembling an image from
// already-encoded code bytes.
func EncodeImage(code []byte) []byte {
	header := make([]byte, HeaderSize)
	copy(header[0:4], Magic[:])
	return append(header, code...)
}
