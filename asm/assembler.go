package asm

import "fmt"

// Phase is the assembler's two-step state machine: First during symbol/ro
// data discovery, Second during code emission.
type Phase int

const (
	First Phase = iota
	Second
)

// Section tags which segment a declared label belongs to.
type Section int

const (
	SectionData Section = iota
	SectionCode
)

// AssemblerState is the two-pass driver's working state. Assemble builds a
// fresh one for every call and does not return it.
type AssemblerState struct {
	Phase          Phase
	Symbols        *SymbolTable
	ROData         []byte
	Code           []byte
	Sections       []Section
	CurrentSection *Section
	Errors         ErrList
}

func newAssemblerState() *AssemblerState {
	return &AssemblerState{Symbols: NewSymbolTable()}
}

const headerSize = 64

var magic = [4]byte{0x7E, 'P', 'I', 'E'}

// Assemble compiles source text into a binary image (64-byte header plus
// 4-byte-per-instruction code) and the ro data section the caller must
// propagate to a VM out-of-band (image format does not embed it, see
// SPEC_FULL.md's Open Question 3 resolution).
//
// On any pass-1 error, or if the source never declares a .code section, no
// image is produced and the returned error can be type-asserted to ErrList
// to inspect every problem found.
func Assemble(text string) (image []byte, roData []byte, err error) {
	prog, err := Parse(text)
	if err != nil {
		return nil, nil, err
	}
	return assemble(prog)
}

func assemble(prog Program) ([]byte, []byte, error) {
	st := newAssemblerState()
	hasCodeSection := firstPass(st, prog)

	if len(st.Errors) > 0 {
		return nil, nil, st.Errors
	}
	if !hasCodeSection {
		return nil, nil, ErrList{newParseError(0, "no .code section declared")}
	}

	st.Phase = Second
	code := secondPass(st, prog)

	header := make([]byte, headerSize)
	copy(header[0:4], magic[:])
	image := append(header, code...)
	return image, st.ROData, nil
}

// firstPass walks the parsed program collecting section boundaries, symbol
// offsets, and .asciiz ro data. It returns whether a .code section was ever
// declared. Every problem it finds is appended to st.Errors; discovery never
// aborts early so a user sees every malformed label/directive in one run.
func firstPass(st *AssemblerState, prog Program) bool {
	hasCodeSection := false
	// codeOffset is the byte offset the next code-producing instruction will
	// occupy in the emitted code; labels bind to it.
	codeOffset := 0

	for i, pi := range prog {
		offset := i * 4

		if pi.HasLabel {
			switch {
			case st.CurrentSection == nil:
				st.Errors = append(st.Errors, newNoSegmentFor(offset, pi.Label))
			case st.Symbols.Has(pi.Label):
				st.Errors = append(st.Errors, newSymbolRedeclared(offset, pi.Label))
			default:
				st.Symbols.Add(Symbol{Name: pi.Label, Offset: uint32(codeOffset), Kind: Label})
			}
		}

		if pi.IsCodeProducing() {
			codeOffset += 4
		}

		if !pi.HasDirective {
			continue
		}

		switch {
		case len(pi.Operands) == 0:
			switch pi.Directive {
			case "code":
				sec := SectionCode
				st.Sections = append(st.Sections, sec)
				st.CurrentSection = &sec
				hasCodeSection = true
			case "data":
				sec := SectionData
				st.Sections = append(st.Sections, sec)
				st.CurrentSection = &sec
			default:
				st.Errors = append(st.Errors, newUnknownDirective(offset, pi.Directive))
			}

		case pi.HasLabel && len(pi.Operands) >= 1 && pi.Directive == "asciiz":
			text := ""
			if pi.Operands[0].Kind == KindString {
				text = pi.Operands[0].Text
			}
			st.Symbols.SetOffset(pi.Label, uint32(len(st.ROData)))
			st.ROData = append(st.ROData, []byte(text)...)
			st.ROData = append(st.ROData, 0)

		default:
			st.Errors = append(st.Errors, newUnknownDirective(offset, pi.Directive))
		}
	}

	return hasCodeSection
}

// secondPass encodes every code-producing instruction into 4 bytes. Pass 1
// must already have run: this must never mutate st.ROData.
func secondPass(st *AssemblerState, prog Program) []byte {
	var code []byte
	for _, pi := range prog {
		if !pi.IsCodeProducing() {
			continue
		}
		buf := encodeInstruction(pi, st.Symbols)
		code = append(code, buf[:]...)
	}
	return code
}

// encodeInstruction packs one instruction's opcode byte and up to 3 operand
// bytes. Register tokens occupy 1 byte, integer and label-usage tokens
// occupy 2 bytes big-endian; any other token kind reaching this point is an
// assembler bug, not a user error (the parser guarantees operand tokens are
// always Register, Integer, or LabelUse).
func encodeInstruction(pi ParsedInstruction, symbols *SymbolTable) [4]byte {
	var buf [4]byte
	buf[0] = byte(pi.Op)
	pos := 1

	for _, tok := range pi.Operands {
		switch tok.Kind {
		case KindRegister:
			if pos+1 > 4 {
				panic(fmt.Sprintf("asm: instruction operands overflow 4-byte encoding at opcode %s", pi.Op))
			}
			buf[pos] = tok.Reg
			pos++
		case KindInteger:
			if pos+2 > 4 {
				panic(fmt.Sprintf("asm: instruction operands overflow 4-byte encoding at opcode %s", pi.Op))
			}
			v := uint16(uint32(tok.Int) & 0xFFFF)
			buf[pos], buf[pos+1] = byte(v>>8), byte(v)
			pos += 2
		case KindLabelUse:
			if pos+2 > 4 {
				panic(fmt.Sprintf("asm: instruction operands overflow 4-byte encoding at opcode %s", pi.Op))
			}
			off, _ := symbols.Value(tok.Name)
			v := uint16(off)
			buf[pos], buf[pos+1] = byte(v>>8), byte(v)
			pos += 2
		default:
			panic(fmt.Sprintf("asm: invalid token kind %s in operand slot", tok.Kind))
		}
	}

	return buf
}
