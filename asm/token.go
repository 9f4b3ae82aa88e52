package asm

import "github.com/layderv/rvm/opcode"

// Kind tags the variant a Token holds.
type Kind int

// Token variants. Every Token carries exactly one of these.
const (
	KindOpcode Kind = iota
	KindRegister
	KindInteger
	KindLabelDecl
	KindLabelUse
	KindDirective
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindOpcode:
		return "opcode"
	case KindRegister:
		return "register"
	case KindInteger:
		return "integer"
	case KindLabelDecl:
		return "label declaration"
	case KindLabelUse:
		return "label usage"
	case KindDirective:
		return "directive"
	case KindString:
		return "string literal"
	default:
		return "unknown"
	}
}

// Token is a tagged variant produced by the lexer. Only the field matching
// Kind is meaningful.
type Token struct {
	Kind Kind
	Op   opcode.Opcode // KindOpcode
	Reg  uint8         // KindRegister, 0..31
	Int  int32         // KindInteger
	Name string        // KindLabelDecl, KindLabelUse, KindDirective
	Text string        // KindString
}

// ParsedInstruction is a single line's worth of assembly: an optional label
// declaration, at most one of {opcode, directive}, and up to three operand
// tokens.
type ParsedInstruction struct {
	Line int

	HasLabel bool
	Label    string

	HasOp bool
	Op    opcode.Opcode

	HasDirective bool
	Directive    string

	Operands []Token // len 0..3
}

// IsCodeProducing reports whether this instruction emits 4 bytes of code in
// pass 2 (i.e. it carries an opcode, as opposed to a directive or a bare
// label declaration).
func (pi ParsedInstruction) IsCodeProducing() bool {
	return pi.HasOp
}

// Program is an ordered, non-empty sequence of parsed instructions.
type Program []ParsedInstruction
