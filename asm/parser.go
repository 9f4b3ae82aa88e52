package asm

import (
	"fmt"
	"strings"
)

// Parse lexes and parses assembly source text into a Program. Every line
// produces at most one ParsedInstruction; blank lines are skipped. A line
// that matches neither accepted shape aborts parsing and returns an ErrList
// of every such failure found (parsing does not stop at the first one, so a
// caller sees every malformed line in a single run).
func Parse(text string) (Program, error) {
	lines := strings.Split(text, "\n")
	var prog Program
	var errs ErrList

	for idx, line := range lines {
		lineNo := idx + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		toks, err := tokenizeLine(line, lineNo)
		if err != nil {
			errs = append(errs, newParseError(lineNo, err.Error()))
			continue
		}
		pi, err := parseInstruction(toks, lineNo)
		if err != nil {
			errs = append(errs, newParseError(lineNo, err.Error()))
			continue
		}
		prog = append(prog, pi)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	if len(prog) == 0 {
		return nil, ErrList{newParseError(0, "empty program")}
	}
	return prog, nil
}

// parseInstruction matches one of:
//
//	[label] opcode operand{0,3}
//	[label] directive operand{0,3}
//	[label]
func parseInstruction(toks []Token, lineNo int) (ParsedInstruction, error) {
	pi := ParsedInstruction{Line: lineNo}
	idx := 0

	if idx < len(toks) && toks[idx].Kind == KindLabelDecl {
		pi.HasLabel = true
		pi.Label = toks[idx].Name
		idx++
	}

	if idx >= len(toks) {
		return pi, nil
	}

	switch toks[idx].Kind {
	case KindOpcode:
		pi.HasOp = true
		pi.Op = toks[idx].Op
		idx++
		for ; idx < len(toks); idx++ {
			t := toks[idx]
			if t.Kind != KindRegister && t.Kind != KindInteger && t.Kind != KindLabelUse {
				return ParsedInstruction{}, fmt.Errorf("unexpected %s as instruction operand", t.Kind)
			}
			if len(pi.Operands) >= 3 {
				return ParsedInstruction{}, fmt.Errorf("too many operands")
			}
			pi.Operands = append(pi.Operands, t)
		}
	case KindDirective:
		pi.HasDirective = true
		pi.Directive = toks[idx].Name
		idx++
		for ; idx < len(toks); idx++ {
			if len(pi.Operands) >= 3 {
				return ParsedInstruction{}, fmt.Errorf("too many operands")
			}
			pi.Operands = append(pi.Operands, toks[idx])
		}
	default:
		return ParsedInstruction{}, fmt.Errorf("unexpected %s, expected an opcode or a directive", toks[idx].Kind)
	}

	return pi, nil
}
