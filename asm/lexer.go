package asm

import (
	"fmt"
	"strconv"

	"github.com/layderv/rvm/opcode"
)

// tokenizeLine splits a single source line into raw tokens. The grammar is
// regular enough (one sigil per token kind, no nesting) that a hand-written
// scanner is simpler and more transparent than reaching for text/scanner —
// see DESIGN.md for why this corner stays on the standard library.
func tokenizeLine(line string, lineNo int) ([]Token, error) {
	var toks []Token
	i, n := 0, len(line)

	for i < n {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '\'':
			j := i + 1
			for j < n && line[j] != '\'' {
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("line %d: unterminated string literal", lineNo)
			}
			toks = append(toks, Token{Kind: KindString, Text: line[i+1 : j]})
			i = j + 1

		case c == '$':
			j := i + 1
			for j < n && isDigit(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("line %d: expected digits after '$'", lineNo)
			}
			v, err := strconv.ParseUint(line[i+1:j], 10, 16)
			if err != nil || v > 31 {
				return nil, fmt.Errorf("line %d: register out of range: $%s", lineNo, line[i+1:j])
			}
			toks = append(toks, Token{Kind: KindRegister, Reg: uint8(v)})
			i = j

		case c == '#':
			j := i + 1
			for j < n && isDigit(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("line %d: expected digits after '#'", lineNo)
			}
			v, err := strconv.ParseUint(line[i+1:j], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: integer operand out of range: #%s", lineNo, line[i+1:j])
			}
			toks = append(toks, Token{Kind: KindInteger, Int: int32(uint32(v))})
			i = j

		case c == '@':
			j := i + 1
			for j < n && isAlpha(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("line %d: expected a name after '@'", lineNo)
			}
			toks = append(toks, Token{Kind: KindLabelUse, Name: line[i+1 : j]})
			i = j

		case c == '.':
			j := i + 1
			for j < n && isAlpha(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("line %d: expected a name after '.'", lineNo)
			}
			toks = append(toks, Token{Kind: KindDirective, Name: line[i+1 : j]})
			i = j

		case isAlpha(c):
			j := i + 1
			for j < n && isAlpha(line[j]) {
				j++
			}
			name := line[i:j]
			if j < n && line[j] == ':' {
				toks = append(toks, Token{Kind: KindLabelDecl, Name: name})
				i = j + 1
			} else {
				toks = append(toks, Token{Kind: KindOpcode, Op: opcode.FromString(name)})
				i = j
			}

		default:
			return nil, fmt.Errorf("line %d: unexpected character %q", lineNo, c)
		}
	}
	return toks, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
