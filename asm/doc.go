// This file is part of rvm, ported from the Ngaro assembler at
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

// Package asm assembles the register-VM textual dialect into a binary image.
//
// Grammar, one instruction per line, whitespace-insensitive between tokens:
//
//	$N       register operand, 0 <= N <= 31
//	#N       integer operand, decimal, non-negative in source
//	name:    label declaration
//	@name    label usage
//	.name    directive (code, data, asciiz)
//	'text'   string literal, no escapes
//	name     opcode mnemonic, case-insensitive; unrecognized names assemble
//	         to the IGL opcode rather than failing to parse
//
// A line takes one of two shapes:
//
//	[label:] mnemonic [operand [operand [operand]]]
//	[label:] .directive [operand [operand [operand]]]
//
// or is a bare label declaration with nothing else on the line.
//
// Assembly is two passes over the parsed program (see Assemble): pass 1
// walks it to collect section boundaries, label offsets and .asciiz ro data;
// pass 2 walks it again to encode each instruction now that every label
// usage has a resolved offset. Parse failures (lines matching neither shape)
// abort assembly immediately; everything else discovered during pass 1
// (unsectioned labels, redeclared symbols, unknown directives) is collected
// and returned as a list rather than aborting early, so a user sees every
// problem in one run.
package asm
