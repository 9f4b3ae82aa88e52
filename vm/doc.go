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

// Package vm implements the fixed-width register-VM interpreter: a 32
// register file, a heap grown only by ALOC, a read-only data section for
// null-terminated strings, an equality flag, and a fetch/decode/execute loop
// over 4-byte instructions.
//
// An Instance is built with functional options (see Option) and started
// with LoadImage or LoadCode followed by Run or repeated calls to Step.
// Step halts on HLT, on an unrecognized opcode (IGL), or when the program
// counter runs off the end of the program; these are clean terminations.
// Divide-by-zero and out-of-range register indices are not: they panic,
// since they indicate a bug in the code that produced the instruction
// stream rather than a normal program outcome (see SPEC_FULL.md §7).
package vm
