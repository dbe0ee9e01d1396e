// Package btm implements the binary Turing machine engine: the transition
// table and tape model, the stepper, the text codecs for tables and tape
// configurations, the canonical-order enumerator, and the enumeration
// filters (separability, repetition detection, trace dedup).
package btm

import (
	"strconv"
	"strings"

	"github.com/gobtm/btm/internal/btmerr"
)

// Instruction is a single packed transition: a target state, a write symbol,
// and a head move, or the FIN sentinel meaning "halt".
//
// Layout: bits 2.. hold the target state q, bit 1 holds the write symbol s,
// bit 0 holds 1 if the move is Right. FIN is the value whose q-field is -1,
// i.e. -4 when packed.
type Instruction int32

// FIN halts the machine. Its q-field is -1.
const FIN Instruction = -4

// Move is the tape head direction taken after a non-halting transition.
type Move int

const (
	Left Move = iota
	Right
)

// Pack encodes a transition to state q, writing symbol s, moving m.
// q must be >= 0; use FIN directly for the halt instruction.
func Pack(q int, s int, m Move) Instruction {
	bit0 := 0
	if m == Right {
		bit0 = 1
	}
	return Instruction((int32(q) << 2) | (int32(s) << 1) | int32(bit0))
}

// IsFin reports whether the instruction is the halt sentinel.
func (i Instruction) IsFin() bool {
	return i.Q() < 0
}

// Q returns the target state. Only meaningful when !IsFin().
func (i Instruction) Q() int {
	return int(i >> 2)
}

// S returns the write symbol (0 or 1). Only meaningful when !IsFin().
func (i Instruction) S() int {
	return int((i >> 1) & 1)
}

// Move returns the head move. Only meaningful when !IsFin().
func (i Instruction) Move() Move {
	if i&1 == 1 {
		return Right
	}
	return Left
}

// mnemonic returns the one-letter code for a non-FIN instruction's (s, move).
func mnemonic(s int, m Move) byte {
	switch {
	case s == 0 && m == Left:
		return 'o'
	case s == 0 && m == Right:
		return 'O'
	case s == 1 && m == Left:
		return 'i'
	default: // s == 1 && m == Right
		return 'I'
	}
}

// decodeMnemonic returns the (s, move) pair for a letter, or false if the
// letter isn't one of the five recognized mnemonics.
func decodeMnemonic(letter byte) (s int, m Move, ok bool) {
	switch letter {
	case 'o':
		return 0, Left, true
	case 'O':
		return 0, Right, true
	case 'i':
		return 1, Left, true
	case 'I':
		return 1, Right, true
	}
	return 0, Left, false
}

// successor returns the implicit default target for row, under an n-state
// table: (row+1) mod n.
func successor(row, n int) int {
	return (row + 1) % n
}

// parseToken parses one instruction token (e.g. "o", "I3", "f") addressed at
// the given row, under a table of n rows (used to resolve the implicit
// successor target). An implicit target resolves to (row+1) mod n, so it
// is always below n; an explicit target is returned as written and may be
// n or larger. Callers that enforce table bounds reject such targets.
func parseToken(tok string, row, n int) (Instruction, error) {
	if tok == "" {
		return 0, btmerr.Invalidf("empty instruction token")
	}
	letter := tok[0]
	rest := tok[1:]
	if letter == 'f' {
		if rest != "" {
			return 0, btmerr.Invalidf("unexpected argument after 'f': %q", tok)
		}
		return FIN, nil
	}
	s, m, ok := decodeMnemonic(letter)
	if !ok {
		return 0, btmerr.Invalidf("unknown instruction letter %q in %q", letter, tok)
	}
	if rest == "" {
		return Pack(successor(row, n), s, m), nil
	}
	target, err := strconv.Atoi(rest)
	if err != nil {
		return 0, btmerr.Invalidf("invalid state number in %q", tok)
	}
	if target < 0 {
		return 0, btmerr.Invalidf("negative state number in %q", tok)
	}
	if target > (1<<28)-1 {
		return 0, btmerr.Invalidf("state number out of range in %q", tok)
	}
	return Pack(target, s, m), nil
}

// formatToken renders one instruction addressed at row, under an n-row
// table: the mnemonic letter, with a decimal target suffix unless the
// target is the implicit successor of row.
func formatToken(instr Instruction, row, n int) string {
	if instr.IsFin() {
		return "f"
	}
	letter := mnemonic(instr.S(), instr.Move())
	if instr.Q() == successor(row, n) {
		return string(letter)
	}
	var b strings.Builder
	b.WriteByte(letter)
	b.WriteString(strconv.Itoa(instr.Q()))
	return b.String()
}
