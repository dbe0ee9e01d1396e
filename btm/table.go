package btm

import (
	"strconv"
	"strings"

	"github.com/gobtm/btm/internal/btmerr"
)

// table is the transition table: 2*n instructions addressed by (state q,
// read symbol s), row q holding the two entries for s=0 and s=1. It may be
// grown monotonically by setting an instruction whose row or target exceeds
// the current size, and shrinks only when the last row loses its only
// reference to the previous highest state and a rescan finds nothing else
// targets it.
type table struct {
	n    int
	data []Instruction // len == 2*n, all FIN until set
}

func newTable() *table {
	return &table{}
}

// size returns N, the number of rows.
func (t *table) size() int { return t.n }

// grow extends the table to have at least `rows` rows, padding new rows
// with FIN (the initial-value convention for all table entries).
func (t *table) grow(rows int) {
	if rows <= t.n {
		return
	}
	newData := make([]Instruction, 2*rows)
	copy(newData, t.data)
	for i := len(t.data); i < len(newData); i++ {
		newData[i] = FIN
	}
	t.data = newData
	t.n = rows
}

// tighten shrinks the table while the highest row is unreferenced by any
// instruction's target, regardless of what the row itself holds. Row 0
// (the start state) is always kept.
func (t *table) tighten() {
	for t.n > 1 {
		top := t.n - 1
		referenced := false
		for _, instr := range t.data {
			if !instr.IsFin() && instr.Q() == top {
				referenced = true
				break
			}
		}
		if referenced {
			return
		}
		t.n = top
		t.data = t.data[:2*top]
	}
}

// setInstr sets the instruction at (q, s), growing the table if q or the
// instruction's target exceeds the current size, and tightening the size
// downward if this was the last reference to the previous highest row.
func (t *table) setInstr(q, s int, instr Instruction) error {
	if q < 0 || s < 0 || s > 1 {
		return btmerr.Invalidf("row/symbol out of range: q=%d s=%d", q, s)
	}
	needed := q + 1
	if !instr.IsFin() && instr.Q()+1 > needed {
		needed = instr.Q() + 1
	}
	if needed > t.n {
		t.grow(needed)
	}
	old := t.data[2*q+s]
	t.data[2*q+s] = instr
	if !old.IsFin() && old.Q() == t.n-1 && (instr.IsFin() || instr.Q() != old.Q()) {
		t.tighten()
	}
	return nil
}

// getInstr returns the instruction at (q, s).
func (t *table) getInstr(q, s int) (Instruction, error) {
	if q < 0 || q >= t.n || s < 0 || s > 1 {
		return 0, btmerr.Invalidf("row/symbol out of range: q=%d s=%d", q, s)
	}
	return t.data[2*q+s], nil
}

// load replaces the table's contents from a whitespace-separated token
// string, per the table text grammar: 2*n tokens parsed row-major (row 0
// symbol 0, row 0 symbol 1, row 1 symbol 0, ...), n inferred from the token
// count. Implicit (letter-only) targets are already resolved modulo n by
// parseToken; any explicit target at or beyond n is rejected.
func (t *table) load(s string) error {
	toks := strings.Fields(s)
	if len(toks)%2 != 0 {
		return btmerr.Invalidf("odd instruction token count: %d", len(toks))
	}
	n := len(toks) / 2
	if n == 0 {
		t.n = 0
		t.data = nil
		return nil
	}
	data := make([]Instruction, len(toks))
	for i, tok := range toks {
		row := i / 2
		instr, err := parseToken(tok, row, n)
		if err != nil {
			return err
		}
		if !instr.IsFin() && (instr.Q() < 0 || instr.Q() >= n) {
			return btmerr.Invalidf("target %d out of range in token %q (n=%d)", instr.Q(), tok, n)
		}
		data[i] = instr
	}
	t.n = n
	t.data = data
	return nil
}

// dump renders the table back to its token-string form.
func (t *table) dump() string {
	if t.n == 0 {
		return ""
	}
	toks := make([]string, len(t.data))
	for i, instr := range t.data {
		row := i / 2
		toks[i] = formatToken(instr, row, t.n)
	}
	return strings.Join(toks, " ")
}

// parsePrefixTokens parses a (possibly odd-length, possibly empty) sequence
// of leading instruction tokens against a table of n rows, used by the
// enumerator to validate and seed a pinned prefix.
func parsePrefixTokens(s string, n int) ([]Instruction, error) {
	toks := strings.Fields(s)
	out := make([]Instruction, len(toks))
	for i, tok := range toks {
		instr, err := parseToken(tok, i/2, n)
		if err != nil {
			return nil, err
		}
		if !instr.IsFin() && (instr.Q() < 0 || instr.Q() >= n) {
			return nil, btmerr.Invalidf("prefix target %d out of range in token %q (n=%d)", instr.Q(), tok, n)
		}
		out[i] = instr
	}
	return out, nil
}

// formatPrefix renders a raw position slice (shorter than 2n allowed) back
// to its token-string form, addressed against an n-row table.
func formatPrefix(instrs []Instruction, n int) string {
	toks := make([]string, len(instrs))
	for i, instr := range instrs {
		toks[i] = formatToken(instr, i/2, n)
	}
	return strings.Join(toks, " ")
}

// parseUint is a small helper used by the configuration codec.
func parseUint(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, btmerr.Invalidf("invalid non-negative integer %q", s)
	}
	return v, nil
}
