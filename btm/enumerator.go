package btm

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/gobtm/btm/internal/btmerr"
)

// slot is one enumerator working position: either FIN, or a (target, write
// symbol, move) triple awaiting promotion/bit-twiddling.
type slot struct {
	fin bool
	q   int
	s   int
	m   Move
}

func slotFromInstr(instr Instruction) slot {
	if instr.IsFin() {
		return slot{fin: true}
	}
	return slot{q: instr.Q(), s: instr.S(), m: instr.Move()}
}

func instrFromSlot(sl slot) Instruction {
	if sl.fin {
		return FIN
	}
	return Pack(sl.q, sl.s, sl.m)
}

func instrsFromSlots(slots []slot) []Instruction {
	out := make([]Instruction, len(slots))
	for i, sl := range slots {
		out[i] = instrFromSlot(sl)
	}
	return out
}

// Enumerator produces the sequence of size-N binary Turing machines (or,
// in truncated mode, length-L table prefixes) in Brady canonical order,
// honoring a pinned prefix and the structural flags. In Random mode it
// instead regenerates a fresh uniform sample on every Increment.
type Enumerator struct {
	n         int // machine size N
	length    int // L: 2N for full tables, shorter for prefix-only mode
	prefixLen int // P: positions < P are pinned and never touched
	flags     Flags
	slots     []slot
	done      bool
	rng       *rand.Rand
	cancel    func() bool
}

// SetCancel installs a cancellation poll function; Increment checks it once
// per candidate and stops cleanly (as if exhausted) the first time it
// returns true. Typically wired to a flag set by a SIGINT/SIGTERM handler.
func (e *Enumerator) SetCancel(f func() bool) { e.cancel = f }

// NewEnumerator builds an enumerator over size-n tables of length `length`
// (2n for full tables, or a shorter prefix length to emit prefixes only),
// honoring flags and seeded with the given pinned prefix string (possibly
// empty). The prefix is validated against the canonical-form rules and the
// flags; an invalid prefix is refused. When flags includes Random, 4 bytes
// are read from the system entropy source to seed the generator.
func NewEnumerator(n, length int, prefix string, flags Flags) (*Enumerator, error) {
	if n <= 0 {
		return nil, btmerr.Invalidf("size must be positive, got %d", n)
	}
	if length < 0 || length > 2*n {
		return nil, btmerr.Invalidf("length %d out of range for size %d", length, n)
	}
	prefixInstrs, err := parsePrefixTokens(prefix, n)
	if err != nil {
		return nil, err
	}
	if len(prefixInstrs) > length {
		return nil, btmerr.Invalidf("prefix longer than the requested length")
	}

	e := &Enumerator{n: n, length: length, prefixLen: len(prefixInstrs), flags: flags}
	e.slots = make([]slot, length)
	for i, instr := range prefixInstrs {
		e.slots[i] = slotFromInstr(instr)
	}
	if err := e.validatePrefix(); err != nil {
		return nil, err
	}

	if flags.has(Random) {
		seed, err := randomSeed()
		if err != nil {
			return nil, err
		}
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		e.randomFillValid()
		return e, nil
	}

	e.fillMinimum(e.prefixLen)
	e.advanceToValid()
	return e, nil
}

func randomSeed() (uint64, error) {
	var buf [4]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, btmerr.IOErrorf("reading entropy source", err)
	}
	return uint64(binary.BigEndian.Uint32(buf[:])), nil
}

// Deref returns the current candidate's table-token string, or ("", false)
// if the enumerator is exhausted.
func (e *Enumerator) Deref() (string, bool) {
	if e.done {
		return "", false
	}
	return formatPrefix(instrsFromSlots(e.slots), e.n), true
}

// Machine returns the current candidate as a *Machine, only available when
// the enumerator is producing full (length == 2n) tables.
func (e *Enumerator) Machine() (*Machine, bool) {
	if e.done || e.length != 2*e.n {
		return nil, false
	}
	m := NewMachine()
	if err := m.TableLoad(formatPrefix(instrsFromSlots(e.slots), e.n)); err != nil {
		return nil, false
	}
	return m, true
}

// Done reports whether the enumerator has no more candidates.
func (e *Enumerator) Done() bool { return e.done }

// Increment advances to the next candidate, returning false once exhausted.
func (e *Enumerator) Increment() bool {
	if e.done {
		return false
	}
	if e.cancel != nil && e.cancel() {
		e.done = true
		return false
	}
	if e.flags.has(Random) {
		e.randomFillValid()
		return true
	}
	if !e.step() {
		e.done = true
		return false
	}
	return e.advanceToValid()
}

// fillMinimum resets positions [from, length) to the canonical minimum,
// FIN, which is always the lowest-ordered value at any position.
func (e *Enumerator) fillMinimum(from int) {
	for i := from; i < e.length; i++ {
		e.slots[i] = slot{fin: true}
	}
}

// computeN returns the running "next unused state index" after scanning
// positions [0, upto): top_0 = 1, and n increments each time a position's
// explicit target equals the running n (first-visit canonical numbering).
func (e *Enumerator) computeN(upto int) int {
	n := 1
	if upto > len(e.slots) {
		upto = len(e.slots)
	}
	for i := 0; i < upto; i++ {
		sl := e.slots[i]
		if !sl.fin && sl.q == n {
			n++
		}
	}
	return n
}

// innerDomain returns the ordered (s, m) choices available at position i,
// honoring NonErasing (which forces s=1 at odd, read-symbol-1 positions).
func (e *Enumerator) innerDomain(i int) [][2]int {
	if e.flags.has(NonErasing) && i%2 == 1 {
		return [][2]int{{1, int(Left)}, {1, int(Right)}}
	}
	return [][2]int{{0, int(Left)}, {0, int(Right)}, {1, int(Left)}, {1, int(Right)}}
}

func indexOfInner(domain [][2]int, s int, m Move) int {
	for idx, d := range domain {
		if d[0] == s && d[1] == int(m) {
			return idx
		}
	}
	return -1
}

// outerCap returns the highest real target value available at position i,
// given the canonical numbering established by earlier positions: the
// running n capped at N-1 (a target equal to the running n introduces a
// new state; one beyond that isn't reachable yet).
func (e *Enumerator) outerCap(i int) int {
	n := e.computeN(i)
	if n > e.n-1 {
		return e.n - 1
	}
	return n
}

// step tries the enumerator's two-phase advance: a bit-twiddle of the
// (s, m) pair at the rightmost eligible position, or, failing that, a
// target promotion walking right-to-left. Returns false if the whole
// table is exhausted.
func (e *Enumerator) step() bool {
	if e.bitTwiddle() {
		return true
	}
	return e.promote()
}

// bitTwiddle walks positions right-to-left past the prefix, incrementing
// the (s, m) pair of the rightmost non-FIN position that hasn't overflowed
// its domain; overflowed positions are reset to the domain minimum and the
// walk carries one step further left.
func (e *Enumerator) bitTwiddle() bool {
	for i := e.length - 1; i >= e.prefixLen; i-- {
		sl := e.slots[i]
		if sl.fin {
			continue
		}
		domain := e.innerDomain(i)
		idx := indexOfInner(domain, sl.s, sl.m)
		if idx+1 < len(domain) {
			e.slots[i].s = domain[idx+1][0]
			e.slots[i].m = Move(domain[idx+1][1])
			return true
		}
		e.slots[i].s = domain[0][0]
		e.slots[i].m = Move(domain[0][1])
	}
	return false
}

// promote walks positions right-to-left, advancing the target at the
// rightmost position that admits it: for Cyclic rows, toggling FIN versus
// the forced (q+1 mod N) target; otherwise advancing along the sequence
// FIN, 0, 1, ..., cap. On success, positions to the right are refilled
// with the canonical minimum.
func (e *Enumerator) promote() bool {
	for i := e.length - 1; i >= e.prefixLen; i-- {
		row := i / 2
		if e.flags.has(Cyclic) {
			if e.slots[i].fin {
				inner := e.innerDomain(i)[0]
				e.slots[i] = slot{q: successor(row, e.n), s: inner[0], m: Move(inner[1])}
				e.fillMinimum(i + 1)
				return true
			}
			continue
		}
		cap := e.outerCap(i)
		if e.slots[i].fin {
			inner := e.innerDomain(i)[0]
			e.slots[i] = slot{q: 0, s: inner[0], m: Move(inner[1])}
			e.fillMinimum(i + 1)
			return true
		}
		if e.slots[i].q < cap {
			inner := e.innerDomain(i)[0]
			e.slots[i] = slot{q: e.slots[i].q + 1, s: inner[0], m: Move(inner[1])}
			e.fillMinimum(i + 1)
			return true
		}
		e.slots[i] = slot{fin: true}
	}
	return false
}

// isValidCandidate checks the global flag constraints that aren't baked
// into the per-position domain: at most one FIN (ExclMultiFin), at least
// one FIN in full-table mode (ExclNoFin), and, in full-table mode, that
// every state 0..N-1 was actually introduced by the end (the pruning rule
// of §4.5's "second entry of the last introduce-capable row" is subsumed by
// this end-of-table check: both describe the same canonical-completeness
// requirement, just at different points in the search).
func (e *Enumerator) isValidCandidate() bool {
	finCount := 0
	for _, sl := range e.slots {
		if sl.fin {
			finCount++
		}
	}
	if e.flags.has(ExclMultiFin) && finCount > 1 {
		return false
	}
	if e.length == 2*e.n {
		if e.flags.has(ExclNoFin) && finCount == 0 {
			return false
		}
		if e.computeN(e.length) < e.n {
			return false
		}
	}
	return true
}

func (e *Enumerator) advanceToValid() bool {
	for {
		if e.isValidCandidate() {
			return true
		}
		if !e.step() {
			e.done = true
			return false
		}
	}
}

// validatePrefix replays the pinned prefix, rejecting it if it violates
// the canonical numbering, Cyclic, NonErasing, or ExclMultiFin.
func (e *Enumerator) validatePrefix() error {
	n := 1
	finCount := 0
	for i := 0; i < e.prefixLen; i++ {
		sl := e.slots[i]
		row := i / 2
		if sl.fin {
			finCount++
		} else {
			if e.flags.has(NonErasing) && i%2 == 1 && sl.s != 1 {
				return btmerr.Invalidf("prefix position %d violates the non-erasing flag", i)
			}
			if e.flags.has(Cyclic) && sl.q != successor(row, e.n) {
				return btmerr.Invalidf("prefix position %d violates the cyclic flag", i)
			}
			cap := n
			if cap > e.n-1 {
				cap = e.n - 1
			}
			if sl.q < 0 || sl.q > cap {
				return btmerr.Invalidf("prefix position %d target %d violates canonical numbering", i, sl.q)
			}
			if sl.q == n {
				n++
			}
		}
		if e.flags.has(ExclMultiFin) && finCount > 1 {
			return btmerr.Invalidf("prefix has more than one FIN")
		}
	}
	return nil
}

const randomRetryBudget = 4096

// randomFillValid regenerates every position below the prefix uniformly at
// random, consistent with the structural flags (Cyclic/NonErasing, which
// are built into the per-position domain), retrying up to a bounded budget
// to also satisfy the global flags (ExclMultiFin/ExclNoFin) before giving
// up and returning the last draw.
func (e *Enumerator) randomFillValid() {
	for try := 0; try < randomRetryBudget; try++ {
		e.randomFill()
		if e.isValidCandidate() {
			return
		}
	}
}

func (e *Enumerator) randomFill() {
	for i := e.prefixLen; i < e.length; i++ {
		row := i / 2
		if e.flags.has(Cyclic) {
			if e.rng.IntN(2) == 0 {
				e.slots[i] = slot{fin: true}
				continue
			}
			dom := e.innerDomain(i)
			pick := dom[e.rng.IntN(len(dom))]
			e.slots[i] = slot{q: successor(row, e.n), s: pick[0], m: Move(pick[1])}
			continue
		}
		cap := e.outerCap(i)
		choice := e.rng.IntN(cap+2) - 1 // -1 denotes FIN
		if choice < 0 {
			e.slots[i] = slot{fin: true}
			continue
		}
		dom := e.innerDomain(i)
		pick := dom[e.rng.IntN(len(dom))]
		e.slots[i] = slot{q: choice, s: pick[0], m: Move(pick[1])}
	}
}
