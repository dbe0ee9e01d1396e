package btm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/golang/glog"

	"github.com/gobtm/btm/internal/btmerr"
)

// Machine holds a transition table, a tape, a head position, and a state
// register, and runs the fetch-write-move stepper over them.
type Machine struct {
	table *table
	tape  *tape
	head  int
	state int // negative means halted
}

// NewMachine creates an empty machine: no rows, blank tape, head 0, state 0.
func NewMachine() *Machine {
	return &Machine{table: newTable(), tape: newTape(), head: 0, state: 0}
}

// Size returns N, the number of rows in the loaded table.
func (m *Machine) Size() int { return m.table.size() }

// State returns the state register (negative means halted).
func (m *Machine) State() int { return m.state }

// Head returns the current head position.
func (m *Machine) Head() int { return m.head }

// SetState sets the state register. A negative value halts the machine;
// a non-negative value must be less than the table's size.
func (m *Machine) SetState(q int) error {
	if q >= 0 && q >= m.table.size() {
		return btmerr.Invalidf("state %d out of range for size %d", q, m.table.size())
	}
	m.state = q
	return nil
}

// SetHead moves the head, growing the tape if needed. Cells newly brought
// into the allocated buffer read '0' by construction.
func (m *Machine) SetHead(h int) {
	m.head = h
	m.tape.ensure(h)
}

// SetInstr sets the instruction at (q, s), growing or tightening the table
// as described in the table's contract.
func (m *Machine) SetInstr(q, s int, instr Instruction) error {
	if err := m.table.setInstr(q, s, instr); err != nil {
		glog.V(2).Infof("btm: setInstr(%d,%d) rejected: %v", q, s, err)
		return err
	}
	return nil
}

// GetInstr returns the instruction at (q, s).
func (m *Machine) GetInstr(q, s int) (Instruction, error) {
	return m.table.getInstr(q, s)
}

// SetTape copies end-start symbols from buf into [start, end).
func (m *Machine) SetTape(start, end int, buf string) {
	m.tape.setTape(start, end, buf)
}

// GetCell returns the symbol at logical index i, '0' outside the written
// range.
func (m *Machine) GetCell(i int) byte { return m.tape.getCell(i) }

// GetTape returns a fresh string covering [start, end).
func (m *Machine) GetTape(start, end int) string { return m.tape.getTape(start, end) }

// GetRange tightens and returns the written range [start, end).
func (m *Machine) GetRange() (int, int) { return m.tape.rangeOf() }

// Reset zeroes the tape, rewinds the head to 0 and the state to 0. The
// table is left untouched.
func (m *Machine) Reset() {
	m.tape.reset()
	m.head = 0
	m.state = 0
}

// TableLoad replaces the table from its text form (§4.1, §4.3). It does
// not touch the tape, head, or state.
func (m *Machine) TableLoad(s string) error {
	nt := newTable()
	if err := nt.load(s); err != nil {
		return err
	}
	m.table = nt
	return nil
}

// TableDump renders the table back to its text form.
func (m *Machine) TableDump() string { return m.table.dump() }

// MirrorCollapseFirstMove rewrites the first row's 0-symbol entry to move
// right if it currently moves left, collapsing the two mirror-image
// machines that differ only in that one bit into a single representative.
func (m *Machine) MirrorCollapseFirstMove() {
	instr, err := m.table.getInstr(0, 0)
	if err != nil || instr.IsFin() || instr.Move() == Right {
		return
	}
	m.table.data[0] = Pack(instr.Q(), instr.S(), Right)
}

var configRe = regexp.MustCompile(`^\s*([01]*)\s*\(([0-9]+)\)\s*([01]*)\s*$`)

// LoadConfig parses a tape configuration "<left><(state)><right>" (§4.4) and
// applies it: the tape is reset first, the left run is placed ending at
// cell 0 (the head cell), the right run starts at cell 1, and the state
// register is set from the parenthesized number. Trailing non-whitespace
// characters are a fatal error, matching the grammar's strictness.
func (m *Machine) LoadConfig(s string) error {
	match := configRe.FindStringSubmatch(s)
	if match == nil {
		return btmerr.Invalidf("malformed configuration %q", s)
	}
	left, stateTok, right := match[1], match[2], match[3]
	state, err := parseUint(stateTok)
	if err != nil {
		return err
	}
	m.tape.reset()
	m.head = 0
	l := len(left)
	for i := 0; i < l; i++ {
		m.tape.setCell(-l+1+i, left[i])
	}
	for i := 0; i < len(right); i++ {
		m.tape.setCell(1+i, right[i])
	}
	return m.SetState(state)
}

// FormatConfig renders the current configuration in the same grammar
// LoadConfig accepts: "<left><cell>(<state>)<right>", covering the written
// range extended to include the head cell.
func (m *Machine) FormatConfig() string {
	s, e := m.tape.rangeOf()
	if s > m.head {
		s = m.head
	}
	if e < m.head+1 {
		e = m.head + 1
	}
	var b strings.Builder
	for i := s; i < m.head; i++ {
		b.WriteByte(m.tape.getCell(i))
	}
	b.WriteByte(m.tape.getCell(m.head))
	fmt.Fprintf(&b, "(%d)", m.state)
	for i := m.head + 1; i < e; i++ {
		b.WriteByte(m.tape.getCell(i))
	}
	return b.String()
}

// run burst size: don't grow the tape on every single step, only when the
// head is closer to the allocated edge than this many cells.
const minSafeBurst = 4

// Run executes up to nstep transitions, returning the number of steps
// actually executed (0 if already halted). If trace is non-nil, each
// executed instruction is appended to it in order. Stops early, after
// recording it, when a FIN is executed.
func (m *Machine) Run(nstep int, trace *[]Instruction) (int, error) {
	if nstep < 0 {
		return 0, btmerr.Invalidf("nstep must be >= 0, got %d", nstep)
	}
	if m.state < 0 {
		return 0, nil
	}
	steps := 0
	for steps < nstep {
		safe := m.tape.safeBurst(m.head)
		if safe < minSafeBurst {
			m.tape.grow()
			safe = m.tape.safeBurst(m.head)
		}
		burst := nstep - steps
		if burst > safe {
			burst = safe
		}
		if burst < 1 {
			burst = 1
		}
		for i := 0; i < burst; i++ {
			col := 0
			if m.tape.getCell(m.head) == '1' {
				col = 1
			}
			instr, err := m.table.getInstr(m.state, col)
			if err != nil {
				return steps, err
			}
			steps++
			if trace != nil {
				*trace = append(*trace, instr)
			}
			if instr.IsFin() {
				m.state = -1
				return steps, nil
			}
			m.state = instr.Q()
			sym := byte('0')
			if instr.S() == 1 {
				sym = '1'
			}
			m.tape.setCell(m.head, sym)
			if instr.Move() == Right {
				m.head++
			} else {
				m.head--
			}
			if steps >= nstep {
				break
			}
		}
	}
	return steps, nil
}
