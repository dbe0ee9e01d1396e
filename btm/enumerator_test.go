package btm

import "testing"

// introducedStates returns the running next-free-state index after scanning
// instrs, the same rule the enumerator itself uses for canonical numbering.
func introducedStates(instrs []Instruction) int {
	n := 1
	for _, instr := range instrs {
		if !instr.IsFin() && instr.Q() == n {
			n++
		}
	}
	return n
}

func TestEnumeratorFullTableIntroducesAllStates(t *testing.T) {
	e, err := NewEnumerator(2, 4, "", 0)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	count := 0
	for {
		dump, ok := e.Deref()
		if !ok {
			break
		}
		instrs, err := parsePrefixTokens(dump, 2)
		if err != nil {
			t.Fatalf("parsePrefixTokens(%q): %v", dump, err)
		}
		if len(instrs) != 4 {
			t.Fatalf("candidate %q has %d tokens, want 4", dump, len(instrs))
		}
		if n := introducedStates(instrs); n != 2 {
			t.Errorf("candidate %q introduces %d states, want 2", dump, n)
		}
		count++
		// Each of the 4 positions is FIN or (target 0/1) x 4 (s, m) pairs:
		// at most 9^4 tables.
		if count > 6561 {
			t.Fatalf("enumerator did not terminate within 6561 candidates")
		}
		if !e.Increment() {
			break
		}
	}
	if count == 0 {
		t.Fatalf("expected at least one candidate")
	}
}

func TestEnumeratorNoDuplicates(t *testing.T) {
	e, err := NewEnumerator(2, 4, "", 0)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	seen := map[string]bool{}
	for {
		dump, ok := e.Deref()
		if !ok {
			break
		}
		if seen[dump] {
			t.Fatalf("duplicate candidate %q", dump)
		}
		seen[dump] = true
		if len(seen) > 6561 { // 9^4 tables at most, see above
			t.Fatalf("too many candidates, suspect infinite loop")
		}
		if !e.Increment() {
			break
		}
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one candidate")
	}
}

func TestEnumeratorCyclicFlag(t *testing.T) {
	e, err := NewEnumerator(3, 6, "", Cyclic)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	count := 0
	for {
		dump, ok := e.Deref()
		if !ok {
			break
		}
		instrs, err := parsePrefixTokens(dump, 3)
		if err != nil {
			t.Fatalf("parsePrefixTokens: %v", err)
		}
		for i, instr := range instrs {
			if instr.IsFin() {
				continue
			}
			row := i / 2
			if instr.Q() != successor(row, 3) {
				t.Errorf("candidate %q position %d targets %d, want cyclic %d", dump, i, instr.Q(), successor(row, 3))
			}
		}
		count++
		// Each of the 6 positions is FIN or the forced target with one of
		// 4 (s, m) pairs: at most 5^6 tables.
		if count > 15625 {
			t.Fatalf("enumerator did not terminate")
		}
		if !e.Increment() {
			break
		}
	}
}

func TestEnumeratorExclMultiFin(t *testing.T) {
	e, err := NewEnumerator(2, 4, "", ExclMultiFin)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	count := 0
	for {
		dump, ok := e.Deref()
		if !ok {
			break
		}
		instrs, _ := parsePrefixTokens(dump, 2)
		fins := 0
		for _, instr := range instrs {
			if instr.IsFin() {
				fins++
			}
		}
		if fins > 1 {
			t.Errorf("candidate %q has %d FINs, want <= 1", dump, fins)
		}
		count++
		if count > 6561 { // 9^4 tables at most, as for the unflagged size-2 space
			t.Fatalf("enumerator did not terminate")
		}
		if !e.Increment() {
			break
		}
	}
}

func TestEnumeratorPrefixPinned(t *testing.T) {
	e, err := NewEnumerator(2, 4, "f", 0)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	for i := 0; i < 5; i++ {
		dump, ok := e.Deref()
		if !ok {
			break
		}
		instrs, _ := parsePrefixTokens(dump, 2)
		if !instrs[0].IsFin() {
			t.Fatalf("position 0 should stay pinned to f, got %q", dump)
		}
		if !e.Increment() {
			break
		}
	}
}

func TestEnumeratorTruncatedLengthBypassesCompleteness(t *testing.T) {
	e, err := NewEnumerator(3, 2, "", 0)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	dump, ok := e.Deref()
	if !ok {
		t.Fatalf("expected at least one candidate")
	}
	instrs, err := parsePrefixTokens(dump, 3)
	if err != nil {
		t.Fatalf("parsePrefixTokens: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("len = %d, want 2", len(instrs))
	}
	// All-FIN is a valid length-2 prefix even though it would be rejected
	// as a full table (it doesn't introduce every state).
	if !instrs[0].IsFin() || !instrs[1].IsFin() {
		t.Fatalf("expected the minimum truncated candidate to be all-FIN, got %q", dump)
	}
}

func TestEnumeratorInvalidPrefixRejected(t *testing.T) {
	if _, err := NewEnumerator(3, 6, "O0", Cyclic); err == nil {
		t.Fatalf("expected error: O0 conflicts with the cyclic forced target")
	}
}

func TestEnumeratorRandomMode(t *testing.T) {
	e, err := NewEnumerator(3, 6, "", Random)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	for i := 0; i < 10; i++ {
		dump, ok := e.Deref()
		if !ok {
			t.Fatalf("random enumerator should never report exhaustion")
		}
		if _, err := parsePrefixTokens(dump, 3); err != nil {
			t.Fatalf("parsePrefixTokens(%q): %v", dump, err)
		}
		if !e.Increment() {
			t.Fatalf("random Increment should never return false")
		}
	}
}

func TestEnumeratorMachineOnlyForFullLength(t *testing.T) {
	e, err := NewEnumerator(2, 2, "", 0)
	if err != nil {
		t.Fatalf("NewEnumerator: %v", err)
	}
	if _, ok := e.Machine(); ok {
		t.Fatalf("Machine() should be unavailable in truncated mode")
	}
}
