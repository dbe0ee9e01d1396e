package btm

import "testing"

func TestIsSeparableDisjointState(t *testing.T) {
	m := NewMachine()
	// State 1's two transitions both point back to itself: never reaches FIN.
	if err := m.TableLoad("O f I1 I1"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	if !IsSeparable(m, false) {
		t.Fatalf("expected separable: state 1 cannot reach FIN")
	}
}

func TestIsSeparableAllAlive(t *testing.T) {
	m := NewMachine()
	if err := m.TableLoad("O f f O"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	if IsSeparable(m, false) {
		t.Fatalf("expected not separable: both states reach FIN directly")
	}
}

func TestIsSeparableSelfLoop(t *testing.T) {
	m := NewMachine()
	if err := m.TableLoad("O0 I0"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	if !IsSeparable(m, false) {
		t.Fatalf("expected separable: state 0 self-loops on both transitions")
	}
}

func TestPeriodInDetectsRepetition(t *testing.T) {
	window := []Instruction{
		Pack(0, 0, Left), Pack(0, 1, Right),
		Pack(0, 0, Left), Pack(0, 1, Right),
		Pack(0, 0, Left), Pack(0, 1, Right),
	}
	p, ok := periodIn(window, 3)
	if !ok || p != 2 {
		t.Fatalf("periodIn = (%d,%v), want (2,true)", p, ok)
	}
}

func TestPeriodInNoRepetition(t *testing.T) {
	window := []Instruction{
		Pack(0, 0, Left), Pack(1, 0, Right), Pack(2, 1, Left),
	}
	if _, ok := periodIn(window, 1); ok {
		t.Fatalf("expected no period found within the budget")
	}
}

func TestFilterRunRejectsBelowMinrun(t *testing.T) {
	m := NewMachine()
	if err := m.TableLoad("O f f O"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	res := FilterRun(m, RunOptions{MinRun: 10})
	if !res.Rejected {
		t.Fatalf("expected rejection: machine halts in 2 steps, minrun is 10")
	}
}

func TestFilterRunAcceptsWithinBounds(t *testing.T) {
	m := NewMachine()
	if err := m.TableLoad("O f f O"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	res := FilterRun(m, RunOptions{MinRun: 1, MaxRun: 20})
	if res.Rejected {
		t.Fatalf("expected acceptance")
	}
	if res.Steps != 2 || !res.Halted {
		t.Fatalf("res = %+v, want Steps=2 Halted=true", res)
	}
}
