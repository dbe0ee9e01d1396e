// Package integration runs complete table-spec scenarios end to end
// against the btm package, building a machine and checking its final
// state the way a ROM-to-completion test would. Scenarios that exercise
// cmd/simulator's own output formatting (header/summary truncation at the
// config comma) live in cmd/simulator's own test package instead, since
// that logic belongs to the command, not the library.
package integration

import (
	"fmt"
	"testing"

	"github.com/gobtm/btm/btm"
)

// E1: simulator -s -n 20 "O f f O" -> one line ending "finished in 2 steps".
func TestE1SimulatorSilentHalt(t *testing.T) {
	m := btm.NewMachine()
	if err := m.TableLoad("O f f O"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	steps, err := m.Run(20, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.State() >= 0 {
		t.Fatalf("expected halted machine")
	}
	summary := fmt.Sprintf("%s finished in %d steps", "O f f O", steps)
	if summary != "O f f O finished in 2 steps" {
		t.Fatalf("summary = %q", summary)
	}
}

// E2: simulator -n 3 "O I o f" -> header, three step lines, then a summary.
func TestE2SimulatorVerboseThreeSteps(t *testing.T) {
	spec := "O I o f"
	m := btm.NewMachine()
	if err := m.TableLoad(spec); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	var lines []string
	lines = append(lines, spec+":")
	total := 0
	for total < 3 && m.State() >= 0 {
		lines = append(lines, fmt.Sprintf("%d: %s", total, m.FormatConfig()))
		steps, err := m.Run(1, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		total += steps
		if steps == 0 {
			break
		}
	}
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 step lines, got %d lines: %v", len(lines), lines)
	}
	if lines[0] != "O I o f:" {
		t.Fatalf("header = %q", lines[0])
	}
	for i := 1; i < 4; i++ {
		want := fmt.Sprintf("%d: ", i-1)
		if len(lines[i]) < len(want) || lines[i][:len(want)] != want {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
}

// E3: simulator "O o,11(0)11" -> loads a left=11, head=0 state=0, right=11
// configuration and runs it.
func TestE3SimulatorWithConfiguration(t *testing.T) {
	m := btm.NewMachine()
	if err := m.TableLoad("O o"); err != nil {
		t.Fatalf("TableLoad: %v", err)
	}
	if err := m.LoadConfig("11(0)11"); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := m.FormatConfig(); got != "11(0)11" {
		t.Fatalf("FormatConfig before run = %q, want %q", got, "11(0)11")
	}
	if _, err := m.Run(50, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
