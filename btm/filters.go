package btm

// IsSeparable reports whether m is separable: some state's subgraph is
// disjoint from the FIN-reaching component, or some state's two
// transitions both self-loop to itself. Separable machines are meant to
// be rejected by the enumeration driver's -s filter.
func IsSeparable(m *Machine, exclNoFin bool) bool {
	n := m.Size()
	if n == 0 {
		return false
	}
	alive := make([]bool, n)
	if exclNoFin {
		alive[0] = true
	} else {
		for q := 0; q < n; q++ {
			for s := 0; s < 2; s++ {
				instr, _ := m.GetInstr(q, s)
				if instr.IsFin() {
					alive[q] = true
					break
				}
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for q := 0; q < n; q++ {
			if alive[q] {
				continue
			}
			for s := 0; s < 2; s++ {
				instr, _ := m.GetInstr(q, s)
				if !instr.IsFin() && alive[instr.Q()] {
					alive[q] = true
					changed = true
					break
				}
			}
		}
	}
	for q := 0; q < n; q++ {
		if !alive[q] {
			return true
		}
		i0, _ := m.GetInstr(q, 0)
		i1, _ := m.GetInstr(q, 1)
		if !i0.IsFin() && !i1.IsFin() && i0.Q() == q && i1.Q() == q {
			return true
		}
	}
	return false
}

// periodIn reports whether window[:] admits a period p (1 <= p <= maxPeriod)
// repeating end-to-end (a trailing partial copy allowed), returning the
// smallest such p, or (0, false) if none is found. Callers choose
// maxPeriod so that any period found repeats at least the required number
// of times. A candidate p > 1 whose first p entries are all one
// instruction is skipped cheaply: p = 1 already covered it.
func periodIn(window []Instruction, maxPeriod int) (int, bool) {
	w := len(window)
	for p := 1; p <= maxPeriod && p <= w; p++ {
		single := true
		for i := 1; i < p && i < w; i++ {
			if window[i] != window[0] {
				single = false
				break
			}
		}
		if p > 1 && single {
			continue
		}
		ok := true
		for j := p; j < w; j++ {
			if window[j] != window[j%p] {
				ok = false
				break
			}
		}
		if ok {
			return p, true
		}
	}
	return 0, false
}

// RunOptions bundles the enumeration driver's run-based filter parameters.
type RunOptions struct {
	MinRun, MaxRun   int // -t minrun[,maxrun]; MaxRun <= 0 means unset
	MinRep, RepIndex int // -z minrep,index; RepIndex <= 0 means disabled
	DupLen           int // -d duplen; <= 0 means disabled
}

// RunResult reports the outcome of a filtered run.
type RunResult struct {
	Steps    int
	Halted   bool
	Rejected bool
}

// FilterRun runs m under the run-based filters (§4.6): repetition
// detection in geometric windows, optional trace deduplication, and the
// minrun/maxrun bounds. It returns the total steps executed and whether
// the machine was rejected by any of the filters.
func FilterRun(m *Machine, opt RunOptions) RunResult {
	var trace []Instruction
	total := 0
	budget := opt.MaxRun

	if opt.RepIndex > 0 && opt.MinRep > 0 {
		i := 1
		for (1 << uint(i)) < opt.MinRep {
			i++
		}
		w := 1 << uint(i-1)
		n := w
		for doubling := 0; doubling < opt.RepIndex; doubling++ {
			burst := 3 * n
			if budget > 0 && total+burst > budget {
				burst = budget - total
			}
			if burst <= 0 {
				break
			}
			steps, err := m.Run(burst, &trace)
			total += steps
			if err != nil {
				return RunResult{Steps: total, Rejected: true}
			}
			halted := len(trace) > 0 && trace[len(trace)-1].IsFin()
			if halted {
				return finalizeRun(total, true, opt)
			}
			if len(trace) >= 3*n {
				window := trace[n : 3*n]
				maxP := (2 * n) / opt.MinRep
				if maxP < 1 {
					maxP = 1
				}
				if _, found := periodIn(window, maxP); found {
					return RunResult{Steps: total, Rejected: true}
				}
			}
			n *= 2
			if budget > 0 && total >= budget {
				break
			}
		}
	}

	if opt.DupLen > 0 {
		burst := opt.DupLen
		if budget > 0 && total+burst > budget {
			burst = budget - total
		}
		if burst > 0 {
			steps, err := m.Run(burst, &trace)
			total += steps
			if err != nil {
				return RunResult{Steps: total, Rejected: true}
			}
			halted := len(trace) > 0 && trace[len(trace)-1].IsFin()
			if halted {
				return finalizeRun(total, true, opt)
			}
		}
		trace = dedupTrace(trace, opt.DupLen)
		if opt.MinRep > 0 {
			tail := trace[len(trace)-2*(len(trace)/3):]
			maxP := len(tail) / opt.MinRep
			if maxP < 1 {
				maxP = 1
			}
			if len(tail) > 0 {
				if _, found := periodIn(tail, maxP); found {
					return RunResult{Steps: total, Rejected: true}
				}
			}
		}
	}

	target := opt.MinRun
	if opt.MaxRun > 0 {
		target = opt.MaxRun
	}
	if target > total {
		steps, err := m.Run(target-total, nil)
		total += steps
		if err != nil {
			return RunResult{Steps: total, Rejected: true}
		}
		if m.State() < 0 {
			return finalizeRun(total, true, opt)
		}
	}

	return finalizeRun(total, false, opt)
}

// dedupTrace scans the trace for runs of an identical short period (<=
// duplen) and marks every repeated copy after the first before compacting
// the marked entries out, so only the first copy of each periodic run and
// any non-periodic noise remain.
func dedupTrace(trace []Instruction, duplen int) []Instruction {
	marked := make([]bool, len(trace))
	for start := 0; start < len(trace); start++ {
		if marked[start] {
			continue
		}
		best := 0
		for p := 1; p <= duplen && start+p <= len(trace); p++ {
			copies := 1
			pos := start + p
			for pos+p <= len(trace) {
				match := true
				for k := 0; k < p; k++ {
					if trace[pos+k] != trace[start+k] {
						match = false
						break
					}
				}
				if !match {
					break
				}
				copies++
				pos += p
			}
			if copies >= 2 {
				best = p
				for i := start + p; i < pos; i++ {
					marked[i] = true
				}
				break
			}
		}
		_ = best
	}
	out := make([]Instruction, 0, len(trace))
	for i, instr := range trace {
		if !marked[i] {
			out = append(out, instr)
		}
	}
	return out
}

func finalizeRun(total int, halted bool, opt RunOptions) RunResult {
	if total < opt.MinRun {
		return RunResult{Steps: total, Halted: halted, Rejected: true}
	}
	if opt.MaxRun > 0 {
		if total > opt.MaxRun {
			return RunResult{Steps: total, Halted: halted, Rejected: true}
		}
		if total == opt.MaxRun && !halted {
			return RunResult{Steps: total, Halted: halted, Rejected: true}
		}
	}
	return RunResult{Steps: total, Halted: halted, Rejected: false}
}
