// Command enumerator generates binary Turing machine tables in canonical
// order (or uniformly at random), applies the separability and run-based
// filters, and prints the survivors.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/gobtm/btm/btm"
)

var (
	cyclic       = flag.Bool("c", false, "require every transition to target (row+1) mod N")
	nonErasing   = flag.Bool("e", false, "require every entry reading 1 to write 1")
	exclNoFin    = flag.Bool("f", false, "reject tables with no FIN")
	exclMultiFin = flag.Bool("u", false, "reject tables with more than one FIN")
	mirror       = flag.Bool("m", false, "rewrite a leftward first move to rightward before filtering")
	appendSteps  = flag.Bool("a", false, "append the step count (meaningful only with -t maxrun)")
	separable    = flag.Bool("s", false, "reject separable tables")
	prefixLen    = flag.Int("l", 0, "emit prefixes of this length instead of full tables")
	maxOut       = flag.Int("n", -1, "stop after this many outputs (<0 means unbounded)")
	prefix       = flag.String("p", "", "pin this table prefix")
	maxTry       = flag.Int("r", 0, "switch to RANDOM mode with this try limit (<0 means unbounded)")
	runBounds    = flag.String("t", "", "minrun[,maxrun] runtime bounds")
	repParams    = flag.String("z", "", "minrep,index repetition detection parameters")
	dupLen       = flag.Int("d", 0, "trace-dedup window length")
)

const progName = "enumerator"

func main() {
	flag.Usage = usage
	flag.Parse()

	randomSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			randomSet = true
		}
	})

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	size, err := strconv.Atoi(flag.Arg(0))
	if err != nil || size <= 0 {
		fail(fmt.Sprintf("invalid size %q", flag.Arg(0)))
	}

	var flags btm.Flags
	if *cyclic {
		flags |= btm.Cyclic
	}
	if *nonErasing {
		flags |= btm.NonErasing
	}
	if *exclNoFin {
		flags |= btm.ExclNoFin
	}
	if *exclMultiFin {
		flags |= btm.ExclMultiFin
	}
	if randomSet {
		flags |= btm.Random
	}

	length := 2 * size
	truncated := false
	if *prefixLen > 0 {
		length = *prefixLen
		truncated = true
	}

	var runOpt btm.RunOptions
	if *runBounds != "" {
		min, max, err := parsePair(*runBounds)
		if err != nil {
			fail(err.Error())
		}
		runOpt.MinRun, runOpt.MaxRun = min, max
	}
	if *repParams != "" {
		rep, idx, err := parsePair(*repParams)
		if err != nil {
			fail(err.Error())
		}
		runOpt.MinRep, runOpt.RepIndex = rep, idx
	}
	runOpt.DupLen = *dupLen
	useFilters := !truncated

	var cancelled int32
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		atomic.StoreInt32(&cancelled, 1)
	}()
	cancelFn := func() bool { return atomic.LoadInt32(&cancelled) != 0 }

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	prefixes := []string{*prefix}
	synthetic := *prefix == "" && !randomSet
	if synthetic {
		prefixes = syntheticPrefixes(size, *mirror)
	}

	emitted := 0
	tries := 0
outer:
	for _, p := range prefixes {
		e, err := btm.NewEnumerator(size, length, p, flags)
		if err != nil {
			if synthetic {
				// Some synthetic prefixes (e.g. an explicit-target-0 first
				// instruction under CYCLIC) are incompatible with the active
				// flags and simply don't apply; skip them.
				continue
			}
			fail(err.Error())
		}
		e.SetCancel(cancelFn)
		for {
			if *maxOut >= 0 && emitted >= *maxOut {
				break outer
			}
			if randomSet && *maxTry >= 0 && tries >= *maxTry {
				break
			}
			if cancelFn() {
				break outer
			}
			tries++
			if emitOne(out, e, truncated, useFilters, runOpt) {
				emitted++
			}
			if !e.Increment() {
				break
			}
		}
	}
	out.Flush()
}

// emitOne prints the enumerator's current candidate if it survives the
// filters, returning whether it was emitted.
func emitOne(out *bufio.Writer, e *btm.Enumerator, truncated, useFilters bool, runOpt btm.RunOptions) bool {
	if truncated {
		dump, ok := e.Deref()
		if !ok {
			return false
		}
		fmt.Fprintln(out, dump)
		return true
	}

	m, ok := e.Machine()
	if !ok {
		return false
	}
	if *mirror {
		m.MirrorCollapseFirstMove()
	}
	if *separable && btm.IsSeparable(m, *exclNoFin) {
		return false
	}
	steps := 0
	if useFilters && (runOpt.MinRun > 0 || runOpt.MaxRun > 0 || runOpt.RepIndex > 0 || runOpt.DupLen > 0) {
		res := btm.FilterRun(m, runOpt)
		if res.Rejected {
			return false
		}
		steps = res.Steps
	}
	if *appendSteps {
		fmt.Fprintf(out, "%s %d\n", m.TableDump(), steps)
	} else {
		fmt.Fprintln(out, m.TableDump())
	}
	return true
}

// syntheticPrefixes builds the default length-1 prefix split used when the
// caller pins no prefix and isn't in RANDOM mode: FIN, then the four
// explicit-target-0 first instructions, then the four open (default
// successor) first instructions. The explicit-target-0 variants are
// skipped when size is 1, where they'd duplicate the open variants (the
// default successor of row 0 is already state 0). When mirror is set, the
// left-moving branches ("o0", "i0", "o", "i") are skipped: a left first
// move collapses to a right one post-hoc, so a candidate generated under
// one of these branches is always a duplicate of one already produced
// under its right-moving counterpart.
func syntheticPrefixes(size int, mirror bool) []string {
	prefixes := []string{"f"}
	if size > 1 {
		if !mirror {
			prefixes = append(prefixes, "o0", "i0")
		}
		prefixes = append(prefixes, "O0", "I0")
	}
	if !mirror {
		prefixes = append(prefixes, "o", "i")
	}
	prefixes = append(prefixes, "O", "I")
	return prefixes
}

func parsePair(s string) (int, int, error) {
	parts := strings.SplitN(s, ",", 2)
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", s)
	}
	if len(parts) == 1 {
		return a, 0, nil
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", s)
	}
	return a, b, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options] size\n", progName)
	flag.PrintDefaults()
}

func fail(msg string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, msg)
	os.Exit(1)
}
