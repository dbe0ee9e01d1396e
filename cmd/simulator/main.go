// Command simulator loads one or more binary Turing machine table
// specifications and runs each for a bounded number of steps, printing
// either a one-line summary or a full step-by-step trace.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gobtm/btm/btm"
)

var (
	silent    = flag.Bool("s", false, "summary-only: print only the one-line result")
	appendCfg = flag.Bool("c", false, "on non-terminated, append the last configuration to the summary")
	nstep     = flag.Int("n", 50, "max steps to run (<= 0 means unlimited)")
	start     = flag.Int("b", 0, "display offset for step indexing")
)

const progName = "simulator"

func main() {
	flag.Usage = usage
	flag.Parse()

	effective := *nstep
	if effective <= 0 {
		effective = math.MaxInt32
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	specs := flag.Args()
	exitCode := 0
	if len(specs) == 0 || (len(specs) == 1 && specs[0] == "-") {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !runOne(out, line, effective) {
				exitCode = 1
			}
		}
	} else {
		for _, spec := range specs {
			if !runOne(out, spec, effective) {
				exitCode = 1
			}
		}
	}
	out.Flush()
	os.Exit(exitCode)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options] [btm-spec]...\n", progName)
	flag.PrintDefaults()
}

// runOne parses and runs a single "<table>[,<config>]" spec line, writing
// its output to out. Returns false on a parse or runtime error (logged to
// stderr); the caller continues with the next line regardless.
func runOne(out *bufio.Writer, line string, effective int) bool {
	tableStr, configStr, hasConfig := strings.Cut(line, ",")

	m := btm.NewMachine()
	if err := m.TableLoad(tableStr); err != nil {
		diag(line, err)
		return false
	}
	if hasConfig {
		if err := m.LoadConfig(configStr); err != nil {
			diag(line, err)
			return false
		}
	}

	if !*silent {
		fmt.Fprintf(out, "%s:\n", tableStr)
	}

	total := 0
	for !*silent && m.State() >= 0 && total < effective {
		fmt.Fprintf(out, "%d: %s\n", *start+total, m.FormatConfig())
		steps, err := m.Run(1, nil)
		if err != nil {
			diag(line, err)
			return false
		}
		total += steps
		if steps == 0 {
			break
		}
	}
	if *silent {
		steps, err := m.Run(effective, nil)
		if err != nil {
			diag(line, err)
			return false
		}
		total = steps
	}

	halted := m.State() < 0
	if halted {
		fmt.Fprintf(out, "%s finished in %d steps", tableStr, total)
	} else {
		fmt.Fprintf(out, "%s continues after %d steps", tableStr, total)
		if *appendCfg {
			fmt.Fprintf(out, ": %s,%s", tableStr, m.FormatConfig())
		}
	}
	fmt.Fprintln(out)
	return true
}

func diag(spec string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s: %v\n", progName, spec, err)
}
