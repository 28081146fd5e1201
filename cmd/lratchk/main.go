// Command lratchk replays a previously-produced LRAT proof against a
// DIMACS problem, independent of elaboration -- a standalone checker
// companion to elab.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/lrat"
)

type config struct {
	dimacsFile string
	lratFile   string
}

func parseConfig(args []string) (*config, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: lratchk DIMACS LRAT")
	}
	return &config{dimacsFile: args[0], lratFile: args[1]}, nil
}

func run(cfg *config) (bool, error) {
	idx, err := cnfindex.Load(cfg.dimacsFile, strings.HasSuffix(cfg.dimacsFile, ".gz"))
	if err != nil {
		return false, diag.Wrap(diag.KindIO, 0, err)
	}

	f, err := os.Open(cfg.lratFile)
	if err != nil {
		return false, diag.Wrap(diag.KindIO, 0, err)
	}
	defer f.Close()

	checker := lrat.NewChecker(idx)
	return checker.Check(lrat.NewReader(f))
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ok, err := run(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "VERIFICATION FAILED")
		os.Exit(1)
	}
	fmt.Println("s VERIFIED")
}
