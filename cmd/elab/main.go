// Command elab runs the two-pass FRAT elaborator: it reads a
// solver's FRAT trace, derives any missing hints, trims clauses that
// the final proof never needs, and writes a minimal LRAT proof.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/elaborate"
	"github.com/rhartert/fratelab/internal/frat"
	"github.com/rhartert/fratelab/internal/lrat"
)

// config is the parsed command line: `elab FRAT [--full] [-s|-ss] [-m[N]]
// [DIMACS [LRAT] [-v] [-c]]`, options strictly in that order.
type config struct {
	fratFile string

	full   bool
	strict bool

	inMemory bool
	memLimit int

	dimacsFile string
	lratFile   string
	verbose    bool
	check      bool
}

// usageError marks CLI misuse, which exits 2 rather than 1.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func parseConfig(args []string) (*config, error) {
	if len(args) == 0 {
		return nil, &usageError{"missing FRAT trace file"}
	}

	cfg := &config{fratFile: args[0]}
	args = args[1:]

	take := func(tok string) bool {
		if len(args) > 0 && args[0] == tok {
			args = args[1:]
			return true
		}
		return false
	}

	if take("--full") {
		cfg.full = true
	}
	if take("-ss") {
		cfg.strict = true
	} else if take("-s") {
		cfg.strict = false
	}
	if len(args) > 0 && strings.HasPrefix(args[0], "-m") {
		cfg.inMemory = true
		if n := args[0][2:]; n != "" {
			v, err := strconv.Atoi(n)
			if err != nil {
				return nil, &usageError{fmt.Sprintf("malformed -m flag %q", args[0])}
			}
			cfg.memLimit = v
		}
		args = args[1:]
	}

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.dimacsFile = args[0]
		args = args[1:]
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			cfg.lratFile = args[0]
			args = args[1:]
		}
	}

	if take("-v") {
		cfg.verbose = true
	}
	if take("-c") {
		cfg.check = true
	}

	if len(args) > 0 {
		return nil, &usageError{fmt.Sprintf("unrecognized option %q", args[0])}
	}
	return cfg, nil
}

// isBinaryTrace sniffs the trace encoding from its last byte: a textual
// FRAT trace ends with a newline, while the binary encoding ends with
// the 0 byte terminating its final segment.
func isBinaryTrace(f *os.File) (bool, error) {
	if _, err := f.Seek(-1, io.SeekEnd); err != nil {
		// Empty (or unseekable) input; treat as ASCII and let the
		// decoder report whatever is actually wrong.
		return false, nil
	}
	var b [1]byte
	if _, err := f.Read(b[:]); err != nil {
		return false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return b[0] != '\n', nil
}

func openTrace(cfg *config) (elaborate.SegmentSource, func() error, error) {
	f, err := os.Open(cfg.fratFile)
	if err != nil {
		return nil, nil, diag.Wrap(diag.KindIO, 0, err)
	}
	binary, err := isBinaryTrace(f)
	if err != nil {
		f.Close()
		return nil, nil, diag.Wrap(diag.KindIO, 0, err)
	}
	var rr *frat.ReverseReader
	if binary {
		rr, err = frat.NewReverseReader(f)
	} else {
		rr, err = frat.NewReverseReaderASCII(f)
	}
	if err != nil {
		f.Close()
		return nil, nil, diag.Wrap(diag.KindStructural, 0, err)
	}
	return rr, f.Close, nil
}

func run(cfg *config, log *logrus.Logger) error {
	trace, closeTrace, err := openTrace(cfg)
	if err != nil {
		return err
	}
	defer closeTrace()

	var idx *cnfindex.Index
	if cfg.dimacsFile != "" {
		log.WithField("dimacs", cfg.dimacsFile).Info("loading original problem")
		idx, err = cnfindex.Load(cfg.dimacsFile, strings.HasSuffix(cfg.dimacsFile, ".gz"))
		if err != nil {
			return diag.Wrap(diag.KindIO, 0, err)
		}
	}

	out := os.Stdout
	if cfg.lratFile != "" {
		f, err := os.Create(cfg.lratFile)
		if err != nil {
			return diag.Wrap(diag.KindIO, 0, err)
		}
		defer f.Close()
		out = f
	}
	writer := lrat.NewWriter(out)

	opts := elaborate.Options{
		Backward: elaborate.BackwardOptions{Full: cfg.full, Strict: cfg.strict},
		InMemory: cfg.inMemory,
	}

	log.WithFields(logrus.Fields{
		"full":     cfg.full,
		"strict":   cfg.strict,
		"inMemory": cfg.inMemory,
	}).Info("elaborating trace")

	verified, err := elaborate.Run(trace, idx, writer, opts)
	if err != nil {
		return err
	}
	if !verified {
		return diag.New(diag.KindSemantic, "trace did not establish unsatisfiability")
	}
	log.Info("elaboration succeeded")

	if cfg.check && idx != nil && cfg.lratFile != "" {
		log.Info("self-checking the elaborated proof")
		f, err := os.Open(cfg.lratFile)
		if err != nil {
			return diag.Wrap(diag.KindIO, 0, err)
		}
		defer f.Close()
		checker := lrat.NewChecker(idx)
		ok, err := checker.Check(lrat.NewReader(f))
		if err != nil {
			if fault, isFault := err.(*diag.Fault); isFault {
				return fault
			}
			return diag.Wrap(diag.KindProof, 0, err)
		}
		if !ok {
			return diag.New(diag.KindProof, "self-check: elaborated proof does not verify")
		}
		log.Info("self-check passed")
	}

	return nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if _, ok := err.(*usageError); ok {
			fmt.Fprintf(os.Stderr, "usage: elab FRAT [--full] [-s|-ss] [-m[N]] [DIMACS [LRAT] [-v] [-c]]\n%s\n", err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if err := run(cfg, log); err != nil {
		if f, ok := err.(*diag.Fault); ok && f.Kind == diag.KindProof {
			dumpPath := ".frat-elab-panic.log"
			states := append([]diag.State{{Label: "error", Value: f.Error()}}, f.States...)
			_ = diag.DumpState(dumpPath, states...)
			log.WithField("dump", dumpPath).Error("proof failure; dumped propagation state")
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
