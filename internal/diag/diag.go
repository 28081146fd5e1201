// Package diag implements the error taxonomy and failure-diagnostic
// dump: a single typed Fault error distinguishing
// trace-structural, trace-semantic, proof-failure and I/O failures, and
// a pretty-printed dump of the full propagation state for proof
// failures.
package diag

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
)

// Kind classifies a Fault by where it was detected.
type Kind int

const (
	// KindStructural is a malformed segment sequence (e.g. a proof tail
	// not preceded by an addition).
	KindStructural Kind = iota
	// KindSemantic is a duplicate/missing clause name, a subsumption
	// violation, or a missing Final of the empty clause.
	KindSemantic
	// KindProof is a propagation/RAT resolution failure: no conflict
	// where one was required, a non-unit hinted clause in strict mode,
	// or a missing RAT resolvent hint in strict mode.
	KindProof
	// KindIO is a file read/write failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindSemantic:
		return "semantic"
	case KindProof:
		return "proof"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Fault is the single error type cmd/elab and cmd/lratchk surface for
// every fatal condition: recovery is never attempted, the tool aborts on
// any integrity violation.
type Fault struct {
	Kind Kind
	Step uint64 // 0 when not applicable
	Msg  string
	Err  error // wrapped cause, if any

	// States is the propagation-state snapshot attached at the point a
	// proof failure was detected, ready for DumpState. Empty for faults
	// raised where no solver state was in scope.
	States []State
}

func (f *Fault) Error() string {
	if f.Step != 0 {
		return fmt.Sprintf("%s error at step %d: %s", f.Kind, f.Step, f.Msg)
	}
	return fmt.Sprintf("%s error: %s", f.Kind, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Err }

// New builds a Fault with no step context.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a Fault of the given kind around an existing error.
func Wrap(kind Kind, step uint64, err error) *Fault {
	return &Fault{Kind: kind, Step: step, Msg: err.Error(), Err: err}
}

// WithStates attaches a state snapshot to the fault and returns it, for
// the one-line wrap-and-annotate call sites in the elaborator.
func (f *Fault) WithStates(states ...State) *Fault {
	f.States = append(f.States, states...)
	return f
}

// State is the snapshot DumpState renders: whatever the caller wants
// to show for a proof failure (VA trail, hint accumulator, offending
// clause). It is intentionally untyped beyond "printable" since each
// caller's propagation state shape differs.
type State struct {
	Label string
	Value any
}

// DumpState pretty-prints the given states to path, using
// github.com/kr/pretty for structural formatting -- the same library
// used elsewhere for this kind of diagnostic dump (see DESIGN.md). A
// propagation getting stuck mid-proof is exactly the case this exists
// to make debuggable instead of silent.
func DumpState(path string, states ...State) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("diag: creating dump file %q: %w", path, err)
	}
	defer f.Close()

	for _, s := range states {
		fmt.Fprintf(f, "=== %s ===\n", s.Label)
		fmt.Fprintln(f, pretty.Sprint(s.Value))
		fmt.Fprintln(f)
	}
	return nil
}
