package elaborate

import (
	"fmt"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/lrat"
)

// Options bundles the backward pass's own options with the forward
// pass's choice of intermediate medium (the "-m[N]" flag).
type Options struct {
	Backward BackwardOptions
	InMemory bool
}

// Run wires the two passes end to end: Backward
// reads trace tail-to-head and writes the elaborated stream to a
// Medium; Forward reverse-parses that stream to recover
// forward-chronological order, renumbers surviving clauses, and writes
// the result as LRAT. It reports whether the trace establishes
// unsatisfiability (an empty clause was derived and verified).
func Run(trace SegmentSource, idx *cnfindex.Index, out *lrat.Writer, opts Options) (verified bool, err error) {
	var medium *Medium
	if opts.InMemory {
		medium = NewMemoryMedium()
	} else {
		medium, err = NewFileMedium()
		if err != nil {
			return false, err
		}
	}

	if err := Backward(trace, medium, opts.Backward); err != nil {
		_ = medium.Close(false)
		return false, err
	}

	rr, err := medium.Reversed()
	if err != nil {
		_ = medium.Close(false)
		return false, err
	}

	verified, err = Forward(rr, idx, out)
	if err != nil {
		_ = medium.Close(false)
		return false, err
	}
	if err := out.Flush(); err != nil {
		_ = medium.Close(false)
		return false, fmt.Errorf("elaborate: flushing LRAT output: %w", err)
	}

	if err := medium.Close(true); err != nil {
		return verified, err
	}
	return verified, nil
}
