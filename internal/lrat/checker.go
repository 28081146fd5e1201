package lrat

import (
	"fmt"
	"io"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/sat"
)

// Checker replays an LRAT proof against the original CNF:
// it loads the CNF as marked clauses keyed 1..n, then for each addition
// calls sat.Context.RunStep in strict mode and inserts the result; for
// each deletion it removes the named clauses. The empty clause being
// successfully added verifies the proof.
type Checker struct {
	ctx    *sat.Context
	lastID uint64
}

// NewChecker loads idx's clauses into a fresh strict-mode Context.
func NewChecker(idx *cnfindex.Index) *Checker {
	ctx := sat.NewContext(true)
	ctx.Reserve(int32(idx.NumVars))
	for _, cl := range idx.Clauses {
		lits := make([]sat.Literal, len(cl.Lits))
		for i, l := range cl.Lits {
			lits[i] = sat.Literal(l)
		}
		ctx.Step = sat.Name(cl.Pos)
		if _, err := ctx.Insert(sat.Name(cl.Pos), true, lits); err != nil {
			// Original clauses cannot collide on Pos; a failure here is
			// a programming error, not a trace fault.
			panic(fmt.Sprintf("lrat: loading original clause %d: %v", cl.Pos, err))
		}
	}
	return &Checker{ctx: ctx}
}

// Check replays every step from r in order. It returns (true, nil) the
// moment an addition derives the empty clause, (false, nil) if the
// stream ends without ever deriving it, and a non-nil error on any
// structural or proof failure.
func (c *Checker) Check(r *Reader) (verified bool, err error) {
	for {
		step, err := r.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if step.IsDelete {
			for _, n := range step.Deletes {
				if _, err := c.ctx.Remove(sat.Name(n)); err != nil {
					return false, fmt.Errorf("lrat: checker: delete step %d: %w", step.ID, err)
				}
			}
			continue
		}

		if step.ID <= c.lastID {
			return false, fmt.Errorf("lrat: checker: step id %d is not increasing (last %d)", step.ID, c.lastID)
		}
		c.lastID = step.ID
		c.ctx.Step = sat.Name(step.ID)

		lits := make([]sat.Literal, len(step.Lits))
		maxVar := int32(0)
		for i, l := range step.Lits {
			lits[i] = sat.Literal(l)
			if v := lits[i].Var(); v > maxVar {
				maxVar = v
			}
		}
		// Proof steps may introduce variables beyond the original
		// problem's (extension variables of RAT steps).
		c.ctx.Reserve(maxVar)

		// Only RunStep's success matters here; the chain it re-derives is
		// discarded.
		init, rats := splitHints(step.Hints)
		if _, err := c.ctx.RunStep(lits, nil, init, rats); err != nil {
			return false, diag.Wrap(diag.KindProof, step.ID, err).WithStates(
				diag.State{Label: "clause under proof", Value: step.Lits},
				diag.State{Label: "supplied hints", Value: step.Hints},
				diag.State{Label: "propagation state", Value: c.ctx.Snapshot()},
			)
		}

		if _, err := c.ctx.Insert(sat.Name(step.ID), true, lits); err != nil {
			return false, fmt.Errorf("lrat: checker: inserting step %d: %w", step.ID, err)
		}

		if len(lits) == 0 {
			return true, nil
		}
	}
}

// splitHints partitions a flat LRAT hint list into the initial RUP
// chain and the per-resolvent RAT blocks the negative entries delimit.
func splitHints(hints []int64) (init []sat.Name, rats []sat.ResolventHint) {
	var cur *sat.ResolventHint
	for _, h := range hints {
		if h < 0 {
			rats = append(rats, sat.ResolventHint{Name: sat.Name(-h)})
			cur = &rats[len(rats)-1]
			continue
		}
		if cur == nil {
			init = append(init, sat.Name(h))
		} else {
			cur.Chain = append(cur.Chain, sat.Name(h))
		}
	}
	return init, rats
}
