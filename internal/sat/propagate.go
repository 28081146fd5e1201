package sat

import "sort"

// This file implements the propagation engine: unhinted
// boolean constraint propagation over the two-class watch index, the
// hinted replay of an explicit chain of clause names, and the BuildStep
// entry point that ties propagation to hint extraction, mirroring the
// two-phase (hint replay, then BCP fallback) control flow a
// watch-list-based solver uses for both plain propagation and hinted
// replay.

// ensureRootUnits folds every clause in the units table into the trail
// and propagates the result to quiescence at the root, if that has not
// already happened since the last trail-rewinding Unassign or AddUnit.
// Pinning root consequences below firstHyp means later hypothesis-level
// propagation never has to rediscover them, and clearing a lemma's
// hypotheses never throws them away.
//
// If the root state is contradictory, the conflicting literal ends up
// on top of the trail (see VA.Assign) where Unsat observes it; callers
// short-circuit their proof obligations from there.
//
// In strict/AllHintsRequired mode nothing is folded: a hinted proof
// must cite every clause it depends on, root units included, so the
// trail carries only the hypotheses and what the hints derive.
func (c *Context) ensureRootUnits() {
	if c.AllHintsRequired || c.VA.unitsProcessed {
		return
	}
	handles := make([]handle, 0, len(c.units))
	for h := range c.units {
		handles = append(handles, h)
	}
	// Deterministic fold order, so two runs over the same trace extract
	// byte-identical hint chains.
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		if _, bad := c.VA.Unsat(); bad {
			break
		}
		c.VA.Assign(c.units[h], h)
	}
	if _, bad := c.VA.Unsat(); !bad {
		c.runBCP()
	}
	c.VA.firstHyp = len(c.VA.truStack)
	c.VA.firstUnprocessed = len(c.VA.truStack)
	c.VA.unitsProcessed = true
}

// runBCP drains both propagation cursors starting from the trail's
// first unprocessed position, scanning the active class's watch lists
// for each newly-true literal, until either a conflict is found or both
// cursors reach the top of the trail. On quiescence the unprocessed
// watermark advances past everything propagated; on conflict it is left
// where it was, since the conflicting suffix of the trail is about to
// be truncated by the caller anyway.
func (c *Context) runBCP() (Literal, bool) {
	cur := newPropCursors(c.VA.firstUnprocessed)
	for {
		marked, l, ok := c.VA.NextPropLit(&cur)
		if !ok {
			c.VA.firstUnprocessed = len(c.VA.truStack)
			return 0, false
		}
		class := classOf(marked)
		negl := l.Negate()

		scratch := c.watch.takeAndClear(class, negl)
		for i := 0; i < len(scratch); i++ {
			h := scratch[i]
			cl := c.slots[h]

			// The literal that just went false (negl) must be sitting at
			// position 1 so that position 0 is the other watched literal.
			if cl.Literals[0] == negl {
				cl.Literals[0], cl.Literals[1] = cl.Literals[1], cl.Literals[0]
			}

			if c.VA.IsTrue(cl.Literals[0]) {
				// Already satisfied; keep watching negl.
				c.watch.add(class, negl, h)
				continue
			}

			moved := false
			for k := 2; k < len(cl.Literals); k++ {
				if !c.VA.IsFalse(cl.Literals[k]) {
					cl.Literals[1], cl.Literals[k] = cl.Literals[k], cl.Literals[1]
					c.watch.add(class, cl.Literals[1], h)
					moved = true
					break
				}
			}
			if moved {
				continue
			}

			if c.VA.Assign(cl.Literals[0], h) {
				c.watch.add(class, negl, h)
				continue
			}

			// Conflict: lits[0] was already false, so asserting it failed.
			// Restore the untouched remainder of the snapshot before
			// returning.
			c.watch.add(class, negl, h)
			c.watch.lists[class][negl] = append(c.watch.lists[class][negl], scratch[i+1:]...)
			return cl.Literals[0], true
		}
	}
}

// propagateChain walks hints strictly in order against the CURRENT
// assignment state (no clearing, no new assumptions): each named clause
// is expected to have at most one non-false literal; one that has more
// is a fatal error in strict mode and is otherwise retried on the next
// pass, until a pass makes no progress. This is the piece of hinted
// propagation that is reusable as-is by a RAT resolvent proof, which
// needs to extend an already-live set of assumptions rather than start
// a fresh one.
func (c *Context) propagateChain(hints []Name) (Literal, bool, error) {
	queue := append([]Name(nil), hints...)
	for len(queue) > 0 {
		var next []Name
		progressed := false

		for _, name := range queue {
			h, ok := c.handleOf(name)
			if !ok {
				return 0, false, fatalf(c.Step, "hinted clause %d does not exist", name)
			}
			cl := c.slots[h]

			satisfied := false
			var unassigned Literal
			numUnassigned := 0
			for _, x := range cl.Literals {
				if c.VA.IsTrue(x) {
					satisfied = true
					break
				}
				if !c.VA.IsFalse(x) {
					numUnassigned++
					unassigned = x
				}
			}

			switch {
			case satisfied:
				progressed = true
			case numUnassigned == 0:
				// All literals false: this clause is the conflict. Push its
				// forced literal anyway so the hint extractor can reach the
				// clause through the literal's reason.
				if len(cl.Literals) == 0 {
					return 0, true, nil
				}
				c.VA.Assign(cl.Literals[0], h)
				return cl.Literals[0], true, nil
			case numUnassigned == 1:
				if !c.VA.Assign(unassigned, h) {
					return unassigned, true, nil
				}
				progressed = true
			default:
				if c.AllHintsRequired {
					return 0, false, fatalf(c.Step, "hinted clause %d is not unit", name)
				}
				next = append(next, name)
			}
		}

		if !progressed {
			// A full pass made no progress: genuinely stuck.
			return 0, false, nil
		}
		queue = next
	}
	// Hint chain exhausted without ever finding a false clause.
	return 0, false, nil
}

// buildStepFrom is the shared core of BuildStep and the RAT resolvent
// proof: with the caller's assumptions already live on the stack, it
// tries the hint chain first, then falls back to full BCP in non-strict
// mode, and extracts the minimal ordered chain from whichever conflict
// literal results.
func (c *Context) buildStepFrom(hints []Name) ([]Name, error) {
	if len(hints) > 0 {
		conflict, ok, err := c.propagateChain(hints)
		if err != nil {
			return nil, err
		}
		if ok {
			return c.finalizeHint(conflict), nil
		}
		if c.AllHintsRequired {
			return nil, fatalf(c.Step, "hinted propagation did not reach a conflict")
		}
	} else if c.AllHintsRequired {
		return nil, fatalf(c.Step, "missing hint chain")
	}

	conflict, ok := c.runBCP()
	if !ok {
		return nil, fatalf(c.Step, "propagation did not derive a conflict")
	}
	return c.finalizeHint(conflict), nil
}

// Propagate is the unhinted form: it clears any live hypotheses,
// ensures root units are folded in, assumes the negation of every
// literal in ls, and runs BCP. It returns the conflicting literal and
// true on success, or ok=false if propagation quiesces without a
// conflict.
func (c *Context) Propagate(ls []Literal) (Literal, bool) {
	c.VA.ClearHyps()
	c.ensureRootUnits()
	if l, bad := c.VA.Unsat(); bad {
		return l, true
	}

	for _, l := range ls {
		neg := l.Negate()
		if !c.VA.Assign(neg, noHandle) {
			return neg, true
		}
	}
	return c.runBCP()
}

// PropagateHint is the hinted form: it clears hypotheses, assumes ¬ls,
// then walks the supplied chain of clause names via propagateChain.
// See propagateChain's doc for the per-clause rules
// (unit/satisfied/deferred/conflict).
func (c *Context) PropagateHint(ls []Literal, hints []Name) (Literal, bool, error) {
	c.VA.ClearHyps()
	c.ensureRootUnits()
	if l, bad := c.VA.Unsat(); bad {
		return l, true, nil
	}

	for _, l := range ls {
		neg := l.Negate()
		if !c.VA.Assign(neg, noHandle) {
			return neg, true, nil
		}
	}
	return c.propagateChain(hints)
}

// BuildStep is the shared entry point the RAT resolver and the backward
// elaborator use to derive a RUP hint chain for a clause asserted as
// the negation of ls. It clears hypotheses and assumes ¬ls itself; for
// a RAT resolvent proof, which must extend an already-live set of
// assumptions instead, use buildStepFrom directly (see rat.go).
func (c *Context) BuildStep(ls []Literal, hints []Name) ([]Name, error) {
	c.VA.ClearHyps()
	c.ensureRootUnits()
	if l, bad := c.VA.Unsat(); bad {
		return c.finalizeHint(l), nil
	}

	for _, l := range ls {
		neg := l.Negate()
		if !c.VA.Assign(neg, noHandle) {
			return c.finalizeHint(neg), nil
		}
	}
	return c.buildStepFrom(hints)
}
