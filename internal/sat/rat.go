package sat

import "sort"

// This file implements the RAT/PR resolver, the
// most delicate component of the elaborator: given a lemma and either a
// plain RUP hint or a witness plus per-resolvent hints, it produces a
// flat LRAT-ready hint sequence (positive antecedent names, interleaved
// with negative "-name" resolvent separators and their own antecedent
// chains).
//
// Extended with the witness/PR generalization and the bucket-index
// fresh-pivot shortcut this package adds beyond a plain RUP check.

// Hint is the flat, ordered output of RunStep: a sequence of steps in
// LRAT evaluation order. Positive names are RUP antecedents; a negative
// name (stored as NegName) opens a RAT/PR resolvent block followed by
// that resolvent's own antecedent chain.
type Hint struct {
	Steps []HintStep
}

// HintStep is either a plain antecedent (Sep == false) or a resolvent
// separator "-Name" (Sep == true) beginning that resolvent's chain.
type HintStep struct {
	Name Name
	Sep  bool
}

func (h *Hint) pushName(n Name) { h.Steps = append(h.Steps, HintStep{Name: n}) }
func (h *Hint) pushSep(n Name)  { h.Steps = append(h.Steps, HintStep{Name: n, Sep: true}) }

// ResolventHint is one user-supplied per-resolvent proof: the negated
// clause name (as it appeared in the FRAT proof, i.e. "-name") and its
// antecedent chain.
type ResolventHint struct {
	Name  Name
	Chain []Name
}

// RunStep drives RUP/RAT/PR verification end to end for a single lemma.
//
// ls is the lemma being justified. witness is the (possibly empty, for
// a fresh-pivot shortcut) list of literals the lemma's witness asserts
// true; by convention witness[0] is the pivot when len(witness) == 1.
// init is the initial/plain hint chain (used when the FRAT proof
// carried a flat RUP chain with no resolvent separators). rats is the
// user-supplied per-resolvent hints in trace order.
//
// The lemma-level hypotheses (¬ls) are assumed exactly once, at entry,
// and stay live on the assignment stack for the whole call: every
// per-resolvent proof extends that same stack rather than reasserting
// ls, so each resolvent's hint is checked against the same hypothesis
// base instead of rebuilding it per resolvent.
func (c *Context) RunStep(ls []Literal, witness []Literal, init []Name, rats []ResolventHint) (*Hint, error) {
	hint := &Hint{}

	c.VA.ClearHyps()
	c.ensureRootUnits()
	if l, bad := c.VA.Unsat(); bad {
		// The root state is already contradictory; every lemma follows
		// from the root conflict's reason chain.
		return &Hint{Steps: toHintSteps(c.finalizeHint(l))}, nil
	}
	lemmaDepth := len(c.VA.truStack)
	for _, l := range ls {
		neg := l.Negate()
		if !c.VA.Assign(neg, noHandle) {
			// ls is contradictory under the root units alone.
			hint.Steps = toHintSteps(c.finalizeHint(neg))
			c.VA.ClearTo(lemmaDepth)
			return hint, nil
		}
	}
	hypDepth := len(c.VA.truStack)

	// 1. RUP attempt: no per-resolvent hints supplied at all.
	if len(rats) == 0 {
		steps, err := c.buildStepFrom(init)
		if err == nil {
			for _, n := range steps {
				hint.pushName(n)
			}
			c.VA.ClearTo(lemmaDepth)
			return hint, nil
		}
		if c.AllHintsRequired {
			c.VA.ClearTo(lemmaDepth)
			return nil, err
		}
		// Non-strict: fall through to full RAT/PR handling below, but
		// first rewind any partial BCP progress back to the lemma-level
		// hypotheses (which remain live).
		c.VA.ClearTo(hypDepth)
	}

	pivot := Literal(0)
	if len(ls) > 0 {
		pivot = ls[0]
	}

	// 2. Fresh-variable shortcut: a pivot no live clause resolves
	// against has no RAT resolvents at all, so the lemma holds with the
	// one-literal witness and whatever chain the RUP attempt left (none,
	// since init is empty here).
	if pivot != 0 && len(init) == 0 && len(rats) == 0 && c.pivotIsFresh(pivot) {
		c.VA.ClearTo(lemmaDepth)
		return hint, nil
	}

	// The initial chain, when one was supplied alongside resolvent
	// hints, is propagated once on top of the hypotheses and its
	// derivations stay live for every resolvent proof below. If it
	// already closes the proof on its own, no resolvents are needed.
	if len(init) > 0 && len(rats) > 0 {
		conflict, ok, err := c.propagateChain(init)
		if err != nil {
			c.VA.ClearTo(lemmaDepth)
			return nil, err
		}
		if ok {
			hint.Steps = toHintSteps(c.finalizeHint(conflict))
			c.VA.ClearTo(lemmaDepth)
			return hint, nil
		}
		hypDepth = len(c.VA.truStack)
	}

	// 3. Witness construction.
	w, err := c.buildWitness(witness, pivot)
	if err != nil {
		c.VA.ClearTo(lemmaDepth)
		return nil, err
	}

	// 4. Resolvent enumeration.
	ratSet := c.enumerateRATSet(w)

	// 5. Per-resolvent proofs, in the user's order.
	seen := make(map[handle]struct{}, len(ratSet))
	for _, rh := range rats {
		h, ok := c.handleOf(rh.Name)
		if !ok {
			c.VA.ClearTo(lemmaDepth)
			return nil, fatalf(c.Step, "RAT resolvent %d does not exist", rh.Name)
		}
		if _, inSet := ratSet[h]; !inSet {
			continue
		}
		if _, already := seen[h]; already {
			continue
		}
		if err := c.prResolveOne(w, h, rh.Chain, hypDepth, hint); err != nil {
			c.VA.ClearTo(lemmaDepth)
			return nil, err
		}
		seen[h] = struct{}{}
	}

	// 6. Missing resolvents, in deterministic (name) order so repeated
	// runs emit identical proofs.
	missing := make([]handle, 0, len(ratSet))
	for h := range ratSet {
		if _, ok := seen[h]; !ok {
			missing = append(missing, h)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return c.NameOf(missing[i]) < c.NameOf(missing[j]) })
	for _, h := range missing {
		if c.AllHintsRequired {
			c.VA.ClearTo(lemmaDepth)
			return nil, fatalf(c.Step, "missing RAT resolvent %d", c.NameOf(h))
		}
		if err := c.prResolveOne(w, h, nil, hypDepth, hint); err != nil {
			c.VA.ClearTo(lemmaDepth)
			return nil, err
		}
		seen[h] = struct{}{}
	}

	c.VA.ClearTo(lemmaDepth)
	return hint, nil
}

func toHintSteps(names []Name) []HintStep {
	steps := make([]HintStep, len(names))
	for i, n := range names {
		steps[i] = HintStep{Name: n}
	}
	return steps
}

// pivotIsFresh reports whether no live clause contains -pivot, using
// the bucket index (when present) to restrict the scan to buckets whose
// max-variable index is >= |pivot|. Without a
// bucket index it scans the whole slab.
func (c *Context) pivotIsFresh(pivot Literal) bool {
	if pivot == 0 {
		return true
	}
	neg := pivot.Negate()
	if c.bucket != nil {
		for _, bucket := range c.bucket.bucketsFrom(pivot.Var()) {
			for h := range bucket {
				if containsLiteral(c.slots[h].Literals, neg) {
					return false
				}
			}
		}
		return true
	}
	for _, cl := range c.slots {
		if cl == nil {
			continue
		}
		if containsLiteral(cl.Literals, neg) {
			return false
		}
	}
	return true
}

func containsLiteral(lits []Literal, l Literal) bool {
	for _, x := range lits {
		if x == l {
			return true
		}
	}
	return false
}

// buildWitness takes a user-supplied witness (filtering out literals
// already true, and failing if a literal's negation is a reason under a
// live hypothesis, since that witness would be incoherent with the
// current hypothesis assumptions) or defaults to [pivot].
func (c *Context) buildWitness(witness []Literal, pivot Literal) ([]Literal, error) {
	if len(witness) == 0 {
		if pivot == 0 {
			return nil, fatalf(c.Step, "RAT lemma has no pivot and no witness")
		}
		return []Literal{pivot}, nil
	}
	out := make([]Literal, 0, len(witness))
	for _, l := range witness {
		if c.VA.IsTrue(l) {
			continue
		}
		if _, hasReason := c.VA.Reason(l.Negate()); hasReason {
			return nil, fatalf(c.Step, "witness literal %d contradicts a live hypothesis reason", l)
		}
		out = append(out, l)
	}
	return out, nil
}

// enumerateRATSet returns the handles of every live clause "touched" by
// the witness: some literal is falsified by it and none is satisfied,
// so reducing the clause by the witness leaves a non-trivial resolvent
// that must itself be proved redundant.
func (c *Context) enumerateRATSet(w []Literal) map[handle]struct{} {
	set := make(map[handle]struct{})

	candidates := func(yield func(handle)) {
		if len(w) == 1 && c.bucket != nil {
			neg := w[0].Negate()
			for _, bucket := range c.bucket.bucketsFrom(w[0].Var()) {
				for h := range bucket {
					if containsLiteral(c.slots[h].Literals, neg) {
						yield(h)
					}
				}
			}
			return
		}
		for h, cl := range c.slots {
			if cl != nil {
				yield(handle(h))
			}
		}
	}

	wTrue := make(map[Literal]struct{}, len(w))
	for _, l := range w {
		wTrue[l] = struct{}{}
	}

	candidates(func(h handle) {
		cl := c.slots[h]
		touched, satisfied := false, false
		for _, x := range cl.Literals {
			if _, ok := wTrue[x]; ok {
				satisfied = true
				break
			}
			if _, ok := wTrue[x.Negate()]; ok {
				touched = true
			}
		}
		if touched && !satisfied {
			set[h] = struct{}{}
		}
	})

	return set
}

// prResolveOne proves that a single RAT/PR resolvent clause cl is
// redundant: it assumes the witness-reduced negation of cl's literals
// on top of the live lemma hypotheses (and the initial chain's
// derivations, when one was propagated), runs the shared
// hint-then-BCP core with the given per-resolvent chain (if any), and
// appends a "-name" separator plus the resulting chain to hint. It
// restores the stack to hypDepth (the trail length at which the
// lemma's hypotheses end) before returning.
func (c *Context) prResolveOne(w []Literal, h handle, chain []Name, hypDepth int, hint *Hint) error {
	name := c.NameOf(h)

	hint.pushSep(name)

	cl := c.GetHandle(h)
	wTrue := make(map[Literal]struct{}, len(w))
	for _, l := range w {
		wTrue[l] = struct{}{}
	}

	var conflict Literal
	hasConflict := false
	for _, x := range cl.Literals {
		if _, already := wTrue[x]; already {
			continue
		}
		// Literals the witness falsifies drop out of the reduced clause.
		if _, falsified := wTrue[x.Negate()]; falsified {
			continue
		}
		if !c.VA.Assign(x.Negate(), noHandle) {
			conflict, hasConflict = x.Negate(), true
			break
		}
	}

	var steps []Name
	if hasConflict {
		steps = c.finalizeHint(conflict)
	} else {
		// Extend the already-live lemma hypotheses rather than
		// re-clearing them: buildStepFrom resumes BCP from the current
		// trail position instead of reasserting ¬ls.
		var err error
		steps, err = c.buildStepFrom(chain)
		if err != nil {
			c.VA.ClearTo(hypDepth)
			return err
		}
	}
	for _, n := range steps {
		hint.pushName(n)
	}

	c.VA.ClearTo(hypDepth)
	return nil
}
