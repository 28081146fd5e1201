package sat

import "testing"

// A minimal unsatisfiable core: {1∨2}, {-1}, {-2}. The empty clause
// follows by plain unit propagation once both units are in the
// database, with no RAT resolvents needed.
func newRefutationContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext(false)
	ctx.Reserve(2)
	insertClause(t, ctx, 1, true, []Literal{1, 2})
	insertClause(t, ctx, 2, true, []Literal{-1})
	insertClause(t, ctx, 3, true, []Literal{-2})
	return ctx
}

func TestRunStep_rupDerivesEmptyClause(t *testing.T) {
	ctx := newRefutationContext(t)
	ctx.Step = 4

	hint, err := ctx.RunStep(nil, nil, []Name{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	if len(hint.Steps) == 0 {
		t.Fatalf("RunStep returned an empty hint for a derivable refutation")
	}
	for _, s := range hint.Steps {
		if s.Sep {
			t.Errorf("RunStep produced a RAT separator %v for a plain RUP derivation", s)
		}
	}
}

func TestRunStep_rupFailsOnUnderivableClause(t *testing.T) {
	ctx := NewContext(true)
	ctx.Reserve(3)
	insertClause(t, ctx, 1, true, []Literal{1, 2})
	ctx.Step = 2

	// {3} is not implied by {1∨2} alone, and strict mode forbids
	// falling back to full RAT/PR search.
	if _, err := ctx.RunStep([]Literal{3}, nil, nil, nil); err == nil {
		t.Errorf("RunStep succeeded for a clause that does not follow from the database")
	}
}

func TestRunStep_ratResolvesBlockedClause(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(2)
	// {1∨2} blocks on pivot 1 against {-1∨-2}: resolving on 1 leaves
	// {2∨-2}, a tautology, so {1∨2} is RAT-redundant with witness [1].
	insertClause(t, ctx, 1, true, []Literal{-1, -2})
	ctx.Step = 2

	hint, err := ctx.RunStep([]Literal{1, 2}, []Literal{1}, nil, nil)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	if len(hint.Steps) == 0 {
		t.Fatalf("RunStep returned an empty hint for a RAT-justified lemma")
	}
}
