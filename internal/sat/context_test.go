package sat

import "testing"

func insertClause(t *testing.T, ctx *Context, name Name, marked bool, lits []Literal) {
	t.Helper()
	if _, err := ctx.Insert(name, marked, lits); err != nil {
		t.Fatalf("Insert(%d, %v): %v", name, lits, err)
	}
}

func TestContext_InsertRemoveRoundTrip(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(2)
	insertClause(t, ctx, 1, false, []Literal{1, 2})

	cl, err := ctx.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if len(cl.Literals) != 2 {
		t.Fatalf("Get(1).Literals = %v, want 2 literals", cl.Literals)
	}

	removed, err := ctx.Remove(1)
	if err != nil {
		t.Fatalf("Remove(1): %v", err)
	}
	if removed.Name != 1 {
		t.Errorf("Remove(1).Name = %d, want 1", removed.Name)
	}
	ctx.Release(removed)

	if _, err := ctx.Get(1); err == nil {
		t.Errorf("Get(1) succeeded after Remove(1)")
	}
}

func TestContext_InsertDuplicateNameFails(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(1)
	insertClause(t, ctx, 1, false, []Literal{1})
	if _, err := ctx.Insert(1, false, []Literal{-1}); err == nil {
		t.Errorf("Insert with duplicate name succeeded, want error")
	}
}

func TestContext_MarkMovesWatchClass(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(2)
	insertClause(t, ctx, 1, false, []Literal{1, 2})

	if ctx.Marked(1) {
		t.Fatalf("clause 1 marked before Mark()")
	}
	ctx.Mark(1)
	if !ctx.Marked(1) {
		t.Errorf("clause 1 not marked after Mark()")
	}
	for _, l := range []Literal{1, 2} {
		if got := ctx.Watch().watchers(classMarked, l); len(got) != 1 {
			t.Errorf("marked watchers of %d = %v, want one handle", l, got)
		}
		if got := ctx.Watch().watchers(classUnmarked, l); len(got) != 0 {
			t.Errorf("unmarked watchers of %d = %v, want none", l, got)
		}
	}
}

func TestContext_RelocRenamesLiveClauseOnly(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(1)
	insertClause(t, ctx, 2, false, []Literal{1})

	pairs := []RelocPair{{From: 10, To: 2}, {From: 11, To: 99}}
	if err := ctx.Reloc(&pairs); err != nil {
		t.Fatalf("Reloc: %v", err)
	}
	if len(pairs) != 1 || pairs[0].From != 10 {
		t.Errorf("Reloc filtered pairs = %v, want only the (10, 2) pair to survive", pairs)
	}
	if _, err := ctx.Get(10); err != nil {
		t.Errorf("Get(10) after reloc: %v", err)
	}
	if _, err := ctx.Get(2); err == nil {
		t.Errorf("Get(2) still resolves after it was relocated to 10")
	}
}

func TestContext_RelocSwapBatchUsesPreRelocBindings(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(2)
	insertClause(t, ctx, 1, false, []Literal{1, 2})
	insertClause(t, ctx, 2, false, []Literal{-1, -2})

	// A swapping batch must resolve both pairs against the pre-reloc
	// bindings: the clause named 1 becomes 2 and vice versa.
	pairs := []RelocPair{{From: 2, To: 1}, {From: 1, To: 2}}
	if err := ctx.Reloc(&pairs); err != nil {
		t.Fatalf("Reloc: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Reloc kept %d pairs, want 2", len(pairs))
	}

	cl1, err := ctx.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if cl1.Literals[0] != -1 {
		t.Errorf("clause 1 after swap starts with %d, want -1", cl1.Literals[0])
	}
	cl2, err := ctx.Get(2)
	if err != nil {
		t.Fatalf("Get(2): %v", err)
	}
	if cl2.Literals[0] != 1 {
		t.Errorf("clause 2 after swap starts with %d, want 1", cl2.Literals[0])
	}
}

func TestContext_RelocDuplicateFromFails(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(2)
	insertClause(t, ctx, 1, false, []Literal{1, 2})
	insertClause(t, ctx, 2, false, []Literal{-1, -2})

	pairs := []RelocPair{{From: 5, To: 1}, {From: 5, To: 2}}
	if err := ctx.Reloc(&pairs); err == nil {
		t.Errorf("Reloc with a duplicate relocation source succeeded, want error")
	}
}

func TestContext_UnitInsertFoldsIntoTrail(t *testing.T) {
	ctx := NewContext(false)
	ctx.Reserve(1)
	insertClause(t, ctx, 1, true, []Literal{1})
	if !ctx.VA.IsTrue(1) {
		t.Errorf("unit clause {1} was not folded into the assignment trail")
	}
}
