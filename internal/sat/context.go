package sat

import "fmt"

// FatalError reports a trace-level integrity violation: a malformed or
// contradictory FRAT/LRAT trace, as opposed to a Go-level programming
// bug (those remain panics). Callers in internal/elaborate and
// internal/lrat wrap these into internal/diag.Fault with the
// appropriate Kind.
type FatalError struct {
	Step Name
	Msg  string
}

func (e *FatalError) Error() string {
	if e.Step == 0 {
		return e.Msg
	}
	return fmt.Sprintf("at step %d: %s", uint64(e.Step), e.Msg)
}

func fatalf(step Name, format string, args ...any) error {
	return &FatalError{Step: step, Msg: fmt.Sprintf(format, args...)}
}

// Context composes the assignment stack (VA), the clause database (a
// slab of handles plus a name->handle table and a units table), the
// two-class watch index, and the optional max-variable bucket index. It
// owns every invariant the elaborator and checker rely on.
type Context struct {
	VA *VA

	// AllHintsRequired selects strict mode: every hinted clause in
	// PropagateHint must already be unit, and every RAT resolvent must
	// have a supplied hint chain. Used by the LRAT checker and by
	// "-ss" elaboration.
	AllHintsRequired bool

	slots []*Clause
	free  []handle

	names map[Name]handle
	units map[handle]Literal

	watch  *watchIndex
	bucket *bucketIndex

	// Step is the trace index of the segment currently being processed,
	// used only to annotate FatalError messages.
	Step Name
}

// NewContext returns an empty Context; strict sets AllHintsRequired.
// The max-variable bucket index is absent until EnableBucketIndex is
// called.
func NewContext(strict bool) *Context {
	return &Context{
		VA:               NewVA(),
		AllHintsRequired: strict,
		names:            make(map[Name]handle),
		units:            make(map[handle]Literal),
		watch:            newWatchIndex(),
	}
}

// EnableBucketIndex builds the max-variable bucket index from the
// clauses currently live in the database. It is idempotent.
func (c *Context) EnableBucketIndex() {
	if c.bucket != nil {
		return
	}
	c.bucket = newBucketIndex()
	for h, cl := range c.slots {
		if cl == nil {
			continue
		}
		c.bucket.add(maxVarOf(cl.Literals), handle(h))
	}
}

// Reserve grows the assignment arrays to cover the given variable.
func (c *Context) Reserve(maxVar int32) {
	c.VA.ReserveTo(maxVar)
}

func (c *Context) handleOf(name Name) (handle, bool) {
	h, ok := c.names[name]
	return h, ok
}

// Marked reports whether the named clause is currently marked.
func (c *Context) Marked(name Name) bool {
	h, ok := c.handleOf(name)
	if !ok {
		panic(fmt.Sprintf("sat: Marked: clause %d does not exist", name))
	}
	return c.slots[h].Marked
}

// Mark promotes the named clause to marked, moving its watches (if any)
// from the unmarked to the marked class.
func (c *Context) Mark(name Name) {
	h, ok := c.handleOf(name)
	if !ok {
		panic(fmt.Sprintf("sat: Mark: clause %d does not exist", name))
	}
	cl := c.slots[h]
	if cl.Marked {
		return
	}
	if len(cl.Literals) >= 2 {
		c.watch.moveClass(classUnmarked, classMarked, cl.Literals[0], cl.Literals[1], h)
	}
	cl.Marked = true
}

// Get returns the live clause with the given name.
func (c *Context) Get(name Name) (*Clause, error) {
	h, ok := c.handleOf(name)
	if !ok {
		return nil, fatalf(c.Step, "clause %d to be accessed does not exist", name)
	}
	return c.slots[h], nil
}

// GetHandle returns the live clause for an already-resolved handle.
func (c *Context) GetHandle(h handle) *Clause {
	return c.slots[h]
}

// HandleFor resolves a name to its handle, for callers (e.g. the RAT
// resolver) that want to cache handles across a loop.
func (c *Context) HandleFor(name Name) (handle, bool) {
	return c.handleOf(name)
}

// NameOf returns the trace-level name of a handle.
func (c *Context) NameOf(h handle) Name {
	return c.slots[h].Name
}

// Insert adds a clause to the database under the given name. Literals
// are sorted so that unassigned/true literals precede false ones (so
// that, if the clause is unit under the current root assignment, its
// sole live literal ends up at position 0); the clause is then
// registered in the watch index (len >= 2) or the units table
// (len <= 1).
//
// If the Context is not running in strict/AllHintsRequired mode, the
// clause is unit under the current assignment, and the root state isn't
// already unsat, the forced literal is immediately installed as a root
// unit with this clause as its reason. That covers clauses of any
// length: a long clause whose other literals are all false at the root
// would otherwise never fire, since the literals that falsified it were
// propagated before the clause existed.
func (c *Context) Insert(name Name, marked bool, lits []Literal) (handle, error) {
	if _, exists := c.handleOf(name); exists {
		return noHandle, fatalf(c.Step, "clause %d to be inserted already exists", name)
	}

	sorted := globalLitPool.get(len(lits))
	sorted = append(sorted, lits...)
	nonFalse, satisfied := sortUnfalseFirst(c.VA, sorted)
	unit := !satisfied && nonFalse <= 1

	cl := &Clause{Name: name, Marked: marked, Literals: sorted}

	h := c.allocSlot(cl)
	c.names[name] = h

	switch {
	case len(cl.Literals) <= 1:
		c.units[h] = cl.UnitLiteral()
	default:
		c.watch.add(classOf(marked), cl.Literals[0], h)
		c.watch.add(classOf(marked), cl.Literals[1], h)
	}

	if c.bucket != nil {
		c.bucket.add(maxVarOf(cl.Literals), h)
	}

	if !c.AllHintsRequired && unit {
		if _, bad := c.VA.Unsat(); !bad {
			c.VA.AddUnit(cl.UnitLiteral(), h)
		}
	}

	return h, nil
}

// sortUnfalseFirst reorders lits in place so that unassigned or true
// literals come before literals currently false under va, and reports
// how many literals are not false plus whether any is outright true.
// This makes a freshly-inserted unit clause present its sole live
// literal first.
func sortUnfalseFirst(va *VA, lits []Literal) (nonFalse int, satisfied bool) {
	i, j := 0, len(lits)-1
	for i <= j {
		if va.IsFalse(lits[i]) {
			lits[i], lits[j] = lits[j], lits[i]
			j--
		} else {
			i++
		}
	}
	for _, l := range lits[:i] {
		if va.IsTrue(l) {
			satisfied = true
			break
		}
	}
	return i, satisfied
}

func (c *Context) allocSlot(cl *Clause) handle {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		c.slots[h] = cl
		return h
	}
	c.slots = append(c.slots, cl)
	return handle(len(c.slots) - 1)
}

// Remove extracts a clause from the database by name, unregistering its
// watches or unit-table entry. If the clause's reason-bearing literal
// (one of its first two literals) is currently on the trail because of
// this clause, that literal (and everything above it) is unassigned
// first.
func (c *Context) Remove(name Name) (*Clause, error) {
	h, ok := c.handleOf(name)
	if !ok {
		return nil, fatalf(c.Step, "clause %d to be removed does not exist", name)
	}
	cl := c.slots[h]

	// Any literal this clause is the live reason for must be unassigned,
	// or the trail would keep a reason pointer into a freed slot. Only
	// the first two positions (the watched ones, or a unit's sole
	// literal, or the empty clause's 0 sentinel) can carry a reason.
	reasonLits := cl.Literals
	if len(reasonLits) > 2 {
		reasonLits = reasonLits[:2]
	}
	if len(reasonLits) == 0 {
		reasonLits = []Literal{0}
	}
	for _, l := range reasonLits {
		if r, hasReason := c.VA.Reason(l); hasReason && r == h {
			c.VA.Unassign(l)
		}
	}

	if len(cl.Literals) >= 2 {
		c.watch.remove(classOf(cl.Marked), cl.Literals[0], h)
		c.watch.remove(classOf(cl.Marked), cl.Literals[1], h)
	} else {
		delete(c.units, h)
	}

	if c.bucket != nil {
		c.bucket.remove(maxVarOf(cl.Literals), h)
	}

	delete(c.names, name)
	c.slots[h] = nil
	c.free = append(c.free, h)

	return cl, nil
}

// Release returns a removed clause's backing literal array to the pool.
// Callers must not touch cl after calling Release.
func (c *Context) Release(cl *Clause) {
	globalLitPool.put(cl.Literals)
	cl.Literals = nil
}

// Reloc retains only those (from, to) pairs where `to` is currently
// live, renaming each such clause `to -> from` (its handle is
// unchanged). Duplicate `from` targets are a fatal error. Pairs whose
// `to` is not live are silently dropped, and the slice is filtered in
// place to reflect that.
//
// All `to` bindings are removed before any `from` binding is installed,
// so a batch that chains or swaps names resolves every pair against the
// pre-reloc bindings.
func (c *Context) Reloc(pairs *[]RelocPair) error {
	type staged struct {
		from Name
		h    handle
	}
	kept := (*pairs)[:0]
	var moved []staged
	for _, p := range *pairs {
		h, ok := c.handleOf(p.To)
		if !ok {
			continue
		}
		delete(c.names, p.To)
		moved = append(moved, staged{from: p.From, h: h})
		kept = append(kept, p)
	}
	for _, m := range moved {
		if _, dup := c.handleOf(m.from); dup {
			return fatalf(c.Step, "duplicate relocation source %d", m.from)
		}
		c.slots[m.h].Name = m.from
		c.names[m.from] = m.h
	}
	*pairs = kept
	return nil
}

// RelocPair is a single (from, to) renaming instruction from an FRAT
// 'r' segment: the clause currently named `to` becomes named `from`.
type RelocPair struct {
	From Name
	To   Name
}

// Units returns the live units table (handle -> sole literal).
func (c *Context) Units() map[handle]Literal {
	return c.units
}

// TrailEntry pairs a trail literal with the name of the clause that
// forced it; Reason is 0 when the literal was assumed.
type TrailEntry struct {
	Literal Literal
	Reason  Name
}

// Snapshot captures the full propagation state for a diagnostic dump: a
// failed proof step leaves the root trail (with per-literal reasons),
// the root/hypothesis boundary, and every live clause for post-mortem
// inspection.
type Snapshot struct {
	Step     Name
	FirstHyp int
	Trail    []TrailEntry
	Clauses  []*Clause
}

// Snapshot renders the current state; see the Snapshot type.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{Step: c.Step, FirstHyp: c.VA.FirstHyp()}
	for _, l := range c.VA.Trail() {
		var name Name
		if r, ok := c.VA.Reason(l); ok {
			name = c.slots[r].Name
		}
		s.Trail = append(s.Trail, TrailEntry{Literal: l, Reason: name})
	}
	for _, cl := range c.slots {
		if cl != nil {
			s.Clauses = append(s.Clauses, cl)
		}
	}
	return s
}

// RootUnsat reports whether a root-level clash has been detected: the
// conflicting literal, when one exists, always sits on top of the trail
// once hypotheses are cleared.
func (c *Context) RootUnsat() bool {
	_, bad := c.VA.Unsat()
	return bad
}

// Watch exposes the watch index to the propagation engine.
func (c *Context) Watch() *watchIndex {
	return c.watch
}

// Bucket exposes the (possibly nil) bucket index to the RAT resolver.
func (c *Context) Bucket() *bucketIndex {
	return c.bucket
}
