package sat

// Clause is a slab-allocated clause: a stable handle identifies it
// internally, a trace-level Name identifies it to the FRAT/LRAT world,
// and Literals is freely reorderable except that, for clauses with two
// or more literals, positions 0 and 1 are always the two watched
// literals (see watch.go).
//
// The Marked bit records whether the backward elaborator has determined
// this clause is needed by some later step; it also selects which of
// the two watch classes (see Context.watch) the clause's watches live
// in.
type Clause struct {
	Name     Name
	Marked   bool
	Literals []Literal
}

// Unit reports whether the clause has at most one literal, i.e. it
// belongs in the units table rather than the watch index.
func (c *Clause) Unit() bool {
	return len(c.Literals) <= 1
}

// UnitLiteral returns the clause's sole literal, or 0 if the clause is
// empty (the canonical "false" sentinel used by the units table).
func (c *Clause) UnitLiteral() Literal {
	if len(c.Literals) == 0 {
		return 0
	}
	return c.Literals[0]
}
