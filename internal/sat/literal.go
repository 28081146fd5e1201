// Package sat implements the clause database, watch lists, assignment
// stack, and unit-propagation/RAT-resolution engine shared by the
// backward elaborator, the forward trimmer, and the LRAT checker.
package sat

import "fmt"

// Literal is a non-zero signed integer identifying a boolean variable
// (the absolute value) and its polarity (the sign). Negation is
// arithmetic negation, matching the wire encoding used by DIMACS, FRAT,
// and LRAT.
type Literal int32

// Var returns the variable underlying the literal, always positive.
func (l Literal) Var() int32 {
	if l < 0 {
		return int32(-l)
	}
	return int32(l)
}

// Negate returns the opposite literal.
func (l Literal) Negate() Literal {
	return -l
}

// IsPositive reports whether the literal asserts its variable true.
func (l Literal) IsPositive() bool {
	return l > 0
}

func (l Literal) String() string {
	return fmt.Sprintf("%d", int32(l))
}

// Name identifies a clause at the trace level. It is distinct from the
// clause's handle (its slab index), which is the DB's internal identity.
type Name uint64
