// Package frat models the FRAT trace format: the segment types
// a solver emits while adding, deleting, and finalizing lemmas, plus the
// optional hint chain attached to an addition.
//
// The byte-level codecs here (ascii.go, binary.go) are the "external
// collaborator" parsers: their job is to produce and consume the
// Segment stream faithfully, not to host the elaborator's reasoning.
// XOR and BNN segments are carried as opaque ancillary data: their
// clause/hint payload round-trips through the same Segment fields as a
// plain Add/Final, and a solver that never emits x/b steps never
// observes any difference.
package frat

// Literal is a non-zero signed integer as it appears on the wire. It is
// numerically identical to sat.Literal but kept as its own type so this
// package has no dependency on the elaboration engine; callers convert
// at the boundary (see internal/elaborate).
type Literal int32

// Name is the trace-level clause identity carried by a segment.
type Name uint64

// Kind distinguishes the FRAT segment types.
type Kind uint8

const (
	KindComment Kind = iota
	KindOrig
	KindAdd
	KindDel
	KindFinal
	KindReloc
	KindTodo
	// KindXorAdd and KindXorFinal carry XOR-extension steps. The
	// elaborator routes them through the same Add/Final handling as
	// their plain counterparts (open question: a Final x
	// segment adds no semantic constraint beyond ordering).
	KindXorAdd
	KindXorFinal
	// KindBnnAdd carries a BNN-extension step, treated identically.
	KindBnnAdd
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "c"
	case KindOrig:
		return "o"
	case KindAdd:
		return "a"
	case KindDel:
		return "d"
	case KindFinal:
		return "f"
	case KindReloc:
		return "r"
	case KindTodo:
		return "t"
	case KindXorAdd:
		return "x"
	case KindXorFinal:
		return "xf"
	case KindBnnAdd:
		return "b"
	default:
		return "?"
	}
}

// ResolventHint is one user-supplied per-resolvent proof attached to a
// RAT/PR step: the negated antecedent name ("-name" in the trace) and
// its own antecedent chain.
type ResolventHint struct {
	Name  Name
	Chain []Name
}

// RelocPair is a single (from, to) renaming instruction carried by an
// 'r' segment.
type RelocPair struct {
	From Name
	To   Name
}

// Proof is the optional hint payload attached to an Add/XorAdd/BnnAdd
// segment: a flat initial chain followed by zero or more per-resolvent
// proofs, plus an XOR-only unit-hint tail (the 'u ...' segment suffix).
// A Proof with no Chain, no Resolvents and Present == false means the
// step carried no proof at all (the backward elaborator must derive
// one).
type Proof struct {
	Present    bool
	Chain      []Name
	Resolvents []ResolventHint
	UnitHints  []Name
}

// Segment is one parsed FRAT trace record.
type Segment struct {
	Kind    Kind
	ID      Name
	Lits    []Literal // clause literals: Orig/Add/Del/Final
	Proof   Proof     // only meaningful for Add/XorAdd/BnnAdd
	Relocs  []RelocPair
	Comment string
}
