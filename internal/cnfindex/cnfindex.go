// Package cnfindex loads a DIMACS CNF file and provides the
// permutation-insensitive clause lookup the forward trimmer needs to
// resolve Orig references against the original problem.
//
// Wraps github.com/rhartert/dimacs's callback-style reader with a small
// Builder adapter; this is the module's only DIMACS parser.
package cnfindex

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"
)

// Literal mirrors the signed-integer convention used throughout this
// module (DIMACS clauses are read directly into this representation,
// with no offset or doubled encoding).
type Literal = int32

// Clause is one original-problem clause, in original file order.
type Clause struct {
	// Pos is the 1-based position of this clause among the original
	// problem's clauses, the identity Orig segments and the forward
	// trimmer bind to.
	Pos  int
	Lits []Literal
}

// Index is the original CNF loaded from a DIMACS file, plus the
// commutative-hash multiset index this module needs: original-clause
// lookup must treat clauses as multisets of literals, using a hash that
// is invariant to literal order, with set-equality used to resolve hash
// collisions.
type Index struct {
	NumVars int
	Clauses []Clause

	byHash map[uint64][]int // hash -> indices into Clauses
}

// Load reads a (optionally gzip-compressed) DIMACS CNF file and builds
// its permutation-insensitive lookup index.
func Load(filename string, gzipped bool) (*Index, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cnfindex: opening %q: %w", filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("cnfindex: gunzip %q: %w", filename, err)
		}
		defer gz.Close()
		r = gz
	}

	idx := &Index{byHash: make(map[uint64][]int)}
	b := &builder{idx: idx}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return nil, fmt.Errorf("cnfindex: parsing %q: %w", filename, err)
	}
	return idx, nil
}

type builder struct {
	idx *Index
}

func (b *builder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("cnfindex: not a CNF problem (%q)", problem)
	}
	b.idx.NumVars = nVars
	b.idx.Clauses = make([]Clause, 0, nClauses)
	return nil
}

func (b *builder) Comment(string) error { return nil }

func (b *builder) Clause(tmp []int) error {
	// Duplicate literals are dropped, so that the multiset index agrees
	// with the deduplicated clauses the solver's trace refers to.
	lits := make([]Literal, 0, len(tmp))
	seen := make(map[Literal]struct{}, len(tmp))
	for _, l := range tmp {
		if _, dup := seen[Literal(l)]; dup {
			continue
		}
		seen[Literal(l)] = struct{}{}
		lits = append(lits, Literal(l))
	}
	b.idx.add(lits)
	return nil
}

func (idx *Index) add(lits []Literal) {
	pos := len(idx.Clauses) + 1
	idx.Clauses = append(idx.Clauses, Clause{Pos: pos, Lits: lits})
	h := multisetHash(lits)
	idx.byHash[h] = append(idx.byHash[h], pos-1)
}

// multisetHash is the commutative combining hash used for lookup:
// "1023*sum + product XOR (31*xor), all in unsigned 64-bit wrapping
// arithmetic" -- order-independent so permutations of the same clause
// collide deliberately, letting the index treat a clause as a multiset.
func multisetHash(lits []Literal) uint64 {
	var sum, prod, xor uint64
	prod = 1
	for _, l := range lits {
		v := uint64(int64(l))
		sum += v
		prod *= v
		xor ^= v
	}
	return 1023*sum + prod ^ (31 * xor)
}

// sameMultiset reports whether a and b contain the same literals with
// the same multiplicities, ignoring order.
func sameMultiset(a, b []Literal) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Literal]int, len(a))
	for _, l := range a {
		counts[l]++
	}
	for _, l := range b {
		counts[l]--
		if counts[l] < 0 {
			return false
		}
	}
	return true
}

// Find returns the 1-based position of the original clause equal (as a
// multiset) to lits, or ok=false if none matches.
func (idx *Index) Find(lits []Literal) (pos int, ok bool) {
	h := multisetHash(lits)
	for _, i := range idx.byHash[h] {
		if sameMultiset(idx.Clauses[i].Lits, lits) {
			return idx.Clauses[i].Pos, true
		}
	}
	return 0, false
}
