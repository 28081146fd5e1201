// Package elaborate implements the backward elaborator and
// the forward trimmer: the two passes that turn a raw FRAT
// trace into a minimal, densely-renumbered LRAT proof.
package elaborate

import (
	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/frat"
	"github.com/rhartert/fratelab/internal/sat"
)

func toSatLits(lits []frat.Literal) []sat.Literal {
	if lits == nil {
		return nil
	}
	out := make([]sat.Literal, len(lits))
	for i, l := range lits {
		out[i] = sat.Literal(l)
	}
	return out
}

func fromSatLits(lits []sat.Literal) []frat.Literal {
	if lits == nil {
		return nil
	}
	out := make([]frat.Literal, len(lits))
	for i, l := range lits {
		out[i] = frat.Literal(l)
	}
	return out
}

// toCnfLits converts trace literals to the plain int32 convention
// cnfindex's multiset index looks clauses up by.
func toCnfLits(lits []frat.Literal) []cnfindex.Literal {
	out := make([]cnfindex.Literal, len(lits))
	for i, l := range lits {
		out[i] = cnfindex.Literal(l)
	}
	return out
}

func toSatProof(p frat.Proof) ([]sat.Name, []sat.ResolventHint) {
	init := make([]sat.Name, len(p.Chain))
	for i, n := range p.Chain {
		init[i] = sat.Name(n)
	}
	rats := make([]sat.ResolventHint, len(p.Resolvents))
	for i, rh := range p.Resolvents {
		chain := make([]sat.Name, len(rh.Chain))
		for j, n := range rh.Chain {
			chain[j] = sat.Name(n)
		}
		rats[i] = sat.ResolventHint{Name: sat.Name(rh.Name), Chain: chain}
	}
	return init, rats
}

// hintToProof flattens a sat.Hint (the RunStep result) back into the
// frat.Proof shape the intermediate stream carries: a leading run of
// plain antecedents followed by resolvent blocks, each introduced by
// its HintStep.Sep marker.
func hintToProof(h *sat.Hint) frat.Proof {
	p := frat.Proof{Present: true}
	var cur *frat.ResolventHint
	for _, step := range h.Steps {
		if step.Sep {
			p.Resolvents = append(p.Resolvents, frat.ResolventHint{Name: frat.Name(step.Name)})
			cur = &p.Resolvents[len(p.Resolvents)-1]
			continue
		}
		if cur == nil {
			p.Chain = append(p.Chain, frat.Name(step.Name))
		} else {
			cur.Chain = append(cur.Chain, frat.Name(step.Name))
		}
	}
	return p
}

func toSatRelocs(pairs []frat.RelocPair) []sat.RelocPair {
	out := make([]sat.RelocPair, len(pairs))
	for i, p := range pairs {
		out[i] = sat.RelocPair{From: sat.Name(p.From), To: sat.Name(p.To)}
	}
	return out
}

func fromSatRelocs(pairs []sat.RelocPair) []frat.RelocPair {
	out := make([]frat.RelocPair, len(pairs))
	for i, p := range pairs {
		out[i] = frat.RelocPair{From: frat.Name(p.From), To: frat.Name(p.To)}
	}
	return out
}

// subsumes reports whether every literal of sub also appears in super,
// the subsumption check the backward pass requires between an Add's attached clause and the
// (possibly solver-shrunk) clause currently held in the backward DB.
func subsumes(sub, super []sat.Literal) bool {
	set := make(map[sat.Literal]struct{}, len(super))
	for _, l := range super {
		set[l] = struct{}{}
	}
	for _, l := range sub {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}
