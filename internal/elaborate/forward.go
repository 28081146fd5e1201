package elaborate

import (
	"io"
	"sort"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/frat"
	"github.com/rhartert/fratelab/internal/lrat"
)

// forwardState is the trimmer's own bookkeeping: the next
// fresh id counter, the old-name -> new-name map, and a unified
// reference count per new name covering both original-clause bindings
// and subsumption-copy aliases. See DESIGN.md for why a single
// refcount map suffices instead of separate per-kind tables: every
// alias path (Orig bind, subsumption copy, Reloc) ultimately decrements
// through the same shared new-name, so one map tracks them all without
// double-booking.
type forwardState struct {
	idx *cnfindex.Index
	out *lrat.Writer

	k        uint64
	nameMap  map[frat.Name]uint64
	refcount map[uint64]int

	pendingDeletes []uint64
	verified       bool
}

// Forward runs the forward trimming pass: it reads the
// intermediate stream written by Backward via its ReverseReader (so
// segments arrive in true forward-chronological order), renumbers every
// surviving clause into a dense id space starting after the original
// problem's clauses, rewrites hint chains, and emits LRAT.
func Forward(src SegmentSource, idx *cnfindex.Index, out *lrat.Writer) (verified bool, err error) {
	var numOrig int
	if idx != nil {
		numOrig = len(idx.Clauses)
	}
	fs := &forwardState{
		idx:      idx,
		out:      out,
		k:        uint64(numOrig),
		nameMap:  make(map[frat.Name]uint64),
		refcount: make(map[uint64]int),
	}

	inOrigPrefix := true
	for {
		seg, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, diag.Wrap(diag.KindIO, 0, err)
		}

		if inOrigPrefix && seg.Kind != frat.KindOrig {
			inOrigPrefix = false
			if err := fs.emitOrigBulkDelete(); err != nil {
				return false, err
			}
		}

		switch seg.Kind {
		case frat.KindOrig:
			if done, err := fs.handleOrig(seg); err != nil {
				return false, err
			} else if done {
				return true, nil
			}
		case frat.KindAdd, frat.KindXorAdd, frat.KindBnnAdd:
			done, err := fs.handleAdd(seg)
			if err != nil {
				return false, err
			}
			if done {
				return true, nil
			}
		case frat.KindDel:
			if err := fs.handleDel(seg); err != nil {
				return false, err
			}
		case frat.KindReloc:
			fs.handleReloc(seg)
		case frat.KindComment, frat.KindTodo, frat.KindFinal, frat.KindXorFinal:
			// No forward-trimmer effect (only
			// Orig/Add/Del/Reloc).
		default:
			return false, diag.New(diag.KindStructural, "forward: unhandled segment kind %d", seg.Kind)
		}
	}

	if inOrigPrefix {
		if err := fs.emitOrigBulkDelete(); err != nil {
			return false, err
		}
	}
	if err := fs.flushDeletes(); err != nil {
		return false, err
	}
	return fs.verified, nil
}

func (fs *forwardState) handleOrig(seg frat.Segment) (done bool, err error) {
	if _, dup := fs.nameMap[seg.ID]; dup {
		return false, diag.New(diag.KindSemantic, "forward: duplicate Orig step id %d", seg.ID)
	}
	var pos int
	if fs.idx == nil {
		// No DIMACS was supplied: trust the trace's own Orig numbering
		// as the original clause position directly, and start fresh ids
		// above the largest one seen.
		pos = int(seg.ID)
		if uint64(seg.ID) > fs.k {
			fs.k = uint64(seg.ID)
		}
	} else {
		var ok bool
		pos, ok = fs.idx.Find(toCnfLits(seg.Lits))
		if !ok {
			return false, diag.New(diag.KindSemantic, "forward: Orig step %d has no matching clause in the original CNF", seg.ID)
		}
	}
	newName := uint64(pos)
	fs.nameMap[seg.ID] = newName
	fs.refcount[newName]++

	if len(seg.Lits) == 0 {
		finalID := fs.k + 1
		if err := fs.out.WriteAdd(finalID, nil, []int64{int64(newName)}); err != nil {
			return false, diag.Wrap(diag.KindIO, 0, err)
		}
		fs.verified = true
		return true, nil
	}
	return false, nil
}

// emitOrigBulkDelete emits the single bulk-delete line naming every
// original clause that was never bound to an Orig step at all: those
// clauses are dead weight in the final proof.
func (fs *forwardState) emitOrigBulkDelete() error {
	if fs.idx == nil {
		return nil
	}
	var dead []uint64
	for _, cl := range fs.idx.Clauses {
		pos := uint64(cl.Pos)
		if fs.refcount[pos] == 0 {
			dead = append(dead, pos)
		}
	}
	if len(dead) == 0 {
		return nil
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i] < dead[j] })
	if err := fs.out.WriteDelete(fs.k, dead); err != nil {
		return diag.Wrap(diag.KindIO, 0, err)
	}
	return nil
}

func (fs *forwardState) handleAdd(seg frat.Segment) (done bool, err error) {
	// Deletions accrued since the last addition are flushed first, as a
	// single coalesced delete line citing the current id.
	if err := fs.flushDeletes(); err != nil {
		return false, err
	}

	if len(seg.Proof.Chain) == 1 && len(seg.Proof.Resolvents) == 0 {
		target := seg.Proof.Chain[0]
		newName, ok := fs.nameMap[target]
		if !ok {
			return false, diag.New(diag.KindSemantic, "forward: step %d copies undefined clause %d", seg.ID, target)
		}
		fs.nameMap[seg.ID] = newName
		fs.refcount[newName]++
		return false, nil
	}

	fs.k++
	newName := fs.k
	fs.nameMap[seg.ID] = newName
	fs.refcount[newName] = 1

	hints, err := fs.renameHints(seg.ID, seg.Proof)
	if err != nil {
		return false, err
	}
	if err := fs.out.WriteAdd(newName, toLratLits(seg.Lits), hints); err != nil {
		return false, diag.Wrap(diag.KindIO, 0, err)
	}
	if len(seg.Lits) == 0 {
		fs.verified = true
		return true, nil
	}
	return false, nil
}

func (fs *forwardState) renameHints(step frat.Name, p frat.Proof) ([]int64, error) {
	hints := make([]int64, 0, len(p.Chain)+2*len(p.Resolvents))
	for _, n := range p.Chain {
		nn, ok := fs.nameMap[n]
		if !ok {
			return nil, diag.New(diag.KindSemantic, "forward: step %d references undefined clause %d", step, n)
		}
		hints = append(hints, int64(nn))
	}

	type block struct {
		negNew int64
		rest   []int64
	}
	blocks := make([]block, 0, len(p.Resolvents))
	for _, rh := range p.Resolvents {
		nn, ok := fs.nameMap[rh.Name]
		if !ok {
			return nil, diag.New(diag.KindSemantic, "forward: step %d resolvent references undefined clause %d", step, rh.Name)
		}
		rest := make([]int64, 0, len(rh.Chain))
		for _, n := range rh.Chain {
			cnn, ok := fs.nameMap[n]
			if !ok {
				return nil, diag.New(diag.KindSemantic, "forward: step %d references undefined clause %d", step, n)
			}
			rest = append(rest, int64(cnn))
		}
		blocks = append(blocks, block{negNew: int64(nn), rest: rest})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].negNew < blocks[j].negNew })

	for _, b := range blocks {
		hints = append(hints, -b.negNew)
		hints = append(hints, b.rest...)
	}
	return hints, nil
}

func (fs *forwardState) handleDel(seg frat.Segment) error {
	newName, ok := fs.nameMap[seg.ID]
	if !ok {
		// A deletion cue for a clause that was never bound (e.g. it was
		// a promotion cue for an originally-unmarked clause the backward
		// pass already dropped entirely): nothing to decrement.
		return nil
	}
	if fs.refcount[newName] <= 0 {
		return nil
	}
	fs.refcount[newName]--
	if fs.refcount[newName] == 0 {
		fs.pendingDeletes = append(fs.pendingDeletes, newName)
	}
	return nil
}

// handleReloc rebinds old names to new: in forward-chronological order a
// reloc pair (from, to) renames the clause known as `from` to `to`. All
// removals happen before any re-insert so that swap chains within one
// reloc batch resolve against the pre-reloc bindings.
func (fs *forwardState) handleReloc(seg frat.Segment) {
	type moved struct {
		to frat.Name
		nn uint64
	}
	var ms []moved
	for _, p := range seg.Relocs {
		if nn, ok := fs.nameMap[p.From]; ok {
			delete(fs.nameMap, p.From)
			ms = append(ms, moved{to: p.To, nn: nn})
		}
	}
	for _, m := range ms {
		fs.nameMap[m.to] = m.nn
	}
}

// flushDeletes coalesces any pending zero-refcount deletions accrued
// since the last flush into a single LRAT delete line.
func (fs *forwardState) flushDeletes() error {
	if len(fs.pendingDeletes) == 0 {
		return nil
	}
	names := fs.pendingDeletes
	fs.pendingDeletes = nil
	if err := fs.out.WriteDelete(fs.k, names); err != nil {
		return diag.Wrap(diag.KindIO, 0, err)
	}
	return nil
}

func toLratLits(lits []frat.Literal) []lrat.Literal {
	out := make([]lrat.Literal, len(lits))
	for i, l := range lits {
		out[i] = lrat.Literal(l)
	}
	return out
}
