package elaborate

import (
	"io"

	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/frat"
	"github.com/rhartert/fratelab/internal/sat"
)

// SegmentSource is anything that yields FRAT segments tail-to-head;
// satisfied by *frat.ReverseReader.
type SegmentSource interface {
	Next() (frat.Segment, error)
}

// BackwardOptions configures the backward elaboration pass (the CLI's
// "--full"/"-s"/"-ss" flags).
type BackwardOptions struct {
	// Full keeps every clause's hint chain regardless of whether the
	// backward walk ever marks it as needed (the "--full" flag).
	Full bool
	// Strict requires every hinted clause encountered during
	// propagation to already be unit and every RAT resolvent to carry
	// an explicit hint (the "-ss" flag). "-s" is accepted by the CLI
	// but leaves Strict false, so it elaborates exactly as with no
	// flag -- see DESIGN.md for this judgment call.
	Strict bool
}

// Backward runs the two-pass elaborator's first phase: it reads trace
// tail-to-head, replays clause insertions/removals against a live
// sat.Context, fills in missing hints via propagation, marks clauses
// that are actually needed, and writes the elaborated, still
// reverse-ordered steps to medium (see Medium's doc for why "writes
// reverse" and "forward pass reads forward" are reconciled via
// reverse-parsing rather than a second explicit flip).
//
// The live database is reconstructed from the trace itself: every
// clause still live at the end of a conforming trace appears in a
// Final segment, and every clause deleted mid-run appears in a Del
// segment, so walking backward the Final/Del segments insert exactly
// the clauses each earlier step could see.
func Backward(trace SegmentSource, medium *Medium, opts BackwardOptions) error {
	segs, err := drain(trace)
	if err != nil {
		return err
	}

	ctx := sat.NewContext(opts.Strict)
	ctx.Reserve(maxVarIn(segs))
	ctx.EnableBucketIndex()

	var origBuf []frat.Segment
	sawEmptyFinal := false

	promote := func(name sat.Name) error {
		if ctx.Marked(name) {
			return nil
		}
		ctx.Mark(name)
		if opts.Full {
			return nil
		}
		return medium.Writer().WriteSegment(frat.Segment{Kind: frat.KindDel, ID: frat.Name(name)})
	}

	for _, seg := range segs {
		ctx.Step = sat.Name(seg.ID)

		switch seg.Kind {
		case frat.KindComment, frat.KindTodo:
			// Informational only; no DB effect.

		case frat.KindFinal, frat.KindXorFinal:
			lits := toSatLits(seg.Lits)
			marked := len(lits) == 0
			if marked {
				sawEmptyFinal = true
			}
			if _, err := ctx.Insert(sat.Name(seg.ID), marked, lits); err != nil {
				return diag.Wrap(diag.KindSemantic, uint64(seg.ID), err)
			}

		case frat.KindDel:
			if _, err := ctx.Insert(sat.Name(seg.ID), false, toSatLits(seg.Lits)); err != nil {
				return diag.Wrap(diag.KindSemantic, uint64(seg.ID), err)
			}
			if opts.Full {
				// In full mode every clause survives into the output, so
				// the trace's own deletions are forwarded for the trimmer
				// to replay; in trimming mode the promotion cues emitted
				// by promote() serve that role instead.
				if err := medium.Writer().WriteSegment(frat.Segment{Kind: frat.KindDel, ID: seg.ID}); err != nil {
					return diag.Wrap(diag.KindIO, uint64(seg.ID), err)
				}
			}

		case frat.KindReloc:
			pairs := toSatRelocs(seg.Relocs)
			if err := ctx.Reloc(&pairs); err != nil {
				return diag.Wrap(diag.KindSemantic, 0, err)
			}
			if len(pairs) > 0 {
				if err := medium.Writer().WriteSegment(frat.Segment{Kind: frat.KindReloc, Relocs: fromSatRelocs(pairs)}); err != nil {
					return diag.Wrap(diag.KindIO, 0, err)
				}
			}

		case frat.KindOrig:
			cl, err := ctx.Remove(sat.Name(seg.ID))
			if err != nil {
				return diag.Wrap(diag.KindSemantic, uint64(seg.ID), err)
			}
			if cl.Marked || opts.Full {
				origBuf = append(origBuf, frat.Segment{
					Kind: frat.KindOrig,
					ID:   seg.ID,
					Lits: fromSatLits(cl.Literals),
				})
			}
			ctx.Release(cl)

		case frat.KindAdd, frat.KindXorAdd, frat.KindBnnAdd:
			cl, err := ctx.Remove(sat.Name(seg.ID))
			if err != nil {
				return diag.Wrap(diag.KindSemantic, uint64(seg.ID), err)
			}
			if !subsumes(cl.Literals, toSatLits(seg.Lits)) {
				ctx.Release(cl)
				return diag.New(diag.KindSemantic, "step %d: clause in the database does not subsume the attached clause", seg.ID)
			}

			needed := cl.Marked || opts.Full
			if needed {
				ls := toSatLits(seg.Lits)
				init, rats := toSatProof(seg.Proof)
				if len(ls) == 0 && len(rats) > 0 {
					// An empty lemma has no pivot to resolve on, so
					// negative hint entries cannot open resolvent blocks;
					// fold them back into one flat chain.
					for _, rh := range rats {
						init = append(init, rh.Name)
						init = append(init, rh.Chain...)
					}
					rats = nil
				}
				if opts.Strict && !seg.Proof.Present && len(rats) == 0 {
					ctx.Release(cl)
					return diag.New(diag.KindProof, "step %d: strict mode requires an explicit hint chain", seg.ID)
				}
				hint, err := ctx.RunStep(ls, nil, init, rats)
				if err != nil {
					ctx.Release(cl)
					return diag.Wrap(diag.KindProof, uint64(seg.ID), err).WithStates(
						diag.State{Label: "clause under proof", Value: seg.Lits},
						diag.State{Label: "supplied hints", Value: seg.Proof},
						diag.State{Label: "propagation state", Value: ctx.Snapshot()},
					)
				}
				for _, step := range hint.Steps {
					if err := promote(step.Name); err != nil {
						ctx.Release(cl)
						return diag.Wrap(diag.KindIO, uint64(seg.ID), err)
					}
				}
				if err := medium.Writer().WriteSegment(frat.Segment{
					Kind:  frat.KindAdd,
					ID:    seg.ID,
					Lits:  seg.Lits,
					Proof: hintToProof(hint),
				}); err != nil {
					ctx.Release(cl)
					return diag.Wrap(diag.KindIO, uint64(seg.ID), err)
				}
			}
			ctx.Release(cl)

		default:
			return diag.New(diag.KindStructural, "step %d: unhandled segment kind %d", seg.ID, seg.Kind)
		}
	}

	if !sawEmptyFinal {
		return diag.New(diag.KindSemantic, "trace never finalizes the empty clause")
	}

	for _, o := range origBuf {
		if err := medium.Writer().WriteSegment(o); err != nil {
			return diag.Wrap(diag.KindIO, uint64(o.ID), err)
		}
	}
	if err := medium.Writer().Flush(); err != nil {
		return diag.Wrap(diag.KindIO, 0, err)
	}
	return nil
}

// drain reads src to exhaustion and returns every segment in the order
// it was produced (tail-to-head, for a *frat.ReverseReader).
func drain(src SegmentSource) ([]frat.Segment, error) {
	var segs []frat.Segment
	for {
		seg, err := src.Next()
		if err == io.EOF {
			return segs, nil
		}
		if err != nil {
			return nil, diag.Wrap(diag.KindIO, 0, err)
		}
		segs = append(segs, seg)
	}
}

func maxVarIn(segs []frat.Segment) int32 {
	var max int32
	for _, seg := range segs {
		for _, l := range seg.Lits {
			v := int32(l)
			if v < 0 {
				v = -v
			}
			if v > max {
				max = v
			}
		}
	}
	return max
}
