package elaborate

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhartert/fratelab/internal/cnfindex"
	"github.com/rhartert/fratelab/internal/diag"
	"github.com/rhartert/fratelab/internal/frat"
	"github.com/rhartert/fratelab/internal/lrat"
)

// A minimal refutation: {1∨2}, {-1}, {-2} is unsatisfiable by a single
// direct RUP derivation of the empty clause from all three original
// clauses. Every clause still live at the end of the run (all of them)
// is finalized, as a conforming trace requires.
const directRefutationTrace = "o 1 1 2 0\no 2 -1 0\no 3 -2 0\n" +
	"a 4 0 l 1 2 3 0\n" +
	"f 1 1 2 0\nf 2 -1 0\nf 3 -2 0\nf 4 0\n"

func runElaborate(t *testing.T, trace string, opts BackwardOptions) string {
	t.Helper()

	rr, err := frat.NewReverseReaderASCII(bytes.NewReader([]byte(trace)))
	require.NoError(t, err)

	medium := NewMemoryMedium()
	err = Backward(rr, medium, opts)
	require.NoError(t, err)

	fwd, err := medium.Reversed()
	require.NoError(t, err)

	var out bytes.Buffer
	w := lrat.NewWriter(&out)
	verified, err := Forward(fwd, nil, w)
	require.NoError(t, err)
	assert.True(t, verified)
	require.NoError(t, w.Flush())
	return out.String()
}

// assertSingleRefutationLine checks that got is exactly one LRAT add
// line deriving the empty clause under the new name k+1, whose hint
// chain cites exactly wantHints (order is a BCP implementation detail,
// not asserted).
func assertSingleRefutationLine(t *testing.T, got string, k int, wantHints []string) {
	t.Helper()
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 1)
	fields := strings.Fields(lines[0])
	require.NotEmpty(t, fields)
	assert.Equal(t, strconv.Itoa(k+1), fields[0])
	assert.Equal(t, "0", fields[1], "empty clause has no literals")
	assert.ElementsMatch(t, wantHints, fields[2:len(fields)-1])
	assert.Equal(t, "0", fields[len(fields)-1])
}

func TestBackwardForward_directRefutation(t *testing.T) {
	got := runElaborate(t, directRefutationTrace, BackwardOptions{})
	assertSingleRefutationLine(t, got, 3, []string{"1", "2", "3"})
}

func TestBackwardForward_fullMode(t *testing.T) {
	got := runElaborate(t, directRefutationTrace, BackwardOptions{Full: true})
	assertSingleRefutationLine(t, got, 3, []string{"1", "2", "3"})
}

// sliceSource replays a fixed, hand-built segment list, letting tests
// exercise Backward's reverse-order protocol directly without going
// through the ASCII encoder/decoder round trip.
type sliceSource struct {
	segs []frat.Segment
	pos  int
}

func (s *sliceSource) Next() (frat.Segment, error) {
	if s.pos >= len(s.segs) {
		return frat.Segment{}, io.EOF
	}
	seg := s.segs[s.pos]
	s.pos++
	return seg, nil
}

func TestBackward_rejectsTraceWithoutEmptyFinal(t *testing.T) {
	src := &sliceSource{segs: []frat.Segment{
		{Kind: frat.KindFinal, ID: 3, Lits: []frat.Literal{1}},
		{Kind: frat.KindFinal, ID: 2, Lits: []frat.Literal{-1}},
		{Kind: frat.KindFinal, ID: 1, Lits: []frat.Literal{1, 2}},
		{Kind: frat.KindAdd, ID: 3, Lits: []frat.Literal{1}, Proof: frat.Proof{Present: true, Chain: []frat.Name{1}}},
		{Kind: frat.KindOrig, ID: 2, Lits: []frat.Literal{-1}},
		{Kind: frat.KindOrig, ID: 1, Lits: []frat.Literal{1, 2}},
	}}
	err := Backward(src, NewMemoryMedium(), BackwardOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never finalizes the empty clause")
}

// The quad trace exercises the subsumption-copy optimization: step 10
// is a literal-for-literal copy of original clause 1 (single-hint
// chain), so it must be aliased rather than re-emitted, and later
// references to 10 must resolve to clause 1's dense id.
const quadCopyTrace = "o 1 1 2 0\no 2 1 -2 0\no 3 -1 2 0\no 4 -1 -2 0\n" +
	"a 10 1 2 0 l 1 0\n" +
	"a 5 1 0 l 10 2 0\n" +
	"a 6 0 l 5 3 4 0\n" +
	"f 1 1 2 0\nf 2 1 -2 0\nf 3 -1 2 0\nf 4 -1 -2 0\nf 5 1 0\nf 6 0\nf 10 1 2 0\n"

func TestBackwardForward_subsumptionCopyEndToEnd(t *testing.T) {
	idx, err := cnfindex.Load("testdata/quad.cnf", false)
	require.NoError(t, err)

	rr, err := frat.NewReverseReaderASCII(bytes.NewReader([]byte(quadCopyTrace)))
	require.NoError(t, err)

	medium := NewMemoryMedium()
	require.NoError(t, Backward(rr, medium, BackwardOptions{}))

	fwd, err := medium.Reversed()
	require.NoError(t, err)

	var out bytes.Buffer
	w := lrat.NewWriter(&out)
	verified, err := Forward(fwd, idx, w)
	require.NoError(t, err)
	assert.True(t, verified)
	require.NoError(t, w.Flush())

	got := out.String()
	// The copy step must not surface as its own addition: the first
	// fresh id after the four originals is 5.
	for _, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
		fields := strings.Fields(line)
		require.NotEmpty(t, fields)
		assert.NotEqual(t, "7", fields[0], "copy step leaked a fresh id: %q", line)
	}
	assert.Contains(t, got, "5 1 0 1 2 0\n", "step 5's chain must cite the copy through clause 1's id")

	// The emitted proof must replay against the original problem.
	checker := lrat.NewChecker(idx)
	ok, err := checker.Check(lrat.NewReader(strings.NewReader(got)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForward_origEmptyClauseEndsProof(t *testing.T) {
	src := &sliceSource{segs: []frat.Segment{
		{Kind: frat.KindOrig, ID: 1, Lits: nil},
	}}
	var out bytes.Buffer
	w := lrat.NewWriter(&out)
	verified, err := Forward(src, nil, w)
	require.NoError(t, err)
	assert.True(t, verified)
	require.NoError(t, w.Flush())
	assert.Equal(t, "2 0 1 0\n", out.String())
}

func TestForward_relocRebindsDeletion(t *testing.T) {
	src := &sliceSource{segs: []frat.Segment{
		{Kind: frat.KindOrig, ID: 1, Lits: []frat.Literal{1}},
		{Kind: frat.KindAdd, ID: 20, Lits: []frat.Literal{2}, Proof: frat.Proof{Present: true, Chain: []frat.Name{1, 1}}},
		{Kind: frat.KindReloc, Relocs: []frat.RelocPair{{From: 20, To: 30}}},
		{Kind: frat.KindDel, ID: 30},
		{Kind: frat.KindAdd, ID: 22, Lits: nil, Proof: frat.Proof{Present: true, Chain: []frat.Name{1, 1}}},
	}}
	var out bytes.Buffer
	w := lrat.NewWriter(&out)
	verified, err := Forward(src, nil, w)
	require.NoError(t, err)
	assert.True(t, verified)
	require.NoError(t, w.Flush())

	want := "2 2 0 1 1 0\n" +
		"2 d 2 0\n" +
		"3 0 1 1 0\n"
	assert.Equal(t, want, out.String())
}

func TestBackward_proofFailureCarriesStateSnapshot(t *testing.T) {
	// {3} follows from {1,2} and {-3,1} neither by RUP nor by RAT on
	// pivot 3 (the resolvent against {-3,1} is {1,3}, which propagation
	// cannot refute), so elaborating its (full-mode) proof obligation
	// fails; the fault must carry the propagation state for the
	// diagnostic dump.
	src := &sliceSource{segs: []frat.Segment{
		{Kind: frat.KindFinal, ID: 3, Lits: []frat.Literal{-3, 1}},
		{Kind: frat.KindFinal, ID: 2, Lits: []frat.Literal{3}},
		{Kind: frat.KindFinal, ID: 1, Lits: []frat.Literal{1, 2}},
		{Kind: frat.KindAdd, ID: 2, Lits: []frat.Literal{3}},
		{Kind: frat.KindOrig, ID: 3, Lits: []frat.Literal{-3, 1}},
		{Kind: frat.KindOrig, ID: 1, Lits: []frat.Literal{1, 2}},
	}}
	err := Backward(src, NewMemoryMedium(), BackwardOptions{Full: true})
	require.Error(t, err)

	var fault *diag.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, diag.KindProof, fault.Kind)
	assert.NotEmpty(t, fault.States, "proof failure fault carries no state snapshot")
}

func TestBackward_strictModeRejectsMissingHint(t *testing.T) {
	src := &sliceSource{segs: []frat.Segment{
		{Kind: frat.KindFinal, ID: 4, Lits: nil},
		{Kind: frat.KindAdd, ID: 4, Lits: nil}, // no proof attached
		{Kind: frat.KindOrig, ID: 3, Lits: []frat.Literal{-2}},
		{Kind: frat.KindOrig, ID: 2, Lits: []frat.Literal{-1}},
		{Kind: frat.KindOrig, ID: 1, Lits: []frat.Literal{1, 2}},
	}}
	err := Backward(src, NewMemoryMedium(), BackwardOptions{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict mode")
}
