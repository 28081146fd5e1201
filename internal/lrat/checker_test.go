package lrat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhartert/fratelab/internal/cnfindex"
)

func TestChecker_verifiesDirectRefutation(t *testing.T) {
	idx, err := cnfindex.Load("../cnfindex/testdata/tiny.cnf", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAdd(4, nil, []int64{2, 3, 1}))
	require.NoError(t, w.Flush())

	c := NewChecker(idx)
	verified, err := c.Check(NewReader(&buf))
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestChecker_rejectsNonIncreasingID(t *testing.T) {
	idx, err := cnfindex.Load("../cnfindex/testdata/tiny.cnf", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAdd(4, []Literal{-1, -2}, []int64{2}))
	require.NoError(t, w.WriteAdd(4, nil, []int64{2, 3, 1}))
	require.NoError(t, w.Flush())

	c := NewChecker(idx)
	verified, err := c.Check(NewReader(&buf))
	assert.False(t, verified)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not increasing")
}

func TestChecker_failsOnUnsupportedStep(t *testing.T) {
	idx, err := cnfindex.Load("../cnfindex/testdata/tiny.cnf", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	// Clause {3} is neither implied nor hinted correctly by clause 1.
	require.NoError(t, w.WriteAdd(4, []Literal{3}, []int64{1}))
	require.NoError(t, w.Flush())

	c := NewChecker(idx)
	verified, err := c.Check(NewReader(&buf))
	assert.False(t, verified)
	assert.Error(t, err)
}
