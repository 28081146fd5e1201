package cnfindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	idx, err := Load("testdata/tiny.cnf", false)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.NumVars)
	require.Len(t, idx.Clauses, 3)
	assert.Equal(t, []Literal{1, 2}, idx.Clauses[0].Lits)
	assert.Equal(t, 1, idx.Clauses[0].Pos)
}

func TestLoad_gzip(t *testing.T) {
	idx, err := Load("testdata/tiny.cnf.gz", true)
	require.NoError(t, err)
	assert.Len(t, idx.Clauses, 3)
}

func TestFind_permutationInsensitive(t *testing.T) {
	idx, err := Load("testdata/tiny.cnf", false)
	require.NoError(t, err)

	pos, ok := idx.Find([]Literal{2, 1})
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = idx.Find([]Literal{1, 3})
	assert.False(t, ok)
}

func TestMultisetHash_orderInvariant(t *testing.T) {
	a := []Literal{1, -2, 3}
	b := []Literal{3, 1, -2}
	assert.Equal(t, multisetHash(a), multisetHash(b))
}

func TestSameMultiset(t *testing.T) {
	assert.True(t, sameMultiset([]Literal{1, 2, 2}, []Literal{2, 1, 2}))
	assert.False(t, sameMultiset([]Literal{1, 2}, []Literal{1, 2, 2}))
	assert.False(t, sameMultiset([]Literal{1, 2}, []Literal{1, 3}))
}
