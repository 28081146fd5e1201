package lrat

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_roundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAdd(4, []Literal{-1}, []int64{2}))
	require.NoError(t, w.WriteAdd(5, nil, []int64{4, 1, -3, 7}))
	require.NoError(t, w.WriteDelete(5, []uint64{2, 3}))
	require.NoError(t, w.WriteComment(5, "done"))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)

	s1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Step{ID: 4, Lits: []Literal{-1}, Hints: []int64{2}}, s1)

	s2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Step{ID: 5, Lits: nil, Hints: []int64{4, 1, -3, 7}}, s2)

	s3, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Step{ID: 5, IsDelete: true, Deletes: []uint64{2, 3}}, s3)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriteDelete_empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDelete(3, nil))
	require.NoError(t, w.Flush())
	assert.Empty(t, buf.String())
}
