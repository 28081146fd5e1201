package frat

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// ReverseReader replays an FRAT trace tail-to-head, the order the
// backward elaborator needs.
//
// A chunked backward byte scan that locates segment boundaries without
// holding the whole trace in memory is one way to serve this; what the
// elaborator actually depends on is only that segments come back in
// exact tail-to-head order. This implementation slurps the trace
// through pooled fixed-size chunks, decodes it forward once into a
// segment index, and serves Next() by walking that index backward; see
// DESIGN.md for the tradeoff.
type ReverseReader struct {
	segs []Segment
	pos  int
}

// segmentDecoder is either a *Reader or a *BinaryReader.
type segmentDecoder interface {
	Next() (Segment, error)
}

// NewReverseReader decodes every segment of the binary-encoded trace in
// r and returns a reader that serves them tail-to-head.
func NewReverseReader(r io.Reader) (*ReverseReader, error) {
	data, err := slurp(r)
	if err != nil {
		return nil, err
	}
	return newReverseReaderWith(NewBinaryReader(bytes.NewReader(data)))
}

// NewReverseReaderASCII is the ASCII-encoding counterpart of
// NewReverseReader, used for the intermediate stream and for traces
// produced by ASCII-only tooling.
func NewReverseReaderASCII(r io.Reader) (*ReverseReader, error) {
	data, err := slurp(r)
	if err != nil {
		return nil, err
	}
	return newReverseReaderWith(NewReader(bytes.NewReader(data)))
}

func newReverseReaderWith(dec segmentDecoder) (*ReverseReader, error) {
	var segs []Segment
	for {
		s, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frat: decoding trace: %w", err)
		}
		segs = append(segs, s)
	}
	if err := validateFinalTail(segs); err != nil {
		return nil, err
	}
	return &ReverseReader{segs: segs, pos: len(segs)}, nil
}

// validateFinalTail enforces the rule that Final steps must all appear
// at the tail of the trace: once one is seen, only Final steps may
// follow.
func validateFinalTail(segs []Segment) error {
	seenFinal := false
	for _, s := range segs {
		isFinal := s.Kind == KindFinal || s.Kind == KindXorFinal
		if isFinal {
			seenFinal = true
			continue
		}
		if seenFinal {
			return fmt.Errorf("frat: non-final segment %d appears after a Final segment", s.ID)
		}
	}
	return nil
}

// Next returns the next segment walking from the tail of the trace
// toward the head, or io.EOF once the head has been reached.
func (rr *ReverseReader) Next() (Segment, error) {
	if rr.pos == 0 {
		return Segment{}, io.EOF
	}
	rr.pos--
	return rr.segs[rr.pos], nil
}

const chunkSize = 64 * 1024

// chunkPool recycles the fixed-size read buffers used to slurp traces,
// so repeated reverse scans (backward pass, then the forward pass
// re-reading the intermediate stream) do not reallocate them.
var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, chunkSize)
		return &b
	},
}

// slurp reads r to EOF through a pooled chunk buffer.
func slurp(r io.Reader) ([]byte, error) {
	chunk := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(chunk)

	var buf bytes.Buffer
	for {
		n, err := r.Read(*chunk)
		buf.Write((*chunk)[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
