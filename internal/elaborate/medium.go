package elaborate

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/fratelab/internal/frat"
)

// Medium is the intermediate-stream plumbing between the backward and
// forward passes: the backward pass writes segments to it in
// its own tail-to-head traversal order, buffering nothing itself; the
// forward pass then reverse-parses whatever was written so that it
// replays in true head-to-tail (forward-chronological) order -- see
// DESIGN.md for why this, rather than a second explicit reversal step,
// is how "writes an intermediate reverse stream" / "forward pass can
// reverse-parse it" are realized here.
type Medium struct {
	writer *frat.Writer

	memBuf *bytes.Buffer // non-nil in in-memory (-m) mode
	file   *os.File      // non-nil in temp-file mode
}

// NewMemoryMedium keeps the intermediate stream entirely in memory (the
// "-m" CLI flag).
func NewMemoryMedium() *Medium {
	buf := &bytes.Buffer{}
	return &Medium{writer: frat.NewWriter(buf), memBuf: buf}
}

// NewFileMedium routes the intermediate stream through a temp file,
// the default (non "-m") mode; the file is left on disk on error so a
// failed run can still be inspected.
func NewFileMedium() (*Medium, error) {
	f, err := os.CreateTemp("", "frat-elab-intermediate-*.frat")
	if err != nil {
		return nil, fmt.Errorf("elaborate: creating intermediate temp file: %w", err)
	}
	return &Medium{writer: frat.NewWriter(f), file: f}, nil
}

// Writer returns the sink the backward pass appends segments to.
func (m *Medium) Writer() *frat.Writer {
	return m.writer
}

// Reversed flushes the writer and returns a ReverseReader over
// everything written so far, ready for the forward pass to consume
// head-to-tail in true chronological order.
func (m *Medium) Reversed() (*frat.ReverseReader, error) {
	if err := m.writer.Flush(); err != nil {
		return nil, fmt.Errorf("elaborate: flushing intermediate stream: %w", err)
	}
	var r io.Reader
	if m.memBuf != nil {
		r = bytes.NewReader(m.memBuf.Bytes())
	} else {
		if _, err := m.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("elaborate: rewinding intermediate file: %w", err)
		}
		r = m.file
	}
	return frat.NewReverseReaderASCII(r)
}

// Close releases the medium's resources. For file-backed media, the
// temp file is removed only on success; callers keep it on error per
// that path.
func (m *Medium) Close(success bool) error {
	if m.file == nil {
		return nil
	}
	path := m.file.Name()
	if err := m.file.Close(); err != nil {
		return err
	}
	if success {
		return os.Remove(path)
	}
	return nil
}
