// Package lrat implements the LRAT line writer and the LRAT
// checker: replaying a previously-elaborated proof against
// the original DIMACS problem and confirming it derives the empty
// clause.
package lrat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rhartert/fratelab/internal/sat"
)

// Literal mirrors the module-wide signed-integer literal convention.
type Literal = sat.Literal

// Step is one parsed or to-be-written LRAT line: either an addition
// (with its clause and hint chain, RAT blocks marked by negative
// entries) or a deletion (a list of clause ids to drop).
type Step struct {
	ID       uint64
	IsDelete bool
	Lits     []Literal // addition only
	Hints    []int64   // addition only: positive antecedents, negative RAT separators
	Deletes  []uint64  // deletion only
}

// Writer emits LRAT lines in the ASCII format: an addition
// is "new-id lit* 0 hint* 0"; a deletion is "prev-id d old-id* 0".
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter wraps w as an LRAT line sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteAdd emits an addition line.
func (w *Writer) WriteAdd(id uint64, lits []Literal, hints []int64) error {
	if w.err != nil {
		return w.err
	}
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(id, 10))
	for _, l := range lits {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(int64(l), 10))
	}
	sb.WriteString(" 0")
	for _, h := range hints {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(h, 10))
	}
	sb.WriteString(" 0\n")
	_, w.err = w.w.WriteString(sb.String())
	return w.err
}

// WriteDelete emits a deletion line citing the given id as the
// "current" clause (LRAT deletions are expressed relative to the most
// recently added clause).
func (w *Writer) WriteDelete(atID uint64, names []uint64) error {
	if w.err != nil {
		return w.err
	}
	if len(names) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(atID, 10))
	sb.WriteString(" d")
	for _, n := range names {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(n, 10))
	}
	sb.WriteString(" 0\n")
	_, w.err = w.w.WriteString(sb.String())
	return w.err
}

// WriteComment emits an "id c text" comment line.
func (w *Writer) WriteComment(id uint64, text string) error {
	if w.err != nil {
		return w.err
	}
	_, w.err = fmt.Fprintf(w.w, "%d c %s\n", id, text)
	return w.err
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Reader decodes LRAT lines back into Steps, used by the checker (and
// by lratchk) to replay a previously-written proof.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r as an LRAT line source.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next step, or io.EOF at end of stream. Comment lines
// are skipped transparently.
func (r *Reader) Next() (Step, error) {
	for r.sc.Scan() {
		line := strings.TrimSpace(r.sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		id, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return Step{}, fmt.Errorf("lrat: malformed id %q: %w", fields[0], err)
		}
		rest := fields[1:]
		if len(rest) == 0 {
			return Step{}, fmt.Errorf("lrat: line %d: truncated", id)
		}
		if rest[0] == "c" {
			continue
		}
		if rest[0] == "d" {
			names, err := parseU64ZeroTerminated(rest[1:])
			if err != nil {
				return Step{}, err
			}
			return Step{ID: id, IsDelete: true, Deletes: names}, nil
		}
		lits, hints, err := parseAddLine(rest)
		if err != nil {
			return Step{}, err
		}
		return Step{ID: id, Lits: lits, Hints: hints}, nil
	}
	if err := r.sc.Err(); err != nil {
		return Step{}, err
	}
	return Step{}, io.EOF
}

func parseU64ZeroTerminated(fields []string) ([]uint64, error) {
	var out []uint64
	for _, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lrat: malformed integer %q: %w", f, err)
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, uint64(n))
	}
	return nil, fmt.Errorf("lrat: missing terminating 0")
}

func parseAddLine(fields []string) ([]Literal, []int64, error) {
	var lits []Literal
	i := 0
	for ; i < len(fields); i++ {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("lrat: malformed integer %q: %w", fields[i], err)
		}
		if n == 0 {
			i++
			break
		}
		lits = append(lits, Literal(n))
	}
	var hints []int64
	for ; i < len(fields); i++ {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("lrat: malformed integer %q: %w", fields[i], err)
		}
		if n == 0 {
			break
		}
		hints = append(hints, n)
	}
	return lits, hints, nil
}
