// Package cigar reads and writes exonerate style cigar alignment lines. Note
// the on-disk order is target first, then query; NewAlignment and the
// Alignment fields use query first.
package cigar

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"emperror.dev/errors"
)

// OpType labels an alignment operation.
type OpType int

const (
	// Match aligns a segment of both sequences.
	Match OpType = iota
	// IndelY is a gap in the query, consuming only target.
	IndelY
	// IndelX is a gap in the target, consuming only query.
	IndelX
)

// Operation is a single run of an alignment.
type Operation struct {
	Type   OpType
	Length int
	Score  float64
}

func (op Operation) String() string {
	return fmt.Sprintf("Type: %d Length: %d Score: %f", op.Type, op.Length, op.Score)
}

// Alignment is a scored pairwise alignment between a query segment (1) and a
// target segment (2). A coordinate pair on the reverse strand has start
// greater than end.
type Alignment struct {
	Contig1 string
	Start1  int
	End1    int
	Strand1 bool
	Contig2 string
	Start2  int
	End2    int
	Strand2 bool
	Score   float64
	Ops     []Operation
}

func checkSegment(start, end int, strand bool) error {
	if start < 0 || end < 0 {
		return errors.New("cigar: negative coordinate")
	}
	if strand && start > end {
		return errors.Errorf("cigar: forward strand segment with start %d after end %d", start, end)
	}
	if !strand && end > start {
		return errors.Errorf("cigar: reverse strand segment with end %d after start %d", end, start)
	}
	return nil
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// NewAlignment validates segment coordinates and checks the operation list
// against the lengths of both segments.
func NewAlignment(contig1 string, start1, end1 int, strand1 bool, contig2 string, start2, end2 int, strand2 bool, score float64, ops []Operation) (*Alignment, error) {
	if err := checkSegment(start1, end1, strand1); err != nil {
		return nil, err
	}
	if err := checkSegment(start2, end2, strand2); err != nil {
		return nil, err
	}

	var lenX, lenY int
	for _, op := range ops {
		if op.Type != IndelY {
			lenX += op.Length
		}
		if op.Type != IndelX {
			lenY += op.Length
		}
	}
	if lenX != abs(end1-start1) {
		return nil, errors.Errorf("cigar: operations cover %d query bases, segment spans %d", lenX, abs(end1-start1))
	}
	if lenY != abs(end2-start2) {
		return nil, errors.Errorf("cigar: operations cover %d target bases, segment spans %d", lenY, abs(end2-start2))
	}

	return &Alignment{
		Contig1: contig1, Start1: start1, End1: end1, Strand1: strand1,
		Contig2: contig2, Start2: start2, End2: end2, Strand2: strand2,
		Score: score, Ops: ops,
	}, nil
}

var linePattern = regexp.MustCompile(`cigar:\s+(\S+)\s+([0-9]+)\s+([0-9]+)\s+([+\-.])\s+(\S+)\s+([0-9]+)\s+([0-9]+)\s+([+\-.])\s+(\S+)(\s+(.*))?`)

// opCodes maps on-disk operation letters to their type and whether a score
// field follows the length.
var opCodes = map[string]struct {
	typ    OpType
	scored bool
}{
	"M": {Match, false},
	"D": {IndelX, false},
	"I": {IndelY, false},
	"X": {Match, true},
	"Y": {IndelX, true},
	"Z": {IndelY, true},
}

// Read parses every cigar line in the input, silently skipping lines that do
// not match the format.
func Read(r io.Reader) ([]*Alignment, error) {
	var alignments []*Alignment
	s := bufio.NewScanner(r)
	for s.Scan() {
		m := linePattern.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}

		ops, err := parseOps(strings.Fields(m[11]))
		if err != nil {
			return nil, err
		}

		start1, _ := strconv.Atoi(m[2])
		end1, _ := strconv.Atoi(m[3])
		start2, _ := strconv.Atoi(m[6])
		end2, _ := strconv.Atoi(m[7])
		score, err := strconv.ParseFloat(m[9], 64)
		if err != nil {
			return nil, errors.WrapIff(err, "cigar: invalid score '%s'", m[9])
		}

		// On disk the target segment comes first.
		a, err := NewAlignment(m[5], start2, end2, m[8] == "+", m[1], start1, end1, m[4] == "+", score, ops)
		if err != nil {
			return nil, err
		}
		alignments = append(alignments, a)
	}
	if err := s.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return alignments, nil
}

func parseOps(fields []string) ([]Operation, error) {
	var ops []Operation
	for i := 0; i < len(fields); {
		code, ok := opCodes[fields[i]]
		if !ok {
			return nil, errors.Errorf("cigar: unknown operation '%s'", fields[i])
		}
		if i+1 >= len(fields) {
			return nil, errors.Errorf("cigar: operation '%s' missing length", fields[i])
		}
		length, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, errors.WrapIff(err, "cigar: invalid operation length '%s'", fields[i+1])
		}
		op := Operation{Type: code.typ, Length: length}
		i += 2
		if code.scored {
			if i >= len(fields) {
				return nil, errors.Errorf("cigar: scored operation missing score")
			}
			if op.Score, err = strconv.ParseFloat(fields[i], 64); err != nil {
				return nil, errors.WrapIff(err, "cigar: invalid operation score '%s'", fields[i])
			}
			i++
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func strandString(strand bool) string {
	if strand {
		return "+"
	}
	return "-"
}

// Write emits the alignment as a single cigar line, target segment first.
// When withScores is set the scored operation letters X/Y/Z are used.
func Write(w io.Writer, a *Alignment, withScores bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "cigar: %s %d %d %s %s %d %d %s %f",
		a.Contig2, a.Start2, a.End2, strandString(a.Strand2),
		a.Contig1, a.Start1, a.End1, strandString(a.Strand1),
		a.Score)
	for _, op := range a.Ops {
		if withScores {
			letters := map[OpType]string{Match: "X", IndelX: "Y", IndelY: "Z"}
			fmt.Fprintf(&b, " %s %d %f", letters[op.Type], op.Length, op.Score)
		} else {
			letters := map[OpType]string{Match: "M", IndelX: "D", IndelY: "I"}
			fmt.Fprintf(&b, " %s %d", letters[op.Type], op.Length)
		}
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
