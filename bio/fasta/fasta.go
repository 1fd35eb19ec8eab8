// Package fasta reads and writes FASTA formatted sequence files. Only roman
// alphabet characters and the gap character '-' are accepted in sequences;
// anything else is treated as file corruption.
package fasta

import (
	"bufio"
	"io"
	"os"
	"strings"

	"emperror.dev/errors"
)

// Record is a single named sequence.
type Record struct {
	Name     string
	Sequence string
}

// NormalizeHeader trims a header to its first whitespace separated token.
// Many downstream tools mishandle whitespace in headers.
func NormalizeHeader(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// EncodeHeader joins attributes into a single pipe delimited header token.
// Attributes must not themselves contain whitespace.
func EncodeHeader(attributes []string) (string, error) {
	for _, a := range attributes {
		if len(strings.Fields(a)) != 1 {
			return "", errors.Errorf("fasta: header attribute '%s' contains whitespace", a)
		}
	}
	return strings.Join(attributes, "|"), nil
}

// DecodeHeader splits a pipe delimited header back into its attributes.
func DecodeHeader(header string) []string {
	return strings.Split(header, "|")
}

func validSequenceByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '-'
}

// Reader yields one record per '>' header encountered. Lines beginning with
// '#' inside a sequence body are ignored, as are spaces and tabs.
type Reader struct {
	s       *bufio.Scanner
	pending string
	done    bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{s: bufio.NewScanner(r)}
}

// Read returns the next record, or io.EOF once the input is exhausted.
func (r *Reader) Read() (Record, error) {
	name, ok := r.nextHeader()
	if !ok {
		if err := r.s.Err(); err != nil {
			return Record{}, errors.WithStack(err)
		}
		return Record{}, io.EOF
	}

	var seq strings.Builder
	for r.s.Scan() {
		line := r.s.Text()
		if strings.HasPrefix(line, ">") {
			r.pending = line
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		for i := 0; i < len(line); i++ {
			b := line[i]
			if b == ' ' || b == '\t' {
				continue
			}
			if !validSequenceByte(b) {
				return Record{}, errors.Errorf("fasta: invalid character %q in sequence for '%s'", b, name)
			}
			seq.WriteByte(b)
		}
	}
	if err := r.s.Err(); err != nil {
		return Record{}, errors.WithStack(err)
	}
	return Record{Name: name, Sequence: seq.String()}, nil
}

// nextHeader advances to the next '>' line, skipping any junk before it.
func (r *Reader) nextHeader() (string, bool) {
	if r.pending != "" {
		h := r.pending[1:]
		r.pending = ""
		return h, true
	}
	if r.done {
		return "", false
	}
	for r.s.Scan() {
		line := r.s.Text()
		if strings.HasPrefix(line, ">") {
			return line[1:], true
		}
	}
	r.done = true
	return "", false
}

// ReadAll returns every record in the input.
func ReadAll(r io.Reader) ([]Record, error) {
	fr := NewReader(r)
	var records []Record
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// Write writes a single record. The sequence is validated before anything is
// written so a bad record cannot leave a partial entry behind.
func Write(w io.Writer, name string, seq string) error {
	for i := 0; i < len(seq); i++ {
		if !validSequenceByte(seq[i]) {
			return errors.Errorf("fasta: invalid character %q in sequence for '%s'", seq[i], name)
		}
	}
	if _, err := io.WriteString(w, ">"+name+"\n"+seq+"\n"); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ReadHeaders returns the header lines of a FASTA file without their leading
// '>' and without reading sequence bodies into memory.
func ReadHeaders(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var headers []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if line := s.Text(); strings.HasPrefix(line, ">") {
			headers = append(headers, line[1:])
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return headers, nil
}
