// Package pwm handles position weight matrices in the standard row-per-base
// layout: one line per alphabet character, one column per residue position.
package pwm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"emperror.dev/errors"
)

// AlphabetSize is the number of rows in a DNA weight matrix.
const AlphabetSize = 4

// Matrix holds one probability vector per residue position; each vector has
// AlphabetSize entries that sum to one.
type Matrix [][]float64

// Read parses a weight matrix and normalizes each position so its
// probabilities sum to one.
func Read(r io.Reader) (Matrix, error) {
	var rows [][]float64
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		var row []float64
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.WrapIff(err, "pwm: invalid weight '%s'", field)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	if err := s.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(rows) != AlphabetSize {
		return nil, errors.Errorf("pwm: expected %d rows, got %d", AlphabetSize, len(rows))
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("pwm: row %d has %d columns, expected %d", i, len(row), width)
		}
	}

	m := make(Matrix, width)
	for i := 0; i < width; i++ {
		column := make([]float64, AlphabetSize)
		var total float64
		for j := 0; j < AlphabetSize; j++ {
			column[j] = rows[j][i]
			total += rows[j][i]
		}
		for j := range column {
			column[j] /= total
		}
		m[i] = column
	}
	return m, nil
}

// Write emits the matrix in the same row-per-base layout Read accepts.
func Write(w io.Writer, m Matrix) error {
	for i := 0; i < AlphabetSize; i++ {
		fields := make([]string, len(m))
		for j := range m {
			fields[j] = fmt.Sprintf("%v", m[j][i])
		}
		if _, err := io.WriteString(w, strings.Join(fields, " ")+"\n"); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
