package fasta

import (
	"math/rand"
	"strings"
)

var bases = []byte{'A', 'C', 'T', 'G'}

// RandomRecord generates a record with a noisy header and a DNA sequence of
// up to maxLength bases, with the occasional 'N'. Useful for fuzzing tools
// that consume FASTA input.
func RandomRecord(maxLength int) Record {
	headerChars := []byte{'A', 'C', '0', '9', ' ', '\t'}
	var header strings.Builder
	for i := 0; i < rand.Intn(100); i++ {
		header.WriteByte(headerChars[rand.Intn(len(headerChars))])
	}

	var seq strings.Builder
	n := 0
	if maxLength > 0 {
		n = rand.Intn(maxLength)
	}
	for i := 0; i < n; i++ {
		// Roughly one in twenty one bases is unknown.
		if rand.Intn(21) == 20 {
			seq.WriteByte('N')
		} else {
			seq.WriteByte(bases[rand.Intn(len(bases))])
		}
	}
	return Record{Name: header.String(), Sequence: seq.String()}
}

// expLength samples a geometrically distributed length with continuation
// probability prob.
func expLength(prob float64) int {
	i := 0
	for rand.Float64() < prob {
		i++
	}
	return i
}

// Mutate applies substitutions, insertions and deletions to seq at a rate
// proportional to distance, returning the mutated copy.
func Mutate(seq string, distance float64) string {
	subProb := distance
	inProb := 0.05 * distance
	deProb := 0.05 * distance
	contProb := 0.9

	var out strings.Builder
	for i := 0; i < len(seq); i++ {
		if rand.Float64() < subProb {
			out.WriteByte(bases[rand.Intn(len(bases))])
		} else {
			out.WriteByte(seq[i])
		}
		if rand.Float64() < inProb {
			out.WriteString(RandomRecord(expLength(contProb) + 1).Sequence)
		}
		if rand.Float64() < deProb {
			i += expLength(contProb)
		}
	}
	return out.String()
}

var complements = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
	'a': 't', 't': 'a', 'c': 'g', 'g': 'c',
}

// ReverseComplement returns the reverse complement of a DNA sequence.
// Characters without a complement, such as 'N' or the gap character, are
// carried through unchanged.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		b := seq[len(seq)-1-i]
		if c, ok := complements[b]; ok {
			out[i] = c
		} else {
			out[i] = b
		}
	}
	return string(out)
}
