package cigar

import "math/rand"

var contigs = []string{"one", "two", "three", "four"}

func randomSegment() (string, int, int, bool) {
	contig := contigs[rand.Intn(len(contigs))]
	start := rand.Intn(10000)
	end := start + rand.Intn(1000)
	strand := rand.Intn(2) == 0
	if !strand {
		start, end = end, start
	}
	return contig, start, end, strand
}

// RandomOps generates an operation list that exactly covers xLength query
// bases and yLength target bases.
func RandomOps(xLength, yLength, maxOpLength int) []Operation {
	if maxOpLength < 1 {
		maxOpLength = 1
	}
	var ops []Operation
	for xLength > 0 || yLength > 0 {
		typ := OpType(rand.Intn(3))
		length := 1
		if maxOpLength > 1 {
			length = 1 + rand.Intn(maxOpLength-1)
		}
		if typ != IndelY && xLength-length < 0 {
			continue
		}
		if typ != IndelX && yLength-length < 0 {
			continue
		}
		if typ != IndelY {
			xLength -= length
		}
		if typ != IndelX {
			yLength -= length
		}
		ops = append(ops, Operation{Type: typ, Length: length, Score: rand.Float64()})
	}
	return ops
}

// RandomAlignment generates a valid alignment over random segments, for use
// in round trip testing.
func RandomAlignment() *Alignment {
	c1, s1, e1, st1 := randomSegment()
	c2, s2, e2, st2 := randomSegment()
	score := float64(rand.Intn(2000) - 1000)
	a, err := NewAlignment(c1, s1, e1, st1, c2, s2, e2, st2, score, RandomOps(abs(e1-s1), abs(e2-s2), 100))
	if err != nil {
		// RandomOps covers both segments exactly, so this cannot fail.
		panic(err)
	}
	return a
}
