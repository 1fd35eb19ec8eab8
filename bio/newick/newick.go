// Package newick implements a lax parser and printer for newick formatted
// phylogenetic trees. Polytomies are broken into left leaning binary nodes
// with zero length internal branches, so every parsed tree is binary.
package newick

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultDistance is assigned to any branch without an explicit length.
const DefaultDistance = 0.001

// Node is a vertex of a binary tree. Leaves have a nil Left and Right;
// internal nodes always have a Left, and a nil Right only when a unary node
// was kept during parsing.
type Node struct {
	Distance float64
	Internal bool
	Left     *Node
	Right    *Node
	ID       string
}

// Options adjust how the parser assembles the tree.
type Options struct {
	// DefaultDistance is used for branches without an explicit length.
	// Zero means DefaultDistance.
	DefaultDistance float64
	// SortChildren orders the children of a polytomy by branch length
	// before binarizing, making the output deterministic for unordered
	// inputs.
	SortChildren bool
	// KeepUnaryNodes preserves internal nodes with a single child instead
	// of collapsing them into the child's branch.
	KeepUnaryNodes bool
}

type parser struct {
	tokens []string
	pos    int
	opts   Options
}

var tokenSplit = regexp.MustCompile(`\s+`)

// Parse reads a newick tree from its string form. The parser is lax: a
// trailing semicolon is optional and unquoted labels may contain any
// character other than the structural ones.
func Parse(s string, opts Options) *Node {
	if opts.DefaultDistance == 0 {
		opts.DefaultDistance = DefaultDistance
	}

	r := strings.NewReplacer("(", " ( ", ")", " ) ", ":", " : ", ",", " , ", ";", "")
	var tokens []string
	for _, t := range tokenSplit.Split(r.Replace(s), -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	p := &parser{tokens: tokens, opts: opts}
	return p.subtree()
}

// distance consumes a ":<float>" pair if present.
func (p *parser) distance() float64 {
	if p.pos < len(p.tokens) && p.tokens[p.pos] == ":" {
		d, _ := strconv.ParseFloat(p.tokens[p.pos+1], 64)
		p.pos += 2
		return d
	}
	return p.opts.DefaultDistance
}

// label consumes a node label if present.
func (p *parser) label() string {
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t != ":" && t != ")" && t != "," {
			p.pos++
			return t
		}
	}
	return ""
}

func (p *parser) subtree() *Node {
	if p.pos >= len(p.tokens) {
		return nil
	}
	if p.tokens[p.pos] != "(" {
		id := p.label()
		return &Node{Distance: p.distance(), ID: id}
	}

	p.pos++
	var children []*Node
	for p.pos < len(p.tokens) && p.tokens[p.pos] != ")" {
		if p.tokens[p.pos] == "," {
			p.pos++
			continue
		}
		children = append(children, p.subtree())
	}
	p.pos++

	if p.opts.SortChildren {
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].Distance < children[j].Distance
		})
	}

	node := children[0]
	switch {
	case len(children) > 1:
		for _, c := range children[1:] {
			node = &Node{Internal: true, Left: node, Right: c}
		}
		node.ID = p.label()
		node.Distance += p.distance()
	case p.opts.KeepUnaryNodes:
		node = &Node{Internal: true, Left: node}
		node.ID = p.label()
		node.Distance += p.distance()
	default:
		// Collapse the unary node, folding its branch length into
		// the child's.
		p.label()
		node.Distance += p.distance()
	}
	return node
}

// FormatOptions control tree printing.
type FormatOptions struct {
	// IncludeDistances emits a ":<length>" suffix after every node.
	IncludeDistances bool
	// StopAtID treats labeled internal nodes as leaves, printing the
	// label without descending into the subtree.
	StopAtID bool
	// Distance formats a branch length. Nil means "%f".
	Distance func(float64) string
}

// Format renders the tree in newick form, terminated with a semicolon.
func Format(n *Node, opts FormatOptions) string {
	printDistance := opts.Distance
	if printDistance == nil {
		printDistance = func(f float64) string { return strconv.FormatFloat(f, 'f', 6, 64) }
	}
	var fn func(n *Node) string
	fn = func(n *Node) string {
		s := n.ID
		if n.Internal && (!opts.StopAtID || n.ID == "") {
			if n.Right != nil {
				s = "(" + fn(n.Left) + "," + fn(n.Right) + ")" + n.ID
			} else {
				s = "(" + fn(n.Left) + ")" + n.ID
			}
		}
		if opts.IncludeDistances {
			return s + ":" + printDistance(n.Distance)
		}
		return s
	}
	return fn(n) + ";"
}

// String renders the tree with branch lengths included.
func (n *Node) String() string {
	return Format(n, FormatOptions{IncludeDistances: true})
}
