// Package dot writes undirected graphviz graph files in the layout expected
// by the dot and neato renderers.
package dot

import (
	"fmt"
	"io"

	"emperror.dev/errors"
)

// Writer emits a single "graph G { ... }" document to an underlying stream.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter starts a graph document on w.
func NewWriter(w io.Writer) *Writer {
	g := &Writer{w: w}
	g.printf("graph G {\n")
	g.printf("overlap=false\n")
	return g
}

func (g *Writer) printf(format string, args ...interface{}) {
	if g.err != nil {
		return
	}
	if _, err := fmt.Fprintf(g.w, format, args...); err != nil {
		g.err = errors.WithStack(err)
	}
}

// NodeStyle holds the visual attributes applied to a node.
type NodeStyle struct {
	Width    float64
	Height   float64
	Shape    string
	Colour   string
	FontSize int
}

// DefaultNodeStyle is a small black circle.
var DefaultNodeStyle = NodeStyle{Width: 0.3, Height: 0.3, Shape: "circle", Colour: "black", FontSize: 14}

// Node adds a labeled node to the graph.
func (g *Writer) Node(name string, label string, style NodeStyle) {
	g.printf("node[width=%v,height=%v,shape=%s,colour=%s,fontsize=%d];\n",
		style.Width, style.Height, style.Shape, style.Colour, style.FontSize)
	g.printf("%s [label=\"%s\"];\n", name, label)
}

// EdgeStyle holds the visual attributes applied to an edge.
type EdgeStyle struct {
	Colour string
	Length string
	Weight string
	Dir    string
}

// DefaultEdgeStyle is a plain undirected black edge.
var DefaultEdgeStyle = EdgeStyle{Colour: "black", Length: "10", Weight: "1", Dir: "none"}

// Edge links two nodes.
func (g *Writer) Edge(parent string, child string, style EdgeStyle) {
	g.printf("edge[color=%s,len=%s,weight=%s,dir=%s];\n",
		style.Colour, style.Length, style.Weight, style.Dir)
	g.printf("%s -- %s;\n", parent, child)
}

// Close terminates the graph document and reports any write error from the
// document as a whole.
func (g *Writer) Close() error {
	g.printf("}\n")
	return g.err
}
