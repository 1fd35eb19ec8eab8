package dot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEmitsGraphDocument(t *testing.T) {
	var buf bytes.Buffer

	g := NewWriter(&buf)
	g.Node("n0", "root", DefaultNodeStyle)
	g.Node("n1", "child", DefaultNodeStyle)
	g.Edge("n0", "n1", DefaultEdgeStyle)
	require.NoError(t, g.Close())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "graph G {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, "overlap=false\n")
	assert.Contains(t, out, `n0 [label="root"];`)
	assert.Contains(t, out, "n0 -- n1;")
	assert.Contains(t, out, "edge[color=black,len=10,weight=1,dir=none];")
	assert.Contains(t, out, "node[width=0.3,height=0.3,shape=circle,colour=black,fontsize=14];")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func TestWriterReportsWriteErrors(t *testing.T) {
	g := NewWriter(failingWriter{})
	g.Node("n0", "root", DefaultNodeStyle)
	require.Error(t, g.Close())
}
