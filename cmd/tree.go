package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/bio/dot"
	"github.com/cvaske/sonLib/bio/newick"
	"github.com/cvaske/sonLib/internal/run"
	"github.com/cvaske/sonLib/loggers/cli"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Work with newick formatted phylogenetic trees.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		log.SetHandler(cli.Default)
	},
}

var treeDotArgs struct {
	Output string
	Render string
	Sort   bool
}

var treeDotCmd = &cobra.Command{
	Use:   "dot tree",
	Short: "Convert a newick tree to a graphviz dot file.",
	Long:  "Accepts either a newick string or the path of a file containing one, and writes the tree as an undirected graphviz graph.",
	Args:  cobra.ExactArgs(1),
	Run:   treeDotRun,
}

func init() {
	treeDotCmd.Flags().StringVarP(&treeDotArgs.Output, "output", "o", "tree.dot", "path of the dot file to write")
	treeDotCmd.Flags().StringVar(&treeDotArgs.Render, "render", "", "also render the graph with graphviz to the given format, e.g. pdf or svg")
	treeDotCmd.Flags().BoolVar(&treeDotArgs.Sort, "sort", false, "order polytomy children by branch length while parsing")

	treeCmd.AddCommand(treeDotCmd)
}

// readNewickArg treats the argument as a file path when one exists, and as a
// literal newick string otherwise.
func readNewickArg(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		b, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return arg, nil
}

func treeDotRun(cmd *cobra.Command, args []string) {
	s, err := readNewickArg(args[0])
	if err != nil {
		log.WithField("error", err).Fatal("failed to read newick input")
	}
	tree := newick.Parse(strings.TrimSpace(s), newick.Options{SortChildren: treeDotArgs.Sort})
	if tree == nil {
		log.Fatal("input does not contain a newick tree")
	}

	f, err := os.Create(treeDotArgs.Output)
	if err != nil {
		log.WithField("error", err).Fatal("failed to create output file")
	}
	g := dot.NewWriter(f)
	writeTreeNodes(g, tree, "")
	if err := g.Close(); err != nil {
		log.WithField("error", err).Fatal("failed to write graph")
	}
	if err := f.Close(); err != nil {
		log.WithField("error", err).Fatal("failed to write graph")
	}
	log.WithField("path", treeDotArgs.Output).Info("wrote tree graph")

	if treeDotArgs.Render != "" {
		out := strings.TrimSuffix(treeDotArgs.Output, ".dot") + "." + treeDotArgs.Render
		if err := run.Graphviz(context.Background(), treeDotArgs.Output, out, treeDotArgs.Render); err != nil {
			log.WithField("error", err).Fatal("failed to render graph")
		}
		log.WithField("path", out).Info("rendered tree graph")
	}
}

// writeTreeNodes emits the tree into g, naming nodes by their position so
// repeated leaf labels cannot collide.
func writeTreeNodes(g *dot.Writer, n *newick.Node, name string) {
	if name == "" {
		name = "n"
	}
	g.Node(name, n.ID, dot.DefaultNodeStyle)
	for i, child := range []*newick.Node{n.Left, n.Right} {
		if child == nil {
			continue
		}
		childName := name + strconv.Itoa(i)
		writeTreeNodes(g, child, childName)
		style := dot.DefaultEdgeStyle
		style.Length = fmt.Sprintf("%f", child.Distance)
		g.Edge(name, childName, style)
	}
}
