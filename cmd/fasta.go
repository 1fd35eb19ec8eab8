package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/bio/fasta"
	"github.com/cvaske/sonLib/loggers/cli"
)

var fastaCmd = &cobra.Command{
	Use:   "fasta",
	Short: "Work with FASTA formatted sequence files.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		log.SetHandler(cli.Default)
	},
}

var fastaHeadersArgs struct {
	Normalize bool
}

var fastaHeadersCmd = &cobra.Command{
	Use:   "headers file...",
	Short: "Print the header of every record in the given files.",
	Args:  cobra.MinimumNArgs(1),
	Run:   fastaHeadersRun,
}

var fastaRandomArgs struct {
	Count     int
	MaxLength int
}

var fastaRandomCmd = &cobra.Command{
	Use:   "random",
	Short: "Generate random FASTA records for testing downstream tools.",
	Run:   fastaRandomRun,
}

func init() {
	fastaHeadersCmd.Flags().BoolVar(&fastaHeadersArgs.Normalize, "normalize", false, "trim headers to their first whitespace separated token")

	fastaRandomCmd.Flags().IntVarP(&fastaRandomArgs.Count, "count", "n", 1, "number of records to generate")
	fastaRandomCmd.Flags().IntVar(&fastaRandomArgs.MaxLength, "max-length", 500, "maximum sequence length")

	fastaCmd.AddCommand(fastaHeadersCmd)
	fastaCmd.AddCommand(fastaRandomCmd)
}

func fastaHeadersRun(cmd *cobra.Command, args []string) {
	for _, path := range args {
		headers, err := fasta.ReadHeaders(path)
		if err != nil {
			log.WithField("path", path).WithField("error", err).Fatal("failed to read headers")
		}
		for _, h := range headers {
			if fastaHeadersArgs.Normalize {
				h = fasta.NormalizeHeader(h)
			}
			fmt.Println(h)
		}
	}
}

func fastaRandomRun(cmd *cobra.Command, _ []string) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for i := 0; i < fastaRandomArgs.Count; i++ {
		rec := fasta.RandomRecord(fastaRandomArgs.MaxLength)
		// Random headers may contain whitespace, which downstream tools
		// often reject, so normalize them on the way out.
		name := fasta.NormalizeHeader(rec.Name)
		if name == "" {
			name = fmt.Sprintf("random_%d", i)
		}
		if err := fasta.Write(w, name, rec.Sequence); err != nil {
			log.WithField("error", err).Fatal("failed to write record")
		}
	}
}
