package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/system"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the current executable version and exits.",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("sonlib v%s\n", system.Version)
	},
}
