// Command mtccas is the thin driver layer around mtcc's core packages: it
// reads a .s file, runs it through the assembler/directive engine, and
// writes the resulting object. The spec puts driver-level concerns (file
// I/O, a command tree) explicitly out of core scope; this stays as small
// as that scope allows.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mtccas",
		Short: "mtcc's GAS-flavor assembler driver",
	}
	root.AddCommand(newBuildCmd())
	root.AddCommand(newDumpCmd())
	return root
}
