package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mtcc/asmdir"
	"mtcc/objwriter"
	"mtcc/section"
	"mtcc/token"
)

func newBuildCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "build <file.s>",
		Short: "assemble a GAS-flavor source file into an ELF64 relocatable object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "a.o"
			}
			return runBuild(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output object file (default a.o)")
	return cmd
}

func runBuild(path, output string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mtccas: %w", err)
	}

	in := token.NewInterner()
	toks, err := lex(string(src), path, in)
	if err != nil {
		return err
	}

	st := section.New(in)
	text := st.FindOrCreateSection(".text", section.Progbits)
	asm := asmdir.New(st, in, text)

	if err := asm.Run(token.NewStream(toks)); err != nil {
		for _, w := range asm.Diag.Warnings {
			fmt.Fprintf(os.Stderr, "mtccas: warning: %s\n", w)
		}
		for _, e := range asm.Diag.Errors {
			fmt.Fprintf(os.Stderr, "mtccas: %s\n", e)
		}
		return fmt.Errorf("mtccas: assembly of %s failed", path)
	}
	for _, w := range asm.Diag.Warnings {
		fmt.Fprintf(os.Stderr, "mtccas: warning: %s\n", w)
	}

	obj := objwriter.Write(st)
	if err := os.WriteFile(output, obj, 0o644); err != nil {
		return fmt.Errorf("mtccas: %w", err)
	}
	return nil
}
