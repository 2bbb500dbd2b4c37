package main

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/asmfmt"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var listing bool
	cmd := &cobra.Command{
		Use:   "dump <file.o>",
		Short: "print the symbol table of an mtccas-built object, and optionally its .text byte listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], listing, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&listing, "listing", false, "also print a BYTE-per-byte .text listing, asmfmt-formatted")
	return cmd
}

func runDump(path string, listing bool, out io.Writer) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("mtccas: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return fmt.Errorf("mtccas: reading symbols: %w", err)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Value < syms[j].Value })

	fmt.Fprintf(out, "%-24s %-10s %8s %6s %s\n", "NAME", "VALUE", "SIZE", "SHNDX", "BIND")
	for _, s := range syms {
		bind := "LOCAL"
		switch elf.ST_BIND(s.Info) {
		case elf.STB_GLOBAL:
			bind = "GLOBAL"
		case elf.STB_WEAK:
			bind = "WEAK"
		}
		fmt.Fprintf(out, "%-24s 0x%08x %8d %6d %s\n", s.Name, s.Value, s.Size, s.Section, bind)
	}

	if !listing {
		return nil
	}
	text := f.Section(".text")
	if text == nil {
		return nil
	}
	data, err := text.Data()
	if err != nil {
		return fmt.Errorf("mtccas: reading .text: %w", err)
	}
	formatted, err := asmfmt.Format(strings.NewReader(byteListing(data)))
	if err != nil {
		return fmt.Errorf("mtccas: asmfmt: %w", err)
	}
	_, err = out.Write(formatted)
	return err
}

// byteListing renders .text's bytes as Go plan9-assembly BYTE pseudo-ops,
// the textual form asmfmt.Format actually understands — mtcc has no x86
// disassembler (out of spec scope), so this is the honest "annotated
// instruction stream" a byte-accurate dump can offer without inventing one.
func byteListing(data []byte) string {
	var b strings.Builder
	b.WriteString("TEXT ·dump(SB), $0\n")
	for i, by := range data {
		fmt.Fprintf(&b, "\tBYTE $0x%02x // offset %d\n", by, i)
	}
	b.WriteString("\tRET\n")
	return b.String()
}
