// Package asmdir is the Directive & Label Engine (spec §4.4): it drives a
// token.Stream statement by statement, dispatching GAS directives, binding
// labels (both named and the local-numeric "Nb"/"Nf" family), and managing
// the section stack, using asmexpr to evaluate the expressions a directive's
// operands carry.
package asmdir

import (
	"fmt"
	"strings"

	"mtcc/asmexpr"
	"mtcc/emit"
	"mtcc/section"
	"mtcc/token"
)

// Assembler is the single mutable context a .s file is assembled against —
// one per compilation unit, matching spec §5's "entire compilation context
// is owned by one compilation-state object".
type Assembler struct {
	Store *section.Store
	Diag  Diagnostics

	interner *token.Interner
	eval     *asmexpr.Evaluator

	cur    *section.Section
	em     *emit.Emitter
	locals *localLabels

	localCounter int

	// lastSection is the independent single-slot toggle `.previous`
	// restores (tccasm.c's tccasm_last_text_section): recorded by both
	// plain `.section` and `.pushsection` right before they switch,
	// entirely separate from the .pushsection/.popsection stack.
	lastSection *section.Section
}

// New returns an Assembler over st, starting in the named default section
// (typically ".text"), using in to intern synthetic local-label names.
func New(st *section.Store, in *token.Interner, defaultSection *section.Section) *Assembler {
	a := &Assembler{Store: st, interner: in, cur: defaultSection, locals: newLocalLabels()}
	a.eval = asmexpr.New(a)
	a.em = emit.New(defaultSection)
	return a
}

// Current returns the active section.
func (a *Assembler) Current() *section.Section { return a.cur }

func (a *Assembler) setCurrent(s *section.Section) {
	a.cur = s
	a.em = emit.New(s)
}

// --- asmexpr.LabelResolver ---

func (a *Assembler) LocalLabelBackward(n int) (*section.Symbol, error) { return a.locals.backward(n) }

func (a *Assembler) LocalLabelForward(n int) (*section.Symbol, error) {
	return a.locals.forward(n, a.newLocalSymbol), nil
}

func (a *Assembler) Here() (int64, *section.Symbol) {
	return int64(a.cur.DataOffset), &section.Symbol{Shndx: a.cur.ShNum}
}

func (a *Assembler) CurrentTextSection() *section.Section { return a.cur }

func (a *Assembler) SymbolSection(sym *section.Symbol) *section.Section {
	if sym == nil || !sym.Defined() {
		return nil
	}
	return a.Store.Section(sym.Shndx)
}

func (a *Assembler) AsmLabelFind(name string) *section.Symbol {
	id, ok := a.interner.Lookup(name)
	if !ok {
		return nil
	}
	return a.Store.AsmLabelFind(id)
}

// newLocalSymbol allocates a fresh, uniquely-named local-label symbol and
// pushes it onto the shared symbol table so it can carry a relocation.
func (a *Assembler) newLocalSymbol() *section.Symbol {
	a.localCounter++
	id := a.interner.Intern(fmt.Sprintf(".L%d.%d", a.localCounter, len(a.locals.defs)))
	return a.Store.SymPush(id, section.StorageFlags{Static: true})
}

// evalExpr parses and evaluates one expression starting at s's current
// token.
func (a *Assembler) evalExpr(s token.Stream) (asmexpr.Value, error) {
	return a.eval.Eval(s)
}

// --- Driver loop ---

// Run drives the assembler over every statement in s until EOF (spec §4.4:
// "the directive engine is the entry point driven statement by statement").
func (a *Assembler) Run(s token.Stream) error {
	for {
		t := s.Peek()
		if t.Kind == token.EOF {
			return nil
		}
		if t.Kind == token.Linefeed || (t.Kind == token.Punct && t.Int == ';') {
			s.Next()
			continue
		}
		if err := a.statement(s); err != nil {
			return err
		}
	}
}

func (a *Assembler) statement(s token.Stream) error {
	t := s.Peek()

	if t.Kind == token.PPNumber && isAllDigits(t.Str) {
		n := mustAtoi(t.Str)
		nxt := s.Next()
		if nxt.Kind == token.Punct && nxt.Int == ':' {
			s.Next()
			return a.defineLocalLabel(n)
		}
		return a.skipToLineEnd(s)
	}

	if t.Kind == token.Ident && strings.HasPrefix(t.Str, ".") {
		return a.directive(s, t)
	}

	if t.Kind == token.Ident {
		name := t.Str
		nxt := s.Next()
		if nxt.Kind == token.Punct && nxt.Int == ':' {
			s.Next()
			return a.defineNamedLabel(name)
		}
		// Not a label: an instruction mnemonic statement. mtcc's core
		// scope is directives/expressions/labels/sections (spec §2); raw
		// GAS mnemonic text is outside the seven core components, so
		// unrecognised instruction statements are skipped to the next
		// line rather than encoded here (callers that need instruction
		// bytes drive x64.Encoder directly, as spec §8's scenarios do).
		return a.skipToLineEnd(s)
	}

	return a.skipToLineEnd(s)
}

func (a *Assembler) skipToLineEnd(s token.Stream) error {
	for {
		t := s.Peek()
		if t.Kind == token.EOF || t.Kind == token.Linefeed {
			return nil
		}
		s.Next()
	}
}

func (a *Assembler) defineLocalLabel(n int) error {
	sym := a.locals.forward(n, a.newLocalSymbol)
	if err := sym.Define(a.cur.ShNum, uint64(a.cur.DataOffset)); err != nil {
		return a.Diag.Errorf("asmdir: %db: %v", n, err)
	}
	a.locals.define(n, sym)
	return nil
}

func (a *Assembler) defineNamedLabel(name string) error {
	sym := a.Store.AsmLabelPush(a.interner.Intern(name))
	if err := sym.Define(a.cur.ShNum, uint64(a.cur.DataOffset)); err != nil {
		return a.Diag.Errorf("asmdir: %s: %v", name, err)
	}
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mustAtoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
