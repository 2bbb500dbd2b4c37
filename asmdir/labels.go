package asmdir

import (
	"fmt"

	"mtcc/section"
)

// localLabels implements spec §4.3's "Local numeric labels" semantics: a
// literal integer n followed by 'b' refers to the most recent prior
// definition of synthetic label "L..n"; followed by 'f' it refers to the
// next definition, creating a forward-reference symbol when none is pending
// or the pending one is already defined.
type localLabels struct {
	defs    map[int][]*section.Symbol
	pending map[int]*section.Symbol
}

func newLocalLabels() *localLabels {
	return &localLabels{defs: make(map[int][]*section.Symbol), pending: make(map[int]*section.Symbol)}
}

func (l *localLabels) backward(n int) (*section.Symbol, error) {
	ds := l.defs[n]
	if len(ds) == 0 {
		return nil, fmt.Errorf("asmdir: local label %db never defined", n)
	}
	return ds[len(ds)-1], nil
}

// forward returns the symbol a "nf" reference should point at, calling
// newSym to allocate one when no forward reference is currently pending or
// the pending one has already been bound by a subsequent "n:".
func (l *localLabels) forward(n int, newSym func() *section.Symbol) *section.Symbol {
	p := l.pending[n]
	if p == nil || p.Defined() {
		p = newSym()
		l.pending[n] = p
	}
	return p
}

// define binds the label n to sym (already Define()'d onto a section/value
// by the caller) and records it as the most recent definition.
func (l *localLabels) define(n int, sym *section.Symbol) {
	// If a forward reference was pending and still undefined, that's the
	// same symbol a prior "nf" returned — it becomes this definition.
	if p, ok := l.pending[n]; !ok || p == nil || p.Defined() {
		l.pending[n] = sym
	}
	l.defs[n] = append(l.defs[n], sym)
}

// undefinedForwardRefs returns the numeric labels with a still-undefined
// pending forward reference — spec §8's round-trip property: "after
// assembling a block, no L..n symbol referenced with Nf remains undefined
// when a subsequent N: label exists below it in source order" should hold
// once the whole block has been driven through define(); any survivors here
// are genuine dangling forward references.
func (l *localLabels) undefinedForwardRefs() []int {
	var out []int
	for n, sym := range l.pending {
		if sym != nil && !sym.Defined() {
			out = append(out, n)
		}
	}
	return out
}
