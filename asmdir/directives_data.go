package asmdir

import (
	"mtcc/section"
	"mtcc/token"
)

// directiveAscii handles `.ascii "..."` and `.string`/`.asciz "..."` (spec
// §4.4 "String family"): raw bytes, plus a trailing NUL for the latter two.
func (a *Assembler) directiveAscii(s token.Stream, nulTerminate bool) error {
	for {
		t := s.Peek()
		if t.Kind != token.Str {
			return a.Diag.Errorf("asmdir: expected a string literal")
		}
		s.Next()
		a.em.EmitBytes([]byte(t.Str)...)
		if nulTerminate {
			a.em.EmitU8(0)
		}
		p := s.Peek()
		if p.Kind == token.Punct && p.Int == ',' {
			s.Next()
			continue
		}
		break
	}
	return a.skipToLineEnd(s)
}

// directiveAlign handles `.align/.balign N[,fill]` and `.p2align k[,fill]`
// (spec §4.4 "Alignment family" and §8's boundary cases: ".align 1" is a
// no-op, ".align 0" is an error, ".p2align 0" behaves like ".align 1",
// ".p2align 30" is accepted).
func (a *Assembler) directiveAlign(s token.Stream, isP2 bool) error {
	v, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	n := v.V
	if isP2 {
		if n < 0 || n > 30 {
			return a.Diag.Errorf("asmdir: .p2align argument %d out of range [0,30]", n)
		}
		n = 1 << uint(n)
	}
	if n <= 0 {
		return a.Diag.Errorf("asmdir: alignment %d must be a power of two greater than zero", n)
	}
	if n&(n-1) != 0 {
		return a.Diag.Errorf("asmdir: alignment %d is not a power of two", n)
	}

	fillByte := byte(0)
	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
		fv, err := a.evalExpr(s)
		if err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
		}
		fillByte = byte(fv.V)
	}

	if err := a.cur.SetAlign(int(n)); err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	cur := int64(a.cur.DataOffset)
	pad := (n - cur%n) % n
	a.fillBytes(int(pad), fillByte)
	return a.skipToLineEnd(s)
}

// fillBytes writes n copies of b at the current position, advancing ind
// without touching the backing buffer for Nobits sections (spec §4.4).
func (a *Assembler) fillBytes(n int, b byte) {
	if n <= 0 {
		return
	}
	buf := a.cur.Reserve(n)
	for i := range buf {
		buf[i] = b
	}
}

// directiveSkip handles `.skip/.space N[,fill]`; N < 0 is treated as zero
// (spec §8 boundary case).
func (a *Assembler) directiveSkip(s token.Stream) error {
	v, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	n := v.V
	if n < 0 {
		n = 0
	}
	fillByte := byte(0)
	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
		fv, err := a.evalExpr(s)
		if err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
		}
		fillByte = byte(fv.V)
	}
	a.fillBytes(int(n), fillByte)
	return a.skipToLineEnd(s)
}

// directiveFill handles `.fill repeat[, size[, val]]` (spec §4.4): size is
// clamped to [0,8] and a negative repeat is a warning treated as zero,
// matching tccasm.c's handler (SPEC_FULL §6, resolving spec.md §9's second
// Open Question).
func (a *Assembler) directiveFill(s token.Stream) error {
	rv, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	repeat := rv.V
	if repeat < 0 {
		a.Diag.Warnf("asmdir: .fill negative repeat count treated as zero")
		repeat = 0
	}

	size := int64(1)
	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
		sv, err := a.evalExpr(s)
		if err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
		}
		size = sv.V
	}
	if size < 0 {
		a.Diag.Warnf("asmdir: .fill negative size treated as zero")
		size = 0
	}
	if size > 8 {
		size = 8
	}

	var val int64
	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
		vv, err := a.evalExpr(s)
		if err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
		}
		val = vv.V
	}

	for i := int64(0); i < repeat; i++ {
		buf := a.cur.Reserve(int(size))
		for b := int64(0); b < size; b++ {
			if buf != nil {
				buf[b] = byte(val >> (8 * b))
			}
		}
	}
	return a.skipToLineEnd(s)
}

// directiveOrg handles `.org N`: zero-pads forward to absolute offset N in
// the current section; a backward target is an error (spec §4.4
// "Location"). Symbols are permitted only when defined in the same section.
func (a *Assembler) directiveOrg(s token.Stream) error {
	v, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	target := v.V
	if v.Sym != nil {
		sec := a.SymbolSection(v.Sym)
		if sec == nil || sec.ShNum != a.cur.ShNum {
			return a.Diag.Errorf("asmdir: .org target must be in the current section")
		}
		target += int64(v.Sym.Value)
	}
	cur := int64(a.cur.DataOffset)
	if target < cur {
		return a.Diag.Errorf("asmdir: .org may not move backward (at %d, target %d)", cur, target)
	}
	a.fillBytes(int(target-cur), 0)
	return a.skipToLineEnd(s)
}

// --- Symbol binding directives ---

func (a *Assembler) directiveGlobl(s token.Stream, weak bool) error {
	for {
		t := s.Peek()
		if t.Kind != token.Ident {
			return a.Diag.Errorf("asmdir: expected a symbol name")
		}
		s.Next()
		sym := a.Store.AsmLabelPush(a.interner.Intern(t.Str))
		sym.Flags.Static = false
		if weak {
			sym.Flags.Weak = true
		}
		p := s.Peek()
		if p.Kind == token.Punct && p.Int == ',' {
			s.Next()
			continue
		}
		break
	}
	return a.skipToLineEnd(s)
}

// directiveHidden sets STV_HIDDEN without clearing STATIC — hidden
// visibility and C linkage class are orthogonal ELF attributes (spec.md §9
// Open Question, resolved; see DESIGN.md).
func (a *Assembler) directiveHidden(s token.Stream) error {
	for {
		t := s.Peek()
		if t.Kind != token.Ident {
			return a.Diag.Errorf("asmdir: expected a symbol name")
		}
		s.Next()
		sym := a.Store.AsmLabelPush(a.interner.Intern(t.Str))
		sym.Other |= section.STVHidden
		p := s.Peek()
		if p.Kind == token.Punct && p.Int == ',' {
			s.Next()
			continue
		}
		break
	}
	return a.skipToLineEnd(s)
}

// directiveSet handles `.set sym, expr`: creates/overrides a symbol whose
// section is expr.Sym's section (or ABS if none) and whose value is
// expr.V + esym.Value; the result is marked ST_ASM_SET and stays
// overridable by a later `.set` (spec §4.4, SPEC_FULL §7).
func (a *Assembler) directiveSet(s token.Stream) error {
	nameTok := s.Peek()
	if nameTok.Kind != token.Ident {
		return a.Diag.Errorf("asmdir: .set expects a symbol name")
	}
	s.Next()
	if p := s.Peek(); !(p.Kind == token.Punct && p.Int == ',') {
		return a.Diag.Errorf("asmdir: .set expects ', expr'")
	}
	s.Next()

	v, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}

	sym := a.Store.AsmLabelPush(a.interner.Intern(nameTok.Str))
	if sym.Defined() && !sym.AsmSet {
		return a.Diag.Errorf("asmdir: .set cannot override a non-.set symbol %q", nameTok.Str)
	}

	shndx := section.ShndxAbs
	value := uint64(v.V)
	if v.Sym != nil {
		shndx = v.Sym.Shndx
		value += v.Sym.Value
	}
	sym.Shndx = shndx
	sym.Value = value
	sym.AsmSet = true
	return a.skipToLineEnd(s)
}

// directiveType handles `.type SYM, "function"` (or `@function`/`STT_FUNC`);
// other spellings are warned and ignored (spec §4.4 "Type").
func (a *Assembler) directiveType(s token.Stream) error {
	nameTok := s.Peek()
	if nameTok.Kind != token.Ident {
		return a.Diag.Errorf("asmdir: .type expects a symbol name")
	}
	s.Next()
	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
	}
	kindTok := s.Peek()
	var spelling string
	switch kindTok.Kind {
	case token.Str:
		spelling = kindTok.Str
	case token.Ident:
		spelling = kindTok.Str
	case token.Punct:
		if kindTok.Int == '@' {
			s.Next()
			id := s.Peek()
			spelling = "@" + id.Str
		}
	}
	s.Next()
	if isFunctionSpelling(spelling) {
		// mtcc doesn't carry a C-visible function/object VT_* distinction
		// on section.Symbol; recording it is the parser's job. Accepted
		// and otherwise a no-op beyond not warning.
	} else {
		a.Diag.Warnf("asmdir: .type %q ignored", spelling)
	}
	return a.skipToLineEnd(s)
}

func isFunctionSpelling(s string) bool {
	switch s {
	case "function", "@function", "STT_FUNC":
		return true
	}
	return false
}
