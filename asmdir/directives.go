package asmdir

import (
	"fmt"

	"mtcc/asmexpr"
	"mtcc/section"
	"mtcc/token"
)

// directive dispatches a single ".name ..." statement, t being the peeked
// directive-name token (not yet consumed).
func (a *Assembler) directive(s token.Stream, t token.Token) error {
	s.Next() // consume the directive name
	name := t.Str

	switch name {
	case ".text":
		return a.switchSection(s, ".text", section.Progbits)
	case ".data":
		return a.switchSection(s, ".data", section.Progbits)
	case ".bss":
		return a.switchSection(s, ".bss", section.Nobits)

	case ".section":
		return a.directiveSectionDecl(s)
	case ".pushsection":
		return a.directivePushSection(s)
	case ".popsection":
		return a.directivePopSection()
	case ".previous":
		return a.directivePrevious()

	case ".byte":
		return a.directiveData(s, 1)
	case ".word", ".short":
		return a.directiveData(s, 2)
	case ".int", ".long":
		return a.directiveData(s, 4)
	case ".quad":
		return a.directiveData(s, 8)

	case ".ascii":
		return a.directiveAscii(s, false)
	case ".string", ".asciz":
		return a.directiveAscii(s, true)

	case ".align", ".balign":
		return a.directiveAlign(s, false)
	case ".p2align":
		return a.directiveAlign(s, true)

	case ".skip", ".space":
		return a.directiveSkip(s)
	case ".fill":
		return a.directiveFill(s)
	case ".org":
		return a.directiveOrg(s)

	case ".rept":
		return a.directiveRept(s)
	case ".endr":
		return a.Diag.Errorf("asmdir: .endr without matching .rept")

	case ".globl", ".global":
		return a.directiveGlobl(s, false)
	case ".weak":
		return a.directiveGlobl(s, true)
	case ".hidden":
		return a.directiveHidden(s)
	case ".set":
		return a.directiveSet(s)

	case ".type":
		return a.directiveType(s)
	case ".size":
		a.skipToLineEnd(s)
		a.Diag.Warnf("asmdir: .size ignored")
		return nil
	case ".file":
		a.skipToLineEnd(s)
		a.Diag.Warnf("asmdir: .file ignored")
		return nil
	case ".ident":
		a.skipToLineEnd(s)
		a.Diag.Warnf("asmdir: .ident ignored")
		return nil

	case ".code16", ".code32", ".code64":
		// Bitness selection is an encoder-level (x64.Encoder) concern in
		// mtcc, not a directive-engine one; accepted and ignored here.
		a.skipToLineEnd(s)
		return nil
	}

	a.skipToLineEnd(s)
	return a.Diag.Errorf("asmdir: unknown directive %q", name)
}

func (a *Assembler) switchSection(s token.Stream, name string, typ section.Type) error {
	sec := a.Store.FindOrCreateSection(name, typ)
	a.setCurrent(sec)
	return a.skipToLineEnd(s)
}

// directiveSectionDecl handles `.section NAME[,"flags"[,@type]]` (spec §4.4,
// supplemented by tccasm.c's GAS flag-character parsing, SPEC_FULL §7).
func (a *Assembler) directiveSectionDecl(s token.Stream) error {
	nameTok := s.Peek()
	if nameTok.Kind != token.Ident {
		return a.Diag.Errorf("asmdir: .section expects a name")
	}
	s.Next()
	sec := a.Store.FindOrCreateSection(nameTok.Str, section.Progbits)

	if p := s.Peek(); p.Kind == token.Punct && p.Int == ',' {
		s.Next()
		if flagsTok := s.Peek(); flagsTok.Kind == token.Str {
			s.Next()
			sec.Flags = parseSectionFlags(flagsTok.Str)
		}
		if p2 := s.Peek(); p2.Kind == token.Punct && p2.Int == ',' {
			s.Next()
			// "@type" spelling: an identifier/punct '@' followed by ident;
			// accepted and otherwise unused (mtcc doesn't distinguish
			// @progbits/@nobits beyond the Type already implied by Flags).
			a.skipToLineEnd(s)
			a.lastSection = a.cur
			a.setCurrent(sec)
			return nil
		}
	}
	a.lastSection = a.cur
	a.setCurrent(sec)
	return a.skipToLineEnd(s)
}

// parseSectionFlags implements the GAS flag-character grammar: a=alloc,
// w=write, x=exec, M=merge, S=strings (SPEC_FULL §7).
func parseSectionFlags(spec string) section.SectionFlags {
	var f section.SectionFlags
	for _, r := range spec {
		switch r {
		case 'a':
			f.Alloc = true
		case 'w':
			f.Write = true
		case 'x':
			f.Exec = true
		case 'M':
			f.Merge = true
		case 'S':
			f.Strings = true
		}
	}
	return f
}

func (a *Assembler) directivePushSection(s token.Stream) error {
	nameTok := s.Peek()
	if nameTok.Kind != token.Ident {
		return a.Diag.Errorf("asmdir: .pushsection expects a name")
	}
	s.Next()
	next := a.Store.FindOrCreateSection(nameTok.Str, section.Progbits)
	a.skipToLineEnd(s)
	newCur := a.Store.PushSection(a.cur, next)
	a.lastSection = a.cur
	a.setCurrent(newCur)
	return nil
}

func (a *Assembler) directivePopSection() error {
	prev, err := a.Store.PopSection()
	if err != nil {
		return a.Diag.Errorf("%v", err)
	}
	a.setCurrent(prev)
	return nil
}

// directivePrevious implements `.previous`: an independent single-slot
// toggle, entirely decoupled from the .pushsection/.popsection stack
// (tccasm.c: "sec = cur_text_section; use_section1(S, last_text_section);
// last_text_section = sec;"). Both plain `.section` and `.pushsection`
// update a.lastSection right before switching, so `.section A` / `.section
// B` / `.previous` returns to A even with no .pushsection anywhere in the
// sequence — unlike .popsection, which only unwinds explicit pushes.
func (a *Assembler) directivePrevious() error {
	if a.lastSection == nil {
		return a.Diag.Errorf("asmdir: .previous with no prior section")
	}
	cur := a.cur
	a.setCurrent(a.lastSection)
	a.lastSection = cur
	return nil
}

// --- Data & string directives ---

func (a *Assembler) directiveData(s token.Stream, width int) error {
	for {
		v, err := a.evalExpr(s)
		if err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
		}
		if err := a.emitDataValue(v, width); err != nil {
			return a.Diag.Errorf("asmdir: %v", err)
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

// emitDataValue writes v as a width-byte little-endian word (spec §4.4 "Data
// family"), recording a relocation when v carries a symbol: width 4 -> Abs32
// (or PC32 if pcrel), width 8 -> Abs64, any other width with a symbol is an
// error (GAS only supports 4- and 8-byte relocatable data).
func (a *Assembler) emitDataValue(v asmexpr.Value, width int) error {
	off := a.em.Ind()
	switch width {
	case 1:
		a.em.EmitU8(byte(v.V))
	case 2:
		a.em.EmitLE16(uint16(v.V))
	case 4:
		a.em.EmitLE32(uint32(v.V))
	case 8:
		a.em.EmitLE64(uint64(v.V))
	}
	if v.Sym == nil {
		return nil
	}
	var kind section.RelocKind
	switch {
	case width == 8 && v.PCRel:
		return fmt.Errorf("asmdir: pc-relative .quad is not representable")
	case width == 8:
		kind = section.Abs64
	case width == 4 && v.PCRel:
		kind = section.PC32
	case width == 4:
		kind = section.Abs32
	default:
		return fmt.Errorf("asmdir: relocatable expression needs 4 or 8 byte width, got %d", width)
	}
	a.cur.Relocs = append(a.cur.Relocs, section.Reloc{
		Offset: off,
		Sym:    v.Sym,
		Kind:   kind,
		Addend: v.V,
	})
	return nil
}
