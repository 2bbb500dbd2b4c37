package objwriter

import (
	"testing"

	"mtcc/section"
	"mtcc/token"
)

func TestWriteELFMagicAndIdent(t *testing.T) {
	st := section.New(token.NewInterner())
	st.FindOrCreateSection(".text", section.Progbits)
	out := Write(st)
	if out[0] != 0x7f || out[1] != 'E' || out[2] != 'L' || out[3] != 'F' {
		t.Fatalf("bad e_ident magic: % X", out[0:4])
	}
	if out[4] != 2 {
		t.Fatalf("expected ELFCLASS64, got %d", out[4])
	}
	if out[5] != 1 {
		t.Fatalf("expected ELFDATA2LSB, got %d", out[5])
	}
}

func TestWriteETRELWithNoProgramHeaders(t *testing.T) {
	st := section.New(token.NewInterner())
	st.FindOrCreateSection(".text", section.Progbits)
	out := Write(st)
	if got := le16(out[16:]); got != 1 {
		t.Fatalf("e_type = %d, want ET_REL (1)", got)
	}
	if got := le16(out[56:]); got != 0 {
		t.Fatalf("e_phnum = %d, want 0 for a relocatable object", got)
	}
	if got := le64(out[32:]); got != 0 {
		t.Fatalf("e_phoff = %d, want 0", got)
	}
}

func TestWriteSectionCountIncludesNullSymtabStrtabShstrtab(t *testing.T) {
	st := section.New(token.NewInterner())
	st.FindOrCreateSection(".text", section.Progbits)
	st.FindOrCreateSection(".data", section.Progbits)
	out := Write(st)
	// 1 (NULL) + .text + .data + .symtab + .strtab + .shstrtab = 6
	if got := le16(out[60:]); got != 6 {
		t.Fatalf("e_shnum = %d, want 6", got)
	}
}

func TestWriteTextSectionBytesLandAtRecordedOffset(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	text.Append([]byte{0x90, 0x90, 0xC3})
	out := Write(st)

	shoff := le64(out[40:])
	// section 1 is .text; its header starts at shoff + 1*64
	h := out[int(shoff)+shdrEntrySize:]
	textOff := le64(h[24:])
	textSize := le64(h[32:])
	if textSize != 3 {
		t.Fatalf("sh_size = %d, want 3", textSize)
	}
	got := out[textOff : textOff+textSize]
	if got[0] != 0x90 || got[1] != 0x90 || got[2] != 0xC3 {
		t.Fatalf("bytes at sh_offset = % X, want 90 90 C3", got)
	}
}

func TestWriteNobitsSectionContributesNoFileBytes(t *testing.T) {
	st := section.New(token.NewInterner())
	st.FindOrCreateSection(".text", section.Progbits)
	bss := st.FindOrCreateSection(".bss", section.Nobits)
	bss.Reserve(64)
	out := Write(st)

	shoff := le64(out[40:])
	h := out[int(shoff)+2*shdrEntrySize:] // section 2 is .bss
	if got := le32(h[4:]); got != shtNobits {
		t.Fatalf("sh_type = %d, want SHT_NOBITS (%d)", got, shtNobits)
	}
	if got := le64(h[32:]); got != 64 {
		t.Fatalf("sh_size = %d, want 64", got)
	}
}

func TestWriteSymbolEndsUpInSymtabWithCorrectShndx(t *testing.T) {
	in := token.NewInterner()
	st := section.New(in)
	text := st.FindOrCreateSection(".text", section.Progbits)
	text.Append([]byte{0x90})

	name := in.Intern("my_func")
	sym := st.SymPush(name, section.StorageFlags{})
	if err := sym.Define(text.ShNum, 0); err != nil {
		t.Fatalf("Define: %v", err)
	}
	out := Write(st)

	shoff := le64(out[40:])
	// sections: 1 .text, 2 .symtab, 3 .strtab, 4 .shstrtab
	symtabHdr := out[int(shoff)+2*shdrEntrySize:]
	symtabOff := le64(symtabHdr[24:])
	strtabIdx := le32(symtabHdr[40:])
	if strtabIdx != 3 {
		t.Fatalf("symtab sh_link = %d, want 3 (.strtab index)", strtabIdx)
	}

	// entry 1 (entry 0 is the null symbol)
	e := out[symtabOff+symEntrySize:]
	nameOff := le32(e[0:])
	shndx := le16(e[6:])
	if shndx != uint16(text.ShNum) {
		t.Fatalf("st_shndx = %d, want %d (.text)", shndx, text.ShNum)
	}

	strtabHdr := out[int(shoff)+3*shdrEntrySize:]
	strtabOff := le64(strtabHdr[24:])
	got := cstr(out[strtabOff+uint64(nameOff):])
	if got != "my_func" {
		t.Fatalf("symbol name = %q, want my_func", got)
	}
}

func TestWriteUndefinedExternSymbolGetsShndxUndef(t *testing.T) {
	in := token.NewInterner()
	st := section.New(in)
	st.FindOrCreateSection(".text", section.Progbits)
	name := in.Intern("printf")
	st.SymPush(name, section.StorageFlags{Extern: true})
	out := Write(st)

	shoff := le64(out[40:])
	symtabHdr := out[int(shoff)+2*shdrEntrySize:]
	symtabOff := le64(symtabHdr[24:])
	e := out[symtabOff+symEntrySize:]
	if shndx := le16(e[6:]); shndx != 0 {
		t.Fatalf("st_shndx = %d, want SHN_UNDEF (0)", shndx)
	}
}

func TestWriteLocalSymbolsSortBeforeGlobalsWithCorrectShInfo(t *testing.T) {
	in := token.NewInterner()
	st := section.New(in)
	text := st.FindOrCreateSection(".text", section.Progbits)

	g := st.SymPush(in.Intern("global_one"), section.StorageFlags{})
	g.Define(text.ShNum, 0)
	l := st.SymPush(in.Intern("local_one"), section.StorageFlags{Static: true})
	l.Define(text.ShNum, 8)

	out := Write(st)
	shoff := le64(out[40:])
	symtabHdr := out[int(shoff)+2*shdrEntrySize:]
	shInfo := le32(symtabHdr[44:])
	// one local symbol precedes the null entry's successor, so the first
	// global index is 2 (0 = null, 1 = local_one, 2 = global_one).
	if shInfo != 2 {
		t.Fatalf("sh_info (first global index) = %d, want 2", shInfo)
	}
}

func TestWriteRelocationProducesRelaSectionForItsTarget(t *testing.T) {
	in := token.NewInterner()
	st := section.New(in)
	text := st.FindOrCreateSection(".text", section.Progbits)
	text.Append([]byte{0, 0, 0, 0})
	target := st.SymPush(in.Intern("g"), section.StorageFlags{})
	text.Relocs = append(text.Relocs, section.Reloc{Offset: 0, Sym: target, Kind: section.PC32, Addend: -4})

	out := Write(st)
	shoff := le64(out[40:])
	// sections: 1 .text, 2 .symtab, 3 .strtab, 4 .shstrtab, 5 .rela.text
	relaHdr := out[int(shoff)+5*shdrEntrySize:]
	if got := le32(relaHdr[4:]); got != shtRela {
		t.Fatalf("sh_type = %d, want SHT_RELA (%d)", got, shtRela)
	}
	if got := le32(relaHdr[44:]); got != uint32(text.ShNum) {
		t.Fatalf("sh_info = %d, want %d (target section)", got, text.ShNum)
	}
	relaOff := le64(relaHdr[24:])
	entry := out[relaOff:]
	if got := le64(entry[0:]); got != 0 {
		t.Fatalf("r_offset = %d, want 0", got)
	}
	relocType := le32(entry[8:])
	if relocType != rX8664PC32 {
		t.Fatalf("r_info low 32 bits = %d, want R_X86_64_PC32 (%d)", relocType, rX8664PC32)
	}
	addend := int64(le64(entry[16:]))
	if addend != -4 {
		t.Fatalf("r_addend = %d, want -4", addend)
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
func cstr(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
