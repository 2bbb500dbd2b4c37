package objwriter

import "mtcc/section"

// strtabBuilder accumulates a null-separated string table, starting with
// the mandatory leading NUL byte every ELF string table needs at offset 0.
type strtabBuilder struct {
	buf []byte
}

func newStrtabBuilder() *strtabBuilder {
	return &strtabBuilder{buf: []byte{0}}
}

func (b *strtabBuilder) add(name string) uint32 {
	off := uint32(len(b.buf))
	b.buf = append(b.buf, name...)
	b.buf = append(b.buf, 0)
	return off
}

// shdr is one section header's worth of fields, built up as the layout is
// computed and serialized into the final table in one pass at the end.
type shdr struct {
	name      uint32
	shType    uint32
	flags     uint64
	addr      uint64
	offset    uint64
	size      uint64
	link      uint32
	info      uint32
	addralign uint64
	entsize   uint64
}

func sectionFlags(f section.SectionFlags) uint64 {
	var v uint64
	if f.Write {
		v |= shfWrite
	}
	if f.Alloc {
		v |= shfAlloc
	}
	if f.Exec {
		v |= shfExecinstr
	}
	if f.Merge {
		v |= shfMerge
	}
	if f.Strings {
		v |= shfStrings
	}
	return v
}

func sectionType(t section.Type) uint32 {
	switch t {
	case section.Nobits:
		return shtNobits
	default:
		return shtProgbits
	}
}

func symBinding(sym *section.Symbol) byte {
	switch {
	case sym.Flags.Weak:
		return stbWeak
	case sym.Flags.Static && !sym.Flags.Extern:
		return stbLocal
	default:
		return stbGlobal
	}
}

func symShndx(sym *section.Symbol) uint16 {
	switch {
	case sym.Shndx == section.ShndxAbs:
		return shnAbs
	case !sym.Defined():
		return shnUndef
	default:
		return uint16(sym.Shndx)
	}
}

// Write serializes st into an ELF64 ET_REL object file. Section ordinals in
// st map 1:1 onto this file's section header indices (the store's index-0
// placeholder becomes SHT_NULL), so a Reloc's r_info can reference a
// relocated section directly by the ordinal the assembler already assigned.
func Write(st *section.Store) []byte {
	in := st.Interner()
	n := st.NumSections()

	shstrtab := newStrtabBuilder()
	strtab := newStrtabBuilder()

	// --- symbol table: locals first, then globals/weak, per ELF convention ---
	syms := st.Symbols()
	order := make([]*section.Symbol, 0, len(syms))
	for _, s := range syms {
		if symBinding(s) == stbLocal {
			order = append(order, s)
		}
	}
	firstGlobal := uint32(len(order) + 1) // +1 for the null symbol at index 0
	for _, s := range syms {
		if symBinding(s) != stbLocal {
			order = append(order, s)
		}
	}
	symIndex := make(map[*section.Symbol]uint32, len(order))
	for i, s := range order {
		symIndex[s] = uint32(i + 1)
	}

	symtabBytes := make([]byte, (len(order)+1)*symEntrySize)
	for i, s := range order {
		off := (i + 1) * symEntrySize
		nameOff := strtab.add(in.Name(s.Name))
		putU32(symtabBytes[off:], nameOff)
		symtabBytes[off+4] = symBinding(s)<<4 | sttNotype
		symtabBytes[off+5] = s.Other
		putU16(symtabBytes[off+6:], symShndx(s))
		putU64(symtabBytes[off+8:], s.Value)
		putU64(symtabBytes[off+16:], 0) // st_size: not tracked by the store
	}

	// --- input sections, kept in their original ordinal order ---
	type secOut struct {
		sec   *section.Section
		shIdx int // index into the final section header table
	}
	var secs []secOut
	for i := 1; i <= n; i++ {
		sec := st.Section(i)
		if sec == nil {
			continue
		}
		secs = append(secs, secOut{sec: sec, shIdx: i})
	}

	// --- relocation sections, one per input section that has any ---
	type relaOut struct {
		target secOut
		shIdx  int
		bytes  []byte
	}
	var relas []relaOut
	nextIdx := n + 4 // 1..n sections, n+1 symtab, n+2 strtab, n+3 shstrtab
	for _, s := range secs {
		if len(s.sec.Relocs) == 0 {
			continue
		}
		buf := make([]byte, len(s.sec.Relocs)*relaEntrySize)
		for i, r := range s.sec.Relocs {
			off := i * relaEntrySize
			putU64(buf[off:], uint64(r.Offset))
			symIdx, ok := symIndex[r.Sym]
			if !ok {
				symIdx = 0
			}
			info := uint64(symIdx)<<32 | uint64(relocType(r.Kind))
			putU64(buf[off+8:], info)
			putU64(buf[off+16:], uint64(r.Addend))
		}
		relas = append(relas, relaOut{target: s, shIdx: nextIdx, bytes: buf})
		nextIdx++
	}

	symtabIdx := n + 1
	strtabIdx := n + 2
	shstrtabIdx := n + 3
	shnum := nextIdx // total section count, index 0 included

	// --- intern every section name into shstrtab before laying out file
	// offsets: shstrtab's own final size depends on every name it holds,
	// including the .rela.* names, so all adds must happen before its size
	// is read back for the offset walk below. ---
	secNameOff := make(map[int]uint32, len(secs))
	for _, s := range secs {
		secNameOff[s.shIdx] = shstrtab.add(s.sec.Name)
	}
	symtabNameOff := shstrtab.add(".symtab")
	strtabNameOff := shstrtab.add(".strtab")
	shstrtabNameOff := shstrtab.add(".shstrtab")
	relaNameOff := make(map[int]uint32, len(relas))
	for _, r := range relas {
		relaNameOff[r.shIdx] = shstrtab.add(".rela." + r.target.sec.Name)
	}

	// --- lay out file offsets: header, then section data/tables in order ---
	offset := uint64(elfHeaderSize)
	headers := make([]shdr, shnum)

	for _, s := range secs {
		size := uint64(s.sec.DataOffset)
		h := shdr{
			name:      secNameOff[s.shIdx],
			shType:    sectionType(s.sec.Type),
			flags:     sectionFlags(s.sec.Flags),
			offset:    offset,
			size:      size,
			addralign: uint64(s.sec.Addralign),
		}
		if s.sec.Addralign == 0 {
			h.addralign = 1
		}
		headers[s.shIdx] = h
		if s.sec.Type != section.Nobits {
			offset += size
		}
	}

	headers[symtabIdx] = shdr{
		name: symtabNameOff, shType: shtSymtab,
		offset: offset, size: uint64(len(symtabBytes)),
		link: uint32(strtabIdx), info: firstGlobal,
		addralign: 8, entsize: symEntrySize,
	}
	offset += uint64(len(symtabBytes))

	headers[strtabIdx] = shdr{
		name: strtabNameOff, shType: shtStrtab,
		offset: offset, size: uint64(len(strtab.buf)), addralign: 1,
	}
	offset += uint64(len(strtab.buf))

	headers[shstrtabIdx] = shdr{
		name: shstrtabNameOff, shType: shtStrtab,
		offset: offset, size: uint64(len(shstrtab.buf)), addralign: 1,
	}
	offset += uint64(len(shstrtab.buf))

	for _, r := range relas {
		headers[r.shIdx] = shdr{
			name: relaNameOff[r.shIdx], shType: shtRela,
			flags:     shfInfoLink,
			offset:    offset,
			size:      uint64(len(r.bytes)),
			link:      uint32(symtabIdx),
			info:      uint32(r.target.shIdx),
			addralign: 8, entsize: relaEntrySize,
		}
		offset += uint64(len(r.bytes))
	}

	shoff := offset

	total := shoff + uint64(shnum)*shdrEntrySize
	out := make([]byte, total)

	// ELF header
	out[0], out[1], out[2], out[3] = elfMag0, elfMag1, elfMag2, elfMag3
	out[4] = elfClass64
	out[5] = elfData2LSB
	out[6] = evCurrent
	out[7] = elfOSABINone
	putU16(out[16:], etRel)
	putU16(out[18:], emX8664)
	putU32(out[20:], evCurrent)
	putU64(out[24:], 0) // e_entry: none for a relocatable object
	putU64(out[32:], 0) // e_phoff: no program headers in an ET_REL
	putU64(out[40:], shoff)
	putU32(out[48:], 0)
	putU16(out[52:], elfHeaderSize)
	putU16(out[54:], 0) // e_phentsize
	putU16(out[56:], 0) // e_phnum
	putU16(out[58:], shdrEntrySize)
	putU16(out[60:], uint16(shnum))
	putU16(out[62:], uint16(shstrtabIdx))

	// section payloads, in the same order offsets were assigned above
	for _, s := range secs {
		if s.sec.Type != section.Nobits {
			copy(out[headers[s.shIdx].offset:], s.sec.Data())
		}
	}
	copy(out[headers[symtabIdx].offset:], symtabBytes)
	copy(out[headers[strtabIdx].offset:], strtab.buf)
	copy(out[headers[shstrtabIdx].offset:], shstrtab.buf)
	for _, r := range relas {
		copy(out[headers[r.shIdx].offset:], r.bytes)
	}

	// section header table
	shbase := int(shoff)
	for i, h := range headers {
		e := out[shbase+i*shdrEntrySize:]
		putU32(e[0:], h.name)
		putU32(e[4:], h.shType)
		putU64(e[8:], h.flags)
		putU64(e[16:], h.addr)
		putU64(e[24:], h.offset)
		putU64(e[32:], h.size)
		putU32(e[40:], h.link)
		putU32(e[44:], h.info)
		putU64(e[48:], h.addralign)
		putU64(e[56:], h.entsize)
	}

	return out
}
