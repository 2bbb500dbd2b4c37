// Package x64 is the x86-64 Encoder (spec §4.6): REX/ModRM/SIB byte
// construction and the four `gen_modrm` addressing forms, plus the
// instruction-level emitters the value-stack code generator (package cgen)
// drives. Grounded on tinyrange-rtg/std/compiler/x64.go and backend_x64.go's
// REX+ModRM helpers, generalized from their fixed rbp/register-indirect
// cases to the CONST/LOCAL/MEM/register-direct dispatch spec §4.6 asks for.
package x64

// Reg is an ordinal register reference spanning the three register files
// spec.md §3 "Registers" lists: general-purpose, XMM, and the x87 stack top.
type Reg int

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7

	ST0
)

// RegClass is a bitmask of register files, used by cgen.Gv's class_mask
// argument (spec §4.7 "gv(class_mask)").
type RegClass int

const (
	ClassInt RegClass = 1 << iota
	ClassFloat
	ClassX87
)

// Classes reports which RegClass(es) r belongs to.
func (r Reg) Classes() RegClass {
	switch {
	case r >= RAX && r <= R15:
		return ClassInt
	case r >= XMM0 && r <= XMM7:
		return ClassFloat
	case r == ST0:
		return ClassX87
	}
	return 0
}

// ord returns r's 0-7 encoding field within its own register file (the
// 3-bit value that goes in ModR/M reg/rm or SIB base/index), and whether
// encoding it needs REX.R/X/B (ordinal >= 8 within the GPR file).
func (r Reg) ord() (field int, needsRexBit bool) {
	switch {
	case r >= RAX && r <= R15:
		n := int(r - RAX)
		return n & 7, n >= 8
	case r >= XMM0 && r <= XMM7:
		return int(r - XMM0), false
	default:
		return 0, false
	}
}
