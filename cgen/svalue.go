// Package cgen is the Value-Stack Code Generator (spec §4.7): it holds a
// stack of SValue entries above the parser's current expression and
// provides the register-materialization, spill, binary-op, conversion, and
// branch primitives the external parser drives one IR-ish call at a time.
//
// Grounded on tinyrange-rtg/std/compiler/backend_x64.go's CodeGen struct
// (one mutable generator object carrying emitter state, fixup lists, and a
// frame-size counter across one function) generalized from its fixed
// operand-stack-in-memory model to spec.md §3's register-class SValue
// model — original_source/x86_64-gen.c is the direct grounding for the
// allocation/spill algorithm itself, since the teacher's language has no
// equivalent value-stack compiler.
package cgen

import (
	"mtcc/section"
	"mtcc/x64"
)

// Kind tags an SValue's storage location, per spec §9's "disciplined
// rewrite" recommendation: a Go enum instead of the source's packed
// bitfield.
type Kind int

const (
	KindConst  Kind = iota // an immediate constant, no register/memory backing yet
	KindLocal              // a value at a fixed rbp-relative frame offset
	KindLLocal             // an rbp-relative offset holding a *pointer* to the value (indirect local)
	KindCmp                // a pending comparison: the condition code, not yet materialized into a 0/1
	KindJmp                // a pending "jump if true" chain (short-circuit &&/||)
	KindJmpInv             // a pending "jump if false" chain
	KindReg                // already resident in a register
)

// ValWidth is the load/store width and signedness spec §4.7's `load`/
// `store` dispatch on.
type ValWidth int

const (
	WFull     ValWidth = iota // full register width (8 bytes for Type.Int64/pointer)
	WByte                     // 1 byte, sign-extended on load
	WShort                    // 2 bytes
	WUnsigned                 // 1 byte, zero-extended on load; a width of its own, not a flag combined with the others
	WSingle                   // C float: 4-byte SSE single, movss load/store
	WDouble                   // C double: 8-byte SSE double, movsd load/store

	// WLDouble tags a long-double staged through an 8-byte scratch slot —
	// this generator's long double is a double bit pattern wearing a
	// different tag (see floatops.go), not a true 80-bit extended value, so
	// unlike every other ValWidth it is never handled by Load/Store: only
	// floatops.go touches a WLDouble slot, through the x87 fld/fstp helpers
	// and movsd.
	WLDouble
)

// SValue is one value-stack entry (spec.md §3 "SValue").
type SValue struct {
	Kind  Kind
	LVal  bool     // this is an addressable location, not just a value
	Width ValWidth

	Const int64   // valid when Kind == KindConst
	Off   int32   // rbp-relative offset, valid for KindLocal/KindLLocal
	Reg   x64.Reg // valid when Kind == KindReg
	R2    x64.Reg // secondary register: the high half of a two-register struct return (spec.md §3 "r2")

	// Sym is set when this is a pointer/offset constant against a symbol
	// rather than a bare immediate — the address of a global, or a function
	// used as a call target — instead of KindConst's bare Const immediate
	// (spec.md §3: "a pointer/offset constant c... an optional symbol").
	// Load dispatches to x64's RIP-relative/GOTPCREL OpConst addressing
	// when this is set; Store has no symbol-addressed target.
	Sym *section.Symbol

	CC        x64.CondCode // valid when Kind == KindCmp
	Unordered bool         // float-compare "unordered" bit, orthogonal to CC

	Chain int // valid for KindJmp/KindJmpInv: the jump-chain head threaded through emit
}
