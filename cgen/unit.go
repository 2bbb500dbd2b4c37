package cgen

import "mtcc/x64"

// intCandidates and floatCandidates are the allocation order gv draws from —
// RBP/RSP are reserved for the frame and never candidates, matching
// x86_64-gen.c's REG_IRET/REG_LRET exclusions generalized to mtcc's flat
// candidate-list allocator.
var intCandidates = []x64.Reg{
	x64.RAX, x64.RCX, x64.RDX, x64.RBX,
	x64.RSI, x64.RDI,
	x64.R8, x64.R9, x64.R10, x64.R11, x64.R12, x64.R13, x64.R14, x64.R15,
}

var floatCandidates = []x64.Reg{
	x64.XMM0, x64.XMM1, x64.XMM2, x64.XMM3, x64.XMM4, x64.XMM5, x64.XMM6, x64.XMM7,
}

// Unit is the value-stack code generator for one function body (spec §4.7):
// a stack of SValue above the external parser's cursor, plus the register
// ownership table gv/save_reg consult.
type Unit struct {
	Enc  *x64.Encoder
	Diag Diagnostics

	stack []SValue

	// owner maps a register to 1+(stack index) of the SValue currently
	// resident there, a register with no entry being free — mirroring x86_64-gen.c's vtop
	// scan but as an O(1) lookup table instead of a linear rescan.
	owner map[x64.Reg]int

	// FrameBytes is the running local-frame size in bytes; SaveReg grows
	// it by 8 each time it spills a value to a fresh slot (spec §4.8
	// "Frame" ties this into the prologue's final `sub rsp, v`, owned by
	// package abi).
	FrameBytes int32
}

// New returns an empty Unit emitting through enc.
func New(enc *x64.Encoder) *Unit {
	return &Unit{Enc: enc, owner: make(map[x64.Reg]int)}
}

// Push places sv on top of the value stack.
func (u *Unit) Push(sv SValue) { u.stack = append(u.stack, sv) }

// Pop removes and returns the top of the value stack, freeing any register
// it owned.
func (u *Unit) Pop() SValue {
	n := len(u.stack) - 1
	sv := u.stack[n]
	if sv.Kind == KindReg {
		delete(u.owner, sv.Reg)
	}
	u.stack = u.stack[:n]
	return sv
}

// Top returns a pointer to the top-of-stack entry for in-place mutation
// (the way gv/gv2 update Kind/Reg on the caller's existing entry).
func (u *Unit) Top() *SValue { return &u.stack[len(u.stack)-1] }

// At returns a pointer to the n-th entry from the top (0 is Top()).
func (u *Unit) At(depthFromTop int) *SValue {
	return &u.stack[len(u.stack)-1-depthFromTop]
}

// Depth reports the current stack height.
func (u *Unit) Depth() int { return len(u.stack) }

func candidatesFor(mask x64.RegClass) []x64.Reg {
	var out []x64.Reg
	if mask&x64.ClassInt != 0 {
		out = append(out, intCandidates...)
	}
	if mask&x64.ClassFloat != 0 {
		out = append(out, floatCandidates...)
	}
	// ClassX87 (ST0) deliberately has no entry here: GenOpf/GenCvtItoF's
	// long-double path (floatops.go) drives the x87 stack directly with
	// Fld/Fstp rather than through this allocator — a true LIFO stack
	// doesn't fit the single-register-slot model the rest of cgen assumes.
	return out
}
