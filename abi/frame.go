package abi

import (
	"mtcc/section"
	"mtcc/x64"
)

// FuncPrologSize mirrors x86_64-gen.c's FUNC_PROLOG_SIZE value. Prologue
// does not use it: it emits the frame setup directly with the size from
// Frame.Size, and nothing is reserved or back-patched afterwards.
const FuncPrologSize = 11

// ChkstkThreshold is the frame size at or above which the prologue must
// probe each page via __chkstk rather than a bare `sub rsp, v` (spec §4.8).
const ChkstkThreshold = 4096

// align16 rounds v up to the next 16-byte boundary (spec §4.8's
// `align16(func_scratch + (-loc))`).
func align16(v int32) int32 { return (v + 15) &^ 15 }

// Frame tracks one function's stack-frame accounting: the scratch space
// reserved for outgoing by-value struct arguments (func_scratch) plus the
// locals size cgen.Unit.FrameBytes has grown via SaveReg spills.
type Frame struct {
	FuncScratch int32
	LocalsSize  int32
	// Variadic marks a callee whose prologue must build the register-save
	// area so va_start/va_arg can walk it (spec §4.8).
	Variadic bool
}

// Size returns the final 16-byte-aligned frame size Prologue emits into
// `sub rsp, v` (spec §4.8): scratch plus locals, plus the register-save
// area for a variadic callee. The caller fixes LocalsSize before emitting
// the prologue; the size is not back-patched later.
func (f Frame) Size() int32 {
	v := f.FuncScratch + f.LocalsSize
	if f.Variadic {
		v += VarargSaveAreaSize
	}
	return align16(v)
}

// Prologue emits `push rbp; mov rbp, rsp` followed by the stack
// reservation: a plain `sub rsp, v` when v fits under ChkstkThreshold, or
// a `mov eax, v; call __chkstk` trampoline otherwise (spec §4.8). chkstk
// is only consulted in the large-frame case and may be nil when the
// caller knows no function in this unit ever needs it.
func (f Frame) Prologue(enc *x64.Encoder, chkstk *section.Symbol) {
	enc.PushR(x64.RBP)
	enc.MovRR(x64.RBP, x64.RSP)
	v := f.Size()
	if v > 0 {
		if v < ChkstkThreshold {
			enc.SubImm32(x64.RSP, v)
		} else {
			enc.MovImm32(x64.RAX, uint32(v))
			enc.CallIndirectSym(chkstk)
		}
	}
	if f.Variadic {
		f.SaveVarargRegs(enc, VarargSaveAreaOffset(f.LocalsSize))
	}
}

// Epilogue emits `leave; ret` (spec §4.8 frame teardown).
func (f Frame) Epilogue(enc *x64.Encoder) {
	enc.Leave()
	enc.Ret()
}

// VarargSaveAreaSize is the byte size of the register-save area the
// variadic-callee prologue reserves at a fixed negative rbp offset: six
// eightbyte GPR slots plus eight 16-byte XMM slots (spec §4.8 "__va_list
// register-save area"), matching the System V ABI's register_save_area
// layout.
const VarargSaveAreaSize = 6*8 + 8*16

// VarargSaveAreaOffset returns the rbp-relative offset of the save area's
// first byte given how many bytes of ordinary locals/scratch already sit
// below rbp, so the area lands directly below them.
func VarargSaveAreaOffset(existingLocals int32) int32 {
	return -(existingLocals + VarargSaveAreaSize)
}

// sysVIntSaveRegs is the six integer argument registers a variadic SysV
// callee's prologue saves into the register-save area regardless of how
// many the caller actually populated — va_start can't tell which ones hold
// live arguments versus garbage, so all six are written unconditionally,
// matching the System V ABI's own register_save_area convention.
var sysVIntSaveRegs = []x64.Reg{x64.RDI, x64.RSI, x64.RDX, x64.RCX, x64.R8, x64.R9}

// SaveVarargRegs emits the mov/movaps sequence a variadic function's
// prologue uses to spill all six integer argument registers and all eight
// XMM argument registers into the save area at areaOff (spec §4.8 "__va_list
// register-save area"). Every register is saved unconditionally, matching
// the System V ABI's own register_save_area convention — a callee can't
// tell from inside which of the 6/8 slots the caller actually populated,
// so va_start always has a complete area to walk.
func (f Frame) SaveVarargRegs(enc *x64.Encoder, areaOff int32) {
	off := areaOff
	for _, r := range sysVIntSaveRegs {
		enc.Instr(true, []byte{0x89}, r, x64.Operand{Kind: x64.OpLocal, Disp: off})
		off += 8
	}
	for i := 0; i < 8; i++ {
		enc.MovapsStore(off, x64.Reg(int(x64.XMM0)+i))
		off += 16
	}
}
