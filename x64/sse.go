package x64

// SSE/x87 floating-point encodings (spec §4.7 "gen_opf"/"gen_cvt_itof/ftoi/
// ftof"). The mandatory F2/F3/66 prefix byte must precede any REX byte, so
// these emit the prefix themselves and let Instr supply REX+opcode+ModR/M
// in the right order behind it.

// MovsdRR/MovsdLoad/MovsdStore move a double between two XMM registers, or
// between an XMM register and a local frame slot (F2 0F 10/11 /r).
func (e *Encoder) MovsdRR(dst, src Reg) {
	e.Em.EmitU8(0xf2)
	e.Instr(false, []byte{0x0f, 0x10}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) MovsdLoad(dst Reg, off int32) {
	e.Em.EmitU8(0xf2)
	e.Instr(false, []byte{0x0f, 0x10}, dst, Operand{Kind: OpLocal, Disp: off})
}

func (e *Encoder) MovsdStore(off int32, src Reg) {
	e.Em.EmitU8(0xf2)
	e.Instr(false, []byte{0x0f, 0x11}, src, Operand{Kind: OpLocal, Disp: off})
}

// MovssRR/MovssLoad/MovssStore are the single-precision equivalents (F3 0F
// 10/11 /r).
func (e *Encoder) MovssRR(dst, src Reg) {
	e.Em.EmitU8(0xf3)
	e.Instr(false, []byte{0x0f, 0x10}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) MovssLoad(dst Reg, off int32) {
	e.Em.EmitU8(0xf3)
	e.Instr(false, []byte{0x0f, 0x10}, dst, Operand{Kind: OpLocal, Disp: off})
}

func (e *Encoder) MovssStore(off int32, src Reg) {
	e.Em.EmitU8(0xf3)
	e.Instr(false, []byte{0x0f, 0x11}, src, Operand{Kind: OpLocal, Disp: off})
}

// sseArith is the shared encoder for the four arithmetic ops (opcodes 0F
// 58/59/5C/5E = add/mul/sub/div) across both widths, selected by prefix (F2
// for the *sd forms, F3 for *ss).
func (e *Encoder) sseArith(prefix, opcode byte, dst, src Reg) {
	e.Em.EmitU8(prefix)
	e.Instr(false, []byte{0x0f, opcode}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) AddsdRR(dst, src Reg) { e.sseArith(0xf2, 0x58, dst, src) }
func (e *Encoder) MulsdRR(dst, src Reg) { e.sseArith(0xf2, 0x59, dst, src) }
func (e *Encoder) SubsdRR(dst, src Reg) { e.sseArith(0xf2, 0x5c, dst, src) }
func (e *Encoder) DivsdRR(dst, src Reg) { e.sseArith(0xf2, 0x5e, dst, src) }

func (e *Encoder) AddssRR(dst, src Reg) { e.sseArith(0xf3, 0x58, dst, src) }
func (e *Encoder) MulssRR(dst, src Reg) { e.sseArith(0xf3, 0x59, dst, src) }
func (e *Encoder) SubssRR(dst, src Reg) { e.sseArith(0xf3, 0x5c, dst, src) }
func (e *Encoder) DivssRR(dst, src Reg) { e.sseArith(0xf3, 0x5e, dst, src) }

// MovapsStore emits `movaps [rbp+off], src` (0F 29 /r): stores all 128 bits
// of an XMM register to a 16-byte-aligned local slot, used by the variadic
// prologue's register-save area (spec §4.8) where a full register — not
// just its low 64 bits — must be preserved.
func (e *Encoder) MovapsStore(off int32, src Reg) {
	e.Instr(false, []byte{0x0f, 0x29}, src, Operand{Kind: OpLocal, Disp: off})
}

// UcomisdRR/UcomissRR compare two floats and set EFLAGS (ZF/PF/CF) the way
// an unsigned integer compare would, including the "unordered" PF bit a NaN
// operand sets — cgen.Gtst threads that bit through SValue.Unordered (spec
// §4.7's "ucomisd").
func (e *Encoder) UcomisdRR(a, b Reg) {
	e.Em.EmitU8(0x66)
	e.Instr(false, []byte{0x0f, 0x2e}, a, Operand{Kind: OpReg, Base: b})
}

func (e *Encoder) UcomissRR(a, b Reg) {
	e.Instr(false, []byte{0x0f, 0x2e}, a, Operand{Kind: OpReg, Base: b})
}

// Cvtsi2sdRR/Cvtsi2ssRR convert an integer register to a double/float. wide
// selects the REX.W (64-bit source) encoding over the default 32-bit one.
func (e *Encoder) Cvtsi2sdRR(dst, src Reg, wide bool) {
	e.Em.EmitU8(0xf2)
	e.Instr(wide, []byte{0x0f, 0x2a}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) Cvtsi2ssRR(dst, src Reg, wide bool) {
	e.Em.EmitU8(0xf3)
	e.Instr(wide, []byte{0x0f, 0x2a}, dst, Operand{Kind: OpReg, Base: src})
}

// Cvttsd2siRR/Cvttss2siRR truncate a double/float to an integer register.
func (e *Encoder) Cvttsd2siRR(dst, src Reg, wide bool) {
	e.Em.EmitU8(0xf2)
	e.Instr(wide, []byte{0x0f, 0x2c}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) Cvttss2siRR(dst, src Reg, wide bool) {
	e.Em.EmitU8(0xf3)
	e.Instr(wide, []byte{0x0f, 0x2c}, dst, Operand{Kind: OpReg, Base: src})
}

// Cvtss2sdRR/Cvtsd2ssRR convert directly between the two SSE widths.
func (e *Encoder) Cvtss2sdRR(dst, src Reg) {
	e.Em.EmitU8(0xf3)
	e.Instr(false, []byte{0x0f, 0x5a}, dst, Operand{Kind: OpReg, Base: src})
}

func (e *Encoder) Cvtsd2ssRR(dst, src Reg) {
	e.Em.EmitU8(0xf2)
	e.Instr(false, []byte{0x0f, 0x5a}, dst, Operand{Kind: OpReg, Base: src})
}

// --- x87, used only for the long-double path ---
//
// These address a local frame slot via Instr's OpLocal form, passing a
// register whose ordinal matches the opcode's /digit extension — the same
// trick SubImm32/JmpIndirect/CallIndirectSym use for their own opcode
// extensions, since Instr's "reg" parameter is just a ModR/M.reg value here.

// FildqMem emits `fildll [rbp+off]` (DF /5): push a 64-bit integer onto the
// x87 stack as an extended-precision value.
func (e *Encoder) FildqMem(off int32) {
	e.Instr(false, []byte{0xdf}, RBP, Operand{Kind: OpLocal, Disp: off})
}

// FldlMem emits `fldl [rbp+off]` (DD /0): push a double-precision memory
// operand onto the x87 stack.
func (e *Encoder) FldlMem(off int32) {
	e.Instr(false, []byte{0xdd}, RAX, Operand{Kind: OpLocal, Disp: off})
}

// FstplMem emits `fstpl [rbp+off]` (DD /3): pop the x87 stack top into a
// double-precision memory operand.
func (e *Encoder) FstplMem(off int32) {
	e.Instr(false, []byte{0xdd}, RBX, Operand{Kind: OpLocal, Disp: off})
}

// FaddpST1/FsubpST1/FmulpST1/FdivpST1 apply the corresponding op between
// st(1) and st(0) and pop, collapsing a two-deep x87 stack back to one
// value (DE C1/E9/C9/F9 — the "fxxxp %st, %st(1)" sequence gen_opf uses).
func (e *Encoder) FaddpST1() { e.Em.EmitBytes(0xde, 0xc1) }
func (e *Encoder) FsubpST1() { e.Em.EmitBytes(0xde, 0xe9) }
func (e *Encoder) FmulpST1() { e.Em.EmitBytes(0xde, 0xc9) }
func (e *Encoder) FdivpST1() { e.Em.EmitBytes(0xde, 0xf9) }
