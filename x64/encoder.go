package x64

import (
	"mtcc/emit"
	"mtcc/section"
)

// Encoder is the instruction-level x86-64 byte emitter cgen drives. It
// wraps an emit.Emitter so GenModRM and the instruction helpers below share
// the same section cursor and relocation list.
type Encoder struct {
	Em *emit.Emitter
}

// New returns an Encoder writing through em.
func New(em *emit.Emitter) *Encoder { return &Encoder{Em: em} }

// regRegOp emits a REX.W-prefixed register/register ALU opcode in the
// `opcode r/m64, r64` encoding (reg field is the "src" operand, r/m field is
// "dst"), matching the teacher's rexRR/modrmRR(reg=src, rm=dst) convention.
func (e *Encoder) regRegOp(opcode byte, dst, src Reg) {
	rb, _ := rex(true, src, 0, dst, false, true)
	e.Em.EmitU8(rb)
	e.Em.EmitU8(opcode)
	e.Em.EmitU8(modrm(3, regField(src), regField(dst)))
}

// MovRR emits `mov dst, src` (64-bit register to register).
func (e *Encoder) MovRR(dst, src Reg) { e.regRegOp(0x89, dst, src) }

// AddRR emits `add dst, src` — spec §8 scenario 2.
func (e *Encoder) AddRR(dst, src Reg) { e.regRegOp(0x01, dst, src) }

// SubRR emits `sub dst, src`.
func (e *Encoder) SubRR(dst, src Reg) { e.regRegOp(0x29, dst, src) }

// AndRR/OrRR/XorRR emit the corresponding bitwise register ALU ops.
func (e *Encoder) AndRR(dst, src Reg) { e.regRegOp(0x21, dst, src) }
func (e *Encoder) OrRR(dst, src Reg)  { e.regRegOp(0x09, dst, src) }
func (e *Encoder) XorRR(dst, src Reg) { e.regRegOp(0x31, dst, src) }

// CmpRR emits `cmp a, b`.
func (e *Encoder) CmpRR(a, b Reg) { e.regRegOp(0x39, a, b) }

// TestRR emits `test a, b`, used by Gtst to branch on a register's
// truthiness without needing a zero-comparison operand.
func (e *Encoder) TestRR(a, b Reg) { e.regRegOp(0x85, a, b) }

// JmpIndirect emits `jmp r64` (opcode FF /4, ModR/M register-direct).
func (e *Encoder) JmpIndirect(r Reg) {
	e.Instr(false, []byte{0xff}, RSP, Operand{Kind: OpReg, Base: r})
}

// ImulRR emits `imul dst, src` (two-byte opcode 0F AF, reg=dst this time —
// the only ALU op where the "dst" operand occupies ModR/M.reg rather than
// r/m, matching the teacher's imulRR).
func (e *Encoder) ImulRR(dst, src Reg) {
	rb, _ := rex(true, dst, 0, src, false, true)
	e.Em.EmitU8(rb)
	e.Em.EmitU8(0x0f)
	e.Em.EmitU8(0xaf)
	e.Em.EmitU8(modrm(3, regField(dst), regField(src)))
}

// MovImm64 emits `movabs dst, imm64` (REX.W + B8+rd + imm64) — spec §8
// scenario 1.
func (e *Encoder) MovImm64(dst Reg, val uint64) {
	rb, _ := rex(true, 0, 0, dst, false, true)
	e.Em.EmitU8(rb)
	f, _ := dst.ord()
	e.Em.EmitU8(0xB8 + byte(f))
	e.Em.EmitLE64(val)
}

// PushR/PopR emit `push`/`pop` for a 64-bit GPR, using REX.B only when the
// register needs it (r8-r15) — the one-byte opcode forms don't need REX.W.
func (e *Encoder) PushR(r Reg) {
	f, needsRex := r.ord()
	if needsRex {
		e.Em.EmitU8(0x41)
	}
	e.Em.EmitU8(0x50 + byte(f))
}

func (e *Encoder) PopR(r Reg) {
	f, needsRex := r.ord()
	if needsRex {
		e.Em.EmitU8(0x41)
	}
	e.Em.EmitU8(0x58 + byte(f))
}

// Ret emits `ret`.
func (e *Encoder) Ret() { e.Em.EmitU8(0xC3) }

// Nop emits `nop`.
func (e *Encoder) Nop() { e.Em.EmitU8(0x90) }

// Syscall emits the `syscall` instruction.
func (e *Encoder) Syscall() { e.Em.EmitBytes(0x0f, 0x05) }

// Leave emits `leave` (mov rsp, rbp; pop rbp in one byte).
func (e *Encoder) Leave() { e.Em.EmitU8(0xC9) }

// SubImm32 emits `sub dst, imm32` (opcode 81 /5 id) — the frame prologue's
// `sub rsp, v`. The ModR/M opcode-extension slot (/5) is obtained the same
// way JmpIndirect gets /4: passing the register whose ordinal equals the
// extension as Instr's "reg" operand.
func (e *Encoder) SubImm32(dst Reg, imm int32) {
	e.Instr(true, []byte{0x81}, RBP, Operand{Kind: OpReg, Base: dst})
	e.Em.EmitLE32(uint32(imm))
}

// Cqo emits `cqo` (REX.W 99): sign-extends RAX's sign bit through all of
// RDX, the high half idiv reads as the dividend's upper 64 bits (spec §4.7
// "div/mod forces LHS into RAX and spills RDX").
func (e *Encoder) Cqo() {
	rb, _ := rex(true, 0, 0, 0, false, false)
	e.Em.EmitU8(rb)
	e.Em.EmitU8(0x99)
}

// IdivR/DivR emit signed/unsigned 64-bit division (F7 /7, F7 /6): RDX:RAX
// divided by r, quotient to RAX, remainder to RDX. The /7 and /6 extensions
// are obtained the same way JmpIndirect/SubImm32 get theirs — passing a
// register whose ordinal equals the digit (RDI=7, RSI=6) as Instr's "reg".
func (e *Encoder) IdivR(r Reg) {
	e.Instr(true, []byte{0xf7}, RDI, Operand{Kind: OpReg, Base: r})
}

func (e *Encoder) DivR(r Reg) {
	e.Instr(true, []byte{0xf7}, RSI, Operand{Kind: OpReg, Base: r})
}

// ShlRCl/ShrRCl/SarRCl emit `shl/shr/sar r, cl` (D3 /4, D3 /5, D3 /7) — the
// register/CL path of gen_opi's "gen_shift", the count having already been
// forced into CL by the caller.
func (e *Encoder) ShlRCl(r Reg) {
	e.Instr(true, []byte{0xd3}, RSP, Operand{Kind: OpReg, Base: r})
}

func (e *Encoder) ShrRCl(r Reg) {
	e.Instr(true, []byte{0xd3}, RBP, Operand{Kind: OpReg, Base: r})
}

func (e *Encoder) SarRCl(r Reg) {
	e.Instr(true, []byte{0xd3}, RDI, Operand{Kind: OpReg, Base: r})
}

// CallRel32Sym emits `call sym` (E8 rel32, PLT32-relocated) — a direct call
// to a function symbol, as opposed to CallIndirectSym's RIP-relative
// function-pointer load used only for the __chkstk trampoline.
func (e *Encoder) CallRel32Sym(sym *section.Symbol) {
	e.Em.EmitU8(0xe8)
	site := e.Em.EmitWithPatch()
	e.Em.Sec.Relocs = append(e.Em.Sec.Relocs, section.Reloc{
		Offset: site,
		Sym:    sym,
		Kind:   section.PLT32,
		Addend: -4,
	})
}

// CallIndirectSym emits `call [rip+disp32]` against sym (opcode FF /2),
// used for the `__chkstk` trampoline call when a frame is too large for a
// plain `sub rsp, imm32` (spec §4.8 "a __chkstk trampoline when v >= 4096").
func (e *Encoder) CallIndirectSym(sym *section.Symbol) {
	e.Instr(false, []byte{0xff}, RDX, Operand{Kind: OpConst, Sym: sym})
}

// MovImm32 emits `mov dst, imm32` into the low 32 bits of dst (opcode
// B8+rd id, no REX.W — the upper 32 bits are zeroed per the standard
// 32-bit-result convention), used to stage __chkstk's requested size in
// EAX.
func (e *Encoder) MovImm32(dst Reg, val uint32) {
	f, needsRex := dst.ord()
	if needsRex {
		e.Em.EmitU8(0x41)
	}
	e.Em.EmitU8(0xB8 + byte(f))
	e.Em.EmitLE32(val)
}

// --- Jumps ---

// JmpAddr emits a jump to the already-known absolute offset target, picking
// the 2-byte short form (`EB rel8`) when `target - ind - 2` fits a signed
// byte, else the 5-byte long form (`E9 rel32`) — spec §4.7 "gjmp_addr" and
// §8's boundary case.
func (e *Encoder) JmpAddr(target int) {
	ind := e.Em.Ind()
	rel := int64(target) - int64(ind) - 2
	if rel >= -128 && rel <= 127 {
		e.Em.EmitU8(0xEB)
		e.Em.EmitU8(byte(int8(rel)))
		return
	}
	e.Em.EmitU8(0xE9)
	site := e.Em.EmitWithPatch()
	e.Em.PatchRel32(site, target)
}

// Gjmp emits an unconditional long jump (`E9 rel32`) to a not-yet-known
// target and threads the 4-byte slot onto chain, returning the new head
// (spec §4.7 "gjmp(target_chain)"). The target is resolved later with
// GsymAddr.
func (e *Encoder) Gjmp(chain int) int {
	e.Em.EmitU8(0xE9)
	site := e.Em.EmitWithPatch()
	return emit.ChainAppend(e.Em, chain, site)
}

// Gjcc emits a conditional long jump (`0F 8x rel32`) to a not-yet-known
// target, threading the slot onto chain the same way Gjmp does.
func (e *Encoder) Gjcc(cc CondCode, chain int) int {
	e.Em.EmitU8(0x0f)
	e.Em.EmitU8(cc.Byte())
	site := e.Em.EmitWithPatch()
	return emit.ChainAppend(e.Em, chain, site)
}

// GsymAddr resolves every site threaded through chain to point at target
// (spec §4.7/§9 "gsym_addr").
func (e *Encoder) GsymAddr(chain int, target int) {
	emit.ChainResolve(e.Em, chain, target)
}
