package x64

import "mtcc/section"

// OperandKind selects one of gen_modrm's four base addressing forms (spec
// §4.6).
type OperandKind int

const (
	// OpReg is register-direct addressing: mod=11, r/m=reg.
	OpReg OperandKind = iota
	// OpLocal is `[rbp+disp]`, disp8 when it fits in a signed byte, disp32
	// otherwise.
	OpLocal
	// OpMem is register-indirect (`[reg]`, `[reg+disp8]` or `[reg+disp32]`), used for
	// ordinals at or above the code generator's TREG_MEM threshold.
	OpMem
	// OpConst is RIP-relative addressing against a symbol, with a
	// GOTPCREL fallback when the symbol is not locally STATIC.
	OpConst
)

// Operand describes one memory/register/symbol addressing-mode argument to
// gen_modrm.
type Operand struct {
	Kind OperandKind
	Base Reg   // valid for OpReg/OpLocal/OpMem
	Disp int32 // valid for OpLocal/OpMem

	Sym     *section.Symbol // valid for OpConst
	SymDisp int32           // added to the relocation addend; cgen.Load passes 0 for a GOTPCREL symbol and adds its displacement after the load
}

// rex computes the REX prefix byte for an operation with REX.W (64-bit
// operand size) set per w, REX.R driven by the instruction's reg field, and
// REX.X/REX.B driven by the addressing mode's index/base registers (spec
// §4.6 "orex(w, r, x, opcode)"). needed reports whether any non-default bit
// is set, matching the source's habit of only emitting REX when required —
// mtcc, like the teacher, always emits it for 64-bit GPR ops for simplicity.
func rex(w bool, reg Reg, x, base Reg, hasX, hasBase bool) (b byte, needed bool) {
	b = 0x40
	if w {
		b |= 0x08
	}
	if _, need := reg.ord(); need {
		b |= 0x04 // REX.R
	}
	if hasX {
		if _, need := x.ord(); need {
			b |= 0x02 // REX.X
		}
	}
	if hasBase {
		if _, need := base.ord(); need {
			b |= 0x01 // REX.B
		}
	}
	return b, b != 0x40 || w
}

// modrm builds a ModR/M byte: mod (0-3), reg field (3 bits), rm field (3
// bits); callers pass already-masked 3-bit fields.
func modrm(mod byte, regField, rmField int) byte {
	return (mod << 6) | byte((regField&7)<<3) | byte(rmField&7)
}

// sibEscape is the ModR/M r/m value (4) that signals "SIB byte follows",
// and the SIB byte needed to address RSP/R12 with no index (base=100,
// index=100 meaning none, scale irrelevant).
const sibEscape = 4

func sibNoIndex(base int) byte {
	return (0 << 6) | (4 << 3) | byte(base&7)
}

// fitsInt8 reports whether v fits in a signed byte.
func fitsInt8(v int32) bool { return v >= -128 && v <= 127 }

// GenModRM emits the REX prefix, ModR/M (+SIB +disp), and any relocation
// for one of the four addressing forms gen_modrm supports (spec §4.6),
// with reg as the instruction's /reg field (another register, or an opcode
// extension such as /0 for a group instruction). It returns the offset of
// any 4-byte rel32 slot it reserved (for CONST addressing), or -1.
//
// This emits no opcode byte of its own — it's the bare operand-encoding
// helper the unit tests exercise directly. Instr below is the form real
// instructions use, since REX must immediately precede the opcode rather
// than the ModR/M byte.
func (e *Encoder) GenModRM(w bool, reg Reg, op Operand) (patchSite int) {
	rb, hasRex := e.modrmRex(w, reg, op)
	if hasRex {
		e.Em.EmitU8(rb)
	}
	return e.emitModRM(reg, op)
}

// modrmRex computes the REX byte GenModRM/Instr would emit for reg/op
// without emitting anything, so Instr can place it before the opcode.
func (e *Encoder) modrmRex(w bool, reg Reg, op Operand) (b byte, needed bool) {
	switch op.Kind {
	case OpReg:
		return rex(w, reg, 0, op.Base, false, true)
	case OpLocal:
		return rex(w, reg, 0, RBP, false, true)
	case OpMem:
		return rex(w, reg, 0, op.Base, false, true)
	case OpConst:
		return rex(w, reg, 0, 0, false, false)
	}
	return 0x40, w
}

// Instr emits a full ModR/M-form instruction: REX (if needed), the opcode
// bytes, then ModR/M/SIB/disp/relocation via the same addressing logic as
// GenModRM. Used by the load/store helpers cgen drives (spec §4.6/§4.7
// "load"/"store").
func (e *Encoder) Instr(w bool, opcode []byte, reg Reg, op Operand) (patchSite int) {
	rb, hasRex := e.modrmRex(w, reg, op)
	if hasRex {
		e.Em.EmitU8(rb)
	}
	for _, b := range opcode {
		e.Em.EmitU8(b)
	}
	return e.emitModRM(reg, op)
}

// emitModRM writes the ModR/M byte (+SIB/disp/relocation) for reg/op,
// assuming any REX prefix and opcode bytes have already been emitted.
func (e *Encoder) emitModRM(reg Reg, op Operand) (patchSite int) {
	patchSite = -1
	switch op.Kind {
	case OpReg:
		rmField, _ := op.Base.ord()
		e.Em.EmitU8(modrm(3, regField(reg), rmField))

	case OpLocal:
		if fitsInt8(op.Disp) {
			e.Em.EmitU8(modrm(1, regField(reg), 5)) // rbp encodes as r/m=101 with mod=01/10
			e.Em.EmitU8(byte(op.Disp))
		} else {
			e.Em.EmitU8(modrm(2, regField(reg), 5))
			e.Em.EmitLE32(uint32(op.Disp))
		}

	case OpMem:
		baseField, _ := op.Base.ord()
		needsSIB := baseField == 4 // RSP/R12 require a SIB byte even with no index
		switch {
		case op.Disp == 0 && baseField != 5: // rbp/r13 can't use the mod=00,rm=101 short form (that's RIP-relative)
			if needsSIB {
				e.Em.EmitU8(modrm(0, regField(reg), sibEscape))
				e.Em.EmitU8(sibNoIndex(baseField))
			} else {
				e.Em.EmitU8(modrm(0, regField(reg), baseField))
			}
		case fitsInt8(op.Disp):
			if needsSIB {
				e.Em.EmitU8(modrm(1, regField(reg), sibEscape))
				e.Em.EmitU8(sibNoIndex(baseField))
			} else {
				e.Em.EmitU8(modrm(1, regField(reg), baseField))
			}
			e.Em.EmitU8(byte(op.Disp))
		default:
			if needsSIB {
				e.Em.EmitU8(modrm(2, regField(reg), sibEscape))
				e.Em.EmitU8(sibNoIndex(baseField))
			} else {
				e.Em.EmitU8(modrm(2, regField(reg), baseField))
			}
			e.Em.EmitLE32(uint32(op.Disp))
		}

	case OpConst:
		e.Em.EmitU8(modrm(0, regField(reg), 5)) // mod=00, r/m=101 -> RIP-relative
		patchSite = e.Em.EmitWithPatch()
		kind := section.PC32
		if op.Sym != nil && !op.Sym.Flags.Static {
			kind = section.GOTPCREL
		}
		e.Em.Sec.Relocs = append(e.Em.Sec.Relocs, section.Reloc{
			Offset: patchSite,
			Sym:    op.Sym,
			Kind:   kind,
			Addend: int64(op.SymDisp) - 4,
		})
	}
	return patchSite
}

func regField(r Reg) int {
	f, _ := r.ord()
	return f
}
