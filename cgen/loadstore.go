package cgen

import "mtcc/x64"

// widthOpcodes returns the load (mov r, r/m) and store (mov r/m, r)
// opcodes for one ValWidth, sign/zero-extending on load for the narrower
// widths (spec §4.7 "load"/"store" dispatch on VT_BYTE/VT_SHORT/VT_INT).
func widthOpcodes(w ValWidth) (load, store []byte) {
	switch w {
	case WByte:
		return []byte{0x0f, 0xbe}, []byte{0x88} // movsx r, r/m8 ; mov r/m8, r8 (low byte of src)
	case WShort:
		return []byte{0x0f, 0xbf}, []byte{0x66, 0x89} // movsx r, r/m16 ; mov r/m16, r16
	case WUnsigned:
		return []byte{0x0f, 0xb6}, []byte{0x88} // movzx r, r/m8
	default:
		return []byte{0x8b}, []byte{0x89} // mov r, r/m64 ; mov r/m64, r64
	}
}

// Load emits the instruction(s) that bring src's value into register r,
// without touching the stack entry itself (spec §4.7 "load").
func (u *Unit) Load(r x64.Reg, src SValue) error {
	if src.Width == WSingle || src.Width == WDouble {
		return u.loadFloat(r, src)
	}

	switch src.Kind {
	case KindConst:
		if src.Sym != nil {
			op := x64.Operand{Kind: x64.OpConst, Sym: src.Sym, SymDisp: int32(src.Const)}
			if src.Sym.Flags.Static {
				// `lea r, [rip+sym]` computes the symbol's own address
				// directly — the PC32 relocation the linker resolves it
				// with points straight at the symbol.
				u.Enc.Instr(true, []byte{0x8d}, r, op)
			} else {
				// Non-static symbols route through the GOT: the PC32 slot
				// instead holds a GOTPCREL relocation pointing at the
				// symbol's GOT entry, so the entry's *contents* (the real
				// address) must be loaded with `mov`, not computed with
				// `lea`. The displacement is then added to the loaded
				// address (`add r, imm32`), not to the GOT slot's address.
				op.SymDisp = 0
				u.Enc.Instr(true, []byte{0x8b}, r, op)
				if src.Const != 0 {
					u.Enc.Instr(true, []byte{0x81}, x64.RAX, x64.Operand{Kind: x64.OpReg, Base: r}) // 81 /0
					u.Enc.Em.EmitLE32(uint32(int32(src.Const)))
				}
			}
			return nil
		}
		u.Enc.MovImm64(r, uint64(src.Const))
		return nil

	case KindReg:
		if src.Reg != r {
			u.Enc.MovRR(r, src.Reg)
		}
		return nil

	case KindLocal:
		loadOp, _ := widthOpcodes(src.Width)
		u.Enc.Instr(true, loadOp, r, x64.Operand{Kind: x64.OpLocal, Disp: src.Off})
		return nil

	case KindLLocal:
		u.Enc.Instr(true, []byte{0x8b}, r, x64.Operand{Kind: x64.OpLocal, Disp: src.Off})
		loadOp, _ := widthOpcodes(src.Width)
		u.Enc.Instr(true, loadOp, r, x64.Operand{Kind: x64.OpMem, Base: r, Disp: 0})
		return nil

	default:
		return u.Diag.Errorf("cgen: cannot load a pending comparison/jump value directly")
	}
}

// loadFloat is Load's movss/movsd-using counterpart for XMM-resident
// values — the GPR opcodes widthOpcodes returns don't apply to them.
func (u *Unit) loadFloat(r x64.Reg, src SValue) error {
	switch src.Kind {
	case KindReg:
		if src.Reg == r {
			return nil
		}
		if src.Width == WSingle {
			u.Enc.MovssRR(r, src.Reg)
		} else {
			u.Enc.MovsdRR(r, src.Reg)
		}
		return nil

	case KindLocal:
		if src.Width == WSingle {
			u.Enc.MovssLoad(r, src.Off)
		} else {
			u.Enc.MovsdLoad(r, src.Off)
		}
		return nil

	default:
		return u.Diag.Errorf("cgen: cannot load this floating-point value kind")
	}
}

// Store emits the instruction(s) that write register r's value to dst's
// location (spec §4.7 "store"). dst is never mutated here — callers update
// the stack entry's Kind/Off themselves once the spill is emitted.
func (u *Unit) Store(r x64.Reg, dst SValue) error {
	if dst.Width == WSingle || dst.Width == WDouble {
		if dst.Kind != KindLocal {
			return u.Diag.Errorf("cgen: floating-point store target must be a local slot")
		}
		if dst.Width == WSingle {
			u.Enc.MovssStore(dst.Off, r)
		} else {
			u.Enc.MovsdStore(dst.Off, r)
		}
		return nil
	}

	switch dst.Kind {
	case KindLocal:
		_, storeOp := widthOpcodes(dst.Width)
		u.Enc.Instr(true, storeOp, r, x64.Operand{Kind: x64.OpLocal, Disp: dst.Off})
		return nil

	case KindLLocal:
		scratch, err := u.allocReg(x64.ClassInt, []x64.Reg{r})
		if err != nil {
			return err
		}
		u.Enc.Instr(true, []byte{0x8b}, scratch, x64.Operand{Kind: x64.OpLocal, Disp: dst.Off})
		_, storeOp := widthOpcodes(dst.Width)
		u.Enc.Instr(true, storeOp, r, x64.Operand{Kind: x64.OpMem, Base: scratch, Disp: 0})
		return nil

	default:
		return u.Diag.Errorf("cgen: store target must be a local or indirect-local slot")
	}
}
