package cgen

import "mtcc/x64"

// BinOp names one integer binary operator GenOpi knows how to lower (spec
// §4.7 "gen_opi"). Comparison operators produce a pending KindCmp value
// instead of materializing a 0/1 immediately, matching the source's
// short-circuit-friendly design.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpDiv // signed integer division (GenOpi) or FP division (GenOpf)
	OpMod // signed integer remainder; GenOpi only, GenOpf has no modulo
	OpShl // logical left shift
	OpShr // logical (unsigned) right shift
	OpSar // arithmetic (signed) right shift
)

func (op BinOp) condCode() (x64.CondCode, bool) {
	switch op {
	case OpCmpEq:
		return x64.CCE, true
	case OpCmpNe:
		return x64.CCNE, true
	case OpCmpLt:
		return x64.CCL, true
	case OpCmpLe:
		return x64.CCLE, true
	case OpCmpGt:
		return x64.CCG, true
	case OpCmpGe:
		return x64.CCGE, true
	default:
		return 0, false
	}
}

// GenOpi pops the top two stack entries, materializes both into integer
// registers, emits the operation, and pushes the result — a plain KindReg
// for arithmetic/bitwise ops, a pending KindCmp for comparisons (spec §4.7
// "gen_opi").
func (u *Unit) GenOpi(op BinOp) error {
	if u.Depth() < 2 {
		return u.Diag.Errorf("cgen: gen_opi needs two operands on the stack")
	}

	if cc, isCmp := op.condCode(); isCmp {
		r1, r2, err := u.Gv2(x64.ClassInt, x64.ClassInt)
		if err != nil {
			return err
		}
		u.Enc.CmpRR(r1, r2)
		u.Pop()
		u.Pop()
		u.Push(SValue{Kind: KindCmp, CC: cc})
		return nil
	}

	switch op {
	case OpShl, OpShr, OpSar:
		return u.genShift(op)
	case OpDiv, OpMod:
		return u.genDivMod(op)
	}

	r1, r2, err := u.Gv2(x64.ClassInt, x64.ClassInt)
	if err != nil {
		return err
	}
	switch op {
	case OpAdd:
		u.Enc.AddRR(r1, r2)
	case OpSub:
		u.Enc.SubRR(r1, r2)
	case OpAnd:
		u.Enc.AndRR(r1, r2)
	case OpOr:
		u.Enc.OrRR(r1, r2)
	case OpXor:
		u.Enc.XorRR(r1, r2)
	case OpMul:
		u.Enc.ImulRR(r1, r2)
	default:
		return u.Diag.Errorf("cgen: unhandled integer binary operator %d", op)
	}
	u.Pop()
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: r1})
	u.owner[r1] = len(u.stack)
	return nil
}

// genShift lowers <<, >> (logical), and >> (arithmetic): the count operand
// is forced into CL, the shifted value into any other available integer
// register, matching x86_64-gen.c's gen_opi "gen_shift" register-operand
// path ("we generate the shift in ecx"). Its constant-count immediate-shift
// fast path isn't reproduced, consistent with the arithmetic ops above
// never folding a constant operand either.
func (u *Unit) genShift(op BinOp) error {
	if err := u.forceInto(0, x64.RCX); err != nil {
		return err
	}
	r, err := u.gvSecond(x64.ClassInt)
	if err != nil {
		return err
	}
	width := u.At(1).Width
	switch op {
	case OpShl:
		u.Enc.ShlRCl(r)
	case OpShr:
		u.Enc.ShrRCl(r)
	case OpSar:
		u.Enc.SarRCl(r)
	}
	u.Pop()
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: r, Width: width})
	u.owner[r] = len(u.stack)
	return nil
}

// genDivMod lowers / and % ("div/mod forces LHS into RAX and spills RDX"):
// the dividend is forced into RAX and the divisor into RCX — x86_64-gen.c's
// divmod branch forces both operands the same way via gv2(RC_RAX, RC_RCX)
// even though idiv/div only reads one r/m operand, RCX simply being its
// chosen scratch slot for the divisor. RDX is spilled before being
// clobbered as the sign-extended (signed) or zeroed (unsigned) high half.
// The divisor is forced first so that a dividend already resident in RCX,
// or a divisor already resident in RAX, gets spilled-and-reloaded rather
// than silently overwritten — see forceInto.
func (u *Unit) genDivMod(op BinOp) error {
	unsigned := u.At(1).Width == WUnsigned
	if err := u.forceInto(0, x64.RCX); err != nil {
		return err
	}
	if err := u.forceInto(1, x64.RAX); err != nil {
		return err
	}
	if err := u.SaveReg(x64.RDX); err != nil {
		return err
	}
	if unsigned {
		u.Enc.XorRR(x64.RDX, x64.RDX)
		u.Enc.DivR(x64.RCX)
	} else {
		u.Enc.Cqo()
		u.Enc.IdivR(x64.RCX)
	}
	result := x64.RAX
	if op == OpMod {
		result = x64.RDX
	}
	u.Pop()
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: result, Width: WFull})
	u.owner[result] = len(u.stack)
	return nil
}

// Gjmp pops nothing; it emits an unconditional jump threaded onto chain and
// returns the new chain head, mirroring x64.Encoder.Gjmp at the value-stack
// level (spec §4.7 "gjmp").
func (u *Unit) Gjmp(chain int) int {
	return u.Enc.Gjmp(chain)
}

// GjmpAddr emits an unconditional jump to an already-known target (spec
// §4.7 "gjmp_addr"), used for loop back-edges where the target precedes
// the jump.
func (u *Unit) GjmpAddr(target int) {
	u.Enc.JmpAddr(target)
}

// Gtst pops a pending comparison (or an already-materialized register/
// constant, which it compares against zero first) and emits a conditional
// jump threaded onto chain, returning the new head. inv inverts the sense
// of the test — "jump if false" instead of "jump if true" (spec §4.7
// "gtst").
func (u *Unit) Gtst(inv bool, chain int) (int, error) {
	if u.Depth() < 1 {
		return chain, u.Diag.Errorf("cgen: gtst needs a value on the stack")
	}
	top := u.Top()

	var cc x64.CondCode
	switch top.Kind {
	case KindCmp:
		cc = top.CC
	case KindReg, KindLocal, KindLLocal, KindConst:
		r, err := u.Gv(x64.ClassInt)
		if err != nil {
			return chain, err
		}
		u.Enc.TestRR(r, r)
		cc = x64.CCNE
	default:
		return chain, u.Diag.Errorf("cgen: gtst on a pending jump chain is not yet collapsed")
	}

	if inv {
		cc = cc.Invert()
	}
	if top.Unordered && !inv {
		chain = u.Enc.Gjcc(x64.CCP, chain)
	}
	chain = u.Enc.Gjcc(cc, chain)
	u.Pop()
	return chain, nil
}

// Ggoto pops a pointer value and emits an indirect jump through it (spec
// §4.7 "ggoto"), used for `goto *expr` and computed switch dispatch.
func (u *Unit) Ggoto() error {
	if u.Depth() < 1 {
		return u.Diag.Errorf("cgen: ggoto needs a target pointer on the stack")
	}
	r, err := u.Gv(x64.ClassInt)
	if err != nil {
		return err
	}
	u.Enc.JmpIndirect(r)
	u.Pop()
	return nil
}
