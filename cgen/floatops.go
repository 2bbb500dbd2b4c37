package cgen

import "mtcc/x64"

// FloatWidth selects which C floating-point representation GenOpf/GenCvt*
// operate on (spec §4.7 "gen_opf"/"gen_cvt_itof/ftoi/ftof").
type FloatWidth int

const (
	FWFloat   FloatWidth = iota // C float: 4-byte SSE single
	FWDouble                    // C double: 8-byte SSE double
	FWLDouble                   // C long double: staged through the x87 stack
)

// floatWidth reports which FloatWidth sv's tag corresponds to.
func (sv SValue) floatWidth() FloatWidth {
	switch sv.Width {
	case WSingle:
		return FWFloat
	case WLDouble:
		return FWLDouble
	default:
		return FWDouble
	}
}

func (fw FloatWidth) valWidth() ValWidth {
	switch fw {
	case FWFloat:
		return WSingle
	case FWLDouble:
		return WLDouble
	default:
		return WDouble
	}
}

// GenOpf pops the top two stack entries, materializes both as floating-point
// values of width fw, emits the operation, and pushes the result — a plain
// KindReg for arithmetic, a pending KindCmp (always carrying Unordered, per
// ucomisd/fucompp's NaN-sensitive flags) for comparisons (spec §4.7
// "gen_opf").
func (u *Unit) GenOpf(op BinOp, fw FloatWidth) error {
	if u.Depth() < 2 {
		return u.Diag.Errorf("cgen: gen_opf needs two operands on the stack")
	}
	if fw == FWLDouble {
		return u.genOpfLDouble(op)
	}
	return u.genOpfSSE(op, fw)
}

func (u *Unit) genOpfSSE(op BinOp, fw FloatWidth) error {
	if cc, isCmp := op.condCode(); isCmp {
		r1, r2, err := u.Gv2(x64.ClassFloat, x64.ClassFloat)
		if err != nil {
			return err
		}
		if fw == FWFloat {
			u.Enc.UcomissRR(r1, r2)
		} else {
			u.Enc.UcomisdRR(r1, r2)
		}
		u.Pop()
		u.Pop()
		u.Push(SValue{Kind: KindCmp, CC: cc, Unordered: true})
		return nil
	}

	r1, r2, err := u.Gv2(x64.ClassFloat, x64.ClassFloat)
	if err != nil {
		return err
	}
	switch op {
	case OpAdd:
		if fw == FWFloat {
			u.Enc.AddssRR(r1, r2)
		} else {
			u.Enc.AddsdRR(r1, r2)
		}
	case OpSub:
		if fw == FWFloat {
			u.Enc.SubssRR(r1, r2)
		} else {
			u.Enc.SubsdRR(r1, r2)
		}
	case OpMul:
		if fw == FWFloat {
			u.Enc.MulssRR(r1, r2)
		} else {
			u.Enc.MulsdRR(r1, r2)
		}
	case OpDiv:
		if fw == FWFloat {
			u.Enc.DivssRR(r1, r2)
		} else {
			u.Enc.DivsdRR(r1, r2)
		}
	default:
		return u.Diag.Errorf("cgen: unhandled floating-point binary operator %d", op)
	}
	u.Pop()
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: r1, Width: fw.valWidth()})
	u.owner[r1] = len(u.stack)
	return nil
}

// genOpfLDouble is gen_opf's long-double branch: both operands are staged
// to memory (spilling whatever register they occupy first) and the
// arithmetic runs on the real x87 stack two-deep, matching the source's
// "no memory reference possible for long double operations" comment — tcc
// forces both operands through ST0/ST1 rather than ever folding a memory
// operand into the op the way the SSE path can.
func (u *Unit) genOpfLDouble(op BinOp) error {
	rhs := u.Pop()
	lhs := u.Pop()

	loff, err := u.spillLDoubleOperand(&lhs)
	if err != nil {
		return err
	}
	roff, err := u.spillLDoubleOperand(&rhs)
	if err != nil {
		return err
	}

	if cc, isCmp := op.condCode(); isCmp {
		// This generator's long double is a double bit pattern wearing a
		// different tag (see WLDouble's doc comment), so the comparison
		// itself can go through the same ucomisd path the double case
		// uses rather than fcompp/fnstsw/sahf.
		a, err := u.allocReg(x64.ClassFloat, nil)
		if err != nil {
			return err
		}
		b, err := u.allocReg(x64.ClassFloat, []x64.Reg{a})
		if err != nil {
			return err
		}
		u.Enc.MovsdLoad(a, loff)
		u.Enc.MovsdLoad(b, roff)
		u.Enc.UcomisdRR(a, b)
		u.Push(SValue{Kind: KindCmp, CC: cc, Unordered: true})
		return nil
	}

	u.Enc.FldlMem(loff) // ST0 = lhs
	u.Enc.FldlMem(roff) // ST0 = rhs, ST1 = lhs
	switch op {
	case OpAdd:
		u.Enc.FaddpST1()
	case OpSub:
		u.Enc.FsubpST1()
	case OpMul:
		u.Enc.FmulpST1()
	case OpDiv:
		u.Enc.FdivpST1()
	default:
		return u.Diag.Errorf("cgen: unhandled long-double binary operator %d", op)
	}
	u.FrameBytes += 8
	off := -u.FrameBytes
	u.Enc.FstplMem(off)
	u.Push(SValue{Kind: KindLocal, Off: off, Width: WLDouble})
	return nil
}

// spillLDoubleOperand ensures sv occupies an 8-byte local scratch slot and
// returns its offset, spilling a register-resident value first (spec §4.7's
// "local scratch slot").
func (u *Unit) spillLDoubleOperand(sv *SValue) (int32, error) {
	if sv.Kind == KindLocal && (sv.Width == WLDouble || sv.Width == WDouble) {
		return sv.Off, nil
	}
	if sv.Kind != KindReg || sv.Reg.Classes() != x64.ClassFloat {
		return 0, u.Diag.Errorf("cgen: long-double operand must already be float-register- or memory-resident")
	}
	u.FrameBytes += 8
	off := -u.FrameBytes
	u.Enc.MovsdStore(off, sv.Reg)
	delete(u.owner, sv.Reg)
	return off, nil
}

// GenCvtItoF converts the top-of-stack integer value to floating-point
// width fw (spec §4.7 "gen_cvt_itof"). GPR values in this generator's model
// are always full 64-bit, so the long-long and plain-int source cases the
// source distinguishes collapse to one fildll sequence; mtcc's cgen has no
// separate unsigned-vs-signed type channel feeding this call, so the
// unsigned-int zero-pad special case isn't reproduced here.
func (u *Unit) GenCvtItoF(fw FloatWidth) error {
	if u.Depth() < 1 {
		return u.Diag.Errorf("cgen: gen_cvt_itof needs a value on the stack")
	}
	r, err := u.Gv(x64.ClassInt)
	if err != nil {
		return err
	}

	if fw == FWLDouble {
		if err := u.SaveReg(x64.ST0); err != nil {
			return err
		}
		u.FrameBytes += 8
		off := -u.FrameBytes
		u.Enc.Instr(true, []byte{0x89}, r, x64.Operand{Kind: x64.OpLocal, Disp: off})
		u.Enc.FildqMem(off)
		u.Pop()
		u.Push(SValue{Kind: KindLocal, Off: off, Width: WLDouble})
		return nil
	}

	dst, err := u.allocReg(x64.ClassFloat, nil)
	if err != nil {
		return err
	}
	if fw == FWFloat {
		u.Enc.Cvtsi2ssRR(dst, r, true)
	} else {
		u.Enc.Cvtsi2sdRR(dst, r, true)
	}
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: dst, Width: fw.valWidth()})
	u.owner[dst] = len(u.stack)
	return nil
}

// GenCvtFtoI truncates the top-of-stack floating-point value to an integer
// register (spec §4.7 "gen_cvt_ftoi"); to64 selects the REX.W 64-bit
// destination form over the default 32-bit truncation.
func (u *Unit) GenCvtFtoI(to64 bool) error {
	if u.Depth() < 1 {
		return u.Diag.Errorf("cgen: gen_cvt_ftoi needs a value on the stack")
	}
	fw := u.Top().floatWidth()
	if fw == FWLDouble {
		if err := u.lowerLDoubleToDouble(); err != nil {
			return err
		}
		fw = FWDouble
	}

	src, err := u.Gv(x64.ClassFloat)
	if err != nil {
		return err
	}
	dst, err := u.allocReg(x64.ClassInt, nil)
	if err != nil {
		return err
	}
	if fw == FWFloat {
		u.Enc.Cvttss2siRR(dst, src, to64)
	} else {
		u.Enc.Cvttsd2siRR(dst, src, to64)
	}
	u.Pop()
	u.Push(SValue{Kind: KindReg, Reg: dst, Width: WFull})
	u.owner[dst] = len(u.stack)
	return nil
}

// GenCvtFtoF converts the top-of-stack floating-point value to width to
// (spec §4.7 "gen_cvt_ftof").
func (u *Unit) GenCvtFtoF(to FloatWidth) error {
	if u.Depth() < 1 {
		return u.Diag.Errorf("cgen: gen_cvt_ftof needs a value on the stack")
	}
	from := u.Top().floatWidth()
	if from == to {
		return nil
	}

	if from == FWLDouble {
		if err := u.lowerLDoubleToDouble(); err != nil {
			return err
		}
		from = FWDouble
		if from == to {
			return nil
		}
	}

	if to == FWLDouble {
		r, err := u.Gv(x64.ClassFloat)
		if err != nil {
			return err
		}
		if from == FWFloat {
			u.Enc.Cvtss2sdRR(r, r)
		}
		u.FrameBytes += 8
		off := -u.FrameBytes
		u.Enc.MovsdStore(off, r)
		u.Pop()
		u.Push(SValue{Kind: KindLocal, Off: off, Width: WLDouble})
		return nil
	}

	r, err := u.Gv(x64.ClassFloat)
	if err != nil {
		return err
	}
	if from == FWFloat && to == FWDouble {
		u.Enc.Cvtss2sdRR(r, r)
	} else if from == FWDouble && to == FWFloat {
		u.Enc.Cvtsd2ssRR(r, r)
	}
	u.Top().Width = to.valWidth()
	return nil
}

// lowerLDoubleToDouble retags the top-of-stack staged long-double slot as a
// plain double. Since this generator always stages long doubles through an
// 8-byte scratch slot (WLDouble's doc comment), that slot already holds a
// double-precision bit pattern — no instructions are needed, only the width
// tag changes.
func (u *Unit) lowerLDoubleToDouble() error {
	top := u.Top()
	if top.Kind != KindLocal || top.Width != WLDouble {
		return u.Diag.Errorf("cgen: expected a staged long-double value")
	}
	top.Width = WDouble
	return nil
}
