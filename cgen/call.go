package cgen

import (
	"mtcc/abi"
	"mtcc/section"
	"mtcc/x64"
)

// GenCall emits a direct call to sym (spec §4.8): it marshals the top
// len(argLocs) stack entries into the registers abi.Lowering assigned them,
// emits the call itself, and pushes the return value. argLocs[0] is the
// location of the first (deepest-pushed) argument, argLocs[len-1] the last
// (topmost) — the same left-to-right order the external parser pushed them
// in.
//
// Grounded on x86_64-gen.c's gfunc_call: that function also marshals
// classified arguments into fixed registers before a direct `call` and
// loads AL with the SSE register count for a variadic callee. Stack/memory-
// class arguments (the 7th+ integer argument, or any aggregate too large
// for two eightbytes) need a non-rbp-relative outgoing-argument SValue
// addressing mode this generator doesn't have yet; GenCall reports a
// diagnostic for them rather than mis-emitting, per spec §4.8's explicitly
// allowed scope carve-out.
func (u *Unit) GenCall(sym *section.Symbol, argLocs []abi.ArgLocation, ret abi.ArgLocation, retHiddenPointer bool, variadic bool) (SValue, error) {
	if u.Depth() < len(argLocs) {
		return SValue{}, u.Diag.Errorf("cgen: gfunc_call needs %d arguments on the stack", len(argLocs))
	}
	if retHiddenPointer {
		return SValue{}, u.Diag.Errorf("cgen: gfunc_call: memory-class (hidden-pointer) return values are not yet supported")
	}

	// staged maps a destination register that the call's own ABI convention
	// reuses as a scratch slot (RDX/RCX, clobbered while gv() marshals a
	// later argument) to the R10/R11 holding pen spec §4.8 describes: "the
	// generator first marshals integer args into R10/R11 and then moves
	// them into RDX/RCX just before the call."
	type pending struct{ tmp, dst x64.Reg }
	var staged []pending

	sseUsed := 0
	for i, loc := range argLocs {
		if len(loc.Regs) == 0 {
			return SValue{}, u.Diag.Errorf("cgen: gfunc_call: stack/memory-class arguments are not yet supported")
		}
		if loc.Class.Mode == abi.ModeSSE {
			sseUsed += len(loc.Regs)
		}
		if len(loc.Regs) != 1 {
			return SValue{}, u.Diag.Errorf("cgen: gfunc_call: two-eightbyte aggregate arguments are not yet supported")
		}
		depth := len(argLocs) - 1 - i
		dst := loc.Regs[0]
		tmp := dst
		if dst == x64.RDX {
			tmp = x64.R10
		} else if dst == x64.RCX {
			tmp = x64.R11
		}
		if err := u.forceInto(depth, tmp); err != nil {
			return SValue{}, err
		}
		if tmp != dst {
			staged = append(staged, pending{tmp: tmp, dst: dst})
		}
	}
	// Only move a staged value into its real RDX/RCX destination after
	// every argument is materialized, so an earlier argument already
	// sitting in RDX/RCX isn't clobbered while a later one is evaluated.
	for _, p := range staged {
		u.Enc.MovRR(p.dst, p.tmp)
	}

	if variadic {
		u.Enc.MovImm32(x64.RAX, uint32(abi.VarargXMMCount(sseUsed)))
	}
	u.Enc.CallRel32Sym(sym)

	for range argLocs {
		u.Pop()
	}

	if len(ret.Regs) == 0 {
		// void: nothing to push onto the value stack.
		return SValue{}, nil
	}
	width := WFull
	if ret.Class.Mode == abi.ModeSSE {
		width = WDouble
	}
	sv := SValue{Kind: KindReg, Reg: ret.Regs[0], Width: width}
	if len(ret.Regs) == 2 {
		sv.R2 = ret.Regs[1]
	}
	u.Push(sv)
	u.owner[ret.Regs[0]] = len(u.stack)
	return sv, nil
}
