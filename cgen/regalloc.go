package cgen

import "mtcc/x64"

// allocReg returns a register of one of the classes in mask, excluding any
// in avoid, spilling an existing occupant if every candidate is busy (spec
// §4.7 "gv(class_mask)"/"save_reg").
func (u *Unit) allocReg(mask x64.RegClass, avoid []x64.Reg) (x64.Reg, error) {
	candidates := candidatesFor(mask)
	if len(candidates) == 0 {
		return 0, u.Diag.Errorf("cgen: no register class given")
	}
	isAvoided := func(r x64.Reg) bool {
		for _, a := range avoid {
			if a == r {
				return true
			}
		}
		return false
	}
	for _, r := range candidates {
		if _, busy := u.owner[r]; !busy && !isAvoided(r) {
			return r, nil
		}
	}
	for _, r := range candidates {
		if !isAvoided(r) {
			if err := u.SaveReg(r); err != nil {
				return 0, err
			}
			return r, nil
		}
	}
	return 0, u.Diag.Errorf("cgen: no register available outside the excluded set")
}

// Gv materializes the top-of-stack value into a register drawn from mask,
// loading from memory/constant as required, and updates the entry's
// Kind/Reg in place (spec §4.7).
func (u *Unit) Gv(mask x64.RegClass) (x64.Reg, error) {
	top := u.Top()
	if top.Kind == KindReg && top.Reg.Classes()&mask != 0 {
		return top.Reg, nil
	}
	r, err := u.allocReg(mask, nil)
	if err != nil {
		return 0, err
	}
	if err := u.Load(r, *top); err != nil {
		return 0, err
	}
	idx := len(u.stack) - 1
	*top = SValue{Kind: KindReg, Reg: r, Width: top.Width}
	u.owner[r] = idx + 1
	return r, nil
}

// Gv2 materializes top-1 into a register of class c1 and top into a
// register of class c2, choosing both registers before either load so
// neither clobbers the other's source operand (spec §4.7 "gv2").
func (u *Unit) Gv2(c1, c2 x64.RegClass) (r1, r2 x64.Reg, err error) {
	topIdx := len(u.stack) - 1
	secondIdx := topIdx - 1

	top := u.At(0)
	second := u.At(1)

	if top.Kind == KindReg && top.Reg.Classes()&c2 != 0 {
		r2 = top.Reg
	} else {
		r2, err = u.allocReg(c2, nil)
		if err != nil {
			return 0, 0, err
		}
	}
	if second.Kind == KindReg && second.Reg.Classes()&c1 != 0 && second.Reg != r2 {
		r1 = second.Reg
	} else {
		r1, err = u.allocReg(c1, []x64.Reg{r2})
		if err != nil {
			return 0, 0, err
		}
	}

	if err := u.Load(r1, *second); err != nil {
		return 0, 0, err
	}
	*second = SValue{Kind: KindReg, Reg: r1, Width: second.Width}
	u.owner[r1] = secondIdx + 1

	if err := u.Load(r2, *top); err != nil {
		return 0, 0, err
	}
	*top = SValue{Kind: KindReg, Reg: r2, Width: top.Width}
	u.owner[r2] = topIdx + 1
	return r1, r2, nil
}

// forceInto materializes the stack entry depthFromTop places from the top
// into exactly register target, spilling whatever currently occupies target
// first (spec §4.7: "integer shift forces the count into RCX; div/mod
// forces LHS into RAX"). Unlike Gv/Gv2, which accept any register in a
// class, this pins an exact register — x86_64-gen.c's gv2(RC_RAX, RC_RCX)
// equivalent, generalized to one operand at a time so callers can force two
// operands that might already occupy each other's target register (a swap)
// without clobbering either: the first forceInto call spills target's
// current occupant to memory before loading, so a later forceInto call on
// that same (now memory-resident) entry reloads the correct value.
func (u *Unit) forceInto(depthFromTop int, target x64.Reg) error {
	idx := len(u.stack) - 1 - depthFromTop
	entry := &u.stack[idx]
	if entry.Kind == KindReg && entry.Reg == target {
		return nil
	}
	if _, busy := u.owner[target]; busy {
		if err := u.SaveReg(target); err != nil {
			return err
		}
	}
	oldReg, wasReg := entry.Reg, entry.Kind == KindReg
	if err := u.Load(target, *entry); err != nil {
		return err
	}
	if wasReg {
		delete(u.owner, oldReg)
	}
	*entry = SValue{Kind: KindReg, Reg: target, Width: entry.Width}
	u.owner[target] = idx + 1
	return nil
}

// gvSecond materializes the second-from-top stack entry into a register of
// class mask, avoiding whatever register top-of-stack currently occupies —
// used by genShift once the shift count has already been forced into RCX,
// to pick the shifted value's register independently of that choice.
func (u *Unit) gvSecond(mask x64.RegClass) (x64.Reg, error) {
	idx := len(u.stack) - 2
	entry := &u.stack[idx]
	avoid := []x64.Reg{u.At(0).Reg}
	if entry.Kind == KindReg && entry.Reg.Classes()&mask != 0 && entry.Reg != u.At(0).Reg {
		return entry.Reg, nil
	}
	r, err := u.allocReg(mask, avoid)
	if err != nil {
		return 0, err
	}
	if err := u.Load(r, *entry); err != nil {
		return 0, err
	}
	if entry.Kind == KindReg {
		delete(u.owner, entry.Reg)
	}
	*entry = SValue{Kind: KindReg, Reg: r, Width: entry.Width}
	u.owner[r] = idx + 1
	return r, nil
}

// SaveReg spills the stack entry currently occupying r (if any) to a fresh
// local frame slot, freeing r (spec §4.7 "save_reg").
func (u *Unit) SaveReg(r x64.Reg) error {
	idx1, busy := u.owner[r]
	if !busy {
		return nil
	}
	idx := idx1 - 1
	sv := &u.stack[idx]

	u.FrameBytes += 8
	off := -u.FrameBytes
	if err := u.Store(r, SValue{Kind: KindLocal, Off: int32(off), Width: sv.Width}); err != nil {
		return err
	}
	*sv = SValue{Kind: KindLocal, Off: int32(off), Width: sv.Width}
	delete(u.owner, r)
	return nil
}

// SaveRegs spills every register-resident stack entry except the bottom n
// (spec §4.7 "save_regs(n)").
func (u *Unit) SaveRegs(n int) error {
	for i := n; i < len(u.stack); i++ {
		if u.stack[i].Kind == KindReg {
			if err := u.SaveReg(u.stack[i].Reg); err != nil {
				return err
			}
		}
	}
	return nil
}
