package abi

import "mtcc/x64"

// Convention selects which calling convention Lower targets (spec §4.8).
type Convention int

const (
	SysV Convention = iota
	Windows64
)

// sysVIntArgRegs/sysVSSEArgRegs are the six/eight argument registers
// classify_x86_64_arg's callers walk in order (x86_64-gen.c's
// REGS array / const int arg_regs[] equivalent).
var sysVIntArgRegs = []x64.Reg{x64.RDI, x64.RSI, x64.RDX, x64.RCX, x64.R8, x64.R9}
var sysVSSEArgRegs = []x64.Reg{x64.XMM0, x64.XMM1, x64.XMM2, x64.XMM3, x64.XMM4, x64.XMM5, x64.XMM6, x64.XMM7}

var winIntArgRegs = []x64.Reg{x64.RCX, x64.RDX, x64.R8, x64.R9}
var winSSEArgRegs = []x64.Reg{x64.XMM0, x64.XMM1, x64.XMM2, x64.XMM3}

// ArgLocation describes where one lowered argument (or its first/second
// eightbyte) ends up: in a register, or at a stack offset for the SysV
// memory class / the 5th-and-later Windows arguments.
type ArgLocation struct {
	Class ArgClass
	// Regs holds one or two registers when Class.Mode is INTEGER or SSE;
	// empty when the argument went to memory.
	Regs []x64.Reg
	// StackOffset is valid when len(Regs) == 0: the byte offset from the
	// start of the incoming-argument stack area.
	StackOffset int
}

// Lowering holds the mutable register cursors one function's argument
// lowering consumes — SysV's integer/SSE cursors advance independently;
// Windows advances a single shared index into either regs array.
type Lowering struct {
	Conv Convention

	intUsed   int
	sseUsed   int
	stackUsed int
}

// NewLowering returns a fresh cursor for one function signature.
func NewLowering(conv Convention) *Lowering {
	return &Lowering{Conv: conv}
}

// LowerArg assigns the next argument's location given its classification
// (spec §4.8's SysV/Windows argument rules). On SysV, memory-class, x87
// or register-exhausted arguments fall back to the incoming stack area,
// 8-byte aligned per eightbyte the way the original's stack pack does; on
// Windows only the arguments past the fourth do.
func (l *Lowering) LowerArg(c ArgClass) ArgLocation {
	if l.Conv == Windows64 {
		return l.lowerArgWindows(c)
	}
	return l.lowerArgSysV(c)
}

func (l *Lowering) lowerArgSysV(c ArgClass) ArgLocation {
	if c.Mode == ModeMemory || c.Mode == ModeX87 {
		return l.spillToStack(c)
	}
	need := c.RegCount
	var pool *[]x64.Reg
	var used *int
	if c.Mode == ModeSSE {
		pool, used = &sysVSSEArgRegs, &l.sseUsed
	} else {
		pool, used = &sysVIntArgRegs, &l.intUsed
	}
	if *used+need > len(*pool) {
		return l.spillToStack(c)
	}
	regs := append([]x64.Reg(nil), (*pool)[*used:*used+need]...)
	*used += need
	return ArgLocation{Class: c, Regs: regs}
}

// lowerArgWindows implements the four-register {RCX,RDX,R8,R9} convention
// with one crucial quirk: the Nth argument always consumes the Nth slot of
// *both* register files even when it's skipped by type, so floats and
// integers interleaved in the same position both burn the shared cursor
// (spec §4.8 "floating args alias into both the GPR and the XMM of
// matching index").
func (l *Lowering) lowerArgWindows(c ArgClass) ArgLocation {
	slot := l.intUsed // shared cursor; intUsed doubles as the "argument index"
	if slot >= len(winIntArgRegs) {
		loc := l.spillToStack(c)
		l.intUsed++
		return loc
	}
	l.intUsed++
	if c.Mode == ModeSSE {
		return ArgLocation{Class: c, Regs: []x64.Reg{winSSEArgRegs[slot]}}
	}
	// every non-SSE argument takes the integer slot; for aggregates >8
	// bytes and long double that slot carries a hidden pointer (spec §4.8
	// "larger aggregates by hidden copy" / "Long double is passed by hidden
	// pointer"). An SSE-class argument takes the XMM slot whatever its size.
	return ArgLocation{Class: c, Regs: []x64.Reg{winIntArgRegs[slot]}}
}

func (l *Lowering) spillToStack(c ArgClass) ArgLocation {
	off := l.stackUsed
	l.stackUsed += c.Size
	return ArgLocation{Class: c, StackOffset: off}
}

// LowerReturn implements the SysV/Windows return-value rule: a memory
// class return is passed back via an implicit pointer argument in
// RDI/RCX (the caller must consume that first slot before lowering the
// remaining real arguments), everything else comes back in
// RAX/RDX and/or XMM0/XMM1 (spec §4.8).
func (l *Lowering) LowerReturn(c ArgClass) (loc ArgLocation, hiddenPointerArg bool) {
	if c.Mode == ModeMemory {
		reg := x64.RDI
		if l.Conv == Windows64 {
			reg = x64.RCX
		}
		return ArgLocation{Class: c, Regs: []x64.Reg{reg}}, true
	}
	if c.Mode == ModeSSE {
		if c.RegCount == 2 {
			return ArgLocation{Class: c, Regs: []x64.Reg{x64.XMM0, x64.XMM1}}, false
		}
		return ArgLocation{Class: c, Regs: []x64.Reg{x64.XMM0}}, false
	}
	if c.RegCount == 2 {
		return ArgLocation{Class: c, Regs: []x64.Reg{x64.RAX, x64.RDX}}, false
	}
	return ArgLocation{Class: c, Regs: []x64.Reg{x64.RAX}}, false
}

// VarargXMMCount caps the AL register value a SysV variadic call site
// loads before `call` (spec §4.8 "AL = number of XMM args used, capped at
// 8").
func VarargXMMCount(sseArgsUsed int) int {
	if sseArgsUsed > 8 {
		return 8
	}
	return sseArgsUsed
}
