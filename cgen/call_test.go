package cgen

import (
	"testing"

	"mtcc/abi"
	"mtcc/section"
	"mtcc/x64"
)

func TestGenCallMarshalsArgsAndEmitsRelocatedCall(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 1})
	u.Push(SValue{Kind: KindConst, Const: 2})

	callee := &section.Symbol{Flags: section.StorageFlags{Static: true}}
	argLocs := []abi.ArgLocation{
		{Class: abi.ArgClass{Mode: abi.ModeInteger, RegCount: 1}, Regs: []x64.Reg{x64.RDI}},
		{Class: abi.ArgClass{Mode: abi.ModeInteger, RegCount: 1}, Regs: []x64.Reg{x64.RSI}},
	}
	ret := abi.ArgLocation{Class: abi.ArgClass{Mode: abi.ModeInteger, RegCount: 1}, Regs: []x64.Reg{x64.RAX}}

	res, err := u.GenCall(callee, argLocs, ret, false, false)
	if err != nil {
		t.Fatalf("GenCall: %v", err)
	}
	if res.Kind != KindReg || res.Reg != x64.RAX {
		t.Fatalf("expected the return value pushed in RAX, got Kind=%v Reg=%v", res.Kind, res.Reg)
	}
	if u.Depth() != 1 {
		t.Fatalf("expected the two arguments consumed and the result pushed, depth=%d", u.Depth())
	}

	got := sec.Data()
	if len(got) < 23 {
		t.Fatalf("expected at least 23 bytes of emitted code, got %d", len(got))
	}
	// call rel32 is the last 5 bytes: E8 + 4-byte (still-zero) relocation slot.
	callSite := got[len(got)-5:]
	if callSite[0] != 0xE8 {
		t.Fatalf("expected a direct call opcode E8, got %X", callSite[0])
	}
	if len(sec.Relocs) != 1 || sec.Relocs[0].Kind != section.PLT32 || sec.Relocs[0].Sym != callee {
		t.Fatalf("expected one PLT32 relocation against callee, got %+v", sec.Relocs)
	}
}

func TestGenCallStagesRdxRcxDestinationsThroughR10R11(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 1}) // -> RDX (staged via R10)
	u.Push(SValue{Kind: KindConst, Const: 2}) // -> RCX (staged via R11)

	callee := &section.Symbol{Flags: section.StorageFlags{Static: true}}
	argLocs := []abi.ArgLocation{
		{Class: abi.ArgClass{Mode: abi.ModeInteger, RegCount: 1}, Regs: []x64.Reg{x64.RDX}},
		{Class: abi.ArgClass{Mode: abi.ModeInteger, RegCount: 1}, Regs: []x64.Reg{x64.RCX}},
	}
	ret := abi.ArgLocation{}

	if _, err := u.GenCall(callee, argLocs, ret, false, false); err != nil {
		t.Fatalf("GenCall: %v", err)
	}

	got := sec.Data()
	// movabs r10, 1 ; movabs r11, 2 (each 10 bytes, REX.B set for r8-r15)
	if got[0] != 0x49 || got[1] != 0xBA {
		t.Fatalf("expected movabs r10 (49 BA ...), got %X %X", got[0], got[1])
	}
	if got[10] != 0x49 || got[11] != 0xBB {
		t.Fatalf("expected movabs r11 (49 BB ...), got %X %X", got[10], got[11])
	}
	// mov rdx, r10 ; mov rcx, r11 (regRegOp(0x89, dst, src))
	wantMovRdx := []byte{0x4C, 0x89, 0xD2}
	for i, b := range wantMovRdx {
		if got[20+i] != b {
			t.Fatalf("byte %d: got %X want %X (mov rdx, r10)", 20+i, got[20+i], b)
		}
	}
	wantMovRcx := []byte{0x4C, 0x89, 0xD9}
	for i, b := range wantMovRcx {
		if got[23+i] != b {
			t.Fatalf("byte %d: got %X want %X (mov rcx, r11)", 23+i, got[23+i], b)
		}
	}
}

func TestGenCallRejectsMemoryClassArguments(t *testing.T) {
	u, _ := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 1})
	argLocs := []abi.ArgLocation{
		{Class: abi.ArgClass{Mode: abi.ModeMemory}, StackOffset: 0},
	}
	if _, err := u.GenCall(&section.Symbol{}, argLocs, abi.ArgLocation{}, false, false); err == nil {
		t.Fatalf("expected a diagnostic error for a memory-class argument, not silent mis-codegen")
	}
}
