package cgen

import (
	"testing"

	"mtcc/emit"
	"mtcc/section"
	"mtcc/token"
	"mtcc/x64"
)

func newTestUnit(t *testing.T) (*Unit, *section.Section) {
	t.Helper()
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	enc := x64.New(emit.New(text))
	return New(enc), text
}

func TestGvReusesAlreadyResidentRegister(t *testing.T) {
	u, _ := newTestUnit(t)
	u.Push(SValue{Kind: KindReg, Reg: x64.RAX})
	r, err := u.Gv(x64.ClassInt)
	if err != nil {
		t.Fatalf("Gv: %v", err)
	}
	if r != x64.RAX {
		t.Fatalf("Gv reused wrong register: got %v, want RAX", r)
	}
}

func TestGvLoadsConstantIntoFirstFreeCandidate(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 42})
	r, err := u.Gv(x64.ClassInt)
	if err != nil {
		t.Fatalf("Gv: %v", err)
	}
	if r != x64.RAX {
		t.Fatalf("expected first candidate RAX, got %v", r)
	}
	// movabs rax, 42
	want := []byte{0x48, 0xB8, 42, 0, 0, 0, 0, 0, 0, 0}
	got := sec.Data()
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %X want %X", i, got[i], want[i])
		}
	}
	if u.owner[x64.RAX] != 1 {
		t.Fatalf("owner table not updated for RAX")
	}
}

func TestGvSpillsWhenEveryCandidateBusy(t *testing.T) {
	u, _ := newTestUnit(t)
	// occupy every int candidate with a distinct stack entry.
	for _, r := range intCandidates {
		u.Push(SValue{Kind: KindReg, Reg: r})
		u.owner[r] = len(u.stack)
	}
	// one more value needing a register forces a spill of the first
	// candidate (RAX), which SaveReg relocates to a fresh local slot.
	u.Push(SValue{Kind: KindConst, Const: 7})
	before := u.FrameBytes
	r, err := u.Gv(x64.ClassInt)
	if err != nil {
		t.Fatalf("Gv: %v", err)
	}
	if r != x64.RAX {
		t.Fatalf("expected RAX to be reclaimed first, got %v", r)
	}
	if u.FrameBytes != before+8 {
		t.Fatalf("FrameBytes = %d, want %d", u.FrameBytes, before+8)
	}
	// the entry that originally owned RAX (pushed first, at the bottom)
	// must now be a spilled local, not a register.
	if u.stack[0].Kind != KindLocal {
		t.Fatalf("spilled entry has Kind %v, want KindLocal", u.stack[0].Kind)
	}
	if owner := u.owner[r]; owner != len(u.stack) {
		t.Fatalf("RAX ownership not reassigned to the new top entry: owner=%d, want %d", owner, len(u.stack))
	}
}

func TestGv2PicksTwoDistinctRegisters(t *testing.T) {
	u, _ := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 1})
	u.Push(SValue{Kind: KindConst, Const: 2})
	r1, r2, err := u.Gv2(x64.ClassInt, x64.ClassInt)
	if err != nil {
		t.Fatalf("Gv2: %v", err)
	}
	if r1 == r2 {
		t.Fatalf("Gv2 returned the same register for both operands: %v", r1)
	}
}

func TestSaveRegsSparesBottomN(t *testing.T) {
	u, _ := newTestUnit(t)
	u.Push(SValue{Kind: KindReg, Reg: x64.RAX})
	u.owner[x64.RAX] = len(u.stack)
	u.Push(SValue{Kind: KindReg, Reg: x64.RCX})
	u.owner[x64.RCX] = len(u.stack)
	if err := u.SaveRegs(1); err != nil {
		t.Fatalf("SaveRegs: %v", err)
	}
	if u.stack[0].Kind != KindReg {
		t.Fatalf("bottom entry should have been spared, got Kind %v", u.stack[0].Kind)
	}
	if u.stack[1].Kind != KindLocal {
		t.Fatalf("entry above n should have been spilled, got Kind %v", u.stack[1].Kind)
	}
}

func TestGenOpiAddMaterializesAndPushesRegisterResult(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 3})
	u.Push(SValue{Kind: KindConst, Const: 4})
	if err := u.GenOpi(OpAdd); err != nil {
		t.Fatalf("GenOpi: %v", err)
	}
	if u.Depth() != 1 {
		t.Fatalf("expected one result on the stack, got depth %d", u.Depth())
	}
	if u.Top().Kind != KindReg {
		t.Fatalf("expected KindReg result, got %v", u.Top().Kind)
	}
	// two movabs (10 bytes each) followed by one add r64,r64 (3 bytes).
	if len(sec.Data()) != 23 {
		t.Fatalf("unexpected emitted length %d", len(sec.Data()))
	}
	if sec.Data()[21] != 0x01 {
		t.Fatalf("expected add opcode 0x01 at offset 21, got %X", sec.Data()[21])
	}
}

func TestGenOpiComparisonPushesPendingCmp(t *testing.T) {
	u, _ := newTestUnit(t)
	u.Push(SValue{Kind: KindConst, Const: 1})
	u.Push(SValue{Kind: KindConst, Const: 2})
	if err := u.GenOpi(OpCmpLt); err != nil {
		t.Fatalf("GenOpi: %v", err)
	}
	top := u.Top()
	if top.Kind != KindCmp || top.CC != x64.CCL {
		t.Fatalf("expected pending KindCmp/CCL, got %v/%v", top.Kind, top.CC)
	}
}

func TestGtstOnPendingCmpEmitsConditionalJump(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindCmp, CC: x64.CCL})
	chain, err := u.Gtst(false, 0)
	if err != nil {
		t.Fatalf("Gtst: %v", err)
	}
	if chain == 0 {
		t.Fatalf("expected a non-empty chain head")
	}
	if sec.Data()[0] != 0x0f || sec.Data()[1] != x64.CCL.Byte() {
		t.Fatalf("expected Jcc(CCL) bytes, got %X %X", sec.Data()[0], sec.Data()[1])
	}
	if u.Depth() != 0 {
		t.Fatalf("Gtst should consume the pending comparison, depth = %d", u.Depth())
	}
}

func TestGtstInvertedFlipsConditionCode(t *testing.T) {
	u, sec := newTestUnit(t)
	u.Push(SValue{Kind: KindCmp, CC: x64.CCL})
	if _, err := u.Gtst(true, 0); err != nil {
		t.Fatalf("Gtst: %v", err)
	}
	if sec.Data()[1] != x64.CCL.Invert().Byte() {
		t.Fatalf("expected inverted condition code, got %X", sec.Data()[1])
	}
}

func TestLoadStaticSymbolEmitsLeaRipRelative(t *testing.T) {
	u, sec := newTestUnit(t)
	sym := &section.Symbol{Flags: section.StorageFlags{Static: true}}
	if err := u.Load(x64.RAX, SValue{Kind: KindConst, Sym: sym}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := sec.Data()
	// lea rax, [rip+disp32]: REX.W(48) 8D modrm(mod=00,reg=000,rm=101) disp32
	want := []byte{0x48, 0x8D, 0x05}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("byte %d: got %X want %X", i, got[i], b)
		}
	}
	if len(sec.Relocs) != 1 || sec.Relocs[0].Kind != section.PC32 || sec.Relocs[0].Sym != sym {
		t.Fatalf("expected one PC32 relocation against sym, got %+v", sec.Relocs)
	}
}

func TestLoadNonStaticSymbolEmitsMovThroughGot(t *testing.T) {
	u, sec := newTestUnit(t)
	sym := &section.Symbol{Flags: section.StorageFlags{Static: false}}
	if err := u.Load(x64.RAX, SValue{Kind: KindConst, Sym: sym}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := sec.Data()
	// mov rax, [rip+disp32]: REX.W(48) 8B modrm(mod=00,reg=000,rm=101) disp32
	want := []byte{0x48, 0x8B, 0x05}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("byte %d: got %X want %X", i, got[i], b)
		}
	}
	if len(sec.Relocs) != 1 || sec.Relocs[0].Kind != section.GOTPCREL {
		t.Fatalf("expected one GOTPCREL relocation, got %+v", sec.Relocs)
	}
}

func TestLoadStoreLocalRoundTrip(t *testing.T) {
	u, sec := newTestUnit(t)
	if err := u.Store(x64.RAX, SValue{Kind: KindLocal, Off: -8}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// mov [rbp-8], rax: REX.W, 0x89, modrm(mod=01,reg=000,rm=101), disp8
	want := []byte{0x48, 0x89, 0x45, 0xF8}
	got := sec.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %X want %X", i, got[i], want[i])
		}
	}
	if err := u.Load(x64.RCX, SValue{Kind: KindLocal, Off: -8}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// mov rcx, [rbp-8]: REX.W, 0x8B, modrm(mod=01,reg=001,rm=101), disp8
	wantLoad := []byte{0x48, 0x8B, 0x4D, 0xF8}
	gotLoad := sec.Data()[4:]
	for i := range wantLoad {
		if gotLoad[i] != wantLoad[i] {
			t.Fatalf("load byte %d: got %X want %X", i, gotLoad[i], wantLoad[i])
		}
	}
}
