package abi

import (
	"testing"

	"mtcc/emit"
	"mtcc/section"
	"mtcc/token"
	"mtcc/x64"
)

func TestFrameSizeAligns16(t *testing.T) {
	f := Frame{FuncScratch: 0, LocalsSize: 9}
	if f.Size() != 16 {
		t.Fatalf("got %d, want 16", f.Size())
	}
}

func TestFrameSizeZeroWhenNoLocals(t *testing.T) {
	f := Frame{}
	if f.Size() != 0 {
		t.Fatalf("got %d, want 0", f.Size())
	}
}

func TestPrologueEmitsPushMovAndSubForSmallFrame(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	enc := x64.New(emit.New(text))
	f := Frame{LocalsSize: 32}
	f.Prologue(enc, nil)
	data := text.Data()
	// push rbp
	if data[0] != 0x55 {
		t.Fatalf("expected push rbp (0x55), got %X", data[0])
	}
	// mov rbp, rsp: REX.W(48) 89 E5
	if data[1] != 0x48 || data[2] != 0x89 || data[3] != 0xE5 {
		t.Fatalf("expected mov rbp,rsp, got % X", data[1:4])
	}
	// sub rsp, 32: REX.W(48) 81 /5 (rm=rsp=100 -> EC) imm32
	if data[4] != 0x48 || data[5] != 0x81 || data[6] != 0xEC {
		t.Fatalf("expected sub rsp,imm32 prefix, got % X", data[4:7])
	}
}

func TestPrologueSkipsSubWhenFrameIsZero(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	enc := x64.New(emit.New(text))
	f := Frame{}
	f.Prologue(enc, nil)
	// push rbp ; mov rbp,rsp only: 1 + 3 = 4 bytes
	if len(text.Data()) != 4 {
		t.Fatalf("expected a 4-byte prologue with no locals, got %d bytes", len(text.Data()))
	}
}

func TestEpilogueEmitsLeaveRet(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	enc := x64.New(emit.New(text))
	Frame{}.Epilogue(enc)
	data := text.Data()
	if len(data) != 2 || data[0] != 0xC9 || data[1] != 0xC3 {
		t.Fatalf("expected leave;ret (C9 C3), got % X", data)
	}
}

func TestPrologueOfVariadicFunctionSavesArgRegisters(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	enc := x64.New(emit.New(text))
	f := Frame{Variadic: true}
	f.Prologue(enc, nil)
	data := text.Data()
	// push rbp; mov rbp,rsp = 4 bytes, then sub rsp,176 reserving the save
	// area (REX.W 81 /5 imm32 = 7 bytes), then the save area itself: the
	// offsets are all <= -129 for the GPR half (disp32:
	// REX+89+modrm+disp32 = 7 bytes each) and land in disp8 range for the
	// XMM half once the GPR half is behind them (0F 29 + modrm + disp8 = 4
	// bytes each, no REX needed for an xmm register/rbp base pair).
	saveArea := data[11:]
	if saveArea[0] != 0x48 || saveArea[1] != 0x89 {
		t.Fatalf("expected the first GPR save to be a mov, got % X", saveArea[0:2])
	}
	gprBytes := 6 * 7
	xmmStart := saveArea[gprBytes:]
	if xmmStart[0] != 0x0f || xmmStart[1] != 0x29 {
		t.Fatalf("expected the first XMM save to be movaps, got % X", xmmStart[0:2])
	}
	wantLen := 11 + gprBytes + 8*4
	if len(data) != wantLen {
		t.Fatalf("got %d bytes, want %d", len(data), wantLen)
	}
}

func TestVarargSaveAreaOffsetSitsBelowExistingLocals(t *testing.T) {
	got := VarargSaveAreaOffset(16)
	want := int32(-(16 + VarargSaveAreaSize))
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
