package section

import (
	"testing"

	"mtcc/token"
)

func TestReserveGrowsDataOffsetAndCapacity(t *testing.T) {
	st := New(token.NewInterner())
	text := st.FindOrCreateSection(".text", Progbits)

	before := text.DataOffset
	b := text.Reserve(5)
	if len(b) != 5 {
		t.Fatalf("Reserve(5) returned %d bytes", len(b))
	}
	if text.DataOffset != before+5 {
		t.Fatalf("DataOffset = %d, want %d", text.DataOffset, before+5)
	}
	if len(text.Data()) < text.DataOffset {
		t.Fatalf("backing buffer shorter than DataOffset")
	}
}

func TestNobitsNeverGrowsBuffer(t *testing.T) {
	st := New(token.NewInterner())
	bss := st.FindOrCreateSection(".bss", Nobits)
	bss.Reserve(64)
	if len(bss.Data()) != 0 {
		t.Fatalf("Nobits section grew its buffer: len=%d", len(bss.Data()))
	}
	if bss.DataOffset != 64 {
		t.Fatalf("DataOffset = %d, want 64", bss.DataOffset)
	}
}

func TestSetAlignRejectsNonPowerOfTwo(t *testing.T) {
	st := New(token.NewInterner())
	s := st.FindOrCreateSection(".data", Progbits)
	if err := s.SetAlign(3); err == nil {
		t.Fatalf("SetAlign(3) should have failed")
	}
	if err := s.SetAlign(8); err != nil {
		t.Fatalf("SetAlign(8): %v", err)
	}
	if s.Addralign != 8 {
		t.Fatalf("Addralign = %d, want 8", s.Addralign)
	}
	// raising with a smaller power of two must not lower it
	if err := s.SetAlign(2); err != nil {
		t.Fatalf("SetAlign(2): %v", err)
	}
	if s.Addralign != 8 {
		t.Fatalf("Addralign dropped to %d", s.Addralign)
	}
}

func TestPushPopSection(t *testing.T) {
	st := New(token.NewInterner())
	text := st.FindOrCreateSection(".text", Progbits)
	data := st.FindOrCreateSection(".data", Progbits)

	cur := st.PushSection(text, data)
	if cur != data {
		t.Fatalf("PushSection did not return the new section")
	}
	resumed, err := st.PopSection()
	if err != nil {
		t.Fatalf("PopSection: %v", err)
	}
	if resumed != text {
		t.Fatalf("PopSection returned %v, want text", resumed)
	}
}

func TestPopSectionEmptyStackIsError(t *testing.T) {
	st := New(token.NewInterner())
	if _, err := st.PopSection(); err == nil {
		t.Fatalf(".popsection on empty stack should error")
	}
}

func TestDefineTwiceNonExternIsError(t *testing.T) {
	st := New(token.NewInterner())
	foo := st.Interner().Intern("foo")
	sym := st.SymPush(foo, StorageFlags{})
	if err := sym.Define(1, 0); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	if err := sym.Define(1, 8); err == nil {
		t.Fatalf("redefining a non-extern symbol should error")
	}
}

func TestDefineTwiceExternIsOK(t *testing.T) {
	st := New(token.NewInterner())
	foo := st.Interner().Intern("foo")
	sym := st.SymPush(foo, StorageFlags{Extern: true})
	if err := sym.Define(1, 0); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	if err := sym.Define(1, 8); err != nil {
		t.Fatalf("redefining an extern symbol should be OK: %v", err)
	}
}

func TestAsm2CnameStripsUnderscore(t *testing.T) {
	st := New(token.NewInterner())
	st.LeadingUnderscore = true
	v := st.Interner().Intern("_foo")
	sym := st.AsmLabelPush(v)
	if st.Interner().Name(sym.Name) != "foo" {
		t.Fatalf("asm2cname: got %q, want %q", st.Interner().Name(sym.Name), "foo")
	}
	if sym.DotAdded {
		t.Fatalf("stripping a leading underscore must not set DotAdded")
	}
}

func TestAsm2CnamePrefixesDot(t *testing.T) {
	st := New(token.NewInterner())
	st.LeadingUnderscore = true
	v := st.Interner().Intern("bar")
	sym := st.AsmLabelPush(v)
	if got := st.Interner().Name(sym.Name); got != ".bar" {
		t.Fatalf("asm2cname: got %q, want %q", got, ".bar")
	}
	if !sym.DotAdded || sym.AsmLabel != "bar" {
		t.Fatalf("expected DotAdded with AsmLabel=bar, got %+v", sym)
	}
}

func TestAsm2CnameLeavesDottedNameAlone(t *testing.T) {
	st := New(token.NewInterner())
	st.LeadingUnderscore = true
	v := st.Interner().Intern("L.1")
	sym := st.AsmLabelPush(v)
	if got := st.Interner().Name(sym.Name); got != "L.1" {
		t.Fatalf("asm2cname: got %q, want unchanged %q", got, "L.1")
	}
}

func TestAsm2CnameNoLeadingUnderscoreConventionIsIdentity(t *testing.T) {
	st := New(token.NewInterner())
	v := st.Interner().Intern("bar")
	sym := st.AsmLabelPush(v)
	if sym.Name != v {
		t.Fatalf("expected identity mapping without LeadingUnderscore")
	}
}
