package main

import (
	"testing"

	"mtcc/token"
)

func TestLexSplitsIdentPunctAndLinefeed(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex(".globl foo\nfoo:\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []token.Kind{token.Ident, token.Ident, token.Linefeed, token.Ident, token.Punct, token.Linefeed, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[0].Str != ".globl" || toks[1].Str != "foo" {
		t.Fatalf("unexpected spellings: %q %q", toks[0].Str, toks[1].Str)
	}
}

func TestLexNumberWithLocalLabelSuffix(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex("1f\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[0].Kind != token.PPNumber || toks[0].Str != "1f" {
		t.Fatalf("got %+v, want PPNumber \"1f\"", toks[0])
	}
}

func TestLexHexLiteral(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex(".byte 0x1A\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[1].Kind != token.PPNumber || toks[1].Str != "0x1A" {
		t.Fatalf("got %+v, want PPNumber \"0x1A\"", toks[1])
	}
}

func TestLexStringLiteralDecodesEscapes(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex(`.ascii "a\nb"` + "\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[1].Kind != token.Str || toks[1].Str != "a\nb" {
		t.Fatalf("got %+v, want Str \"a\\nb\"", toks[1])
	}
}

func TestLexHashCommentStripsToLineEnd(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex(".text # a comment\nfoo:\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	// .text, Linefeed, foo, :, Linefeed, EOF — the comment contributes nothing.
	if len(toks) != 6 {
		t.Fatalf("got %d tokens, want 6: %+v", len(toks), toks)
	}
	if toks[1].Kind != token.Linefeed {
		t.Fatalf("token 1 = %+v, want Linefeed right after .text", toks[1])
	}
}

func TestLexCompoundOperators(t *testing.T) {
	in := token.NewInterner()
	toks, err := lex(".set x, 1 << 2\n", "t.s", in)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	var sawShl bool
	for _, tk := range toks {
		if tk.Kind == token.Shl {
			sawShl = true
		}
	}
	if !sawShl {
		t.Fatalf("expected a Shl token among %+v", toks)
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	in := token.NewInterner()
	if _, err := lex(`.ascii "unterminated`, "t.s", in); err == nil {
		t.Fatalf("expected an error for an unterminated string literal")
	}
}
