// Package token models the external lexer interface the core packages are
// driven by (spec §6): a stream of tagged tokens carrying an optional string
// or integer payload, plus an interner that maps identifier spellings to
// stable small integers so the rest of the toolchain never compares strings.
package token

import "fmt"

// Kind tags a token the way the external C lexer would hand it to the
// assembler/parser: a small set of special tags plus an open-ended
// identifier range.
type Kind int

const (
	EOF Kind = iota
	Linefeed
	PPNumber // preprocessor number literal, e.g. "1b", "0x10", "3.14"
	Str      // string literal
	CChar    // character literal (int width)
	LChar    // wide character literal
	Ident    // identifier, Token.Str holds the spelling
	Punct    // single-character punctuation, Token.Int holds the rune

	// Compound operators that don't fit in a single rune.
	Shl // <<
	Sar // >>
	Eq  // ==
	Ne  // !=
	Le  // <=
	Ge  // >=
	Lt  // <  (kept distinct from Punct('<') for readability at call sites)
	Gt  // >
	Ule // unsigned <=
	Uge // unsigned >=
	Ult // unsigned <
	Ugt // unsigned >
)

// Token is one lexical unit. Str/Int are mutually relevant depending on Kind:
// PPNumber/Str/CChar carry Str as their literal text; Ident carries its
// spelling in Str and its interned id in Sym; Int carries a resolved integer
// for CChar/LChar.
type Token struct {
	Kind Kind
	Str  string
	Int  int64
	Sym  int // interned identifier id, valid when Kind == Ident
	Pos  Position
}

// Position is a source location, kept minimal (line notes only — spec's
// Non-goals exclude full debug-info generation).
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Stream is the minimal cursor interface the assembler and code generator
// consume. A real preprocessor/lexer implements this; tests use a slice-backed
// Stream built with NewStream.
type Stream interface {
	// Peek returns the current token without advancing.
	Peek() Token
	// Next advances past the current token and returns the new current one.
	Next() Token
}

// SliceStream is a Stream over a pre-lexed slice of tokens, terminated by an
// implicit EOF. It is the concrete Stream the package's own tests and the
// asmdir/cgen tests drive against, standing in for the external lexer.
type SliceStream struct {
	toks []Token
	pos  int
}

// NewStream builds a SliceStream over toks. An EOF token is appended if the
// caller didn't already terminate the slice with one.
func NewStream(toks []Token) *SliceStream {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		toks = append(append([]Token{}, toks...), Token{Kind: EOF})
	}
	return &SliceStream{toks: toks}
}

func (s *SliceStream) Peek() Token {
	if s.pos >= len(s.toks) {
		return Token{Kind: EOF}
	}
	return s.toks[s.pos]
}

func (s *SliceStream) Next() Token {
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return s.Peek()
}

// Interner maps identifier spellings to stable small integers, the same role
// tcc_alloc_const/get_tok_str play in the original source: the core never
// compares raw strings once a name has been interned.
type Interner struct {
	ids   map[string]int
	names []string
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]int)}
}

// Intern returns the stable id for name, allocating one on first use.
func (in *Interner) Intern(name string) int {
	if id, ok := in.ids[name]; ok {
		return id
	}
	id := len(in.names)
	in.names = append(in.names, name)
	in.ids[name] = id
	return id
}

// Lookup returns name's id without allocating; ok is false if name was never
// interned.
func (in *Interner) Lookup(name string) (id int, ok bool) {
	id, ok = in.ids[name]
	return
}

// Name returns the spelling for a previously interned id.
func (in *Interner) Name(id int) string {
	if id < 0 || id >= len(in.names) {
		return ""
	}
	return in.names[id]
}
