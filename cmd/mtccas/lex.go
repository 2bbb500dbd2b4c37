package main

import (
	"fmt"
	"strings"

	"mtcc/token"
)

// lex turns raw GAS-flavor source text into a token stream. The actual
// preprocessor/lexer is an external collaborator the core packages are
// deliberately decoupled from (spec §6) — this is CLI-only glue just
// thorough enough to drive a real .s file through asmdir.Assembler.Run,
// built the way original_source/tccasm.c's next_nomacro classifies
// characters (digit/ident/punct runs, '#' line comments, C-style string
// escapes), not a general-purpose C preprocessor.
func lex(src string, file string, in *token.Interner) ([]token.Token, error) {
	var toks []token.Token
	line := 1
	i := 0
	n := len(src)

	pos := func() token.Position { return token.Position{File: file, Line: line} }

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			toks = append(toks, token.Token{Kind: token.Linefeed, Pos: pos()})
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			i += 2
		case c == '"':
			str, adv, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("mtccas: %s:%d: %v", file, line, err)
			}
			toks = append(toks, token.Token{Kind: token.Str, Str: str, Pos: pos()})
			i += adv
		case isDigit(c):
			start := i
			for i < n && isIdentCont(src[i]) {
				i++
			}
			toks = append(toks, token.Token{Kind: token.PPNumber, Str: src[start:i], Pos: pos()})
		case isIdentStart(c):
			start := i
			for i < n && isIdentCont(src[i]) {
				i++
			}
			text := src[start:i]
			toks = append(toks, token.Token{Kind: token.Ident, Str: text, Sym: in.Intern(text), Pos: pos()})
		default:
			if kind, adv, ok := lexCompound(src[i:]); ok {
				toks = append(toks, token.Token{Kind: kind, Pos: pos()})
				i += adv
				continue
			}
			toks = append(toks, token.Token{Kind: token.Punct, Int: int64(c), Pos: pos()})
			i++
		}
	}
	toks = append(toks, token.Token{Kind: token.EOF, Pos: pos()})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '.' || c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// lexCompound recognizes the two-rune operators asmexpr's shift/comparison
// grammar needs (spec §4.3): << >> == != <= >=. Everything else falls back
// to a single-rune Punct.
func lexCompound(s string) (token.Kind, int, bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	switch s[0:2] {
	case "<<":
		return token.Shl, 2, true
	case ">>":
		return token.Sar, 2, true
	case "==":
		return token.Eq, 2, true
	case "!=":
		return token.Ne, 2, true
	case "<=":
		return token.Le, 2, true
	case ">=":
		return token.Ge, 2, true
	}
	return 0, 0, false
}

// lexString decodes a double-quoted GAS string literal starting at s[0],
// returning the unescaped bytes and how many source bytes it consumed.
func lexString(s string) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '"' {
			return b.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(s) {
			esc := s[i+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(esc)
			}
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}
