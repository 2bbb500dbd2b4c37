// Package asmexpr evaluates GAS arithmetic expressions over a token.Stream,
// implementing spec §4.3 and the symbol-arithmetic rules it specifies,
// resolved precisely against original_source/tccasm.c's asm_expr_sum where
// the distilled spec was silent (see DESIGN.md's Open Question decisions).
package asmexpr

import (
	"fmt"
	"strconv"
	"strings"

	"mtcc/section"
	"mtcc/token"
)

// Value is an assembler expression's partially-reduced form (spec §3
// "ExprValue"): an integer, optionally offset from one unresolved symbol,
// optionally pre-biased as a PC-relative displacement.
type Value struct {
	V     int64
	Sym   *section.Symbol
	PCRel bool
}

// LabelResolver resolves the local-numeric-label atoms ("1b"/"1f") and the
// current-location atom ('.') that only the assembler/directive engine
// knows how to answer (spec §4.3).
type LabelResolver interface {
	// LocalLabelBackward returns the symbol for the most recent prior
	// definition of numeric label n, or an error if none exists.
	LocalLabelBackward(n int) (*section.Symbol, error)
	// LocalLabelForward returns the symbol for the next definition of
	// numeric label n, creating a forward-reference symbol if none is
	// bound yet or the current binding is already defined.
	LocalLabelForward(n int) (*section.Symbol, error)
	// Here returns (ind, section-symbol) for the '.' atom.
	Here() (ind int64, sym *section.Symbol)
	// CurrentTextSection is used by the '-' collapse rule.
	CurrentTextSection() *section.Section
	// SymbolSection returns the section a defined symbol lives in, or nil
	// if the symbol is undefined.
	SymbolSection(sym *section.Symbol) *section.Section
}

// Evaluator parses and evaluates one GAS expression over a token.Stream.
type Evaluator struct {
	toks LabelResolver
}

// New returns an Evaluator using res to answer label/location questions.
func New(res LabelResolver) *Evaluator {
	return &Evaluator{toks: res}
}

// Eval parses a full expression starting at s's current token and returns
// its reduced Value, following the precedence chain of spec §4.3:
// comparison -> additive -> bitwise -> multiplicative -> unary -> atom.
func (ev *Evaluator) Eval(s token.Stream) (Value, error) {
	return ev.cmp(s)
}

func (ev *Evaluator) cmp(s token.Stream) (Value, error) {
	left, err := ev.sum(s)
	if err != nil {
		return Value{}, err
	}
	for {
		op := s.Peek()
		var cc func(int64, int64) bool
		switch op.Kind {
		case token.Eq:
			cc = func(a, b int64) bool { return a == b }
		case token.Ne:
			cc = func(a, b int64) bool { return a != b }
		case token.Lt:
			cc = func(a, b int64) bool { return a < b }
		case token.Le:
			cc = func(a, b int64) bool { return a <= b }
		case token.Gt:
			cc = func(a, b int64) bool { return a > b }
		case token.Ge:
			cc = func(a, b int64) bool { return a >= b }
		case token.Ult:
			cc = func(a, b int64) bool { return uint64(a) < uint64(b) }
		case token.Ule:
			cc = func(a, b int64) bool { return uint64(a) <= uint64(b) }
		case token.Ugt:
			cc = func(a, b int64) bool { return uint64(a) > uint64(b) }
		case token.Uge:
			cc = func(a, b int64) bool { return uint64(a) >= uint64(b) }
		default:
			return left, nil
		}
		s.Next()
		right, err := ev.sum(s)
		if err != nil {
			return Value{}, err
		}
		if left.Sym != nil || right.Sym != nil {
			return Value{}, fmt.Errorf("asmexpr: invalid operation with label")
		}
		// GAS-style: 0 for false, -1 (all ones) for true (spec §4.3 rule 6).
		if cc(left.V, right.V) {
			left.V = -1
		} else {
			left.V = 0
		}
	}
}

func (ev *Evaluator) sum(s token.Stream) (Value, error) {
	left, err := ev.bitwise(s)
	if err != nil {
		return Value{}, err
	}
	for {
		op := s.Peek()
		if op.Kind != token.Punct || (op.Int != '+' && op.Int != '-') {
			return left, nil
		}
		isAdd := op.Int == '+'
		s.Next()
		right, err := ev.bitwise(s)
		if err != nil {
			return Value{}, err
		}
		if isAdd {
			if left.Sym != nil && right.Sym != nil {
				return Value{}, fmt.Errorf("asmexpr: invalid operation with label")
			}
			left.V += right.V
			if left.Sym == nil && right.Sym != nil {
				left.Sym = right.Sym
			}
			continue
		}
		if err := ev.subtract(&left, right); err != nil {
			return Value{}, err
		}
	}
}

// subtract implements spec §4.3 rule 4 exactly as
// original_source/tccasm.c's asm_expr_sum does: the two operands' values are
// combined unconditionally first, then the symbol bookkeeping decides
// whether the result is a pure integer, stays symbolic, collapses to
// PC-relative, or is an error. Order of the section checks matters: "both
// symbols defined in the same section" is checked BEFORE "right symbol is
// in the current text section" — so subtracting the current-location atom
// ('.', whose symbol represents the current text section at value 0) from
// another symbol *also* in the current text section takes the plain
// same-section integer-difference path, not the PC-relative one (spec §8
// scenario 6: "same-section collapse", no relocation, no pcrel bias).
func (ev *Evaluator) subtract(left *Value, right Value) error {
	left.V -= right.V
	if right.Sym == nil {
		return nil // OK, pure integer subtracted.
	}
	if left.Sym == right.Sym {
		left.Sym = nil // same symbols cancel to a pure integer.
		return nil
	}

	leftSec := ev.toks.SymbolSection(left.Sym)
	rightSec := ev.toks.SymbolSection(right.Sym)

	if leftSec != nil && rightSec != nil && leftSec == rightSec {
		left.V += int64(left.Sym.Value) - int64(right.Sym.Value)
		left.Sym = nil
		return nil
	}
	curText := ev.toks.CurrentTextSection()
	if rightSec != nil && curText != nil && rightSec.ShNum == curText.ShNum {
		ind, _ := ev.toks.Here()
		left.V -= int64(right.Sym.Value) - ind - 4
		left.PCRel = true
		// left.Sym is deliberately left as-is (may be nil or still the
		// left-hand symbol) — tccasm.c only clears the right-hand
		// temporary's symbol here, not pe->sym.
		return nil
	}
	return fmt.Errorf("asmexpr: invalid operation with label")
}

func (ev *Evaluator) bitwise(s token.Stream) (Value, error) {
	left, err := ev.mul(s)
	if err != nil {
		return Value{}, err
	}
	for {
		op := s.Peek()
		if op.Kind != token.Punct || (op.Int != '&' && op.Int != '|' && op.Int != '^') {
			return left, nil
		}
		s.Next()
		right, err := ev.mul(s)
		if err != nil {
			return Value{}, err
		}
		if left.Sym != nil || right.Sym != nil {
			return Value{}, fmt.Errorf("asmexpr: invalid operation with label")
		}
		switch op.Int {
		case '&':
			left.V &= right.V
		case '|':
			left.V |= right.V
		case '^':
			left.V ^= right.V
		}
	}
}

func (ev *Evaluator) mul(s token.Stream) (Value, error) {
	left, err := ev.unary(s)
	if err != nil {
		return Value{}, err
	}
	for {
		op := s.Peek()
		isShl := op.Kind == token.Shl
		isSar := op.Kind == token.Sar
		isPunct := op.Kind == token.Punct && (op.Int == '*' || op.Int == '/' || op.Int == '%')
		if !isShl && !isSar && !isPunct {
			return left, nil
		}
		s.Next()
		right, err := ev.unary(s)
		if err != nil {
			return Value{}, err
		}
		if left.Sym != nil || right.Sym != nil {
			return Value{}, fmt.Errorf("asmexpr: invalid operation with label")
		}
		switch {
		case isShl:
			left.V <<= uint(right.V)
		case isSar:
			left.V >>= uint(right.V) // arithmetic shift (int64 sign-extends)
		case op.Int == '*':
			left.V *= right.V
		case op.Int == '/':
			if right.V == 0 {
				return Value{}, fmt.Errorf("asmexpr: division by zero")
			}
			left.V /= right.V
		case op.Int == '%':
			if right.V == 0 {
				return Value{}, fmt.Errorf("asmexpr: division by zero")
			}
			left.V %= right.V
		}
	}
}

func (ev *Evaluator) unary(s token.Stream) (Value, error) {
	op := s.Peek()
	if op.Kind == token.Punct && (op.Int == '+' || op.Int == '-' || op.Int == '~') {
		s.Next()
		v, err := ev.unary(s)
		if err != nil {
			return Value{}, err
		}
		if v.Sym != nil && op.Int != '+' {
			return Value{}, fmt.Errorf("asmexpr: invalid operation with label")
		}
		switch op.Int {
		case '-':
			v.V = -v.V
		case '~':
			v.V = ^v.V
		}
		return v, nil
	}
	return ev.atom(s)
}

func (ev *Evaluator) atom(s token.Stream) (Value, error) {
	t := s.Peek()
	switch t.Kind {
	case token.Punct:
		switch t.Int {
		case '(':
			s.Next()
			v, err := ev.Eval(s)
			if err != nil {
				return Value{}, err
			}
			close := s.Peek()
			if close.Kind != token.Punct || close.Int != ')' {
				return Value{}, fmt.Errorf("asmexpr: expected ')'")
			}
			s.Next()
			return v, nil
		case '.':
			s.Next()
			ind, sym := ev.toks.Here()
			return Value{V: ind, Sym: sym}, nil
		}
	case token.PPNumber:
		return ev.number(s, t)
	case token.CChar, token.LChar:
		s.Next()
		return Value{V: t.Int}, nil
	case token.Ident:
		s.Next()
		sym := findIdentSymbol(ev.toks, t)
		return Value{Sym: sym}, nil
	}
	return Value{}, fmt.Errorf("asmexpr: unexpected token %v", t)
}

// number parses a PPNumber atom, including the Nb/Nf local-label suffix
// (spec §4.3 "Atoms").
func (ev *Evaluator) number(s token.Stream, t token.Token) (Value, error) {
	s.Next()
	text := t.Str
	if n := len(text); n > 0 && (text[n-1] == 'b' || text[n-1] == 'f') {
		if isAllDigits(text[:n-1]) {
			num, _ := strconv.Atoi(text[:n-1])
			if text[n-1] == 'b' {
				sym, err := ev.toks.LocalLabelBackward(num)
				if err != nil {
					return Value{}, err
				}
				return Value{Sym: sym}, nil
			}
			sym, err := ev.toks.LocalLabelForward(num)
			if err != nil {
				return Value{}, err
			}
			return Value{Sym: sym}, nil
		}
	}
	v, err := parseIntLiteral(text)
	if err != nil {
		return Value{}, err
	}
	return Value{V: v}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseIntLiteral(s string) (int64, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "L"), "l")
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return int64(v), err
	}
	if strings.HasPrefix(s, "0") && len(s) > 1 && isAllDigits(s) {
		v, err := strconv.ParseUint(s[1:], 8, 64)
		return int64(v), err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(s, 10, 64)
		if uerr == nil {
			return int64(u), nil
		}
		return 0, fmt.Errorf("asmexpr: bad number literal %q: %w", s, err)
	}
	return v, nil
}

// symbolSource lets atom() resolve an identifier into a symbol without
// asmexpr needing to know about section.Store directly; LabelResolver
// implementations also implement this narrower lookup.
type symbolSource interface {
	AsmLabelFind(name string) *section.Symbol
}

func findIdentSymbol(res LabelResolver, t token.Token) *section.Symbol {
	if src, ok := res.(symbolSource); ok {
		return src.AsmLabelFind(t.Str)
	}
	return nil
}
