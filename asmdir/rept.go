package asmdir

import (
	"errors"

	"mtcc/token"
)

// directiveRept handles `.rept N ... .endr` (spec §4.4 "Repetition"):
// captures the intervening token stream and re-drives the assembler N times
// against a replayed copy. Running off the end of the stream before a
// matching .endr is fatal, matching spec §4.4's wording exactly.
func (a *Assembler) directiveRept(s token.Stream) error {
	v, err := a.evalExpr(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}
	count := v.V
	if err := a.skipToLineEnd(s); err != nil {
		return err
	}
	if s.Peek().Kind == token.Linefeed {
		s.Next()
	}

	body, err := captureReptBody(s)
	if err != nil {
		return a.Diag.Errorf("asmdir: %v", err)
	}

	for i := int64(0); i < count; i++ {
		replay := token.NewStream(append([]token.Token{}, body...))
		if err := a.Run(replay); err != nil {
			return err
		}
	}
	return nil
}

// captureReptBody reads tokens from s up to (and consuming) the matching
// top-level ".endr", tracking nested .rept/.endr pairs by depth. It returns
// an error if EOF is reached first.
func captureReptBody(s token.Stream) ([]token.Token, error) {
	var body []token.Token
	depth := 0
	for {
		t := s.Peek()
		if t.Kind == token.EOF {
			return nil, errUnterminatedRept
		}
		if t.Kind == token.Ident && t.Str == ".rept" {
			depth++
		}
		if t.Kind == token.Ident && t.Str == ".endr" {
			if depth == 0 {
				s.Next()
				return body, nil
			}
			depth--
		}
		body = append(body, t)
		s.Next()
	}
}

var errUnterminatedRept = errors.New("asmdir: ran off the end of the input before .endr")
