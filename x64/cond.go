package x64

// CondCode is one of the x86 Jcc/SETcc condition codes. Spec §4.7's DESIGN
// NOTES keep the source's "biased by 16" packing (`c.i`) ONLY at this
// encoder boundary — cgen.SValue itself carries a plain CondCode field, not
// a biased integer (SPEC_FULL §5's "disciplined rewrite").
type CondCode int

const (
	CCO  CondCode = iota // overflow
	CCNO                 // no overflow
	CCB                  // below (unsigned <)
	CCAE                 // above or equal (unsigned >=)
	CCE                  // equal / zero
	CCNE                 // not equal / not zero
	CCBE                 // below or equal (unsigned <=)
	CCA                  // above (unsigned >)
	CCS                  // sign
	CCNS                 // not sign
	CCP                  // parity (unordered, for float compares)
	CCNP                 // not parity
	CCL                  // less (signed <)
	CCGE                 // greater or equal (signed >=)
	CCLE                 // less or equal (signed <=)
	CCG                  // greater (signed >)
)

// Byte returns the condition code's x86 encoding (0x80 | cc for the 2-byte
// Jcc/SETcc opcode forms), recovering the bias-by-16 trick spec.md §4.7
// describes: the packed value 0x80+cc is exactly CCO..CCG plus 0x80.
func (c CondCode) Byte() byte { return byte(0x80 + int(c)) }

// Invert returns the condition that is true exactly when c is false —
// gtst's "inv" parameter flips the sense of a pending compare without
// re-evaluating it.
func (c CondCode) Invert() CondCode {
	return c ^ 1 // every pair (O/NO, B/AE, E/NE, ...) differs in bit 0
}
