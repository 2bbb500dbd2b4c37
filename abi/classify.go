// Package abi implements the ABI Lowering component (spec.md §4.8):
// System V and Windows x64 argument/return classification, the variadic
// register-save area, and prologue/epilogue frame sizing.
//
// Grounded directly on original_source/x86_64-gen.c's
// classify_x86_64_arg/classify_x86_64_inner/classify_x86_64_merge — the
// teacher repo targets a single calling convention internally and has no
// classifier of its own to generalize.
package abi

// Mode is one eightbyte classification outcome (x86_64_mode_* in the
// original).
type Mode int

const (
	ModeNone Mode = iota
	ModeInteger
	ModeSSE
	ModeMemory
	ModeX87
)

// merge implements the System V eightbyte merge rule
// (classify_x86_64_merge): NONE is the identity, MEMORY is absorbing,
// X87 mixed with any other class is MEMORY, INTEGER wins ties, otherwise
// SSE.
func merge(a, b Mode) Mode {
	switch {
	case a == b:
		return a
	case a == ModeNone:
		return b
	case b == ModeNone:
		return a
	case a == ModeMemory || b == ModeMemory:
		return ModeMemory
	case a == ModeX87 || b == ModeX87:
		return ModeMemory // x87 can only combine with itself
	case a == ModeInteger || b == ModeInteger:
		return ModeInteger
	default:
		return ModeSSE
	}
}

// ScalarKind enumerates the leaf types classify cares about — the fields
// of an aggregate, or a bare scalar argument.
type ScalarKind int

const (
	KindVoid ScalarKind = iota
	KindInt            // int/short/byte/bool/pointer/enum/function/long
	KindFloat
	KindDouble
	KindLongDouble
)

func (k ScalarKind) inner() Mode {
	switch k {
	case KindVoid:
		return ModeNone
	case KindInt:
		return ModeInteger
	case KindFloat, KindDouble:
		return ModeSSE
	case KindLongDouble:
		return ModeX87
	default:
		return ModeNone
	}
}

// Field is one member of an aggregate type being classified, or the sole
// entry for a scalar.
type Field struct {
	Kind ScalarKind
	// Struct holds the nested fields when Kind represents an aggregate
	// (a zero-length Struct with a non-nil slice denotes an empty one);
	// nil means this Field is itself a scalar leaf.
	Struct []Field
	// unionTag is set only by NewUnionField — ordinary aggregates can't
	// accidentally be mistaken for unions.
	unionTag bool
}

func classifyInner(f Field) Mode {
	if f.Struct == nil {
		return f.Kind.inner()
	}
	mode := ModeNone
	for _, sub := range f.Struct {
		mode = merge(mode, classifyInner(sub))
	}
	return mode
}

// ArgClass is the result of classifying one argument or return value: its
// eightbyte mode(s), size in bytes rounded to an eightbyte, and how many
// registers it needs (1 or 2 for a two-eightbyte INTEGER/SSE value).
type ArgClass struct {
	Mode     Mode
	Size     int
	RegCount int
	// IsUnion marks an aggregate built by NewUnionField; Classify sets it,
	// and a union always classifies as memory regardless of field types.
	IsUnion bool
}

// Classify implements classify_x86_64_arg: unions and aggregates over 16
// bytes go to memory; everything else classifies via the recursive merge
// rule and reports whether it needs one or two eightbyte registers.
func Classify(f Field, sizeBytes int) ArgClass {
	if f.IsUnionField() || sizeBytes > 16 {
		return ArgClass{Mode: ModeMemory, Size: align8(sizeBytes), RegCount: 0, IsUnion: f.IsUnionField()}
	}
	mode := classifyInner(f)
	switch mode {
	case ModeInteger, ModeSSE:
		if sizeBytes > 8 {
			return ArgClass{Mode: mode, Size: align8(sizeBytes), RegCount: 2}
		}
		return ArgClass{Mode: mode, Size: align8(sizeBytes), RegCount: 1}
	case ModeX87:
		return ArgClass{Mode: ModeX87, Size: align8(sizeBytes), RegCount: 1}
	default:
		return ArgClass{Mode: mode, Size: align8(sizeBytes), RegCount: 0}
	}
}

// IsUnionField reports whether f represents a union (detected in the
// original by two sibling fields sharing an offset; here the caller
// marks it explicitly since this package doesn't own a full type/offset
// model — that lives in the external parser's type checker).
func (f Field) IsUnionField() bool { return f.unionTag }

func align8(n int) int { return (n + 7) &^ 7 }

// NewUnionField builds a Field representing a union of members, forcing
// the memory classification regardless of what the members would
// otherwise classify to.
func NewUnionField(members []Field) Field {
	return Field{Kind: KindVoid, Struct: members, unionTag: true}
}
