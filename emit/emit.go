// Package emit provides the thin byte/word/dword/qword emission primitives
// over a section's buffer, plus the "emit and record a future patch" and
// jump-chain primitives spec §4.2 describes.
package emit

import "mtcc/section"

// Emitter is a cursor into one section's buffer — the single mutable "ind"
// of spec §4.2. A code generator or assembler keeps one Emitter per active
// section (retargeted on .section/.text/.data/.bss).
type Emitter struct {
	Sec *section.Section
}

// New returns an Emitter writing into sec.
func New(sec *section.Section) *Emitter { return &Emitter{Sec: sec} }

// Ind is the current logical write position (spec §4.2 "ind").
func (e *Emitter) Ind() int { return e.Sec.DataOffset }

func (e *Emitter) EmitU8(b byte) {
	e.Sec.Append([]byte{b})
}

func (e *Emitter) EmitBytes(bs ...byte) {
	e.Sec.Append(bs)
}

func (e *Emitter) EmitLE16(v uint16) {
	e.Sec.Append([]byte{byte(v), byte(v >> 8)})
}

func (e *Emitter) EmitLE32(v uint32) {
	e.Sec.Append([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (e *Emitter) EmitLE64(v uint64) {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	e.Sec.Append(b)
}

// EmitWithPatch emits a 4-byte placeholder (zero) and returns its absolute
// offset within the section — the "patch site" spec §4.2 describes, used by
// forward jumps and gsym_addr.
func (e *Emitter) EmitWithPatch() (patchSite int) {
	patchSite = e.Ind()
	e.EmitLE32(0)
	return patchSite
}

// PatchRel32 writes target-relative-to-(site+4) at site, the standard x86
// rel32 convention used by both call and jmp/jcc fixups.
func (e *Emitter) PatchRel32(site int, target int) {
	rel := int32(target - (site + 4))
	e.Sec.PatchU32(site, uint32(rel))
}

// --- Jump chains ---
//
// Spec §4.2/§9: unresolved forward jumps are stitched as a singly-linked
// list threaded through the 4-byte placeholder slots themselves — each slot
// stores the chain head that preceded it (the next slot's absolute offset
// plus one, not a relative displacement), 0 terminates the chain.
// ChainAppend/ChainResolve are the only two operations a caller needs;
// they never look inside the section's bytes except at those slots.

// ChainAppend links a new patch site onto the front of chain (which may be 0,
// the empty chain), returning the new head. It stores the previous head's
// offset (encoded so 0 still means "no next site": we bias by +1 and 0 means
// empty) into the just-emitted slot at site.
func ChainAppend(e *Emitter, head int, site int) int {
	if head == 0 {
		e.Sec.PatchU32(site, 0)
	} else {
		e.Sec.PatchU32(site, uint32(head))
	}
	return site + 1 // bias by one so that offset 0 is distinguishable from "empty"
}

// ChainResolve walks chain (as returned by repeated ChainAppend calls) and
// patches every site in it to a rel32 targeting target (an absolute offset
// in the same section), matching spec §9's gsym_addr/gjmp_addr: each slot's
// stored "next" value is read, the slot is overwritten with its final
// displacement, and the walk continues from the old value.
func ChainResolve(e *Emitter, chain int, target int) {
	for chain != 0 {
		site := chain - 1
		next := e.Sec.Data()[site : site+4]
		nv := uint32(next[0]) | uint32(next[1])<<8 | uint32(next[2])<<16 | uint32(next[3])<<24
		e.PatchRel32(site, target)
		chain = int(nv)
	}
}
