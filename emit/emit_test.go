package emit

import (
	"testing"

	"mtcc/section"
	"mtcc/token"
)

func TestEmitLE32ThenPatch(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	e := New(text)

	site := e.EmitWithPatch()
	e.PatchRel32(site, e.Ind())
	data := text.Data()
	got := int32(uint32(data[site]) | uint32(data[site+1])<<8 | uint32(data[site+2])<<16 | uint32(data[site+3])<<24)
	if got != 0 {
		t.Fatalf("self-targeted rel32 should be 0, got %d", got)
	}
}

func TestChainResolvesAllSites(t *testing.T) {
	st := section.New(token.NewInterner())
	text := st.FindOrCreateSection(".text", section.Progbits)
	e := New(text)

	chain := 0
	var sites []int
	for i := 0; i < 3; i++ {
		site := e.EmitWithPatch()
		chain = ChainAppend(e, chain, site)
		sites = append(sites, site)
	}
	target := e.Ind()
	ChainResolve(e, chain, target)

	data := text.Data()
	for _, site := range sites {
		rel := int32(uint32(data[site]) | uint32(data[site+1])<<8 | uint32(data[site+2])<<16 | uint32(data[site+3])<<24)
		want := int32(target - (site + 4))
		if rel != want {
			t.Fatalf("site %d: rel32 = %d, want %d", site, rel, want)
		}
	}
}
