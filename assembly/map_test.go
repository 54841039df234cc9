package assembly

import "testing"

func TestEssentialSuffixInvariant(t *testing.T) {
	// naive numbering 0..5, mask marks 1 and 4 essential
	naive := []int{0, 1, 2, 3, 4, 5}
	mask := []bool{false, true, false, false, true, false}
	m := New(naive, mask, nil, LevelNone)
	if m.Nglobal != 6 {
		t.Fatalf("expected 6 globals, got %d", m.Nglobal)
	}
	if m.Nsolve != 4 {
		t.Fatalf("expected 4 unknowns, got %d", m.Nsolve)
	}
	for i, g := range m.Btog {
		isEssen := mask[i]
		if isEssen && g < m.Nsolve {
			t.Fatalf("essential naive id %d mapped into unknown partition (new id %d, nsolve %d)", naive[i], g, m.Nsolve)
		}
		if !isEssen && g >= m.Nsolve {
			t.Fatalf("unknown naive id %d mapped into essential suffix (new id %d, nsolve %d)", naive[i], g, m.Nsolve)
		}
	}
}

func TestWillMatch(t *testing.T) {
	a := []bool{true, false, false}
	b := []bool{true, false, false}
	c := []bool{true, true, false}
	if !WillMatch(a, b) {
		t.Fatalf("expected masks to match")
	}
	if WillMatch(a, c) {
		t.Fatalf("expected masks to differ")
	}
}

func TestUniqueConstructionReproducible(t *testing.T) {
	naive := []int{0, 1, 2, 3, 4, 5, 1, 6}
	mask := []bool{false, false, false, true, false, false, false, true}
	elemGlobals := [][]int{{0, 1, 2}, {2, 3, 4}, {4, 5, 1}, {1, 6}}
	m1 := New(naive, mask, elemGlobals, LevelFNROOT)
	m2 := New(naive, mask, elemGlobals, LevelFNROOT)
	if m1.Nglobal != m2.Nglobal || m1.Nsolve != m2.Nsolve {
		t.Fatalf("two independent constructions diverged in size")
	}
	for i := range m1.Btog {
		if m1.Btog[i] != m2.Btog[i] {
			t.Fatalf("two independent constructions diverged at %d: %d != %d", i, m1.Btog[i], m2.Btog[i])
		}
	}
}
