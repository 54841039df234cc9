// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bc

import (
	"testing"

	"github.com/lab272/semtex-go/geom"
)

// TestHistoryRollAllPreservesOlderLevels is a regression test for the
// stray `copy(last, buf[n-2])` that used to run before roll's
// header-rotation loop: it clobbered the buffer about to become level 0
// with level n-2's stale contents before the swap even happened. Four
// deposit/roll cycles are enough to expose any cross-level contamination
// since every level index is touched at least once.
func TestHistoryRollAllPreservesOlderLevels(t *testing.T) {
	h := NewHistory(4, 2)
	deposit := func(v float64) {
		h.Uhat[0][0], h.Uhat[0][1] = v, v
	}

	deposit(1)
	h.RollAll()
	deposit(2)
	h.RollAll()
	deposit(3)
	h.RollAll()
	deposit(4)

	want := [][2]float64{{4, 4}, {3, 3}, {2, 2}, {1, 1}}
	for level, w := range want {
		got := [2]float64{h.Uhat[level][0], h.Uhat[level][1]}
		if got != w {
			t.Fatalf("Uhat level %d = %v, want %v", level, got, w)
		}
	}
}

// TestBCmgrMaintainFourierUnHistoryInvariant drives three successive
// MaintainFourier deposits and checks the Un rolling invariant end to
// end, the same history buffer MaintainFourier's d(u.n)/dt estimate reads from.
func TestBCmgrMaintainFourierUnHistoryInvariant(t *testing.T) {
	g := geom.NewGeometry(4, 1, 1, 1, geom.Cartesian, geom.Sym2D2C, false)
	m := NewBCmgr(g, 1, 2)

	u1 := []float64{1}
	m.MaintainFourier(u1, []float64{0}, nil, 1.0)
	if !m.UnHistoryInvariant(u1, nil) {
		t.Fatalf("after first deposit: Un history invariant violated")
	}

	u2 := []float64{2}
	m.MaintainFourier(u2, []float64{0}, nil, 1.0)
	if !m.UnHistoryInvariant(u2, [][]float64{u1}) {
		t.Fatalf("after second deposit: Un history invariant violated")
	}

	u3 := []float64{3}
	m.MaintainFourier(u3, []float64{0}, nil, 1.0)
	if !m.UnHistoryInvariant(u3, [][]float64{u2, u1}) {
		t.Fatalf("after third deposit: Un history invariant violated")
	}
}
