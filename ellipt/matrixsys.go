// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ellipt

import (
	"github.com/lab272/semtex-go/assembly"
	"github.com/lab272/semtex-go/bc"
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
)

// Method selects the elliptic solution path MatrixSys
// "solution-method tag".
type Method int

const (
	Direct Method = iota // banded Cholesky + Schur complement
	JACPCG
)

// MatrixSys holds, for one (field, Fourier-mode) combination, either the
// banded Cholesky factor with per-element Schur factors, or the inverse
// diagonal for JACPCG
type MatrixSys struct {
	Method Method

	LambdaSq float64 // Helmholtz constant
	BetaSq   float64 // Fourier constant beta^2 * mode^2 (or shifted for cylindrical v~/w~)

	Map   *assembly.Map
	Bsys  *bc.BoundarySys
	Elems []*elem.Element

	// elemBoundaryGlobals[e][k] is the global id (post-assembly-map
	// renumbering) of element e's k'th boundary node, in the ascending
	// tensor-product order boundaryInteriorSplit returns them.
	ElemBoundaryGlobals [][]int

	// DIRECT path
	H       *Banded
	Factors []*ElementFactor
	Hbi     [][][]float64 // per-element Hbi, kept for interior recovery
	Hib     [][][]float64

	// JACPCG path
	PC []float64 // inverse diagonal, length Nsolve

	TolRel  float64
	StepMax int
}

// NewMatrixSys builds the per-mode elliptic system: for Direct, factors
// every element's local Helmholtz block and assembles + Cholesky-factors
// the global banded system; for JACPCG, assembles just the global
// diagonal and inverts it. boundaryInteriorSplit partitions each
// element's tensor-product node indices into boundary and interior sets.
func NewMatrixSys(method Method, lambdaSq, betaSq float64, amap *assembly.Map, bsys *bc.BoundarySys,
	elems []*elem.Element, elemBoundaryGlobals [][]int, tolRel float64, stepMax int) *MatrixSys {

	ms := &MatrixSys{
		Method:              method,
		LambdaSq:            lambdaSq,
		BetaSq:              betaSq,
		Map:                 amap,
		Bsys:                bsys,
		Elems:               elems,
		ElemBoundaryGlobals: elemBoundaryGlobals,
		TolRel:              tolRel,
		StepMax:             stepMax,
	}

	switch method {
	case Direct:
		ms.buildDirect()
	case JACPCG:
		ms.buildJacobi()
	default:
		femlib.Fatal("ellipt.NewMatrixSys", "unknown method %d", method)
	}
	return ms
}

// localHelmholtzBlock evaluates element e's full np^2 x np^2 Helmholtz
// operator as a dense matrix by applying HelmholtzOperator to each unit
// basis vector (a reference-grade, O(np^4) construction used only at
// setup time; the per-step apply goes through the tensor-product
// HelmholtzOperator directly).
func localHelmholtzBlock(e *elem.Element, lambdaSq, betaSq float64) [][]float64 {
	n := e.Np * e.Np
	h := make([][]float64, n)
	unit := make([]float64, n)
	for j := 0; j < n; j++ {
		unit[j] = 1
		col := e.HelmholtzOperator(unit, lambdaSq, betaSq)
		unit[j] = 0
		for i := 0; i < n; i++ {
			if h[i] == nil {
				h[i] = make([]float64, n)
			}
			h[i][j] = col[i]
		}
	}
	return h
}

// partition splits a dense np^2 block into boundary/interior row-column
// quadrants, given the boundary-local index set (as used by elem.BMap,
// flattened and de-duplicated across the four sides).
func partition(h [][]float64, boundaryIdx, interiorIdx []int) (hbb, hbi, hib, hii [][]float64) {
	nb, ni := len(boundaryIdx), len(interiorIdx)
	hbb = allocMat(nb, nb)
	hbi = allocMat(nb, ni)
	hib = allocMat(ni, nb)
	hii = allocMat(ni, ni)
	for a, i := range boundaryIdx {
		for b, j := range boundaryIdx {
			hbb[a][b] = h[i][j]
		}
		for b, j := range interiorIdx {
			hbi[a][b] = h[i][j]
		}
	}
	for a, i := range interiorIdx {
		for b, j := range boundaryIdx {
			hib[a][b] = h[i][j]
		}
		for b, j := range interiorIdx {
			hii[a][b] = h[i][j]
		}
	}
	return
}

func allocMat(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := range m {
		m[i] = make([]float64, c)
	}
	return m
}

// boundaryInteriorSplit returns the flattened boundary node indices (in
// ascending index order, each corner once) and the complementary
// interior indices for an np x np tensor-product element.
func boundaryInteriorSplit(e *elem.Element) (boundary, interior []int) {
	np := e.Np
	isB := make([]bool, np*np)
	for side := elem.Side(0); side < 4; side++ {
		for _, n := range e.BMap[side] {
			isB[n.I*np+n.J] = true
		}
	}
	for idx, b := range isB {
		if b {
			boundary = append(boundary, idx)
		} else {
			interior = append(interior, idx)
		}
	}
	return
}

func (ms *MatrixSys) buildDirect() {
	nsolve := ms.Map.Nsolve
	bandwidth := ms.Map.LastBandwidth()
	if bandwidth < 1 {
		bandwidth = 1
	}
	ms.H = NewBanded(bandwidth, nsolve)
	ms.Factors = make([]*ElementFactor, len(ms.Elems))
	ms.Hbi = make([][][]float64, len(ms.Elems))
	ms.Hib = make([][][]float64, len(ms.Elems))

	for ei, e := range ms.Elems {
		boundaryIdx, interiorIdx := boundaryInteriorSplit(e)
		h := localHelmholtzBlock(e, ms.LambdaSq, ms.BetaSq)
		hbb, hbi, hib, hii := partition(h, boundaryIdx, interiorIdx)

		if len(hii) > 0 {
			reduced, ef := FactorElement(hbb, hbi, hib, hii, len(boundaryIdx), len(interiorIdx))
			ms.Factors[ei] = ef
			hbb = reduced
		}
		ms.Hbi[ei] = hbi
		ms.Hib[ei] = hib

		globs := ms.ElemBoundaryGlobals[ei]
		for a := range boundaryIdx {
			ga := globs[a]
			if ga < 0 || ga >= nsolve {
				continue
			}
			for b := range boundaryIdx {
				gb := globs[b]
				if gb < 0 || gb >= nsolve {
					continue
				}
				if ga >= gb {
					ms.H.Add(ga, gb, hbb[a][b])
				}
			}
		}
	}
	ms.H.Factor()
}

func (ms *MatrixSys) buildJacobi() {
	nsolve := ms.Map.Nsolve
	diag := make([]float64, nsolve)
	for ei, e := range ms.Elems {
		boundaryIdx, _ := boundaryInteriorSplit(e)
		np := e.Np
		unit := make([]float64, np*np)
		globs := ms.ElemBoundaryGlobals[ei]
		for a, idx := range boundaryIdx {
			unit[idx] = 1
			col := e.HelmholtzOperator(unit, ms.LambdaSq, ms.BetaSq)
			unit[idx] = 0
			ga := globs[a]
			if ga >= 0 && ga < nsolve {
				diag[ga] += col[idx]
			}
		}
	}
	ms.PC = BuildDiagonalPreconditioner(diag)
}

// Apply applies the assembled global Helmholtz operator to x (length
// Nsolve), used as the Operator callback for JacobiPCG.
func (ms *MatrixSys) Apply(x []float64) []float64 {
	nsolve := ms.Map.Nsolve
	out := make([]float64, nsolve)
	for ei, e := range ms.Elems {
		boundaryIdx, _ := boundaryInteriorSplit(e)
		np := e.Np
		globs := ms.ElemBoundaryGlobals[ei]
		local := make([]float64, np*np)
		for a, idx := range boundaryIdx {
			ga := globs[a]
			if ga >= 0 && ga < nsolve {
				local[idx] = x[ga]
			}
		}
		col := e.HelmholtzOperator(local, ms.LambdaSq, ms.BetaSq)
		for a, idx := range boundaryIdx {
			ga := globs[a]
			if ga >= 0 && ga < nsolve {
				out[ga] += col[idx]
			}
		}
	}
	return out
}

// ModalMatrixSys is a slice of MatrixSys indexed by process-local Fourier
// mode, built once at integrator setup and never mutated except for BC
// history inside bc.BCmgr.
type ModalMatrixSys []*MatrixSys

// NewModalMatrixSys allocates nmodeLocal empty slots; callers fill each
// with NewMatrixSys once per (field, mode) combination.
func NewModalMatrixSys(nmodeLocal int) ModalMatrixSys {
	return make(ModalMatrixSys, nmodeLocal)
}
