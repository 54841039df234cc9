// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package field implements Field, the central object that binds an
// AuxField to its AssemblyMap, BoundarySys, and per-mode MatrixSys, and
// dispatches solve() through ellipt. It is gofem's
// `fem/e_pp.go` Poisson-class element role, generalised from one
// finite-element's local K/M assembly + dispatch to the SEM per-mode
// elliptic solve.
package field

import (
	"github.com/lab272/semtex-go/assembly"
	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/bc"
	"github.com/lab272/semtex-go/ellipt"
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/geom"
)

// Field couples a named AuxField to the connectivity (AssemblyMap),
// boundary description (BoundarySys, one per mode), and elliptic solver
// state (ModalMatrixSys, one per mode) needed to advance it.
type Field struct {
	Name string
	Data *auxfield.AuxField

	Geo   *geom.Geometry
	Elems []*elem.Element

	// one AssemblyMap / BoundarySys / MatrixSys per process-local Fourier
	// mode.
	Maps  []*assembly.Map
	Bsyss []*bc.BoundarySys
	MMS   ellipt.ModalMatrixSys

	ElemBoundaryGlobals [][][]int // [mode][elem][k]
}

// NewField wraps an existing AuxField with the connectivity and solver
// state built by the caller (typically domain.Domain at setup time).
func NewField(name string, data *auxfield.AuxField, g *geom.Geometry, elems []*elem.Element,
	maps []*assembly.Map, bsyss []*bc.BoundarySys, mms ellipt.ModalMatrixSys, ebg [][][]int) *Field {
	return &Field{
		Name: name, Data: data, Geo: g, Elems: elems,
		Maps: maps, Bsyss: bsyss, MMS: mms, ElemBoundaryGlobals: ebg,
	}
}

// EvaluateBoundaries samples every Condition on this field's BoundarySys at
// time t, for the current process-local Fourier mode set, split into the
// essential (Dirichlet) values destined for the -H*g lift and the natural/
// mixed/computed flux contributions destined for <h,w> -- including the
// ComputedNaturalPressure (KIO91 high-order pressure BC) and
// ComputedMixedOpen/ComputedMixedScalar (Dong/LXD20 open-BC) variants,
// which are natural, not essential, and so only ever reach naturalByMode.
func (f *Field) EvaluateBoundaries(t float64, mgr *bc.BCmgr) (essentialByMode, naturalByMode [][][]float64) {
	// per-element boundary-node position table, in the same
	// ascending-tensor-product-index order ellipt.MatrixSys's boundary
	// arrays use (elem.Element.BoundaryNodeOrder), so essential[ei][a] /
	// natural[ei][a] line up with ms.Solve's boundaryIdx[a].
	order := make([][]elem.NodeIJ, len(f.Elems))
	pos := make([]map[elem.NodeIJ]int, len(f.Elems))
	for ei, e := range f.Elems {
		order[ei] = e.BoundaryNodeOrder()
		pos[ei] = make(map[elem.NodeIJ]int, len(order[ei]))
		for k, n := range order[ei] {
			pos[ei][n] = k
		}
	}

	essentialByMode = make([][][]float64, len(f.Bsyss))
	naturalByMode = make([][][]float64, len(f.Bsyss))
	for mi, bsys := range f.Bsyss {
		essential := make([][]float64, len(f.Elems))
		natural := make([][]float64, len(f.Elems))
		for ei := range f.Elems {
			essential[ei] = make([]float64, len(order[ei]))
			natural[ei] = make([]float64, len(order[ei]))
		}
		for _, b := range bsys.Boundaries {
			if b.Cond == nil {
				continue
			}
			e := f.Elems[b.ElemId]
			nodes := e.BMap[b.Side]
			x := make([][2]float64, len(nodes))
			for k, n := range nodes {
				x[k] = [2]float64{e.X[n.I][n.J], e.Y[n.I][n.J]}
			}
			vals := b.Cond.Evaluate(t, x, bsys.Mode, mgr)
			dst := natural[b.ElemId]
			if b.Cond.IsEssential() {
				dst = essential[b.ElemId]
			}
			for k, n := range nodes {
				dst[pos[b.ElemId][n]] = vals[k]
			}
		}
		essentialByMode[mi] = essential
		naturalByMode[mi] = natural
	}
	return essentialByMode, naturalByMode
}

// Solve overwrites this Field's AuxField ( contract) with
// the solution of (K + lambda^2 M) u = -M f - H g + <h, w> for every
// process-local Fourier mode, dispatching through the mode's MatrixSys.
// rhsByMode is f (Fourier space, per mode, per element, destroyed),
// essentialByMode is the lifted essential-BC data from
// EvaluateBoundaries, used as given (no boundary transform is applied
// here or by EvaluateBoundaries), naturalByMode is the
// quadrature-weighted natural/mixed flux, or nil.
func (f *Field) Solve(rhsByMode [][][]float64, essentialByMode [][][]float64, naturalByMode [][][]float64) {
	if len(f.MMS) != len(rhsByMode) {
		femlib.Fatal("field.Field.Solve", "mode count mismatch: MMS has %d, rhs has %d", len(f.MMS), len(rhsByMode))
	}
	for mi, ms := range f.MMS {
		if ms == nil {
			continue // Nyquist plane is never evolved
		}
		var essential [][]float64
		if essentialByMode != nil {
			essential = essentialByMode[mi]
		}
		var natural [][]float64
		if naturalByMode != nil {
			natural = naturalByMode[mi]
		}
		solution, iters, converged := ms.Solve(rhsByMode[mi], essential, natural)
		if ms.Method == ellipt.JACPCG && !converged {
			femlib.Warn("field.Field.Solve", "%s mode %d: JACPCG did not converge in %d iterations", f.Name, mi, iters)
		}
		f.scatterElementSolutionIntoData(mi, solution)
	}
}

// scatterElementSolutionIntoData writes each element's recovered nodal
// values back into the plane-major AuxField storage for Fourier mode mi
// (mode mi's solution is written to the real plane 2*mi only; the paired
// imaginary plane 2*mi+1 is left untouched).
// Elements occupy contiguous n_p^2-sized blocks within a plane, following
// the n_plane = n_p^2 * n_el layout.
func (f *Field) scatterElementSolutionIntoData(mi int, solution [][]float64) {
	plane := f.Data.Plane(2 * mi)
	offset := 0
	for ei, e := range f.Elems {
		u := solution[ei]
		np := e.Np
		copy(plane[offset:offset+np*np], u)
		offset += np * np
	}
}
