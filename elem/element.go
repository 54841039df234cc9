// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elem implements the per-element spectral operators: metric
// Jacobian, mass diagonal, derivative matrices DV/DT,
// the local Helmholtz operator, local<->global scatter (with and without
// Schur-complement pre-multiplication), directional/divergence-weighted
// gradients, divY/mulY for cylindrical forms, norms, and GLL-nodal probes.
//
// It follows the registry-of-allocators idiom of gofem's fem/element.go
// (Elem interface + eallocators map) but there is exactly one concrete
// element kind here (the GLL quadrilateral), with no
// element-type variation the way gofem's solid/porous/beam/rod family has.
package elem

import (
	"math"

	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/la"

	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/gll"
)

// Side indexes the four edges of a quadrilateral element, ordered
// counter-clockwise starting from the bottom edge (s=-1).
type Side int

const (
	SideBottom Side = iota
	SideRight
	SideTop
	SideLeft
)

// Element is one quadrilateral spectral element: np x np nodal values plus
// its metric. x/y hold the physical coordinates of every nodal point.
type Element struct {
	Id int
	Np int

	X, Y [][]float64 // [np][np] physical coordinates of GLL nodes

	// metric
	Jac   [][]float64 // Jacobian determinant at each node
	Rx_x, Rx_y, Sx_x, Sx_y [][]float64 // covariant derivative geometry factors (dr/dx etc.)

	Mass [][]float64 // diagonal mass matrix entries (np x np), M_ij = w_i w_j Jac_ij

	Ops *gll.Ops // shared GLL operators (nodes, weights, D) for this np

	// boundary-node index map for each side: BMap[side][k] gives the
	// (i,j) nodal index pair of the k-th node along that side, ordered
	// consistently with the element's own node numbering.
	BMap [4][]NodeIJ
}

// NodeIJ is a tensor-product nodal index pair.
type NodeIJ struct{ I, J int }

// BoundaryNodeOrder returns this element's flattened, de-duplicated
// boundary node set in ascending tensor-product-index order -- the same
// order ellipt.MatrixSys's per-element boundary arrays (essential-BC lift,
// natural-BC flux, recovered solution) are indexed in.
func (e *Element) BoundaryNodeOrder() []NodeIJ {
	np := e.Np
	isB := make([]bool, np*np)
	for side := Side(0); side < 4; side++ {
		for _, n := range e.BMap[side] {
			isB[n.I*np+n.J] = true
		}
	}
	var out []NodeIJ
	for idx, b := range isB {
		if b {
			out = append(out, NodeIJ{I: idx / np, J: idx % np})
		}
	}
	return out
}

// NaiveSideOrder returns this element's boundary nodes in the per-side,
// corner-deduplicated order mesh.NaiveAssembly's naive vector uses: side 0
// (bottom) through side 3 (left), each contributing its first np-1 BMap
// entries (the trailing node of each side is the shared corner picked up by
// the next side). This is NOT the same order as BoundaryNodeOrder -- callers
// that hand a naive/Btog-derived slice to ellipt.MatrixSys must first
// permute it into BoundaryNodeOrder's ascending tensor-product order.
func (e *Element) NaiveSideOrder() []NodeIJ {
	np := e.Np
	var out []NodeIJ
	for side := Side(0); side < 4; side++ {
		out = append(out, e.BMap[side][:np-1]...)
	}
	return out
}

// SideNormal returns the outward unit normal of side for an axis-aligned
// rectangular element -- exact for the structured grid this module's mesh
// generator produces (session.Grid); a curved-edge mesh would need a
// per-node normal computed from the local metric instead.
func SideNormal(side Side) (nx, ny float64) {
	switch side {
	case SideBottom:
		return 0, -1
	case SideRight:
		return 1, 0
	case SideTop:
		return 0, 1
	case SideLeft:
		return -1, 0
	default:
		return 0, 0
	}
}

// NewElement allocates an Element and computes its metric from the corner
// coordinates (x0..x3, y0..y3), counter-clockwise starting bottom-left,
// using a standard bilinear isoparametric map -- full curved-edge geometric
// factor construction from raw mesh corners is out of scope; this bilinear
// map is the minimal stand-in used so the rest of the kernel has concrete
// metric data to operate on.
func NewElement(id, np int, corners [4][2]float64, cache *gll.Cache) *Element {
	e := &Element{Id: id, Np: np}
	e.Ops = cache.Get(gll.GLL, np, 0, 0)
	z := e.Ops.Z

	e.X = la.MatAlloc(np, np)
	e.Y = la.MatAlloc(np, np)
	e.Jac = la.MatAlloc(np, np)
	e.Rx_x = la.MatAlloc(np, np)
	e.Rx_y = la.MatAlloc(np, np)
	e.Sx_x = la.MatAlloc(np, np)
	e.Sx_y = la.MatAlloc(np, np)
	e.Mass = la.MatAlloc(np, np)

	x0, y0 := corners[0][0], corners[0][1]
	x1, y1 := corners[1][0], corners[1][1]
	x2, y2 := corners[2][0], corners[2][1]
	x3, y3 := corners[3][0], corners[3][1]

	for i := 0; i < np; i++ {
		r := z[i]
		for j := 0; j < np; j++ {
			s := z[j]
			n0 := 0.25 * (1 - r) * (1 - s)
			n1 := 0.25 * (1 + r) * (1 - s)
			n2 := 0.25 * (1 + r) * (1 + s)
			n3 := 0.25 * (1 - r) * (1 + s)
			e.X[i][j] = n0*x0 + n1*x1 + n2*x2 + n3*x3
			e.Y[i][j] = n0*y0 + n1*y1 + n2*y2 + n3*y3

			dx_dr := 0.25 * (-(1-s)*x0 + (1-s)*x1 + (1+s)*x2 - (1+s)*x3)
			dx_ds := 0.25 * (-(1-r)*x0 - (1+r)*x1 + (1+r)*x2 + (1-r)*x3)
			dy_dr := 0.25 * (-(1-s)*y0 + (1-s)*y1 + (1+s)*y2 - (1+s)*y3)
			dy_ds := 0.25 * (-(1-r)*y0 - (1+r)*y1 + (1+r)*y2 + (1-r)*y3)

			jac := dx_dr*dy_ds - dx_ds*dy_dr
			if jac <= 0 {
				femlib.Fatal("elem.NewElement", "element %d has non-positive Jacobian %g at node (%d,%d)", id, jac, i, j)
			}
			e.Jac[i][j] = jac
			e.Rx_x[i][j] = dy_ds / jac  // dr/dx
			e.Rx_y[i][j] = -dx_ds / jac // dr/dy
			e.Sx_x[i][j] = -dy_dr / jac // ds/dx
			e.Sx_y[i][j] = dx_dr / jac  // ds/dy

			e.Mass[i][j] = e.Ops.W[i] * e.Ops.W[j] * jac
		}
	}

	e.buildBMap()
	return e
}

func (e *Element) buildBMap() {
	np := e.Np
	bottom := make([]NodeIJ, np)
	right := make([]NodeIJ, np)
	top := make([]NodeIJ, np)
	left := make([]NodeIJ, np)
	for k := 0; k < np; k++ {
		bottom[k] = NodeIJ{k, 0}
		right[k] = NodeIJ{np - 1, k}
		top[k] = NodeIJ{np - 1 - k, np - 1}
		left[k] = NodeIJ{0, np - 1 - k}
	}
	e.BMap = [4][]NodeIJ{bottom, right, top, left}
}

// Evaluate samples a time/space function at every nodal point of the
// element, returning a flat np*np array in row-major (i,j) order. The
// function itself is supplied pre-built by the (out-of-scope) session
// token/expression layer -- see bc.Condition.
func (e *Element) Evaluate(f fun.TimeSpace, t float64) []float64 {
	out := make([]float64, e.Np*e.Np)
	x := make([]float64, 2)
	for i := 0; i < e.Np; i++ {
		for j := 0; j < e.Np; j++ {
			x[0], x[1] = e.X[i][j], e.Y[i][j]
			out[i*e.Np+j] = f.F(t, x)
		}
	}
	return out
}

// gradPhys computes the physical-space gradient (du/dx, du/dy) of a nodal
// field u (flat, row-major) via the chain rule through the reference
// derivatives Dr, Ds and the stored metric factors.
func (e *Element) gradPhys(u []float64) (dudx, dudy []float64) {
	np := e.Np
	dudx = make([]float64, np*np)
	dudy = make([]float64, np*np)
	dur := make([]float64, np*np)
	dus := make([]float64, np*np)
	D := e.Ops.D
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			var sr, ss float64
			for k := 0; k < np; k++ {
				sr += D[i][k] * u[k*np+j]
				ss += D[j][k] * u[i*np+k]
			}
			dur[i*np+j] = sr
			dus[i*np+j] = ss
		}
	}
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			dudx[idx] = e.Rx_x[i][j]*dur[idx] + e.Sx_x[i][j]*dus[idx]
			dudy[idx] = e.Rx_y[i][j]*dur[idx] + e.Sx_y[i][j]*dus[idx]
		}
	}
	return
}

// Gradient returns the physical-space derivative in direction dir in
// {0:x, 1:y} of a nodal field u (flat row-major np*np).
func (e *Element) Gradient(u []float64, dir int) []float64 {
	dudx, dudy := e.gradPhys(u)
	if dir == 0 {
		return dudx
	}
	return dudy
}

// DivY returns u/y at every node (cylindrical forms divide velocity-like
// quantities by the radial coordinate y).
func (e *Element) DivY(u []float64) []float64 {
	np := e.Np
	out := make([]float64, np*np)
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			y := e.Y[i][j]
			if y == 0 {
				femlib.Fatal("elem.DivY", "element %d: y=0 encountered off the declared axis", e.Id)
			}
			out[idx] = u[idx] / y
		}
	}
	return out
}

// MulY returns u*y at every node.
func (e *Element) MulY(u []float64) []float64 {
	np := e.Np
	out := make([]float64, np*np)
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			out[idx] = u[idx] * e.Y[i][j]
		}
	}
	return out
}

// HelmholtzOperator applies (lambda^2 M + K) to nodal field u in place of
// the element-local stiffness/mass action Two
// implementations are offered at build time (unrolled vs batched
// grad2/mxm); this is the unrolled form, grounded directly on the tensor-
// product operator description/§4.3.
func (e *Element) HelmholtzOperator(u []float64, lambdaSq, betaSq float64) []float64 {
	dudx, dudy := e.gradPhys(u)

	// weak-form stiffness contribution: integrate (grad w . grad u) over
	// the element by taking divergence of the weighted physical gradient,
	// then add the mass and Fourier-coupling terms.
	wdudx := make([]float64, e.Np*e.Np)
	wdudy := make([]float64, e.Np*e.Np)
	np := e.Np
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			wj := e.Ops.W[i] * e.Ops.W[j] * e.Jac[i][j]
			wdudx[idx] = wj * dudx[idx]
			wdudy[idx] = wj * dudy[idx]
		}
	}
	// divergence of the weighted gradient back onto the reference space
	out := make([]float64, np*np)
	D := e.Ops.D
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			var divr, divs float64
			for k := 0; k < np; k++ {
				divr += D[k][i] * (e.Rx_x[k][j]*wdudx[k*np+j] + e.Rx_y[k][j]*wdudy[k*np+j])
				divs += D[k][j] * (e.Sx_x[i][k]*wdudx[i*np+k] + e.Sx_y[i][k]*wdudy[i*np+k])
			}
			stiff := divr + divs
			mass := lambdaSq * e.Mass[i][j] * u[idx]
			fourier := betaSq * e.Mass[i][j] * u[idx]
			out[idx] = stiff + mass + fourier
		}
	}
	return out
}

// L2Norm returns sqrt(integral u^2 dA) over the element.
func (e *Element) L2Norm(u []float64) float64 {
	var s float64
	np := e.Np
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			s += e.Mass[i][j] * u[idx] * u[idx]
		}
	}
	return math.Sqrt(s)
}

// LinfNorm returns the maximum absolute nodal value over the element.
func (e *Element) LinfNorm(u []float64) float64 {
	var m float64
	for _, v := range u {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// H1Norm returns sqrt(integral (u^2 + |grad u|^2) dA) over the element.
func (e *Element) H1Norm(u []float64) float64 {
	dudx, dudy := e.gradPhys(u)
	var s float64
	np := e.Np
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			idx := i*np + j
			wj := e.Mass[i][j]
			s += wj * (u[idx]*u[idx] + dudx[idx]*dudx[idx] + dudy[idx]*dudy[idx])
		}
	}
	return math.Sqrt(s)
}

// Integral returns integral u dA over the element.
func (e *Element) Integral(u []float64) float64 {
	var s float64
	np := e.Np
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			s += e.Mass[i][j] * u[i*np+j]
		}
	}
	return s
}

// Probe evaluates a nodal field u at an arbitrary point (r,s) in [-1,1]^2.
// GetInterp's cache only maps between two fixed GLL node sets, so it
// cannot serve an arbitrary (r,s) pair; the tensor-product Lagrange basis
// is evaluated directly instead.
func (e *Element) Probe(u []float64, r, s float64) float64 {
	return e.lagrangeProbe(u, r, s)
}

// lagrangeProbe performs the tensor-product Lagrange evaluation directly
// (bypassing the cached single-point Interp, which cannot be keyed on an
// arbitrary (r,s) pair).
func (e *Element) lagrangeProbe(u []float64, r, s float64) float64 {
	np := e.Np
	z := e.Ops.Z
	lr := lagrangeBasis(z, r)
	ls := lagrangeBasis(z, s)
	var val float64
	for i := 0; i < np; i++ {
		for j := 0; j < np; j++ {
			val += lr[i] * ls[j] * u[i*np+j]
		}
	}
	return val
}

func lagrangeBasis(z []float64, x float64) []float64 {
	n := len(z)
	l := make([]float64, n)
	for i := 0; i < n; i++ {
		li := 1.0
		for k := 0; k < n; k++ {
			if k != i {
				li *= (x - z[k]) / (z[i] - z[k])
			}
		}
		l[i] = li
	}
	return l
}

// ScatterToGlobal adds this element's boundary-node contributions into a
// global vector using the supplied boundary->global index table (btog for
// this element), without any Schur-complement pre-multiplication -- used
// for the global RHS scatter in ellipt's MatrixSys.Solve. Negative
// indices are skipped.
func (e *Element) ScatterToGlobal(local []float64, btogElem []int, global []float64) {
	for k, g := range btogElem {
		if g < 0 {
			continue
		}
		global[g] += local[k]
	}
}

// ScatterWithSchur adds this element's Schur-complement-premultiplied
// boundary forcing (hbi * f_int) into the global RHS.
func (e *Element) ScatterWithSchur(hbi [][]float64, fInt []float64, btogElem []int, global []float64) {
	nb := len(btogElem)
	for k := 0; k < nb; k++ {
		g := btogElem[k]
		if g < 0 {
			continue
		}
		var s float64
		for m, fv := range fInt {
			s += hbi[k][m] * fv
		}
		global[g] += s
	}
}
