// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stability

import (
	"math"

	"github.com/lab272/semtex-go/femlib"
)

// GMRES solves (A - sigma*I) y = x via restarted GMRES, the alternative
// inner solver for shift-invert mode.
func GMRES(applyShifted Operator, rhs []float64, tol float64, restart, maxCycles int) (y []float64, iters int, converged bool) {
	n := len(rhs)
	y = make([]float64, n)
	bNorm := normV(rhs)
	if bNorm == 0 {
		bNorm = 1
	}

	for cycle := 0; cycle < maxCycles; cycle++ {
		r := computeResidual(applyShifted, y, rhs)
		beta := normV(r)
		if beta/bNorm < tol {
			return y, iters, true
		}

		V := make([][]float64, restart+1)
		H := make([][]float64, restart+1)
		for i := range H {
			H[i] = make([]float64, restart)
		}
		V[0] = scaleCopy(r, 1/beta)

		g := make([]float64, restart+1)
		g[0] = beta
		cs := make([]float64, restart)
		sn := make([]float64, restart)

		m := restart
		for j := 0; j < restart; j++ {
			w := applyShifted(V[j])
			for i := 0; i <= j; i++ {
				H[i][j] = dotV(w, V[i])
				axpyV(w, -H[i][j], V[i])
			}
			H[j+1][j] = normV(w)
			if H[j+1][j] < 1e-300 {
				m = j + 1
				break
			}
			V[j+1] = scaleCopy(w, 1/H[j+1][j])

			for i := 0; i < j; i++ {
				h1, h2 := H[i][j], H[i+1][j]
				H[i][j] = cs[i]*h1 + sn[i]*h2
				H[i+1][j] = -sn[i]*h1 + cs[i]*h2
			}
			denom := math.Hypot(H[j][j], H[j+1][j])
			if denom == 0 {
				cs[j], sn[j] = 1, 0
			} else {
				cs[j] = H[j][j] / denom
				sn[j] = H[j+1][j] / denom
			}
			H[j][j] = cs[j]*H[j][j] + sn[j]*H[j+1][j]
			H[j+1][j] = 0
			g[j+1] = -sn[j] * g[j]
			g[j] = cs[j] * g[j]

			iters++
			if math.Abs(g[j+1])/bNorm < tol {
				m = j + 1
				break
			}
		}

		z := backSolveUpperHessenberg(H, g, m)
		for j := 0; j < m; j++ {
			axpyV(y, z[j], V[j])
		}
	}

	r := computeResidual(applyShifted, y, rhs)
	if normV(r)/bNorm < tol {
		return y, iters, true
	}
	femlib.Warn("stability.GMRES", "did not converge in %d cycles of restart %d", maxCycles, restart)
	return y, iters, false
}

func computeResidual(applyShifted Operator, y, rhs []float64) []float64 {
	ay := applyShifted(y)
	r := make([]float64, len(rhs))
	for i := range r {
		r[i] = rhs[i] - ay[i]
	}
	return r
}

func scaleCopy(a []float64, s float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = v * s
	}
	return out
}

// backSolveUpperHessenberg solves the m x m upper-triangular system left
// by Givens-rotating H to triangular form during the Arnoldi build above.
func backSolveUpperHessenberg(H [][]float64, g []float64, m int) []float64 {
	z := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		s := g[i]
		for j := i + 1; j < m; j++ {
			s -= H[i][j] * z[j]
		}
		if H[i][i] == 0 {
			z[i] = 0
			continue
		}
		z[i] = s / H[i][i]
	}
	return z
}
