// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ellipt

// Solve implements the Field::solve contract:
//
//	(K + lambda^2 M) u = -M f - H g + <h, w>
//
// f holds the RHS forcing, per element, already multiplied by the
// elemental mass (destroyed by this call, as in the original contract);
// essentialBoundary holds the lifted essential-BC values at every boundary
// node, in the ascending tensor-product order (elem BoundaryNodeOrder)
// matching ElemBoundaryGlobals; naturalFlux holds the
// already-quadrature-weighted natural/mixed boundary contributions <h, w>
// in the same order, or nil. The result is written into solution, one
// np*np array per element, addressed the same way f is.
func (ms *MatrixSys) Solve(f [][]float64, essentialBoundary [][]float64, naturalFlux [][]float64) (solution [][]float64, iters int, converged bool) {
	nsolve := ms.Map.Nsolve
	rhs := make([]float64, nsolve)
	fInt := make([][]float64, len(ms.Elems))

	for ei, e := range ms.Elems {
		boundaryIdx, interiorIdx := boundaryInteriorSplit(e)
		np := e.Np

		// constrain: negate the forcing (already mass-weighted by the
		// caller), then subtract the lifted essential-BC Helmholtz
		// contribution.
		g := make([]float64, np*np)
		if essentialBoundary != nil {
			for a, idx := range boundaryIdx {
				g[idx] = essentialBoundary[ei][a]
			}
		}
		hg := e.HelmholtzOperator(g, ms.LambdaSq, ms.BetaSq)

		forcing := make([]float64, np*np)
		for i := range forcing {
			forcing[i] = -f[ei][i] - hg[i]
		}

		fb := make([]float64, len(boundaryIdx))
		for a, idx := range boundaryIdx {
			fb[a] = forcing[idx]
		}
		fi := make([]float64, len(interiorIdx))
		for a, idx := range interiorIdx {
			fi[a] = forcing[idx]
		}
		fInt[ei] = fi

		// buildRHS: Schur-premultiply and scatter into the global RHS,
		// then add natural/mixed boundary flux contributions.
		// Essential globals (>= nsolve) are outside rhs and are skipped; the
		// interior term added is -Hbi Hii^-1 f_int.
		globs := make([]int, len(ms.ElemBoundaryGlobals[ei]))
		for a, g := range ms.ElemBoundaryGlobals[ei] {
			if g >= nsolve {
				g = -1
			}
			globs[a] = g
		}
		if len(interiorIdx) > 0 && ms.Factors[ei] != nil {
			y := append([]float64(nil), fi...)
			forwardBack(ms.Factors[ei].HiiL, y, len(y))
			for k := range y {
				y[k] = -y[k]
			}
			e.ScatterWithSchur(ms.Hbi[ei], y, globs, rhs)
		}
		e.ScatterToGlobal(fb, globs, rhs)
		if naturalFlux != nil {
			e.ScatterToGlobal(naturalFlux[ei], globs, rhs)
		}
	}

	var uSolve []float64
	switch ms.Method {
	case Direct:
		uSolve = append([]float64(nil), rhs...)
		ms.H.Solve(uSolve)
	case JACPCG:
		x0 := make([]float64, nsolve)
		uSolve, iters, converged = JacobiPCG(ms.Apply, rhs, x0, ms.PC, ms.TolRel, ms.StepMax)
	}

	// recover interior nodes via Schur complement, scatter essential BCs
	solution = make([][]float64, len(ms.Elems))
	for ei, e := range ms.Elems {
		boundaryIdx, interiorIdx := boundaryInteriorSplit(e)
		np := e.Np
		u := make([]float64, np*np)

		globs := ms.ElemBoundaryGlobals[ei]
		uBoundary := make([]float64, len(boundaryIdx))
		for a, idx := range boundaryIdx {
			g := globs[a]
			if g >= 0 && g < nsolve {
				uBoundary[a] = uSolve[g]
				u[idx] = uSolve[g]
			} else if essentialBoundary != nil {
				u[idx] = essentialBoundary[ei][a]
			}
		}

		if len(interiorIdx) > 0 && ms.Factors[ei] != nil {
			uInt := ms.Factors[ei].RecoverInterior(fInt[ei], uBoundary, ms.Hib[ei])
			for a, idx := range interiorIdx {
				u[idx] = uInt[a]
			}
		}
		solution[ei] = u
	}
	return solution, iters, converged
}

func transpose2(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return m
	}
	rows, cols := len(m), len(m[0])
	t := make([][]float64, cols)
	for i := range t {
		t[i] = make([]float64, rows)
		for j := 0; j < rows; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}
