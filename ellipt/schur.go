// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ellipt

import (
	"math"

	"github.com/lab272/semtex-go/femlib"
)

// ElementFactor holds one element's static-condensation factors: the
// Cholesky factor of the interior-interior block Hii, and the
// boundary-interior coupling Hbi used both to eliminate interior degrees
// of freedom from the global system and to
// recover them afterwards (`H_ii^-1(f_int - H_ib u_b)`).
type ElementFactor struct {
	Nb, Ni int
	HiiL   [][]float64 // dense Cholesky factor of Hii (ni x ni, lower triangular)
	Hbi    [][]float64 // nb x ni
}

// FactorElement builds the dense Schur-complement factors for one
// element given its full local Helmholtz matrix partitioned into
// boundary (first nb rows/cols) and interior (remaining ni) blocks.
// hbb is returned, already reduced by Hbi Hii^-1 Hib, for the caller to
// accumulate into the global banded system.
func FactorElement(hbb, hbi, hib, hii [][]float64, nb, ni int) (reducedHbb [][]float64, ef *ElementFactor) {
	const routine = "ellipt.FactorElement"
	L := denseCholesky(hii, ni)
	if L == nil {
		femlib.Fatal(routine, "element interior block is not positive definite")
	}
	// solve L L^T X = hib (ni x nb), column by column, to get Hii^-1 Hib
	x := make([][]float64, ni)
	for i := range x {
		x[i] = make([]float64, nb)
	}
	col := make([]float64, ni)
	for c := 0; c < nb; c++ {
		for i := 0; i < ni; i++ {
			col[i] = hib[i][c]
		}
		forwardBack(L, col, ni)
		for i := 0; i < ni; i++ {
			x[i][c] = col[i]
		}
	}
	// reducedHbb = hbb - hbi * x
	red := make([][]float64, nb)
	for i := 0; i < nb; i++ {
		red[i] = make([]float64, nb)
		copy(red[i], hbb[i])
		for j := 0; j < nb; j++ {
			var s float64
			for k := 0; k < ni; k++ {
				s += hbi[i][k] * x[k][j]
			}
			red[i][j] -= s
		}
	}
	return red, &ElementFactor{Nb: nb, Ni: ni, HiiL: L, Hbi: hbi}
}

// RecoverInterior computes u_int = Hii^-1 (f_int - Hib u_b).
func (ef *ElementFactor) RecoverInterior(fInt []float64, uBoundary []float64, hib [][]float64) []float64 {
	rhs := make([]float64, ef.Ni)
	copy(rhs, fInt)
	for i := 0; i < ef.Ni; i++ {
		var s float64
		for j := 0; j < ef.Nb; j++ {
			s += hib[i][j] * uBoundary[j]
		}
		rhs[i] -= s
	}
	forwardBack(ef.HiiL, rhs, ef.Ni)
	return rhs
}

func denseCholesky(a [][]float64, n int) [][]float64 {
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		s := a[j][j]
		for k := 0; k < j; k++ {
			s -= l[j][k] * l[j][k]
		}
		if s <= 0 {
			return nil
		}
		ljj := math.Sqrt(s)
		l[j][j] = ljj
		for i := j + 1; i < n; i++ {
			s2 := a[i][j]
			for k := 0; k < j; k++ {
				s2 -= l[i][k] * l[j][k]
			}
			l[i][j] = s2 / ljj
		}
	}
	return l
}

func forwardBack(l [][]float64, rhs []float64, n int) {
	for i := 0; i < n; i++ {
		s := rhs[i]
		for k := 0; k < i; k++ {
			s -= l[i][k] * rhs[k]
		}
		rhs[i] = s / l[i][i]
	}
	for i := n - 1; i >= 0; i-- {
		s := rhs[i]
		for k := i + 1; k < n; k++ {
			s -= l[k][i] * rhs[k]
		}
		rhs[i] = s / l[i][i]
	}
}
