// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ellipt implements the central elliptic (Helmholtz) kernel:
// per-(field, Fourier-mode) MatrixSys/ModalMatrixSys holding
// either a banded Cholesky factor with per-element Schur complements, or
// a Jacobi preconditioner for JACPCG, both driving Field.Solve.
//
// No LAPACK banded-Cholesky binding (dpbtrf/dpbtrs) is reachable from the
// retrieved pack, so the banded factorisation/solve is a hand-rolled,
// justified stdlib-class numerical kernel -- see DESIGN.md.
package ellipt

import (
	"math"

	"github.com/lab272/semtex-go/femlib"
)

// Banded stores a symmetric positive-definite band matrix H in LAPACK
// "lower band storage" convention: H[k][j] holds element (j+k, j) for
// k=0..nband-1 (k=0 is the diagonal). After Factor, the same storage
// holds the Cholesky factor L such that H = L L^T.
type Banded struct {
	Nband  int // bandwidth (1 + half-bandwidth); Nband=1 means diagonal
	Nsolve int
	Data   [][]float64 // [Nband][Nsolve]
}

// NewBanded allocates a zeroed band matrix of the given bandwidth and
// solve-set size.
func NewBanded(nband, nsolve int) *Banded {
	data := make([][]float64, nband)
	for k := range data {
		data[k] = make([]float64, nsolve)
	}
	return &Banded{Nband: nband, Nsolve: nsolve, Data: data}
}

// Add accumulates value into H[i][j] (i>=j), respecting band storage;
// entries outside the band are a configuration error (the assembly map's
// bandwidth must bound every element's scatter pattern).
func (b *Banded) Add(i, j int, value float64) {
	if i < j {
		i, j = j, i
	}
	k := i - j
	if k >= b.Nband {
		femlib.Fatal("ellipt.Banded.Add", "entry (%d,%d) outside bandwidth %d", i, j, b.Nband)
	}
	b.Data[k][j] += value
}

// Factor performs in-place banded Cholesky factorisation (the banded
// analogue of LAPACK's dpbtrf, lower-band storage).
func (b *Banded) Factor() {
	const routine = "ellipt.Banded.Factor"
	n := b.Nsolve
	nb := b.Nband
	for j := 0; j < n; j++ {
		lo := j - nb + 1
		if lo < 0 {
			lo = 0
		}
		ajj := b.Data[0][j]
		for i := lo; i < j; i++ {
			l := b.Data[j-i][i]
			ajj -= l * l
		}
		if ajj <= 0 {
			femlib.Fatal(routine, "matrix not positive definite at pivot %d (value %g)", j, ajj)
		}
		ljj := math.Sqrt(ajj)
		b.Data[0][j] = ljj

		hi := j + nb - 1
		if hi >= n {
			hi = n - 1
		}
		for r := j + 1; r <= hi; r++ {
			arj := b.Data[r-j][j]
			lo2 := r - nb + 1
			if lo2 < lo {
				lo2 = lo
			}
			if lo2 < 0 {
				lo2 = 0
			}
			for i := lo2; i < j; i++ {
				arj -= b.Data[r-i][i] * b.Data[j-i][i]
			}
			b.Data[r-j][j] = arj / ljj
		}
	}
}

// Solve performs forward/back substitution (LAPACK dpbtrs equivalent)
// against the factor produced by Factor, overwriting rhs with the
// solution.
func (b *Banded) Solve(rhs []float64) {
	n := b.Nsolve
	nb := b.Nband
	// forward substitution: L y = rhs
	for j := 0; j < n; j++ {
		rhs[j] /= b.Data[0][j]
		for i := j + 1; i < n && i-j < nb; i++ {
			rhs[i] -= b.Data[i-j][j] * rhs[j]
		}
	}
	// back substitution: L^T x = y
	for j := n - 1; j >= 0; j-- {
		var s float64
		for i := j + 1; i < n && i-j < nb; i++ {
			s += b.Data[i-j][j] * rhs[i]
		}
		rhs[j] = (rhs[j] - s) / b.Data[0][j]
	}
}

// Diagonal returns the (unfactored) diagonal entries, used to build the
// JACPCG preconditioner before Factor is called.
func (b *Banded) Diagonal() []float64 {
	out := make([]float64, b.Nsolve)
	copy(out, b.Data[0])
	return out
}
