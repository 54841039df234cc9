// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stability

import "github.com/lab272/semtex-go/femlib"

// BiCGStab solves (A - sigma*I) y = x for the shift-invert mode, where
// applyShifted implements y <- (A - sigma*I) y via the time-stepper plus
// axpy -- realised here as a caller-supplied linear operator closing
// over sigma.
func BiCGStab(applyShifted Operator, rhs []float64, tol float64, maxIter int) (y []float64, iters int, converged bool) {
	n := len(rhs)
	y = make([]float64, n)
	r := append([]float64(nil), rhs...)
	rhat := append([]float64(nil), r...)
	rho, alpha, omega := 1.0, 1.0, 1.0
	v := make([]float64, n)
	p := make([]float64, n)

	bNorm := normV(rhs)
	if bNorm == 0 {
		bNorm = 1
	}

	for k := 0; k < maxIter; k++ {
		rhoNew := dotV(rhat, r)
		if rhoNew == 0 {
			femlib.Warn("stability.BiCGStab", "breakdown: rho == 0 at iteration %d", k)
			return y, k, false
		}
		if k == 0 {
			copy(p, r)
		} else {
			beta := (rhoNew / rho) * (alpha / omega)
			for i := range p {
				p[i] = r[i] + beta*(p[i]-omega*v[i])
			}
		}
		v = applyShifted(p)
		alpha = rhoNew / dotV(rhat, v)

		s := make([]float64, n)
		for i := range s {
			s[i] = r[i] - alpha*v[i]
		}
		if normV(s)/bNorm < tol {
			axpyV(y, alpha, p)
			return y, k + 1, true
		}

		t := applyShifted(s)
		tt := dotV(t, t)
		if tt == 0 {
			femlib.Warn("stability.BiCGStab", "breakdown: t.t == 0 at iteration %d", k)
			return y, k, false
		}
		omega = dotV(t, s) / tt

		axpyV(y, alpha, p)
		axpyV(y, omega, s)

		for i := range r {
			r[i] = s[i] - omega*t[i]
		}
		if normV(r)/bNorm < tol {
			return y, k + 1, true
		}
		rho = rhoNew
		iters = k + 1
	}
	return y, iters, false
}
