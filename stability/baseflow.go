// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stability implements the global linear-stability driver: an
// IRAM (ARPACK-style) eigensolver driving a linearised
// Navier-Stokes time-stepper as its implicit operator, with optional
// real shift-invert via BiCGStab/GMRES inner solves, plus Lagrange and
// Fourier interpolation of a time-periodic base flow.
//
// Grounded on original_source/dog/{drive-rsi.cpp,analysis.cpp} for the
// Arnoldi bookkeeping and shift-invert dispatch structure; no
// ARPACK/eigensolver binding is reachable anywhere in the retrieved Go
// pack, so the small dense Hessenberg eigenproblem at the heart of IRAM
// is solved with gonum.org/v1/gonum/mat's general eigendecomposition
// (grounded on the gonum files present under _examples/other_examples),
// while the (large, N-dimensional) Krylov bookkeeping itself is
// hand-rolled -- justified stdlib-class kernel, see DESIGN.md.
package stability

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/lab272/semtex-go/femlib"
)

// BaseFlowInterp evaluates the stored base flow at an arbitrary phase
// within the period T, selecting between Lagrange and Fourier temporal
// interpolation via the runtime LAGRANGE_INT token.
type BaseFlowInterp interface {
	// At returns the interpolated base-flow snapshot (flattened nodal
	// values, one slice per field) at phase t in [0, T).
	At(t float64) [][]float64
	Period() float64
}

// LagrangeInterp interpolates between N_SLICE stored snapshots using
// piecewise Lagrange polynomials in time, matching the teacher's
// GLL-node Lagrange evaluation idiom (elem's lagrangeBasis) applied along
// the temporal axis instead of a spatial one.
type LagrangeInterp struct {
	Times     []float64   // length NSlice, within [0,T)
	Snapshots [][][]float64 // [slice][field][node]
	T         float64
	Order     int // number of neighbouring slices used per evaluation
}

func (l *LagrangeInterp) Period() float64 { return l.T }

// At evaluates the Lagrange interpolant at phase t using the Order
// nearest stored slices (wrapping periodically).
func (l *LagrangeInterp) At(t float64) [][]float64 {
	n := len(l.Times)
	if n == 0 {
		femlib.Fatal("stability.LagrangeInterp.At", "no stored base-flow slices")
	}
	phase := wrap(t, l.T)
	center := nearestSliceIndex(l.Times, phase)
	half := l.Order / 2
	idxs := make([]int, l.Order)
	for k := 0; k < l.Order; k++ {
		idxs[k] = ((center-half+k)%n + n) % n
	}

	nfields := len(l.Snapshots[0])
	out := make([][]float64, nfields)
	weights := lagrangeWeights(l.Times, idxs, phase, l.T)
	for fi := 0; fi < nfields; fi++ {
		npt := len(l.Snapshots[0][fi])
		acc := make([]float64, npt)
		for k, idx := range idxs {
			w := weights[k]
			snap := l.Snapshots[idx][fi]
			for i := 0; i < npt; i++ {
				acc[i] += w * snap[i]
			}
		}
		out[fi] = acc
	}
	return out
}

func wrap(t, period float64) float64 {
	if period <= 0 {
		return t
	}
	for t < 0 {
		t += period
	}
	for t >= period {
		t -= period
	}
	return t
}

func nearestSliceIndex(times []float64, phase float64) int {
	best, bestDist := 0, -1.0
	for i, tt := range times {
		d := phase - tt
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func lagrangeWeights(times []float64, idxs []int, phase, period float64) []float64 {
	w := make([]float64, len(idxs))
	for a, ia := range idxs {
		li := 1.0
		ta := periodicTime(times[ia], phase, period)
		for b, ib := range idxs {
			if a == b {
				continue
			}
			tb := periodicTime(times[ib], phase, period)
			li *= (phase - tb) / (ta - tb)
		}
		w[a] = li
	}
	return w
}

// periodicTime shifts a stored snapshot time by +-period so it lies in
// the same branch as phase, avoiding a spurious wrap discontinuity in
// the Lagrange interpolant near t=0/T.
func periodicTime(stored, phase, period float64) float64 {
	if period <= 0 {
		return stored
	}
	for stored-phase > period/2 {
		stored -= period
	}
	for phase-stored > period/2 {
		stored += period
	}
	return stored
}

// FourierInterp interpolates the base flow via its truncated Fourier
// series in time, coefficients precomputed once per node from the
// N_SLICE snapshots using the same gonum FFT (gonum.org/v1/gonum/dsp/fourier)
// that package xform uses for the spatial homogeneous direction.
type FourierInterp struct {
	T       float64
	Coeffs  [][][]complex128 // [field][node][harmonic], harmonic 0 is the mean
	NHarmon int
}

// NewFourierInterp builds a FourierInterp from NSlice uniformly-spaced
// snapshots spanning one period T, keeping the nharm lowest harmonics per
// node (nharm<=0 keeps all of them).
func NewFourierInterp(snapshots [][][]float64, period float64, nharm int) *FourierInterp {
	const routine = "stability.NewFourierInterp"
	nslice := len(snapshots)
	if nslice == 0 {
		femlib.Fatal(routine, "no base-flow snapshots supplied")
	}
	nfields := len(snapshots[0])
	fft := fourier.NewFFT(nslice)
	full := fft.Len()/2 + 1
	keep := nharm
	if keep <= 0 || keep > full {
		keep = full
	}

	coeffs := make([][][]complex128, nfields)
	for fi := 0; fi < nfields; fi++ {
		nnode := len(snapshots[0][fi])
		coeffs[fi] = make([][]complex128, nnode)
		series := make([]float64, nslice)
		for node := 0; node < nnode; node++ {
			for s := 0; s < nslice; s++ {
				series[s] = snapshots[s][fi][node]
			}
			spectrum := fft.Coefficients(nil, series)
			c := make([]complex128, keep)
			for h := 0; h < keep && h < len(spectrum); h++ {
				c[h] = spectrum[h] / complex(float64(nslice), 0)
				if h > 0 {
					c[h] *= 2
				}
			}
			coeffs[fi][node] = c
		}
	}
	return &FourierInterp{T: period, Coeffs: coeffs, NHarmon: keep}
}

func (f *FourierInterp) Period() float64 { return f.T }

// At reconstructs, per field and per node, real(sum_h coeffs[h] *
// exp(i*h*omega*phase)) from the stored harmonics.
func (f *FourierInterp) At(t float64) [][]float64 {
	phase := wrap(t, f.T)
	omega := 2 * math.Pi / f.T
	out := make([][]float64, len(f.Coeffs))
	for fi, perNode := range f.Coeffs {
		vals := make([]float64, len(perNode))
		for node, harmon := range perNode {
			var acc float64
			for h, c := range harmon {
				theta := float64(h) * omega * phase
				rot := complex(math.Cos(theta), math.Sin(theta))
				acc += real(c * rot)
			}
			vals[node] = acc
		}
		out[fi] = vals
	}
	return out
}
