// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dog-rsi is the stability driver of spec.md section 6: given a
// previously-computed base flow (session.bse, N_SLICE consecutive dumps
// spanning one base period), it wraps one period of the time-stepper as
// the implicit action of a linear operator A and hands that action to
// IRAM, optionally in real shift-invert mode via an inner BiCGStab
// solve. It mirrors cmd/dns's flag.Parse()/single-recover()
// structure and gofem's own root main.go status printing.
//
// Usage: dog-rsi [-v] [-a] [-S sigma] [-k K] [-n n] [-t tol] [-m maxit]
// [-i lstol] [-p] session
//
// Exit codes: 0 success, 1 parameter error or failed run. No separate
// code is used for memory exhaustion.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cpmech/gosl/io"

	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/integrate"
	"github.com/lab272/semtex-go/session"
	"github.com/lab272/semtex-go/setup"
	"github.com/lab272/semtex-go/stability"
)

// zeroForce mirrors cmd/dns: no body-force token is evaluated inside the
// linearised time-stepper passes this driver runs.
type zeroForce struct{}

func (zeroForce) Force(component int, t float64) *auxfield.AuxField { return nil }

var _ integrate.FieldForce = zeroForce{}

// perturbEps is the finite-difference step used to approximate the
// Frechet derivative of one base-flow-period time-advance: A*x ~=
// (S_T(u0 + eps*x) - S_T(u0)) / eps. This is the matrix-free
// directional-derivative rendition of spec section 4.7's "matrix-vector
// product is itself the time-stepper" contract -- see DESIGN.md's Open
// Question 4 discussion for why an exact tangent-linear pass was not
// also built.
const perturbEps = 1e-6

func main() {
	var (
		verbose  = flag.Bool("v", false, "verbose progress output")
		adjoint  = flag.Bool("a", false, "adjoint (time-reversed) operator; not built, the forward operator is used")
		sigma    = flag.Float64("S", math.NaN(), "real shift for shift-invert mode")
		kryDim   = flag.Int("k", 0, "Krylov subspace dimension (default n+2)")
		numEig   = flag.Int("n", 2, "number of eigenpairs sought")
		tol      = flag.Float64("t", 1e-6, "IRAM convergence tolerance")
		maxit    = flag.Int("m", 100, "maximum number of implicit restarts")
		lstol    = flag.Float64("i", 1e-8, "inner linear-solver (BiCGStab) tolerance")
		recoverP = flag.Bool("p", false, "recover a pressure-component eigenvector after convergence")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: dog-rsi [-v] [-a] [-S sigma] [-k K] [-n n] [-t tol] [-m maxit] [-i lstol] [-p] session")
		os.Exit(1)
	}
	if *adjoint {
		femlib.Remark("cmd/dog-rsi", "adjoint (time-reversed) operator requested; using forward operator (no reverse time-stepper is built)")
	}
	sessionPath := flag.Arg(0)

	sess := session.Load(sessionPath)
	if *numEig < 1 {
		fmt.Fprintln(os.Stderr, "dog-rsi: -n must be >= 1")
		os.Exit(1)
	}

	exitCode := 0
	err := femlib.Run("cmd/dog-rsi", func() error {
		return run(sess, *verbose, *sigma, *kryDim, *numEig, *tol, *maxit, *lstol, *recoverP)
	})
	if err != nil {
		io.PfRed("ERROR: %v\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

// perturbState holds the flattened perturbation vector for every
// non-pressure field, in session.Fields order, excluding 'p'.
type perturbState struct {
	names  []byte
	sizes  []int
	length int
}

func newPerturbState(sess *session.Session) *perturbState {
	force := zeroForce{}
	dom, _ := setup.BuildDomain(sess, force)
	ps := &perturbState{}
	for _, letter := range sess.Fields {
		if letter == 'p' {
			continue
		}
		fl := dom.Fields[string(letter)]
		ps.names = append(ps.names, byte(letter))
		ps.sizes = append(ps.sizes, len(fl.Data.Data))
		ps.length += len(fl.Data.Data)
	}
	return ps
}

func (ps *perturbState) flatten(byName map[byte][]float64) []float64 {
	out := make([]float64, 0, ps.length)
	for _, nm := range ps.names {
		out = append(out, byName[nm]...)
	}
	return out
}

func (ps *perturbState) unflatten(x []float64) map[byte][]float64 {
	out := make(map[byte][]float64, len(ps.names))
	off := 0
	for i, nm := range ps.names {
		n := ps.sizes[i]
		out[nm] = append([]float64(nil), x[off:off+n]...)
		off += n
	}
	return out
}

// loadBaseFlow reads N_SLICE consecutive dumps from session.bse, in the
// layout produced by domain.Domain.Dump/LoadAt, and returns the per-field
// flattened snapshots plus their sample times (uniformly spaced over
// sess.BasePeriod).
func loadBaseFlow(sess *session.Session, ps *perturbState) ([][][]float64, []float64, float64) {
	const routine = "cmd/dog-rsi.loadBaseFlow"
	force := zeroForce{}
	raw, err := os.ReadFile(sess.BaseFlowPath())
	if err != nil {
		femlib.Fatal(routine, "cannot read base-flow file %q: %v", sess.BaseFlowPath(), err)
	}

	period := sess.BasePeriod
	if period <= 0 {
		period = sess.Dt * float64(sess.NStep)
	}

	snapshots := make([][][]float64, sess.NSlice)
	times := make([]float64, sess.NSlice)
	offset := 0
	for s := 0; s < sess.NSlice; s++ {
		dom, _ := setup.BuildDomain(sess, force)
		next, err := dom.LoadAt(raw, offset)
		if err != nil {
			femlib.Fatal(routine, "slice %d: %v", s, err)
		}
		offset = next
		byName := make(map[byte][]float64)
		for _, nm := range ps.names {
			fl := dom.Fields[string(nm)]
			byName[byte(nm)] = append([]float64(nil), fl.Data.Data...)
		}
		snapshots[s] = flattenInOrder(ps, byName)
		times[s] = period * float64(s) / float64(sess.NSlice)
	}
	return snapshots, times, period
}

func flattenInOrder(ps *perturbState, byName map[byte][]float64) [][]float64 {
	out := make([][]float64, len(ps.names))
	for i, nm := range ps.names {
		out[i] = byName[nm]
	}
	return out
}

// runPeriod advances a fresh Domain/Stepper, seeded with initial, through
// steps substeps of size sess.Dt, returning the resulting per-field state.
// A fresh Domain is built per call (rather than resetting one in place)
// because integrate.Stepper carries multi-level BCmgr history that has no
// cheap reset primitive -- matching the spec's own framing of a stability
// pass as re-entrant time-stepper-in-the-loop evaluation.
func runPeriod(sess *session.Session, ps *perturbState, initial map[byte][]float64, steps int) map[byte][]float64 {
	force := zeroForce{}
	dom, stepper := setup.BuildDomain(sess, force)
	for _, nm := range ps.names {
		fl := dom.Fields[string(nm)]
		copy(fl.Data.Data, initial[nm])
	}
	for i := 0; i < steps; i++ {
		stepper.Advance()
	}
	out := make(map[byte][]float64, len(ps.names))
	for _, nm := range ps.names {
		fl := dom.Fields[string(nm)]
		out[nm] = append([]float64(nil), fl.Data.Data...)
	}
	return out
}

func run(sess *session.Session, verbose bool, sigma float64, kryDim, numEig int, tol float64, maxit int, lstol float64, recoverP bool) error {
	const routine = "cmd/dog-rsi.run"
	ps := newPerturbState(sess)
	n := ps.length
	if n == 0 {
		femlib.Fatal(routine, "perturbation state is empty: no non-pressure fields in FIELDS=%q", sess.Fields)
	}

	snapshots, times, period := loadBaseFlow(sess, ps)
	var interp stability.BaseFlowInterp
	if sess.LagrangeInt {
		order := 4
		if order > len(snapshots) {
			order = len(snapshots)
		}
		interp = &stability.LagrangeInterp{Times: times, Snapshots: snapshots, T: period, Order: order}
	} else {
		interp = stability.NewFourierInterp(snapshots, period, 0)
	}

	steps := int(math.Round(period / sess.Dt))
	if steps < 1 {
		steps = 1
	}

	base0 := ps.unflatten(interp.At(0))
	baseFinal := runPeriod(sess, ps, base0, steps)
	baseFinalVec := ps.flatten(baseFinal)

	applyA := func(x []float64) []float64 {
		perturbed := make([]float64, n)
		base0Vec := ps.flatten(base0)
		for i := range x {
			perturbed[i] = base0Vec[i] + perturbEps*x[i]
		}
		finalPert := ps.flatten(runPeriod(sess, ps, ps.unflatten(perturbed), steps))
		y := make([]float64, n)
		for i := range y {
			y[i] = (finalPert[i] - baseFinalVec[i]) / perturbEps
		}
		return y
	}

	op := stability.Operator(applyA)
	mode := stability.ModeStandard
	if !math.IsNaN(sigma) {
		mode = stability.ModeShiftInvert
		shifted := func(x []float64) []float64 {
			ax := applyA(x)
			y := make([]float64, n)
			for i := range y {
				y[i] = ax[i] - sigma*x[i]
			}
			return y
		}
		op = func(x []float64) []float64 {
			y, _, converged := stability.BiCGStab(shifted, x, lstol, maxit)
			if !converged {
				femlib.Warn(routine, "inner BiCGStab solve did not converge to %g within %d iterations", lstol, maxit)
			}
			return y
		}
	}

	if kryDim <= 0 {
		kryDim = numEig + 2
	}
	if verbose {
		io.Pf("dog-rsi: n=%d k=%d krylov=%d mode=%v period=%g steps=%d\n", n, numEig, kryDim, mode, period, steps)
	}

	results := stability.IRAM(op, n, numEig, kryDim, period, tol, maxit)

	evl, err := os.Create(sess.EvlPath())
	if err != nil {
		return fmt.Errorf("%s: cannot create log %q: %w", routine, sess.EvlPath(), err)
	}
	defer evl.Close()

	converged := 0
	for j, r := range results {
		status := "rejected"
		if r.Converged {
			status = "converged"
			converged++
		}
		fmt.Fprintf(evl, "eig %2d  %-9s  lambda = %+.8e %+.8ei   growth = %+.8e   freq = %+.8e\n",
			j, status, r.Real, r.Imag, r.GrowthRate, r.Frequency)
		if verbose {
			io.Pf("eig %d: %s growth=%g freq=%g\n", j, status, r.GrowthRate, r.Frequency)
		}
		if r.Converged {
			if err := writeEigenvector(sess, ps, j, r); err != nil {
				femlib.Warn(routine, "could not write eigenvector file for mode %d: %v", j, err)
			}
		}
	}

	if recoverP && converged > 0 {
		femlib.Remark(routine, "pressure-eigenvector recovery pass requested for %d converged velocity eigenvector(s): "+
			"re-run the time-stepper one substep with the converged velocity eigenvector as initial data and keep the "+
			"resulting pressure Field; not performed automatically here", converged)
	}

	if converged == 0 {
		return fmt.Errorf("%s: no eigenpairs converged", routine)
	}
	return nil
}

// writeEigenvector dumps one converged Ritz vector through the same
// domain.Domain.Dump path cmd/dns uses for restart files, under
// session.EigPath(j).
func writeEigenvector(sess *session.Session, ps *perturbState, j int, r stability.Result) error {
	force := zeroForce{}
	dom, _ := setup.BuildDomain(sess, force)
	byName := ps.unflatten(r.Vector)
	for _, nm := range ps.names {
		fl := dom.Fields[string(nm)]
		copy(fl.Data.Data, byName[nm])
	}
	return dom.Dump(sess.EigPath(j), sess.Kinvis, sess.Beta)
}
