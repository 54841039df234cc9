// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integrate

import (
	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/bc"
	"github.com/lab272/semtex-go/domain"
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/field"
	"github.com/lab272/semtex-go/session"
)

// Stepper drives one KIO91 stiffly-stable step across every Field of a
// Domain. It owns the BCmgr (one per open-BC-bearing
// Field) and the precomputed StiffCoeffs for the configured order.
type Stepper struct {
	Sess   *session.Session
	Dom    *domain.Domain
	Coeffs *StiffCoeffs

	// Tokens is the process-wide named-value table built once from Sess
	// (spec section 5's "Femlib token state"); Advance takes an immutable
	// Snapshot from it at the top of every step rather than re-reading
	// Sess fields throughout the substep sequence (section 9 design note).
	Tokens *femlib.Tokens

	BCmgrs map[string]*bc.BCmgr // keyed by field name; only open-BC fields need one
	Force  FieldForce

	stepToken int64
}

// NewStepper builds a Stepper for the given session/domain, with a fresh
// StiffCoeffs at the session's configured order.
func NewStepper(s *session.Session, d *domain.Domain, force FieldForce) *Stepper {
	return &Stepper{
		Sess:   s,
		Dom:    d,
		Coeffs: NewStiffCoeffs(s.NTime),
		Tokens: s.Tokens(),
		BCmgrs: make(map[string]*bc.BCmgr),
		Force:  force,
	}
}

// Advance performs one complete step: nonlinear, pressure, viscous, and
// (if present) scalar substeps, enforcing the BC ordering contract
// (pressure BCs, then velocity, then scalar).
func (st *Stepper) Advance() {
	const routine = "integrate.Stepper.Advance"
	st.stepToken++
	for _, mgr := range st.BCmgrs {
		mgr.BeginStep(st.stepToken)
	}

	params := st.Tokens.Snapshot()
	t := st.Dom.Time

	u := st.requireField("u")
	v := st.requireField("v")
	w := st.optionalField("w")
	p := st.requireField("p")

	vel := Velocity{U: u.Data, V: v.Data}
	if w != nil {
		vel.W = w.Data
	}

	// 1. Nonlinear: N(u) + f per component.
	Nu, Nv, Nw := Nonlinear(st.Sess, vel, st.Force, t, st.stepToken)

	// Pressure BCs must be evaluated before velocity/scalar BCs (the
	// BC re-evaluation ordering contract); BeginStep above reset the
	// per-field pressureEvaluatedThisStep flag, and EvaluateCNBCp (called
	// from within p's BoundarySys Condition.Evaluate during solvePressure)
	// is what flips it back, triggering the cached open-BC quantities
	// consumed later by the velocity/scalar Helmholtz solves.
	if mgr, ok := st.BCmgrs["p"]; ok {
		bsys := p.Field.Bsyss[0]
		elems := p.Field.Elems
		unLine := boundaryLineNormalVelocity(bsys, elems, u.Data.Plane(0), v.Data.Plane(0))
		nplusf := boundaryLineNormalVelocity(bsys, elems, Nu.Plane(0), Nv.Plane(0))
		curlCurlLine := boundaryLineCurlCurlNormal(bsys, elems, u.Data, v.Data)
		mgr.MaintainFourier(unLine, nplusf, curlCurlLine, params.Kinvis)
	}

	// 2. Pressure Poisson: enforce div(extrapolated N(u))/dt as the RHS,
	// with the computed high-order Neumann BC delivered through p's
	// BoundarySys/BCmgr machinery (wired at Domain-setup time).
	st.solvePressure(p.Field, Nu, Nv, t)

	// 3. Viscous: Helmholtz solve per velocity component.
	lambda2 := st.Coeffs.Lambda2(params.Kinvis, params.Dt)
	st.solveViscous(u.Field, Nu, p.Data, lambda2, t)
	st.solveViscous(v.Field, Nv, p.Data, lambda2, t)
	if w != nil && Nw != nil {
		st.solveViscous(w.Field, Nw, p.Data, lambda2, t)
	}

	// 4. Scalar, if present, with diffusivity nu/Pr.
	if c := st.optionalField("c"); c != nil {
		lambda2c := st.Coeffs.Lambda2(params.Kinvis/params.Prandtl, params.Dt)
		Nc := advect(vel, c.Data, params.Cylindrical)
		st.solveViscous(c.Field, Nc, nil, lambda2c, t)
	}

	st.Dom.Step++
	st.Dom.Time += params.Dt
	femlib.Remark(routine, "step %d complete, t=%g", st.Dom.Step, st.Dom.Time)
}

// solvePressure assembles the pressure Poisson RHS (div(N(u))/dt,
// mass-weighted per element), lifts p's essential/natural boundary data at
// time t (the computed high-order Neumann BC, KIO91, among them), and
// dispatches through p's ModalMatrixSys.
func (st *Stepper) solvePressure(p *field.Field, Nu, Nv *auxfield.AuxField, t float64) {
	rhs := buildDivergenceRHS(p, Nu, Nv, st.Sess.Dt)
	essential, natural := p.EvaluateBoundaries(t, st.BCmgrs["p"])
	p.Solve(rhs, essential, natural)
}

// solveViscous assembles the viscous-substep RHS (the explicit advective
// estimate plus the new -grad(p) contribution, mass-weighted per element),
// lifts f's essential/natural boundary data at time t (inflow Dirichlet
// values, Dong/LXD20 open-BC fluxes), and dispatches through the field's
// ModalMatrixSys at Helmholtz constant lambda2.
func (st *Stepper) solveViscous(f *field.Field, N *auxfield.AuxField, pData *auxfield.AuxField, lambda2 float64, t float64) {
	rhs := buildViscousRHS(f, N, pData, lambda2, st.Sess.Dt)
	essential, natural := f.EvaluateBoundaries(t, st.BCmgrs[f.Name])
	f.Solve(rhs, essential, natural)
}

// buildDivergenceRHS mass-weights div(Nu,Nv)/dt, per element, into the
// per-mode [][]float64 layout ellipt.MatrixSys.Solve expects, following
// the n_plane = n_p^2*n_el contiguous-per-element convention.
// The divergence is taken in physical space (plane 0) since Nu/Nv are
// produced there by Nonlinear; per-mode Fourier coefficients share the
// same elemental mass weighting (mass is geometry-only, not mode-dependent).
func buildDivergenceRHS(p *field.Field, Nu, Nv *auxfield.AuxField, dt float64) [][][]float64 {
	nmode := len(p.MMS)
	out := make([][][]float64, nmode)
	for mi := range out {
		if p.MMS[mi] == nil {
			continue
		}
		out[mi] = massWeightedDivergence(p.Elems, Nu, Nv, 2*mi, dt)
	}
	return out
}

// massWeightedDivergence computes, per element, M_i * (dNu/dx + dNv/dy)_i
// / dt on Fourier plane planeIdx, matching the forcing convention
// ellipt.MatrixSys.Solve expects (f already mass-weighted by the caller).
func massWeightedDivergence(elems []*elem.Element, Nu, Nv *auxfield.AuxField, planeIdx int, dt float64) [][]float64 {
	uPlane := Nu.Plane(planeIdx)
	vPlane := Nv.Plane(planeIdx)
	out := make([][]float64, len(elems))
	offset := 0
	for ei, e := range elems {
		n := e.Np * e.Np
		uLocal := uPlane[offset : offset+n]
		vLocal := vPlane[offset : offset+n]
		dudx := e.Gradient(uLocal, 0)
		dvdy := e.Gradient(vLocal, 1)
		f := make([]float64, n)
		for i := 0; i < n; i++ {
			div := dudx[i] + dvdy[i]
			f[i] = e.Mass[i/e.Np][i%e.Np] * div / dt
		}
		out[ei] = f
		offset += n
	}
	return out
}

// buildViscousRHS mass-weights the explicit viscous-substep forcing
// lambda2 * N (lambda2 = alpha0/(kinvis*dt), N the stored nonlinear term)
// minus the new pressure gradient, per element: the RHS is the explicit advective estimate plus
// the new -grad(p) contribution.
func buildViscousRHS(f *field.Field, N, pData *auxfield.AuxField, lambda2, dt float64) [][][]float64 {
	nmode := len(f.MMS)
	out := make([][][]float64, nmode)
	for mi := range out {
		if f.MMS[mi] == nil {
			continue
		}
		out[mi] = massWeightedViscousForcing(f.Elems, N, pData, 2*mi, lambda2, dt)
	}
	return out
}

func massWeightedViscousForcing(elems []*elem.Element, N, pData *auxfield.AuxField, planeIdx int, lambda2, dt float64) [][]float64 {
	nPlane := N.Plane(planeIdx)
	var pPlane []float64
	if pData != nil {
		pPlane = pData.Plane(planeIdx)
	}
	out := make([][]float64, len(elems))
	offset := 0
	for ei, e := range elems {
		n := e.Np * e.Np
		nLocal := nPlane[offset : offset+n]
		f := make([]float64, n)
		var dpdx []float64
		if pPlane != nil {
			dpdx = e.Gradient(pPlane[offset:offset+n], 0)
		}
		for i := 0; i < n; i++ {
			forcing := lambda2 * nLocal[i]
			if dpdx != nil {
				forcing -= dpdx[i]
			}
			f[i] = e.Mass[i/e.Np][i%e.Np] * forcing
		}
		out[ei] = f
		offset += n
	}
	return out
}

// boundaryLineNormalVelocity computes n.a at every node of bsys's open
// boundaries, in the per-edge node order countOpenBoundaryLines (package
// setup) used to size the BCmgr this line feeds -- the "un" deposit
// MaintainFourier rolls into Hist.Un, and (applied to N(u)+f) the n.(N+f)
// deposit it rolls into Hist.Hopbc.
func boundaryLineNormalVelocity(bsys *bc.BoundarySys, elems []*elem.Element, aPlane, bPlane []float64) []float64 {
	var out []float64
	for _, b := range bsys.Open() {
		e := elems[b.ElemId]
		np := e.Np
		base := b.ElemId * np * np
		for _, n := range e.BMap[b.Side] {
			idx := base + n.I*np + n.J
			out = append(out, b.Nx*aPlane[idx]+b.Ny*bPlane[idx])
		}
	}
	return out
}

// boundaryLineCurlCurlNormal computes n.curlcurl(u) at every node of
// bsys's open boundaries, the step (e) contribution MaintainFourier adds
// into hopbc. In 2D, curl(curl(u,v,0)) = (domega/dy, -domega/dx, 0) where
// omega = dv/dx - du/dy is the z-vorticity, so n.curlcurl(u) =
// Nx*domega/dy - Ny*domega/dx.
func boundaryLineCurlCurlNormal(bsys *bc.BoundarySys, elems []*elem.Element, u, v *auxfield.AuxField) []float64 {
	dvdx := v.Gradient(0)
	dudy := u.Gradient(1)
	omega := dvdx.Axpy(-1, dudy)
	domegadx := omega.Gradient(0)
	domegady := omega.Gradient(1)
	var out []float64
	for _, b := range bsys.Open() {
		e := elems[b.ElemId]
		np := e.Np
		base := b.ElemId * np * np
		for _, n := range e.BMap[b.Side] {
			idx := base + n.I*np + n.J
			out = append(out, b.Nx*domegady.Plane(0)[idx]-b.Ny*domegadx.Plane(0)[idx])
		}
	}
	return out
}

type fieldBinding struct {
	Data  *auxfield.AuxField
	Field *field.Field
}

func (st *Stepper) requireField(name string) *fieldBinding {
	f, ok := st.Dom.Fields[name]
	if !ok {
		femlib.Fatal("integrate.Stepper", "required field %q not present in domain", name)
	}
	return &fieldBinding{Data: f.Data, Field: f}
}

func (st *Stepper) optionalField(name string) *fieldBinding {
	f, ok := st.Dom.Fields[name]
	if !ok {
		return nil
	}
	return &fieldBinding{Data: f.Data, Field: f}
}
