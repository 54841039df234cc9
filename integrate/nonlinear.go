// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integrate

import (
	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/session"
)

// FieldForce supplies an additive body-force term f(t) per velocity
// component, consumed by every nonlinear form.
type FieldForce interface {
	Force(component int, t float64) *auxfield.AuxField
}

// Velocity bundles the velocity (and, for 3D, the homogeneous-direction)
// components passed into the nonlinear-term evaluator.
type Velocity struct {
	U, V, W *auxfield.AuxField // W is nil for 2D-2C
}

// Nonlinear computes N(u) + f for every velocity component, dispatching
// on the session's Advection token. In cylindrical
// form, N_x and N_y are pre-multiplied by y per Blackburn & Sherwin
// (2004), implemented via AuxField.MulY.
func Nonlinear(s *session.Session, vel Velocity, force FieldForce, t float64, step int64) (Nu, Nv, Nw *auxfield.AuxField) {
	switch s.Advection {
	case session.AdvectionStokes:
		return zeroLike(vel.U), zeroLike(vel.V), zeroLikeOrNil(vel.W)
	case session.AdvectionConvective:
		return convectiveForm(s, vel, force, t)
	case session.AdvectionRotational1, session.AdvectionRotational2:
		return rotationalForm(s, vel, force, t)
	case session.AdvectionSkewSymmetric:
		return skewSymmetricForm(s, vel, force, t, false, step)
	case session.AdvectionAltSkewSymmetric:
		return skewSymmetricForm(s, vel, force, t, true, step)
	default:
		femlib.Fatal("integrate.Nonlinear", "unknown advection form %d", s.Advection)
		return nil, nil, nil
	}
}

func zeroLike(a *auxfield.AuxField) *auxfield.AuxField {
	return auxfield.New(a.Name+"_zero", a.Geo, a.Msh)
}

func zeroLikeOrNil(a *auxfield.AuxField) *auxfield.AuxField {
	if a == nil {
		return nil
	}
	return zeroLike(a)
}

// convectiveForm computes N(u) = u.grad(u) component-wise, the simplest
// (non-conservative) split.
func convectiveForm(s *session.Session, vel Velocity, force FieldForce, t float64) (Nu, Nv, Nw *auxfield.AuxField) {
	Nu = advect(vel, vel.U, s.Cylindrical)
	Nv = advect(vel, vel.V, s.Cylindrical)
	addForce(Nu, force, 0, t)
	addForce(Nv, force, 1, t)
	if vel.W != nil {
		Nw = advect(vel, vel.W, s.Cylindrical)
		addForce(Nw, force, 2, t)
	}
	return
}

// advect builds u.grad(phi) = u*dphi/dx + v*dphi/dy for scalar component
// phi, the shared inner kernel of the convective and skew-symmetric forms.
func advect(vel Velocity, phi *auxfield.AuxField, cylindrical bool) *auxfield.AuxField {
	dphidx := phi.Gradient(0)
	dphidy := phi.Gradient(1)
	term := dphidx.Times(vel.U)
	term = term.TimesPlus(vel.V, dphidy)
	if cylindrical {
		term = term.MulY()
	}
	return term
}

// skewSymmetricForm computes N(u) from the convective and conservative
// (divergence) forms. alt=false (plain skew-symmetric) always averages the
// two forms 0.5*(conv+cons). alt=true (the KIO91 default, "alternating
// skew-symmetric") instead alternates which pure form is used from one
// step to the next -- convective on even step numbers, conservative on
// odd -- per KIO91's description of the variant.
func skewSymmetricForm(s *session.Session, vel Velocity, force FieldForce, t float64, alt bool, step int64) (Nu, Nv, Nw *auxfield.AuxField) {
	conv := func(phi *auxfield.AuxField) *auxfield.AuxField { return advect(vel, phi, s.Cylindrical) }
	cons := func(phi *auxfield.AuxField) *auxfield.AuxField {
		uphi := auxfield.New("uphi", vel.U.Geo, vel.U.Msh).Copy(vel.U).Times(phi)
		vphi := auxfield.New("vphi", vel.V.Geo, vel.V.Msh).Copy(vel.V).Times(phi)
		d := uphi.Gradient(0).Axpy(1, vphi.Gradient(1))
		if s.Cylindrical {
			d = d.MulY()
		}
		return d
	}
	var form func(phi *auxfield.AuxField) *auxfield.AuxField
	switch {
	case !alt:
		form = func(phi *auxfield.AuxField) *auxfield.AuxField {
			out := conv(phi).Axpy(1, cons(phi))
			out.MulScalar(0.5)
			return out
		}
	case step%2 == 0:
		form = conv
	default:
		form = cons
	}
	Nu = form(vel.U)
	Nv = form(vel.V)
	addForce(Nu, force, 0, t)
	addForce(Nv, force, 1, t)
	if vel.W != nil {
		Nw = form(vel.W)
		addForce(Nw, force, 2, t)
	}
	return
}

// rotationalForm computes N(u) = omega x u (rotational-1) or its
// u x omega counterpart (rotational-2), both of which fold the pressure
// gradient of |u|^2/2 into the pressure Poisson RHS rather than N(u)
// itself; here we return the vorticity-cross-velocity term only.
func rotationalForm(s *session.Session, vel Velocity, force FieldForce, t float64) (Nu, Nv, Nw *auxfield.AuxField) {
	dvdx := vel.V.Gradient(0)
	dudy := vel.U.Gradient(1)
	omega := dvdx.Axpy(-1, dudy) // omega_z = dv/dx - du/dy
	omegaCopy := auxfield.New("omega_copy", omega.Geo, omega.Msh).Copy(omega)

	Nu = omega.Times(vel.V)
	Nu.MulScalar(-1)
	Nv = omegaCopy.Times(vel.U)
	addForce(Nu, force, 0, t)
	addForce(Nv, force, 1, t)
	if vel.W != nil {
		Nw = zeroLike(vel.W)
		addForce(Nw, force, 2, t)
	}
	return
}

func addForce(N *auxfield.AuxField, force FieldForce, component int, t float64) {
	if force == nil {
		return
	}
	f := force.Force(component, t)
	if f != nil {
		N.Axpy(1, f)
	}
}
