// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package auxfield implements AuxField: a contiguous real array
// of length n_z_local * plane_size, viewed as n_z_local planes, with the
// arithmetic/vector vocabulary (=, +=, -=, *=, /=, times, timesPlus,
// timesMinus, axpy, gradient, divY/mulY, innerProduct) the Integrator
// consumes. It knows nothing of connectivity or BCs.
package auxfield

import (
	"math"

	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/geom"
	"github.com/lab272/semtex-go/mesh"
	"github.com/lab272/semtex-go/xform"
)

// AuxField is a plane-major scalar field over a Mesh x Fourier-plane grid.
type AuxField struct {
	Name string
	Geo  *geom.Geometry
	Msh  *mesh.Mesh
	Data []float64 // length NzLocal * PlaneSize; plane k begins at k*PlaneSize
}

// New allocates a zeroed AuxField named name.
func New(name string, g *geom.Geometry, m *mesh.Mesh) *AuxField {
	return &AuxField{
		Name: name,
		Geo:  g,
		Msh:  m,
		Data: make([]float64, g.NzLocal*g.PlaneSize),
	}
}

// Plane returns the slice of Data for plane-local-index k, trimmed to
// n_plane (excluding the round-up padding).
func (a *AuxField) Plane(k int) []float64 {
	base := k * a.Geo.PlaneSize
	return a.Data[base : base+a.Geo.Nplane]
}

// planeFull returns the slice of Data for plane-local-index k including
// padding, used internally by transform/transpose code.
func (a *AuxField) planeFull(k int) []float64 {
	base := k * a.Geo.PlaneSize
	return a.Data[base : base+a.Geo.PlaneSize]
}

func (a *AuxField) checkSameShape(b *AuxField, routine string) {
	if len(a.Data) != len(b.Data) {
		femlib.Fatal(routine, "AuxField %q and %q have mismatched lengths %d != %d", a.Name, b.Name, len(a.Data), len(b.Data))
	}
}

// Copy sets a = b (operator '=').
func (a *AuxField) Copy(b *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.Copy")
	copy(a.Data, b.Data)
	return a
}

// Fill sets every entry of a to a constant scalar.
func (a *AuxField) Fill(c float64) *AuxField {
	for i := range a.Data {
		a.Data[i] = c
	}
	return a
}

// AddScalar implements a += c.
func (a *AuxField) AddScalar(c float64) *AuxField {
	for i := range a.Data {
		a.Data[i] += c
	}
	return a
}

// SubScalar implements a -= c.
func (a *AuxField) SubScalar(c float64) *AuxField {
	for i := range a.Data {
		a.Data[i] -= c
	}
	return a
}

// MulScalar implements a *= c.
func (a *AuxField) MulScalar(c float64) *AuxField {
	for i := range a.Data {
		a.Data[i] *= c
	}
	return a
}

// DivScalar implements a /= c.
func (a *AuxField) DivScalar(c float64) *AuxField {
	if c == 0 {
		femlib.Fatal("AuxField.DivScalar", "%q: division by zero", a.Name)
	}
	inv := 1 / c
	for i := range a.Data {
		a.Data[i] *= inv
	}
	return a
}

// Add implements a += b.
func (a *AuxField) Add(b *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.Add")
	for i := range a.Data {
		a.Data[i] += b.Data[i]
	}
	return a
}

// Sub implements a -= b.
func (a *AuxField) Sub(b *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.Sub")
	for i := range a.Data {
		a.Data[i] -= b.Data[i]
	}
	return a
}

// Times implements a = a * b, elementwise.
func (a *AuxField) Times(b *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.Times")
	for i := range a.Data {
		a.Data[i] *= b.Data[i]
	}
	return a
}

// TimesPlus implements a += b * c, elementwise.
func (a *AuxField) TimesPlus(b, c *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.TimesPlus")
	a.checkSameShape(c, "AuxField.TimesPlus")
	for i := range a.Data {
		a.Data[i] += b.Data[i] * c.Data[i]
	}
	return a
}

// TimesMinus implements a -= b * c, elementwise.
func (a *AuxField) TimesMinus(b, c *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.TimesMinus")
	a.checkSameShape(c, "AuxField.TimesMinus")
	for i := range a.Data {
		a.Data[i] -= b.Data[i] * c.Data[i]
	}
	return a
}

// Axpy implements a += alpha * b.
func (a *AuxField) Axpy(alpha float64, b *AuxField) *AuxField {
	a.checkSameShape(b, "AuxField.Axpy")
	for i := range a.Data {
		a.Data[i] += alpha * b.Data[i]
	}
	return a
}

// InnerProduct returns sum_i a_i b_i over the raw storage (unweighted;
// callers needing an area-weighted inner product should use
// Element.Integral on the product field instead).
func (a *AuxField) InnerProduct(b *AuxField) float64 {
	a.checkSameShape(b, "AuxField.InnerProduct")
	var s float64
	for i := range a.Data {
		s += a.Data[i] * b.Data[i]
	}
	return s
}

// Integral returns the area integral of the field over every element, on
// plane k (physical space).
func (a *AuxField) Integral(k int) float64 {
	var total float64
	plane := a.Plane(k)
	np := a.Msh.Np
	for _, e := range a.Msh.Elems {
		local := plane[e.Id*np*np : e.Id*np*np+np*np]
		total += e.Integral(local)
	}
	return total
}

// Gradient computes d(field)/d(dir) for dir in {0:x,1:y} into a new
// AuxField, plane by plane, via each Element's physical-space gradient
// (dir==2, the Fourier z-direction, is handled by the Integrator directly
// in Fourier space since it is a simple multiplication by i*beta*m there).
func (a *AuxField) Gradient(dir int) *AuxField {
	out := New(a.Name+"_grad", a.Geo, a.Msh)
	np := a.Msh.Np
	for k := 0; k < a.Geo.NzLocal; k++ {
		src := a.Plane(k)
		dst := out.Plane(k)
		for _, e := range a.Msh.Elems {
			local := src[e.Id*np*np : e.Id*np*np+np*np]
			g := e.Gradient(local, dir)
			copy(dst[e.Id*np*np:e.Id*np*np+np*np], g)
		}
	}
	return out
}

// DivY divides the field by the radial coordinate y, element by element,
// on every plane (cylindrical forms).
func (a *AuxField) DivY() *AuxField {
	out := New(a.Name+"_divy", a.Geo, a.Msh)
	np := a.Msh.Np
	for k := 0; k < a.Geo.NzLocal; k++ {
		src := a.Plane(k)
		dst := out.Plane(k)
		for _, e := range a.Msh.Elems {
			local := src[e.Id*np*np : e.Id*np*np+np*np]
			copy(dst[e.Id*np*np:e.Id*np*np+np*np], e.DivY(local))
		}
	}
	return out
}

// MulY multiplies the field by the radial coordinate y.
func (a *AuxField) MulY() *AuxField {
	out := New(a.Name+"_muly", a.Geo, a.Msh)
	np := a.Msh.Np
	for k := 0; k < a.Geo.NzLocal; k++ {
		src := a.Plane(k)
		dst := out.Plane(k)
		for _, e := range a.Msh.Elems {
			local := src[e.Id*np*np : e.Id*np*np+np*np]
			copy(dst[e.Id*np*np:e.Id*np*np+np*np], e.MulY(local))
		}
	}
	return out
}

// Transform converts the field between planar and modal layout and, for
// sign>0, forward-transforms physical planes to Fourier space (or the
// reverse for sign<0). It delegates the MPI transpose and
// 1D real DFT to package xform, which is the only place gosl/mpi
// collectives are invoked.
func (a *AuxField) Transform(sign int) {
	xform.Transform(a.Geo, a.Data, sign)
	// Nyquist-zero invariant: after a forward
	// transform the Nyquist plane (plane 1, on the root rank) must be
	// exactly zero.
	if sign > 0 && a.Geo.Nz > 2 {
		xform.ZeroNyquist(a.Geo, a.Data)
	}
}

// CheckNoNaN aborts the run if any entry of
// the field is NaN or +-Inf.
func (a *AuxField) CheckNoNaN(routine string) {
	for _, v := range a.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			femlib.Fatal(routine, "AuxField %q: numerical blowup detected (NaN/Inf)", a.Name)
		}
	}
}
