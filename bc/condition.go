// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bc implements the boundary-condition taxonomy: a closed
// Condition sum type (essential-constant, essential-
// function, natural-constant, natural-function, mixed, and the three
// computed variants), the per-Fourier-mode BoundarySys, and BCmgr's
// rolling time-history buffers driving the KIO91 high-order pressure BC
// and the Dong/LXD20 open-BC fluxions.
//
// It generalises gofem's fem/essenbcs.go EssentialBc/EssentialBcs pattern
// (a small struct carrying a key, equation indices, and a fun.Func
// payload, evaluated through a handful of verbs) into a four-verb
// (evaluate/set/sum/augment) closed union.
package bc

import (
	"github.com/cpmech/gosl/fun"

	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
)

// Kind is the Condition tag, a closed set
type Kind int

const (
	EssentialConstant Kind = iota
	EssentialFunction
	NaturalConstant
	NaturalFunction
	MixedConstant
	ComputedNaturalPressure // KIO91 high-order pressure BC
	ComputedMixedOpen       // Dong (2015) velocity/pressure
	ComputedMixedScalar     // LXD20
)

// Condition is the sum type: exactly one of the Kind
// values above, dispatched purely on tag.
type Condition struct {
	Kind Kind

	// essential-constant / natural-constant / mixed-constant payload
	Value float64

	// essential-function / natural-function payload
	Fn fun.TimeSpace

	// mixed payload: dc/dn + K(c - C) = 0
	MixK float64
	MixC float64

	// computed-variant payload: which physical quantity this Condition
	// produces (pressure, velocity component, scalar); BCmgr is passed
	// explicitly into Evaluate rather than stored here.
	Field string
}

// Evaluate returns the nodal boundary values for this condition at time t
// on element edge nodes x (length = np), for the given Fourier mode. For
// computed variants, mgr supplies the rolling history.
func (c *Condition) Evaluate(t float64, x [][2]float64, mode int, mgr *BCmgr) []float64 {
	out := make([]float64, len(x))
	switch c.Kind {
	case EssentialConstant, NaturalConstant, MixedConstant:
		for i := range out {
			out[i] = c.Value
		}
	case EssentialFunction, NaturalFunction:
		for i, xy := range x {
			out[i] = c.Fn.F(t, xy[:])
		}
	case ComputedNaturalPressure:
		if mgr == nil {
			femlib.Fatal("bc.Condition.Evaluate", "computed pressure BC requires a BCmgr")
		}
		return mgr.EvaluateCNBCp(mode)
	case ComputedMixedOpen:
		if mgr == nil {
			femlib.Fatal("bc.Condition.Evaluate", "computed open BC requires a BCmgr")
		}
		return mgr.EvaluateCMBCu(mode, c.Field)
	case ComputedMixedScalar:
		if mgr == nil {
			femlib.Fatal("bc.Condition.Evaluate", "computed scalar BC requires a BCmgr")
		}
		return mgr.EvaluateCMBCc(mode)
	default:
		femlib.Fatal("bc.Condition.Evaluate", "unknown condition kind %d", c.Kind)
	}
	return out
}

// IsEssential reports whether this condition constrains (rather than
// produces a flux for) its edge.
func (c *Condition) IsEssential() bool {
	return c.Kind == EssentialConstant || c.Kind == EssentialFunction
}

// Set stores constant/function data for essential and natural conditions
// (verb 2 of the four-verb interface).
func (c *Condition) Set(value float64, fn fun.TimeSpace) {
	c.Value = value
	c.Fn = fn
}

// Sum adds this condition's natural-flux contribution into an element's
// local RHS vector h (verb 3): for natural/mixed-constant/function
// conditions this is simply the evaluated boundary values weighted by the
// 1D edge quadrature; computed variants already return a flux-ready
// vector from Evaluate.
func (c *Condition) Sum(t float64, x [][2]float64, w []float64, mode int, mgr *BCmgr, h []float64) {
	vals := c.Evaluate(t, x, mode, mgr)
	for i := range h {
		h[i] += w[i] * vals[i]
	}
}

// AugmentOp adds the mixed-BC diagonal term K*area_i at each boundary
// node to the element-local Helmholtz operator output.
func (c *Condition) AugmentOp(e *elem.Element, side elem.Side, u, out []float64) {
	if c.Kind != MixedConstant {
		return
	}
	nodes := e.BMap[side]
	np := e.Np
	for _, n := range nodes {
		idx := n.I*np + n.J
		area := e.Ops.W[n.I] * e.Ops.W[n.J] // boundary-node quadrature weight proxy
		out[idx] += c.MixK * area * u[idx]
	}
}

// AugmentSC adds the mixed-BC diagonal contribution directly into a
// Schur-complement boundary-boundary block (used when the element
// touches an essential/mixed boundary).
func (c *Condition) AugmentSC(e *elem.Element, side elem.Side, hbb [][]float64) {
	if c.Kind != MixedConstant {
		return
	}
	nodes := e.BMap[side]
	for k, n := range nodes {
		area := e.Ops.W[n.I] * e.Ops.W[n.J]
		hbb[k][k] += c.MixK * area
	}
}

// AugmentDg adds the mixed-BC RHS term K*C*area_i (the constant part of
// dc/dn + K(c-C) = 0) to a forcing vector g.
func (c *Condition) AugmentDg(e *elem.Element, side elem.Side, g []float64) {
	if c.Kind != MixedConstant {
		return
	}
	nodes := e.BMap[side]
	np := e.Np
	for _, n := range nodes {
		idx := n.I*np + n.J
		area := e.Ops.W[n.I] * e.Ops.W[n.J]
		g[idx] += c.MixK * c.MixC * area
	}
}
