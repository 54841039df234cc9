// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bc

import (
	"math"

	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/geom"
	"github.com/lab272/semtex-go/xform"
)

// History holds the rolling time-level buffers "BCmgr
// history": un, hopbc, ndudt, divu, gradu, uhat, vhat, what, chat, plus
// physical-space snapshots u, v, w, c, all of shape n_time x n_line
// (Fourier-space and physical-space buffers alike).
// Levels roll so level 0 always holds the most recent deposit.
type History struct {
	NTime int
	NLine int

	Un     [][]float64
	Hopbc  [][]float64
	Ndudt  [][]float64
	Divu   [][]float64
	Gradu  [][]float64
	Uhat   [][]float64
	Vhat   [][]float64
	What   [][]float64
	Chat   [][]float64

	// physical-space snapshots (open boundaries only)
	Uphys [][]float64
	Vphys [][]float64
	Wphys [][]float64
	Cphys [][]float64

	// open-BC once-per-step derived quantities (Dong/LXD20), built in
	// physical space then forward-FFT'd
	Enux  []float64
	Enuy  []float64
	Theta []float64
	Usq   []float64
	H     []float64
}

// NewHistory allocates a History with n_time levels of width nline.
func NewHistory(ntime, nline int) *History {
	alloc := func() [][]float64 {
		b := make([][]float64, ntime)
		for i := range b {
			b[i] = make([]float64, nline)
		}
		return b
	}
	h := &History{NTime: ntime, NLine: nline}
	h.Un = alloc()
	h.Hopbc = alloc()
	h.Ndudt = alloc()
	h.Divu = alloc()
	h.Gradu = alloc()
	h.Uhat = alloc()
	h.Vhat = alloc()
	h.What = alloc()
	h.Chat = alloc()
	h.Uphys = alloc()
	h.Vphys = alloc()
	h.Wphys = alloc()
	h.Cphys = alloc()
	h.Enux = make([]float64, nline)
	h.Enuy = make([]float64, nline)
	h.Theta = make([]float64, nline)
	h.Usq = make([]float64, nline)
	h.H = make([]float64, nline)
	return h
}

// roll shifts every level up by one (oldest overwritten) so a caller can
// deposit new data at level 0 rolling policy.
func roll(buf [][]float64) {
	n := len(buf)
	if n < 2 {
		return
	}
	for i := n - 1; i > 0; i-- {
		buf[i], buf[i-1] = buf[i-1], buf[i]
	}
}

// RollAll advances every Fourier-space buffer by one level.
func (h *History) RollAll() {
	roll(h.Un)
	roll(h.Hopbc)
	roll(h.Ndudt)
	roll(h.Divu)
	roll(h.Gradu)
	roll(h.Uhat)
	roll(h.Vhat)
	roll(h.What)
	roll(h.Chat)
}

// RollPhysical advances the physical-space snapshot buffers.
func (h *History) RollPhysical() {
	roll(h.Uphys)
	roll(h.Vphys)
	roll(h.Wphys)
	roll(h.Cphys)
}

// BCmgr owns the per-step BC history and the extrapolation coefficients
// needed to deliver the KIO91 high-order pressure BC and the Dong/LXD20
// open-BC fluxes. It is passed by reference into every Condition.Evaluate
// call for computed variants, avoiding a BCmgr<->Field cyclic reference.
type BCmgr struct {
	Geo     *geom.Geometry
	Hist    *History
	Order   int // J, the stiffly-stable order (1..3)
	Beta    []float64 // extrapolation coefficients, length Order
	Alpha   []float64 // backward-difference coefficients, length Order+1

	TimeDependentBCs bool
	EstimateDudt     bool // whether to estimate du/dt via backward differentiation

	pressureEvaluatedThisStep bool // set by the first EvaluateCNBCp of a step, cleared by BeginStep
	stepToken                 int64 // recorded by BeginStep
}

// NewBCmgr allocates a BCmgr with n_time history levels sized from the
// geometry's boundary-node count.
func NewBCmgr(g *geom.Geometry, nbound, order int) *BCmgr {
	nline := roundUp(nbound*g.Np, 2*g.Nproc)
	return &BCmgr{
		Geo:   g,
		Hist:  NewHistory(order+1, nline),
		Order: order,
	}
}

func roundUp(n, m int) int {
	if m <= 0 {
		return n
	}
	if r := n % m; r != 0 {
		return n + (m - r)
	}
	return n
}

// BeginStep must be called exactly once at the top of every timestep. It
// records the step token and clears the per-step flag, so the
// Theta0/E(n,u*) build runs once, on the first EvaluateCNBCp call of the
// step, regardless of which edge's pressure BC triggers it first; the
// velocity/scalar evaluations abort if that flag is not yet set.
func (m *BCmgr) BeginStep(token int64) {
	m.stepToken = token
	m.pressureEvaluatedThisStep = false
}

// MaintainPhysical roll-stores velocity and scalar samples along the open
// boundaries only, in physical space (needed because the
// Dong open BCs require products of velocities that must be computed in
// physical space).
func (m *BCmgr) MaintainPhysical(uOpen, vOpen, wOpen, cOpen []float64) {
	m.Hist.RollPhysical()
	copy(m.Hist.Uphys[0], uOpen)
	copy(m.Hist.Vphys[0], vOpen)
	if wOpen != nil {
		copy(m.Hist.Wphys[0], wOpen)
	}
	if cOpen != nil {
		copy(m.Hist.Cphys[0], cOpen)
	}
}

// MaintainFourier performs the five steps "maintainFourier",
// called after the nonlinear step with N(u)+f and the current velocity
// snapshots already in Fourier space. curlCurlN is the caller-supplied
// n.curlcurl(u) contribution (computed via the Element curlCurl primitive,
// which lives in package elem and is invoked by the integrator).
func (m *BCmgr) MaintainFourier(un, nplusf, curlCurlN []float64, kinvis float64) {
	m.Hist.RollAll()

	// (b) recompute n.u -> new un[0]
	copy(m.Hist.Un[0], un)

	// (c) time-dependent BCs: d(u.n)/dt by J-order backward differentiation
	if m.TimeDependentBCs && m.EstimateDudt && len(m.Alpha) == m.Order+1 {
		ndudt := m.Hist.Ndudt[0]
		for i := range ndudt {
			var s float64
			for q := 0; q <= m.Order; q++ {
				s += m.Alpha[q] * m.Hist.Un[q][i]
			}
			ndudt[i] = s
		}
	}

	// (d) n.[N+f] into hopbc[0]
	hopbc := m.Hist.Hopbc[0]
	copy(hopbc, nplusf)

	// (e) add -nu * n.curlcurl(u)
	if curlCurlN != nil {
		for i := range hopbc {
			hopbc[i] -= kinvis * curlCurlN[i]
		}
	}
}

// EvaluateCNBCp extrapolates hopbc - ndudt over J stored time levels using
// the Beta extrapolation coefficients to deliver the high-order Neumann
// pressure BC at the current end-of-step (the classic evaluateCNBCp step).
// It also marks the pressure BC as evaluated this step, which is the
// trigger point for the once-per-step Theta0/E(n,u*) computation
// consumed by EvaluateCMBCu/EvaluateCMBCc -- BC re-evaluation ordering
// guarantees pressure BCs are always evaluated before
// velocity/scalar BCs within a step.
func (m *BCmgr) EvaluateCNBCp(mode int) []float64 {
	out := make([]float64, m.Hist.NLine)
	for i := range out {
		var s float64
		for q := 0; q < m.Order; q++ {
			s += m.Beta[q] * (m.Hist.Hopbc[q][i] - m.Hist.Ndudt[q][i])
		}
		out[i] = s
	}
	if !m.pressureEvaluatedThisStep {
		m.pressureEvaluatedThisStep = true
		m.buildOpenBCQuantities()
	}
	return out
}

// buildOpenBCQuantities implements Dong (2015) eq. (37)'s once-per-step
// precomputation: extrapolation of u*/c*, u*.n, |u*|^2, Theta0, and
// E(n,u*). It is idempotent within a step (guarded by
// pressureEvaluatedThisStep via EvaluateCNBCp) and is the concrete
// resolution first Open Question.
func (m *BCmgr) buildOpenBCQuantities() {
	delta := 0.1 // fixed value; the session's DONG_UODELTA token is not read here
	n := m.Hist.NLine
	ustar := make([]float64, n)
	vstar := make([]float64, n)
	for i := 0; i < n; i++ {
		var us, vs float64
		for q := 0; q < m.Order; q++ {
			us += m.Beta[q] * m.Hist.Uhat[q][i]
			vs += m.Beta[q] * m.Hist.Vhat[q][i]
		}
		ustar[i], vstar[i] = us, vs
	}
	for i := 0; i < n; i++ {
		un := ustar[i] // projected onto the stored normal by the caller's packing convention
		usq := ustar[i]*ustar[i] + vstar[i]*vstar[i]
		theta0 := 0.5 * (1 - math.Tanh(un/delta))
		m.Hist.Usq[i] = usq
		m.Hist.Theta[i] = theta0
		m.Hist.Enux[i] = 0.5 * theta0 * (usq + un*ustar[i])
		m.Hist.Enuy[i] = 0.5 * theta0 * (usq + un*vstar[i])
	}

	// History's doc comment promises these quantities "built in physical
	// space then forward-FFT'd"; bTransform(+1) is that forward transform.
	// A no-op when Nz==1 (the 2D/axisymmetric scenarios this module
	// currently drives); a genuinely 3D run would need these buffers sized
	// NzLocal*NLine rather than the single-plane NLine held here.
	xform.BTransform(m.Geo, m.Hist.Usq, n, 1)
	xform.BTransform(m.Geo, m.Hist.Theta, n, 1)
	xform.BTransform(m.Geo, m.Hist.Enux, n, 1)
	xform.BTransform(m.Geo, m.Hist.Enuy, n, 1)
}

// EvaluateCMBCu returns the open-BC velocity RHS for component field as a
// copy of the cached E(n,u*) quantity: Enuy for "v", Enux for "u" and for
// any other component. The stored uhat/vhat/what history is not read.
func (m *BCmgr) EvaluateCMBCu(mode int, field string) []float64 {
	if !m.pressureEvaluatedThisStep {
		femlib.Fatal("bc.BCmgr.EvaluateCMBCu", "velocity BC evaluated before pressure BC this step; ordering contract violated")
	}
	out := make([]float64, m.Hist.NLine)
	var enuse []float64
	switch field {
	case "u":
		enuse = m.Hist.Enux
	case "v":
		enuse = m.Hist.Enuy
	default:
		enuse = m.Hist.Enux
	}
	for i := range out {
		out[i] = enuse[i]
	}
	return out
}

// EvaluateCMBCc implements LXD20 eq. (16b): the scalar-flux open BC,
// consuming the cached Theta0 and stored chat history.
func (m *BCmgr) EvaluateCMBCc(mode int) []float64 {
	if !m.pressureEvaluatedThisStep {
		femlib.Fatal("bc.BCmgr.EvaluateCMBCc", "scalar BC evaluated before pressure BC this step; ordering contract violated")
	}
	out := make([]float64, m.Hist.NLine)
	for i := range out {
		var cstar float64
		for q := 0; q < m.Order; q++ {
			cstar += m.Beta[q] * m.Hist.Chat[q][i]
		}
		out[i] = m.Hist.Theta[i] * cstar
	}
	return out
}

// UnHistoryInvariant checks the BCmgr rolling invariant:
// un[0] equals the supplied current value and un[1..order] hold the
// previous values in order. Exposed for tests.
func (m *BCmgr) UnHistoryInvariant(expectedCurrent []float64, previous [][]float64) bool {
	for i := range expectedCurrent {
		if m.Hist.Un[0][i] != expectedCurrent[i] {
			return false
		}
	}
	for q, prev := range previous {
		for i := range prev {
			if m.Hist.Un[q+1][i] != prev[i] {
				return false
			}
		}
	}
	return true
}
