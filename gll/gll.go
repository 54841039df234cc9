// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gll implements the Gauss-Lobatto-Legendre quadrature rules and
// derivative operators shared by every Element, plus the
// append-only operator caches ("global operator
// caches"). No GLL/Lagrange-interpolant library appears anywhere in the
// retrieval pack, so the quadrature and derivative-matrix math itself is
// a hand-rolled numerical kernel (see DESIGN.md); only the cache container
// idiom is carried over from gofem's registry-of-allocators pattern.
package gll

import (
	"math"
	"sync"
)

// Rule distinguishes the supported 1D quadrature families. GLL (Gauss-
// Lobatto-Legendre) is the rule this package requires; Gauss (interior,
// non-boundary-including) is kept for Lagrange-interpolant cache lookups
// when interpolating onto non-GLL meshes (base-flow interpolation, etc.).
type Rule int

const (
	GLL Rule = iota
	Gauss
)

// Key identifies one cached 1D operator set.
type Key struct {
	Rule  Rule
	Np    int
	Alpha float64
	Beta  float64
}

// Ops bundles the quadrature nodes/weights and the first-derivative matrix
// for one (rule, np, alpha, beta) combination.
type Ops struct {
	Z  []float64   // nodes in [-1,1]
	W  []float64   // quadrature weights
	D  [][]float64 // D[i][j] = l'_j(z_i), the np x np derivative matrix
	Np int
}

// Cache is the process-wide, append-only lookup table of global operator
// caches. It is safe for concurrent readers once entries are populated;
// callers must finish any construction-time Get calls before spawning
// worker goroutines.
type Cache struct {
	mu      sync.RWMutex
	ops     map[Key]*Ops
	interps map[interpKey]*Interp
}

// interpKey identifies a cached Lagrange interpolation operator between
// two 1D meshes.
type interpKey struct {
	from, to Key
}

// Interp holds an interpolation matrix mapping nodal values on one 1D mesh
// to nodal values on another, for two fixed 1D node sets (Element.Probe's
// arbitrary (r,s) evaluation does not use it).
type Interp struct {
	M [][]float64 // M[i][j]: value of Lagrange basis j of src mesh at dst node i
}

var global = NewCache()

// Global returns the process-wide cache singleton.
func Global() *Cache { return global }

// NewCache returns an empty cache (used by tests so they don't share the
// process-wide singleton).
func NewCache() *Cache {
	return &Cache{
		ops:     make(map[Key]*Ops),
		interps: make(map[interpKey]*Interp),
	}
}

// Get returns the cached Ops for (rule, np, alpha, beta), building and
// storing it on first use.
func (c *Cache) Get(rule Rule, np int, alpha, beta float64) *Ops {
	key := Key{rule, np, alpha, beta}
	c.mu.RLock()
	ops, ok := c.ops[key]
	c.mu.RUnlock()
	if ok {
		return ops
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ops, ok = c.ops[key]; ok {
		return ops
	}
	ops = build(rule, np, alpha, beta)
	c.ops[key] = ops
	return ops
}

// GetInterp returns (building and caching on first use) the Lagrange
// interpolation matrix mapping nodal values from the `from` mesh onto the
// nodes of the `to` mesh.
func (c *Cache) GetInterp(from, to Key) *Interp {
	ik := interpKey{from, to}
	c.mu.RLock()
	it, ok := c.interps[ik]
	c.mu.RUnlock()
	if ok {
		return it
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok = c.interps[ik]; ok {
		return it
	}
	srcOps := c.unlockedGet(from)
	dstOps := c.unlockedGet(to)
	it = buildInterp(srcOps.Z, dstOps.Z)
	c.interps[ik] = it
	return it
}

func (c *Cache) unlockedGet(k Key) *Ops {
	if ops, ok := c.ops[k]; ok {
		return ops
	}
	ops := build(k.Rule, k.Np, k.Alpha, k.Beta)
	c.ops[k] = ops
	return ops
}

// build computes nodes, weights and the derivative matrix for one rule.
func build(rule Rule, np int, alpha, beta float64) *Ops {
	var z, w []float64
	switch rule {
	case GLL:
		z, w = gllNodesWeights(np)
	case Gauss:
		z, w = gaussNodesWeights(np)
	default:
		z, w = gllNodesWeights(np)
	}
	d := derivativeMatrix(z, np)
	return &Ops{Z: z, W: w, D: d, Np: np}
}

// legendre evaluates the Legendre polynomial of degree n and its first and
// second derivatives at x using the standard three-term recurrence.
func legendre(n int, x float64) (p, dp, ddp float64) {
	p0, p1 := 1.0, x
	dp0, dp1 := 0.0, 1.0
	ddp0, ddp1 := 0.0, 0.0
	if n == 0 {
		return p0, dp0, ddp0
	}
	if n == 1 {
		return p1, dp1, ddp1
	}
	var p2, dp2, ddp2 float64
	for k := 2; k <= n; k++ {
		kf := float64(k)
		p2 = ((2*kf-1)*x*p1 - (kf-1)*p0) / kf
		dp2 = ((2*kf-1)*(p1+x*dp1) - (kf-1)*dp0) / kf
		ddp2 = ((2*kf-1)*(2*dp1+x*ddp1) - (kf-1)*ddp0) / kf
		p0, p1 = p1, p2
		dp0, dp1 = dp1, dp2
		ddp0, ddp1 = ddp1, ddp2
	}
	return p1, dp1, ddp1
}

// gllNodesWeights returns the np Gauss-Lobatto-Legendre nodes (including
// the endpoints +-1) and their quadrature weights, found by Newton
// iteration on the roots of P'_{np-1}.
func gllNodesWeights(np int) (z, w []float64) {
	z = make([]float64, np)
	w = make([]float64, np)
	if np == 1 {
		z[0], w[0] = 0, 2
		return
	}
	n := np - 1
	z[0] = -1
	z[n] = 1
	if np > 2 {
		// initial guess: Chebyshev-Gauss-Lobatto points
		for i := 1; i < n; i++ {
			x := -math.Cos(math.Pi * float64(i) / float64(n))
			for it := 0; it < 100; it++ {
				_, dp, ddp := legendre(n, x)
				if dp == 0 && ddp == 0 {
					break
				}
				// Newton on P'_n(x) = 0 using P'_n and P''_n
				delta := dp / ddp
				x -= delta
				if math.Abs(delta) < 1e-15 {
					break
				}
			}
			z[i] = x
		}
	}
	for i := 0; i < np; i++ {
		pn, _, _ := legendre(n, z[i])
		w[i] = 2.0 / (float64(n*np) * pn * pn)
	}
	return
}

// gaussNodesWeights returns np Gauss-Legendre (interior) nodes/weights.
func gaussNodesWeights(np int) (z, w []float64) {
	z = make([]float64, np)
	w = make([]float64, np)
	for i := 0; i < np; i++ {
		x := -math.Cos(math.Pi * (float64(i) + 0.75) / (float64(np) + 0.5))
		for it := 0; it < 100; it++ {
			p, dp, _ := legendre(np, x)
			dx := p / dp
			x -= dx
			if math.Abs(dx) < 1e-15 {
				break
			}
		}
		z[i] = x
		_, dp, _ := legendre(np, x)
		w[i] = 2.0 / ((1 - x*x) * dp * dp)
	}
	return
}

// derivativeMatrix builds D[i][j] = l'_j(z_i), the Lagrange derivative
// matrix on an arbitrary node set z (used for both GLL and Gauss rules).
func derivativeMatrix(z []float64, np int) [][]float64 {
	d := make([][]float64, np)
	for i := range d {
		d[i] = make([]float64, np)
	}
	// barycentric weights
	bw := make([]float64, np)
	for j := 0; j < np; j++ {
		bw[j] = 1
		for k := 0; k < np; k++ {
			if k != j {
				bw[j] /= (z[j] - z[k])
			}
		}
	}
	for i := 0; i < np; i++ {
		rowSum := 0.0
		for j := 0; j < np; j++ {
			if i == j {
				continue
			}
			d[i][j] = (bw[j] / bw[i]) / (z[i] - z[j])
			rowSum += d[i][j]
		}
		d[i][i] = -rowSum
	}
	return d
}

// buildInterp constructs the Lagrange interpolation matrix from nodes
// `src` onto evaluation points `dst` via the barycentric formula.
func buildInterp(src, dst []float64) *Interp {
	ns, nd := len(src), len(dst)
	bw := make([]float64, ns)
	for j := 0; j < ns; j++ {
		bw[j] = 1
		for k := 0; k < ns; k++ {
			if k != j {
				bw[j] /= (src[j] - src[k])
			}
		}
	}
	m := make([][]float64, nd)
	for i := 0; i < nd; i++ {
		m[i] = make([]float64, ns)
		exact := -1
		for j := 0; j < ns; j++ {
			if dst[i] == src[j] {
				exact = j
				break
			}
		}
		if exact >= 0 {
			m[i][exact] = 1
			continue
		}
		var denom float64
		num := make([]float64, ns)
		for j := 0; j < ns; j++ {
			num[j] = bw[j] / (dst[i] - src[j])
			denom += num[j]
		}
		for j := 0; j < ns; j++ {
			m[i][j] = num[j] / denom
		}
	}
	return &Interp{M: m}
}

// Eval applies the interpolation operator to nodal values v (length =
// len(src)), returning values at the dst nodes.
func (it *Interp) Eval(v []float64) []float64 {
	out := make([]float64, len(it.M))
	for i, row := range it.M {
		var s float64
		for j, mij := range row {
			s += mij * v[j]
		}
		out[i] = s
	}
	return out
}
