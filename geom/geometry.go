// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geom holds the process-wide, immutable-after-init sizes and
// coordinate-system flags ("Geometry"). It plays the
// same role that inp.Data/inp.Region play in gofem: a
// small struct of derived sizes consulted everywhere but constructed once.
package geom

import (
	"github.com/lab272/semtex-go/femlib"
)

// CoordSys selects the spatial coordinate system.
type CoordSys int

const (
	Cartesian CoordSys = iota
	Cylindrical
)

// Symmetry classifies the spatial symmetry of the solved fields.
type Symmetry int

const (
	Sym2D2C Symmetry = iota // 2D, 2 velocity components
	Sym2D3C                 // 2D, 3 velocity components (swirl/out-of-plane)
	Sym3D3C                 // full 3D, 3 components
)

// Geometry records the process-wide sizes fixed at start-up: polynomial
// order per element edge, element count, Fourier-plane count, process
// count, and the derived sizes built from them. It must never be mutated
// after NewGeometry returns.
type Geometry struct {
	Np     int // polynomial order per element edge (5..12 typical)
	Nel    int // element count
	Nz     int // total Fourier-plane count (1 or even)
	Nproc  int // process count
	Coords CoordSys
	Sym    Symmetry
	HalfZ  bool // optional half-period Z-reflection symmetry

	// derived
	Nplane    int // n_p^2 * n_el
	PlaneSize int // round_up(n_plane, 2*n_proc)
	NzLocal   int // n_z / n_proc (planes owned by this rank)
}

// roundUp rounds n up to the next multiple of m (m > 0).
func roundUp(n, m int) int {
	if m <= 0 {
		return n
	}
	if r := n % m; r != 0 {
		return n + (m - r)
	}
	return n
}

// NewGeometry validates and constructs the process-wide Geometry. It is
// fatal to supply an odd n_z > 1, or an
// n_proc that does not evenly divide n_z/2.
func NewGeometry(np, nel, nz, nproc int, coords CoordSys, sym Symmetry, halfZ bool) *Geometry {
	const routine = "geom.NewGeometry"
	if np < 2 {
		femlib.Fatal(routine, "polynomial order n_p=%d must be >= 2", np)
	}
	if nel < 1 {
		femlib.Fatal(routine, "element count n_el=%d must be >= 1", nel)
	}
	if nz != 1 && nz%2 != 0 {
		femlib.Fatal(routine, "n_z=%d must be 1 or even", nz)
	}
	if nz > 1 {
		if nproc < 1 || (nz/2)%nproc != 0 {
			femlib.Fatal(routine, "n_proc=%d must evenly divide n_z/2=%d", nproc, nz/2)
		}
	} else if nproc != 1 {
		femlib.Fatal(routine, "n_proc=%d must be 1 when n_z=1", nproc)
	}
	g := &Geometry{
		Np: np, Nel: nel, Nz: nz, Nproc: nproc,
		Coords: coords, Sym: sym, HalfZ: halfZ,
	}
	g.Nplane = np * np * nel
	g.PlaneSize = roundUp(g.Nplane, 2*nproc)
	if nz == 1 {
		g.NzLocal = 1
	} else {
		g.NzLocal = nz / nproc
		if g.NzLocal < 2 {
			femlib.Fatal(routine, "n_z_local=%d must be >= 2 for a genuine 3D problem", g.NzLocal)
		}
	}
	return g
}

// NBoundary returns the number of element-edge boundary nodes, 4*(n_p-1)*n_el,
// the length used throughout for mask/naive-assembly vectors.
func (g *Geometry) NBoundary() int {
	return 4 * (g.Np - 1) * g.Nel
}

// IsAxisymmetric reports whether the cylindrical-with-axis form applies.
func (g *Geometry) IsAxisymmetric() bool {
	return g.Coords == Cylindrical
}

// Is3D reports whether a genuine third (Fourier) direction is active.
func (g *Geometry) Is3D() bool {
	return g.Nz > 1
}
