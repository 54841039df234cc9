// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mesh implements element connectivity and the naive (pre-mask,
// pre-RCM) global assembly vector/§4.2, grounded on
// gofem's inp.Mesh/inp.Cell vertex-and-cell tables.
package mesh

import (
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/gll"
)

// Vertex is one mesh corner point.
type Vertex struct {
	Id   int
	X, Y float64
}

// CellFace names the companion element/side of an interior (shared) edge,
// or the reserved group tag of a boundary edge.
type CellFace struct {
	Neighbour int  // element id of the element sharing this edge, or -1
	NbrSide   elem.Side
	IsBoundary bool
	Group     byte // group character tag when IsBoundary
}

// Cell is one quadrilateral element's connectivity record.
type Cell struct {
	Id      int
	Verts   [4]int // indices into Mesh.Verts, counter-clockwise
	Faces   [4]CellFace
}

// Mesh holds the full element connectivity table and the corresponding
// Element objects.
type Mesh struct {
	Np    int
	Verts []Vertex
	Cells []Cell
	Elems []*elem.Element
}

// NewMesh builds element operators for every cell from the vertex table,
// using the shared GLL operator cache.
func NewMesh(np int, verts []Vertex, cells []Cell, cache *gll.Cache) *Mesh {
	m := &Mesh{Np: np, Verts: verts, Cells: cells}
	m.Elems = make([]*elem.Element, len(cells))
	for i, c := range cells {
		var corners [4][2]float64
		for k, vi := range c.Verts {
			corners[k][0] = verts[vi].X
			corners[k][1] = verts[vi].Y
		}
		m.Elems[i] = elem.NewElement(c.Id, np, corners, cache)
	}
	return m
}

// NaiveAssembly builds the naive per-edge-node global numbering vector of
// length 4*(np-1)*n_el: every element-edge node is
// numbered uniquely up to sharing with a neighbour across an interior
// edge. Corner nodes (shared by two edges of the same element) collapse to
// a single global id via a vertex-keyed union-find-lite pass.
func (m *Mesh) NaiveAssembly() (naive []int, nglobal int) {
	np := m.Np
	nPerSide := np - 1 // exclude the trailing corner, shared with next side
	nel := len(m.Cells)
	naive = make([]int, 4*nPerSide*nel)
	for i := range naive {
		naive[i] = -1
	}

	// vertex-id -> global id (corners are shared across all incident cells)
	vertexGlobal := make(map[int]int)
	next := 0
	allocVertex := func(v int) int {
		if g, ok := vertexGlobal[v]; ok {
			return g
		}
		g := next
		next++
		vertexGlobal[v] = g
		return g
	}

	// edge-interior nodes: keyed by (min-vert,max-vert,position-from-minvert)
	type edgeKey struct {
		a, b, pos int
	}
	edgeGlobal := make(map[edgeKey]int)

	for ci, c := range m.Cells {
		for side := 0; side < 4; side++ {
			v0 := c.Verts[side]
			v1 := c.Verts[(side+1)%4]
			for k := 0; k < nPerSide; k++ {
				base := ci*4*nPerSide + side*nPerSide + k
				if k == 0 {
					naive[base] = allocVertex(v0)
					continue
				}
				a, b, pos := v0, v1, k
				if v0 > v1 {
					a, b, pos = v1, v0, nPerSide-k
				}
				key := edgeKey{a, b, pos}
				if g, ok := edgeGlobal[key]; ok {
					naive[base] = g
					continue
				}
				g := next
				next++
				edgeGlobal[key] = g
				naive[base] = g
			}
		}
	}
	for _, g := range naive {
		if g < 0 {
			femlib.Fatal("mesh.NaiveAssembly", "internal: unassigned naive global id")
		}
	}
	return naive, next
}
