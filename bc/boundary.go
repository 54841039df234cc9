// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bc

import (
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/femlib"
)

// Group tags a GROUPS descriptor string from the session file.
// The reserved strings "axis", "wall", "open", "inlet" classify Boundary
// edges beyond their plain character tag.
type Group struct {
	Char byte
	Name string // "axis", "wall", "open", "inlet", or a user label
}

// Boundary is one element-edge record: element id, side index,
// group tag, unit outward normal, and a pointer to its Condition.
type Boundary struct {
	ElemId int
	Side   elem.Side
	Group  Group
	Nx, Ny float64 // unit outward normal (sampled at the edge midpoint)
	Cond   *Condition
}

// IsAxis, IsWall, IsOpen, IsInlet test the reserved group names
func (b *Boundary) IsAxis() bool  { return b.Group.Name == "axis" }
func (b *Boundary) IsWall() bool  { return b.Group.Name == "wall" }
func (b *Boundary) IsOpen() bool  { return b.Group.Name == "open" }
func (b *Boundary) IsInlet() bool { return b.Group.Name == "inlet" }

// BoundarySys is the ordered list of Boundary records for one Fourier
// mode (modes 0, 1, >=2 may differ when the cylindrical axis is present).
type BoundarySys struct {
	Mode       int
	Boundaries []*Boundary
}

// NewBoundarySys builds an empty BoundarySys for the given mode.
func NewBoundarySys(mode int) *BoundarySys {
	return &BoundarySys{Mode: mode}
}

// Add appends a Boundary record.
func (s *BoundarySys) Add(b *Boundary) {
	s.Boundaries = append(s.Boundaries, b)
}

// Open returns the subset of boundaries tagged "open" (Dong/LXD20 edges).
func (s *BoundarySys) Open() []*Boundary {
	var out []*Boundary
	for _, b := range s.Boundaries {
		if b.IsOpen() {
			out = append(out, b)
		}
	}
	return out
}

// AxisMasks returns the per-field essential/Neumann classification at the
// cylindrical axis for this mode:
//
//	mode 0: Neumann on u, p, c
//	mode 1: Dirichlet on u, p, c; Neumann on w~
//	mode >=2: Dirichlet on all
func AxisMasks(mode int, field string) (essential bool) {
	switch {
	case mode == 0:
		return false
	case mode == 1:
		if field == "w" {
			return false
		}
		return true
	default:
		return true
	}
}

// ValidateAxis checks the configuration error "y<0 on an axis
// edge": the axis boundary must lie at y==0 for every node it touches.
func ValidateAxis(b *Boundary, e *elem.Element) {
	if !b.IsAxis() {
		return
	}
	for _, n := range e.BMap[b.Side] {
		if e.Y[n.I][n.J] < -1e-12 {
			femlib.Fatal("bc.ValidateAxis", "element %d side %d: axis edge has y=%g < 0", e.Id, b.Side, e.Y[n.I][n.J])
		}
	}
}
