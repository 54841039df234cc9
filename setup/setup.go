// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package setup builds a Domain (geometry, mesh, per-field AssemblyMap/
// BoundarySys/ModalMatrixSys) from a decoded session.Session, the role
// gofem's fem.NewFEM/NewDomains play between inp.Data and a runnable
// fem.Domain. The structured rectangular grid it builds from
// session.Grid is the minimal mesh-generation stand-in for what the
// FEML grammar would otherwise describe (see session.Grid's doc comment).
package setup

import (
	"github.com/lab272/semtex-go/assembly"
	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/bc"
	"github.com/lab272/semtex-go/domain"
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/ellipt"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/field"
	"github.com/lab272/semtex-go/geom"
	"github.com/lab272/semtex-go/gll"
	"github.com/lab272/semtex-go/integrate"
	"github.com/lab272/semtex-go/mesh"
	"github.com/lab272/semtex-go/session"
)

// BuildDomain constructs a fully-wired Domain and Stepper from a decoded
// Session: geometry, structured-grid mesh, per-field assembly/boundary/
// elliptic-solver state, and the KIO91 stiffly-stable Stepper.
func BuildDomain(s *session.Session, force integrate.FieldForce) (*domain.Domain, *integrate.Stepper) {
	const routine = "setup.BuildDomain"

	coords := geom.Cartesian
	if s.Cylindrical {
		coords = geom.Cylindrical
	}
	sym := geom.Sym2D2C
	switch s.Fields {
	case "uvwp", "uvwcp":
		sym = geom.Sym3D3C
	}

	verts, cells := buildGrid(s)
	geo := geom.NewGeometry(s.NP, len(cells), s.NZ, 1, coords, sym, false)
	cache := gll.NewCache()
	msh := mesh.NewMesh(s.NP, verts, cells, cache)

	naive, _ := msh.NaiveAssembly()
	nPerSide := s.NP - 1
	nmodeLocal := geo.NzLocal / 2
	if geo.NzLocal < 2 {
		nmodeLocal = 1
	}

	dom := domain.NewDomain(s.Name, geo, msh, s.Fields, s.Dt)
	dom.IoFld, dom.IoHis, dom.IoCfl = s.IoFld, s.IoHis, s.IoCfl

	coeffs := integrate.NewStiffCoeffs(s.NTime)

	for _, letter := range s.Fields {
		name := string(letter)

		mask := buildMask(s, msh, naive, nPerSide, name)
		elemBoundaryGlobals := make([][]int, len(cells))
		for ci := range cells {
			elemBoundaryGlobals[ci] = naive[ci*4*nPerSide : (ci+1)*4*nPerSide]
		}
		amap := assembly.New(naive, mask, elemBoundaryGlobals, assembly.Level(s.Enumeration))

		remapped := make([][]int, len(cells))
		for ci := range cells {
			perSide := amap.Btog[ci*4*nPerSide : (ci+1)*4*nPerSide]
			remapped[ci] = reorderBoundaryGlobals(msh.Elems[ci], perSide)
		}

		diffusivity := diffusivityFor(s, name)

		maps := make([]*assembly.Map, nmodeLocal)
		bsyss := make([]*bc.BoundarySys, nmodeLocal)
		ebg := make([][][]int, nmodeLocal)
		mms := ellipt.NewModalMatrixSys(nmodeLocal)
		for mi := 0; mi < nmodeLocal; mi++ {
			maps[mi] = amap
			bsyss[mi] = buildBoundarySys(s, msh, mi, name)
			ebg[mi] = remapped
			betaSq := s.Beta * s.Beta * float64(mi*mi)
			lambdaSq := betaSq
			if name != "p" {
				lambdaSq += coeffs.Lambda2(diffusivity, s.Dt)
			}
			mms[mi] = ellipt.NewMatrixSys(ellipt.Direct, lambdaSq, betaSq, amap, bsyss[mi], msh.Elems, remapped, s.TolRel, s.StepMax)
		}

		data := auxfield.New(name, geo, msh)
		dom.AddField(field.NewField(name, data, geo, msh.Elems, maps, bsyss, mms, ebg))
	}

	stepper := integrate.NewStepper(s, dom, force)
	for _, letter := range s.Fields {
		name := string(letter)
		fl, ok := dom.Fields[name]
		if !ok {
			femlib.Fatal(routine, "internal: field %q missing after construction", name)
		}
		if n := countOpenBoundaryLines(fl.Bsyss, s.NP); n > 0 {
			stepper.BCmgrs[name] = bc.NewBCmgr(geo, n, s.NTime)
		}
	}
	return dom, stepper
}

// diffusivityFor returns the Helmholtz diffusivity token the session
// assigns to a field: kinematic viscosity for velocity components,
// kinvis/Pr for the scalar, unused (0) for pressure.
func diffusivityFor(s *session.Session, name string) float64 {
	if name == "c" {
		return s.Kinvis / s.Pr
	}
	return s.Kinvis
}

// buildGrid generates the structured n_el_x * n_el_y rectangular element
// grid described by session.Grid, wiring each outer side's boundary
// group tag into the mesh.Cell face records consumed by NaiveAssembly
// and buildBoundarySys below.
func buildGrid(s *session.Session) ([]mesh.Vertex, []mesh.Cell) {
	nx, ny := s.Grid.NelX, s.Grid.NelY
	dx := (s.Grid.X1 - s.Grid.X0) / float64(nx)
	dy := (s.Grid.Y1 - s.Grid.Y0) / float64(ny)

	verts := make([]mesh.Vertex, (nx+1)*(ny+1))
	vid := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			verts[vid(i, j)] = mesh.Vertex{
				Id: vid(i, j),
				X:  s.Grid.X0 + float64(i)*dx,
				Y:  s.Grid.Y0 + float64(j)*dy,
			}
		}
	}

	groupChar := func(sideName string) byte {
		gid, ok := s.Grid.SideGroups[sideName]
		if !ok {
			return 0
		}
		for _, g := range s.Groups {
			if g.Id == gid {
				return g.Char
			}
		}
		return 0
	}

	cid := func(i, j int) int { return j*nx + i }
	cells := make([]mesh.Cell, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := mesh.Cell{
				Id:    cid(i, j),
				Verts: [4]int{vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)},
			}
			// side 0: bottom, 1: right, 2: top, 3: left
			if j > 0 {
				c.Faces[0] = mesh.CellFace{Neighbour: cid(i, j-1), NbrSide: elem.SideTop}
			} else {
				c.Faces[0] = mesh.CellFace{Neighbour: -1, IsBoundary: true, Group: groupChar("ymin")}
			}
			if i < nx-1 {
				c.Faces[1] = mesh.CellFace{Neighbour: cid(i+1, j), NbrSide: elem.SideLeft}
			} else {
				c.Faces[1] = mesh.CellFace{Neighbour: -1, IsBoundary: true, Group: groupChar("xmax")}
			}
			if j < ny-1 {
				c.Faces[2] = mesh.CellFace{Neighbour: cid(i, j+1), NbrSide: elem.SideBottom}
			} else {
				c.Faces[2] = mesh.CellFace{Neighbour: -1, IsBoundary: true, Group: groupChar("ymax")}
			}
			if i > 0 {
				c.Faces[3] = mesh.CellFace{Neighbour: cid(i-1, j), NbrSide: elem.SideRight}
			} else {
				c.Faces[3] = mesh.CellFace{Neighbour: -1, IsBoundary: true, Group: groupChar("xmin")}
			}
			cells[cid(i, j)] = c
		}
	}
	return verts, cells
}

// reorderBoundaryGlobals permutes a per-element boundary-global slice from
// mesh.NaiveAssembly's per-side, corner-deduplicated order (elem.Element's
// NaiveSideOrder) into elem.Element.BoundaryNodeOrder's ascending
// tensor-product order -- the convention package ellipt's
// boundaryInteriorSplit, and so every ellipt.MatrixSys boundary array,
// expects its ElemBoundaryGlobals argument to follow.
func reorderBoundaryGlobals(e *elem.Element, perSide []int) []int {
	sideOrder := e.NaiveSideOrder()
	pos := make(map[elem.NodeIJ]int, len(sideOrder))
	for k, n := range sideOrder {
		pos[n] = k
	}
	ascending := e.BoundaryNodeOrder()
	out := make([]int, len(ascending))
	for a, n := range ascending {
		out[a] = perSide[pos[n]]
	}
	return out
}

// groupByChar finds the session Group record for a boundary face's
// character tag, defaulting to an unlabelled wall if none matches (a
// face with Group==0 carries no boundary condition, e.g. an un-faced
// interior edge never reached here).
func groupByChar(s *session.Session, ch byte) session.Group {
	for _, g := range s.Groups {
		if g.Char == ch {
			return g
		}
	}
	return session.Group{Char: ch, Descriptor: "wall"}
}

// findBCSpec locates the BCS record for (groupId, field), if any.
func findBCSpec(s *session.Session, groupId int, field string) (session.BCSpec, bool) {
	for _, bspec := range s.BCSpecs {
		if bspec.GroupId == groupId && bspec.Field == field {
			return bspec, true
		}
	}
	return session.BCSpec{}, false
}

// conditionFor builds a bc.Condition from a decoded BCS record, per the
// closed Kind set. The FEML expression calculator behind tag
// "E" (essential-function) is out of scope, so a function BC
// falls back to its constant Value with a remark.
func conditionFor(bspec session.BCSpec) *bc.Condition {
	switch bspec.Tag {
	case "D", "I":
		return &bc.Condition{Kind: bc.EssentialConstant, Value: bspec.Value}
	case "E":
		femlib.Remark("setup.conditionFor", "essential-function BC on group %d field %q: using constant fallback %g (FEML expression calculator out of scope)", bspec.GroupId, bspec.Field, bspec.Value)
		return &bc.Condition{Kind: bc.EssentialConstant, Value: bspec.Value}
	case "N":
		return &bc.Condition{Kind: bc.NaturalConstant, Value: bspec.Value}
	case "M":
		return &bc.Condition{Kind: bc.MixedConstant, MixK: bspec.Value, MixC: 0}
	case "H":
		return &bc.Condition{Kind: bc.ComputedNaturalPressure, Field: bspec.Field}
	case "O":
		return &bc.Condition{Kind: bc.ComputedMixedOpen, Field: bspec.Field}
	default:
		femlib.Fatal("setup.conditionFor", "unknown BCS tag %q", bspec.Tag)
		return nil
	}
}

// buildBoundarySys constructs field name's BoundarySys for Fourier mode
// mi by walking every cell's boundary faces and attaching the matching
// Condition, if the session declares a BCS record for that group/field.
func buildBoundarySys(s *session.Session, msh *mesh.Mesh, mi int, name string) *bc.BoundarySys {
	bsys := bc.NewBoundarySys(mi)
	for ci, c := range msh.Cells {
		for side := 0; side < 4; side++ {
			face := c.Faces[side]
			if !face.IsBoundary {
				continue
			}
			grp := groupByChar(s, face.Group)
			nx, ny := elem.SideNormal(elem.Side(side))
			b := &bc.Boundary{
				ElemId: ci,
				Side:   elem.Side(side),
				Group:  bc.Group{Char: grp.Char, Name: grp.Descriptor},
				Nx:     nx,
				Ny:     ny,
			}
			if grp.Descriptor != "axis" {
				if bspec, ok := findBCSpec(s, grp.Id, name); ok {
					b.Cond = conditionFor(bspec)
				}
			}
			bsys.Add(b)
		}
	}
	return bsys
}

// buildMask marks every naive-vector occurrence touching an essential
// boundary for field name as essential, per the AssemblyMap contract.
func buildMask(s *session.Session, msh *mesh.Mesh, naive []int, nPerSide int, name string) []bool {
	mask := make([]bool, len(naive))
	for ci, c := range msh.Cells {
		for side := 0; side < 4; side++ {
			face := c.Faces[side]
			if !face.IsBoundary {
				continue
			}
			grp := groupByChar(s, face.Group)
			if grp.Descriptor == "axis" {
				continue
			}
			bspec, ok := findBCSpec(s, grp.Id, name)
			if !ok || bspec.Tag != "D" && bspec.Tag != "I" && bspec.Tag != "E" {
				continue
			}
			base := ci*4*nPerSide + side*nPerSide
			for k := 0; k < nPerSide; k++ {
				mask[base+k] = true
			}
		}
	}
	return mask
}

// countOpenBoundaryLines sums the boundary-edge node count across every
// "open" boundary in every mode's BoundarySys, sized so bc.NewBCmgr's
// rolling history buffers cover every open-BC line this field touches.
func countOpenBoundaryLines(bsyss []*bc.BoundarySys, np int) int {
	if len(bsyss) == 0 {
		return 0
	}
	n := 0
	for _, b := range bsyss[0].Open() {
		_ = b
		n += np
	}
	return n
}
