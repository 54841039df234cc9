// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package field

import (
	"math"
	"testing"

	"github.com/lab272/semtex-go/assembly"
	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/bc"
	"github.com/lab272/semtex-go/elem"
	"github.com/lab272/semtex-go/ellipt"
	"github.com/lab272/semtex-go/geom"
	"github.com/lab272/semtex-go/gll"
	"github.com/lab272/semtex-go/mesh"
)

// buildSingleElementDomain wires up a single np x np unit-square element
// with no neighbours, for tests that need a real AssemblyMap/MatrixSys
// without going through setup.BuildDomain's session-driven grid (session
// validation rejects the single-field "p"-only combination this test wants).
func buildSingleElementDomain(np int) (*geom.Geometry, *mesh.Mesh, []int) {
	cache := gll.NewCache()
	verts := []mesh.Vertex{
		{Id: 0, X: 0, Y: 0},
		{Id: 1, X: 1, Y: 0},
		{Id: 2, X: 1, Y: 1},
		{Id: 3, X: 0, Y: 1},
	}
	cells := []mesh.Cell{
		{Id: 0, Verts: [4]int{0, 1, 2, 3}},
	}
	msh := mesh.NewMesh(np, verts, cells, cache)
	naive, _ := msh.NaiveAssembly()
	geo := geom.NewGeometry(np, 1, 1, 1, geom.Cartesian, geom.Sym2D2C, false)
	return geo, msh, naive
}

// reorderToAscending mirrors setup.reorderBoundaryGlobals: it permutes a
// per-element boundary-global slice from elem.Element.NaiveSideOrder (the
// order mesh.NaiveAssembly's naive vector uses) into
// elem.Element.BoundaryNodeOrder's ascending tensor-product order, which
// ellipt.MatrixSys's ElemBoundaryGlobals argument expects.
func reorderToAscending(e *elem.Element, perSide []int) []int {
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

// TestFieldSolveDirichletConstantRecoversConstant drives a genuine
// Field.Solve on a single element with a uniform essential (Dirichlet)
// condition on all four sides and zero forcing: a pure Laplace problem
// whose exact solution is the constant boundary value everywhere,
// including the element's interior nodes recovered through the Schur
// complement. This exercises the Field.EvaluateBoundaries essential-BC
// lift and ellipt.MatrixSys.Solve end to end.
func TestFieldSolveDirichletConstantRecoversConstant(t *testing.T) {
	const np = 4
	const boundaryValue = 7.0

	geo, msh, naive := buildSingleElementDomain(np)
	e := msh.Elems[0]

	mask := make([]bool, len(naive))
	for i := range mask {
		mask[i] = true
	}
	amap := assembly.New(naive, mask, [][]int{naive}, assembly.LevelNone)
	if amap.Nsolve != 0 {
		t.Fatalf("expected Nsolve=0 with every boundary node essential, got %d", amap.Nsolve)
	}
	remapped := reorderToAscending(e, amap.Btog)

	bsys := bc.NewBoundarySys(0)
	for side := elem.Side(0); side < 4; side++ {
		nx, ny := elem.SideNormal(side)
		bsys.Add(&bc.Boundary{
			ElemId: 0,
			Side:   side,
			Group:  bc.Group{Char: 'D', Name: "wall"},
			Nx:     nx,
			Ny:     ny,
			Cond:   &bc.Condition{Kind: bc.EssentialConstant, Value: boundaryValue},
		})
	}

	ms := ellipt.NewMatrixSys(ellipt.Direct, 0, 0, amap, bsys, msh.Elems, [][]int{remapped}, 1e-10, 100)
	mms := ellipt.ModalMatrixSys{ms}

	data := auxfield.New("p", geo, msh)
	f := NewField("p", data, geo, msh.Elems, []*assembly.Map{amap}, []*bc.BoundarySys{bsys}, mms, [][][]int{{remapped}})

	essential, natural := f.EvaluateBoundaries(0, nil)
	if len(essential[0][0]) != np*np-((np-2)*(np-2)) {
		t.Fatalf("essential[0][0] has length %d, want %d boundary nodes", len(essential[0][0]), np*np-(np-2)*(np-2))
	}
	for _, v := range essential[0][0] {
		if v != boundaryValue {
			t.Fatalf("essential lift entry = %g, want %g", v, boundaryValue)
		}
	}

	rhs := [][][]float64{{make([]float64, np*np)}}
	f.Solve(rhs, essential, natural)

	plane := f.Data.Plane(0)
	for i, v := range plane {
		if math.Abs(v-boundaryValue) > 1e-8 {
			t.Fatalf("node %d: solved value %g, want %g (constant Dirichlet solution)", i, v, boundaryValue)
		}
	}
}
